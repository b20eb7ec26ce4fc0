package pipeline

import (
	"crypto/rsa"

	"golang.org/x/crypto/openpgp/elgamal" //nolint:staticcheck // primitive oracle, see SPEC_FULL.md

	"github.com/pgpkit/pgpkit/openpgp"
	"github.com/pgpkit/pgpkit/openpgp/keymodel"
	"github.com/pgpkit/pgpkit/openpgp/oracle"
	"github.com/pgpkit/pgpkit/openpgp/session"
)

// EncryptOp describes an encrypt_data operation: zero or more public-key
// recipients, zero or more password recipients, spec.md 4.I/4.H.
type EncryptOp struct {
	Recipients  []*keymodel.Key
	Passwords   [][]byte
	Cipher      openpgp.SymmetricAlgorithm
	Compression openpgp.CompressionAlgorithm
	Armor       bool
}

// Encrypt assembles a literal-data packet from plaintext (tagged binary,
// filename "", modification time 0) and wraps it in a SEIP packet under a fresh
// session key, producing one PK-ESK or SK-ESK packet per recipient ahead
// of it, spec.md 4.H "multi-recipient encryption shares one session key".
func Encrypt(ctx *Context, all *keymodel.Collection, op EncryptOp, plaintext []byte) ([]byte, error) {
	const errOp = "pipeline.Encrypt"
	if len(op.Recipients) == 0 && len(op.Passwords) == 0 {
		return nil, &openpgp.Error{Code: openpgp.ErrBadParameters, Op: errOp}
	}
	cipher := op.Cipher
	if cipher == 0 {
		cipher = ctx.DefaultCipher
	}

	sessionKey, err := oracle.DefaultRNG().GetBytes(cipher.KeySize())
	if err != nil {
		return nil, err
	}

	var eskPackets []byte
	for _, recipient := range op.Recipients {
		encKey, err := encryptionCapableSubkey(recipient, all)
		if err != nil {
			return nil, err
		}
		pkesk, err := encryptToKey(encKey, cipher, sessionKey)
		if err != nil {
			return nil, err
		}
		eskPackets = append(eskPackets, packetBytes(openpgp.TagPKESK, pkesk.Emit())...)
	}
	for i, password := range op.Passwords {
		var messageKey []byte
		if i > 0 || len(op.Recipients) > 0 {
			messageKey = sessionKey
		}
		skesk, derivedKey, err := session.NewPasswordRecipient(password, ctx.DefaultHash, ctx.S2KIterations, cipher, messageKey)
		if err != nil {
			return nil, err
		}
		eskPackets = append(eskPackets, packetBytes(openpgp.TagSKESK, skesk.Emit())...)
		if messageKey == nil {
			// sole password recipient so far: its derived key IS the session key
			sessionKey = derivedKey
		}
	}

	literal := session.LiteralData('b', "", 0, plaintext)
	literalPacket := packetBytes(openpgp.TagLiteral, literal)

	compression := op.Compression
	if compression == 0 {
		compression = ctx.DefaultCompressor
	}
	toEncrypt, err := session.CompressPacket(compression, literalPacket)
	if err != nil {
		return nil, err
	}

	seip, err := session.EncryptSEIP(cipher, sessionKey, toEncrypt)
	if err != nil {
		return nil, err
	}

	out := append(eskPackets, packetBytes(openpgp.TagSEIPD, seip)...)
	if op.Armor {
		return openpgp.Armor(openpgp.FrameMessage, nil, out), nil
	}
	return out, nil
}

func encryptToKey(k *keymodel.Key, cipher openpgp.SymmetricAlgorithm, sessionKey []byte) (session.PKESK, error) {
	const op = "pipeline.encryptToKey"
	pub := k.Public
	keyID := pub.KeyID()
	switch pub.Algorithm {
	case openpgp.PubKeyRSA, openpgp.PubKeyRSAEncryptOnly:
		if len(pub.Params) < 2 {
			return session.PKESK{}, &openpgp.Error{Code: openpgp.ErrBadFormat, Op: op}
		}
		rsaPub := &rsa.PublicKey{N: pub.Params[0], E: int(pub.Params[1].Int64())}
		return session.EncryptRSA(keyID, rsaPub, cipher, sessionKey)
	case openpgp.PubKeyElGamal:
		if len(pub.Params) < 3 {
			return session.PKESK{}, &openpgp.Error{Code: openpgp.ErrBadFormat, Op: op}
		}
		egPub := &elgamal.PublicKey{P: pub.Params[0], G: pub.Params[1], Y: pub.Params[2]}
		return session.EncryptElGamal(keyID, egPub, cipher, sessionKey)
	case openpgp.PubKeyECDH:
		curveOID, kdfHash, kdfCipher, err := ecdhParamsFor(k)
		if err != nil {
			return session.PKESK{}, err
		}
		return session.EncryptECDH(keyID, pub.Point, pub.Fingerprint(), curveOID, kdfHash, kdfCipher, cipher, sessionKey)
	default:
		return session.PKESK{}, &openpgp.Error{Code: openpgp.ErrNotSupported, Op: op}
	}
}

// ecdhParamsFor extracts the RFC 6637 KDF parameters an ECDH public key
// carries in its algorithm-specific fields, spec.md 4.A/4.H.
func ecdhParamsFor(k *keymodel.Key) (curveOID []byte, kdfHash openpgp.HashAlgorithm, kdfCipher openpgp.SymmetricAlgorithm, err error) {
	const op = "pipeline.ecdhParamsFor"
	oid := k.Public.Curve.OID()
	if oid == nil {
		return nil, 0, 0, &openpgp.Error{Code: openpgp.ErrNotSupported, Op: op}
	}
	return oid, k.Public.KDFHash, k.Public.KDFCipher, nil
}
