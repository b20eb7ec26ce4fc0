package pipeline

import (
	"crypto/rsa"
	"math/big"

	"golang.org/x/crypto/openpgp/elgamal" //nolint:staticcheck // primitive oracle, see SPEC_FULL.md

	"github.com/pgpkit/pgpkit/openpgp"
	"github.com/pgpkit/pgpkit/openpgp/keymodel"
	"github.com/pgpkit/pgpkit/openpgp/protect"
	"github.com/pgpkit/pgpkit/openpgp/session"
)

// DecryptOp describes a decrypt_data operation: the caller supplies
// either (or both) key material via ctx.Keys and passwords via
// ctx.Passwords; the pipeline tries PK-ESK packets first, then SK-ESK
// packets, spec.md 4.H/4.I.
type DecryptOp struct{}

// Decrypt walks message (a concatenation of PK-ESK/SK-ESK packets
// followed by one SEIP packet) and returns the recovered literal data
// payload's raw bytes.
func Decrypt(ctx *Context, all *keymodel.Collection, message []byte) ([]byte, error) {
	const op = "pipeline.Decrypt"
	reader := openpgp.NewReader(message)
	packets, err := reader.All()
	if err != nil {
		return nil, err
	}
	if len(packets) == 0 {
		return nil, &openpgp.Error{Code: openpgp.ErrBadFormat, Op: op}
	}
	seipPacket := packets[len(packets)-1]
	if seipPacket.Tag != openpgp.TagSEIPD {
		return nil, &openpgp.Error{Code: openpgp.ErrBadFormat, Op: op}
	}

	sessionKey, cipher, err := recoverSessionKey(ctx, all, packets[:len(packets)-1])
	if err != nil {
		return nil, err
	}

	inner, err := session.DecryptSEIP(cipher, sessionKey, seipPacket.Body)
	if err != nil {
		return nil, err
	}
	innerReader := openpgp.NewReader(inner)
	innerPackets, err := innerReader.All()
	if err != nil {
		return nil, err
	}
	if len(innerPackets) == 1 && innerPackets[0].Tag == openpgp.TagCompressed {
		decompressed, err := session.DecompressPacket(innerPackets[0].Body)
		if err != nil {
			return nil, err
		}
		decompressedReader := openpgp.NewReader(decompressed)
		innerPackets, err = decompressedReader.All()
		if err != nil {
			return nil, err
		}
	}
	for _, p := range innerPackets {
		if p.Tag == openpgp.TagLiteral {
			_, _, _, data, err := session.ParseLiteralData(p.Body)
			return data, err
		}
	}
	return nil, &openpgp.Error{Code: openpgp.ErrBadFormat, Op: op}
}

// recoverSessionKey tries every PK-ESK packet against a key ctx.Keys can
// resolve and unlock, falling back to SK-ESK packets tried against every
// password ctx.Passwords is willing to supply, spec.md 8 "decryption
// tries available secret keys before falling back to password recipients".
func recoverSessionKey(ctx *Context, all *keymodel.Collection, esks []openpgp.Packet) ([]byte, openpgp.SymmetricAlgorithm, error) {
	const op = "pipeline.recoverSessionKey"
	for _, p := range esks {
		if p.Tag != openpgp.TagPKESK {
			continue
		}
		pkesk, err := session.ParsePKESK(p.Body)
		if err != nil {
			continue
		}
		k, ok := ctx.Keys.FindKey(OpDecryptPK, pkesk.KeyID)
		if !ok || k.Secret == nil {
			continue
		}
		sk := k.Secret
		if sk.Locked {
			password, ok := ctx.Passwords.GetPassword(OpDecryptPK, k)
			if !ok {
				return nil, 0, &openpgp.Error{Code: openpgp.ErrBadPassword, Op: op}
			}
			if err := protect.Unlock(sk, password); err != nil {
				continue
			}
			defer protect.Lock(sk)
		}
		algo, key, err := decryptPKESK(pkesk, k)
		if err != nil {
			continue
		}
		return key, algo, nil
	}
	for _, p := range esks {
		if p.Tag != openpgp.TagSKESK {
			continue
		}
		skesk, err := session.ParseSKESK(p.Body)
		if err != nil {
			continue
		}
		password, ok := ctx.Passwords.GetPassword(OpDecryptSymmetric, nil)
		if !ok {
			return nil, 0, &openpgp.Error{Code: openpgp.ErrBadPassword, Op: op}
		}
		key, err := session.RecoverPasswordKey(skesk, password)
		if err != nil {
			continue
		}
		return key, skesk.Algo, nil
	}
	return nil, 0, &openpgp.Error{Code: openpgp.ErrDecryptFailed, Op: op}
}

func decryptPKESK(p session.PKESK, k *keymodel.Key) (openpgp.SymmetricAlgorithm, []byte, error) {
	const op = "pipeline.decryptPKESK"
	sk := k.Secret
	switch p.Algo {
	case openpgp.PubKeyRSA, openpgp.PubKeyRSAEncryptOnly:
		if len(sk.Params) < 3 || len(sk.Public.Params) < 2 {
			return 0, nil, &openpgp.Error{Code: openpgp.ErrBadFormat, Op: op}
		}
		priv := &rsa.PrivateKey{
			PublicKey: rsa.PublicKey{N: sk.Public.Params[0], E: int(sk.Public.Params[1].Int64())},
			D:         sk.Params[0],
			Primes:    []*big.Int{sk.Params[1], sk.Params[2]},
		}
		priv.Precompute()
		return session.DecryptRSA(p, priv)
	case openpgp.PubKeyElGamal:
		if len(sk.Params) < 1 || len(sk.Public.Params) < 3 {
			return 0, nil, &openpgp.Error{Code: openpgp.ErrBadFormat, Op: op}
		}
		priv := &elgamal.PrivateKey{
			PublicKey: elgamal.PublicKey{P: sk.Public.Params[0], G: sk.Public.Params[1], Y: sk.Public.Params[2]},
			X:         sk.Params[0],
		}
		return session.DecryptElGamal(p, priv)
	case openpgp.PubKeyECDH:
		curveOID, kdfHash, kdfCipher, err := ecdhParamsFor(k)
		if err != nil {
			return 0, nil, err
		}
		return session.DecryptECDH(p, sk.Scalar, curveOID, sk.Public.Fingerprint(), kdfHash, kdfCipher)
	default:
		return 0, nil, &openpgp.Error{Code: openpgp.ErrNotSupported, Op: op}
	}
}
