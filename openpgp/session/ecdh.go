package session

import (
	"crypto/sha256"
	"crypto/sha512"
	"hash"

	"github.com/pgpkit/pgpkit/openpgp"
	"github.com/pgpkit/pgpkit/openpgp/oracle"
)

// ecdhKDF derives the AES key-encrypting key from an ECDH shared secret
// per RFC 6637 7: KDF(X) = H(00 00 00 01 || X || param), truncated/used
// per kdfHash's digest, where param ties the KDF to the recipient's
// fingerprint and algorithm choices (RFC 6637 8).
func ecdhKDF(kdfHash openpgp.HashAlgorithm, sharedSecret, param []byte) ([]byte, error) {
	var h hash.Hash
	switch kdfHash {
	case openpgp.HashSHA256:
		h = sha256.New()
	case openpgp.HashSHA384:
		h = sha512.New384()
	case openpgp.HashSHA512:
		h = sha512.New()
	default:
		var err error
		h, err = newHashFallback(kdfHash)
		if err != nil {
			return nil, err
		}
	}
	h.Write([]byte{0, 0, 0, 1})
	h.Write(sharedSecret)
	h.Write(param)
	return h.Sum(nil), nil
}

func newHashFallback(algo openpgp.HashAlgorithm) (hash.Hash, error) {
	return oracle.NewHash(algo)
}

// ecdhParam builds RFC 6637 8's "other info" for the KDF: curve OID len +
// OID, algorithm ID (18), KDF params (03 01 hash cipher), the fixed
// "Anonymous Sender" string, and the recipient fingerprint.
func ecdhParam(curveOID []byte, kdfHash openpgp.HashAlgorithm, kdfCipher openpgp.SymmetricAlgorithm, recipientFingerprint []byte) []byte {
	out := []byte{byte(len(curveOID))}
	out = append(out, curveOID...)
	out = append(out, byte(openpgp.PubKeyECDH))
	out = append(out, 3, 1, byte(kdfHash), byte(kdfCipher))
	out = append(out, []byte("Anonymous Sender    ")...)
	out = append(out, recipientFingerprint...)
	return out
}

// EncryptECDH wraps sessionKey (prefixed with symAlgo+checksum, per
// sessionKeyPlaintext) with a KEK derived from a fresh ephemeral X25519
// key pair and the recipient's public point, producing a PKESK.
func EncryptECDH(keyID []byte, recipientPoint, recipientFingerprint, curveOID []byte, kdfHash openpgp.HashAlgorithm, kdfCipher openpgp.SymmetricAlgorithm, symAlgo openpgp.SymmetricAlgorithm, sessionKey []byte) (PKESK, error) {
	ephPriv, ephPub, err := oracle.GenerateX25519()
	if err != nil {
		return PKESK{}, err
	}
	shared, err := oracle.X25519SharedSecret(ephPriv, recipientPoint[1:]) // strip 0x40 native-point prefix
	if err != nil {
		return PKESK{}, err
	}
	kek, err := ecdhKDF(kdfHash, shared, ecdhParam(curveOID, kdfHash, kdfCipher, recipientFingerprint))
	if err != nil {
		return PKESK{}, err
	}
	plain := pkcs5Pad(sessionKeyPlaintext(symAlgo, sessionKey))
	wrapped, err := oracle.AESKeyWrap(kek[:kdfCipher.KeySize()], plain)
	if err != nil {
		return PKESK{}, err
	}
	return PKESK{
		Version: 3, KeyID: keyID, Algo: openpgp.PubKeyECDH,
		ECDHPoint: append([]byte{0x40}, ephPub...), ECDHWrapped: wrapped,
	}, nil
}

// DecryptECDH reverses EncryptECDH given the recipient's static private scalar.
func DecryptECDH(p PKESK, recipientPriv, curveOID []byte, recipientFingerprint []byte, kdfHash openpgp.HashAlgorithm, kdfCipher openpgp.SymmetricAlgorithm) (openpgp.SymmetricAlgorithm, []byte, error) {
	shared, err := oracle.X25519SharedSecret(recipientPriv, p.ECDHPoint[1:])
	if err != nil {
		return 0, nil, err
	}
	kek, err := ecdhKDF(kdfHash, shared, ecdhParam(curveOID, kdfHash, kdfCipher, recipientFingerprint))
	if err != nil {
		return 0, nil, err
	}
	plain, err := oracle.AESKeyUnwrap(kek[:kdfCipher.KeySize()], p.ECDHWrapped)
	if err != nil {
		return 0, nil, err
	}
	plain, err = pkcs5Unpad(plain)
	if err != nil {
		return 0, nil, err
	}
	return parseSessionKeyPlaintext(plain)
}

// pkcs5Pad/pkcs5Unpad implement RFC 6637 8's padding of the session-key
// plaintext to an 8-octet boundary before key wrap.
func pkcs5Pad(data []byte) []byte {
	n := 8 - len(data)%8
	if n == 0 {
		n = 8
	}
	pad := make([]byte, n)
	for i := range pad {
		pad[i] = byte(n)
	}
	return append(data, pad...)
}

func pkcs5Unpad(data []byte) ([]byte, error) {
	const op = "session.pkcs5Unpad"
	if len(data) == 0 {
		return nil, &openpgp.Error{Code: openpgp.ErrBadFormat, Op: op}
	}
	n := int(data[len(data)-1])
	if n == 0 || n > len(data) || n > 8 {
		return nil, &openpgp.Error{Code: openpgp.ErrBadFormat, Op: op}
	}
	return data[:len(data)-n], nil
}
