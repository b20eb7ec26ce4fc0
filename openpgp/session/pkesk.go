// Package session implements the session-key and recipient engine,
// spec.md 4.H: public-key encrypted session keys (tag 1), symmetric-
// encrypted session keys (tag 3), and SEIP+MDC data packets (tag 18).
package session

import (
	"crypto/rsa"
	"math/big"

	"golang.org/x/crypto/openpgp/elgamal" //nolint:staticcheck // primitive oracle, see SPEC_FULL.md

	"github.com/pgpkit/pgpkit/openpgp"
	"github.com/pgpkit/pgpkit/openpgp/oracle"
)

// PKESK is a parsed public-key-encrypted session-key packet (tag 1),
// RFC 4880 5.1.
type PKESK struct {
	Version int // always 3
	KeyID   []byte
	Algo    openpgp.PublicKeyAlgorithm

	RSAData      *big.Int   // RSA/ElGamal-E1 ciphertext MPI
	ElGamalData2 *big.Int   // ElGamal C2
	ECDHPoint    []byte     // ephemeral EC point
	ECDHWrapped  []byte     // AES-key-wrapped session key
}

// ParsePKESK decodes a PK-ESK packet body.
func ParsePKESK(body []byte) (PKESK, error) {
	const op = "session.ParsePKESK"
	if len(body) < 10 || body[0] != 3 {
		return PKESK{}, &openpgp.Error{Code: openpgp.ErrBadFormat, Op: op}
	}
	var p PKESK
	p.Version = 3
	p.KeyID = append([]byte(nil), body[1:9]...)
	p.Algo = openpgp.PublicKeyAlgorithm(body[9])
	rest := body[10:]
	switch p.Algo {
	case openpgp.PubKeyRSA, openpgp.PubKeyRSAEncryptOnly:
		n, _ := mpiDecodeBig(rest)
		if n == nil {
			return PKESK{}, &openpgp.Error{Code: openpgp.ErrBadFormat, Op: op}
		}
		p.RSAData = n
	case openpgp.PubKeyElGamal:
		c1, r1 := mpiDecodeBig(rest)
		c2, _ := mpiDecodeBig(r1)
		if c1 == nil || c2 == nil {
			return PKESK{}, &openpgp.Error{Code: openpgp.ErrBadFormat, Op: op}
		}
		p.RSAData, p.ElGamalData2 = c1, c2
	case openpgp.PubKeyECDH:
		point, r1 := mpiDecodeRaw(rest)
		if point == nil || len(r1) < 1 {
			return PKESK{}, &openpgp.Error{Code: openpgp.ErrBadFormat, Op: op}
		}
		n := int(r1[0])
		if len(r1) < 1+n {
			return PKESK{}, &openpgp.Error{Code: openpgp.ErrBadFormat, Op: op}
		}
		p.ECDHPoint = point
		p.ECDHWrapped = append([]byte(nil), r1[1:1+n]...)
	default:
		return PKESK{}, &openpgp.Error{Code: openpgp.ErrNotSupported, Op: op}
	}
	return p, nil
}

// Emit serializes a PK-ESK packet body.
func (p PKESK) Emit() []byte {
	out := []byte{3}
	out = append(out, p.KeyID...)
	out = append(out, byte(p.Algo))
	switch p.Algo {
	case openpgp.PubKeyRSA, openpgp.PubKeyRSAEncryptOnly:
		out = append(out, mpiBig(p.RSAData)...)
	case openpgp.PubKeyElGamal:
		out = append(out, mpiBig(p.RSAData)...)
		out = append(out, mpiBig(p.ElGamalData2)...)
	case openpgp.PubKeyECDH:
		out = append(out, mpiRaw(p.ECDHPoint)...)
		out = append(out, byte(len(p.ECDHWrapped)))
		out = append(out, p.ECDHWrapped...)
	}
	return out
}

// sessionKeyPlaintext builds the RSA/ElGamal PK-ESK payload, spec.md 4.H:
// symAlg||keyOctets||BE16(checksum).
func sessionKeyPlaintext(symAlgo openpgp.SymmetricAlgorithm, key []byte) []byte {
	out := append([]byte{byte(symAlgo)}, key...)
	var sum uint16
	for _, b := range key {
		sum += uint16(b)
	}
	return append(out, byte(sum>>8), byte(sum))
}

func parseSessionKeyPlaintext(plain []byte) (openpgp.SymmetricAlgorithm, []byte, error) {
	const op = "session.parseSessionKeyPlaintext"
	if len(plain) < 3 {
		return 0, nil, &openpgp.Error{Code: openpgp.ErrBadFormat, Op: op}
	}
	algo := openpgp.SymmetricAlgorithm(plain[0])
	key := plain[1 : len(plain)-2]
	var sum uint16
	for _, b := range key {
		sum += uint16(b)
	}
	want := uint16(plain[len(plain)-2])<<8 | uint16(plain[len(plain)-1])
	if sum != want {
		return 0, nil, &openpgp.Error{Code: openpgp.ErrDecryptFailed, Op: op}
	}
	return algo, key, nil
}

// EncryptRSA builds a PK-ESK packet for an RSA recipient.
func EncryptRSA(keyID []byte, pub *rsa.PublicKey, symAlgo openpgp.SymmetricAlgorithm, sessionKey []byte) (PKESK, error) {
	plain := sessionKeyPlaintext(symAlgo, sessionKey)
	ct, err := oracle.RSAEncryptPKCS1v15(pub, plain)
	if err != nil {
		return PKESK{}, err
	}
	return PKESK{Version: 3, KeyID: keyID, Algo: openpgp.PubKeyRSA, RSAData: new(big.Int).SetBytes(ct)}, nil
}

// DecryptRSA recovers the session key from a PK-ESK packet encrypted to priv.
func DecryptRSA(p PKESK, priv *rsa.PrivateKey) (openpgp.SymmetricAlgorithm, []byte, error) {
	plain, err := oracle.RSADecryptPKCS1v15(priv, p.RSAData.Bytes())
	if err != nil {
		return 0, nil, err
	}
	return parseSessionKeyPlaintext(plain)
}

// EncryptElGamal builds a PK-ESK packet for an ElGamal recipient.
func EncryptElGamal(keyID []byte, pub *elgamal.PublicKey, symAlgo openpgp.SymmetricAlgorithm, sessionKey []byte) (PKESK, error) {
	plain := sessionKeyPlaintext(symAlgo, sessionKey)
	c1, c2, err := oracle.ElGamalEncrypt(pub, plain)
	if err != nil {
		return PKESK{}, err
	}
	return PKESK{Version: 3, KeyID: keyID, Algo: openpgp.PubKeyElGamal, RSAData: c1, ElGamalData2: c2}, nil
}

// DecryptElGamal recovers the session key from an ElGamal PK-ESK packet.
func DecryptElGamal(p PKESK, priv *elgamal.PrivateKey) (openpgp.SymmetricAlgorithm, []byte, error) {
	plain, err := oracle.ElGamalDecrypt(priv, p.RSAData, p.ElGamalData2)
	if err != nil {
		return 0, nil, err
	}
	return parseSessionKeyPlaintext(plain)
}

func mpiDecodeBig(buf []byte) (*big.Int, []byte) {
	v, rest := mpiDecodeRaw(buf)
	if v == nil {
		return nil, rest
	}
	return new(big.Int).SetBytes(v), rest
}

func mpiBig(n *big.Int) []byte { return mpiRaw(n.Bytes()) }

func mpiRaw(data []byte) []byte {
	for len(data) > 0 && data[0] == 0 {
		data = data[1:]
	}
	bits := len(data) * 8
	if len(data) > 0 {
		bits -= 8
		lead := data[0]
		for lead != 0 {
			bits++
			lead >>= 1
		}
	}
	out := make([]byte, 2+len(data))
	out[0], out[1] = byte(bits>>8), byte(bits)
	copy(out[2:], data)
	return out
}

func mpiDecodeRaw(buf []byte) (value, rest []byte) {
	if len(buf) < 2 {
		return nil, buf
	}
	bits := int(buf[0])<<8 | int(buf[1])
	nbytes := (bits + 7) / 8
	buf = buf[2:]
	if len(buf) < nbytes {
		return nil, buf
	}
	return buf[:nbytes], buf[nbytes:]
}
