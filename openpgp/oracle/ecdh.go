package oracle

import (
	"crypto/aes"
	"crypto/rand"

	"golang.org/x/crypto/curve25519"

	"github.com/pgpkit/pgpkit/openpgp"
)

// X25519SharedSecret derives an ECDH shared secret over Curve25519, the
// wire curve for PubKeyECDH with CurveX25519 (RFC 7748 via RFC 6637's
// generic ECDH framing, as adopted by 4880bis).
func X25519SharedSecret(priv, peerPublic []byte) ([]byte, error) {
	secret, err := curve25519.X25519(priv, peerPublic)
	if err != nil {
		return nil, &Error{Code: openpgp.ErrGeneric, Op: "X25519SharedSecret", Err: err}
	}
	return secret, nil
}

// GenerateX25519 returns a fresh Curve25519 scalar and its public point.
func GenerateX25519() (priv, pub []byte, err error) {
	priv = make([]byte, 32)
	if _, err = rand.Read(priv); err != nil {
		return nil, nil, &Error{Code: openpgp.ErrRNG, Op: "GenerateX25519", Err: err}
	}
	pubArr, err := curve25519.X25519(priv, curve25519.Basepoint)
	if err != nil {
		return nil, nil, &Error{Code: openpgp.ErrKeyGenerationFailure, Op: "GenerateX25519", Err: err}
	}
	return priv, pubArr, nil
}

// AESKeyWrap implements RFC 3394 key wrap, used to wrap the ECDH-derived
// message-packing key (spec.md 4.H). golang.org/x/crypto has no key-wrap
// package, so this is a small, self-contained primitive built directly on
// crypto/aes (documented in DESIGN.md as the one hand-rolled primitive;
// everything it calls into is still the AES oracle, never re-implemented).
func AESKeyWrap(kek, plaintext []byte) ([]byte, error) {
	const op = "AESKeyWrap"
	if len(plaintext)%8 != 0 {
		return nil, &Error{Code: openpgp.ErrBadParameters, Op: op}
	}
	block, err := aes.NewCipher(kek)
	if err != nil {
		return nil, &Error{Code: openpgp.ErrGeneric, Op: op, Err: err}
	}
	n := len(plaintext) / 8
	r := make([][8]byte, n)
	for i := range r {
		copy(r[i][:], plaintext[i*8:i*8+8])
	}
	var a [8]byte
	for i := range a {
		a[i] = 0xA6
	}
	buf := make([]byte, 16)
	for j := 0; j <= 5; j++ {
		for i := 1; i <= n; i++ {
			copy(buf[:8], a[:])
			copy(buf[8:], r[i-1][:])
			block.Encrypt(buf, buf)
			t := uint64(n*j + i)
			var tb [8]byte
			tb[7] = byte(t)
			tb[6] = byte(t >> 8)
			tb[5] = byte(t >> 16)
			tb[4] = byte(t >> 24)
			for k := 0; k < 8; k++ {
				a[k] = buf[k] ^ tb[k]
			}
			copy(r[i-1][:], buf[8:])
		}
	}
	out := make([]byte, 8+len(plaintext))
	copy(out[:8], a[:])
	for i := range r {
		copy(out[8+i*8:], r[i][:])
	}
	return out, nil
}

// AESKeyUnwrap reverses AESKeyWrap.
func AESKeyUnwrap(kek, wrapped []byte) ([]byte, error) {
	const op = "AESKeyUnwrap"
	if len(wrapped) < 16 || len(wrapped)%8 != 0 {
		return nil, &Error{Code: openpgp.ErrBadFormat, Op: op}
	}
	block, err := aes.NewCipher(kek)
	if err != nil {
		return nil, &Error{Code: openpgp.ErrGeneric, Op: op, Err: err}
	}
	n := len(wrapped)/8 - 1
	var a [8]byte
	copy(a[:], wrapped[:8])
	r := make([][8]byte, n)
	for i := range r {
		copy(r[i][:], wrapped[8+i*8:8+i*8+8])
	}
	buf := make([]byte, 16)
	for j := 5; j >= 0; j-- {
		for i := n; i >= 1; i-- {
			t := uint64(n*j + i)
			var tb [8]byte
			tb[7] = byte(t)
			tb[6] = byte(t >> 8)
			tb[5] = byte(t >> 16)
			tb[4] = byte(t >> 24)
			var abuf [8]byte
			for k := 0; k < 8; k++ {
				abuf[k] = a[k] ^ tb[k]
			}
			copy(buf[:8], abuf[:])
			copy(buf[8:], r[i-1][:])
			block.Decrypt(buf, buf)
			copy(a[:], buf[:8])
			copy(r[i-1][:], buf[8:])
		}
	}
	for _, b := range a {
		if b != 0xA6 {
			return nil, &Error{Code: openpgp.ErrMACInvalid, Op: op}
		}
	}
	out := make([]byte, 0, n*8)
	for i := range r {
		out = append(out, r[i][:]...)
	}
	return out, nil
}
