package oracle

import (
	"crypto/dsa" //nolint:staticcheck // RFC 4880 mandates DSA support
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"io"
	"math/big"

	"golang.org/x/crypto/ed25519"
	"golang.org/x/crypto/openpgp/elgamal" //nolint:staticcheck // primitive oracle use only, see SPEC_FULL.md

	"github.com/pgpkit/pgpkit/openpgp"
)

// EllipticCurve maps an OpenPGP Curve identifier to a stdlib elliptic.Curve.
// Curve25519/Ed25519 are handled separately (they are not Weierstrass
// curves); SM2 P-256 shares NIST P-256's field but is not wired to a
// dedicated SM2 signer (see DESIGN.md).
func EllipticCurve(c openpgp.Curve) (elliptic.Curve, error) {
	switch c {
	case openpgp.CurveP256:
		return elliptic.P256(), nil
	case openpgp.CurveP384:
		return elliptic.P384(), nil
	case openpgp.CurveP521:
		return elliptic.P521(), nil
	default:
		return nil, &Error{Code: openpgp.ErrNotSupported, Op: "EllipticCurve"}
	}
}

// RSASignPKCS1v15 signs digest (already hashed with hashAlgo) under priv.
func RSASignPKCS1v15(priv *rsa.PrivateKey, hashAlgo openpgp.HashAlgorithm, digest []byte) ([]byte, error) {
	ch, err := CryptoHash(hashAlgo)
	if err != nil {
		return nil, err
	}
	return rsa.SignPKCS1v15(rand.Reader, priv, ch, digest)
}

// RSAVerifyPKCS1v15 verifies sig over digest under pub.
func RSAVerifyPKCS1v15(pub *rsa.PublicKey, hashAlgo openpgp.HashAlgorithm, digest, sig []byte) error {
	ch, err := CryptoHash(hashAlgo)
	if err != nil {
		return err
	}
	if err := rsa.VerifyPKCS1v15(pub, ch, digest, sig); err != nil {
		return &Error{Code: openpgp.ErrSignatureInvalid, Op: "RSAVerifyPKCS1v15", Err: err}
	}
	return nil
}

// RSAEncryptPKCS1v15 / RSADecryptPKCS1v15 wrap the PK-ESK payload cipher
// (spec.md 4.H): PKCS#1 v1.5 over (symAlg||keyOctets||BE16(checksum)).
func RSAEncryptPKCS1v15(pub *rsa.PublicKey, plaintext []byte) ([]byte, error) {
	return rsa.EncryptPKCS1v15(rand.Reader, pub, plaintext)
}

func RSADecryptPKCS1v15(priv *rsa.PrivateKey, ciphertext []byte) ([]byte, error) {
	pt, err := rsa.DecryptPKCS1v15(rand.Reader, priv, ciphertext)
	if err != nil {
		return nil, &Error{Code: openpgp.ErrDecryptFailed, Op: "RSADecryptPKCS1v15", Err: err}
	}
	return pt, nil
}

// DSASign / DSAVerify operate on a hash already truncated to the group
// order's bit length per RFC 4880bis 5.2.2.
func DSASign(priv *dsa.PrivateKey, digest []byte) (r, s *big.Int, err error) {
	r, s, err = dsa.Sign(rand.Reader, priv, digest)
	if err != nil {
		return nil, nil, &Error{Code: openpgp.ErrGeneric, Op: "DSASign", Err: err}
	}
	return r, s, nil
}

func DSAVerify(pub *dsa.PublicKey, digest []byte, r, s *big.Int) error {
	if r.Sign() <= 0 || s.Sign() <= 0 || r.Cmp(pub.Q) >= 0 || s.Cmp(pub.Q) >= 0 {
		return &Error{Code: openpgp.ErrSignatureInvalid, Op: "DSAVerify"}
	}
	if !dsa.Verify(pub, digest, r, s) {
		return &Error{Code: openpgp.ErrSignatureInvalid, Op: "DSAVerify"}
	}
	return nil
}

// ECDSASign / ECDSAVerify mirror DSASign/DSAVerify for the NIST curves.
func ECDSASign(priv *ecdsa.PrivateKey, digest []byte) (r, s *big.Int, err error) {
	r, s, err = ecdsa.Sign(rand.Reader, priv, digest)
	if err != nil {
		return nil, nil, &Error{Code: openpgp.ErrGeneric, Op: "ECDSASign", Err: err}
	}
	return r, s, nil
}

func ECDSAVerify(pub *ecdsa.PublicKey, digest []byte, r, s *big.Int) error {
	if r.Sign() <= 0 || s.Sign() <= 0 || r.Cmp(pub.Curve.Params().N) >= 0 || s.Cmp(pub.Curve.Params().N) >= 0 {
		return &Error{Code: openpgp.ErrSignatureInvalid, Op: "ECDSAVerify"}
	}
	if !ecdsa.Verify(pub, digest, r, s) {
		return &Error{Code: openpgp.ErrSignatureInvalid, Op: "ECDSAVerify"}
	}
	return nil
}

// EdDSASign / EdDSAVerify sign the hash directly, never the message, per
// spec.md 4.G "EdDSA signs the hash directly".
func EdDSASign(priv ed25519.PrivateKey, digest []byte) []byte {
	return ed25519.Sign(priv, digest)
}

func EdDSAVerify(pub ed25519.PublicKey, digest, sig []byte) error {
	if !ed25519.Verify(pub, digest, sig) {
		return &Error{Code: openpgp.ErrSignatureInvalid, Op: "EdDSAVerify"}
	}
	return nil
}

// ElGamalEncrypt / ElGamalDecrypt back the legacy ElGamal PK-ESK encoding,
// using golang.org/x/crypto/openpgp/elgamal strictly as a bignum/PK
// primitive (spec.md 4.A), never its packet layer.
func ElGamalEncrypt(pub *elgamal.PublicKey, plaintext []byte) (c1, c2 *big.Int, err error) {
	c1, c2, err = elgamal.Encrypt(rand.Reader, pub, plaintext)
	if err != nil {
		return nil, nil, &Error{Code: openpgp.ErrGeneric, Op: "ElGamalEncrypt", Err: err}
	}
	return c1, c2, nil
}

func ElGamalDecrypt(priv *elgamal.PrivateKey, c1, c2 *big.Int) ([]byte, error) {
	pt, err := elgamal.Decrypt(priv, c1, c2)
	if err != nil {
		return nil, &Error{Code: openpgp.ErrDecryptFailed, Op: "ElGamalDecrypt", Err: err}
	}
	return pt, nil
}

// GenerateRSA / GenerateDSA / GenerateECDSA / GenerateEd25519 implement the
// key-pair-generation half of the oracle surface (spec.md 4.A).
func GenerateRSA(bits int) (*rsa.PrivateKey, error) {
	priv, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, &Error{Code: openpgp.ErrKeyGenerationFailure, Op: "GenerateRSA", Err: err}
	}
	return priv, nil
}

// GenerateDSA generates a DSA key pair at the given parameter size
// (L-bits for P, matching N-bits for Q per dsa.ParameterSizes).
func GenerateDSA(sizes dsa.ParameterSizes) (*dsa.PrivateKey, error) {
	var params dsa.Parameters
	if err := dsa.GenerateParameters(&params, rand.Reader, sizes); err != nil {
		return nil, &Error{Code: openpgp.ErrKeyGenerationFailure, Op: "GenerateDSA", Err: err}
	}
	priv := &dsa.PrivateKey{PublicKey: dsa.PublicKey{Parameters: params}}
	if err := dsa.GenerateKey(priv, rand.Reader); err != nil {
		return nil, &Error{Code: openpgp.ErrKeyGenerationFailure, Op: "GenerateDSA", Err: err}
	}
	return priv, nil
}

func GenerateECDSA(curve elliptic.Curve) (*ecdsa.PrivateKey, error) {
	priv, err := ecdsa.GenerateKey(curve, rand.Reader)
	if err != nil {
		return nil, &Error{Code: openpgp.ErrKeyGenerationFailure, Op: "GenerateECDSA", Err: err}
	}
	return priv, nil
}

func GenerateEd25519() (ed25519.PublicKey, ed25519.PrivateKey, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, &Error{Code: openpgp.ErrKeyGenerationFailure, Op: "GenerateEd25519", Err: err}
	}
	return pub, priv, nil
}

// SecureReader is crypto/rand.Reader. Nothing in this module reads it:
// DefaultRNG and the key generators use crypto/rand.Reader directly, so
// replacing SecureReader does not change their output.
var SecureReader io.Reader = rand.Reader
