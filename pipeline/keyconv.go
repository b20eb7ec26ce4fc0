// Package pipeline composes the packet stream engine, packet parser, key
// model, secret protection, signature engine, and session-key engine into
// sign/verify/encrypt/decrypt operations with provider callbacks, spec.md
// 4.I, generalizing the teacher's direct call chain in passphrase2pgp.go
// (parse flags -> load/generate key -> Sign/Certify/Bind -> write) into a
// reusable orchestrator.
package pipeline

import (
	"crypto/dsa" //nolint:staticcheck // RFC 4880 mandates DSA support
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"math/big"

	"golang.org/x/crypto/ed25519"

	"github.com/pgpkit/pgpkit/openpgp"
	"github.com/pgpkit/pgpkit/openpgp/oracle"
	"github.com/pgpkit/pgpkit/openpgp/sigengine"
)

// signerFromSecret builds a sigengine.Signer from an unlocked SecretKey's
// plaintext material, the conversion the pipeline performs right after
// protect.Unlock succeeds.
func signerFromSecret(sk *openpgp.SecretKey) (sigengine.Signer, error) {
	const op = "pipeline.signerFromSecret"
	if sk.Locked {
		return sigengine.Signer{}, &openpgp.Error{Code: openpgp.ErrBadState, Op: op}
	}
	s := sigengine.Signer{Public: sk.Public}
	switch sk.Public.Algorithm {
	case openpgp.PubKeyRSA, openpgp.PubKeyRSASignOnly:
		if len(sk.Params) < 3 || len(sk.Public.Params) < 2 {
			return sigengine.Signer{}, &openpgp.Error{Code: openpgp.ErrBadFormat, Op: op}
		}
		s.RSA = &rsa.PrivateKey{
			PublicKey: rsa.PublicKey{N: sk.Public.Params[0], E: int(sk.Public.Params[1].Int64())},
			D:         sk.Params[0],
			Primes:    []*big.Int{sk.Params[1], sk.Params[2]},
		}
		s.RSA.Precompute()
	case openpgp.PubKeyDSA:
		if len(sk.Params) < 1 || len(sk.Public.Params) < 4 {
			return sigengine.Signer{}, &openpgp.Error{Code: openpgp.ErrBadFormat, Op: op}
		}
		s.DSA = &dsa.PrivateKey{
			PublicKey: dsa.PublicKey{
				Parameters: dsa.Parameters{P: sk.Public.Params[0], Q: sk.Public.Params[1], G: sk.Public.Params[2]},
				Y:          sk.Public.Params[3],
			},
			X: sk.Params[0],
		}
	case openpgp.PubKeyECDSA:
		curve, err := oracle.EllipticCurve(sk.Public.Curve)
		if err != nil {
			return sigengine.Signer{}, err
		}
		x, y := elliptic.Unmarshal(curve, sk.Public.Point)
		if x == nil {
			return sigengine.Signer{}, &openpgp.Error{Code: openpgp.ErrBadFormat, Op: op}
		}
		s.ECDSA = &ecdsa.PrivateKey{
			PublicKey: ecdsa.PublicKey{Curve: curve, X: x, Y: y},
			D:         new(big.Int).SetBytes(sk.Scalar),
		}
	case openpgp.PubKeyEdDSA:
		s.Ed25519 = ed25519.NewKeyFromSeed(sk.Scalar)
	default:
		return sigengine.Signer{}, &openpgp.Error{Code: openpgp.ErrNotSupported, Op: op}
	}
	return s, nil
}

// verifierFromPublic builds a sigengine.Verifier from pub's public
// material alone.
func verifierFromPublic(pub openpgp.PublicKey) (sigengine.Verifier, error) {
	const op = "pipeline.verifierFromPublic"
	v := sigengine.Verifier{Public: pub}
	switch pub.Algorithm {
	case openpgp.PubKeyRSA, openpgp.PubKeyRSASignOnly:
		if len(pub.Params) < 2 {
			return sigengine.Verifier{}, &openpgp.Error{Code: openpgp.ErrBadFormat, Op: op}
		}
		v.RSA = &rsa.PublicKey{N: pub.Params[0], E: int(pub.Params[1].Int64())}
	case openpgp.PubKeyDSA:
		if len(pub.Params) < 4 {
			return sigengine.Verifier{}, &openpgp.Error{Code: openpgp.ErrBadFormat, Op: op}
		}
		v.DSA = &dsa.PublicKey{
			Parameters: dsa.Parameters{P: pub.Params[0], Q: pub.Params[1], G: pub.Params[2]},
			Y:          pub.Params[3],
		}
	case openpgp.PubKeyECDSA:
		curve, err := oracle.EllipticCurve(pub.Curve)
		if err != nil {
			return sigengine.Verifier{}, err
		}
		x, y := elliptic.Unmarshal(curve, pub.Point)
		if x == nil {
			return sigengine.Verifier{}, &openpgp.Error{Code: openpgp.ErrBadFormat, Op: op}
		}
		v.ECDSA = &ecdsa.PublicKey{Curve: curve, X: x, Y: y}
	case openpgp.PubKeyEdDSA:
		if len(pub.Point) < 1 {
			return sigengine.Verifier{}, &openpgp.Error{Code: openpgp.ErrBadFormat, Op: op}
		}
		v.Ed25519 = ed25519.PublicKey(pub.Point[1:]) // strip 0x40 native-point prefix
	default:
		return sigengine.Verifier{}, &openpgp.Error{Code: openpgp.ErrNotSupported, Op: op}
	}
	return v, nil
}
