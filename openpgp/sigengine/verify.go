package sigengine

import (
	"bytes"
	"crypto/dsa" //nolint:staticcheck
	"crypto/ecdsa"
	"crypto/rsa"
	"hash"

	"golang.org/x/crypto/ed25519"

	"github.com/pgpkit/pgpkit/openpgp"
	"github.com/pgpkit/pgpkit/openpgp/oracle"
)

// Verifier bundles the public material needed to verify a signature.
type Verifier struct {
	Public  openpgp.PublicKey
	RSA     *rsa.PublicKey
	DSA     *dsa.PublicKey
	ECDSA   *ecdsa.PublicKey
	Ed25519 ed25519.PublicKey
}

// Verify checks sig's cryptographic validity (spec.md 4.G "Signature
// validation policy") against preimage: issuer match is the caller's
// responsibility (it has the key lookup context); this checks the
// 16-bit preview (the first two digest octets), the algorithmic signature, and unknown-critical
// hashed subpackets.
func Verify(v Verifier, sig openpgp.Signature, preimage func(h hash.Hash)) error {
	const op = "sigengine.Verify"
	if sig.UnknownCriticalHashed() {
		return &openpgp.Error{Code: openpgp.ErrSignatureInvalid, Op: op}
	}
	digest, err := DigestFor(sig, preimage)
	if err != nil {
		return err
	}
	if digest[0] != sig.HashPreview[0] || digest[1] != sig.HashPreview[1] {
		return &openpgp.Error{Code: openpgp.ErrSignatureInvalid, Op: op}
	}

	switch sig.PubAlgo {
	case openpgp.PubKeyRSA, openpgp.PubKeyRSASignOnly:
		if sig.Sig == nil {
			return &openpgp.Error{Code: openpgp.ErrSignatureInvalid, Op: op}
		}
		if err := oracle.RSAVerifyPKCS1v15(v.RSA, sig.HashAlgo, digest, sig.Sig.Bytes()); err != nil {
			return err
		}
	case openpgp.PubKeyDSA:
		if err := oracle.DSAVerify(v.DSA, reducedForGroupOrder(digest, v.DSA.Q.BitLen()).Bytes(), sig.R, sig.S); err != nil {
			return err
		}
	case openpgp.PubKeyECDSA:
		bitlen := v.ECDSA.Curve.Params().N.BitLen()
		if err := oracle.ECDSAVerify(v.ECDSA, reducedForGroupOrder(digest, bitlen).Bytes(), sig.R, sig.S); err != nil {
			return err
		}
	case openpgp.PubKeyEdDSA:
		if err := oracle.EdDSAVerify(v.Ed25519, digest, sig.EdDSASig); err != nil {
			return err
		}
	default:
		return &openpgp.Error{Code: openpgp.ErrNotSupported, Op: op}
	}
	return nil
}

// VerifyCertification verifies sign_certification's output.
func VerifyCertification(v Verifier, sig openpgp.Signature, primary openpgp.PublicKey, uid []byte) error {
	return Verify(v, sig, func(h hash.Hash) {
		hashKey(h, primary)
		hashUserID(h, uid)
	})
}

// VerifyBinding verifies sign_binding's output.
func VerifyBinding(v Verifier, sig openpgp.Signature, primary, subkey openpgp.PublicKey) error {
	return Verify(v, sig, func(h hash.Hash) {
		hashKey(h, primary)
		hashKey(h, subkey)
	})
}

// VerifyDirect verifies sign_direct's output.
func VerifyDirect(v Verifier, sig openpgp.Signature, key openpgp.PublicKey) error {
	return Verify(v, sig, func(h hash.Hash) {
		hashKey(h, key)
	})
}

// VerifyBytes verifies sign_data's output.
func VerifyBytes(v Verifier, sig openpgp.Signature, data []byte) error {
	return Verify(v, sig, func(h hash.Hash) {
		h.Write(data)
	})
}

// IssuerMatches reports whether sig names keyID as its issuer, spec.md
// 4.G "the referenced issuer keyid matches the signer key".
func IssuerMatches(sig openpgp.Signature, keyID []byte) bool {
	if len(sig.Issuer) == 0 {
		return false
	}
	n := len(sig.Issuer)
	if n > len(keyID) {
		n = len(keyID)
	}
	return bytes.Equal(sig.Issuer[len(sig.Issuer)-n:], keyID[len(keyID)-n:])
}

// ValidForTrust additionally requires (spec.md 4.G): not expired, signer
// key not revoked/expired at verification time, and (for subkey-binding
// signatures over a sign-capable subkey) a verified embedded primary-key-
// binding signature.
func ValidForTrust(sig openpgp.Signature, now int64, signerRevoked, signerExpired bool, subkeySignCapable bool, embeddedOK bool) bool {
	if sig.Created > now {
		return false // not-yet-valid; reported separately by the trust view
	}
	if sig.Expiration != 0 && now > sig.Created+sig.Expiration {
		return false
	}
	if signerRevoked || signerExpired {
		return false
	}
	if sig.Type == openpgp.SigSubkeyBinding && subkeySignCapable && !embeddedOK {
		return false
	}
	return true
}
