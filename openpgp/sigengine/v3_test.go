package sigengine

import (
	"testing"

	"golang.org/x/crypto/ed25519"

	"github.com/pgpkit/pgpkit/openpgp"
)

// TestV3SigningRejected proves the Open Question resolution in SPEC_FULL.md:
// this implementation follows the newer (C++/rnp2 FFI) contract exclusively
// and refuses to produce any new signature, certification, or binding under
// a V3 key.
func TestV3SigningRejected(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate ed25519 key: %v", err)
	}
	v3Public := openpgp.PublicKey{
		Version:   3,
		Created:   1700000000,
		Algorithm: openpgp.PubKeyEdDSA,
		Curve:     openpgp.CurveEd25519,
		Point:     append([]byte{0x40}, pub...),
	}
	signer := Signer{Public: v3Public, Ed25519: priv}

	sig := Build(openpgp.PubKeyEdDSA, NewRequest{
		Type:     openpgp.SigBinary,
		HashAlgo: openpgp.HashSHA256,
		Created:  v3Public.Created,
		// KeyID of a V3 key reads its RSA modulus, which this EdDSA fixture
		// does not have; the issuer value plays no part in the refusal.
		Issuer:   make([]byte, 8),
	})

	if _, err := SignBytes(signer, sig, []byte("hello")); openpgp.AsCode(err) != openpgp.ErrBadParameters {
		t.Fatalf("SignBytes over a V3 signer: want ErrBadParameters, got %v", err)
	}
	if _, err := SignDirect(signer, sig, v3Public); openpgp.AsCode(err) != openpgp.ErrBadParameters {
		t.Fatalf("SignDirect over a V3 signer: want ErrBadParameters, got %v", err)
	}
	if _, err := SignCertification(signer, sig, v3Public, []byte("alice <alice@example.com>")); openpgp.AsCode(err) != openpgp.ErrBadParameters {
		t.Fatalf("SignCertification over a V3 signer: want ErrBadParameters, got %v", err)
	}
	if _, err := SignBinding(signer, sig, v3Public, v3Public); openpgp.AsCode(err) != openpgp.ErrBadParameters {
		t.Fatalf("SignBinding over a V3 signer: want ErrBadParameters, got %v", err)
	}
}

// TestV4SigningAccepted is the control: the same key material at V4
// produces a signature without error, isolating the V3 check from any
// other misconfiguration in the fixture above.
func TestV4SigningAccepted(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate ed25519 key: %v", err)
	}
	v4Public := openpgp.PublicKey{
		Version:   4,
		Created:   1700000000,
		Algorithm: openpgp.PubKeyEdDSA,
		Curve:     openpgp.CurveEd25519,
		Point:     append([]byte{0x40}, pub...),
	}
	signer := Signer{Public: v4Public, Ed25519: priv}

	sig := Build(openpgp.PubKeyEdDSA, NewRequest{
		Type:     openpgp.SigBinary,
		HashAlgo: openpgp.HashSHA256,
		Created:  v4Public.Created,
		Issuer:   v4Public.KeyID(),
	})
	if _, err := SignBytes(signer, sig, []byte("hello")); err != nil {
		t.Fatalf("SignBytes over a V4 signer: %v", err)
	}
}
