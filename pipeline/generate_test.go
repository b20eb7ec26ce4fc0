package pipeline

import (
	"bytes"
	"testing"

	"github.com/pgpkit/pgpkit/openpgp"
)

func repeatSeed(b byte) []byte {
	return bytes.Repeat([]byte{b}, 32)
}

func TestGenerateKeyFromSeedIsDeterministic(t *testing.T) {
	req := GenerateRequest{
		UserID:      []byte("alice <alice@example.com>"),
		PrimaryAlgo: openpgp.PubKeyEdDSA,
		Created:     1700000000,
	}
	seed := repeatSeed(0x42)

	a, err := GenerateKeyFromSeed(req, seed)
	if err != nil {
		t.Fatalf("GenerateKeyFromSeed: %v", err)
	}
	b, err := GenerateKeyFromSeed(req, seed)
	if err != nil {
		t.Fatalf("GenerateKeyFromSeed: %v", err)
	}
	if !bytes.Equal(a.Public.Fingerprint(), b.Public.Fingerprint()) {
		t.Fatal("the same seed must produce the same key")
	}

	c, err := GenerateKeyFromSeed(req, repeatSeed(0x43))
	if err != nil {
		t.Fatalf("GenerateKeyFromSeed: %v", err)
	}
	if bytes.Equal(a.Public.Fingerprint(), c.Public.Fingerprint()) {
		t.Fatal("different seeds must produce different keys")
	}
}

func TestGenerateKeyFromSeedRejectsNonEdDSA(t *testing.T) {
	req := GenerateRequest{UserID: []byte("alice"), PrimaryAlgo: openpgp.PubKeyRSA}
	if _, err := GenerateKeyFromSeed(req, repeatSeed(1)); openpgp.AsCode(err) != openpgp.ErrNotSupported {
		t.Fatalf("want ErrNotSupported for a non-EdDSA primary algo, got %v", err)
	}
}

func TestGenerateKeyFromSeedRejectsWrongSeedLength(t *testing.T) {
	req := GenerateRequest{UserID: []byte("alice"), PrimaryAlgo: openpgp.PubKeyEdDSA}
	if _, err := GenerateKeyFromSeed(req, []byte{1, 2, 3}); openpgp.AsCode(err) != openpgp.ErrBadParameters {
		t.Fatalf("want ErrBadParameters for a short seed, got %v", err)
	}
}

func TestAddSubkeyFromSeedIsDeterministicAndBinds(t *testing.T) {
	primary, err := GenerateKeyFromSeed(GenerateRequest{
		UserID:      []byte("alice <alice@example.com>"),
		PrimaryAlgo: openpgp.PubKeyEdDSA,
		Created:     1700000000,
	}, repeatSeed(0x11))
	if err != nil {
		t.Fatalf("GenerateKeyFromSeed: %v", err)
	}

	subSeed := repeatSeed(0x22)
	sub1, err := AddSubkeyFromSeed(primary, subSeed, 1700000000)
	if err != nil {
		t.Fatalf("AddSubkeyFromSeed: %v", err)
	}
	if sub1.PrimaryGrip != primary.Grip() {
		t.Fatal("subkey must carry the primary's grip")
	}
	if len(primary.SubkeyGrips) != 1 || primary.SubkeyGrips[0] != sub1.Grip() {
		t.Fatal("primary must record the new subkey's grip")
	}

	primary2, err := GenerateKeyFromSeed(GenerateRequest{
		UserID:      []byte("alice <alice@example.com>"),
		PrimaryAlgo: openpgp.PubKeyEdDSA,
		Created:     1700000000,
	}, repeatSeed(0x11))
	if err != nil {
		t.Fatalf("GenerateKeyFromSeed: %v", err)
	}
	sub2, err := AddSubkeyFromSeed(primary2, subSeed, 1700000000)
	if err != nil {
		t.Fatalf("AddSubkeyFromSeed: %v", err)
	}
	if !bytes.Equal(sub1.Public.Fingerprint(), sub2.Public.Fingerprint()) {
		t.Fatal("the same seed must produce the same subkey")
	}
}

func TestAddSubkeyFromSeedRejectsLockedPrimary(t *testing.T) {
	primary, err := GenerateKeyFromSeed(GenerateRequest{
		UserID:      []byte("alice"),
		PrimaryAlgo: openpgp.PubKeyEdDSA,
		Created:     1700000000,
	}, repeatSeed(0x33))
	if err != nil {
		t.Fatalf("GenerateKeyFromSeed: %v", err)
	}
	primary.Secret.Locked = true
	if _, err := AddSubkeyFromSeed(primary, repeatSeed(0x44), 1700000000); openpgp.AsCode(err) != openpgp.ErrBadState {
		t.Fatalf("want ErrBadState for a locked primary, got %v", err)
	}
}
