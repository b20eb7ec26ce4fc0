package keymodel

import (
	"math/big"
	"testing"

	"github.com/pgpkit/pgpkit/openpgp"
)

func testRSAPublic() openpgp.PublicKey {
	return openpgp.PublicKey{
		Version:   4,
		Created:   1700000000,
		Algorithm: openpgp.PubKeyRSA,
		Params:    []*big.Int{big.NewInt(1009), big.NewInt(65537)},
	}
}

func TestGripIgnoresVersionAndTimestamp(t *testing.T) {
	a := testRSAPublic()
	b := testRSAPublic()
	b.Created = 1800000000
	b.Version = 3
	if ComputeGrip(a) != ComputeGrip(b) {
		t.Fatal("grip must not depend on version or creation time")
	}
}

func TestGripDiffersByMaterial(t *testing.T) {
	a := testRSAPublic()
	b := testRSAPublic()
	b.Params[1] = big.NewInt(65539)
	if ComputeGrip(a) == ComputeGrip(b) {
		t.Fatal("grip must depend on public material")
	}
}

func TestCollectionMergeUnionsUIDsAndKeepsSecret(t *testing.T) {
	pub := testRSAPublic()
	k1 := &Key{Public: &pub, PrimaryUID: -1}
	k1.AddUserID([]byte("alice <alice@example.com>"))

	sk := openpgp.SecretKey{Public: pub, Params: []*big.Int{big.NewInt(7), big.NewInt(11), big.NewInt(13), big.NewInt(17)}}
	k2 := &Key{Public: &sk.Public, Secret: &sk, PrimaryUID: -1}
	k2.AddUserID([]byte("alice (work) <alice@work.example.com>"))

	c := NewCollection()
	c.Insert(k1)
	merged := c.Insert(k2)

	if merged.Secret == nil {
		t.Fatal("merge must retain the secret half once seen")
	}
	if len(merged.UIDs) != 2 {
		t.Fatalf("expected 2 unioned UIDs, got %d", len(merged.UIDs))
	}
}

func TestByUserIDLiteralAndSuffix(t *testing.T) {
	pub := testRSAPublic()
	k := &Key{Public: &pub, PrimaryUID: -1}
	k.AddUserID([]byte("bob <bob@example.com>"))

	c := NewCollection()
	c.Insert(k)

	if got := c.ByUserIDLiteral("bob <bob@example.com>"); len(got) != 1 {
		t.Fatalf("expected 1 match by literal, got %d", len(got))
	}
	id := pub.KeyID()
	suffix := string(id[len(id)-2:])
	_ = suffix // keyid suffix matching exercised via hex below
	if got := c.ByKeyIDSuffix(hexSuffix(id)); len(got) != 1 {
		t.Fatalf("expected 1 match by keyid suffix, got %d", len(got))
	}
}

func hexSuffix(id []byte) string {
	const hexdigits = "0123456789abcdef"
	b := id[len(id)-1]
	return string([]byte{hexdigits[b>>4], hexdigits[b&0xF]})
}
