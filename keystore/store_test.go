package keystore

import (
	"math/big"
	"testing"

	"github.com/pgpkit/pgpkit/openpgp"
	"github.com/pgpkit/pgpkit/openpgp/keymodel"
)

func testKey() *keymodel.Key {
	pub := openpgp.PublicKey{
		Version:   4,
		Created:   1700000000,
		Algorithm: openpgp.PubKeyRSA,
		Params:    []*big.Int{big.NewInt(1009), big.NewInt(65537)},
	}
	k := &keymodel.Key{Public: &pub, PrimaryUID: -1}
	k.AddUserID([]byte("carol <carol@example.com>"))
	return k
}

func TestDetectFormat(t *testing.T) {
	cases := []struct {
		name string
		buf  []byte
		want Format
	}{
		{"sexpr", []byte("(private-key (rsa))"), FormatSExpr},
		{"armored", []byte("-----BEGIN PGP PUBLIC KEY BLOCK-----\n"), FormatTransferableArmored},
		{"raw", []byte{0xC0 | 6, 0x00}, FormatTransferable},
		{"keybox", append([]byte{0, 0, 0, 13, blobTypeHeader, 1, 0, 0}, []byte(keyboxMagic+"\x00")...), FormatKeybox},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := DetectFormat(c.buf); got != c.want {
				t.Fatalf("DetectFormat(%q) = %v, want %v", c.name, got, c.want)
			}
		})
	}
}

func TestTransferableRoundTrip(t *testing.T) {
	k := testKey()
	wire := WriteTransferable([]*keymodel.Key{k})
	keys, err := ReadTransferable(wire)
	if err != nil {
		t.Fatalf("ReadTransferable: %v", err)
	}
	if len(keys) != 1 {
		t.Fatalf("expected 1 key, got %d", len(keys))
	}
	if keys[0].Grip() != k.Grip() {
		t.Fatal("grip mismatch after round-trip")
	}
	if len(keys[0].UIDs) != 1 {
		t.Fatalf("expected 1 uid, got %d", len(keys[0].UIDs))
	}
}

func TestKeyboxRoundTrip(t *testing.T) {
	k := testKey()
	blob := WriteKeybox([]*keymodel.Key{k})
	keys, err := ReadKeybox(blob)
	if err != nil {
		t.Fatalf("ReadKeybox: %v", err)
	}
	if len(keys) != 1 {
		t.Fatalf("expected 1 key, got %d", len(keys))
	}
	if keys[0].Grip() != k.Grip() {
		t.Fatal("grip mismatch after keybox round-trip")
	}
}

func TestSExprProtectedRoundTrip(t *testing.T) {
	pub := SExprFields{{Name: "n", Value: []byte{0x01, 0x02}}, {Name: "e", Value: []byte{0x01, 0x00, 0x01}}}
	params := SExprFields{{Name: "d", Value: []byte{0x0A, 0x0B, 0x0C}}}
	password := []byte("correct horse battery staple")

	buf, err := EncodeProtected(openpgp.PubKeyRSA, pub, params, password, "openpgp-s2k3-sha1-aes256-cbc")
	if err != nil {
		t.Fatalf("EncodeProtected: %v", err)
	}
	parsed, err := ParseSExpr(buf)
	if err != nil {
		t.Fatalf("ParseSExpr: %v", err)
	}
	if !parsed.Key().Protected {
		t.Fatal("expected parsed key to report Protected before Unlock")
	}
	if err := parsed.Unlock(password); err != nil {
		t.Fatalf("Unlock with correct password: %v", err)
	}
	if string(parsed.Key().Params.Get("d")) != string(params.Get("d")) {
		t.Fatal("recovered secret parameter does not match original")
	}
}

func TestSExprUnlockWrongPasswordFails(t *testing.T) {
	pub := SExprFields{{Name: "n", Value: []byte{0x01, 0x02}}}
	params := SExprFields{{Name: "d", Value: []byte{0x0A}}}
	buf, err := EncodeProtected(openpgp.PubKeyRSA, pub, params, []byte("right"), "openpgp-s2k3-ocb-aes")
	if err != nil {
		t.Fatalf("EncodeProtected: %v", err)
	}
	parsed, err := ParseSExpr(buf)
	if err != nil {
		t.Fatalf("ParseSExpr: %v", err)
	}
	if err := parsed.Unlock([]byte("wrong")); err == nil {
		t.Fatal("expected Unlock with wrong password to fail")
	}
}

// TestSExprProtectedRoundTripMultiField guards the ordering fix itself:
// with more than one public field, a map-based implementation would
// occasionally compute the hash preimage in the wrong order and fail
// Unlock nondeterministically. Field order here must round-trip exactly.
func TestSExprProtectedRoundTripMultiField(t *testing.T) {
	pub := SExprFields{
		{Name: "p", Value: []byte{0x01}},
		{Name: "q", Value: []byte{0x02}},
		{Name: "g", Value: []byte{0x03}},
		{Name: "y", Value: []byte{0x04}},
	}
	params := SExprFields{{Name: "x", Value: []byte{0x0A, 0x0B}}}
	password := []byte("hunter2")

	for i := 0; i < 20; i++ {
		buf, err := EncodeProtected(openpgp.PubKeyDSA, pub, params, password, "openpgp-s2k3-sha1-aes256-cbc")
		if err != nil {
			t.Fatalf("EncodeProtected: %v", err)
		}
		parsed, err := ParseSExpr(buf)
		if err != nil {
			t.Fatalf("ParseSExpr: %v", err)
		}
		if err := parsed.Unlock(password); err != nil {
			t.Fatalf("Unlock (iteration %d): %v", i, err)
		}
		if string(parsed.Key().Params.Get("x")) != string(params.Get("x")) {
			t.Fatalf("recovered secret parameter mismatch on iteration %d", i)
		}
	}
}
