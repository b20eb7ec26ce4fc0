package protect

import (
	"math/big"
	"testing"

	"github.com/pgpkit/pgpkit/openpgp"
)

func testEdDSASecret() *openpgp.SecretKey {
	return &openpgp.SecretKey{
		Public: openpgp.PublicKey{
			Version: 4, Created: 1700000000, Algorithm: openpgp.PubKeyEdDSA,
			Curve: openpgp.CurveEd25519,
		},
		Scalar: []byte{
			1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16,
			17, 18, 19, 20, 21, 22, 23, 24, 25, 26, 27, 28, 29, 30, 31, 32,
		},
	}
}

func TestProtectUnlockRoundTrip(t *testing.T) {
	sk := testEdDSASecret()
	wantScalar := append([]byte(nil), sk.Scalar...)
	password := []byte("correct horse battery staple")

	if err := Protect(sk, password, nil, 0); err != nil {
		t.Fatalf("Protect: %v", err)
	}
	if !sk.Locked {
		t.Fatal("Protect must leave the key locked")
	}
	if sk.Scalar != nil {
		t.Fatal("Protect must clear the plaintext scalar")
	}

	if err := Unlock(sk, password); err != nil {
		t.Fatalf("Unlock with the correct password: %v", err)
	}
	if sk.Locked {
		t.Fatal("Unlock must clear Locked on success")
	}
	if string(sk.Scalar) != string(wantScalar) {
		t.Fatal("Unlock must recover the original plaintext material")
	}
}

func TestUnlockWrongPasswordFails(t *testing.T) {
	sk := testEdDSASecret()
	if err := Protect(sk, []byte("right password"), nil, 0); err != nil {
		t.Fatalf("Protect: %v", err)
	}
	if err := Unlock(sk, []byte("wrong password")); openpgp.AsCode(err) != openpgp.ErrBadPassword {
		t.Fatalf("want ErrBadPassword for a wrong password, got %v", err)
	}
	if !sk.Locked {
		t.Fatal("a failed Unlock must leave the key locked")
	}
}

func TestLockZeroisesPlaintextMaterial(t *testing.T) {
	sk := &openpgp.SecretKey{
		Public: openpgp.PublicKey{Version: 4, Algorithm: openpgp.PubKeyRSA,
			Params: []*big.Int{big.NewInt(3233), big.NewInt(65537)}},
		Params: []*big.Int{big.NewInt(2753), big.NewInt(61), big.NewInt(53), big.NewInt(38)},
	}
	password := []byte("hunter2")
	if err := Protect(sk, password, nil, 0); err != nil {
		t.Fatalf("Protect: %v", err)
	}
	if sk.Params != nil {
		t.Fatal("Protect must zero and drop the plaintext Params slice")
	}

	if err := Unlock(sk, password); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	plaintextParams := sk.Params
	if err := Lock(sk); err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if sk.Params != nil {
		t.Fatal("Lock must drop the plaintext Params slice")
	}
	for _, p := range plaintextParams {
		if p.Sign() != 0 {
			t.Fatal("Lock must zero every big.Int the key previously held in place")
		}
	}
}

func TestUnprotectStoresCleartext(t *testing.T) {
	sk := testEdDSASecret()
	password := []byte("hunter2")
	if err := Protect(sk, password, nil, 0); err != nil {
		t.Fatalf("Protect: %v", err)
	}
	if err := Unprotect(sk, password); err != nil {
		t.Fatalf("Unprotect: %v", err)
	}
	if sk.Locked || sk.S2KUsage != 0 || sk.Encrypted != nil {
		t.Fatal("Unprotect must leave the key unlocked and cleartext-encoded")
	}
}
