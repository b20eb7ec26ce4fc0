package pipeline

import (
	"bytes"
	"testing"

	"github.com/pgpkit/pgpkit/openpgp"
	"github.com/pgpkit/pgpkit/openpgp/keymodel"
	"github.com/pgpkit/pgpkit/openpgp/protect"
)

// collectionKeys resolves FindKey against every key (primary and subkeys)
// inserted into a Collection, the shape most CLI/test callers use.
type collectionKeys struct{ c *keymodel.Collection }

func (r collectionKeys) FindKey(op Op, keyID []byte) (*keymodel.Key, bool) {
	for _, k := range r.c.All() {
		if k.Public != nil && bytes.Equal(k.Public.KeyID(), keyID) {
			return k, true
		}
	}
	return nil, false
}

func generateTestIdentity(t *testing.T) (*keymodel.Key, *keymodel.Key, *keymodel.Collection) {
	t.Helper()
	primary, _, err := GenerateKey(GenerateRequest{
		UserID:      []byte("alice <alice@example.com>"),
		PrimaryAlgo: openpgp.PubKeyEdDSA,
		Created:     1700000000,
	})
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	sub, err := AddSubkey(primary, openpgp.PubKeyECDH, openpgp.CurveX25519, 0, 1700000000)
	if err != nil {
		t.Fatalf("AddSubkey: %v", err)
	}

	all := keymodel.NewCollection()
	all.Insert(primary)
	all.Insert(sub)
	return primary, sub, all
}

func TestGenerateSignVerifyRoundTrip(t *testing.T) {
	primary, _, all := generateTestIdentity(t)
	ctx := NewContext(StaticPassword(nil), collectionKeys{all})

	data := []byte("the ides of march")
	wire, err := Sign(ctx, all, SignOp{Signer: primary}, data)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	packets, err := openpgp.NewReader(wire).All()
	if err != nil {
		t.Fatalf("parsing signature packet: %v", err)
	}
	if len(packets) != 1 || packets[0].Tag != openpgp.TagSignature {
		t.Fatalf("expected a single signature packet, got %+v", packets)
	}
	sig, err := openpgp.ParseSignature(packets[0].Body)
	if err != nil {
		t.Fatalf("ParseSignature: %v", err)
	}

	res := VerifyWithCollection(all, data, sig)
	if res.Err != nil || !res.Valid {
		t.Fatalf("verification of a genuine signature failed: valid=%v err=%v", res.Valid, res.Err)
	}

	tampered := append([]byte(nil), data...)
	tampered[0] ^= 0xFF
	res = VerifyWithCollection(all, tampered, sig)
	if res.Valid || res.Err == nil {
		t.Fatal("verification must fail over tampered data")
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	_, _, all := generateTestIdentity(t)
	ctx := NewContext(StaticPassword(nil), collectionKeys{all})

	plaintext := []byte("the eagle lands at midnight")
	recipients := []*keymodel.Key{findPrimary(t, all)}

	message, err := Encrypt(ctx, all, EncryptOp{Recipients: recipients}, plaintext)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	got, err := Decrypt(ctx, all, message)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Fatalf("decrypted plaintext mismatch: got %q, want %q", got, plaintext)
	}
}

func TestVerifyCollectionBindings(t *testing.T) {
	_, sub, all := generateTestIdentity(t)

	if err := VerifyCollectionBindings(all); err != nil {
		t.Fatalf("genuine binding must self-verify: %v", err)
	}

	tampered := append([]byte(nil), sub.SubSigs[0].Sig.EdDSASig...)
	tampered[0] ^= 0xFF
	sub.SubSigs[0].Sig.EdDSASig = tampered
	if err := VerifyCollectionBindings(all); err == nil {
		t.Fatal("tampered binding signature must fail verification")
	}
}

func TestEncryptDecryptCompressionAlgorithms(t *testing.T) {
	_, _, all := generateTestIdentity(t)
	ctx := NewContext(StaticPassword(nil), collectionKeys{all})
	plaintext := []byte("the eagle lands at midnight")
	recipients := []*keymodel.Key{findPrimary(t, all)}

	for _, algo := range []openpgp.CompressionAlgorithm{
		openpgp.CompressionNone,
		openpgp.CompressionZIP,
		openpgp.CompressionZLIB,
	} {
		// Compression 0 (None) falls back to ctx.DefaultCompressor, so set
		// it too or the None case would run under the context default.
		ctx.DefaultCompressor = algo
		message, err := Encrypt(ctx, all, EncryptOp{Recipients: recipients, Compression: algo}, plaintext)
		if err != nil {
			t.Fatalf("Encrypt(compression=%d): %v", algo, err)
		}
		got, err := Decrypt(ctx, all, message)
		if err != nil {
			t.Fatalf("Decrypt(compression=%d): %v", algo, err)
		}
		if !bytes.Equal(got, plaintext) {
			t.Fatalf("compression=%d: decrypted plaintext mismatch: got %q, want %q", algo, got, plaintext)
		}
	}
}

// findPrimary returns the non-subkey entry in all; Encrypt resolves the
// newest encryption-capable subkey from it itself.
func findPrimary(t *testing.T, all *keymodel.Collection) *keymodel.Key {
	t.Helper()
	for _, k := range all.All() {
		if !k.IsSubkey {
			return k
		}
	}
	t.Fatal("no primary key in collection")
	return nil
}

func TestEncryptDecryptWithPasswordRecipient(t *testing.T) {
	all := keymodel.NewCollection()
	ctx := NewContext(StaticPassword([]byte("correct horse battery staple")), collectionKeys{all})

	plaintext := []byte("no public key needed here")
	message, err := Encrypt(ctx, all, EncryptOp{Passwords: [][]byte{[]byte("correct horse battery staple")}}, plaintext)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	got, err := Decrypt(ctx, all, message)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Fatalf("decrypted plaintext mismatch: got %q, want %q", got, plaintext)
	}
}

func TestSignRefusesWhenSecretLocked(t *testing.T) {
	primary, _, all := generateTestIdentity(t)
	if err := protect.Protect(primary.Secret, []byte("hunter2"), nil, 0); err != nil {
		t.Fatalf("Protect: %v", err)
	}

	ctx := NewContext(StaticPassword([]byte("wrong password")), collectionKeys{all})
	if _, err := Sign(ctx, all, SignOp{Signer: primary}, []byte("data")); err == nil {
		t.Fatal("Sign must fail when the password provider supplies the wrong password")
	}

	ctx2 := NewContext(StaticPassword([]byte("hunter2")), collectionKeys{all})
	if _, err := Sign(ctx2, all, SignOp{Signer: primary}, []byte("data")); err != nil {
		t.Fatalf("Sign with the correct password: %v", err)
	}
	if !primary.Secret.Locked {
		t.Fatal("Sign must re-lock the secret key after use")
	}
}

func TestGenerateKeyRejectsEmptyUserID(t *testing.T) {
	if _, _, err := GenerateKey(GenerateRequest{PrimaryAlgo: openpgp.PubKeyEdDSA}); openpgp.AsCode(err) != openpgp.ErrBadParameters {
		t.Fatalf("want ErrBadParameters for an empty user ID, got %v", err)
	}
}
