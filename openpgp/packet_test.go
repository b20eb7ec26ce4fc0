package openpgp

import (
	"bytes"
	"math/big"
	"testing"
)

func TestPacketRoundTrip(t *testing.T) {
	p := Packet{Tag: TagUserID, Body: []byte("alice <alice@example.com>")}
	wire := p.Bytes()

	got, rest, err := ParsePacket(wire)
	if err != nil {
		t.Fatalf("ParsePacket: %v", err)
	}
	if len(rest) != 0 {
		t.Fatalf("expected no trailing bytes, got %d", len(rest))
	}
	if got.Tag != p.Tag || !bytes.Equal(got.Body, p.Body) {
		t.Fatalf("round-trip mismatch: got %+v, want %+v", got, p)
	}
}

func TestPacketRoundTripLargeBody(t *testing.T) {
	body := bytes.Repeat([]byte{0xAB}, 10000)
	p := Packet{Tag: TagLiteral, Body: body}
	wire := p.Bytes()

	got, rest, err := ParsePacket(wire)
	if err != nil {
		t.Fatalf("ParsePacket: %v", err)
	}
	if len(rest) != 0 {
		t.Fatalf("expected no trailing bytes, got %d", len(rest))
	}
	if !bytes.Equal(got.Body, body) {
		t.Fatal("large-body round-trip mismatch")
	}
}

func TestReaderAllConcatenatedPackets(t *testing.T) {
	p1 := Packet{Tag: TagUserID, Body: []byte("one")}
	p2 := Packet{Tag: TagUserID, Body: []byte("two")}
	stream := append(append([]byte{}, p1.Bytes()...), p2.Bytes()...)

	packets, err := NewReader(stream).All()
	if err != nil {
		t.Fatalf("Reader.All: %v", err)
	}
	if len(packets) != 2 || string(packets[0].Body) != "one" || string(packets[1].Body) != "two" {
		t.Fatalf("unexpected packets: %+v", packets)
	}
}

func TestParsePacketShortBufferIsNotEnoughData(t *testing.T) {
	if _, _, err := ParsePacket(nil); AsCode(err) != ErrNotEnoughData {
		t.Fatalf("want ErrNotEnoughData for an empty buffer, got %v", err)
	}
}

func testEdDSAPublic() PublicKey {
	return PublicKey{
		Version:   4,
		Created:   1700000000,
		Algorithm: PubKeyEdDSA,
		Curve:     CurveEd25519,
		Point:     append([]byte{0x40}, bytes.Repeat([]byte{0x11}, 32)...),
	}
}

func TestPublicKeyEmitParseRoundTrip(t *testing.T) {
	pk := testEdDSAPublic()
	body := pk.Emit()

	got, err := ParsePublicKey(body)
	if err != nil {
		t.Fatalf("ParsePublicKey: %v", err)
	}
	if got.Version != pk.Version || got.Created != pk.Created || got.Algorithm != pk.Algorithm || got.Curve != pk.Curve {
		t.Fatalf("round-trip header mismatch: got %+v", got)
	}
	if !bytes.Equal(got.Point, pk.Point) {
		t.Fatal("round-trip point mismatch")
	}
}

func TestFingerprintAndKeyIDAreStableAndDeterministic(t *testing.T) {
	pk := testEdDSAPublic()
	fp1, fp2 := pk.Fingerprint(), pk.Fingerprint()
	if !bytes.Equal(fp1, fp2) {
		t.Fatal("Fingerprint must be deterministic")
	}
	if len(fp1) != 20 {
		t.Fatalf("V4 fingerprint must be 20 bytes, got %d", len(fp1))
	}
	id := pk.KeyID()
	if len(id) != 8 || !bytes.Equal(id, fp1[12:20]) {
		t.Fatalf("KeyID must be the low 8 octets of the fingerprint, got %x", id)
	}
}

func TestFingerprintDiffersByMaterial(t *testing.T) {
	a := testEdDSAPublic()
	b := testEdDSAPublic()
	b.Point[1] ^= 0xFF
	if bytes.Equal(a.Fingerprint(), b.Fingerprint()) {
		t.Fatal("fingerprint must depend on public material")
	}
}

func testRSASecret() SecretKey {
	return SecretKey{
		Public: PublicKey{
			Version: 4, Created: 1700000000, Algorithm: PubKeyRSA,
			Params: []*big.Int{big.NewInt(3233), big.NewInt(65537)},
		},
		Params: []*big.Int{big.NewInt(2753), big.NewInt(61), big.NewInt(53), big.NewInt(38)},
	}
}

func TestSecretKeyCleartextRoundTrip(t *testing.T) {
	sk := testRSASecret()
	body := sk.Emit()

	got, err := ParseSecretKey(body)
	if err != nil {
		t.Fatalf("ParseSecretKey: %v", err)
	}
	if got.Locked {
		t.Fatal("cleartext secret key must not parse as locked")
	}
	if len(got.Params) != 4 {
		t.Fatalf("expected 4 RSA secret params, got %d", len(got.Params))
	}
	for i, p := range got.Params {
		if p.Cmp(sk.Params[i]) != 0 {
			t.Fatalf("param %d mismatch: got %v, want %v", i, p, sk.Params[i])
		}
	}
}
