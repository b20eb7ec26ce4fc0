package openpgp

import (
	"bytes"
	"strings"
	"testing"
)

func TestDumpUserIDAndLiteral(t *testing.T) {
	uid := Packet{Tag: TagUserID, Body: []byte("alice <alice@example.com>")}
	lit := Packet{Tag: TagLiteral, Body: append([]byte{'b', 0, 0, 0, 0, 0}, "hi"...)}
	stream := append(append([]byte{}, uid.Bytes()...), lit.Bytes()...)

	var out bytes.Buffer
	if err := Dump(&out, bytes.NewReader(stream)); err != nil {
		t.Fatalf("Dump: %v", err)
	}

	text := out.String()
	if !strings.Contains(text, `"alice <alice@example.com>"`) {
		t.Fatalf("dump missing user id line:\n%s", text)
	}
	if !strings.Contains(text, "format b") {
		t.Fatalf("dump missing literal format line:\n%s", text)
	}
	if !strings.Contains(text, "#0:") || !strings.Contains(text, "#1:") {
		t.Fatalf("dump missing packet indices:\n%s", text)
	}
}

func TestDumpPublicKey(t *testing.T) {
	pk := testEdDSAPublic()
	wire := Packet{Tag: TagPublicKey, Body: pk.Emit()}

	var out bytes.Buffer
	if err := Dump(&out, bytes.NewReader(wire.Bytes())); err != nil {
		t.Fatalf("Dump: %v", err)
	}
	text := out.String()
	if !strings.Contains(text, "keyid") || !strings.Contains(text, "fingerprint") {
		t.Fatalf("dump missing keyid/fingerprint line:\n%s", text)
	}
}

func TestDumpStopsOnFramingError(t *testing.T) {
	var out bytes.Buffer
	err := Dump(&out, bytes.NewReader([]byte{0x80}))
	if err == nil {
		t.Fatal("want an error for a truncated packet header")
	}
}
