package openpgp

import (
	"fmt"
	"io"
)

// Dump reads every packet from r and writes one human-readable line per
// packet, plus one indented line per signature subpacket, to w. This is
// the Go analogue of redumper (src/apps/packet-dumper/redumper.c): that
// tool's dump_packets/dump_mpi flags gate printing the raw packet body
// and raw MPI values, which this version always omits in favor of the
// already-decoded fields (keyid, fingerprint, signature type, subpacket
// type/length) that matter for eyeballing a fixture. It never returns a
// parse error for a packet it can frame but not fully decode: in that
// case it prints the tag, length,
// and a parse-error note instead of aborting, the same "keep going" spirit
// as redumper's --dump-packets mode. It stops only on a framing error
// (the underlying packet reader cannot find the next packet boundary).
//
// This is diagnostics, not a cryptographic contract: it does not verify
// anything, and its output format is not part of this package's API
// stability guarantee.
func Dump(w io.Writer, r io.Reader) error {
	const op = "Dump"
	buf, err := io.ReadAll(r)
	if err != nil {
		return newErr(op, ErrNotEnoughData)
	}

	reader := NewReader(buf)
	index := 0
	for {
		p, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		dumpPacket(w, index, p, reader, buf)
		index++
	}
}

func dumpPacket(w io.Writer, index int, p Packet, _ *Reader, _ []byte) {
	fmt.Fprintf(w, "#%d: %s (tag %d), %d bytes\n", index, tagName(p.Tag), p.Tag, len(p.Body))

	switch p.Tag {
	case TagPublicKey, TagPublicSubkey:
		pk, err := ParsePublicKey(p.Body)
		if err != nil {
			fmt.Fprintf(w, "  parse error: %v\n", err)
			return
		}
		fmt.Fprintf(w, "  version %d, created %s, algo %s\n", pk.Version, formatTime(pk.Created), pk.Algorithm)
		fmt.Fprintf(w, "  keyid %X, fingerprint %X\n", pk.KeyID(), pk.Fingerprint())
	case TagSecretKey, TagSecretSubkey:
		sk, err := ParseSecretKey(p.Body)
		if err != nil {
			fmt.Fprintf(w, "  parse error: %v\n", err)
			return
		}
		fmt.Fprintf(w, "  version %d, created %s, algo %s, s2k-usage %d, locked=%v\n",
			sk.Public.Version, formatTime(sk.Public.Created), sk.Public.Algorithm, sk.S2KUsage, sk.Locked)
	case TagUserID:
		fmt.Fprintf(w, "  %q\n", p.Body)
	case TagSignature:
		sig, err := ParseSignature(p.Body)
		if err != nil {
			fmt.Fprintf(w, "  parse error: %v\n", err)
			return
		}
		fmt.Fprintf(w, "  version %d, type 0x%02X, pubalgo %s, hashalgo %s, created %s\n",
			sig.Version, byte(sig.Type), sig.PubAlgo, sig.HashAlgo, formatTime(sig.Created))
		fmt.Fprintf(w, "  issuer %X, hash preview %02X%02X\n", sig.Issuer, sig.HashPreview[0], sig.HashPreview[1])
		dumpSubpackets(w, "hashed", sig.Hashed)
		dumpSubpackets(w, "unhashed", sig.Unhashed)
	case TagLiteral:
		if len(p.Body) > 0 {
			fmt.Fprintf(w, "  format %c\n", p.Body[0])
		}
	}
}

func dumpSubpackets(w io.Writer, area string, subs []Subpacket) {
	for _, s := range subs {
		crit := ""
		if s.Critical {
			crit = " critical"
		}
		fmt.Fprintf(w, "    %s: type %d%s, %d bytes\n", area, s.Type, crit, len(s.Data))
	}
}

func formatTime(unix int64) string {
	return fmt.Sprintf("%d", unix)
}

func tagName(t Tag) string {
	switch t {
	case TagPKESK:
		return "Public-Key Encrypted Session Key"
	case TagSignature:
		return "Signature"
	case TagSKESK:
		return "Symmetric-Key Encrypted Session Key"
	case TagOnePassSignature:
		return "One-Pass Signature"
	case TagSecretKey:
		return "Secret Key"
	case TagPublicKey:
		return "Public Key"
	case TagSecretSubkey:
		return "Secret Subkey"
	case TagCompressed:
		return "Compressed Data"
	case TagSymEncryptedData:
		return "Symmetrically Encrypted Data"
	case TagMarker:
		return "Marker"
	case TagLiteral:
		return "Literal Data"
	case TagTrust:
		return "Trust"
	case TagUserID:
		return "User ID"
	case TagPublicSubkey:
		return "Public Subkey"
	case TagUserAttribute:
		return "User Attribute"
	case TagSEIPD:
		return "Sym. Encrypted Integrity Protected Data"
	case TagMDC:
		return "Modification Detection Code"
	default:
		return "Unknown"
	}
}
