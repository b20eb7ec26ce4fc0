// Package openpgp implements the OpenPGP packet stream engine and packet
// parser/emitter (RFC 4880, with RFC 4880bis and RFC 6637 ECC extensions):
// framing, ASCII armor, MPIs, signature subpackets, and the typed packet
// structures that give the wire format meaning. It generalizes the
// hand-rolled single-algorithm packet code of nullprogram.com/x/passphrase2pgp
// to the full tag and algorithm set.
package openpgp

import (
	"bytes"
	"encoding/binary"
	"io"
)

// Tag identifies an OpenPGP packet's content type, RFC 4880 4.3.
type Tag byte

const (
	TagPKESK             Tag = 1
	TagSignature         Tag = 2
	TagSKESK             Tag = 3
	TagOnePassSignature  Tag = 4
	TagSecretKey         Tag = 5
	TagPublicKey         Tag = 6
	TagSecretSubkey      Tag = 7
	TagCompressed        Tag = 8
	TagSymEncryptedData  Tag = 9
	TagMarker            Tag = 10
	TagLiteral           Tag = 11
	TagTrust             Tag = 12
	TagUserID            Tag = 13
	TagPublicSubkey      Tag = 14
	TagUserAttribute     Tag = 17
	TagSEIPD             Tag = 18 // Symmetrically Encrypted Integrity Protected Data
	TagMDC               Tag = 19
)

// Packet is a single decoded OpenPGP packet: its tag and its unframed body.
// This is the teacher's Packet{Tag, Body}; it carries no partial flag, since
// ParsePacket coalesces partial-length chunks into one Body before returning.
type Packet struct {
	Tag  Tag
	Body []byte
}

// ParsePacket reads exactly one packet (header + body) from the front of
// buf and returns it along with the remaining, unconsumed bytes. It
// transparently coalesces new-format partial-length chunks into a single
// logical body, per spec.md 4.B.
func ParsePacket(buf []byte) (Packet, []byte, error) {
	const op = "ParsePacket"
	if len(buf) == 0 {
		return Packet{}, nil, newErr(op, ErrNotEnoughData)
	}
	first := buf[0]
	if first&0x80 == 0 {
		return Packet{}, nil, newErr(op, ErrBadFormat)
	}
	rest := buf[1:]
	var tag Tag
	var body []byte
	var err error
	if first&0x40 != 0 {
		// New format.
		tag = Tag(first & 0x3F)
		body, rest, err = readNewFormatBody(rest)
	} else {
		// Old format.
		tag = Tag((first & 0x3C) >> 2)
		lengthType := first & 0x03
		body, rest, err = readOldFormatBody(rest, lengthType)
	}
	if err != nil {
		return Packet{}, nil, err
	}
	return Packet{Tag: tag, Body: body}, rest, nil
}

// readNewFormatBody reads a new-format packet body, coalescing any partial
// body length chunks (RFC 4880 4.2.2.4) into a single buffer.
func readNewFormatBody(buf []byte) ([]byte, []byte, error) {
	const op = "readNewFormatBody"
	var out bytes.Buffer
	for {
		n, partial, consumed, err := decodeNewLength(buf)
		if err != nil {
			return nil, nil, err
		}
		buf = buf[consumed:]
		if uint64(len(buf)) < n {
			return nil, nil, newErr(op, ErrNotEnoughData)
		}
		out.Write(buf[:n])
		buf = buf[n:]
		if !partial {
			return out.Bytes(), buf, nil
		}
	}
}

// decodeNewLength decodes one new-format length header, returning the body
// length, whether it denotes a partial (chunked) body, and the number of
// header octets consumed.
func decodeNewLength(buf []byte) (length uint64, partial bool, consumed int, err error) {
	const op = "decodeNewLength"
	if len(buf) == 0 {
		return 0, false, 0, newErr(op, ErrNotEnoughData)
	}
	first := buf[0]
	switch {
	case first < 192:
		return uint64(first), false, 1, nil
	case first < 224:
		if len(buf) < 2 {
			return 0, false, 0, newErr(op, ErrNotEnoughData)
		}
		length = (uint64(first)-192)<<8 + uint64(buf[1]) + 192
		return length, false, 2, nil
	case first == 255:
		if len(buf) < 5 {
			return 0, false, 0, newErr(op, ErrNotEnoughData)
		}
		length = uint64(binary.BigEndian.Uint32(buf[1:5]))
		return length, false, 5, nil
	default:
		// 224..254: partial body length, chunk = 2^(n & 0x1F).
		return 1 << (first & 0x1F), true, 1, nil
	}
}

// readOldFormatBody reads an old-format (legacy, V3) packet body. Only
// parsed for read-compatibility; never emitted, per spec.md 1.
func readOldFormatBody(buf []byte, lengthType byte) ([]byte, []byte, error) {
	const op = "readOldFormatBody"
	switch lengthType {
	case 0:
		if len(buf) < 1 {
			return nil, nil, newErr(op, ErrNotEnoughData)
		}
		n := int(buf[0])
		buf = buf[1:]
		if len(buf) < n {
			return nil, nil, newErr(op, ErrNotEnoughData)
		}
		return buf[:n], buf[n:], nil
	case 1:
		if len(buf) < 2 {
			return nil, nil, newErr(op, ErrNotEnoughData)
		}
		n := int(binary.BigEndian.Uint16(buf[:2]))
		buf = buf[2:]
		if len(buf) < n {
			return nil, nil, newErr(op, ErrNotEnoughData)
		}
		return buf[:n], buf[n:], nil
	case 2:
		if len(buf) < 4 {
			return nil, nil, newErr(op, ErrNotEnoughData)
		}
		n := int(binary.BigEndian.Uint32(buf[:4]))
		buf = buf[4:]
		if len(buf) < n {
			return nil, nil, newErr(op, ErrNotEnoughData)
		}
		return buf[:n], buf[n:], nil
	default:
		// Indeterminate length: the rest of the stream is the body.
		return buf, nil, nil
	}
}

// encodeNewLength appends a new-format length header for n to dst. Lengths
// above 2^32-1 are never produced by this implementation.
func encodeNewLength(dst []byte, n int) []byte {
	switch {
	case n < 192:
		return append(dst, byte(n))
	case n < 8384:
		n -= 192
		return append(dst, byte((n>>8)+192), byte(n&0xFF))
	default:
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], uint32(n))
		return append(dst, 0xFF, b[0], b[1], b[2], b[3])
	}
}

// Emit serializes p using new-format framing (this implementation never
// emits old-format or partial-length packets).
func (p Packet) Emit(w io.Writer) error {
	const op = "Packet.Emit"
	header := []byte{0xC0 | byte(p.Tag)}
	header = encodeNewLength(header, len(p.Body))
	if _, err := w.Write(header); err != nil {
		return wrapErr(op, ErrWrite, err)
	}
	if _, err := w.Write(p.Body); err != nil {
		return wrapErr(op, ErrWrite, err)
	}
	return nil
}

// Bytes returns the framed wire form of p.
func (p Packet) Bytes() []byte {
	var buf bytes.Buffer
	_ = p.Emit(&buf)
	return buf.Bytes()
}

// Reader walks a sequence of concatenated packets, handed to it as a single
// byte slice already de-armored by the caller (see Dearmor). It is the
// minimal streaming consumer used by the keystore and pipeline packages.
type Reader struct {
	buf []byte
	err error
}

// NewReader wraps buf for sequential packet reads.
func NewReader(buf []byte) *Reader { return &Reader{buf: buf} }

// Next returns the next packet, or io.EOF when buf is exhausted.
func (r *Reader) Next() (Packet, error) {
	if r.err != nil {
		return Packet{}, r.err
	}
	if len(r.buf) == 0 {
		return Packet{}, io.EOF
	}
	p, rest, err := ParsePacket(r.buf)
	if err != nil {
		r.err = err
		return Packet{}, err
	}
	r.buf = rest
	return p, nil
}

// All drains r into a slice; convenience for small in-memory streams such
// as keystore files.
func (r *Reader) All() ([]Packet, error) {
	var out []Packet
	for {
		p, err := r.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, p)
	}
}
