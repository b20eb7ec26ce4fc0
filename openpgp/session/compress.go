package session

import (
	"bytes"
	"compress/flate"
	"compress/zlib"
	"io"

	"github.com/pgpkit/pgpkit/openpgp"
)

// CompressPacket wraps inner (an already-assembled packet stream) in a
// tag-8 compressed-data packet body under algo, spec.md 4.H "optionally
// push a compression filter" ahead of the SEIP writer. CompressionNone
// returns inner unchanged with no tag-8 wrapper, matching the "none" case
// of spec.md's Compression algorithm enum rather than emitting a
// pass-through compressed packet.
//
// BZIP2 is not implemented: the standard library ships only a bzip2
// reader (compress/bzip2), no writer, and no repository in this codebase's
// dependency graph supplies one either.
func CompressPacket(algo openpgp.CompressionAlgorithm, inner []byte) ([]byte, error) {
	const op = "session.CompressPacket"
	if algo == openpgp.CompressionNone {
		return inner, nil
	}

	var body bytes.Buffer
	body.WriteByte(byte(algo))

	var w io.WriteCloser
	var err error
	switch algo {
	case openpgp.CompressionZIP:
		w, err = flate.NewWriter(&body, flate.DefaultCompression)
	case openpgp.CompressionZLIB:
		w, err = zlib.NewWriterLevel(&body, zlib.DefaultCompression)
	default:
		return nil, &openpgp.Error{Code: openpgp.ErrNotSupported, Op: op}
	}
	if err != nil {
		return nil, &openpgp.Error{Code: openpgp.ErrNotSupported, Op: op, Err: err}
	}
	if _, err := w.Write(inner); err != nil {
		return nil, &openpgp.Error{Code: openpgp.ErrBadFormat, Op: op, Err: err}
	}
	if err := w.Close(); err != nil {
		return nil, &openpgp.Error{Code: openpgp.ErrBadFormat, Op: op, Err: err}
	}

	packet := openpgp.Packet{Tag: openpgp.TagCompressed, Body: body.Bytes()}
	return packet.Bytes(), nil
}

// DecompressPacket reverses CompressPacket given a tag-8 packet body
// (leading algorithm octet plus compressed stream) and returns the inner
// packet stream.
func DecompressPacket(body []byte) ([]byte, error) {
	const op = "session.DecompressPacket"
	if len(body) < 1 {
		return nil, &openpgp.Error{Code: openpgp.ErrNotEnoughData, Op: op}
	}
	algo := openpgp.CompressionAlgorithm(body[0])
	data := body[1:]

	var r io.ReadCloser
	var err error
	switch algo {
	case openpgp.CompressionNone:
		return data, nil
	case openpgp.CompressionZIP:
		r = io.NopCloser(flate.NewReader(bytes.NewReader(data)))
	case openpgp.CompressionZLIB:
		r, err = zlib.NewReader(bytes.NewReader(data))
	default:
		return nil, &openpgp.Error{Code: openpgp.ErrNotSupported, Op: op}
	}
	if err != nil {
		return nil, &openpgp.Error{Code: openpgp.ErrBadFormat, Op: op, Err: err}
	}
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, &openpgp.Error{Code: openpgp.ErrBadFormat, Op: op, Err: err}
	}
	return out, nil
}
