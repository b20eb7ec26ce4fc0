package session

import (
	"bytes"
	"crypto/sha1"

	"github.com/pgpkit/pgpkit/openpgp"
	"github.com/pgpkit/pgpkit/openpgp/oracle"
)

// EncryptSEIP encrypts plaintext (the already-assembled inner packet
// stream: literal data, optionally compressed, optionally preceded by
// one-pass-signature/signature packets) as a tag-18 SEIP body, spec.md
// 4.H: CFB-mode with a "prefix || resync" header, an MDC trailer covering
// prefix||plaintext||0xD3 0x14.
//
// Tag 9 (legacy, no integrity) is not implemented as an emitter, per
// spec.md 1; this package has no decrypter for it either.
func EncryptSEIP(cipher openpgp.SymmetricAlgorithm, sessionKey, plaintext []byte) ([]byte, error) {
	const op = "session.EncryptSEIP"
	block, err := oracle.NewBlockCipher(cipher, sessionKey)
	if err != nil {
		return nil, err
	}
	bs := cipher.BlockSize()
	prefix, err := oracle.DefaultRNG().GetBytes(bs)
	if err != nil {
		return nil, err
	}
	prefix = append(prefix, prefix[bs-2], prefix[bs-1]) // resync: repeat last two octets

	var inner bytes.Buffer
	inner.Write(prefix)
	inner.Write(plaintext)

	h := sha1.New()
	h.Write(inner.Bytes())
	h.Write([]byte{0xD3, 0x14})
	mdcBody := h.Sum(nil)
	mdcPacket := openpgp.Packet{Tag: openpgp.TagMDC, Body: mdcBody}
	inner.Write(mdcPacket.Bytes())

	ct := make([]byte, inner.Len())
	oracle.NewCFBEncrypter(block, make([]byte, bs)).XORKeyStream(ct, inner.Bytes())

	out := make([]byte, 1+len(ct))
	out[0] = 1 // SEIP version
	copy(out[1:], ct)
	return out, nil
}

// DecryptSEIP reverses EncryptSEIP and verifies the two-octet resync
// repeat and the MDC trailer before releasing plaintext, spec.md 4.H/4.G,
// 8 ("MDC packet absent ... present but failing => MAC_INVALID").
func DecryptSEIP(cipher openpgp.SymmetricAlgorithm, sessionKey, body []byte) ([]byte, error) {
	const op = "session.DecryptSEIP"
	if len(body) < 1 || body[0] != 1 {
		return nil, &openpgp.Error{Code: openpgp.ErrBadFormat, Op: op}
	}
	ct := body[1:]
	block, err := oracle.NewBlockCipher(cipher, sessionKey)
	if err != nil {
		return nil, err
	}
	bs := cipher.BlockSize()
	if len(ct) < bs+2 {
		return nil, &openpgp.Error{Code: openpgp.ErrNotEnoughData, Op: op}
	}
	pt := make([]byte, len(ct))
	oracle.NewCFBDecrypter(block, make([]byte, bs)).XORKeyStream(pt, ct)

	if pt[bs-2] != pt[bs] || pt[bs-1] != pt[bs+1] {
		return nil, &openpgp.Error{Code: openpgp.ErrDecryptFailed, Op: op}
	}

	reader := openpgp.NewReader(pt[bs+2:])
	packets, err := reader.All()
	if err != nil {
		return nil, err
	}
	if len(packets) == 0 || packets[len(packets)-1].Tag != openpgp.TagMDC {
		return nil, &openpgp.Error{Code: openpgp.ErrMACInvalid, Op: op}
	}
	mdcPacket := packets[len(packets)-1]
	if len(mdcPacket.Body) != 20 {
		return nil, &openpgp.Error{Code: openpgp.ErrMACInvalid, Op: op}
	}

	h := sha1.New()
	h.Write(pt[:bs+2])
	for _, p := range packets[:len(packets)-1] {
		h.Write(p.Bytes())
	}
	h.Write([]byte{0xD3, 0x14})
	if !bytes.Equal(h.Sum(nil), mdcPacket.Body) {
		return nil, &openpgp.Error{Code: openpgp.ErrMACInvalid, Op: op}
	}

	var out bytes.Buffer
	for _, p := range packets[:len(packets)-1] {
		out.Write(p.Bytes())
	}
	return out.Bytes(), nil
}

// LiteralData encodes a tag-11 literal data packet body: format byte,
// filename, 4-octet mtime, then data. spec.md 4.H.
func LiteralData(format byte, filename string, mtime int64, data []byte) []byte {
	out := []byte{format, byte(len(filename))}
	out = append(out, filename...)
	out = append(out, byte(mtime>>24), byte(mtime>>16), byte(mtime>>8), byte(mtime))
	out = append(out, data...)
	return out
}

// ParseLiteralData decodes a tag-11 packet body.
func ParseLiteralData(body []byte) (format byte, filename string, mtime int64, data []byte, err error) {
	const op = "session.ParseLiteralData"
	if len(body) < 6 {
		return 0, "", 0, nil, &openpgp.Error{Code: openpgp.ErrNotEnoughData, Op: op}
	}
	format = body[0]
	n := int(body[1])
	if len(body) < 2+n+4 {
		return 0, "", 0, nil, &openpgp.Error{Code: openpgp.ErrNotEnoughData, Op: op}
	}
	filename = string(body[2 : 2+n])
	rest := body[2+n:]
	mtime = int64(uint32(rest[0])<<24 | uint32(rest[1])<<16 | uint32(rest[2])<<8 | uint32(rest[3]))
	data = rest[4:]
	return format, filename, mtime, data, nil
}
