package keystore

import (
	"bytes"
	"encoding/binary"

	"github.com/pgpkit/pgpkit/openpgp"
	"github.com/pgpkit/pgpkit/openpgp/keymodel"
)

// keyboxMagic is the 4-octet magic embedded at offset 8 of a keybox's
// header blob, spec.md 3 "a blob file with a magic header 'KBXf'".
const keyboxMagic = "KBXf"

// blobTypeHeader and blobTypeOpenPGP are the keybox blob-type octet
// values this reader recognises; other blob types (X.509) are skipped.
const (
	blobTypeHeader byte = 1
	blobTypeOpenPGP byte = 2
)

// ReadKeybox parses a keybox file: a header blob followed by one OpenPGP
// blob per primary key, each bundling the concatenated transferable-key
// bytes plus a fingerprint/flags index, spec.md 4.E "Keybox format".
// Reading yields the same logical Key objects as ReadTransferable by
// delegating each blob's inner bytes back to it.
func ReadKeybox(buf []byte) ([]*keymodel.Key, error) {
	const op = "keystore.ReadKeybox"
	var out []*keymodel.Key
	off := 0
	for off < len(buf) {
		if len(buf) < off+5 {
			return nil, &openpgp.Error{Code: openpgp.ErrNotEnoughData, Op: op}
		}
		blobLen := int(binary.BigEndian.Uint32(buf[off : off+4]))
		blobType := buf[off+4]
		if blobLen < 5 || off+blobLen > len(buf) {
			return nil, &openpgp.Error{Code: openpgp.ErrBadFormat, Op: op}
		}
		blob := buf[off : off+blobLen]
		switch blobType {
		case blobTypeHeader:
			if len(blob) < 13 || string(blob[8:12]) != keyboxMagic {
				return nil, &openpgp.Error{Code: openpgp.ErrBadFormat, Op: op}
			}
		case blobTypeOpenPGP:
			keys, err := readOpenPGPBlob(blob)
			if err != nil {
				return nil, err
			}
			out = append(out, keys...)
		}
		off += blobLen
	}
	return out, nil
}

// openPGPBlob layout (simplified GnuPG keybox blob, spec.md-scope subset):
// BE32 length, 1 blob type, 1 version, BE16 reserved, BE32 nKeyBlocks
// (always 1 here, this codec does not merge multiple primaries per blob),
// BE32 keyBlockOffset, BE32 keyBlockLength, then padding up to
// keyBlockOffset, then keyBlockLength bytes of transferable-key packets.
func readOpenPGPBlob(blob []byte) ([]*keymodel.Key, error) {
	const op = "keystore.readOpenPGPBlob"
	if len(blob) < 20 {
		return nil, &openpgp.Error{Code: openpgp.ErrNotEnoughData, Op: op}
	}
	keyBlockOffset := int(binary.BigEndian.Uint32(blob[12:16]))
	keyBlockLength := int(binary.BigEndian.Uint32(blob[16:20]))
	if keyBlockOffset+keyBlockLength > len(blob) {
		return nil, &openpgp.Error{Code: openpgp.ErrBadFormat, Op: op}
	}
	return ReadTransferable(blob[keyBlockOffset : keyBlockOffset+keyBlockLength])
}

// WriteKeybox serializes keys as a keybox: a header blob then one OpenPGP
// blob per primary, each carrying that primary's fingerprint index,
// spec.md 4.E "Writing regenerates the index from current key metadata."
func WriteKeybox(keys []*keymodel.Key) []byte {
	var out bytes.Buffer
	out.Write(headerBlob())

	byGrip := make(map[keymodel.Grip][]*keymodel.Key)
	var primaries []*keymodel.Key
	for _, k := range keys {
		if k.IsSubkey {
			byGrip[k.PrimaryGrip] = append(byGrip[k.PrimaryGrip], k)
		} else {
			primaries = append(primaries, k)
		}
	}
	for _, p := range primaries {
		out.Write(openPGPBlob(p, byGrip[p.Grip()]))
	}
	return out.Bytes()
}

func headerBlob() []byte {
	blob := make([]byte, 13)
	binary.BigEndian.PutUint32(blob[0:4], uint32(len(blob)))
	blob[4] = blobTypeHeader
	blob[5] = 1 // version
	copy(blob[8:12], keyboxMagic)
	return blob
}

func openPGPBlob(primary *keymodel.Key, subkeys []*keymodel.Key) []byte {
	keyBlock := keymodel.Emit(primary, subkeys)
	const fixedHeaderLen = 20 // including the 4-octet length prefix
	body := make([]byte, fixedHeaderLen-4)
	body[0] = blobTypeOpenPGP
	body[1] = 1 // version
	binary.BigEndian.PutUint32(body[4:8], 1)
	binary.BigEndian.PutUint32(body[8:12], fixedHeaderLen)
	binary.BigEndian.PutUint32(body[12:16], uint32(len(keyBlock)))
	body = append(body, keyBlock...)
	// Fingerprint index, appended after the key block for tools that scan
	// it without re-parsing the OpenPGP packets.
	body = append(body, primary.Public.Fingerprint()...)

	var out [4]byte
	binary.BigEndian.PutUint32(out[:], uint32(len(body)+4))
	return append(out[:], body...)
}
