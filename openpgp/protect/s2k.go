// Package protect implements String-to-Key derivation and the secret-key
// lock/unlock/protect/unprotect lifecycle, spec.md 4.F, generalizing the
// teacher's fixed-AES-256/SHA-256 s2k()/decodeS2K()/EncPacket() helpers in
// nullprogram.com/x/passphrase2pgp/openpgp to the full algorithm matrix.
package protect

import (
	"crypto/subtle"
	"hash"

	"github.com/pgpkit/pgpkit/openpgp"
	"github.com/pgpkit/pgpkit/openpgp/oracle"
)

// DefaultIterationCount is the target iteration count re-quantised to the
// nearest representable S2K byte when an application does not request a
// specific strength, spec.md 4.F.
const DefaultIterationCount = 65536

// DecodeCount expands an RFC 4880 3.7.1.3 encoded iteration-count octet
// into the actual octet count absorbed by the hash.
func DecodeCount(c byte) int {
	return (16 + int(c&15)) << (uint(c>>4) + 6)
}

// EncodeCount re-quantises a requested iteration count to the nearest
// representable byte, rounding up so the derived key is never weaker than
// requested. spec.md 4.F / 9 "S2K iteration-count round-trip": the byte,
// not the request, is what gets stored and what Unlock/Protect use.
func EncodeCount(requested int) byte {
	if requested <= DecodeCount(0) {
		return 0
	}
	for c := 0; c < 256; c++ {
		if DecodeCount(byte(c)) >= requested {
			return byte(c)
		}
	}
	return 255
}

// Derive runs the String-to-Key function described by spec for keyLen
// output octets, using hash algo. ErrBadParameters is returned for an
// iteration count of zero (spec.md 8); a salt of the wrong length gives
// ErrBadFormat.
func Derive(spec *openpgp.S2KSpec, passphrase []byte, keyLen int) ([]byte, error) {
	const op = "protect.Derive"
	h, err := oracle.NewHash(spec.Hash)
	if err != nil {
		return nil, err
	}
	switch spec.Type {
	case 0:
		return stretch(h, passphrase, keyLen), nil
	case 1:
		if len(spec.Salt) != 8 {
			return nil, &openpgp.Error{Code: openpgp.ErrBadFormat, Op: op}
		}
		return stretch(h, append(append([]byte(nil), spec.Salt...), passphrase...), keyLen), nil
	case 3:
		if len(spec.Salt) != 8 {
			return nil, &openpgp.Error{Code: openpgp.ErrBadFormat, Op: op}
		}
		count := DecodeCount(spec.Count)
		if count == 0 {
			return nil, &openpgp.Error{Code: openpgp.ErrBadParameters, Op: op}
		}
		return iteratedStretch(spec.Hash, spec.Salt, passphrase, count, keyLen)
	default:
		return nil, &openpgp.Error{Code: openpgp.ErrBadFormat, Op: op}
	}
}

// stretch implements the "simple"/"salted" key-stretching rule: re-running
// the hash with an increasing prefix of zero octets and concatenating
// digests until keyLen octets have been produced, RFC 4880 3.7.1.1/.2.
func stretch(h hash.Hash, data []byte, keyLen int) []byte {
	var out []byte
	var zeros []byte
	for len(out) < keyLen {
		h.Reset()
		h.Write(zeros)
		h.Write(data)
		out = append(out, h.Sum(nil)...)
		zeros = append(zeros, 0)
	}
	return out[:keyLen]
}

// iteratedStretch implements the iterated+salted rule: feed (salt||data)
// repeatedly into the hash until exactly count octets have been absorbed,
// then finalize; repeated across multiple hash instances (each seeded with
// one more leading zero octet, as stretch does) to reach keyLen.
func iteratedStretch(algo openpgp.HashAlgorithm, salt, passphrase []byte, count, keyLen int) ([]byte, error) {
	const op = "protect.iteratedStretch"
	full := append(append([]byte(nil), salt...), passphrase...)
	var out []byte
	var zeros []byte
	for len(out) < keyLen {
		h, err := oracle.NewHash(algo)
		if err != nil {
			return nil, err
		}
		h.Write(zeros)
		absorbed := len(zeros)
		for absorbed+len(full) <= count {
			h.Write(full)
			absorbed += len(full)
		}
		if absorbed < count {
			h.Write(full[:count-absorbed])
		}
		out = append(out, h.Sum(nil)...)
		zeros = append(zeros, 0)
	}
	return out[:keyLen], nil
}

// ConstantTimeEqual is a thin re-export so callers in this module never
// need to import crypto/subtle directly.
func ConstantTimeEqual(a, b []byte) bool {
	return len(a) == len(b) && subtle.ConstantTimeCompare(a, b) == 1
}
