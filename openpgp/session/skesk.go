package session

import (
	"github.com/pgpkit/pgpkit/openpgp"
	"github.com/pgpkit/pgpkit/openpgp/oracle"
	"github.com/pgpkit/pgpkit/openpgp/protect"
)

// SKESK is a parsed symmetric-key-encrypted session-key packet (tag 3),
// RFC 4880 5.3, spec.md 4.H.
type SKESK struct {
	Version int // always 4
	Algo    openpgp.SymmetricAlgorithm
	S2K     *openpgp.S2KSpec
	ESK     []byte // wrapped message key; absent => password itself is the message key
}

// ParseSKESK decodes an SK-ESK packet body.
func ParseSKESK(body []byte) (SKESK, error) {
	const op = "session.ParseSKESK"
	if len(body) < 3 || body[0] != 4 {
		return SKESK{}, &openpgp.Error{Code: openpgp.ErrBadFormat, Op: op}
	}
	var s SKESK
	s.Version = 4
	s.Algo = openpgp.SymmetricAlgorithm(body[1])
	spec, rest, err := parseS2KBody(body[2:])
	if err != nil {
		return SKESK{}, err
	}
	s.S2K = spec
	if len(rest) > 0 {
		s.ESK = append([]byte(nil), rest...)
	}
	return s, nil
}

// Emit serializes an SK-ESK packet body.
func (s SKESK) Emit() []byte {
	out := []byte{4, byte(s.Algo)}
	out = append(out, emitS2KBody(s.S2K)...)
	out = append(out, s.ESK...)
	return out
}

func parseS2KBody(buf []byte) (*openpgp.S2KSpec, []byte, error) {
	const op = "session.parseS2KBody"
	if len(buf) < 2 {
		return nil, nil, &openpgp.Error{Code: openpgp.ErrNotEnoughData, Op: op}
	}
	spec := &openpgp.S2KSpec{Type: buf[0], Hash: openpgp.HashAlgorithm(buf[1])}
	buf = buf[2:]
	switch spec.Type {
	case 0:
		return spec, buf, nil
	case 1:
		if len(buf) < 8 {
			return nil, nil, &openpgp.Error{Code: openpgp.ErrNotEnoughData, Op: op}
		}
		spec.Salt = append([]byte(nil), buf[:8]...)
		return spec, buf[8:], nil
	case 3:
		if len(buf) < 9 {
			return nil, nil, &openpgp.Error{Code: openpgp.ErrNotEnoughData, Op: op}
		}
		spec.Salt = append([]byte(nil), buf[:8]...)
		spec.Count = buf[8]
		return spec, buf[9:], nil
	default:
		return nil, nil, &openpgp.Error{Code: openpgp.ErrBadFormat, Op: op}
	}
}

func emitS2KBody(s *openpgp.S2KSpec) []byte {
	out := []byte{s.Type, byte(s.Hash)}
	switch s.Type {
	case 1:
		out = append(out, s.Salt...)
	case 3:
		out = append(out, s.Salt...)
		out = append(out, s.Count)
	}
	return out
}

// NewPasswordRecipient derives (or wraps) a message key for a password
// recipient, spec.md 4.H: "When no wrapped key is present, the password is
// itself stretched via S2K to form the message key; otherwise the S2K
// output unwraps a one-shot message key."
//
// messageKey, when non-nil, is the already-chosen session key shared
// across all recipients of a message (multi-recipient encryption); when
// nil, the password-derived key IS the session key (single password,
// no ESK field).
func NewPasswordRecipient(password []byte, s2kHash openpgp.HashAlgorithm, iterations int, cipher openpgp.SymmetricAlgorithm, messageKey []byte) (SKESK, []byte, error) {
	salt, err := oracle.DefaultRNG().GetBytes(8)
	if err != nil {
		return SKESK{}, nil, err
	}
	spec := &openpgp.S2KSpec{Type: 3, Hash: s2kHash, Salt: salt, Count: protect.EncodeCount(iterations)}
	kek, err := protect.Derive(spec, password, cipher.KeySize())
	if err != nil {
		return SKESK{}, nil, err
	}
	skesk := SKESK{Version: 4, Algo: cipher, S2K: spec}
	if messageKey == nil {
		return skesk, kek, nil
	}
	block, err := oracle.NewBlockCipher(cipher, kek)
	if err != nil {
		return SKESK{}, nil, err
	}
	iv := make([]byte, cipher.BlockSize())
	esk := make([]byte, len(messageKey))
	oracle.NewCFBEncrypter(block, iv).XORKeyStream(esk, messageKey)
	skesk.ESK = esk
	return skesk, messageKey, nil
}

// RecoverPasswordKey derives the message key for a password attempt
// against a parsed SKESK packet.
func RecoverPasswordKey(skesk SKESK, password []byte) ([]byte, error) {
	kek, err := protect.Derive(skesk.S2K, password, skesk.Algo.KeySize())
	if err != nil {
		return nil, err
	}
	if skesk.ESK == nil {
		return kek, nil
	}
	block, err := oracle.NewBlockCipher(skesk.Algo, kek)
	if err != nil {
		return nil, err
	}
	iv := make([]byte, skesk.Algo.BlockSize())
	key := make([]byte, len(skesk.ESK))
	oracle.NewCFBDecrypter(block, iv).XORKeyStream(key, skesk.ESK)
	return key, nil
}
