package oracle

import (
	"crypto/cipher"

	"golang.org/x/crypto/ocb"

	"github.com/pgpkit/pgpkit/openpgp"
)

// NewOCB wraps an AES block cipher in OCB AEAD mode, used by the
// s-expression keystore's "openpgp-s2k3-ocb-aes" protection mode,
// spec.md 4.E.
func NewOCB(block cipher.Block) (cipher.AEAD, error) {
	aead, err := ocb.NewAEAD(block, 16)
	if err != nil {
		return nil, &Error{Code: openpgp.ErrGeneric, Op: "NewOCB", Err: err}
	}
	return aead, nil
}
