// Package oracle is the narrow façade over the foreign crypto primitives
// this module treats as an oracle, spec.md 4.A: hash contexts, symmetric
// cipher contexts (CFB and OCB), public-key sign/verify/encrypt/decrypt,
// key-pair generation, and a CSPRNG. The symmetric and hash primitives of
// golang.org/x/crypto (cast5/twofish/blowfish/ripemd160/ocb) are imported
// only here; ed25519, curve25519 and elgamal are also imported directly by
// sigengine, session and pipeline.
package oracle

import (
	"crypto"
	"crypto/aes"
	"crypto/cipher"
	"crypto/des"
	"crypto/md5"
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"hash"
	"io"

	"golang.org/x/crypto/blowfish"
	"golang.org/x/crypto/cast5"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // RFC 4880 mandates RIPEMD-160 support
	"golang.org/x/crypto/twofish"

	"github.com/pgpkit/pgpkit/openpgp"
)

// Error wraps a primitive-layer failure as the closed ErrGeneric/ErrNotSupported
// family from the openpgp package, per spec.md 4.A "Failures are carried as
// a typed error."
type Error = openpgp.Error

// NewHash returns a fresh hash.Hash for the given OpenPGP hash algorithm
// identifier, or an ErrNotSupported error for algorithms this build does
// not back with a primitive (SM3; see DESIGN.md).
func NewHash(algo openpgp.HashAlgorithm) (hash.Hash, error) {
	switch algo {
	case openpgp.HashMD5:
		return md5.New(), nil
	case openpgp.HashSHA1:
		return sha1.New(), nil
	case openpgp.HashRIPEMD160:
		return ripemd160.New(), nil
	case openpgp.HashSHA224:
		return sha256.New224(), nil
	case openpgp.HashSHA256:
		return sha256.New(), nil
	case openpgp.HashSHA384:
		return sha512.New384(), nil
	case openpgp.HashSHA512:
		return sha512.New(), nil
	default:
		return nil, &Error{Code: openpgp.ErrNotSupported, Op: "NewHash"}
	}
}

// CryptoHash maps an OpenPGP hash algorithm identifier to the stdlib
// crypto.Hash used for RSA PKCS#1v1.5 DigestInfo prefixes.
func CryptoHash(algo openpgp.HashAlgorithm) (crypto.Hash, error) {
	switch algo {
	case openpgp.HashMD5:
		return crypto.MD5, nil
	case openpgp.HashSHA1:
		return crypto.SHA1, nil
	case openpgp.HashRIPEMD160:
		return crypto.RIPEMD160, nil
	case openpgp.HashSHA224:
		return crypto.SHA224, nil
	case openpgp.HashSHA256:
		return crypto.SHA256, nil
	case openpgp.HashSHA384:
		return crypto.SHA384, nil
	case openpgp.HashSHA512:
		return crypto.SHA512, nil
	default:
		return 0, &Error{Code: openpgp.ErrNotSupported, Op: "CryptoHash"}
	}
}

// NewBlockCipher returns a fresh cipher.Block for the given OpenPGP
// symmetric algorithm identifier and key.
func NewBlockCipher(algo openpgp.SymmetricAlgorithm, key []byte) (cipher.Block, error) {
	switch algo {
	case openpgp.CipherAES128, openpgp.CipherAES192, openpgp.CipherAES256:
		return aes.NewCipher(key)
	case openpgp.CipherTripleDES:
		return des.NewTripleDESCipher(key)
	case openpgp.CipherCAST5:
		return cast5.NewCipher(key)
	case openpgp.CipherBlowfish:
		return blowfish.NewCipher(key)
	case openpgp.CipherTwofish:
		return twofish.NewCipher(key)
	default:
		return nil, &Error{Code: openpgp.ErrNotSupported, Op: "NewBlockCipher"}
	}
}

// NewCFBEncrypter and NewCFBDecrypter wrap cipher.NewCFBEncrypter/Decrypter
// so callers never import crypto/cipher directly, keeping the oracle
// boundary total.
func NewCFBEncrypter(block cipher.Block, iv []byte) cipher.Stream {
	return cipher.NewCFBEncrypter(block, iv)
}

func NewCFBDecrypter(block cipher.Block, iv []byte) cipher.Stream {
	return cipher.NewCFBDecrypter(block, iv)
}

// RNG is the CSPRNG oracle: the sole permitted source of nondeterminism
// (spec.md 5), obtained from crypto/rand.Reader by default but overridable
// for deterministic tests.
type RNG struct {
	Reader io.Reader
}

// DefaultRNG uses crypto/rand.Reader.
func DefaultRNG() *RNG { return &RNG{Reader: rand.Reader} }

// GetBytes fills and returns an n-byte slice from the RNG.
func (r *RNG) GetBytes(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(r.Reader, buf); err != nil {
		return nil, &Error{Code: openpgp.ErrRNG, Op: "RNG.GetBytes", Err: err}
	}
	return buf, nil
}
