package pipeline

import (
	"github.com/pgpkit/pgpkit/openpgp"
	"github.com/pgpkit/pgpkit/openpgp/keymodel"
)

// Op names the reason a PasswordProvider or KeyProvider callback is being
// invoked, spec.md 4.I "key-provider and password-provider callback
// interfaces, distinguished by an operation code".
type Op int

const (
	OpDecryptPK Op = iota
	OpDecryptSymmetric
	OpUnlock
	OpProtect
	OpUnprotect
	OpSign
	OpAddUserID
	OpAddSubkey
)

// String names an Op for diagnostics and log lines.
func (o Op) String() string {
	switch o {
	case OpDecryptPK:
		return "decrypt-pk"
	case OpDecryptSymmetric:
		return "decrypt-symmetric"
	case OpUnlock:
		return "unlock"
	case OpProtect:
		return "protect"
	case OpUnprotect:
		return "unprotect"
	case OpSign:
		return "sign"
	case OpAddUserID:
		return "add-userid"
	case OpAddSubkey:
		return "add-subkey"
	default:
		return "unknown"
	}
}

// KeyHandle wraps a key-model Key with the capabilities the pipeline
// needs to drive it through an operation: signing/encryption subkey
// selection and secret-material access once unlocked.
type KeyHandle struct {
	Key *keymodel.Key
}

// PasswordProvider supplies a passphrase for the named operation against
// the given key, spec.md 4.I. Returning ok=false aborts the operation
// with ErrBadPassword; providers may prompt a terminal, read an
// environment variable, or consult an agent.
type PasswordProvider interface {
	GetPassword(op Op, key *keymodel.Key) (password []byte, ok bool)
}

// KeyProvider resolves key material the pipeline needs but was not handed
// directly: a signer's primary key from a key ID, a recipient's public
// key, or a newly generated subkey's home primary, spec.md 4.I.
type KeyProvider interface {
	FindKey(op Op, keyID []byte) (*keymodel.Key, bool)
}

// staticPassword is the trivial PasswordProvider used by callers (and
// tests) that already hold the passphrase.
type staticPassword []byte

func (s staticPassword) GetPassword(Op, *keymodel.Key) ([]byte, bool) { return []byte(s), true }

// StaticPassword returns a PasswordProvider that always yields password,
// regardless of the operation or key it is asked about.
func StaticPassword(password []byte) PasswordProvider { return staticPassword(password) }

// Context bundles the callback providers and default algorithm choices a
// Sign/Verify/Encrypt/Decrypt call draws on, spec.md 4.I "abstract library
// surface": the orchestration-level analogue of rnp_ffi_t.
type Context struct {
	Passwords PasswordProvider
	Keys      KeyProvider

	DefaultHash       openpgp.HashAlgorithm
	DefaultCipher     openpgp.SymmetricAlgorithm
	DefaultCompressor openpgp.CompressionAlgorithm
	S2KIterations     int
}

// NewContext builds a Context with spec.md 4.I's suggested defaults
// (SHA-256, AES-256, ZLIB) which callers may override per field.
func NewContext(passwords PasswordProvider, keys KeyProvider) *Context {
	return &Context{
		Passwords:         passwords,
		Keys:              keys,
		DefaultHash:       openpgp.HashSHA256,
		DefaultCipher:     openpgp.CipherAES256,
		DefaultCompressor: openpgp.CompressionZLIB,
		S2KIterations:     65536,
	}
}

// signingCapableSubkey returns the newest live subkey grip with sign
// capability on k, or k's own grip if k itself can sign and has no
// better-qualified subkey, spec.md 4.I "recipient/signer subkey selection
// preferring the newest live capable subkey".
func signingCapableSubkey(k *keymodel.Key, all *keymodel.Collection) (*keymodel.Key, error) {
	const op = "pipeline.signingCapableSubkey"
	return newestCapable(k, all, func(sub *keymodel.Key) bool {
		return sub.KeyFlags&keyFlagSign != 0 && sub.Public.Algorithm.CanSign()
	}, op)
}

// encryptionCapableSubkey returns the newest live subkey grip with
// encrypt capability on k.
func encryptionCapableSubkey(k *keymodel.Key, all *keymodel.Collection) (*keymodel.Key, error) {
	const op = "pipeline.encryptionCapableSubkey"
	return newestCapable(k, all, func(sub *keymodel.Key) bool {
		return sub.KeyFlags&(keyFlagEncryptComm|keyFlagEncryptStorage) != 0 && sub.Public.Algorithm.CanEncrypt()
	}, op)
}

func newestCapable(primary *keymodel.Key, all *keymodel.Collection, want func(*keymodel.Key) bool, op string) (*keymodel.Key, error) {
	var best *keymodel.Key
	if want(primary) {
		best = primary
	}
	for _, grip := range primary.SubkeyGrips {
		sub, ok := all.ByGrip(grip)
		if !ok || primary.Revoked(-1) || sub.Revoked(-1) {
			continue
		}
		if !want(sub) {
			continue
		}
		if best == nil || newestBindingCreated(sub) > newestBindingCreated(best) {
			best = sub
		}
	}
	if best == nil {
		return nil, &openpgp.Error{Code: openpgp.ErrKeyNotFound, Op: op}
	}
	return best, nil
}

func newestBindingCreated(k *keymodel.Key) int64 {
	var newest int64
	for _, s := range k.SubSigs {
		if s.Sig.Created > newest {
			newest = s.Sig.Created
		}
	}
	return newest
}

const (
	keyFlagCertify        byte = 0x01
	keyFlagSign           byte = 0x02
	keyFlagEncryptComm    byte = 0x04
	keyFlagEncryptStorage byte = 0x08
)
