package keystore

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/pgpkit/pgpkit/openpgp"
	"github.com/pgpkit/pgpkit/openpgp/keymodel"
)

// Format names one of the three on-disk key-store codecs, spec.md 3
// "KeyStore ... holds a format tag that governs how it is serialised."
type Format int

const (
	FormatUnknown Format = iota
	FormatTransferable
	FormatTransferableArmored
	FormatKeybox
	FormatSExpr
)

// DetectFormat applies spec.md 6's detection heuristic to buf:
//
//	starts with '(' and ends with ')'      -> s-expression
//	bytes 8..12 equal "KBXf"                -> keybox
//	starts with "-----"                     -> armored OpenPGP
//	high bit of first byte set               -> raw OpenPGP
//	otherwise                                -> unknown
func DetectFormat(buf []byte) Format {
	trimmed := bytes.TrimSpace(buf)
	if len(trimmed) > 0 && trimmed[0] == '(' && trimmed[len(trimmed)-1] == ')' {
		return FormatSExpr
	}
	if len(buf) >= 12 && string(buf[8:12]) == keyboxMagic {
		return FormatKeybox
	}
	if bytes.HasPrefix(buf, []byte("-----")) {
		return FormatTransferableArmored
	}
	if len(buf) > 0 && buf[0]&0x80 != 0 {
		return FormatTransferable
	}
	return FormatUnknown
}

// Store is the in-memory container of spec.md 3 "KeyStore": a Collection
// of keys plus the format tag it was loaded from (or will be saved as).
type Store struct {
	Format Format
	Keys   *keymodel.Collection
}

// NewStore returns an empty Store for the given format.
func NewStore(format Format) *Store {
	return &Store{Format: format, Keys: keymodel.NewCollection()}
}

// Load parses buf per DetectFormat (or the Store's already-set Format, if
// not FormatUnknown) and inserts every resulting Key into the collection.
// Only the transferable (raw or armored) and keybox formats are loaded; an
// s-expression or unknown buffer returns ErrBadFormat.
func (s *Store) Load(buf []byte) error {
	const op = "keystore.Store.Load"
	format := s.Format
	if format == FormatUnknown {
		format = DetectFormat(buf)
	}
	var keys []*keymodel.Key
	var err error
	switch format {
	case FormatTransferable:
		keys, err = ReadTransferable(buf)
	case FormatTransferableArmored:
		_, _, data, derr := openpgp.Dearmor(bytes.NewReader(buf))
		if derr != nil {
			return derr
		}
		keys, err = ReadTransferable(data)
	case FormatKeybox:
		keys, err = ReadKeybox(buf)
	default:
		return &openpgp.Error{Code: openpgp.ErrBadFormat, Op: op}
	}
	if err != nil {
		return err
	}
	s.Format = format
	for _, k := range keys {
		s.Keys.Insert(k)
	}
	return nil
}

// Save serializes every key in the collection using the Store's Format.
func (s *Store) Save() ([]byte, error) {
	const op = "keystore.Store.Save"
	keys := s.Keys.All()
	switch s.Format {
	case FormatTransferable:
		return WriteTransferable(keys), nil
	case FormatTransferableArmored:
		return openpgp.Armor(openpgp.FramePublicKey, nil, WriteTransferable(keys)), nil
	case FormatKeybox:
		return WriteKeybox(keys), nil
	default:
		return nil, &openpgp.Error{Code: openpgp.ErrBadFormat, Op: op}
	}
}

// Homedir names the two file locations a default GnuPG-style home
// directory resolves to, spec.md 6 "Default homedir discovery".
type Homedir struct {
	PublicFormat Format
	PublicPath   string
	SecretFormat Format
	SecretPath   string // a directory, for FormatSExpr; a file otherwise
}

// DiscoverHomedir applies spec.md 6's default-homedir discovery rule to
// directory dir, probing for the two recognised directory layouts.
func DiscoverHomedir(dir string) (Homedir, error) {
	const op = "keystore.DiscoverHomedir"
	kbx := filepath.Join(dir, "pubring.kbx")
	skd := filepath.Join(dir, "private-keys-v1.d")
	if exists(kbx) && isDir(skd) {
		return Homedir{
			PublicFormat: FormatKeybox, PublicPath: kbx,
			SecretFormat: FormatSExpr, SecretPath: skd,
		}, nil
	}
	pub := filepath.Join(dir, "pubring.gpg")
	sec := filepath.Join(dir, "secring.gpg")
	if exists(pub) && exists(sec) {
		return Homedir{
			PublicFormat: FormatTransferable, PublicPath: pub,
			SecretFormat: FormatTransferable, SecretPath: sec,
		}, nil
	}
	return Homedir{}, &openpgp.Error{Code: openpgp.ErrKeyNotFound, Op: op}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
