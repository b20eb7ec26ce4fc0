package keymodel

import (
	"bytes"
	"encoding/hex"
	"regexp"
)

// Collection indexes a set of Keys by grip, keyid, and fingerprint,
// spec.md 4.D: "indices by keyid and grip are maintained incrementally on
// insert and remove." It is the in-memory model searched by keystore.Store
// and by the pipeline's key-provider callbacks.
type Collection struct {
	keys     []*Key
	byGrip   map[Grip]*Key
	byKeyID  map[string]*Key
	byFP     map[string]*Key
}

// NewCollection returns an empty Collection.
func NewCollection() *Collection {
	return &Collection{
		byGrip:  make(map[Grip]*Key),
		byKeyID: make(map[string]*Key),
		byFP:    make(map[string]*Key),
	}
}

// Insert adds k to the collection, merging into an existing entry of the
// same grip per Key.Merge when one is already present (spec.md 4.D
// "Duplicates ... are merged").
func (c *Collection) Insert(k *Key) *Key {
	g := k.Grip()
	if existing, ok := c.byGrip[g]; ok {
		existing.Merge(k)
		return existing
	}
	c.keys = append(c.keys, k)
	c.byGrip[g] = k
	if k.Public != nil {
		c.byKeyID[string(k.Public.KeyID())] = k
		c.byFP[string(k.Public.Fingerprint())] = k
	}
	return k
}

// Remove deletes the key with grip g, dropping it from every index.
func (c *Collection) Remove(g Grip) {
	k, ok := c.byGrip[g]
	if !ok {
		return
	}
	delete(c.byGrip, g)
	if k.Public != nil {
		delete(c.byKeyID, string(k.Public.KeyID()))
		delete(c.byFP, string(k.Public.Fingerprint()))
	}
	for i, x := range c.keys {
		if x == k {
			c.keys = append(c.keys[:i], c.keys[i+1:]...)
			break
		}
	}
}

// All returns every key in the collection, insertion order.
func (c *Collection) All() []*Key { return c.keys }

// ByGrip looks up a key by its exact grip.
func (c *Collection) ByGrip(g Grip) (*Key, bool) {
	k, ok := c.byGrip[g]
	return k, ok
}

// ByKeyIDSuffix matches any key whose keyid ends with suffix (hex, case
// insensitive), spec.md 4.D "(b) keyid suffix matching". All lookups by
// this method are O(n) per spec.md 4.D.
func (c *Collection) ByKeyIDSuffix(suffix string) []*Key {
	suffix = normalizeHex(suffix)
	var out []*Key
	for _, k := range c.keys {
		if k.Public == nil {
			continue
		}
		id := hex.EncodeToString(k.Public.KeyID())
		if len(id) >= len(suffix) && id[len(id)-len(suffix):] == suffix {
			out = append(out, k)
		}
	}
	return out
}

// ByFingerprint matches a key by full fingerprint given as a hex string
// (either case, spaces, tabs and colons ignored), spec.md 4.D "(c)
// fingerprint (full or hex-normalised)". Raw fingerprint bytes are not
// accepted.
func (c *Collection) ByFingerprint(fp string) (*Key, bool) {
	norm := normalizeHex(fp)
	raw, err := hex.DecodeString(norm)
	if err != nil {
		return nil, false
	}
	k, ok := c.byFP[string(raw)]
	return k, ok
}

// ByUserIDLiteral matches any key carrying an exact UID string, spec.md
// 4.D "(d) user-id literal".
func (c *Collection) ByUserIDLiteral(literal string) []*Key {
	var out []*Key
	for _, k := range c.keys {
		for _, u := range k.UIDs {
			if u.UserID != nil && bytes.Equal(u.UserID.ID, []byte(literal)) {
				out = append(out, k)
				break
			}
		}
	}
	return out
}

// ByUserIDRegex matches any key carrying a UID matching re, spec.md 4.D
// "(e) user-id regex".
func (c *Collection) ByUserIDRegex(re *regexp.Regexp) []*Key {
	var out []*Key
	for _, k := range c.keys {
		for _, u := range k.UIDs {
			if u.UserID != nil && re.Match(u.UserID.ID) {
				out = append(out, k)
				break
			}
		}
	}
	return out
}

func normalizeHex(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == ' ' || c == ':' || c == '\t':
			continue
		case c >= 'A' && c <= 'F':
			c = c - 'A' + 'a'
		}
		out = append(out, c)
	}
	return string(out)
}
