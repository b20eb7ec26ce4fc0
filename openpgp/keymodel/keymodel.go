// Package keymodel presents the Key/UserID/Signature aggregates of spec.md
// 3-4.D over the raw packet types in package openpgp: subkey/primary
// linkage by grip rather than by pointer (spec.md 9 "Cyclic primary<->subkey
// references"), revocation tracking, and an opaque packet cache holding the
// verbatim bytes each key was parsed from.
package keymodel

import (
	"crypto/sha1"

	"github.com/pgpkit/pgpkit/openpgp"
)

// Grip is a 20-octet algorithm-independent identifier over a key's public
// material, distinct from the fingerprint because it ignores key version
// and creation-time framing, spec.md 3 "Grip".
type Grip [20]byte

// ComputeGrip hashes pub's algorithm-specific public parameters, omitting
// version and timestamp, so that the same logical key produces the same
// grip whether parsed as V3 or V4, or from a public or secret packet.
func ComputeGrip(pub openpgp.PublicKey) Grip {
	h := sha1.New()
	h.Write([]byte{byte(pub.Algorithm)})
	for _, p := range pub.Params {
		writeCanonical(h, p.Bytes())
	}
	if pub.Curve != openpgp.CurveNone {
		oid := pub.Curve.OID()
		writeCanonical(h, oid)
	}
	if len(pub.Point) > 0 {
		writeCanonical(h, pub.Point)
	}
	var g Grip
	copy(g[:], h.Sum(nil))
	return g
}

func writeCanonical(h interface{ Write([]byte) (int, error) }, b []byte) {
	n := len(b)
	h.Write([]byte{byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)})
	h.Write(b)
}

// UIDEntry is a user-id or user-attribute attached to a Key, in insertion order.
type UIDEntry struct {
	UserID    *openpgp.UserID
	Attribute *openpgp.UserAttribute
}

// SubSig is a signature attached to a Key, tagged with which UID (by index
// into UIDs) it covers, or -1 when it covers the key directly, spec.md 3
// "subsig list".
type SubSig struct {
	Sig     openpgp.Signature
	UIDIdx  int // -1 for a direct/binding signature over the key itself
}

// Revocation records a whole-key or per-UID revocation, spec.md 3 and the
// restored rnp revocation-reason-text feature (SPEC_FULL.md "Supplemented
// Features").
type Revocation struct {
	UIDIdx int // -1 for a whole-key revocation
	Sig    openpgp.Signature
	Reason RevocationReason
}

// RevocationReason carries the machine code and human text rnp's
// librekey surfaces from the revocation-reason subpacket.
type RevocationReason struct {
	Code byte
	Text string
}

// Key is a graph rooted at a primary public (and optionally secret) key,
// spec.md 3 "Key".
type Key struct {
	Public *openpgp.PublicKey
	Secret *openpgp.SecretKey // nil when only the public half is known

	UIDs        []UIDEntry
	PrimaryUID  int // index into UIDs, or -1 if none marked
	SubSigs     []SubSig
	Revocations []Revocation

	// IsSubkey reports whether this Key is a subkey; PrimaryGrip then names
	// its primary. Primaries instead carry SubkeyGrips.
	IsSubkey     bool
	PrimaryGrip  Grip
	SubkeyGrips  []Grip

	// Cached resolved preferences (rnp pgp-key.c habit, restored per
	// SPEC_FULL.md): derived from the most recent self-signature's
	// preference subpackets, refreshed by RefreshPreferences.
	KeyFlags           byte
	PreferredSymmetric []openpgp.SymmetricAlgorithm
	PreferredHash      []openpgp.HashAlgorithm
	PreferredCompress  []openpgp.CompressionAlgorithm

	// PacketCache holds the verbatim bytes of every packet that constituted
	// this key on the wire, spec.md 3 "opaque packet cache". Emit does not
	// read it: re-emission always re-serializes the typed fields.
	PacketCache [][]byte
}

// Grip returns the key's grip, computed from its public material.
func (k *Key) Grip() Grip {
	if k.Public == nil {
		return Grip{}
	}
	return ComputeGrip(*k.Public)
}

// AddUserID appends a new UID entry to the key (spec.md 4.D's "add-userid"
// pipeline operation's model-level counterpart); the caller is responsible
// for producing and attaching the accompanying self-certification via
// package sigengine.
func (k *Key) AddUserID(id []byte) int {
	k.UIDs = append(k.UIDs, UIDEntry{UserID: &openpgp.UserID{ID: id}})
	return len(k.UIDs) - 1
}

// RefreshPreferences recomputes the cached preference fields from the
// newest signature in SubSigs, mirroring rnp's habit of caching resolved
// preferences on the key object for fast recipient/signer selection
// (SPEC_FULL.md Supplemented Features). It does not check the issuer and
// does not restrict the choice to the primary UID: a direct signature or a
// signature over any UID can be the one selected.
func (k *Key) RefreshPreferences() {
	var newest *openpgp.Signature
	for i := range k.SubSigs {
		s := &k.SubSigs[i].Sig
		if newest == nil || s.Created > newest.Created {
			newest = s
		}
	}
	if newest == nil {
		return
	}
	k.KeyFlags = newest.KeyFlags
	for _, area := range [2][]openpgp.Subpacket{newest.Hashed, newest.Unhashed} {
		for _, sp := range area {
			switch sp.Type {
			case openpgp.SubPreferredSymmetric:
				k.PreferredSymmetric = nil
				for _, b := range sp.Data {
					k.PreferredSymmetric = append(k.PreferredSymmetric, openpgp.SymmetricAlgorithm(b))
				}
			case openpgp.SubPreferredHash:
				k.PreferredHash = nil
				for _, b := range sp.Data {
					k.PreferredHash = append(k.PreferredHash, openpgp.HashAlgorithm(b))
				}
			case openpgp.SubPreferredCompress:
				k.PreferredCompress = nil
				for _, b := range sp.Data {
					k.PreferredCompress = append(k.PreferredCompress, openpgp.CompressionAlgorithm(b))
				}
			}
		}
	}
}

// Revoked reports whether the key itself (uidIdx < 0) or a specific UID is
// covered by a revocation, spec.md 3: "treat the affected entity as
// revoked but do not delete it."
func (k *Key) Revoked(uidIdx int) bool {
	for _, r := range k.Revocations {
		if r.UIDIdx == uidIdx {
			return true
		}
	}
	return false
}

// Merge unions another parse of the same logical key (same grip) into k,
// spec.md 4.D: "the incoming signatures, UIDs, and opaque packet cache are
// unioned into the existing entry; no secret material is silently replaced
// by public material or vice versa."
func (k *Key) Merge(other *Key) {
	if k.Secret == nil && other.Secret != nil {
		k.Secret = other.Secret
	}
	existingUID := make(map[string]int, len(k.UIDs))
	for i, u := range k.UIDs {
		if u.UserID != nil {
			existingUID[string(u.UserID.ID)] = i
		}
	}
	uidMap := make([]int, len(other.UIDs))
	for i, u := range other.UIDs {
		if u.UserID != nil {
			if j, ok := existingUID[string(u.UserID.ID)]; ok {
				uidMap[i] = j
				continue
			}
		}
		uidMap[i] = len(k.UIDs)
		k.UIDs = append(k.UIDs, u)
	}
	for _, s := range other.SubSigs {
		idx := s.UIDIdx
		if idx >= 0 && idx < len(uidMap) {
			idx = uidMap[idx]
		}
		if !hasSig(k.SubSigs, s.Sig) {
			k.SubSigs = append(k.SubSigs, SubSig{Sig: s.Sig, UIDIdx: idx})
		}
	}
	for _, r := range other.Revocations {
		if r.UIDIdx >= 0 && r.UIDIdx < len(uidMap) {
			r.UIDIdx = uidMap[r.UIDIdx]
		}
		k.Revocations = append(k.Revocations, r)
	}
	k.PacketCache = append(k.PacketCache, other.PacketCache...)
	for _, g := range other.SubkeyGrips {
		if !hasGrip(k.SubkeyGrips, g) {
			k.SubkeyGrips = append(k.SubkeyGrips, g)
		}
	}
}

func hasSig(sigs []SubSig, sig openpgp.Signature) bool {
	for _, s := range sigs {
		if string(s.Sig.Emit()) == string(sig.Emit()) {
			return true
		}
	}
	return false
}

func hasGrip(grips []Grip, g Grip) bool {
	for _, x := range grips {
		if x == g {
			return true
		}
	}
	return false
}
