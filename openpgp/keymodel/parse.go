package keymodel

import (
	"github.com/pgpkit/pgpkit/openpgp"
)

// ParseTransferable builds one primary Key and its subkeys from a flat
// packet sequence in the transferable-key wire order (spec.md 3
// "Transferable"), following the C++ key-store parser's grouping (spec.md
// 9 Open Question resolution, SPEC_FULL.md "keystore's transferable-format
// reader follows the C++ parsing order"): primary, then its direct
// signatures, then each UID with its signatures, then each subkey with its
// binding signature.
//
// It returns the primary Key and any subkeys as separate Keys linked by
// grip, matching spec.md 9's "by-identity, not by-pointer" redesign.
func ParseTransferable(packets []openpgp.Packet) (primary *Key, subkeys []*Key, err error) {
	const op = "keymodel.ParseTransferable"
	if len(packets) == 0 {
		return nil, nil, &openpgp.Error{Code: openpgp.ErrBadFormat, Op: op}
	}

	i := 0
	primary, i, err = parsePrimary(packets, i)
	if err != nil {
		return nil, nil, err
	}
	primaryGrip := primary.Grip()

	// Direct signatures over the primary key (UserID-less certifications,
	// direct-key signatures, whole-key revocations) precede the first UID.
	for i < len(packets) && packets[i].Tag == openpgp.TagSignature {
		sig, err := openpgp.ParseSignature(packets[i].Body)
		if err != nil {
			return nil, nil, err
		}
		recordSig(primary, -1, sig)
		primary.PacketCache = append(primary.PacketCache, packets[i].Body)
		i++
	}

	for i < len(packets) && (packets[i].Tag == openpgp.TagUserID || packets[i].Tag == openpgp.TagUserAttribute) {
		var entry UIDEntry
		if packets[i].Tag == openpgp.TagUserID {
			entry.UserID = &openpgp.UserID{ID: append([]byte(nil), packets[i].Body...)}
		} else {
			entry.Attribute = &openpgp.UserAttribute{Packets: append([]byte(nil), packets[i].Body...)}
		}
		primary.PacketCache = append(primary.PacketCache, packets[i].Body)
		uidIdx := len(primary.UIDs)
		primary.UIDs = append(primary.UIDs, entry)
		i++
		for i < len(packets) && packets[i].Tag == openpgp.TagSignature {
			sig, err := openpgp.ParseSignature(packets[i].Body)
			if err != nil {
				return nil, nil, err
			}
			recordSig(primary, uidIdx, sig)
			if sig.PrimaryUserID {
				primary.PrimaryUID = uidIdx
			}
			primary.PacketCache = append(primary.PacketCache, packets[i].Body)
			i++
		}
	}
	primary.RefreshPreferences()

	for i < len(packets) && (packets[i].Tag == openpgp.TagPublicSubkey || packets[i].Tag == openpgp.TagSecretSubkey) {
		sub := &Key{IsSubkey: true, PrimaryGrip: primaryGrip}
		if packets[i].Tag == openpgp.TagPublicSubkey {
			pub, err := openpgp.ParsePublicKey(packets[i].Body)
			if err != nil {
				return nil, nil, err
			}
			sub.Public = &pub
		} else {
			sk, err := openpgp.ParseSecretKey(packets[i].Body)
			if err != nil {
				return nil, nil, err
			}
			sub.Public = &sk.Public
			sub.Secret = &sk
		}
		sub.PacketCache = append(sub.PacketCache, packets[i].Body)
		i++
		for i < len(packets) && packets[i].Tag == openpgp.TagSignature {
			sig, err := openpgp.ParseSignature(packets[i].Body)
			if err != nil {
				return nil, nil, err
			}
			recordSig(sub, -1, sig)
			sub.PacketCache = append(sub.PacketCache, packets[i].Body)
			i++
		}
		sub.RefreshPreferences()
		primary.SubkeyGrips = append(primary.SubkeyGrips, sub.Grip())
		subkeys = append(subkeys, sub)
	}

	return primary, subkeys, nil
}

func parsePrimary(packets []openpgp.Packet, i int) (*Key, int, error) {
	const op = "keymodel.parsePrimary"
	p := packets[i]
	k := &Key{PrimaryUID: -1}
	switch p.Tag {
	case openpgp.TagPublicKey:
		pub, err := openpgp.ParsePublicKey(p.Body)
		if err != nil {
			return nil, i, err
		}
		k.Public = &pub
	case openpgp.TagSecretKey:
		sk, err := openpgp.ParseSecretKey(p.Body)
		if err != nil {
			return nil, i, err
		}
		k.Public = &sk.Public
		k.Secret = &sk
	default:
		return nil, i, &openpgp.Error{Code: openpgp.ErrBadFormat, Op: op}
	}
	k.PacketCache = append(k.PacketCache, p.Body)
	return k, i + 1, nil
}

func recordSig(k *Key, uidIdx int, sig openpgp.Signature) {
	k.SubSigs = append(k.SubSigs, SubSig{Sig: sig, UIDIdx: uidIdx})
	if sig.RevocationCode != 0 || isRevocationType(sig.Type) {
		k.Revocations = append(k.Revocations, Revocation{
			UIDIdx: uidIdx,
			Sig:    sig,
			Reason: RevocationReason{Code: sig.RevocationCode, Text: sig.RevocationText},
		})
	}
}

func isRevocationType(t openpgp.SignatureType) bool {
	switch t {
	case openpgp.SigKeyRevocation, openpgp.SigSubkeyRevocation, openpgp.SigCertRevocation:
		return true
	}
	return false
}

// Emit serializes k (and, if subkeys is non-nil, appends them) back into a
// transferable-key packet sequence. It re-serializes structurally (each
// packet's typed fields, not PacketCache's raw bytes) so byte-identical
// round-tripping holds only when nothing about the key was edited since
// parsing; PacketCache exists for callers that need the original bytes of
// an unmodified key verbatim, spec.md 3 "opaque packet cache".
func Emit(primary *Key, subkeys []*Key) []byte {
	var out []byte
	out = append(out, emitKeyPackets(primary, primaryTag(primary))...)
	for _, sub := range subkeys {
		out = append(out, emitKeyPackets(sub, subkeyTag(sub))...)
	}
	return out
}

func primaryTag(k *Key) openpgp.Tag {
	if k.Secret != nil {
		return openpgp.TagSecretKey
	}
	return openpgp.TagPublicKey
}

func subkeyTag(k *Key) openpgp.Tag {
	if k.Secret != nil {
		return openpgp.TagSecretSubkey
	}
	return openpgp.TagPublicSubkey
}

func emitKeyPackets(k *Key, tag openpgp.Tag) []byte {
	var out []byte
	var keyBody []byte
	if k.Secret != nil {
		keyBody = k.Secret.Emit()
	} else {
		keyBody = k.Public.Emit()
	}
	out = append(out, (openpgp.Packet{Tag: tag, Body: keyBody}).Bytes()...)
	for _, s := range k.SubSigs {
		if s.UIDIdx != -1 {
			continue
		}
		out = append(out, (openpgp.Packet{Tag: openpgp.TagSignature, Body: s.Sig.Emit()}).Bytes()...)
	}
	for idx, u := range k.UIDs {
		if u.UserID != nil {
			out = append(out, (openpgp.Packet{Tag: openpgp.TagUserID, Body: u.UserID.ID}).Bytes()...)
		} else if u.Attribute != nil {
			out = append(out, (openpgp.Packet{Tag: openpgp.TagUserAttribute, Body: u.Attribute.Packets}).Bytes()...)
		}
		for _, s := range k.SubSigs {
			if s.UIDIdx == idx {
				out = append(out, (openpgp.Packet{Tag: openpgp.TagSignature, Body: s.Sig.Emit()}).Bytes()...)
			}
		}
	}
	return out
}
