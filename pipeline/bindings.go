package pipeline

import (
	"github.com/pgpkit/pgpkit/openpgp"
	"github.com/pgpkit/pgpkit/openpgp/keymodel"
	"github.com/pgpkit/pgpkit/openpgp/sigengine"
)

// VerifySubkeyBindings checks spec.md 3's invariant that every subkey in
// subkeys carries a subkey-binding signature that self-verifies against
// primary. It returns ErrSignatureInvalid at the first subkey that has no
// such signature.
func VerifySubkeyBindings(primary *keymodel.Key, subkeys []*keymodel.Key) error {
	const op = "pipeline.VerifySubkeyBindings"
	if primary == nil || primary.Public == nil {
		return &openpgp.Error{Code: openpgp.ErrBadParameters, Op: op}
	}
	verifier, err := verifierFromPublic(*primary.Public)
	if err != nil {
		return err
	}
	for _, sub := range subkeys {
		if sub == nil || sub.Public == nil {
			return &openpgp.Error{Code: openpgp.ErrBadParameters, Op: op}
		}
		bound := false
		for _, s := range sub.SubSigs {
			if s.Sig.Type != openpgp.SigSubkeyBinding {
				continue
			}
			if err := sigengine.VerifyBinding(verifier, s.Sig, *primary.Public, *sub.Public); err == nil {
				bound = true
				break
			}
		}
		if !bound {
			return &openpgp.Error{Code: openpgp.ErrSignatureInvalid, Op: op}
		}
	}
	return nil
}

// VerifyCollectionBindings runs VerifySubkeyBindings over every subkey in
// all against the primary its PrimaryGrip names, spec.md 3. It returns the
// first failure; callers that load keys from an untrusted store (spec.md
// 4.E) should call this after Load and treat a non-nil result as grounds
// to distrust that subkey rather than silently accepting it as bound.
func VerifyCollectionBindings(all *keymodel.Collection) error {
	const op = "pipeline.VerifyCollectionBindings"
	for _, sub := range all.All() {
		if !sub.IsSubkey {
			continue
		}
		primary, ok := all.ByGrip(sub.PrimaryGrip)
		if !ok {
			return &openpgp.Error{Code: openpgp.ErrKeyNotFound, Op: op}
		}
		if err := VerifySubkeyBindings(primary, []*keymodel.Key{sub}); err != nil {
			return err
		}
	}
	return nil
}
