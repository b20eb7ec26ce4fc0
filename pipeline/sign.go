package pipeline

import (
	"bytes"
	"hash"

	"github.com/pgpkit/pgpkit/openpgp"
	"github.com/pgpkit/pgpkit/openpgp/keymodel"
	"github.com/pgpkit/pgpkit/openpgp/protect"
	"github.com/pgpkit/pgpkit/openpgp/sigengine"
)

// SignOp describes a detached or inline sign_data operation, spec.md
// 4.I/6.
type SignOp struct {
	Signer *keymodel.Key // primary key; the newest signing-capable subkey is chosen automatically
	Hash   openpgp.HashAlgorithm
	Text   bool // SigText instead of SigBinary
	Armor  bool
}

// Sign computes a one-pass-signature-capable signature over data and
// returns the standalone signature packet bytes (detached form); callers
// building inline (literal-data-wrapped) messages assemble the one-pass
// and literal packets themselves around this signature.
func Sign(ctx *Context, all *keymodel.Collection, op SignOp, data []byte) ([]byte, error) {
	const errOp = "pipeline.Sign"
	signingKey, err := signingCapableSubkey(op.Signer, all)
	if err != nil {
		return nil, err
	}
	if signingKey.Secret == nil {
		return nil, &openpgp.Error{Code: openpgp.ErrKeyNotFound, Op: errOp}
	}
	sk := signingKey.Secret
	if sk.Locked {
		password, ok := ctx.Passwords.GetPassword(OpSign, op.Signer)
		if !ok {
			return nil, &openpgp.Error{Code: openpgp.ErrBadPassword, Op: errOp}
		}
		if err := protect.Unlock(sk, password); err != nil {
			return nil, err
		}
		defer protect.Lock(sk)
	}
	signer, err := signerFromSecret(sk)
	if err != nil {
		return nil, err
	}

	hashAlgo := op.Hash
	if hashAlgo == 0 {
		hashAlgo = ctx.DefaultHash
	}
	sigType := openpgp.SigBinary
	if op.Text {
		sigType = openpgp.SigText
	}
	req := sigengine.NewRequest{
		Type:     sigType,
		HashAlgo: hashAlgo,
		Created:  sigengine.Now(),
		Issuer:   sk.Public.KeyID(),
	}
	sig := sigengine.Build(sk.Public.Algorithm, req)
	sig, err = sigengine.SignBytes(signer, sig, data)
	if err != nil {
		return nil, err
	}

	wire := packetBytes(openpgp.TagSignature, sig.Emit())
	if op.Armor {
		return openpgp.Armor(openpgp.FrameSignature, nil, wire), nil
	}
	return wire, nil
}

// VerifyOp describes a verify_data operation against a detached
// signature.
type VerifyOp struct {
	Keys KeyProvider
}

// VerifyResult reports the outcome of a single signature verification,
// spec.md 4.I "VerifyResult".
type VerifyResult struct {
	Valid   bool
	KeyID   []byte
	Signer  *keymodel.Key
	SigType openpgp.SignatureType
	Err     error
}

// Verify checks sig (a parsed standalone or one-pass signature) against
// data, resolving the signer via op.Keys; FindKey is expected to return
// the exact key (primary or subkey) whose KeyID matches sig.Issuer.
func Verify(op VerifyOp, data []byte, sig openpgp.Signature) VerifyResult {
	res := VerifyResult{KeyID: sig.Issuer, SigType: sig.Type}
	signerKey, ok := op.Keys.FindKey(OpDecryptPK, sig.Issuer)
	if !ok {
		res.Err = &openpgp.Error{Code: openpgp.ErrKeyNotFound, Op: "pipeline.Verify"}
		return res
	}
	res.Signer = signerKey
	verifier, err := verifierFromPublic(*signerKey.Public)
	if err != nil {
		res.Err = err
		return res
	}
	if err := sigengine.Verify(verifier, sig, func(h hash.Hash) {
		h.Write(data)
	}); err != nil {
		res.Err = err
		return res
	}
	res.Valid = true
	return res
}

// VerifyWithCollection resolves sig's issuer key ID against all (checking
// both primary and subkey key IDs) before delegating to Verify, the form
// most callers use since a signature's issuer is often a subkey.
func VerifyWithCollection(all *keymodel.Collection, data []byte, sig openpgp.Signature) VerifyResult {
	res := VerifyResult{KeyID: sig.Issuer, SigType: sig.Type}
	for _, k := range all.All() {
		if bytes.Equal(k.Public.KeyID(), sig.Issuer) {
			res.Signer = k
			break
		}
	}
	if res.Signer == nil {
		res.Err = &openpgp.Error{Code: openpgp.ErrKeyNotFound, Op: "pipeline.VerifyWithCollection"}
		return res
	}
	verifier, err := verifierFromPublic(*res.Signer.Public)
	if err != nil {
		res.Err = err
		return res
	}
	if err := sigengine.Verify(verifier, sig, func(h hash.Hash) {
		h.Write(data)
	}); err != nil {
		res.Err = err
		return res
	}
	res.Valid = true
	return res
}

func packetBytes(tag openpgp.Tag, body []byte) []byte {
	p := openpgp.Packet{Tag: tag, Body: body}
	return p.Bytes()
}
