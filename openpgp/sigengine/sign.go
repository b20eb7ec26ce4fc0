package sigengine

import (
	"hash"
	"math/big"
	"time"

	"github.com/pgpkit/pgpkit/openpgp"
	"github.com/pgpkit/pgpkit/openpgp/oracle"
)

// NewRequest describes one signature to be produced; the four
// computations named in spec.md 4.G (sign_certification, sign_binding,
// sign_direct, sign_data) are thin callers of Build+Sign with different
// preimage functions.
type NewRequest struct {
	Type       openpgp.SignatureType
	HashAlgo   openpgp.HashAlgorithm
	Created    int64
	Expiration int64 // 0 = never
	KeyFlags   byte
	Issuer     []byte // signer's key ID
	ExtraHashed   []openpgp.Subpacket
	ExtraUnhashed []openpgp.Subpacket
}

// Build assembles an unsigned V4 Signature (hashed area finalized,
// material still empty) from req.
func Build(signerAlgo openpgp.PublicKeyAlgorithm, req NewRequest) openpgp.Signature {
	hashed := []openpgp.Subpacket{
		{Type: openpgp.SubCreationTime, Hashed: true, Data: be32(uint32(req.Created))},
	}
	if req.Expiration != 0 {
		hashed = append(hashed, openpgp.Subpacket{
			Type: openpgp.SubKeyExpiry, Hashed: true,
			Data: be32(uint32(req.Expiration)),
		})
	}
	if req.KeyFlags != 0 {
		hashed = append(hashed, openpgp.Subpacket{Type: openpgp.SubKeyFlags, Hashed: true, Data: []byte{req.KeyFlags}})
	}
	hashed = append(hashed, req.ExtraHashed...)

	unhashed := []openpgp.Subpacket{
		{Type: openpgp.SubIssuer, Data: req.Issuer},
	}
	unhashed = append(unhashed, req.ExtraUnhashed...)

	sig := openpgp.Signature{
		Version:  4,
		Type:     req.Type,
		PubAlgo:  signerAlgo,
		HashAlgo: req.HashAlgo,
		Hashed:   hashed,
		Unhashed: unhashed,
		Created:  req.Created,
		Expiration: req.Expiration,
		Issuer:   req.Issuer,
	}
	sig.HashedArea = emitSubpacketArea(hashed)
	return sig
}

func emitSubpacketArea(subs []openpgp.Subpacket) []byte {
	var body []byte
	for _, s := range subs {
		body = s.Emit(body)
	}
	out := make([]byte, 2, 2+len(body))
	out[0] = byte(len(body) >> 8)
	out[1] = byte(len(body))
	return append(out, body...)
}

// SignData computes digest over preimage+trailer and fills sig's
// material and hash preview from signer. signer's Public.Version must be
// 4; spec.md 9 Open Questions resolves that V3 keys are refused for any
// new certification or signing operation.
func SignData(signer Signer, sig openpgp.Signature, preimage func(h hash.Hash)) (openpgp.Signature, error) {
	const op = "sigengine.SignData"
	if signer.Public.Version != 4 {
		return openpgp.Signature{}, &openpgp.Error{Code: openpgp.ErrBadParameters, Op: op}
	}
	digest, err := DigestFor(sig, preimage)
	if err != nil {
		return openpgp.Signature{}, err
	}
	sig.HashPreview[0], sig.HashPreview[1] = digest[0], digest[1]

	switch sig.PubAlgo {
	case openpgp.PubKeyRSA, openpgp.PubKeyRSASignOnly:
		s, err := oracle.RSASignPKCS1v15(signer.RSA, sig.HashAlgo, digest)
		if err != nil {
			return openpgp.Signature{}, err
		}
		sig.Sig = new(big.Int).SetBytes(s)
	case openpgp.PubKeyDSA:
		r, s, err := oracle.DSASign(signer.DSA, reducedForGroupOrder(digest, signer.DSA.Q.BitLen()).Bytes())
		if err != nil {
			return openpgp.Signature{}, err
		}
		sig.R, sig.S = r, s
	case openpgp.PubKeyECDSA:
		bitlen := signer.ECDSA.Curve.Params().N.BitLen()
		r, s, err := oracle.ECDSASign(signer.ECDSA, reducedForGroupOrder(digest, bitlen).Bytes())
		if err != nil {
			return openpgp.Signature{}, err
		}
		sig.R, sig.S = r, s
	case openpgp.PubKeyEdDSA:
		sig.EdDSASig = oracle.EdDSASign(signer.Ed25519, digest)
	default:
		return openpgp.Signature{}, &openpgp.Error{Code: openpgp.ErrNotSupported, Op: op}
	}
	return sig, nil
}

// SignCertification computes sign_certification(uid, primary): a
// certification signature by primary over (primary key || user ID).
func SignCertification(signer Signer, sig openpgp.Signature, primary openpgp.PublicKey, uid []byte) (openpgp.Signature, error) {
	return SignData(signer, sig, func(h hash.Hash) {
		hashKey(h, primary)
		hashUserID(h, uid)
	})
}

// SignBinding computes sign_binding(primary, subkey): a subkey binding
// signature by primary over (primary key || subkey).
func SignBinding(signer Signer, sig openpgp.Signature, primary, subkey openpgp.PublicKey) (openpgp.Signature, error) {
	return SignData(signer, sig, func(h hash.Hash) {
		hashKey(h, primary)
		hashKey(h, subkey)
	})
}

// SignDirect computes sign_direct(key): a direct-key signature over the
// key alone.
func SignDirect(signer Signer, sig openpgp.Signature, key openpgp.PublicKey) (openpgp.Signature, error) {
	return SignData(signer, sig, func(h hash.Hash) {
		hashKey(h, key)
	})
}

// SignBytes computes sign_data(bytes): a signature over an arbitrary byte
// buffer (binary- or text-document signature type).
func SignBytes(signer Signer, sig openpgp.Signature, data []byte) (openpgp.Signature, error) {
	return SignData(signer, sig, func(h hash.Hash) {
		h.Write(data)
	})
}

// Now returns the current time in unix-seconds; callers needing
// determinism pass an explicit Created via NewRequest instead.
func Now() int64 { return time.Now().Unix() }
