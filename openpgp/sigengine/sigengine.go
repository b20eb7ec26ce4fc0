// Package sigengine builds the OpenPGP signed-data buffer and computes and
// verifies signatures over keys, user IDs, and arbitrary data, spec.md
// 4.G. It generalizes the teacher's sign()/Certify()/Bind()/SelfSign()
// helpers in nullprogram.com/x/passphrase2pgp/openpgp, which hard-coded a
// single EdDSA/SHA-256 signer, to the full algorithm matrix.
package sigengine

import (
	"crypto/dsa" //nolint:staticcheck
	"crypto/ecdsa"
	"crypto/rsa"
	"hash"
	"math/big"

	"golang.org/x/crypto/ed25519"

	"github.com/pgpkit/pgpkit/openpgp"
	"github.com/pgpkit/pgpkit/openpgp/oracle"
)

// Signer bundles the private material sigengine needs; the pipeline
// resolves one of these from a locked/unlocked secret key.
type Signer struct {
	Public   openpgp.PublicKey
	RSA      *rsa.PrivateKey
	DSA      *dsa.PrivateKey
	ECDSA    *ecdsa.PrivateKey
	Ed25519  ed25519.PrivateKey
}

// hashKey appends a V4 key's canonical hash preimage (0x99||BE16(len)||body)
// to h, or the V3 form (MPI(n)||MPI(e)) for legacy RSA keys, spec.md 4.G.
func hashKey(h hash.Hash, pk openpgp.PublicKey) {
	if pk.Version == 3 {
		h.Write(mpiBytes(pk.Params[0]))
		h.Write(mpiBytes(pk.Params[1]))
		return
	}
	body := pk.Emit()
	h.Write([]byte{0x99})
	h.Write(be16(uint16(len(body))))
	h.Write(body)
}

func mpiBytes(n *big.Int) []byte {
	b := n.Bytes()
	bits := n.BitLen()
	out := append(be16(uint16(bits)), b...)
	return out
}

func be16(v uint16) []byte { return []byte{byte(v >> 8), byte(v)} }

// hashUserID appends a UID's certification preimage to h: 0xB4||BE32(len)||bytes.
func hashUserID(h hash.Hash, uid []byte) {
	h.Write([]byte{0xB4})
	h.Write(be32(uint32(len(uid))))
	h.Write(uid)
}

func be32(v uint32) []byte {
	return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}

// trailer appends the V4 signature trailer: the signature version/type/
// pubalgo/hashalgo header, the hashed-subpacket area (with its length
// prefix), then 04 FF BE32(preceding octet count). The count covers the
// 4-octet header plus the hashed-subpacket area, RFC 4880 §5.2.4 — not
// just the hashed area by itself. spec.md 4.G.
func trailer(h hash.Hash, sig openpgp.Signature) {
	h.Write([]byte{4, byte(sig.Type), byte(sig.PubAlgo), byte(sig.HashAlgo)})
	h.Write(sig.HashedArea)
	h.Write([]byte{4, 0xFF})
	h.Write(be32(uint32(len(sig.HashedArea) + 4)))
}

// DigestFor computes the signed-data digest for sig over the given entity
// bytes, which the caller must have already assembled according to sig's
// Type (key||key, key||userid, key||subkey, or literal data body).
func DigestFor(sig openpgp.Signature, preimage func(h hash.Hash)) ([]byte, error) {
	h, err := oracle.NewHash(sig.HashAlgo)
	if err != nil {
		return nil, err
	}
	preimage(h)
	trailer(h, sig)
	return h.Sum(nil), nil
}

// reducedForGroupOrder left-truncates digest to bitlen bits, RFC 4880bis
// 5.2.2, used for DSA/ECDSA where the hash may be wider than the group
// order (e.g. SHA-512 over P-256).
func reducedForGroupOrder(digest []byte, bitlen int) *big.Int {
	n := new(big.Int).SetBytes(digest)
	if excess := n.BitLen() - bitlen; excess > 0 {
		n.Rsh(n, uint(excess))
	}
	return n
}
