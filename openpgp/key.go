package openpgp

import (
	"bytes"
	"crypto/md5"
	"crypto/sha1"
	"math/big"
)

// PublicKey is the parsed public portion of a primary key or subkey,
// spec.md 3 "PublicKey". Version 4 keys retain the exact bytes of their
// public body (Raw) so the fingerprint can be recomputed byte-identically
// and the key re-emitted without lossy re-serialization, spec.md 9.
type PublicKey struct {
	Version     int // 3 or 4
	Created     int64
	V3ExpireDays uint16 // V3 only; V4 expiration lives in a self-signature
	Algorithm   PublicKeyAlgorithm
	Curve       Curve

	// Generic numeric material, algorithm-specific order:
	//   RSA:      N, E
	//   DSA:      P, Q, G, Y
	//   ElGamal:  P, G, Y
	Params []*big.Int

	// EC point material for ECDSA/EdDSA/ECDH/SM2 (the raw MPI-wrapped
	// point octets, 0x04/0x40-prefixed per RFC 6637 6).
	Point []byte

	// ECDH KDF parameters, RFC 6637 8.
	KDFHash   HashAlgorithm
	KDFCipher SymmetricAlgorithm

	Raw []byte // exact serialized public body, V4 only
}

// ParsePublicKey decodes a public-key (or public-subkey) packet body.
func ParsePublicKey(body []byte) (PublicKey, error) {
	const op = "ParsePublicKey"
	if len(body) < 6 {
		return PublicKey{}, newErr(op, ErrNotEnoughData)
	}
	var pk PublicKey
	pk.Raw = append([]byte(nil), body...)
	switch body[0] {
	case 3:
		if len(body) < 8 {
			return PublicKey{}, newErr(op, ErrNotEnoughData)
		}
		pk.Version = 3
		pk.Created = int64(be32(body[1:5]))
		pk.V3ExpireDays = be16(body[5:7])
		pk.Algorithm = PublicKeyAlgorithm(body[7])
		rest := body[8:]
		n, rest := mpiDecodeBig(rest)
		e, _ := mpiDecodeBig(rest)
		if n == nil || e == nil {
			return PublicKey{}, newErr(op, ErrBadFormat)
		}
		pk.Params = []*big.Int{n, e}
		return pk, nil
	case 4:
		pk.Version = 4
		pk.Created = int64(be32(body[1:5]))
		pk.Algorithm = PublicKeyAlgorithm(body[5])
		rest := body[6:]
		return parseV4Material(pk, rest, op)
	default:
		return PublicKey{}, newErr(op, ErrBadFormat)
	}
}

func parseV4Material(pk PublicKey, rest []byte, op string) (PublicKey, error) {
	switch pk.Algorithm {
	case PubKeyRSA, PubKeyRSAEncryptOnly, PubKeyRSASignOnly:
		n, rest2 := mpiDecodeBig(rest)
		e, _ := mpiDecodeBig(rest2)
		if n == nil || e == nil {
			return PublicKey{}, newErr(op, ErrBadFormat)
		}
		pk.Params = []*big.Int{n, e}
	case PubKeyDSA:
		p, r1 := mpiDecodeBig(rest)
		q, r2 := mpiDecodeBig(r1)
		g, r3 := mpiDecodeBig(r2)
		y, _ := mpiDecodeBig(r3)
		if p == nil || q == nil || g == nil || y == nil {
			return PublicKey{}, newErr(op, ErrBadFormat)
		}
		pk.Params = []*big.Int{p, q, g, y}
	case PubKeyElGamal:
		p, r1 := mpiDecodeBig(rest)
		g, r2 := mpiDecodeBig(r1)
		y, _ := mpiDecodeBig(r2)
		if p == nil || g == nil || y == nil {
			return PublicKey{}, newErr(op, ErrBadFormat)
		}
		pk.Params = []*big.Int{p, g, y}
	case PubKeyECDSA, PubKeyEdDSA, PubKeySM2:
		curve, r1, err := parseOID(rest)
		if err != nil {
			return PublicKey{}, err
		}
		pk.Curve = curve
		point, _ := mpiDecode(r1, maxMPIBytes)
		if point == nil {
			return PublicKey{}, newErr(op, ErrBadFormat)
		}
		pk.Point = point
	case PubKeyECDH:
		curve, r1, err := parseOID(rest)
		if err != nil {
			return PublicKey{}, err
		}
		pk.Curve = curve
		point, r2 := mpiDecode(r1, maxMPIBytes)
		if point == nil {
			return PublicKey{}, newErr(op, ErrBadFormat)
		}
		pk.Point = point
		if len(r2) < 4 || r2[0] != 3 {
			return PublicKey{}, newErr(op, ErrBadFormat)
		}
		pk.KDFHash = HashAlgorithm(r2[2])
		pk.KDFCipher = SymmetricAlgorithm(r2[3])
	default:
		return PublicKey{}, newErr(op, ErrNotSupported)
	}
	return pk, nil
}

func parseOID(buf []byte) (Curve, []byte, error) {
	const op = "parseOID"
	if len(buf) < 1 {
		return 0, nil, newErr(op, ErrNotEnoughData)
	}
	n := int(buf[0])
	if n == 0 || n == 0xFF || len(buf) < 1+n {
		return 0, nil, newErr(op, ErrBadFormat)
	}
	oid := buf[1 : 1+n]
	for c, info := range curveTable {
		if bytes.Equal(info.oid, oid) {
			return c, buf[1+n:], nil
		}
	}
	return CurveNone, buf[1+n:], nil // unknown curve: keep OID bytes on the key if ever needed
}

// serializeMaterial renders the algorithm-specific public material following
// the version+created+algorithm header, i.e. the body of a V4 public-key
// packet from byte 6 onward.
func (pk PublicKey) serializeMaterial() []byte {
	var out []byte
	switch pk.Algorithm {
	case PubKeyRSA, PubKeyRSAEncryptOnly, PubKeyRSASignOnly:
		out = append(out, mpiBig(pk.Params[0])...)
		out = append(out, mpiBig(pk.Params[1])...)
	case PubKeyDSA:
		for _, p := range pk.Params {
			out = append(out, mpiBig(p)...)
		}
	case PubKeyElGamal:
		for _, p := range pk.Params {
			out = append(out, mpiBig(p)...)
		}
	case PubKeyECDSA, PubKeyEdDSA, PubKeySM2:
		oid := pk.Curve.OID()
		out = append(out, byte(len(oid)))
		out = append(out, oid...)
		out = append(out, mpi(pk.Point)...)
	case PubKeyECDH:
		oid := pk.Curve.OID()
		out = append(out, byte(len(oid)))
		out = append(out, oid...)
		out = append(out, mpi(pk.Point)...)
		out = append(out, 3, 1, byte(pk.KDFHash), byte(pk.KDFCipher))
	}
	return out
}

// Emit serializes pk as a standalone public-key-packet body (without the
// outer packet tag/length): a V3 body for Version 3, a V4 body otherwise.
func (pk PublicKey) Emit() []byte {
	if pk.Version == 3 {
		out := []byte{3}
		out = append(out, marshal32be(uint32(pk.Created))...)
		out = append(out, marshal16be(pk.V3ExpireDays)...)
		out = append(out, byte(pk.Algorithm))
		out = append(out, mpiBig(pk.Params[0])...)
		out = append(out, mpiBig(pk.Params[1])...)
		return out
	}
	out := []byte{4}
	out = append(out, marshal32be(uint32(pk.Created))...)
	out = append(out, byte(pk.Algorithm))
	out = append(out, pk.serializeMaterial()...)
	return out
}

// Fingerprint returns the key's fingerprint: SHA-1 over the canonical
// 0x99||BE16(len)||body form for V4, MD5 over N||E for V3. spec.md 3, 8.2.
func (pk PublicKey) Fingerprint() []byte {
	if pk.Version == 3 {
		h := md5.New()
		h.Write(pk.Params[0].Bytes())
		h.Write(pk.Params[1].Bytes())
		return h.Sum(nil)
	}
	body := pk.Emit()
	h := sha1.New()
	h.Write([]byte{0x99})
	h.Write(marshal16be(uint16(len(body))))
	h.Write(body)
	return h.Sum(nil)
}

// KeyID returns the low 8 octets of the fingerprint (V3: low 8 of N).
func (pk PublicKey) KeyID() []byte {
	if pk.Version == 3 {
		n := pk.Params[0].Bytes()
		if len(n) >= 8 {
			return n[len(n)-8:]
		}
		padded := make([]byte, 8)
		copy(padded[8-len(n):], n)
		return padded
	}
	fp := pk.Fingerprint()
	return fp[12:20]
}

func be32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
func be16(b []byte) uint16 {
	return uint16(b[0])<<8 | uint16(b[1])
}

// SecretKey is the parsed secret portion of a key: the embedded public
// key plus its protection state, spec.md 3 "SecretKey".
//
// Invariant (spec.md 4.F): exactly one of {Locked==true (Encrypted holds
// ciphertext, Params/Scalar are zeroed), Locked==false (Params/Scalar hold
// plaintext)} is ever true.
type SecretKey struct {
	Public PublicKey

	S2KUsage byte // 0 = none, 254 = encrypted+SHA1, 255 = encrypted+checksum
	S2K      *S2KSpec
	Cipher   SymmetricAlgorithm
	IV       []byte

	Locked    bool
	Encrypted []byte // ciphertext; kept after Unlock so Lock can restore it

	// Plaintext secret material, valid only while !Locked.
	Params []*big.Int // RSA: D,P,Q,U ; DSA/ElGamal: X
	Scalar []byte     // ECDSA/ECDH: raw scalar; EdDSA: 32-byte seed

	Checksum uint16
	SHA1Tag  [20]byte
}

// S2KSpec is a parsed string-to-key specifier, spec.md 4.F.
type S2KSpec struct {
	Type  byte // 0 simple, 1 salted, 3 iterated+salted
	Hash  HashAlgorithm
	Salt  []byte
	Count byte // encoded iteration-count octet (type 3 only)
}

// ParseSecretKey decodes a secret-key (or secret-subkey) packet body,
// whose public prefix is identical to ParsePublicKey's input.
func ParseSecretKey(body []byte) (SecretKey, error) {
	const op = "ParseSecretKey"
	pub, err := ParsePublicKey(body)
	if err != nil {
		return SecretKey{}, err
	}
	pubLen := len(pub.Emit())
	if len(body) <= pubLen {
		return SecretKey{}, newErr(op, ErrNotEnoughData)
	}
	rest := body[pubLen:]

	var sk SecretKey
	sk.Public = pub
	sk.S2KUsage = rest[0]
	rest = rest[1:]

	switch sk.S2KUsage {
	case 0:
		// Cleartext.
	case 254, 255:
		if len(rest) < 1 {
			return SecretKey{}, newErr(op, ErrNotEnoughData)
		}
		sk.Cipher = SymmetricAlgorithm(rest[0])
		rest = rest[1:]
		spec, r2, err := parseS2K(rest)
		if err != nil {
			return SecretKey{}, err
		}
		sk.S2K = spec
		rest = r2
		ivlen := sk.Cipher.BlockSize()
		if ivlen == 0 {
			ivlen = 16
		}
		if len(rest) < ivlen {
			return SecretKey{}, newErr(op, ErrNotEnoughData)
		}
		sk.IV = append([]byte(nil), rest[:ivlen]...)
		rest = rest[ivlen:]
		sk.Locked = true
		sk.Encrypted = append([]byte(nil), rest...)
		return sk, nil
	default:
		// A plain cipher-algorithm octet: legacy "encrypted, no S2K
		// hashing" form. Treated identically to 255 with a simple S2K
		// of MD5, matching historical GnuPG behaviour.
		sk.Cipher = SymmetricAlgorithm(sk.S2KUsage)
		sk.S2KUsage = 255
		sk.S2K = &S2KSpec{Type: 0, Hash: HashMD5}
		ivlen := sk.Cipher.BlockSize()
		if ivlen == 0 {
			ivlen = 16
		}
		if len(rest) < ivlen {
			return SecretKey{}, newErr(op, ErrNotEnoughData)
		}
		sk.IV = append([]byte(nil), rest[:ivlen]...)
		rest = rest[ivlen:]
		sk.Locked = true
		sk.Encrypted = append([]byte(nil), rest...)
		return sk, nil
	}

	// Cleartext secret material, terminated by a 2-octet checksum.
	if len(rest) < 2 {
		return SecretKey{}, newErr(op, ErrNotEnoughData)
	}
	matBytes := rest[:len(rest)-2]
	sk.Checksum = be16(rest[len(rest)-2:])
	if err := sk.decodeCleartextParams(matBytes); err != nil {
		return SecretKey{}, err
	}
	return sk, nil
}

// DecodeParams parses buf as this key's algorithm-specific plaintext
// secret material (no checksum/tag trailer) into sk.Params/sk.Scalar. Used
// by the protect package after decrypting a locked key's body.
func (sk *SecretKey) DecodeParams(buf []byte) error { return sk.decodeCleartextParams(buf) }

// EncodeParams serializes sk's current plaintext secret material (no
// checksum/tag trailer). Used by the protect package before encrypting.
func (sk SecretKey) EncodeParams() []byte { return sk.encodeCleartextParams() }

func (sk *SecretKey) decodeCleartextParams(buf []byte) error {
	const op = "decodeCleartextParams"
	switch sk.Public.Algorithm {
	case PubKeyRSA, PubKeyRSAEncryptOnly, PubKeyRSASignOnly:
		d, r1 := mpiDecodeBig(buf)
		p, r2 := mpiDecodeBig(r1)
		q, r3 := mpiDecodeBig(r2)
		u, _ := mpiDecodeBig(r3)
		if d == nil || p == nil || q == nil || u == nil {
			return newErr(op, ErrBadFormat)
		}
		sk.Params = []*big.Int{d, p, q, u}
	case PubKeyDSA, PubKeyElGamal:
		x, _ := mpiDecodeBig(buf)
		if x == nil {
			return newErr(op, ErrBadFormat)
		}
		sk.Params = []*big.Int{x}
	case PubKeyECDSA, PubKeyECDH, PubKeyEdDSA, PubKeySM2:
		s, _ := mpiDecode(buf, maxMPIBytes)
		if s == nil {
			return newErr(op, ErrBadFormat)
		}
		sk.Scalar = append([]byte(nil), s...)
	default:
		return newErr(op, ErrNotSupported)
	}
	return nil
}

func (sk SecretKey) encodeCleartextParams() []byte {
	switch sk.Public.Algorithm {
	case PubKeyRSA, PubKeyRSAEncryptOnly, PubKeyRSASignOnly:
		var out []byte
		for _, p := range sk.Params {
			out = append(out, mpiBig(p)...)
		}
		return out
	case PubKeyDSA, PubKeyElGamal:
		return mpiBig(sk.Params[0])
	case PubKeyECDSA, PubKeyECDH, PubKeyEdDSA, PubKeySM2:
		return mpi(sk.Scalar)
	default:
		return nil
	}
}

// Emit serializes sk as a secret-key-packet body. While Locked, Encrypted
// is emitted opaquely; otherwise the cleartext material and its checksum
// (or SHA-1 tag, chosen by S2KUsage) are emitted.
func (sk SecretKey) Emit() []byte {
	out := append([]byte{}, sk.Public.Emit()...)
	out = append(out, sk.S2KUsage)
	if sk.Locked {
		out = append(out, byte(sk.Cipher))
		out = append(out, emitS2K(sk.S2K)...)
		out = append(out, sk.IV...)
		out = append(out, sk.Encrypted...)
		return out
	}
	mat := sk.encodeCleartextParams()
	out = append(out, mat...)
	switch sk.S2KUsage {
	case 254:
		h := sha1.New()
		h.Write(mat)
		out = append(out, h.Sum(nil)...)
	default:
		out = append(out, marshal16be(checksum(mat))...)
	}
	return out
}

func parseS2K(buf []byte) (*S2KSpec, []byte, error) {
	const op = "parseS2K"
	if len(buf) < 2 {
		return nil, nil, newErr(op, ErrNotEnoughData)
	}
	spec := &S2KSpec{Type: buf[0], Hash: HashAlgorithm(buf[1])}
	buf = buf[2:]
	switch spec.Type {
	case 0:
		return spec, buf, nil
	case 1:
		if len(buf) < 8 {
			return nil, nil, newErr(op, ErrNotEnoughData)
		}
		spec.Salt = append([]byte(nil), buf[:8]...)
		return spec, buf[8:], nil
	case 3:
		if len(buf) < 9 {
			return nil, nil, newErr(op, ErrNotEnoughData)
		}
		spec.Salt = append([]byte(nil), buf[:8]...)
		spec.Count = buf[8]
		return spec, buf[9:], nil
	default:
		return nil, nil, newErr(op, ErrBadFormat)
	}
}

func emitS2K(s *S2KSpec) []byte {
	out := []byte{s.Type, byte(s.Hash)}
	switch s.Type {
	case 1:
		out = append(out, s.Salt...)
	case 3:
		out = append(out, s.Salt...)
		out = append(out, s.Count)
	}
	return out
}
