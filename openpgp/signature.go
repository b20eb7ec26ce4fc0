package openpgp

import "math/big"

// Signature is a parsed signature packet (tag 2), spec.md 3 "Signature".
// V4 signatures cache HashedArea (the exact hashed-subpacket-area bytes,
// including its length prefix) so the trailer can be reconstructed
// byte-identically for verification without re-deriving it from the
// parsed Subpacket slice.
type Signature struct {
	Version   int // 3 or 4
	Type      SignatureType
	PubAlgo   PublicKeyAlgorithm
	HashAlgo  HashAlgorithm

	Hashed   []Subpacket
	Unhashed []Subpacket
	HashedArea []byte // V4 only: exact bytes, with BE16 length prefix

	// V3 only.
	V3Created int64
	V3KeyID   []byte

	HashPreview [2]byte

	// Algorithm-specific signature material.
	R, S *big.Int // DSA/ECDSA
	Sig  *big.Int // RSA
	EdDSASig []byte // raw concatenated R||S for EdDSA

	// Derived fields, cross-populated from Hashed/Unhashed on parse.
	Issuer            []byte
	Created           int64
	Expiration        int64 // 0 = never
	KeyFlags          byte
	PrimaryUserID     bool
	IssuerFingerprint []byte
	RevocationCode    byte
	RevocationText    string
	EmbeddedSig       *Signature
}

// ParseSignature decodes a signature-packet body.
func ParseSignature(body []byte) (Signature, error) {
	const op = "ParseSignature"
	if len(body) < 1 {
		return Signature{}, newErr(op, ErrNotEnoughData)
	}
	var sig Signature
	switch body[0] {
	case 3:
		return parseV3Signature(body)
	case 4:
		sig.Version = 4
	default:
		return Signature{}, newErr(op, ErrBadFormat)
	}
	if len(body) < 6 {
		return Signature{}, newErr(op, ErrNotEnoughData)
	}
	sig.Type = SignatureType(body[1])
	sig.PubAlgo = PublicKeyAlgorithm(body[2])
	sig.HashAlgo = HashAlgorithm(body[3])
	hlen := int(be16(body[4:6]))
	if len(body) < 6+hlen {
		return Signature{}, newErr(op, ErrNotEnoughData)
	}
	sig.HashedArea = append([]byte(nil), body[4:6+hlen]...)
	hashedBody := body[6 : 6+hlen]
	hashedSubs, err := parseSubpackets(hashedBody, true)
	if err != nil {
		return Signature{}, err
	}
	sig.Hashed = hashedSubs

	rest := body[6+hlen:]
	if len(rest) < 2 {
		return Signature{}, newErr(op, ErrNotEnoughData)
	}
	ulen := int(be16(rest[:2]))
	rest = rest[2:]
	if len(rest) < ulen {
		return Signature{}, newErr(op, ErrNotEnoughData)
	}
	unhashedSubs, err := parseSubpackets(rest[:ulen], false)
	if err != nil {
		return Signature{}, err
	}
	sig.Unhashed = unhashedSubs
	rest = rest[ulen:]

	if len(rest) < 2 {
		return Signature{}, newErr(op, ErrNotEnoughData)
	}
	copy(sig.HashPreview[:], rest[:2])
	rest = rest[2:]

	if err := sig.parseMaterial(rest); err != nil {
		return Signature{}, err
	}

	sig.crossPopulate()
	return sig, nil
}

func parseV3Signature(body []byte) (Signature, error) {
	const op = "parseV3Signature"
	if len(body) < 19 {
		return Signature{}, newErr(op, ErrNotEnoughData)
	}
	var sig Signature
	sig.Version = 3
	// body[1] is the fixed hashed-material length (5), always.
	sig.Type = SignatureType(body[2])
	sig.V3Created = int64(be32(body[3:7]))
	sig.Created = sig.V3Created
	sig.V3KeyID = append([]byte(nil), body[7:15]...)
	sig.Issuer = sig.V3KeyID
	sig.PubAlgo = PublicKeyAlgorithm(body[15])
	sig.HashAlgo = HashAlgorithm(body[16])
	copy(sig.HashPreview[:], body[17:19])
	if err := sig.parseMaterial(body[19:]); err != nil {
		return Signature{}, err
	}
	return sig, nil
}

func (sig *Signature) parseMaterial(rest []byte) error {
	const op = "Signature.parseMaterial"
	switch sig.PubAlgo {
	case PubKeyRSA, PubKeyRSASignOnly:
		s, _ := mpiDecodeBig(rest)
		if s == nil {
			return newErr(op, ErrBadFormat)
		}
		sig.Sig = s
	case PubKeyDSA, PubKeyECDSA, PubKeySM2:
		r, rest2 := mpiDecodeBig(rest)
		s, _ := mpiDecodeBig(rest2)
		if r == nil || s == nil {
			return newErr(op, ErrBadFormat)
		}
		sig.R, sig.S = r, s
	case PubKeyEdDSA:
		r, rest2 := mpiDecode(rest, maxMPIBytes)
		s, _ := mpiDecode(rest2, maxMPIBytes)
		if r == nil || s == nil || len(r) > 32 || len(s) > 32 {
			return newErr(op, ErrBadFormat)
		}
		sig.EdDSASig = make([]byte, 64)
		copy(sig.EdDSASig[32-len(r):32], r)
		copy(sig.EdDSASig[64-len(s):], s)
	default:
		return newErr(op, ErrNotSupported)
	}
	return nil
}

func (sig Signature) materialBytes() []byte {
	switch sig.PubAlgo {
	case PubKeyRSA, PubKeyRSASignOnly:
		return mpiBig(sig.Sig)
	case PubKeyDSA, PubKeyECDSA, PubKeySM2:
		return append(mpiBig(sig.R), mpiBig(sig.S)...)
	case PubKeyEdDSA:
		half := len(sig.EdDSASig) / 2
		return append(mpi(sig.EdDSASig[:half]), mpi(sig.EdDSASig[half:])...)
	}
	return nil
}

// Emit serializes a V4 signature packet body. V3 emission is unsupported
// (spec.md 1: "does not implement the historical V3 packet format as an
// emitter").
func (sig Signature) Emit() []byte {
	out := []byte{4, byte(sig.Type), byte(sig.PubAlgo), byte(sig.HashAlgo)}
	out = append(out, sig.HashedArea...)
	out = append(out, emitSubpacketArea(sig.Unhashed)...)
	out = append(out, sig.HashPreview[:]...)
	out = append(out, sig.materialBytes()...)
	return out
}

// crossPopulate surfaces derived fields from the parsed subpackets, spec.md
// 4.C.
func (sig *Signature) crossPopulate() {
	for _, areas := range [2][]Subpacket{sig.Hashed, sig.Unhashed} {
		for _, s := range areas {
			switch s.Type {
			case SubCreationTime:
				if len(s.Data) >= 4 {
					sig.Created = int64(be32(s.Data))
				}
			case SubKeyExpiry, SubSignatureExpiry:
				if len(s.Data) >= 4 {
					sig.Expiration = int64(be32(s.Data))
				}
			case SubIssuer:
				sig.Issuer = append([]byte(nil), s.Data...)
			case SubIssuerFingerprint:
				if len(s.Data) > 1 {
					sig.IssuerFingerprint = append([]byte(nil), s.Data[1:]...)
					sig.Issuer = sig.IssuerFingerprint[len(sig.IssuerFingerprint)-8:]
				}
			case SubKeyFlags:
				if len(s.Data) >= 1 {
					sig.KeyFlags = s.Data[0]
				}
			case SubPrimaryUserID:
				sig.PrimaryUserID = len(s.Data) >= 1 && s.Data[0] != 0
			case SubRevocationReason:
				if len(s.Data) >= 1 {
					sig.RevocationCode = s.Data[0]
					sig.RevocationText = string(s.Data[1:])
				}
			case SubEmbeddedSignature:
				if embedded, err := ParseSignature(s.Data); err == nil {
					sig.EmbeddedSig = &embedded
				}
			}
		}
	}
}

// UnknownCriticalHashed reports whether the hashed area contains a
// critical subpacket type this implementation does not recognise, which
// must fail verification per spec.md 3/4.C/4.G.
func (sig Signature) UnknownCriticalHashed() bool {
	for _, s := range sig.Hashed {
		if s.Critical && !knownSubpacketType(s.Type) {
			return true
		}
	}
	return false
}

func knownSubpacketType(t SubpacketType) bool {
	switch t {
	case SubCreationTime, SubSignatureExpiry, SubExportable, SubTrust, SubRegex,
		SubRevocable, SubKeyExpiry, SubPreferredSymmetric, SubRevocationKey,
		SubIssuer, SubNotation, SubPreferredHash, SubPreferredCompress,
		SubKeyServerPrefs, SubPreferredKeyServer, SubPrimaryUserID, SubPolicyURI,
		SubKeyFlags, SubSignerUserID, SubRevocationReason, SubFeatures,
		SubSignatureTarget, SubEmbeddedSignature, SubIssuerFingerprint:
		return true
	}
	return false
}
