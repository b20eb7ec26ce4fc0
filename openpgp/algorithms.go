package openpgp

// PublicKeyAlgorithm is the wire identifier for an asymmetric algorithm,
// per RFC 4880 9.1 plus the RFC 6637 / 4880bis ECC extensions.
type PublicKeyAlgorithm byte

const (
	PubKeyRSA              PublicKeyAlgorithm = 1
	PubKeyRSAEncryptOnly   PublicKeyAlgorithm = 2
	PubKeyRSASignOnly      PublicKeyAlgorithm = 3
	PubKeyElGamal          PublicKeyAlgorithm = 16
	PubKeyDSA              PublicKeyAlgorithm = 17
	PubKeyECDH             PublicKeyAlgorithm = 18
	PubKeyECDSA            PublicKeyAlgorithm = 19
	PubKeyEdDSA            PublicKeyAlgorithm = 22
	PubKeySM2              PublicKeyAlgorithm = 27
)

// pkCaps records which high-level operations an algorithm supports.
type pkCaps struct {
	sign, verify, encrypt, decrypt bool
	name                           string
}

var pkTable = map[PublicKeyAlgorithm]pkCaps{
	PubKeyRSA:            {true, true, true, true, "RSA"},
	PubKeyRSAEncryptOnly: {false, false, true, true, "RSA-E"},
	PubKeyRSASignOnly:    {true, true, false, false, "RSA-S"},
	PubKeyElGamal:        {false, false, true, true, "ELGAMAL"},
	PubKeyDSA:            {true, true, false, false, "DSA"},
	PubKeyECDH:           {false, false, true, true, "ECDH"},
	PubKeyECDSA:          {true, true, false, false, "ECDSA"},
	PubKeyEdDSA:          {true, true, false, false, "EDDSA"},
	PubKeySM2:            {true, true, true, true, "SM2"},
}

func (a PublicKeyAlgorithm) String() string {
	if c, ok := pkTable[a]; ok {
		return c.name
	}
	return "UNKNOWN"
}

func (a PublicKeyAlgorithm) CanSign() bool    { return pkTable[a].sign }
func (a PublicKeyAlgorithm) CanVerify() bool  { return pkTable[a].verify }
func (a PublicKeyAlgorithm) CanEncrypt() bool { return pkTable[a].encrypt }
func (a PublicKeyAlgorithm) CanDecrypt() bool { return pkTable[a].decrypt }

// SymmetricAlgorithm is the wire identifier for a symmetric cipher, RFC 4880
// 9.2 plus the Camellia (RFC 5581) and SM4 (4880bis) extensions.
type SymmetricAlgorithm byte

const (
	CipherPlaintext   SymmetricAlgorithm = 0
	CipherIDEA        SymmetricAlgorithm = 1
	CipherTripleDES   SymmetricAlgorithm = 2
	CipherCAST5       SymmetricAlgorithm = 3
	CipherBlowfish    SymmetricAlgorithm = 4
	CipherAES128      SymmetricAlgorithm = 7
	CipherAES192      SymmetricAlgorithm = 8
	CipherAES256      SymmetricAlgorithm = 9
	CipherTwofish     SymmetricAlgorithm = 10
	CipherCamellia128 SymmetricAlgorithm = 11
	CipherCamellia192 SymmetricAlgorithm = 12
	CipherCamellia256 SymmetricAlgorithm = 13
	CipherSM4         SymmetricAlgorithm = 104 // private-use range, per 4880bis draft assignment
)

type cipherInfo struct {
	blockSize, keySize int
	name               string
	supported          bool
}

var cipherTable = map[SymmetricAlgorithm]cipherInfo{
	CipherPlaintext:   {0, 0, "Plaintext", true},
	CipherIDEA:        {8, 16, "IDEA", false},
	CipherTripleDES:   {8, 24, "3DES", true},
	CipherCAST5:       {8, 16, "CAST5", true},
	CipherBlowfish:    {8, 16, "Blowfish", true},
	CipherAES128:      {16, 16, "AES128", true},
	CipherAES192:      {16, 24, "AES192", true},
	CipherAES256:      {16, 32, "AES256", true},
	CipherTwofish:     {16, 32, "Twofish", true},
	CipherCamellia128: {16, 16, "Camellia128", false},
	CipherCamellia192: {16, 24, "Camellia192", false},
	CipherCamellia256: {16, 32, "Camellia256", false},
	CipherSM4:         {16, 16, "SM4", false},
}

func (a SymmetricAlgorithm) BlockSize() int { return cipherTable[a].blockSize }
func (a SymmetricAlgorithm) KeySize() int   { return cipherTable[a].keySize }
func (a SymmetricAlgorithm) String() string {
	if c, ok := cipherTable[a]; ok {
		return c.name
	}
	return "UNKNOWN"
}

// Supported reports whether the oracle backing this build can actually
// execute the algorithm; SM4/Camellia/IDEA are modeled but not wired to a
// primitive library (see DESIGN.md).
func (a SymmetricAlgorithm) Supported() bool { return cipherTable[a].supported }

// HashAlgorithm is the wire identifier for a digest algorithm, RFC 4880 9.4
// plus SM3 (4880bis).
type HashAlgorithm byte

const (
	HashMD5       HashAlgorithm = 1
	HashSHA1      HashAlgorithm = 2
	HashRIPEMD160 HashAlgorithm = 3
	HashSHA256    HashAlgorithm = 8
	HashSHA384    HashAlgorithm = 9
	HashSHA512    HashAlgorithm = 10
	HashSHA224    HashAlgorithm = 11
	HashSM3       HashAlgorithm = 105 // private-use range
)

type hashInfo struct {
	size      int
	name      string
	supported bool
}

var hashTable = map[HashAlgorithm]hashInfo{
	HashMD5:       {16, "MD5", true},
	HashSHA1:      {20, "SHA1", true},
	HashRIPEMD160: {20, "RIPEMD160", true},
	HashSHA256:    {32, "SHA256", true},
	HashSHA384:    {48, "SHA384", true},
	HashSHA512:    {64, "SHA512", true},
	HashSHA224:    {28, "SHA224", true},
	HashSM3:       {32, "SM3", false},
}

func (a HashAlgorithm) Size() int { return hashTable[a].size }
func (a HashAlgorithm) String() string {
	if h, ok := hashTable[a]; ok {
		return h.name
	}
	return "UNKNOWN"
}
func (a HashAlgorithm) Supported() bool { return hashTable[a].supported }

// CompressionAlgorithm is the wire identifier for a compression scheme.
type CompressionAlgorithm byte

const (
	CompressionNone  CompressionAlgorithm = 0
	CompressionZIP   CompressionAlgorithm = 1
	CompressionZLIB  CompressionAlgorithm = 2
	CompressionBZIP2 CompressionAlgorithm = 3
)

// Curve identifies a named elliptic curve used by ECDSA/EdDSA/ECDH/SM2.
type Curve int

const (
	CurveNone Curve = iota
	CurveP256
	CurveP384
	CurveP521
	CurveEd25519
	CurveX25519
	CurveSM2P256
)

type curveInfo struct {
	bits int
	oid  []byte
	name string
}

var curveTable = map[Curve]curveInfo{
	CurveP256:    {256, []byte{0x2A, 0x86, 0x48, 0xCE, 0x3D, 0x03, 0x01, 0x07}, "NIST P-256"},
	CurveP384:    {384, []byte{0x2B, 0x81, 0x04, 0x00, 0x22}, "NIST P-384"},
	CurveP521:    {521, []byte{0x2B, 0x81, 0x04, 0x00, 0x23}, "NIST P-521"},
	CurveEd25519: {256, []byte{0x2B, 0x06, 0x01, 0x04, 0x01, 0xDA, 0x47, 0x0F, 0x01}, "Ed25519"},
	CurveX25519:  {256, []byte{0x2B, 0x06, 0x01, 0x04, 0x01, 0x97, 0x55, 0x01, 0x05, 0x01}, "Curve25519"},
	CurveSM2P256: {256, []byte{0x2A, 0x81, 0x1C, 0xCF, 0x55, 0x01, 0x82, 0x2D}, "SM2 P-256"},
}

func (c Curve) Bits() int   { return curveTable[c].bits }
func (c Curve) OID() []byte { return curveTable[c].oid }
func (c Curve) String() string {
	if v, ok := curveTable[c]; ok {
		return v.name
	}
	return "UNKNOWN"
}

// SignatureType distinguishes what a V4 signature certifies, RFC 4880 5.2.1.
type SignatureType byte

const (
	SigBinary             SignatureType = 0x00
	SigText               SignatureType = 0x01
	SigStandalone         SignatureType = 0x02
	SigCertGeneric        SignatureType = 0x10
	SigCertPersona        SignatureType = 0x11
	SigCertCasual         SignatureType = 0x12
	SigCertPositive       SignatureType = 0x13
	SigSubkeyBinding      SignatureType = 0x18
	SigPrimaryKeyBinding  SignatureType = 0x19
	SigDirectKey          SignatureType = 0x1F
	SigKeyRevocation      SignatureType = 0x20
	SigSubkeyRevocation   SignatureType = 0x28
	SigCertRevocation     SignatureType = 0x30
	SigTimestamp          SignatureType = 0x40
	SigThirdPartyConfirm  SignatureType = 0x50
)
