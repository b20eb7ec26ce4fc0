package protect

import (
	"crypto/sha1"

	"github.com/pgpkit/pgpkit/openpgp"
	"github.com/pgpkit/pgpkit/openpgp/oracle"
)

// Unlock derives the key-encrypting key from password, decrypts sk's
// stored body, and verifies its integrity tag (SHA-1 for usage=254,
// checksum otherwise) before populating sk's plaintext material. On
// success sk.Locked is cleared and the plaintext fields are valid.
//
// Failure modes per spec.md 4.F: ErrBadPassword when the tag mismatches,
// ErrBadFormat when the decrypted MPIs do not parse.
func Unlock(sk *openpgp.SecretKey, password []byte) error {
	const op = "protect.Unlock"
	if !sk.Locked {
		return nil
	}
	if sk.S2KUsage == 0 {
		return &openpgp.Error{Code: openpgp.ErrBadState, Op: op}
	}

	keyLen := sk.Cipher.KeySize()
	kek, err := Derive(sk.S2K, password, keyLen)
	if err != nil {
		return err
	}

	block, err := oracle.NewBlockCipher(sk.Cipher, kek)
	if err != nil {
		return err
	}
	plain := make([]byte, len(sk.Encrypted))
	stream := oracle.NewCFBDecrypter(block, sk.IV)
	stream.XORKeyStream(plain, sk.Encrypted)

	var matBytes []byte
	switch sk.S2KUsage {
	case 254:
		if len(plain) < 20 {
			return &openpgp.Error{Code: openpgp.ErrBadFormat, Op: op}
		}
		matBytes = plain[:len(plain)-20]
		tag := plain[len(plain)-20:]
		h := sha1.New()
		h.Write(matBytes)
		if !ConstantTimeEqual(h.Sum(nil), tag) {
			zero(plain)
			return &openpgp.Error{Code: openpgp.ErrBadPassword, Op: op}
		}
	default:
		if len(plain) < 2 {
			return &openpgp.Error{Code: openpgp.ErrBadFormat, Op: op}
		}
		matBytes = plain[:len(plain)-2]
		want := uint16(plain[len(plain)-2])<<8 | uint16(plain[len(plain)-1])
		if sumChecksum(matBytes) != want {
			zero(plain)
			return &openpgp.Error{Code: openpgp.ErrBadPassword, Op: op}
		}
	}

	if err := sk.DecodeParams(matBytes); err != nil {
		zero(plain)
		return err
	}
	zero(plain)
	sk.Locked = false
	return nil
}

// Lock zeroises sk's plaintext material fields in place, retaining the
// encrypted body and S2K parameters already installed by a previous
// Protect. sk must already be protected (have S2K/IV/Encrypted set from a
// prior Protect or from load); calling Lock on an unprotected key is a
// programmer error reported as ErrBadState.
func Lock(sk *openpgp.SecretKey) error {
	const op = "protect.Lock"
	if sk.Locked {
		return nil
	}
	if sk.S2KUsage == 0 || sk.Encrypted == nil {
		return &openpgp.Error{Code: openpgp.ErrBadState, Op: op}
	}
	zeroParams(sk)
	sk.Locked = true
	return nil
}

// Protect requires sk to be unlocked; it derives a fresh key-encrypting
// key from password (using newS2K and cipher, or reasonable defaults when
// nil/zero), encrypts the serialized plaintext material plus its integrity
// tag, installs the new protection parameters, and zeroises the plaintext.
func Protect(sk *openpgp.SecretKey, password []byte, newS2K *openpgp.S2KSpec, cipher openpgp.SymmetricAlgorithm) error {
	const op = "protect.Protect"
	if sk.Locked {
		return &openpgp.Error{Code: openpgp.ErrBadState, Op: op}
	}
	if cipher == 0 {
		cipher = openpgp.CipherAES256
	}
	if newS2K == nil {
		salt, err := oracle.DefaultRNG().GetBytes(8)
		if err != nil {
			return err
		}
		newS2K = &openpgp.S2KSpec{Type: 3, Hash: openpgp.HashSHA1, Salt: salt, Count: EncodeCount(DefaultIterationCount)}
	}

	mat := sk.EncodeParams()
	h := sha1.New()
	h.Write(mat)
	plain := append(append([]byte(nil), mat...), h.Sum(nil)...)

	keyLen := cipher.KeySize()
	kek, err := Derive(newS2K, password, keyLen)
	if err != nil {
		return err
	}
	ivLen := cipher.BlockSize()
	iv, err := oracle.DefaultRNG().GetBytes(ivLen)
	if err != nil {
		return err
	}
	block, err := oracle.NewBlockCipher(cipher, kek)
	if err != nil {
		return err
	}
	ct := make([]byte, len(plain))
	oracle.NewCFBEncrypter(block, iv).XORKeyStream(ct, plain)
	zero(plain)

	zeroParams(sk)
	sk.S2KUsage = 254
	sk.Cipher = cipher
	sk.S2K = newS2K
	sk.IV = iv
	sk.Encrypted = ct
	sk.Locked = true
	return nil
}

// Unprotect unlocks sk with password, then discards its S2K/IV and stores
// the cleartext form (S2KUsage=0), spec.md 4.F.
func Unprotect(sk *openpgp.SecretKey, password []byte) error {
	if err := Unlock(sk, password); err != nil {
		return err
	}
	sk.S2KUsage = 0
	sk.S2K = nil
	sk.Cipher = 0
	sk.IV = nil
	sk.Encrypted = nil
	mat := sk.EncodeParams()
	sk.Checksum = sumChecksum(mat)
	return nil
}

func sumChecksum(data []byte) uint16 {
	var sum uint16
	for _, b := range data {
		sum += uint16(b)
	}
	return sum
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// zeroParams overwrites sk's plaintext secret fields with zeros in place,
// spec.md 8 "Lock after unlock restores the byte-pattern ... to all-zero"
// and spec.md 9 "wrap all secret-bearing buffers in a type that zeroises".
func zeroParams(sk *openpgp.SecretKey) {
	for _, p := range sk.Params {
		if p != nil {
			p.SetInt64(0)
		}
	}
	sk.Params = nil
	zero(sk.Scalar)
	sk.Scalar = nil
}
