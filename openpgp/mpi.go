package openpgp

import (
	"encoding/binary"
	"math/big"
)

// maxMPIBytes bounds the largest MPI this implementation will allocate,
// per spec.md 9 "fixed-capacity buffer sized to the largest supported MPI".
const maxMPIBytes = 1024

// mpi encodes data as an OpenPGP MPI: a two-octet bit-length header
// followed by the big-endian octets of data with leading zero octets
// stripped, generalizing the teacher's fixed-32-byte mpi() helper to
// arbitrary lengths.
func mpi(data []byte) []byte {
	for len(data) > 0 && data[0] == 0 {
		data = data[1:]
	}
	bits := len(data)*8
	if len(data) > 0 {
		bits -= 8
		lead := data[0]
		for lead != 0 {
			bits++
			lead >>= 1
		}
	}
	out := make([]byte, 2+len(data))
	binary.BigEndian.PutUint16(out, uint16(bits))
	copy(out[2:], data)
	return out
}

// mpiBig encodes a *big.Int as an MPI.
func mpiBig(n *big.Int) []byte {
	return mpi(n.Bytes())
}

// mpiDecode reads one MPI from the front of buf, returning its raw value
// octets (left-padded to at least the declared length is never performed;
// octets are exactly the declared byte count) and the remaining bytes. A
// nil value signals a malformed MPI. maxBytes, when non-zero, rejects
// values whose octet count would exceed it (spec.md 9 fixed-capacity rule).
func mpiDecode(buf []byte, maxBytes int) (value, rest []byte) {
	if len(buf) < 2 {
		return nil, buf
	}
	bits := int(binary.BigEndian.Uint16(buf))
	nbytes := (bits + 7) / 8
	if maxBytes > 0 && nbytes > maxBytes {
		return nil, buf
	}
	if nbytes > maxMPIBytes {
		return nil, buf
	}
	buf = buf[2:]
	if len(buf) < nbytes {
		return nil, buf
	}
	return buf[:nbytes], buf[nbytes:]
}

// mpiDecodeBig reads one MPI from buf and returns it as a *big.Int.
func mpiDecodeBig(buf []byte) (*big.Int, []byte) {
	v, rest := mpiDecode(buf, maxMPIBytes)
	if v == nil {
		return nil, rest
	}
	return new(big.Int).SetBytes(v), rest
}

// checksum computes the mod-65536 sum used for unencrypted and
// encrypted-only secret key material, RFC 4880 5.5.3.
func checksum(data []byte) uint16 {
	var sum uint16
	for _, b := range data {
		sum += uint16(b)
	}
	return sum
}

func marshal32be(v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return b[:]
}

func marshal16be(v uint16) []byte {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	return b[:]
}
