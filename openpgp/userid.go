package openpgp

// UserID is a UTF-8 identity string, generalizing the teacher's UserID
// type (which also carried an EnableMDC convenience flag surfaced through
// the Features self-signature subpacket).
type UserID struct {
	ID []byte
}

// UserAttribute is a sequence of image/attribute subpackets, hashed with a
// 0xD1 prefix instead of UserID's 0xB4, spec.md 3.
type UserAttribute struct {
	Packets []byte // opaque, concatenated attribute subpackets
}

// HashPreimage returns the bytes hashed into a V4 certification signature
// for this identity: 0xB4||BE32(len)||bytes.
func (u UserID) HashPreimage() []byte {
	out := []byte{0xB4}
	out = append(out, marshal32be(uint32(len(u.ID)))...)
	return append(out, u.ID...)
}

// HashPreimage returns the bytes hashed for a user attribute: 0xD1||BE32(len)||bytes.
func (a UserAttribute) HashPreimage() []byte {
	out := []byte{0xD1}
	out = append(out, marshal32be(uint32(len(a.Packets)))...)
	return append(out, a.Packets...)
}
