package icq

import (
	"github.com/soypat/dissect"
	"github.com/soypat/dissect/tvb"
)

const (
	// cryptStart is the first encrypted byte. Version, marker and UIN travel in clear.
	cryptStart    = offClientSessionID
	keyMultiplier = 0x68656C6C

	// groupCheckcodeLow is the group whose high half overlaps checkcode bytes 0x14..0x15.
	groupCheckcodeLow = offClientCheckcode - 2
	// groupCheckcodeHigh is the group whose low half overlaps checkcode bytes 0x16..0x17.
	groupCheckcodeHigh = offClientCheckcode + 2
)

type groupHalf uint8

const (
	halfLow  groupHalf = 1 << iota // bytes 0 and 1 of a group.
	halfHigh                       // bytes 2 and 3 of a group.
)

// cryptExclusions lists the 4 byte groups with halves left in clear so the
// checkcode can be read from the encrypted frame.
var cryptExclusions = [...]struct {
	group int
	half  groupHalf
}{
	{group: groupCheckcodeLow, half: halfHigh},
	{group: groupCheckcodeHigh, half: halfLow},
}

func excludedHalves(group int) (h groupHalf) {
	for _, ex := range cryptExclusions {
		if ex.group == group {
			h |= ex.half
		}
	}
	return h
}

var keystream = [256]byte{
	0x59, 0x60, 0x37, 0x6B, 0x65, 0x62, 0x46, 0x48, 0x53, 0x61, 0x4C, 0x59, 0x60, 0x57, 0x5B, 0x3D,
	0x5E, 0x34, 0x6D, 0x36, 0x50, 0x3F, 0x6F, 0x67, 0x53, 0x61, 0x4C, 0x59, 0x40, 0x47, 0x63, 0x39,
	0x50, 0x5F, 0x5F, 0x3F, 0x6F, 0x47, 0x43, 0x69, 0x48, 0x33, 0x31, 0x64, 0x35, 0x5A, 0x4A, 0x42,
	0x56, 0x40, 0x67, 0x53, 0x41, 0x07, 0x6C, 0x49, 0x58, 0x3B, 0x4D, 0x46, 0x68, 0x43, 0x69, 0x48,
	0x33, 0x31, 0x44, 0x65, 0x62, 0x46, 0x48, 0x53, 0x41, 0x07, 0x6C, 0x69, 0x48, 0x33, 0x51, 0x54,
	0x5D, 0x4E, 0x6C, 0x49, 0x38, 0x4B, 0x55, 0x4A, 0x62, 0x46, 0x48, 0x33, 0x51, 0x34, 0x6D, 0x36,
	0x50, 0x5F, 0x5F, 0x5F, 0x3F, 0x6F, 0x47, 0x63, 0x59, 0x40, 0x67, 0x33, 0x31, 0x64, 0x35, 0x5A,
	0x6A, 0x52, 0x6E, 0x3C, 0x51, 0x34, 0x6D, 0x36, 0x50, 0x5F, 0x5F, 0x3F, 0x4F, 0x37, 0x4B, 0x35,
	0x5A, 0x4A, 0x62, 0x66, 0x58, 0x3B, 0x4D, 0x66, 0x58, 0x5B, 0x5D, 0x4E, 0x6C, 0x49, 0x58, 0x3B,
	0x4D, 0x66, 0x58, 0x3B, 0x4D, 0x46, 0x48, 0x53, 0x61, 0x4C, 0x59, 0x40, 0x67, 0x33, 0x31, 0x64,
	0x55, 0x6A, 0x32, 0x3E, 0x44, 0x45, 0x52, 0x6E, 0x3C, 0x31, 0x64, 0x55, 0x6A, 0x52, 0x4E, 0x6C,
	0x69, 0x48, 0x53, 0x61, 0x4C, 0x39, 0x30, 0x6F, 0x47, 0x63, 0x59, 0x60, 0x57, 0x5B, 0x3D, 0x3E,
	0x64, 0x35, 0x3A, 0x3A, 0x5A, 0x6A, 0x52, 0x4E, 0x6C, 0x69, 0x48, 0x53, 0x61, 0x6C, 0x49, 0x58,
	0x3B, 0x4D, 0x46, 0x68, 0x63, 0x39, 0x50, 0x5F, 0x5F, 0x3F, 0x6F, 0x67, 0x53, 0x41, 0x25, 0x41,
	0x3C, 0x51, 0x54, 0x3D, 0x5E, 0x54, 0x5D, 0x4E, 0x4C, 0x39, 0x50, 0x5F, 0x5F, 0x5F, 0x3F, 0x6F,
	0x47, 0x43, 0x69, 0x48, 0x33, 0x51, 0x54, 0x5D, 0x6E, 0x3C, 0x31, 0x64, 0x35, 0x5A, 0x00, 0x00,
}

// Key derives the encryption key of a client frame from its checkcode and
// reported length.
func Key(checkcode uint32, reportedLen int) uint32 {
	a1 := (checkcode & 0x0001f000) >> 0x0c
	a2 := (checkcode & 0x07c007c0) >> 0x01
	a3 := (checkcode & 0x003e0001) << 0x0a
	a4 := (checkcode & 0xf8000000) >> 0x10
	a5 := (checkcode & 0x0000083e) << 0x0f
	return uint32(reportedLen)*keyMultiplier + a1 + a2 + a3 + a4 + a5
}

// RoundedSize returns the length of the work buffer needed to transform
// captured bytes: from cryptStart rounded up to a multiple of 4.
func RoundedSize(captured int) int {
	if captured <= cryptStart {
		return captured
	}
	return ((captured-cryptStart+3)/4)*4 + cryptStart
}

// transform XORs work in place with the keystream of key. len(work) must be
// a value returned by [RoundedSize]. The transform is its own inverse.
func transform(work []byte, key uint32) {
	for i := cryptStart; i+4 <= len(work); i += 4 {
		k := key + uint32(keystream[i&0xff])
		skip := excludedHalves(i)
		if skip&halfLow == 0 {
			work[i] ^= byte(k)
			work[i+1] ^= byte(k >> 8)
		}
		if skip&halfHigh == 0 {
			work[i+2] ^= byte(k >> 16)
			work[i+3] ^= byte(k >> 24)
		}
	}
}

// Decrypt returns a derived buffer named "Decrypted" holding the plaintext of
// client frame buf. The original buffer is left untouched. The derived buffer
// reports the original's reported length.
func Decrypt(buf *tvb.Buffer) (*tvb.Buffer, error) {
	checkcode, err := buf.U32(offClientCheckcode)
	if err != nil {
		return nil, err
	}
	captured := buf.CapturedLen()
	work := make([]byte, 0, RoundedSize(captured))
	work = buf.Clone(work)
	work = work[:cap(work)]
	transform(work, Key(checkcode, buf.ReportedLen()))
	return buf.Derive("Decrypted", work, captured, buf.ReportedLen())
}

// Encrypt encrypts client frame in place as a client would before sending it.
// The checkcode must already be set and frame must not be truncated.
func Encrypt(frame []byte) error {
	if len(frame) < sizeClientHeader {
		return &dissect.RangeErr{Offset: 0, Length: len(frame), Err: dissect.ErrTruncated}
	}
	hdr, _ := NewClientHeader(frame)
	work := make([]byte, RoundedSize(len(frame)))
	copy(work, frame)
	transform(work, hdr.Key(len(frame)))
	copy(frame, work)
	return nil
}
