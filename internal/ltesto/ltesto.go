// Package ltesto generates ICQ v5 packets for tests.
package ltesto

import (
	"encoding/binary"
	"math/rand"

	"github.com/soypat/dissect"
	"github.com/soypat/dissect/icq"
)

const (
	sizeHeaderClient = 0x18
	sizeHeaderServer = 0x15
	// separator ends text fields of messages.
	separator = 0xfe
)

// PacketGen generates ICQ v5 packets of a single session.
type PacketGen struct {
	UIN       uint32
	SessionID uint32
	Seq1      uint16
	Seq2      uint16
	// ServerMarker is the byte following the version on server packets. Must be non-zero.
	ServerMarker uint8
}

// Randomize sets the session identifiers of gen to random values.
func (gen *PacketGen) Randomize(rng *rand.Rand) {
	gen.UIN = rng.Uint32()
	gen.SessionID = rng.Uint32()
	seqs := rng.Uint32()
	gen.Seq1 = uint16(seqs)
	gen.Seq2 = uint16(seqs >> 16)
	gen.ServerMarker = uint8(rng.Intn(255)) + 1
}

// AppendClient appends an encrypted client packet with command cmd and
// parameters body to dst. The checkcode is random.
func (gen *PacketGen) AppendClient(dst []byte, rng *rand.Rand, cmd uint16, body []byte) []byte {
	return gen.appendClient(dst, rng.Uint32(), cmd, body, true)
}

// AppendClientPlain is like AppendClient but leaves the packet unencrypted,
// as seen after decryption.
func (gen *PacketGen) AppendClientPlain(dst []byte, checkcode uint32, cmd uint16, body []byte) []byte {
	return gen.appendClient(dst, checkcode, cmd, body, false)
}

func (gen *PacketGen) appendClient(dst []byte, checkcode uint32, cmd uint16, body []byte, encrypt bool) []byte {
	off := len(dst)
	dst = append(dst, make([]byte, sizeHeaderClient)...)
	dst = append(dst, body...)
	hdr, err := icq.NewClientHeader(dst[off:])
	if err != nil {
		panic(err)
	}
	hdr.SetVersion(5)
	hdr.SetMarker(0)
	hdr.SetUIN(gen.UIN)
	hdr.SetSessionID(gen.SessionID)
	hdr.SetCommand(cmd)
	hdr.SetSeq1(gen.Seq1)
	hdr.SetSeq2(gen.Seq2)
	hdr.SetCheckcode(checkcode)
	var vld dissect.Validator
	hdr.ValidateSize(&vld)
	if err = vld.ErrPop(); err != nil {
		panic(err)
	}
	if encrypt {
		if err = icq.Encrypt(dst[off:]); err != nil {
			panic(err)
		}
		if hdr.Checkcode() != checkcode {
			panic("encryption overwrote checkcode")
		}
	}
	gen.Seq1++
	gen.Seq2++
	return dst
}

// AppendServer appends a server packet with command cmd and parameters body to dst.
func (gen *PacketGen) AppendServer(dst []byte, rng *rand.Rand, cmd uint16, body []byte) []byte {
	off := len(dst)
	dst = append(dst, make([]byte, sizeHeaderServer)...)
	dst = append(dst, body...)
	hdr, err := icq.NewServerHeader(dst[off:])
	if err != nil {
		panic(err)
	}
	marker := gen.ServerMarker
	if marker == 0 {
		marker = 1
	}
	hdr.SetVersion(5)
	hdr.SetMarker(marker)
	hdr.SetSessionID(gen.SessionID)
	hdr.SetCommand(cmd)
	hdr.SetSeq1(gen.Seq1)
	hdr.SetSeq2(gen.Seq2)
	hdr.SetUIN(gen.UIN)
	hdr.SetCheckcode(rng.Uint32())
	var vld dissect.Validator
	hdr.ValidateSize(&vld)
	if err = vld.ErrPop(); err != nil {
		panic(err)
	}
	gen.Seq1++
	return dst
}

// AppendBundle appends the parameters of a SRV_MULTI_PACKET holding packets to dst.
func AppendBundle(dst []byte, packets ...[]byte) []byte {
	if len(packets) > 255 {
		panic("too many packets in bundle")
	}
	dst = append(dst, byte(len(packets)))
	for _, p := range packets {
		dst = binary.LittleEndian.AppendUint16(dst, uint16(len(p)))
		dst = append(dst, p...)
	}
	return dst
}

// AppendAttr appends s as a length prefixed, NUL terminated attribute.
func AppendAttr(dst []byte, s string) []byte {
	dst = binary.LittleEndian.AppendUint16(dst, uint16(len(s)+1))
	dst = append(dst, s...)
	return append(dst, 0)
}

// AppendMessage appends a message body of type msgType whose text fields
// are joined with separators. The last field is NUL terminated.
func AppendMessage(dst []byte, msgType uint16, fields ...string) []byte {
	dst = binary.LittleEndian.AppendUint16(dst, msgType)
	lenOff := len(dst)
	dst = append(dst, 0, 0)
	start := len(dst)
	for i, f := range fields {
		dst = append(dst, f...)
		if i != len(fields)-1 {
			dst = append(dst, separator)
		}
	}
	dst = append(dst, 0)
	binary.LittleEndian.PutUint16(dst[lenOff:], uint16(len(dst)-start))
	return dst
}

// AppendLogin appends CMD_LOGIN parameters.
func AppendLogin(dst []byte, unixTime, port uint32, passwd string, ip [4]byte, status uint32) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, unixTime)
	dst = binary.LittleEndian.AppendUint32(dst, port)
	dst = binary.LittleEndian.AppendUint16(dst, uint16(len(passwd)))
	dst = append(dst, passwd...)
	dst = append(dst, 0, 0, 0, 0) // Unknown.
	dst = append(dst, ip[:]...)
	dst = append(dst, 0) // Unknown.
	return binary.LittleEndian.AppendUint32(dst, status)
}

// RandomBody appends between 0 and maxLen random bytes to dst.
func RandomBody(dst []byte, rng *rand.Rand, maxLen int) []byte {
	n := rng.Intn(maxLen + 1)
	off := len(dst)
	dst = append(dst, make([]byte, n)...)
	rng.Read(dst[off:])
	return dst
}
