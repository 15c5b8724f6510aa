package icq

import (
	"encoding/binary"
	"errors"

	"github.com/soypat/dissect"
)

// UDPPort is the port ICQ servers listen on. It is not IANA registered.
const UDPPort = 4000

// Offsets of fields in the ICQ v5 headers.
const (
	offVersion = 0x00
	// Marker is four bytes long on clients, one byte long on servers.
	offMarker = 0x02

	offClientUIN       = 0x06
	offClientSessionID = 0x0a
	offClientCmd       = 0x0e
	offClientSeq1      = 0x10
	offClientSeq2      = 0x12
	offClientCheckcode = 0x14
	sizeClientHeader   = 0x18

	offServerSessionID = 0x03
	offServerCmd       = 0x07
	offServerSeq1      = 0x09
	offServerSeq2      = 0x0b
	offServerUIN       = 0x0d
	offServerCheckcode = 0x11
	sizeServerHeader   = 0x15
)

var (
	errShortClient = errors.New("icq: client header too short")
	errShortServer = errors.New("icq: server header too short")
)

// Role selects between the two ICQ v5 header shapes.
type Role uint8

const (
	RoleClient Role = iota + 1 // Client
	RoleServer                 // Server
)

func (r Role) String() string {
	switch r {
	case RoleClient:
		return "Client"
	case RoleServer:
		return "Server"
	}
	return "Unknown"
}

// HeaderSize returns the size of the role's header.
func (r Role) HeaderSize() int {
	if r == RoleClient {
		return sizeClientHeader
	}
	return sizeServerHeader
}

// NewClientHeader returns a ClientHeader with data set to buf.
// An error is returned if the buffer is smaller than the client header.
func NewClientHeader(buf []byte) (ClientHeader, error) {
	if len(buf) < sizeClientHeader {
		return ClientHeader{buf: buf}, errShortClient
	}
	return ClientHeader{buf: buf}, nil
}

// ClientHeader encapsulates the raw data of an ICQ v5 client frame.
// All fields are little-endian. Fields from the session ID up to the
// sequence numbers are encrypted on the wire, see [Decrypt].
type ClientHeader struct {
	buf []byte
}

// RawData returns the underlying slice with which the header was created.
func (ch ClientHeader) RawData() []byte { return ch.buf }

// Version is 5 for the headers described here.
func (ch ClientHeader) Version() uint16 { return binary.LittleEndian.Uint16(ch.buf[offVersion:]) }

// SetVersion sets the version field. See [ClientHeader.Version].
func (ch ClientHeader) SetVersion(v uint16) { binary.LittleEndian.PutUint16(ch.buf[offVersion:], v) }

// Marker is zero for client frames.
func (ch ClientHeader) Marker() uint32 { return binary.LittleEndian.Uint32(ch.buf[offMarker:]) }

// SetMarker sets the role marker. See [ClientHeader.Marker].
func (ch ClientHeader) SetMarker(m uint32) { binary.LittleEndian.PutUint32(ch.buf[offMarker:], m) }

// UIN is the user identification number of the sender.
func (ch ClientHeader) UIN() uint32 { return binary.LittleEndian.Uint32(ch.buf[offClientUIN:]) }

// SetUIN sets the sender UIN. See [ClientHeader.UIN].
func (ch ClientHeader) SetUIN(uin uint32) { binary.LittleEndian.PutUint32(ch.buf[offClientUIN:], uin) }

// SessionID identifies the login session.
func (ch ClientHeader) SessionID() uint32 {
	return binary.LittleEndian.Uint32(ch.buf[offClientSessionID:])
}

// SetSessionID sets the session ID. See [ClientHeader.SessionID].
func (ch ClientHeader) SetSessionID(id uint32) {
	binary.LittleEndian.PutUint32(ch.buf[offClientSessionID:], id)
}

// Command is the client command code.
func (ch ClientHeader) Command() uint16 { return binary.LittleEndian.Uint16(ch.buf[offClientCmd:]) }

// SetCommand sets the command code. See [ClientHeader.Command].
func (ch ClientHeader) SetCommand(cmd uint16) {
	binary.LittleEndian.PutUint16(ch.buf[offClientCmd:], cmd)
}

func (ch ClientHeader) Seq1() uint16 { return binary.LittleEndian.Uint16(ch.buf[offClientSeq1:]) }

func (ch ClientHeader) SetSeq1(seq uint16) { binary.LittleEndian.PutUint16(ch.buf[offClientSeq1:], seq) }

func (ch ClientHeader) Seq2() uint16 { return binary.LittleEndian.Uint16(ch.buf[offClientSeq2:]) }

func (ch ClientHeader) SetSeq2(seq uint16) { binary.LittleEndian.PutUint16(ch.buf[offClientSeq2:], seq) }

// Checkcode is the key material of the frame's encryption. It is never encrypted.
func (ch ClientHeader) Checkcode() uint32 {
	return binary.LittleEndian.Uint32(ch.buf[offClientCheckcode:])
}

// SetCheckcode sets the checkcode. See [ClientHeader.Checkcode].
func (ch ClientHeader) SetCheckcode(cc uint32) {
	binary.LittleEndian.PutUint32(ch.buf[offClientCheckcode:], cc)
}

// Key returns the decryption key of a frame reportedLen bytes long.
func (ch ClientHeader) Key(reportedLen int) uint32 { return Key(ch.Checkcode(), reportedLen) }

// Body returns the command parameters following the header.
func (ch ClientHeader) Body() []byte { return ch.buf[sizeClientHeader:] }

// ValidateSize checks the header describes a version 5 client frame.
func (ch ClientHeader) ValidateSize(v *dissect.Validator) {
	if len(ch.buf) < sizeClientHeader {
		v.AddRangeErr(0, len(ch.buf), dissect.ErrTruncated)
		return
	}
	if ch.Version() != 5 {
		v.AddRangeErr(offVersion, 2, dissect.ErrUnsupportedVersion)
	}
	if ch.Marker() != 0 {
		v.AddRangeErr(offMarker, 4, errNotClient)
	}
}

var errNotClient = errors.New("icq: non-zero client marker")

// NewServerHeader returns a ServerHeader with data set to buf.
// An error is returned if the buffer is smaller than the server header.
func NewServerHeader(buf []byte) (ServerHeader, error) {
	if len(buf) < sizeServerHeader {
		return ServerHeader{buf: buf}, errShortServer
	}
	return ServerHeader{buf: buf}, nil
}

// ServerHeader encapsulates the raw data of an ICQ v5 server frame.
// Server frames are not encrypted.
type ServerHeader struct {
	buf []byte
}

// RawData returns the underlying slice with which the header was created.
func (sh ServerHeader) RawData() []byte { return sh.buf }

func (sh ServerHeader) Version() uint16 { return binary.LittleEndian.Uint16(sh.buf[offVersion:]) }

func (sh ServerHeader) SetVersion(v uint16) { binary.LittleEndian.PutUint16(sh.buf[offVersion:], v) }

// Marker is non-zero for server frames.
func (sh ServerHeader) Marker() uint8 { return sh.buf[offMarker] }

func (sh ServerHeader) SetMarker(m uint8) { sh.buf[offMarker] = m }

func (sh ServerHeader) SessionID() uint32 {
	return binary.LittleEndian.Uint32(sh.buf[offServerSessionID:])
}

func (sh ServerHeader) SetSessionID(id uint32) {
	binary.LittleEndian.PutUint32(sh.buf[offServerSessionID:], id)
}

func (sh ServerHeader) Command() uint16 { return binary.LittleEndian.Uint16(sh.buf[offServerCmd:]) }

func (sh ServerHeader) SetCommand(cmd uint16) {
	binary.LittleEndian.PutUint16(sh.buf[offServerCmd:], cmd)
}

func (sh ServerHeader) Seq1() uint16 { return binary.LittleEndian.Uint16(sh.buf[offServerSeq1:]) }

func (sh ServerHeader) SetSeq1(seq uint16) { binary.LittleEndian.PutUint16(sh.buf[offServerSeq1:], seq) }

func (sh ServerHeader) Seq2() uint16 { return binary.LittleEndian.Uint16(sh.buf[offServerSeq2:]) }

func (sh ServerHeader) SetSeq2(seq uint16) { binary.LittleEndian.PutUint16(sh.buf[offServerSeq2:], seq) }

func (sh ServerHeader) UIN() uint32 { return binary.LittleEndian.Uint32(sh.buf[offServerUIN:]) }

func (sh ServerHeader) SetUIN(uin uint32) { binary.LittleEndian.PutUint32(sh.buf[offServerUIN:], uin) }

func (sh ServerHeader) Checkcode() uint32 {
	return binary.LittleEndian.Uint32(sh.buf[offServerCheckcode:])
}

func (sh ServerHeader) SetCheckcode(cc uint32) {
	binary.LittleEndian.PutUint32(sh.buf[offServerCheckcode:], cc)
}

// Body returns the command parameters following the header.
func (sh ServerHeader) Body() []byte { return sh.buf[sizeServerHeader:] }

// ValidateSize checks the header describes a version 5 server frame.
func (sh ServerHeader) ValidateSize(v *dissect.Validator) {
	if len(sh.buf) < sizeServerHeader {
		v.AddRangeErr(0, len(sh.buf), dissect.ErrTruncated)
		return
	}
	if sh.Version() != 5 {
		v.AddRangeErr(offVersion, 2, dissect.ErrUnsupportedVersion)
	}
	if binary.LittleEndian.Uint32(sh.buf[offMarker:]) == 0 {
		v.AddRangeErr(offMarker, 4, errNotServer)
	}
}

var errNotServer = errors.New("icq: zero server marker")

// SniffRole returns the role of a version 5 frame given the 4 bytes at the marker offset.
func SniffRole(marker uint32) Role {
	if marker == 0 {
		return RoleClient
	}
	return RoleServer
}
