// Package tvb implements the bounds-checked byte buffer dissectors read frames through.
//
// A Buffer has a captured length (bytes actually present) and a reported
// length (bytes the wire claims existed). Every read is checked against the
// captured length and fails with an error wrapping [dissect.ErrTruncated]
// instead of reading out of range.
package tvb

import (
	"encoding/binary"
	"errors"
	"net/netip"

	"github.com/soypat/dissect"
)

var errNegativeOffset = errors.New("tvb: negative offset")

// Buffer is a read-only, bounds-checked view over frame bytes.
type Buffer struct {
	buf      []byte // len(buf) == captured length.
	reported int
	name     string
	// parent is the buffer this one is a Subset of. nil for data sources.
	parent *Buffer
	// base is the offset of this buffer's byte 0 within parent.
	base int
}

// New returns a top level Buffer named name over data. reported is the length
// the wire claimed and must not be less than len(data).
func New(name string, data []byte, reported int) (*Buffer, error) {
	if reported < len(data) {
		return nil, &dissect.RangeErr{Offset: 0, Length: reported, Err: dissect.ErrBadLength}
	}
	return &Buffer{buf: data, reported: reported, name: name}, nil
}

// Derive returns an independent top level Buffer over data, such as a
// decrypted copy of b. Only the first captured bytes of data are readable.
// The original buffer is not modified.
func (b *Buffer) Derive(name string, data []byte, captured, reported int) (*Buffer, error) {
	if captured < 0 || captured > len(data) {
		return nil, &dissect.RangeErr{Offset: 0, Length: captured, Err: dissect.ErrBadLength}
	}
	return New(name, data[:captured:captured], reported)
}

// Subset returns a Buffer over the region [off, off+n) of b that reports
// length n. Bytes of the region beyond b's captured length are not readable
// through the subset. Reads through the subset never see bytes outside the region.
func (b *Buffer) Subset(off, n int) (*Buffer, error) {
	if off < 0 || n < 0 {
		return nil, &dissect.RangeErr{Offset: off, Length: n, Err: errNegativeOffset}
	} else if off > len(b.buf) {
		return nil, &dissect.RangeErr{Offset: off, Length: n, Err: dissect.ErrTruncated}
	}
	end := min(off+n, len(b.buf))
	return &Buffer{
		buf:      b.buf[off:end:end],
		reported: n,
		name:     b.name,
		parent:   b,
		base:     off,
	}, nil
}

// Name returns the name of the data source the buffer belongs to.
func (b *Buffer) Name() string { return b.name }

// CapturedLen returns the amount of readable bytes.
func (b *Buffer) CapturedLen() int { return len(b.buf) }

// ReportedLen returns the length claimed by the wire for this buffer.
func (b *Buffer) ReportedLen() int { return b.reported }

// Source returns the top level buffer b belongs to. For buffers that are
// not a Subset it returns b.
func (b *Buffer) Source() *Buffer {
	for b.parent != nil {
		b = b.parent
	}
	return b
}

// AbsOffset converts an offset relative to b into an offset relative to b's Source.
func (b *Buffer) AbsOffset(off int) int {
	for b.parent != nil {
		off += b.base
		b = b.parent
	}
	return off
}

// Remaining returns the amount of reported bytes after off. It is zero if
// off is past the reported length.
func (b *Buffer) Remaining(off int) int {
	return max(0, b.reported-off)
}

// CapturedRemaining returns the amount of readable bytes after off.
func (b *Buffer) CapturedRemaining(off int) int {
	return max(0, len(b.buf)-off)
}

// CheckRange returns a non-nil error wrapping [dissect.ErrTruncated] if
// [off, off+n) is not fully captured.
func (b *Buffer) CheckRange(off, n int) error {
	if off < 0 || n < 0 {
		return &dissect.RangeErr{Offset: off, Length: n, Err: errNegativeOffset}
	} else if n > len(b.buf)-off {
		return &dissect.RangeErr{Offset: off, Length: n, Err: dissect.ErrTruncated}
	}
	return nil
}

// CheckLength validates a length claimed by the wire for an element starting at off.
// It returns the length if all claimed bytes are captured.
// Callers must use the returned length only when err is nil.
func (b *Buffer) CheckLength(off, claimed int) (int, error) {
	if err := b.CheckRange(off, claimed); err != nil {
		return 0, err
	}
	return claimed, nil
}

// U8 reads the byte at off.
func (b *Buffer) U8(off int) (uint8, error) {
	if err := b.CheckRange(off, 1); err != nil {
		return 0, err
	}
	return b.buf[off], nil
}

// U16 reads a little-endian uint16 at off.
func (b *Buffer) U16(off int) (uint16, error) {
	if err := b.CheckRange(off, 2); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b.buf[off:]), nil
}

// U32 reads a little-endian uint32 at off.
func (b *Buffer) U32(off int) (uint32, error) {
	if err := b.CheckRange(off, 4); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b.buf[off:]), nil
}

// Uint reads a little-endian unsigned integer n bytes wide (1 to 8) at off.
func (b *Buffer) Uint(off, n int) (uint64, error) {
	if n < 1 || n > 8 {
		return 0, &dissect.RangeErr{Offset: off, Length: n, Err: dissect.ErrBadLength}
	} else if err := b.CheckRange(off, n); err != nil {
		return 0, err
	}
	var v uint64
	for i := n - 1; i >= 0; i-- {
		v = v<<8 | uint64(b.buf[off+i])
	}
	return v, nil
}

// IPv4 reads a 4 byte IPv4 address in network order at off.
func (b *Buffer) IPv4(off int) (netip.Addr, error) {
	if err := b.CheckRange(off, 4); err != nil {
		return netip.Addr{}, err
	}
	return netip.AddrFrom4([4]byte(b.buf[off : off+4])), nil
}

// Bytes returns the captured bytes [off, off+n). The returned slice aliases
// the buffer and must not be modified.
func (b *Buffer) Bytes(off, n int) ([]byte, error) {
	if err := b.CheckRange(off, n); err != nil {
		return nil, err
	}
	return b.buf[off : off+n : off+n], nil
}

// String returns a copy of bytes [off, off+n) as a string.
func (b *Buffer) String(off, n int) (string, error) {
	data, err := b.Bytes(off, n)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Clone appends the captured bytes of b to dst.
func (b *Buffer) Clone(dst []byte) []byte {
	return append(dst, b.buf...)
}

// FindByte returns the offset of the first occurrence of c within the
// captured range [off, off+max). If max is negative the search runs until the
// end of captured data. It returns -1 if c is not found.
func (b *Buffer) FindByte(off, max int, c byte) int {
	if off < 0 || off >= len(b.buf) {
		return -1
	}
	end := len(b.buf)
	if max >= 0 && off+max < end {
		end = off + max
	}
	for i := off; i < end; i++ {
		if b.buf[i] == c {
			return i
		}
	}
	return -1
}
