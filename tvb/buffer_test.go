package tvb

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/soypat/dissect"
)

func TestReadsLittleEndian(t *testing.T) {
	b, err := New("Frame", []byte{0x05, 0x00, 0x78, 0x56, 0x34, 0x12, 10, 0, 0, 1}, 10)
	if err != nil {
		t.Fatal(err)
	}
	v16, err := b.U16(0)
	if err != nil || v16 != 5 {
		t.Errorf("want 5, got %d (%v)", v16, err)
	}
	v32, err := b.U32(2)
	if err != nil || v32 != 0x12345678 {
		t.Errorf("want 0x12345678, got %#x (%v)", v32, err)
	}
	v, err := b.Uint(2, 3)
	if err != nil || v != 0x345678 {
		t.Errorf("want 0x345678, got %#x (%v)", v, err)
	}
	addr, err := b.IPv4(6)
	if err != nil || addr.String() != "10.0.0.1" {
		t.Errorf("want 10.0.0.1, got %s (%v)", addr, err)
	}
}

func TestNewRejectsShortReported(t *testing.T) {
	_, err := New("Frame", make([]byte, 8), 4)
	if !errors.Is(err, dissect.ErrBadLength) {
		t.Errorf("want bad length error, got %v", err)
	}
}

func TestReadsNeverPassCaptured(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	data := make([]byte, 64)
	rng.Read(data)
	for i := 0; i < 4096; i++ {
		captured := rng.Intn(len(data) + 1)
		b, err := New("Frame", data[:captured], captured+rng.Intn(32))
		if err != nil {
			t.Fatal(err)
		}
		off := rng.Intn(80) - 8
		n := rng.Intn(80) - 8
		inRange := off >= 0 && n >= 0 && off+n <= captured
		got, err := b.Bytes(off, n)
		if inRange != (err == nil) {
			t.Fatalf("off=%d n=%d captured=%d: want inRange=%v, got err=%v", off, n, captured, inRange, err)
		}
		if err == nil && len(got) != n {
			t.Fatalf("want %d bytes, got %d", n, len(got))
		}
		if err != nil && n >= 0 && off >= 0 && !errors.Is(err, dissect.ErrTruncated) {
			t.Fatalf("want truncated error, got %v", err)
		}
		_, err = b.U32(off)
		if (off >= 0 && off+4 <= captured) != (err == nil) {
			t.Fatalf("U32 off=%d captured=%d: unexpected err=%v", off, captured, err)
		}
		l, err := b.CheckLength(off, n)
		if err == nil && l != n {
			t.Fatalf("CheckLength returned %d, want %d", l, n)
		}
	}
}

func TestSubsetBounds(t *testing.T) {
	data := []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	b, _ := New("Frame", data[:8], 10)
	sub, err := b.Subset(6, 4)
	if err != nil {
		t.Fatal(err)
	}
	if sub.CapturedLen() != 2 || sub.ReportedLen() != 4 {
		t.Errorf("want captured=2 reported=4, got captured=%d reported=%d", sub.CapturedLen(), sub.ReportedLen())
	}
	if _, err := sub.U8(2); !errors.Is(err, dissect.ErrTruncated) {
		t.Errorf("subset must not read past parent capture, got %v", err)
	}
	if sub.AbsOffset(1) != 7 {
		t.Errorf("want absolute offset 7, got %d", sub.AbsOffset(1))
	}
	if sub.Source() != b {
		t.Error("subset source must be parent buffer")
	}
	inner, _ := sub.Subset(1, 1)
	if inner.AbsOffset(0) != 7 {
		t.Errorf("want nested absolute offset 7, got %d", inner.AbsOffset(0))
	}
	if _, err := b.Subset(9, 1); err == nil {
		t.Error("expected error for subset past captured data")
	}
}

func TestDeriveIndependent(t *testing.T) {
	orig := []byte{1, 2, 3, 4}
	b, _ := New("Frame", orig, 6)
	work := b.Clone(nil)
	work = append(work, 0, 0, 0, 0)
	work[0] = 0xff
	d, err := b.Derive("Decrypted", work, 4, b.ReportedLen())
	if err != nil {
		t.Fatal(err)
	}
	if orig[0] != 1 {
		t.Error("original buffer modified")
	}
	if d.CapturedLen() != 4 || d.ReportedLen() != 6 || d.Name() != "Decrypted" {
		t.Errorf("unexpected derived buffer captured=%d reported=%d name=%q", d.CapturedLen(), d.ReportedLen(), d.Name())
	}
	if _, err := d.U8(4); err == nil {
		t.Error("derived buffer must not expose rounding bytes")
	}
}

func TestFindByte(t *testing.T) {
	b, _ := New("Frame", []byte("abc\xfedef\xfe"), 8)
	if i := b.FindByte(0, -1, 0xfe); i != 3 {
		t.Errorf("want 3, got %d", i)
	}
	if i := b.FindByte(4, 3, 0xfe); i != -1 {
		t.Errorf("want -1 within limit, got %d", i)
	}
	if i := b.FindByte(4, -1, 0xfe); i != 7 {
		t.Errorf("want 7, got %d", i)
	}
	if i := b.FindByte(20, -1, 0xfe); i != -1 {
		t.Errorf("want -1 out of range, got %d", i)
	}
}
