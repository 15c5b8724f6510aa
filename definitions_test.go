package dissect

import (
	"errors"
	"fmt"
	"testing"
)

func TestRangeErrUnwrap(t *testing.T) {
	var v Validator
	v.AddRangeErr(4, 2, ErrTruncated)
	v.AddError(ErrBadLength) // Ignored without ValidateAllowMultiErrors.
	err := v.ErrPop()
	if !errors.Is(err, ErrTruncated) {
		t.Fatalf("want truncated error, got %v", err)
	}
	const want = "truncated data at bytes 4..6"
	if err.Error() != want {
		t.Errorf("want %q, got %q", want, err.Error())
	}
	if v.HasError() {
		t.Error("expected validator reset after ErrPop")
	}
}

func TestValidatorMultiErrors(t *testing.T) {
	v := NewValidator(ValidateAllowMultiErrors)
	v.AddError(ErrBadLength)
	v.AddRangeErr(0, 1, ErrTruncated)
	err := v.Err()
	if !errors.Is(err, ErrBadLength) || !errors.Is(err, ErrTruncated) {
		t.Errorf("want both errors joined, got %v", err)
	}
	wrapped := fmt.Errorf("icq: %w", ErrNotMine)
	if !errors.Is(wrapped, ErrNotMine) {
		t.Error("generic errors must be comparable through wrapping")
	}
}

func TestTransportString(t *testing.T) {
	for _, tc := range []struct {
		tr   Transport
		want string
	}{
		{TransportUDP, "udp"},
		{TransportTCP, "tcp"},
		{TransportNone, "none"},
	} {
		if got := tc.tr.String(); got != tc.want {
			t.Errorf("want %q, got %q", tc.want, got)
		}
	}
}
