package dissect

import (
	"errors"
	"strconv"
)

type ValidateFlags uint64

const (
	validateReserved ValidateFlags = 1 << iota
	// ValidateAllowMultiErrors makes the Validator keep accumulating errors
	// after the first one is added.
	ValidateAllowMultiErrors
)

func (vf ValidateFlags) has(v ValidateFlags) bool {
	return vf&v == v
}

// Validator accumulates errors found while validating a frame or header.
// By default only the first error is kept.
type Validator struct {
	accum      []error
	accumRange []RangeErr
	flags      ValidateFlags
}

// NewValidator returns a Validator with the given flags set.
func NewValidator(flags ValidateFlags) *Validator {
	return &Validator{flags: flags}
}

func (v *Validator) Flags() ValidateFlags {
	return v.flags
}

func (v *Validator) ResetErr() {
	v.accum = v.accum[:0]
	v.accumRange = v.accumRange[:0]
}

func (v *Validator) HasError() bool {
	if v.flags.has(validateReserved) {
		panic("reserved bit set")
	}
	return len(v.accum) != 0
}

func (v *Validator) Err() error {
	if len(v.accum) == 1 {
		return v.accum[0]
	} else if len(v.accum) == 0 {
		return nil
	}
	return errors.Join(v.accum...)
}

// ErrPop returns the accumulated error and resets the Validator.
func (v *Validator) ErrPop() error {
	err := v.Err()
	v.ResetErr()
	return err
}

func (v *Validator) AddError(err error) {
	if err == nil {
		panic("error argument to AddError cannot be nil")
	} else if len(v.accum) != 0 && !v.flags.has(ValidateAllowMultiErrors) {
		return
	}
	v.accum = append(v.accum, err)
}

// AddRangeErr adds an error located at byte range [off, off+length).
func (v *Validator) AddRangeErr(off, length int, err error) {
	if err == nil {
		panic("err argument to AddRangeErr cannot be nil")
	} else if length < 0 {
		panic("negative length")
	} else if len(v.accum) != 0 && !v.flags.has(ValidateAllowMultiErrors) {
		return
	}
	v.accumRange = append(v.accumRange, RangeErr{Offset: off, Length: length, Err: err})
	v.accum = append(v.accum, &v.accumRange[len(v.accumRange)-1])
}

// RangeErr ties an error to the byte range where it was found.
type RangeErr struct {
	Offset int
	Length int
	Err    error
}

func (re *RangeErr) Error() string {
	var buf [64]byte
	b := append(buf[:0], re.Err.Error()...)
	b = append(b, " at bytes "...)
	b = strconv.AppendInt(b, int64(re.Offset), 10)
	b = append(b, ".."...)
	b = strconv.AppendInt(b, int64(re.Offset+re.Length), 10)
	return string(b)
}

func (re *RangeErr) Unwrap() error { return re.Err }
