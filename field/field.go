// Package field holds the static metadata describing every named field and
// subtree kind a dissector can emit.
package field

import (
	"strconv"
)

// ID identifies a registered field. The zero ID denotes free text.
type ID int

// SubtreeID identifies a registered subtree kind.
type SubtreeID int

// Type is the primitive type of a field's value.
type Type uint8

const (
	TypeNone    Type = iota // none
	TypeUint8               // uint8
	TypeUint16              // uint16
	TypeUint32              // uint32
	TypeBool                // boolean
	TypeString              // string
	TypeBytes               // bytes
	TypeIPv4                // IPv4 address
	TypeAbsTime             // absolute time
)

// Width returns the amount of bytes the type occupies on the wire or 0 for variable length types.
func (t Type) Width() int {
	switch t {
	case TypeUint8, TypeBool:
		return 1
	case TypeUint16:
		return 2
	case TypeUint32, TypeIPv4, TypeAbsTime:
		return 4
	}
	return 0
}

// IsUint returns true for unsigned integer types.
func (t Type) IsUint() bool { return t == TypeUint8 || t == TypeUint16 || t == TypeUint32 }

func (t Type) String() string {
	switch t {
	case TypeUint8:
		return "uint8"
	case TypeUint16:
		return "uint16"
	case TypeUint32:
		return "uint32"
	case TypeBool:
		return "boolean"
	case TypeString:
		return "string"
	case TypeBytes:
		return "bytes"
	case TypeIPv4:
		return "IPv4 address"
	case TypeAbsTime:
		return "absolute time"
	}
	return "none"
}

// Base is the display base of integer fields.
type Base uint8

const (
	BaseNone Base = iota
	BaseDec
	BaseHex
)

// Descriptor describes a field. Descriptors are immutable once registered.
type Descriptor struct {
	// ID is set on registration.
	ID ID
	// Name is the human readable name, i.e: "Session ID".
	Name string
	// Abbrev is the unique filter path of the field, i.e: "icq.sessionid".
	Abbrev string
	Type   Type
	Base   Base
	// Strings maps enumerated values to labels. May be nil.
	Strings *ValueStrings
	// TrueFalse labels boolean values. May be nil.
	TrueFalse *TrueFalse
	// Blurb is an optional description.
	Blurb string
}

// FormatUint renders v according to the descriptor's base and value-label table.
// Enumerated values are rendered "LABEL (code)", unknown ones "Unknown (code)".
func (d *Descriptor) FormatUint(v uint64) string {
	return string(d.AppendUint(nil, v))
}

// AppendUint is the allocation conscious version of [Descriptor.FormatUint].
func (d *Descriptor) AppendUint(dst []byte, v uint64) []byte {
	if d.Type == TypeBool {
		return append(dst, d.TrueFalse.Label(v != 0)...)
	}
	if d.Strings == nil {
		return d.appendNumber(dst, v)
	}
	label, ok := d.Strings.Lookup(v)
	if !ok {
		label = d.Strings.unknownLabel()
	}
	dst = append(dst, label...)
	dst = append(dst, " ("...)
	dst = d.appendNumber(dst, v)
	return append(dst, ')')
}

func (d *Descriptor) appendNumber(dst []byte, v uint64) []byte {
	if d.Base != BaseHex {
		return strconv.AppendUint(dst, v, 10)
	}
	digits := 2 * d.Type.Width()
	if digits == 0 {
		digits = 2
	}
	dst = append(dst, "0x"...)
	var buf [16]byte
	s := strconv.AppendUint(buf[:0], v, 16)
	for i := len(s); i < digits; i++ {
		dst = append(dst, '0')
	}
	return append(dst, s...)
}

// TrueFalse holds the labels of a boolean field.
type TrueFalse struct {
	True, False string
}

// Label returns the label for b. A nil TrueFalse yields "True"/"False".
func (tf *TrueFalse) Label(b bool) string {
	switch {
	case tf == nil && b:
		return "True"
	case tf == nil:
		return "False"
	case b:
		return tf.True
	}
	return tf.False
}
