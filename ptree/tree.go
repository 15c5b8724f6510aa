// Package ptree implements the protocol tree built while dissecting a frame.
//
// Nodes point back into the [tvb.Buffer] they were decoded from by byte
// range. A tree belongs to a single dissection pass and is never shared.
package ptree

import (
	"encoding/hex"
	"fmt"
	"net/netip"
	"time"

	"github.com/soypat/dissect/field"
	"github.com/soypat/dissect/tvb"
)

// NodeFlags carry presentation hints of a node.
type NodeFlags uint8

const (
	// FlagGenerated marks values computed by the dissector rather than read from the wire.
	FlagGenerated NodeFlags = 1 << iota
	// FlagTruncated marks nodes whose contents could not be decoded fully.
	FlagTruncated
)

// Value is the decoded value of a field node.
type Value struct {
	Uint  uint64
	Str   string
	Raw   []byte
	Addr  netip.Addr
	Valid bool
}

// Node is a single element of the protocol tree.
type Node struct {
	Parent   *Node
	Children []*Node
	// Source is the buffer Offset and Length refer to.
	Source *tvb.Buffer
	Offset int
	// Length of 0 denotes an informational node with no bytes.
	Length  int
	Field   field.ID // zero for free text.
	Subtree field.SubtreeID
	Value   Value
	Text    string
	Flags   NodeFlags
}

// IsGenerated reports whether the node's value was computed rather than read.
func (n *Node) IsGenerated() bool { return n.Flags&FlagGenerated != 0 }

// SetGenerated marks the node as generated.
func (n *Node) SetGenerated() *Node {
	n.Flags |= FlagGenerated
	return n
}

// AppendText appends formatted text to the node's display text.
func (n *Node) AppendText(format string, args ...any) {
	n.Text += fmt.Sprintf(format, args...)
}

// AbsOffset returns the node's offset within its data source.
func (n *Node) AbsOffset() int {
	if n.Source == nil {
		return n.Offset
	}
	return n.Source.AbsOffset(n.Offset)
}

// Depth returns the amount of ancestors of n.
func (n *Node) Depth() int {
	d := 0
	for p := n.Parent; p != nil; p = p.Parent {
		d++
	}
	return d
}

// Tree is the hierarchical result of dissecting one frame.
type Tree struct {
	fields *field.Registry
	root   *Node
	count  int
}

// New returns an empty tree that resolves fields in reg. reg may be nil if
// only free text nodes are added.
func New(reg *field.Registry) *Tree {
	return &Tree{fields: reg}
}

// Fields returns the registry the tree resolves field descriptors with.
func (t *Tree) Fields() *field.Registry { return t.fields }

// Root returns the frame node or nil if SetRoot was not called.
func (t *Tree) Root() *Node { return t.root }

// Len returns the amount of nodes in the tree.
func (t *Tree) Len() int { return t.count }

// SetRoot creates the frame node spanning the captured bytes of buf.
func (t *Tree) SetRoot(buf *tvb.Buffer, format string, args ...any) *Node {
	t.root = &Node{Source: buf, Length: buf.CapturedLen(), Text: fmt.Sprintf(format, args...)}
	t.count = 1
	return t.root
}

func (t *Tree) attach(parent, n *Node) *Node {
	if parent == nil {
		parent = t.root
	}
	if parent == nil {
		panic("ptree: nil parent on tree without root")
	}
	n.Parent = parent
	parent.Children = append(parent.Children, n)
	t.count++
	return n
}

// AddText adds a free text leaf spanning [off, off+length) of buf.
// A zero length leaf is legal and marks purely informational text.
func (t *Tree) AddText(parent *Node, buf *tvb.Buffer, off, length int, format string, args ...any) (*Node, error) {
	if err := buf.CheckRange(off, length); err != nil {
		return nil, err
	}
	return t.attach(parent, &Node{Source: buf, Offset: off, Length: length, Text: fmt.Sprintf(format, args...)}), nil
}

// AddSubtree adds a node of the given kind that groups further nodes. Its
// span is clamped to the captured bytes of buf since a subtree reads no data itself.
func (t *Tree) AddSubtree(parent *Node, kind field.SubtreeID, buf *tvb.Buffer, off, length int, format string, args ...any) *Node {
	off = max(0, min(off, buf.CapturedLen()))
	length = max(0, min(length, buf.CapturedRemaining(off)))
	return t.attach(parent, &Node{Source: buf, Offset: off, Length: length, Subtree: kind, Text: fmt.Sprintf(format, args...)})
}

// AddItem decodes field fid from buf at [off, off+length) and adds it as a leaf.
// For integer fields a length of 0 means the field type's width. Integers are
// read little-endian. No node is added if the bytes are not captured.
func (t *Tree) AddItem(parent *Node, fid field.ID, buf *tvb.Buffer, off, length int) (*Node, error) {
	d := t.fields.Resolve(fid)
	if length == 0 {
		length = d.Type.Width()
	}
	n := &Node{Source: buf, Offset: off, Length: length, Field: fid}
	var err error
	switch d.Type {
	case field.TypeUint8, field.TypeUint16, field.TypeUint32, field.TypeBool, field.TypeAbsTime:
		n.Value.Uint, err = buf.Uint(off, length)
	case field.TypeString:
		n.Value.Str, err = buf.String(off, length)
	case field.TypeBytes:
		n.Value.Raw, err = buf.Bytes(off, length)
	case field.TypeIPv4:
		n.Value.Addr, err = buf.IPv4(off)
		if err == nil && length != 4 {
			err = buf.CheckRange(off, length)
		}
	default:
		panic("ptree: unsupported field type " + d.Type.String())
	}
	if err != nil {
		return nil, err
	}
	n.Value.Valid = true
	n.Text = string(appendItemText(nil, d, &n.Value))
	return t.attach(parent, n), nil
}

// AddUint adds an integer or boolean field with an explicit value v, such as
// a value computed from several wire fields. The range must be captured.
func (t *Tree) AddUint(parent *Node, fid field.ID, buf *tvb.Buffer, off, length int, v uint64) (*Node, error) {
	d := t.fields.Resolve(fid)
	if !d.Type.IsUint() && d.Type != field.TypeBool && d.Type != field.TypeAbsTime {
		panic("ptree: AddUint on non-integer field " + d.Abbrev)
	}
	if err := buf.CheckRange(off, length); err != nil {
		return nil, err
	}
	n := &Node{Source: buf, Offset: off, Length: length, Field: fid}
	n.Value = Value{Uint: v, Valid: true}
	n.Text = string(appendItemText(nil, d, &n.Value))
	return t.attach(parent, n), nil
}

// AddBool adds a boolean field with an explicit value.
func (t *Tree) AddBool(parent *Node, fid field.ID, buf *tvb.Buffer, off, length int, b bool) (*Node, error) {
	var v uint64
	if b {
		v = 1
	}
	return t.AddUint(parent, fid, buf, off, length, v)
}

// Walk calls fn on every node in depth first order starting at the root.
// Children of a node are skipped if fn returns false.
func (t *Tree) Walk(fn func(n *Node, depth int) bool) {
	if t.root != nil {
		walk(t.root, 0, fn)
	}
}

func walk(n *Node, depth int, fn func(*Node, int) bool) {
	if !fn(n, depth) {
		return
	}
	for _, c := range n.Children {
		walk(c, depth+1, fn)
	}
}

// FindField returns all nodes of field fid in depth first order.
func (t *Tree) FindField(fid field.ID) []*Node {
	var found []*Node
	t.Walk(func(n *Node, _ int) bool {
		if n.Field == fid {
			found = append(found, n)
		}
		return true
	})
	return found
}

func appendItemText(dst []byte, d *field.Descriptor, v *Value) []byte {
	dst = append(dst, d.Name...)
	dst = append(dst, ": "...)
	switch d.Type {
	case field.TypeString:
		dst = AppendText(dst, []byte(v.Str))
	case field.TypeBytes:
		dst = hex.AppendEncode(dst, v.Raw)
	case field.TypeIPv4:
		dst = v.Addr.AppendTo(dst)
	case field.TypeAbsTime:
		dst = time.Unix(int64(v.Uint), 0).UTC().AppendFormat(dst, "Jan 2, 2006 15:04:05 UTC")
	default:
		dst = d.AppendUint(dst, v.Uint)
	}
	return dst
}

// AppendText appends wire text to dst escaping non printable bytes.
func AppendText(dst, text []byte) []byte {
	const hexdigits = "0123456789abcdef"
	for _, c := range text {
		switch {
		case c == '\\':
			dst = append(dst, `\\`...)
		case c >= 0x20 && c < 0x7f:
			dst = append(dst, c)
		case c == '\n':
			dst = append(dst, `\n`...)
		case c == '\r':
			dst = append(dst, `\r`...)
		case c == '\t':
			dst = append(dst, `\t`...)
		default:
			dst = append(dst, '\\', 'x', hexdigits[c>>4], hexdigits[c&0xf])
		}
	}
	return dst
}

// FormatText is the string returning version of [AppendText].
func FormatText(text []byte) string {
	return string(AppendText(make([]byte, 0, len(text)), text))
}

// AddString adds a string field with an explicit value.
func (t *Tree) AddString(parent *Node, fid field.ID, buf *tvb.Buffer, off, length int, s string) (*Node, error) {
	d := t.fields.Resolve(fid)
	if d.Type != field.TypeString {
		panic("ptree: AddString on non-string field " + d.Abbrev)
	} else if err := buf.CheckRange(off, length); err != nil {
		return nil, err
	}
	n := &Node{Source: buf, Offset: off, Length: length, Field: fid}
	t.SetString(n, s)
	return t.attach(parent, n), nil
}

// AddBytes adds a byte field with an explicit value.
func (t *Tree) AddBytes(parent *Node, fid field.ID, buf *tvb.Buffer, off, length int, b []byte) (*Node, error) {
	d := t.fields.Resolve(fid)
	if d.Type != field.TypeBytes {
		panic("ptree: AddBytes on non-bytes field " + d.Abbrev)
	} else if err := buf.CheckRange(off, length); err != nil {
		return nil, err
	}
	n := &Node{Source: buf, Offset: off, Length: length, Field: fid}
	n.Value = Value{Raw: b, Valid: true}
	n.Text = string(appendItemText(nil, d, &n.Value))
	return t.attach(parent, n), nil
}

// SetString replaces the value of string node n.
func (t *Tree) SetString(n *Node, s string) {
	n.Value = Value{Str: s, Valid: true}
	n.Text = string(appendItemText(nil, t.fields.Resolve(n.Field), &n.Value))
}
