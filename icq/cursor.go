package icq

import (
	"bytes"
	"fmt"
	"log/slog"

	"github.com/soypat/dissect/dispatch"
	"github.com/soypat/dissect/expert"
	"github.com/soypat/dissect/field"
	"github.com/soypat/dissect/internal"
	"github.com/soypat/dissect/ptree"
	"github.com/soypat/dissect/tvb"
)

const separator = 0xfe

// walk is the state shared by all cursors reading one ICQ packet.
// A bundled packet gets its own walk.
type walk struct {
	d     *Dissector
	pkt   *dispatch.Packet
	depth int
	// err is the first read failure. Once set every cursor step is a no-op.
	err error
}

// cursor reads fields of a command at offsets relative to base and attaches
// them under node. Steps following a failed read do nothing, so layouts are
// written as straight sequences of steps.
type cursor struct {
	*walk
	buf  *tvb.Buffer
	node *ptree.Node
	base int
	// size is the amount of reported bytes from base that belong to the command.
	size int
}

func (w *walk) cursor(buf *tvb.Buffer, node *ptree.Node) cursor {
	return cursor{walk: w, buf: buf, node: node, size: buf.ReportedLen()}
}

func (c *cursor) ok() bool { return c.err == nil }

// fail records err and reports a truncation anomaly on n, or on the cursor's
// node if n is nil. Only the first failure of a walk is reported.
func (c *cursor) fail(n *ptree.Node, err error) {
	if c.err != nil {
		return
	}
	c.err = err
	if n == nil {
		n = c.node
	}
	c.pkt.Expert.Addf(n, expert.Truncated, fmt.Sprintf("%s: %v", expert.Truncated.Summary, err))
	internal.LogAttrs(c.pkt.Logger(), slog.LevelDebug, "icq:truncated",
		slog.String("source", c.buf.Name()),
		slog.Int("off", c.buf.AbsOffset(c.base)),
		slog.String("err", err.Error()),
	)
}

// with returns a cursor reading from buf instead.
func (c cursor) with(buf *tvb.Buffer) cursor {
	c.buf = buf
	return c
}

// under returns a cursor attaching nodes under n.
func (c cursor) under(n *ptree.Node) cursor {
	c.node = n
	return c
}

// at returns a cursor whose offsets start at base, limited to size reported bytes.
func (c cursor) at(base, size int) cursor {
	c.base = base
	c.size = max(0, size)
	return c
}

// left returns the reported bytes of the command after rel.
func (c *cursor) left(rel int) int { return max(0, c.size-rel) }

func (c *cursor) u8(rel int) uint8 {
	if !c.ok() {
		return 0
	}
	v, err := c.buf.U8(c.base + rel)
	if err != nil {
		c.fail(nil, err)
	}
	return v
}

func (c *cursor) u16(rel int) uint16 {
	if !c.ok() {
		return 0
	}
	v, err := c.buf.U16(c.base + rel)
	if err != nil {
		c.fail(nil, err)
	}
	return v
}

func (c *cursor) u32(rel int) uint32 {
	if !c.ok() {
		return 0
	}
	v, err := c.buf.U32(c.base + rel)
	if err != nil {
		c.fail(nil, err)
	}
	return v
}

// bytes returns the captured bytes [rel, rel+n).
func (c *cursor) bytes(rel, n int) []byte {
	if !c.ok() {
		return nil
	}
	b, err := c.buf.Bytes(c.base+rel, n)
	if err != nil {
		c.fail(nil, err)
	}
	return b
}

// item adds field fid decoded from [rel, rel+n). n of 0 means the width of the field's type.
func (c *cursor) item(fid field.ID, rel, n int) *ptree.Node {
	if !c.ok() {
		return nil
	}
	node, err := c.pkt.Tree.AddItem(c.node, fid, c.buf, c.base+rel, n)
	if err != nil {
		c.fail(nil, err)
	}
	return node
}

// text adds a free text leaf spanning [rel, rel+n).
func (c *cursor) text(rel, n int, format string, args ...any) *ptree.Node {
	if !c.ok() {
		return nil
	}
	node, err := c.pkt.Tree.AddText(c.node, c.buf, c.base+rel, n, format, args...)
	if err != nil {
		c.fail(nil, err)
	}
	return node
}

// subtree adds a grouping node over [rel, rel+n) and returns a cursor under it.
// The returned cursor keeps the offsets of c.
func (c cursor) subtree(kind field.SubtreeID, rel, n int, format string, args ...any) cursor {
	if !c.ok() {
		return c
	}
	c.node = c.pkt.Tree.AddSubtree(c.node, kind, c.buf, c.base+rel, n, format, args...)
	return c
}

// attr adds a length prefixed text attribute at rel: a little-endian u16
// length followed by that many bytes. It returns the bytes consumed.
// A length exceeding the captured bytes adds a leaf saying so and stops the walk.
func (c *cursor) attr(rel int, name string) int {
	length := int(c.u16(rel))
	if !c.ok() {
		return 0
	}
	if _, err := c.buf.CheckLength(c.base+rel+2, length); err != nil {
		n := c.text(rel, 2, "%s[%d]: length exceeds packet", name, length)
		c.fail(n, err)
		return 0
	}
	c.text(rel, 2+length, "%s[%d]: %s", name, length, cstring(c.bytes(rel+2, length)))
	return 2 + length
}

// delimited adds the fields of a run of separator terminated strings found in
// [rel, rel+left). Every field but the last ends at a separator, the last
// consumes the rest. Fields with no bytes render as "(empty)". It returns the
// bytes consumed.
func (c *cursor) delimited(rel, left int, names []string) int {
	start := rel
	for i, name := range names {
		if !c.ok() {
			break
		}
		sz := max(0, left)
		if i != len(names)-1 {
			sep := c.buf.FindByte(c.base+rel, left, separator)
			if sep >= 0 {
				sz = sep - (c.base + rel) + 1
			}
		}
		if sz == 0 {
			c.text(rel, 0, "%s: (empty)", name)
			continue
		}
		c.text(rel, sz, "%s: %s", name, cstring(c.bytes(rel, sz)))
		rel += sz
		left -= sz
	}
	return rel - start
}

// cstring renders wire text the way ICQ clients display it: up to the first
// NUL, without a trailing separator.
func cstring(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	b = bytes.TrimSuffix(b, []byte{separator})
	return ptree.FormatText(b)
}
