// Package render formats dissection results as text: protocol trees,
// one line summaries and hex dumps of data sources.
package render

import (
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/soypat/dissect/dispatch"
	"github.com/soypat/dissect/expert"
	"github.com/soypat/dissect/ptree"
	"github.com/soypat/dissect/tvb"
)

const defaultIndent = "    "

// Formatter renders [dispatch.Result]s. The zero value is ready to use and
// renders plain text.
type Formatter struct {
	// Indent is prepended once per tree level. Defaults to four spaces.
	Indent string
	// Styles decorates output. Nil renders plain text.
	Styles *Styles
	// Offsets appends the byte range of each node as [source@offset+length].
	Offsets bool
	// MaxDepth limits the tree levels rendered below protocol nodes. Zero renders all.
	MaxDepth int
}

// FormatTree appends the protocol tree of res to dst, one node per line.
// Protocol subtrees are rendered at the same level as the frame node and
// anomalies are listed under the node they were raised on.
func (f *Formatter) FormatTree(dst []byte, res *dispatch.Result) []byte {
	root := res.Tree.Root()
	if root == nil {
		return dst
	}
	events := eventsByNode(res.Expert)
	dst = f.appendLine(dst, root, 0, events)
	for _, c := range root.Children {
		if len(c.Children) > 0 {
			dst = f.appendNode(dst, c, 0, events)
		} else {
			dst = f.appendNode(dst, c, 1, events)
		}
	}
	return dst
}

func (f *Formatter) appendNode(dst []byte, n *ptree.Node, level int, events map[*ptree.Node][]*expert.Event) []byte {
	dst = f.appendLine(dst, n, level, events)
	if f.MaxDepth > 0 && level >= f.MaxDepth {
		return dst
	}
	for _, c := range n.Children {
		dst = f.appendNode(dst, c, level+1, events)
	}
	return dst
}

func (f *Formatter) appendLine(dst []byte, n *ptree.Node, level int, events map[*ptree.Node][]*expert.Event) []byte {
	dst = f.appendIndent(dst, level)
	switch {
	case n.IsGenerated():
		dst = append(dst, f.Styles.generated("["+n.Text+"]")...)
	case level == 0 && n.Parent != nil:
		dst = append(dst, f.Styles.protocol(n.Text)...)
	default:
		dst = append(dst, n.Text...)
	}
	if f.Offsets && n.Source != nil {
		dst = append(dst, ' ')
		dst = append(dst, f.Styles.offset(formatRange(n))...)
	}
	dst = append(dst, '\n')
	for _, ev := range events[n] {
		dst = f.appendIndent(dst, level+1)
		dst = append(dst, f.Styles.severity(ev.Severity(), FormatEvent(ev))...)
		dst = append(dst, '\n')
	}
	return dst
}

func (f *Formatter) appendIndent(dst []byte, level int) []byte {
	indent := f.Indent
	if indent == "" {
		indent = defaultIndent
	}
	for range level {
		dst = append(dst, indent...)
	}
	return dst
}

// FormatEvent returns the annotation text of an anomaly, i.e:
//
//	[Expert Info (Error/Malformed): Length exceeds packet]
func FormatEvent(ev *expert.Event) string {
	var sb strings.Builder
	sb.WriteString("[Expert Info (")
	sb.WriteString(ev.Severity().String())
	sb.WriteByte('/')
	sb.WriteString(ev.Info.Group.String())
	sb.WriteString("): ")
	sb.WriteString(ev.Text)
	sb.WriteByte(']')
	return sb.String()
}

func formatRange(n *ptree.Node) string {
	b := make([]byte, 0, 32)
	b = append(b, '[')
	b = append(b, n.Source.Source().Name()...)
	b = append(b, '@')
	b = strconv.AppendInt(b, int64(n.AbsOffset()), 10)
	b = append(b, '+')
	b = strconv.AppendInt(b, int64(n.Length), 10)
	b = append(b, ']')
	return string(b)
}

func eventsByNode(c *expert.Collector) map[*ptree.Node][]*expert.Event {
	if c == nil || c.Len() == 0 {
		return nil
	}
	evs := c.Events()
	m := make(map[*ptree.Node][]*expert.Event, len(evs))
	for i := range evs {
		m[evs[i].Node] = append(m[evs[i].Node], &evs[i])
	}
	return m
}

// FormatSummary appends a one line summary of res to dst: frame number,
// seconds since origin, ports, protocol and info columns.
//
//	    1   0.000000  1024 → 4000  ICQv5  ICQv5 CMD_LOGIN
func (f *Formatter) FormatSummary(dst []byte, res *dispatch.Result, origin time.Time) []byte {
	frm := &res.Frame
	dst = appendPadded(dst, strconv.Itoa(frm.Number), 5)
	dst = append(dst, ' ')
	var rel float64
	if !origin.IsZero() && !frm.Timestamp.IsZero() {
		rel = frm.Timestamp.Sub(origin).Seconds()
	}
	dst = appendPadded(dst, strconv.FormatFloat(rel, 'f', 6, 64), 11)
	dst = append(dst, ' ')
	dst = appendPadded(dst, strconv.Itoa(int(frm.SrcPort)), 5)
	dst = append(dst, " → "...)
	dst = strconv.AppendInt(dst, int64(frm.DstPort), 10)
	dst = append(dst, "  "...)
	dst = append(dst, f.Styles.column(res.Columns.Protocol)...)
	dst = append(dst, "  "...)
	dst = append(dst, res.Summary()...)
	if sev := res.Expert.MaxSeverity(); sev != 0 {
		dst = append(dst, "  "...)
		dst = append(dst, f.Styles.severity(sev, "["+sev.String()+"]")...)
	}
	return append(dst, '\n')
}

// HexDump appends a dump of the captured bytes of buf to dst preceded by the
// buffer's name, in the format of hexdump -C.
func HexDump(dst []byte, buf *tvb.Buffer) []byte {
	dst = append(dst, buf.Name()...)
	dst = append(dst, " ("...)
	dst = strconv.AppendInt(dst, int64(buf.CapturedLen()), 10)
	dst = append(dst, " bytes):\n"...)
	return append(dst, hex.Dump(buf.Clone(nil))...)
}

// FormatSources appends a hex dump of every data source of res.
func (f *Formatter) FormatSources(dst []byte, res *dispatch.Result) []byte {
	for i, src := range res.Sources {
		if i != 0 {
			dst = append(dst, '\n')
		}
		dst = HexDump(dst, src)
	}
	return dst
}

func appendPadded(dst []byte, s string, width int) []byte {
	for i := len(s); i < width; i++ {
		dst = append(dst, ' ')
	}
	return append(dst, s...)
}
