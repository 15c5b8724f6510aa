package dispatch

import (
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/blake2b"

	"github.com/soypat/dissect"
	"github.com/soypat/dissect/expert"
	"github.com/soypat/dissect/field"
	"github.com/soypat/dissect/internal"
	"github.com/soypat/dissect/ptree"
	"github.com/soypat/dissect/tvb"
)

type frameFields struct {
	number    field.ID
	length    field.ID
	capLength field.ID
	protocols field.ID
	digest    field.ID
	data      field.ID
	dataLen   field.ID
	bug       *expert.Info
}

func (ff *frameFields) register(r *Registry) {
	ff.number = r.fields.Register(&field.Descriptor{Name: "Frame Number", Abbrev: "frame.number", Type: field.TypeUint32, Base: field.BaseDec})
	ff.length = r.fields.Register(&field.Descriptor{Name: "Frame Length", Abbrev: "frame.len", Type: field.TypeUint32, Base: field.BaseDec})
	ff.capLength = r.fields.Register(&field.Descriptor{Name: "Capture Length", Abbrev: "frame.cap_len", Type: field.TypeUint32, Base: field.BaseDec})
	ff.protocols = r.fields.Register(&field.Descriptor{Name: "Protocols in frame", Abbrev: "frame.protocols", Type: field.TypeString})
	ff.digest = r.fields.Register(&field.Descriptor{Name: "BLAKE2b-256", Abbrev: "frame.digest", Type: field.TypeBytes})
	ff.data = r.fields.Register(&field.Descriptor{Name: "Data", Abbrev: "data.data", Type: field.TypeBytes})
	ff.dataLen = r.fields.Register(&field.Descriptor{Name: "Length", Abbrev: "data.len", Type: field.TypeUint32, Base: field.BaseDec})
	ff.bug = &expert.Info{
		Abbrev:   "malformed.dissector_bug",
		Severity: dissect.SeverityError,
		Group:    expert.GroupMalformed,
		Summary:  "Dissector bug",
	}
	r.expert.Register(ff.bug)
}

// EngineConfig configures an Engine.
type EngineConfig struct {
	// Logger receives per-frame trace logs. May be nil.
	Logger *slog.Logger
	// FrameDigest adds a BLAKE2b-256 digest of the captured bytes to the frame node.
	FrameDigest bool
}

// Engine runs dissection passes over frames. It is safe for concurrent use:
// each call to [Engine.Dissect] gets its own buffers, tree and anomalies.
type Engine struct {
	reg    *Registry
	logger *slog.Logger
	digest bool
}

// NewEngine seals reg and returns an Engine dissecting frames with it.
func NewEngine(reg *Registry, cfg EngineConfig) *Engine {
	reg.Seal()
	return &Engine{reg: reg, logger: cfg.Logger, digest: cfg.FrameDigest}
}

// Registry returns the sealed registry of the engine.
func (e *Engine) Registry() *Registry { return e.reg }

// Result is the output of one dissection pass.
type Result struct {
	Frame   Frame
	Tree    *ptree.Tree
	Expert  *expert.Collector
	Columns Columns
	// Sources are the data sources nodes refer to. The frame itself comes first.
	Sources []*tvb.Buffer
	// Protocol is the protocol that claimed the frame or nil.
	Protocol *Protocol
	// Recognized is false if no dissector claimed the frame.
	Recognized bool
}

// Summary returns a one line description of the frame for list views.
func (res *Result) Summary() string {
	if res.Columns.Info != "" {
		return res.Columns.Info
	}
	return res.Columns.Protocol
}

// Dissect decodes frm. Malformed input never makes it fail: problems are
// reported as anomalies in the result.
func (e *Engine) Dissect(frm Frame) *Result {
	ff := &e.reg.frame
	res := &Result{Frame: frm}
	reported := frm.reportedLen()
	badLength := reported < len(frm.Data)
	if badLength {
		reported = len(frm.Data)
	}
	buf, err := tvb.New("Frame", frm.Data, reported)
	if err != nil {
		panic(err) // Unreachable, reported was clamped.
	}
	tree := ptree.New(e.reg.fields)
	pkt := &Packet{
		Frame:  &res.Frame,
		Expert: expert.NewCollector(e.logger),
		Tree:   tree,
		layers: append([]string{"frame"}, frm.Layers...),
		logger: e.logger,
	}
	pkt.AddDataSource(buf)
	pkt.SetProtocol(strings.ToUpper(frm.Transport.String()))
	pkt.SetInfo("%d → %d Len=%d", frm.SrcPort, frm.DstPort, reported)
	wireLen := frm.WireLen
	if wireLen == 0 {
		wireLen = reported
	}
	root := tree.SetRoot(buf, "Frame %d: %d bytes on wire (%d bits), %d bytes captured (%d bits)",
		frm.Number, wireLen, wireLen*8, len(frm.Data), len(frm.Data)*8)
	e.addFrameFields(pkt, buf, root)
	if badLength {
		pkt.Expert.Add(root, expert.BadLength)
	}
	protosNode, _ := tree.AddString(root, ff.protocols, buf, 0, 0, "")
	protosNode.SetGenerated()

	res.Protocol, res.Recognized = e.dispatchPorts(buf, pkt, root)
	if !res.Recognized {
		e.addData(pkt, buf, root)
	}
	tree.SetString(protosNode, pkt.Layers())
	res.Tree = tree
	res.Expert = pkt.Expert
	res.Columns = pkt.Columns
	res.Sources = pkt.Sources()
	internal.LogAttrs(e.logger, internal.LevelTrace, "dispatch:frame",
		slog.Int("number", frm.Number),
		slog.Int("captured", len(frm.Data)),
		slog.Int("reported", reported),
		slog.Bool("recognized", res.Recognized),
		slog.Int("anomalies", pkt.Expert.Len()),
	)
	return res
}

// dispatchPorts tries the lower port first, then the higher one.
func (e *Engine) dispatchPorts(buf *tvb.Buffer, pkt *Packet, root *ptree.Node) (proto *Protocol, ok bool) {
	frm := pkt.Frame
	lo, hi := frm.SrcPort, frm.DstPort
	if lo > hi {
		lo, hi = hi, lo
	}
	ports := [2]uint16{lo, hi}
	nports := 2
	if lo == hi {
		nports = 1
	}
	defer func() {
		if r := recover(); r != nil {
			pkt.Expert.Addf(root, e.reg.frame.bug, fmt.Sprintf("Dissector bug: %v", r))
			internal.LogAttrs(e.logger, slog.LevelError, "dispatch:panic",
				slog.Int("number", frm.Number), slog.Any("recovered", r))
			proto, ok = nil, false
		}
	}()
	for _, port := range ports[:nports] {
		_, p, err := e.reg.dispatch(frm.Transport, port, buf, pkt, root)
		if err == nil {
			return p, true
		}
	}
	return nil, false
}

func (e *Engine) addFrameFields(pkt *Packet, buf *tvb.Buffer, root *ptree.Node) {
	ff := &e.reg.frame
	tree := pkt.Tree
	frm := pkt.Frame
	if !frm.Timestamp.IsZero() {
		tree.AddText(root, buf, 0, 0, "Arrival Time: %s", frm.Timestamp.UTC().Format("Jan 2, 2006 15:04:05.000000000 UTC"))
	}
	if frm.LinkType != "" {
		tree.AddText(root, buf, 0, 0, "Encapsulation type: %s", frm.LinkType)
	}
	for _, f := range [...]struct {
		id field.ID
		v  int
	}{
		{ff.number, frm.Number},
		{ff.length, buf.ReportedLen()},
		{ff.capLength, buf.CapturedLen()},
	} {
		n, _ := tree.AddUint(root, f.id, buf, 0, 0, uint64(f.v))
		n.SetGenerated()
	}
	if e.digest {
		sum := blake2b.Sum256(frm.Data)
		n, _ := tree.AddBytes(root, ff.digest, buf, 0, 0, sum[:])
		n.SetGenerated()
	}
}

func (e *Engine) addData(pkt *Packet, buf *tvb.Buffer, root *ptree.Node) {
	ff := &e.reg.frame
	n := buf.CapturedLen()
	pkt.PushLayer("data")
	data := pkt.Tree.AddSubtree(root, 0, buf, 0, n, "Data (%d bytes)", n)
	pkt.Tree.AddItem(data, ff.data, buf, 0, n)
	l, _ := pkt.Tree.AddUint(data, ff.dataLen, buf, 0, 0, uint64(n))
	l.SetGenerated()
}
