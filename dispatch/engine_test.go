package dispatch

import (
	"bytes"
	"errors"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/soypat/dissect"
	"github.com/soypat/dissect/expert"
	"github.com/soypat/dissect/field"
	"github.com/soypat/dissect/ptree"
	"github.com/soypat/dissect/tvb"
)

const magic = 0xaa

// newMagicDissector registers a protocol claiming payloads starting with magic.
func newMagicDissector(r *Registry, filter string, port uint16) (*Protocol, field.ID) {
	proto := r.RegisterProtocol("Magic "+filter, filter, filter)
	tag := &field.Descriptor{Name: "Tag", Abbrev: filter + ".tag", Type: field.TypeUint8, Base: field.BaseHex}
	r.RegisterFields(tag)
	kind := r.RegisterSubtree(filter)
	r.RegisterPort(proto, dissect.TransportUDP, port, DissectorFunc(func(buf *tvb.Buffer, pkt *Packet, parent *ptree.Node) int {
		b, err := buf.U8(0)
		if err != nil || b != magic {
			return 0
		}
		pkt.SetProtocol(proto.Short)
		pkt.SetInfo("%s frame", filter)
		pkt.PushLayer(filter)
		top := pkt.Tree.AddSubtree(parent, kind, buf, 0, buf.CapturedLen(), "%s", proto.Name)
		pkt.Tree.AddItem(top, tag.ID, buf, 0, 1)
		return buf.CapturedLen()
	}))
	return proto, tag.ID
}

func udpFrame(data []byte, src, dst uint16) Frame {
	return Frame{
		Number:    1,
		Timestamp: time.Unix(1000, 0),
		Data:      data,
		Transport: dissect.TransportUDP,
		SrcPort:   src,
		DstPort:   dst,
		LinkType:  "Ethernet",
		Layers:    []string{"eth", "ip", "udp"},
	}
}

func TestEngineRecognized(t *testing.T) {
	reg := NewRegistry()
	lo, _ := newMagicDissector(reg, "lo", 7)
	newMagicDissector(reg, "hi", 9)
	e := NewEngine(reg, EngineConfig{})

	res := e.Dissect(udpFrame([]byte{magic, 1, 2}, 9, 7))
	if !res.Recognized || res.Protocol != lo {
		t.Fatalf("want lower port protocol to claim frame, got %+v", res.Protocol)
	}
	if res.Columns.Protocol != "lo" || res.Summary() != "lo frame" {
		t.Errorf("bad columns %+v", res.Columns)
	}
	root := res.Tree.Root()
	want := "Frame 1: 3 bytes on wire (24 bits), 3 bytes captured (24 bits)"
	if root.Text != want {
		t.Errorf("root text %q, want %q", root.Text, want)
	}
	protos := res.Tree.FindField(reg.frame.protocols)
	if len(protos) != 1 || protos[0].Value.Str != "frame:eth:ip:udp:lo" || !protos[0].IsGenerated() {
		t.Errorf("bad protocols node %+v", protos)
	}
	if len(res.Sources) != 1 || res.Sources[0].Name() != "Frame" {
		t.Error("frame must be the only data source")
	}
	if len(res.Tree.FindField(reg.frame.data)) != 0 {
		t.Error("recognized frame must not carry a data leaf")
	}
}

func TestEngineUnrecognized(t *testing.T) {
	reg := NewRegistry()
	newMagicDissector(reg, "lo", 7)
	e := NewEngine(reg, EngineConfig{})
	payload := []byte{1, 2, 3, 4}
	res := e.Dissect(udpFrame(payload, 7, 1234))
	if res.Recognized || res.Protocol != nil {
		t.Fatal("frame without magic was claimed")
	}
	if res.Columns.Protocol != "UDP" || res.Columns.Info != "7 → 1234 Len=4" {
		t.Errorf("bad default columns %+v", res.Columns)
	}
	data := res.Tree.FindField(reg.frame.data)
	if len(data) != 1 || !bytes.Equal(data[0].Value.Raw, payload) {
		t.Fatal("missing data leaf")
	}
	if data[0].Parent.Text != "Data (4 bytes)" {
		t.Errorf("bad data subtree %q", data[0].Parent.Text)
	}
	protos := res.Tree.FindField(reg.frame.protocols)
	if protos[0].Value.Str != "frame:eth:ip:udp:data" {
		t.Errorf("bad protocols %q", protos[0].Value.Str)
	}
	if res.Expert.Len() != 0 {
		t.Error("unrecognized frames are not anomalies")
	}
}

func TestEngineDigest(t *testing.T) {
	reg := NewRegistry()
	e := NewEngine(reg, EngineConfig{FrameDigest: true})
	payload := []byte("digest me")
	res := e.Dissect(udpFrame(payload, 1, 2))
	sum := blake2b.Sum256(payload)
	digest := res.Tree.FindField(reg.frame.digest)
	if len(digest) != 1 || !bytes.Equal(digest[0].Value.Raw, sum[:]) {
		t.Fatal("bad frame digest")
	}

	e = NewEngine(NewRegistry(), EngineConfig{})
	res = e.Dissect(udpFrame(payload, 1, 2))
	if len(res.Tree.FindField(e.Registry().frame.digest)) != 0 {
		t.Error("digest added while disabled")
	}
}

func TestEnginePanicRecovered(t *testing.T) {
	reg := NewRegistry()
	proto := reg.RegisterProtocol("Buggy", "BUG", "bug")
	reg.RegisterPort(proto, dissect.TransportUDP, 53, DissectorFunc(func(buf *tvb.Buffer, pkt *Packet, parent *ptree.Node) int {
		var m map[string]int
		m["boom"]++
		return 1
	}))
	e := NewEngine(reg, EngineConfig{})
	res := e.Dissect(udpFrame([]byte{0}, 53, 53))
	if res.Recognized {
		t.Error("panicking dissector claimed frame")
	}
	if res.Expert.Count(reg.frame.bug) != 1 {
		t.Fatal("panic not reported as anomaly")
	}
	if res.Expert.MaxSeverity() != dissect.SeverityError {
		t.Error("dissector bug must be an error")
	}
}

func TestEngineBadLength(t *testing.T) {
	e := NewEngine(NewRegistry(), EngineConfig{})
	frm := udpFrame([]byte{1, 2, 3, 4}, 1, 2)
	frm.ReportedLen = 2
	res := e.Dissect(frm)
	if res.Expert.Count(expert.BadLength) != 1 {
		t.Fatal("want bad length anomaly")
	}
	if res.Sources[0].ReportedLen() != 4 {
		t.Error("reported length must be clamped up to captured")
	}
}

func TestEngineReportedLength(t *testing.T) {
	e := NewEngine(NewRegistry(), EngineConfig{})
	frm := udpFrame([]byte{1, 2}, 1, 2)
	frm.ReportedLen = 100
	frm.WireLen = 142
	res := e.Dissect(frm)
	want := "Frame 1: 142 bytes on wire (1136 bits), 2 bytes captured (16 bits)"
	if res.Tree.Root().Text != want {
		t.Errorf("root text %q, want %q", res.Tree.Root().Text, want)
	}
	if res.Sources[0].ReportedLen() != 100 || res.Sources[0].CapturedLen() != 2 {
		t.Error("bad frame buffer lengths")
	}
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	_, tag := newMagicDissector(reg, "lo", 7)
	if !reg.Bound(dissect.TransportUDP, 7) || reg.Bound(dissect.TransportTCP, 7) {
		t.Error("bad port binding")
	}
	if reg.Fields().Resolve(tag).Abbrev != "lo.tag" {
		t.Error("field not registered")
	}
	if p, ok := reg.Protocol("lo"); !ok || p.Short != "lo" {
		t.Error("protocol lookup failed")
	}

	pkt := &Packet{Tree: ptree.New(reg.Fields()), Expert: expert.NewCollector(nil)}
	buf, _ := tvb.New("Frame", []byte{0}, 1)
	root := pkt.Tree.SetRoot(buf, "root")
	_, err := reg.Dispatch(dissect.TransportUDP, 7, buf, pkt, root)
	if !errors.Is(err, dissect.ErrNotMine) {
		t.Errorf("want ErrNotMine, got %v", err)
	}
	_, err = reg.Dispatch(dissect.TransportUDP, 8, buf, pkt, root)
	if !errors.Is(err, dissect.ErrNotMine) {
		t.Errorf("want ErrNotMine on unbound port, got %v", err)
	}

	reg.Seal()
	defer func() {
		if r := recover(); r != dissect.ErrSealed {
			t.Errorf("want ErrSealed panic, got %v", r)
		}
	}()
	reg.RegisterProtocol("Late", "late", "late")
}

func TestEngineConcurrent(t *testing.T) {
	reg := NewRegistry()
	newMagicDissector(reg, "lo", 7)
	e := NewEngine(reg, EngineConfig{FrameDigest: true})
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				frm := udpFrame([]byte{magic, byte(g), byte(i)}, 7, 4000)
				frm.Number = i
				res := e.Dissect(frm)
				if !res.Recognized || res.Tree.Root() == nil {
					t.Error("concurrent dissection failed")
					return
				}
			}
		}(g)
	}
	wg.Wait()
}

func TestPacketDataSource(t *testing.T) {
	var pkt Packet
	buf, _ := tvb.New("Frame", []byte{1, 2, 3}, 3)
	pkt.AddDataSource(buf)
	sub, _ := buf.Subset(1, 2)
	defer func() {
		if recover() == nil {
			t.Error("subset accepted as data source")
		}
	}()
	pkt.AddDataSource(sub)
}
