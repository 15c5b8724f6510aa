package dispatch

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/soypat/dissect"
	"github.com/soypat/dissect/expert"
	"github.com/soypat/dissect/ptree"
	"github.com/soypat/dissect/tvb"
)

// Frame is one captured unit of wire data handed in by the capture front end.
type Frame struct {
	// Number is the 1-based index of the frame within its capture.
	Number    int
	Timestamp time.Time
	// Data holds the captured bytes of the transport payload.
	Data []byte
	// ReportedLen is the payload length claimed by the wire. Zero means len(Data).
	ReportedLen int
	Transport   dissect.Transport
	SrcPort     uint16
	DstPort     uint16
	// LinkType is the encapsulation of the captured frame, i.e: "Ethernet".
	LinkType string
	// Layers lists the filter names of protocols decoded before the payload, i.e: ["eth" "ip" "udp"].
	Layers []string
	// WireLen is the length of the whole link layer frame on the wire. Zero means unknown.
	WireLen int
}

func (frm *Frame) reportedLen() int {
	if frm.ReportedLen == 0 {
		return len(frm.Data)
	}
	return frm.ReportedLen
}

// Columns are the summary columns of a frame.
type Columns struct {
	Protocol string
	Info     string
}

// Packet is the per-frame session context passed explicitly to every dissector.
// It is owned by a single dissection pass.
type Packet struct {
	Frame   *Frame
	Columns Columns
	Expert  *expert.Collector
	Tree    *ptree.Tree
	sources []*tvb.Buffer
	layers  []string
	logger  *slog.Logger
}

// AddDataSource registers buf as a named data source of the frame, such as
// decrypted bytes. buf must be a top level buffer.
func (p *Packet) AddDataSource(buf *tvb.Buffer) {
	if buf.Source() != buf {
		panic("dispatch: data source must be a top level buffer")
	}
	p.sources = append(p.sources, buf)
}

// Sources returns the frame's data sources, the frame itself being the first.
func (p *Packet) Sources() []*tvb.Buffer { return p.sources }

// SetProtocol sets the protocol column.
func (p *Packet) SetProtocol(s string) { p.Columns.Protocol = s }

// SetInfo sets the info column.
func (p *Packet) SetInfo(format string, args ...any) {
	p.Columns.Info = fmt.Sprintf(format, args...)
}

// PushLayer records filter as a protocol layer present in the frame.
func (p *Packet) PushLayer(filter string) { p.layers = append(p.layers, filter) }

// Layers returns the ':' separated protocol layers of the frame.
func (p *Packet) Layers() string { return strings.Join(p.layers, ":") }

// Logger returns the logger of the pass. It may be nil.
func (p *Packet) Logger() *slog.Logger { return p.logger }
