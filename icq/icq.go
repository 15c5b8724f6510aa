// Package icq implements a dissector for the ICQ v5 protocol over UDP.
//
// Client packets are obfuscated with a checkcode derived key: they are
// decrypted into a new data source before their command is decoded. Server
// packets travel in clear and may bundle other server packets.
package icq

import (
	"log/slog"
	"strconv"

	"github.com/soypat/dissect"
	"github.com/soypat/dissect/dispatch"
	"github.com/soypat/dissect/internal"
	"github.com/soypat/dissect/ptree"
	"github.com/soypat/dissect/tvb"
)

// DefaultMaxBundleDepth is the default limit of nested SRV_MULTI_PACKET bundles.
const DefaultMaxBundleDepth = 8

// Config configures the ICQ dissector.
type Config struct {
	// UDPPorts the dissector is bound to. Defaults to [UDPPort].
	UDPPorts []uint16
	// MaxBundleDepth limits recursion of bundled packets. Defaults to [DefaultMaxBundleDepth].
	MaxBundleDepth int
}

// Dissector decodes ICQ packets. Register it with [Register].
type Dissector struct {
	proto    *dispatch.Protocol
	hf       fieldIDs
	ett      subtreeIDs
	ei       expertInfos
	maxDepth int
	client   map[uint16]layoutFunc
	server   map[uint16]layoutFunc
}

var _ dispatch.Dissector = (*Dissector)(nil)

// Register registers the ICQ protocol, its fields and anomalies in reg and
// binds the dissector to the configured UDP ports.
func Register(reg *dispatch.Registry, cfg Config) *Dissector {
	if len(cfg.UDPPorts) == 0 {
		cfg.UDPPorts = []uint16{UDPPort}
	}
	if cfg.MaxBundleDepth <= 0 {
		cfg.MaxBundleDepth = DefaultMaxBundleDepth
	}
	d := &Dissector{
		maxDepth: cfg.MaxBundleDepth,
		client:   clientLayouts,
		server:   serverLayouts,
	}
	d.proto = reg.RegisterProtocol("ICQ Protocol", "ICQ", "icq")
	d.hf.register(reg)
	d.ett.register(reg)
	d.ei.register(reg)
	for _, port := range cfg.UDPPorts {
		reg.RegisterPort(d.proto, dissect.TransportUDP, port, d)
	}
	return d
}

// Protocol returns the registered ICQ protocol.
func (d *Dissector) Protocol() *dispatch.Protocol { return d.proto }

// Dissect implements [dispatch.Dissector]. Packets with a version outside 2..5
// are not claimed. Only version 5 packets are decoded past the version.
func (d *Dissector) Dissect(buf *tvb.Buffer, pkt *dispatch.Packet, parent *ptree.Node) int {
	version, err := buf.U16(offVersion)
	if err != nil || version < 2 || version > 5 {
		return 0
	}
	pkt.SetProtocol(fmtVersion(version))
	pkt.SetInfo("ICQ Version %d protocol", version)
	pkt.PushLayer(d.proto.Filter)
	top := pkt.Tree.AddSubtree(parent, d.ett.icq, buf, 0, buf.CapturedLen(), "%s", fmtVersion(version))
	top.Field = d.proto.Field
	if version != 5 {
		pkt.Tree.AddItem(top, d.hf.version, buf, offVersion, 2)
		return buf.CapturedLen()
	}
	w := &walk{d: d, pkt: pkt}
	marker, err := buf.U32(offMarker)
	if err != nil {
		c := w.cursor(buf, top)
		c.fail(nil, err)
		return buf.CapturedLen()
	}
	switch SniffRole(marker) {
	case RoleClient:
		d.dissectClient(buf, w, top)
	default:
		d.dissectServer(buf, w, top)
	}
	return buf.CapturedLen()
}

func (d *Dissector) logCommand(w *walk, role Role, cmd uint16) {
	logger := w.pkt.Logger()
	if !internal.LogEnabled(logger, internal.LevelTrace) {
		return
	}
	internal.LogAttrs(logger, internal.LevelTrace, "icq:cmd",
		slog.String("role", role.String()),
		slog.String("cmd", CommandName(role, cmd)),
		slog.Int("depth", w.depth),
	)
}

func fmtVersion(v uint16) string {
	return "ICQv" + strconv.Itoa(int(v))
}
