// Package capture reads pcap and pcapng capture files and turns their
// packets into frames ready for dissection.
package capture

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/soypat/dissect"
	"github.com/soypat/dissect/dispatch"
	"github.com/soypat/dissect/internal"
)

// Format of a capture file.
type Format uint8

const (
	FormatPcap   Format = iota + 1 // pcap
	FormatPcapNG                   // pcapng
)

func (f Format) String() string {
	switch f {
	case FormatPcap:
		return "pcap"
	case FormatPcapNG:
		return "pcapng"
	}
	return "unknown"
}

// pcapngMagic is the block type of the section header block starting every pcapng file.
var pcapngMagic = []byte{0x0a, 0x0d, 0x0d, 0x0a}

var errNoMagic = errors.New("capture: file too short for magic")

type packetSource interface {
	gopacket.PacketDataSource
	LinkType() layers.LinkType
}

// Config configures a [Reader].
type Config struct {
	// Snaplen truncates packet data to this many bytes. Zero keeps the file's capture length.
	Snaplen int
	Logger  *slog.Logger
}

// Reader yields the transport payloads of a capture file as [dispatch.Frame]s.
// Packets without a UDP or TCP payload are counted and skipped.
type Reader struct {
	src     packetSource
	format  Format
	snaplen int
	number  int
	counts  Counts
	log     *slog.Logger
}

// NewReader detects the format of the capture in r and prepares to read its packets.
func NewReader(r io.Reader, cfg Config) (*Reader, error) {
	if cfg.Snaplen < 0 {
		return nil, errors.New("capture: negative snaplen")
	}
	br := bufio.NewReader(r)
	magic, err := br.Peek(4)
	if err != nil {
		if err == io.EOF {
			err = errNoMagic
		}
		return nil, err
	}
	rd := &Reader{snaplen: cfg.Snaplen, log: cfg.Logger}
	if bytes.Equal(magic, pcapngMagic) {
		ng, err := pcapgo.NewNgReader(br, pcapgo.DefaultNgReaderOptions)
		if err != nil {
			return nil, fmt.Errorf("capture: pcapng: %w", err)
		}
		rd.src, rd.format = ng, FormatPcapNG
	} else {
		pr, err := pcapgo.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("capture: pcap: %w", err)
		}
		rd.src, rd.format = pr, FormatPcap
	}
	internal.LogAttrs(rd.log, slog.LevelDebug, "capture:open",
		slog.String("format", rd.format.String()),
		slog.String("link", rd.src.LinkType().String()),
	)
	return rd, nil
}

// Format returns the detected capture file format.
func (rd *Reader) Format() Format { return rd.format }

// LinkType returns the link layer type of the capture.
func (rd *Reader) LinkType() layers.LinkType { return rd.src.LinkType() }

// Counts returns the tally of every packet read so far.
func (rd *Reader) Counts() Counts { return rd.counts }

// Next returns the next frame carrying a UDP or TCP payload. It returns [io.EOF]
// once the capture is exhausted. Frame numbers count every packet in the file.
func (rd *Reader) Next() (dispatch.Frame, error) {
	for {
		data, ci, err := rd.src.ReadPacketData()
		if err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) {
				internal.LogAttrs(rd.log, slog.LevelWarn, "capture:cut short", slog.Int("packets", rd.number))
				err = io.EOF
			}
			return dispatch.Frame{}, err
		}
		rd.number++
		if rd.snaplen > 0 && len(data) > rd.snaplen {
			data = data[:rd.snaplen]
		}
		frm, class := Decode(rd.number, data, ci, rd.src.LinkType())
		rd.counts.Add(class)
		if frm.Transport == dissect.TransportNone {
			internal.LogAttrs(rd.log, internal.LevelTrace, "capture:skip",
				slog.Int("frame", rd.number), slog.String("class", class.String()))
			continue
		}
		return frm, nil
	}
}

// Decode decodes a single link layer packet down to its transport payload.
// The returned frame has TransportNone when no UDP or TCP payload was found.
func Decode(number int, data []byte, ci gopacket.CaptureInfo, link layers.LinkType) (dispatch.Frame, Class) {
	frm := dispatch.Frame{
		Number:    number,
		Timestamp: ci.Timestamp,
		LinkType:  link.String(),
		WireLen:   max(ci.Length, len(data)),
	}
	pkt := gopacket.NewPacket(data, link, gopacket.DecodeOptions{Lazy: true, NoCopy: true})
	if f := linkFilter(link); f != "" {
		frm.Layers = append(frm.Layers, f)
	}
	var ipPayloadLen int
	var proto layers.IPProtocol
	switch {
	case pkt.Layer(layers.LayerTypeIPv4) != nil:
		ip := pkt.Layer(layers.LayerTypeIPv4).(*layers.IPv4)
		frm.Layers = append(frm.Layers, "ip")
		proto = ip.Protocol
		ipPayloadLen = int(ip.Length) - int(ip.IHL)*4
	case pkt.Layer(layers.LayerTypeIPv6) != nil:
		ip := pkt.Layer(layers.LayerTypeIPv6).(*layers.IPv6)
		frm.Layers = append(frm.Layers, "ipv6")
		proto = ip.NextHeader
		ipPayloadLen = int(ip.Length)
	default:
		return frm, ClassOther
	}

	if udp, ok := pkt.Layer(layers.LayerTypeUDP).(*layers.UDP); ok {
		frm.Layers = append(frm.Layers, "udp")
		frm.Transport = dissect.TransportUDP
		frm.SrcPort, frm.DstPort = uint16(udp.SrcPort), uint16(udp.DstPort)
		frm.Data = udp.Payload
		if udp.Length >= 8 {
			frm.ReportedLen = int(udp.Length) - 8
		}
	} else if tcp, ok := pkt.Layer(layers.LayerTypeTCP).(*layers.TCP); ok {
		frm.Layers = append(frm.Layers, "tcp")
		frm.Transport = dissect.TransportTCP
		frm.SrcPort, frm.DstPort = uint16(tcp.SrcPort), uint16(tcp.DstPort)
		frm.Data = tcp.Payload
		frm.ReportedLen = ipPayloadLen - int(tcp.DataOffset)*4
	} else {
		return frm, classifyIP(proto)
	}
	if frm.ReportedLen < len(frm.Data) {
		frm.ReportedLen = 0 // Claimed length is bogus, trust what was captured.
	}
	if isNetBIOS(frm.SrcPort) || isNetBIOS(frm.DstPort) {
		return frm, ClassNetBIOS
	}
	if frm.Transport == dissect.TransportUDP {
		return frm, ClassUDP
	}
	return frm, ClassTCP
}

// ReadAll reads every frame in the capture. It is meant for small captures and tests.
func (rd *Reader) ReadAll() ([]dispatch.Frame, error) {
	var frames []dispatch.Frame
	for {
		frm, err := rd.Next()
		if err == io.EOF {
			return frames, nil
		} else if err != nil {
			return frames, err
		}
		frames = append(frames, frm)
	}
}

func linkFilter(link layers.LinkType) string {
	switch link {
	case layers.LinkTypeEthernet:
		return "eth"
	case layers.LinkTypeLinuxSLL:
		return "sll"
	case layers.LinkTypeNull, layers.LinkTypeLoop:
		return "null"
	case layers.LinkTypePPP:
		return "ppp"
	}
	return ""
}

func classifyIP(proto layers.IPProtocol) Class {
	switch proto {
	case layers.IPProtocolICMPv4, layers.IPProtocolICMPv6:
		return ClassICMP
	case layers.IPProtocolOSPF:
		return ClassOSPF
	case layers.IPProtocolGRE:
		return ClassGRE
	case layers.IPProtocolTCP:
		return ClassTCP
	case layers.IPProtocolUDP:
		return ClassUDP
	}
	return ClassOther
}

// NetBIOS name, datagram and session services.
func isNetBIOS(port uint16) bool { return port >= 137 && port <= 139 }
