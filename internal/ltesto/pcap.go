package ltesto

import (
	"io"
	"net"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// CaptureWriter writes synthetic Ethernet/IPv4 packets to a pcap or pcapng stream.
type CaptureWriter struct {
	// Snaplen truncates the captured data of subsequent packets. Zero disables truncation.
	Snaplen int
	// Time is the timestamp of the next packet. It advances one millisecond per packet.
	Time   time.Time
	SrcIP  net.IP
	DstIP  net.IP
	SrcMAC net.HardwareAddr
	DstMAC net.HardwareAddr

	pw  *pcapgo.Writer
	ngw *pcapgo.NgWriter
	buf gopacket.SerializeBuffer
	id  uint16
}

// NewCaptureWriter writes a pcap file header to w and returns a writer of
// Ethernet packets. If ng is true the stream is pcapng; call Flush when done.
func NewCaptureWriter(w io.Writer, ng bool) (*CaptureWriter, error) {
	cw := &CaptureWriter{
		Time:   time.Unix(1700000000, 0).UTC(),
		SrcIP:  net.IPv4(192, 168, 1, 10).To4(),
		DstIP:  net.IPv4(205, 188, 153, 121).To4(),
		SrcMAC: net.HardwareAddr{0x02, 0, 0, 0, 0, 1},
		DstMAC: net.HardwareAddr{0x02, 0, 0, 0, 0, 2},
		buf:    gopacket.NewSerializeBuffer(),
	}
	if ng {
		ngw, err := pcapgo.NewNgWriter(w, layers.LinkTypeEthernet)
		if err != nil {
			return nil, err
		}
		cw.ngw = ngw
		return cw, nil
	}
	cw.pw = pcapgo.NewWriter(w)
	err := cw.pw.WriteFileHeader(65536, layers.LinkTypeEthernet)
	if err != nil {
		return nil, err
	}
	return cw, nil
}

// WriteUDP writes a UDP datagram carrying payload.
func (cw *CaptureWriter) WriteUDP(srcPort, dstPort uint16, payload []byte) error {
	ip := cw.ipv4(layers.IPProtocolUDP)
	udp := &layers.UDP{SrcPort: layers.UDPPort(srcPort), DstPort: layers.UDPPort(dstPort)}
	udp.SetNetworkLayerForChecksum(ip)
	return cw.write(cw.eth(layers.EthernetTypeIPv4), ip, udp, gopacket.Payload(payload))
}

// WriteTCP writes a TCP segment with the PSH and ACK flags set carrying payload.
func (cw *CaptureWriter) WriteTCP(srcPort, dstPort uint16, payload []byte) error {
	ip := cw.ipv4(layers.IPProtocolTCP)
	tcp := &layers.TCP{
		SrcPort: layers.TCPPort(srcPort),
		DstPort: layers.TCPPort(dstPort),
		Seq:     1000,
		Ack:     2000,
		PSH:     true,
		ACK:     true,
		Window:  8192,
	}
	tcp.SetNetworkLayerForChecksum(ip)
	return cw.write(cw.eth(layers.EthernetTypeIPv4), ip, tcp, gopacket.Payload(payload))
}

// WriteICMP writes an ICMPv4 echo request.
func (cw *CaptureWriter) WriteICMP() error {
	icmp := &layers.ICMPv4{TypeCode: layers.CreateICMPv4TypeCode(layers.ICMPv4TypeEchoRequest, 0), Id: 1, Seq: cw.id}
	return cw.write(cw.eth(layers.EthernetTypeIPv4), cw.ipv4(layers.IPProtocolICMPv4), icmp, gopacket.Payload("ping"))
}

// WriteIP writes an IPv4 packet of protocol proto with an opaque payload.
func (cw *CaptureWriter) WriteIP(proto layers.IPProtocol, payload []byte) error {
	return cw.write(cw.eth(layers.EthernetTypeIPv4), cw.ipv4(proto), gopacket.Payload(payload))
}

// WriteARP writes an ARP request, a packet with no IP layer.
func (cw *CaptureWriter) WriteARP() error {
	arp := &layers.ARP{
		AddrType:          layers.LinkTypeEthernet,
		Protocol:          layers.EthernetTypeIPv4,
		HwAddressSize:     6,
		ProtAddressSize:   4,
		Operation:         layers.ARPRequest,
		SourceHwAddress:   cw.SrcMAC,
		SourceProtAddress: cw.SrcIP,
		DstHwAddress:      make([]byte, 6),
		DstProtAddress:    cw.DstIP,
	}
	return cw.write(cw.eth(layers.EthernetTypeARP), arp)
}

// Flush flushes buffered pcapng blocks. It is a no-op for pcap streams.
func (cw *CaptureWriter) Flush() error {
	if cw.ngw != nil {
		return cw.ngw.Flush()
	}
	return nil
}

func (cw *CaptureWriter) eth(etype layers.EthernetType) *layers.Ethernet {
	return &layers.Ethernet{SrcMAC: cw.SrcMAC, DstMAC: cw.DstMAC, EthernetType: etype}
}

func (cw *CaptureWriter) ipv4(proto layers.IPProtocol) *layers.IPv4 {
	cw.id++
	return &layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      64,
		Id:       cw.id,
		Protocol: proto,
		SrcIP:    cw.SrcIP,
		DstIP:    cw.DstIP,
	}
}

func (cw *CaptureWriter) write(ls ...gopacket.SerializableLayer) error {
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	err := gopacket.SerializeLayers(cw.buf, opts, ls...)
	if err != nil {
		return err
	}
	data := cw.buf.Bytes()
	ci := gopacket.CaptureInfo{Timestamp: cw.Time, Length: len(data), CaptureLength: len(data)}
	if cw.Snaplen > 0 && len(data) > cw.Snaplen {
		data = data[:cw.Snaplen]
		ci.CaptureLength = cw.Snaplen
	}
	cw.Time = cw.Time.Add(time.Millisecond)
	if cw.ngw != nil {
		return cw.ngw.WritePacket(ci, data)
	}
	return cw.pw.WritePacket(ci, data)
}
