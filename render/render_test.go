package render

import (
	"bytes"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soypat/dissect"
	"github.com/soypat/dissect/dispatch"
	"github.com/soypat/dissect/icq"
	"github.com/soypat/dissect/internal/ltesto"
	"github.com/soypat/dissect/tvb"
)

var t0 = time.Date(2001, 2, 3, 4, 5, 6, 0, time.UTC)

func newEngine() *dispatch.Engine {
	reg := dispatch.NewRegistry()
	icq.Register(reg, icq.Config{})
	return dispatch.NewEngine(reg, dispatch.EngineConfig{})
}

func frame(n int, payload []byte, reported int) dispatch.Frame {
	return dispatch.Frame{
		Number:      n,
		Timestamp:   t0.Add(time.Duration(n-1) * 250 * time.Millisecond),
		Data:        payload,
		ReportedLen: reported,
		Transport:   dissect.TransportUDP,
		SrcPort:     icq.UDPPort,
		DstPort:     1030,
		LinkType:    "Ethernet",
		Layers:      []string{"eth", "ip", "udp"},
	}
}

func lines(b []byte) []string {
	return strings.Split(strings.TrimSuffix(string(b), "\n"), "\n")
}

func TestFormatTree(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	var gen ltesto.PacketGen
	gen.Randomize(rng)
	res := newEngine().Dissect(frame(1, gen.AppendServer(nil, rng, 0x000a, nil), 0))
	require.True(t, res.Recognized)

	var f Formatter
	out := lines(f.FormatTree(nil, res))
	require.NotEmpty(t, out)
	assert.True(t, strings.HasPrefix(out[0], "Frame 1: 21 bytes on wire"), out[0])
	assert.Contains(t, out, "    Encapsulation type: Ethernet")
	assert.Contains(t, out, "    [Protocols in frame: frame:eth:ip:udp:icq]")
	assert.Contains(t, out, "ICQv5", "protocol subtree must be at top level")
	assert.Contains(t, out, "    Header")
	assert.Contains(t, out, "        [Client/Server: Server]")
	assert.Contains(t, out, "    Body")
	assert.Contains(t, out, "        No Parameters")

	f.Indent = "\t"
	f.MaxDepth = 1
	out = lines(f.FormatTree(nil, res))
	assert.Contains(t, out, "\tHeader")
	for _, l := range out {
		assert.False(t, strings.HasPrefix(l, "\t\t"), "rendered below max depth: %q", l)
	}
}

func TestFormatTreeAnomalies(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	var gen ltesto.PacketGen
	gen.Randomize(rng)
	pkt := gen.AppendServer(nil, rng, 0x000a, nil)
	res := newEngine().Dissect(frame(1, pkt[:12], len(pkt)))
	require.NotZero(t, res.Expert.Len())

	var f Formatter
	text := string(f.FormatTree(nil, res))
	assert.Contains(t, text, "[Expert Info (Error/Malformed): Length exceeds packet")
	ev := res.Expert.Events()[0]
	assert.Equal(t, "[Expert Info (Error/Malformed): "+ev.Text+"]", FormatEvent(&ev))

	f.Offsets = true
	text = string(f.FormatTree(nil, res))
	assert.Contains(t, text, "Header [Frame@0+12]")
}

func TestFormatSummary(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	var gen ltesto.PacketGen
	gen.Randomize(rng)
	e := newEngine()
	res := e.Dissect(frame(3, gen.AppendServer(nil, rng, 0x000a, nil), 0))

	var f Formatter
	got := string(f.FormatSummary(nil, res, t0))
	assert.Equal(t, "    3    0.500000  4000 → 1030  ICQv5  ICQv5 SRV_ACK\n", got)

	res = e.Dissect(frame(1, []byte{5, 0, 0}, 0))
	got = string(f.FormatSummary(nil, res, time.Time{}))
	assert.True(t, strings.HasSuffix(got, "  [Error]\n"), got)
}

func TestHexDump(t *testing.T) {
	buf, err := tvb.New("Frame", []byte("0123456789abcdefXY"), 18)
	require.NoError(t, err)
	out := lines(HexDump(nil, buf))
	require.Len(t, out, 3)
	assert.Equal(t, "Frame (18 bytes):", out[0])
	assert.True(t, strings.HasPrefix(out[1], "00000000  30 31 32 33"), out[1])
	assert.True(t, strings.HasSuffix(out[2], "|XY|"), out[2])
}

func TestCapturePrinter(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	var gen ltesto.PacketGen
	gen.Randomize(rng)
	e := newEngine()
	client := gen.AppendClient(nil, rng, 0x04ba, nil) // CMD_QUERY_SERVERS
	res := e.Dissect(frame(1, client, 0))
	require.Len(t, res.Sources, 2, "client packets carry a decrypted source")

	var out bytes.Buffer
	var p CapturePrinter
	require.NoError(t, p.Configure(&out, CapturePrinterConfig{}))
	require.NoError(t, p.PrintResult(res))
	require.NoError(t, p.PrintResult(e.Dissect(frame(2, client, 0))))
	assert.Equal(t, 2, p.Printed())
	summary := lines(out.Bytes())
	require.Len(t, summary, 2)
	assert.Contains(t, summary[0], "   0.000000 ")
	assert.Contains(t, summary[1], "   0.250000 ")

	out.Reset()
	require.NoError(t, p.Configure(&out, CapturePrinterConfig{Verbose: true, HexDump: true}))
	require.NoError(t, p.PrintResult(res))
	text := out.String()
	assert.Contains(t, text, "Frame 1: ")
	assert.Contains(t, text, "Frame (")
	assert.Contains(t, text, "Decrypted (")
	assert.True(t, strings.HasSuffix(text, "\n\n"))
}

func TestStyles(t *testing.T) {
	var nilStyles *Styles
	assert.Equal(t, "x", nilStyles.protocol("x"))
	assert.Equal(t, "x", nilStyles.severity(dissect.SeverityError, "x"))
	s := DefaultStyles()
	assert.Contains(t, s.protocol("ICQv5"), "ICQv5")
	assert.Equal(t, "x", s.severity(dissect.Severity(200), "x"))
}
