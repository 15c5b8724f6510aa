package render

import (
	"io"
	"time"

	"github.com/soypat/dissect/dispatch"
)

type CapturePrinterConfig struct {
	// Verbose prints the full protocol tree after each summary line.
	Verbose bool
	// HexDump prints a dump of every data source after each frame.
	HexDump bool
	// Styles decorates output. Nil prints plain text.
	Styles *Styles
	// Origin is the time relative timestamps are computed from. By default
	// the timestamp of the first printed frame is used.
	Origin time.Time
}

// CapturePrinter prints dissection results to a writer using a [Formatter].
type CapturePrinter struct {
	write   func(b []byte) (int, error)
	fmt     Formatter
	buf     []byte
	verbose bool
	hexdump bool
	origin  time.Time
	printed int
}

func (p *CapturePrinter) Configure(writer io.Writer, cfg CapturePrinterConfig) error {
	p.write = writer.Write
	p.verbose = cfg.Verbose
	p.hexdump = cfg.HexDump
	p.origin = cfg.Origin
	p.fmt.Styles = cfg.Styles
	p.printed = 0
	return nil
}

// Formatter returns a pointer to the underlying Formatter.
// One can then configure the formatter's fields to affect printing.
func (p *CapturePrinter) Formatter() *Formatter {
	return &p.fmt
}

// Printed returns the amount of results printed since Configure.
func (p *CapturePrinter) Printed() int { return p.printed }

// PrintResult prints res and returns the first write error.
func (p *CapturePrinter) PrintResult(res *dispatch.Result) error {
	if p.origin.IsZero() {
		p.origin = res.Frame.Timestamp
	}
	buf := p.buf[:0]
	if p.verbose {
		buf = p.fmt.FormatTree(buf, res)
	} else {
		buf = p.fmt.FormatSummary(buf, res, p.origin)
	}
	if p.hexdump {
		buf = append(buf, '\n')
		buf = p.fmt.FormatSources(buf, res)
	}
	if p.verbose || p.hexdump {
		buf = append(buf, '\n')
	}
	_, err := p.write(buf)
	p.buf = buf[:0] // Reuse buffer if allocated at larger size.
	p.printed++
	return err
}
