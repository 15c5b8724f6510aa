// Command icqdump dissects the ICQ traffic of a pcap or pcapng capture file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"

	"github.com/mattn/go-isatty"

	"github.com/soypat/dissect/capture"
	"github.com/soypat/dissect/dispatch"
	"github.com/soypat/dissect/icq"
	"github.com/soypat/dissect/internal"
	"github.com/soypat/dissect/internal/config"
	"github.com/soypat/dissect/internal/logging"
	"github.com/soypat/dissect/internal/tui"
	"github.com/soypat/dissect/render"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	if err != nil && !errors.Is(err, flag.ErrHelp) {
		log.Fatalln("failed:", err)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	var (
		flagConfig  = ""
		flagRead    = "-"
		flagVerbose = false
		flagHex     = false
		flagTUI     = false
		flagWorkers = 0
		flagLogJSON = false
	)
	fs := flag.NewFlagSet("icqdump", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&flagConfig, "config", flagConfig, "TOML configuration file.")
	fs.StringVar(&flagRead, "r", flagRead, "Capture file to read, pcap or pcapng. '-' reads standard input.")
	fs.BoolVar(&flagVerbose, "V", flagVerbose, "Print the protocol tree of every frame.")
	fs.BoolVar(&flagHex, "x", flagHex, "Print a hex dump of every data source of a frame.")
	fs.BoolVar(&flagTUI, "tui", flagTUI, "Browse frames in an interactive terminal viewer.")
	fs.IntVar(&flagWorkers, "workers", flagWorkers, "Amount of dissection workers. Zero uses the configured value.")
	fs.BoolVar(&flagLogJSON, "logjson", flagLogJSON, "Log JSON lines instead of console output.")
	err := fs.Parse(args)
	if err != nil {
		return err
	}

	cfg := config.Default()
	if flagConfig != "" {
		cfg, err = config.Load(flagConfig)
		if err != nil {
			return err
		}
	} else {
		cfg.ApplyEnv(os.Getenv)
		if err = cfg.Validate(); err != nil {
			return err
		}
	}
	if flagWorkers > 0 {
		cfg.Capture.Workers = flagWorkers
	}
	logger, err := logging.New(stderr, logging.Config{
		Level:   cfg.Log.Level,
		JSON:    cfg.Log.JSON || flagLogJSON,
		NoColor: !isTerminal(stderr),
	})
	if err != nil {
		return err
	}

	src := stdin
	if flagRead != "-" {
		f, err := os.Open(flagRead)
		if err != nil {
			return err
		}
		defer f.Close()
		src = f
	}
	rd, err := capture.NewReader(src, capture.Config{Snaplen: cfg.Capture.Snaplen, Logger: logger})
	if err != nil {
		return err
	}

	reg := dispatch.NewRegistry()
	icq.Register(reg, icq.Config{
		UDPPorts:       cfg.ICQ.UDPPorts,
		MaxBundleDepth: cfg.Engine.MaxBundleDepth,
	})
	engine := dispatch.NewEngine(reg, dispatch.EngineConfig{
		Logger:      logger,
		FrameDigest: cfg.Engine.FrameDigest,
	})
	internal.LogAttrs(logger, slog.LevelInfo, "icqdump:start",
		slog.String("format", rd.Format().String()),
		slog.Int("workers", cfg.Capture.Workers),
	)

	if flagTUI {
		var results []*dispatch.Result
		err = dissectAll(ctx, rd, engine, cfg.Capture.Workers, func(res *dispatch.Result) error {
			results = append(results, res)
			return nil
		})
		if err != nil {
			return err
		}
		counts := rd.Counts()
		return tui.Run(results, counts.String())
	}

	var printer render.CapturePrinter
	pcfg := render.CapturePrinterConfig{Verbose: flagVerbose, HexDump: flagHex}
	if isTerminal(stdout) {
		pcfg.Styles = render.DefaultStyles()
	}
	printer.Configure(stdout, pcfg)
	err = dissectAll(ctx, rd, engine, cfg.Capture.Workers, printer.PrintResult)
	if err != nil {
		return err
	}
	counts := rd.Counts()
	_, err = fmt.Fprintf(stdout, "\n%s", counts.String())
	internal.LogAttrs(logger, slog.LevelInfo, "icqdump:done",
		slog.Int("packets", counts.Total),
		slog.Int("printed", printer.Printed()),
	)
	return err
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}
