package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/NodePath81/tlsping/internal/app"
	"github.com/NodePath81/tlsping/internal/config"
	"github.com/NodePath81/tlsping/internal/console"
	"github.com/NodePath81/tlsping/internal/util"
	"github.com/NodePath81/tlsping/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("tlsping", flag.ContinueOnError)
	fs.SetOutput(stderr)
	debug := fs.Bool("debug", false, "Log per-chunk and TCP diagnostics to stderr")
	noColor := fs.Bool("no-color", false, "Disable colored output")
	summary := fs.String("summary", console.FormatText, "Final report format: text or yaml")
	showVersion := fs.Bool("version", false, "Print version")
	fs.Usage = func() { printUsage(stdout, fs) }
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}
	if *showVersion {
		fmt.Fprintln(stdout, version.Version)
		return 0
	}
	if !console.ValidFormat(*summary) {
		fmt.Fprintf(stderr, "error: -summary must be %s or %s\n", console.FormatText, console.FormatYAML)
		return 1
	}

	cfg, err := config.Resolve(fs.Args())
	if err != nil {
		if errors.Is(err, config.ErrUsage) {
			printUsage(stdout, fs)
			return 1
		}
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}

	logger := util.NewLogger(stderr, *debug)
	con := console.New(stdout, *noColor)
	sup := app.NewSupervisor(cfg, app.Options{}, con, logger)
	report := sup.Run(ctx)
	if err := con.Report(report, *summary); err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	return 0
}

func printUsage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintf(w, `tlsping - repeated TCP+TLS connectivity probe

Usage:
  %s

Arguments:
  hostname       Target host
  port           Target port (default %d)
  datasize-mb    Payload sent per attempt in MB (default %d, no payload)
  chunksize-mb   Payload per connection in MB (default %d)
  tls-protocol   Tls, Tls11, Tls12, Tls13 or None (default Tls)

Certificates are never verified. Do not treat a successful probe as proof of
the peer's identity.

Flags:
`, config.Usage, config.DefaultPort, config.DefaultDataMegabytes, config.DefaultChunkMegabytes)
	out := fs.Output()
	fs.SetOutput(w)
	fs.PrintDefaults()
	fs.SetOutput(out)
}
