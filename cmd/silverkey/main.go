// Package main is the entry point for silverkey.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dshills/silverkey/internal/app"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// stringList is a repeatable string flag.
type stringList []string

func (l *stringList) String() string {
	return strings.Join(*l, ",")
}

func (l *stringList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

type cliOptions struct {
	app.Options
	printConfig bool
	showVersion bool
	replayPath  string
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cli, err := parseFlags(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		return 2
	}

	if cli.showVersion {
		fmt.Fprintf(stdout, "silverkey %s\n", version)
		fmt.Fprintf(stdout, "Commit: %s\n", commit)
		fmt.Fprintf(stdout, "Built: %s\n", date)
		return 0
	}

	opts := cli.Options
	opts.Stdin, opts.Stdout, opts.Stderr = stdin, stdout, stderr

	if cli.printConfig {
		s, err := app.LoadSettings(opts)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		if err := s.Encode(stdout); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	if cli.replayPath != "" && cli.replayPath != "-" {
		f, err := os.Open(cli.replayPath)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		defer f.Close()
		opts.Stdin = f
	}

	application, err := app.New(opts)
	if err != nil {
		fmt.Fprintf(stderr, "Error: failed to initialize: %v\n", err)
		return 1
	}
	// Ensure cleanup on all exit paths
	defer application.Shutdown()

	// Handle signals for graceful shutdown
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signals)

	go func() {
		if _, ok := <-signals; ok {
			application.Quit()
		}
	}()

	if err := application.Run(context.Background()); err != nil {
		if errors.Is(err, app.ErrQuit) {
			return 0
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func parseFlags(args []string, stderr io.Writer) (cliOptions, error) {
	var cli cliOptions
	var keymaps, scripts stringList

	fs := flag.NewFlagSet("silverkey", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&cli.ConfigPath, "config", "", "Path to configuration file")
	fs.StringVar(&cli.ConfigPath, "c", "", "Path to configuration file (shorthand)")
	fs.StringVar(&cli.UI, "ui", "", "Front end: tcell, tea or replay (default: tcell on a terminal, else replay)")
	fs.BoolVar(&cli.Debug, "debug", false, "Report diagnostic snapshots")
	fs.BoolVar(&cli.Debug, "d", false, "Report diagnostic snapshots (shorthand)")
	fs.StringVar(&cli.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&cli.LogFormat, "log-format", "", "Log format (text, json)")
	fs.StringVar(&cli.LogPath, "log-file", "", "Log file path")
	fs.Var(&keymaps, "keymap", "Additional keymap file (repeatable)")
	fs.Var(&scripts, "script", "Additional Lua script (repeatable)")
	fs.BoolVar(&cli.NoWatch, "no-watch", false, "Do not reload files on change")
	fs.StringVar(&cli.Record, "record", "", "Save handled transitions to a file on exit")
	fs.StringVar(&cli.Play, "play", "", "Play a recording into the terminal inspector")
	fs.BoolVar(&cli.printConfig, "print-config", false, "Print the effective configuration and exit")
	fs.BoolVar(&cli.showVersion, "version", false, "Show version information")
	fs.BoolVar(&cli.showVersion, "v", false, "Show version information (shorthand)")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "silverkey - keyboard binding engine and inspector\n\n")
		fmt.Fprintf(stderr, "Usage: silverkey [options] [replay-file]\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  silverkey                         Inspect key events on this terminal\n")
		fmt.Fprintf(stderr, "  silverkey -ui tea                 Use the Bubble Tea inspector\n")
		fmt.Fprintf(stderr, "  silverkey -keymap vim.yaml rec.jsonl\n")
		fmt.Fprintf(stderr, "                                    Replay recorded transitions\n")
		fmt.Fprintf(stderr, "  silverkey -record rec.jsonl       Record a session for later replay\n")
		fmt.Fprintf(stderr, "  silverkey -print-config           Show the effective settings\n")
	}

	if err := fs.Parse(args); err != nil {
		return cli, err
	}

	cli.Keymaps = keymaps
	cli.Scripts = scripts

	switch fs.NArg() {
	case 0:
	case 1:
		cli.replayPath = fs.Arg(0)
		if cli.UI == "" {
			cli.UI = "replay"
		}
	default:
		fmt.Fprintf(stderr, "Error: at most one replay file may be given\n")
		fs.Usage()
		return cli, errors.New("too many arguments")
	}
	return cli, nil
}
