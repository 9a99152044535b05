// Package cmd wires up the CLI flags and dispatches to the core modes.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"smtpc/config"
	"smtpc/internal/console"
	"smtpc/internal/core"
	"smtpc/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X smtpc/cmd.version=2.0.0"
var version = "1.0.0" //nolint:gochecknoglobals

// stdio is the process's operator streams.
type stdio struct {
	in          io.Reader
	out         io.Writer
	err         io.Writer
	interactive bool
}

// Execute parses args and runs the selected smtpc mode.
func Execute(ctx context.Context, args []string) error {
	return execute(ctx, args, stdio{
		in:          os.Stdin,
		out:         os.Stdout,
		err:         os.Stderr,
		interactive: console.IsTerminal(os.Stdin),
	})
}

func execute(ctx context.Context, args []string, std stdio) error {
	cfg := config.Default()
	config.LoadFromEnv(cfg)

	fs := flag.NewFlagSet("smtpc", flag.ContinueOnError)
	fs.SetOutput(std.err)

	// ── connection ───────────────────────────────────────────────
	var timeoutSec int
	fs.IntVarP(&timeoutSec, "timeout", "w", int(cfg.Timeout/time.Second), "Connect timeout in seconds")
	fs.IntVar(&cfg.ConnectRetries, "retries", cfg.ConnectRetries, "Connect attempts for transient failures")
	fs.IntVar(&cfg.MaxFrameSize, "max-frame-size", cfg.MaxFrameSize, "Largest accepted reply frame in bytes")
	fs.IntVar(&cfg.MaxDataAttempts, "max-data-retries", cfg.MaxDataAttempts, "Give up DATA after this many refusals (0 = never)")

	// ── SSH tunnel ───────────────────────────────────────────────
	fs.StringVarP(&cfg.TunnelSpec, "tunnel", "T", cfg.TunnelSpec, "SSH tunnel via [user@]host[:port]")
	fs.StringVar(&cfg.SSHKeyPath, "ssh-key", cfg.SSHKeyPath, "SSH private key file")
	fs.BoolVar(&cfg.SSHPassword, "ssh-password", cfg.SSHPassword, "Prompt for SSH password")
	fs.BoolVar(&cfg.UseSSHAgent, "ssh-agent", cfg.UseSSHAgent, "Use SSH agent")
	fs.BoolVar(&cfg.StrictHostKey, "strict-hostkey", cfg.StrictHostKey, "Verify SSH host keys")
	fs.StringVar(&cfg.KnownHostsPath, "known-hosts", cfg.KnownHostsPath, "Custom known_hosts path")

	// ── bridge ───────────────────────────────────────────────────
	fs.BoolVar(&cfg.Bridge, "bridge", cfg.Bridge, "Relay framed clients to a line SMTP server")
	fs.BoolVarP(&cfg.Listen, "listen", "l", cfg.Listen, "Listen for clients (with --bridge)")
	fs.IntVarP(&cfg.LocalPort, "port", "p", cfg.LocalPort, "Local listen port (with -l)")
	fs.StringVar(&cfg.Upstream, "upstream", cfg.Upstream, "Upstream SMTP server host[:port]")
	fs.BoolVarP(&cfg.KeepOpen, "keep-open", "k", cfg.KeepOpen, "Accept multiple clients (with -l)")

	// ── output ───────────────────────────────────────────────────
	var quiet bool
	fs.CountVarP(&cfg.LogLevel, "verbose", "v", "Increase log verbosity (repeatable)")
	fs.BoolVar(&quiet, "no-verbose", false, "Do not echo failures to the console")
	fs.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, `Log file ("-" for stderr)`)
	fs.BoolVar(&cfg.NoBanner, "no-banner", cfg.NoBanner, "Skip the start-up banner")

	var dryRun, showVersion, showHelp bool
	fs.BoolVar(&cfg.Echo, "echo", cfg.Echo, "Repeat operator input (for piped input)")
	fs.BoolVar(&dryRun, "dry-run", false, "Validate the configuration and exit")
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	fs.BoolVarP(&showHelp, "help", "h", false, "Show this help")

	fs.Usage = func() { printUsage(std.err, fs) }

	// ── parse ────────────────────────────────────────────────────
	if err := fs.Parse(args); err != nil {
		return err
	}

	if showHelp {
		printUsage(std.err, fs)
		return nil
	}
	if showVersion {
		fmt.Fprintf(std.out, "smtpc %s\n", version)
		return nil
	}

	if fs.Changed("timeout") {
		cfg.Timeout = time.Duration(timeoutSec) * time.Second
	}
	if quiet {
		cfg.Verbose = false
	}
	_, verboseFromEnv := os.LookupEnv("SMTPC_VERBOSE")
	verboseGiven := quiet || verboseFromEnv

	// ── positional arguments ─────────────────────────────────────
	if err := parsePositional(cfg, fs.Args()); err != nil {
		return err
	}

	// ── tunnel spec ──────────────────────────────────────────────
	if err := cfg.ApplyTunnelSpec(); err != nil {
		return err
	}

	// ── interactive start-up ─────────────────────────────────────
	con := console.New(std.in, std.out, console.WithEcho(cfg.Echo))
	if std.interactive && !cfg.Bridge && !dryRun {
		if !cfg.NoBanner {
			printBanner(std.out)
		}
		if !cfg.PortGiven {
			port, err := promptPort(con, cfg.Port)
			if err != nil {
				return err
			}
			cfg.Port = port
		}
		if !verboseGiven {
			v, err := promptVerbose(con)
			if err != nil {
				return err
			}
			cfg.Verbose = v
		}
	}

	// ── validate ─────────────────────────────────────────────────
	if err := cfg.Validate(); err != nil {
		return err
	}

	if dryRun {
		printSummary(std.out, cfg)
		return nil
	}

	// ── build components ─────────────────────────────────────────
	logger := buildLogger(cfg, std.err)
	defer logger.Close()

	mode, err := core.Build(cfg, logger)
	if err != nil {
		return err
	}
	if cm, ok := mode.(*core.ConnectMode); ok {
		cm.Console = con
	}

	logger.Info("smtpc %s starting", version)
	return mode.Run(ctx)
}

// buildLogger sends the log to the configured file.  Failures are
// echoed to the console when verbose, or when the file cannot be
// opened.
func buildLogger(cfg *config.Config, stderr io.Writer) *util.Logger {
	toFile := cfg.LogFile != "" && cfg.LogFile != "-"

	level := cfg.LogLevel
	if toFile && level < int(util.LogDebug) {
		level = int(util.LogDebug)
	}
	logger := util.NewLogger(level)
	logger.SetOutput(stderr)
	// Without a file the log already goes to stderr.
	if cfg.Verbose && toFile {
		logger.SetEcho(stderr)
	}

	if toFile {
		if err := logger.OpenFile(cfg.LogFile); err != nil {
			logger.SetEcho(stderr)
			logger.Error("log file not working: %v", err)
		}
	}
	return logger
}

// ── helpers ──────────────────────────────────────────────────────────

// parsePositional accepts [host [port]] in client mode.
func parsePositional(cfg *config.Config, remaining []string) error {
	if cfg.Bridge {
		if len(remaining) > 0 {
			return fmt.Errorf("bridge mode takes no arguments (use --upstream)")
		}
		return nil
	}

	switch len(remaining) {
	case 0:
	case 1, 2:
		cfg.Host = remaining[0]
		if len(remaining) == 2 {
			port, err := config.ParsePort(remaining[1])
			if err != nil {
				return fmt.Errorf("port: %w", err)
			}
			cfg.Port = port
			cfg.PortGiven = true
		}
	default:
		return fmt.Errorf("too many arguments (use --help for usage)")
	}
	return nil
}

func printSummary(w io.Writer, cfg *config.Config) {
	if cfg.Bridge {
		fmt.Fprintf(w, "bridge :%d -> %s (keep-open=%v)\n", cfg.LocalPort, cfg.Upstream, cfg.KeepOpen)
	} else {
		fmt.Fprintf(w, "connect %s (retries=%d, timeout=%s)\n", cfg.Address(), cfg.ConnectRetries, cfg.Timeout)
	}
	if cfg.TunnelEnabled {
		fmt.Fprintf(w, "via ssh %s@%s:%d\n", cfg.TunnelUser, cfg.TunnelHost, cfg.TunnelPort)
	}
	fmt.Fprintf(w, "log %s (verbose=%v)\n", cfg.LogFile, cfg.Verbose)
}

func printUsage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintf(w, `smtpc – interactive framed-SMTP client v%s

Usage:
  smtpc [options] [host [port]]                          Interactive client
  smtpc --bridge -l -p <port> --upstream host[:port]     Bridge to line SMTP
  smtpc -T user@gateway [host [port]]                    Through an SSH tunnel

Options:
`, version)
	fs.SetOutput(w)
	fs.PrintDefaults()
	fmt.Fprintf(w, `
Examples:
  smtpc                                      Prompt for port, connect to localhost
  smtpc mail.example.com 50000               Connect directly
  smtpc --bridge -l -p 50000 --upstream mx   Serve framed clients, relay to mx:25
`)
}
