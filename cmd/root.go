// Package cmd wires up the CLI flags and dispatches to the core modes.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	flag "github.com/spf13/pflag"

	"tinytelnet/config"
	"tinytelnet/internal/core"
	"tinytelnet/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X tinytelnet/cmd.version=2.0.0"
var version = "1.0.0" //nolint:gochecknoglobals

// cliOptions are the flags that steer the CLI itself rather than the
// configuration.
type cliOptions struct {
	configPath  string
	dryRun      bool
	showVersion bool
	showHelp    bool
}

// Execute parses args and runs the selected tinytelnet mode.
func Execute(ctx context.Context, args []string) error {
	return execute(ctx, args, os.Stdout)
}

func execute(ctx context.Context, args []string, out io.Writer) error {
	// ── pass 1: find --config, --help, --version ─────────────────
	var opts cliOptions
	fs := newFlagSet(config.Default(), &opts)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if opts.showHelp {
		printUsage(fs)
		return nil
	}
	if opts.showVersion {
		fmt.Fprintf(out, "tinytelnet %s\n", version)
		return nil
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected argument %q (use --help for usage)", fs.Arg(0))
	}

	// ── layer: defaults < file < environment < flags ─────────────
	cfg := config.Default()
	if opts.configPath != "" {
		if err := config.LoadFile(opts.configPath, cfg); err != nil {
			return err
		}
	}
	config.LoadFromEnv(cfg)
	verbose := cfg.Verbose // -v counts up from zero
	fs = newFlagSet(cfg, &opts)
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg.Verbose += verbose
	cfg.DryRun = opts.dryRun

	// ── validate ─────────────────────────────────────────────────
	if err := cfg.ResolveTunnel(); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	// ── build and run ────────────────────────────────────────────
	logger := util.NewLogger(cfg.Verbose)
	mode, err := core.Build(cfg, logger, version)
	if err != nil {
		return err
	}
	if cfg.DryRun {
		fmt.Fprintf(out, "%s\n", mode)
		return nil
	}
	return mode.Run(ctx)
}

// newFlagSet binds every flag to cfg, using cfg's current values as the
// defaults so unset flags leave lower layers in place.
func newFlagSet(cfg *config.Config, opts *cliOptions) *flag.FlagSet {
	fs := flag.NewFlagSet("tinytelnet", flag.ContinueOnError)
	fs.SortFlags = false

	// ── network server ───────────────────────────────────────────
	fs.StringVarP(&cfg.ListenAddress, "listen", "l", cfg.ListenAddress, "Listen address")
	fs.IntVarP(&cfg.Port, "port", "p", cfg.Port, "Telnet port (0 picks a free port)")
	fs.IntVar(&cfg.WebSocketPort, "ws-port", cfg.WebSocketPort, "Also accept WebSocket clients on this port")
	fs.StringVar(&cfg.WebSocketPath, "ws-path", cfg.WebSocketPath, "WebSocket endpoint path")
	fs.BoolVar(&cfg.MDNS, "mdns", cfg.MDNS, "Advertise the server over mDNS")
	fs.StringVar(&cfg.MDNSName, "mdns-name", cfg.MDNSName, "mDNS instance name (default hostname)")
	fs.BoolVar(&cfg.RoundRobin, "round-robin", cfg.RoundRobin, "Rotate the session scan between steps")
	fs.IntVar(&cfg.MaxLineLength, "max-line", cfg.MaxLineLength, "Maximum command line length")
	fs.IntVar(&cfg.Threshold, "threshold", cfg.Threshold, "Pending bytes that make a session ready")
	fs.DurationVar(&cfg.StaleAfter, "stale-after", cfg.StaleAfter, "Serve input at or below --threshold after this wait (0 waits for more)")
	fs.DurationVar(&cfg.IdleDelay, "idle-delay", cfg.IdleDelay, "Pause when no session has input")
	fs.DurationVar(&cfg.ClientTimeout, "client-timeout", cfg.ClientTimeout, "Wait for the rest of a partial line")
	fs.StringVar(&cfg.Welcome, "welcome", cfg.Welcome, `Banner after negotiation ("-" disables)`)
	fs.Float64Var(&cfg.AcceptRate, "accept-rate", cfg.AcceptRate, "New connections per second (0 is unlimited)")
	fs.IntVar(&cfg.AcceptBurst, "accept-burst", cfg.AcceptBurst, "Connection burst allowed above --accept-rate")

	// ── serial link ──────────────────────────────────────────────
	fs.StringVar(&cfg.Serial, "serial", cfg.Serial, "Serve commands on a serial device instead")
	fs.IntVar(&cfg.Baud, "baud", cfg.Baud, "Serial line speed (0 keeps the current one)")
	fs.BoolVar(&cfg.Console, "console", cfg.Console, "Serve commands on stdin/stdout instead")

	// ── command sets ─────────────────────────────────────────────
	fs.StringVar(&cfg.Root, "root", cfg.Root, "Enable file commands rooted at DIR")
	fs.StringArrayVar(&cfg.Stations, "station", cfg.Stations, "Enable radio commands with this stream (repeatable)")
	fs.StringVar(&cfg.AuditDB, "audit-db", cfg.AuditDB, "Record commands to this SQLite database")
	fs.IntVar(&cfg.AuditMax, "audit-max", cfg.AuditMax, "Audit rows kept")

	// ── SSH reverse tunnel ───────────────────────────────────────
	fs.StringVar(&cfg.TunnelSpec, "reverse", cfg.TunnelSpec, "Expose the server on an SSH gateway [user@]host[:port]")
	fs.IntVar(&cfg.RemotePort, "remote-port", cfg.RemotePort, "Port the gateway listens on")
	fs.StringVar(&cfg.RemoteBindAddress, "remote-bind", cfg.RemoteBindAddress, "Address the gateway binds")
	fs.StringVar(&cfg.SSHKeyPath, "ssh-key", cfg.SSHKeyPath, "SSH private key file")
	fs.BoolVar(&cfg.SSHPassword, "ssh-password", cfg.SSHPassword, "Prompt for SSH password")
	fs.BoolVar(&cfg.UseSSHAgent, "ssh-agent", cfg.UseSSHAgent, "Use SSH agent")
	fs.BoolVar(&cfg.StrictHostKey, "strict-hostkey", cfg.StrictHostKey, "Verify SSH host keys")
	fs.StringVar(&cfg.KnownHostsPath, "known-hosts", cfg.KnownHostsPath, "Custom known_hosts path")
	fs.IntVar(&cfg.KeepAliveInterval, "keepalive", cfg.KeepAliveInterval, "Gateway keepalive in seconds (0 disables)")

	// ── client ───────────────────────────────────────────────────
	fs.StringVar(&cfg.Connect, "connect", cfg.Connect, "Connect to a command server at host[:port]")

	// ── output and control ───────────────────────────────────────
	fs.CountVarP(&cfg.Verbose, "verbose", "v", "Increase verbosity (repeatable)")
	fs.StringVar(&opts.configPath, "config", opts.configPath, "TOML configuration file")
	fs.BoolVar(&opts.dryRun, "dry-run", false, "Validate and describe the mode, then exit")
	fs.BoolVar(&opts.showVersion, "version", false, "Print version and exit")
	fs.BoolVarP(&opts.showHelp, "help", "h", false, "Show this help")

	fs.Usage = func() { printUsage(fs) }
	return fs
}

func printUsage(fs *flag.FlagSet) {
	fmt.Fprintf(os.Stderr, `TinyTelnet - remote command server v%s

Serves a table of named commands to telnet clients, a serial link or the
console, with optional file and radio command sets.

Usage:
  tinytelnet [options]                          Serve on port 23
  tinytelnet --serial /dev/ttyUSB0 [options]    Serve on a serial link
  tinytelnet --connect host[:port]              Interactive client

Options:
`, version)
	fs.PrintDefaults()
	fmt.Fprintf(os.Stderr, `
Examples:
  tinytelnet -p 2323 --root /srv/sd                 File commands over telnet
  tinytelnet --station http://radio.local:8000/live  Radio control
  tinytelnet --reverse pi@gw.example.com --remote-port 2323
  tinytelnet --connect 127.0.0.1:2323
`)
}
