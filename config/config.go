// Package config defines the runtime configuration for tinytelnet and
// the layering that fills it: defaults, an optional TOML file, the
// environment and finally command-line flags.
package config

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"tinytelnet/internal/errors"
)

// Config holds every tuneable for one tinytelnet process.
type Config struct {
	// ── Network server ───────────────────────────────────────────────
	ListenAddress string        `toml:"listen"`
	Port          int           `toml:"port"`
	MaxLineLength int           `toml:"max_line"`
	IdleDelay     time.Duration `toml:"idle_delay"`
	ClientTimeout time.Duration `toml:"client_timeout"`
	Threshold     int           `toml:"threshold"`
	StaleAfter    time.Duration `toml:"stale_after"` // 0 waits for more input
	RoundRobin    bool          `toml:"round_robin"`
	Welcome       string        `toml:"welcome"` // "" keeps the default, "-" disables
	AcceptRate    float64       `toml:"accept_rate"`
	AcceptBurst   int           `toml:"accept_burst"`

	WebSocketPort int    `toml:"ws_port"`
	WebSocketPath string `toml:"ws_path"`

	MDNS     bool   `toml:"mdns"`
	MDNSName string `toml:"mdns_name"`

	// ── Serial link ──────────────────────────────────────────────────
	Serial  string `toml:"serial"`
	Baud    int    `toml:"baud"`
	Console bool   `toml:"console"`

	// ── Command sets ─────────────────────────────────────────────────
	Root     string   `toml:"root"`
	Stations []string `toml:"stations"`
	AuditDB  string   `toml:"audit_db"`
	AuditMax int      `toml:"audit_max"`

	// ── SSH reverse tunnel ───────────────────────────────────────────
	TunnelSpec        string `toml:"reverse"` // [user@]host[:port]
	TunnelEnabled     bool   `toml:"-"`
	TunnelUser        string `toml:"-"`
	TunnelHost        string `toml:"-"`
	TunnelPort        int    `toml:"-"`
	RemotePort        int    `toml:"remote_port"`
	RemoteBindAddress string `toml:"remote_bind"`
	SSHKeyPath        string `toml:"ssh_key"`
	SSHPassword       bool   `toml:"ssh_password"`
	UseSSHAgent       bool   `toml:"ssh_agent"`
	StrictHostKey     bool   `toml:"strict_hostkey"`
	KnownHostsPath    string `toml:"known_hosts"`
	KeepAliveInterval int    `toml:"keepalive"` // seconds, 0 disables
	AutoReconnect     bool   `toml:"reconnect"`

	// ── Client ───────────────────────────────────────────────────────
	Connect string `toml:"-"`

	// ── Output ───────────────────────────────────────────────────────
	Verbose int  `toml:"verbose"`
	DryRun  bool `toml:"-"`
}

// LoadFile overlays the TOML file at path onto cfg. Keys the file sets
// replace cfg's values; unknown keys are an error.
func LoadFile(path string, cfg *Config) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return &errors.ConfigError{
			Field:   "config",
			Value:   path,
			Message: err.Error(),
		}
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return &errors.ConfigError{
			Field:   "config",
			Value:   path,
			Message: "unknown key(s): " + strings.Join(keys, ", "),
		}
	}
	return nil
}

// ── Tunnel-spec parser ───────────────────────────────────────────────

// tunnelRe matches [user@]host[:port].
var tunnelRe = regexp.MustCompile(`^(?:([^@]+)@)?([^:]+)(?::(\d+))?$`)

// ParseTunnelSpec extracts user, host, and port from a string such as
// "admin@bastion.example.com:2222".  Port defaults to 22.
func ParseTunnelSpec(spec string) (user, host string, port int, err error) {
	m := tunnelRe.FindStringSubmatch(spec)
	if m == nil {
		return "", "", 0, fmt.Errorf("invalid tunnel spec %q - expected [user@]host[:port]", spec)
	}
	user = m[1]
	host = m[2]
	port = DefaultSSHPort
	if m[3] != "" {
		port, err = strconv.Atoi(m[3])
		if err != nil || port < 1 || port > 65535 {
			return "", "", 0, fmt.Errorf("invalid tunnel port %q", m[3])
		}
	}
	if host == "" {
		return "", "", 0, fmt.Errorf("tunnel host is required")
	}
	return user, host, port, nil
}

// ResolveTunnel parses TunnelSpec into the Tunnel* fields.
func (c *Config) ResolveTunnel() error {
	if c.TunnelSpec == "" {
		c.TunnelEnabled = false
		return nil
	}
	user, host, port, err := ParseTunnelSpec(c.TunnelSpec)
	if err != nil {
		return &errors.ConfigError{
			Field:   "reverse",
			Value:   c.TunnelSpec,
			Message: err.Error(),
			Hint:    "use --reverse user@gateway[:port]",
		}
	}
	c.TunnelEnabled = true
	c.TunnelUser, c.TunnelHost, c.TunnelPort = user, host, port
	return nil
}

// ── Validation ───────────────────────────────────────────────────────

// Validate checks that the configuration is internally consistent. The
// returned error is a *errors.ConfigError naming the offending flag.
func (c *Config) Validate() error {
	local := c.Serial != "" || c.Console
	switch {
	case c.Serial != "" && c.Console:
		return &errors.ConfigError{Field: "console", Message: "cannot be combined with --serial"}
	case c.Connect != "" && local:
		return &errors.ConfigError{
			Field:   "connect",
			Value:   c.Connect,
			Message: "client mode cannot be combined with a serial link",
		}
	}

	if err := checkPort("port", c.Port, false); err != nil {
		return err
	}
	if err := checkPort("ws-port", c.WebSocketPort, false); err != nil {
		return err
	}
	if c.WebSocketPort != 0 && c.WebSocketPort == c.Port {
		return &errors.ConfigError{
			Field:   "ws-port",
			Value:   c.WebSocketPort,
			Message: "must differ from --port",
		}
	}
	if c.WebSocketPort != 0 && !strings.HasPrefix(c.WebSocketPath, "/") {
		return &errors.ConfigError{
			Field:   "ws-path",
			Value:   c.WebSocketPath,
			Message: "must start with /",
		}
	}

	if c.MaxLineLength < 8 {
		return &errors.ConfigError{
			Field:   "max-line",
			Value:   c.MaxLineLength,
			Message: "too small",
			Hint:    fmt.Sprintf("the default is %d bytes", DefaultMaxLineLength),
		}
	}
	if c.Threshold < 0 || c.Threshold >= c.MaxLineLength {
		return &errors.ConfigError{
			Field:   "threshold",
			Value:   c.Threshold,
			Message: fmt.Sprintf("out of range 0-%d", c.MaxLineLength-1),
		}
	}
	if c.IdleDelay <= 0 {
		return &errors.ConfigError{Field: "idle-delay", Value: c.IdleDelay, Message: "must be positive"}
	}
	if c.ClientTimeout <= 0 {
		return &errors.ConfigError{Field: "client-timeout", Value: c.ClientTimeout, Message: "must be positive"}
	}
	if c.StaleAfter < 0 {
		return &errors.ConfigError{Field: "stale-after", Value: c.StaleAfter, Message: "must not be negative"}
	}
	if c.AcceptRate < 0 {
		return &errors.ConfigError{Field: "accept-rate", Value: c.AcceptRate, Message: "must not be negative"}
	}
	if c.Baud < 0 {
		return &errors.ConfigError{Field: "baud", Value: c.Baud, Message: "must not be negative"}
	}
	if c.AuditMax < 0 {
		return &errors.ConfigError{Field: "audit-max", Value: c.AuditMax, Message: "must not be negative"}
	}

	for _, s := range c.Stations {
		u, err := url.Parse(s)
		if err != nil || u.Host == "" {
			return &errors.ConfigError{
				Field:   "station",
				Value:   s,
				Message: "not a stream URL",
				Hint:    "use a full URL such as http://host:8000/stream",
			}
		}
	}

	if c.TunnelEnabled {
		if local {
			return &errors.ConfigError{
				Field:   "reverse",
				Value:   c.TunnelSpec,
				Message: "a reverse tunnel needs the network server",
			}
		}
		if c.TunnelHost == "" {
			return &errors.ConfigError{Field: "reverse", Value: c.TunnelSpec, Message: "gateway host is required"}
		}
		if c.RemotePort == 0 {
			return &errors.ConfigError{
				Field:   "remote-port",
				Message: "required with --reverse",
				Hint:    "choose the port the gateway should listen on, e.g. --remote-port 2323",
			}
		}
		if err := checkPort("remote-port", c.RemotePort, true); err != nil {
			return err
		}
	}
	return nil
}

func checkPort(field string, port int, required bool) error {
	lo := 0
	if required {
		lo = 1
	}
	if port < lo || port > 65535 {
		return &errors.ConfigError{
			Field:   field,
			Value:   port,
			Message: fmt.Sprintf("out of range %d-65535", lo),
			Hint:    "use a port between 1 and 65535",
		}
	}
	return nil
}
