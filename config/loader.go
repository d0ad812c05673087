package config

// loader.go - configuration loading from environment variables.
//
// Precedence order (highest wins):
//   1. CLI flags  (handled by cmd/root.go)
//   2. Environment variables  (this file)
//   3. TOML file  (--config, config.go)
//   4. Defaults   (defaults.go)

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ── Environment variable mapping ─────────────────────────────────────
//
// Every supported env var uses the TINYTELNET_ prefix.  Boolean values
// accept "1", "true", "yes" (case-insensitive).

// LoadFromEnv overlays environment variables onto cfg.  Only non-empty
// env vars override the existing value.
func LoadFromEnv(cfg *Config) {
	// Network server
	if v := os.Getenv("TINYTELNET_LISTEN"); v != "" {
		cfg.ListenAddress = v
	}
	if v, ok := envInt("TINYTELNET_PORT"); ok {
		cfg.Port = v
	}
	if v, ok := envInt("TINYTELNET_MAX_LINE"); ok {
		cfg.MaxLineLength = v
	}
	if v, ok := envDuration("TINYTELNET_IDLE_DELAY"); ok {
		cfg.IdleDelay = v
	}
	if v, ok := envDuration("TINYTELNET_CLIENT_TIMEOUT"); ok {
		cfg.ClientTimeout = v
	}
	if v, ok := envDuration("TINYTELNET_STALE_AFTER"); ok {
		cfg.StaleAfter = v
	}
	if v, ok := envInt("TINYTELNET_THRESHOLD"); ok {
		cfg.Threshold = v
	}
	if envBool("TINYTELNET_ROUND_ROBIN") {
		cfg.RoundRobin = true
	}
	if v := os.Getenv("TINYTELNET_WELCOME"); v != "" {
		cfg.Welcome = v
	}
	if v := os.Getenv("TINYTELNET_ACCEPT_RATE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.AcceptRate = f
		}
	}
	if v, ok := envInt("TINYTELNET_WS_PORT"); ok {
		cfg.WebSocketPort = v
	}
	if envBool("TINYTELNET_MDNS") {
		cfg.MDNS = true
	}

	// Serial link
	if v := os.Getenv("TINYTELNET_SERIAL"); v != "" {
		cfg.Serial = v
	}
	if v, ok := envInt("TINYTELNET_BAUD"); ok {
		cfg.Baud = v
	}

	// Command sets
	if v := os.Getenv("TINYTELNET_ROOT"); v != "" {
		cfg.Root = v
	}
	if v := os.Getenv("TINYTELNET_STATIONS"); v != "" {
		cfg.Stations = splitList(v)
	}
	if v := os.Getenv("TINYTELNET_AUDIT_DB"); v != "" {
		cfg.AuditDB = v
	}

	// Reverse tunnel
	if v := os.Getenv("TINYTELNET_REVERSE"); v != "" {
		cfg.TunnelSpec = v
	}
	if v, ok := envInt("TINYTELNET_REMOTE_PORT"); ok {
		cfg.RemotePort = v
	}
	if v := os.Getenv("TINYTELNET_REMOTE_BIND_ADDRESS"); v != "" {
		cfg.RemoteBindAddress = v
	}
	if v := os.Getenv("TINYTELNET_SSH_KEY"); v != "" {
		cfg.SSHKeyPath = v
	}
	if envBool("TINYTELNET_SSH_PASSWORD") {
		cfg.SSHPassword = true
	}
	if envBool("TINYTELNET_SSH_AGENT") {
		cfg.UseSSHAgent = true
	}
	if envBool("TINYTELNET_STRICT_HOSTKEY") {
		cfg.StrictHostKey = true
	}
	if v := os.Getenv("TINYTELNET_KNOWN_HOSTS"); v != "" {
		cfg.KnownHostsPath = v
	}
	if v, ok := envInt("TINYTELNET_KEEP_ALIVE"); ok {
		cfg.KeepAliveInterval = v
	}

	// Output
	if v, ok := envInt("TINYTELNET_VERBOSE"); ok && v > 0 {
		cfg.Verbose = v
	}
}

// ── helpers ──────────────────────────────────────────────────────────

func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func envBool(key string) bool {
	v := strings.ToLower(os.Getenv(key))
	return v == "1" || v == "true" || v == "yes"
}

// envDuration accepts Go duration syntax or a bare number of
// milliseconds.
func envDuration(key string) (time.Duration, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond, true
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, false
	}
	return d, true
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
