package config

import "time"

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so they are easy to audit and reuse
// across CLI flags, config file parsing, and environment variable
// loading.

const (
	// DefaultListenAddress binds every interface.
	DefaultListenAddress = "0.0.0.0"

	// DefaultPort is the standard telnet port.
	DefaultPort = 23

	// DefaultMaxLineLength bounds a single command record.
	DefaultMaxLineLength = 256

	// DefaultIdleDelay is the pause after a server step that serviced
	// nothing.
	DefaultIdleDelay = 10 * time.Millisecond

	// DefaultClientTimeout is how long a read waits for the next byte
	// of a partially received record.
	DefaultClientTimeout = 50 * time.Millisecond

	// DefaultThreshold is the number of pending bytes that makes a
	// session ready without waiting.
	DefaultThreshold = 3

	// DefaultWebSocketPath is where browser terminals connect.
	DefaultWebSocketPath = "/telnet"

	// DefaultAuditMax caps the number of audit rows kept.
	DefaultAuditMax = 10000

	// DefaultSSHPort is the standard SSH port.
	DefaultSSHPort = 22

	// DefaultKeepAliveInterval is the SSH keepalive interval in seconds.
	DefaultKeepAliveInterval = 30

	// DefaultConnTimeout is the TCP/SSH connection timeout.
	DefaultConnTimeout = 30 * time.Second
)

// Default returns a Config with every default applied.
func Default() *Config {
	return &Config{
		ListenAddress:     DefaultListenAddress,
		Port:              DefaultPort,
		MaxLineLength:     DefaultMaxLineLength,
		IdleDelay:         DefaultIdleDelay,
		ClientTimeout:     DefaultClientTimeout,
		Threshold:         DefaultThreshold,
		WebSocketPath:     DefaultWebSocketPath,
		AuditMax:          DefaultAuditMax,
		KeepAliveInterval: DefaultKeepAliveInterval,
		AutoReconnect:     true,
	}
}
