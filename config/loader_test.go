package config

import (
	"testing"
	"time"
)

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("TINYTELNET_LISTEN", "127.0.0.1")
	t.Setenv("TINYTELNET_PORT", "2323")
	t.Setenv("TINYTELNET_IDLE_DELAY", "25")
	t.Setenv("TINYTELNET_CLIENT_TIMEOUT", "1s")
	t.Setenv("TINYTELNET_STALE_AFTER", "40ms")
	t.Setenv("TINYTELNET_STATIONS", "http://a/x, http://b/y ,")
	t.Setenv("TINYTELNET_REVERSE", "pi@gw")
	t.Setenv("TINYTELNET_REMOTE_PORT", "4023")
	t.Setenv("TINYTELNET_ACCEPT_RATE", "2.5")
	t.Setenv("TINYTELNET_VERBOSE", "2")

	cfg := Default()
	LoadFromEnv(cfg)

	if cfg.ListenAddress != "127.0.0.1" || cfg.Port != 2323 {
		t.Errorf("address = %s:%d", cfg.ListenAddress, cfg.Port)
	}
	if cfg.IdleDelay != 25*time.Millisecond {
		t.Errorf("IdleDelay = %v, want 25ms", cfg.IdleDelay)
	}
	if cfg.ClientTimeout != time.Second {
		t.Errorf("ClientTimeout = %v, want 1s", cfg.ClientTimeout)
	}
	if cfg.StaleAfter != 40*time.Millisecond {
		t.Errorf("StaleAfter = %v, want 40ms", cfg.StaleAfter)
	}
	if len(cfg.Stations) != 2 || cfg.Stations[1] != "http://b/y" {
		t.Errorf("Stations = %q", cfg.Stations)
	}
	if cfg.TunnelSpec != "pi@gw" || cfg.RemotePort != 4023 {
		t.Errorf("tunnel = %q:%d", cfg.TunnelSpec, cfg.RemotePort)
	}
	if cfg.AcceptRate != 2.5 || cfg.Verbose != 2 {
		t.Errorf("AcceptRate = %v, Verbose = %d", cfg.AcceptRate, cfg.Verbose)
	}
}

func TestLoadFromEnv_Booleans(t *testing.T) {
	tests := []struct {
		key   string
		value string
		get   func(*Config) bool
		want  bool
	}{
		{"TINYTELNET_ROUND_ROBIN", "1", func(c *Config) bool { return c.RoundRobin }, true},
		{"TINYTELNET_ROUND_ROBIN", "Yes", func(c *Config) bool { return c.RoundRobin }, true},
		{"TINYTELNET_MDNS", "TRUE", func(c *Config) bool { return c.MDNS }, true},
		{"TINYTELNET_SSH_AGENT", "true", func(c *Config) bool { return c.UseSSHAgent }, true},
		{"TINYTELNET_STRICT_HOSTKEY", "yes", func(c *Config) bool { return c.StrictHostKey }, true},
		{"TINYTELNET_SSH_PASSWORD", "no", func(c *Config) bool { return c.SSHPassword }, false},
		{"TINYTELNET_MDNS", "0", func(c *Config) bool { return c.MDNS }, false},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			cfg := Default()
			LoadFromEnv(cfg)
			if got := tt.get(cfg); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoadFromEnv_InvalidIgnored(t *testing.T) {
	t.Setenv("TINYTELNET_PORT", "telnet")
	t.Setenv("TINYTELNET_IDLE_DELAY", "soon")
	t.Setenv("TINYTELNET_ACCEPT_RATE", "fast")

	cfg := Default()
	LoadFromEnv(cfg)
	if cfg.Port != DefaultPort || cfg.IdleDelay != DefaultIdleDelay || cfg.AcceptRate != 0 {
		t.Errorf("invalid values should be ignored: %+v", cfg)
	}
}

func TestLoadFromEnv_Empty(t *testing.T) {
	cfg := Default()
	LoadFromEnv(cfg)
	if cfg.Port != DefaultPort || cfg.ListenAddress != DefaultListenAddress {
		t.Errorf("empty environment changed config: %+v", cfg)
	}
}
