package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// ── ParseTunnelSpec ──────────────────────────────────────────────────

func TestParseTunnelSpec(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantUser string
		wantHost string
		wantPort int
		wantErr  bool
	}{
		{"full", "admin@bastion.example.com:2222", "admin", "bastion.example.com", 2222, false},
		{"no port", "root@gateway", "root", "gateway", 22, false},
		{"no user", "jump-host:2200", "", "jump-host", 2200, false},
		{"host only", "gateway.local", "", "gateway.local", 22, false},
		{"bad port", "user@host:999999", "", "", 0, true},
		{"port zero", "host:0", "", "", 0, true},
		{"empty", "", "", "", 0, true},
		{"colon only", ":", "", "", 0, true},
		{"no host", ":22", "", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, host, port, err := ParseTunnelSpec(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr = %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if user != tt.wantUser || host != tt.wantHost || port != tt.wantPort {
				t.Errorf("got (%q, %q, %d), want (%q, %q, %d)",
					user, host, port, tt.wantUser, tt.wantHost, tt.wantPort)
			}
		})
	}
}

func TestResolveTunnel(t *testing.T) {
	cfg := Default()
	cfg.TunnelSpec = "pi@gw.example.com:2200"
	if err := cfg.ResolveTunnel(); err != nil {
		t.Fatal(err)
	}
	if !cfg.TunnelEnabled || cfg.TunnelUser != "pi" || cfg.TunnelHost != "gw.example.com" || cfg.TunnelPort != 2200 {
		t.Errorf("got %+v", cfg)
	}

	cfg.TunnelSpec = "user@host:99999"
	err := cfg.ResolveTunnel()
	if err == nil || !strings.Contains(err.Error(), "--reverse") {
		t.Errorf("err = %v, want a --reverse config error", err)
	}

	cfg.TunnelSpec = ""
	if err := cfg.ResolveTunnel(); err != nil || cfg.TunnelEnabled {
		t.Errorf("empty spec: err = %v, enabled = %v", err, cfg.TunnelEnabled)
	}
}

// ── Defaults ─────────────────────────────────────────────────────────

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Port != 23 || cfg.MaxLineLength != 256 || cfg.Threshold != 3 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.IdleDelay != 10*time.Millisecond || cfg.ClientTimeout != 50*time.Millisecond {
		t.Errorf("timing defaults: idle %v, client %v", cfg.IdleDelay, cfg.ClientTimeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

// ── TOML file ────────────────────────────────────────────────────────

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tinytelnet.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, `
port = 2323
max_line = 128
idle_delay = "5ms"
round_robin = true
welcome = "> radio"
root = "/srv/sd"
stations = ["http://a.example:8000/live", "http://b.example/stream"]
reverse = "pi@gw.example.com"
remote_port = 4023
`)
	cfg := Default()
	if err := LoadFile(path, cfg); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Port != 2323 || cfg.MaxLineLength != 128 || !cfg.RoundRobin {
		t.Errorf("scalar fields not loaded: %+v", cfg)
	}
	if cfg.IdleDelay != 5*time.Millisecond {
		t.Errorf("IdleDelay = %v, want 5ms", cfg.IdleDelay)
	}
	if cfg.ClientTimeout != DefaultClientTimeout {
		t.Errorf("unset key changed ClientTimeout to %v", cfg.ClientTimeout)
	}
	if len(cfg.Stations) != 2 || cfg.Welcome != "> radio" || cfg.Root != "/srv/sd" {
		t.Errorf("got %+v", cfg)
	}
	if cfg.TunnelSpec != "pi@gw.example.com" || cfg.RemotePort != 4023 {
		t.Errorf("tunnel fields: %q %d", cfg.TunnelSpec, cfg.RemotePort)
	}
}

func TestLoadFile_Errors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantSub string
	}{
		{"unknown key", "prot = 23\n", "unknown key(s): prot"},
		{"bad syntax", "port = \n", "config: --config="},
		{"wrong type", "port = \"telnet\"\n", "config: --config="},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := LoadFile(writeFile(t, tt.body), Default())
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error %q should contain %q", err.Error(), tt.wantSub)
			}
		})
	}
}

func TestLoadFile_Missing(t *testing.T) {
	if err := LoadFile(filepath.Join(t.TempDir(), "none.toml"), Default()); err == nil {
		t.Error("expected error for missing file")
	}
}
