// Package mdns advertises the command port on the local network with
// DNS-SD so clients can find a device without knowing its address.
package mdns

import (
	"fmt"
	"os"
	"sync"

	"github.com/grandcat/zeroconf"
)

// ServiceType is the DNS-SD service type of a command server.
const ServiceType = "_telnet._tcp"

// Domain is the mDNS domain services are registered in.
const Domain = "local."

// Config describes the advertised service.
type Config struct {
	Port    int
	Name    string // instance name; the hostname when empty
	Version string
}

// Advertiser registers a command server with mDNS.
type Advertiser struct {
	cfg    Config
	mu     sync.Mutex
	server *zeroconf.Server
}

// NewAdvertiser returns an advertiser for cfg. Nothing is sent until
// Start.
func NewAdvertiser(cfg Config) *Advertiser {
	return &Advertiser{cfg: cfg}
}

// Instance returns the instance name that Start registers.
func (a *Advertiser) Instance() string {
	if a.cfg.Name != "" {
		return a.cfg.Name
	}
	if h, err := os.Hostname(); err == nil && h != "" {
		return h
	}
	return "tinytelnet"
}

// TXT returns the TXT records of the advertisement.
func (a *Advertiser) TXT() []string {
	txt := []string{"name=" + a.Instance()}
	if a.cfg.Version != "" {
		txt = append([]string{"version=" + a.cfg.Version}, txt...)
	}
	return txt
}

// Start registers the service. Calling it while running is a no-op.
func (a *Advertiser) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.server != nil {
		return nil
	}
	if a.cfg.Port <= 0 || a.cfg.Port > 65535 {
		return fmt.Errorf("mdns: invalid port %d", a.cfg.Port)
	}
	srv, err := zeroconf.Register(a.Instance(), ServiceType, Domain, a.cfg.Port, a.TXT(), nil)
	if err != nil {
		return fmt.Errorf("mdns register: %w", err)
	}
	a.server = srv
	return nil
}

// Stop withdraws the advertisement. It is safe to call at any time.
func (a *Advertiser) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}
}

// Running reports whether the service is registered.
func (a *Advertiser) Running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.server != nil
}
