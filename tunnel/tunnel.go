// Package tunnel exposes the command port on a remote SSH gateway, the
// equivalent of `ssh -R`, for devices that sit behind NAT. Connections
// arriving at the gateway surface locally as a net.Listener, so the
// server accepts them like any other inbound connection.
package tunnel

import (
	"time"

	"golang.org/x/crypto/ssh"
)

// SSHConfig holds everything needed to reach an SSH gateway.
type SSHConfig struct {
	User          string
	Host          string
	Port          int
	KeyPath       string
	PromptPass    bool
	UseAgent      bool
	StrictHostKey bool
	KnownHosts    string
	ConnTimeout   time.Duration

	// AllowKeyboardInteractive answers keyboard-interactive challenges
	// with empty responses, as public tunnel services expect.
	AllowKeyboardInteractive bool

	// Auth, when non-empty, is used as-is instead of building methods
	// from the fields above.
	Auth []ssh.AuthMethod
	// HostKey, when set, overrides host key checking.
	HostKey ssh.HostKeyCallback
}

// ExposeConfig describes the remote listener requested on the gateway.
type ExposeConfig struct {
	BindAddress string // "" lets the gateway decide
	Port        int

	// KeepAlive is the interval between keepalive probes; 0 disables
	// them. A failed probe drops the connection and triggers a
	// reconnect on the next Accept.
	KeepAlive time.Duration
	// Reconnect re-establishes the gateway connection and remote
	// listener when they fail, instead of ending Accept.
	Reconnect bool
}
