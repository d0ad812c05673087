package core

import (
	"context"
	"io"

	"tinytelnet/client"
	"tinytelnet/internal/transport"
	"tinytelnet/util"
)

// ConnectMode dials a command server and runs the interactive client
// on it.
type ConnectMode struct {
	Dialer  transport.Dialer
	Address string
	Logger  *util.Logger

	// Stdin/Stdout default to os.Stdin/os.Stdout when nil.
	// Override in tests for deterministic I/O.
	Stdin  io.Reader
	Stdout io.Writer
}

func (m *ConnectMode) String() string { return "connect to " + m.Address }

// Run connects and relays lines until either side finishes.
func (m *ConnectMode) Run(ctx context.Context) error {
	c := &client.Client{
		Dialer:  m.Dialer,
		Network: "tcp",
		Address: m.Address,
		Logger:  m.Logger,
		Stdin:   m.Stdin,
		Stdout:  m.Stdout,
	}
	return c.Run(ctx)
}
