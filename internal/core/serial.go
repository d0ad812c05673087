package core

import (
	"context"
	"fmt"
	"io"
	"os"

	"tinytelnet/internal/metrics"
	"tinytelnet/internal/server"
	"tinytelnet/internal/transport"
	"tinytelnet/util"
)

// SerialMode serves commands on one local link: a serial device, or the
// process console when Device is empty.
type SerialMode struct {
	Device string
	Baud   int

	Options  server.Options
	Commands CommandSet
	Logger   *util.Logger

	// Stdin/Stdout back the console and default to os.Stdin/os.Stdout.
	Stdin  io.Reader
	Stdout io.Writer
}

func (m *SerialMode) String() string {
	link := "console"
	if m.Device != "" {
		link = m.Device
		if m.Baud > 0 {
			link += fmt.Sprintf(" at %d baud", m.Baud)
		}
	}
	return "serve " + link + "; commands: " + m.Commands.String()
}

func (m *SerialMode) open() (transport.Channel, error) {
	if m.Device != "" {
		return transport.OpenSerial(m.Device, m.Baud, transport.WithMetrics(m.Options.Metrics))
	}
	in, out := m.Stdin, m.Stdout
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}
	return transport.Console(in, out, transport.WithMetrics(m.Options.Metrics)), nil
}

// Run opens the link and serves it until ctx is done or the link is
// lost.
func (m *SerialMode) Run(ctx context.Context) error {
	if m.Options.Metrics == nil {
		m.Options.Metrics = metrics.New()
	}
	ch, err := m.open()
	if err != nil {
		return err
	}
	store, err := m.Commands.openAudit()
	if err != nil {
		ch.Close()
		return err
	}
	opts := m.Options
	opts.Logger = m.Logger
	if store != nil {
		opts.Audit = store
		defer store.Close()
	}

	s := server.NewSerial(ch, opts)
	m.Commands.install(s, store, opts.Metrics, m.Logger, true)
	return s.Run(ctx)
}
