package core

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"tinytelnet/internal/mdns"
	"tinytelnet/internal/metrics"
	"tinytelnet/internal/server"
	"tinytelnet/internal/transport"
	"tinytelnet/util"
)

// ServeMode runs the multi-session command server on TCP, optionally
// joined by a WebSocket endpoint and an SSH gateway forward, and
// advertises it over mDNS when asked.
type ServeMode struct {
	Address     string // host:port for the telnet listener
	AcceptRate  float64
	AcceptBurst int

	WebSocketAddress string // "" disables
	WebSocketPath    string

	Gateway *ReverseTunnel // nil disables

	MDNS     bool
	MDNSName string

	Options  server.Options
	Commands CommandSet
	Logger   *util.Logger
}

func (m *ServeMode) String() string {
	s := fmt.Sprintf("serve telnet on %s", m.Address)
	if m.WebSocketAddress != "" {
		s += fmt.Sprintf(", websocket on %s%s", m.WebSocketAddress, m.WebSocketPath)
	}
	if m.Gateway != nil {
		s += ", " + m.Gateway.String()
	}
	if m.MDNS {
		s += ", mDNS"
	}
	return s + "; commands: bye, " + m.Commands.String()
}

// Run starts the server and steps it until ctx is done.
func (m *ServeMode) Run(ctx context.Context) error {
	srv, stop, err := m.Start(ctx)
	if err != nil {
		return err
	}
	defer stop()
	return srv.Run(ctx)
}

// Start opens every listener and returns the configured server without
// running it. stop releases what Start opened beyond the server itself.
func (m *ServeMode) Start(ctx context.Context) (srv *server.Server, stop func(), err error) {
	stats := m.Options.Metrics
	if stats == nil {
		stats = metrics.New()
	}
	aopts := []transport.AcceptOption{
		transport.WithAcceptMetrics(stats),
		transport.WithAcceptLogger(m.Logger),
	}
	if m.AcceptRate > 0 {
		burst := m.AcceptBurst
		if burst <= 0 {
			burst = 1
		}
		aopts = append(aopts, transport.WithRateLimit(m.AcceptRate, burst))
	}

	var cleanup []func()
	stop = func() {
		for i := len(cleanup) - 1; i >= 0; i-- {
			cleanup[i]()
		}
	}
	defer func() {
		if err != nil {
			stop()
		}
	}()

	tcp, err := transport.Listen(m.Address, aopts...)
	if err != nil {
		return nil, nil, err
	}
	acceptors := []transport.Acceptor{tcp}
	cleanup = append(cleanup, func() { tcp.Close() })

	if m.WebSocketAddress != "" {
		ws, err := transport.ListenWebSocket(m.WebSocketAddress, m.WebSocketPath, aopts...)
		if err != nil {
			return nil, nil, err
		}
		acceptors = append(acceptors, ws)
		cleanup = append(cleanup, func() { ws.Close() })
		m.Logger.Info("websocket endpoint on ws://%s%s", ws.Addr(), m.WebSocketPath)
	}

	if m.Gateway != nil {
		gw, err := m.Gateway.Listen(ctx, m.Logger, stats, aopts...)
		if err != nil {
			return nil, nil, fmt.Errorf("reverse tunnel: %w", err)
		}
		acceptors = append(acceptors, gw)
		cleanup = append(cleanup, func() { gw.Close() })
	}

	store, err := m.Commands.openAudit()
	if err != nil {
		return nil, nil, err
	}
	opts := m.Options
	opts.Logger = m.Logger
	opts.Metrics = stats
	if store != nil {
		opts.Audit = store
		cleanup = append(cleanup, func() { store.Close() })
	}

	var acc transport.Acceptor = tcp
	if len(acceptors) > 1 {
		multi := transport.NewMultiAcceptor(acceptors...)
		multi.OnError = func(a transport.Acceptor, err error) {
			m.Logger.Warn("listener %s stopped: %v", a.Addr(), err)
		}
		acc = multi
	}
	srv = server.New(acc, opts)
	m.Commands.install(srv, store, stats, m.Logger, false)

	if m.MDNS {
		adv, err := m.advertise(tcp.Addr())
		if err != nil {
			// Keep serving without discovery.
			m.Logger.Warn("mdns: %v", err)
		} else {
			cleanup = append(cleanup, adv.Stop)
		}
	}
	return srv, stop, nil
}

func (m *ServeMode) advertise(addr string) (*mdns.Advertiser, error) {
	_, p, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}
	port, err := strconv.Atoi(p)
	if err != nil {
		return nil, err
	}
	adv := mdns.NewAdvertiser(mdns.Config{
		Port:    port,
		Name:    m.MDNSName,
		Version: m.Commands.Version,
	})
	if err := adv.Start(); err != nil {
		return nil, err
	}
	m.Logger.Verbose("mdns: advertising %s on port %d", adv.Instance(), port)
	return adv, nil
}
