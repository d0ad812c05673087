package core

import (
	"context"
	"fmt"
	"time"

	"tinytelnet/internal/metrics"
	"tinytelnet/internal/transport"
	"tinytelnet/tunnel"
	"tinytelnet/util"
)

// ReverseTunnel exposes the command server on a remote SSH gateway,
// the Go equivalent of ssh -R.
type ReverseTunnel struct {
	SSHConfig         *tunnel.SSHConfig
	RemoteBindAddress string
	RemotePort        int
	KeepAliveInterval time.Duration
	AutoReconnect     bool
}

func (r *ReverseTunnel) String() string {
	return fmt.Sprintf("gateway %s@%s:%d remote-port=%d",
		r.SSHConfig.User, r.SSHConfig.Host, r.SSHConfig.Port, r.RemotePort)
}

// Listen connects to the gateway, requests the remote listener and
// returns an acceptor for the forwarded connections.
func (r *ReverseTunnel) Listen(ctx context.Context, logger *util.Logger, stats *metrics.Collector, opts ...transport.AcceptOption) (*transport.ListenerAcceptor, error) {
	logger.Verbose("establishing reverse tunnel: %s", r)
	gw := tunnel.NewGateway(r.SSHConfig, logger.With("gateway"), stats)
	return transport.ListenGateway(ctx, gw, tunnel.ExposeConfig{
		BindAddress: r.RemoteBindAddress,
		Port:        r.RemotePort,
		KeepAlive:   r.KeepAliveInterval,
		Reconnect:   r.AutoReconnect,
	}, opts...)
}
