package transport

import (
	"context"

	"tinytelnet/tunnel"
)

// ListenGateway exposes the server on an SSH gateway and accepts the
// connections forwarded from it. Closing the acceptor also closes the
// gateway.
func ListenGateway(ctx context.Context, gw *tunnel.Gateway, cfg tunnel.ExposeConfig, opts ...AcceptOption) (*ListenerAcceptor, error) {
	ln, err := gw.Expose(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewListenerAcceptor(ln, opts...), nil
}
