package transport

import (
	"context"
	"net"
	"time"

	"tinytelnet/internal/errors"
)

// Listen opens a TCP listener and wraps it in a ListenerAcceptor.
func Listen(addr string, opts ...AcceptOption) (*ListenerAcceptor, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrap("listen", addr, err)
	}
	return NewListenerAcceptor(ln, opts...), nil
}

// TCPDialer establishes plain TCP connections.
type TCPDialer struct {
	Timeout time.Duration
}

// Dial connects to address over TCP.
func (d *TCPDialer) Dial(ctx context.Context, network, address string) (net.Conn, error) {
	dialer := net.Dialer{Timeout: d.Timeout}
	conn, err := dialer.DialContext(ctx, network, address)
	if err != nil {
		return nil, errors.Wrap("dial", address, err)
	}
	return conn, nil
}

// Close is a no-op for stateless TCP dialers.
func (d *TCPDialer) Close() error { return nil }
