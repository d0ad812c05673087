// Package transport provides the byte channels a command server talks
// over and the acceptors that produce them. A channel buffers inbound
// bytes so the server can poll how much input is waiting without
// blocking; acceptors hand out new channels without blocking either.
package transport

import (
	"context"
	"io"
	"net"
	"time"
)

// Channel is a buffered duplex byte stream.
type Channel interface {
	io.Writer

	// ID is a unique identifier for logs and audit records.
	ID() string
	// RemoteAddr names the peer, or the device path for serial links.
	RemoteAddr() string

	// Available returns the number of buffered input bytes.
	Available() int
	// ReadByte returns the next input byte, waiting at most the idle
	// timeout for one to arrive.
	ReadByte() (byte, error)
	// Unread pushes p back to the front of the input buffer.
	Unread(p []byte)
	// SetTimeout sets the idle timeout used by ReadByte.
	SetTimeout(d time.Duration)

	// Connected reports whether the peer is still there or unread input
	// remains.
	Connected() bool
	Close() error
}

// Acceptor produces channels for new inbound connections.
type Acceptor interface {
	// Accept returns a pending connection, or (nil, nil) when none is
	// waiting. It never blocks.
	Accept() (Channel, error)
	// Addr describes where the acceptor listens.
	Addr() string
	Close() error
}

// Dialer opens outbound connections. The interactive client uses it so
// tests can substitute an in-memory pipe.
type Dialer interface {
	Dial(ctx context.Context, network, address string) (net.Conn, error)
	Close() error
}
