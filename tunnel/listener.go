package tunnel

// Forwarded connections are matched on channel type alone. Some
// gateways report a bind address different from the one requested
// ("0.0.0.0" for ""), which ssh.Client.Listen would reject with "no
// forward for address".

import (
	"fmt"
	"net"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
)

// forwardRequest is the "tcpip-forward" and "cancel-tcpip-forward"
// payload (RFC 4254 §7.1).
type forwardRequest struct {
	Addr string
	Port uint32
}

// forwardReply carries the port the gateway chose when 0 was asked.
type forwardReply struct {
	Port uint32
}

// forwardedChannel is the "forwarded-tcpip" channel-open payload
// (RFC 4254 §7.2).
type forwardedChannel struct {
	Addr       string
	Port       uint32
	OriginAddr string
	OriginPort uint32
}

// remoteListener yields forwarded-tcpip channels as connections.
type remoteListener struct {
	client   *ssh.Client
	bindAddr string
	bindPort uint32
	incoming <-chan ssh.NewChannel
	done     chan struct{}
	once     sync.Once
}

func (l *remoteListener) Accept() (net.Conn, error) {
	select {
	case <-l.done:
		return nil, net.ErrClosed
	case nc, ok := <-l.incoming:
		if !ok {
			return nil, net.ErrClosed
		}
		ch, reqs, err := nc.Accept()
		if err != nil {
			return nil, fmt.Errorf("channel accept: %w", err)
		}
		go ssh.DiscardRequests(reqs)

		var origin net.Addr = &net.TCPAddr{}
		var p forwardedChannel
		if err := ssh.Unmarshal(nc.ExtraData(), &p); err == nil {
			origin = &net.TCPAddr{IP: net.ParseIP(p.OriginAddr), Port: int(p.OriginPort)}
		}
		return &channelConn{Channel: ch, remote: origin}, nil
	}
}

// Close cancels the forward and unblocks Accept.
func (l *remoteListener) Close() error {
	l.once.Do(func() {
		close(l.done)
		msg := forwardRequest{Addr: l.bindAddr, Port: l.bindPort}
		l.client.SendRequest("cancel-tcpip-forward", true, ssh.Marshal(&msg)) //nolint:errcheck
	})
	return nil
}

func (l *remoteListener) Addr() net.Addr {
	return &net.TCPAddr{IP: net.ParseIP(l.bindAddr), Port: int(l.bindPort)}
}

// channelConn adapts an ssh.Channel to net.Conn.
type channelConn struct {
	ssh.Channel
	remote net.Addr
}

func (c *channelConn) LocalAddr() net.Addr                { return &net.TCPAddr{} }
func (c *channelConn) RemoteAddr() net.Addr               { return c.remote }
func (c *channelConn) SetDeadline(_ time.Time) error      { return nil }
func (c *channelConn) SetReadDeadline(_ time.Time) error  { return nil }
func (c *channelConn) SetWriteDeadline(_ time.Time) error { return nil }

// listenRemoteForward registers for forwarded-tcpip channels and sends
// the tcpip-forward request.
func listenRemoteForward(client *ssh.Client, bindAddr string, bindPort int) (net.Listener, error) {
	incoming := client.HandleChannelOpen("forwarded-tcpip")
	if incoming == nil {
		return nil, fmt.Errorf("forwarded-tcpip handler already registered")
	}
	msg := forwardRequest{Addr: bindAddr, Port: uint32(bindPort)}
	ok, payload, err := client.SendRequest("tcpip-forward", true, ssh.Marshal(&msg))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("tcpip-forward request denied by peer")
	}
	port := uint32(bindPort)
	if port == 0 {
		var r forwardReply
		if err := ssh.Unmarshal(payload, &r); err == nil {
			port = r.Port
		}
	}
	return &remoteListener{
		client:   client,
		bindAddr: bindAddr,
		bindPort: port,
		incoming: incoming,
		done:     make(chan struct{}),
	}, nil
}
