package tunnel

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"tinytelnet/internal/errors"
	"tinytelnet/internal/metrics"
	"tinytelnet/internal/retry"
	"tinytelnet/util"
)

// Gateway is a client connection to an SSH server that will listen on
// our behalf.
type Gateway struct {
	config  *SSHConfig
	logger  *util.Logger
	stats   *metrics.Collector
	backoff *retry.Backoff

	mu     sync.RWMutex
	client *ssh.Client
	alive  bool
}

// NewGateway returns a gateway ready to Connect. stats may be nil.
func NewGateway(cfg *SSHConfig, logger *util.Logger, stats *metrics.Collector) *Gateway {
	if cfg.Port == 0 {
		cfg.Port = 22
	}
	if cfg.ConnTimeout == 0 {
		cfg.ConnTimeout = 30 * time.Second
	}
	b := retry.DefaultBackoff()
	b.OnRetry = func(attempt int, err error, wait time.Duration) {
		logger.Warn("ssh gateway %s: attempt %d failed: %v (retrying in %s)",
			cfg.Host, attempt, err, wait.Truncate(time.Millisecond))
	}
	return &Gateway{config: cfg, logger: logger, stats: stats, backoff: b}
}

// SetBackoff replaces the retry policy used by Connect.
func (g *Gateway) SetBackoff(b *retry.Backoff) { g.backoff = b }

// Addr returns the gateway's host:port.
func (g *Gateway) Addr() string { return util.FormatAddr(g.config.Host, g.config.Port) }

// Connect dials the gateway and completes the SSH handshake, retrying
// transient failures. Authentication and host key failures are final.
func (g *Gateway) Connect(ctx context.Context) error {
	methods, err := BuildAuthMethods(g.config)
	if err != nil {
		return errors.WrapSSH("auth", g.config.Host, g.config.Port, err)
	}
	hk, err := hostKeyCallback(g.config)
	if err != nil {
		return errors.WrapSSH("hostkey", g.config.Host, g.config.Port, err)
	}
	cc := &ssh.ClientConfig{
		User:            g.config.User,
		Auth:            methods,
		HostKeyCallback: hk,
		Timeout:         g.config.ConnTimeout,
		BannerCallback: func(message string) error {
			g.logger.Info("%s", strings.TrimSpace(message))
			return nil
		},
	}

	return g.backoff.Do(ctx, func(attempt int) error {
		client, err := g.dial(ctx, cc)
		if err != nil {
			g.stats.RecordError(err.Error())
			if final := finalError(err); final != nil {
				return retry.Permanent(final)
			}
			return err
		}
		g.mu.Lock()
		g.client = client
		g.alive = true
		g.mu.Unlock()
		go g.monitor(client)
		g.logger.Verbose("ssh gateway %s connected", g.Addr())
		return nil
	})
}

func (g *Gateway) dial(ctx context.Context, cc *ssh.ClientConfig) (*ssh.Client, error) {
	addr := g.Addr()
	g.logger.Debug("ssh: dialing %s as %s", addr, g.config.User)

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, errors.Wrap("dial", addr, err)
	}
	sc, chans, reqs, err := ssh.NewClientConn(conn, addr, cc)
	if err != nil {
		conn.Close()
		return nil, errors.WrapSSH("handshake", g.config.Host, g.config.Port, err)
	}
	return ssh.NewClient(sc, chans, reqs), nil
}

// finalError marks handshake failures retrying cannot fix with the
// matching sentinel. It returns nil for anything else.
func finalError(err error) error {
	var ke *knownhosts.KeyError
	msg := err.Error()
	switch {
	case errors.As(err, &ke), strings.Contains(msg, "key mismatch"):
		return fmt.Errorf("%w: %w", errors.ErrHostKeyMismatch, err)
	case strings.Contains(msg, "unable to authenticate"):
		return fmt.Errorf("%w: %w", errors.ErrAuthFailed, err)
	}
	return nil
}

// Listen asks the gateway to listen on bindAddr:port and returns the
// forwarded connections as a net.Listener.
func (g *Gateway) Listen(bindAddr string, port int) (net.Listener, error) {
	g.mu.RLock()
	client, alive := g.client, g.alive
	g.mu.RUnlock()
	if !alive || client == nil {
		return nil, errors.ErrNotConnected
	}
	ln, err := listenRemoteForward(client, bindAddr, port)
	if err != nil {
		return nil, errors.WrapSSH("forward", g.config.Host, g.config.Port, err)
	}
	return ln, nil
}

// Ping sends one keepalive request.
func (g *Gateway) Ping() error {
	g.mu.RLock()
	client := g.client
	g.mu.RUnlock()
	if client == nil {
		return errors.ErrNotConnected
	}
	if _, _, err := client.SendRequest("keepalive@openssh.com", true, nil); err != nil {
		return fmt.Errorf("keepalive: %w", err)
	}
	g.stats.RecordHealthCheck()
	return nil
}

// IsAlive reports whether the SSH connection is up.
func (g *Gateway) IsAlive() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.alive
}

// Close shuts down the SSH connection.
func (g *Gateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.alive = false
	if g.client == nil {
		return nil
	}
	err := g.client.Close()
	g.client = nil
	return err
}

// monitor waits for the connection to end and marks the gateway down.
func (g *Gateway) monitor(client *ssh.Client) {
	err := client.Wait()

	g.mu.Lock()
	if g.client == client {
		g.alive = false
	}
	g.mu.Unlock()

	if err != nil {
		g.logger.Debug("ssh gateway closed: %v", err)
	} else {
		g.logger.Debug("ssh gateway closed")
	}
}
