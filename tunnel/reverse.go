package tunnel

import (
	"context"
	"net"
	"sync"
	"time"

	"tinytelnet/internal/errors"
)

// Expose connects the gateway if needed and returns a listener for
// connections made to the gateway's cfg.Port. With cfg.Reconnect the
// listener survives gateway restarts: Accept reconnects and re-requests
// the forward before waiting again. Closing the listener also closes
// the gateway.
func (g *Gateway) Expose(ctx context.Context, cfg ExposeConfig) (net.Listener, error) {
	if !g.IsAlive() {
		if err := g.Connect(ctx); err != nil {
			return nil, err
		}
	}
	ln, err := g.Listen(cfg.BindAddress, cfg.Port)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	el := &exposedListener{gw: g, cfg: cfg, ln: ln, ctx: ctx, cancel: cancel}
	g.logger.Info("listening on gateway %s port %d", g.Addr(), cfg.Port)
	if cfg.KeepAlive > 0 {
		go el.keepalive()
	}
	return el, nil
}

type exposedListener struct {
	gw     *Gateway
	cfg    ExposeConfig
	ctx    context.Context
	cancel context.CancelFunc

	mu sync.Mutex
	ln net.Listener
}

func (l *exposedListener) current() net.Listener {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ln
}

func (l *exposedListener) Accept() (net.Conn, error) {
	for {
		conn, err := l.current().Accept()
		if err == nil {
			return conn, nil
		}
		if l.ctx.Err() != nil || !l.cfg.Reconnect {
			return nil, net.ErrClosed
		}
		l.gw.logger.Warn("gateway forward lost: %v", err)
		if err := l.reconnect(); err != nil {
			return nil, err
		}
	}
}

// reconnect replaces the gateway connection and remote listener.
func (l *exposedListener) reconnect() error {
	l.gw.stats.TunnelReconnect()
	l.gw.Close() //nolint:errcheck
	if err := l.gw.Connect(l.ctx); err != nil {
		return err
	}
	ln, err := l.gw.Listen(l.cfg.BindAddress, l.cfg.Port)
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.ln = ln
	l.mu.Unlock()
	l.gw.logger.Info("gateway forward restored on %s port %d", l.gw.Addr(), l.cfg.Port)
	return nil
}

// keepalive probes the gateway and closes the current forward when a
// probe fails, so a blocked Accept wakes up and reconnects.
func (l *exposedListener) keepalive() {
	t := time.NewTicker(l.cfg.KeepAlive)
	defer t.Stop()
	for {
		select {
		case <-l.ctx.Done():
			return
		case <-t.C:
			if err := l.gw.Ping(); err != nil {
				l.gw.logger.Warn("gateway %s: %v", l.gw.Addr(), err)
				l.current().Close()
				if !errors.Is(err, errors.ErrNotConnected) {
					l.gw.Close() //nolint:errcheck
				}
			}
		}
	}
}

func (l *exposedListener) Close() error {
	l.cancel()
	err := l.current().Close()
	if cerr := l.gw.Close(); err == nil {
		err = cerr
	}
	return err
}

func (l *exposedListener) Addr() net.Addr { return l.current().Addr() }
