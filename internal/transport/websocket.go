package transport

import (
	"context"
	"io"
	"net"
	"net/http"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/gorilla/websocket"

	"tinytelnet/internal/errors"
)

// WebSocketListener is an http.Handler that upgrades requests to
// WebSocket connections and hands them out through the net.Listener
// interface, so browser terminals can reach the same command server.
type WebSocketListener struct {
	addr     net.Addr
	upgrader websocket.Upgrader
	conns    chan net.Conn
	done     chan struct{}
	once     sync.Once
	srv      *http.Server
}

// NewWebSocketListener returns a listener reporting addr. Mount it on
// an HTTP mux to start receiving connections.
func NewWebSocketListener(addr net.Addr) *WebSocketListener {
	return &WebSocketListener{
		addr: addr,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		conns: make(chan net.Conn, backlog),
		done:  make(chan struct{}),
	}
}

// ListenWebSocket serves WebSocket upgrades on addr at path and returns
// an acceptor for the resulting connections.
func ListenWebSocket(addr, path string, opts ...AcceptOption) (*ListenerAcceptor, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrap("listen", addr, err)
	}
	wl := NewWebSocketListener(ln.Addr())
	mux := http.NewServeMux()
	mux.Handle(path, wl)
	wl.srv = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go wl.srv.Serve(ln) //nolint:errcheck
	return NewListenerAcceptor(wl, opts...), nil
}

// ServeHTTP upgrades the request and queues the connection.
func (l *WebSocketListener) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c, err := l.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return // Upgrade already replied with an HTTP error
	}
	select {
	case l.conns <- &wsConn{c: c}:
	case <-l.done:
		c.Close()
	}
}

// Accept waits for the next upgraded connection.
func (l *WebSocketListener) Accept() (net.Conn, error) {
	select {
	case c := <-l.conns:
		return c, nil
	case <-l.done:
		return nil, net.ErrClosed
	}
}

// Close stops accepting and shuts down the HTTP server if this listener
// owns one.
func (l *WebSocketListener) Close() error {
	var err error
	l.once.Do(func() {
		close(l.done)
		if l.srv != nil {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			err = l.srv.Shutdown(ctx)
		}
	})
	return err
}

// Addr returns the address given at construction.
func (l *WebSocketListener) Addr() net.Addr { return l.addr }

// wsConn presents a WebSocket as a byte stream. Inbound message
// payloads are concatenated; each Write becomes one message, text when
// the bytes are valid UTF-8 and binary otherwise.
type wsConn struct {
	c   *websocket.Conn
	rmu sync.Mutex
	r   io.Reader
	wmu sync.Mutex
}

func (w *wsConn) Read(p []byte) (int, error) {
	w.rmu.Lock()
	defer w.rmu.Unlock()
	for {
		if w.r == nil {
			_, r, err := w.c.NextReader()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					return 0, io.EOF
				}
				return 0, err
			}
			w.r = r
		}
		n, err := w.r.Read(p)
		if err == io.EOF {
			w.r = nil
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}

func (w *wsConn) Write(p []byte) (int, error) {
	w.wmu.Lock()
	defer w.wmu.Unlock()
	kind := websocket.TextMessage
	if !utf8.Valid(p) {
		kind = websocket.BinaryMessage
	}
	if err := w.c.WriteMessage(kind, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *wsConn) Close() error {
	w.wmu.Lock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	w.c.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)) //nolint:errcheck
	w.wmu.Unlock()
	return w.c.Close()
}

func (w *wsConn) LocalAddr() net.Addr                { return w.c.LocalAddr() }
func (w *wsConn) RemoteAddr() net.Addr               { return w.c.RemoteAddr() }
func (w *wsConn) SetReadDeadline(t time.Time) error  { return w.c.SetReadDeadline(t) }
func (w *wsConn) SetWriteDeadline(t time.Time) error { return w.c.SetWriteDeadline(t) }

func (w *wsConn) SetDeadline(t time.Time) error {
	if err := w.c.SetReadDeadline(t); err != nil {
		return err
	}
	return w.c.SetWriteDeadline(t)
}
