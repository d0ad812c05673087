package transport

import (
	"net"
	"sync"

	"golang.org/x/time/rate"

	"tinytelnet/internal/errors"
	"tinytelnet/internal/metrics"
	"tinytelnet/util"
)

// backlog is how many accepted connections may queue between polls.
const backlog = 16

// ListenerAcceptor turns a blocking net.Listener into a polled
// Acceptor. A background goroutine accepts connections and queues them
// as Streams; Accept drains the queue without blocking.
type ListenerAcceptor struct {
	ln      net.Listener
	limiter *rate.Limiter
	stats   *metrics.Collector
	logger  *util.Logger
	sopts   []StreamOption

	queue chan *Stream
	done  chan struct{}

	mu       sync.Mutex
	err      error // terminal accept error, reported once
	reported bool
	closed   bool
}

// AcceptOption configures a ListenerAcceptor.
type AcceptOption func(*ListenerAcceptor)

// WithRateLimit admits at most perSecond new connections per second,
// with the given burst. Excess connections are closed on arrival.
func WithRateLimit(perSecond float64, burst int) AcceptOption {
	return func(a *ListenerAcceptor) {
		if perSecond > 0 {
			a.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
		}
	}
}

// WithAcceptMetrics records connection and byte counts on c.
func WithAcceptMetrics(c *metrics.Collector) AcceptOption {
	return func(a *ListenerAcceptor) {
		a.stats = c
		a.sopts = append(a.sopts, WithMetrics(c))
	}
}

// WithAcceptLogger logs rejected connections.
func WithAcceptLogger(l *util.Logger) AcceptOption {
	return func(a *ListenerAcceptor) { a.logger = l }
}

// NewListenerAcceptor starts accepting on ln.
func NewListenerAcceptor(ln net.Listener, opts ...AcceptOption) *ListenerAcceptor {
	a := &ListenerAcceptor{
		ln:     ln,
		logger: util.Discard(),
		queue:  make(chan *Stream, backlog),
		done:   make(chan struct{}),
	}
	for _, o := range opts {
		o(a)
	}
	go a.loop()
	return a
}

func (a *ListenerAcceptor) loop() {
	defer close(a.queue)
	for {
		conn, err := a.ln.Accept()
		if err != nil {
			a.mu.Lock()
			if !a.closed {
				a.err = errors.Wrap("accept", a.ln.Addr().String(), err)
			}
			a.mu.Unlock()
			return
		}
		if a.limiter != nil && !a.limiter.Allow() {
			a.logger.Warn("rate limit: rejecting %s", conn.RemoteAddr())
			a.stats.ConnectionRejected()
			conn.Close()
			continue
		}
		s := NewStream(conn, conn.RemoteAddr().String(), a.sopts...)
		select {
		case a.queue <- s:
		case <-a.done:
			s.Close()
			return
		}
	}
}

// Accept returns a queued connection or (nil, nil). After the listener
// fails, the failure is returned once and errors.ErrServerClosed after
// that.
func (a *ListenerAcceptor) Accept() (Channel, error) {
	select {
	case s, ok := <-a.queue:
		if ok {
			return s, nil
		}
	default:
		return nil, nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil && !a.reported {
		a.reported = true
		return nil, a.err
	}
	return nil, errors.ErrServerClosed
}

// Addr returns the listener's address.
func (a *ListenerAcceptor) Addr() string { return a.ln.Addr().String() }

// Close stops accepting and closes any connections still queued.
func (a *ListenerAcceptor) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.mu.Unlock()

	close(a.done)
	err := a.ln.Close()
	for s := range a.queue {
		s.Close()
	}
	return err
}

// MultiAcceptor polls several acceptors in turn, so one server can take
// connections from TCP, WebSocket and SSH gateways at once. A member
// that fails is dropped; ErrServerClosed is returned once none remain.
type MultiAcceptor struct {
	members []Acceptor
	next    int
	// OnError, when set, is told about members that fail.
	OnError func(a Acceptor, err error)
}

// NewMultiAcceptor combines members.
func NewMultiAcceptor(members ...Acceptor) *MultiAcceptor {
	return &MultiAcceptor{members: members}
}

// Accept returns the first pending connection among the members,
// starting after the member that produced the previous one.
func (m *MultiAcceptor) Accept() (Channel, error) {
	if len(m.members) == 0 {
		return nil, errors.ErrServerClosed
	}
	for tries := len(m.members); tries > 0 && len(m.members) > 0; tries-- {
		i := m.next % len(m.members)
		a := m.members[i]
		ch, err := a.Accept()
		if err != nil {
			if m.OnError != nil && !errors.Is(err, errors.ErrServerClosed) {
				m.OnError(a, err)
			}
			a.Close()
			m.members = append(m.members[:i], m.members[i+1:]...)
			continue
		}
		m.next = i + 1
		if ch != nil {
			return ch, nil
		}
	}
	if len(m.members) == 0 {
		return nil, errors.ErrServerClosed
	}
	return nil, nil
}

// Addr lists the member addresses.
func (m *MultiAcceptor) Addr() string {
	s := ""
	for i, a := range m.members {
		if i > 0 {
			s += ", "
		}
		s += a.Addr()
	}
	return s
}

// Close closes every member.
func (m *MultiAcceptor) Close() error {
	var errs []error
	for _, a := range m.members {
		if err := a.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	m.members = nil
	return errors.Join(errs...)
}
