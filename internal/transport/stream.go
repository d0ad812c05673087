package transport

import (
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"tinytelnet/internal/errors"
	"tinytelnet/internal/metrics"
	"tinytelnet/util"
)

// MaxBuffered caps the unread input a Stream holds before its pump stops
// reading from the underlying connection.
const MaxBuffered = 64 * 1024

// Stream adapts an io.ReadWriteCloser to a Channel. A pump goroutine
// moves inbound bytes into an in-memory buffer; everything else runs on
// the caller's goroutine.
type Stream struct {
	id     string
	remote string
	rwc    io.ReadWriteCloser
	stats  *metrics.Collector

	mu      sync.Mutex
	buf     []byte
	readErr error // terminal error from the pump
	closed  bool
	timeout time.Duration

	arrived chan struct{} // signalled after each pump append
	drained chan struct{} // signalled when the buffer shrinks
	done    chan struct{}

	wmu sync.Mutex
}

// StreamOption configures a Stream.
type StreamOption func(*Stream)

// WithMetrics counts bytes in and out on c.
func WithMetrics(c *metrics.Collector) StreamOption {
	return func(s *Stream) { s.stats = c }
}

// WithTimeout sets the initial idle timeout.
func WithTimeout(d time.Duration) StreamOption {
	return func(s *Stream) { s.timeout = d }
}

// NewStream starts pumping rwc. remote labels the peer in logs.
func NewStream(rwc io.ReadWriteCloser, remote string, opts ...StreamOption) *Stream {
	s := &Stream{
		id:      uuid.NewString(),
		remote:  remote,
		rwc:     rwc,
		arrived: make(chan struct{}, 1),
		drained: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	go s.pump()
	return s
}

func (s *Stream) pump() {
	chunk := util.GetChunk()
	defer util.PutChunk(chunk)

	for {
		n, err := s.rwc.Read(*chunk)
		if n > 0 {
			s.stats.BytesReceived(int64(n))
			s.mu.Lock()
			s.buf = append(s.buf, (*chunk)[:n]...)
			full := len(s.buf) >= MaxBuffered
			s.mu.Unlock()
			signal(s.arrived)
			if full && !s.waitDrain() {
				return
			}
		}
		if err != nil {
			s.mu.Lock()
			s.readErr = err
			s.mu.Unlock()
			signal(s.arrived)
			return
		}
	}
}

// waitDrain blocks until the reader frees buffer space or the stream
// is closed.
func (s *Stream) waitDrain() bool {
	for {
		s.mu.Lock()
		full := len(s.buf) >= MaxBuffered
		s.mu.Unlock()
		if !full {
			return true
		}
		select {
		case <-s.drained:
		case <-s.done:
			return false
		}
	}
}

func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// ID returns the stream's unique id.
func (s *Stream) ID() string { return s.id }

// RemoteAddr returns the label given at construction.
func (s *Stream) RemoteAddr() string { return s.remote }

// SetTimeout sets the idle timeout used by ReadByte. Zero means do not
// wait at all.
func (s *Stream) SetTimeout(d time.Duration) {
	s.mu.Lock()
	s.timeout = d
	s.mu.Unlock()
}

// Available returns the number of buffered input bytes.
func (s *Stream) Available() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buf)
}

// ReadByte pops one buffered byte, waiting up to the idle timeout for
// input. It returns errors.ErrTimeout when none arrives, or the
// connection's terminal error once the buffer is empty.
func (s *Stream) ReadByte() (byte, error) {
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		s.mu.Lock()
		if len(s.buf) > 0 {
			b := s.buf[0]
			s.buf = s.buf[1:]
			s.mu.Unlock()
			signal(s.drained)
			return b, nil
		}
		if s.closed {
			s.mu.Unlock()
			return 0, errors.ErrNotConnected
		}
		if s.readErr != nil {
			err := s.readErr
			s.mu.Unlock()
			return 0, err
		}
		timeout := s.timeout
		s.mu.Unlock()

		if timer == nil {
			if timeout <= 0 {
				return 0, errors.ErrTimeout
			}
			timer = time.NewTimer(timeout)
		}
		select {
		case <-s.arrived:
		case <-timer.C:
			return 0, errors.ErrTimeout
		case <-s.done:
			return 0, errors.ErrNotConnected
		}
	}
}

// Unread pushes p back in front of any buffered input.
func (s *Stream) Unread(p []byte) {
	if len(p) == 0 {
		return
	}
	s.mu.Lock()
	buf := make([]byte, 0, len(p)+len(s.buf))
	buf = append(buf, p...)
	s.buf = append(buf, s.buf...)
	s.mu.Unlock()
}

// Write sends p to the peer.
func (s *Stream) Write(p []byte) (int, error) {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	n, err := s.rwc.Write(p)
	s.stats.BytesSent(int64(n))
	return n, err
}

// Connected reports whether the stream is open and either the peer is
// still connected or unread input remains.
func (s *Stream) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	return s.readErr == nil || len(s.buf) > 0
}

// Err returns the error that ended the pump, if any.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readErr
}

// Close closes the underlying connection. It is safe to call more than
// once.
func (s *Stream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.buf = nil
	s.mu.Unlock()
	close(s.done)
	return s.rwc.Close()
}
