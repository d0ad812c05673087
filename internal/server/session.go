package server

import (
	"time"

	"tinytelnet/internal/transport"
	"tinytelnet/util"
)

// session is one slot of the network server's table.
type session struct {
	ch        transport.Channel
	connected bool
	log       *util.Logger
	opened    time.Time

	// pendingSince is when buffered input at or below the threshold was
	// first seen; zero when there is none.
	pendingSince time.Time
	// carry is the number of bytes pushed back after an incomplete
	// negotiation sequence.
	carry int
}

func newSession(ch transport.Channel, log *util.Logger) *session {
	return &session{
		ch:        ch,
		connected: true,
		log:       log.With("session " + shortID(ch.ID())),
		opened:    time.Now(),
	}
}

func (s *session) ID() string         { return s.ch.ID() }
func (s *session) RemoteAddr() string { return s.ch.RemoteAddr() }
func (s *session) Close() error       { return s.ch.Close() }

// ready reports whether the session should be serviced this tick.
// With patience zero, input at or below threshold waits for more.
func (s *session) ready(threshold int, patience time.Duration, now time.Time) bool {
	avail := s.ch.Available()
	if avail <= s.carry {
		s.pendingSince = time.Time{}
		return false
	}
	if avail > threshold {
		return true
	}
	if patience <= 0 {
		return false
	}
	if s.pendingSince.IsZero() {
		s.pendingSince = now
		return false
	}
	return now.Sub(s.pendingSince) >= patience
}

// stranded reports whether only deferred negotiation bytes remain and
// the peer has gone, so the sequence can never complete.
func (s *session) stranded() bool {
	if s.carry == 0 || s.ch.Available() > s.carry {
		return false
	}
	e, ok := s.ch.(interface{ Err() error })
	return ok && e.Err() != nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
