// Package server drives command sessions over byte channels. Server
// multiplexes many network sessions from one acceptor; Serial serves a
// single local channel. Both advance one step per call so they can be
// embedded in an existing loop.
package server

import (
	"context"
	"io"
	"time"
	"unicode"

	"tinytelnet/internal/command"
	"tinytelnet/internal/errors"
	"tinytelnet/internal/telnet"
	"tinytelnet/internal/transport"
	"tinytelnet/util"
)

// Server is a multi-session command server. Its command table and
// session slots are owned by the goroutine calling Step.
type Server struct {
	opts     Options
	acceptor transport.Acceptor
	engine   *telnet.Engine
	proc     *processor
	log      *util.Logger

	sessions   []*session
	cursor     int
	line       []byte
	lastActive int
	closed     bool
}

// New returns a server accepting from acc with the help and bye
// commands registered.
func New(acc transport.Acceptor, opts Options) *Server {
	opts = opts.withDefaults()
	s := &Server{
		opts:     opts,
		acceptor: acc,
		engine:   telnet.NewEngine(),
		log:      opts.Logger,
		line:     make([]byte, opts.MaxLineLength),
	}
	switch opts.Welcome {
	case "":
	case "-":
		s.engine.Welcome = ""
	default:
		s.engine.Welcome = opts.Welcome
	}
	s.engine.Observe = func(cmd, opt byte) {
		s.log.Debug("telnet cmd: %s %d", telnet.Name(cmd), opt)
	}
	s.proc = &processor{
		reg:   command.NewRegistry(),
		log:   opts.Logger,
		stats: opts.Metrics,
		audit: opts.Audit,
	}
	s.proc.reg.Handle("help", command.Help)
	s.proc.reg.Handle("bye", command.HandlerFunc(bye), ": (no parameters) - Closes the session")
	s.proc.reg.SetErrorHandler(command.HandlerFunc(s.undefined))
	return s
}

// Registry returns the command table.
func (s *Server) Registry() *command.Registry { return s.proc.reg }

// Handle registers a command.
func (s *Server) Handle(name string, h command.Handler, help ...string) {
	s.proc.reg.Handle(name, h, help...)
}

// HandleFunc registers a command function.
func (s *Server) HandleFunc(name string, f func(*command.Request, io.Writer) bool, help ...string) {
	s.proc.reg.HandleFunc(name, f, help...)
}

// SetErrorHandler replaces the handler for unknown commands.
func (s *Server) SetErrorHandler(h command.Handler) { s.proc.reg.SetErrorHandler(h) }

// SetValue sets the value passed to handlers in Request.Value.
func (s *Server) SetValue(v any) { s.proc.value = v }

// Value returns the value set with SetValue.
func (s *Server) Value() any { return s.proc.value }

// Addr describes where the acceptor listens.
func (s *Server) Addr() string { return s.acceptor.Addr() }

// Count returns the number of session slots, used or not.
func (s *Server) Count() int { return len(s.sessions) }

// CountActive returns the number of connected sessions.
func (s *Server) CountActive() int {
	n := 0
	for _, sess := range s.sessions {
		if sess.connected {
			n++
		}
	}
	return n
}

// Step accepts at most one new connection and services at most one
// session with pending input. It reports whether a session was
// serviced; when none was, it first waits the idle delay. Acceptor
// failures are returned.
func (s *Server) Step(ctx context.Context) (bool, error) {
	if s.closed {
		return false, errors.ErrServerClosed
	}
	if err := s.accept(); err != nil {
		return false, err
	}

	now := time.Now()
	n := len(s.sessions)
	start := 0
	if s.opts.RoundRobin && n > 0 {
		start = s.cursor % n
	}
	for k := 0; k < n; k++ {
		i := (start + k) % n
		sess := s.sessions[i]
		if !sess.connected {
			continue
		}
		if !sess.ch.Connected() || sess.stranded() {
			s.drop(sess)
			continue
		}
		if sess.ready(s.opts.Threshold, s.opts.StaleAfter, now) {
			s.cursor = i + 1
			s.serve(ctx, sess)
			s.logActive()
			return true, nil
		}
	}
	s.logActive()

	idle(ctx, s.opts.IdleDelay)
	return false, nil
}

// Run calls Step until ctx is done or the acceptor fails, then closes
// the server.
func (s *Server) Run(ctx context.Context) error {
	s.log.Info("command server listening on %s", s.acceptor.Addr())
	defer s.Close()
	for ctx.Err() == nil {
		if _, err := s.Step(ctx); err != nil {
			if errors.Is(err, errors.ErrServerClosed) {
				return nil
			}
			return err
		}
	}
	return nil
}

// Close disconnects every session and closes the acceptor.
func (s *Server) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	for _, sess := range s.sessions {
		if sess.connected {
			s.drop(sess)
		}
	}
	s.sessions = nil
	return s.acceptor.Close()
}

func (s *Server) accept() error {
	ch, err := s.acceptor.Accept()
	if err != nil || ch == nil {
		return err
	}
	ch.SetTimeout(s.opts.ClientTimeout)
	sess := newSession(ch, s.log)
	s.opts.Metrics.SessionOpened()

	for i, old := range s.sessions {
		if !old.connected {
			s.sessions[i] = sess
			sess.log.Info("new client connected from %s (slot %d)", ch.RemoteAddr(), i)
			return nil
		}
	}
	s.sessions = append(s.sessions, sess)
	sess.log.Info("new client connected from %s (slot %d)", ch.RemoteAddr(), len(s.sessions)-1)
	return nil
}

// drop marks a session disconnected and releases its channel. The
// slot stays for reuse.
func (s *Server) drop(sess *session) {
	sess.connected = false
	sess.ch.Close()
	s.opts.Metrics.SessionClosed()
	sess.log.Info("disconnected after %s", time.Since(sess.opened).Truncate(time.Second))
}

func (s *Server) logActive() {
	if n := s.CountActive(); n != s.lastActive {
		s.lastActive = n
		s.log.Info("active clients: %d", n)
	}
}

// serve reads one record from sess, answers leading negotiation and
// dispatches whatever text remains.
func (s *Server) serve(ctx context.Context, sess *session) {
	sess.pendingSince = time.Time{}
	sess.log.Debug("available: %d bytes", sess.ch.Available())

	n, eol := transport.ReadLine(sess.ch, s.line)
	s.opts.Metrics.LineRead()
	rec := s.line[:n]

	res, err := s.engine.Process(rec, sess.ch)
	if err != nil {
		sess.log.Warn("negotiation reply failed: %v", err)
		s.drop(sess)
		return
	}
	s.opts.Metrics.Negotiated(res.Sequences)

	if res.Incomplete {
		rest := rec[res.Consumed:]
		sess.carry = 0
		if eol || n == len(s.line) {
			// The record ended; the sequence cannot complete.
			sess.log.Warn("discarding %d bytes: %v", len(rest), errors.ErrIncompleteSequence)
			return
		}
		pushback := append([]byte(nil), rest...)
		sess.ch.Unread(pushback)
		sess.carry = len(pushback)
		sess.log.Debug("deferring %d bytes of partial negotiation", len(pushback))
		return
	}
	sess.carry = 0
	if res.Consumed == n {
		return
	}

	text := string(rec[res.Consumed:])
	s.proc.execute(ctx, sess, text, util.NewCRLFWriter(sess.ch))
}

// undefined answers commands with no handler. Text that does not start
// with a letter is usually negotiation that arrived mid-line; it is
// answered and logged rather than reported to the user.
func (s *Server) undefined(req *command.Request, out io.Writer) bool {
	name := req.Name
	if name != "" && unicode.IsLetter([]rune(name)[0]) {
		io.WriteString(out, "Invalid command: '"+name+"' - type 'help' for a list of commands\n") //nolint:errcheck
		s.log.Warn("invalid command: '%s'", name)
		return false
	}
	raw := out
	if sess, ok := req.Session.(*session); ok {
		raw = sess.ch
	}
	res, _ := s.engine.Process([]byte(name), raw)
	s.log.Warn("not processed: %q", name[res.Consumed:])
	return false
}

// bye says goodbye and closes the calling session.
func bye(req *command.Request, out io.Writer) bool {
	io.WriteString(out, "Bye\n") //nolint:errcheck
	if req.Session != nil {
		req.Session.Close()
	}
	return true
}
