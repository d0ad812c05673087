package server

import (
	"context"
	"io"

	"tinytelnet/internal/command"
	"tinytelnet/internal/errors"
	"tinytelnet/internal/transport"
	"tinytelnet/util"
)

// Serial serves commands on a single local channel such as a UART or
// the process console. There is no negotiation on a serial link.
type Serial struct {
	opts   Options
	ch     transport.Channel
	proc   *processor
	log    *util.Logger
	line   []byte
	closed bool
}

// NewSerial returns a serial server on ch with the help command
// registered.
func NewSerial(ch transport.Channel, opts Options) *Serial {
	opts = opts.withDefaults()
	ch.SetTimeout(opts.ClientTimeout)
	s := &Serial{
		opts: opts,
		ch:   ch,
		log:  opts.Logger.With("serial"),
		line: make([]byte, opts.MaxLineLength),
	}
	s.proc = &processor{
		reg:   command.NewRegistry(),
		log:   s.log,
		stats: opts.Metrics,
		audit: opts.Audit,
	}
	s.proc.reg.Handle("help", command.Help)
	return s
}

// Registry returns the command table.
func (s *Serial) Registry() *command.Registry { return s.proc.reg }

// Handle registers a command.
func (s *Serial) Handle(name string, h command.Handler, help ...string) {
	s.proc.reg.Handle(name, h, help...)
}

// HandleFunc registers a command function.
func (s *Serial) HandleFunc(name string, f func(*command.Request, io.Writer) bool, help ...string) {
	s.proc.reg.HandleFunc(name, f, help...)
}

// SetErrorHandler replaces the handler for unknown commands.
func (s *Serial) SetErrorHandler(h command.Handler) { s.proc.reg.SetErrorHandler(h) }

// SetValue sets the value passed to handlers in Request.Value.
func (s *Serial) SetValue(v any) { s.proc.value = v }

// Value returns the value set with SetValue.
func (s *Serial) Value() any { return s.proc.value }

// Step reads and dispatches one line if any input is waiting. It
// reports whether a line was processed; when none was, it first waits
// the idle delay. A lost channel is reported as ErrNotConnected.
func (s *Serial) Step(ctx context.Context) (bool, error) {
	if s.closed {
		return false, errors.ErrServerClosed
	}
	if s.ch.Available() == 0 {
		if !s.ch.Connected() {
			return false, errors.ErrNotConnected
		}
		idle(ctx, s.opts.IdleDelay)
		return false, nil
	}

	n, _ := transport.ReadLine(s.ch, s.line)
	s.opts.Metrics.LineRead()
	if n == 0 {
		return true, nil
	}
	s.proc.execute(ctx, s.ch, string(s.line[:n]), util.NewCRLFWriter(s.ch))
	return true, nil
}

// Run calls Step until ctx is done or the channel is lost, then closes
// the channel.
func (s *Serial) Run(ctx context.Context) error {
	s.log.Info("serving commands on %s", s.ch.RemoteAddr())
	defer s.Close()
	for ctx.Err() == nil {
		if _, err := s.Step(ctx); err != nil {
			if errors.Is(err, errors.ErrNotConnected) {
				s.log.Info("link closed")
				return nil
			}
			return err
		}
	}
	return nil
}

// Close closes the channel.
func (s *Serial) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.ch.Close()
}
