package server

import (
	"context"
	"io"
	"time"

	"tinytelnet/internal/audit"
	"tinytelnet/internal/command"
	"tinytelnet/internal/metrics"
	"tinytelnet/util"
)

// processor turns text lines into dispatched commands. The network and
// serial servers share it.
type processor struct {
	reg   *command.Registry
	log   *util.Logger
	stats *metrics.Collector
	audit Auditor
	value any
}

// execute tokenizes text and dispatches it on behalf of sess, writing
// the handler's output to out. Unparsable and empty lines are dropped.
func (p *processor) execute(ctx context.Context, sess command.Session, text string, out io.Writer) bool {
	line, err := command.Parse(text)
	if err != nil {
		p.log.Debug("discarding line: %v", err)
		p.stats.ParseError()
		return false
	}
	if line.Empty() {
		return false
	}

	p.log.Verbose("command: %q %q", line.Command, line.Params)
	_, known := p.reg.Lookup(line.Command)
	req := &command.Request{
		Context: ctx,
		Name:    line.Command,
		Params:  line.Params,
		Session: sess,
		Value:   p.value,
	}
	ok := p.reg.Dispatch(req, out)
	p.stats.CommandDone(known, ok)
	p.record(ctx, sess, line, ok)
	return ok
}

func (p *processor) record(ctx context.Context, sess command.Session, line command.Line, ok bool) {
	if p.audit == nil {
		return
	}
	e := audit.Entry{
		Time:    time.Now(),
		Command: line.Command,
		Params:  line.Params,
		OK:      ok,
	}
	if sess != nil {
		e.Session = sess.ID()
		e.Remote = sess.RemoteAddr()
	}
	if err := p.audit.Record(ctx, e); err != nil {
		p.log.Warn("audit: %v", err)
	}
}
