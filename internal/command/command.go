// Package command holds the command table of a session server: the
// line tokenizer, the ordered registry of named handlers and the
// dispatcher that routes a parsed line to its handler.
package command

import (
	"context"
	"io"
)

// Session is the view of a connected channel a handler may use.
type Session interface {
	ID() string
	RemoteAddr() string
	Close() error
}

// Request carries one parsed command to its handler.
type Request struct {
	Context  context.Context
	Name     string   // command name as typed
	Params   []string // parameters in order, quotes removed
	Session  Session  // nil when dispatched outside a session
	Registry *Registry
	Value    any // opaque value set by the owning server
}

// Param returns the i-th parameter, or "" when there are fewer.
func (r *Request) Param(i int) string {
	if i < 0 || i >= len(r.Params) {
		return ""
	}
	return r.Params[i]
}

// Handler answers a command by writing to out. The result reports
// success; output written is final either way.
type Handler interface {
	ServeCommand(req *Request, out io.Writer) bool
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(req *Request, out io.Writer) bool

// ServeCommand calls f(req, out).
func (f HandlerFunc) ServeCommand(req *Request, out io.Writer) bool {
	return f(req, out)
}

// Command is one registry entry.
type Command struct {
	Name    string
	Help    string
	Handler Handler
}

// Registrar is anything commands can be registered with: a Registry or
// a server that owns one.
type Registrar interface {
	Handle(name string, h Handler, help ...string)
}
