package command

import (
	"fmt"
	"io"
	"strings"
)

// Registry is an ordered, append-only table of commands. Names match
// case-insensitively and the first registration of a name wins.
//
// A Registry is not safe for concurrent mutation; register everything
// before serving.
type Registry struct {
	commands []Command
	onError  Handler
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Handle appends a command. help is an optional one-line parameter
// description shown by the help command. Duplicate names are kept but
// only the earliest is reachable.
func (r *Registry) Handle(name string, h Handler, help ...string) {
	r.commands = append(r.commands, Command{
		Name:    name,
		Help:    strings.Join(help, " "),
		Handler: h,
	})
}

// HandleFunc registers f under name.
func (r *Registry) HandleFunc(name string, f func(req *Request, out io.Writer) bool, help ...string) {
	r.Handle(name, HandlerFunc(f), help...)
}

// Lookup returns the first command registered under name.
func (r *Registry) Lookup(name string) (Command, bool) {
	for _, c := range r.commands {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return Command{}, false
}

// Commands returns the entries in registration order.
func (r *Registry) Commands() []Command {
	out := make([]Command, len(r.commands))
	copy(out, r.commands)
	return out
}

// Len returns the number of entries, duplicates included.
func (r *Registry) Len() int { return len(r.commands) }

// SetErrorHandler installs h for lines whose command is not registered.
// It receives the unmatched name and parameters. Nil restores the
// default message.
func (r *Registry) SetErrorHandler(h Handler) { r.onError = h }

// Dispatch runs the handler registered for req.Name and returns its
// result. Unknown commands go to the error handler, or get the default
// message, and report false.
func (r *Registry) Dispatch(req *Request, out io.Writer) bool {
	req.Registry = r
	if c, ok := r.Lookup(req.Name); ok {
		return c.Handler.ServeCommand(req, out)
	}
	if r.onError != nil {
		r.onError.ServeCommand(req, out)
		return false
	}
	fmt.Fprintf(out, "Invalid command: '%s' - type 'help' for a list of commands\n", req.Name)
	return false
}
