package command

import (
	"fmt"
	"io"
)

// Help lists the registered commands, or describes one of them.
//
//	help         all names, in registration order
//	help NAME    the parameter help of NAME
var Help = HandlerFunc(func(req *Request, out io.Writer) bool {
	reg := req.Registry
	if reg == nil {
		return false
	}
	if len(req.Params) == 0 {
		fmt.Fprint(out, "\nAvailable commands:\n")
		for _, c := range reg.commands {
			fmt.Fprint(out, c.Name, "\t")
		}
		fmt.Fprint(out, "\n\n")
		return true
	}

	name := req.Params[0]
	c, ok := reg.Lookup(name)
	switch {
	case !ok:
		fmt.Fprintf(out, ">Command: %s: no such command\n", name)
	case c.Help == "":
		fmt.Fprintf(out, ">Command: %s: No help available\n", c.Name)
	default:
		fmt.Fprintf(out, ">Command: %s %s\n", c.Name, c.Help)
	}
	fmt.Fprintln(out)
	return true
})
