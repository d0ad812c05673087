package metrics

import (
	"fmt"
	"io"
	"strings"

	"tinytelnet/internal/command"
)

// Command returns the "stats [json]" command, which prints the
// collector's snapshot.
func (c *Collector) Command() command.Handler {
	return command.HandlerFunc(func(req *command.Request, out io.Writer) bool {
		switch strings.ToLower(req.Param(0)) {
		case "":
			io.WriteString(out, c.Snapshot().Summary()) //nolint:errcheck
		case "json":
			fmt.Fprintln(out, c.JSON())
		default:
			fmt.Fprintf(out, "Usage: stats [json]\n")
			return false
		}
		return true
	})
}
