package audit

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"tinytelnet/internal/command"
)

// DefaultHistory is how many entries the history command prints
// without an argument.
const DefaultHistory = 10

// History returns the "history [n]" command, which prints the most
// recent entries of s, oldest first.
func History(s *Store) command.Handler {
	return command.HandlerFunc(func(req *command.Request, out io.Writer) bool {
		n := DefaultHistory
		if p := req.Param(0); p != "" {
			v, err := strconv.Atoi(p)
			if err != nil || v <= 0 {
				fmt.Fprintf(out, "history: invalid count '%s'\n", p)
				return false
			}
			n = v
		}
		ctx := req.Context
		if ctx == nil {
			ctx = context.Background()
		}
		entries, err := s.Recent(ctx, n)
		if err != nil {
			fmt.Fprintf(out, "history: %v\n", err)
			return false
		}
		for i := len(entries) - 1; i >= 0; i-- {
			e := entries[i]
			status := "ok"
			if !e.OK {
				status = "failed"
			}
			line := e.Command
			if len(e.Params) > 0 {
				line += " " + strings.Join(e.Params, " ")
			}
			fmt.Fprintf(out, "%s %-21s %-6s %s\n",
				e.Time.Local().Format("2006-01-02 15:04:05"), e.Remote, status, line)
		}
		return true
	})
}
