package core

import (
	"strings"

	"tinytelnet/internal/audit"
	"tinytelnet/internal/command"
	"tinytelnet/internal/commands/files"
	"tinytelnet/internal/commands/radio"
	"tinytelnet/internal/metrics"
	"tinytelnet/util"
)

// CommandSet selects the optional commands installed next to the
// builtins.
type CommandSet struct {
	Root     string   // files commands when set
	Stations []string // radio commands when non-empty
	AuditDB  string   // audit log and history command when set
	AuditMax int
	Version  string
}

// commandTarget is what both server kinds offer for registration.
type commandTarget interface {
	command.Registrar
	SetErrorHandler(h command.Handler)
}

// openAudit opens the audit store, or returns nil when none is
// configured.
func (c CommandSet) openAudit() (*audit.Store, error) {
	if c.AuditDB == "" {
		return nil, nil
	}
	return audit.Open(c.AuditDB, c.AuditMax)
}

// install registers the configured commands on t. With radioErrors the
// radio error marker replaces the unknown-command reply.
func (c CommandSet) install(t commandTarget, store *audit.Store, stats *metrics.Collector, log *util.Logger, radioErrors bool) {
	t.Handle("stats", stats.Command(), `: stats[("json")] - Server counters`)
	if store != nil {
		t.Handle("history", audit.History(store), `: history[("n")] - Recent commands`)
	}
	if c.Root != "" {
		files.New(c.Root).Register(t)
		log.Verbose("file commands rooted at %s", c.Root)
	}
	if len(c.Stations) > 0 {
		rd := radio.New(radio.NewPlaylist(c.Stations...), log)
		if c.Version != "" {
			rd.Version = c.Version
		}
		rd.Register(t)
		if radioErrors {
			t.SetErrorHandler(radio.ErrorHandler)
		}
		log.Verbose("radio commands with %d station(s)", len(c.Stations))
	}
}

func (c CommandSet) String() string {
	parts := []string{"help", "stats"}
	if c.AuditDB != "" {
		parts = append(parts, "history")
	}
	if c.Root != "" {
		parts = append(parts, "files("+c.Root+")")
	}
	if len(c.Stations) > 0 {
		parts = append(parts, "radio")
	}
	return strings.Join(parts, ", ")
}
