package server

import (
	"context"
	"time"

	"tinytelnet/internal/audit"
	"tinytelnet/internal/metrics"
	"tinytelnet/util"
)

// Defaults for Options fields left at zero.
const (
	DefaultMaxLineLength = 256
	DefaultIdleDelay     = 10 * time.Millisecond
	DefaultClientTimeout = 50 * time.Millisecond
	DefaultThreshold     = 3
)

// Auditor records dispatched commands. *audit.Store implements it.
type Auditor interface {
	Record(ctx context.Context, e audit.Entry) error
}

// Options tunes a server. The zero value is usable.
type Options struct {
	// MaxLineLength is the capacity of the line buffer; longer records
	// are truncated.
	MaxLineLength int
	// IdleDelay is how long Step yields when no session had input.
	IdleDelay time.Duration
	// ClientTimeout is the per-byte wait while reading a line.
	ClientTimeout time.Duration
	// Threshold is the number of buffered bytes a session must exceed
	// before it is serviced. Zero selects DefaultThreshold; a negative
	// value services any input at once.
	Threshold int
	// StaleAfter services input at or below Threshold once it has waited
	// this long. Zero leaves it buffered until more input arrives.
	StaleAfter time.Duration
	// RoundRobin resumes the session scan after the last serviced slot
	// instead of always starting at slot 0.
	RoundRobin bool
	// Welcome is sent after the linemode acknowledgment; "-" disables it.
	Welcome string

	Logger  *util.Logger
	Metrics *metrics.Collector
	Audit   Auditor
}

func (o Options) withDefaults() Options {
	if o.MaxLineLength <= 0 {
		o.MaxLineLength = DefaultMaxLineLength
	}
	if o.IdleDelay <= 0 {
		o.IdleDelay = DefaultIdleDelay
	}
	if o.ClientTimeout <= 0 {
		o.ClientTimeout = DefaultClientTimeout
	}
	if o.Threshold < 0 {
		o.Threshold = 0
	} else if o.Threshold == 0 {
		o.Threshold = DefaultThreshold
	}
	if o.Logger == nil {
		o.Logger = util.Discard()
	}
	return o
}

// idle waits d or until ctx is done.
func idle(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
