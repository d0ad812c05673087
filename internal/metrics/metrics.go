// Package metrics provides lock-free counters describing a running
// command server: sessions, traffic, and what the dispatcher did with
// each line.
//
// All methods are safe for concurrent use. A nil *Collector is a valid
// no-op receiver, so callers never need to nil-check.
package metrics

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
)

// Collector tracks runtime counters for one server process.
type Collector struct {
	sessionsActive   atomic.Int64
	sessionsTotal    atomic.Int64
	rejected         atomic.Int64
	bytesIn          atomic.Int64
	bytesOut         atomic.Int64
	lines            atomic.Int64
	negotiations     atomic.Int64
	commandsOK       atomic.Int64
	commandsFailed   atomic.Int64
	commandsUnknown  atomic.Int64
	parseErrors      atomic.Int64
	tunnelReconnects atomic.Int64
	errorsTotal      atomic.Int64

	mu              sync.RWMutex
	startTime       time.Time
	lastHealthCheck time.Time
	lastError       time.Time
	lastErrorMsg    string
}

// New creates a collector with the start time set to now.
func New() *Collector {
	return &Collector{startTime: time.Now()}
}

// ── Sessions ─────────────────────────────────────────────────────────

// SessionOpened increments the active and total session counters.
func (c *Collector) SessionOpened() {
	if c == nil {
		return
	}
	c.sessionsActive.Add(1)
	c.sessionsTotal.Add(1)
}

// SessionClosed decrements the active session counter.
func (c *Collector) SessionClosed() {
	if c == nil {
		return
	}
	c.sessionsActive.Add(-1)
}

// ConnectionRejected counts a connection refused by rate limiting.
func (c *Collector) ConnectionRejected() {
	if c == nil {
		return
	}
	c.rejected.Add(1)
}

// ActiveSessions returns the number of sessions currently connected.
func (c *Collector) ActiveSessions() int64 {
	if c == nil {
		return 0
	}
	return c.sessionsActive.Load()
}

// TotalSessions returns the lifetime session count.
func (c *Collector) TotalSessions() int64 {
	if c == nil {
		return 0
	}
	return c.sessionsTotal.Load()
}

// ── Traffic ──────────────────────────────────────────────────────────

// BytesReceived records n bytes read from a channel.
func (c *Collector) BytesReceived(n int64) {
	if c == nil {
		return
	}
	c.bytesIn.Add(n)
}

// BytesSent records n bytes written to a channel.
func (c *Collector) BytesSent(n int64) {
	if c == nil {
		return
	}
	c.bytesOut.Add(n)
}

// ── Dispatch ─────────────────────────────────────────────────────────

// LineRead counts one record taken from a session.
func (c *Collector) LineRead() {
	if c == nil {
		return
	}
	c.lines.Add(1)
}

// Negotiated counts n answered negotiation sequences.
func (c *Collector) Negotiated(n int) {
	if c == nil {
		return
	}
	c.negotiations.Add(int64(n))
}

// CommandDone counts a dispatched command by outcome. known is false
// when no handler was registered for the name.
func (c *Collector) CommandDone(known, ok bool) {
	if c == nil {
		return
	}
	switch {
	case !known:
		c.commandsUnknown.Add(1)
	case ok:
		c.commandsOK.Add(1)
	default:
		c.commandsFailed.Add(1)
	}
}

// ParseError counts a line the tokenizer rejected.
func (c *Collector) ParseError() {
	if c == nil {
		return
	}
	c.parseErrors.Add(1)
}

// ── Gateway ──────────────────────────────────────────────────────────

// TunnelReconnect records an SSH gateway reconnection.
func (c *Collector) TunnelReconnect() {
	if c == nil {
		return
	}
	c.tunnelReconnects.Add(1)
}

// RecordHealthCheck updates the last gateway keepalive time.
func (c *Collector) RecordHealthCheck() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.lastHealthCheck = time.Now()
	c.mu.Unlock()
}

// ── Errors ───────────────────────────────────────────────────────────

// RecordError increments the error counter and stores the message.
func (c *Collector) RecordError(msg string) {
	if c == nil {
		return
	}
	c.errorsTotal.Add(1)
	c.mu.Lock()
	c.lastError = time.Now()
	c.lastErrorMsg = msg
	c.mu.Unlock()
}

// ── Snapshot ─────────────────────────────────────────────────────────

// Snapshot is a point-in-time view of all counters.
type Snapshot struct {
	Uptime           string `json:"uptime"`
	SessionsActive   int64  `json:"sessions_active"`
	SessionsTotal    int64  `json:"sessions_total"`
	Rejected         int64  `json:"rejected"`
	BytesIn          int64  `json:"bytes_in"`
	BytesOut         int64  `json:"bytes_out"`
	Lines            int64  `json:"lines"`
	Negotiations     int64  `json:"negotiations"`
	CommandsOK       int64  `json:"commands_ok"`
	CommandsFailed   int64  `json:"commands_failed"`
	CommandsUnknown  int64  `json:"commands_unknown"`
	ParseErrors      int64  `json:"parse_errors"`
	TunnelReconnects int64  `json:"tunnel_reconnects"`
	ErrorsTotal      int64  `json:"errors_total"`
	LastHealthCheck  string `json:"last_health_check,omitempty"`
	LastError        string `json:"last_error,omitempty"`
	LastErrorMessage string `json:"last_error_message,omitempty"`
}

// Snapshot returns a copy of all current counters.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{
		Uptime:           time.Since(c.startTime).Truncate(time.Second).String(),
		SessionsActive:   c.sessionsActive.Load(),
		SessionsTotal:    c.sessionsTotal.Load(),
		Rejected:         c.rejected.Load(),
		BytesIn:          c.bytesIn.Load(),
		BytesOut:         c.bytesOut.Load(),
		Lines:            c.lines.Load(),
		Negotiations:     c.negotiations.Load(),
		CommandsOK:       c.commandsOK.Load(),
		CommandsFailed:   c.commandsFailed.Load(),
		CommandsUnknown:  c.commandsUnknown.Load(),
		ParseErrors:      c.parseErrors.Load(),
		TunnelReconnects: c.tunnelReconnects.Load(),
		ErrorsTotal:      c.errorsTotal.Load(),
	}
	if !c.lastHealthCheck.IsZero() {
		s.LastHealthCheck = c.lastHealthCheck.Format(time.RFC3339)
	}
	if !c.lastError.IsZero() {
		s.LastError = c.lastError.Format(time.RFC3339)
		s.LastErrorMessage = c.lastErrorMsg
	}
	return s
}

// JSON returns the snapshot as indented JSON.
func (c *Collector) JSON() string {
	data, _ := json.MarshalIndent(c.Snapshot(), "", "  ")
	return string(data)
}

// Summary renders the snapshot as a few human-readable lines.
func (s Snapshot) Summary() string {
	return fmt.Sprintf("uptime %s\nsessions %d active, %d total, %d rejected\n"+
		"traffic %s in, %s out\ncommands %s ok, %s failed, %s unknown, %s unparsable\n",
		s.Uptime, s.SessionsActive, s.SessionsTotal, s.Rejected,
		humanize.Bytes(uint64(s.BytesIn)), humanize.Bytes(uint64(s.BytesOut)),
		humanize.Comma(s.CommandsOK), humanize.Comma(s.CommandsFailed),
		humanize.Comma(s.CommandsUnknown), humanize.Comma(s.ParseErrors))
}
