package metrics

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"tinytelnet/internal/command"
)

func TestCollector_Sessions(t *testing.T) {
	c := New()
	c.SessionOpened()
	c.SessionOpened()
	c.SessionClosed()
	c.ConnectionRejected()

	if c.ActiveSessions() != 1 {
		t.Errorf("active = %d, want 1", c.ActiveSessions())
	}
	if c.TotalSessions() != 2 {
		t.Errorf("total = %d, want 2", c.TotalSessions())
	}
	if s := c.Snapshot(); s.Rejected != 1 {
		t.Errorf("rejected = %d, want 1", s.Rejected)
	}
}

func TestCollector_CommandOutcomes(t *testing.T) {
	c := New()
	c.CommandDone(true, true)
	c.CommandDone(true, true)
	c.CommandDone(true, false)
	c.CommandDone(false, false)
	c.ParseError()
	c.LineRead()
	c.Negotiated(4)

	s := c.Snapshot()
	if s.CommandsOK != 2 || s.CommandsFailed != 1 || s.CommandsUnknown != 1 {
		t.Errorf("ok/failed/unknown = %d/%d/%d, want 2/1/1",
			s.CommandsOK, s.CommandsFailed, s.CommandsUnknown)
	}
	if s.ParseErrors != 1 || s.Lines != 1 || s.Negotiations != 4 {
		t.Errorf("unexpected snapshot %+v", s)
	}
}

func TestCollector_Errors(t *testing.T) {
	c := New()
	c.RecordError("first")
	c.RecordError("second")

	s := c.Snapshot()
	if s.ErrorsTotal != 2 {
		t.Errorf("errors = %d, want 2", s.ErrorsTotal)
	}
	if s.LastErrorMessage != "second" || s.LastError == "" {
		t.Errorf("last error = %q at %q", s.LastErrorMessage, s.LastError)
	}
}

func TestCollector_NilSafe(t *testing.T) {
	var c *Collector
	c.SessionOpened()
	c.SessionClosed()
	c.ConnectionRejected()
	c.BytesReceived(1)
	c.BytesSent(1)
	c.LineRead()
	c.Negotiated(1)
	c.CommandDone(true, true)
	c.ParseError()
	c.TunnelReconnect()
	c.RecordHealthCheck()
	c.RecordError("x")
	if c.ActiveSessions() != 0 || c.TotalSessions() != 0 {
		t.Error("nil collector should report zero")
	}
	if s := c.Snapshot(); s != (Snapshot{}) {
		t.Errorf("nil snapshot = %+v", s)
	}
}

func TestCollector_JSON(t *testing.T) {
	c := New()
	c.BytesReceived(10)
	c.BytesSent(20)
	c.RecordHealthCheck()

	var s Snapshot
	if err := json.Unmarshal([]byte(c.JSON()), &s); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if s.BytesIn != 10 || s.BytesOut != 20 || s.LastHealthCheck == "" {
		t.Errorf("decoded %+v", s)
	}
}

func TestSnapshot_Summary(t *testing.T) {
	s := Snapshot{
		Uptime:         "1m0s",
		SessionsActive: 1,
		SessionsTotal:  3,
		BytesIn:        2048,
		CommandsOK:     1500,
	}
	out := s.Summary()
	for _, want := range []string{"uptime 1m0s", "1 active, 3 total", "2.0 kB in", "1,500 ok"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestCollector_Command(t *testing.T) {
	c := New()
	c.SessionOpened()
	reg := command.NewRegistry()
	reg.Handle("stats", c.Command())

	tests := []struct {
		params []string
		ok     bool
		want   string
	}{
		{nil, true, "sessions 1 active, 1 total, 0 rejected"},
		{[]string{"JSON"}, true, `"sessions_active": 1`},
		{[]string{"xml"}, false, "Usage: stats [json]"},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		ok := reg.Dispatch(&command.Request{Name: "stats", Params: tt.params}, &out)
		if ok != tt.ok || !strings.Contains(out.String(), tt.want) {
			t.Errorf("stats %v = %v %q, want %v containing %q", tt.params, ok, out.String(), tt.ok, tt.want)
		}
	}
}
