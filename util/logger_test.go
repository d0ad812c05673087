package util

import (
	"bytes"
	"strings"
	"testing"
)

func TestLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(3)
	l.SetOutput(&buf)
	l.SetTimestamps(false)

	l.Error("e")
	l.Warn("w")
	l.Info("i")
	l.Verbose("v")
	l.Debug("d")

	output := buf.String()
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected 5 lines, got %d:\n%s", len(lines), output)
	}

	wantPrefixes := []string{"[ERR]", "[WRN]", "[INF]", "[VRB]", "[DBG]"}
	for i, prefix := range wantPrefixes {
		if !strings.HasPrefix(lines[i], prefix) {
			t.Errorf("line %d %q missing prefix %q", i, lines[i], prefix)
		}
	}
}

func TestLogger_QuietMode(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(0)
	l.SetOutput(&buf)

	l.Info("should not appear")
	l.Verbose("should not appear")
	l.Debug("should not appear")
	l.Error("always appears")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Errorf("expected 1 line in quiet mode, got %d:\n%s", len(lines), buf.String())
	}
}

func TestLogger_Timestamps(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(1)
	l.SetOutput(&buf)
	l.SetTimestamps(true)

	l.Info("test")

	// "HH:MM:SS.mmm [INF] test"
	if out := buf.String(); !strings.Contains(out, ":") || len(out) < 15 {
		t.Errorf("expected timestamp prefix, got %q", out)
	}
}

func TestLogger_With(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(1)
	l.SetOutput(&buf)

	l.With("session").With("ab12").Info("connected from %s", "10.0.0.2:5000")

	want := "[INF] session ab12: connected from 10.0.0.2:5000\n"
	if got := buf.String(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestDiscard(t *testing.T) {
	l := Discard()
	l.Error("nowhere")
	if l.Level() != LogQuiet {
		t.Errorf("level = %d, want quiet", l.Level())
	}
}

func TestChunkPool(t *testing.T) {
	buf := GetChunk()
	if buf == nil {
		t.Fatal("GetChunk returned nil")
	}
	if len(*buf) != ChunkSize {
		t.Errorf("buffer size = %d, want %d", len(*buf), ChunkSize)
	}
	PutChunk(buf)
	PutChunk(nil) // must not panic
}
