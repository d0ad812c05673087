package audit

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"tinytelnet/internal/command"
)

func openTestStore(t *testing.T, max int) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "audit.db"), max)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_RecordAndRecent(t *testing.T) {
	s := openTestStore(t, 0)
	ctx := context.Background()
	t0 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	entries := []Entry{
		{Time: t0, Session: "a", Remote: "10.0.0.2:5000", Command: "cli.play", Params: []string{"3"}, OK: true},
		{Time: t0.Add(time.Second), Session: "a", Remote: "10.0.0.2:5000", Command: "nosuch", OK: false},
		{Time: t0.Add(2 * time.Second), Session: "b", Remote: "10.0.0.3:5001", Command: "write", Params: []string{"f.txt", "hello world"}, OK: true},
	}
	for _, e := range entries {
		if err := s.Record(ctx, e); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	got, err := s.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d entries, want 2", len(got))
	}
	if got[0].Command != "write" || got[1].Command != "nosuch" {
		t.Errorf("wrong order: %q, %q", got[0].Command, got[1].Command)
	}
	if got[0].Params[1] != "hello world" {
		t.Errorf("params = %q", got[0].Params)
	}
	if !got[0].Time.Equal(t0.Add(2 * time.Second)) {
		t.Errorf("time = %v", got[0].Time)
	}
	if got[1].OK || len(got[1].Params) != 0 {
		t.Errorf("unexpected entry %+v", got[1])
	}
}

func TestStore_Prune(t *testing.T) {
	s := openTestStore(t, 3)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if err := s.Record(ctx, Entry{Time: time.Now(), Command: "c" + string(rune('0'+i))}); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	n, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 3 {
		t.Errorf("Count = %d, want 3", n)
	}
	got, _ := s.Recent(ctx, 0)
	if len(got) != 3 || got[2].Command != "c2" {
		t.Errorf("oldest kept should be c2, got %+v", got)
	}
}

func TestStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.db")
	s, err := Open(path, 0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	s.Record(context.Background(), Entry{Time: time.Now(), Command: "help", OK: true})
	s.Close()

	s, err = Open(path, 0)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	if n, _ := s.Count(context.Background()); n != 1 {
		t.Errorf("Count after reopen = %d, want 1", n)
	}
}

func TestHistory(t *testing.T) {
	s := openTestStore(t, 0)
	ctx := context.Background()
	s.Record(ctx, Entry{Time: time.Now(), Remote: "r", Command: "ls", OK: true})
	s.Record(ctx, Entry{Time: time.Now(), Remote: "r", Command: "cat", Params: []string{"a.txt"}, OK: false})

	reg := command.NewRegistry()
	reg.Handle("history", History(s))

	tests := []struct {
		name   string
		params []string
		ok     bool
		want   []string
	}{
		{"all", nil, true, []string{"ls", "cat a.txt"}},
		{"last one", []string{"1"}, true, []string{"cat a.txt"}},
		{"bad count", []string{"x"}, false, []string{"invalid count 'x'"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			ok := reg.Dispatch(&command.Request{Context: ctx, Name: "history", Params: tt.params}, &out)
			if ok != tt.ok {
				t.Errorf("ok = %v, want %v", ok, tt.ok)
			}
			for _, w := range tt.want {
				if !strings.Contains(out.String(), w) {
					t.Errorf("output %q missing %q", out.String(), w)
				}
			}
		})
	}

	var out bytes.Buffer
	reg.Dispatch(&command.Request{Context: ctx, Name: "history"}, &out)
	if strings.Index(out.String(), "ls") > strings.Index(out.String(), "cat") {
		t.Errorf("history should print oldest first: %q", out.String())
	}
}
