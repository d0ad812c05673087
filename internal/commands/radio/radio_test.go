package radio

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"tinytelnet/internal/command"
)

var stations = []string{
	"http://stream.example.com:8000/jazz.mp3",
	"https://radio.example.org/live",
	"/music/album/track01.mp3",
}

func setup() (*Radio, *Playlist, *command.Registry) {
	pl := NewPlaylist(stations...)
	rd := New(pl, nil)
	reg := command.NewRegistry()
	rd.Register(reg)
	reg.SetErrorHandler(ErrorHandler)
	return rd, pl, reg
}

func run(t *testing.T, reg *command.Registry, line string) string {
	t.Helper()
	l, err := command.Parse(line)
	if err != nil {
		t.Fatalf("Parse(%q): %v", line, err)
	}
	var out bytes.Buffer
	reg.Dispatch(&command.Request{Context: context.Background(), Name: l.Command, Params: l.Params}, &out)
	return out.String()
}

func TestPlay(t *testing.T) {
	_, pl, reg := setup()

	got := run(t, reg, `cli.play("0")`)
	want := "\n##CLI.URLSET#: http://stream.example.com:8000/jazz.mp3\n" +
		"##CLI.PORTSET#: 8000\n" +
		"##CLI.PATHSET#: \n" +
		"##CLI.VOL#:127\n" +
		"##CLI.PLAYING#\n"
	if got != want {
		t.Errorf("got:\n%q\nwant:\n%q", got, want)
	}
	if !pl.Active() {
		t.Error("player should be active")
	}

	got = run(t, reg, "cli.play 2")
	if !strings.Contains(got, "##CLI.PATHSET#: /music/album/track01.mp3\n") ||
		!strings.Contains(got, "##CLI.PORTSET#: 0\n") {
		t.Errorf("local source not reported as path: %q", got)
	}
}

func TestStop(t *testing.T) {
	_, pl, reg := setup()
	run(t, reg, "cli.start")
	if got := run(t, reg, "cli.stop"); got != "\n##CLI.STOPPED#\n" {
		t.Errorf("got %q", got)
	}
	if pl.Active() {
		t.Error("player should be stopped")
	}
	if got := run(t, reg, "cli.info"); !strings.HasSuffix(got, "CLI.STOPPED\n") {
		t.Errorf("info while stopped: %q", got)
	}
}

func TestVolume(t *testing.T) {
	_, _, reg := setup()
	tests := []struct {
		line string
		want string
	}{
		{"cli.vol", "\n##CLI.VOL#:127\n"},
		{`cli.vol("200")`, "\n##CLI.VOL#:200\n"},
		{"cli.vol 999", "\n##CLI.VOL#:254\n"},
		{"cli.vol -5", "\n##CLI.VOL#:0\n"},
		{"cli.vol+", "\n##CLI.VOL#:13\n"},
		{"cli.vol-", "\n##CLI.VOL#:0\n"},
		{"cli.vol-", "\n##CLI.VOL#:0\n"},
	}
	for _, tt := range tests {
		if got := run(t, reg, tt.line); got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.line, got, tt.want)
		}
	}
}

func TestList(t *testing.T) {
	rd, _, reg := setup()

	got := run(t, reg, "cli.list")
	want := "\n##CLI.LIST#\n" +
		"#CLI.LISTINFO#: 1, jazz, http://stream.example.com:8000/jazz.mp3\n" +
		"#CLI.LISTINFO#: 2, live, https://radio.example.org/live\n" +
		"#CLI.LISTINFO#: 3, track01, /music/album/track01.mp3\n" +
		"##CLI.LIST#\n\n"
	if got != want {
		t.Errorf("got:\n%q\nwant:\n%q", got, want)
	}

	got = run(t, reg, `cli.list("2")`)
	if !strings.Contains(got, "#CLI.LISTINFO#: 2, live,") || strings.Contains(got, "LISTINFO#: 1,") {
		t.Errorf("single item: %q", got)
	}

	rd.MaxListed = 1
	got = run(t, reg, "cli.list")
	if strings.Count(got, "LISTINFO") != 1 {
		t.Errorf("MaxListed ignored: %q", got)
	}
}

func TestNextPrev(t *testing.T) {
	_, pl, reg := setup()
	run(t, reg, "cli.next")
	if pl.Index() != 1 {
		t.Errorf("after next: index %d, want 1", pl.Index())
	}
	run(t, reg, "cli.prev")
	run(t, reg, "cli.prev")
	if pl.Index() != 2 {
		t.Errorf("prev should wrap: index %d, want 2", pl.Index())
	}
	if got := run(t, reg, "cli.info"); !strings.Contains(got, "##CLI.PORTSET#: 0") {
		t.Errorf("info: %q", got)
	}
}

func TestSys(t *testing.T) {
	rd, _, reg := setup()
	if got := run(t, reg, "sys.version"); got != "\n"+DefaultVersion+"\n" {
		t.Errorf("version: %q", got)
	}
	if got := run(t, reg, "sys.boot"); !strings.Contains(got, "not supported") {
		t.Errorf("boot without callback: %q", got)
	}

	booted := false
	rd.Reboot = func() error { booted = true; return nil }
	run(t, reg, "sys.boot")
	if !booted {
		t.Error("reboot callback not called")
	}

	rd.Reboot = func() error { return errors.New("denied") }
	if got := run(t, reg, "sys.boot"); !strings.Contains(got, "sys.boot: denied") {
		t.Errorf("failed boot: %q", got)
	}
}

func TestErrorHandler(t *testing.T) {
	_, _, reg := setup()
	if got := run(t, reg, "cli.bogus 1"); got != "##CMD_ERROR#\n" {
		t.Errorf("got %q", got)
	}
}

func TestStationKey(t *testing.T) {
	tests := map[string]string{
		"/music/a.mp3":          "a",
		"http://h/stream":       "stream",
		"plain":                 "plain",
		"/music/dir.d/noext":    "noext",
		"/music/archive.tar.gz": "archive.tar",
	}
	for in, want := range tests {
		if got := stationKey(in); got != want {
			t.Errorf("stationKey(%q) = %q, want %q", in, got, want)
		}
	}
}
