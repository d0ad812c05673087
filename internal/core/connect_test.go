package core

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"tinytelnet/internal/transport"
	"tinytelnet/util"
)

// TestConnectMode_EndToEnd drives a ServeMode from a ConnectMode.
func TestConnectMode_EndToEnd(t *testing.T) {
	srv := startServe(t, &ServeMode{Address: "127.0.0.1:0", Logger: util.Discard()})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out := &bytes.Buffer{}
	mode := &ConnectMode{
		Dialer:  &transport.TCPDialer{Timeout: 2 * time.Second},
		Address: srv.Addr(),
		Logger:  util.Discard(),
		Stdin:   strings.NewReader("help\nbye\n"),
		Stdout:  out,
	}
	if err := mode.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	got := out.String()
	if !strings.Contains(got, "Available commands:") || !strings.Contains(got, "Bye") {
		t.Errorf("output = %q", got)
	}
}

func TestConnectMode_Refused(t *testing.T) {
	port, err := util.FindFreePort()
	if err != nil {
		t.Fatal(err)
	}
	mode := &ConnectMode{
		Dialer:  &transport.TCPDialer{Timeout: time.Second},
		Address: util.FormatAddr("127.0.0.1", port),
		Logger:  util.Discard(),
		Stdin:   strings.NewReader(""),
		Stdout:  &bytes.Buffer{},
	}
	if err := mode.Run(context.Background()); err == nil {
		t.Error("expected error connecting to a closed port")
	}
}
