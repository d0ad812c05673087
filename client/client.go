// Package client is a minimal interactive front end for a command
// server: it sends typed lines and prints replies. The telnet layer
// refuses every option the server offers and hides the negotiation.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"

	"github.com/ziutek/telnet"

	"tinytelnet/internal/transport"
	"tinytelnet/util"
)

// Client talks to one command server.
type Client struct {
	Dialer  transport.Dialer
	Network string // "tcp" when empty
	Address string
	Logger  *util.Logger

	// Stdin/Stdout default to os.Stdin/os.Stdout when nil. Line editing
	// is only enabled when Stdin is a terminal.
	Stdin  io.Reader
	Stdout io.Writer
}

func (c *Client) stdin() io.Reader {
	if c.Stdin != nil {
		return c.Stdin
	}
	return os.Stdin
}

func (c *Client) stdout() io.Writer {
	if c.Stdout != nil {
		return c.Stdout
	}
	return os.Stdout
}

// Run dials the server and relays lines until the server hangs up,
// input ends or ctx is cancelled.
func (c *Client) Run(ctx context.Context) error {
	defer c.Dialer.Close()
	network := c.Network
	if network == "" {
		network = "tcp"
	}

	c.Logger.Verbose("connecting to %s", c.Address)
	conn, err := c.Dialer.Dial(ctx, network, c.Address)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", c.Address, err)
	}
	defer conn.Close()
	c.Logger.Verbose("connected to %s", conn.RemoteAddr())

	tc, err := telnet.NewConn(conn)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", c.Address, err)
	}
	tc.SetUnixWriteMode(true)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	var readErr error
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		defer cancel()
		_, readErr = io.Copy(c.stdout(), tc)
	}()

	in := newLineSource(c.stdin())
	defer in.Close()
	sendDone := make(chan error, 1)
	go func() { sendDone <- c.send(ctx, tc, in) }()

	var sendErr error
	select {
	case sendErr = <-sendDone:
		if sendErr == nil && ctx.Err() == nil {
			// Input is exhausted; let the server finish answering.
			if cw, ok := conn.(interface{ CloseWrite() error }); ok {
				cw.CloseWrite() //nolint:errcheck
			} else {
				conn.Close()
			}
		}
		<-readDone
	case <-readDone:
		c.Logger.Verbose("connection closed by server")
	}

	switch {
	case sendErr != nil && !util.IsHarmless(sendErr):
		return sendErr
	case readErr != nil && !util.IsHarmless(readErr) && !errors.Is(readErr, net.ErrClosed):
		return readErr
	}
	return nil
}

// send writes each input line to w; w turns LF into CRLF.
func (c *Client) send(ctx context.Context, w io.Writer, in lineSource) error {
	for ctx.Err() == nil {
		line, err := in.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if _, err := io.WriteString(w, line+"\n"); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("send: %w", err)
		}
	}
	return nil
}
