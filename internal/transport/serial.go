package transport

import (
	"io"
	"os"

	"golang.org/x/term"

	"tinytelnet/internal/errors"
)

// serialPort is a character device opened for command traffic. When it
// is a terminal it is switched to raw mode and restored on Close.
type serialPort struct {
	f       *os.File
	restore *term.State
}

func (p *serialPort) Read(b []byte) (int, error)  { return p.f.Read(b) }
func (p *serialPort) Write(b []byte) (int, error) { return p.f.Write(b) }

func (p *serialPort) Close() error {
	if p.restore != nil {
		term.Restore(int(p.f.Fd()), p.restore) //nolint:errcheck
	}
	return p.f.Close()
}

// OpenSerial opens a serial device (or any readable and writable file)
// as a Channel. A baud of 0 leaves the line speed unchanged.
func OpenSerial(path string, baud int, opts ...StreamOption) (*Stream, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, errors.Wrap("open", path, err)
	}
	port := &serialPort{f: f}
	fd := int(f.Fd())
	if term.IsTerminal(fd) {
		state, err := term.MakeRaw(fd)
		if err != nil {
			f.Close()
			return nil, errors.Wrap("raw mode", path, err)
		}
		port.restore = state
		if baud > 0 {
			if err := setBaud(fd, baud); err != nil {
				port.Close()
				return nil, errors.Wrap("set baud", path, err)
			}
		}
	}
	return NewStream(port, path, opts...), nil
}

// consolePort joins stdin and stdout. Closing it leaves both open.
type consolePort struct {
	in  io.Reader
	out io.Writer
}

func (c consolePort) Read(b []byte) (int, error)  { return c.in.Read(b) }
func (c consolePort) Write(b []byte) (int, error) { return c.out.Write(b) }
func (c consolePort) Close() error                { return nil }

// Console returns a Channel over the process's standard input and
// output, for driving the command table from a local terminal.
func Console(in io.Reader, out io.Writer, opts ...StreamOption) *Stream {
	return NewStream(consolePort{in: in, out: out}, "console", opts...)
}
