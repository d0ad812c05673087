// Package telnet answers the minimal subset of telnet option negotiation
// a client performs before it settles into a raw line channel.
//
// The engine is stateless: each call scans a leading run of IAC
// sequences in a freshly read record, writes the policy's replies and
// reports where the user text begins.
package telnet

import (
	"bytes"
	"fmt"
	"io"
)

// Command bytes.
const (
	IAC  byte = 255 // interpret as command
	DONT byte = 254
	DO   byte = 253
	WONT byte = 252
	WILL byte = 251
	SB   byte = 250 // subnegotiation begin
	SE   byte = 240 // subnegotiation end
)

// Option bytes the default policy treats specially.
const (
	OptSuppressGA byte = 3
	OptStatus     byte = 5
	OptLinemode   byte = 34
)

// Linemode subnegotiation values used in the edit-mode acknowledgment.
const (
	lmMode     byte = 1
	lmModeEdit byte = 1
)

// DefaultWelcome is written after the linemode acknowledgment.
const DefaultWelcome = "> Welcome to TinyTelnetServer"

// ackLinemode confirms MODE EDIT, the only linemode the server supports.
var ackLinemode = []byte{IAC, SB, OptLinemode, lmMode, lmModeEdit, IAC, SE}

// iacSE ends a subnegotiation. A lone SE byte is data.
var iacSE = []byte{IAC, SE}

// Policy decides how DO and WILL requests are answered.
type Policy struct {
	// Refuse lists options answered WONT to a DO request; every other
	// DO is confirmed with WILL.
	Refuse map[byte]bool
	// Accept lists options answered DO to a WILL offer; every other WILL
	// is declined with DONT.
	Accept map[byte]bool
}

// DefaultPolicy agrees to do anything except report STATUS, and only
// lets the peer suppress go-ahead and enter linemode.
func DefaultPolicy() Policy {
	return Policy{
		Refuse: map[byte]bool{OptStatus: true},
		Accept: map[byte]bool{OptSuppressGA: true, OptLinemode: true},
	}
}

// Reply returns the 3-byte answer to a DO or WILL request, or nil when
// the command warrants no reply.
func (p Policy) Reply(cmd, opt byte) []byte {
	switch cmd {
	case DO:
		if p.Refuse[opt] {
			return []byte{IAC, WONT, opt}
		}
		return []byte{IAC, WILL, opt}
	case WILL:
		if p.Accept[opt] {
			return []byte{IAC, DO, opt}
		}
		return []byte{IAC, DONT, opt}
	}
	return nil
}

// Result describes one scan.
type Result struct {
	// Consumed is the offset of the first byte of user text. It equals
	// len(buf) when the record held negotiation only.
	Consumed int
	// Sequences counts the IAC sequences recognised.
	Sequences int
	// Incomplete is set when the scan stopped at a sequence that does
	// not fit in buf; buf[Consumed:] starts with IAC and should be
	// retried once more bytes arrive.
	Incomplete bool
}

// Engine applies a Policy to inbound records.
type Engine struct {
	Policy  Policy
	Welcome string // sent after the linemode acknowledgment; empty for none

	// Observe, when set, is called for each recognised sequence.
	Observe func(cmd, opt byte)
}

// NewEngine returns an engine with the default policy and welcome line.
func NewEngine() *Engine {
	return &Engine{Policy: DefaultPolicy(), Welcome: DefaultWelcome}
}

// Process consumes the leading run of IAC sequences in buf, writing any
// replies to w. Scanning never reads past len(buf). Write errors are
// returned alongside the partial result; the caller usually treats them
// as a lost session.
func (e *Engine) Process(buf []byte, w io.Writer) (Result, error) {
	var res Result
	i := 0
	for i < len(buf) && buf[i] == IAC {
		if len(buf)-i < 3 {
			res.Incomplete = true
			break
		}
		cmd, opt := buf[i+1], buf[i+2]
		n := 3
		if cmd == SB {
			end := bytes.Index(buf[i+3:], iacSE)
			if end < 0 {
				res.Incomplete = true
				break
			}
			n = end + 5 // IAC SB opt ... IAC SE inclusive
			if opt == OptLinemode {
				if err := e.ackLinemode(w); err != nil {
					res.Consumed = i
					return res, err
				}
			}
		} else if reply := e.Policy.Reply(cmd, opt); reply != nil {
			if _, err := w.Write(reply); err != nil {
				res.Consumed = i
				return res, err
			}
		}
		if e.Observe != nil {
			e.Observe(cmd, opt)
		}
		i += n
		res.Sequences++
	}
	res.Consumed = i
	return res, nil
}

func (e *Engine) ackLinemode(w io.Writer) error {
	if _, err := w.Write(ackLinemode); err != nil {
		return err
	}
	if e.Welcome == "" {
		return nil
	}
	_, err := fmt.Fprint(w, e.Welcome, "\r\n")
	return err
}

// Name returns a readable name for a command byte, for logs.
func Name(cmd byte) string {
	switch cmd {
	case DO:
		return "DO"
	case DONT:
		return "DONT"
	case WILL:
		return "WILL"
	case WONT:
		return "WONT"
	case SB:
		return "SB"
	case SE:
		return "SE"
	}
	return fmt.Sprintf("Unknown (%d)", cmd)
}
