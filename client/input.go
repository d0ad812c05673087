package client

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ergochat/readline"
	"golang.org/x/term"
)

const (
	historyFile = ".tinytelnet_history"
	historySize = 500
	prompt      = "> "
)

// lineSource yields one line of user input at a time.
type lineSource interface {
	ReadLine() (string, error)
	Close()
}

// newLineSource uses readline for terminals and a plain scanner for
// pipes and files.
func newLineSource(r io.Reader) lineSource {
	if f, ok := r.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		cfg := &readline.Config{
			Prompt:                 prompt,
			HistoryLimit:           historySize,
			DisableAutoSaveHistory: true,
		}
		if home, err := os.UserHomeDir(); err == nil {
			cfg.HistoryFile = filepath.Join(home, historyFile)
		}
		if rl, err := readline.NewFromConfig(cfg); err == nil {
			return &editor{rl: rl}
		}
	}
	return &scanner{sc: bufio.NewScanner(r)}
}

type editor struct {
	rl *readline.Instance
}

func (e *editor) ReadLine() (string, error) {
	line, err := e.rl.Readline()
	if err != nil {
		if err == readline.ErrInterrupt {
			return "", io.EOF
		}
		return "", err
	}
	if s := strings.TrimSpace(line); s != "" {
		e.rl.SaveToHistory(s) //nolint:errcheck
	}
	return line, nil
}

func (e *editor) Close() { e.rl.Close() }

type scanner struct {
	sc *bufio.Scanner
}

func (s *scanner) ReadLine() (string, error) {
	if !s.sc.Scan() {
		if err := s.sc.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return s.sc.Text(), nil
}

func (s *scanner) Close() {}
