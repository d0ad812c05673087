package command

import (
	"strings"

	"tinytelnet/internal/errors"
)

// Line is one tokenized command line.
type Line struct {
	Command string
	Params  []string
}

// Empty reports whether the line carries no command and should be
// ignored.
func (l Line) Empty() bool { return l.Command == "" }

// Parse splits a command line into its command name and parameters.
//
// Two grammars are accepted. If the line contains an unquoted '(' it is
// read as a call, "cmd(a, b)", with comma separated parameters between
// '(' and the last ')'. Otherwise it is read as "cmd a b", split on
// spaces. In both, a parameter wrapped in matching single or double
// quotes may contain the delimiter; the quotes are removed. A quote
// with no partner is kept as ordinary text.
//
// An empty or blank line yields an empty Line and no error. A call with
// no closing parenthesis yields a *errors.ParseError wrapping
// errors.ErrUnclosedParen.
func Parse(input string) (Line, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return Line{}, nil
	}

	var (
		line  Line
		tail  string
		delim byte
	)
	if open := indexUnquoted(s, '('); open >= 0 {
		end := strings.LastIndexByte(s, ')')
		if end < open {
			return Line{}, &errors.ParseError{Line: input, Err: errors.ErrUnclosedParen}
		}
		line.Command = strings.TrimSpace(s[:open])
		tail = s[open+1 : end]
		delim = ','
	} else {
		delim = ' '
		if sp := strings.IndexByte(s, ' '); sp >= 0 {
			line.Command, tail = s[:sp], s[sp+1:]
		} else {
			line.Command = s
		}
	}

	for {
		tail = strings.TrimSpace(tail)
		if tail == "" {
			break
		}
		var tok string
		tok, tail = nextToken(tail, delim)
		line.Params = append(line.Params, strings.TrimSpace(tok))
	}
	return line, nil
}

// nextToken cuts the first parameter off s, which is already trimmed
// and non-empty.
func nextToken(s string, delim byte) (tok, rest string) {
	if q := s[0]; q == '\'' || q == '"' {
		if end := strings.IndexByte(s[1:], q); end >= 0 {
			tok, rest = s[1:1+end], strings.TrimLeft(s[2+end:], " \t")
			if rest != "" && rest[0] == delim {
				rest = rest[1:]
			}
			return tok, rest
		}
	}
	if i := strings.IndexByte(s, delim); i >= 0 {
		return s[:i], s[i+1:]
	}
	return s, ""
}

// indexUnquoted returns the index of the first c in s that is not
// enclosed in a quoted span, or -1.
func indexUnquoted(s string, c byte) int {
	var quote byte
	for i := 0; i < len(s); i++ {
		switch b := s[i]; {
		case quote != 0:
			if b == quote {
				quote = 0
			}
		case b == '\'' || b == '"':
			if strings.IndexByte(s[i+1:], b) >= 0 {
				quote = b
			}
		case b == c:
			return i
		}
	}
	return -1
}
