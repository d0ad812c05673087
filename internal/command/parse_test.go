package command

import (
	"reflect"
	"testing"

	"tinytelnet/internal/errors"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		cmd    string
		params []string
	}{
		{"space grammar", "play 3", "play", []string{"3"}},
		{"call grammar", "play(3)", "play", []string{"3"}},
		{"no params", "help", "help", nil},
		{"empty call", "cli.info()", "cli.info", nil},
		{"call with spaces", "mv( a.txt , b.txt )", "mv", []string{"a.txt", "b.txt"}},
		{"double quoted", `write log.txt "hello world"`, "write", []string{"log.txt", "hello world"}},
		{"single quoted", "write log.txt 'hello world'", "write", []string{"log.txt", "hello world"}},
		{"quoted in call", `write("log.txt", "a, b")`, "write", []string{"log.txt", "a, b"}},
		{"quoted first", `write "my file" x`, "write", []string{"my file", "x"}},
		{"text after quote", `echo "a"b c`, "echo", []string{"a", "b", "c"}},
		{"unpaired quote", "say don't stop", "say", []string{"don't", "stop"}},
		{"repeated spaces", "cp   a    b", "cp", []string{"a", "b"}},
		{"surrounding whitespace", "  ls /  \r", "ls", []string{"/"}},
		{"empty call param", "f(a,,b)", "f", []string{"a", "", "b"}},
		{"paren inside quotes", `write f "(x"`, "write", []string{"f", "(x"}},
		{"trailing text after paren", "vol(3) ignored", "vol", []string{"3"}},
		{"empty quoted", `write f ""`, "write", []string{"f", ""}},
		{"paren after first token", "say hi(there)", "say hi", []string{"there"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q): %v", tt.input, err)
			}
			if got.Command != tt.cmd {
				t.Errorf("Command = %q, want %q", got.Command, tt.cmd)
			}
			if !reflect.DeepEqual(got.Params, tt.params) {
				t.Errorf("Params = %q, want %q", got.Params, tt.params)
			}
		})
	}
}

func TestParse_GrammarEquivalence(t *testing.T) {
	a, _ := Parse("play 3")
	b, _ := Parse("play(3)")
	if !reflect.DeepEqual(a, b) {
		t.Errorf("space %+v != call %+v", a, b)
	}
}

func TestParse_UnclosedParen(t *testing.T) {
	line, err := Parse("bad(1,2")
	if !errors.Is(err, errors.ErrUnclosedParen) {
		t.Fatalf("err = %v, want ErrUnclosedParen", err)
	}
	var pe *errors.ParseError
	if !errors.As(err, &pe) || pe.Line != "bad(1,2" {
		t.Errorf("err = %#v, want *ParseError for the input line", err)
	}
	if !line.Empty() {
		t.Errorf("line = %+v, want empty", line)
	}
}

func TestParse_Empty(t *testing.T) {
	for _, in := range []string{"", "   ", "\t\r"} {
		line, err := Parse(in)
		if err != nil {
			t.Errorf("Parse(%q): %v", in, err)
		}
		if !line.Empty() || line.Params != nil {
			t.Errorf("Parse(%q) = %+v, want empty", in, line)
		}
	}
}
