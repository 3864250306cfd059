// Package shell implements the orionOS shell's command dispatch: an
// ordered predicate/handler table matched by exact string or
// prefix+space, over the syscall API exposed by trap/process/fs. The
// shell is a client of the scheduler and syscall dispatcher, not part
// of the kernel core.
package shell

import (
	"strconv"
	"strings"

	kerrors "orionos/errors"
)

// Line is one tokenized input line: the command word, its remaining
// argument text, and whether a trailing "&" requested background
// execution.
type Line struct {
	Command    string
	Args       string
	Background bool
}

// Tokenize splits a raw input line into a Line, trimming a trailing
// "&" (with or without surrounding space) to set Background.
func Tokenize(raw string) Line {
	s := strings.TrimSpace(raw)
	bg := false
	if strings.HasSuffix(s, "&") {
		bg = true
		s = strings.TrimSpace(strings.TrimSuffix(s, "&"))
	}
	if s == "" {
		return Line{Background: bg}
	}
	sp := strings.IndexByte(s, ' ')
	if sp < 0 {
		return Line{Command: s, Background: bg}
	}
	return Line{Command: s[:sp], Args: strings.TrimSpace(s[sp+1:]), Background: bg}
}

// Handler runs a matched command; args is the remainder of the line
// after the matched command word.
type Handler func(args string) error

// match is one ordered (predicate, handler) pair. Since Tokenize
// already splits the command word from its argument text, an "exact
// string" command (no args) and a "prefix followed by a space"
// command (with args) both reduce to the same word-equality test
// against Line.Command.
type match struct {
	name    string
	handler Handler
}

// Table is the ordered command dispatch table.
type Table struct {
	matches []match
}

// NewTable returns an empty command table.
func NewTable() *Table {
	return &Table{}
}

// Register adds a command matched against the tokenized command word.
func (t *Table) Register(name string, h Handler) {
	t.matches = append(t.matches, match{name: name, handler: h})
}

// Dispatch tokenizes raw and runs the first matching handler, in
// registration order. Returns NotFound if nothing matches.
func (t *Table) Dispatch(raw string) (Line, error) {
	line := Tokenize(raw)
	if line.Command == "" {
		return line, nil
	}
	for _, m := range t.matches {
		if m.name == line.Command {
			return line, m.handler(line.Args)
		}
	}
	return line, kerrors.New(kerrors.NotFound, "shell.dispatch", "unknown command: "+line.Command)
}

// ParseDiskArg parses the `disk` command's drive argument, accepting
// both the bare form ("disk 0") and the trailing-hash form
// ("disk 0#").
func ParseDiskArg(args string) (int, error) {
	s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(args), "#"))
	if s == "" {
		return 0, kerrors.New(kerrors.InvalidArgument, "shell.parsediskarg", "missing drive id")
	}
	id, err := strconv.Atoi(s)
	if err != nil {
		return 0, kerrors.New(kerrors.InvalidArgument, "shell.parsediskarg", "drive id must be numeric")
	}
	return id, nil
}
