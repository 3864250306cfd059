package cmd

import (
	"fmt"
	"io"
)

// userProgram is a builtin program body the fake loader can "exec".
// This simulator has no real machine code to load, so SPAWN/EXEC
// resolve a path to one of these registered bodies instead of reading
// bytes out of the mounted filesystem.
type userProgram func(argv []string, stdout io.Writer) int32

// builtinPrograms is the fixed set of paths SPAWN/EXEC can resolve.
var builtinPrograms = map[string]userProgram{
	"/cmd/echo":  progEcho,
	"/cmd/true":  progTrue,
	"/cmd/false": progFalse,
}

func progEcho(argv []string, stdout io.Writer) int32 {
	args := argv
	if len(args) > 0 {
		args = args[1:]
	}
	for i, a := range args {
		if i > 0 {
			fmt.Fprint(stdout, " ")
		}
		fmt.Fprint(stdout, a)
	}
	fmt.Fprintln(stdout)
	return 0
}

func progTrue(argv []string, stdout io.Writer) int32 { return 0 }

func progFalse(argv []string, stdout io.Writer) int32 { return 1 }
