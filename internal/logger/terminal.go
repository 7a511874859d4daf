package logger

import (
	"os"

	"golang.org/x/term"
)

// isTerminal reports whether f is attached to a terminal, which enables colored output.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
