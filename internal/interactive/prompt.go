// Package interactive talks to the person who started the launcher: fatal
// error reports and yes/no confirmations.
package interactive

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Prompter writes messages to the user and reads answers.
type Prompter struct {
	out     io.Writer
	scanner *bufio.Scanner
	tty     bool
}

// NewPrompter creates a prompter on stdin and stderr.
func NewPrompter() *Prompter {
	return NewPrompterWithIO(os.Stdin, os.Stderr, IsTerminal())
}

// NewPrompterWithIO creates a prompter with custom input/output (for testing).
// tty reports whether a person is reading out and can answer on in.
func NewPrompterWithIO(in io.Reader, out io.Writer, tty bool) *Prompter {
	return &Prompter{
		out:     out,
		scanner: bufio.NewScanner(in),
		tty:     tty,
	}
}

// IsTerminal checks if stdin is a terminal (TTY).
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// Interactive reports whether the prompter can ask questions.
func (p *Prompter) Interactive() bool {
	return p.tty
}

// Fatal reports an error the launcher cannot recover from. Hints are printed
// below the message. On a terminal it waits for Enter so the message stays
// visible when the launcher was started from a file manager.
func (p *Prompter) Fatal(err error, hints ...string) {
	_, _ = fmt.Fprintf(p.out, "\nError: %v\n", err)
	for _, h := range hints {
		_, _ = fmt.Fprintf(p.out, "  %s\n", h)
	}

	if !p.tty {
		return
	}
	_, _ = fmt.Fprint(p.out, "\nPress Enter to exit...")
	p.scanner.Scan()
}

// Confirm asks a yes/no question. Without a terminal it returns def without
// asking.
func (p *Prompter) Confirm(question string, def bool) bool {
	if !p.tty {
		return def
	}

	choices := "[y/N]"
	if def {
		choices = "[Y/n]"
	}
	_, _ = fmt.Fprintf(p.out, "%s %s ", question, choices)

	if !p.scanner.Scan() {
		return def
	}

	switch strings.ToLower(strings.TrimSpace(p.scanner.Text())) {
	case "y", "yes":
		return true
	case "n", "no":
		return false
	case "":
		return def
	default:
		// Default to no for invalid input
		_, _ = fmt.Fprintln(p.out, "Invalid response, assuming no.")
		return false
	}
}
