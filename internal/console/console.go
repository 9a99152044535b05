// Package console is the operator's side of a session: it prints
// prompts and server replies and reads answers line by line.
package console

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	ncerr "smtpc/internal/errors"
)

// Mode is the top-level behaviour the operator picks for one round.
type Mode int

const (
	TestMode Mode = 1
	SendMode Mode = 2
	Quit     Mode = 3
)

func (m Mode) String() string {
	switch m {
	case TestMode:
		return "test"
	case SendMode:
		return "send"
	case Quit:
		return "quit"
	default:
		return "unknown"
	}
}

// Prompt is printed before every line of operator input.
const Prompt = "--> "

// Console reads operator input from in and writes to out.
type Console struct {
	in   *bufio.Reader
	out  io.Writer
	echo bool
}

// Option configures a Console.
type Option func(*Console)

// WithEcho repeats every answer after its prompt.  Useful when input
// is piped from a file, so the transcript stays readable.
func WithEcho(on bool) Option { return func(c *Console) { c.echo = on } }

// New returns a Console over the given streams.
func New(in io.Reader, out io.Writer, opts ...Option) *Console {
	c := &Console{in: bufio.NewReader(in), out: out}
	for _, o := range opts {
		o(c)
	}
	return c
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// Report prints text on its own line.
func (c *Console) Report(text string) {
	fmt.Fprintln(c.out, text)
}

// Reportf is Report with formatting.
func (c *Console) Reportf(format string, args ...interface{}) {
	fmt.Fprintf(c.out, format+"\n", args...)
}

// PromptLine prints message (if any) followed by the input marker and
// returns the operator's line without its line ending.
func (c *Console) PromptLine(message string) (string, error) {
	if message != "" {
		fmt.Fprintf(c.out, "\n%s\n", message)
	}
	fmt.Fprint(c.out, Prompt)
	return c.readLine()
}

// PromptYesNo asks until the operator answers y or n (any case).
func (c *Console) PromptYesNo(message string) (bool, error) {
	for {
		fmt.Fprint(c.out, message)
		answer, err := c.readLine()
		if err != nil {
			return false, err
		}
		switch strings.ToLower(strings.TrimSpace(answer)) {
		case "y":
			return true, nil
		case "n":
			return false, nil
		}
	}
}

// PromptModeChoice shows the mode menu until a listed value is entered.
func (c *Console) PromptModeChoice() (Mode, error) {
	for {
		fmt.Fprint(c.out, "\nPlease Select Mode: \n\n"+
			"  TEST MODE ----- 1\n"+
			"  SEND MODE ----- 2\n"+
			"  QUIT PROGRAM -- 3\n"+
			"\nEnter Your Selection: ")
		answer, err := c.readLine()
		if err != nil {
			return 0, err
		}
		if m, ok := ParseMode(answer); ok {
			return m, nil
		}
		fmt.Fprintln(c.out, "\nYou must select value from the list!")
	}
}

// ParseMode accepts exactly "1", "2" or "3".
func ParseMode(s string) (Mode, bool) {
	switch s {
	case "1":
		return TestMode, true
	case "2":
		return SendMode, true
	case "3":
		return Quit, true
	}
	return 0, false
}

func (c *Console) readLine() (string, error) {
	line, err := c.in.ReadString('\n')
	if err != nil {
		if err != io.EOF || line == "" {
			return "", ncerr.ErrOperatorGone
		}
	}
	line = strings.TrimRight(line, "\r\n")
	if c.echo {
		fmt.Fprintln(c.out, line)
	}
	return line, nil
}
