package prompt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"
)

// Terminal prompts on an input/output stream pair, normally stdin and
// stdout.
type Terminal struct {
	in  *bufio.Reader
	out io.Writer
}

// NewTerminal returns a Prompter reading from in and writing to out.
func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{in: bufio.NewReader(in), out: out}
}

// Stdin reports whether standard input is an interactive terminal.
// Callers should fall back to the Auto prompter when it is not.
func Stdin() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

func (t *Terminal) readLine() string {
	line, _ := t.in.ReadString('\n')
	return strings.TrimSpace(line)
}

// Confirm asks a yes/no question with a default.
func (t *Terminal) Confirm(question string, defaultYes bool) bool {
	hint := "Y/n"
	if !defaultYes {
		hint = "y/N"
	}
	fmt.Fprintf(t.out, "%s [%s]: ", question, hint)

	input := strings.ToLower(t.readLine())
	if input == "" {
		return defaultYes
	}
	return input == "y" || input == "yes"
}

// Ask requests a free-form value with a default.
func (t *Terminal) Ask(question, def string) string {
	if def != "" {
		fmt.Fprintf(t.out, "%s [%s]: ", question, def)
	} else {
		fmt.Fprintf(t.out, "%s: ", question)
	}

	if input := t.readLine(); input != "" {
		return input
	}
	return def
}

// Choose presents a numbered list. Entering "m" (or nothing valid)
// escapes to manual entry.
func (t *Terminal) Choose(question string, options []string) (int, bool) {
	fmt.Fprintf(t.out, "%s\n", question)
	for i, opt := range options {
		fmt.Fprintf(t.out, "  %d. %s\n", i+1, opt)
	}
	fmt.Fprintf(t.out, "Select [1-%d, m for manual entry]: ", len(options))

	input := strings.ToLower(t.readLine())
	if input == "m" || input == "" {
		return 0, false
	}
	choice, err := strconv.Atoi(input)
	if err != nil || choice < 1 || choice > len(options) {
		return 0, false
	}
	return choice - 1, true
}
