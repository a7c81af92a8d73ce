// Package prompt resolves missing operator input. Provisioning and
// lifecycle code depends only on the Prompter interface; the terminal
// implementation asks on stdin, the auto implementation answers every
// question with its configured default for scripted use.
package prompt

// Prompter answers questions on the operator's behalf.
type Prompter interface {
	// Confirm asks a yes/no question and returns the answer.
	Confirm(question string, defaultYes bool) bool

	// Ask requests a free-form value, returning def on empty input.
	Ask(question, def string) string

	// Choose presents options and returns the selected index. ok is
	// false when the operator escapes the selection (manual entry).
	Choose(question string, options []string) (index int, ok bool)
}
