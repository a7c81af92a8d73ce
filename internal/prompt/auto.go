package prompt

// Auto answers every question with its default and never blocks.
// Used with --yes and whenever stdin is not a terminal.
type Auto struct{}

// NewAuto returns a non-interactive Prompter.
func NewAuto() *Auto {
	return &Auto{}
}

// Confirm returns the default answer.
func (a *Auto) Confirm(question string, defaultYes bool) bool {
	return defaultYes
}

// Ask returns the default value.
func (a *Auto) Ask(question, def string) string {
	return def
}

// Choose always selects the first option.
func (a *Auto) Choose(question string, options []string) (int, bool) {
	if len(options) == 0 {
		return 0, false
	}
	return 0, true
}
