package prompt

import (
	"strings"
	"testing"
)

func TestTerminalConfirm(t *testing.T) {
	tests := []struct {
		input      string
		defaultYes bool
		want       bool
	}{
		{"y\n", false, true},
		{"yes\n", false, true},
		{"Y\n", false, true},
		{"n\n", true, false},
		{"no\n", true, false},
		{"\n", true, true},
		{"\n", false, false},
		{"garbage\n", true, false},
	}

	for _, tt := range tests {
		var out strings.Builder
		p := NewTerminal(strings.NewReader(tt.input), &out)
		if got := p.Confirm("proceed?", tt.defaultYes); got != tt.want {
			t.Errorf("Confirm(input=%q, default=%v) = %v, want %v", tt.input, tt.defaultYes, got, tt.want)
		}
	}
}

func TestTerminalAsk(t *testing.T) {
	var out strings.Builder
	p := NewTerminal(strings.NewReader("/tmp/custom.iso\n"), &out)
	if got := p.Ask("medium path", "/default.iso"); got != "/tmp/custom.iso" {
		t.Errorf("Ask = %q, want %q", got, "/tmp/custom.iso")
	}

	p = NewTerminal(strings.NewReader("\n"), &out)
	if got := p.Ask("medium path", "/default.iso"); got != "/default.iso" {
		t.Errorf("Ask with empty input = %q, want default", got)
	}
}

func TestTerminalChoose(t *testing.T) {
	options := []string{"a.iso", "b.iso", "c.iso"}

	tests := []struct {
		input   string
		wantIdx int
		wantOK  bool
	}{
		{"1\n", 0, true},
		{"3\n", 2, true},
		{"m\n", 0, false},
		{"\n", 0, false},
		{"0\n", 0, false},
		{"9\n", 0, false},
		{"x\n", 0, false},
	}

	for _, tt := range tests {
		var out strings.Builder
		p := NewTerminal(strings.NewReader(tt.input), &out)
		idx, ok := p.Choose("pick a medium", options)
		if idx != tt.wantIdx || ok != tt.wantOK {
			t.Errorf("Choose(input=%q) = (%d, %v), want (%d, %v)", tt.input, idx, ok, tt.wantIdx, tt.wantOK)
		}
	}
}

func TestAuto(t *testing.T) {
	p := NewAuto()

	if !p.Confirm("destroy everything?", true) {
		t.Error("Auto.Confirm should return the default")
	}
	if p.Confirm("destroy everything?", false) {
		t.Error("Auto.Confirm should return the default")
	}
	if got := p.Ask("path", "/default"); got != "/default" {
		t.Errorf("Auto.Ask = %q, want default", got)
	}
	if idx, ok := p.Choose("pick", []string{"a", "b"}); idx != 0 || !ok {
		t.Errorf("Auto.Choose = (%d, %v), want (0, true)", idx, ok)
	}
	if _, ok := p.Choose("pick", nil); ok {
		t.Error("Auto.Choose with no options must not report ok")
	}
}
