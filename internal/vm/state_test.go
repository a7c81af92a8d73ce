package vm

import (
	"os"
	"testing"
)

func TestStateFileMissingIsEmpty(t *testing.T) {
	s := NewStateFile(t.TempDir())

	state, err := s.Load()
	if err != nil {
		t.Fatalf("Load on missing file: %v", err)
	}
	if state.BootCount != 0 || !state.LastBoot.IsZero() {
		t.Errorf("missing file loaded as %+v, want zero state", state)
	}
}

func TestStateFileBootShutdownCycle(t *testing.T) {
	s := NewStateFile(t.TempDir())

	if err := s.RecordBoot("install"); err != nil {
		t.Fatalf("RecordBoot: %v", err)
	}
	state, err := s.Load()
	if err != nil {
		t.Fatal(err)
	}
	if state.BootCount != 1 {
		t.Errorf("BootCount = %d, want 1", state.BootCount)
	}
	if state.LastMode != "install" {
		t.Errorf("LastMode = %q", state.LastMode)
	}
	if state.LastBoot.IsZero() {
		t.Error("LastBoot not recorded")
	}
	if state.CleanShutdown {
		t.Error("CleanShutdown true while running")
	}

	if err := s.RecordShutdown(true); err != nil {
		t.Fatalf("RecordShutdown: %v", err)
	}
	if err := s.RecordBoot("run"); err != nil {
		t.Fatal(err)
	}
	if err := s.RecordShutdown(false); err != nil {
		t.Fatal(err)
	}

	state, err = s.Load()
	if err != nil {
		t.Fatal(err)
	}
	if state.BootCount != 2 {
		t.Errorf("BootCount = %d, want 2", state.BootCount)
	}
	if state.LastMode != "run" {
		t.Errorf("LastMode = %q, want run", state.LastMode)
	}
	if state.CleanShutdown {
		t.Error("unclean shutdown recorded as clean")
	}
	if state.LastShutdown.IsZero() {
		t.Error("LastShutdown not recorded")
	}
}

func TestStateFileCorruptRejected(t *testing.T) {
	dir := t.TempDir()
	s := NewStateFile(dir)
	if err := os.WriteFile(s.Path(), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := s.Load(); err == nil {
		t.Error("corrupt state file must not load")
	}
}
