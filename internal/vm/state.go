package vm

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// PersistentState holds per-instance history that survives restarts.
type PersistentState struct {
	// LastBoot is when the instance was last started.
	LastBoot time.Time `json:"last_boot,omitempty"`

	// LastShutdown is when the instance was last stopped.
	LastShutdown time.Time `json:"last_shutdown,omitempty"`

	// BootCount is the number of times the instance has booted.
	BootCount int `json:"boot_count"`

	// LastMode records the run mode of the most recent boot.
	LastMode string `json:"last_mode,omitempty"`

	// CleanShutdown indicates if the last shutdown was clean.
	CleanShutdown bool `json:"clean_shutdown"`
}

// StateFile manages persistent state storage for one instance.
type StateFile struct {
	path string
}

// NewStateFile creates a state file manager rooted in the instance dir.
func NewStateFile(instanceDir string) *StateFile {
	return &StateFile{path: filepath.Join(instanceDir, "state.json")}
}

// Load reads the state from disk. A missing file is an empty state.
func (s *StateFile) Load() (*PersistentState, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return &PersistentState{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}

	var state PersistentState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parse state file: %w", err)
	}
	return &state, nil
}

// Save writes the state to disk atomically.
func (s *StateFile) Save(state *PersistentState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	return os.Rename(tmpPath, s.path)
}

// RecordBoot updates state for a new boot in the given mode.
func (s *StateFile) RecordBoot(mode string) error {
	state, err := s.Load()
	if err != nil {
		return err
	}

	state.LastBoot = time.Now()
	state.BootCount++
	state.LastMode = mode
	state.CleanShutdown = false

	return s.Save(state)
}

// RecordShutdown updates state for a shutdown.
func (s *StateFile) RecordShutdown(clean bool) error {
	state, err := s.Load()
	if err != nil {
		return err
	}

	state.LastShutdown = time.Now()
	state.CleanShutdown = clean

	return s.Save(state)
}

// Path returns the state file path.
func (s *StateFile) Path() string {
	return s.path
}
