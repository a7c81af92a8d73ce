package vm

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
)

// PIDRecord tracks the running hypervisor process for one instance.
// The supervisor writes it after launch and clears it after exit; it
// may be absent (never started) or stale (process died uncleanly).
type PIDRecord struct {
	path string
}

// NewPIDRecord returns a record stored at path.
func NewPIDRecord(path string) *PIDRecord {
	return &PIDRecord{path: path}
}

// Path returns the record's file path.
func (r *PIDRecord) Path() string {
	return r.path
}

// Read returns the recorded process ID, or an error when the record is
// absent or unparseable.
func (r *PIDRecord) Read() (int, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid pid record %s: %w", r.path, err)
	}
	return pid, nil
}

// Write records the given process ID.
func (r *PIDRecord) Write(pid int) error {
	return os.WriteFile(r.path, []byte(strconv.Itoa(pid)), 0644)
}

// Clear removes the record. Removing a missing record is not an error;
// runtime records are freely rewritten.
func (r *PIDRecord) Clear() error {
	if err := os.Remove(r.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Live returns the recorded process ID when that process is currently
// alive. A missing record or a dead process returns (0, false).
func (r *PIDRecord) Live() (int, bool) {
	pid, err := r.Read()
	if err != nil {
		return 0, false
	}
	if !ProcessAlive(pid) {
		return 0, false
	}
	return pid, true
}

// ProcessAlive checks process existence with signal 0.
func ProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}
