package vm

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/javanstorm/qvm/pkg/hypervisor"
)

// InstanceLock enforces at most one live lifecycle operation per named
// instance. The lock file holds the owning process ID; a lock whose
// process is no longer alive is stale and reclaimed automatically.
type InstanceLock struct {
	path string
}

// NewInstanceLock returns a lock stored at path.
func NewInstanceLock(path string) *InstanceLock {
	return &InstanceLock{path: path}
}

// Path returns the lock file path.
func (l *InstanceLock) Path() string {
	return l.path
}

// Acquire claims the lock for the current process. When another live
// process already owns it, the returned error wraps
// hypervisor.ErrAlreadyRunning and the caller must not proceed.
func (l *InstanceLock) Acquire() error {
	if data, err := os.ReadFile(l.path); err == nil {
		owner, convErr := strconv.Atoi(strings.TrimSpace(string(data)))
		if convErr == nil && ProcessAlive(owner) {
			return fmt.Errorf("%w (held by PID %d; use 'qvm status' or 'qvm stop')", hypervisor.ErrAlreadyRunning, owner)
		}
		// Stale: the recorded process is gone. Reclaim.
		if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("reclaim stale lock: %w", err)
		}
	}

	// Writing our PID is the final step of acquisition.
	if err := os.WriteFile(l.path, []byte(strconv.Itoa(os.Getpid())), 0644); err != nil {
		return fmt.Errorf("write lock: %w", err)
	}
	return nil
}

// Release removes the lock unconditionally. Called on every exit path
// of the controller so no lock outlives its owner under normal
// termination; crashes are handled by stale detection on the next
// acquire.
func (l *InstanceLock) Release() {
	_ = os.Remove(l.path)
}

// ReleaseFor removes the lock only when its recorded holder is pid, is
// unreadable, or is no longer alive. A lock held by a different live
// process belongs to that process and is left alone. Reports whether
// the lock was removed.
func (l *InstanceLock) ReleaseFor(pid int) bool {
	owner, held := l.Holder()
	if !held {
		return false
	}
	if owner != pid && ProcessAlive(owner) {
		return false
	}
	l.Release()
	return true
}

// Holder returns the lock's recorded owner when the lock file exists.
func (l *InstanceLock) Holder() (pid int, held bool) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return 0, false
	}
	pid, convErr := strconv.Atoi(strings.TrimSpace(string(data)))
	if convErr != nil {
		return 0, true
	}
	return pid, true
}
