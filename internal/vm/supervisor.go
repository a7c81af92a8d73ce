package vm

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
)

// Stop escalation: SIGTERM, then a bounded poll, then SIGKILL.
const (
	stopPollAttempts = 20
	stopPollDelay    = 500 * time.Millisecond
)

// Supervisor spawns the hypervisor subprocess and supervises it until
// exit: it records the child's PID itself, forwards termination
// signals, and clears the PID record on every exit path. The guest
// serial console is wired to the supervisor's own terminal.
type Supervisor struct {
	binary string
	pidRec *PIDRecord
	log    *logrus.Logger
}

// NewSupervisor returns a supervisor launching the given binary.
func NewSupervisor(binary string, pidRec *PIDRecord, log *logrus.Logger) *Supervisor {
	return &Supervisor{binary: binary, pidRec: pidRec, log: log}
}

// Run launches the subprocess and blocks until it exits.
func (s *Supervisor) Run(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, s.binary, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start hypervisor: %w", err)
	}

	pid := cmd.Process.Pid
	if err := s.pidRec.Write(pid); err != nil {
		s.log.WithError(err).Warn("could not write pid record")
	}
	defer func() {
		if err := s.pidRec.Clear(); err != nil {
			s.log.WithError(err).Warn("could not clear pid record")
		}
	}()

	s.log.WithFields(logrus.Fields{
		"pid":    pid,
		"binary": s.binary,
	}).Info("hypervisor started")

	// Forward operator signals so terminating the supervisor also
	// terminates the guest.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	for {
		select {
		case sig := <-sigCh:
			s.log.WithField("signal", sig).Info("forwarding signal to hypervisor")
			_ = cmd.Process.Signal(sig)
		case err := <-done:
			if err != nil {
				s.log.WithError(err).Warn("hypervisor exited with error")
				return fmt.Errorf("hypervisor exited: %w", err)
			}
			s.log.Info("hypervisor exited cleanly")
			return nil
		}
	}
}

// Terminate stops a process by PID: graceful SIGTERM first, a bounded
// poll for exit, then SIGKILL if the deadline passes.
func Terminate(pid int, log *logrus.Logger) error {
	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("find process %d: %w", pid, err)
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		// Already gone.
		return nil
	}
	log.WithField("pid", pid).Info("sent SIGTERM")

	for i := 0; i < stopPollAttempts; i++ {
		time.Sleep(stopPollDelay)
		if !ProcessAlive(pid) {
			return nil
		}
	}

	log.WithField("pid", pid).Warn("process did not exit, escalating to SIGKILL")
	if err := process.Signal(syscall.SIGKILL); err != nil {
		return nil
	}
	time.Sleep(stopPollDelay)
	if ProcessAlive(pid) {
		return fmt.Errorf("process %d survived SIGKILL", pid)
	}
	return nil
}
