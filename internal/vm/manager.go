// Package vm implements the VM lifecycle: resource provisioning,
// instance locking, launch supervision, and the run / install /
// snapshot / reset / status / stop operations.
package vm

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/javanstorm/qvm/internal/config"
	"github.com/javanstorm/qvm/internal/prompt"
	"github.com/javanstorm/qvm/pkg/hypervisor"
)

// OpState tracks where the controller is in an operation span.
type OpState int

const (
	StateIdle OpState = iota
	StateProvisioning
	StateLockHeld
	StateLaunched
	StateExited
)

func (s OpState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateProvisioning:
		return "provisioning"
	case StateLockHeld:
		return "lock-held"
	case StateLaunched:
		return "launched"
	case StateExited:
		return "exited"
	default:
		return "unknown"
	}
}

// Manager is the lifecycle controller for one named instance. It is
// not internally concurrent: at most one operation runs at a time,
// enforced by the instance lock.
type Manager struct {
	cfg   *config.Config
	paths *config.Paths
	inst  *config.InstancePaths

	img       Imager
	firmware  *FirmwareManager
	media     *MediaResolver
	lock      *InstanceLock
	pidRec    *PIDRecord
	stateFile *StateFile
	prompt    prompt.Prompter
	log       *logrus.Logger

	binary string
	state  OpState

	// accelProbe and audioProbe are swappable for tests.
	accelProbe func() bool
	audioProbe func() bool
}

// NewManager resolves host software and builds a controller. A missing
// hypervisor or qemu-img binary is fatal here, before any disk is
// touched.
func NewManager(cfg *config.Config, p prompt.Prompter, log *logrus.Logger) (*Manager, error) {
	binary, err := hypervisor.FindBinary()
	if err != nil {
		return nil, err
	}
	img, err := NewQemuImg()
	if err != nil {
		return nil, err
	}

	paths, err := config.GetPaths(cfg.RootDir)
	if err != nil {
		return nil, fmt.Errorf("resolve paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("create directories: %w", err)
	}
	inst, err := paths.EnsureInstance(cfg.Name)
	if err != nil {
		return nil, fmt.Errorf("create instance directory: %w", err)
	}

	return newManager(cfg, paths, inst, img, p, log, binary), nil
}

// NewLocalManager builds a controller over existing on-disk state for
// the operations that never launch a guest: status, stop, and reset.
// Nothing is created on disk and the hypervisor binaries are not
// required, so these commands work on hosts without QEMU installed.
func NewLocalManager(cfg *config.Config, p prompt.Prompter, log *logrus.Logger) (*Manager, error) {
	paths, err := config.GetPaths(cfg.RootDir)
	if err != nil {
		return nil, fmt.Errorf("resolve paths: %w", err)
	}
	// Instance, not EnsureInstance: inspecting a never-created
	// instance must not create it.
	inst := paths.Instance(cfg.Name)
	return newManager(cfg, paths, inst, nil, p, log, ""), nil
}

// newManager wires a controller from explicit parts.
func newManager(cfg *config.Config, paths *config.Paths, inst *config.InstancePaths, img Imager, p prompt.Prompter, log *logrus.Logger, binary string) *Manager {
	return &Manager{
		cfg:        cfg,
		paths:      paths,
		inst:       inst,
		img:        img,
		firmware:   NewFirmwareManager(paths, p, log),
		media:      NewMediaResolver(p),
		lock:       NewInstanceLock(inst.LockFile),
		pidRec:     NewPIDRecord(inst.PIDFile),
		stateFile:  NewStateFile(inst.Dir),
		prompt:     p,
		log:        log,
		binary:     binary,
		state:      StateIdle,
		accelProbe: hypervisor.AccelUsable,
		audioProbe: hypervisor.AudioUsable,
	}
}

// State returns the controller's current operation state.
func (m *Manager) State() OpState {
	return m.state
}

// Run provisions everything an overlay boot needs and launches the
// instance. An empty base disk diverts into the install flow and never
// reaches overlay creation in the same invocation.
func (m *Manager) Run(ctx context.Context) error {
	res, diverted, err := m.prepareRun()
	if err != nil {
		return err
	}
	if diverted {
		fmt.Println("Base disk is empty; starting installation first.")
		return m.Install(ctx)
	}

	vmcfg, err := m.vmConfig()
	if err != nil {
		return err
	}
	return m.launch(ctx, hypervisor.ModeRun, res, vmcfg)
}

// Snapshot runs the instance with all disk writes discarded at exit.
func (m *Manager) Snapshot(ctx context.Context) error {
	res, diverted, err := m.prepareRun()
	if err != nil {
		return err
	}
	if diverted {
		return fmt.Errorf("base disk is empty; run 'qvm install' first")
	}

	fmt.Println("Snapshot mode: every disk write in this session is discarded on exit.")
	if !m.prompt.Confirm("Continue?", true) {
		return fmt.Errorf("snapshot cancelled")
	}

	vmcfg, err := m.vmConfig()
	if err != nil {
		return err
	}
	return m.launch(ctx, hypervisor.ModeSnapshot, res, vmcfg)
}

// Install boots the installation medium against the base disk.
func (m *Manager) Install(ctx context.Context) error {
	m.state = StateProvisioning

	if err := m.firmware.Ensure(); err != nil {
		return err
	}
	if _, err := m.provisioner().EnsureBaseDisk(); err != nil {
		return err
	}

	mediaPath, err := m.media.Resolve(m.cfg.MediaPath)
	if err != nil {
		return err
	}

	if !m.prompt.Confirm("Installation writes permanently to the base disk. Continue?", true) {
		return fmt.Errorf("installation cancelled")
	}

	// Installation must not pollute the instance's persistent UEFI
	// state: it gets a disposable scratch copy of the template.
	scratch, cleanup, err := ScratchVarStore(m.firmware.TemplatePath())
	if err != nil {
		return err
	}
	defer cleanup()

	res := hypervisor.Resources{
		FirmwareCode: m.firmware.CodePath(),
		VarStore:     scratch,
		BaseDisk:     m.paths.BaseDisk,
		Media:        mediaPath,
	}
	vmcfg, err := m.vmConfig()
	if err != nil {
		return err
	}
	return m.launch(ctx, hypervisor.ModeInstall, res, vmcfg)
}

// prepareRun covers the provisioning phase shared by run and snapshot:
// firmware, base disk, the empty-base divert decision, overlay, and
// variable store. When diverted is true the overlay was intentionally
// not touched.
func (m *Manager) prepareRun() (res hypervisor.Resources, diverted bool, err error) {
	m.state = StateProvisioning

	if err := m.firmware.Ensure(); err != nil {
		return res, false, err
	}

	prov := m.provisioner()
	created, err := prov.EnsureBaseDisk()
	if err != nil {
		return res, false, err
	}

	empty := created
	if !empty {
		empty, err = prov.BaseDiskEmpty()
		if err != nil {
			return res, false, err
		}
	}
	if empty {
		m.log.Info("base disk looks empty, diverting into install flow")
		return res, true, nil
	}

	if err := prov.EnsureOverlay(); err != nil {
		return res, false, err
	}
	if err := prov.EnsureVarStore(m.firmware.TemplatePath()); err != nil {
		return res, false, err
	}

	res = hypervisor.Resources{
		FirmwareCode: m.firmware.CodePath(),
		VarStore:     m.inst.VarStore,
		OverlayDisk:  m.inst.OverlayDisk,
	}
	return res, false, nil
}

// vmConfig builds the guest configuration, probing acceleration and
// audio. Degraded (unaccelerated) mode requires operator confirmation.
func (m *Manager) vmConfig() (hypervisor.VMConfig, error) {
	accel := m.accelProbe()
	if !accel {
		fmt.Fprintln(os.Stderr, "Warning: /dev/kvm is not usable; the guest will run unaccelerated and slow.")
		if !m.prompt.Confirm("Continue without hardware acceleration?", false) {
			return hypervisor.VMConfig{}, fmt.Errorf("%w: aborted by operator", hypervisor.ErrAccelUnavailable)
		}
		m.log.Warn("continuing without hardware acceleration")
	}

	return hypervisor.VMConfig{
		Name:           m.cfg.Name,
		CPUs:           m.cfg.CPUs,
		MemoryMB:       m.cfg.MemoryMB,
		SSHPort:        m.cfg.SSHPort,
		MACAddress:     m.cfg.MACAddress,
		AccelAvailable: accel,
		AudioAvailable: m.audioProbe(),
	}, nil
}

// launch claims the instance lock, builds the argument list, and
// supervises the subprocess until exit. The lock is released on every
// exit path.
func (m *Manager) launch(ctx context.Context, mode hypervisor.Mode, res hypervisor.Resources, vmcfg hypervisor.VMConfig) error {
	if err := vmcfg.Validate(mode, res); err != nil {
		return err
	}

	if err := m.lock.Acquire(); err != nil {
		return err
	}
	defer m.lock.Release()
	m.state = StateLockHeld

	args := hypervisor.Build(mode, res, vmcfg)
	m.log.WithFields(logrus.Fields{
		"mode": mode.String(),
		"args": len(args),
	}).Info("launching hypervisor")

	if err := m.stateFile.RecordBoot(mode.String()); err != nil {
		m.log.WithError(err).Warn("could not record boot")
	}

	m.state = StateLaunched
	runErr := NewSupervisor(m.binary, m.pidRec, m.log).Run(ctx, args)
	m.state = StateExited

	if err := m.stateFile.RecordShutdown(runErr == nil); err != nil {
		m.log.WithError(err).Warn("could not record shutdown")
	}
	return runErr
}

// Stop terminates a running instance via its PID record, escalating
// from SIGTERM to SIGKILL. Runtime records are cleared for the stopped
// session only: a lock held by a different live process (for example a
// launch still provisioning, with QEMU not yet started) is left alone.
func (m *Manager) Stop() error {
	pid, alive := m.pidRec.Live()
	if !alive {
		_ = m.pidRec.Clear()
		m.lock.ReleaseFor(0)
		fmt.Println("Instance is not running.")
		return nil
	}

	fmt.Printf("Stopping instance %s (PID %d)...\n", m.cfg.Name, pid)
	if err := Terminate(pid, m.log); err != nil {
		return err
	}
	_ = m.pidRec.Clear()
	m.lock.ReleaseFor(pid)
	fmt.Println("Stopped.")
	return nil
}

// Reset wipes the instance's mutable artifacts: overlay disk, variable
// store, lock, PID record, and logs. The base disk and shared firmware
// are never touched. Refuses while the instance is running.
func (m *Manager) Reset() error {
	if pid, alive := m.pidRec.Live(); alive {
		return fmt.Errorf("%w (PID %d); stop it before resetting", hypervisor.ErrAlreadyRunning, pid)
	}

	if !m.prompt.Confirm(fmt.Sprintf("Reset instance %s? This deletes its overlay disk and firmware variables.", m.cfg.Name), false) {
		return fmt.Errorf("reset cancelled")
	}

	for _, path := range []string{
		m.inst.OverlayDisk,
		m.inst.VarStore,
		m.inst.LockFile,
		m.inst.PIDFile,
		m.stateFile.Path(),
	} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove %s: %w", path, err)
		}
	}
	if err := os.RemoveAll(m.inst.LogDir); err != nil {
		return fmt.Errorf("remove logs: %w", err)
	}

	fmt.Printf("Instance %s reset. Base disk and firmware were preserved.\n", m.cfg.Name)
	return nil
}

// ResourceStatus describes one on-disk artifact.
type ResourceStatus struct {
	Path      string
	Present   bool
	SizeBytes int64
}

// StatusReport is a read-only snapshot of instance and resource state.
type StatusReport struct {
	Name     string
	Running  bool
	PID      int
	LockHeld bool
	LockPID  int

	FirmwareCode ResourceStatus
	VarsTemplate ResourceStatus
	BaseDisk     ResourceStatus
	OverlayDisk  ResourceStatus
	VarStore     ResourceStatus

	History *PersistentState
}

// Status inspects lock/PID liveness and resource presence. It never
// mutates state.
func (m *Manager) Status() (*StatusReport, error) {
	report := &StatusReport{Name: m.cfg.Name}

	if pid, alive := m.pidRec.Live(); alive {
		report.Running = true
		report.PID = pid
	}
	if pid, held := m.lock.Holder(); held {
		report.LockHeld = true
		report.LockPID = pid
	}

	report.FirmwareCode = resourceStatus(m.firmware.CodePath())
	report.VarsTemplate = resourceStatus(m.firmware.TemplatePath())
	report.BaseDisk = resourceStatus(m.paths.BaseDisk)
	report.OverlayDisk = resourceStatus(m.inst.OverlayDisk)
	report.VarStore = resourceStatus(m.inst.VarStore)

	history, err := m.stateFile.Load()
	if err != nil {
		return nil, err
	}
	report.History = history

	return report, nil
}

func (m *Manager) provisioner() *Provisioner {
	return NewProvisioner(m.paths, m.inst, m.img, m.prompt, m.log, m.cfg.DiskSizeGB)
}

// Firmware exposes the firmware manager, mainly so callers can adjust
// search paths.
func (m *Manager) Firmware() *FirmwareManager {
	return m.firmware
}

// Media exposes the media resolver.
func (m *Manager) Media() *MediaResolver {
	return m.media
}

func resourceStatus(path string) ResourceStatus {
	st := ResourceStatus{Path: path}
	if info, err := os.Stat(path); err == nil {
		st.Present = true
		st.SizeBytes = info.Size()
	}
	return st
}
