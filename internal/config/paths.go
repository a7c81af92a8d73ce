package config

import (
	"os"
	"path/filepath"
)

// Paths holds the on-disk layout for qvm artifacts.
type Paths struct {
	// RootDir is the top-level directory. Default: ~/.qvm
	RootDir string

	// ConfigDir is the XDG config directory for the optional config file.
	ConfigDir string

	// FirmwareDir holds the shared OVMF code image, its hash record, and
	// the variable template. Shared across all instances.
	FirmwareDir string

	// BaseDisk is the shared base disk image path.
	BaseDisk string

	// InstancesDir contains one subdirectory per named instance.
	InstancesDir string

	// SSHDir holds the managed SSH key pair.
	SSHDir string
}

// InstancePaths holds the per-instance artifact layout.
type InstancePaths struct {
	// Dir is the instance root directory.
	Dir string

	// OverlayDisk is the copy-on-write disk backed by the base disk.
	OverlayDisk string

	// VarStore is the instance's writable UEFI variable store.
	VarStore string

	// LockFile gates exclusivity; holds the owning process ID.
	LockFile string

	// PIDFile records the running hypervisor process ID.
	PIDFile string

	// LogDir is the operational log directory.
	LogDir string
}

// GetPaths returns the shared layout. rootOverride replaces ~/.qvm when
// non-empty.
func GetPaths(rootOverride string) (*Paths, error) {
	root := rootOverride
	if root == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		root = filepath.Join(home, ".qvm")
	}

	configDir := root
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		configDir = filepath.Join(xdg, "qvm")
	}

	return &Paths{
		RootDir:      root,
		ConfigDir:    configDir,
		FirmwareDir:  filepath.Join(root, "firmware"),
		BaseDisk:     filepath.Join(root, "base.qcow2"),
		InstancesDir: filepath.Join(root, "instances"),
		SSHDir:       filepath.Join(root, "ssh"),
	}, nil
}

// Instance returns the layout for a named instance.
func (p *Paths) Instance(name string) *InstancePaths {
	dir := filepath.Join(p.InstancesDir, name)
	return &InstancePaths{
		Dir:         dir,
		OverlayDisk: filepath.Join(dir, "disk.qcow2"),
		VarStore:    filepath.Join(dir, "OVMF_VARS.fd"),
		LockFile:    filepath.Join(dir, ".qemu.lock"),
		PIDFile:     filepath.Join(dir, ".qemu.pid"),
		LogDir:      filepath.Join(dir, "logs"),
	}
}

// FirmwareCode returns the shared OVMF code image path.
func (p *Paths) FirmwareCode() string {
	return filepath.Join(p.FirmwareDir, "OVMF_CODE.fd")
}

// FirmwareCodeHash returns the firmware hash record path.
func (p *Paths) FirmwareCodeHash() string {
	return filepath.Join(p.FirmwareDir, "OVMF_CODE.fd.sha256")
}

// FirmwareVarsTemplate returns the master variable template path.
func (p *Paths) FirmwareVarsTemplate() string {
	return filepath.Join(p.FirmwareDir, "OVMF_VARS.template.fd")
}

// EnsureDirectories creates the shared directories if missing.
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.RootDir, p.FirmwareDir, p.InstancesDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}

// EnsureInstance creates the instance directory tree if missing.
func (p *Paths) EnsureInstance(name string) (*InstancePaths, error) {
	inst := p.Instance(name)
	if err := os.MkdirAll(inst.Dir, 0755); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(inst.LogDir, 0755); err != nil {
		return nil, err
	}
	return inst, nil
}
