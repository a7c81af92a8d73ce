package vm

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javanstorm/qvm/internal/config"
	"github.com/javanstorm/qvm/internal/prompt"
)

// emptyBaseThreshold is the allocated-size heuristic for an installed
// base disk. A freshly created 40G qcow2 allocates a few hundred KB;
// any installed OS allocates gigabytes. Below this the base disk is
// treated as empty and run diverts into the install flow.
const emptyBaseThreshold = 1 << 30 // 1 GiB

// Provisioner locates or creates the durable artifacts an instance
// needs. Every ensure method is idempotent: re-running never destroys
// valid existing artifacts, and destructive recovery always asks first.
type Provisioner struct {
	paths  *config.Paths
	inst   *config.InstancePaths
	img    Imager
	prompt prompt.Prompter
	log    *logrus.Logger

	diskSizeGB int
}

// NewProvisioner returns a provisioner for one instance.
func NewProvisioner(paths *config.Paths, inst *config.InstancePaths, img Imager, p prompt.Prompter, log *logrus.Logger, diskSizeGB int) *Provisioner {
	return &Provisioner{
		paths:      paths,
		inst:       inst,
		img:        img,
		prompt:     p,
		log:        log,
		diskSizeGB: diskSizeGB,
	}
}

// EnsureBaseDisk creates the shared base disk when absent. Absence is a
// normal first-run condition, so creation is confirmed rather than
// assumed. Returns whether the disk was created by this call.
func (p *Provisioner) EnsureBaseDisk() (created bool, err error) {
	if fileExists(p.paths.BaseDisk) {
		info, err := p.img.Info(p.paths.BaseDisk)
		if err != nil {
			return false, fmt.Errorf("inspect base disk: %w", err)
		}
		p.log.WithFields(logrus.Fields{
			"path":         p.paths.BaseDisk,
			"virtual_size": info.VirtualSize,
		}).Debug("base disk present")
		return false, nil
	}

	question := fmt.Sprintf("Base disk not found. Create %s (%dG)?", p.paths.BaseDisk, p.diskSizeGB)
	if !p.prompt.Confirm(question, true) {
		return false, fmt.Errorf("base disk %s is required", p.paths.BaseDisk)
	}

	sizeBytes := int64(p.diskSizeGB) << 30
	if err := p.img.Create(p.paths.BaseDisk, sizeBytes); err != nil {
		return false, fmt.Errorf("create base disk: %w", err)
	}
	p.log.WithField("path", p.paths.BaseDisk).Info("created base disk")
	return true, nil
}

// BaseDiskEmpty reports whether the base disk looks uninstalled, by the
// allocated-size heuristic.
func (p *Provisioner) BaseDiskEmpty() (bool, error) {
	info, err := p.img.Info(p.paths.BaseDisk)
	if err != nil {
		return false, fmt.Errorf("inspect base disk: %w", err)
	}
	return info.ActualSize < emptyBaseThreshold, nil
}

// EnsureOverlay creates the copy-on-write overlay when absent and
// validates its backing reference when present. A broken backing
// reference means the overlay is invalid: it is rebuilt only with
// confirmation, never silently reused.
func (p *Provisioner) EnsureOverlay() error {
	if fileExists(p.inst.OverlayDisk) {
		valid, err := p.overlayBackingValid()
		if err != nil {
			return err
		}
		if valid {
			return nil
		}

		p.log.WithField("path", p.inst.OverlayDisk).Warn("overlay backing reference is broken")
		if !p.prompt.Confirm("Overlay disk's backing file is missing. Discard the overlay and recreate it from the current base disk?", true) {
			return fmt.Errorf("overlay %s has a broken backing reference", p.inst.OverlayDisk)
		}
		if err := os.Remove(p.inst.OverlayDisk); err != nil {
			return fmt.Errorf("remove invalid overlay: %w", err)
		}
	}

	if err := p.img.CreateOverlay(p.inst.OverlayDisk, p.paths.BaseDisk); err != nil {
		return fmt.Errorf("create overlay: %w", err)
	}
	p.log.WithFields(logrus.Fields{
		"path":    p.inst.OverlayDisk,
		"backing": p.paths.BaseDisk,
	}).Info("created overlay disk")
	return nil
}

// overlayBackingValid checks that the overlay's backing reference
// resolves to an existing, readable file.
func (p *Provisioner) overlayBackingValid() (bool, error) {
	info, err := p.img.Info(p.inst.OverlayDisk)
	if err != nil {
		return false, fmt.Errorf("inspect overlay: %w", err)
	}
	if info.BackingFilename == "" {
		return false, nil
	}

	backing := info.BackingFilename
	if !filepath.IsAbs(backing) {
		backing = filepath.Join(filepath.Dir(p.inst.OverlayDisk), backing)
	}
	f, err := os.Open(backing)
	if err != nil {
		return false, nil
	}
	f.Close()
	return true, nil
}

// EnsureVarStore copies the variable template into the instance when
// the per-instance store is absent. The store is never shared across
// instances; this copy is the isolation boundary for guest firmware
// writes.
func (p *Provisioner) EnsureVarStore(templatePath string) error {
	if fileExists(p.inst.VarStore) {
		return nil
	}
	if err := copyFile(templatePath, p.inst.VarStore, 0644); err != nil {
		return fmt.Errorf("copy variable store from template: %w", err)
	}
	p.log.WithField("path", p.inst.VarStore).Info("created instance variable store")
	return nil
}

// ScratchVarStore copies the variable template to a disposable
// location for install mode, so installation never pollutes the
// instance's persistent UEFI state. The caller must invoke cleanup.
func ScratchVarStore(templatePath string) (path string, cleanup func(), err error) {
	path = filepath.Join(os.TempDir(), "qvm-vars-"+uuid.NewString()+".fd")
	if err := copyFile(templatePath, path, 0644); err != nil {
		return "", nil, fmt.Errorf("copy scratch variable store: %w", err)
	}
	return path, func() { _ = os.Remove(path) }, nil
}
