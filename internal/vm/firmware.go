package vm

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/opencontainers/go-digest"
	"github.com/sirupsen/logrus"

	"github.com/javanstorm/qvm/internal/config"
	"github.com/javanstorm/qvm/internal/prompt"
	"github.com/javanstorm/qvm/pkg/hypervisor"
)

// DefaultFirmwareSearchPaths are the well-known host OVMF locations,
// in priority order. The 4MB variants come first; the legacy images are
// a fallback. The first match wins.
var DefaultFirmwareSearchPaths = []string{
	"/usr/share/OVMF/OVMF_CODE_4M.fd",
	"/usr/share/edk2/x64/OVMF_CODE.4m.fd",
	"/usr/share/edk2/ovmf/OVMF_CODE_4M.fd",
	"/usr/share/OVMF/OVMF_CODE.fd",
	"/usr/share/edk2/ovmf/OVMF_CODE.fd",
	"/usr/share/edk2-ovmf/x64/OVMF_CODE.fd",
	"/usr/share/qemu/OVMF_CODE.fd",
}

// FirmwareManager provisions the shared OVMF code image, its content
// hash record, and the master variable template.
type FirmwareManager struct {
	codePath     string
	hashPath     string
	templatePath string
	searchPaths  []string
	prompt       prompt.Prompter
	log          *logrus.Logger
}

// NewFirmwareManager returns a manager over the shared firmware layout.
func NewFirmwareManager(paths *config.Paths, p prompt.Prompter, log *logrus.Logger) *FirmwareManager {
	return &FirmwareManager{
		codePath:     paths.FirmwareCode(),
		hashPath:     paths.FirmwareCodeHash(),
		templatePath: paths.FirmwareVarsTemplate(),
		searchPaths:  DefaultFirmwareSearchPaths,
		prompt:       p,
		log:          log,
	}
}

// SetSearchPaths overrides the host search locations.
func (m *FirmwareManager) SetSearchPaths(paths []string) {
	m.searchPaths = paths
}

// CodePath returns the provisioned firmware code image path.
func (m *FirmwareManager) CodePath() string { return m.codePath }

// TemplatePath returns the master variable template path.
func (m *FirmwareManager) TemplatePath() string { return m.templatePath }

// Ensure provisions the firmware artifacts. Idempotent: valid existing
// artifacts are never touched. A hash mismatch is corruption and
// requires operator confirmation before re-provisioning. No host
// firmware at all is fatal.
func (m *FirmwareManager) Ensure() error {
	codeOK := fileExists(m.codePath)
	templateOK := fileExists(m.templatePath)

	if codeOK && templateOK {
		ok, err := m.verifyHash()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		m.log.WithField("path", m.codePath).Warn("firmware code image failed hash verification")
		if !m.prompt.Confirm("Firmware code image is corrupted. Delete and re-provision?", true) {
			return fmt.Errorf("firmware hash mismatch for %s: refusing to use corrupted image", m.codePath)
		}
		for _, p := range []string{m.codePath, m.hashPath, m.templatePath} {
			if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("remove corrupted firmware artifact: %w", err)
			}
		}
	}

	return m.provision()
}

// provision searches the host and copies the first matching code image
// plus its sibling VARS file.
func (m *FirmwareManager) provision() error {
	hostCode := ""
	for _, candidate := range m.searchPaths {
		if fileExists(candidate) {
			hostCode = candidate
			break
		}
	}
	if hostCode == "" {
		return fmt.Errorf("%w (install the ovmf package, searched %d locations)",
			hypervisor.ErrFirmwareNotFound, len(m.searchPaths))
	}

	hostVars := siblingVarsPath(hostCode)
	if !fileExists(hostVars) {
		return fmt.Errorf("%w (found %s but no sibling VARS file %s)",
			hypervisor.ErrFirmwareNotFound, hostCode, hostVars)
	}

	if err := os.MkdirAll(filepath.Dir(m.codePath), 0755); err != nil {
		return fmt.Errorf("create firmware dir: %w", err)
	}
	if err := copyFile(hostCode, m.codePath, 0644); err != nil {
		return fmt.Errorf("copy firmware code: %w", err)
	}
	if err := copyFile(hostVars, m.templatePath, 0644); err != nil {
		return fmt.Errorf("copy firmware variable template: %w", err)
	}
	if err := m.writeHash(); err != nil {
		return err
	}

	m.log.WithFields(logrus.Fields{
		"code": hostCode,
		"vars": hostVars,
	}).Info("provisioned firmware from host")
	return nil
}

// verifyHash checks the code image against its recorded digest.
// A missing record counts as valid; the record is best-effort history.
func (m *FirmwareManager) verifyHash() (bool, error) {
	data, err := os.ReadFile(m.hashPath)
	if os.IsNotExist(err) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("read firmware hash record: %w", err)
	}

	recorded, err := digest.Parse(strings.TrimSpace(string(data)))
	if err != nil {
		// An unreadable record is itself stale state; treat as mismatch.
		return false, nil
	}

	actual, err := digestFile(m.codePath)
	if err != nil {
		return false, err
	}
	return actual == recorded, nil
}

func (m *FirmwareManager) writeHash() error {
	d, err := digestFile(m.codePath)
	if err != nil {
		return err
	}
	if err := os.WriteFile(m.hashPath, []byte(d.String()+"\n"), 0644); err != nil {
		return fmt.Errorf("write firmware hash record: %w", err)
	}
	return nil
}

func digestFile(path string) (digest.Digest, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	d, err := digest.FromReader(f)
	if err != nil {
		return "", fmt.Errorf("digest %s: %w", path, err)
	}
	return d, nil
}

// siblingVarsPath derives the VARS file living next to a CODE image,
// e.g. /usr/share/OVMF/OVMF_CODE_4M.fd -> /usr/share/OVMF/OVMF_VARS_4M.fd.
func siblingVarsPath(codePath string) string {
	dir := filepath.Dir(codePath)
	base := strings.Replace(filepath.Base(codePath), "CODE", "VARS", 1)
	return filepath.Join(dir, base)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func copyFile(src, dst string, perm os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}
