// Package hypervisor locates the QEMU binaries on the host, probes
// hardware acceleration, and builds argument lists for launches. It
// treats QEMU as an opaque subprocess: no device emulation or guest
// protocol lives here.
package hypervisor

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// Info contains detected hypervisor metadata.
type Info struct {
	Binary  string // resolved qemu-system path
	Version string
	Arch    string
}

// binaryName returns the qemu-system binary for the host architecture.
func binaryName() string {
	switch runtime.GOARCH {
	case "amd64":
		return "qemu-system-x86_64"
	case "arm64":
		return "qemu-system-aarch64"
	default:
		return "qemu-system-" + runtime.GOARCH
	}
}

// FindBinary resolves the qemu-system binary in PATH.
// A missing binary is fatal: installing QEMU is host-level work this
// tool cannot do.
func FindBinary() (string, error) {
	path, err := exec.LookPath(binaryName())
	if err != nil {
		return "", fmt.Errorf("%w (install the qemu package for your distribution)", ErrQEMUNotFound)
	}
	return path, nil
}

// FindImgBinary resolves the qemu-img binary in PATH.
func FindImgBinary() (string, error) {
	path, err := exec.LookPath("qemu-img")
	if err != nil {
		return "", fmt.Errorf("%w (install the qemu-utils package for your distribution)", ErrQEMUImgNotFound)
	}
	return path, nil
}

// Detect resolves the hypervisor binary and reports its version.
func Detect() (Info, error) {
	bin, err := FindBinary()
	if err != nil {
		return Info{}, err
	}
	info := Info{Binary: bin, Arch: runtime.GOARCH, Version: "unknown"}
	out, err := exec.Command(bin, "--version").Output()
	if err == nil {
		info.Version = parseVersion(string(out))
	}
	return info, nil
}

// parseVersion extracts the version token from `qemu-system-* --version`
// output, e.g. "QEMU emulator version 8.2.2 (...)" -> "8.2.2".
func parseVersion(out string) string {
	line, _, _ := strings.Cut(out, "\n")
	fields := strings.Fields(line)
	for i, f := range fields {
		if f == "version" && i+1 < len(fields) {
			return fields[i+1]
		}
	}
	return "unknown"
}
