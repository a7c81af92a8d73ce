package hypervisor

import "errors"

// Fatal errors: required host software is absent and the tool cannot
// install it. Callers report remediation text and exit non-zero.
var (
	ErrQEMUNotFound     = errors.New("hypervisor: qemu-system binary not found in PATH")
	ErrQEMUImgNotFound  = errors.New("hypervisor: qemu-img binary not found in PATH")
	ErrFirmwareNotFound = errors.New("hypervisor: no OVMF firmware found on host")
)

// Contention errors.
var (
	ErrAlreadyRunning = errors.New("hypervisor: instance is already running")
)

// Degraded-mode conditions.
var (
	ErrAccelUnavailable = errors.New("hypervisor: KVM acceleration unavailable")
)

// Configuration errors.
var (
	ErrInvalidCPUCount    = errors.New("hypervisor: CPU count must be at least 1")
	ErrInsufficientMemory = errors.New("hypervisor: memory must be at least 512MB")
	ErrMissingFirmware    = errors.New("hypervisor: firmware code path is required")
	ErrMissingVarStore    = errors.New("hypervisor: variable store path is required")
	ErrMissingDisk        = errors.New("hypervisor: disk path is required")
	ErrMissingMedia       = errors.New("hypervisor: installation medium is required for install mode")
)
