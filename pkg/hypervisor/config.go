package hypervisor

// Mode selects what the built command line targets.
type Mode int

const (
	// ModeRun boots the overlay disk with normal read/write semantics.
	ModeRun Mode = iota

	// ModeInstall boots the installation medium and writes directly to
	// the base disk. Writes are permanent.
	ModeInstall

	// ModeSnapshot boots the overlay disk with snapshot=on: every write
	// is discarded when the process exits.
	ModeSnapshot
)

func (m Mode) String() string {
	switch m {
	case ModeRun:
		return "run"
	case ModeInstall:
		return "install"
	case ModeSnapshot:
		return "snapshot"
	default:
		return "unknown"
	}
}

// Resources holds the resolved artifact paths a command line is built from.
// The provisioner fills this in; the builder never touches the filesystem.
type Resources struct {
	// FirmwareCode is the read-only OVMF code image, attached as the
	// first pflash drive.
	FirmwareCode string

	// VarStore is the writable UEFI variable store attached as the
	// second pflash drive. For install mode this is a disposable scratch
	// copy of the template, never the instance's persistent store.
	VarStore string

	// BaseDisk is the shared base image. Only install mode attaches it.
	BaseDisk string

	// OverlayDisk is the per-instance copy-on-write disk. Run and
	// snapshot modes attach it; install mode never does.
	OverlayDisk string

	// Media is the installation medium (ISO). Required for install mode.
	Media string
}

// VMConfig holds the guest parameters for a launch.
type VMConfig struct {
	// Name is the instance name, passed to -name.
	Name string

	// CPUs is the number of virtual CPUs.
	CPUs int

	// MemoryMB is the amount of memory in megabytes.
	MemoryMB int

	// SSHPort is the host port forwarded to guest port 22.
	SSHPort int

	// MACAddress is the fixed guest hardware address. Stable across runs
	// so the guest's network identity does not change between sessions.
	MACAddress string

	// AccelAvailable reports whether /dev/kvm was usable at probe time.
	// When false the builder omits all acceleration flags; the caller is
	// responsible for warning the operator first.
	AccelAvailable bool

	// AudioAvailable reports whether a host audio device was detected.
	// Audio is non-essential and omitted silently when absent.
	AudioAvailable bool
}

// Validate checks the configuration and the resources for the given mode.
func (c *VMConfig) Validate(mode Mode, res Resources) error {
	if c.CPUs < 1 {
		return ErrInvalidCPUCount
	}
	if c.MemoryMB < 512 {
		return ErrInsufficientMemory
	}
	if res.FirmwareCode == "" {
		return ErrMissingFirmware
	}
	if res.VarStore == "" {
		return ErrMissingVarStore
	}
	switch mode {
	case ModeInstall:
		if res.BaseDisk == "" {
			return ErrMissingDisk
		}
		if res.Media == "" {
			return ErrMissingMedia
		}
	case ModeRun, ModeSnapshot:
		if res.OverlayDisk == "" {
			return ErrMissingDisk
		}
	}
	return nil
}
