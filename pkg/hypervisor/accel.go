package hypervisor

import (
	"os"

	"golang.org/x/sys/unix"
)

const kvmDevice = "/dev/kvm"

// AccelUsable reports whether KVM acceleration can actually be used:
// the device must exist and be both readable and writable by this
// process. Existence alone is not enough; a common failure is a user
// missing from the kvm group.
func AccelUsable() bool {
	return unix.Access(kvmDevice, unix.R_OK|unix.W_OK) == nil
}

// AudioUsable reports whether the host exposes a sound device. Audio is
// non-essential: when absent the command builder omits it silently.
func AudioUsable() bool {
	_, err := os.Stat("/dev/snd")
	return err == nil
}
