package hypervisor

import (
	"fmt"
	"strconv"
)

// Build translates a mode plus resolved resources into the exact QEMU
// argument list. It is a pure function: fixed inputs always produce the
// identical argument list, and it never inspects the filesystem.
//
// Drive ordering is significant: the firmware code pflash drive must
// precede the variable store pflash drive, or OVMF maps them wrong.
func Build(mode Mode, res Resources, cfg VMConfig) []string {
	args := []string{"-name", cfg.Name}

	if cfg.AccelAvailable {
		args = append(args, "-machine", "q35,accel=kvm", "-cpu", "host")
	} else {
		args = append(args, "-machine", "q35", "-cpu", "max")
	}

	args = append(args, "-smp", strconv.Itoa(cfg.CPUs))
	args = append(args, "-m", fmt.Sprintf("%dM", cfg.MemoryMB))

	// Firmware: code before variables. Snapshot mode discards guest
	// UEFI variable writes the same way it discards disk writes, so
	// the persistent store is only ever read.
	args = append(args, "-drive", "if=pflash,format=raw,readonly=on,file="+res.FirmwareCode)
	varsDrive := "if=pflash,format=raw,file=" + res.VarStore
	if mode == ModeSnapshot {
		varsDrive += ",snapshot=on"
	}
	args = append(args, "-drive", varsDrive)

	switch mode {
	case ModeInstall:
		// The base disk is written directly; the medium boots first.
		args = append(args, "-drive", "file="+res.BaseDisk+",if=virtio,format=qcow2")
		args = append(args, "-drive", "file="+res.Media+",media=cdrom,readonly=on")
		args = append(args, "-boot", "order=d,menu=on")
	case ModeSnapshot:
		args = append(args, "-drive", "file="+res.OverlayDisk+",if=virtio,format=qcow2,snapshot=on")
		args = append(args, "-boot", "order=c")
	default:
		args = append(args, "-drive", "file="+res.OverlayDisk+",if=virtio,format=qcow2")
		args = append(args, "-boot", "order=c")
	}

	// Single forwarded port: host SSH port -> guest 22, fixed MAC.
	args = append(args, "-device", "virtio-net-pci,netdev=net0,mac="+cfg.MACAddress)
	args = append(args, "-netdev", fmt.Sprintf("user,id=net0,hostfwd=tcp:127.0.0.1:%d-:22", cfg.SSHPort))

	args = append(args, "-device", "virtio-rng-pci")

	if cfg.AudioAvailable {
		args = append(args, "-audiodev", "alsa,id=snd0")
		args = append(args, "-device", "intel-hda")
		args = append(args, "-device", "hda-output,audiodev=snd0")
	}

	args = append(args, "-display", "none")
	args = append(args, "-serial", "mon:stdio")

	return args
}
