package config

import (
	"fmt"
	"net"
	"strings"
)

// Validate checks configuration values that would otherwise surface as
// confusing QEMU failures at launch time.
func Validate(cfg *Config) error {
	if cfg.Name == "" {
		return fmt.Errorf("config: instance name must not be empty")
	}
	if strings.ContainsAny(cfg.Name, "/\\ ") {
		return fmt.Errorf("config: instance name %q must not contain path separators or spaces", cfg.Name)
	}
	if cfg.CPUs < 1 {
		return fmt.Errorf("config: cpus must be at least 1, got %d", cfg.CPUs)
	}
	if cfg.MemoryMB < 512 {
		return fmt.Errorf("config: memory_mb must be at least 512, got %d", cfg.MemoryMB)
	}
	if cfg.DiskSizeGB < 1 {
		return fmt.Errorf("config: disk_size_gb must be at least 1, got %d", cfg.DiskSizeGB)
	}
	if cfg.SSHPort < 1 || cfg.SSHPort > 65535 {
		return fmt.Errorf("config: ssh_port %d out of range", cfg.SSHPort)
	}
	if _, err := net.ParseMAC(cfg.MACAddress); err != nil {
		return fmt.Errorf("config: invalid mac_address %q: %w", cfg.MACAddress, err)
	}
	return nil
}
