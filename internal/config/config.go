// Package config provides configuration management for qvm.
//
// Configuration is constructed exactly once at startup from defaults,
// an optional config file, and QVM_* environment variables, then passed
// by reference into every component. No other package reads the process
// environment.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all qvm configuration.
type Config struct {
	// Name is the instance name.
	Name string `mapstructure:"name"`

	// MemoryMB is the amount of RAM in megabytes allocated to the guest.
	MemoryMB int `mapstructure:"memory_mb"`

	// CPUs is the number of virtual CPUs allocated to the guest.
	CPUs int `mapstructure:"cpus"`

	// DiskSizeGB is the base disk virtual size in gigabytes.
	DiskSizeGB int `mapstructure:"disk_size_gb"`

	// SSHPort is the host port forwarded to guest port 22.
	SSHPort int `mapstructure:"ssh_port"`

	// MACAddress is the fixed guest hardware address, stable across runs.
	MACAddress string `mapstructure:"mac_address"`

	// MediaPath is an explicit installation medium path (empty = search).
	MediaPath string `mapstructure:"media_path"`

	// RootDir overrides the default ~/.qvm root directory.
	RootDir string `mapstructure:"root_dir"`

	// AssumeYes suppresses all interactive prompts, assuming the
	// affirmative default. Intended for scripted use.
	AssumeYes bool `mapstructure:"assume_yes"`

	// SSHUser is the default username for SSH connections.
	SSHUser string `mapstructure:"ssh_user"`

	// SSHKeyPath overrides the managed SSH key location.
	SSHKeyPath string `mapstructure:"ssh_key_path"`
}

// DefaultConfig returns a Config with fixed defaults.
func DefaultConfig() *Config {
	return &Config{
		Name:       "default",
		MemoryMB:   4096,
		CPUs:       4,
		DiskSizeGB: 40,
		SSHPort:    2222,
		MACAddress: "52:54:00:7a:6b:01",
		MediaPath:  "",
		RootDir:    "",
		AssumeYes:  false,
		SSHUser:    "user",
		SSHKeyPath: "",
	}
}

// Load reads configuration from file, environment, and defaults.
func Load() (*Config, error) {
	paths, err := GetPaths("")
	if err != nil {
		return nil, fmt.Errorf("determine paths: %w", err)
	}

	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("name", defaults.Name)
	v.SetDefault("memory_mb", defaults.MemoryMB)
	v.SetDefault("cpus", defaults.CPUs)
	v.SetDefault("disk_size_gb", defaults.DiskSizeGB)
	v.SetDefault("ssh_port", defaults.SSHPort)
	v.SetDefault("mac_address", defaults.MACAddress)
	v.SetDefault("media_path", defaults.MediaPath)
	v.SetDefault("root_dir", defaults.RootDir)
	v.SetDefault("assume_yes", defaults.AssumeYes)
	v.SetDefault("ssh_user", defaults.SSHUser)
	v.SetDefault("ssh_key_path", defaults.SSHKeyPath)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(paths.RootDir)
	v.AddConfigPath(paths.ConfigDir)

	// Environment variable support: QVM_NAME, QVM_MEMORY_MB, etc.
	v.SetEnvPrefix("QVM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// Config file not found is fine, defaults apply.
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
