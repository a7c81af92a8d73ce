// Package cli provides the command-line interface for qvm.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/javanstorm/qvm/internal/config"
	"github.com/javanstorm/qvm/internal/prompt"
	"github.com/javanstorm/qvm/internal/vm"
)

var rootCmd = &cobra.Command{
	Use:   "qvm",
	Short: "qvm - QEMU virtual machine lifecycle manager",
	Long: `qvm manages the full lifecycle of a QEMU/KVM virtual machine:
firmware and disk provisioning, OS installation, overlay boots,
throwaway snapshot sessions, and instance reset.

The base disk is installed once and shared; each instance boots a
copy-on-write overlay on top of it, so the installed OS is never
modified by normal runs.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	flagName    string
	flagMemory  int
	flagCPUs    int
	flagSSHPort int
	flagMedia   string
	flagYes     bool
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flagName, "name", "n", "", "instance name")
	pf.IntVarP(&flagMemory, "memory", "m", 0, "guest RAM in MB")
	pf.IntVarP(&flagCPUs, "cpus", "c", 0, "guest CPU count")
	pf.IntVar(&flagSSHPort, "ssh-port", 0, "host port forwarded to guest port 22")
	pf.StringVar(&flagMedia, "media", "", "path to the installation ISO")
	pf.BoolVarP(&flagYes, "yes", "y", false, "answer every prompt with its default")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig builds the effective configuration: defaults, config file,
// QVM_* environment, then command-line flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("name") {
		cfg.Name = flagName
	}
	if flags.Changed("memory") {
		cfg.MemoryMB = flagMemory
	}
	if flags.Changed("cpus") {
		cfg.CPUs = flagCPUs
	}
	if flags.Changed("ssh-port") {
		cfg.SSHPort = flagSSHPort
	}
	if flags.Changed("media") {
		cfg.MediaPath = flagMedia
	}
	if flags.Changed("yes") {
		cfg.AssumeYes = flagYes
	}

	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newPrompter picks the prompting strategy: interactive on a terminal,
// auto-answering defaults when scripted or when --yes was given.
func newPrompter(cfg *config.Config) prompt.Prompter {
	if cfg.AssumeYes || !prompt.Stdin() {
		return prompt.NewAuto()
	}
	return prompt.NewTerminal(os.Stdin, os.Stdout)
}

// newSession wires a lifecycle controller and its session log for one
// command invocation. The returned closer flushes the log file.
func newSession(cmd *cobra.Command) (*vm.Manager, *config.Config, io.Closer, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, nil, err
	}

	paths, err := config.GetPaths(cfg.RootDir)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("resolve paths: %w", err)
	}
	inst, err := paths.EnsureInstance(cfg.Name)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create instance directory: %w", err)
	}

	log, closer, err := vm.NewLogger(inst.LogDir)
	if err != nil {
		return nil, nil, nil, err
	}

	mgr, err := vm.NewManager(cfg, newPrompter(cfg), log)
	if err != nil {
		closer.Close()
		return nil, nil, nil, err
	}
	return mgr, cfg, closer, nil
}

// newLocalSession wires a controller for commands that only inspect or
// clean up existing state (status, stop, reset). It creates nothing on
// disk and does not require the hypervisor binaries.
func newLocalSession(cmd *cobra.Command) (*vm.Manager, *config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	mgr, err := vm.NewLocalManager(cfg, newPrompter(cfg), vm.NewDiscardLogger())
	if err != nil {
		return nil, nil, err
	}
	return mgr, cfg, nil
}
