package cli

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/javanstorm/qvm/internal/config"
	"github.com/javanstorm/qvm/internal/vm"
)

var sshCmd = &cobra.Command{
	Use:   "ssh",
	Short: "Manage SSH access to the guest",
	Long: `Manage the SSH key pair and connect to the guest. The guest's SSH
port is forwarded to a host port (ssh_port, default 2222) while the
instance is running.

Examples:
  qvm ssh keygen    # Generate the managed key pair
  qvm ssh pubkey    # Print the public key for authorized_keys
  qvm ssh connect   # Open an SSH session to the running guest`,
}

var sshKeygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate an SSH key pair for guest access",
	Long:  `Generate an ed25519 key pair for guest access. Keys are stored under the qvm root directory.`,
	RunE:  runSSHKeygen,
}

var sshPubkeyCmd = &cobra.Command{
	Use:   "pubkey",
	Short: "Print the public key for authorized_keys",
	Long:  `Print the public key line, suitable for appending to ~/.ssh/authorized_keys inside the guest.`,
	RunE:  runSSHPubkey,
}

var sshConnectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Open an SSH session to the running guest",
	RunE:  runSSHConnect,
}

func init() {
	sshCmd.AddCommand(sshKeygenCmd)
	sshCmd.AddCommand(sshPubkeyCmd)
	sshCmd.AddCommand(sshConnectCmd)
	rootCmd.AddCommand(sshCmd)
}

func sshKeyManager(cmd *cobra.Command) (*vm.SSHKeyManager, *config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	paths, err := config.GetPaths(cfg.RootDir)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve paths: %w", err)
	}

	dir := paths.SSHDir
	if cfg.SSHKeyPath != "" {
		dir = cfg.SSHKeyPath
	}
	return vm.NewSSHKeyManager(dir), cfg, nil
}

func runSSHKeygen(cmd *cobra.Command, args []string) error {
	mgr, _, err := sshKeyManager(cmd)
	if err != nil {
		return err
	}

	if mgr.KeyPairExists() {
		privPath, _ := mgr.PrivateKeyPath()
		fmt.Println("SSH key pair already exists:")
		fmt.Printf("  Private key: %s\n", privPath)
		fmt.Printf("  Public key:  %s.pub\n", privPath)
		return nil
	}

	privPath, pubPath, err := mgr.EnsureKeyPair()
	if err != nil {
		return fmt.Errorf("generate key pair: %w", err)
	}

	fmt.Println("SSH key pair generated:")
	fmt.Printf("  Private key: %s\n", privPath)
	fmt.Printf("  Public key:  %s\n", pubPath)
	fmt.Println()
	fmt.Println("Inside the guest, add the public key for passwordless login:")
	fmt.Println("  mkdir -p ~/.ssh && chmod 700 ~/.ssh")
	fmt.Println("  qvm ssh pubkey  # on the host; append the output to ~/.ssh/authorized_keys")
	return nil
}

func runSSHPubkey(cmd *cobra.Command, args []string) error {
	mgr, _, err := sshKeyManager(cmd)
	if err != nil {
		return err
	}

	content, err := mgr.PublicKeyContent()
	if err != nil {
		return err
	}
	// Just the key line, for piping.
	fmt.Print(content)
	return nil
}

func runSSHConnect(cmd *cobra.Command, args []string) error {
	mgr, cfg, err := sshKeyManager(cmd)
	if err != nil {
		return err
	}

	sshBin, err := exec.LookPath("ssh")
	if err != nil {
		return fmt.Errorf("ssh not found in PATH: %w", err)
	}

	sshArgs := []string{
		"-p", fmt.Sprintf("%d", cfg.SSHPort),
		"-o", "StrictHostKeyChecking=no",
		"-o", "UserKnownHostsFile=/dev/null",
	}
	if privPath, err := mgr.PrivateKeyPath(); err == nil {
		sshArgs = append(sshArgs, "-i", privPath)
	}
	sshArgs = append(sshArgs, fmt.Sprintf("%s@127.0.0.1", cfg.SSHUser))

	c := exec.Command(sshBin, sshArgs...)
	c.Stdin = os.Stdin
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	return c.Run()
}
