package vm

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/ssh"
)

// SSHKeyManager handles the managed ed25519 key pair for guest access.
type SSHKeyManager struct {
	dir string
}

// NewSSHKeyManager stores keys in the given directory.
func NewSSHKeyManager(dir string) *SSHKeyManager {
	return &SSHKeyManager{dir: dir}
}

func (m *SSHKeyManager) privateKeyPath() string {
	return filepath.Join(m.dir, "id_ed25519")
}

func (m *SSHKeyManager) publicKeyPath() string {
	return filepath.Join(m.dir, "id_ed25519.pub")
}

// KeyPairExists returns true if both halves of the pair exist.
func (m *SSHKeyManager) KeyPairExists() bool {
	_, privErr := os.Stat(m.privateKeyPath())
	_, pubErr := os.Stat(m.publicKeyPath())
	return privErr == nil && pubErr == nil
}

// EnsureKeyPair generates an ed25519 key pair if it doesn't exist.
// Returns paths to the private and public key files.
func (m *SSHKeyManager) EnsureKeyPair() (privateKeyPath, publicKeyPath string, err error) {
	privPath := m.privateKeyPath()
	pubPath := m.publicKeyPath()

	if m.KeyPairExists() {
		return privPath, pubPath, nil
	}

	if err := os.MkdirAll(m.dir, 0700); err != nil {
		return "", "", fmt.Errorf("create ssh directory: %w", err)
	}

	pubKey, privKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return "", "", fmt.Errorf("generate ed25519 key: %w", err)
	}

	pemBlock, err := ssh.MarshalPrivateKey(privKey, "qvm key")
	if err != nil {
		return "", "", fmt.Errorf("marshal private key: %w", err)
	}
	if err := os.WriteFile(privPath, pem.EncodeToMemory(pemBlock), 0600); err != nil {
		return "", "", fmt.Errorf("write private key: %w", err)
	}

	sshPubKey, err := ssh.NewPublicKey(pubKey)
	if err != nil {
		os.Remove(privPath)
		return "", "", fmt.Errorf("convert public key: %w", err)
	}
	authorized := strings.TrimSuffix(string(ssh.MarshalAuthorizedKey(sshPubKey)), "\n")
	keyLine := authorized + " qvm\n"
	if err := os.WriteFile(pubPath, []byte(keyLine), 0644); err != nil {
		os.Remove(privPath)
		return "", "", fmt.Errorf("write public key: %w", err)
	}

	return privPath, pubPath, nil
}

// PrivateKeyPath returns the private key path, or an error if no key
// pair was generated yet.
func (m *SSHKeyManager) PrivateKeyPath() (string, error) {
	path := m.privateKeyPath()
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("SSH key not generated; run 'qvm ssh keygen' first")
		}
		return "", err
	}
	return path, nil
}

// PublicKeyContent returns the public key line for authorized_keys.
func (m *SSHKeyManager) PublicKeyContent() (string, error) {
	content, err := os.ReadFile(m.publicKeyPath())
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("SSH key not generated; run 'qvm ssh keygen' first")
		}
		return "", err
	}
	return string(content), nil
}
