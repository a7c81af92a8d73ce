package cli

import (
	"os"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/javanstorm/qvm/internal/config"
	"github.com/javanstorm/qvm/internal/prompt"
)

// resetFlags undoes flag mutations so tests don't leak into each other.
func resetFlags(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		rootCmd.PersistentFlags().VisitAll(func(f *pflag.Flag) {
			f.Changed = false
			_ = f.Value.Set(f.DefValue)
		})
	})
}

func flagCommand(t *testing.T) *cobra.Command {
	t.Helper()
	resetFlags(t)
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().AddFlagSet(rootCmd.PersistentFlags())
	return cmd
}

func TestLoadConfigFlagOverrides(t *testing.T) {
	t.Setenv("QVM_ROOT_DIR", t.TempDir())

	cmd := flagCommand(t)
	if err := cmd.Flags().Set("name", "work"); err != nil {
		t.Fatal(err)
	}
	if err := cmd.Flags().Set("memory", "8192"); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Name != "work" {
		t.Errorf("Name = %q, want flag override", cfg.Name)
	}
	if cfg.MemoryMB != 8192 {
		t.Errorf("MemoryMB = %d, want flag override", cfg.MemoryMB)
	}
	// Untouched keys keep their defaults.
	if cfg.CPUs != config.DefaultConfig().CPUs {
		t.Errorf("CPUs = %d, want default", cfg.CPUs)
	}
}

func TestLoadConfigRejectsInvalidOverride(t *testing.T) {
	t.Setenv("QVM_ROOT_DIR", t.TempDir())

	cmd := flagCommand(t)
	if err := cmd.Flags().Set("cpus", "0"); err != nil {
		t.Fatal(err)
	}

	if _, err := loadConfig(cmd); err == nil {
		t.Error("cpus=0 must fail validation")
	}
}

func TestLocalSessionCreatesNothing(t *testing.T) {
	root := t.TempDir()
	t.Setenv("QVM_ROOT_DIR", root)

	cmd := flagCommand(t)
	if _, _, err := newLocalSession(cmd); err != nil {
		t.Fatalf("newLocalSession: %v", err)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("inspection session created files under the root: %v", entries)
	}
}

func TestNewPrompterAssumeYes(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.AssumeYes = true

	if _, ok := newPrompter(cfg).(*prompt.Auto); !ok {
		t.Error("assume_yes must select the auto prompter")
	}
}

func TestNewPrompterNonInteractive(t *testing.T) {
	// Under go test, stdin is not a terminal.
	cfg := config.DefaultConfig()

	if _, ok := newPrompter(cfg).(*prompt.Auto); !ok {
		t.Error("non-terminal stdin must select the auto prompter")
	}
}
