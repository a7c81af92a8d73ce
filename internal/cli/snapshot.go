package cli

import (
	"context"

	"github.com/spf13/cobra"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Boot a throwaway session",
	Long: `Boot the instance with every disk write discarded when the guest
exits. The overlay disk and base disk are left exactly as they were.
Useful for trying out packages or risky changes.`,
	RunE: runSnapshot,
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	mgr, _, closer, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer closer.Close()

	return mgr.Snapshot(context.Background())
}
