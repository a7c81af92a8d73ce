package cli

import (
	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Wipe the instance's overlay and firmware variables",
	Long: `Delete the instance's mutable artifacts: the overlay disk, its UEFI
variable store, the lock and PID records, and its logs. The shared
base disk and the host firmware copy are preserved, so the next run
boots the installed OS from a clean overlay.

Refuses to run while the instance is running.`,
	RunE: runReset,
}

func runReset(cmd *cobra.Command, args []string) error {
	mgr, _, err := newLocalSession(cmd)
	if err != nil {
		return err
	}
	return mgr.Reset()
}
