package cli

import (
	"context"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Boot the instance from its overlay disk",
	Long: `Boot the instance. All required resources (firmware, base disk,
overlay disk, UEFI variable store) are located or created first,
prompting before anything is built or discarded.

If the base disk has no operating system yet, run diverts into the
installation flow instead of booting an empty disk.`,
	RunE: runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	mgr, _, closer, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer closer.Close()

	return mgr.Run(context.Background())
}
