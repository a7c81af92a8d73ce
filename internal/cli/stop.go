package cli

import (
	"github.com/spf13/cobra"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running instance",
	Long: `Stop the running instance, escalating from SIGTERM to SIGKILL if it
does not shut down within ten seconds. The instance lock and PID
record are cleared either way.`,
	RunE: runStop,
}

func runStop(cmd *cobra.Command, args []string) error {
	mgr, _, err := newLocalSession(cmd)
	if err != nil {
		return err
	}
	return mgr.Stop()
}
