package cli

import (
	"context"

	"github.com/spf13/cobra"
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install an operating system onto the base disk",
	Long: `Boot an installation medium against the base disk. The medium is
taken from --media (or the media_path config key); without one, common
download locations are searched for ISO files and you pick one
interactively.

Installation writes permanently to the shared base disk. The
instance's persistent UEFI variables are not touched: the installer
session runs on a disposable scratch copy.`,
	RunE: runInstall,
}

func runInstall(cmd *cobra.Command, args []string) error {
	mgr, _, closer, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer closer.Close()

	return mgr.Install(context.Background())
}
