package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/javanstorm/qvm/internal/vm"
	"github.com/javanstorm/qvm/pkg/hypervisor"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show instance and resource state",
	Long:  `Display the instance's run state, its on-disk resources, and its boot history. Never changes anything.`,
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	mgr, _, err := newLocalSession(cmd)
	if err != nil {
		return err
	}

	report, err := mgr.Status()
	if err != nil {
		return err
	}

	fmt.Printf("Instance: %s\n", report.Name)
	if report.Running {
		fmt.Printf("  State: running (PID %d)\n", report.PID)
	} else {
		fmt.Printf("  State: stopped\n")
	}
	if report.LockHeld && !report.Running {
		fmt.Printf("  Lock: held by PID %d (stale, reclaimed on next run)\n", report.LockPID)
	}

	fmt.Println()
	if info, err := hypervisor.Detect(); err != nil {
		fmt.Printf("Hypervisor: unavailable (%v)\n", err)
	} else {
		fmt.Printf("Hypervisor: %s v%s (%s)\n", info.Binary, info.Version, info.Arch)
	}

	fmt.Println()
	fmt.Println("Resources:")
	printResource("Firmware code", report.FirmwareCode)
	printResource("Variable template", report.VarsTemplate)
	printResource("Base disk", report.BaseDisk)
	printResource("Overlay disk", report.OverlayDisk)
	printResource("Variable store", report.VarStore)

	fmt.Println()
	printHistory(report.History)
	return nil
}

func printResource(label string, st vm.ResourceStatus) {
	if !st.Present {
		fmt.Printf("  %-18s missing (%s)\n", label+":", st.Path)
		return
	}
	fmt.Printf("  %-18s %s (%.2f MB)\n", label+":", st.Path, float64(st.SizeBytes)/(1024*1024))
}

func printHistory(state *vm.PersistentState) {
	if state == nil || state.BootCount == 0 {
		fmt.Println("History: never booted")
		return
	}

	fmt.Println("History:")
	fmt.Printf("  Boot count: %d\n", state.BootCount)
	if state.LastMode != "" {
		fmt.Printf("  Last mode: %s\n", state.LastMode)
	}
	if !state.LastBoot.IsZero() {
		fmt.Printf("  Last boot: %s\n", state.LastBoot.Format("2006-01-02 15:04:05"))
	}
	if !state.LastShutdown.IsZero() {
		fmt.Printf("  Last shutdown: %s\n", state.LastShutdown.Format("2006-01-02 15:04:05"))
		if state.CleanShutdown {
			fmt.Printf("  Shutdown type: clean\n")
		} else {
			fmt.Printf("  Shutdown type: unclean\n")
		}
	}
}
