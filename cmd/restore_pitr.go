package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zafrullakhan001/drydock/pkg/models"
)

var (
	pitrYes        bool
	pitrTargetTime string
	pitrTargetXID  string
	pitrTargetName string
	pitrTargetLSN  string
)

var restorePITRCmd = &cobra.Command{
	Use:   "pitr [base-backup] [wal-dir]",
	Short: "Recover to a point in time",
	Long: "Replace the data volume with a physical base backup, then replay archived wal segments " +
		"up to the requested target (or to the end of the archive)",
	Args: cobra.ExactArgs(2),
	Run:  runRestorePITR,
}

func runRestorePITR(cmd *cobra.Command, args []string) {
	basePath := args[0]
	walDir := args[1]

	target, err := recoveryTargetFromFlags()
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("[error] %v", err)))
		os.Exit(1)
	}

	cfg := mustConfig()

	fmt.Println(titleStyle.Render(fmt.Sprintf("==> point-in-time recovery into: %s", cfg.Target.Container)))
	fmt.Println()
	fmt.Printf("    %s %s\n", dimStyle.Render("base backup:"), valueStyle.Render(basePath))
	fmt.Printf("    %s %s\n", dimStyle.Render("wal archive:"), valueStyle.Render(walDir))
	if target != nil {
		fmt.Printf("    %s %s\n", dimStyle.Render("target:"), valueStyle.Render(target.String()))
	} else {
		fmt.Printf("    %s %s\n", dimStyle.Render("target:"), valueStyle.Render("end of the archive"))
	}
	fmt.Println()

	if !confirmReplace(cfg.Target.Container, pitrYes) {
		return
	}

	client := mustRuntime(cfg)
	defer client.Close()

	runLog := mustRunLog(cfg, "restore-pitr")
	defer runLog.Close()

	engine := newRestoreEngine(cfg, client, runLog)

	res, err := engine.RestorePITR(context.Background(), basePath, walDir, target)
	if err != nil {
		printRestoreFailure(res, err, runLog.Path())
	}
	printRestoreSuccess(res, runLog.Path())
}

// recoveryTargetFromFlags builds the replay target from whichever --target-*
// flag was given. More than one is an error; none means replay everything.
func recoveryTargetFromFlags() (*models.RecoveryTarget, error) {
	type flagged struct {
		kind  models.RecoveryTargetKind
		value string
	}
	var set []flagged
	if pitrTargetTime != "" {
		set = append(set, flagged{models.RecoveryTargetTime, pitrTargetTime})
	}
	if pitrTargetXID != "" {
		set = append(set, flagged{models.RecoveryTargetXID, pitrTargetXID})
	}
	if pitrTargetName != "" {
		set = append(set, flagged{models.RecoveryTargetName, pitrTargetName})
	}
	if pitrTargetLSN != "" {
		set = append(set, flagged{models.RecoveryTargetLSN, pitrTargetLSN})
	}

	switch len(set) {
	case 0:
		return nil, nil
	case 1:
		return models.NewRecoveryTarget(set[0].kind, set[0].value)
	default:
		return nil, fmt.Errorf("at most one of --target-time, --target-xid, --target-name, --target-lsn can be set")
	}
}

func init() {
	restorePITRCmd.Flags().BoolVar(&pitrYes, "yes", false, "skip the confirmation prompt")
	restorePITRCmd.Flags().StringVar(&pitrTargetTime, "target-time", "", "stop replay at this timestamp (RFC3339 or '2006-01-02 15:04:05')")
	restorePITRCmd.Flags().StringVar(&pitrTargetXID, "target-xid", "", "stop replay at this transaction id")
	restorePITRCmd.Flags().StringVar(&pitrTargetName, "target-name", "", "stop replay at this named restore point")
	restorePITRCmd.Flags().StringVar(&pitrTargetLSN, "target-lsn", "", "stop replay at this lsn (e.g. 0/3000028)")
	restoreCmd.AddCommand(restorePITRCmd)
}
