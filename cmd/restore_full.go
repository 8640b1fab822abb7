package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zafrullakhan001/drydock/pkg/models"
)

var restoreFullYes bool

var restoreFullCmd = &cobra.Command{
	Use:   "full [backup-path] [logical|physical]",
	Short: "Restore from a full backup",
	Long:  "Import a logical dump into the running server, or replace the data volume with a physical base backup",
	Args:  cobra.ExactArgs(2),
	Run:   runRestoreFull,
}

func runRestoreFull(cmd *cobra.Command, args []string) {
	backupPath := args[0]
	kind := models.BackupKind(strings.ToLower(args[1]))
	if kind != models.BackupKindLogical && kind != models.BackupKindPhysical {
		fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("[error] unknown backup kind %q (use logical or physical)", args[1])))
		os.Exit(1)
	}

	cfg := mustConfig()

	fmt.Println(titleStyle.Render(fmt.Sprintf("==> restoring %s backup into: %s", kind, cfg.Target.Container)))
	fmt.Println()
	fmt.Printf("    %s %s\n", dimStyle.Render("backup:"), valueStyle.Render(backupPath))
	fmt.Println()

	if !confirmReplace(cfg.Target.Container, restoreFullYes) {
		return
	}

	client := mustRuntime(cfg)
	defer client.Close()

	runLog := mustRunLog(cfg, "restore-full")
	defer runLog.Close()

	engine := newRestoreEngine(cfg, client, runLog)

	res, err := engine.RestoreFull(context.Background(), kind, backupPath)
	if err != nil {
		printRestoreFailure(res, err, runLog.Path())
	}
	printRestoreSuccess(res, runLog.Path())
}

func init() {
	restoreFullCmd.Flags().BoolVar(&restoreFullYes, "yes", false, "skip the confirmation prompt")
	restoreCmd.AddCommand(restoreFullCmd)
}
