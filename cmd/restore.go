package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/zafrullakhan001/drydock/internal/docker"
	"github.com/zafrullakhan001/drydock/internal/logging"
	"github.com/zafrullakhan001/drydock/internal/postgres"
	"github.com/zafrullakhan001/drydock/internal/readiness"
	"github.com/zafrullakhan001/drydock/internal/restore"
	"github.com/zafrullakhan001/drydock/internal/safety"
	"github.com/zafrullakhan001/drydock/pkg/models"
)

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Restore the database from backups",
	Long:  "Restore the target database from a full backup, or to a point in time from a base backup plus archived wal",
}

// confirmReplace makes the operator type the container name before anything
// destructive runs. Skipped with --yes.
func confirmReplace(container string, skip bool) bool {
	if skip {
		return true
	}

	fmt.Println(errorStyle.Render("[warn]  warning: this will replace all data in '" + container + "'"))
	fmt.Println(labelStyle.Render("   a safety snapshot of the volume is taken before anything destructive"))
	fmt.Println()
	fmt.Print(labelStyle.Render("type the container name to confirm: "))

	var confirmation string
	fmt.Scanln(&confirmation)

	if strings.TrimSpace(confirmation) != container {
		fmt.Println(labelStyle.Render("\nrestore cancelled."))
		return false
	}
	fmt.Println()
	return true
}

func newRestoreEngine(cfg *models.Config, client *docker.Client, runLog *logging.RunLog) *restore.Engine {
	ctrl := postgres.NewController(client, cfg.Target)
	return restore.NewEngine(restore.Options{
		Runtime:      client,
		Controller:   ctrl,
		Target:       cfg.Target,
		Snapshots:    safety.NewManager(client, cfg.Target.Volume, cfg.Safety.HelperImage, runLog.Logger),
		Monitor:      readiness.NewMonitor(ctrl, runLog.Logger),
		HelperImage:  cfg.Safety.HelperImage,
		SnapshotDir:  cfg.Safety.SnapshotDir,
		ReadyTimeout: time.Duration(cfg.Readiness.TimeoutSeconds) * time.Second,
		PollInterval: time.Duration(cfg.Readiness.PollIntervalSeconds) * time.Second,
		Log:          runLog.Logger,
		OnState:      printRestoreState,
	})
}

func stateLabel(st restore.State) string {
	switch st {
	case restore.StateValidating:
		return "validating backup artifact..."
	case restore.StateSnapshotting:
		return "taking safety snapshot of the volume..."
	case restore.StateImporting:
		return "importing dump into the running server..."
	case restore.StateStopped:
		return "stopping container..."
	case restore.StateClearing:
		return "clearing data volume..."
	case restore.StateCopying:
		return "copying backup into the volume..."
	case restore.StateRestoringBase:
		return "unpacking base backup into the volume..."
	case restore.StateConfiguringRecovery:
		return "staging wal segments and recovery settings..."
	case restore.StateStarting:
		return "starting container..."
	case restore.StateAwaitingReady:
		return "waiting for the server to accept connections..."
	case restore.StateVerifying:
		return "verifying server responses..."
	}
	return string(st)
}

func printRestoreState(st restore.State) {
	if st == restore.StateDone || st == restore.StateFailed {
		return
	}
	fmt.Println(progressStyle.Render("  --> " + stateLabel(st)))
}

func printRestoreFailure(res *restore.Result, err error, logPath string) {
	fmt.Println()
	fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("  [error] restore failed: %v", err)))

	if res != nil && res.Snapshot != nil {
		fmt.Println()
		fmt.Println(labelStyle.Render("  the volume was snapshotted before anything destructive:"))
		fmt.Printf("    %s %s\n", dimStyle.Render("snapshot:"), valueStyle.Render(res.Snapshot.ArchivePath))
		fmt.Printf("      %s\n", dimStyle.Render("unpack it into the volume to roll back"))
	}

	fmt.Println(dimStyle.Render("  run log: " + logPath))
	os.Exit(1)
}

func printRestoreSuccess(res *restore.Result, logPath string) {
	fmt.Println()
	fmt.Println(successStyle.Render("  [done] restore complete"))
	fmt.Println()

	fmt.Println(labelStyle.Render("  restore details:"))
	fmt.Printf("    %s %s\n", dimStyle.Render("elapsed:"), valueStyle.Render(res.Elapsed.Round(time.Millisecond).String()))
	if res.Record != nil {
		fmt.Printf("    %s %s\n", dimStyle.Render("backup id:"), valueStyle.Render(res.Record.ID))
	}
	if res.PostgresVersion != "" {
		fmt.Printf("    %s %s\n", dimStyle.Render("postgres:"), valueStyle.Render(res.PostgresVersion))
	}
	if res.ObservedTime != "" {
		fmt.Printf("    %s %s\n", dimStyle.Render("server time:"), valueStyle.Render(res.ObservedTime))
	}
	if res.Snapshot != nil {
		fmt.Printf("    %s %s\n", dimStyle.Render("snapshot:"), infoStyle.Render(res.Snapshot.ArchivePath))
	}
	fmt.Println()

	if len(res.Warnings) > 0 {
		fmt.Println(errorStyle.Render(fmt.Sprintf("  [warn] completed with %d warning(s):", len(res.Warnings))))
		for _, w := range res.Warnings {
			fmt.Printf("    %s\n", dimStyle.Render(w))
		}
		fmt.Println()
		fmt.Println(dimStyle.Render("  run log: " + logPath))
		fmt.Println()
		os.Exit(2)
	}

	fmt.Println(dimStyle.Render("  run log: " + logPath))
	fmt.Println()
}

func init() {
	rootCmd.AddCommand(restoreCmd)
}
