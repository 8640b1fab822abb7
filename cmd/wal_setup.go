package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zafrullakhan001/drydock/internal/postgres"
	"github.com/zafrullakhan001/drydock/internal/wal"
)

var walSetupArchiveDir string

var walSetupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Prepare wal archiving",
	Long:  "Create the archive directories and report the server settings continuous archiving needs",
	Run:   runWALSetup,
}

func runWALSetup(cmd *cobra.Command, args []string) {
	cfg := mustConfig()

	archiveDir := cfg.WAL.ArchiveDir
	if walSetupArchiveDir != "" {
		archiveDir = walSetupArchiveDir
	}

	client := mustRuntime(cfg)
	defer client.Close()

	runLog := mustRunLog(cfg, "wal-setup")
	defer runLog.Close()

	ctrl := postgres.NewController(client, cfg.Target)
	mgr := wal.NewManager(client, ctrl, cfg.Target, cfg.WAL.ContainerArchiveDir, runLog.Logger)

	fmt.Println(titleStyle.Render(fmt.Sprintf("==> preparing wal archiving: %s", cfg.Target.Container)))
	fmt.Println()

	fmt.Println(progressStyle.Render("  --> ensuring archive directories..."))

	settings, hostDir, err := mgr.Setup(context.Background(), archiveDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("  [error] %v", err)))
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println(successStyle.Render("  [done] archive directories ready"))
	fmt.Println()

	fmt.Printf("    %s %s\n", dimStyle.Render("host archive:"), valueStyle.Render(hostDir))
	fmt.Printf("    %s %s\n", dimStyle.Render("container archive:"), valueStyle.Render(cfg.WAL.ContainerArchiveDir))
	fmt.Println()

	fmt.Println(labelStyle.Render("  required server settings:"))
	fmt.Printf("    %s\n", valueStyle.Render(fmt.Sprintf("wal_level = %s", settings.WALLevel)))
	fmt.Printf("    %s\n", valueStyle.Render(fmt.Sprintf("archive_mode = %s", settings.ArchiveMode)))
	fmt.Printf("    %s\n", valueStyle.Render(fmt.Sprintf("archive_command = '%s'", settings.ArchiveCommand)))
	fmt.Printf("    %s\n", valueStyle.Render(fmt.Sprintf("max_wal_senders = %d", settings.MaxWALSenders)))
	fmt.Printf("    %s\n", valueStyle.Render(fmt.Sprintf("wal_keep_size = %s", settings.WALKeepSize)))
	fmt.Println()

	fmt.Println(dimStyle.Render("  drydock never restarts your server. apply these settings with"))
	fmt.Println(dimStyle.Render("  ALTER SYSTEM (or postgresql.conf), restart the container yourself,"))
	fmt.Println(dimStyle.Render("  then verify with: drydock wal status"))
	fmt.Println()
}

func init() {
	walSetupCmd.Flags().StringVar(&walSetupArchiveDir, "archive-dir", "", "host archive directory (defaults to wal.archive_dir)")
	walCmd.AddCommand(walSetupCmd)
}
