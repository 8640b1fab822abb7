package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/zafrullakhan001/drydock/internal/postgres"
	"github.com/zafrullakhan001/drydock/internal/wal"
)

var walStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the server's archiving state",
	Long:  "Report pg_stat_archiver counters, the active archive settings and the segments waiting in the container archive",
	Run:   runWALStatus,
}

func runWALStatus(cmd *cobra.Command, args []string) {
	cfg := mustConfig()

	client := mustRuntime(cfg)
	defer client.Close()

	ctrl := postgres.NewController(client, cfg.Target)
	// read-only report, no run log to write
	mgr := wal.NewManager(client, ctrl, cfg.Target, cfg.WAL.ContainerArchiveDir, zerolog.Nop())

	fmt.Println(titleStyle.Render(fmt.Sprintf("==> wal archiving status: %s", cfg.Target.Container)))
	fmt.Println()

	ctx := context.Background()
	status, err := mgr.Status(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("[error] %v", err)))
		os.Exit(1)
	}

	fmt.Println(labelStyle.Render("  server:"))
	if status.ArchiveMode == "on" {
		fmt.Printf("    %s %s\n", dimStyle.Render("archive_mode:"), successStyle.Render(status.ArchiveMode))
	} else {
		fmt.Printf("    %s %s\n", dimStyle.Render("archive_mode:"), errorStyle.Render(status.ArchiveMode))
	}
	fmt.Printf("    %s %s\n", dimStyle.Render("wal_level:"), valueStyle.Render(status.WALLevel))
	fmt.Printf("    %s %s\n", dimStyle.Render("archive_command:"), valueStyle.Render(status.ArchiveCommand))
	fmt.Println()

	fmt.Println(labelStyle.Render("  archiver:"))
	fmt.Printf("    %s %s\n", dimStyle.Render("archived:"), valueStyle.Render(fmt.Sprintf("%d segments", status.ArchivedCount)))
	if status.LastArchived != "" {
		fmt.Printf("    %s %s\n", dimStyle.Render("last archived:"), valueStyle.Render(status.LastArchived))
	}
	if status.FailedCount > 0 {
		fmt.Printf("    %s %s\n", dimStyle.Render("failed:"), errorStyle.Render(fmt.Sprintf("%d attempts", status.FailedCount)))
		if status.LastFailed != "" {
			fmt.Printf("    %s %s\n", dimStyle.Render("last failed:"), errorStyle.Render(status.LastFailed))
		}
		fmt.Printf("      %s\n", dimStyle.Render("check the archive_command and the container archive directory"))
	}
	fmt.Println()

	fmt.Println(labelStyle.Render("  container archive:"))
	entries, err := ctrl.ListDir(ctx, cfg.WAL.ContainerArchiveDir)
	if err != nil {
		fmt.Printf("    %s\n", dimStyle.Render("not readable, run 'drydock wal setup' first"))
		fmt.Println()
		return
	}

	segments := 0
	for _, name := range entries {
		if _, err := wal.ParseSegmentName(name); err == nil {
			segments++
		}
	}
	fmt.Printf("    %s %s\n", dimStyle.Render("directory:"), valueStyle.Render(cfg.WAL.ContainerArchiveDir))
	fmt.Printf("    %s %s\n", dimStyle.Render("segments waiting:"), valueStyle.Render(fmt.Sprintf("%d", segments)))
	if segments > 0 {
		fmt.Println()
		fmt.Println(dimStyle.Render("  pull them to the host with: drydock wal capture"))
	}
	fmt.Println()
}

func init() {
	walCmd.AddCommand(walStatusCmd)
}
