package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/zafrullakhan001/drydock/internal/errdefs"
	"github.com/zafrullakhan001/drydock/internal/postgres"
	"github.com/zafrullakhan001/drydock/internal/wal"
)

var (
	walCaptureArchiveDir string
	walCaptureCompress   bool
)

var walCaptureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Pull archived wal segments to the host",
	Long:  "Switch the current wal segment, wait for the archiver, and copy the container archive into a timestamped directory on the host",
	Run:   runWALCapture,
}

func runWALCapture(cmd *cobra.Command, args []string) {
	cfg := mustConfig()

	archiveDir := cfg.WAL.ArchiveDir
	if walCaptureArchiveDir != "" {
		archiveDir = walCaptureArchiveDir
	}
	compress := cfg.WAL.Compress
	if cmd.Flags().Changed("compress") {
		compress = walCaptureCompress
	}

	client := mustRuntime(cfg)
	defer client.Close()

	runLog := mustRunLog(cfg, "wal-capture")
	defer runLog.Close()

	ctrl := postgres.NewController(client, cfg.Target)
	mgr := wal.NewManager(client, ctrl, cfg.Target, cfg.WAL.ContainerArchiveDir, runLog.Logger)

	fmt.Println(titleStyle.Render(fmt.Sprintf("==> capturing wal segments: %s", cfg.Target.Container)))
	fmt.Println()

	fmt.Println(progressStyle.Render("  --> switching wal segment..."))
	fmt.Println(progressStyle.Render("  --> waiting for the archiver..."))
	fmt.Println(progressStyle.Render("  --> copying archive to host..."))
	if compress {
		fmt.Println(progressStyle.Render("  --> compressing segments..."))
	}

	result, err := mgr.Capture(context.Background(), archiveDir, compress)
	if err != nil && result == nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("  [error] %v", err)))
		fmt.Println(dimStyle.Render("  run log: " + runLog.Path()))
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println(successStyle.Render("  [done] capture written"))
	fmt.Println()

	fmt.Println(labelStyle.Render("  capture details:"))
	fmt.Printf("    %s %s\n", dimStyle.Render("directory:"), valueStyle.Render(result.Dir))
	fmt.Printf("    %s %s\n", dimStyle.Render("segments:"), valueStyle.Render(fmt.Sprintf("%d", len(result.Segments))))
	fmt.Printf("    %s %s\n", dimStyle.Render("size:"), valueStyle.Render(humanize.Bytes(uint64(result.SizeBytes))))
	fmt.Printf("    %s %s\n", dimStyle.Render("switch lsn:"), valueStyle.Render(result.SwitchLSN))
	fmt.Println()

	if err != nil {
		// capture landed on disk but the segment sequence has a hole
		fmt.Println(errorStyle.Render(fmt.Sprintf("  [warn] %v", err)))
		if errdefs.IsIntegrity(err) {
			fmt.Println(dimStyle.Render("  point-in-time recovery cannot replay across the gap;"))
			fmt.Println(dimStyle.Render("  take a fresh physical backup to re-anchor the archive"))
		}
		fmt.Println(dimStyle.Render("  run log: " + runLog.Path()))
		fmt.Println()
		os.Exit(2)
	}

	fmt.Println(dimStyle.Render(fmt.Sprintf("  recover with: drydock restore pitr <base-backup> %s", result.Dir)))
	fmt.Println(dimStyle.Render("  run log: " + runLog.Path()))
	fmt.Println()
}

func init() {
	walCaptureCmd.Flags().StringVar(&walCaptureArchiveDir, "archive-dir", "", "host archive directory (defaults to wal.archive_dir)")
	walCaptureCmd.Flags().BoolVar(&walCaptureCompress, "compress", false, "compress captured segments with zstd")
	walCmd.AddCommand(walCaptureCmd)
}
