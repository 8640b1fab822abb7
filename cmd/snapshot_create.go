package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/zafrullakhan001/drydock/internal/safety"
)

var snapshotCreateDest string

var snapshotCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Snapshot the data volume",
	Long:  "Archive the whole data volume to a tar.gz through a disposable helper container; the volume is mounted read-only",
	Run:   runSnapshotCreate,
}

func runSnapshotCreate(cmd *cobra.Command, args []string) {
	cfg := mustConfig()

	destDir := cfg.Safety.SnapshotDir
	if snapshotCreateDest != "" {
		destDir = snapshotCreateDest
	}

	client := mustRuntime(cfg)
	defer client.Close()

	runLog := mustRunLog(cfg, "snapshot")
	defer runLog.Close()

	mgr := safety.NewManager(client, cfg.Target.Volume, cfg.Safety.HelperImage, runLog.Logger)

	fmt.Println(titleStyle.Render(fmt.Sprintf("==> snapshotting volume: %s", cfg.Target.Volume)))
	fmt.Println()

	ctx := context.Background()

	fmt.Println(progressStyle.Render("  --> pulling helper image..."))
	if err := client.EnsureImage(ctx, cfg.Safety.HelperImage, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("  [error] %v", err)))
		os.Exit(1)
	}

	fmt.Println(progressStyle.Render("  --> archiving volume..."))

	snap, err := mgr.Snapshot(ctx, destDir, "manual snapshot")
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("  [error] failed to snapshot volume: %v", err)))
		fmt.Println(dimStyle.Render("  run log: " + runLog.Path()))
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println(successStyle.Render("  [done] snapshot created"))
	fmt.Println()

	fmt.Println(labelStyle.Render("  snapshot details:"))
	fmt.Printf("    %s %s\n", dimStyle.Render("id:"), valueStyle.Render(snap.ID))
	fmt.Printf("    %s %s\n", dimStyle.Render("archive:"), valueStyle.Render(snap.ArchivePath))
	fmt.Printf("    %s %s\n", dimStyle.Render("size:"), valueStyle.Render(humanize.Bytes(uint64(snap.SizeBytes))))
	fmt.Println()

	fmt.Println(dimStyle.Render("  snapshots are never deleted automatically"))
	fmt.Println(dimStyle.Render("  run log: " + runLog.Path()))
	fmt.Println()
}

func init() {
	snapshotCreateCmd.Flags().StringVar(&snapshotCreateDest, "dest", "", "destination directory (defaults to safety.snapshot_dir)")
	snapshotCmd.AddCommand(snapshotCreateCmd)
}
