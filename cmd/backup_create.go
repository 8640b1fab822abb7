package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/zafrullakhan001/drydock/internal/backup"
	"github.com/zafrullakhan001/drydock/internal/postgres"
	"github.com/zafrullakhan001/drydock/pkg/models"
)

var (
	backupCreateOutput    string
	backupCreateRetention int
	backupCreateCompress  bool
)

var backupCreateCmd = &cobra.Command{
	Use:   "create [logical|physical]",
	Short: "Create a full backup",
	Long:  "Create a full backup of the target database: a pg_dump (logical) or a pg_basebackup (physical)",
	Args:  cobra.ExactArgs(1),
	Run:   runBackupCreate,
}

func runBackupCreate(cmd *cobra.Command, args []string) {
	kind := models.BackupKind(strings.ToLower(args[0]))
	if kind != models.BackupKindLogical && kind != models.BackupKindPhysical {
		fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("[error] unknown backup kind %q (use logical or physical)", args[0])))
		os.Exit(1)
	}

	cfg := mustConfig()

	outputDir := cfg.Backup.OutputDir
	if backupCreateOutput != "" {
		outputDir = backupCreateOutput
	}
	retention := cfg.Backup.RetentionDays
	if cmd.Flags().Changed("retention-days") {
		retention = backupCreateRetention
	}
	compress := cfg.Backup.Compress
	if cmd.Flags().Changed("compress") {
		compress = backupCreateCompress
	}

	client := mustRuntime(cfg)
	defer client.Close()

	runLog := mustRunLog(cfg, "backup-"+string(kind))
	defer runLog.Close()

	ctrl := postgres.NewController(client, cfg.Target)
	engine := backup.NewEngine(client, ctrl, cfg.Target, runLog.Logger)

	fmt.Println(titleStyle.Render(fmt.Sprintf("==> creating %s backup: %s", kind, cfg.Target.Container)))
	fmt.Println()

	fmt.Println(progressStyle.Render("  --> checking server..."))

	ctx := context.Background()
	var rec *models.BackupRecord
	var err error

	if kind == models.BackupKindLogical {
		fmt.Println(progressStyle.Render("  --> running pg_dump..."))
		if compress {
			fmt.Println(progressStyle.Render("  --> compressing dump..."))
		}
		rec, err = engine.CreateLogical(ctx, outputDir, retention, compress)
	} else {
		fmt.Println(progressStyle.Render("  --> running pg_basebackup..."))
		rec, err = engine.CreatePhysical(ctx, outputDir, retention)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("  [error] failed to create backup: %v", err)))
		fmt.Println(dimStyle.Render("  run log: " + runLog.Path()))
		os.Exit(1)
	}
	if rec.Status == models.BackupStatusFailed {
		fmt.Fprintln(os.Stderr, errorStyle.Render("  [error] backup failed: "+rec.Error))
		fmt.Println(dimStyle.Render("  run log: " + runLog.Path()))
		os.Exit(1)
	}

	fmt.Println(progressStyle.Render("  --> writing record..."))
	fmt.Println()

	fmt.Println(successStyle.Render("  [done] backup created successfully"))
	fmt.Println()

	fmt.Println(labelStyle.Render("  backup details:"))
	fmt.Printf("    %s %s\n", dimStyle.Render("id:"), valueStyle.Render(rec.ID))

	sizeStr := humanize.Bytes(uint64(rec.SizeBytes))
	if rec.Compressed {
		sizeStr += " (compressed)"
	}
	fmt.Printf("    %s %s\n", dimStyle.Render("size:"), valueStyle.Render(sizeStr))
	fmt.Printf("    %s %s\n", dimStyle.Render("location:"), valueStyle.Render(rec.StoragePath))

	if rec.PostgresVersion != "" {
		fmt.Printf("    %s %s\n", dimStyle.Render("postgres:"), valueStyle.Render(rec.PostgresVersion))
	}
	fmt.Println()

	fmt.Println(dimStyle.Render(fmt.Sprintf("  restore with: drydock restore full %s %s", rec.StoragePath, kind)))
	fmt.Println(dimStyle.Render("  run log: " + runLog.Path()))
	fmt.Println()
}

func init() {
	backupCreateCmd.Flags().StringVar(&backupCreateOutput, "output", "", "output directory (defaults to backup.output_dir)")
	backupCreateCmd.Flags().IntVar(&backupCreateRetention, "retention-days", 0, "prune completed backups older than this many days (0 keeps everything)")
	backupCreateCmd.Flags().BoolVar(&backupCreateCompress, "compress", false, "gzip logical dumps")
	backupCmd.AddCommand(backupCreateCmd)
}
