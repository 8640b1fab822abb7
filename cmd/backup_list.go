package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/zafrullakhan001/drydock/internal/backup"
	"github.com/zafrullakhan001/drydock/internal/utils"
)

var backupListOutput string

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List backups",
	Long:  "List all backup records in the output directory, newest first",
	Args:  cobra.NoArgs,
	Run:   runBackupList,
}

func runBackupList(cmd *cobra.Command, args []string) {
	cfg := mustConfig()

	outputDir := cfg.Backup.OutputDir
	if backupListOutput != "" {
		outputDir = backupListOutput
	}

	records, err := backup.List(outputDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("[error] failed to list backups: %v", err)))
		os.Exit(1)
	}

	if len(records) == 0 {
		fmt.Println(dimStyle.Render("no backups found"))
		fmt.Println()
		fmt.Println(dimStyle.Render("create one with: drydock backup create logical"))
		return
	}

	fmt.Println(titleStyle.Render(fmt.Sprintf("==> backups for: %s (%d)", cfg.Target.Container, len(records))))
	fmt.Println()

	rows := [][]string{}
	var totalSize int64

	for _, rec := range records {
		totalSize += rec.SizeBytes

		statusColor := "10"
		switch rec.Status {
		case "failed":
			statusColor = "9"
		case "in_progress":
			statusColor = "14"
		}
		statusStyled := lipgloss.NewStyle().
			Foreground(lipgloss.Color(statusColor)).
			Render(string(rec.Status))

		note := utils.TruncateString(rec.Error, 32)

		rows = append(rows, []string{
			rec.ID,
			string(rec.Kind),
			statusStyled,
			rec.CreatedAt.Format("2006-01-02 15:04"),
			humanize.Bytes(uint64(rec.SizeBytes)),
			note,
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == 0 {
				return lipgloss.NewStyle().
					Foreground(lipgloss.Color("86")).
					Bold(true).
					Align(lipgloss.Center)
			}
			return lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
		}).
		Headers("id", "kind", "status", "created", "size", "error").
		Rows(rows...)

	fmt.Println(t)
	fmt.Println()

	fmt.Println(dimStyle.Render(fmt.Sprintf("  total: %s", humanize.Bytes(uint64(totalSize)))))
	fmt.Println()

	fmt.Println(dimStyle.Render("  commands:"))
	fmt.Printf("    %s\n", dimStyle.Render("drydock restore full <path> <kind>   # restore a backup"))
	fmt.Printf("    %s\n", dimStyle.Render("drydock restore pitr <base> <wal>    # recover to a point in time"))
	fmt.Println()
}

func init() {
	backupListCmd.Flags().StringVar(&backupListOutput, "output", "", "directory to list (defaults to backup.output_dir)")
	backupCmd.AddCommand(backupListCmd)
}
