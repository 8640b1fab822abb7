package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/zafrullakhan001/drydock/internal/safety"
	"github.com/zafrullakhan001/drydock/internal/utils"
)

var snapshotListDest string

var snapshotListCmd = &cobra.Command{
	Use:   "list",
	Short: "List safety snapshots",
	Long:  "List the volume snapshots in the snapshot directory, newest first",
	Args:  cobra.NoArgs,
	Run:   runSnapshotList,
}

func runSnapshotList(cmd *cobra.Command, args []string) {
	cfg := mustConfig()

	destDir := cfg.Safety.SnapshotDir
	if snapshotListDest != "" {
		destDir = snapshotListDest
	}

	snaps, err := safety.List(destDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("[error] failed to list snapshots: %v", err)))
		os.Exit(1)
	}

	if len(snaps) == 0 {
		fmt.Println(dimStyle.Render("no snapshots found"))
		fmt.Println()
		fmt.Println(dimStyle.Render("create one with: drydock snapshot create"))
		return
	}

	fmt.Println(titleStyle.Render(fmt.Sprintf("==> snapshots of: %s (%d)", cfg.Target.Volume, len(snaps))))
	fmt.Println()

	rows := [][]string{}
	var totalSize int64

	for _, snap := range snaps {
		totalSize += snap.SizeBytes
		rows = append(rows, []string{
			snap.ID,
			snap.VolumeName,
			snap.CreatedAt.Format("2006-01-02 15:04"),
			humanize.Bytes(uint64(snap.SizeBytes)),
			utils.TruncateString(snap.Reason, 36),
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
		Headers("id", "volume", "created", "size", "reason").
		Rows(rows...)

	fmt.Println(t)
	fmt.Println()

	fmt.Println(dimStyle.Render(fmt.Sprintf("  total: %s", humanize.Bytes(uint64(totalSize)))))
	fmt.Println()

	fmt.Println(dimStyle.Render("  snapshots are never deleted automatically; clean up by hand when sure"))
	fmt.Println()
}

func init() {
	snapshotListCmd.Flags().StringVar(&snapshotListDest, "dest", "", "directory to list (defaults to safety.snapshot_dir)")
	snapshotCmd.AddCommand(snapshotListCmd)
}
