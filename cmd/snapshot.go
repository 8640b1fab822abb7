package cmd

import (
	"github.com/spf13/cobra"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Manage safety snapshots of the data volume",
	Long:  "Create and list tar.gz snapshots of the data volume, the rollback point destructive restores rely on",
}

func init() {
	rootCmd.AddCommand(snapshotCmd)
}
