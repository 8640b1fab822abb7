package cmd

import (
	"github.com/spf13/cobra"
)

var walCmd = &cobra.Command{
	Use:   "wal",
	Short: "Manage continuous wal archiving",
	Long:  "Prepare, inspect and capture the write-ahead-log archive that point-in-time recovery replays",
}

func init() {
	rootCmd.AddCommand(walCmd)
}
