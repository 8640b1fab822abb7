package cmd

import (
	"github.com/spf13/cobra"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Create and list full backups",
	Long:  "Create full backups of the target database and list the ones on disk",
}

func init() {
	rootCmd.AddCommand(backupCmd)
}
