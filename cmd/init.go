package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zafrullakhan001/drydock/internal/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config file",
	Long:  "Create a commented drydock.toml describing the postgres container to manage",
	Run:   runInit,
}

func runInit(cmd *cobra.Command, args []string) {
	if initForce {
		if err := os.Remove(configPath); err != nil && !os.IsNotExist(err) {
			fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("[error] failed to remove %s: %v", configPath, err)))
			os.Exit(1)
		}
	}

	fmt.Println(titleStyle.Render("==> initializing drydock"))
	fmt.Println()

	fmt.Println(progressStyle.Render("  --> writing config skeleton..."))
	if err := config.WriteSkeleton(configPath); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("[error] %v", err)))
		fmt.Println(dimStyle.Render("  pass --force to overwrite it"))
		os.Exit(1)
	}

	fmt.Println(successStyle.Render(fmt.Sprintf("  [done] %s created", configPath)))
	fmt.Println()

	fmt.Println(labelStyle.Render("  next steps:"))
	fmt.Printf("    %s\n", dimStyle.Render(fmt.Sprintf("1. point [target] in %s at your postgres container and volume", configPath)))
	fmt.Printf("    %s\n", dimStyle.Render("2. verify the setup with: drydock doctor"))
	fmt.Printf("    %s\n", dimStyle.Render("3. take a first backup with: drydock backup create logical"))
	fmt.Println()
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing config file")
	rootCmd.AddCommand(initCmd)
}
