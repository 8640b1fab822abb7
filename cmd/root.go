package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/zafrullakhan001/drydock/internal/config"
	"github.com/zafrullakhan001/drydock/internal/docker"
	"github.com/zafrullakhan001/drydock/internal/logging"
	"github.com/zafrullakhan001/drydock/pkg/models"
)

var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("213"))

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("14"))

	progressStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("12"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("15")).
			Bold(true)
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "drydock",
	Short: "backup and point-in-time recovery for containerized postgres",
	Long: titleStyle.Render(`
     _                 _            _
  __| |_ __ _   _   __| | ___   ___| | __
 / _`+"`"+` | '__| | | | / _`+"`"+` |/ _ \ / __| |/ /
| (_| | |  | |_| || (_| | (_) | (__|   <
 \__,_|_|   \__, | \__,_|\___/ \___|_|\_\
            |___/
`) + "\n" + subtitleStyle.Render("drydock") + "\n\n" +
		"Backups, WAL archiving and point-in-time recovery for a PostgreSQL\n" +
		"instance running in a docker or podman container.",
	Version: "0.1.0",
}

func SetVersionInfo(v, bt, gc string) {
	version = v
	buildTime = bt
	gitCommit = gc
	rootCmd.Version = fmt.Sprintf("%s (built: %s, commit: %s)", version, buildTime, gitCommit)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("[error] Error: %v", err)))
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultFileName, "path to the drydock config file")
}

// mustConfig loads the config file every command works from, or exits.
func mustConfig() *models.Config {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("[error] %v", err)))
		os.Exit(1)
	}
	return cfg
}

// mustRuntime connects to the container runtime named in the config, or exits.
func mustRuntime(cfg *models.Config) *docker.Client {
	client, err := docker.NewClient(cfg.Runtime.Prefer, cfg.Runtime.SocketPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("[error] %v", err)))
		os.Exit(1)
	}
	return client
}

// mustRunLog opens the JSON run log for one workflow, or exits.
func mustRunLog(cfg *models.Config, workflow string) *logging.RunLog {
	runLog, err := logging.Open(cfg.Logging.Dir, workflow)
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("[error] %v", err)))
		os.Exit(1)
	}
	return runLog
}
