package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zafrullakhan001/drydock/internal/config"
	"github.com/zafrullakhan001/drydock/internal/docker"
	"github.com/zafrullakhan001/drydock/internal/postgres"
	"github.com/zafrullakhan001/drydock/internal/runtime"
	"github.com/zafrullakhan001/drydock/internal/utils"
	"github.com/zafrullakhan001/drydock/pkg/models"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the target container and everything drydock needs",
	Long:  "Verify the container runtime, the target container and volume, and the working directories",
	Run:   runDoctor,
}

func runDoctor(cmd *cobra.Command, args []string) {
	fmt.Println(titleStyle.Render("==> checking drydock setup"))
	fmt.Println()

	allGood := true

	cfg, ok := checkConfig()
	allGood = ok && allGood

	if cfg != nil {
		client, ok := checkRuntime(cfg)
		allGood = ok && allGood

		if client != nil {
			defer client.Close()
			allGood = checkTarget(cfg, client) && allGood
			allGood = checkServer(cfg, client) && allGood
		}

		allGood = checkDirectories(cfg) && allGood
	}

	fmt.Println()
	if allGood {
		fmt.Println(successStyle.Render("  [done] all checks passed"))
		fmt.Println()
		fmt.Println(dimStyle.Render("  drydock is ready to take backups"))
	} else {
		fmt.Println(errorStyle.Render("  [error] some checks failed"))
		fmt.Println()
		fmt.Println(dimStyle.Render("  fix the issues above before relying on drydock"))
		os.Exit(1)
	}
}

func checkConfig() (*models.Config, bool) {
	fmt.Println(labelStyle.Render("  config"))

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Printf("    %s %s\n", errorStyle.Render("[✗]"), err)
		return nil, false
	}

	fmt.Printf("    %s %s loaded\n", successStyle.Render("[✓]"), dimStyle.Render(configPath))
	fmt.Printf("      %s %s\n", dimStyle.Render("container:"), dimStyle.Render(cfg.Target.Container))
	fmt.Printf("      %s %s\n", dimStyle.Render("volume:"), dimStyle.Render(cfg.Target.Volume))
	fmt.Println()

	return cfg, true
}

func checkRuntime(cfg *models.Config) (*docker.Client, bool) {
	fmt.Println(labelStyle.Render("  runtime"))

	info, err := runtime.Detect(cfg.Runtime.Prefer, cfg.Runtime.SocketPath)
	if err != nil {
		fmt.Printf("    %s runtime not detected\n", errorStyle.Render("[✗]"))
		fmt.Printf("      %s\n", dimStyle.Render(err.Error()))
		fmt.Printf("      %s\n", dimStyle.Render("install docker or podman to continue"))
		return nil, false
	}

	fmt.Printf("    %s %s detected\n", successStyle.Render("[✓]"), valueStyle.Render(info.Name()))
	fmt.Printf("      %s %s\n", dimStyle.Render("version:"), dimStyle.Render(info.Version))
	fmt.Printf("      %s %s\n", dimStyle.Render("socket:"), dimStyle.Render(info.SocketPath))

	client, err := docker.NewClient(cfg.Runtime.Prefer, cfg.Runtime.SocketPath)
	if err != nil {
		fmt.Printf("    %s runtime daemon not responding\n", errorStyle.Render("[✗]"))
		fmt.Printf("      %s\n", dimStyle.Render(err.Error()))
		return nil, false
	}

	if err := client.Ping(context.Background()); err != nil {
		fmt.Printf("    %s runtime daemon not responding\n", errorStyle.Render("[✗]"))
		fmt.Printf("      %s\n", dimStyle.Render(err.Error()))
		client.Close()
		return nil, false
	}

	fmt.Printf("    %s daemon running\n", successStyle.Render("[✓]"))
	fmt.Println()

	return client, true
}

func checkTarget(cfg *models.Config, client *docker.Client) bool {
	fmt.Println(labelStyle.Render("  target"))

	ctx := context.Background()

	exists, err := client.ContainerExists(ctx, cfg.Target.Container)
	if err != nil {
		fmt.Printf("    %s cannot inspect container %s\n", errorStyle.Render("[✗]"), valueStyle.Render(cfg.Target.Container))
		fmt.Printf("      %s\n", dimStyle.Render(err.Error()))
		return false
	}
	if !exists {
		fmt.Printf("    %s container %s not found\n", errorStyle.Render("[✗]"), valueStyle.Render(cfg.Target.Container))
		fmt.Printf("      %s\n", dimStyle.Render("drydock never creates the container; start your postgres container first"))
		return false
	}

	status, err := client.ContainerStatus(ctx, cfg.Target.Container)
	if err != nil {
		fmt.Printf("    %s cannot read container state\n", errorStyle.Render("[✗]"))
		fmt.Printf("      %s\n", dimStyle.Render(err.Error()))
		return false
	}
	if status == "running" {
		fmt.Printf("    %s container %s running\n", successStyle.Render("[✓]"), valueStyle.Render(cfg.Target.Container))
	} else {
		fmt.Printf("    %s container %s is %s\n", errorStyle.Render("[!]"), valueStyle.Render(cfg.Target.Container), status)
		fmt.Printf("      %s\n", dimStyle.Render("backups and wal capture need a running server"))
	}

	volExists, err := client.VolumeExists(ctx, cfg.Target.Volume)
	if err != nil {
		fmt.Printf("    %s cannot inspect volume %s\n", errorStyle.Render("[✗]"), valueStyle.Render(cfg.Target.Volume))
		fmt.Printf("      %s\n", dimStyle.Render(err.Error()))
		return false
	}
	if !volExists {
		fmt.Printf("    %s volume %s not found\n", errorStyle.Render("[✗]"), valueStyle.Render(cfg.Target.Volume))
		fmt.Printf("      %s\n", dimStyle.Render("physical restores work on the data volume; check target.volume in the config"))
		return false
	}
	fmt.Printf("    %s volume %s exists\n", successStyle.Render("[✓]"), valueStyle.Render(cfg.Target.Volume))

	fmt.Println()
	return true
}

func checkServer(cfg *models.Config, client *docker.Client) bool {
	fmt.Println(labelStyle.Render("  postgres"))

	ctx := context.Background()
	ctrl := postgres.NewController(client, cfg.Target)

	if err := ctrl.Ping(ctx); err != nil {
		fmt.Printf("    %s server not accepting connections\n", errorStyle.Render("[✗]"))
		fmt.Printf("      %s\n", dimStyle.Render(err.Error()))
		return false
	}
	fmt.Printf("    %s server accepting connections\n", successStyle.Render("[✓]"))

	version, err := ctrl.Version(ctx)
	if err != nil {
		fmt.Printf("    %s cannot read server version\n", errorStyle.Render("[!]"))
		fmt.Printf("      %s\n", dimStyle.Render(err.Error()))
	} else {
		fmt.Printf("      %s %s\n", dimStyle.Render("version:"), dimStyle.Render(version))
	}

	fmt.Println()
	return true
}

func checkDirectories(cfg *models.Config) bool {
	fmt.Println(labelStyle.Render("  directories"))

	allGood := true
	dirs := []struct {
		label string
		path  string
	}{
		{"backups", cfg.Backup.OutputDir},
		{"wal archive", cfg.WAL.ArchiveDir},
		{"snapshots", cfg.Safety.SnapshotDir},
		{"logs", cfg.Logging.Dir},
	}

	for _, d := range dirs {
		abs, err := utils.EnsureWritableDir(d.path)
		if err != nil {
			fmt.Printf("    %s %s not writable\n", errorStyle.Render("[✗]"), d.label)
			fmt.Printf("      %s\n", dimStyle.Render(err.Error()))
			allGood = false
			continue
		}
		fmt.Printf("    %s %s %s\n", successStyle.Render("[✓]"), d.label, dimStyle.Render(abs))
	}

	fmt.Println()
	return allGood
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
