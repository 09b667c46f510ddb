package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/juagargi/scion-box/internal/ap/config"
	"github.com/juagargi/scion-box/internal/ap/history"
	"github.com/juagargi/scion-box/internal/ap/state"
	"github.com/juagargi/scion-box/internal/installer"
	sharederrors "github.com/juagargi/scion-box/internal/shared/errors"
	"github.com/juagargi/scion-box/internal/shared/logger"
	"github.com/juagargi/scion-box/pkg/events"
)

// installCmd provisions the local host as an attachment point
var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Provision this host as a SCIONLab attachment point",
	Long: `Provision this host as a SCIONLab attachment point.

The command expects the certificate bundle (ca.crt, dh.pem, as.crt,
as.key), the server configuration template and the updater files in the
invocation directory. Parameters not given as flags are taken from
SCIONLAB_* environment variables, from /etc/scionlab/scionlab.yaml, or
from a previous installation.

Examples:
  # Full installation including the OpenVPN server
  sudo scion-ap install --as 1-17 --account-id 42 --account-secret s3cret

  # Updater only, the VPN is handled elsewhere
  sudo scion-ap install --skip-vpn

  # Inside a container image build (no systemd, no VPN)
  scion-ap install --container`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		// Bootstrap logger until the configured one is available
		log := logger.NewProduction("scion-ap", version)

		loader := config.NewLoader()
		cfg, err := loader.Load()
		if err != nil {
			log.ErrorCtx(ctx, "failed to load configuration", err)
			fmt.Printf("Error loading config: %v\n", err)
			os.Exit(1)
		}

		applyInstallFlags(cmd, cfg)

		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Printf("Cannot determine home directory: %v\n", err)
			os.Exit(1)
		}
		paths := config.DefaultPaths(home)
		if inputDir, _ := cmd.Flags().GetString("input-dir"); inputDir != "" {
			paths.InputDir = inputDir
		}

		if err := config.Resolve(cfg, state.NewStore(paths.StateDir)); err != nil {
			fmt.Printf("%v\n", err)
			if sharederrors.IsUsage(err) {
				cmd.Usage()
			}
			os.Exit(1)
		}

		// Replace the bootstrap logger with the configured one
		log = logger.New(logger.LoggerConfig{
			Level:     logger.LogLevel(cfg.LogLevel),
			Format:    logger.OutputFormat(cfg.LogFormat),
			Component: "scion-ap",
			Version:   version,
		})

		bus := events.NewBus(log)
		defer bus.Close()
		subscribeProgress(bus)

		opts := []installer.Option{}
		if store, err := history.Open(paths.HistoryDB); err != nil {
			log.Warn("run history unavailable", "error", err)
		} else {
			defer store.Close()
			opts = append(opts, installer.WithHistory(store))
		}

		if err := installer.EnsureLockDir(paths); err != nil {
			fmt.Printf("%v\n", err)
			os.Exit(1)
		}

		inst := installer.New(cfg, paths, log, bus, opts...)
		if err := inst.Run(ctx); err != nil {
			fmt.Printf("\nInstallation failed: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("\nAttachment point ready.\n")
		if cfg.VPNRequired() {
			fmt.Printf("OpenVPN service: %s\n", cfg.VPNServiceUnit())
		}
		if !cfg.Container {
			fmt.Printf("Periodic updater: %s.timer\n", config.UpdaterUnitBase)
		}
	},
}

// applyInstallFlags overrides loaded configuration with explicit flags
func applyInstallFlags(cmd *cobra.Command, cfg *config.Params) {
	if ia, _ := cmd.Flags().GetString("as"); ia != "" {
		cfg.IA = ia
	}
	if id, _ := cmd.Flags().GetString("account-id"); id != "" {
		cfg.AccountID = id
	}
	if secret, _ := cmd.Flags().GetString("account-secret"); secret != "" {
		cfg.AccountSecret = secret
	}
	if service, _ := cmd.Flags().GetString("service"); service != "" {
		cfg.ServiceName = service
	}
	if port, _ := cmd.Flags().GetInt("port"); port != 0 {
		cfg.Port = port
	}
	if network, _ := cmd.Flags().GetString("network"); network != "" {
		cfg.Network = network
	}
	if netmask, _ := cmd.Flags().GetString("netmask"); netmask != "" {
		cfg.Netmask = netmask
	}
	if url, _ := cmd.Flags().GetString("coordinator-url"); url != "" {
		cfg.CoordinatorURL = url
	}
	if skip, _ := cmd.Flags().GetBool("skip-vpn"); skip {
		cfg.SkipVPN = true
	}
	if container, _ := cmd.Flags().GetBool("container"); container {
		cfg.Container = true
	}
	if u, _ := cmd.Flags().GetString("user"); u != "" {
		cfg.User = u
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.LogLevel = level
	}
}

// subscribeProgress prints step progress to the terminal while the
// structured log goes wherever the logger is configured to write
func subscribeProgress(bus *events.Bus) {
	bus.Subscribe(events.TypeStepCompleted, func(e events.Event) {
		printStep("done", e)
	})
	bus.Subscribe(events.TypeStepSkipped, func(e events.Event) {
		printStep("unchanged", e)
	})
	bus.Subscribe(events.TypeStepFailed, func(e events.Event) {
		fmt.Printf("  [failed] %s: %v\n", e.Step, e.Err)
	})
}

func printStep(marker string, e events.Event) {
	fmt.Printf("  [%s] %s", marker, e.Step)
	if e.Detail != "" {
		fmt.Printf(" (%s)", e.Detail)
	}
	fmt.Println()
}

func init() {
	rootCmd.AddCommand(installCmd)

	installCmd.Flags().String("as", "", "IA identifier of the attachment point AS (e.g. 1-17)")
	installCmd.Flags().String("account-id", "", "coordinator account identifier")
	installCmd.Flags().String("account-secret", "", "coordinator account secret")
	installCmd.Flags().String("service", "", "OpenVPN service instance name")
	installCmd.Flags().Int("port", 0, "OpenVPN listening port")
	installCmd.Flags().String("network", "", "VPN network address")
	installCmd.Flags().String("netmask", "", "VPN network mask")
	installCmd.Flags().String("coordinator-url", "", "SCIONLab coordinator base URL")
	installCmd.Flags().Bool("skip-vpn", false, "skip the OpenVPN server installation")
	installCmd.Flags().Bool("container", false, "container mode: no VPN, no systemd units")
	installCmd.Flags().String("user", "", "user owning the periodic updater job")
	installCmd.Flags().String("input-dir", "", "directory holding the installation inputs")
	installCmd.Flags().String("log-level", "", "log level (debug, info, warn, error)")
}
