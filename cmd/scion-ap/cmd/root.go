package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

const version = "1.0.0"

// rootCmd is the base command of the attachment-point installer
var rootCmd = &cobra.Command{
	Use:   "scion-ap",
	Short: "SCIONLab attachment point installer",
	Long: `scion-ap turns the local host into a SCIONLab attachment point:
it installs the OpenVPN server configuration and certificates, enables
IP forwarding, persists the AS identity and sets up the periodic
configuration updater.

The installer is idempotent: re-running it after a failure resumes the
work without clobbering an already persisted identity.`,
	Version: version,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
