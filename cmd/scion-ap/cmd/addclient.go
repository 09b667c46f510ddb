package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/juagargi/scion-box/internal/ap/config"
	"github.com/juagargi/scion-box/internal/ap/openvpn"
)

// addClientCmd assigns a static VPN address to a user
var addClientCmd = &cobra.Command{
	Use:   "add-client <user> <ip>",
	Short: "Assign a static VPN address to a client",
	Long: `Assign a static VPN address to a client by writing an ifconfig-push
directive into the OpenVPN client-config directory. The user name must
match the common name of the client's certificate.

Examples:
  sudo scion-ap add-client alice@example.com 10.0.8.42`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		user, ip := args[0], args[1]

		netmask, _ := cmd.Flags().GetString("netmask")
		if netmask == "" {
			netmask = config.DefaultNetmask
		}
		ccdDir, _ := cmd.Flags().GetString("ccd-dir")
		if ccdDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				fmt.Printf("Cannot determine home directory: %v\n", err)
				os.Exit(1)
			}
			ccdDir = config.DefaultPaths(home).ClientConfigDir
		}

		path, err := openvpn.WriteClientConfig(ccdDir, user, ip, netmask)
		if err != nil {
			fmt.Printf("Failed to add client: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Client %s assigned %s (%s)\n", user, ip, path)
	},
}

func init() {
	rootCmd.AddCommand(addClientCmd)

	addClientCmd.Flags().String("netmask", "", "netmask pushed to the client")
	addClientCmd.Flags().String("ccd-dir", "", "OpenVPN client-config directory")
}
