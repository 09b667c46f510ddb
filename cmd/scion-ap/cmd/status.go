package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/juagargi/scion-box/internal/ap/config"
	"github.com/juagargi/scion-box/internal/ap/history"
	"github.com/juagargi/scion-box/internal/ap/state"
)

// statusCmd shows the provisioning state of the host
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show attachment point provisioning status",
	Long: `Show the persisted identity of this attachment point and the outcome
of the most recent provisioning run.`,
	Run: func(cmd *cobra.Command, args []string) {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Printf("Cannot determine home directory: %v\n", err)
			os.Exit(1)
		}
		paths := config.DefaultPaths(home)

		st := state.NewStore(paths.StateDir)
		ia, err := st.Read(state.FileIA)
		if err != nil {
			fmt.Printf("Cannot read identity: %v\n", err)
			os.Exit(1)
		}
		accountID, _ := st.Read(state.FileAccountID)

		fmt.Printf("Identity:\n")
		if ia == "" {
			fmt.Printf("  not provisioned (no IA persisted in %s)\n", paths.StateDir)
		} else {
			fmt.Printf("  IA:         %s\n", ia)
			fmt.Printf("  Account ID: %s\n", accountID)
		}

		store, err := history.Open(paths.HistoryDB)
		if err != nil {
			fmt.Printf("\nRun history unavailable: %v\n", err)
			return
		}
		defer store.Close()

		ctx := context.Background()
		last, err := store.LastRun(ctx)
		if err != nil {
			fmt.Printf("\nCannot read run history: %v\n", err)
			os.Exit(1)
		}
		if last == nil {
			fmt.Printf("\nNo provisioning run recorded.\n")
			return
		}

		fmt.Printf("\nLast run:\n")
		fmt.Printf("  ID:      %s\n", last.ID)
		fmt.Printf("  Status:  %s\n", last.Status)
		fmt.Printf("  Started: %s\n", last.StartedAt.Format("2006-01-02 15:04:05"))
		if last.FinishedAt != nil {
			fmt.Printf("  Ended:   %s\n", last.FinishedAt.Format("2006-01-02 15:04:05"))
		}

		steps, err := store.RunSteps(ctx, last.ID)
		if err != nil {
			fmt.Printf("Cannot read run steps: %v\n", err)
			os.Exit(1)
		}
		if len(steps) > 0 {
			fmt.Printf("  Steps:\n")
			for _, step := range steps {
				fmt.Printf("    %-18s %s", step.Step, step.Status)
				if step.Detail != "" {
					fmt.Printf("  (%s)", step.Detail)
				}
				fmt.Println()
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
