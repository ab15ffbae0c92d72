package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var syncFull bool

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run a one-shot sync against Discogs",
	Long: `Pulls the collection, want-list and valuation from Discogs and merges
persisted annotations. With --full, all local state is wiped first, which is
the safe way to sync after switching accounts.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := setup()
		if err != nil {
			return err
		}
		defer rt.Close()

		ctx := context.Background()
		if !syncFull {
			username, err := rt.Resolver.Resolve(ctx)
			if err != nil {
				return err
			}
			if err := rt.Sync.LoadAnnotations(username); err != nil {
				rt.Logger.Warn("Failed to load annotations", "error", err)
			}
		}

		run := rt.Sync.PerformSync
		if syncFull {
			run = rt.Sync.DevSync
		}
		result, err := run(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("Synced %d albums across %d folders, %d wants\n", result.Albums, result.Folders, result.Wants)
		return nil
	},
}

func init() {
	syncCmd.Flags().BoolVar(&syncFull, "full", false, "wipe local state before syncing (account-switching safe)")
}
