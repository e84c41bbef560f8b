package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/brewlab/brewsync/internal/engine"
	"github.com/brewlab/brewsync/internal/models"
)

var syncCmd = &cobra.Command{
	Use:     "sync",
	Short:   "Run a sync session between two devices",
	GroupID: "core",
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := userFlag(cmd)
		if err != nil {
			return err
		}
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.Close()

		source, _ := cmd.Flags().GetString("source")
		target, _ := cmd.Flags().GetString("target")
		if source == "" {
			source = app.cfg.DeviceID
		}
		if source == "" || target == "" {
			return fmt.Errorf("both --source and --target are required")
		}

		cats, _ := cmd.Flags().GetStringSlice("categories")
		var scope []models.Category
		for _, c := range cats {
			if !models.ValidCategory(c) {
				return fmt.Errorf("unknown category %q", c)
			}
			scope = append(scope, models.Category(c))
		}
		strategy, _ := cmd.Flags().GetString("strategy")
		if strategy != "" && !models.ValidStrategy(strategy) {
			return fmt.Errorf("unknown strategy %q", strategy)
		}

		res, err := app.engine.SyncUserData(cmd.Context(), user, source, target, engine.Options{
			Categories: scope,
			Strategy:   models.ConflictStrategy(strategy),
		})
		if err != nil {
			return err
		}

		fmt.Printf("session %s: %s (%s)\n", res.SessionID, res.Status, res.Duration.Round(1e6))
		fmt.Printf("  synced:    %d categories\n", len(res.SyncedCategories))
		fmt.Printf("  conflicts: %d resolved, %d pending\n", res.ConflictsResolved, res.ConflictsPending)
		for _, e := range res.Errors {
			fmt.Printf("  error [%s/%s]: %s\n", e.Category, e.Op, e.Message)
		}
		for _, c := range res.Conflicts {
			if c.Resolution == nil {
				fmt.Printf("  pending conflict %s on %s: resolve with 'brewsync resolve %s'\n",
					c.ConflictID, c.Category, c.ConflictID)
			}
		}
		return nil
	},
}

func init() {
	syncCmd.Flags().String("source", "", "source device id (defaults to this device)")
	syncCmd.Flags().String("target", "", "target device id")
	syncCmd.Flags().StringSlice("categories", nil, "restrict to these categories")
	syncCmd.Flags().String("strategy", "", "override conflict strategy for this session")
	rootCmd.AddCommand(syncCmd)
}
