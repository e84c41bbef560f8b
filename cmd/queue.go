package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/brewlab/brewsync/internal/models"
)

var queueCmd = &cobra.Command{
	Use:     "queue",
	Short:   "Inspect and drain the offline mutation queue",
	GroupID: "core",
}

var queueListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pending offline mutations",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.Close()

		device, _ := cmd.Flags().GetString("device")
		if device == "" {
			device = app.cfg.DeviceID
		}
		if device == "" {
			return fmt.Errorf("--device is required")
		}

		items, err := app.store.PendingItems(device)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			fmt.Println("queue is empty")
			return nil
		}
		for _, it := range items {
			fmt.Printf("%s  %-12s %-7s retries %d/%d  queued %s\n",
				it.ItemID, it.Category, it.Action, it.Retries, it.MaxRetries,
				it.EnqueuedAt.Format("2006-01-02 15:04"))
			if it.LastError != "" {
				fmt.Printf("    last error: %s\n", it.LastError)
			}
		}
		return nil
	},
}

var queueAddCmd = &cobra.Command{
	Use:   "add <category> <json-payload>",
	Short: "Queue a mutation to apply on the next drain",
	Args:  cobra.ExactArgs(2),
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

		device, _ := cmd.Flags().GetString("device")
		if device == "" {
			device = app.cfg.DeviceID
		}
		if !models.ValidCategory(args[0]) {
			return fmt.Errorf("unknown category %q", args[0])
		}
		if !json.Valid([]byte(args[1])) {
			return fmt.Errorf("payload is not valid JSON")
		}
		action, _ := cmd.Flags().GetString("action")
		deps, _ := cmd.Flags().GetStringSlice("depends-on")

		item, err := app.queue.Enqueue(user, device, models.Category(args[0]),
			models.QueueAction(action), json.RawMessage(args[1]), deps)
		if err != nil {
			return err
		}
		fmt.Printf("queued %s\n", item.ItemID)
		return nil
	},
}

var queueDrainCmd = &cobra.Command{
	Use:   "drain",
	Short: "Mark the device online and replay its queued mutations",
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

		device, _ := cmd.Flags().GetString("device")
		if device == "" {
			device = app.cfg.DeviceID
		}

		res, err := app.queue.SyncOffline(cmd.Context(), user, device, true)
		if err != nil {
			return err
		}
		fmt.Printf("drained: %d applied, %d conflicts, %d errors\n",
			res.Synced, res.Conflicts, len(res.Errors))
		for _, e := range res.Errors {
			fmt.Printf("  [%s] %s: %s\n", e.Category, e.ItemID, e.Message)
		}
		return nil
	},
}

func init() {
	queueCmd.PersistentFlags().String("device", "", "device id (defaults to this device)")
	queueAddCmd.Flags().String("action", "update", "mutation action (create|update|delete)")
	queueAddCmd.Flags().StringSlice("depends-on", nil, "item ids this mutation depends on")

	queueCmd.AddCommand(queueListCmd, queueAddCmd, queueDrainCmd)
	rootCmd.AddCommand(queueCmd)
}
