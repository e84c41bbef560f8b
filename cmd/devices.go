package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/brewlab/brewsync/internal/config"
	"github.com/brewlab/brewsync/internal/models"
	"github.com/brewlab/brewsync/internal/registry"
)

var devicesCmd = &cobra.Command{
	Use:     "devices",
	Short:   "Manage registered devices",
	GroupID: "core",
}

var devicesRegisterCmd = &cobra.Command{
	Use:   "register",
	Short: "Register this device for sync",
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

		name, _ := cmd.Flags().GetString("name")
		typ, _ := cmd.Flags().GetString("type")
		total, _ := cmd.Flags().GetInt64("storage-total")
		used, _ := cmd.Flags().GetInt64("storage-used")
		tier, _ := cmd.Flags().GetString("tier")
		offline, _ := cmd.Flags().GetBool("offline")
		push, _ := cmd.Flags().GetBool("push")

		res, err := app.registry.RegisterDevice(user, registry.DeviceInfo{
			Name: name,
			Type: models.DeviceType(typ),
			Capabilities: models.Capabilities{
				SupportsOffline: offline,
				StorageTotalMB:  total,
				StorageUsedMB:   used,
				PerformanceTier: models.PerformanceTier(tier),
				SupportsPush:    push,
			},
		})
		for _, rec := range res.Recommendations {
			fmt.Printf("note: %s\n", rec)
		}
		if err != nil {
			return err
		}

		fmt.Printf("registered %s\n", res.DeviceID)
		return config.Update(configDir, func(c *config.Config) error {
			if c.UserID == "" {
				c.UserID = user
			}
			c.DeviceID = res.DeviceID
			return nil
		})
	},
}

var devicesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered devices",
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

		devices, err := app.registry.Devices(user)
		if err != nil {
			return err
		}
		if len(devices) == 0 {
			fmt.Println("no devices registered")
			return nil
		}
		for _, d := range devices {
			state := "offline"
			if d.IsOnline {
				state = "online"
			}
			last := "never"
			if d.LastSyncAt != nil {
				last = d.LastSyncAt.Format("2006-01-02 15:04")
			}
			fmt.Printf("%s  %-20s %-8s %-7s last sync: %s\n", d.DeviceID, d.Name, d.Type, state, last)
		}
		return nil
	},
}

var devicesRemoveCmd = &cobra.Command{
	Use:   "remove <device-id>",
	Short: "Remove a registered device",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.Close()

		if err := app.store.RemoveDevice(args[0]); err != nil {
			return err
		}
		fmt.Printf("removed %s\n", args[0])
		return nil
	},
}

func init() {
	devicesRegisterCmd.Flags().String("name", "", "device display name")
	devicesRegisterCmd.Flags().String("type", "desktop", "device type (mobile|tablet|desktop|wearable|tv)")
	devicesRegisterCmd.Flags().Int64("storage-total", 0, "total storage in MB")
	devicesRegisterCmd.Flags().Int64("storage-used", 0, "used storage in MB")
	devicesRegisterCmd.Flags().String("tier", "medium", "performance tier (low|medium|high)")
	devicesRegisterCmd.Flags().Bool("offline", true, "device supports offline mode")
	devicesRegisterCmd.Flags().Bool("push", false, "device supports push notifications")

	devicesCmd.AddCommand(devicesRegisterCmd, devicesListCmd, devicesRemoveCmd)
	rootCmd.AddCommand(devicesCmd)
}
