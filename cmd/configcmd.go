package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/brewlab/brewsync/internal/config"
)

var configCmd = &cobra.Command{
	Use:     "config",
	Short:   "Manage CLI configuration",
	GroupID: "system",
}

var configSetUserCmd = &cobra.Command{
	Use:   "set-user <user-id>",
	Short: "Set the default user for commands",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return config.Update(configDir, func(c *config.Config) error {
			c.UserID = args[0]
			return nil
		})
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configDir)
		if err != nil {
			return err
		}
		fmt.Printf("config dir: %s\n", configDir)
		fmt.Printf("user:       %s\n", cfg.UserID)
		fmt.Printf("device:     %s\n", cfg.DeviceID)
		if cfg.ServerURL != "" {
			fmt.Printf("server:     %s\n", cfg.ServerURL)
		}
		if cfg.DBPath != "" {
			fmt.Printf("db path:    %s\n", cfg.DBPath)
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:     "version",
	Short:   "Print the brewsync version",
	GroupID: "system",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version)
	},
}

func init() {
	configCmd.AddCommand(configSetUserCmd, configShowCmd)
	rootCmd.AddCommand(configCmd, versionCmd)
}
