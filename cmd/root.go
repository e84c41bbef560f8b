// Package cmd implements the brewsync CLI.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/brewlab/brewsync/internal/config"
)

var (
	version   string
	configDir string
)

// SetVersion sets the version string
func SetVersion(v string) {
	version = v
}

var rootCmd = &cobra.Command{
	Use:   "brewsync",
	Short: "Cross-device personalization sync engine CLI",
	Long: `brewsync keeps brewing profiles, calculator settings and usage analytics
consistent across a user's devices: sync sessions with conflict resolution,
an offline mutation queue, and encrypted cloud backups.`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfigDir)

	rootCmd.AddGroup(
		&cobra.Group{ID: "core", Title: "Sync Commands:"},
		&cobra.Group{ID: "backup", Title: "Backup Commands:"},
		&cobra.Group{ID: "system", Title: "System Commands:"},
	)
	rootCmd.SetHelpCommandGroupID("system")
	rootCmd.SetCompletionCommandGroupID("system")

	rootCmd.PersistentFlags().String("user", "", "user id (defaults to the configured user)")
}

func initConfigDir() {
	var err error
	configDir, err = config.Dir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot determine config directory: %v\n", err)
		os.Exit(1)
	}
}

// userFlag resolves the effective user id: the --user flag, then the
// configured default.
func userFlag(cmd *cobra.Command) (string, error) {
	user, _ := cmd.Flags().GetString("user")
	if user != "" {
		return user, nil
	}
	cfg, err := config.Load(configDir)
	if err != nil {
		return "", err
	}
	if cfg.UserID == "" {
		return "", fmt.Errorf("no user configured; pass --user or set one with 'brewsync config set-user'")
	}
	return cfg.UserID, nil
}
