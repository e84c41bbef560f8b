package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/brewlab/brewsync/internal/health"
)

var statusCmd = &cobra.Command{
	Use:     "status",
	Short:   "Show sync health for a user",
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

		st, err := app.health.GetSyncStatus(user)
		if err != nil {
			return err
		}

		if report, _ := cmd.Flags().GetBool("report"); report {
			return renderReport(st)
		}

		fmt.Printf("health: %s\n", st.Verdict)
		fmt.Printf("devices: %d (%d online)   active sessions: %d\n",
			len(st.Devices), st.OnlineDevices, st.ActiveSessions)
		fmt.Printf("queue depth: %d   pending conflicts: %d\n", st.QueueDepth, st.PendingConflicts)
		if st.LatestBackupAt != nil {
			fmt.Printf("latest backup: %s\n", st.LatestBackupAt.Format("2006-01-02 15:04"))
		} else {
			fmt.Println("latest backup: none")
		}
		for _, issue := range st.Issues {
			fmt.Printf("  ! %s\n", issue)
		}
		return nil
	},
}

// renderReport formats the status as markdown and renders it with glamour.
func renderReport(st *health.Status) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# Sync Health: %s\n\n", st.Verdict)
	fmt.Fprintf(&b, "Generated %s for user `%s`.\n\n", st.GeneratedAt.Format("2006-01-02 15:04 MST"), st.UserID)

	b.WriteString("## Devices\n\n")
	if len(st.Devices) == 0 {
		b.WriteString("No devices registered.\n\n")
	}
	for _, d := range st.Devices {
		state := "offline"
		if d.IsOnline {
			state = "online"
		}
		last := "never synced"
		if d.LastSyncAt != nil {
			last = "last sync " + d.LastSyncAt.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(&b, "- **%s** (`%s`, %s) — %s, %s\n", d.Name, d.DeviceID, d.Type, state, last)
	}

	b.WriteString("\n## Queue & Conflicts\n\n")
	fmt.Fprintf(&b, "- Offline queue depth: %d\n", st.QueueDepth)
	fmt.Fprintf(&b, "- Pending conflicts: %d\n", st.PendingConflicts)
	fmt.Fprintf(&b, "- Active sessions: %d\n", st.ActiveSessions)

	b.WriteString("\n## Backups\n\n")
	if st.LatestBackupAt != nil {
		fmt.Fprintf(&b, "Latest backup at %s.\n", st.LatestBackupAt.Format("2006-01-02 15:04"))
	} else {
		b.WriteString("No backups recorded.\n")
	}

	if len(st.Issues) > 0 {
		b.WriteString("\n## Issues\n\n")
		for _, issue := range st.Issues {
			fmt.Fprintf(&b, "- %s\n", issue)
		}
	}

	if len(st.RecentSessions) > 0 {
		b.WriteString("\n## Recent Sessions\n\n")
		for _, s := range st.RecentSessions {
			fmt.Fprintf(&b, "- `%s` %s → %s: %s (%d items, %d conflicts)\n",
				s.SessionID, s.SourceDeviceID, s.TargetDeviceID, s.Status,
				s.CompletedItems, s.ConflictCount)
		}
	}

	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		return err
	}
	out, err := r.Render(b.String())
	if err != nil {
		return err
	}
	fmt.Print(out)
	return nil
}

func init() {
	statusCmd.Flags().Bool("report", false, "render a full markdown health report")
	rootCmd.AddCommand(statusCmd)
}
