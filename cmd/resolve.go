package cmd

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/brewlab/brewsync/internal/engine"
	"github.com/brewlab/brewsync/internal/models"
)

var resolveCmd = &cobra.Command{
	Use:     "resolve [conflict-id]",
	Short:   "Resolve pending conflicts interactively",
	GroupID: "core",
	Args:    cobra.MaximumNArgs(1),
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

		pending, err := app.engine.PendingConflicts(user)
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			fmt.Println("no pending conflicts")
			return nil
		}

		var target *models.Conflict
		if len(args) == 1 {
			for i := range pending {
				if pending[i].ConflictID == args[0] {
					target = &pending[i]
					break
				}
			}
			if target == nil {
				return fmt.Errorf("conflict %s is not pending", args[0])
			}
		} else {
			target, err = pickConflict(pending)
			if err != nil {
				return err
			}
		}

		winner, err := pickWinner(target)
		if err != nil {
			return err
		}

		err = app.engine.ResolvePendingConflict(cmd.Context(), user, target.ConflictID,
			engine.ManualDecision{WinnerID: winner})
		if err != nil {
			return err
		}
		fmt.Printf("resolved %s: %s wins\n", target.ConflictID, winner)
		return nil
	},
}

func pickConflict(pending []models.Conflict) (*models.Conflict, error) {
	options := make([]huh.Option[int], len(pending))
	for i, c := range pending {
		options[i] = huh.NewOption(
			fmt.Sprintf("%s  %s  detected %s", c.ConflictID, c.Category, c.DetectedAt.Format("2006-01-02 15:04")), i)
	}

	var idx int
	form := huh.NewForm(huh.NewGroup(
		huh.NewSelect[int]().
			Title("Pending conflicts").
			Options(options...).
			Value(&idx),
	))
	if err := form.Run(); err != nil {
		return nil, err
	}
	return &pending[idx], nil
}

func pickWinner(c *models.Conflict) (string, error) {
	options := []huh.Option[string]{
		huh.NewOption(
			fmt.Sprintf("Source %s (%s): %s", c.Source.DeviceID, c.Source.Timestamp.Format("15:04:05"), preview(c.Source.Value)),
			c.Source.DeviceID),
		huh.NewOption(
			fmt.Sprintf("Target %s (%s): %s", c.Target.DeviceID, c.Target.Timestamp.Format("15:04:05"), preview(c.Target.Value)),
			c.Target.DeviceID),
	}

	var winner string
	form := huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title(fmt.Sprintf("Which value wins for %s?", c.Category)).
			Options(options...).
			Value(&winner),
	))
	if err := form.Run(); err != nil {
		return "", err
	}
	return winner, nil
}

func preview(v []byte) string {
	const max = 60
	s := string(v)
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}
