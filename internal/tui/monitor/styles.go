package monitor

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/brewlab/brewsync/internal/health"
	"github.com/brewlab/brewsync/internal/models"
)

var (
	// Base colors
	primaryColor   = lipgloss.Color("212")
	secondaryColor = lipgloss.Color("141")
	mutedColor     = lipgloss.Color("241")
	successColor   = lipgloss.Color("42")
	warningColor   = lipgloss.Color("214")
	errorColor     = lipgloss.Color("196")

	// Panel styles
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	activePanelStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(primaryColor).
				Padding(0, 1)

	panelTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Background(lipgloss.Color("237")).
			Foreground(lipgloss.Color("255")).
			Padding(0, 1)

	// Text styles
	subtleStyle    = lipgloss.NewStyle().Foreground(mutedColor)
	helpStyle      = lipgloss.NewStyle().Foreground(mutedColor)
	timestampStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))

	// Verdict styles
	verdictStyles = map[health.Verdict]lipgloss.Style{
		health.Healthy:  lipgloss.NewStyle().Foreground(successColor).Bold(true),
		health.Warning:  lipgloss.NewStyle().Foreground(warningColor).Bold(true),
		health.Critical: lipgloss.NewStyle().Foreground(errorColor).Bold(true),
	}

	// Session status styles
	sessionStyles = map[models.SessionStatus]lipgloss.Style{
		models.SessionCompleted: lipgloss.NewStyle().Foreground(successColor),
		models.SessionFailed:    lipgloss.NewStyle().Foreground(errorColor),
		models.SessionSyncing:   lipgloss.NewStyle().Foreground(warningColor),
		models.SessionResolving: lipgloss.NewStyle().Foreground(secondaryColor),
	}

	issueStyle = lipgloss.NewStyle().Foreground(warningColor)
)

func verdictStyle(v health.Verdict) lipgloss.Style {
	if s, ok := verdictStyles[v]; ok {
		return s
	}
	return subtleStyle
}

func sessionStyle(s models.SessionStatus) lipgloss.Style {
	if st, ok := sessionStyles[s]; ok {
		return st
	}
	return subtleStyle
}
