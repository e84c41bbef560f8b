package monitor

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// renderView renders the complete TUI view
func (m Model) renderView() string {
	if m.Width == 0 || m.Height == 0 {
		return "Loading..."
	}

	if m.Width < MinWidth || m.Height < MinHeight {
		return m.renderCompact()
	}

	if m.Err != nil {
		return m.renderError()
	}

	if m.ShowHelp {
		return m.renderHelp()
	}

	if m.Status == nil {
		return "Loading..."
	}

	availableHeight := m.Height - 3 // leave room for footer
	panelHeight := availableHeight / 3

	devices := m.renderDevicesPanel(panelHeight)
	sessions := m.renderSessionsPanel(panelHeight)
	issues := m.renderIssuesPanel(panelHeight)

	panels := lipgloss.JoinVertical(lipgloss.Left, devices, sessions, issues)
	footer := m.renderFooter()

	return lipgloss.JoinVertical(lipgloss.Left, panels, footer)
}

// renderCompact renders a minimal view for small terminals
func (m Model) renderCompact() string {
	var s strings.Builder

	s.WriteString("brewsync monitor (resize for full view)\n\n")
	if m.Status != nil {
		s.WriteString(fmt.Sprintf("Health: %s\n", m.Status.Verdict))
		s.WriteString(fmt.Sprintf("Devices: %d (%d online)\n", len(m.Status.Devices), m.Status.OnlineDevices))
		s.WriteString(fmt.Sprintf("Queue: %d | Conflicts: %d\n", m.Status.QueueDepth, m.Status.PendingConflicts))
	}
	s.WriteString("\nq:quit r:refresh ?:help")
	return s.String()
}

func (m Model) renderError() string {
	return fmt.Sprintf("error refreshing status: %v\n\nq:quit r:retry", m.Err)
}

func (m Model) renderHelp() string {
	help := `brewsync monitor

  Tab/Shift+Tab  Switch panels
  1/2/3          Jump to panel
  Up/Down        Select device row
  r              Force refresh
  ?              Toggle help
  q              Quit

Press ? to return.`
	return lipgloss.Place(m.Width, m.Height, lipgloss.Center, lipgloss.Center, help)
}

func (m Model) panelFrame(p Panel, title, body string, height int) string {
	style := panelStyle
	if m.ActivePanel == p {
		style = activePanelStyle
	}
	content := panelTitleStyle.Render(title) + "\n" + body
	return style.Width(m.Width - 2).Height(height - 2).Render(content)
}

func (m Model) renderDevicesPanel(height int) string {
	m.Devices.SetHeight(height - 4)
	title := fmt.Sprintf("[1] Devices (%d, %d online)", len(m.Status.Devices), m.Status.OnlineDevices)
	body := m.Devices.View()
	if len(m.Status.Devices) == 0 {
		body = subtleStyle.Render("no devices registered")
	}
	return m.panelFrame(PanelDevices, title, body, height)
}

func (m Model) renderSessionsPanel(height int) string {
	title := fmt.Sprintf("[2] Recent Sessions (%d active)", m.Status.ActiveSessions)

	var lines []string
	max := height - 4
	for i, s := range m.Status.RecentSessions {
		if i >= max {
			break
		}
		dur := ""
		if s.EndTime != nil {
			dur = s.EndTime.Sub(s.StartTime).Round(1e6).String()
		}
		lines = append(lines, fmt.Sprintf("%s  %s → %s  %s  %d items, %d conflicts  %s",
			timestampStyle.Render(s.StartTime.Format("15:04:05")),
			s.SourceDeviceID, s.TargetDeviceID,
			sessionStyle(s.Status).Render(string(s.Status)),
			s.CompletedItems, s.ConflictCount, subtleStyle.Render(dur)))
	}
	if len(lines) == 0 {
		lines = append(lines, subtleStyle.Render("no sessions yet"))
	}
	return m.panelFrame(PanelSessions, title, strings.Join(lines, "\n"), height)
}

func (m Model) renderIssuesPanel(height int) string {
	title := fmt.Sprintf("[3] Queue & Conflicts — %s",
		verdictStyle(m.Status.Verdict).Render(strings.ToUpper(string(m.Status.Verdict))))

	var lines []string
	lines = append(lines, fmt.Sprintf("Offline queue depth: %d", m.Status.QueueDepth))
	lines = append(lines, fmt.Sprintf("Pending conflicts:   %d", m.Status.PendingConflicts))
	if m.Status.LatestBackupAt != nil {
		lines = append(lines, fmt.Sprintf("Latest backup:       %s", m.Status.LatestBackupAt.Format("2006-01-02 15:04")))
	} else {
		lines = append(lines, "Latest backup:       none")
	}
	for _, issue := range m.Status.Issues {
		lines = append(lines, issueStyle.Render("! "+issue))
	}
	return m.panelFrame(PanelIssues, title, strings.Join(lines, "\n"), height)
}

func (m Model) renderFooter() string {
	refresh := "never"
	if !m.LastRefresh.IsZero() {
		refresh = m.LastRefresh.Format("15:04:05")
	}
	left := helpStyle.Render("tab:panels  r:refresh  ?:help  q:quit")
	right := timestampStyle.Render("updated " + refresh)
	gap := m.Width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}
