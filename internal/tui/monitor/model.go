// Package monitor is the live terminal dashboard showing sync health:
// devices, recent sessions, queue depth and pending conflicts.
package monitor

import (
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/brewlab/brewsync/internal/health"
)

// Panel represents which panel is active
type Panel int

const (
	PanelDevices Panel = iota
	PanelSessions
	PanelIssues
)

// MinWidth is the minimum terminal width for proper display
const MinWidth = 40

// MinHeight is the minimum terminal height for proper display
const MinHeight = 15

// TickMsg triggers a data refresh
type TickMsg time.Time

// RefreshDataMsg carries a freshly built health status
type RefreshDataMsg struct {
	Status    *health.Status
	Err       error
	Timestamp time.Time
}

// Model is the main Bubble Tea model for the monitor TUI
type Model struct {
	Health *health.Monitor
	UserID string

	Width  int
	Height int

	Status      *health.Status
	LastRefresh time.Time
	Err         error

	ActivePanel Panel
	Devices     table.Model
	ShowHelp    bool

	RefreshInterval time.Duration
}

// NewModel creates a new monitor model
func NewModel(hm *health.Monitor, userID string, interval time.Duration) Model {
	cols := []table.Column{
		{Title: "Device", Width: 14},
		{Title: "Name", Width: 18},
		{Title: "Type", Width: 9},
		{Title: "State", Width: 8},
		{Title: "Last Sync", Width: 17},
	}
	t := table.New(table.WithColumns(cols), table.WithFocused(true))
	return Model{
		Health:          hm,
		UserID:          userID,
		RefreshInterval: interval,
		ActivePanel:     PanelDevices,
		Devices:         t,
	}
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.fetchData(),
		m.scheduleTick(),
	)
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Devices.SetWidth(msg.Width - 4)
		return m, nil

	case TickMsg:
		return m, tea.Batch(m.fetchData(), m.scheduleTick())

	case RefreshDataMsg:
		m.Err = msg.Err
		if msg.Err == nil {
			m.Status = msg.Status
			m.Devices.SetRows(deviceRows(msg.Status))
		}
		m.LastRefresh = msg.Timestamp
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "r":
		return m, m.fetchData()
	case "?":
		m.ShowHelp = !m.ShowHelp
		return m, nil
	case "tab":
		m.ActivePanel = (m.ActivePanel + 1) % 3
		return m, nil
	case "shift+tab":
		m.ActivePanel = (m.ActivePanel + 2) % 3
		return m, nil
	case "1":
		m.ActivePanel = PanelDevices
		return m, nil
	case "2":
		m.ActivePanel = PanelSessions
		return m, nil
	case "3":
		m.ActivePanel = PanelIssues
		return m, nil
	}

	if m.ActivePanel == PanelDevices {
		var cmd tea.Cmd
		m.Devices, cmd = m.Devices.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model
func (m Model) View() string {
	return m.renderView()
}

// scheduleTick queues the next refresh tick
func (m Model) scheduleTick() tea.Cmd {
	return tea.Tick(m.RefreshInterval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}
