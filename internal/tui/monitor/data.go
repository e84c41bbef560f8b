package monitor

import (
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/brewlab/brewsync/internal/health"
)

// fetchData builds a RefreshDataMsg off the UI goroutine
func (m Model) fetchData() tea.Cmd {
	hm, user := m.Health, m.UserID
	return func() tea.Msg {
		st, err := hm.GetSyncStatus(user)
		return RefreshDataMsg{Status: st, Err: err, Timestamp: time.Now()}
	}
}

// deviceRows converts the status's device list into table rows
func deviceRows(st *health.Status) []table.Row {
	rows := make([]table.Row, 0, len(st.Devices))
	for _, d := range st.Devices {
		state := "offline"
		if d.IsOnline {
			state = "online"
		}
		last := "never"
		if d.LastSyncAt != nil {
			last = d.LastSyncAt.Format("2006-01-02 15:04")
		}
		rows = append(rows, table.Row{d.DeviceID, d.Name, string(d.Type), state, last})
	}
	return rows
}
