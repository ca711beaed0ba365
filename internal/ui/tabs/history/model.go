// Package history provides the history tab: day rollups and the
// snapshot audit log read back from the database.
package history

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mblanc/ccmeter/internal/app"
	"github.com/mblanc/ccmeter/internal/db"
	"github.com/mblanc/ccmeter/internal/models"
	"github.com/mblanc/ccmeter/internal/services"
)

const snapshotLogLimit = 12

// keyMap defines the key bindings specific to the history tab.
type keyMap struct {
	ToggleRange key.Binding
	Reload      key.Binding
	Up          key.Binding
	Down        key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		ToggleRange: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "toggle time range"),
		),
		Reload: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "reload history"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "scroll up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "scroll down"),
		),
	}
}

// historyLoadedMsg is sent when history data is loaded.
type historyLoadedMsg struct {
	rollups []models.DayRollup
	logs    []db.SnapshotLogEntry
}

// historyErrorMsg is sent when there's an error loading history.
type historyErrorMsg struct {
	err string
}

// Model represents the history tab state.
type Model struct {
	state    *app.State
	services *services.Manager
	width    int
	height   int
	keys     keyMap
	viewport viewport.Model

	rangeDays   int
	rollups     []models.DayRollup
	logs        []db.SnapshotLogEntry
	loading     bool
	loaded      bool
	lastRefresh time.Time
	errorMsg    string
}

// New creates a new history model.
func New(state *app.State, svc *services.Manager) *Model {
	return &Model{
		state:     state,
		services:  svc,
		keys:      defaultKeyMap(),
		viewport:  viewport.New(0, 0),
		rangeDays: 30,
	}
}

// Init initializes the history tab.
func (m *Model) Init() tea.Cmd {
	m.loading = true
	return m.loadHistoryCmd()
}

func (m *Model) loadHistoryCmd() tea.Cmd {
	days := m.rangeDays
	return func() tea.Msg {
		if m.services == nil {
			return historyErrorMsg{err: "services not initialized"}
		}

		since := time.Now().AddDate(0, 0, -days)
		rollups, err := m.services.DayRollups(since)
		if err != nil {
			return historyErrorMsg{err: err.Error()}
		}

		logs, err := m.services.History(snapshotLogLimit)
		if err != nil {
			return historyErrorMsg{err: err.Error()}
		}

		return historyLoadedMsg{rollups: rollups, logs: logs}
	}
}

// Update handles messages for the history tab.
func (m *Model) Update(msg tea.Msg) (app.Tab, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case historyLoadedMsg:
		m.rollups = msg.rollups
		m.logs = msg.logs
		m.loading = false
		m.loaded = true
		m.lastRefresh = time.Now()
		m.errorMsg = ""

	case historyErrorMsg:
		m.loading = false
		m.errorMsg = msg.err

	case app.SnapshotMsg:
		// A fresh snapshot means new rollup and log rows; reload lazily.
		if m.loaded && !m.loading && time.Since(m.lastRefresh) > 30*time.Second {
			m.loading = true
			cmds = append(cmds, m.loadHistoryCmd())
		}

	case app.TabSwitchMsg:
		if msg.Tab == app.TabHistory && !m.loading {
			m.loading = true
			cmds = append(cmds, m.loadHistoryCmd())
		}

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) (app.Tab, tea.Cmd) {
	var cmds []tea.Cmd
	switch {
	case key.Matches(msg, m.keys.ToggleRange):
		if m.rangeDays == 30 {
			m.rangeDays = 7
		} else {
			m.rangeDays = 30
		}
		m.loading = true
		cmds = append(cmds, m.loadHistoryCmd())

	case key.Matches(msg, m.keys.Reload):
		m.loading = true
		cmds = append(cmds, m.loadHistoryCmd())

	default:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

// SetSize sets the available size for the history tab.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height
}

// ShortHelp returns the key bindings for the short help view.
func (m *Model) ShortHelp() []key.Binding {
	return []key.Binding{
		m.keys.ToggleRange,
		m.keys.Reload,
	}
}
