package app

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mblanc/ccmeter/internal/models"
)

func TestNewModel(t *testing.T) {
	model := NewModel(nil)
	if model == nil {
		t.Fatal("NewModel returned nil")
	}
	if model.state == nil {
		t.Error("State should be initialized")
	}
	if model.activeTab != TabDashboard {
		t.Error("Default tab should be Dashboard")
	}
	if len(model.tabs) != 3 {
		t.Errorf("Should have 3 tabs placeholder, got %d", len(model.tabs))
	}
}

func TestModel_Init(t *testing.T) {
	model := NewModel(nil)
	if model.Init() == nil {
		t.Error("Init returned nil command")
	}
}

func TestModel_Update_WindowSize(t *testing.T) {
	model := NewModel(nil)

	newModel, _ := model.Update(tea.WindowSizeMsg{Width: 100, Height: 50})
	m, ok := newModel.(*Model)
	if !ok {
		t.Fatal("Update returned wrong model type")
	}

	if m.width != 100 || m.height != 50 {
		t.Errorf("size = %dx%d, want 100x50", m.width, m.height)
	}
	if !m.ready {
		t.Error("Model should be ready after WindowSizeMsg")
	}
}

func TestModel_Update_TabSwitch(t *testing.T) {
	model := NewModel(nil)
	model.ready = true
	model.width = 100
	model.height = 50

	newModel, _ := model.Update(TabSwitchMsg{Tab: TabHistory})
	m := newModel.(*Model)
	if m.activeTab != TabHistory {
		t.Errorf("ActiveTab = %v, want History", m.activeTab)
	}

	keyMsg := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'3'}}
	newModel, _ = m.Update(keyMsg)
	m = newModel.(*Model)
	if m.activeTab != TabInfo {
		t.Errorf("ActiveTab = %v, want Info after key '3'", m.activeTab)
	}
}

func TestModel_Update_Tick(t *testing.T) {
	model := NewModel(nil)
	_, cmd := model.Update(TickMsg{Time: time.Now()})
	if cmd == nil {
		t.Error("TickMsg should return a command (next tick)")
	}
}

func TestModel_Update_Snapshot(t *testing.T) {
	model := NewModel(nil)
	snap := &models.KPISnapshot{GeneratedAt: time.Now()}

	model.Update(SnapshotMsg{Snapshot: snap})
	if model.state.GetSnapshot() != snap {
		t.Error("SnapshotMsg should be stored in state")
	}
}

func TestModel_Update_RefreshLifecycle(t *testing.T) {
	model := NewModel(nil)

	model.Update(RefreshStartedMsg{})
	if !model.state.IsRefreshing() {
		t.Error("RefreshStartedMsg should mark state refreshing")
	}

	model.Update(RefreshDoneMsg{})
	if model.state.IsRefreshing() {
		t.Error("RefreshDoneMsg should clear the refreshing flag")
	}
}

func TestModel_View(t *testing.T) {
	model := NewModel(nil)

	view := model.View()
	if !strings.Contains(view, "Loading...") {
		t.Error("View should show Loading when not ready")
	}

	model.ready = true
	model.width = 80
	model.height = 24

	view = model.View()
	if !strings.Contains(view, "Dashboard") {
		t.Error("View should show Dashboard tab")
	}
}

func TestModel_Help(t *testing.T) {
	model := NewModel(nil)
	model.ready = true
	model.width = 80
	model.height = 30

	model.Update(ToggleHelpMsg{})
	if !model.showHelp {
		t.Error("ToggleHelpMsg should enable help")
	}

	view := model.View()
	if !strings.Contains(view, "Keyboard Shortcuts") {
		t.Error("Help overlay should render shortcuts")
	}

	keyMsg := tea.KeyMsg{Type: tea.KeyEsc}
	model.Update(keyMsg)
	if model.showHelp {
		t.Error("Esc should close help")
	}
}

func TestModel_Quit(t *testing.T) {
	model := NewModel(nil)
	keyMsg := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}}

	cmd := model.handleKeyMsg(keyMsg)
	if cmd == nil {
		t.Fatal("quit key should return a command")
	}
	if msg := cmd(); msg == nil {
		t.Error("quit command should produce a message")
	}
}

func TestModel_Notifications(t *testing.T) {
	model := NewModel(nil)
	model.ready = true
	model.width = 80
	model.height = 24

	model.Update(AddNotificationMsg{
		Type:     NotificationError,
		Message:  "source gone",
		Duration: time.Minute,
	})

	view := model.View()
	if !strings.Contains(view, "source gone") {
		t.Error("notification should appear in view")
	}
}

func TestTabID_String(t *testing.T) {
	tests := []struct {
		id   TabID
		want string
	}{
		{TabDashboard, "Dashboard"},
		{TabHistory, "History"},
		{TabInfo, "Info"},
		{TabID(99), "Unknown"},
	}
	for _, tt := range tests {
		if got := tt.id.String(); got != tt.want {
			t.Errorf("String() = %s, want %s", got, tt.want)
		}
	}
}
