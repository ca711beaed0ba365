package app

import (
	"testing"
	"time"

	"github.com/mblanc/ccmeter/internal/models"
)

func TestNewState(t *testing.T) {
	s := NewState()
	if s == nil {
		t.Fatal("NewState returned nil")
	}
	if s.HasSnapshot() {
		t.Error("fresh state should have no snapshot")
	}
	if s.GetSnapshot() != nil {
		t.Error("GetSnapshot should be nil before first refresh")
	}
}

func TestState_SetSnapshot(t *testing.T) {
	s := NewState()

	snap := &models.KPISnapshot{GeneratedAt: time.Now()}
	s.SetSnapshot(snap)

	if !s.HasSnapshot() {
		t.Error("HasSnapshot should be true after SetSnapshot")
	}
	if s.GetSnapshot() != snap {
		t.Error("GetSnapshot returned wrong snapshot")
	}
	if s.GetLastUpdated().IsZero() {
		t.Error("LastUpdated should be set")
	}
}

func TestState_SetSnapshot_NilIgnored(t *testing.T) {
	s := NewState()
	snap := &models.KPISnapshot{}
	s.SetSnapshot(snap)

	s.SetSnapshot(nil)
	if s.GetSnapshot() != snap {
		t.Error("nil snapshot should not replace the prior one")
	}
}

func TestState_SourceError_ClearedBySnapshot(t *testing.T) {
	s := NewState()
	s.SetSourceError("directory missing")
	if s.SourceError() != "directory missing" {
		t.Error("SourceError not stored")
	}

	s.SetSnapshot(&models.KPISnapshot{})
	if s.SourceError() != "" {
		t.Error("a successful snapshot should clear the source error")
	}
}

func TestState_Refreshing(t *testing.T) {
	s := NewState()
	if s.IsRefreshing() {
		t.Error("fresh state should not be refreshing")
	}
	s.SetRefreshing(true)
	if !s.IsRefreshing() {
		t.Error("SetRefreshing(true) not reflected")
	}
}

func TestState_Notifications(t *testing.T) {
	s := NewState()

	id := s.AddNotification(NotificationSuccess, "done", 5*time.Second)
	if id == "" {
		t.Error("AddNotification should return an ID")
	}
	if len(s.GetNotifications()) != 1 {
		t.Errorf("notification count = %d, want 1", len(s.GetNotifications()))
	}

	s.RemoveNotification(id)
	if len(s.GetNotifications()) != 0 {
		t.Error("notification should be removed")
	}
}

func TestState_Notifications_Expiry(t *testing.T) {
	s := NewState()

	s.AddNotification(NotificationInfo, "old", time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	s.ClearExpiredNotifications()

	if len(s.GetNotifications()) != 0 {
		t.Error("expired notification should be cleared")
	}
}

func TestState_Notifications_Capped(t *testing.T) {
	s := NewState()

	for i := 0; i < 15; i++ {
		s.AddNotification(NotificationInfo, "n", time.Minute)
	}
	if got := len(s.GetNotifications()); got != 10 {
		t.Errorf("notification count = %d, want 10", got)
	}
}

func TestNotificationType_String(t *testing.T) {
	tests := []struct {
		typ  NotificationType
		want string
	}{
		{NotificationSuccess, "success"},
		{NotificationError, "error"},
		{NotificationWarning, "warning"},
		{NotificationInfo, "info"},
		{NotificationType(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.typ.String(); got != tt.want {
			t.Errorf("String() = %s, want %s", got, tt.want)
		}
	}
}
