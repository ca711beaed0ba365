package app

import (
	"time"

	"github.com/mblanc/ccmeter/internal/models"
	"github.com/mblanc/ccmeter/internal/services"
)

// TickMsg is sent every tick interval to keep clocks and countdowns
// current between refreshes.
type TickMsg struct {
	Time time.Time
}

// SnapshotMsg carries the latest KPI snapshot into the UI.
type SnapshotMsg struct {
	Snapshot *models.KPISnapshot
}

// RefreshStartedMsg signals that a refresh has been kicked off.
type RefreshStartedMsg struct{}

// RefreshDoneMsg signals that a refresh finished; the resulting snapshot
// (or the preserved prior one) follows in a SnapshotMsg.
type RefreshDoneMsg struct{}

// ReportWrittenMsg contains the result of writing a report file.
type ReportWrittenMsg struct {
	Path  string
	Error error
}

// ServiceEventMsg wraps a service event from the service manager.
type ServiceEventMsg struct {
	Event services.ServiceEvent
}

// SubscriptionMsg delivers the service event channel after subscribing.
type SubscriptionMsg struct {
	Channel chan services.ServiceEvent
}

// AddNotificationMsg requests adding a new notification.
type AddNotificationMsg struct {
	Type     NotificationType
	Message  string
	Duration time.Duration
}

// RemoveNotificationMsg requests removal of a notification.
type RemoveNotificationMsg struct {
	ID string
}

// TabSwitchMsg requests switching to a specific tab.
type TabSwitchMsg struct {
	Tab TabID
}

// ToggleHelpMsg toggles the help display.
type ToggleHelpMsg struct{}

// ErrorMsg represents a general error.
type ErrorMsg struct {
	Error   error
	Context string
}
