// Package app provides the main Bubble Tea application model and state management.
package app

import (
	"sync"
	"time"

	"github.com/mblanc/ccmeter/internal/models"
)

// NotificationType defines the type of notification.
type NotificationType int

const (
	// NotificationSuccess represents a success notification.
	NotificationSuccess NotificationType = iota
	// NotificationError represents an error notification.
	NotificationError
	// NotificationWarning represents a warning notification.
	NotificationWarning
	// NotificationInfo represents an informational notification.
	NotificationInfo
)

// String returns the string representation of a NotificationType.
func (n NotificationType) String() string {
	switch n {
	case NotificationSuccess:
		return "success"
	case NotificationError:
		return "error"
	case NotificationWarning:
		return "warning"
	case NotificationInfo:
		return "info"
	default:
		return "unknown"
	}
}

// Notification represents a user-facing notification message.
type Notification struct {
	ID        string
	Type      NotificationType
	Message   string
	CreatedAt time.Time
	Duration  time.Duration
}

// IsExpired returns true if the notification has expired.
func (n *Notification) IsExpired() bool {
	if n.Duration <= 0 {
		return false
	}
	return time.Since(n.CreatedAt) > n.Duration
}

// State is the shared application state. Tabs read from it; only the
// root model writes to it.
type State struct {
	mu sync.RWMutex

	snapshot    *models.KPISnapshot
	lastUpdated time.Time
	refreshing  bool
	sourceErr   string

	notifications   []Notification
	notificationSeq int
}

// NewState creates an empty application state.
func NewState() *State {
	return &State{
		notifications: make([]Notification, 0),
	}
}

// SetSnapshot stores the latest KPI snapshot.
func (s *State) SetSnapshot(snap *models.KPISnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if snap == nil {
		return
	}
	s.snapshot = snap
	s.lastUpdated = time.Now()
	s.sourceErr = ""
}

// GetSnapshot returns the latest snapshot, or nil before the first refresh.
func (s *State) GetSnapshot() *models.KPISnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// HasSnapshot reports whether a snapshot has been published yet.
func (s *State) HasSnapshot() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot != nil
}

// SetRefreshing marks whether a refresh is in flight.
func (s *State) SetRefreshing(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshing = v
}

// IsRefreshing reports whether a refresh is in flight.
func (s *State) IsRefreshing() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshing
}

// SetSourceError records the last source failure for display. The prior
// snapshot stays visible alongside it.
func (s *State) SetSourceError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sourceErr = msg
}

// SourceError returns the last source failure message, if any.
func (s *State) SourceError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sourceErr
}

// GetLastUpdated returns the last time a snapshot landed.
func (s *State) GetLastUpdated() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastUpdated
}

// TimeSinceUpdate returns the duration since the last snapshot.
func (s *State) TimeSinceUpdate() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastUpdated.IsZero() {
		return 0
	}
	return time.Since(s.lastUpdated)
}

// AddNotification adds a new notification and returns its ID.
func (s *State) AddNotification(notifType NotificationType, message string, duration time.Duration) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.notificationSeq++
	id := time.Now().Format("20060102150405") + "-" + string(rune('A'+s.notificationSeq%26))

	s.notifications = append(s.notifications, Notification{
		ID:        id,
		Type:      notifType,
		Message:   message,
		CreatedAt: time.Now(),
		Duration:  duration,
	})

	// Keep only the last 10 notifications
	if len(s.notifications) > 10 {
		s.notifications = s.notifications[len(s.notifications)-10:]
	}

	return id
}

// RemoveNotification removes a notification by ID.
func (s *State) RemoveNotification(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, n := range s.notifications {
		if n.ID == id {
			s.notifications = append(s.notifications[:i], s.notifications[i+1:]...)
			return
		}
	}
}

// ClearExpiredNotifications removes all expired notifications.
func (s *State) ClearExpiredNotifications() {
	s.mu.Lock()
	defer s.mu.Unlock()

	active := make([]Notification, 0, len(s.notifications))
	for _, n := range s.notifications {
		if !n.IsExpired() {
			active = append(active, n)
		}
	}
	s.notifications = active
}

// GetNotifications returns a copy of all active notifications.
func (s *State) GetNotifications() []Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()

	active := make([]Notification, 0, len(s.notifications))
	for _, n := range s.notifications {
		if !n.IsExpired() {
			active = append(active, n)
		}
	}
	return active
}
