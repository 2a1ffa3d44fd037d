package messaging

import (
	"time"

	"github.com/google/uuid"
)

// ServiceName is stamped on every event.
const ServiceName = "lab-portal"

// Event routing keys as constants
const (
	// Session events
	EventSessionStarted = "portal.session.started"
	EventSessionEnded   = "portal.session.ended"

	// Results events
	EventResultsViewed   = "portal.results.viewed"
	EventResultsExported = "portal.results.exported"

	// Notification events
	EventNotificationRead = "portal.notification.read"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventType   string    `json:"event_type"`
	EventID     string    `json:"event_id"`
	Timestamp   time.Time `json:"timestamp"`
	ServiceName string    `json:"service_name"`
}

// SessionStartedEvent is published after a successful login
type SessionStartedEvent struct {
	BaseEvent
	Data SessionStartedData `json:"data"`
}

type SessionStartedData struct {
	PersonaID    int64     `json:"persona_id,omitempty"`
	DocumentType string    `json:"document_type"`
	Channel      string    `json:"channel"` // "cli" or "api"
	StartedAt    time.Time `json:"started_at"`
}

// SessionEndedEvent is published on logout
type SessionEndedEvent struct {
	BaseEvent
	Data SessionEndedData `json:"data"`
}

type SessionEndedData struct {
	PersonaID int64     `json:"persona_id,omitempty"`
	EndedAt   time.Time `json:"ended_at"`
}

// ResultsViewedEvent records that a patient opened an order's results
type ResultsViewedEvent struct {
	BaseEvent
	Data ResultsViewedData `json:"data"`
}

type ResultsViewedData struct {
	PersonaID  int64     `json:"persona_id,omitempty"`
	OrderID    string    `json:"order_id"`
	GroupCount int       `json:"group_count"`
	TestCount  int       `json:"test_count"`
	ViewedAt   time.Time `json:"viewed_at"`
}

// ResultsExportedEvent records a spreadsheet export of an order's results
type ResultsExportedEvent struct {
	BaseEvent
	Data ResultsExportedData `json:"data"`
}

type ResultsExportedData struct {
	PersonaID  int64     `json:"persona_id,omitempty"`
	OrderID    string    `json:"order_id"`
	Format     string    `json:"format"`
	ExportedAt time.Time `json:"exported_at"`
}

// NotificationReadEvent records a notification marked as read
type NotificationReadEvent struct {
	BaseEvent
	Data NotificationReadData `json:"data"`
}

type NotificationReadData struct {
	PersonaID      int64     `json:"persona_id,omitempty"`
	NotificationID string    `json:"notification_id"`
	ReadAt         time.Time `json:"read_at"`
}

// NewBaseEvent creates a base event with common fields
func NewBaseEvent(eventType string) BaseEvent {
	return BaseEvent{
		EventType:   eventType,
		EventID:     uuid.NewString(),
		Timestamp:   time.Now().UTC(),
		ServiceName: ServiceName,
	}
}
