package events

// Notifications are what the session manager and ingestion engine publish
// for observers (the UI adapter) whenever local state changes. They carry
// identifiers, not message bodies; observers pull the current state from the
// manager.

type NotificationType string

const (
	// NotificationSessionsChanged fires after the session directory is
	// replaced (refresh, create, delete, rollback).
	NotificationSessionsChanged NotificationType = "sessions-changed"
	// NotificationCurrentChanged fires when the current-session pointer
	// moves.
	NotificationCurrentChanged NotificationType = "current-changed"
	// NotificationHistoryChanged fires after a cache entry is mutated,
	// including every live-message update during a streaming turn.
	NotificationHistoryChanged NotificationType = "history-changed"
	// NotificationStreamStatus surfaces a status-trace entry while a turn
	// has not started producing its report yet.
	NotificationStreamStatus NotificationType = "stream-status"
)

type Notification struct {
	Type      NotificationType `json:"type"`
	SessionID string           `json:"session_id,omitempty"`
	Message   string           `json:"message,omitempty"`
}

// TopicUI is the default topic notifications are published on.
const TopicUI = "ui"
