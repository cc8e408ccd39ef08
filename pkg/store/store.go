package store

import (
	"context"
	"time"
)

// Thread is the persisted record behind a session. Titles may be empty in
// the store; callers substitute a display default.
type Thread struct {
	ID        string
	UserID    string
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MessageRecord is one persisted chat turn. Content is an opaque string, the
// envelope living in pkg/chat is layered on top of it.
type MessageRecord struct {
	ThreadID  string
	UserID    string
	Role      string
	Content   string
	CreatedAt time.Time
}

// Store is the persistence gateway contract. All operations are scoped to an
// externally supplied principal; the store performs no access control beyond
// filtering by user id.
type Store interface {
	// ListThreads returns the user's threads ordered by most recently
	// updated first.
	ListThreads(ctx context.Context, userID string) ([]Thread, error)

	// InsertThread creates a thread and returns its new id.
	InsertThread(ctx context.Context, userID string, title string) (string, error)

	UpdateThreadTitle(ctx context.Context, userID string, id string, title string) error

	// DeleteThread removes the thread and all of its messages.
	DeleteThread(ctx context.Context, userID string, id string) error

	// ListMessages returns a thread's messages ordered by creation time
	// ascending.
	ListMessages(ctx context.Context, userID string, threadID string) ([]MessageRecord, error)

	// InsertMessages bulk-inserts rows in the given order.
	InsertMessages(ctx context.Context, rows []MessageRecord) error

	// DeleteMessages removes all messages for a thread, leaving the thread
	// record itself in place.
	DeleteMessages(ctx context.Context, userID string, threadID string) error
}
