package session

// Package session owns the "current session" identity and drives the state
// machine for temporary, promoted and persisted sessions.
//
// A session starts out either persisted (one store write, then listed in the
// directory) or temporary (pure client state, no store calls). A temporary
// session is promoted at most once: promotion writes the thread plus all
// buffered messages, migrates the cache entry to the new persisted id and
// drops the temporary key. Callers send at most one message before a session
// is resolved to persisted, so concurrent promotions of the same temporary
// id are a programming error, not a race the manager resolves.

import (
	"context"

	"github.com/go-go-golems/deepwide/pkg/chat"
)

// Manager defines the high-level session lifecycle operations.
type Manager interface {
	// Initialize refreshes the directory and picks an initial session: a
	// fresh temporary one when the directory is empty, otherwise the most
	// recently updated persisted one.
	Initialize(ctx context.Context) error

	Sessions() []chat.Session
	CurrentID() (string, bool)
	TempID() (string, bool)

	// Messages returns the cached list for an id, or ok=false when the id
	// has not been loaded.
	Messages(id string) ([]chat.ChatMessage, bool)
	CurrentMessages() []chat.ChatMessage

	Refresh(ctx context.Context) error
	Create(ctx context.Context, title string) (string, error)
	CreateTemporary() string
	Promote(ctx context.Context, title string) (string, error)
	SwitchSession(ctx context.Context, id string) error
	DeleteSession(ctx context.Context, id string) error

	AppendMessage(id string, msg chat.ChatMessage)
	ReplaceMessages(id string, msgs []chat.ChatMessage)

	// SaveSession reconciles the store with the in-memory history: it
	// rewrites the thread title and all message rows from the given list.
	SaveSession(ctx context.Context, id string, msgs []chat.ChatMessage) error
}
