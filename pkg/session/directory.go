package session

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/deepwide/pkg/chat"
	"github.com/go-go-golems/deepwide/pkg/store"
)

// Directory holds the ordered list of known persisted sessions, metadata
// only. It is refreshed wholesale from the store; temporary ids never appear
// in it.
type Directory struct {
	mu       sync.RWMutex
	sessions []chat.Session
}

func NewDirectory() *Directory {
	return &Directory{}
}

// Refresh replaces the in-memory list with the store's thread listing,
// sorted most-recently-updated first. On error the previous list is left
// untouched.
func (d *Directory) Refresh(ctx context.Context, st store.Store, userID string) error {
	threads, err := st.ListThreads(ctx, userID)
	if err != nil {
		return errors.Wrap(err, "failed to list threads")
	}

	sessions := make([]chat.Session, 0, len(threads))
	for _, t := range threads {
		title := t.Title
		if title == "" {
			title = "New Chat"
		}
		sessions = append(sessions, chat.Session{
			ID:        t.ID,
			Title:     title,
			CreatedAt: t.CreatedAt,
			UpdatedAt: t.UpdatedAt,
		})
	}

	d.mu.Lock()
	d.sessions = sessions
	d.mu.Unlock()

	log.Debug().Int("count", len(sessions)).Msg("session directory refreshed")
	return nil
}

// Sessions returns a copy of the current list.
func (d *Directory) Sessions() []chat.Session {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ret := make([]chat.Session, len(d.sessions))
	copy(ret, d.sessions)
	return ret
}

func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.sessions)
}

// Remove drops an id from the list and returns the remaining sessions. The
// caller keeps the pre-removal snapshot for rollback.
func (d *Directory) Remove(id string) []chat.Session {
	d.mu.Lock()
	defer d.mu.Unlock()

	remaining := make([]chat.Session, 0, len(d.sessions))
	for _, s := range d.sessions {
		if s.ID != id {
			remaining = append(remaining, s)
		}
	}
	d.sessions = remaining

	ret := make([]chat.Session, len(remaining))
	copy(ret, remaining)
	return ret
}

// Restore puts a previously captured snapshot back in place, used when an
// optimistic delete has to be rolled back.
func (d *Directory) Restore(snapshot []chat.Session) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sessions = snapshot
}
