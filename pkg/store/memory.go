package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var ErrThreadNotFound = errors.New("thread not found")

// InMemoryStore keeps threads and messages in maps. It backs tests and local
// development without a database file.
type InMemoryStore struct {
	mu       sync.Mutex
	threads  map[string]Thread
	messages map[string][]MessageRecord
	now      func() time.Time
}

var _ Store = (*InMemoryStore)(nil)

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		threads:  map[string]Thread{},
		messages: map[string][]MessageRecord{},
		now:      time.Now,
	}
}

func (s *InMemoryStore) ListThreads(ctx context.Context, userID string) ([]Thread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ret []Thread
	for _, t := range s.threads {
		if t.UserID == userID {
			ret = append(ret, t)
		}
	}
	sort.Slice(ret, func(i, j int) bool {
		return ret[i].UpdatedAt.After(ret[j].UpdatedAt)
	})
	return ret, nil
}

func (s *InMemoryStore) InsertThread(ctx context.Context, userID string, title string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	now := s.now()
	s.threads[id] = Thread{
		ID:        id,
		UserID:    userID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return id, nil
}

func (s *InMemoryStore) UpdateThreadTitle(ctx context.Context, userID string, id string, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.threads[id]
	if !ok || t.UserID != userID {
		return errors.Wrapf(ErrThreadNotFound, "update title %s", id)
	}
	t.Title = title
	t.UpdatedAt = s.now()
	s.threads[id] = t
	return nil
}

func (s *InMemoryStore) DeleteThread(ctx context.Context, userID string, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.threads[id]
	if !ok || t.UserID != userID {
		return errors.Wrapf(ErrThreadNotFound, "delete %s", id)
	}
	delete(s.threads, id)
	delete(s.messages, id)
	return nil
}

func (s *InMemoryStore) ListMessages(ctx context.Context, userID string, threadID string) ([]MessageRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ret []MessageRecord
	for _, r := range s.messages[threadID] {
		if r.UserID == userID {
			ret = append(ret, r)
		}
	}
	sort.SliceStable(ret, func(i, j int) bool {
		return ret[i].CreatedAt.Before(ret[j].CreatedAt)
	})
	return ret, nil
}

func (s *InMemoryStore) InsertMessages(ctx context.Context, rows []MessageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range rows {
		if r.CreatedAt.IsZero() {
			r.CreatedAt = s.now()
		}
		s.messages[r.ThreadID] = append(s.messages[r.ThreadID], r)
		if t, ok := s.threads[r.ThreadID]; ok {
			t.UpdatedAt = s.now()
			s.threads[r.ThreadID] = t
		}
	}
	return nil
}

func (s *InMemoryStore) DeleteMessages(ctx context.Context, userID string, threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var kept []MessageRecord
	for _, r := range s.messages[threadID] {
		if r.UserID != userID {
			kept = append(kept, r)
		}
	}
	if len(kept) == 0 {
		delete(s.messages, threadID)
	} else {
		s.messages[threadID] = kept
	}
	return nil
}
