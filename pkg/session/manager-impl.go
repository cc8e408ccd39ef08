package session

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/deepwide/pkg/auth"
	"github.com/go-go-golems/deepwide/pkg/chat"
	"github.com/go-go-golems/deepwide/pkg/events"
	"github.com/go-go-golems/deepwide/pkg/store"
)

var (
	ErrNoTempSession     = errors.New("no temporary session to promote")
	ErrPromotionInFlight = errors.New("promotion already in flight")
)

type ManagerImpl struct {
	store     store.Store
	auth      auth.Provider
	directory *Directory
	cache     *HistoryCache
	publisher *events.PublisherManager

	mu        sync.Mutex
	currentID string
	tempID    string
	promoting bool
}

var _ Manager = (*ManagerImpl)(nil)

type ManagerOption func(*ManagerImpl)

// WithPublisher wires the manager's change notifications into a publisher
// manager observers subscribe through.
func WithPublisher(p *events.PublisherManager) ManagerOption {
	return func(m *ManagerImpl) {
		m.publisher = p
	}
}

func NewManager(st store.Store, provider auth.Provider, options ...ManagerOption) *ManagerImpl {
	ret := &ManagerImpl{
		store:     st,
		auth:      provider,
		directory: NewDirectory(),
		cache:     NewHistoryCache(),
	}
	for _, o := range options {
		o(ret)
	}
	return ret
}

func (m *ManagerImpl) notify(t events.NotificationType, sessionID string) {
	if m.publisher == nil {
		return
	}
	m.publisher.PublishBlind(events.Notification{Type: t, SessionID: sessionID})
}

func (m *ManagerImpl) Initialize(ctx context.Context) error {
	if err := m.Refresh(ctx); err != nil {
		return err
	}
	sessions := m.directory.Sessions()
	if len(sessions) == 0 {
		m.CreateTemporary()
		return nil
	}

	m.mu.Lock()
	hasCurrent := m.currentID != ""
	m.mu.Unlock()
	if hasCurrent {
		return nil
	}
	return m.SwitchSession(ctx, sessions[0].ID)
}

func (m *ManagerImpl) Sessions() []chat.Session {
	return m.directory.Sessions()
}

func (m *ManagerImpl) CurrentID() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentID, m.currentID != ""
}

func (m *ManagerImpl) TempID() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tempID, m.tempID != ""
}

func (m *ManagerImpl) Messages(id string) ([]chat.ChatMessage, bool) {
	return m.cache.Get(id)
}

func (m *ManagerImpl) CurrentMessages() []chat.ChatMessage {
	id, ok := m.CurrentID()
	if !ok {
		return nil
	}
	msgs, _ := m.cache.Get(id)
	return msgs
}

func (m *ManagerImpl) Refresh(ctx context.Context) error {
	principal, err := m.auth.Principal(ctx)
	if err != nil {
		return err
	}
	if err := m.directory.Refresh(ctx, m.store, principal.UserID); err != nil {
		return err
	}
	m.notify(events.NotificationSessionsChanged, "")
	return nil
}

// Create writes a new thread and refreshes the directory. It does not switch
// to the new session; callers decide.
func (m *ManagerImpl) Create(ctx context.Context, title string) (string, error) {
	principal, err := m.auth.Principal(ctx)
	if err != nil {
		return "", err
	}

	newID, err := m.store.InsertThread(ctx, principal.UserID, title)
	if err != nil {
		return "", errors.Wrap(err, "failed to create session")
	}
	if err := m.Refresh(ctx); err != nil {
		return "", err
	}
	m.cache.Seed(newID)
	m.notify(events.NotificationHistoryChanged, newID)

	log.Debug().Str("session_id", newID).Str("title", title).Msg("created session")
	return newID, nil
}

// CreateTemporary allocates a fresh temporary session, seeds its cache entry
// and makes it current. No store call happens until promotion. A previously
// held temporary slot is discarded.
func (m *ManagerImpl) CreateTemporary() string {
	tempID := chat.NewTempID()

	m.mu.Lock()
	if m.tempID != "" {
		log.Warn().Str("session_id", m.tempID).Msg("discarding previous temporary session")
		m.cache.Drop(m.tempID)
	}
	m.tempID = tempID
	m.currentID = tempID
	m.mu.Unlock()

	m.cache.Seed(tempID)
	m.notify(events.NotificationCurrentChanged, tempID)
	m.notify(events.NotificationHistoryChanged, tempID)

	log.Debug().Str("session_id", tempID).Msg("created temporary session")
	return tempID
}

// Promote turns the current temporary session into a persisted thread: it
// writes the thread and all buffered messages, migrates the cache entry to
// the new id and sets it current. On failure the temporary session's cache
// entry is left intact so the turn is not lost.
func (m *ManagerImpl) Promote(ctx context.Context, title string) (string, error) {
	m.mu.Lock()
	if m.tempID == "" {
		m.mu.Unlock()
		return "", ErrNoTempSession
	}
	if m.promoting {
		m.mu.Unlock()
		return "", ErrPromotionInFlight
	}
	m.promoting = true
	tempID := m.tempID
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.promoting = false
		m.mu.Unlock()
	}()

	principal, err := m.auth.Principal(ctx)
	if err != nil {
		return "", err
	}

	messages, _ := m.cache.Get(tempID)

	newID, err := m.store.InsertThread(ctx, principal.UserID, title)
	if err != nil {
		return "", errors.Wrap(err, "failed to promote session")
	}

	if len(messages) > 0 {
		rows := make([]store.MessageRecord, 0, len(messages))
		for _, msg := range messages {
			rows = append(rows, store.MessageRecord{
				ThreadID:  newID,
				UserID:    principal.UserID,
				Role:      string(msg.Role),
				Content:   chat.PackContent(msg),
				CreatedAt: msg.Timestamp,
			})
		}
		if err := m.store.InsertMessages(ctx, rows); err != nil {
			return "", errors.Wrap(err, "failed to persist buffered messages")
		}
	}

	if err := m.Refresh(ctx); err != nil {
		return "", err
	}

	m.cache.Move(tempID, newID)

	m.mu.Lock()
	m.tempID = ""
	m.currentID = newID
	m.mu.Unlock()

	m.notify(events.NotificationHistoryChanged, newID)
	m.notify(events.NotificationCurrentChanged, newID)

	log.Debug().
		Str("temp_id", tempID).
		Str("session_id", newID).
		Int("message_count", len(messages)).
		Msg("promoted temporary session")
	return newID, nil
}

// SwitchSession makes id the current session. Switching to a persisted id
// discards a temporary session's unsent draft and lazily loads messages from
// the store on a cache miss; repeated calls with the same id hit the cache
// and issue no further fetches.
func (m *ManagerImpl) SwitchSession(ctx context.Context, id string) error {
	m.mu.Lock()
	m.currentID = id
	tempID := m.tempID
	m.mu.Unlock()
	m.notify(events.NotificationCurrentChanged, id)

	if chat.IsTempID(id) {
		return nil
	}

	if tempID != "" {
		log.Debug().Str("session_id", tempID).Msg("dropping temporary session draft")
		m.cache.Drop(tempID)
		m.mu.Lock()
		m.tempID = ""
		m.mu.Unlock()
	}

	if m.cache.Loaded(id) {
		return nil
	}

	msgs, err := m.fetchMessages(ctx, id)
	if err != nil {
		return err
	}
	m.cache.Replace(id, msgs)
	m.notify(events.NotificationHistoryChanged, id)

	log.Debug().Str("session_id", id).Int("message_count", len(msgs)).Msg("loaded session messages")
	return nil
}

func (m *ManagerImpl) fetchMessages(ctx context.Context, id string) ([]chat.ChatMessage, error) {
	principal, err := m.auth.Principal(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := m.store.ListMessages(ctx, principal.UserID, id)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch messages for %s", id)
	}

	msgs := make([]chat.ChatMessage, 0, len(rows))
	for _, r := range rows {
		content, actionList, sources := chat.UnpackContent(r.Content)
		msgs = append(msgs, chat.ChatMessage{
			Role:       chat.Role(r.Role),
			Content:    content,
			Timestamp:  r.CreatedAt,
			ActionList: actionList,
			Sources:    sources,
		})
	}
	return msgs, nil
}

// DeleteSession removes a session optimistically: directory and cache are
// mutated before the store call, and restored from a snapshot when the store
// delete fails.
func (m *ManagerImpl) DeleteSession(ctx context.Context, id string) error {
	principal, err := m.auth.Principal(ctx)
	if err != nil {
		return err
	}

	oldSessions := m.directory.Sessions()
	m.mu.Lock()
	oldCurrentID := m.currentID
	m.mu.Unlock()

	rollback := func() {
		m.directory.Restore(oldSessions)
		m.mu.Lock()
		m.currentID = oldCurrentID
		m.mu.Unlock()
		m.notify(events.NotificationSessionsChanged, "")
		m.notify(events.NotificationCurrentChanged, oldCurrentID)
	}

	remaining := m.directory.Remove(id)
	m.cache.Drop(id)
	m.notify(events.NotificationSessionsChanged, "")

	if oldCurrentID == id {
		if len(remaining) > 0 {
			if err := m.SwitchSession(ctx, remaining[0].ID); err != nil {
				rollback()
				return err
			}
		} else {
			m.mu.Lock()
			m.currentID = ""
			m.mu.Unlock()
			m.notify(events.NotificationCurrentChanged, "")
		}
	}

	if err := m.store.DeleteThread(ctx, principal.UserID, id); err != nil {
		log.Error().Err(err).Str("session_id", id).Msg("delete failed, rolling back")
		// the dropped cache entry is not restored, messages can be
		// re-fetched on the next switch
		rollback()
		return errors.Wrapf(err, "failed to delete session %s", id)
	}

	log.Debug().Str("session_id", id).Msg("deleted session")
	return nil
}

func (m *ManagerImpl) AppendMessage(id string, msg chat.ChatMessage) {
	m.cache.Append(id, msg)
	m.notify(events.NotificationHistoryChanged, id)
}

func (m *ManagerImpl) ReplaceMessages(id string, msgs []chat.ChatMessage) {
	m.cache.Replace(id, msgs)
	m.notify(events.NotificationHistoryChanged, id)
}

// SaveSession rewrites the thread from the in-memory history: title derived
// from the first user message, then a delete-and-bulk-insert of all message
// rows in envelope form.
func (m *ManagerImpl) SaveSession(ctx context.Context, id string, msgs []chat.ChatMessage) error {
	principal, err := m.auth.Principal(ctx)
	if err != nil {
		return err
	}

	title := "New Chat"
	for _, msg := range msgs {
		if msg.Role == chat.RoleUser {
			title = chat.TitleFromQuery(msg.Content)
			break
		}
	}

	if err := m.store.UpdateThreadTitle(ctx, principal.UserID, id, title); err != nil {
		return errors.Wrap(err, "failed to update thread title")
	}
	if err := m.store.DeleteMessages(ctx, principal.UserID, id); err != nil {
		return errors.Wrap(err, "failed to clear thread messages")
	}

	if len(msgs) > 0 {
		rows := make([]store.MessageRecord, 0, len(msgs))
		for _, msg := range msgs {
			createdAt := msg.Timestamp
			if createdAt.IsZero() {
				createdAt = time.Now()
			}
			rows = append(rows, store.MessageRecord{
				ThreadID:  id,
				UserID:    principal.UserID,
				Role:      string(msg.Role),
				Content:   chat.PackContent(msg),
				CreatedAt: createdAt,
			})
		}
		if err := m.store.InsertMessages(ctx, rows); err != nil {
			return errors.Wrap(err, "failed to insert thread messages")
		}
	}

	m.cache.Replace(id, msgs)
	m.notify(events.NotificationHistoryChanged, id)

	return m.Refresh(ctx)
}
