package session

import (
	"sync"

	"github.com/go-go-golems/deepwide/pkg/chat"
)

// HistoryCache is the lazily populated map from session id to its ordered
// message list. An absent key means "not yet loaded", which is distinct from
// an empty loaded list (a valid state for a brand-new session); Get never
// synthesizes an empty list for an unloaded id.
type HistoryCache struct {
	mu      sync.RWMutex
	entries map[string][]chat.ChatMessage
}

func NewHistoryCache() *HistoryCache {
	return &HistoryCache{
		entries: map[string][]chat.ChatMessage{},
	}
}

// Get returns a copy of the cached list and whether the id is loaded.
func (c *HistoryCache) Get(id string) ([]chat.ChatMessage, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	msgs, ok := c.entries[id]
	if !ok {
		return nil, false
	}
	ret := make([]chat.ChatMessage, len(msgs))
	copy(ret, msgs)
	return ret, true
}

func (c *HistoryCache) Loaded(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.entries[id]
	return ok
}

// Seed marks an id as loaded with an empty message list.
func (c *HistoryCache) Seed(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[id] = []chat.ChatMessage{}
}

// Append pushes a message to the end of an entry's list, creating the entry
// if the manager has not seeded it yet.
func (c *HistoryCache) Append(id string, msg chat.ChatMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[id] = append(c.entries[id], msg)
}

// Replace atomically swaps an entry's full message list.
func (c *HistoryCache) Replace(id string, msgs []chat.ChatMessage) {
	cp := make([]chat.ChatMessage, len(msgs))
	copy(cp, msgs)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[id] = cp
}

func (c *HistoryCache) Drop(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
}

// Move migrates an entry to a new key and removes the old one. Used when a
// temporary session is promoted to its persisted id.
func (c *HistoryCache) Move(from string, to string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[to] = c.entries[from]
	delete(c.entries, from)
}
