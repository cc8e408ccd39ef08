package chat

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleAssistant Role = "assistant"
	RoleUser      Role = "user"
)

// SourceItem is a single external source consulted during a research turn.
type SourceItem struct {
	Service string `json:"service"`
	Query   string `json:"query"`
	URL     string `json:"url"`
}

// ChatMessage is one turn of a conversation. ActionList and Sources are only
// populated on assistant messages produced by a streaming research turn.
type ChatMessage struct {
	Role       Role         `json:"role"`
	Content    string       `json:"content"`
	Timestamp  time.Time    `json:"timestamp,omitempty"`
	ActionList []string     `json:"actionList,omitempty"`
	Sources    []SourceItem `json:"sources,omitempty"`
}

func NewChatMessage(role Role, content string) ChatMessage {
	return ChatMessage{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// Session is the in-memory view of a thread. ID is either a persisted
// identifier issued by the store or a client-generated temporary one.
type Session struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TempIDPrefix marks session ids that only exist client-side. Ids carrying
// this prefix never reach the store and never appear in the session directory.
const TempIDPrefix = "temp-"

var tempCounter atomic.Int64

// NewTempID allocates a fresh temporary session id. Ids are monotonic within
// a process, which is all that is needed since they are never persisted.
func NewTempID() string {
	return fmt.Sprintf("%s%d", TempIDPrefix, tempCounter.Add(1))
}

func IsTempID(id string) bool {
	return strings.HasPrefix(id, TempIDPrefix)
}

// TitleFromQuery derives a session title from the first user query.
func TitleFromQuery(query string) string {
	r := []rune(strings.TrimSpace(query))
	if len(r) == 0 {
		return "New Chat"
	}
	if len(r) > 60 {
		r = r[:60]
	}
	return string(r)
}
