package research

import (
	"strings"

	"github.com/go-go-golems/deepwide/pkg/chat"
)

// Params are the research controls sent with each query: two scalars in
// [0,1] plus an optional model identifier.
type Params struct {
	Deep  float64 `json:"deep"`
	Wide  float64 `json:"wide"`
	Model string  `json:"model,omitempty"`
}

// MCPConfig maps an enabled service name to its enabled capability names.
type MCPConfig map[string][]string

// normalized lowercases service names and drops services without any
// enabled capability.
func (c MCPConfig) normalized() map[string][]string {
	ret := map[string][]string{}
	for service, tools := range c {
		if len(tools) == 0 {
			continue
		}
		ret[strings.ToLower(service)] = tools
	}
	return ret
}

type queryMessage struct {
	Query    string              `json:"query"`
	DeepWide Params              `json:"deepwide"`
	MCP      map[string][]string `json:"mcp"`
}

type historyEntry struct {
	Role      chat.Role `json:"role"`
	Content   string    `json:"content"`
	Timestamp int64     `json:"timestamp,omitempty"`
}

// researchRequest is the outbound request body. History is trimmed to
// role/content/timestamp; action traces and sources stay client-side.
type researchRequest struct {
	Message queryMessage   `json:"message"`
	History []historyEntry `json:"history"`
}

func sanitizeHistory(msgs []chat.ChatMessage) []historyEntry {
	ret := make([]historyEntry, 0, len(msgs))
	for _, m := range msgs {
		e := historyEntry{
			Role:    m.Role,
			Content: m.Content,
		}
		if !m.Timestamp.IsZero() {
			e.Timestamp = m.Timestamp.UnixMilli()
		}
		ret = append(ret, e)
	}
	return ret
}

func newResearchRequest(query string, params Params, mcp MCPConfig, history []chat.ChatMessage) researchRequest {
	return researchRequest{
		Message: queryMessage{
			Query:    query,
			DeepWide: params,
			MCP:      mcp.normalized(),
		},
		History: sanitizeHistory(history),
	}
}
