package chat

import (
	"encoding/json"
)

// Persisted messages are stored as a single opaque content column. To round
// trip the structured fields of an assistant message (action trace, sources)
// through that flat schema, the content is wrapped in a small JSON envelope
// tagged with a format marker. Rows written before the envelope existed hold
// the bare text, so the read path has to accept both.
const EnvelopeFormatV1 = "v1"

type envelope struct {
	Format     string          `json:"dw_format"`
	Content    *string         `json:"content"`
	ActionList json.RawMessage `json:"actionList,omitempty"`
	Sources    json.RawMessage `json:"sources,omitempty"`
}

// PackContent serializes a message into the persisted envelope. Empty
// optional fields are omitted so legacy-shaped rows stay small.
func PackContent(m ChatMessage) string {
	content := m.Content
	env := envelope{
		Format:  EnvelopeFormatV1,
		Content: &content,
	}
	if len(m.ActionList) > 0 {
		if b, err := json.Marshal(m.ActionList); err == nil {
			env.ActionList = b
		}
	}
	if len(m.Sources) > 0 {
		if b, err := json.Marshal(m.Sources); err == nil {
			env.Sources = b
		}
	}
	b, err := json.Marshal(env)
	if err != nil {
		// marshalling a string-only struct cannot realistically fail; keep
		// the raw content rather than dropping the message
		return m.Content
	}
	return string(b)
}

// UnpackContent parses a persisted content column back into its structured
// parts. If the envelope marker is absent or the payload does not parse, the
// whole field is treated as plain content.
func UnpackContent(raw string) (content string, actionList []string, sources []SourceItem) {
	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil || env.Format != EnvelopeFormatV1 || env.Content == nil {
		return raw, nil, nil
	}

	content = *env.Content

	if len(env.ActionList) > 0 {
		var items []interface{}
		if err := json.Unmarshal(env.ActionList, &items); err == nil {
			for _, it := range items {
				if s, ok := it.(string); ok {
					actionList = append(actionList, s)
				}
			}
		}
	}

	if len(env.Sources) > 0 {
		var items []SourceItem
		if err := json.Unmarshal(env.Sources, &items); err == nil {
			for _, s := range items {
				// entries without a service or url are useless to the UI
				if s.Service == "" || s.URL == "" {
					continue
				}
				sources = append(sources, s)
			}
		}
	}

	return content, actionList, sources
}
