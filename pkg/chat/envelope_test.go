package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	m := ChatMessage{
		Role:       RoleAssistant,
		Content:    "x",
		ActionList: []string{"a"},
		Sources:    []SourceItem{{Service: "s", Query: "q", URL: "u"}},
	}

	packed := PackContent(m)
	content, actionList, sources := UnpackContent(packed)

	require.Equal(t, "x", content)
	require.Equal(t, []string{"a"}, actionList)
	require.Equal(t, m.Sources, sources)
}

func TestEnvelopeContentOnly(t *testing.T) {
	packed := PackContent(ChatMessage{Role: RoleUser, Content: "hello"})
	content, actionList, sources := UnpackContent(packed)

	require.Equal(t, "hello", content)
	assert.Nil(t, actionList)
	assert.Nil(t, sources)
}

func TestUnpackLegacyPlainString(t *testing.T) {
	content, actionList, sources := UnpackContent("just some text")
	require.Equal(t, "just some text", content)
	assert.Nil(t, actionList)
	assert.Nil(t, sources)
}

func TestUnpackForeignJSONFallsBack(t *testing.T) {
	raw := `{"foo": "bar"}`
	content, _, _ := UnpackContent(raw)
	assert.Equal(t, raw, content)
}

func TestUnpackMissingMarkerFallsBack(t *testing.T) {
	raw := `{"content": "x", "actionList": ["a"]}`
	content, actionList, _ := UnpackContent(raw)
	assert.Equal(t, raw, content)
	assert.Nil(t, actionList)
}

func TestUnpackFiltersMalformedSources(t *testing.T) {
	raw := `{"dw_format":"v1","content":"x","sources":[{"service":"s","query":"q","url":"u"},{"service":"","query":"q","url":"u"},{"service":"s","query":"q","url":""}]}`
	_, _, sources := UnpackContent(raw)
	require.Len(t, sources, 1)
	assert.Equal(t, "s", sources[0].Service)
}

func TestUnpackFiltersNonStringActions(t *testing.T) {
	raw := `{"dw_format":"v1","content":"x","actionList":["a",1,"b"]}`
	_, actionList, _ := UnpackContent(raw)
	assert.Equal(t, []string{"a", "b"}, actionList)
}

func TestTempIDs(t *testing.T) {
	id1 := NewTempID()
	id2 := NewTempID()
	assert.True(t, IsTempID(id1))
	assert.True(t, IsTempID(id2))
	assert.NotEqual(t, id1, id2)
	assert.False(t, IsTempID("a410c1b2"))
}

func TestTitleFromQuery(t *testing.T) {
	assert.Equal(t, "New Chat", TitleFromQuery("   "))
	assert.Equal(t, "short", TitleFromQuery("short"))

	long := ""
	for i := 0; i < 100; i++ {
		long += "x"
	}
	assert.Len(t, TitleFromQuery(long), 60)
}
