package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/deepwide/pkg/chat"
)

func TestParseLineSkipsNoise(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"empty", ""},
		{"comment", ": keepalive"},
		{"no prefix", `{"action":"complete","final_report":"x"}`},
		{"wrong prefix", `event: message`},
		{"malformed json", `data: {not json`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := ParseLine(tt.line)
			assert.False(t, ok)
		})
	}
}

func TestParseLineReportChunk(t *testing.T) {
	f, ok := ParseLine(`data: {"action":"report_chunk","accumulated_report":"Hello"}`)
	require.True(t, ok)
	chunk, ok := f.(FrameReportChunk)
	require.True(t, ok)
	assert.Equal(t, "Hello", chunk.AccumulatedReport)
}

func TestParseLineComplete(t *testing.T) {
	f, ok := ParseLine(`data: {"action":"complete","final_report":"Hello world"}`)
	require.True(t, ok)
	complete, ok := f.(FrameComplete)
	require.True(t, ok)
	assert.Equal(t, "Hello world", complete.FinalReport)
}

func TestParseLineTrailingWhitespace(t *testing.T) {
	f, ok := ParseLine("data: {\"action\":\"complete\",\"final_report\":\"x\"}\r")
	require.True(t, ok)
	_, ok = f.(FrameComplete)
	assert.True(t, ok)
}

func TestParseLineSourcesUpdate(t *testing.T) {
	f, ok := ParseLine(`data: {"action":"sources_update","sources":[{"service":"s","query":"q","url":"u"}]}`)
	require.True(t, ok)
	sources, ok := f.(FrameSourcesUpdate)
	require.True(t, ok)
	require.Len(t, sources.Sources, 1)
	assert.Equal(t, chat.SourceItem{Service: "s", Query: "q", URL: "u"}, sources.Sources[0])
}

func TestParseLineStatus(t *testing.T) {
	f, ok := ParseLine(`data: {"message":"thinking"}`)
	require.True(t, ok)
	status, ok := f.(FrameStatus)
	require.True(t, ok)
	assert.Equal(t, "thinking", status.Message)
}

func TestParseLineStatusWithUnknownAction(t *testing.T) {
	f, ok := ParseLine(`data: {"action":"progress","message":"working"}`)
	require.True(t, ok)
	status, ok := f.(FrameStatus)
	require.True(t, ok)
	assert.Equal(t, "working", status.Message)
}

// a complete frame without a final report degrades to the message check,
// mirroring the wire protocol's field-presence semantics
func TestParseLineCompleteWithoutReport(t *testing.T) {
	f, ok := ParseLine(`data: {"action":"complete","message":"done"}`)
	require.True(t, ok)
	status, ok := f.(FrameStatus)
	require.True(t, ok)
	assert.Equal(t, "done", status.Message)
}

func TestParseLineSourcesUpdateWithoutList(t *testing.T) {
	f, ok := ParseLine(`data: {"action":"sources_update"}`)
	require.True(t, ok)
	_, ok = f.(FrameUnrecognized)
	assert.True(t, ok)
}

func TestParseLineUnrecognizedAction(t *testing.T) {
	f, ok := ParseLine(`data: {"action":"telemetry","value":42}`)
	require.True(t, ok)
	u, ok := f.(FrameUnrecognized)
	require.True(t, ok)
	assert.Equal(t, "telemetry", u.Action)
}

func TestParseLineEmptySourcesList(t *testing.T) {
	f, ok := ParseLine(`data: {"action":"sources_update","sources":[]}`)
	require.True(t, ok)
	sources, ok := f.(FrameSourcesUpdate)
	require.True(t, ok)
	assert.Empty(t, sources.Sources)
}
