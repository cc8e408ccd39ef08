package events

import (
	"encoding/json"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/deepwide/pkg/chat"
)

// The research backend pushes one frame per line, each prefixed with
// "data: ". The frames below are the closed set of shapes the ingestion
// engine knows how to handle; anything else is protocol noise and gets
// skipped without aborting the stream.

type FrameType string

const (
	// FrameTypeReportChunk carries the full accumulated report so far, not
	// a delta.
	FrameTypeReportChunk FrameType = "report_chunk"
	// FrameTypeComplete is the terminal frame for content.
	FrameTypeComplete FrameType = "complete"
	// FrameTypeSourcesUpdate replaces the live message's source list.
	FrameTypeSourcesUpdate FrameType = "sources_update"
	// FrameTypeStatus is a status-trace entry, recognized by the presence
	// of a message field rather than an action tag.
	FrameTypeStatus FrameType = "status"
	// FrameTypeUnrecognized covers well-formed frames the engine has no
	// handling for.
	FrameTypeUnrecognized FrameType = "unrecognized"
)

type Frame interface {
	FrameType() FrameType
}

type FrameReportChunk struct {
	AccumulatedReport string `json:"accumulated_report"`
}

func (FrameReportChunk) FrameType() FrameType { return FrameTypeReportChunk }

type FrameComplete struct {
	FinalReport string `json:"final_report"`
}

func (FrameComplete) FrameType() FrameType { return FrameTypeComplete }

type FrameSourcesUpdate struct {
	Sources []chat.SourceItem `json:"sources"`
}

func (FrameSourcesUpdate) FrameType() FrameType { return FrameTypeSourcesUpdate }

type FrameStatus struct {
	Message string `json:"message"`
}

func (FrameStatus) FrameType() FrameType { return FrameTypeStatus }

type FrameUnrecognized struct {
	Action string
}

func (FrameUnrecognized) FrameType() FrameType { return FrameTypeUnrecognized }

var _ Frame = FrameReportChunk{}
var _ Frame = FrameComplete{}
var _ Frame = FrameSourcesUpdate{}
var _ Frame = FrameStatus{}
var _ Frame = FrameUnrecognized{}

// DataPrefix is the reserved event-line prefix of the stream protocol.
const DataPrefix = "data: "

// frameProbe holds the union of all frame fields so dispatch can look at
// what is actually present, the way the wire protocol distinguishes shapes.
type frameProbe struct {
	Action            string             `json:"action"`
	AccumulatedReport string             `json:"accumulated_report"`
	FinalReport       string             `json:"final_report"`
	Sources           *[]chat.SourceItem `json:"sources"`
	Message           string             `json:"message"`
}

// ParseFrame decodes a single frame payload (without the line prefix) into
// its typed variant. A frame with an unknown or missing action but a
// message field is a status-trace entry; a complete frame without a final
// report or a sources_update without a source list degrade the same way.
func ParseFrame(b []byte) (Frame, error) {
	var probe frameProbe
	if err := json.Unmarshal(b, &probe); err != nil {
		return nil, err
	}

	switch probe.Action {
	case string(FrameTypeReportChunk):
		return FrameReportChunk{AccumulatedReport: probe.AccumulatedReport}, nil
	case string(FrameTypeComplete):
		if probe.FinalReport != "" {
			return FrameComplete{FinalReport: probe.FinalReport}, nil
		}
	case string(FrameTypeSourcesUpdate):
		if probe.Sources != nil {
			return FrameSourcesUpdate{Sources: *probe.Sources}, nil
		}
	}

	if probe.Message != "" {
		return FrameStatus{Message: probe.Message}, nil
	}

	return FrameUnrecognized{Action: probe.Action}, nil
}

// ParseLine handles one raw line from the stream. Lines without the data
// prefix and malformed frames return ok=false and are skipped by callers.
func ParseLine(rawLine string) (Frame, bool) {
	line := strings.TrimRight(rawLine, " \t\r")
	if !strings.HasPrefix(line, DataPrefix) {
		return nil, false
	}
	f, err := ParseFrame([]byte(line[len(DataPrefix):]))
	if err != nil {
		log.Trace().Err(err).Str("line", line).Msg("skipping malformed frame")
		return nil, false
	}
	return f, true
}
