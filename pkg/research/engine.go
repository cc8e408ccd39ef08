package research

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/deepwide/pkg/auth"
	"github.com/go-go-golems/deepwide/pkg/chat"
	"github.com/go-go-golems/deepwide/pkg/events"
	"github.com/go-go-golems/deepwide/pkg/session"
)

const DefaultBaseURL = "http://localhost:8000"

// ErrTurnInFlight is returned when a second streaming turn is started on a
// session whose previous turn has not finished. Interleaving two streams
// into one live message is never what anybody wants.
var ErrTurnInFlight = errors.New("a streaming turn is already in flight for this session")

// Engine drives one streaming research turn: it resolves the target session
// (promoting a temporary one on its first message), opens a streamed
// exchange with the research backend and folds the incoming frames into the
// live assistant message as they arrive.
type Engine struct {
	manager   session.Manager
	auth      auth.Provider
	publisher *events.PublisherManager
	baseURL   string
	client    *http.Client

	mu       sync.Mutex
	inflight map[string]struct{}
}

type EngineOption func(*Engine)

func WithBaseURL(baseURL string) EngineOption {
	return func(e *Engine) {
		if baseURL != "" {
			e.baseURL = baseURL
		}
	}
}

func WithHTTPClient(client *http.Client) EngineOption {
	return func(e *Engine) {
		e.client = client
	}
}

func WithAuthProvider(provider auth.Provider) EngineOption {
	return func(e *Engine) {
		e.auth = provider
	}
}

// WithEnginePublisher wires stream-status notifications for observers.
func WithEnginePublisher(p *events.PublisherManager) EngineOption {
	return func(e *Engine) {
		e.publisher = p
	}
}

func NewEngine(manager session.Manager, options ...EngineOption) *Engine {
	ret := &Engine{
		manager:  manager,
		baseURL:  DefaultBaseURL,
		client:   http.DefaultClient,
		inflight: map[string]struct{}{},
	}
	for _, o := range options {
		o(ret)
	}
	return ret
}

// turnState accumulates one streaming turn. The live message is rewritten
// into the history cache after every handled frame so observers see
// progress.
type turnState struct {
	historyBefore    []chat.ChatMessage
	live             chat.ChatMessage
	statusTrace      []string
	finalReport      string
	generatingReport bool
}

func (t *turnState) history() []chat.ChatMessage {
	ret := make([]chat.ChatMessage, 0, len(t.historyBefore)+1)
	ret = append(ret, t.historyBefore...)
	ret = append(ret, t.live)
	return ret
}

func (t *turnState) result() string {
	if t.finalReport != "" {
		return t.finalReport
	}
	if len(t.statusTrace) > 0 {
		return t.statusTrace[len(t.statusTrace)-1]
	}
	return ""
}

func (t *turnState) trace() []string {
	if len(t.statusTrace) == 0 {
		return nil
	}
	ret := make([]string, len(t.statusTrace))
	copy(ret, t.statusTrace)
	return ret
}

// Send runs one full streaming turn and returns the final report text, or
// the last status entry when no report was produced.
//
// Failures while resolving the target session (promotion, creation)
// propagate as errors. Anything after that point is represented in-band: the
// failure is folded into the conversation as an error-flavored assistant
// message and returned as the result, not raised. Cancelling the context is
// the exception, a cancelled turn returns the context error and its output
// is dropped.
func (e *Engine) Send(ctx context.Context, query string, params Params, mcp MCPConfig) (string, error) {
	if strings.TrimSpace(query) == "" {
		return "", nil
	}

	targetID, err := e.resolveSession(ctx, query)
	if err != nil {
		return "", err
	}

	e.mu.Lock()
	if _, busy := e.inflight[targetID]; busy {
		e.mu.Unlock()
		return "", errors.Wrapf(ErrTurnInFlight, "session %s", targetID)
	}
	e.inflight[targetID] = struct{}{}
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		delete(e.inflight, targetID)
		e.mu.Unlock()
	}()

	historyBefore, _ := e.manager.Messages(targetID)

	userMsg := chat.NewChatMessage(chat.RoleUser, query)
	e.manager.AppendMessage(targetID, userMsg)
	historyBefore = append(historyBefore, userMsg)

	turn := &turnState{
		historyBefore: historyBefore,
		live:          chat.NewChatMessage(chat.RoleAssistant, ""),
	}
	e.manager.AppendMessage(targetID, turn.live)

	report, streamErr := e.stream(ctx, targetID, query, params, mcp, turn)
	if streamErr == nil {
		return report, nil
	}
	if ctx.Err() != nil {
		// deliberate cancellation, drop the turn's output
		log.Debug().Str("session_id", targetID).Msg("streaming turn cancelled")
		return "", ctx.Err()
	}

	log.Warn().Err(streamErr).Str("session_id", targetID).Msg("streaming turn failed")
	errText := fmt.Sprintf("Error: %s (is the research backend running at %s?)", streamErr, e.baseURL)
	e.writeErrorMessage(ctx, targetID, errText)
	return errText, nil
}

// resolveSession picks the session the turn runs against: a current
// temporary session is promoted first, and when nothing is current a fresh
// persisted session is created and switched to.
func (e *Engine) resolveSession(ctx context.Context, query string) (string, error) {
	title := chat.TitleFromQuery(query)

	currentID, hasCurrent := e.manager.CurrentID()
	tempID, hasTemp := e.manager.TempID()

	switch {
	case hasTemp && currentID == tempID:
		return e.manager.Promote(ctx, title)
	case !hasCurrent:
		newID, err := e.manager.Create(ctx, title)
		if err != nil {
			return "", err
		}
		if err := e.manager.SwitchSession(ctx, newID); err != nil {
			return "", err
		}
		return newID, nil
	default:
		return currentID, nil
	}
}

func (e *Engine) stream(ctx context.Context, sessionID string, query string, params Params, mcp MCPConfig, turn *turnState) (string, error) {
	body, err := json.Marshal(newResearchRequest(query, params, mcp, turn.historyBefore))
	if err != nil {
		return "", errors.Wrap(err, "failed to encode research request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/api/research", bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "failed to build research request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	if e.auth != nil {
		token, err := e.auth.AccessToken(ctx)
		if err != nil {
			log.Debug().Err(err).Msg("no access token for research request")
		} else if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "research request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("research request failed: %s", resp.Status)
	}

	// The scanner owns the line framing: a frame is only handed to the
	// dispatcher once its newline has arrived, partial trailing data is
	// carried into the next read. Reports can get large, so the buffer is
	// generous.
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		frame, ok := events.ParseLine(scanner.Text())
		if !ok {
			continue
		}
		e.handleFrame(sessionID, turn, frame)
	}
	if err := scanner.Err(); err != nil {
		return "", errors.Wrap(err, "stream read failed")
	}

	if err := e.manager.SaveSession(ctx, sessionID, turn.history()); err != nil {
		// in-memory state stays the source of truth until a later save
		log.Warn().Err(err).Str("session_id", sessionID).Msg("post-stream save failed")
	}

	return turn.result(), nil
}

func (e *Engine) handleFrame(sessionID string, turn *turnState, frame events.Frame) {
	switch f := frame.(type) {
	case events.FrameReportChunk:
		// the frame carries the full accumulated report, not a delta
		turn.finalReport = f.AccumulatedReport
		turn.generatingReport = true
		turn.live.Content = f.AccumulatedReport
		if trace := turn.trace(); trace != nil {
			turn.live.ActionList = trace
		}
	case events.FrameComplete:
		turn.finalReport = f.FinalReport
		turn.generatingReport = false
		turn.live.Content = f.FinalReport
		turn.live.ActionList = turn.trace()
	case events.FrameSourcesUpdate:
		turn.live.Sources = f.Sources
	case events.FrameStatus:
		turn.statusTrace = append(turn.statusTrace, f.Message)
		turn.live.ActionList = turn.trace()
		if !turn.generatingReport {
			// status only stays visible until the report starts streaming
			turn.live.Content = f.Message
			if e.publisher != nil {
				e.publisher.PublishBlind(events.Notification{
					Type:      events.NotificationStreamStatus,
					SessionID: sessionID,
					Message:   f.Message,
				})
			}
		}
	case events.FrameUnrecognized:
		log.Trace().Str("action", f.Action).Msg("ignoring unrecognized frame")
		return
	default:
		return
	}

	e.manager.ReplaceMessages(sessionID, turn.history())
}

// writeErrorMessage folds a streaming failure back into the conversation so
// continuity is preserved. If the live assistant message is still empty it
// becomes the error message, otherwise the error is appended. Persistence is
// best-effort.
func (e *Engine) writeErrorMessage(ctx context.Context, sessionID string, errText string) {
	fallbackID := sessionID
	if currentID, ok := e.manager.CurrentID(); ok {
		fallbackID = currentID
	} else if tempID, ok := e.manager.TempID(); ok {
		fallbackID = tempID
	}

	errMsg := chat.NewChatMessage(chat.RoleAssistant, errText)

	msgs, loaded := e.manager.Messages(fallbackID)
	if loaded && len(msgs) > 0 {
		last := msgs[len(msgs)-1]
		if last.Role == chat.RoleAssistant && last.Content == "" {
			msgs[len(msgs)-1] = errMsg
			e.manager.ReplaceMessages(fallbackID, msgs)
		} else {
			e.manager.AppendMessage(fallbackID, errMsg)
			msgs = append(msgs, errMsg)
		}
	} else {
		e.manager.AppendMessage(fallbackID, errMsg)
		msgs = []chat.ChatMessage{errMsg}
	}

	if !chat.IsTempID(fallbackID) {
		if err := e.manager.SaveSession(ctx, fallbackID, msgs); err != nil {
			log.Warn().Err(err).Str("session_id", fallbackID).Msg("failed to save error message")
		}
	}
}
