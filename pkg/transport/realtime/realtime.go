// Package realtime implements the transport boundary over a realtime speech
// websocket. It projects the active agent into the service session, executes
// inbound tool invocations, and turns transfer_to_* function calls into
// handoff notifications.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/parley-ai/parley/pkg/core/types"
	"github.com/parley-ai/parley/pkg/tools/compile"
	"github.com/parley-ai/parley/pkg/transport"
)

const (
	defaultConnectTimeout = 15 * time.Second
	handoffToolPrefix     = "transfer_to_"
)

// Client is a websocket transport.Transport. One Client serves one session
// at a time; Connect after Disconnect opens a fresh link.
type Client struct {
	baseURL string
	dialer  *websocket.Dialer
	logger  *slog.Logger

	mu   sync.Mutex
	sess *wsSession
}

func NewClient(baseURL string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: baseURL,
		dialer:  websocket.DefaultDialer,
		logger:  logger,
	}
}

// wsSession is the per-connection state. The write mutex serializes frames;
// the read loop owns everything inbound.
type wsSession struct {
	conn     *websocket.Conn
	logger   *slog.Logger
	executor transport.ToolExecutor
	guard    transport.OutputGuardrail
	listener transport.Listener
	agents   []types.AgentDefinition

	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    atomic.Bool
	muted     atomic.Bool
	done      chan struct{}

	activeMu    sync.Mutex
	activeAgent string
}

func (c *Client) Connect(ctx context.Context, opts transport.ConnectOptions) error {
	if len(opts.Agents) == 0 {
		return fmt.Errorf("connect: at least one agent is required")
	}
	wsURL, err := websocketURL(c.baseURL)
	if err != nil {
		return err
	}

	headers := make(http.Header)
	headers.Set("Authorization", "Bearer "+opts.ClientSecret)

	dialCtx := ctx
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, defaultConnectTimeout)
		defer cancel()
	}
	conn, resp, err := c.dialer.DialContext(dialCtx, wsURL, headers)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("websocket dial failed (status %d): %w", resp.StatusCode, err)
		}
		return fmt.Errorf("websocket dial failed: %w", err)
	}

	sess := &wsSession{
		conn:        conn,
		logger:      c.logger,
		executor:    opts.Executor,
		guard:       opts.Guardrail,
		listener:    opts.Listener,
		agents:      opts.Agents,
		done:        make(chan struct{}),
		activeAgent: opts.Agents[0].Name,
	}
	if err := sess.sendJSON(sessionUpdateFor(opts.Agents[0], opts.Agents)); err != nil {
		_ = conn.Close()
		return fmt.Errorf("project initial agent: %w", err)
	}

	c.mu.Lock()
	old := c.sess
	c.sess = sess
	c.mu.Unlock()
	if old != nil {
		old.close()
	}

	go sess.readLoop()
	if sess.listener != nil {
		sess.listener.OnConnectionState(transport.StateConnected)
	}
	return nil
}

func (c *Client) Disconnect() {
	c.mu.Lock()
	sess := c.sess
	c.sess = nil
	c.mu.Unlock()
	if sess != nil {
		sess.close()
	}
}

func (c *Client) SendUserText(text string) error {
	sess, err := c.current()
	if err != nil {
		return err
	}
	item := map[string]any{
		"type": "message",
		"role": "user",
		"content": []map[string]any{
			{"type": "input_text", "text": text},
		},
	}
	if err := sess.sendJSON(map[string]any{"type": string(transport.EventConversationItemCreate), "item": item}); err != nil {
		return err
	}
	return sess.sendJSON(map[string]any{"type": string(transport.EventResponseCreate)})
}

func (c *Client) SendEvent(ev transport.Event) error {
	sess, err := c.current()
	if err != nil {
		return err
	}
	frame := map[string]any{"type": string(ev.Type)}
	if ev.Session != nil {
		frame["session"] = ev.Session
	}
	if ev.Item != nil {
		frame["item"] = ev.Item
	}
	return sess.sendJSON(frame)
}

func (c *Client) Interrupt() error {
	sess, err := c.current()
	if err != nil {
		return err
	}
	return sess.sendJSON(map[string]any{"type": "response.cancel"})
}

// Mute flips local playback suppression. The service keeps streaming; the
// audio consumer drops frames while Muted reports true.
func (c *Client) Mute(muted bool) error {
	sess, err := c.current()
	if err != nil {
		return err
	}
	sess.muted.Store(muted)
	return nil
}

// Muted reports whether assistant audio is suppressed.
func (c *Client) Muted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess != nil && c.sess.muted.Load()
}

func (c *Client) current() (*wsSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == nil || c.sess.closed.Load() {
		return nil, fmt.Errorf("transport is not connected")
	}
	return c.sess, nil
}

// sessionUpdateFor projects an agent into the service session: its
// instructions and voice, its compiled tools, and one transfer tool per
// peer agent so the model can hand the conversation off.
func sessionUpdateFor(agent types.AgentDefinition, all []types.AgentDefinition) map[string]any {
	tools := make([]map[string]any, 0, len(agent.Tools)+len(all))
	for _, ct := range compile.CompileAll(agent.Tools) {
		tools = append(tools, map[string]any{
			"type":        "function",
			"name":        ct.Name,
			"description": ct.Description,
			"parameters":  ct.Schema,
		})
	}
	for _, peer := range all {
		if peer.Name == agent.Name {
			continue
		}
		desc := peer.HandoffDescription
		if desc == "" {
			desc = "Transfer the conversation to " + peer.Name + "."
		}
		f := false
		tools = append(tools, map[string]any{
			"type":        "function",
			"name":        handoffToolPrefix + peer.Name,
			"description": desc,
			"parameters": &types.JSONSchema{
				Type:                 "object",
				Properties:           map[string]types.JSONSchema{},
				Required:             []string{},
				AdditionalProperties: &f,
			},
		})
	}
	return map[string]any{
		"type": string(transport.EventSessionUpdate),
		"session": map[string]any{
			"instructions": agent.Instructions,
			"voice":        string(agent.Voice),
			"tools":        tools,
		},
	}
}

func (s *wsSession) sendJSON(v any) error {
	if s.closed.Load() {
		return fmt.Errorf("transport is not connected")
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(v)
}

func (s *wsSession) close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.writeMu.Lock()
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(2*time.Second))
		s.writeMu.Unlock()
		_ = s.conn.Close()
	})
	<-s.done
}

func (s *wsSession) readLoop() {
	defer close(s.done)
	defer func() {
		s.closed.Store(true)
		if s.listener != nil {
			s.listener.OnConnectionState(transport.StateDisconnected)
		}
	}()

	for {
		messageType, data, err := s.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && !s.closed.Load() {
				s.logger.Warn("websocket read failed", "error", err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		s.handleFrame(data)
	}
}

type serverFrame struct {
	Type       string `json:"type"`
	Name       string `json:"name"`
	CallID     string `json:"call_id"`
	Arguments  string `json:"arguments"`
	Transcript string `json:"transcript"`
	Error      *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (s *wsSession) handleFrame(data []byte) {
	var frame serverFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		s.logger.Warn("undecodable server frame", "error", err)
		return
	}
	switch frame.Type {
	case "error":
		msg := ""
		if frame.Error != nil {
			msg = frame.Error.Message
		}
		s.logger.Warn("server error event", "message", msg)
	case "response.function_call_arguments.done":
		s.handleFunctionCall(frame)
	case "response.audio_transcript.done":
		s.screenTranscript(frame.Transcript)
	}
}

// handleFunctionCall runs a requested tool, or performs a handoff when the
// name carries the transfer prefix. Either way the call gets an output item
// and a follow-up response request; the model must never be left waiting.
func (s *wsSession) handleFunctionCall(frame serverFrame) {
	name := strings.TrimSpace(frame.Name)
	if name == "" {
		return
	}
	if target, ok := strings.CutPrefix(name, handoffToolPrefix); ok {
		s.performHandoff(target, frame.CallID)
		return
	}

	args := map[string]any{}
	if frame.Arguments != "" {
		if err := json.Unmarshal([]byte(frame.Arguments), &args); err != nil {
			s.logger.Warn("undecodable tool arguments", "tool", name, "error", err)
		}
	}
	go func() {
		var result types.ToolResult
		if s.executor != nil {
			result = s.executor.Execute(context.Background(), name, args)
		} else {
			result = types.ErrorResult("no tool executor configured")
		}
		s.sendFunctionOutput(frame.CallID, result)
	}()
}

func (s *wsSession) performHandoff(target, callID string) {
	from := ""
	found := false
	s.activeMu.Lock()
	from = s.activeAgent
	for _, a := range s.agents {
		if a.Name == target {
			s.activeAgent = target
			found = true
			break
		}
	}
	s.activeMu.Unlock()

	if !found {
		s.logger.Warn("handoff to unknown agent", "target", target)
		s.sendFunctionOutput(callID, types.ErrorResult("unknown agent: "+target))
		return
	}

	for _, a := range s.agents {
		if a.Name == target {
			if err := s.sendJSON(sessionUpdateFor(a, s.agents)); err != nil {
				s.logger.Warn("agent projection failed", "agent", target, "error", err)
			}
			break
		}
	}
	s.sendFunctionOutput(callID, types.ToolResult{"transferred_to": target})
	if s.listener != nil {
		s.listener.OnAgentHandoff(from, target)
	}
}

func (s *wsSession) sendFunctionOutput(callID string, result types.ToolResult) {
	payload, err := json.Marshal(result)
	if err != nil {
		payload = []byte(`{"error":"unencodable tool result"}`)
	}
	item := map[string]any{
		"type":    "function_call_output",
		"call_id": callID,
		"output":  string(payload),
	}
	if err := s.sendJSON(map[string]any{"type": string(transport.EventConversationItemCreate), "item": item}); err != nil {
		s.logger.Warn("tool output send failed", "error", err)
		return
	}
	if err := s.sendJSON(map[string]any{"type": string(transport.EventResponseCreate)}); err != nil {
		s.logger.Warn("response request send failed", "error", err)
	}
}

// screenTranscript checks finished assistant output against the guardrail
// and cancels the response when it trips.
func (s *wsSession) screenTranscript(transcript string) {
	if s.guard == nil || transcript == "" {
		return
	}
	msg, blocked := s.guard.Blocked(transcript)
	if !blocked {
		return
	}
	s.logger.Warn("guardrail tripped", "message", msg)
	if err := s.sendJSON(map[string]any{"type": "response.cancel"}); err != nil {
		s.logger.Warn("response cancel failed", "error", err)
	}
}

func websocketURL(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid transport URL %q: %w", base, err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("transport URL must use http(s) or ws(s)")
	}
	return u.String(), nil
}

var _ transport.Transport = (*Client)(nil)
