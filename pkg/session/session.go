// Package session owns the realtime conversation lifecycle: the
// connect/disconnect state machine, turn-taking mode, agent handoffs, and
// the persisted interaction flags. One Orchestrator owns one session; all
// state mutates under its mutex, and transport callbacks land on the same
// instance.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/parley-ai/parley/pkg/agents"
	"github.com/parley-ai/parley/pkg/core/types"
	"github.com/parley-ai/parley/pkg/guardrails"
	"github.com/parley-ai/parley/pkg/store"
	"github.com/parley-ai/parley/pkg/transport"
)

// Status is the session lifecycle state.
type Status string

const (
	StatusDisconnected Status = "DISCONNECTED"
	StatusConnecting   Status = "CONNECTING"
	StatusConnected    Status = "CONNECTED"
)

// Server voice-activity detection parameters pushed on every session update
// when push-to-talk is off.
const (
	vadThreshold       = 0.9
	vadPrefixPaddingMS = 300
	vadSilenceMS       = 500
)

const greetingText = "hi"

// KeySource mints the short-lived credential used to open a transport
// session.
type KeySource interface {
	EphemeralKey(ctx context.Context) (string, error)
}

// State is a point-in-time snapshot of the orchestrator.
type State struct {
	Status               Status
	ActiveAgent          string
	PushToTalk           bool
	IsUserSpeaking       bool
	AudioPlaybackEnabled bool
	LogsExpanded         bool
}

// Dependencies are the orchestrator's collaborators. Transport, Keys and
// Store are required; the rest default.
type Dependencies struct {
	Transport transport.Transport
	Keys      KeySource
	Executor  transport.ToolExecutor
	Store     store.Store
	Logger    *slog.Logger
	// OnStatus observes lifecycle transitions. Called synchronously; it
	// must not call back into the orchestrator.
	OnStatus func(Status)
}

// Orchestrator drives one conversation session.
type Orchestrator struct {
	id     string
	deps   Dependencies
	logger *slog.Logger

	mu               sync.Mutex
	scenario         types.Scenario
	selectedAgent    string
	status           Status
	pushToTalk       bool
	isUserSpeaking   bool
	audioPlayback    bool
	logsExpanded     bool
	handoffTriggered bool
}

// New builds an orchestrator for scenario. Persisted interaction flags are
// restored from the store; corrupt or missing flags fall back to defaults.
func New(ctx context.Context, scenario types.Scenario, deps Dependencies) *Orchestrator {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	id := ulid.Make().String()
	o := &Orchestrator{
		id:     id,
		deps:   deps,
		logger: deps.Logger.With("session", id),
		status: StatusDisconnected,
	}
	o.scenario = scenario
	if len(scenario.Agents) > 0 {
		o.selectedAgent = scenario.Agents[0].Name
	}
	o.pushToTalk = store.GetBool(ctx, deps.Store, store.KeyPushToTalk, false)
	o.audioPlayback = store.GetBool(ctx, deps.Store, store.KeyAudioPlayback, true)
	o.logsExpanded = store.GetBool(ctx, deps.Store, store.KeyLogsExpanded, true)
	return o
}

// ID is the session's ULID, stable for the orchestrator's lifetime.
func (o *Orchestrator) ID() string { return o.id }

// State returns a snapshot.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return State{
		Status:               o.status,
		ActiveAgent:          o.selectedAgent,
		PushToTalk:           o.pushToTalk,
		IsUserSpeaking:       o.isUserSpeaking,
		AudioPlaybackEnabled: o.audioPlayback,
		LogsExpanded:         o.logsExpanded,
	}
}

// Connect establishes the session. Calling it in any state other than
// DISCONNECTED is a no-op, so a second press while connecting cannot fork
// the lifecycle. Credential acquisition failure lands back in DISCONNECTED,
// and an explicit Disconnect issued mid-connect wins over the connect.
func (o *Orchestrator) Connect(ctx context.Context) error {
	o.mu.Lock()
	if o.status != StatusDisconnected {
		o.mu.Unlock()
		return nil
	}
	scenario := o.scenario
	selected := o.selectedAgent
	if err := scenarioProblem(scenario); err != nil {
		o.mu.Unlock()
		o.logger.Error("scenario rejected", "error", err)
		return err
	}
	o.setStatusLocked(StatusConnecting)
	o.mu.Unlock()

	key, err := o.deps.Keys.EphemeralKey(ctx)
	if err != nil {
		o.logger.Error("ephemeral key fetch failed", "error", err)
		o.abortConnect()
		return fmt.Errorf("fetch ephemeral key: %w", err)
	}

	ordered := agents.Reorder(scenario.Agents, selected)
	guard := guardrails.NewModeration(scenario.GuardrailName())

	err = o.deps.Transport.Connect(ctx, transport.ConnectOptions{
		ClientSecret: key,
		Agents:       ordered,
		Executor:     o.deps.Executor,
		Guardrail:    guard,
		Listener:     o,
	})
	if err != nil {
		o.logger.Error("transport connect failed", "error", err)
		o.abortConnect()
		return fmt.Errorf("connect transport: %w", err)
	}

	o.mu.Lock()
	if o.status != StatusConnecting {
		// The user disconnected while we were dialing. Their call won;
		// tear the fresh link down instead of resurrecting the session.
		o.mu.Unlock()
		o.logger.Info("connect aborted by disconnect")
		o.deps.Transport.Disconnect()
		return nil
	}
	defer o.mu.Unlock()
	o.setStatusLocked(StatusConnected)
	o.pushSessionConfigLocked(true)
	if !o.audioPlayback {
		if err := o.deps.Transport.Mute(true); err != nil {
			o.logger.Warn("mute failed", "error", err)
		}
	}
	return nil
}

// abortConnect returns a failed connect to DISCONNECTED unless something
// else already moved the state.
func (o *Orchestrator) abortConnect() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.status == StatusConnecting {
		o.setStatusLocked(StatusDisconnected)
	}
}

// scenarioProblem reports the first agent definition that cannot start a
// session, an unsupported voice included.
func scenarioProblem(scenario types.Scenario) error {
	for _, a := range scenario.Agents {
		if errs := agents.Validate(a); len(errs) > 0 {
			return fmt.Errorf("agent %q: %s: %s", a.Name, errs[0].Field, errs[0].Message)
		}
	}
	return nil
}

// Disconnect tears the session down. Safe in any state, any number of
// times; it always leaves the user-speaking flag cleared.
func (o *Orchestrator) Disconnect() {
	// The transport teardown blocks until its read loop exits, and that loop
	// delivers listener callbacks which take the mutex. Tear down first.
	o.deps.Transport.Disconnect()
	o.mu.Lock()
	defer o.mu.Unlock()
	o.isUserSpeaking = false
	if o.status != StatusDisconnected {
		o.setStatusLocked(StatusDisconnected)
	}
}

// PressTalk starts a push-to-talk turn: cancel whatever the assistant is
// saying and drop any buffered input audio.
func (o *Orchestrator) PressTalk() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.status != StatusConnected {
		return
	}
	if err := o.deps.Transport.Interrupt(); err != nil {
		o.logger.Warn("interrupt failed", "error", err)
	}
	o.isUserSpeaking = true
	o.sendLocked(transport.Event{Type: transport.EventInputAudioBufferClear})
}

// ReleaseTalk ends a push-to-talk turn: commit the captured audio and ask
// for a response. A release without a matching press is ignored.
func (o *Orchestrator) ReleaseTalk() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.status != StatusConnected || !o.isUserSpeaking {
		return
	}
	o.isUserSpeaking = false
	o.sendLocked(transport.Event{Type: transport.EventInputAudioBufferCommit})
	o.sendLocked(transport.Event{Type: transport.EventResponseCreate})
}

// SendText submits a typed user message. Whitespace-only input is dropped;
// a live assistant response is interrupted first.
func (o *Orchestrator) SendText(text string) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.status != StatusConnected {
		return fmt.Errorf("session not connected")
	}
	if err := o.deps.Transport.Interrupt(); err != nil {
		o.logger.Warn("interrupt failed", "error", err)
	}
	return o.deps.Transport.SendUserText(trimmed)
}

// SetPushToTalk flips the turn-taking mode. The flag persists immediately,
// and a live session gets the new turn-detection config pushed without a
// reconnect.
func (o *Orchestrator) SetPushToTalk(ctx context.Context, enabled bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pushToTalk = enabled
	store.PutBool(ctx, o.deps.Store, store.KeyPushToTalk, enabled)
	if o.status == StatusConnected {
		o.pushSessionConfigLocked(false)
	}
}

// SetAudioPlayback toggles assistant audio, persisting the flag and muting
// the transport when playback is off.
func (o *Orchestrator) SetAudioPlayback(ctx context.Context, enabled bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.audioPlayback = enabled
	store.PutBool(ctx, o.deps.Store, store.KeyAudioPlayback, enabled)
	if o.status == StatusConnected {
		if err := o.deps.Transport.Mute(!enabled); err != nil {
			o.logger.Warn("mute failed", "error", err)
		}
	}
}

// SetLogsExpanded persists the logs-pane flag. Purely cosmetic state, but
// it survives restarts like the rest.
func (o *Orchestrator) SetLogsExpanded(ctx context.Context, expanded bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.logsExpanded = expanded
	store.PutBool(ctx, o.deps.Store, store.KeyLogsExpanded, expanded)
}

// SelectAgent changes the starting agent. A live session is torn down
// first; the caller reconnects when ready.
func (o *Orchestrator) SelectAgent(name string) {
	o.mu.Lock()
	if o.selectedAgent == name {
		o.mu.Unlock()
		return
	}
	connected := o.status != StatusDisconnected
	o.mu.Unlock()
	if connected {
		o.Disconnect()
	}
	o.mu.Lock()
	o.selectedAgent = name
	o.mu.Unlock()
}

// SetScenario swaps the agent set, tearing down any live session.
func (o *Orchestrator) SetScenario(scenario types.Scenario) {
	o.Disconnect()
	o.mu.Lock()
	defer o.mu.Unlock()
	o.scenario = scenario
	o.selectedAgent = ""
	if len(scenario.Agents) > 0 {
		o.selectedAgent = scenario.Agents[0].Name
	}
}

// OnConnectionState implements transport.Listener. A dropped link moves
// the session to DISCONNECTED and clears the speaking flag.
func (o *Orchestrator) OnConnectionState(state transport.ConnectionState) {
	if state != transport.StateDisconnected {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.isUserSpeaking = false
	if o.status != StatusDisconnected {
		o.setStatusLocked(StatusDisconnected)
	}
}

// OnAgentHandoff implements transport.Listener. The new agent becomes
// active and the next session-config push skips the synthetic greeting so
// the receiving agent is not greeted twice.
func (o *Orchestrator) OnAgentHandoff(fromAgent, toAgent string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.logger.Info("agent handoff", "from", fromAgent, "to", toAgent)
	o.selectedAgent = toAgent
	o.handoffTriggered = true
	if o.status == StatusConnected {
		o.pushSessionConfigLocked(true)
	}
}

func (o *Orchestrator) setStatusLocked(s Status) {
	o.status = s
	o.logger.Info("session status", "status", string(s))
	if o.deps.OnStatus != nil {
		o.deps.OnStatus(s)
	}
}

// pushSessionConfigLocked sends the turn-detection config and, when asked,
// the one-shot synthetic greeting that makes the agent speak first. A
// pending handoff consumes the greeting instead of sending it.
func (o *Orchestrator) pushSessionConfigLocked(triggerResponse bool) {
	o.sendLocked(transport.Event{
		Type:    transport.EventSessionUpdate,
		Session: map[string]any{"turn_detection": o.turnDetectionLocked()},
	})
	if !triggerResponse {
		return
	}
	if o.handoffTriggered {
		o.handoffTriggered = false
		return
	}
	o.sendGreetingLocked()
}

// turnDetectionLocked is nil in push-to-talk mode: the service must not
// auto-detect turns when the user controls them with the button.
func (o *Orchestrator) turnDetectionLocked() map[string]any {
	if o.pushToTalk {
		return nil
	}
	return map[string]any{
		"type":                "server_vad",
		"threshold":           vadThreshold,
		"prefix_padding_ms":   vadPrefixPaddingMS,
		"silence_duration_ms": vadSilenceMS,
		"create_response":     true,
	}
}

func (o *Orchestrator) sendGreetingLocked() {
	id := uuid.NewString()
	if len(id) > 32 {
		id = id[:32]
	}
	o.sendLocked(transport.Event{
		Type: transport.EventConversationItemCreate,
		Item: map[string]any{
			"id":   id,
			"type": "message",
			"role": "user",
			"content": []map[string]any{
				{"type": "input_text", "text": greetingText},
			},
		},
	})
	o.sendLocked(transport.Event{Type: transport.EventResponseCreate})
}

func (o *Orchestrator) sendLocked(ev transport.Event) {
	if err := o.deps.Transport.SendEvent(ev); err != nil {
		o.logger.Warn("send event failed", "type", string(ev.Type), "error", err)
	}
}

var _ transport.Listener = (*Orchestrator)(nil)
