// Package transport defines the boundary between the session orchestrator
// and the realtime speech service. The orchestrator only ever emits events
// from the closed vocabulary below; everything else about the wire is the
// implementation's business.
package transport

import (
	"context"

	"github.com/parley-ai/parley/pkg/core/types"
)

// EventType enumerates every control event the orchestrator may send.
type EventType string

const (
	EventSessionUpdate          EventType = "session.update"
	EventConversationItemCreate EventType = "conversation.item.create"
	EventResponseCreate         EventType = "response.create"
	EventInputAudioBufferClear  EventType = "input_audio_buffer.clear"
	EventInputAudioBufferCommit EventType = "input_audio_buffer.commit"
)

// Event is one client-to-service control event. Exactly one of Session or
// Item is set, matching the event type; buffer events carry neither.
type Event struct {
	Type    EventType      `json:"type"`
	Session map[string]any `json:"session,omitempty"`
	Item    map[string]any `json:"item,omitempty"`
}

// ConnectionState is the transport's view of the link.
type ConnectionState string

const (
	StateConnected    ConnectionState = "connected"
	StateDisconnected ConnectionState = "disconnected"
)

// Listener receives transport notifications. Implementations must be quick;
// calls arrive on the transport's read goroutine.
type Listener interface {
	// OnConnectionState reports link transitions, including failures, which
	// arrive as StateDisconnected.
	OnConnectionState(state ConnectionState)
	// OnAgentHandoff reports that the conversation moved to another agent.
	OnAgentHandoff(fromAgent, toAgent string)
}

// ToolExecutor runs tool invocations requested by the service.
type ToolExecutor interface {
	Execute(ctx context.Context, toolName string, args map[string]any) types.ToolResult
}

// OutputGuardrail screens assistant output text before delivery.
type OutputGuardrail interface {
	// Blocked reports whether text must be withheld, with the replacement
	// message to surface instead.
	Blocked(text string) (string, bool)
}

// ConnectOptions carries everything a transport needs to establish a
// session. Agents are in serving order; the first entry is active.
type ConnectOptions struct {
	ClientSecret string
	Agents       []types.AgentDefinition
	Executor     ToolExecutor
	Guardrail    OutputGuardrail
	Listener     Listener
}

// Transport is the speech-service session link. Implementations own their
// goroutines; Disconnect must be safe to call in any state and more than
// once.
type Transport interface {
	Connect(ctx context.Context, opts ConnectOptions) error
	Disconnect()
	SendUserText(text string) error
	SendEvent(ev Event) error
	// Interrupt cancels any in-progress assistant response.
	Interrupt() error
	// Mute silences assistant audio playback without touching the session.
	Mute(muted bool) error
}
