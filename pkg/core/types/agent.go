package types

import "time"

// Voice identifies a synthesized voice accepted by the realtime transport.
// Only these values are valid; anything else must be rejected before a
// session is started.
type Voice string

const (
	VoiceSage    Voice = "sage"
	VoiceAlloy   Voice = "alloy"
	VoiceAsh     Voice = "ash"
	VoiceBallad  Voice = "ballad"
	VoiceCoral   Voice = "coral"
	VoiceEcho    Voice = "echo"
	VoiceShimmer Voice = "shimmer"
	VoiceVerse   Voice = "verse"
)

// Voices lists every voice the transport accepts, in display order.
var Voices = []Voice{
	VoiceSage,
	VoiceAlloy,
	VoiceAsh,
	VoiceBallad,
	VoiceCoral,
	VoiceEcho,
	VoiceShimmer,
	VoiceVerse,
}

func (v Voice) Valid() bool {
	for _, known := range Voices {
		if v == known {
			return true
		}
	}
	return false
}

// AgentDefinition describes one conversational persona: who it is, how it
// sounds, what it may do, and which other agents it may hand the
// conversation to. Definitions are replaced whole on edit, never mutated
// piecemeal by callers.
type AgentDefinition struct {
	ID                 string           `json:"id"`
	Name               string           `json:"name"`
	Voice              Voice            `json:"voice"`
	HandoffDescription string           `json:"handoff_description,omitempty"`
	Instructions       string           `json:"instructions"`
	Tools              []ToolDefinition `json:"tools"`
	Handoffs           []string         `json:"handoffs"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
	ReadOnly           bool             `json:"read_only,omitempty"`
}

// Scenario is a named set of agents loadable as one conversation context.
// GuardrailCompanyName is the display name bound into the moderation
// guardrail for sessions of this scenario; when empty, DisplayName is used.
type Scenario struct {
	Key                  string            `json:"key"`
	DisplayName          string            `json:"display_name"`
	GuardrailCompanyName string            `json:"guardrail_company_name,omitempty"`
	Agents               []AgentDefinition `json:"agents"`
}

// GuardrailName resolves the display name the moderation guardrail should be
// bound to for this scenario.
func (s Scenario) GuardrailName() string {
	if s.GuardrailCompanyName != "" {
		return s.GuardrailCompanyName
	}
	return s.DisplayName
}

// AgentByName returns the agent with the given name, if present.
func (s Scenario) AgentByName(name string) (AgentDefinition, bool) {
	for _, a := range s.Agents {
		if a.Name == name {
			return a, true
		}
	}
	return AgentDefinition{}, false
}
