// Package agents owns the agent definition model: validation, handoff
// resolution, and whole-set lifecycle for builder-authored agents.
package agents

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/parley-ai/parley/pkg/core/types"
)

// Agent names double as transport-level selectors, so they must be
// identifier-safe: a leading letter followed by letters, digits, or
// underscores.
var nameRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// ValidationError describes one problem found in an agent definition.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// New returns an empty agent definition with a fresh id and timestamps.
func New() types.AgentDefinition {
	now := time.Now().UTC()
	return types.AgentDefinition{
		ID:        uuid.NewString(),
		Voice:     types.VoiceSage,
		Tools:     []types.ToolDefinition{},
		Handoffs:  []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewTool returns an empty tool definition with a fresh id.
func NewTool() types.ToolDefinition {
	return types.ToolDefinition{
		ID:         uuid.NewString(),
		Parameters: []types.ToolParameter{},
	}
}

// Validate checks an agent definition for the problems that would break a
// session: a malformed name, a rejected voice, empty instructions, and
// unusable tool definitions. It returns every problem found, not just the
// first.
func Validate(agent types.AgentDefinition) []ValidationError {
	var errs []ValidationError

	if !nameRe.MatchString(agent.Name) {
		errs = append(errs, ValidationError{
			Field:   "name",
			Message: "must start with a letter and contain only letters, digits, and underscores",
		})
	}
	if !agent.Voice.Valid() {
		errs = append(errs, ValidationError{
			Field:   "voice",
			Message: fmt.Sprintf("%q is not a supported voice", agent.Voice),
		})
	}
	if strings.TrimSpace(agent.Instructions) == "" {
		errs = append(errs, ValidationError{Field: "instructions", Message: "must not be empty"})
	}

	seenTools := make(map[string]struct{}, len(agent.Tools))
	for i, tool := range agent.Tools {
		field := fmt.Sprintf("tools[%d]", i)
		if strings.TrimSpace(tool.Name) == "" {
			errs = append(errs, ValidationError{Field: field + ".name", Message: "must not be empty"})
		} else if _, dup := seenTools[tool.Name]; dup {
			errs = append(errs, ValidationError{Field: field + ".name", Message: "duplicate tool name"})
		} else {
			seenTools[tool.Name] = struct{}{}
		}
		if strings.TrimSpace(tool.Description) == "" {
			errs = append(errs, ValidationError{Field: field + ".description", Message: "must not be empty"})
		}

		seenParams := make(map[string]struct{}, len(tool.Parameters))
		for j, param := range tool.Parameters {
			pfield := fmt.Sprintf("%s.parameters[%d]", field, j)
			if strings.TrimSpace(param.Name) == "" {
				errs = append(errs, ValidationError{Field: pfield + ".name", Message: "must not be empty"})
			} else if _, dup := seenParams[param.Name]; dup {
				errs = append(errs, ValidationError{Field: pfield + ".name", Message: "duplicate parameter name"})
			} else {
				seenParams[param.Name] = struct{}{}
			}
			if !param.Type.Valid() {
				errs = append(errs, ValidationError{
					Field:   pfield + ".type",
					Message: fmt.Sprintf("%q is not a supported parameter type", param.Type),
				})
			}
		}
	}

	for _, h := range agent.Handoffs {
		if h == agent.ID {
			errs = append(errs, ValidationError{Field: "handoffs", Message: "agent may not hand off to itself"})
		}
	}

	return errs
}

// ResolveHandoffs replaces each agent's handoff id list with the live
// definitions present in the set. Ids referring to deleted agents and
// self-references are silently dropped: a stale reference is a recoverable
// consistency repair, not a fatal condition.
func ResolveHandoffs(set []types.AgentDefinition) map[string][]types.AgentDefinition {
	byID := make(map[string]types.AgentDefinition, len(set))
	for _, a := range set {
		byID[a.ID] = a
	}

	resolved := make(map[string][]types.AgentDefinition, len(set))
	for _, a := range set {
		targets := make([]types.AgentDefinition, 0, len(a.Handoffs))
		for _, id := range a.Handoffs {
			if id == a.ID {
				continue
			}
			if target, ok := byID[id]; ok {
				targets = append(targets, target)
			}
		}
		resolved[a.ID] = targets
	}
	return resolved
}

// Upsert replaces the definition with a matching id, or appends it. The
// stored definition's UpdatedAt is refreshed.
func Upsert(set []types.AgentDefinition, agent types.AgentDefinition) []types.AgentDefinition {
	agent.UpdatedAt = time.Now().UTC()
	for i, existing := range set {
		if existing.ID == agent.ID {
			out := make([]types.AgentDefinition, len(set))
			copy(out, set)
			out[i] = agent
			return out
		}
	}
	return append(append([]types.AgentDefinition{}, set...), agent)
}

// Delete removes the agent with the given id and repairs every remaining
// agent's handoff list so no definition references the deleted id.
func Delete(set []types.AgentDefinition, id string) []types.AgentDefinition {
	out := make([]types.AgentDefinition, 0, len(set))
	for _, a := range set {
		if a.ID == id {
			continue
		}
		if len(a.Handoffs) > 0 {
			kept := make([]string, 0, len(a.Handoffs))
			for _, h := range a.Handoffs {
				if h != id {
					kept = append(kept, h)
				}
			}
			a.Handoffs = kept
		}
		out = append(out, a)
	}
	return out
}

// Reorder returns a copy of the set with the named agent moved to the front;
// the relative order of the others is preserved. Unknown names leave the
// order untouched.
func Reorder(set []types.AgentDefinition, firstName string) []types.AgentDefinition {
	out := make([]types.AgentDefinition, 0, len(set))
	var first *types.AgentDefinition
	for i := range set {
		if set[i].Name == firstName && first == nil {
			first = &set[i]
			continue
		}
		out = append(out, set[i])
	}
	if first == nil {
		return append([]types.AgentDefinition{}, set...)
	}
	return append([]types.AgentDefinition{*first}, out...)
}
