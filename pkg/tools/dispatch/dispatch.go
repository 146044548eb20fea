// Package dispatch routes tool invocations by name to integration family
// handlers, with a stub fallback for user-authored tools that have no wired
// backend. Adding a family is a registration, not a new branch in a central
// conditional.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/parley-ai/parley/pkg/core/types"
	"github.com/parley-ai/parley/pkg/tools/compile"
)

// FamilyHandler executes every tool whose name carries the family's prefix.
type FamilyHandler interface {
	// Prefix is the reserved tool-name prefix this family owns, e.g. "gmail_".
	Prefix() string
	// Execute runs one invocation. It returns a result value in all cases,
	// including unknown names within the family (UnsupportedAction).
	Execute(ctx context.Context, toolName string, args map[string]any) types.ToolResult
}

// UnsupportedAction is the result for a name that matches a family prefix
// but maps to no action in that family.
func UnsupportedAction(family, toolName string) types.ToolResult {
	return types.ErrorResult(fmt.Sprintf("unknown %s tool: %s", family, toolName))
}

// Dispatcher owns the family registry. The zero value has no families and
// answers everything with the stub result.
type Dispatcher struct {
	logger   *slog.Logger
	prefixes []string
	byPrefix map[string]FamilyHandler
}

func NewDispatcher(logger *slog.Logger, families ...FamilyHandler) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{
		logger:   logger,
		byPrefix: make(map[string]FamilyHandler, len(families)),
	}
	for _, f := range families {
		if f == nil {
			continue
		}
		prefix := f.Prefix()
		if prefix == "" {
			continue
		}
		if _, exists := d.byPrefix[prefix]; !exists {
			d.prefixes = append(d.prefixes, prefix)
		}
		d.byPrefix[prefix] = f
	}
	return d
}

// Execute routes one invocation. It never returns a Go error and never
// panics across this boundary: a failing tool must not crash or disconnect
// the session. Tools outside every registered family get the stub success
// result echoing their arguments.
func (d *Dispatcher) Execute(ctx context.Context, toolName string, args map[string]any) types.ToolResult {
	name := strings.TrimSpace(toolName)
	if name == "" {
		return types.ErrorResult("tool name is required")
	}
	for _, prefix := range d.prefixes {
		if strings.HasPrefix(name, prefix) {
			d.logger.Debug("dispatching tool to family", "tool", name, "family", prefix)
			return d.byPrefix[prefix].Execute(ctx, name, args)
		}
	}
	d.logger.Debug("no backend for tool, returning stub result", "tool", name)
	return stubResult(name, args)
}

// Binder returns an ExecuteFunc for a compiled tool, closing over the name.
func (d *Dispatcher) Binder(toolName string) compile.ExecuteFunc {
	return func(ctx context.Context, args map[string]any) types.ToolResult {
		return d.Execute(ctx, toolName, args)
	}
}

// stubResult is the default for user-authored tools with no wired backend.
func stubResult(toolName string, args map[string]any) types.ToolResult {
	if args == nil {
		args = map[string]any{}
	}
	return types.ToolResult{
		"success": true,
		"message": fmt.Sprintf("Tool %s executed successfully", toolName),
		"input":   args,
	}
}
