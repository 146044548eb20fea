// Package compile turns stored tool definitions into callable tools with a
// declared JSON schema. Compilation is pure and deterministic: the same
// definition always yields the same schema, byte for byte once marshaled.
package compile

import (
	"context"
	"encoding/json"

	"github.com/parley-ai/parley/pkg/core/types"
)

// ExecuteFunc runs a tool invocation. Implementations return a ToolResult
// value in every case; errors travel inside the result.
type ExecuteFunc func(ctx context.Context, args map[string]any) types.ToolResult

// CallableTool pairs a compiled parameter schema with an execution entry
// point.
type CallableTool struct {
	Name        string
	Description string
	Schema      *types.JSONSchema

	execute ExecuteFunc
}

// Compile builds a callable tool from a definition. The schema marks exactly
// the parameters flagged required as required and closes the object with
// additionalProperties=false; rejecting out-of-schema arguments is the
// transport's job, so the only contract here is correct schema emission.
// The returned tool has no execution wiring; see Bind.
func Compile(def types.ToolDefinition) CallableTool {
	f := false
	schema := &types.JSONSchema{
		Type:                 "object",
		Properties:           make(map[string]types.JSONSchema, len(def.Parameters)),
		AdditionalProperties: &f,
	}
	required := make([]string, 0, len(def.Parameters))
	for _, param := range def.Parameters {
		prop := types.JSONSchema{
			Type:        string(param.Type),
			Description: param.Description,
		}
		if len(param.Enum) > 0 {
			prop.Enum = append([]string{}, param.Enum...)
		}
		schema.Properties[param.Name] = prop
		if param.Required {
			required = append(required, param.Name)
		}
	}
	schema.Required = required

	return CallableTool{
		Name:        def.Name,
		Description: def.Description,
		Schema:      schema,
	}
}

// Bind attaches an execution entry point, leaving the schema untouched.
func (t CallableTool) Bind(fn ExecuteFunc) CallableTool {
	t.execute = fn
	return t
}

// Execute invokes the bound entry point. An unbound tool reports a plain
// error result rather than panicking.
func (t CallableTool) Execute(ctx context.Context, args map[string]any) types.ToolResult {
	if t.execute == nil {
		return types.ErrorResult("tool " + t.Name + " has no execution backend")
	}
	return t.execute(ctx, args)
}

// SchemaJSON marshals the schema. encoding/json sorts map keys, so the
// output is stable across calls.
func (t CallableTool) SchemaJSON() ([]byte, error) {
	return json.Marshal(t.Schema)
}

// CompileAll compiles every tool of an agent in declaration order.
func CompileAll(defs []types.ToolDefinition) []CallableTool {
	out := make([]CallableTool, 0, len(defs))
	for _, def := range defs {
		out = append(out, Compile(def))
	}
	return out
}
