package types

// ParameterType is the declared primitive type of a tool parameter.
type ParameterType string

const (
	ParamString  ParameterType = "string"
	ParamNumber  ParameterType = "number"
	ParamBoolean ParameterType = "boolean"
	ParamObject  ParameterType = "object"
	ParamArray   ParameterType = "array"
)

func (t ParameterType) Valid() bool {
	switch t {
	case ParamString, ParamNumber, ParamBoolean, ParamObject, ParamArray:
		return true
	}
	return false
}

// ToolParameter declares one named argument of a tool.
type ToolParameter struct {
	Name        string        `json:"name"`
	Type        ParameterType `json:"type"`
	Description string        `json:"description"`
	Required    bool          `json:"required"`
	Enum        []string      `json:"enum,omitempty"`
}

// ToolDefinition is a stored, user-authored tool: an invocation key, guidance
// for the agent's reasoning, and an ordered parameter list. Parameter order
// is not semantically meaningful but round-trips on persistence.
type ToolDefinition struct {
	ID          string          `json:"id,omitempty"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  []ToolParameter `json:"parameters"`
}

// JSONSchema represents the schema attached to a compiled tool.
type JSONSchema struct {
	Type                 string                `json:"type"`
	Properties           map[string]JSONSchema `json:"properties,omitempty"`
	Required             []string              `json:"required,omitempty"`
	Description          string                `json:"description,omitempty"`
	Enum                 []string              `json:"enum,omitempty"`
	Items                *JSONSchema           `json:"items,omitempty"`
	AdditionalProperties *bool                 `json:"additionalProperties,omitempty"`
}
