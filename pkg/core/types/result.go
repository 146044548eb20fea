package types

// ToolResult is the structured payload a tool invocation returns to the
// reasoning layer. It is always a value, never an exception: failing tools
// report through the "error" key so the agent can surface the failure
// conversationally instead of tearing down the session.
type ToolResult map[string]any

// ErrorResult builds a generic failure result.
func ErrorResult(msg string) ToolResult {
	return ToolResult{"error": msg}
}

// AuthRequiredResult builds a failure result that additionally signals the
// caller should prompt for re-authentication rather than treat this as a
// generic error.
func AuthRequiredResult(msg string) ToolResult {
	return ToolResult{"error": msg, "requiresAuth": true}
}

// IsError reports whether the result carries an error message.
func (r ToolResult) IsError() bool {
	msg, ok := r["error"].(string)
	return ok && msg != ""
}

// ErrorMessage returns the error message, or "" for success results.
func (r ToolResult) ErrorMessage() string {
	msg, _ := r["error"].(string)
	return msg
}

// RequiresAuth reports whether the result asks for re-authentication.
func (r ToolResult) RequiresAuth() bool {
	v, _ := r["requiresAuth"].(bool)
	return v
}
