// Package library ships the built-in tool families and demo scenarios that a
// fresh install can use before any agents have been authored.
package library

import "github.com/parley-ai/parley/pkg/core/types"

// ToolLibrary groups related tool definitions for the builder's picker.
type ToolLibrary struct {
	ID          string
	Name        string
	Description string
	Tools       []types.ToolDefinition
}

// Libraries returns the built-in tool libraries.
func Libraries() []ToolLibrary {
	return []ToolLibrary{
		{
			ID:          "gmail",
			Name:        "Gmail Integration",
			Description: "Read, send, and manage emails via Gmail",
			Tools:       GmailTools(),
		},
		{
			ID:          "calendar",
			Name:        "Google Calendar",
			Description: "Manage events and check availability",
			Tools:       CalendarTools(),
		},
	}
}

// GmailTools returns the Gmail family tool definitions. The names carry the
// gmail_ prefix the dispatcher routes on.
func GmailTools() []types.ToolDefinition {
	return []types.ToolDefinition{
		{
			ID:          "gmail_list_unread",
			Name:        "gmail_list_unread",
			Description: "List the latest unread emails from the user's inbox. Returns sender, subject, and snippet.",
			Parameters: []types.ToolParameter{
				{Name: "limit", Type: types.ParamNumber, Description: "The maximum number of emails to retrieve (default: 5)"},
			},
		},
		{
			ID:          "gmail_read_email",
			Name:        "gmail_read_email",
			Description: "Read the full content of a specific email by its ID.",
			Parameters: []types.ToolParameter{
				{Name: "email_id", Type: types.ParamString, Description: "The unique ID of the email to read", Required: true},
			},
		},
		{
			ID:          "gmail_send_email",
			Name:        "gmail_send_email",
			Description: "Send a new email to a recipient.",
			Parameters: []types.ToolParameter{
				{Name: "to", Type: types.ParamString, Description: "The email address of the recipient", Required: true},
				{Name: "subject", Type: types.ParamString, Description: "The subject line of the email", Required: true},
				{Name: "body", Type: types.ParamString, Description: "The body content of the email", Required: true},
			},
		},
		{
			ID:          "gmail_delete_email",
			Name:        "gmail_delete_email",
			Description: "Move an email to the trash.",
			Parameters: []types.ToolParameter{
				{Name: "email_id", Type: types.ParamString, Description: "The unique ID of the email to delete", Required: true},
			},
		},
		{
			ID:          "gmail_create_draft",
			Name:        "gmail_create_draft",
			Description: "Create a draft email without sending it.",
			Parameters: []types.ToolParameter{
				{Name: "to", Type: types.ParamString, Description: "The email address of the recipient"},
				{Name: "subject", Type: types.ParamString, Description: "The subject line of the email"},
				{Name: "body", Type: types.ParamString, Description: "The body content of the email", Required: true},
			},
		},
	}
}

// CalendarTools returns the Calendar family tool definitions. There is no
// wired backend for these yet; invocations fall through to the dispatcher's
// stub result.
func CalendarTools() []types.ToolDefinition {
	return []types.ToolDefinition{
		{
			ID:          "calendar_list_events",
			Name:        "calendar_list_events",
			Description: "List upcoming calendar events.",
			Parameters: []types.ToolParameter{
				{Name: "limit", Type: types.ParamNumber, Description: "Max events to fetch"},
			},
		},
		{
			ID:          "calendar_create_event",
			Name:        "calendar_create_event",
			Description: "Schedule a new event on the calendar.",
			Parameters: []types.ToolParameter{
				{Name: "summary", Type: types.ParamString, Description: "Title of the event", Required: true},
				{Name: "startTime", Type: types.ParamString, Description: "ISO string for start time", Required: true},
				{Name: "endTime", Type: types.ParamString, Description: "ISO string for end time", Required: true},
			},
		},
	}
}
