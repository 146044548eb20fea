package library

import (
	"time"

	"github.com/parley-ai/parley/pkg/core/types"
)

var demoCreated = time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)

// DemoScenarios returns the read-only scenarios shipped with the app: a
// two-tier customer support pair with a handoff between them, and a personal
// coach with a Gmail-backed assistant workflow.
func DemoScenarios() []types.Scenario {
	support := types.AgentDefinition{
		ID:                 "demo-support-tier1",
		Name:               "support_agent",
		Voice:              types.VoiceAlloy,
		HandoffDescription: "First-line customer support for general inquiries, account questions, and basic troubleshooting.",
		Instructions: "You are a friendly first-line support agent for a tech company. " +
			"Greet customers warmly, listen carefully, handle common questions and basic troubleshooting, " +
			"and look up account information when needed. Transfer to the technical specialist when the " +
			"issue requires debugging, involves billing disputes, or the customer asks for one.",
		Tools: []types.ToolDefinition{
			{
				ID:          "demo-lookup-account",
				Name:        "lookup_account",
				Description: "Look up customer account information by email or account ID",
				Parameters: []types.ToolParameter{
					{Name: "email", Type: types.ParamString, Description: "Customer email address"},
					{Name: "account_id", Type: types.ParamString, Description: "Customer account ID"},
				},
			},
		},
		Handoffs:  []string{"demo-support-tier2"},
		CreatedAt: demoCreated,
		UpdatedAt: demoCreated,
		ReadOnly:  true,
	}

	specialist := types.AgentDefinition{
		ID:                 "demo-support-tier2",
		Name:               "technical_specialist",
		Voice:              types.VoiceEcho,
		HandoffDescription: "Escalation target for technical debugging, complex issues, and billing disputes.",
		Instructions: "You are a senior technical specialist. Customers reach you through an escalation " +
			"from first-line support. Debug methodically, explain what you are doing in plain language, " +
			"and hand the conversation back to the support agent once the technical issue is resolved.",
		Tools: []types.ToolDefinition{
			{
				ID:          "demo-run-diagnostic",
				Name:        "run_diagnostic",
				Description: "Run a diagnostic check against the customer's account or device",
				Parameters: []types.ToolParameter{
					{Name: "account_id", Type: types.ParamString, Description: "Customer account ID", Required: true},
					{Name: "check", Type: types.ParamString, Description: "Which diagnostic to run", Required: true},
				},
			},
		},
		Handoffs:  []string{"demo-support-tier1"},
		CreatedAt: demoCreated,
		UpdatedAt: demoCreated,
		ReadOnly:  true,
	}

	coach := types.AgentDefinition{
		ID:                 "demo-personal-coach",
		Name:               "personal_coach",
		Voice:              types.VoiceBallad,
		HandoffDescription: "A supportive personal coach for motivation, goal-setting, productivity tips, and personal development.",
		Instructions: "You are an encouraging personal coach focused on helping people achieve their goals. " +
			"Ask open-ended questions, celebrate small wins, and keep advice practical and actionable. " +
			"Never be judgmental; acknowledge struggles before offering solutions.",
		Tools: []types.ToolDefinition{
			{
				ID:          "demo-set-goal",
				Name:        "set_goal",
				Description: "Help the user set and track a goal",
				Parameters: []types.ToolParameter{
					{Name: "goal", Type: types.ParamString, Description: "The goal description", Required: true},
					{Name: "deadline", Type: types.ParamString, Description: "Target completion date"},
					{Name: "category", Type: types.ParamString, Description: "Category: health, career, learning, personal, finance"},
				},
			},
		},
		Handoffs:  []string{},
		CreatedAt: demoCreated,
		UpdatedAt: demoCreated,
		ReadOnly:  true,
	}

	assistant := types.AgentDefinition{
		ID:                 "demo-email-assistant",
		Name:               "email_assistant",
		Voice:              types.VoiceSage,
		HandoffDescription: "Personal email assistant that reads, triages, and sends Gmail on the user's behalf.",
		Instructions: "You are a hands-free email assistant. Summarize unread mail out loud, read messages " +
			"on request, and draft or send replies the user dictates. Confirm recipient and subject before " +
			"sending anything. If Gmail is not connected, tell the user to connect it in the builder settings.",
		Tools:     GmailTools(),
		Handoffs:  []string{},
		CreatedAt: demoCreated,
		UpdatedAt: demoCreated,
		ReadOnly:  true,
	}

	return []types.Scenario{
		{
			Key:                  "customerSupport",
			DisplayName:          "Customer Support",
			GuardrailCompanyName: "NewTelco",
			Agents:               []types.AgentDefinition{support, specialist},
		},
		{
			Key:         "personalCoach",
			DisplayName: "Personal Coach",
			Agents:      []types.AgentDefinition{coach},
		},
		{
			Key:         "emailAssistant",
			DisplayName: "Email Assistant",
			Agents:      []types.AgentDefinition{assistant},
		},
	}
}
