// Package gmail is the Gmail tool family. Tool names carry the gmail_
// prefix and map one to one onto proxy actions; credentials come from an
// injected source and never leave this package in a result.
package gmail

import (
	"context"
	"errors"
	"log/slog"

	"github.com/parley-ai/parley/pkg/core/types"
	"github.com/parley-ai/parley/pkg/credentials"
	"github.com/parley-ai/parley/pkg/tools/dispatch"
)

// Messages surfaced to the model when no usable credential exists. They tell
// the user what to do; they carry no token material.
const (
	msgNotConnected   = "Gmail not connected. Please connect your Gmail account in the Agent Builder settings."
	msgSessionExpired = "Gmail session expired. Please reconnect your Gmail account."
)

// actionByTool is the closed tool-to-action lookup. Names outside this map
// are unsupported even when they carry the prefix.
var actionByTool = map[string]string{
	"gmail_list_unread":  "list_unread",
	"gmail_read_email":   "read_email",
	"gmail_send_email":   "send_email",
	"gmail_delete_email": "delete_email",
	"gmail_create_draft": "create_draft",
}

// Client is the upstream call surface, satisfied by ProxyClient.
type Client interface {
	Do(ctx context.Context, action, accessToken string, params map[string]any) (map[string]any, error)
}

// Handler executes the Gmail tool family.
type Handler struct {
	client Client
	creds  credentials.Source
	logger *slog.Logger
}

func NewHandler(client Client, creds credentials.Source, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{client: client, creds: creds, logger: logger}
}

func (h *Handler) Prefix() string { return "gmail_" }

// Execute runs one Gmail tool invocation. No credential means no network
// call at all; a rejected token maps to a reconnect prompt. Failures are
// reported once, never retried here.
func (h *Handler) Execute(ctx context.Context, toolName string, args map[string]any) types.ToolResult {
	action, ok := actionByTool[toolName]
	if !ok {
		return dispatch.UnsupportedAction("Gmail", toolName)
	}

	rec, ok := h.creds.Load(ctx)
	if !ok {
		return types.AuthRequiredResult(msgNotConnected)
	}

	payload, err := h.client.Do(ctx, action, rec.AccessToken, args)
	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			h.logger.Info("gmail token rejected", "action", action)
			return types.AuthRequiredResult(msgSessionExpired)
		}
		h.logger.Warn("gmail action failed", "action", action, "error", err)
		return types.ErrorResult(err.Error())
	}
	return types.ToolResult(payload)
}

var _ dispatch.FamilyHandler = (*Handler)(nil)
