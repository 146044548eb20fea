package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// GmailProxyHandler performs Gmail actions on behalf of the tool executor.
// The access token arrives in the request body and goes straight to the
// Gmail API; it is never logged or echoed back.
type GmailProxyHandler struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

type gmailProxyRequest struct {
	Action      string         `json:"action"`
	AccessToken string         `json:"accessToken"`
	Params      map[string]any `json:"params"`
}

func (h GmailProxyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req gmailProxyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.AccessToken == "" {
		writeError(w, http.StatusUnauthorized, "No access token provided")
		return
	}
	if req.Params == nil {
		req.Params = map[string]any{}
	}

	var (
		result map[string]any
		err    *upstreamError
	)
	switch req.Action {
	case "list_unread":
		result, err = h.listUnread(r.Context(), req)
	case "read_email":
		result, err = h.readEmail(r.Context(), req)
	case "send_email":
		result, err = h.sendEmail(r.Context(), req)
	case "delete_email":
		result, err = h.deleteEmail(r.Context(), req)
	case "create_draft":
		result, err = h.createDraft(r.Context(), req)
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown action: %s", req.Action))
		return
	}
	if err != nil {
		h.logger().Warn("gmail proxy action failed", "action", req.Action, "status", err.Status)
		writeError(w, err.Status, err.Message)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// upstreamError carries the Gmail API failure back with its status so token
// problems surface to the caller as 401, not a flattened 500.
type upstreamError struct {
	Status  int
	Message string
}

func (h GmailProxyHandler) listUnread(ctx context.Context, req gmailProxyRequest) (map[string]any, *upstreamError) {
	limit := intParam(req.Params, "limit", 10)
	listURL := fmt.Sprintf("%s/gmail/v1/users/me/messages?q=%s&maxResults=%d",
		h.BaseURL, url.QueryEscape("is:unread"), limit)

	var list struct {
		Messages []struct {
			ID string `json:"id"`
		} `json:"messages"`
		ResultSizeEstimate int `json:"resultSizeEstimate"`
	}
	if err := h.call(ctx, http.MethodGet, listURL, req.AccessToken, nil, &list); err != nil {
		return nil, err
	}

	summaries := make([]map[string]any, 0, len(list.Messages))
	for _, msg := range list.Messages {
		metaURL := fmt.Sprintf("%s/gmail/v1/users/me/messages/%s?format=metadata&metadataHeaders=From&metadataHeaders=Subject&metadataHeaders=Date",
			h.BaseURL, url.PathEscape(msg.ID))
		var meta gmailMessage
		if err := h.call(ctx, http.MethodGet, metaURL, req.AccessToken, nil, &meta); err != nil {
			return nil, err
		}
		summaries = append(summaries, map[string]any{
			"id":      msg.ID,
			"from":    meta.header("From"),
			"subject": meta.header("Subject"),
			"date":    meta.header("Date"),
			"snippet": meta.Snippet,
		})
	}

	count := list.ResultSizeEstimate
	if count == 0 {
		count = len(summaries)
	}
	return map[string]any{"messages": summaries, "count": count}, nil
}

func (h GmailProxyHandler) readEmail(ctx context.Context, req gmailProxyRequest) (map[string]any, *upstreamError) {
	id := stringParam(req.Params, "email_id")
	if id == "" {
		return nil, &upstreamError{Status: http.StatusBadRequest, Message: "email_id is required"}
	}
	msgURL := fmt.Sprintf("%s/gmail/v1/users/me/messages/%s?format=full", h.BaseURL, url.PathEscape(id))
	var msg gmailMessage
	if err := h.call(ctx, http.MethodGet, msgURL, req.AccessToken, nil, &msg); err != nil {
		return nil, err
	}

	body := msg.plainTextBody()
	if body == "" {
		body = msg.Snippet
	}
	return map[string]any{
		"id":      msg.ID,
		"from":    msg.header("From"),
		"to":      msg.header("To"),
		"subject": msg.header("Subject"),
		"date":    msg.header("Date"),
		"body":    body,
	}, nil
}

func (h GmailProxyHandler) sendEmail(ctx context.Context, req gmailProxyRequest) (map[string]any, *upstreamError) {
	to := stringParam(req.Params, "to")
	subject := stringParam(req.Params, "subject")
	body := stringParam(req.Params, "body")
	if to == "" {
		return nil, &upstreamError{Status: http.StatusBadRequest, Message: "to is required"}
	}

	raw := encodeRawMessage(to, subject, body)
	var sent struct {
		ID string `json:"id"`
	}
	sendURL := h.BaseURL + "/gmail/v1/users/me/messages/send"
	if err := h.call(ctx, http.MethodPost, sendURL, req.AccessToken, map[string]any{"raw": raw}, &sent); err != nil {
		return nil, err
	}
	return map[string]any{
		"success":   true,
		"messageId": sent.ID,
		"message":   fmt.Sprintf("Email sent to %s", to),
	}, nil
}

func (h GmailProxyHandler) deleteEmail(ctx context.Context, req gmailProxyRequest) (map[string]any, *upstreamError) {
	id := stringParam(req.Params, "email_id")
	if id == "" {
		return nil, &upstreamError{Status: http.StatusBadRequest, Message: "email_id is required"}
	}
	trashURL := fmt.Sprintf("%s/gmail/v1/users/me/messages/%s/trash", h.BaseURL, url.PathEscape(id))
	if err := h.call(ctx, http.MethodPost, trashURL, req.AccessToken, nil, &struct{}{}); err != nil {
		return nil, err
	}
	return map[string]any{
		"success": true,
		"message": fmt.Sprintf("Email %s moved to trash", id),
	}, nil
}

func (h GmailProxyHandler) createDraft(ctx context.Context, req gmailProxyRequest) (map[string]any, *upstreamError) {
	to := stringParam(req.Params, "to")
	subject := stringParam(req.Params, "subject")
	if subject == "" {
		subject = "(No Subject)"
	}
	body := stringParam(req.Params, "body")

	raw := encodeRawMessage(to, subject, body)
	var draft struct {
		ID string `json:"id"`
	}
	draftURL := h.BaseURL + "/gmail/v1/users/me/drafts"
	payload := map[string]any{"message": map[string]any{"raw": raw}}
	if err := h.call(ctx, http.MethodPost, draftURL, req.AccessToken, payload, &draft); err != nil {
		return nil, err
	}
	return map[string]any{
		"success": true,
		"draftId": draft.ID,
		"message": "Draft created successfully",
	}, nil
}

// call performs one Gmail API request and decodes the response into out.
// Gmail reports failures in a {"error":{"code","message"}} body; those map
// to upstreamError with the API's own status.
func (h GmailProxyHandler) call(ctx context.Context, method, rawURL, accessToken string, payload any, out any) *upstreamError {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return &upstreamError{Status: http.StatusInternalServerError, Message: "Gmail API error"}
		}
		body = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return &upstreamError{Status: http.StatusInternalServerError, Message: "Gmail API error"}
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client().Do(req)
	if err != nil {
		h.logger().Error("gmail api request failed", "error", err)
		return &upstreamError{Status: http.StatusInternalServerError, Message: "Gmail API error"}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return &upstreamError{Status: http.StatusInternalServerError, Message: "Gmail API error"}
	}

	var envelope struct {
		Error *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error != nil {
		status := envelope.Error.Code
		if status == 0 {
			status = resp.StatusCode
		}
		return &upstreamError{Status: status, Message: envelope.Error.Message}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &upstreamError{Status: resp.StatusCode, Message: fmt.Sprintf("Gmail API returned HTTP %d", resp.StatusCode)}
	}
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return &upstreamError{Status: http.StatusInternalServerError, Message: "Gmail API error"}
		}
	}
	return nil
}

func (h GmailProxyHandler) client() *http.Client {
	if h.HTTPClient != nil {
		return h.HTTPClient
	}
	return http.DefaultClient
}

func (h GmailProxyHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

type gmailMessage struct {
	ID      string `json:"id"`
	Snippet string `json:"snippet"`
	Payload struct {
		Headers []struct {
			Name  string `json:"name"`
			Value string `json:"value"`
		} `json:"headers"`
		Body struct {
			Data string `json:"data"`
		} `json:"body"`
		Parts []struct {
			MimeType string `json:"mimeType"`
			Body     struct {
				Data string `json:"data"`
			} `json:"body"`
		} `json:"parts"`
	} `json:"payload"`
}

func (m gmailMessage) header(name string) string {
	for _, h := range m.Payload.Headers {
		if h.Name == name {
			return h.Value
		}
	}
	return ""
}

// plainTextBody decodes the message body, preferring the top-level body and
// falling back to the first text/plain part of a multipart message.
func (m gmailMessage) plainTextBody() string {
	if m.Payload.Body.Data != "" {
		return decodeBase64URL(m.Payload.Body.Data)
	}
	for _, part := range m.Payload.Parts {
		if part.MimeType == "text/plain" && part.Body.Data != "" {
			return decodeBase64URL(part.Body.Data)
		}
	}
	return ""
}

func decodeBase64URL(data string) string {
	decoded, err := base64.URLEncoding.WithPadding(base64.NoPadding).DecodeString(strings.TrimRight(data, "="))
	if err != nil {
		return ""
	}
	return string(decoded)
}

// encodeRawMessage assembles a minimal RFC 2822 text message and encodes it
// the way the Gmail API expects: base64url without padding.
func encodeRawMessage(to, subject, body string) string {
	lines := make([]string, 0, 5)
	if to != "" {
		lines = append(lines, "To: "+to)
	}
	lines = append(lines,
		"Subject: "+subject,
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	)
	content := strings.Join(lines, "\r\n")
	return base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString([]byte(content))
}

func stringParam(params map[string]any, key string) string {
	v, _ := params[key].(string)
	return strings.TrimSpace(v)
}

func intParam(params map[string]any, key string, def int) int {
	switch v := params[key].(type) {
	case float64:
		if v > 0 {
			return int(v)
		}
	case int:
		if v > 0 {
			return v
		}
	}
	return def
}
