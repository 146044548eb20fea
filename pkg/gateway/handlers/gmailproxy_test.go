package handlers

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func proxyRequest(t *testing.T, h GmailProxyHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/gmail/proxy", strings.NewReader(body)))
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body
}

func TestGmailProxyRequiresToken(t *testing.T) {
	t.Parallel()
	rr := proxyRequest(t, GmailProxyHandler{}, `{"action":"list_unread"}`)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}
	if got := decodeBody(t, rr)["error"]; got != "No access token provided" {
		t.Fatalf("error = %q", got)
	}
}

func TestGmailProxyUnknownAction(t *testing.T) {
	t.Parallel()
	rr := proxyRequest(t, GmailProxyHandler{}, `{"action":"forward_email","accessToken":"tok"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	if got := decodeBody(t, rr)["error"]; got != "Unknown action: forward_email" {
		t.Fatalf("error = %q", got)
	}
}

func TestGmailProxyListUnread(t *testing.T) {
	t.Parallel()
	gmail := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
			t.Errorf("Authorization = %q", got)
		}
		switch {
		case r.URL.Path == "/gmail/v1/users/me/messages":
			if q := r.URL.Query().Get("q"); q != "is:unread" {
				t.Errorf("q = %q, want is:unread", q)
			}
			if max := r.URL.Query().Get("maxResults"); max != "2" {
				t.Errorf("maxResults = %q, want 2", max)
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"messages":           []map[string]any{{"id": "m1"}, {"id": "m2"}},
				"resultSizeEstimate": 7,
			})
		case strings.HasPrefix(r.URL.Path, "/gmail/v1/users/me/messages/"):
			id := strings.TrimPrefix(r.URL.Path, "/gmail/v1/users/me/messages/")
			writeJSON(w, http.StatusOK, map[string]any{
				"id":      id,
				"snippet": "snippet of " + id,
				"payload": map[string]any{
					"headers": []map[string]string{
						{"name": "From", "value": id + "@example.com"},
						{"name": "Subject", "value": "Subject " + id},
						{"name": "Date", "value": "Mon, 1 Sep 2025 10:00:00 +0000"},
					},
				},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer gmail.Close()

	h := GmailProxyHandler{BaseURL: gmail.URL}
	rr := proxyRequest(t, h, `{"action":"list_unread","accessToken":"tok-1","params":{"limit":2}}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}

	body := decodeBody(t, rr)
	if count := body["count"]; count != float64(7) {
		t.Fatalf("count = %v, want 7", count)
	}
	messages, ok := body["messages"].([]any)
	if !ok || len(messages) != 2 {
		t.Fatalf("messages = %v", body["messages"])
	}
	first := messages[0].(map[string]any)
	if first["from"] != "m1@example.com" || first["subject"] != "Subject m1" || first["snippet"] != "snippet of m1" {
		t.Fatalf("first message = %v", first)
	}
}

func TestGmailProxyReadEmailDecodesBody(t *testing.T) {
	t.Parallel()
	encoded := base64.RawURLEncoding.EncodeToString([]byte("hello from the body"))
	gmail := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("format"); got != "full" {
			t.Errorf("format = %q, want full", got)
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"id":      "m9",
			"snippet": "fallback snippet",
			"payload": map[string]any{
				"headers": []map[string]string{
					{"name": "From", "value": "alice@example.com"},
					{"name": "To", "value": "bob@example.com"},
					{"name": "Subject", "value": "Hi"},
					{"name": "Date", "value": "Mon, 1 Sep 2025 10:00:00 +0000"},
				},
				"parts": []map[string]any{
					{"mimeType": "text/html", "body": map[string]any{"data": "ignored"}},
					{"mimeType": "text/plain", "body": map[string]any{"data": encoded}},
				},
			},
		})
	}))
	defer gmail.Close()

	h := GmailProxyHandler{BaseURL: gmail.URL}
	rr := proxyRequest(t, h, `{"action":"read_email","accessToken":"tok","params":{"email_id":"m9"}}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	if body["body"] != "hello from the body" {
		t.Fatalf("body = %q", body["body"])
	}
	if body["from"] != "alice@example.com" || body["to"] != "bob@example.com" {
		t.Fatalf("headers = %v", body)
	}
}

func TestGmailProxySendEmailAssemblesRawMessage(t *testing.T) {
	t.Parallel()
	var raw string
	gmail := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/gmail/v1/users/me/messages/send" {
			t.Errorf("path = %q", r.URL.Path)
		}
		payload, _ := io.ReadAll(r.Body)
		var req struct {
			Raw string `json:"raw"`
		}
		_ = json.Unmarshal(payload, &req)
		raw = req.Raw
		writeJSON(w, http.StatusOK, map[string]any{"id": "sent-1"})
	}))
	defer gmail.Close()

	h := GmailProxyHandler{BaseURL: gmail.URL}
	rr := proxyRequest(t, h, `{"action":"send_email","accessToken":"tok","params":{"to":"bob@example.com","subject":"Lunch","body":"Noon?"}}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}

	body := decodeBody(t, rr)
	if body["success"] != true || body["messageId"] != "sent-1" {
		t.Fatalf("response = %v", body)
	}
	if body["message"] != "Email sent to bob@example.com" {
		t.Fatalf("message = %q", body["message"])
	}

	decoded, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		t.Fatalf("raw is not unpadded base64url: %v", err)
	}
	want := "To: bob@example.com\r\nSubject: Lunch\r\nContent-Type: text/plain; charset=utf-8\r\n\r\nNoon?"
	if string(decoded) != want {
		t.Fatalf("raw message = %q, want %q", decoded, want)
	}
}

func TestGmailProxyCreateDraftDefaultsSubject(t *testing.T) {
	t.Parallel()
	var raw string
	gmail := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/gmail/v1/users/me/drafts" {
			t.Errorf("path = %q", r.URL.Path)
		}
		payload, _ := io.ReadAll(r.Body)
		var req struct {
			Message struct {
				Raw string `json:"raw"`
			} `json:"message"`
		}
		_ = json.Unmarshal(payload, &req)
		raw = req.Message.Raw
		writeJSON(w, http.StatusOK, map[string]any{"id": "draft-1"})
	}))
	defer gmail.Close()

	h := GmailProxyHandler{BaseURL: gmail.URL}
	rr := proxyRequest(t, h, `{"action":"create_draft","accessToken":"tok","params":{"body":"draft text"}}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}

	body := decodeBody(t, rr)
	if body["draftId"] != "draft-1" || body["message"] != "Draft created successfully" {
		t.Fatalf("response = %v", body)
	}

	decoded, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		t.Fatalf("raw decode: %v", err)
	}
	text := string(decoded)
	if !strings.Contains(text, "Subject: (No Subject)") {
		t.Fatalf("draft missing default subject: %q", text)
	}
	if strings.Contains(text, "To:") {
		t.Fatalf("draft without recipient should omit To header: %q", text)
	}
}

func TestGmailProxyDeleteEmail(t *testing.T) {
	t.Parallel()
	gmail := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/gmail/v1/users/me/messages/m5/trash" || r.Method != http.MethodPost {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": "m5"})
	}))
	defer gmail.Close()

	h := GmailProxyHandler{BaseURL: gmail.URL}
	rr := proxyRequest(t, h, `{"action":"delete_email","accessToken":"tok","params":{"email_id":"m5"}}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}
	if got := decodeBody(t, rr)["message"]; got != "Email m5 moved to trash" {
		t.Fatalf("message = %q", got)
	}
}

func TestGmailProxyPropagatesUpstreamError(t *testing.T) {
	t.Parallel()
	gmail := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{
			"error": map[string]any{"code": 401, "message": "Invalid Credentials"},
		})
	}))
	defer gmail.Close()

	h := GmailProxyHandler{BaseURL: gmail.URL}
	rr := proxyRequest(t, h, `{"action":"list_unread","accessToken":"expired"}`)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}
	if got := decodeBody(t, rr)["error"]; got != "Invalid Credentials" {
		t.Fatalf("error = %q", got)
	}
}
