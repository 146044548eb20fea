package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/parley-ai/parley/pkg/gateway/config"
)

func gmailTestConfig(tokenURL string) config.Config {
	return config.Config{
		GoogleClientID:     "client-123",
		GoogleClientSecret: "shh",
		GoogleRedirectURI:  "http://localhost:3000/api/gmail/callback",
		GoogleAuthURL:      "https://accounts.google.com/o/oauth2/v2/auth",
		GoogleTokenURL:     tokenURL,
	}
}

func TestGmailAuthURLIncludesOfflineConsent(t *testing.T) {
	t.Parallel()
	h := GmailAuthHandler{Config: gmailTestConfig("https://oauth2.googleapis.com/token")}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/gmail/auth", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	authURL := resp["authUrl"]
	for _, want := range []string{
		"client_id=client-123",
		"response_type=code",
		"access_type=offline",
		"prompt=consent",
		"gmail.readonly",
		"gmail.send",
		"gmail.modify",
	} {
		if !strings.Contains(authURL, want) {
			t.Errorf("authUrl %q missing %q", authURL, want)
		}
	}
	if strings.Contains(authURL, "shh") {
		t.Fatal("authUrl leaks the client secret")
	}
}

func TestGmailAuthExchangesCode(t *testing.T) {
	t.Parallel()
	var gotForm string
	google := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/token":
			body, _ := io.ReadAll(r.Body)
			gotForm = string(body)
			writeJSON(w, http.StatusOK, map[string]any{
				"access_token":  "at-1",
				"refresh_token": "rt-1",
				"expires_in":    3599,
			})
		case "/userinfo":
			writeJSON(w, http.StatusOK, map[string]any{"email": "user@example.com"})
		default:
			http.NotFound(w, r)
		}
	}))
	defer google.Close()

	h := GmailAuthHandler{
		Config:      gmailTestConfig(google.URL + "/token"),
		UserinfoURL: google.URL + "/userinfo",
	}

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/gmail/auth", strings.NewReader(`{"code":"auth-code-1"}`))
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rr.Code, rr.Body.String())
	}

	var resp map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["access_token"] != "at-1" || resp["refresh_token"] != "rt-1" {
		t.Fatalf("tokens = %v", resp)
	}
	if resp["email"] != "user@example.com" {
		t.Fatalf("email = %v, want user@example.com", resp["email"])
	}
	for _, want := range []string{"code=auth-code-1", "grant_type=authorization_code", "client_id=client-123"} {
		if !strings.Contains(gotForm, want) {
			t.Errorf("token form %q missing %q", gotForm, want)
		}
	}
}

func TestGmailAuthPropagatesExchangeError(t *testing.T) {
	t.Parallel()
	google := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":             "invalid_grant",
			"error_description": "Code was already redeemed.",
		})
	}))
	defer google.Close()

	h := GmailAuthHandler{Config: gmailTestConfig(google.URL)}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/gmail/auth", strings.NewReader(`{"code":"stale"}`)))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Code was already redeemed.") {
		t.Fatalf("body = %s, want error_description passed through", rr.Body.String())
	}
}

func TestGmailAuthRequiresCode(t *testing.T) {
	t.Parallel()
	h := GmailAuthHandler{Config: gmailTestConfig("https://oauth2.googleapis.com/token")}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/gmail/auth", strings.NewReader(`{}`)))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestGmailAuthUnconfigured(t *testing.T) {
	t.Parallel()
	h := GmailAuthHandler{Config: config.Config{}}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/gmail/auth", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Google OAuth not configured") {
		t.Fatalf("body = %s", rr.Body.String())
	}
}
