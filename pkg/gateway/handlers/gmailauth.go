package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/parley-ai/parley/pkg/gateway/config"
)

var gmailScopes = []string{
	"https://www.googleapis.com/auth/gmail.readonly",
	"https://www.googleapis.com/auth/gmail.send",
	"https://www.googleapis.com/auth/gmail.modify",
}

const defaultUserinfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// GmailAuthHandler serves the Gmail connection flow: GET builds the consent
// URL, POST exchanges the returned authorization code for tokens. The
// browser redirect itself happens on the client; only token handling lives
// here so credentials never transit the frontend config.
type GmailAuthHandler struct {
	Config     config.Config
	HTTPClient *http.Client
	Logger     *slog.Logger

	// UserinfoURL is overridable for tests; empty means the Google default.
	UserinfoURL string
}

func (h GmailAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.Config.GmailEnabled() {
		writeError(w, http.StatusInternalServerError, "Google OAuth not configured")
		return
	}
	switch r.Method {
	case http.MethodGet:
		h.serveAuthURL(w)
	case http.MethodPost:
		h.exchangeCode(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (h GmailAuthHandler) serveAuthURL(w http.ResponseWriter) {
	u, err := url.Parse(h.Config.GoogleAuthURL)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "invalid auth endpoint")
		return
	}
	q := u.Query()
	q.Set("client_id", h.Config.GoogleClientID)
	q.Set("redirect_uri", h.Config.GoogleRedirectURI)
	q.Set("response_type", "code")
	q.Set("scope", strings.Join(gmailScopes, " "))
	q.Set("access_type", "offline")
	q.Set("prompt", "consent")
	u.RawQuery = q.Encode()

	writeJSON(w, http.StatusOK, map[string]string{"authUrl": u.String()})
}

type tokenExchange struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	ExpiresIn        int64  `json:"expires_in"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (h GmailAuthHandler) exchangeCode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Code) == "" {
		writeError(w, http.StatusBadRequest, "authorization code is required")
		return
	}

	form := url.Values{
		"client_id":     {h.Config.GoogleClientID},
		"client_secret": {h.Config.GoogleClientSecret},
		"code":          {req.Code},
		"grant_type":    {"authorization_code"},
		"redirect_uri":  {h.Config.GoogleRedirectURI},
	}
	resp, err := h.client().PostForm(h.Config.GoogleTokenURL, form)
	if err != nil {
		h.logger().Error("token exchange failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to exchange authorization code")
		return
	}
	defer resp.Body.Close()

	var tokens tokenExchange
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&tokens); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to exchange authorization code")
		return
	}
	if tokens.Error != "" {
		msg := tokens.ErrorDescription
		if msg == "" {
			msg = tokens.Error
		}
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"expires_in":    tokens.ExpiresIn,
		"email":         h.fetchEmail(tokens.AccessToken),
	})
}

// fetchEmail resolves the connected account's address for display. Failures
// degrade to an empty string; the tokens are still returned.
func (h GmailAuthHandler) fetchEmail(accessToken string) string {
	endpoint := h.UserinfoURL
	if endpoint == "" {
		endpoint = defaultUserinfoURL
	}
	req, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	resp, err := h.client().Do(req)
	if err != nil {
		h.logger().Warn("userinfo fetch failed", "error", err)
		return ""
	}
	defer resp.Body.Close()

	var info struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&info); err != nil {
		return ""
	}
	return info.Email
}

func (h GmailAuthHandler) client() *http.Client {
	if h.HTTPClient != nil {
		return h.HTTPClient
	}
	return http.DefaultClient
}

func (h GmailAuthHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}
