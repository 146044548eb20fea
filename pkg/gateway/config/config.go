package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Addr string

	// SigningSecret signs the ephemeral session tokens minted by
	// /api/session. Required.
	SigningSecret   string
	SessionTokenTTL time.Duration

	// Realtime speech service the transport dials with the minted token.
	RealtimeURL string

	// GatewayURL is the externally reachable base URL of this gateway. The
	// client-side assembly uses it to mint session credentials and reach the
	// Gmail proxy endpoint.
	GatewayURL string

	// Google OAuth client used by the Gmail auth endpoints.
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURI  string
	GoogleAuthURL      string
	GoogleTokenURL     string

	// Gmail REST API base the proxy endpoint calls.
	GmailAPIBaseURL string

	// StorePath is the SQLite document store location.
	StorePath string

	MaxBodyBytes int64

	// Per-client rate limiting on the /api routes. Zero disables a knob.
	LimitRPS           float64
	LimitBurst         int
	LimitMaxConcurrent int

	// CORS
	CORSAllowedOrigins map[string]struct{} // empty => disabled

	// Operational defaults
	ReadHeaderTimeout   time.Duration
	ReadTimeout         time.Duration
	HandlerTimeout      time.Duration
	ShutdownGracePeriod time.Duration

	// Upstream HTTP client defaults
	UpstreamConnectTimeout        time.Duration
	UpstreamResponseHeaderTimeout time.Duration
}

func LoadFromEnv() (Config, error) {
	cfg := Config{
		Addr:                          envOr("PARLEY_ADDR", ":8080"),
		SigningSecret:                 strings.TrimSpace(os.Getenv("PARLEY_SIGNING_SECRET")),
		SessionTokenTTL:               envDurationOr("PARLEY_SESSION_TOKEN_TTL", time.Minute),
		RealtimeURL:                   envOr("PARLEY_REALTIME_URL", "wss://api.openai.com/v1/realtime"),
		GatewayURL:                    strings.TrimRight(envOr("PARLEY_GATEWAY_URL", "http://localhost:8080"), "/"),
		GoogleClientID:                strings.TrimSpace(os.Getenv("PARLEY_GOOGLE_CLIENT_ID")),
		GoogleClientSecret:            strings.TrimSpace(os.Getenv("PARLEY_GOOGLE_CLIENT_SECRET")),
		GoogleRedirectURI:             strings.TrimSpace(os.Getenv("PARLEY_GOOGLE_REDIRECT_URI")),
		GoogleAuthURL:                 envOr("PARLEY_GOOGLE_AUTH_URL", "https://accounts.google.com/o/oauth2/v2/auth"),
		GoogleTokenURL:                envOr("PARLEY_GOOGLE_TOKEN_URL", "https://oauth2.googleapis.com/token"),
		GmailAPIBaseURL:               envOr("PARLEY_GMAIL_API_BASE_URL", "https://gmail.googleapis.com"),
		StorePath:                     envOr("PARLEY_STORE_PATH", "parley.db"),
		MaxBodyBytes:                  envInt64Or("PARLEY_MAX_BODY_BYTES", 1<<20), // 1 MiB
		LimitRPS:                      envFloatOr("PARLEY_LIMIT_RPS", 10),
		LimitBurst:                    int(envInt64Or("PARLEY_LIMIT_BURST", 20)),
		LimitMaxConcurrent:            int(envInt64Or("PARLEY_LIMIT_MAX_CONCURRENT", 32)),
		CORSAllowedOrigins:            make(map[string]struct{}),
		ReadHeaderTimeout:             envDurationOr("PARLEY_READ_HEADER_TIMEOUT", 10*time.Second),
		ReadTimeout:                   envDurationOr("PARLEY_READ_TIMEOUT", 30*time.Second),
		HandlerTimeout:                envDurationOr("PARLEY_TOTAL_REQUEST_TIMEOUT", time.Minute),
		ShutdownGracePeriod:           envDurationOr("PARLEY_SHUTDOWN_GRACE_PERIOD", 30*time.Second),
		UpstreamConnectTimeout:        envDurationOr("PARLEY_CONNECT_TIMEOUT", 5*time.Second),
		UpstreamResponseHeaderTimeout: envDurationOr("PARLEY_RESPONSE_HEADER_TIMEOUT", 30*time.Second),
	}

	for _, origin := range splitCSV(os.Getenv("PARLEY_CORS_ORIGINS")) {
		cfg.CORSAllowedOrigins[origin] = struct{}{}
	}

	if cfg.SigningSecret == "" {
		return Config{}, fmt.Errorf("PARLEY_SIGNING_SECRET must be set")
	}
	if cfg.SessionTokenTTL <= 0 {
		return Config{}, fmt.Errorf("PARLEY_SESSION_TOKEN_TTL must be > 0")
	}
	if strings.TrimSpace(cfg.RealtimeURL) == "" {
		return Config{}, fmt.Errorf("PARLEY_REALTIME_URL must not be empty")
	}
	if strings.TrimSpace(cfg.GatewayURL) == "" {
		return Config{}, fmt.Errorf("PARLEY_GATEWAY_URL must not be empty")
	}
	if strings.TrimSpace(cfg.GmailAPIBaseURL) == "" {
		return Config{}, fmt.Errorf("PARLEY_GMAIL_API_BASE_URL must not be empty")
	}
	if strings.TrimSpace(cfg.StorePath) == "" {
		return Config{}, fmt.Errorf("PARLEY_STORE_PATH must not be empty")
	}
	if cfg.MaxBodyBytes <= 0 {
		return Config{}, fmt.Errorf("PARLEY_MAX_BODY_BYTES must be > 0")
	}
	if cfg.LimitRPS < 0 {
		return Config{}, fmt.Errorf("PARLEY_LIMIT_RPS must be >= 0")
	}
	if cfg.LimitBurst < 0 {
		return Config{}, fmt.Errorf("PARLEY_LIMIT_BURST must be >= 0")
	}
	if cfg.LimitMaxConcurrent < 0 {
		return Config{}, fmt.Errorf("PARLEY_LIMIT_MAX_CONCURRENT must be >= 0")
	}
	if cfg.ReadHeaderTimeout <= 0 {
		return Config{}, fmt.Errorf("PARLEY_READ_HEADER_TIMEOUT must be > 0")
	}
	if cfg.ReadTimeout <= 0 {
		return Config{}, fmt.Errorf("PARLEY_READ_TIMEOUT must be > 0")
	}
	if cfg.HandlerTimeout <= 0 {
		return Config{}, fmt.Errorf("PARLEY_TOTAL_REQUEST_TIMEOUT must be > 0")
	}
	if cfg.ShutdownGracePeriod <= 0 {
		return Config{}, fmt.Errorf("PARLEY_SHUTDOWN_GRACE_PERIOD must be > 0")
	}
	if cfg.UpstreamConnectTimeout <= 0 {
		return Config{}, fmt.Errorf("PARLEY_CONNECT_TIMEOUT must be > 0")
	}
	if cfg.UpstreamResponseHeaderTimeout <= 0 {
		return Config{}, fmt.Errorf("PARLEY_RESPONSE_HEADER_TIMEOUT must be > 0")
	}

	// Gmail OAuth is optional as a feature, but half a client is a
	// misconfiguration.
	gmailSet := cfg.GoogleClientID != "" || cfg.GoogleClientSecret != "" || cfg.GoogleRedirectURI != ""
	gmailComplete := cfg.GoogleClientID != "" && cfg.GoogleClientSecret != "" && cfg.GoogleRedirectURI != ""
	if gmailSet && !gmailComplete {
		return Config{}, fmt.Errorf("PARLEY_GOOGLE_CLIENT_ID, PARLEY_GOOGLE_CLIENT_SECRET and PARLEY_GOOGLE_REDIRECT_URI must be set together")
	}

	return cfg, nil
}

// GmailEnabled reports whether the Google OAuth client is configured.
func (c Config) GmailEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != "" && c.GoogleRedirectURI != ""
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envInt64Or(key string, def int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func envFloatOr(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return f
}

func envDurationOr(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}

func splitCSV(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
