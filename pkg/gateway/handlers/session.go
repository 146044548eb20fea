package handlers

import (
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
)

// SessionHandler mints the short-lived credential a client uses to open a
// realtime transport session. The token is an HS256 JWT scoped to one
// session id; clients treat it as opaque.
type SessionHandler struct {
	SigningSecret []byte
	TTL           time.Duration

	// Now is overridable for tests; nil means time.Now.
	Now func() time.Time
}

type sessionResponse struct {
	SessionID    string       `json:"session_id"`
	ExpiresAt    int64        `json:"expires_at"`
	ClientSecret clientSecret `json:"client_secret"`
}

type clientSecret struct {
	Value string `json:"value"`
}

func (h SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	issued := now()
	expires := issued.Add(h.TTL)
	sessionID := ulid.MustNew(ulid.Timestamp(issued), ulid.DefaultEntropy()).String()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   sessionID,
		IssuedAt:  jwt.NewNumericDate(issued),
		ExpiresAt: jwt.NewNumericDate(expires),
	})
	signed, err := token.SignedString(h.SigningSecret)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to mint session credential")
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{
		SessionID:    sessionID,
		ExpiresAt:    expires.Unix(),
		ClientSecret: clientSecret{Value: signed},
	})
}

// VerifySessionToken checks a minted credential and returns its session id.
// Used by transport-facing endpoints that accept the ephemeral token.
func VerifySessionToken(secret []byte, raw string) (string, error) {
	claims := jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}
