package gmail

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
)

// ErrUnauthorized reports that the upstream rejected the access token.
var ErrUnauthorized = errors.New("gmail: access token rejected")

const (
	defaultTimeout     = 30 * time.Second
	breakerMaxFailures = 5
	breakerTimeout     = 30 * time.Second
)

// ProxyClient performs Gmail actions through the gateway's proxy endpoint.
// Calls route through a circuit breaker so a failing upstream fails fast
// instead of stalling every tool invocation in the session.
type ProxyClient struct {
	endpoint string
	http     *http.Client
	breaker  *gobreaker.CircuitBreaker[map[string]any]
}

func NewProxyClient(endpoint string, logger *slog.Logger) *ProxyClient {
	if logger == nil {
		logger = slog.Default()
	}
	cb := gobreaker.NewCircuitBreaker[map[string]any](gobreaker.Settings{
		Name:        "gmail-proxy",
		MaxRequests: 1,
		Timeout:     breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerMaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
		IsSuccessful: func(err error) bool {
			// A rejected token is a credential problem, not upstream
			// ill health. It must not open the circuit.
			return err == nil || errors.Is(err, ErrUnauthorized)
		},
	})
	return &ProxyClient{
		endpoint: endpoint,
		http:     &http.Client{Timeout: defaultTimeout},
		breaker:  cb,
	}
}

type proxyRequest struct {
	Action      string         `json:"action"`
	AccessToken string         `json:"accessToken"`
	Params      map[string]any `json:"params,omitempty"`
}

// Do performs one Gmail action. A 401 from upstream surfaces as
// ErrUnauthorized; any other non-2xx surfaces as a plain error carrying the
// upstream message. Error text never includes the access token.
func (c *ProxyClient) Do(ctx context.Context, action, accessToken string, params map[string]any) (map[string]any, error) {
	return c.breaker.Execute(func() (map[string]any, error) {
		return c.do(ctx, action, accessToken, params)
	})
}

func (c *ProxyClient) do(ctx context.Context, action, accessToken string, params map[string]any) (map[string]any, error) {
	body, err := json.Marshal(proxyRequest{Action: action, AccessToken: accessToken, Params: params})
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", action, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", action, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gmail %s: %w", action, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("gmail %s: read response: %w", action, err)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return nil, ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("gmail %s failed: %s", action, upstreamMessage(raw, resp.StatusCode))
	}

	var payload map[string]any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, fmt.Errorf("gmail %s: decode response: %w", action, err)
		}
	}
	if payload == nil {
		payload = map[string]any{}
	}
	return payload, nil
}

// upstreamMessage pulls the error text out of an upstream failure body,
// falling back to the HTTP status.
func upstreamMessage(raw []byte, status int) string {
	var envelope struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error != "" {
		return envelope.Error
	}
	return fmt.Sprintf("HTTP %d", status)
}
