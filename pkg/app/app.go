// Package app assembles a runnable voice session from gateway
// configuration: the SQLite document store, persisted Gmail credentials,
// the tool dispatcher, the realtime websocket transport, and the session
// orchestrator on top.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/parley-ai/parley/pkg/core/types"
	"github.com/parley-ai/parley/pkg/credentials"
	"github.com/parley-ai/parley/pkg/gateway/config"
	"github.com/parley-ai/parley/pkg/session"
	"github.com/parley-ai/parley/pkg/store"
	"github.com/parley-ai/parley/pkg/tools/dispatch"
	"github.com/parley-ai/parley/pkg/tools/gmail"
	"github.com/parley-ai/parley/pkg/transport/realtime"
)

// App is a fully wired voice session client. Close releases the store;
// callers disconnect the orchestrator themselves before closing.
type App struct {
	Orchestrator *session.Orchestrator
	Credentials  *credentials.Persistent
	Dispatcher   *dispatch.Dispatcher

	kv *store.SQLite
}

// Build wires an orchestrator for scenario against the gateway at
// cfg.GatewayURL. Nothing is dialed here; the transport connects on the
// orchestrator's Connect.
func Build(ctx context.Context, cfg config.Config, scenario types.Scenario, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	kv, err := store.OpenSQLite(cfg.StorePath)
	if err != nil {
		return nil, fmt.Errorf("open store %q: %w", cfg.StorePath, err)
	}

	creds := credentials.NewPersistent(kv, logger)
	gmailClient := gmail.NewProxyClient(cfg.GatewayURL+"/api/gmail/proxy", logger)
	dispatcher := dispatch.NewDispatcher(logger, gmail.NewHandler(gmailClient, creds, logger))

	orch := session.New(ctx, scenario, session.Dependencies{
		Transport: realtime.NewClient(cfg.RealtimeURL, logger),
		Keys: &mintKeys{
			endpoint: cfg.GatewayURL + "/api/session",
			client:   http.DefaultClient,
		},
		Executor: dispatcher,
		Store:    kv,
		Logger:   logger,
	})

	return &App{
		Orchestrator: orch,
		Credentials:  creds,
		Dispatcher:   dispatcher,
		kv:           kv,
	}, nil
}

// Close releases the underlying store.
func (a *App) Close() error {
	return a.kv.Close()
}

// mintKeys fetches ephemeral session credentials from the gateway's
// session endpoint.
type mintKeys struct {
	endpoint string
	client   *http.Client
}

func (m *mintKeys) EphemeralKey(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("build session request: %w", err)
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("mint session credential: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("mint session credential: HTTP %d", resp.StatusCode)
	}

	var minted struct {
		ClientSecret struct {
			Value string `json:"value"`
		} `json:"client_secret"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&minted); err != nil {
		return "", fmt.Errorf("decode session credential: %w", err)
	}
	if minted.ClientSecret.Value == "" {
		return "", fmt.Errorf("session endpoint returned no client secret")
	}
	return minted.ClientSecret.Value, nil
}

var _ session.KeySource = (*mintKeys)(nil)
