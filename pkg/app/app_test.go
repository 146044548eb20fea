package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/parley-ai/parley/pkg/agents/library"
	"github.com/parley-ai/parley/pkg/gateway/config"
	"github.com/parley-ai/parley/pkg/session"
)

func testBuildConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		GatewayURL:  "http://gateway.invalid",
		RealtimeURL: "wss://realtime.invalid/v1",
		StorePath:   filepath.Join(t.TempDir(), "parley.db"),
	}
}

func TestBuildWiresSession(t *testing.T) {
	t.Parallel()

	scenario := library.DemoScenarios()[0]
	a, err := Build(context.Background(), testBuildConfig(t), scenario, nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	defer a.Close()

	state := a.Orchestrator.State()
	if state.Status != session.StatusDisconnected {
		t.Fatalf("status = %s, want DISCONNECTED", state.Status)
	}
	if state.ActiveAgent != scenario.Agents[0].Name {
		t.Fatalf("active agent = %q, want %q", state.ActiveAgent, scenario.Agents[0].Name)
	}
	if a.Credentials == nil || a.Dispatcher == nil {
		t.Fatal("credential source and dispatcher must be wired")
	}
}

func TestBuildRestoresPersistedFlags(t *testing.T) {
	t.Parallel()

	cfg := testBuildConfig(t)
	scenario := library.DemoScenarios()[0]

	first, err := Build(context.Background(), cfg, scenario, nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	first.Orchestrator.SetPushToTalk(context.Background(), true)
	if err := first.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	second, err := Build(context.Background(), cfg, scenario, nil)
	if err != nil {
		t.Fatalf("Build() after reopen error = %v", err)
	}
	defer second.Close()
	if !second.Orchestrator.State().PushToTalk {
		t.Fatal("push-to-talk flag must survive a store reopen")
	}
}

func TestMintKeysReturnsClientSecret(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"session_id":"01J","expires_at":1,"client_secret":{"value":"ek-abc"}}`))
	}))
	defer srv.Close()

	m := &mintKeys{endpoint: srv.URL + "/api/session", client: srv.Client()}
	key, err := m.EphemeralKey(context.Background())
	if err != nil {
		t.Fatalf("EphemeralKey() error = %v", err)
	}
	if key != "ek-abc" {
		t.Fatalf("key = %q, want ek-abc", key)
	}
}

func TestMintKeysRejectsFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	m := &mintKeys{endpoint: srv.URL + "/api/session", client: srv.Client()}
	if _, err := m.EphemeralKey(context.Background()); err == nil {
		t.Fatal("expected error for HTTP 500")
	}

	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"client_secret":{"value":""}}`))
	}))
	defer empty.Close()

	m = &mintKeys{endpoint: empty.URL + "/api/session", client: empty.Client()}
	if _, err := m.EphemeralKey(context.Background()); err == nil {
		t.Fatal("expected error for empty client secret")
	}
}
