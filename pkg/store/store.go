// Package store is the durable key/value persistence surface. Every category
// of persisted state lives under a fixed constant key as one versionless
// JSON document.
package store

import (
	"context"
	"encoding/json"
)

// Fixed document keys, one per persisted category.
const (
	KeyPushToTalk      = "pushToTalkUI"
	KeyLogsExpanded    = "logsExpanded"
	KeyAudioPlayback   = "audioPlaybackEnabled"
	KeyGmailCredential = "gmail_auth"
	KeyCustomAgents    = "voice-agent-builder-agents"
)

// Store is a durable key/value document store. Implementations must tolerate
// concurrent readers; the orchestrator is the only writer.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// GetJSON loads and decodes the document at key into v. A malformed
// persisted document is discarded and reported as absent rather than
// failing: corrupt state must never break startup.
func GetJSON(ctx context.Context, s Store, key string, v any) (bool, error) {
	raw, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		_ = s.Delete(ctx, key)
		return false, nil
	}
	return true, nil
}

// PutJSON encodes v and stores it at key.
func PutJSON(ctx context.Context, s Store, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Put(ctx, key, raw)
}

// GetBool reads a persisted boolean flag, returning fallback when the flag
// is absent or unreadable.
func GetBool(ctx context.Context, s Store, key string, fallback bool) bool {
	var v bool
	ok, err := GetJSON(ctx, s, key, &v)
	if err != nil || !ok {
		return fallback
	}
	return v
}

// PutBool stores a boolean flag, ignoring storage failures: flags are
// conveniences, not session state.
func PutBool(ctx context.Context, s Store, key string, v bool) {
	_ = PutJSON(ctx, s, key, v)
}
