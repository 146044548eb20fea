// Package credentials owns access to per-user connected-account credentials.
// Tool executors receive the narrow read capability, never raw persisted
// records, so expiry is enforced in exactly one place.
package credentials

import (
	"context"
	"log/slog"
	"time"

	"github.com/parley-ai/parley/pkg/core/types"
	"github.com/parley-ai/parley/pkg/store"
)

// Source is the read capability handed to tool executors. Load reports
// ok=false when no usable credential exists; it never returns an expired
// record.
type Source interface {
	Load(ctx context.Context) (types.CredentialRecord, bool)
}

// Store extends Source with the write side used by the auth flow.
type Store interface {
	Source
	Save(ctx context.Context, rec types.CredentialRecord) error
	Clear(ctx context.Context) error
}

// Persistent is a Store backed by one document in the key/value store.
type Persistent struct {
	kv     store.Store
	key    string
	logger *slog.Logger
	now    func() time.Time
}

func NewPersistent(kv store.Store, logger *slog.Logger) *Persistent {
	if logger == nil {
		logger = slog.Default()
	}
	return &Persistent{kv: kv, key: store.KeyGmailCredential, logger: logger, now: time.Now}
}

// Load reads the stored credential. Expired records are cleared on sight and
// reported as absent, so a stale token is never handed to an executor.
func (p *Persistent) Load(ctx context.Context) (types.CredentialRecord, bool) {
	var rec types.CredentialRecord
	ok, err := store.GetJSON(ctx, p.kv, p.key, &rec)
	if err != nil {
		p.logger.Warn("credential load failed", "error", err)
		return types.CredentialRecord{}, false
	}
	if !ok {
		return types.CredentialRecord{}, false
	}
	if rec.Expired(p.now()) {
		p.logger.Info("discarding expired credential", "account", rec.AccountEmail)
		_ = p.Clear(ctx)
		return types.CredentialRecord{}, false
	}
	return rec, true
}

func (p *Persistent) Save(ctx context.Context, rec types.CredentialRecord) error {
	return store.PutJSON(ctx, p.kv, p.key, rec)
}

func (p *Persistent) Clear(ctx context.Context) error {
	return p.kv.Delete(ctx, p.key)
}

// Static is a fixed-record Source for tests.
type Static struct {
	Record types.CredentialRecord
	OK     bool
}

func (s Static) Load(context.Context) (types.CredentialRecord, bool) {
	return s.Record, s.OK
}
