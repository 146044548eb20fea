package types

import "time"

// CredentialRecord is a long-lived external-service credential (for example
// the Gmail token set), persisted client-side and treated as absent once
// expired.
type CredentialRecord struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	AccountEmail string    `json:"email,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Expired reports whether the record is unusable at the given time. A record
// with no access token is always expired.
func (c CredentialRecord) Expired(now time.Time) bool {
	if c.AccessToken == "" {
		return true
	}
	return !now.Before(c.ExpiresAt)
}
