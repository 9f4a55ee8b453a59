package domain

import "time"

// Session is a stored refresh-token record. Only the SHA-256 hash of the
// raw token is ever persisted; the raw value lives exclusively in the
// client's cookie. All sessions descended from one login share a FamilyID
// so that reuse of a consumed token can revoke the whole lineage.
type Session struct {
	ID          string
	UserID      string
	HashedToken string
	FamilyID    string
	ExpiresAt   time.Time
	Revoked     bool
	UserAgent   *string
	IPAddress   *string
	CreatedAt   time.Time
}

// Expired reports whether the session is past its expiry.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
