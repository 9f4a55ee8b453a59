package domain

import "time"

// SystemAgencyID marks audit entries for actions outside any tenant.
const SystemAgencyID = "SYSTEM"

// AuditAction tags a security-relevant action in the append-only log.
type AuditAction string

const (
	AuditLoginSucceeded     AuditAction = "LOGIN_SUCCEEDED"
	AuditAccountLocked      AuditAction = "ACCOUNT_LOCKED"
	AuditSessionCompromised AuditAction = "SESSION_COMPROMISED"
	AuditImpersonationStart AuditAction = "IMPERSONATION_START"
	AuditImpersonationEnd   AuditAction = "IMPERSONATION_END"
)

// AuditLog is an immutable record of a security-relevant action.
// AgencyID is "SYSTEM" for actions outside any tenant.
type AuditLog struct {
	ID         string
	AgencyID   string
	UserID     string
	Action     AuditAction
	EntityType string
	EntityID   string
	Metadata   map[string]any
	IPAddress  *string
	UserAgent  *string
	CreatedAt  time.Time
}
