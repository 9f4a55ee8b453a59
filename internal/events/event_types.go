package events

import (
	"time"

	"github.com/travelos/crm/internal/domain"
)

// EventType enumerates supported security event identifiers.
type EventType string

const (
	EventLoginSucceeded       EventType = "login_succeeded"
	EventAccountLocked        EventType = "account_locked"
	EventSessionCompromised   EventType = "session_compromised"
	EventImpersonationStarted EventType = "impersonation_started"
	EventImpersonationEnded   EventType = "impersonation_ended"
)

// Event represents a security event emitted by the auth services.
// AgencyID is "SYSTEM" when the actor acts outside any tenant.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	UserID    string      `json:"user_id"`
	AgencyID  string      `json:"agency_id"`
	IPAddress *string     `json:"ip_address,omitempty"`
	UserAgent *string     `json:"user_agent,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// LoginSucceededPayload payload.
type LoginSucceededPayload struct {
	Email string      `json:"email"`
	Role  domain.Role `json:"role"`
}

// AccountLockedPayload payload.
type AccountLockedPayload struct {
	Email       string    `json:"email"`
	Attempts    int       `json:"attempts"`
	LockedUntil time.Time `json:"locked_until"`
}

// SessionCompromisedPayload payload.
type SessionCompromisedPayload struct {
	FamilyID string `json:"family_id"`
}

// ImpersonationPayload payload for start and end events.
type ImpersonationPayload struct {
	TargetUserID string `json:"target_user_id"`
	TargetEmail  string `json:"target_email,omitempty"`
	AgencyName   string `json:"agency_name,omitempty"`
}
