package domain

import "time"

// Role identifies the access tier of a CRM user.
type Role string

const (
	RoleSuperAdmin     Role = "SUPER_ADMIN"
	RoleAgencyAdmin    Role = "AGENCY_ADMIN"
	RoleAgencyEmployee Role = "AGENCY_EMPLOYEE"
)

// User is the identity record for anyone who can sign in.
// Super-admins carry no agency; everyone else belongs to exactly one.
type User struct {
	ID                  string
	Name                string
	Email               string
	PasswordHash        string
	Role                Role
	AgencyID            *string
	IsActive            bool
	FailedLoginAttempts int
	LockUntil           *time.Time
	LastLoginAt         *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
	DeletedAt           *time.Time
}

// Locked reports whether the account is inside an active lockout window.
func (u *User) Locked(now time.Time) bool {
	return u.LockUntil != nil && now.Before(*u.LockUntil)
}
