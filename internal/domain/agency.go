package domain

import "time"

// SubscriptionPlan enumerates the billing tiers an agency can be on.
type SubscriptionPlan string

const (
	PlanTrial      SubscriptionPlan = "TRIAL"
	PlanStandard   SubscriptionPlan = "STANDARD"
	PlanEnterprise SubscriptionPlan = "ENTERPRISE"
)

// Agency is the tenant: the unit of data isolation for the CRM.
type Agency struct {
	ID               string
	Name             string
	Email            string
	IsActive         bool
	Plan             SubscriptionPlan
	SubscriptionEnds *time.Time
	MaxEmployees     int
	MaxLeads         int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// SubscriptionLapsed reports whether the agency's subscription has an end
// date in the past. A nil end date means the subscription never lapses.
func (a *Agency) SubscriptionLapsed(now time.Time) bool {
	return a.SubscriptionEnds != nil && a.SubscriptionEnds.Before(now)
}
