package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUserLocked(t *testing.T) {
	now := time.Now()
	future := now.Add(10 * time.Minute)
	past := now.Add(-10 * time.Minute)

	assert.False(t, (&User{}).Locked(now))
	assert.True(t, (&User{LockUntil: &future}).Locked(now))
	assert.False(t, (&User{LockUntil: &past}).Locked(now))
}

func TestSessionExpired(t *testing.T) {
	now := time.Now()
	session := &Session{ExpiresAt: now.Add(time.Hour)}
	assert.False(t, session.Expired(now))
	assert.True(t, session.Expired(now.Add(2*time.Hour)))
}

func TestAgencySubscriptionLapsed(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	assert.False(t, (&Agency{}).SubscriptionLapsed(now), "no end date never lapses")
	assert.True(t, (&Agency{SubscriptionEnds: &past}).SubscriptionLapsed(now))
	assert.False(t, (&Agency{SubscriptionEnds: &future}).SubscriptionLapsed(now))
}
