package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/travelos/crm/internal/domain"
)

func TestTokenManager_RoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 15*time.Minute)
	ends := time.Now().Add(48 * time.Hour).Truncate(time.Second)
	agencyID := "a1"
	issued := Claims{
		UserID:           "u1",
		Email:            "user@x.com",
		Role:             domain.RoleAgencyEmployee,
		UserIsActive:     true,
		AgencyID:         &agencyID,
		AgencyIsActive:   true,
		SubscriptionEnds: &ends,
	}

	token, expiresAt, err := tm.Issue(issued)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), expiresAt, 5*time.Second)

	claims, err := tm.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "user@x.com", claims.Email)
	assert.Equal(t, domain.RoleAgencyEmployee, claims.Role)
	assert.True(t, claims.UserIsActive)
	require.NotNil(t, claims.AgencyID)
	assert.Equal(t, "a1", *claims.AgencyID)
	require.NotNil(t, claims.SubscriptionEnds)
	assert.WithinDuration(t, ends, *claims.SubscriptionEnds, time.Second)
	assert.False(t, claims.Impersonated())
	assert.Equal(t, "u1", claims.Subject)
}

func TestTokenManager_ExpiredTokenRejected(t *testing.T) {
	tm := NewTokenManager("secret", 15*time.Minute)
	tm.ttl = -time.Minute

	token, _, err := tm.Issue(Claims{UserID: "u1"})
	require.NoError(t, err)

	_, err = tm.Verify(token)
	assert.Error(t, err)
}

func TestTokenManager_TamperedTokenRejected(t *testing.T) {
	tm := NewTokenManager("secret", 15*time.Minute)
	token, _, err := tm.Issue(Claims{UserID: "u1"})
	require.NoError(t, err)

	tampered := token[:len(token)-2] + "xx"
	_, err = tm.Verify(tampered)
	assert.Error(t, err)
}

func TestTokenManager_WrongSecretRejected(t *testing.T) {
	issuer := NewTokenManager("secret-a", 15*time.Minute)
	verifier := NewTokenManager("secret-b", 15*time.Minute)

	token, _, err := issuer.Issue(Claims{UserID: "u1"})
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	assert.Error(t, err)
}

func TestTokenManager_EmptySecretCannotSign(t *testing.T) {
	tm := NewTokenManager("", 15*time.Minute)
	_, _, err := tm.Issue(Claims{UserID: "u1"})
	assert.Error(t, err)
}

func TestTokenManager_GarbageInputRejected(t *testing.T) {
	tm := NewTokenManager("secret", 15*time.Minute)
	for _, input := range []string{"", "not-a-jwt", "a.b.c"} {
		_, err := tm.Verify(input)
		assert.Error(t, err, "input %q should not verify", input)
	}
}

func TestClaims_Impersonated(t *testing.T) {
	admin := "admin-1"
	empty := ""
	assert.True(t, (&Claims{OriginalUserID: &admin}).Impersonated())
	assert.False(t, (&Claims{OriginalUserID: &empty}).Impersonated())
	assert.False(t, (&Claims{}).Impersonated())
}
