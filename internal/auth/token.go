package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/travelos/crm/internal/domain"
)

// TokenManager handles issuing and validating JWT access tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenManager builds a new manager. The secret must already be
// validated by config loading; an empty secret makes every signing call fail.
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl}
}

// Claims describes the JWT payload. Tenant status fields are embedded at
// issuance so the gatekeeper can enforce agency gates without a DB round trip.
// OriginalUserID is set only on impersonation tokens.
type Claims struct {
	UserID           string      `json:"user_id"`
	Email            string      `json:"email"`
	Role             domain.Role `json:"role"`
	UserIsActive     bool        `json:"user_active"`
	AgencyID         *string     `json:"agency_id,omitempty"`
	AgencyIsActive   bool        `json:"agency_active"`
	SubscriptionEnds *time.Time  `json:"subscription_ends,omitempty"`
	OriginalUserID   *string     `json:"original_user_id,omitempty"`
	jwt.RegisteredClaims
}

// Impersonated reports whether the token was minted by an impersonation.
func (c *Claims) Impersonated() bool {
	return c.OriginalUserID != nil && *c.OriginalUserID != ""
}

// Issue builds and signs an access token for the given claims.
func (tm *TokenManager) Issue(claims Claims) (string, time.Time, error) {
	if len(tm.secret) == 0 {
		return "", time.Time{}, errors.New("signing secret not configured")
	}
	now := time.Now()
	expiresAt := now.Add(tm.ttl)
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   claims.UserID,
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		IssuedAt:  jwt.NewNumericDate(now),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// Verify validates the signature and expiry and returns the decoded claims.
// Every invalidity (malformed, expired, bad signature) surfaces as an error;
// callers treat any error as "unauthenticated".
func (tm *TokenManager) Verify(tokenStr string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// TTL returns the configured access token lifetime.
func (tm *TokenManager) TTL() time.Duration {
	return tm.ttl
}
