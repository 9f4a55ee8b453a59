package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/travelos/crm/internal/auth"
	"github.com/travelos/crm/internal/config"
	"github.com/travelos/crm/internal/domain"
	"github.com/travelos/crm/internal/events"
	"github.com/travelos/crm/internal/ratelimit"
	"github.com/travelos/crm/internal/repository"
	apperrors "github.com/travelos/crm/pkg/util"
)

// AuthService coordinates the login, refresh and logout flows: rate
// limiting, credential verification, lockout tracking, token issuance and
// session creation.
type AuthService struct {
	users      repository.UserRepository
	agencies   repository.AgencyRepository
	sessions   *SessionService
	tokens     *auth.TokenManager
	limiter    ratelimit.CounterStore
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.AuthConfig
	now        func() time.Time
}

// AuthDependencies bundles collaborators for the auth service.
type AuthDependencies struct {
	UserRepo   repository.UserRepository
	AgencyRepo repository.AgencyRepository
	Sessions   *SessionService
	Tokens     *auth.TokenManager
	Limiter    ratelimit.CounterStore
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// LoginResult carries everything the handler needs to answer a successful
// login: the authenticated user plus both credentials.
type LoginResult struct {
	User            *domain.User
	AccessToken     string
	AccessExpiresAt time.Time
	RefreshToken    string
}

// RefreshResult carries the reissued credential pair.
type RefreshResult struct {
	AccessToken     string
	AccessExpiresAt time.Time
	RefreshToken    string
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	return &AuthService{
		users:      deps.UserRepo,
		agencies:   deps.AgencyRepo,
		sessions:   deps.Sessions,
		tokens:     deps.Tokens,
		limiter:    deps.Limiter,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		cfg:        cfg,
		now:        time.Now,
	}
}

// Login authenticates email/password from the given source address.
// Order matters: the rate limit fires before any credential work, lockout
// is checked before the password compare, and missing users burn a dummy
// hash so both failure paths cost one bcrypt comparison.
func (s *AuthService) Login(ctx context.Context, email, password string, ip, userAgent *string) (*LoginResult, error) {
	if err := s.checkRateLimit(ctx, ip); err != nil {
		return nil, err
	}

	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			auth.CompareDummy(password)
			return nil, apperrors.NewInvalidCredentials()
		}
		return nil, err
	}

	now := s.now()
	if user.Locked(now) {
		return nil, apperrors.NewAccountLocked()
	}
	if !user.IsActive {
		return nil, apperrors.NewAccountDisabled()
	}

	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, s.recordFailure(ctx, user, ip, userAgent)
	}

	if err := s.users.ResetLoginState(ctx, user.ID, now); err != nil {
		return nil, err
	}

	claims, err := s.buildClaims(ctx, user)
	if err != nil {
		return nil, err
	}
	accessToken, expiresAt, err := s.tokens.Issue(claims)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.sessions.Create(ctx, user.ID, userAgent, ip)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventLoginSucceeded,
		UserID:    user.ID,
		AgencyID:  agencyOrSystem(user.AgencyID),
		IPAddress: ip,
		UserAgent: userAgent,
		Timestamp: now,
		Payload:   events.LoginSucceededPayload{Email: user.Email, Role: user.Role},
	})

	return &LoginResult{
		User:            user,
		AccessToken:     accessToken,
		AccessExpiresAt: expiresAt,
		RefreshToken:    refreshToken,
	}, nil
}

// Refresh rotates the presented refresh token and reissues the access
// token with fresh tenant status claims.
func (s *AuthService) Refresh(ctx context.Context, rawRefreshToken string) (*RefreshResult, error) {
	rotation, err := s.sessions.Rotate(ctx, rawRefreshToken)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, rotation.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewInvalidSession("session owner no longer exists")
		}
		return nil, err
	}

	claims, err := s.buildClaims(ctx, user)
	if err != nil {
		return nil, err
	}
	accessToken, expiresAt, err := s.tokens.Issue(claims)
	if err != nil {
		return nil, err
	}

	return &RefreshResult{
		AccessToken:     accessToken,
		AccessExpiresAt: expiresAt,
		RefreshToken:    rotation.RawToken,
	}, nil
}

// Logout revokes the session behind the presented refresh token. Missing
// or unknown tokens are not an error; logout is idempotent.
func (s *AuthService) Logout(ctx context.Context, rawRefreshToken string) error {
	if rawRefreshToken == "" {
		return nil
	}
	return s.sessions.RevokeByRawToken(ctx, rawRefreshToken)
}

// RefreshTTL exposes the refresh token lifetime for cookie expiry.
func (s *AuthService) RefreshTTL() time.Duration {
	return s.cfg.RefreshTokenTTL()
}

func (s *AuthService) checkRateLimit(ctx context.Context, ip *string) error {
	key := "unknown"
	if ip != nil && *ip != "" {
		key = *ip
	}
	count, err := s.limiter.Increment(ctx, "login:"+key, s.cfg.LoginRateWindow())
	if err != nil {
		// A broken limiter must not take logins down with it.
		s.logger.Error("rate limiter unavailable", zap.Error(err))
		return nil
	}
	if count > int64(s.cfg.LoginRateLimit) {
		return apperrors.NewRateLimited()
	}
	return nil
}

// recordFailure bumps the per-account counter, locking the account when it
// reaches the threshold. The increment is atomic in SQL so concurrent
// failures still converge on a lock.
func (s *AuthService) recordFailure(ctx context.Context, user *domain.User, ip, userAgent *string) error {
	attempts, err := s.users.IncrementFailedLogins(ctx, user.ID)
	if err != nil {
		return err
	}
	if attempts < s.cfg.MaxFailedLogins {
		return apperrors.NewInvalidCredentials()
	}

	until := s.now().Add(s.cfg.LockoutWindow())
	if err := s.users.LockAccount(ctx, user.ID, until); err != nil {
		return err
	}
	s.publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventAccountLocked,
		UserID:    user.ID,
		AgencyID:  agencyOrSystem(user.AgencyID),
		IPAddress: ip,
		UserAgent: userAgent,
		Timestamp: s.now(),
		Payload:   events.AccountLockedPayload{Email: user.Email, Attempts: attempts, LockedUntil: until},
	})
	return apperrors.NewAccountLocked()
}

// buildClaims embeds tenant status into the token so the gatekeeper can run
// its gates without a database round trip.
func (s *AuthService) buildClaims(ctx context.Context, user *domain.User) (auth.Claims, error) {
	claims := auth.Claims{
		UserID:         user.ID,
		Email:          user.Email,
		Role:           user.Role,
		UserIsActive:   user.IsActive,
		AgencyID:       user.AgencyID,
		AgencyIsActive: true,
	}
	if user.AgencyID == nil {
		return claims, nil
	}

	agency, err := s.agencies.GetByID(ctx, *user.AgencyID)
	if err != nil {
		return auth.Claims{}, err
	}
	claims.AgencyIsActive = agency.IsActive
	claims.SubscriptionEnds = agency.SubscriptionEnds
	return claims, nil
}

func (s *AuthService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func agencyOrSystem(agencyID *string) string {
	if agencyID != nil && *agencyID != "" {
		return *agencyID
	}
	return domain.SystemAgencyID
}
