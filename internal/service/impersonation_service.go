package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/travelos/crm/internal/auth"
	"github.com/travelos/crm/internal/domain"
	"github.com/travelos/crm/internal/events"
	"github.com/travelos/crm/internal/repository"
	apperrors "github.com/travelos/crm/pkg/util"
)

// ImpersonationService lets a super-admin assume another user's identity
// through a secondary signed token, with an audit trail on both ends.
type ImpersonationService struct {
	users      repository.UserRepository
	agencies   repository.AgencyRepository
	tokens     *auth.TokenManager
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// ImpersonationResult is the minted impersonation token.
type ImpersonationResult struct {
	Token     string
	ExpiresAt time.Time
	Target    *domain.User
}

// NewImpersonationService builds the service.
func NewImpersonationService(users repository.UserRepository, agencies repository.AgencyRepository, tokens *auth.TokenManager, dispatcher events.Dispatcher, logger *zap.Logger) *ImpersonationService {
	return &ImpersonationService{
		users:      users,
		agencies:   agencies,
		tokens:     tokens,
		dispatcher: dispatcher,
		logger:     logger,
		now:        time.Now,
	}
}

// Start mints an impersonation token for the target. The actor must be a
// super-admin on a first-hand token (nesting is forbidden), and the target
// must exist, not be soft-deleted and not be a super-admin itself.
func (s *ImpersonationService) Start(ctx context.Context, actor *auth.Claims, targetUserID string, ip, userAgent *string) (*ImpersonationResult, error) {
	if actor.Role != domain.RoleSuperAdmin {
		return nil, apperrors.NewForbidden("super admin access required")
	}
	if actor.Impersonated() {
		return nil, apperrors.NewForbidden("nested impersonation is not allowed")
	}

	target, err := s.users.GetByID(ctx, targetUserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("target user", nil)
		}
		return nil, err
	}
	if target.Role == domain.RoleSuperAdmin {
		return nil, apperrors.NewForbidden("cannot impersonate another super admin")
	}

	claims := auth.Claims{
		UserID:         target.ID,
		Email:          target.Email,
		Role:           target.Role,
		UserIsActive:   target.IsActive,
		AgencyID:       target.AgencyID,
		AgencyIsActive: true,
		OriginalUserID: &actor.UserID,
	}
	agencyName := ""
	if target.AgencyID != nil {
		agency, err := s.agencies.GetByID(ctx, *target.AgencyID)
		if err != nil {
			return nil, err
		}
		claims.AgencyIsActive = agency.IsActive
		claims.SubscriptionEnds = agency.SubscriptionEnds
		agencyName = agency.Name
	}

	token, expiresAt, err := s.tokens.Issue(claims)
	if err != nil {
		return nil, err
	}

	s.logger.Info("impersonation started",
		zap.String("actor_id", actor.UserID),
		zap.String("target_id", target.ID))
	s.publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventImpersonationStarted,
		UserID:    actor.UserID,
		AgencyID:  agencyOrSystem(target.AgencyID),
		IPAddress: ip,
		UserAgent: userAgent,
		Timestamp: s.now(),
		Payload: events.ImpersonationPayload{
			TargetUserID: target.ID,
			TargetEmail:  target.Email,
			AgencyName:   agencyName,
		},
	})

	return &ImpersonationResult{Token: token, ExpiresAt: expiresAt, Target: target}, nil
}

// Exit validates the stashed original token and closes the audit trail.
// The impersonation token is optional on exit (it may already be expired);
// the original must verify or there is nothing to restore.
func (s *ImpersonationService) Exit(ctx context.Context, originalToken, impersonationToken string, ip, userAgent *string) (*auth.Claims, error) {
	if originalToken == "" {
		return nil, apperrors.NewDomainError("NO_ORIGINAL_SESSION", "no original session found", 400, nil)
	}
	original, err := s.tokens.Verify(originalToken)
	if err != nil {
		return nil, apperrors.NewUnauthorized("original session is no longer valid")
	}

	if impersonationToken != "" {
		if imp, err := s.tokens.Verify(impersonationToken); err == nil && imp.Impersonated() {
			s.publish(ctx, events.Event{
				ID:        uuid.NewString(),
				Type:      events.EventImpersonationEnded,
				UserID:    *imp.OriginalUserID,
				AgencyID:  agencyOrSystem(imp.AgencyID),
				IPAddress: ip,
				UserAgent: userAgent,
				Timestamp: s.now(),
				Payload:   events.ImpersonationPayload{TargetUserID: imp.UserID, TargetEmail: imp.Email},
			})
		}
	}

	return original, nil
}

func (s *ImpersonationService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, event)
}
