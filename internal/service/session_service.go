package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/travelos/crm/internal/domain"
	"github.com/travelos/crm/internal/events"
	"github.com/travelos/crm/internal/repository"
	apperrors "github.com/travelos/crm/pkg/util"
)

// refreshTokenBytes is the entropy of a raw refresh token.
const refreshTokenBytes = 40

// SessionService manages rotating refresh-token sessions. Raw tokens exist
// only in transit; storage sees SHA-256 hashes. Presenting an
// already-consumed token revokes the whole family.
type SessionService struct {
	sessions   repository.SessionRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	refreshTTL time.Duration
	now        func() time.Time
}

// RotationResult carries the successor token out of a rotation.
type RotationResult struct {
	RawToken string
	UserID   string
}

// NewSessionService builds the service.
func NewSessionService(sessions repository.SessionRepository, dispatcher events.Dispatcher, logger *zap.Logger, refreshTTL time.Duration) *SessionService {
	return &SessionService{
		sessions:   sessions,
		dispatcher: dispatcher,
		logger:     logger,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// Create opens a new session family for a fresh login and returns the raw
// refresh token. Only the hash is persisted.
func (s *SessionService) Create(ctx context.Context, userID string, userAgent, ip *string) (string, error) {
	raw, err := generateRefreshToken()
	if err != nil {
		return "", err
	}

	session := &domain.Session{
		ID:          uuid.NewString(),
		UserID:      userID,
		HashedToken: hashToken(raw),
		FamilyID:    uuid.NewString(),
		ExpiresAt:   s.now().Add(s.refreshTTL),
		Revoked:     false,
		UserAgent:   userAgent,
		IPAddress:   ip,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return "", err
	}
	return raw, nil
}

// Rotate exchanges a raw refresh token for a successor in the same family.
// An unknown hash is an invalid session; an expired row is an expired
// session; a revoked row is reuse, which burns the entire family.
func (s *SessionService) Rotate(ctx context.Context, rawToken string) (*RotationResult, error) {
	session, err := s.sessions.GetByTokenHash(ctx, hashToken(rawToken))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewInvalidSession("invalid session token")
		}
		return nil, err
	}

	if session.Expired(s.now()) {
		return nil, apperrors.NewInvalidSession("session expired")
	}

	if session.Revoked {
		return nil, s.compromised(ctx, session)
	}

	raw, err := generateRefreshToken()
	if err != nil {
		return nil, err
	}
	next := &domain.Session{
		ID:          uuid.NewString(),
		UserID:      session.UserID,
		HashedToken: hashToken(raw),
		FamilyID:    session.FamilyID,
		ExpiresAt:   s.now().Add(s.refreshTTL),
		Revoked:     false,
		UserAgent:   session.UserAgent,
		IPAddress:   session.IPAddress,
	}

	if err := s.sessions.RevokeAndReplace(ctx, session.ID, next); err != nil {
		if errors.Is(err, repository.ErrAlreadyRevoked) {
			// A concurrent rotation consumed the row between our read
			// and the conditional revoke. Same treatment as reuse.
			return nil, s.compromised(ctx, session)
		}
		return nil, err
	}

	return &RotationResult{RawToken: raw, UserID: session.UserID}, nil
}

// RevokeByRawToken revokes the single session matching the raw token. Used
// by logout; unknown tokens are a no-op.
func (s *SessionService) RevokeByRawToken(ctx context.Context, rawToken string) error {
	return s.sessions.RevokeByTokenHash(ctx, hashToken(rawToken))
}

// compromised kills the whole lineage and reports the theft.
func (s *SessionService) compromised(ctx context.Context, session *domain.Session) error {
	if err := s.sessions.RevokeFamily(ctx, session.FamilyID); err != nil {
		s.logger.Error("failed to revoke session family",
			zap.String("family_id", session.FamilyID), zap.Error(err))
	}
	s.logger.Warn("refresh token reuse detected, family revoked",
		zap.String("user_id", session.UserID),
		zap.String("family_id", session.FamilyID))
	s.publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventSessionCompromised,
		UserID:    session.UserID,
		AgencyID:  domain.SystemAgencyID,
		IPAddress: session.IPAddress,
		UserAgent: session.UserAgent,
		Timestamp: s.now(),
		Payload:   events.SessionCompromisedPayload{FamilyID: session.FamilyID},
	})
	return apperrors.NewSessionCompromised()
}

func (s *SessionService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func generateRefreshToken() (string, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
