package service

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/travelos/crm/internal/domain"
	"github.com/travelos/crm/internal/events"
	"github.com/travelos/crm/internal/repository"
)

// AuditService turns security events into append-only audit log entries.
type AuditService struct {
	dispatcher events.Dispatcher
	audits     repository.AuditRepository
	logger     *zap.Logger
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, audits repository.AuditRepository, logger *zap.Logger) *AuditService {
	return &AuditService{
		dispatcher: dispatcher,
		audits:     audits,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to every security event type.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventLoginSucceeded, a.record(domain.AuditLoginSucceeded))
	a.dispatcher.Subscribe(events.EventAccountLocked, a.record(domain.AuditAccountLocked))
	a.dispatcher.Subscribe(events.EventSessionCompromised, a.record(domain.AuditSessionCompromised))
	a.dispatcher.Subscribe(events.EventImpersonationStarted, a.record(domain.AuditImpersonationStart))
	a.dispatcher.Subscribe(events.EventImpersonationEnded, a.record(domain.AuditImpersonationEnd))
}

func (a *AuditService) record(action domain.AuditAction) events.EventHandler {
	return func(ctx context.Context, event events.Event) error {
		entry := &domain.AuditLog{
			ID:         uuid.NewString(),
			AgencyID:   event.AgencyID,
			UserID:     event.UserID,
			Action:     action,
			EntityType: "USER",
			EntityID:   event.UserID,
			Metadata:   payloadMetadata(event.Payload),
			IPAddress:  event.IPAddress,
			UserAgent:  event.UserAgent,
		}
		if imp, ok := event.Payload.(events.ImpersonationPayload); ok {
			entry.EntityID = imp.TargetUserID
		}
		if err := a.audits.Append(ctx, entry); err != nil {
			a.logger.Error("failed to append audit entry",
				zap.String("action", string(action)), zap.Error(err))
			return err
		}
		return nil
	}
}

// payloadMetadata flattens an event payload into the metadata blob.
func payloadMetadata(payload interface{}) map[string]any {
	if payload == nil {
		return nil
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	var metadata map[string]any
	if err := json.Unmarshal(encoded, &metadata); err != nil {
		return nil
	}
	return metadata
}
