package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/spec-kit/user-sync-service/internal/domain"
	"github.com/spec-kit/user-sync-service/internal/events"
	"github.com/spec-kit/user-sync-service/internal/repository"
	apperrors "github.com/spec-kit/user-sync-service/pkg/util/errorutil"
)

const pgUniqueViolation = "23505"

// SyncOutcome labels what a sync application did to the store.
type SyncOutcome string

const (
	OutcomeCreated SyncOutcome = "created"
	OutcomeUpdated SyncOutcome = "updated"
	OutcomeDeleted SyncOutcome = "deleted"
	OutcomeSkipped SyncOutcome = "skipped"
)

// SyncResult reports the applied mutation.
type SyncResult struct {
	Outcome    SyncOutcome
	ExternalID string
}

// SyncService owns the mutation path into the user store: it applies
// canonical lifecycle events with idempotent semantics and publishes a
// domain event after each successful mutation.
type SyncService struct {
	users      repository.UserRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewSyncService creates the service.
func NewSyncService(users repository.UserRepository, dispatcher events.Dispatcher, logger *zap.Logger) *SyncService {
	return &SyncService{
		users:      users,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Apply dispatches one canonical event against the store. Exactly one
// mutation (or none, for unhandled kinds) happens per invocation.
func (s *SyncService) Apply(ctx context.Context, event domain.UserEvent) (*SyncResult, error) {
	switch event.Kind {
	case domain.EventKindCreated:
		return s.applyWrite(ctx, event, OutcomeCreated)
	case domain.EventKindUpdated:
		return s.applyWrite(ctx, event, OutcomeUpdated)
	case domain.EventKindDeleted:
		return s.applyDelete(ctx, event)
	default:
		s.logger.Debug("skipping unhandled event kind")
		return &SyncResult{Outcome: OutcomeSkipped}, nil
	}
}

func (s *SyncService) applyWrite(ctx context.Context, event domain.UserEvent, outcome SyncOutcome) (*SyncResult, error) {
	user := &domain.User{
		ExternalID: event.ExternalID,
		Name:       event.Name,
		Email:      event.Email,
		Username:   event.Username,
		AvatarURL:  event.AvatarURL,
	}

	var err error
	if outcome == OutcomeCreated {
		err = s.users.Create(ctx, user)
	} else {
		// Upsert tolerates an update arriving before its create; the
		// provider gives no cross-event ordering guarantee.
		err = s.users.Upsert(ctx, user)
	}
	if err != nil {
		return nil, s.mapStoreError(err)
	}

	s.logger.Info("user synced",
		zap.String("external_id", event.ExternalID),
		zap.String("kind", string(event.Kind)))

	s.publish(ctx, events.Event{
		ID:         uuid.NewString(),
		Type:       events.EventUserSynced,
		ExternalID: event.ExternalID,
		Timestamp:  time.Now().UTC(),
		Payload: events.UserSyncedPayload{
			Kind:     event.Kind,
			Username: event.Username,
			Email:    event.Email,
		},
	})

	return &SyncResult{Outcome: outcome, ExternalID: event.ExternalID}, nil
}

func (s *SyncService) applyDelete(ctx context.Context, event domain.UserEvent) (*SyncResult, error) {
	existed, err := s.users.Delete(ctx, event.ExternalID)
	if err != nil {
		return nil, s.mapStoreError(err)
	}
	if !existed {
		// Redelivery or delete-before-create; nothing to do.
		s.logger.Debug("delete for absent user", zap.String("external_id", event.ExternalID))
	} else {
		s.logger.Info("user removed", zap.String("external_id", event.ExternalID))
	}

	s.publish(ctx, events.Event{
		ID:         uuid.NewString(),
		Type:       events.EventUserRemoved,
		ExternalID: event.ExternalID,
		Timestamp:  time.Now().UTC(),
		Payload:    events.UserRemovedPayload{Existed: existed},
	})

	return &SyncResult{Outcome: OutcomeDeleted, ExternalID: event.ExternalID}, nil
}

func (s *SyncService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, event)
}

// mapStoreError distinguishes data conflicts, which need investigation, from
// transient store failures, which the provider may retry by redelivering.
func (s *SyncService) mapStoreError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return apperrors.NewConflict("user violates a uniqueness constraint", map[string]any{
			"constraint": pgErr.ConstraintName,
		})
	}
	return apperrors.NewStoreUnavailable(err)
}
