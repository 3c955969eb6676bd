package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/user-sync-service/internal/config"
	"github.com/spec-kit/user-sync-service/internal/events"
	"github.com/spec-kit/user-sync-service/internal/persistence"
)

const invalidationTimeout = 2 * time.Second

// InvalidationService drops cached profile entries when a user record
// changes. Invalidation is best-effort: a miss or an unreachable cache never
// fails the webhook that triggered it.
type InvalidationService struct {
	dispatcher events.Dispatcher
	cache      *persistence.Redis
	logger     *zap.Logger
	keyPrefix  string
}

// NewInvalidationService creates the service.
func NewInvalidationService(dispatcher events.Dispatcher, cache *persistence.Redis, logger *zap.Logger, cfg config.RedisConfig) *InvalidationService {
	return &InvalidationService{
		dispatcher: dispatcher,
		cache:      cache,
		logger:     logger,
		keyPrefix:  cfg.ProfileKeyPrefix,
	}
}

// RegisterHandlers subscribes to sync events.
func (i *InvalidationService) RegisterHandlers() {
	if i.dispatcher == nil {
		return
	}
	i.dispatcher.Subscribe(events.EventUserSynced, i.handleUserChanged)
	i.dispatcher.Subscribe(events.EventUserRemoved, i.handleUserChanged)
}

func (i *InvalidationService) handleUserChanged(_ context.Context, event events.Event) error {
	if i.cache == nil {
		return nil
	}
	key := i.keyPrefix + event.ExternalID

	// Detached from the request so a slow cache cannot block the webhook
	// acknowledgment.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), invalidationTimeout)
		defer cancel()

		if err := i.cache.Invalidate(ctx, key); err != nil {
			i.logger.Debug("cache invalidation failed",
				zap.String("key", key),
				zap.Error(err))
			return
		}
		i.logger.Debug("cache invalidated", zap.String("key", key))
	}()
	return nil
}
