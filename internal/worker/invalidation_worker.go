package worker

import (
	"github.com/spec-kit/user-sync-service/internal/service"
)

// StartInvalidationWorker registers cache invalidation handlers.
func StartInvalidationWorker(invalidationService *service.InvalidationService) {
	if invalidationService == nil {
		return
	}
	invalidationService.RegisterHandlers()
}
