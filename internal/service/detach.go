// Package service implements the application logic: checkout, deferred
// provisioning, session bootstrap, number relay and privileged admin flows.
package service

import (
	"context"

	"github.com/fieldcall/fieldcall-backend/internal/infra/observability"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// runDetached executes fn on a context detached from the request lifecycle.
// Side effects that must survive the HTTP response (CRM mirroring, number
// convergence writes) cannot be cancelled by a client disconnect. Failures
// are logged and counted, never surfaced to the caller.
func runDetached(parent context.Context, logger *zap.Logger, metrics *observability.Metrics, task string, fn func(ctx context.Context) error) {
	taskID := uuid.New().String()
	ctx := context.WithoutCancel(parent)

	go func() {
		if err := fn(ctx); err != nil {
			metrics.IncrDetachedTask(task, "error")
			logger.Warn("detached task failed",
				zap.String("task", task),
				zap.String("task_id", taskID),
				zap.Error(err),
			)
			return
		}
		metrics.IncrDetachedTask(task, "ok")
		logger.Debug("detached task completed",
			zap.String("task", task),
			zap.String("task_id", taskID),
		)
	}()
}
