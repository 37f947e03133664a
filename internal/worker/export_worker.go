package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/brandloom/api/internal/model"
	"github.com/brandloom/api/internal/service"
)

// ExportWorker consumes export tasks from the queue. All state transitions
// happen inside the service; the worker only unwraps the task envelope.
type ExportWorker struct {
	service *service.ExportService
	logger  *zap.Logger
}

func NewExportWorker(svc *service.ExportService, logger *zap.Logger) *ExportWorker {
	return &ExportWorker{service: svc, logger: logger}
}

func (w *ExportWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload model.ExportJobPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal export task payload: %w", err)
	}

	w.logger.Info("picked up export task", zap.String("job_id", payload.JobID))

	// The error is already recorded on the job record; returning it archives
	// the task for operational visibility without triggering a retry
	// (export tasks are enqueued with MaxRetry 0).
	return w.service.ProcessExportJob(ctx, payload.JobID, payload.Options)
}

// CleanupWorker runs the scheduled retention sweep.
type CleanupWorker struct {
	service        *service.ExportService
	retentionHours int
	logger         *zap.Logger
}

func NewCleanupWorker(svc *service.ExportService, retentionHours int, logger *zap.Logger) *CleanupWorker {
	return &CleanupWorker{service: svc, retentionHours: retentionHours, logger: logger}
}

func (w *CleanupWorker) ProcessTask(ctx context.Context, _ *asynq.Task) error {
	deleted, err := w.service.CleanupOldExports(ctx, w.retentionHours)
	if err != nil {
		w.logger.Error("scheduled retention sweep failed", zap.Error(err))
		return err
	}
	w.logger.Info("scheduled retention sweep done", zap.Int("deleted", deleted))
	return nil
}
