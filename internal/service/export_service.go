package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/brandloom/api/internal/archive"
	"github.com/brandloom/api/internal/client"
	"github.com/brandloom/api/internal/model"
	"github.com/brandloom/api/internal/store"
)

const (
	TaskTypeExport  = "export:process"
	TaskTypeCleanup = "export:cleanup"

	exportQueue = "exports"
)

// Enqueuer is the slice of *asynq.Client the service needs; tests substitute
// a synchronous fake.
type Enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// ExportService orchestrates export jobs: it validates eligibility, creates
// the job record, hands archive construction to the task queue, and drives
// the job state machine from the worker side.
type ExportService struct {
	content   store.ContentStore
	jobs      store.JobStore
	builder   *archive.Builder
	enqueuer  Enqueuer
	storage   client.StorageClient // optional archive mirror
	exportDir string
	logger    *zap.Logger
}

func NewExportService(
	content store.ContentStore,
	jobs store.JobStore,
	builder *archive.Builder,
	enqueuer Enqueuer,
	storage client.StorageClient,
	exportDir string,
	logger *zap.Logger,
) *ExportService {
	return &ExportService{
		content:   content,
		jobs:      jobs,
		builder:   builder,
		enqueuer:  enqueuer,
		storage:   storage,
		exportDir: exportDir,
		logger:    logger,
	}
}

// StartExport validates the workspace, creates a pending job with content
// counts frozen at call time, and queues archive construction. It returns as
// soon as the task is enqueued; asynchronous failures land on the job record,
// never here.
func (s *ExportService) StartExport(ctx context.Context, workspaceID string, opts model.ExportOptions) (*model.ExportStartResponse, error) {
	if _, err := s.content.GetWorkspaceByID(ctx, workspaceID); err != nil {
		return nil, err
	}

	captions, err := s.content.GetApprovedCaptionsByWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	generated, err := s.content.GetApprovedGeneratedAssets(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	if len(captions) == 0 && len(generated) == 0 {
		return nil, archive.ErrNoExportableContent
	}

	now := time.Now()
	job := &model.ExportJob{
		ID:                   uuid.New().String(),
		WorkspaceID:          workspaceID,
		Status:               model.JobStatusPending,
		ItemsTotal:           len(captions) + len(generated),
		ItemsCaptions:        len(captions),
		ItemsGeneratedAssets: len(generated),
		CreatedAt:            now,
	}
	if err := s.jobs.CreateExportJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to save export job: %w", err)
	}

	task, err := newExportTask(job.ID, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	// Export jobs are never retried automatically; a failed job is terminal
	// and requires a fresh StartExport.
	_, err = s.enqueuer.Enqueue(task,
		asynq.Queue(exportQueue),
		asynq.MaxRetry(0),
		asynq.Retention(24*time.Hour),
	)
	if err != nil {
		// The record exists but will never be picked up; don't leave it
		// claiming to be pending.
		s.markFailed(ctx, job.ID, fmt.Sprintf("failed to enqueue export task: %v", err))
		return nil, fmt.Errorf("failed to enqueue task: %w", err)
	}

	s.logger.Info("export job queued",
		zap.String("job_id", job.ID),
		zap.String("workspace_id", workspaceID),
		zap.Int("captions", job.ItemsCaptions),
		zap.Int("generated_assets", job.ItemsGeneratedAssets))

	return &model.ExportStartResponse{
		JobID:     job.ID,
		Status:    model.JobStatusPending,
		Message:   "Export started. Poll the job for completion.",
		CreatedAt: now,
	}, nil
}

// ProcessExportJob runs archive construction for a pending job and records
// the terminal outcome. It is invoked by the export worker and exposed over
// HTTP for retry tooling.
func (s *ExportService) ProcessExportJob(ctx context.Context, jobID string, opts model.ExportOptions) error {
	job, err := s.jobs.GetExportJobByID(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status != model.JobStatusPending {
		return fmt.Errorf("export job %s is %s, only pending jobs can be processed", jobID, job.Status)
	}

	if _, err := s.jobs.UpdateExportJob(ctx, jobID, store.ExportJobPatch{Status: model.JobStatusProcessing}); err != nil {
		return fmt.Errorf("failed to mark job processing: %w", err)
	}
	s.logger.Info("export job processing", zap.String("job_id", jobID))

	result, err := s.builder.CreateExport(ctx, job.WorkspaceID, opts)
	if err != nil {
		s.markFailed(ctx, jobID, errorMessage(err))
		s.logger.Error("export job failed", zap.String("job_id", jobID), zap.Error(err))
		return err
	}

	s.mirrorArchive(ctx, result)

	now := time.Now()
	_, err = s.jobs.UpdateExportJob(ctx, jobID, store.ExportJobPatch{
		Status:      model.JobStatusCompleted,
		OutputPath:  &result.ArchivePath,
		CompletedAt: &now,
		Warnings:    result.Warnings,
	})
	if err != nil {
		return fmt.Errorf("failed to mark job completed: %w", err)
	}

	s.logger.Info("export job completed",
		zap.String("job_id", jobID),
		zap.String("output_path", result.ArchivePath),
		zap.Int("warnings", len(result.Warnings)))
	return nil
}

// GetJob returns the persisted job record for polling.
func (s *ExportService) GetJob(ctx context.Context, jobID string) (*model.ExportJob, error) {
	return s.jobs.GetExportJobByID(ctx, jobID)
}

// markFailed records a terminal failure; errors here are logged rather than
// propagated since the job outcome is already decided.
func (s *ExportService) markFailed(ctx context.Context, jobID, message string) {
	now := time.Now()
	_, err := s.jobs.UpdateExportJob(ctx, jobID, store.ExportJobPatch{
		Status:       model.JobStatusFailed,
		ErrorMessage: &message,
		CompletedAt:  &now,
	})
	if err != nil {
		s.logger.Error("failed to record job failure",
			zap.String("job_id", jobID), zap.Error(err))
	}
}

// mirrorArchive copies a finished archive to object storage when configured.
// Best-effort: a mirror failure never fails the job.
func (s *ExportService) mirrorArchive(ctx context.Context, result *model.ExportResult) {
	if s.storage == nil {
		return
	}
	f, err := os.Open(result.ArchivePath)
	if err != nil {
		s.logger.Warn("archive mirror skipped", zap.String("file", result.FileName), zap.Error(err))
		return
	}
	defer f.Close()

	url, err := s.storage.Upload(ctx, "exports/"+result.FileName, f, "application/zip")
	if err != nil {
		s.logger.Warn("archive mirror failed", zap.String("file", result.FileName), zap.Error(err))
		return
	}
	s.logger.Info("archive mirrored", zap.String("file", result.FileName), zap.String("url", url))
}

func errorMessage(err error) string {
	if msg := err.Error(); msg != "" {
		return msg
	}
	return "export failed"
}

func newExportTask(jobID string, opts model.ExportOptions) (*asynq.Task, error) {
	data, err := json.Marshal(model.ExportJobPayload{JobID: jobID, Options: opts})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeExport, data), nil
}

// NewCleanupTask builds the periodic retention sweep task registered with
// the asynq scheduler.
func NewCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskTypeCleanup, nil)
}
