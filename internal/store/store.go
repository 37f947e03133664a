package store

import (
	"context"
	"errors"
	"time"

	"github.com/brandloom/api/internal/model"
)

var (
	ErrWorkspaceNotFound = errors.New("workspace not found")
	ErrAssetNotFound     = errors.New("asset not found")
	ErrJobNotFound       = errors.New("export job not found")
)

// ContentStore reads the workspace content the pipeline exports. The records
// are owned by the wider platform; the pipeline only consumes them.
type ContentStore interface {
	GetWorkspaceByID(ctx context.Context, id string) (*model.Workspace, error)
	GetApprovedCaptionsByWorkspace(ctx context.Context, workspaceID string) ([]model.Caption, error)
	GetApprovedGeneratedAssets(ctx context.Context, workspaceID string) ([]model.GeneratedAsset, error)
	GetAssetByID(ctx context.Context, id string) (*model.Asset, error)
	// GetBrandKitByWorkspace returns (nil, nil) when the workspace has no kit.
	GetBrandKitByWorkspace(ctx context.Context, workspaceID string) (*model.BrandKit, error)
}

// ExportJobPatch is a partial update applied to a job record. Status is
// always set; pointer fields are written as-is when non-nil.
type ExportJobPatch struct {
	Status       model.JobStatus
	OutputPath   *string
	ErrorMessage *string
	CompletedAt  *time.Time
	Warnings     []string
}

// JobStore persists export job records. It is the single source of truth for
// job state; nothing caches status in process memory.
type JobStore interface {
	CreateExportJob(ctx context.Context, job *model.ExportJob) error
	UpdateExportJob(ctx context.Context, id string, patch ExportJobPatch) (*model.ExportJob, error)
	GetExportJobByID(ctx context.Context, id string) (*model.ExportJob, error)
}
