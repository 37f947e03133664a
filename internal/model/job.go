package model

import "time"

// ExportJob tracks one asynchronous archive-creation request and its outcome.
// Terminal-field invariants: CompletedAt is set iff the job is completed or
// failed, OutputPath is set only on completed, ErrorMessage only on failed.
type ExportJob struct {
	ID                   string     `json:"id"`
	WorkspaceID          string     `json:"workspaceId"`
	Status               JobStatus  `json:"status"`
	ItemsTotal           int        `json:"itemsTotal"`
	ItemsCaptions        int        `json:"itemsCaptions"`
	ItemsGeneratedAssets int        `json:"itemsGeneratedAssets"`
	CreatedAt            time.Time  `json:"createdAt"`
	CompletedAt          *time.Time `json:"completedAt,omitempty"`
	OutputPath           *string    `json:"outputPath,omitempty"`
	ErrorMessage         *string    `json:"errorMessage,omitempty"`
	Warnings             []string   `json:"warnings,omitempty"`
}

// ExportJobPayload is the task envelope queued for the export worker.
type ExportJobPayload struct {
	JobID   string        `json:"jobId"`
	Options ExportOptions `json:"options"`
}

// ExportStartResponse is returned synchronously from start-export.
type ExportStartResponse struct {
	JobID     string    `json:"jobId"`
	Status    JobStatus `json:"status"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// CleanupRequest triggers an on-demand retention sweep.
type CleanupRequest struct {
	Hours int `json:"hours" validate:"omitempty,min=1,max=8760"`
}

// CleanupResponse reports how many aged archives were removed.
type CleanupResponse struct {
	Deleted int `json:"deleted"`
}
