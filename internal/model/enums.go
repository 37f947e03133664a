package model

// Export job status
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether the status accepts no further transitions.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Approval status for captions and generated assets
type ApprovalStatus string

const (
	ApprovalStatusDraft    ApprovalStatus = "draft"
	ApprovalStatusPending  ApprovalStatus = "pending"
	ApprovalStatusApproved ApprovalStatus = "approved"
	ApprovalStatusRejected ApprovalStatus = "rejected"
)

// Export formats
type ExportFormat string

const (
	ExportFormatArchive        ExportFormat = "archive"
	ExportFormatStructuredData ExportFormat = "structured-data"
)

var ValidExportFormats = []ExportFormat{
	ExportFormatArchive, ExportFormatStructuredData,
}
