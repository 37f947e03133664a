package handler

import (
	"errors"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/brandloom/api/internal/archive"
	"github.com/brandloom/api/internal/model"
	"github.com/brandloom/api/internal/service"
	"github.com/brandloom/api/internal/store"
	"github.com/brandloom/api/pkg/response"
)

type ExportHandler struct {
	service   *service.ExportService
	validator *validator.Validate
}

func NewExportHandler(svc *service.ExportService, v *validator.Validate) *ExportHandler {
	return &ExportHandler{
		service:   svc,
		validator: v,
	}
}

// Start handles POST /api/workspaces/:workspaceId/export. The body is an
// optional set of export options; everything defaults to included.
func (h *ExportHandler) Start(c *fiber.Ctx) error {
	workspaceID := c.Params("workspaceId")

	var req model.ExportStartRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return response.ValidationError(c, "Invalid request body", nil)
		}
		if err := h.validator.Struct(&req); err != nil {
			return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
		}
	}

	result, err := h.service.StartExport(c.Context(), workspaceID, req.Options())
	if err != nil {
		switch {
		case errors.Is(err, store.ErrWorkspaceNotFound):
			return response.NotFound(c, "Workspace not found")
		case errors.Is(err, archive.ErrNoExportableContent):
			return response.NoExportableContent(c, "Workspace has no approved captions or generated assets")
		default:
			return response.ServiceError(c, err.Error())
		}
	}

	return response.Accepted(c, result)
}

// Status handles GET /api/export/jobs/:jobId.
func (h *ExportHandler) Status(c *fiber.Ctx) error {
	job, err := h.service.GetJob(c.Context(), c.Params("jobId"))
	if err != nil {
		if errors.Is(err, store.ErrJobNotFound) {
			return response.NotFound(c, "Export job not found")
		}
		return response.ServiceError(c, err.Error())
	}
	return response.OK(c, job)
}

// Download handles GET /api/export/jobs/:jobId/download. A completed job
// whose archive was reclaimed by the retention sweep answers 410 Gone; the
// job record itself is left untouched.
func (h *ExportHandler) Download(c *fiber.Ctx) error {
	job, err := h.service.GetJob(c.Context(), c.Params("jobId"))
	if err != nil {
		if errors.Is(err, store.ErrJobNotFound) {
			return response.NotFound(c, "Export job not found")
		}
		return response.ServiceError(c, err.Error())
	}

	if job.Status != model.JobStatusCompleted || job.OutputPath == nil {
		return response.Conflict(c, response.CodeJobNotReady, "Export job has not completed")
	}
	if _, err := os.Stat(*job.OutputPath); err != nil {
		if os.IsNotExist(err) {
			return response.Gone(c, response.CodeExportExpired, "Export archive has been removed by retention cleanup")
		}
		return response.ServiceError(c, err.Error())
	}

	return c.Download(*job.OutputPath)
}

// Process handles POST /api/export/jobs/:jobId/process — direct retry
// tooling for jobs that were queued but never picked up. Only pending jobs
// are accepted; options are the defaults since options are not persisted.
func (h *ExportHandler) Process(c *fiber.Ctx) error {
	jobID := c.Params("jobId")

	err := h.service.ProcessExportJob(c.Context(), jobID, model.DefaultExportOptions())
	if err != nil && errors.Is(err, store.ErrJobNotFound) {
		return response.NotFound(c, "Export job not found")
	}
	// Any other failure is recorded on the job record; return it either way.
	job, getErr := h.service.GetJob(c.Context(), jobID)
	if getErr != nil {
		return response.ServiceError(c, getErr.Error())
	}
	return response.OK(c, job)
}

// Cleanup handles POST /api/export/cleanup.
func (h *ExportHandler) Cleanup(c *fiber.Ctx) error {
	var req model.CleanupRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return response.ValidationError(c, "Invalid request body", nil)
		}
		if err := h.validator.Struct(&req); err != nil {
			return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
		}
	}
	hours := req.Hours
	if hours == 0 {
		hours = 24
	}

	deleted, err := h.service.CleanupOldExports(c.Context(), hours)
	if err != nil {
		return response.ServiceError(c, err.Error())
	}
	return response.OK(c, model.CleanupResponse{Deleted: deleted})
}

func formatValidationErrors(err error) interface{} {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		errors := make(map[string]string)
		for _, e := range validationErrors {
			errors[e.Field()] = e.Tag()
		}
		return errors
	}
	return nil
}
