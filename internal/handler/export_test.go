package handler_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/brandloom/api/internal/archive"
	"github.com/brandloom/api/internal/handler"
	"github.com/brandloom/api/internal/model"
	"github.com/brandloom/api/internal/service"
	"github.com/brandloom/api/internal/store/memstore"
)

type recordingEnqueuer struct {
	tasks []*asynq.Task
}

func (r *recordingEnqueuer) Enqueue(task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	r.tasks = append(r.tasks, task)
	return &asynq.TaskInfo{ID: "t1", Queue: "exports"}, nil
}

type testApp struct {
	app       *fiber.App
	store     *memstore.Store
	service   *service.ExportService
	exportDir string
	srcDir    string
}

// setupApp builds the export routes the way main.go does, backed by the
// in-memory store and a recording enqueuer instead of Redis.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	mem := memstore.New()
	exportDir := filepath.Join(t.TempDir(), "exports")
	builder := archive.NewBuilder(mem, exportDir)
	svc := service.NewExportService(mem, mem, builder, &recordingEnqueuer{}, nil, exportDir, zap.NewNop())

	exportHandler := handler.NewExportHandler(svc, validator.New())

	app := fiber.New()
	api := app.Group("/api")
	api.Post("/workspaces/:workspaceId/export", exportHandler.Start)
	api.Get("/export/jobs/:jobId", exportHandler.Status)
	api.Get("/export/jobs/:jobId/download", exportHandler.Download)
	api.Post("/export/jobs/:jobId/process", exportHandler.Process)
	api.Post("/export/cleanup", exportHandler.Cleanup)

	return &testApp{
		app:       app,
		store:     mem,
		service:   svc,
		exportDir: exportDir,
		srcDir:    t.TempDir(),
	}
}

func (ta *testApp) seedWorkspace(t *testing.T, id string, captions int) {
	t.Helper()
	ta.store.PutWorkspace(model.Workspace{ID: id, Name: "Acme", CreatedAt: time.Now()})
	approved := time.Now().Add(-time.Hour)
	for i := 0; i < captions; i++ {
		assetID := fmt.Sprintf("%s-a%d", id, i)
		src := filepath.Join(ta.srcDir, fmt.Sprintf("%s-src%d.jpg", id, i))
		if err := os.WriteFile(src, []byte("bytes"), 0o644); err != nil {
			t.Fatalf("failed to write source file: %v", err)
		}
		ta.store.PutAsset(model.Asset{
			ID: assetID, WorkspaceID: id,
			FileName: filepath.Base(src), FilePath: src, MimeType: "image/jpeg",
		})
		ta.store.PutCaption(model.Caption{
			ID: fmt.Sprintf("%s-c%d", id, i), WorkspaceID: id, AssetID: assetID,
			Text: fmt.Sprintf("caption %d", i), Status: model.ApprovalStatusApproved,
			CreatedAt: approved, ApprovedAt: &approved,
		})
	}
}

func doRequest(t *testing.T, app *fiber.App, method, path, body string) *http.Response {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	var result map[string]interface{}
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("failed to parse JSON %q: %v", data, err)
	}
	return result
}

func assertStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		t.Fatalf("status = %d, want %d", resp.StatusCode, want)
	}
}

func TestStartExport_WorkspaceNotFound(t *testing.T) {
	ta := setupApp(t)
	resp := doRequest(t, ta.app, http.MethodPost, "/api/workspaces/missing/export", "")
	assertStatus(t, resp, http.StatusNotFound)
}

func TestStartExport_NoApprovedContent(t *testing.T) {
	ta := setupApp(t)
	ta.store.PutWorkspace(model.Workspace{ID: "ws2", Name: "Empty", CreatedAt: time.Now()})

	resp := doRequest(t, ta.app, http.MethodPost, "/api/workspaces/ws2/export", "")
	assertStatus(t, resp, http.StatusUnprocessableEntity)

	result := parseJSON(t, resp)
	errDetail := result["error"].(map[string]interface{})
	if errDetail["code"] != "NO_CONTENT" {
		t.Errorf("error code = %v, want NO_CONTENT", errDetail["code"])
	}
}

func TestStartExport_InvalidFormat(t *testing.T) {
	ta := setupApp(t)
	ta.seedWorkspace(t, "ws1", 1)

	resp := doRequest(t, ta.app, http.MethodPost, "/api/workspaces/ws1/export", `{"format":"pdf"}`)
	assertStatus(t, resp, http.StatusBadRequest)
}

func TestExportLifecycle(t *testing.T) {
	ta := setupApp(t)
	ta.seedWorkspace(t, "ws1", 2)

	// Start returns 202 with a pollable job id.
	resp := doRequest(t, ta.app, http.MethodPost, "/api/workspaces/ws1/export", "")
	assertStatus(t, resp, http.StatusAccepted)
	started := parseJSON(t, resp)
	jobID, _ := started["jobId"].(string)
	if jobID == "" {
		t.Fatal("expected jobId in response")
	}
	if started["status"] != "pending" {
		t.Errorf("status = %v, want pending", started["status"])
	}

	// Download before completion is refused.
	resp = doRequest(t, ta.app, http.MethodGet, "/api/export/jobs/"+jobID+"/download", "")
	assertStatus(t, resp, http.StatusConflict)

	// Run the worker side, then poll.
	if err := ta.service.ProcessExportJob(context.Background(), jobID, model.DefaultExportOptions()); err != nil {
		t.Fatalf("ProcessExportJob failed: %v", err)
	}

	resp = doRequest(t, ta.app, http.MethodGet, "/api/export/jobs/"+jobID, "")
	assertStatus(t, resp, http.StatusOK)
	job := parseJSON(t, resp)
	if job["status"] != "completed" {
		t.Fatalf("job status = %v, want completed", job["status"])
	}
	if job["itemsCaptions"] != float64(2) || job["itemsGeneratedAssets"] != float64(0) {
		t.Errorf("unexpected counts: %v / %v", job["itemsCaptions"], job["itemsGeneratedAssets"])
	}
	outputPath, _ := job["outputPath"].(string)
	if !strings.HasSuffix(outputPath, ".zip") {
		t.Errorf("outputPath = %q, want a .zip path", outputPath)
	}
	if job["errorMessage"] != nil {
		t.Errorf("completed job must not carry an error message: %v", job["errorMessage"])
	}

	// Download now succeeds.
	resp = doRequest(t, ta.app, http.MethodGet, "/api/export/jobs/"+jobID+"/download", "")
	assertStatus(t, resp, http.StatusOK)

	// After the sweeper reclaims the file, download reports it gone but the
	// job record still says completed.
	if err := os.Remove(outputPath); err != nil {
		t.Fatalf("failed to remove archive: %v", err)
	}
	resp = doRequest(t, ta.app, http.MethodGet, "/api/export/jobs/"+jobID+"/download", "")
	assertStatus(t, resp, http.StatusGone)

	resp = doRequest(t, ta.app, http.MethodGet, "/api/export/jobs/"+jobID, "")
	job = parseJSON(t, resp)
	if job["status"] != "completed" {
		t.Errorf("sweep must not rewrite job status, got %v", job["status"])
	}
}

func TestJobStatus_NotFound(t *testing.T) {
	ta := setupApp(t)
	resp := doRequest(t, ta.app, http.MethodGet, "/api/export/jobs/nope", "")
	assertStatus(t, resp, http.StatusNotFound)
}

func TestProcessEndpoint_RunsPendingJob(t *testing.T) {
	ta := setupApp(t)
	ta.seedWorkspace(t, "ws1", 1)

	resp := doRequest(t, ta.app, http.MethodPost, "/api/workspaces/ws1/export", "")
	assertStatus(t, resp, http.StatusAccepted)
	jobID := parseJSON(t, resp)["jobId"].(string)

	resp = doRequest(t, ta.app, http.MethodPost, "/api/export/jobs/"+jobID+"/process", "")
	assertStatus(t, resp, http.StatusOK)
	job := parseJSON(t, resp)
	if job["status"] != "completed" {
		t.Errorf("job status = %v, want completed", job["status"])
	}
}

func TestCleanupEndpoint(t *testing.T) {
	ta := setupApp(t)

	if err := os.MkdirAll(ta.exportDir, 0o755); err != nil {
		t.Fatalf("failed to create export dir: %v", err)
	}
	stale := filepath.Join(ta.exportDir, "stale.zip")
	if err := os.WriteFile(stale, []byte("old"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	mtime := time.Now().Add(-30 * time.Hour)
	if err := os.Chtimes(stale, mtime, mtime); err != nil {
		t.Fatalf("failed to age file: %v", err)
	}

	resp := doRequest(t, ta.app, http.MethodPost, "/api/export/cleanup", `{"hours":24}`)
	assertStatus(t, resp, http.StatusOK)
	result := parseJSON(t, resp)
	if result["deleted"] != float64(1) {
		t.Errorf("deleted = %v, want 1", result["deleted"])
	}
}
