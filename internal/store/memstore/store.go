// Package memstore is an in-memory store used by tests and local development
// when Redis is not available.
package memstore

import (
	"context"
	"sync"

	"github.com/brandloom/api/internal/model"
	"github.com/brandloom/api/internal/store"
)

type Store struct {
	mu         sync.RWMutex
	workspaces map[string]model.Workspace
	brandKits  map[string]model.BrandKit // keyed by workspace id
	assets     map[string]model.Asset
	captions   map[string]model.Caption
	generated  map[string]model.GeneratedAsset
	jobs       map[string]model.ExportJob
}

func New() *Store {
	return &Store{
		workspaces: make(map[string]model.Workspace),
		brandKits:  make(map[string]model.BrandKit),
		assets:     make(map[string]model.Asset),
		captions:   make(map[string]model.Caption),
		generated:  make(map[string]model.GeneratedAsset),
		jobs:       make(map[string]model.ExportJob),
	}
}

// Seed helpers

func (s *Store) PutWorkspace(ws model.Workspace) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workspaces[ws.ID] = ws
}

func (s *Store) PutBrandKit(bk model.BrandKit) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.brandKits[bk.WorkspaceID] = bk
}

func (s *Store) PutAsset(a model.Asset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assets[a.ID] = a
}

func (s *Store) PutCaption(c model.Caption) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.captions[c.ID] = c
}

func (s *Store) PutGeneratedAsset(ga model.GeneratedAsset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generated[ga.ID] = ga
}

// Jobs returns a snapshot of all job records, for assertions.
func (s *Store) Jobs() []model.ExportJob {
	s.mu.RLock()
	defer s.mu.RUnlock()
	jobs := make([]model.ExportJob, 0, len(s.jobs))
	for _, j := range s.jobs {
		jobs = append(jobs, j)
	}
	return jobs
}

// ContentStore

func (s *Store) GetWorkspaceByID(_ context.Context, id string) (*model.Workspace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ws, ok := s.workspaces[id]
	if !ok {
		return nil, store.ErrWorkspaceNotFound
	}
	return &ws, nil
}

func (s *Store) GetApprovedCaptionsByWorkspace(_ context.Context, workspaceID string) ([]model.Caption, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var captions []model.Caption
	for _, c := range s.captions {
		if c.WorkspaceID == workspaceID && c.Status == model.ApprovalStatusApproved {
			captions = append(captions, c)
		}
	}
	return captions, nil
}

func (s *Store) GetApprovedGeneratedAssets(_ context.Context, workspaceID string) ([]model.GeneratedAsset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var assets []model.GeneratedAsset
	for _, ga := range s.generated {
		if ga.WorkspaceID == workspaceID && ga.Status == model.ApprovalStatusApproved {
			assets = append(assets, ga)
		}
	}
	return assets, nil
}

func (s *Store) GetAssetByID(_ context.Context, id string) (*model.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assets[id]
	if !ok {
		return nil, store.ErrAssetNotFound
	}
	return &a, nil
}

func (s *Store) GetBrandKitByWorkspace(_ context.Context, workspaceID string) (*model.BrandKit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bk, ok := s.brandKits[workspaceID]
	if !ok {
		return nil, nil
	}
	return &bk, nil
}

// JobStore

func (s *Store) CreateExportJob(_ context.Context, job *model.ExportJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = *job
	return nil
}

func (s *Store) UpdateExportJob(_ context.Context, id string, patch store.ExportJobPatch) (*model.ExportJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, store.ErrJobNotFound
	}
	job.Status = patch.Status
	if patch.OutputPath != nil {
		job.OutputPath = patch.OutputPath
	}
	if patch.ErrorMessage != nil {
		job.ErrorMessage = patch.ErrorMessage
	}
	if patch.CompletedAt != nil {
		job.CompletedAt = patch.CompletedAt
	}
	if patch.Warnings != nil {
		job.Warnings = patch.Warnings
	}
	s.jobs[id] = job
	return &job, nil
}

func (s *Store) GetExportJobByID(_ context.Context, id string) (*model.ExportJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, store.ErrJobNotFound
	}
	return &job, nil
}
