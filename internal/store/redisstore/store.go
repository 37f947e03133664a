package redisstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/brandloom/api/internal/model"
	"github.com/brandloom/api/internal/store"
)

// Store reads and writes records as JSON documents in Redis. Content records
// are written by the platform's CRUD backend; this service only reads them.
// Job records are owned here.
type Store struct {
	redis *redis.Client
}

func New(redisClient *redis.Client) *Store {
	return &Store{redis: redisClient}
}

func (s *Store) GetWorkspaceByID(ctx context.Context, id string) (*model.Workspace, error) {
	var ws model.Workspace
	if err := s.getJSON(ctx, fmt.Sprintf("workspace:%s", id), &ws); err != nil {
		if err == redis.Nil {
			return nil, store.ErrWorkspaceNotFound
		}
		return nil, err
	}
	return &ws, nil
}

func (s *Store) GetApprovedCaptionsByWorkspace(ctx context.Context, workspaceID string) ([]model.Caption, error) {
	ids, err := s.redis.SMembers(ctx, fmt.Sprintf("workspace:%s:captions", workspaceID)).Result()
	if err != nil {
		return nil, err
	}
	captions := make([]model.Caption, 0, len(ids))
	for _, id := range ids {
		var c model.Caption
		if err := s.getJSON(ctx, fmt.Sprintf("caption:%s", id), &c); err != nil {
			if err == redis.Nil {
				continue // index entry outlived the record
			}
			return nil, err
		}
		if c.Status == model.ApprovalStatusApproved {
			captions = append(captions, c)
		}
	}
	return captions, nil
}

func (s *Store) GetApprovedGeneratedAssets(ctx context.Context, workspaceID string) ([]model.GeneratedAsset, error) {
	ids, err := s.redis.SMembers(ctx, fmt.Sprintf("workspace:%s:generated", workspaceID)).Result()
	if err != nil {
		return nil, err
	}
	assets := make([]model.GeneratedAsset, 0, len(ids))
	for _, id := range ids {
		var ga model.GeneratedAsset
		if err := s.getJSON(ctx, fmt.Sprintf("generated:%s", id), &ga); err != nil {
			if err == redis.Nil {
				continue
			}
			return nil, err
		}
		if ga.Status == model.ApprovalStatusApproved {
			assets = append(assets, ga)
		}
	}
	return assets, nil
}

func (s *Store) GetAssetByID(ctx context.Context, id string) (*model.Asset, error) {
	var a model.Asset
	if err := s.getJSON(ctx, fmt.Sprintf("asset:%s", id), &a); err != nil {
		if err == redis.Nil {
			return nil, store.ErrAssetNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (s *Store) GetBrandKitByWorkspace(ctx context.Context, workspaceID string) (*model.BrandKit, error) {
	var bk model.BrandKit
	if err := s.getJSON(ctx, fmt.Sprintf("workspace:%s:brandkit", workspaceID), &bk); err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	return &bk, nil
}

// Job records are kept without expiry; cleanup is an explicit administrative
// action outside the pipeline.

func (s *Store) CreateExportJob(ctx context.Context, job *model.ExportJob) error {
	return s.setJSON(ctx, jobKey(job.ID), job)
}

func (s *Store) UpdateExportJob(ctx context.Context, id string, patch store.ExportJobPatch) (*model.ExportJob, error) {
	job, err := s.GetExportJobByID(ctx, id)
	if err != nil {
		return nil, err
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
	if err := s.setJSON(ctx, jobKey(id), job); err != nil {
		return nil, err
	}
	return job, nil
}

func (s *Store) GetExportJobByID(ctx context.Context, id string) (*model.ExportJob, error) {
	var job model.ExportJob
	if err := s.getJSON(ctx, jobKey(id), &job); err != nil {
		if err == redis.Nil {
			return nil, store.ErrJobNotFound
		}
		return nil, err
	}
	return &job, nil
}

func jobKey(id string) string {
	return fmt.Sprintf("export:job:%s", id)
}

func (s *Store) getJSON(ctx context.Context, key string, v interface{}) error {
	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func (s *Store) setJSON(ctx context.Context, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, key, data, 0).Err()
}
