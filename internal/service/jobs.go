package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/erazemk/estatedesk/internal/model"
	"github.com/erazemk/estatedesk/internal/store"
	"github.com/erazemk/estatedesk/internal/workflow"
)

// CreateJob creates a job in the intake stage.
func (s *Service) CreateJob(ctx context.Context, name string) (*model.Job, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, workflow.Validation("create job", "name is required")
	}
	job, err := store.CreateJob(ctx, s.db, name)
	if err != nil {
		return nil, err
	}
	slog.Info("job created", "job", job.ID, "actor", Actor(ctx))
	return job, nil
}

// GetJob returns a job or ErrNotFound.
func (s *Service) GetJob(ctx context.Context, id string) (*model.Job, error) {
	job, err := store.GetJob(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, workflow.Wrap(workflow.ErrNotFound, "get job", "job "+id+" does not exist", nil)
	}
	return job, nil
}

// ListJobs returns every job.
func (s *Service) ListJobs(ctx context.Context) ([]model.Job, error) {
	return store.ListJobs(ctx, s.db)
}

// ToggleOnlineSale flips the job's online-sale flag and returns the new
// value. Items are not touched.
func (s *Service) ToggleOnlineSale(ctx context.Context, jobID string) (bool, error) {
	active, err := store.ToggleOnlineSale(ctx, s.db, jobID)
	if err != nil {
		return false, err
	}
	slog.Info("online sale toggled", "job", jobID, "active", active, "actor", Actor(ctx))
	return active, nil
}

// AdvanceStage moves a job forward to stage. Dispositions are never derived
// from the stage; callers mark them per item.
func (s *Service) AdvanceStage(ctx context.Context, jobID, stage string) (*model.Job, error) {
	job, err := store.AdvanceStage(ctx, s.db, jobID, stage)
	if err != nil {
		return nil, err
	}
	slog.Info("job stage advanced", "job", jobID, "stage", job.Stage, "actor", Actor(ctx))
	return job, nil
}
