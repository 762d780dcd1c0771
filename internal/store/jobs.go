package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/erazemk/estatedesk/internal/model"
	"github.com/erazemk/estatedesk/internal/workflow"
)

// CreateJob creates a job in the intake stage.
func CreateJob(ctx context.Context, db *sql.DB, name string) (*model.Job, error) {
	id := uuid.NewString()
	_, err := db.ExecContext(ctx,
		`INSERT INTO jobs (id, name, stage) VALUES (?, ?, ?)`,
		id, name, model.StageIntake,
	)
	if err != nil {
		return nil, fmt.Errorf("creating job: %w", err)
	}
	return GetJob(ctx, db, id)
}

// GetJob returns a job by ID.
func GetJob(ctx context.Context, db *sql.DB, id string) (*model.Job, error) {
	return getJob(ctx, db, id)
}

func getJob(ctx context.Context, q querier, id string) (*model.Job, error) {
	j := &model.Job{}
	err := q.QueryRowContext(ctx,
		`SELECT id, name, stage, online_sale_active, created_at, updated_at
		 FROM jobs WHERE id = ?`, id,
	).Scan(&j.ID, &j.Name, &j.Stage, &j.OnlineSaleActive, &j.CreatedAt, &j.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting job: %w", err)
	}
	return j, nil
}

// ListJobs returns all jobs, newest first.
func ListJobs(ctx context.Context, db *sql.DB) ([]model.Job, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, name, stage, online_sale_active, created_at, updated_at
		 FROM jobs ORDER BY created_at DESC, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing jobs: %w", err)
	}
	defer rows.Close()

	var jobs []model.Job
	for rows.Next() {
		var j model.Job
		if err := rows.Scan(&j.ID, &j.Name, &j.Stage, &j.OnlineSaleActive, &j.CreatedAt, &j.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning job: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// ToggleOnlineSale flips a job's online-sale gate and returns the new value.
// Items are not touched.
func ToggleOnlineSale(ctx context.Context, db *sql.DB, jobID string) (bool, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE jobs SET online_sale_active = 1 - online_sale_active, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`, jobID,
	)
	if err != nil {
		return false, fmt.Errorf("toggling online sale: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, workflow.Wrap(workflow.ErrNotFound, "toggle online sale", "job "+jobID+" does not exist", nil)
	}

	var active bool
	err = tx.QueryRowContext(ctx, `SELECT online_sale_active FROM jobs WHERE id = ?`, jobID).Scan(&active)
	if err != nil {
		return false, fmt.Errorf("reading online sale flag: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing online sale toggle: %w", err)
	}
	return active, nil
}

// AdvanceStage moves a job to a later stage. Moving backwards or staying put
// is a conflict.
func AdvanceStage(ctx context.Context, db *sql.DB, jobID, stage string) (*model.Job, error) {
	if model.StageOrder(stage) < 0 {
		return nil, workflow.Validation("advance stage", fmt.Sprintf("unknown stage %q", stage))
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	j, err := getJob(ctx, tx, jobID)
	if err != nil {
		return nil, err
	}
	if j == nil {
		return nil, workflow.Wrap(workflow.ErrNotFound, "advance stage", "job "+jobID+" does not exist", nil)
	}
	if model.StageOrder(stage) <= model.StageOrder(j.Stage) {
		return nil, workflow.Wrap(workflow.ErrConflict, "advance stage",
			fmt.Sprintf("job is already at %s; stages only move forward", j.Stage), nil)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE jobs SET stage = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, stage, jobID,
	)
	if err != nil {
		return nil, fmt.Errorf("updating job stage: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing stage change: %w", err)
	}
	return GetJob(ctx, db, jobID)
}
