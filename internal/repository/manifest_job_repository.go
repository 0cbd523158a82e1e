package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Kedesh11/oka-transport-api/internal/models"
)

// UpdateManifestJobParams carries optional fields for a job update.
type UpdateManifestJobParams struct {
	Status       *models.ManifestStatus
	FilePath     *string
	ErrorMessage *string
	FinishedAt   *time.Time
}

// ManifestJobRepository persists manifest export jobs.
type ManifestJobRepository struct {
	db *sqlx.DB
}

// NewManifestJobRepository constructs the repository.
func NewManifestJobRepository(db *sqlx.DB) *ManifestJobRepository {
	return &ManifestJobRepository{db: db}
}

// Create inserts a queued job and populates its id.
func (r *ManifestJobRepository) Create(ctx context.Context, job *models.ManifestJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	if job.Status == "" {
		job.Status = models.ManifestStatusQueued
	}
	const query = `INSERT INTO manifest_jobs (id, voyage_id, format, status, created_by, created_at)
		VALUES (:id, :voyage_id, :format, :status, :created_by, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("create manifest job: %w", err)
	}
	return nil
}

// GetByID loads one job.
func (r *ManifestJobRepository) GetByID(ctx context.Context, id string) (*models.ManifestJob, error) {
	const query = `SELECT id, voyage_id, format, status, file_path, error_message, created_by, created_at, finished_at
FROM manifest_jobs WHERE id = $1`
	var job models.ManifestJob
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		return nil, err
	}
	return &job, nil
}

// Update applies the provided fields to the job.
func (r *ManifestJobRepository) Update(ctx context.Context, id string, params UpdateManifestJobParams) error {
	const query = `UPDATE manifest_jobs SET
		status = COALESCE($2, status),
		file_path = COALESCE($3, file_path),
		error_message = COALESCE($4, error_message),
		finished_at = COALESCE($5, finished_at)
	WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, params.Status, params.FilePath, params.ErrorMessage, params.FinishedAt)
	if err != nil {
		return fmt.Errorf("update manifest job: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check updated manifest job rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
