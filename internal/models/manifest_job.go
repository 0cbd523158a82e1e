package models

import "time"

// ManifestFormat selects the rendered manifest output.
type ManifestFormat string

const (
	ManifestFormatCSV ManifestFormat = "csv"
	ManifestFormatPDF ManifestFormat = "pdf"
)

// ManifestStatus tracks the export job lifecycle.
type ManifestStatus string

const (
	ManifestStatusQueued     ManifestStatus = "QUEUED"
	ManifestStatusProcessing ManifestStatus = "PROCESSING"
	ManifestStatusDone       ManifestStatus = "DONE"
	ManifestStatusFailed     ManifestStatus = "FAILED"
)

// ManifestJob is one asynchronous voyage-manifest export.
type ManifestJob struct {
	ID           string         `db:"id" json:"id"`
	VoyageID     int64          `db:"voyage_id" json:"voyageId"`
	Format       ManifestFormat `db:"format" json:"format"`
	Status       ManifestStatus `db:"status" json:"status"`
	FilePath     *string        `db:"file_path" json:"-"`
	ErrorMessage *string        `db:"error_message" json:"errorMessage,omitempty"`
	CreatedBy    string         `db:"created_by" json:"createdBy"`
	CreatedAt    time.Time      `db:"created_at" json:"createdAt"`
	FinishedAt   *time.Time     `db:"finished_at" json:"finishedAt,omitempty"`
}
