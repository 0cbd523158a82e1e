package dto

import (
	"time"

	"github.com/Kedesh11/oka-transport-api/internal/models"
)

// ManifestRequest asks for a voyage passenger manifest export.
type ManifestRequest struct {
	Format models.ManifestFormat `json:"format" validate:"required,oneof=csv pdf"`
}

// ManifestJobResponse acknowledges an enqueued export.
type ManifestJobResponse struct {
	ID     string                `json:"id"`
	Status models.ManifestStatus `json:"status"`
}

// ManifestStatusResponse reports the job state and, once done, a signed
// download token.
type ManifestStatusResponse struct {
	ID            string                `json:"id"`
	VoyageID      int64                 `json:"voyageId"`
	Format        models.ManifestFormat `json:"format"`
	Status        models.ManifestStatus `json:"status"`
	ErrorMessage  *string               `json:"errorMessage,omitempty"`
	DownloadToken string                `json:"downloadToken,omitempty"`
	ExpiresAt     *time.Time            `json:"expiresAt,omitempty"`
}
