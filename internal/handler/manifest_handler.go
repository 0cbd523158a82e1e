package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Kedesh11/oka-transport-api/internal/dto"
	"github.com/Kedesh11/oka-transport-api/internal/middleware"
	"github.com/Kedesh11/oka-transport-api/internal/models"
	"github.com/Kedesh11/oka-transport-api/internal/service"
	appErrors "github.com/Kedesh11/oka-transport-api/pkg/errors"
	"github.com/Kedesh11/oka-transport-api/pkg/response"
)

// ManifestHandler exposes voyage passenger-manifest exports.
type ManifestHandler struct {
	service *service.ManifestService
}

// NewManifestHandler constructs a manifest handler.
func NewManifestHandler(svc *service.ManifestService) *ManifestHandler {
	return &ManifestHandler{service: svc}
}

// Create godoc
// @Summary Queue a passenger-manifest export for a voyage
// @Tags Manifests
// @Accept json
// @Produce json
// @Param id path int true "Voyage ID"
// @Param payload body dto.ManifestRequest true "Export options"
// @Success 202 {object} response.Envelope
// @Router /voyages/{id}/manifest [post]
func (h *ManifestHandler) Create(c *gin.Context) {
	voyageID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || voyageID <= 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid voyage id"))
		return
	}
	var req dto.ManifestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	actorID := ""
	if claims, ok := middleware.CurrentClaims(c); ok {
		actorID = claims.UserID
	}
	job, err := h.service.CreateJob(c.Request.Context(), voyageID, req, actorID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, job, nil)
}

// Status godoc
// @Summary Get manifest export status
// @Tags Manifests
// @Produce json
// @Param jobId path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Router /manifests/{jobId} [get]
func (h *ManifestHandler) Status(c *gin.Context) {
	status, err := h.service.GetStatus(c.Request.Context(), c.Param("jobId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// Download godoc
// @Summary Download a finished manifest with a signed token
// @Tags Manifests
// @Produce octet-stream
// @Param token path string true "Signed download token"
// @Success 200 {file} binary
// @Router /manifests/download/{token} [get]
func (h *ManifestHandler) Download(c *gin.Context) {
	download, err := h.service.ResolveDownload(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close()

	contentType := "text/csv"
	if download.Format == models.ManifestFormatPDF {
		contentType = "application/pdf"
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", download.Filename))
	stat, err := download.File.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stat manifest file"))
		return
	}
	c.DataFromReader(http.StatusOK, stat.Size(), contentType, download.File, nil)
}
