package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Kedesh11/oka-transport-api/internal/dto"
	"github.com/Kedesh11/oka-transport-api/internal/service"
	appErrors "github.com/Kedesh11/oka-transport-api/pkg/errors"
	"github.com/Kedesh11/oka-transport-api/pkg/response"
)

// VoyageHandler exposes voyage and seat-assignment endpoints.
type VoyageHandler struct {
	voyages   *service.VoyageService
	allocator *service.SeatAllocationService
	proposals *service.SeatProposalService
}

// NewVoyageHandler constructs a voyage handler.
func NewVoyageHandler(voyages *service.VoyageService, allocator *service.SeatAllocationService, proposals *service.SeatProposalService) *VoyageHandler {
	return &VoyageHandler{voyages: voyages, allocator: allocator, proposals: proposals}
}

func parseVoyageID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid voyage id"))
		return 0, false
	}
	return id, true
}

// Create godoc
// @Summary Schedule a voyage
// @Tags Voyages
// @Accept json
// @Produce json
// @Param payload body dto.CreateVoyageRequest true "Voyage payload"
// @Success 201 {object} response.Envelope
// @Router /voyages [post]
func (h *VoyageHandler) Create(c *gin.Context) {
	var req dto.CreateVoyageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	voyage, err := h.voyages.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, voyage)
}

// Get godoc
// @Summary Get a voyage with its seat map
// @Tags Voyages
// @Produce json
// @Param id path int true "Voyage ID"
// @Success 200 {object} response.Envelope
// @Router /voyages/{id} [get]
func (h *VoyageHandler) Get(c *gin.Context) {
	id, ok := parseVoyageID(c)
	if !ok {
		return
	}
	detail, err := h.voyages.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// ListByRoute godoc
// @Summary List voyages of a route
// @Tags Voyages
// @Produce json
// @Param routeId query int true "Route ID"
// @Success 200 {object} response.Envelope
// @Router /voyages [get]
func (h *VoyageHandler) ListByRoute(c *gin.Context) {
	routeID, err := strconv.ParseInt(c.Query("routeId"), 10, 64)
	if err != nil || routeID <= 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid route id"))
		return
	}
	voyages, err := h.voyages.ListByRoute(c.Request.Context(), routeID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, voyages, nil)
}

// AutoAssign godoc
// @Summary Auto-assign seats for all pending reservations of a voyage
// @Tags Assignments
// @Produce json
// @Param id path int true "Voyage ID"
// @Success 200 {object} response.Envelope
// @Router /voyages/{id}/auto-assign [post]
func (h *VoyageHandler) AutoAssign(c *gin.Context) {
	id, ok := parseVoyageID(c)
	if !ok {
		return
	}
	result, err := h.allocator.AutoAssign(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// PreviewProposals godoc
// @Summary Fetch seat proposals from the recommender without applying them
// @Tags Assignments
// @Produce json
// @Param id path int true "Voyage ID"
// @Success 200 {object} response.Envelope
// @Router /voyages/{id}/assignment-proposals [get]
func (h *VoyageHandler) PreviewProposals(c *gin.Context) {
	id, ok := parseVoyageID(c)
	if !ok {
		return
	}
	proposals, err := h.proposals.Preview(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, proposals, nil)
}

// ApplyProposals godoc
// @Summary Validate and apply a batch of seat proposals
// @Tags Assignments
// @Accept json
// @Produce json
// @Param id path int true "Voyage ID"
// @Param payload body dto.ApplyProposalsRequest true "Proposal batch"
// @Success 200 {object} response.Envelope
// @Router /voyages/{id}/assignment-proposals [post]
func (h *VoyageHandler) ApplyProposals(c *gin.Context) {
	id, ok := parseVoyageID(c)
	if !ok {
		return
	}
	var req dto.ApplyProposalsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.proposals.Apply(c.Request.Context(), id, req.Proposals)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
