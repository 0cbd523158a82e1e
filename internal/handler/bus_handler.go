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

// BusHandler exposes fleet management endpoints.
type BusHandler struct {
	service *service.BusService
}

// NewBusHandler constructs a bus handler.
func NewBusHandler(svc *service.BusService) *BusHandler {
	return &BusHandler{service: svc}
}

// Create godoc
// @Summary Register a bus
// @Tags Buses
// @Accept json
// @Produce json
// @Param payload body dto.CreateBusRequest true "Bus payload"
// @Success 201 {object} response.Envelope
// @Router /buses [post]
func (h *BusHandler) Create(c *gin.Context) {
	var req dto.CreateBusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	bus, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, bus)
}

// Get godoc
// @Summary Get a bus with its seat layout
// @Tags Buses
// @Produce json
// @Param id path int true "Bus ID"
// @Success 200 {object} response.Envelope
// @Router /buses/{id} [get]
func (h *BusHandler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid bus id"))
		return
	}
	bus, seats, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"bus": bus, "seats": seats}, nil)
}

// List godoc
// @Summary List buses
// @Tags Buses
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /buses [get]
func (h *BusHandler) List(c *gin.Context) {
	buses, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, buses, nil)
}

// SetSeats godoc
// @Summary Replace a bus's seat layout
// @Tags Buses
// @Accept json
// @Produce json
// @Param id path int true "Bus ID"
// @Param payload body dto.SetSeatsRequest true "Seat layout"
// @Success 200 {object} response.Envelope
// @Router /buses/{id}/seats [put]
func (h *BusHandler) SetSeats(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid bus id"))
		return
	}
	var req dto.SetSeatsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	seats, err := h.service.SetSeats(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, seats, nil)
}
