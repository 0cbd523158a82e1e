package dto

import (
	"time"

	"github.com/Kedesh11/oka-transport-api/internal/models"
)

// CreateVoyageRequest schedules a bus on a route instance.
type CreateVoyageRequest struct {
	BusID         int64     `json:"busId" validate:"required,gt=0"`
	RouteID       int64     `json:"routeId" validate:"required,gt=0"`
	DepartureDate time.Time `json:"departureDate" validate:"required"`
}

// VoyageSeat is one seat of the voyage's bus with its occupancy state.
type VoyageSeat struct {
	models.Seat
	Taken       bool  `json:"taken"`
	PassengerID int64 `json:"passengerId,omitempty"`
}

// VoyageDetail aggregates a voyage with its seat map and availability.
type VoyageDetail struct {
	Voyage    models.Voyage `json:"voyage"`
	Bus       models.Bus    `json:"bus"`
	Seats     []VoyageSeat  `json:"seats"`
	FreeSeats int           `json:"freeSeats"`
}
