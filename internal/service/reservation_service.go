package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/Kedesh11/oka-transport-api/internal/dto"
	"github.com/Kedesh11/oka-transport-api/internal/models"
	appErrors "github.com/Kedesh11/oka-transport-api/pkg/errors"
)

type reservationRepository interface {
	FindByID(ctx context.Context, id int64) (*models.Reservation, error)
	ListByVoyage(ctx context.Context, voyageID int64) ([]models.Reservation, error)
	Create(ctx context.Context, reservation *models.Reservation) error
	Delete(ctx context.Context, id int64) error
}

type passengerWriter interface {
	ListByReservationIDs(ctx context.Context, reservationIDs []int64) ([]models.Passenger, error)
	ReplaceForReservation(ctx context.Context, reservationID int64, passengers []models.Passenger) error
}

// ReservationService manages client bookings and their passenger rows.
type ReservationService struct {
	reservations reservationRepository
	passengers   passengerWriter
	voyages      voyageReader
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewReservationService creates a service instance.
func NewReservationService(reservations reservationRepository, passengers passengerWriter, voyages voyageReader, validate *validator.Validate, logger *zap.Logger) *ReservationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReservationService{
		reservations: reservations,
		passengers:   passengers,
		voyages:      voyages,
		validator:    validate,
		logger:       logger,
	}
}

// Create books travelers onto a voyage. Passenger rows are created to
// match travelerCount immediately; names beyond the provided list are
// placeholders.
func (s *ReservationService) Create(ctx context.Context, req dto.CreateReservationRequest) (*models.Reservation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reservation payload")
	}
	if len(req.Passengers) > req.TravelerCount {
		return nil, appErrors.Clone(appErrors.ErrValidation, "more passengers than travelerCount")
	}
	if _, err := s.voyages.FindByID(ctx, req.VoyageID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrVoyageNotFound, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load voyage")
	}

	reservation := &models.Reservation{
		ClientName:    req.ClientName,
		ClientEmail:   req.ClientEmail,
		VoyageID:      req.VoyageID,
		TravelerCount: req.TravelerCount,
	}
	if err := s.reservations.Create(ctx, reservation); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create reservation")
	}

	passengers := make([]models.Passenger, req.TravelerCount)
	for i := range passengers {
		passengers[i] = models.Passenger{
			ReservationID: reservation.ID,
			FullName:      fmt.Sprintf("Passenger %d", i+1),
		}
		if i < len(req.Passengers) {
			input := req.Passengers[i]
			if input.FullName != "" {
				passengers[i].FullName = input.FullName
			}
			passengers[i].PrefWindow = input.PrefWindow
			passengers[i].PrefAisle = input.PrefAisle
			passengers[i].PrefSection = input.PrefSection
		}
	}
	if err := s.passengers.ReplaceForReservation(ctx, reservation.ID, passengers); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create passenger rows")
	}
	return reservation, nil
}

// Get returns the reservation with its passengers.
func (s *ReservationService) Get(ctx context.Context, id int64) (*models.Reservation, []models.Passenger, error) {
	reservation, err := s.reservations.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "reservation not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load reservation")
	}
	passengers, err := s.passengers.ListByReservationIDs(ctx, []int64{id})
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load passengers")
	}
	return reservation, passengers, nil
}

// Delete removes a reservation. Its passengers and their seat
// assignments cascade in the store.
func (s *ReservationService) Delete(ctx context.Context, id int64) error {
	if err := s.reservations.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "reservation not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete reservation")
	}
	return nil
}
