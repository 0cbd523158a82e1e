package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/Kedesh11/oka-transport-api/internal/dto"
	"github.com/Kedesh11/oka-transport-api/internal/models"
	appErrors "github.com/Kedesh11/oka-transport-api/pkg/errors"
)

type voyageRepository interface {
	FindByID(ctx context.Context, id int64) (*models.Voyage, error)
	ListByRoute(ctx context.Context, routeID int64) ([]models.Voyage, error)
	Create(ctx context.Context, voyage *models.Voyage) error
}

type busReader interface {
	FindByID(ctx context.Context, id int64) (*models.Bus, error)
}

type assignmentLister interface {
	ListByVoyage(ctx context.Context, voyageID int64) ([]models.SeatAssignment, error)
}

type seatMapCache interface {
	Get(ctx context.Context, voyageID int64) ([]int64, error)
	Set(ctx context.Context, voyageID int64, taken []int64, ttl time.Duration) error
}

// VoyageService manages scheduled trips and their seat maps.
type VoyageService struct {
	voyages     voyageRepository
	buses       busReader
	seats       busSeatLister
	assignments assignmentLister
	cache       seatMapCache
	cacheTTL    time.Duration
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewVoyageService creates a service instance.
func NewVoyageService(
	voyages voyageRepository,
	buses busReader,
	seats busSeatLister,
	assignments assignmentLister,
	cache seatMapCache,
	cacheTTL time.Duration,
	validate *validator.Validate,
	logger *zap.Logger,
) *VoyageService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 2 * time.Minute
	}
	return &VoyageService{
		voyages:     voyages,
		buses:       buses,
		seats:       seats,
		assignments: assignments,
		cache:       cache,
		cacheTTL:    cacheTTL,
		validator:   validate,
		logger:      logger,
	}
}

// Create schedules a bus on a route instance. The bus must exist and
// have a seat layout before the voyage can accept assignments.
func (s *VoyageService) Create(ctx context.Context, req dto.CreateVoyageRequest) (*models.Voyage, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid voyage payload")
	}
	if _, err := s.buses.FindByID(ctx, req.BusID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "bus not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load bus")
	}
	voyage := &models.Voyage{
		BusID:         req.BusID,
		RouteID:       req.RouteID,
		DepartureDate: req.DepartureDate,
	}
	if err := s.voyages.Create(ctx, voyage); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create voyage")
	}
	return voyage, nil
}

// Get returns the voyage with its seat map and occupancy. The taken-set
// snapshot is served from cache when fresh enough; assignment writes
// invalidate it.
func (s *VoyageService) Get(ctx context.Context, id int64) (*dto.VoyageDetail, error) {
	voyage, err := s.voyages.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrVoyageNotFound, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load voyage")
	}
	bus, err := s.buses.FindByID(ctx, voyage.BusID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load bus")
	}
	seats, err := s.seats.ListByBus(ctx, voyage.BusID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load seats")
	}

	taken, passengerBySeat, err := s.loadOccupancy(ctx, id)
	if err != nil {
		return nil, err
	}

	detail := &dto.VoyageDetail{Voyage: *voyage, Bus: *bus}
	for _, seat := range seats {
		voyageSeat := dto.VoyageSeat{Seat: seat, Taken: taken[seat.ID]}
		if passengerID, ok := passengerBySeat[seat.ID]; ok {
			voyageSeat.PassengerID = passengerID
		}
		if !voyageSeat.Taken {
			detail.FreeSeats++
		}
		detail.Seats = append(detail.Seats, voyageSeat)
	}
	return detail, nil
}

// ListByRoute returns the route's scheduled voyages.
func (s *VoyageService) ListByRoute(ctx context.Context, routeID int64) ([]models.Voyage, error) {
	voyages, err := s.voyages.ListByRoute(ctx, routeID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list voyages")
	}
	return voyages, nil
}

func (s *VoyageService) loadOccupancy(ctx context.Context, voyageID int64) (map[int64]bool, map[int64]int64, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, voyageID); err == nil {
			taken := make(map[int64]bool, len(cached))
			for _, seatID := range cached {
				taken[seatID] = true
			}
			// Passenger detail is omitted on cache hits; the seat map
			// endpoint only needs occupancy.
			return taken, map[int64]int64{}, nil
		}
	}

	assignments, err := s.assignments.ListByVoyage(ctx, voyageID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load seat assignments")
	}
	taken := make(map[int64]bool, len(assignments))
	passengerBySeat := make(map[int64]int64, len(assignments))
	takenIDs := make([]int64, 0, len(assignments))
	for _, assignment := range assignments {
		taken[assignment.SeatID] = true
		passengerBySeat[assignment.SeatID] = assignment.PassengerID
		takenIDs = append(takenIDs, assignment.SeatID)
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, voyageID, takenIDs, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache seat map", zap.Int64("voyage_id", voyageID), zap.Error(err))
		}
	}
	return taken, passengerBySeat, nil
}
