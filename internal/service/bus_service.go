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

type busRepository interface {
	FindByID(ctx context.Context, id int64) (*models.Bus, error)
	List(ctx context.Context) ([]models.Bus, error)
	Create(ctx context.Context, bus *models.Bus) error
}

type seatLayoutWriter interface {
	ListByBus(ctx context.Context, busID int64) ([]models.Seat, error)
	ReplaceForBus(ctx context.Context, busID int64, seats []models.Seat) error
}

// BusService manages fleet vehicles and their seat layouts.
type BusService struct {
	buses     busRepository
	seats     seatLayoutWriter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewBusService creates a service instance.
func NewBusService(buses busRepository, seats seatLayoutWriter, validate *validator.Validate, logger *zap.Logger) *BusService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BusService{buses: buses, seats: seats, validator: validate, logger: logger}
}

// Create registers a new bus.
func (s *BusService) Create(ctx context.Context, req dto.CreateBusRequest) (*models.Bus, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bus payload")
	}
	bus := &models.Bus{Name: req.Name, Capacity: req.Capacity, SeatsPerRow: req.SeatsPerRow}
	if err := s.buses.Create(ctx, bus); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create bus")
	}
	return bus, nil
}

// Get returns the bus with its seat layout.
func (s *BusService) Get(ctx context.Context, id int64) (*models.Bus, []models.Seat, error) {
	bus, err := s.buses.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "bus not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load bus")
	}
	seats, err := s.seats.ListByBus(ctx, id)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load seats")
	}
	return bus, seats, nil
}

// List returns the fleet.
func (s *BusService) List(ctx context.Context) ([]models.Bus, error) {
	buses, err := s.buses.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list buses")
	}
	return buses, nil
}

// SetSeats fully replaces the bus's seat collection. Row/column pairs
// must be unique and the seat count must not exceed capacity.
func (s *BusService) SetSeats(ctx context.Context, busID int64, req dto.SetSeatsRequest) ([]models.Seat, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid seat layout payload")
	}
	bus, err := s.buses.FindByID(ctx, busID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "bus not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load bus")
	}
	if len(req.Seats) > bus.Capacity {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("layout defines %d seats but bus capacity is %d", len(req.Seats), bus.Capacity))
	}

	positions := make(map[[2]int]bool, len(req.Seats))
	seats := make([]models.Seat, 0, len(req.Seats))
	for _, input := range req.Seats {
		key := [2]int{input.Row, input.Col}
		if positions[key] {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("duplicate seat position row %d col %d", input.Row, input.Col))
		}
		positions[key] = true
		seats = append(seats, models.Seat{
			BusID:    busID,
			Row:      input.Row,
			Col:      input.Col,
			Label:    input.Label,
			IsWindow: input.IsWindow,
			IsAisle:  input.IsAisle,
			Section:  input.Section,
		})
	}

	if err := s.seats.ReplaceForBus(ctx, busID, seats); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to replace seat layout")
	}
	return seats, nil
}
