package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/Kedesh11/oka-transport-api/internal/dto"
	"github.com/Kedesh11/oka-transport-api/internal/repository"
	appErrors "github.com/Kedesh11/oka-transport-api/pkg/errors"
)

type proposalRecommender interface {
	ProposeAssignments(ctx context.Context, input dto.VoyageSnapshot) ([]dto.SeatProposal, error)
}

type proposalObserver interface {
	ObserveProposalsFiltered(dropped int)
	ObserveProposalsApplied(applied int)
}

// SeatProposalService shapes voyage input for the external recommender
// and guards the store against its output: proposals are schema
// validated, restricted to the voyage, deduplicated, and conflict
// filtered before anything is persisted.
type SeatProposalService struct {
	voyages      voyageReader
	seats        busSeatLister
	reservations reservationLister
	passengers   passengerStore
	assignments  assignmentStore
	recommender  proposalRecommender
	tx           txProvider
	cache        seatMapInvalidator
	metrics      proposalObserver
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewSeatProposalService wires proposal pipeline dependencies.
func NewSeatProposalService(
	voyages voyageReader,
	seats busSeatLister,
	reservations reservationLister,
	passengers passengerStore,
	assignments assignmentStore,
	rec proposalRecommender,
	tx txProvider,
	cache seatMapInvalidator,
	metrics proposalObserver,
	validate *validator.Validate,
	logger *zap.Logger,
) *SeatProposalService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SeatProposalService{
		voyages:      voyages,
		seats:        seats,
		reservations: reservations,
		passengers:   passengers,
		assignments:  assignments,
		recommender:  rec,
		tx:           tx,
		cache:        cache,
		metrics:      metrics,
		validator:    validate,
		logger:       logger,
	}
}

// Preview shapes the voyage state and passes it to the recommender. The
// returned proposals are raw: callers review them and submit the batch
// to Apply, which revalidates everything.
func (s *SeatProposalService) Preview(ctx context.Context, voyageID int64) ([]dto.SeatProposal, error) {
	if s.recommender == nil {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "seat recommender is not configured")
	}
	snapshot, err := s.buildSnapshot(ctx, voyageID)
	if err != nil {
		return nil, err
	}
	proposals, err := s.recommender.ProposeAssignments(ctx, *snapshot)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "recommender call failed")
	}
	return proposals, nil
}

// ValidateAndFilter reduces a raw proposal batch to the appliable
// subset. A structurally malformed element rejects the whole batch;
// duplicates and conflicts are dropped silently.
func (s *SeatProposalService) ValidateAndFilter(ctx context.Context, voyageID int64, raw []dto.SeatProposal) ([]dto.SeatProposal, error) {
	for _, proposal := range raw {
		if err := s.validator.Struct(proposal); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInvalidProposalShape.Code, appErrors.ErrInvalidProposalShape.Status, "proposal batch contains malformed entries")
		}
	}

	snapshot, err := s.buildSnapshot(ctx, voyageID)
	if err != nil {
		return nil, err
	}

	voyageSeats := make(map[int64]bool, len(snapshot.Seats))
	takenSeats := make(map[int64]bool)
	for _, seat := range snapshot.Seats {
		voyageSeats[seat.SeatID] = true
		if seat.Taken {
			takenSeats[seat.SeatID] = true
		}
	}
	bookedPassengers := make(map[int64]bool, len(snapshot.Passengers))
	for _, passenger := range snapshot.Passengers {
		bookedPassengers[passenger.PassengerID] = true
	}
	// snapshot.Passengers holds only unassigned travelers, so a booked
	// passenger missing from it is either foreign or already seated.

	seenSeat := make(map[int64]bool, len(raw))
	seenPassenger := make(map[int64]bool, len(raw))
	survivors := make([]dto.SeatProposal, 0, len(raw))
	for _, proposal := range raw {
		if proposal.VoyageID != voyageID {
			continue
		}
		if seenSeat[proposal.SeatID] || seenPassenger[proposal.PassengerID] {
			continue
		}
		seenSeat[proposal.SeatID] = true
		seenPassenger[proposal.PassengerID] = true

		if !voyageSeats[proposal.SeatID] || takenSeats[proposal.SeatID] {
			continue
		}
		if !bookedPassengers[proposal.PassengerID] {
			continue
		}
		survivors = append(survivors, proposal)
	}

	if s.metrics != nil {
		s.metrics.ObserveProposalsFiltered(len(raw) - len(survivors))
	}
	return survivors, nil
}

// Apply persists the surviving proposals of the batch in a single
// transaction, re-checking the taken sets at commit time. A uniqueness
// violation surfaces as a conflict for the caller to retry against
// reloaded state.
func (s *SeatProposalService) Apply(ctx context.Context, voyageID int64, raw []dto.SeatProposal) (*dto.ApplyProposalsResult, error) {
	survivors, err := s.ValidateAndFilter(ctx, voyageID, raw)
	if err != nil {
		return nil, err
	}
	result := &dto.ApplyProposalsResult{Total: len(raw)}
	if len(survivors) == 0 {
		return result, nil
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin proposal transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	pairs := make([]repository.SeatAssignmentPair, len(survivors))
	for i, proposal := range survivors {
		pairs[i] = repository.SeatAssignmentPair{SeatID: proposal.SeatID, PassengerID: proposal.PassengerID}
	}
	if err = s.assignments.CreateBatch(ctx, tx, voyageID, pairs); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "proposal conflicts with a concurrent assignment")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist proposals")
	}
	if err = tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit proposal transaction")
	}

	result.Applied = len(survivors)
	if s.cache != nil {
		s.cache.Invalidate(ctx, voyageID)
	}
	if s.metrics != nil {
		s.metrics.ObserveProposalsApplied(len(survivors))
	}
	return result, nil
}

// buildSnapshot assembles the voyage state shared by the preview and
// filter paths: all bus seats with occupancy, plus every booked
// passenger still lacking a seat.
func (s *SeatProposalService) buildSnapshot(ctx context.Context, voyageID int64) (*dto.VoyageSnapshot, error) {
	voyage, err := s.voyages.FindByID(ctx, voyageID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrVoyageNotFound, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load voyage")
	}

	seats, err := s.seats.ListByBus(ctx, voyage.BusID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load bus seats")
	}
	assignments, err := s.assignments.ListByVoyage(ctx, voyageID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load seat assignments")
	}
	reservations, err := s.reservations.ListByVoyage(ctx, voyageID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load reservations")
	}
	reservationIDs := make([]int64, 0, len(reservations))
	for _, reservation := range reservations {
		reservationIDs = append(reservationIDs, reservation.ID)
	}
	passengers, err := s.passengers.ListByReservationIDs(ctx, reservationIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load passengers")
	}

	taken := make(map[int64]bool, len(assignments))
	assignedPax := make(map[int64]bool, len(assignments))
	for _, assignment := range assignments {
		taken[assignment.SeatID] = true
		assignedPax[assignment.PassengerID] = true
	}

	snapshot := &dto.VoyageSnapshot{VoyageID: voyageID, BusID: voyage.BusID}
	for _, seat := range seats {
		snapshot.Seats = append(snapshot.Seats, dto.SeatSnapshot{
			SeatID:   seat.ID,
			Row:      seat.Row,
			Col:      seat.Col,
			Label:    seat.Label,
			IsWindow: seat.IsWindow,
			IsAisle:  seat.IsAisle,
			Section:  seat.Section,
			Taken:    taken[seat.ID],
		})
	}
	for _, passenger := range passengers {
		if assignedPax[passenger.ID] {
			continue
		}
		snapshot.Passengers = append(snapshot.Passengers, dto.PassengerSnapshot{
			PassengerID:   passenger.ID,
			ReservationID: passenger.ReservationID,
			PrefWindow:    passenger.PrefWindow,
			PrefAisle:     passenger.PrefAisle,
			PrefSection:   passenger.PrefSection,
		})
	}
	return snapshot, nil
}
