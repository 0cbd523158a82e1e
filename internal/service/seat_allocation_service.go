package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/Kedesh11/oka-transport-api/internal/dto"
	"github.com/Kedesh11/oka-transport-api/internal/models"
	"github.com/Kedesh11/oka-transport-api/internal/repository"
	appErrors "github.com/Kedesh11/oka-transport-api/pkg/errors"
)

type voyageReader interface {
	FindByID(ctx context.Context, id int64) (*models.Voyage, error)
}

type busSeatLister interface {
	ListByBus(ctx context.Context, busID int64) ([]models.Seat, error)
}

type reservationLister interface {
	ListByVoyage(ctx context.Context, voyageID int64) ([]models.Reservation, error)
}

type passengerStore interface {
	ListByReservationIDs(ctx context.Context, reservationIDs []int64) ([]models.Passenger, error)
	ExpandRows(ctx context.Context, reservationID int64, travelerCount int) error
}

type assignmentStore interface {
	ListByVoyage(ctx context.Context, voyageID int64) ([]models.SeatAssignment, error)
	CreateBatch(ctx context.Context, exec sqlx.ExtContext, voyageID int64, pairs []repository.SeatAssignmentPair) error
	Relocate(ctx context.Context, exec sqlx.ExtContext, assignmentID, newSeatID int64) error
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type seatMapInvalidator interface {
	Invalidate(ctx context.Context, voyageID int64)
}

type allocationObserver interface {
	ObserveSeatsAssigned(n int)
	ObserveFamilyRerouted()
}

// family groups the passengers of one reservation for packing.
type family struct {
	reservationID int64
	passengerIDs  []int64
}

// relocation moves one existing assignment to a new seat so a larger
// family can take over its row.
type relocation struct {
	assignmentID int64
	fromSeatID   int64
	toSeatID     int64
}

// SeatAllocationService packs reservation groups onto contiguous seat
// runs of a voyage's bus. The heuristic is first-fit-decreasing with a
// single rebalancing pass per family; families that still do not fit
// are reported as rerouted, never partially seated.
type SeatAllocationService struct {
	voyages      voyageReader
	seats        busSeatLister
	reservations reservationLister
	passengers   passengerStore
	assignments  assignmentStore
	tx           txProvider
	cache        seatMapInvalidator
	metrics      allocationObserver
	logger       *zap.Logger
}

// NewSeatAllocationService wires allocator dependencies.
func NewSeatAllocationService(
	voyages voyageReader,
	seats busSeatLister,
	reservations reservationLister,
	passengers passengerStore,
	assignments assignmentStore,
	tx txProvider,
	cache seatMapInvalidator,
	metrics allocationObserver,
	logger *zap.Logger,
) *SeatAllocationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SeatAllocationService{
		voyages:      voyages,
		seats:        seats,
		reservations: reservations,
		passengers:   passengers,
		assignments:  assignments,
		tx:           tx,
		cache:        cache,
		metrics:      metrics,
		logger:       logger,
	}
}

// AutoAssign seats every unassigned passenger of the voyage that can be
// packed. Re-running is safe: passengers already seated are skipped and
// no assignment is ever overwritten.
func (s *SeatAllocationService) AutoAssign(ctx context.Context, voyageID int64) (*dto.AutoAssignResult, error) {
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

	reservations, err := s.reservations.ListByVoyage(ctx, voyageID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load reservations")
	}

	// Passenger-row expansion must agree with traveler counts before
	// any assignment attempt.
	reservationIDs := make([]int64, 0, len(reservations))
	for _, reservation := range reservations {
		if err := s.passengers.ExpandRows(ctx, reservation.ID, reservation.TravelerCount); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to expand passenger rows")
		}
		reservationIDs = append(reservationIDs, reservation.ID)
	}

	passengers, err := s.passengers.ListByReservationIDs(ctx, reservationIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load passengers")
	}

	assignments, err := s.assignments.ListByVoyage(ctx, voyageID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load seat assignments")
	}

	grid := buildSeatGrid(seats)
	state := newAllocationState(passengers, assignments)
	families := groupFamilies(passengers)

	result := &dto.AutoAssignResult{
		Total:            len(passengers),
		ReroutedFamilies: []dto.ReroutedFamily{},
	}

	for _, fam := range families {
		unassigned := state.unassignedOf(fam)
		if len(unassigned) == 0 {
			continue
		}

		block, ok := grid.findContiguousBlock(state.taken, len(unassigned))
		if ok {
			if err := s.commitFamily(ctx, voyageID, unassigned, block, nil); err != nil {
				return nil, err
			}
			state.markAssigned(fam.reservationID, unassigned, block)
			result.Assigned += len(unassigned)
			if s.metrics != nil {
				s.metrics.ObserveSeatsAssigned(len(unassigned))
			}
			continue
		}

		block, relocations, ok := s.planRebalance(grid, state, len(unassigned))
		if ok {
			if err := s.commitFamily(ctx, voyageID, unassigned, block, relocations); err != nil {
				return nil, err
			}
			state.applyRelocations(relocations)
			state.markAssigned(fam.reservationID, unassigned, block)
			result.Assigned += len(unassigned)
			if s.metrics != nil {
				s.metrics.ObserveSeatsAssigned(len(unassigned))
			}
			continue
		}

		result.ReroutedFamilies = append(result.ReroutedFamilies, dto.ReroutedFamily{
			ReservationID: fam.reservationID,
			Size:          len(unassigned),
		})
		if s.metrics != nil {
			s.metrics.ObserveFamilyRerouted()
		}
		s.logger.Info("family rerouted",
			zap.Int64("voyage_id", voyageID),
			zap.Int64("reservation_id", fam.reservationID),
			zap.Int("size", len(unassigned)))
	}

	if s.cache != nil && result.Assigned > 0 {
		s.cache.Invalidate(ctx, voyageID)
	}
	return result, nil
}

// commitFamily writes one family's relocations and creations as a unit.
// A failure rolls the whole family back so a crash can never leave a
// reservation half-seated.
func (s *SeatAllocationService) commitFamily(ctx context.Context, voyageID int64, passengerIDs []int64, block []models.Seat, relocations []relocation) error {
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin assignment transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, move := range relocations {
		if err = s.assignments.Relocate(ctx, tx, move.assignmentID, move.toSeatID); err != nil {
			if repository.IsUniqueViolation(err) {
				return appErrors.Clone(appErrors.ErrConflict, "seat already taken during rebalance")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to relocate assignment")
		}
	}

	pairs := make([]repository.SeatAssignmentPair, len(passengerIDs))
	for i, passengerID := range passengerIDs {
		pairs[i] = repository.SeatAssignmentPair{SeatID: block[i].ID, PassengerID: passengerID}
	}
	if err = s.assignments.CreateBatch(ctx, tx, voyageID, pairs); err != nil {
		if repository.IsUniqueViolation(err) {
			return appErrors.Clone(appErrors.ErrConflict, "seat or passenger already assigned")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create seat assignments")
	}

	if err = tx.Commit(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit assignment transaction")
	}
	return nil
}

// planRebalance looks for a single row that could host the family once
// passengers seated alone are moved out of it. Only solo passengers are
// relocated: an already-seated group is never broken up. One pass, no
// cascades.
func (s *SeatAllocationService) planRebalance(grid seatGrid, state *allocationState, need int) ([]models.Seat, []relocation, bool) {
	for _, row := range grid.rows {
		movable := state.soloAssignmentsInRow(grid, row)
		if len(movable) == 0 {
			continue
		}
		targets := grid.freeSeatsOutsideRow(row, state.taken)
		if grid.freeSeatsInRow(row, state.taken)+minInt(len(movable), len(targets)) < need {
			continue
		}

		simTaken := copyTaken(state.taken)
		var moves []relocation
		for i, assignment := range movable {
			if i >= len(targets) {
				break
			}
			target := targets[i]
			delete(simTaken, assignment.SeatID)
			simTaken[target.ID] = true
			moves = append(moves, relocation{
				assignmentID: assignment.ID,
				fromSeatID:   assignment.SeatID,
				toSeatID:     target.ID,
			})
			if block, ok := grid.findContiguousBlockInRow(row, simTaken, need); ok {
				return block, moves, true
			}
		}
	}
	return nil, nil, false
}

// allocationState tracks occupancy and assignment ownership while the
// allocator runs.
type allocationState struct {
	taken           map[int64]bool
	assignedPax     map[int64]bool
	reservationOf   map[int64]int64            // passenger -> reservation
	assignedPerRes  map[int64]int              // reservation -> seated passengers
	assignmentsByID map[int64]models.SeatAssignment
}

func newAllocationState(passengers []models.Passenger, assignments []models.SeatAssignment) *allocationState {
	state := &allocationState{
		taken:           make(map[int64]bool, len(assignments)),
		assignedPax:     make(map[int64]bool, len(assignments)),
		reservationOf:   make(map[int64]int64, len(passengers)),
		assignedPerRes:  make(map[int64]int),
		assignmentsByID: make(map[int64]models.SeatAssignment, len(assignments)),
	}
	for _, passenger := range passengers {
		state.reservationOf[passenger.ID] = passenger.ReservationID
	}
	for _, assignment := range assignments {
		state.taken[assignment.SeatID] = true
		state.assignedPax[assignment.PassengerID] = true
		state.assignmentsByID[assignment.ID] = assignment
		if reservationID, ok := state.reservationOf[assignment.PassengerID]; ok {
			state.assignedPerRes[reservationID]++
		}
	}
	return state
}

func (st *allocationState) unassignedOf(fam family) []int64 {
	var ids []int64
	for _, passengerID := range fam.passengerIDs {
		if !st.assignedPax[passengerID] {
			ids = append(ids, passengerID)
		}
	}
	return ids
}

// soloAssignmentsInRow returns assignments occupying the row whose
// passenger is the only seated member of its reservation, ordered by
// seat column via ascending seat id within the row scan.
func (st *allocationState) soloAssignmentsInRow(grid seatGrid, row int) []models.SeatAssignment {
	seatToAssignment := make(map[int64]models.SeatAssignment, len(st.assignmentsByID))
	for _, assignment := range st.assignmentsByID {
		seatToAssignment[assignment.SeatID] = assignment
	}
	var solo []models.SeatAssignment
	for _, seat := range grid.byRow[row] {
		assignment, ok := seatToAssignment[seat.ID]
		if !ok {
			continue
		}
		reservationID, known := st.reservationOf[assignment.PassengerID]
		if !known || st.assignedPerRes[reservationID] != 1 {
			continue
		}
		solo = append(solo, assignment)
	}
	return solo
}

func (st *allocationState) markAssigned(reservationID int64, passengerIDs []int64, block []models.Seat) {
	for i, passengerID := range passengerIDs {
		st.taken[block[i].ID] = true
		st.assignedPax[passengerID] = true
	}
	st.assignedPerRes[reservationID] += len(passengerIDs)
}

func (st *allocationState) applyRelocations(relocations []relocation) {
	for _, move := range relocations {
		delete(st.taken, move.fromSeatID)
		st.taken[move.toSeatID] = true
		if assignment, ok := st.assignmentsByID[move.assignmentID]; ok {
			assignment.SeatID = move.toSeatID
			st.assignmentsByID[move.assignmentID] = assignment
		}
	}
}

// groupFamilies buckets passengers by reservation and orders families
// largest first. Larger groups are harder to pack later, so they are
// placed first; ties break on ascending reservation id.
func groupFamilies(passengers []models.Passenger) []family {
	byReservation := make(map[int64][]int64)
	for _, passenger := range passengers {
		byReservation[passenger.ReservationID] = append(byReservation[passenger.ReservationID], passenger.ID)
	}
	families := make([]family, 0, len(byReservation))
	for reservationID, passengerIDs := range byReservation {
		sort.Slice(passengerIDs, func(i, j int) bool { return passengerIDs[i] < passengerIDs[j] })
		families = append(families, family{reservationID: reservationID, passengerIDs: passengerIDs})
	}
	sort.Slice(families, func(i, j int) bool {
		if len(families[i].passengerIDs) != len(families[j].passengerIDs) {
			return len(families[i].passengerIDs) > len(families[j].passengerIDs)
		}
		return families[i].reservationID < families[j].reservationID
	})
	return families
}

func copyTaken(taken map[int64]bool) map[int64]bool {
	clone := make(map[int64]bool, len(taken))
	for seatID, isTaken := range taken {
		clone[seatID] = isTaken
	}
	return clone
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
