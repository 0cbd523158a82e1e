package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kedesh11/oka-transport-api/internal/models"
	"github.com/Kedesh11/oka-transport-api/internal/repository"
	appErrors "github.com/Kedesh11/oka-transport-api/pkg/errors"
)

type voyageReaderStub struct {
	voyage *models.Voyage
	err    error
}

func (s voyageReaderStub) FindByID(ctx context.Context, id int64) (*models.Voyage, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.voyage, nil
}

type seatListerStub struct {
	seats []models.Seat
}

func (s seatListerStub) ListByBus(ctx context.Context, busID int64) ([]models.Seat, error) {
	return s.seats, nil
}

type reservationListerStub struct {
	reservations []models.Reservation
}

func (s reservationListerStub) ListByVoyage(ctx context.Context, voyageID int64) ([]models.Reservation, error) {
	return s.reservations, nil
}

type passengerStoreStub struct {
	passengers []models.Passenger
	expanded   map[int64]int
}

func (s *passengerStoreStub) ListByReservationIDs(ctx context.Context, reservationIDs []int64) ([]models.Passenger, error) {
	return s.passengers, nil
}

func (s *passengerStoreStub) ExpandRows(ctx context.Context, reservationID int64, travelerCount int) error {
	if s.expanded == nil {
		s.expanded = make(map[int64]int)
	}
	s.expanded[reservationID] = travelerCount
	return nil
}

type relocationCall struct {
	assignmentID int64
	newSeatID    int64
}

type assignmentStoreStub struct {
	existing    []models.SeatAssignment
	created     [][]repository.SeatAssignmentPair
	relocations []relocationCall
	createErr   error
}

func (s *assignmentStoreStub) ListByVoyage(ctx context.Context, voyageID int64) ([]models.SeatAssignment, error) {
	return s.existing, nil
}

func (s *assignmentStoreStub) CreateBatch(ctx context.Context, exec sqlx.ExtContext, voyageID int64, pairs []repository.SeatAssignmentPair) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.created = append(s.created, pairs)
	return nil
}

func (s *assignmentStoreStub) Relocate(ctx context.Context, exec sqlx.ExtContext, assignmentID, newSeatID int64) error {
	s.relocations = append(s.relocations, relocationCall{assignmentID: assignmentID, newSeatID: newSeatID})
	return nil
}

type cacheInvalidatorStub struct {
	invalidated []int64
}

func (s *cacheInvalidatorStub) Invalidate(ctx context.Context, voyageID int64) {
	s.invalidated = append(s.invalidated, voyageID)
}

type observerStub struct {
	seatsAssigned     int
	familiesRerouted  int
	proposalsFiltered int
	proposalsApplied  int
}

func (s *observerStub) ObserveSeatsAssigned(n int) { s.seatsAssigned += n }

func (s *observerStub) ObserveFamilyRerouted() { s.familiesRerouted++ }

func (s *observerStub) ObserveProposalsFiltered(dropped int) { s.proposalsFiltered += dropped }

func (s *observerStub) ObserveProposalsApplied(applied int) { s.proposalsApplied += applied }

type txProviderMock struct {
	db *sqlx.DB
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}

func newTxProviderMock(t *testing.T) (*txProviderMock, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlxdb}, mock
}

type allocatorFixture struct {
	service     *SeatAllocationService
	passengers  *passengerStoreStub
	assignments *assignmentStoreStub
	cache       *cacheInvalidatorStub
	observer    *observerStub
	mock        sqlmock.Sqlmock
}

func newAllocatorFixture(t *testing.T, seats []models.Seat, reservations []models.Reservation, passengers []models.Passenger, existing []models.SeatAssignment) *allocatorFixture {
	txProvider, mock := newTxProviderMock(t)
	passengerStore := &passengerStoreStub{passengers: passengers}
	assignmentStore := &assignmentStoreStub{existing: existing}
	cache := &cacheInvalidatorStub{}
	observer := &observerStub{}
	svc := NewSeatAllocationService(
		voyageReaderStub{voyage: &models.Voyage{ID: 1, BusID: 10, Status: models.VoyageStatusScheduled}},
		seatListerStub{seats: seats},
		reservationListerStub{reservations: reservations},
		passengerStore,
		assignmentStore,
		txProvider,
		cache,
		observer,
		nil,
	)
	return &allocatorFixture{
		service:     svc,
		passengers:  passengerStore,
		assignments: assignmentStore,
		cache:       cache,
		observer:    observer,
		mock:        mock,
	}
}

func twoRowBus() []models.Seat {
	return []models.Seat{
		{ID: 1, BusID: 10, Row: 1, Col: 1}, {ID: 2, BusID: 10, Row: 1, Col: 2},
		{ID: 3, BusID: 10, Row: 1, Col: 3}, {ID: 4, BusID: 10, Row: 1, Col: 4},
		{ID: 5, BusID: 10, Row: 2, Col: 1}, {ID: 6, BusID: 10, Row: 2, Col: 2},
		{ID: 7, BusID: 10, Row: 2, Col: 3}, {ID: 8, BusID: 10, Row: 2, Col: 4},
	}
}

func TestAutoAssignVoyageNotFound(t *testing.T) {
	txProvider, _ := newTxProviderMock(t)
	svc := NewSeatAllocationService(
		voyageReaderStub{err: sql.ErrNoRows},
		seatListerStub{}, reservationListerStub{},
		&passengerStoreStub{}, &assignmentStoreStub{},
		txProvider, nil, nil, nil,
	)

	_, err := svc.AutoAssign(context.Background(), 99)
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrVoyageNotFound.Code, appErr.Code)
}

func TestAutoAssignPacksLargestFamilyFirst(t *testing.T) {
	reservations := []models.Reservation{
		{ID: 1, VoyageID: 1, TravelerCount: 2},
		{ID: 2, VoyageID: 1, TravelerCount: 3},
	}
	passengers := []models.Passenger{
		{ID: 11, ReservationID: 1}, {ID: 12, ReservationID: 1},
		{ID: 21, ReservationID: 2}, {ID: 22, ReservationID: 2}, {ID: 23, ReservationID: 2},
	}
	f := newAllocatorFixture(t, twoRowBus(), reservations, passengers, nil)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	result, err := f.service.AutoAssign(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 5, result.Assigned)
	assert.Equal(t, 5, result.Total)
	assert.Empty(t, result.ReroutedFamilies)

	// The trio goes first and takes the start of row 1; the pair no
	// longer fits there and lands in row 2.
	require.Len(t, f.assignments.created, 2)
	trio := f.assignments.created[0]
	require.Len(t, trio, 3)
	assert.Equal(t, int64(1), trio[0].SeatID)
	assert.Equal(t, int64(21), trio[0].PassengerID)
	assert.Equal(t, int64(3), trio[2].SeatID)

	pair := f.assignments.created[1]
	require.Len(t, pair, 2)
	assert.Equal(t, int64(5), pair[0].SeatID)
	assert.Equal(t, int64(11), pair[0].PassengerID)

	assert.Equal(t, []int64{1}, f.cache.invalidated)
	assert.Equal(t, 5, f.observer.seatsAssigned)
	assert.Equal(t, map[int64]int{1: 2, 2: 3}, f.passengers.expanded)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestAutoAssignIsIdempotent(t *testing.T) {
	reservations := []models.Reservation{{ID: 1, VoyageID: 1, TravelerCount: 2}}
	passengers := []models.Passenger{
		{ID: 11, ReservationID: 1}, {ID: 12, ReservationID: 1},
	}
	existing := []models.SeatAssignment{
		{ID: 100, VoyageID: 1, SeatID: 1, PassengerID: 11},
		{ID: 101, VoyageID: 1, SeatID: 2, PassengerID: 12},
	}
	f := newAllocatorFixture(t, twoRowBus(), reservations, passengers, existing)

	result, err := f.service.AutoAssign(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Assigned)
	assert.Equal(t, 2, result.Total)
	assert.Empty(t, result.ReroutedFamilies)
	assert.Empty(t, f.assignments.created)
	assert.Empty(t, f.cache.invalidated)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestAutoAssignRebalancesSoloPassenger(t *testing.T) {
	// Row 1 has four seats with a solo passenger parked in the middle;
	// row 2 only has two, so a family of four cannot fit anywhere
	// without moving the solo out of row 1.
	seats := []models.Seat{
		{ID: 1, BusID: 10, Row: 1, Col: 1}, {ID: 2, BusID: 10, Row: 1, Col: 2},
		{ID: 3, BusID: 10, Row: 1, Col: 3}, {ID: 4, BusID: 10, Row: 1, Col: 4},
		{ID: 5, BusID: 10, Row: 2, Col: 1}, {ID: 6, BusID: 10, Row: 2, Col: 2},
	}
	reservations := []models.Reservation{
		{ID: 1, VoyageID: 1, TravelerCount: 4},
		{ID: 9, VoyageID: 1, TravelerCount: 1},
	}
	passengers := []models.Passenger{
		{ID: 11, ReservationID: 1}, {ID: 12, ReservationID: 1},
		{ID: 13, ReservationID: 1}, {ID: 14, ReservationID: 1},
		{ID: 91, ReservationID: 9},
	}
	existing := []models.SeatAssignment{
		{ID: 100, VoyageID: 1, SeatID: 2, PassengerID: 91},
	}
	f := newAllocatorFixture(t, seats, reservations, passengers, existing)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	result, err := f.service.AutoAssign(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 4, result.Assigned)
	assert.Empty(t, result.ReroutedFamilies)

	require.Len(t, f.assignments.relocations, 1)
	assert.Equal(t, int64(100), f.assignments.relocations[0].assignmentID)
	assert.Equal(t, int64(5), f.assignments.relocations[0].newSeatID)

	require.Len(t, f.assignments.created, 1)
	block := f.assignments.created[0]
	require.Len(t, block, 4)
	assert.Equal(t, int64(1), block[0].SeatID)
	assert.Equal(t, int64(4), block[3].SeatID)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestAutoAssignNeverSplitsSeatedGroups(t *testing.T) {
	// The pair seated mid-row belongs to a two-passenger reservation,
	// so it is not movable and the family of three must be rerouted.
	seats := []models.Seat{
		{ID: 1, BusID: 10, Row: 1, Col: 1}, {ID: 2, BusID: 10, Row: 1, Col: 2},
		{ID: 3, BusID: 10, Row: 1, Col: 3}, {ID: 4, BusID: 10, Row: 1, Col: 4},
		{ID: 5, BusID: 10, Row: 2, Col: 1}, {ID: 6, BusID: 10, Row: 2, Col: 2},
	}
	reservations := []models.Reservation{
		{ID: 1, VoyageID: 1, TravelerCount: 3},
		{ID: 8, VoyageID: 1, TravelerCount: 2},
	}
	passengers := []models.Passenger{
		{ID: 11, ReservationID: 1}, {ID: 12, ReservationID: 1}, {ID: 13, ReservationID: 1},
		{ID: 81, ReservationID: 8}, {ID: 82, ReservationID: 8},
	}
	existing := []models.SeatAssignment{
		{ID: 100, VoyageID: 1, SeatID: 2, PassengerID: 81},
		{ID: 101, VoyageID: 1, SeatID: 3, PassengerID: 82},
	}
	f := newAllocatorFixture(t, seats, reservations, passengers, existing)

	result, err := f.service.AutoAssign(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Assigned)
	require.Len(t, result.ReroutedFamilies, 1)
	assert.Equal(t, int64(1), result.ReroutedFamilies[0].ReservationID)
	assert.Equal(t, 3, result.ReroutedFamilies[0].Size)
	assert.Empty(t, f.assignments.relocations)
	assert.Equal(t, 1, f.observer.familiesRerouted)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestAutoAssignReroutesUnpackableFamily(t *testing.T) {
	reservations := []models.Reservation{
		{ID: 1, VoyageID: 1, TravelerCount: 5},
		{ID: 2, VoyageID: 1, TravelerCount: 2},
	}
	passengers := []models.Passenger{
		{ID: 11, ReservationID: 1}, {ID: 12, ReservationID: 1}, {ID: 13, ReservationID: 1},
		{ID: 14, ReservationID: 1}, {ID: 15, ReservationID: 1},
		{ID: 21, ReservationID: 2}, {ID: 22, ReservationID: 2},
	}
	f := newAllocatorFixture(t, twoRowBus(), reservations, passengers, nil)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	result, err := f.service.AutoAssign(context.Background(), 1)
	require.NoError(t, err)

	// Five seats never fit a four-wide row; the pair still gets seated.
	assert.Equal(t, 2, result.Assigned)
	assert.Equal(t, 7, result.Total)
	require.Len(t, result.ReroutedFamilies, 1)
	assert.Equal(t, int64(1), result.ReroutedFamilies[0].ReservationID)
	assert.Equal(t, 5, result.ReroutedFamilies[0].Size)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestAutoAssignConflictRollsBack(t *testing.T) {
	reservations := []models.Reservation{{ID: 1, VoyageID: 1, TravelerCount: 2}}
	passengers := []models.Passenger{
		{ID: 11, ReservationID: 1}, {ID: 12, ReservationID: 1},
	}
	f := newAllocatorFixture(t, twoRowBus(), reservations, passengers, nil)
	f.assignments.createErr = &pq.Error{Code: "23505"}
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	_, err := f.service.AutoAssign(context.Background(), 1)
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Empty(t, f.cache.invalidated)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}
