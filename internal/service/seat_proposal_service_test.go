package service

import (
	"context"
	"errors"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kedesh11/oka-transport-api/internal/dto"
	"github.com/Kedesh11/oka-transport-api/internal/models"
	appErrors "github.com/Kedesh11/oka-transport-api/pkg/errors"
)

type recommenderStub struct {
	proposals []dto.SeatProposal
	err       error
	snapshots []dto.VoyageSnapshot
}

func (s *recommenderStub) ProposeAssignments(ctx context.Context, input dto.VoyageSnapshot) ([]dto.SeatProposal, error) {
	s.snapshots = append(s.snapshots, input)
	if s.err != nil {
		return nil, s.err
	}
	return s.proposals, nil
}

type proposalFixture struct {
	service     *SeatProposalService
	recommender *recommenderStub
	assignments *assignmentStoreStub
	cache       *cacheInvalidatorStub
	observer    *observerStub
	mock        sqlmock.Sqlmock
}

func newProposalFixture(t *testing.T, rec *recommenderStub, seats []models.Seat, reservations []models.Reservation, passengers []models.Passenger, existing []models.SeatAssignment) *proposalFixture {
	txProvider, mock := newTxProviderMock(t)
	assignmentStore := &assignmentStoreStub{existing: existing}
	cache := &cacheInvalidatorStub{}
	observer := &observerStub{}

	var svc *SeatProposalService
	if rec != nil {
		svc = NewSeatProposalService(
			voyageReaderStub{voyage: &models.Voyage{ID: 1, BusID: 10}},
			seatListerStub{seats: seats},
			reservationListerStub{reservations: reservations},
			&passengerStoreStub{passengers: passengers},
			assignmentStore, rec, txProvider, cache, observer, nil, nil,
		)
	} else {
		svc = NewSeatProposalService(
			voyageReaderStub{voyage: &models.Voyage{ID: 1, BusID: 10}},
			seatListerStub{seats: seats},
			reservationListerStub{reservations: reservations},
			&passengerStoreStub{passengers: passengers},
			assignmentStore, nil, txProvider, cache, observer, nil, nil,
		)
	}
	return &proposalFixture{
		service:     svc,
		recommender: rec,
		assignments: assignmentStore,
		cache:       cache,
		observer:    observer,
		mock:        mock,
	}
}

func TestPreviewRequiresRecommender(t *testing.T) {
	f := newProposalFixture(t, nil, twoRowBus(), nil, nil, nil)

	_, err := f.service.Preview(context.Background(), 1)
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErr.Code)
}

func TestPreviewSendsOnlyUnassignedPassengers(t *testing.T) {
	rec := &recommenderStub{proposals: []dto.SeatProposal{
		{VoyageID: 1, SeatID: 3, PassengerID: 12},
	}}
	reservations := []models.Reservation{{ID: 1, VoyageID: 1, TravelerCount: 2}}
	passengers := []models.Passenger{
		{ID: 11, ReservationID: 1}, {ID: 12, ReservationID: 1},
	}
	existing := []models.SeatAssignment{
		{ID: 100, VoyageID: 1, SeatID: 1, PassengerID: 11},
	}
	f := newProposalFixture(t, rec, twoRowBus(), reservations, passengers, existing)

	proposals, err := f.service.Preview(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, proposals, 1)

	require.Len(t, rec.snapshots, 1)
	snapshot := rec.snapshots[0]
	assert.Len(t, snapshot.Seats, 8)
	require.Len(t, snapshot.Passengers, 1, "seated passengers stay out of the snapshot")
	assert.Equal(t, int64(12), snapshot.Passengers[0].PassengerID)
	for _, seat := range snapshot.Seats {
		if seat.SeatID == 1 {
			assert.True(t, seat.Taken)
		}
	}
}

func TestValidateAndFilterRejectsMalformedBatch(t *testing.T) {
	f := newProposalFixture(t, nil, twoRowBus(), nil, nil, nil)

	_, err := f.service.ValidateAndFilter(context.Background(), 1, []dto.SeatProposal{
		{VoyageID: 1, SeatID: 2, PassengerID: 11},
		{VoyageID: 1, SeatID: 0, PassengerID: 12},
	})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrInvalidProposalShape.Code, appErr.Code)
}

func TestValidateAndFilterDropsConflictsAndDuplicates(t *testing.T) {
	reservations := []models.Reservation{{ID: 1, VoyageID: 1, TravelerCount: 3}}
	passengers := []models.Passenger{
		{ID: 11, ReservationID: 1}, {ID: 12, ReservationID: 1}, {ID: 13, ReservationID: 1},
	}
	existing := []models.SeatAssignment{
		{ID: 100, VoyageID: 1, SeatID: 4, PassengerID: 13},
	}
	f := newProposalFixture(t, nil, twoRowBus(), reservations, passengers, existing)

	survivors, err := f.service.ValidateAndFilter(context.Background(), 1, []dto.SeatProposal{
		{VoyageID: 2, SeatID: 1, PassengerID: 11},  // foreign voyage
		{VoyageID: 1, SeatID: 1, PassengerID: 11},  // ok
		{VoyageID: 1, SeatID: 1, PassengerID: 12},  // duplicate seat
		{VoyageID: 1, SeatID: 2, PassengerID: 11},  // duplicate passenger
		{VoyageID: 1, SeatID: 4, PassengerID: 12},  // seat already taken
		{VoyageID: 1, SeatID: 3, PassengerID: 13},  // passenger already seated
		{VoyageID: 1, SeatID: 99, PassengerID: 12}, // seat not on this bus
	})
	require.NoError(t, err)
	require.Len(t, survivors, 1)
	assert.Equal(t, int64(1), survivors[0].SeatID)
	assert.Equal(t, int64(11), survivors[0].PassengerID)
	assert.Equal(t, 6, f.observer.proposalsFiltered)
}

func TestApplyPersistsSurvivorsOnly(t *testing.T) {
	reservations := []models.Reservation{{ID: 1, VoyageID: 1, TravelerCount: 2}}
	passengers := []models.Passenger{
		{ID: 11, ReservationID: 1}, {ID: 12, ReservationID: 1},
	}
	existing := []models.SeatAssignment{
		{ID: 100, VoyageID: 1, SeatID: 2, PassengerID: 12},
	}
	f := newProposalFixture(t, nil, twoRowBus(), reservations, passengers, existing)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	result, err := f.service.Apply(context.Background(), 1, []dto.SeatProposal{
		{VoyageID: 1, SeatID: 1, PassengerID: 11},
		{VoyageID: 1, SeatID: 2, PassengerID: 12}, // conflicts with the existing assignment
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Applied)
	assert.Equal(t, 2, result.Total)

	require.Len(t, f.assignments.created, 1)
	require.Len(t, f.assignments.created[0], 1)
	assert.Equal(t, int64(1), f.assignments.created[0][0].SeatID)
	assert.Equal(t, []int64{1}, f.cache.invalidated)
	assert.Equal(t, 1, f.observer.proposalsApplied)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestApplyWithNoSurvivorsIsANoOp(t *testing.T) {
	reservations := []models.Reservation{{ID: 1, VoyageID: 1, TravelerCount: 1}}
	passengers := []models.Passenger{{ID: 11, ReservationID: 1}}
	existing := []models.SeatAssignment{
		{ID: 100, VoyageID: 1, SeatID: 1, PassengerID: 11},
	}
	f := newProposalFixture(t, nil, twoRowBus(), reservations, passengers, existing)

	result, err := f.service.Apply(context.Background(), 1, []dto.SeatProposal{
		{VoyageID: 1, SeatID: 2, PassengerID: 11},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Applied)
	assert.Equal(t, 1, result.Total)
	assert.Empty(t, f.assignments.created)
	assert.Empty(t, f.cache.invalidated)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestApplySurfacesUniqueViolationAsConflict(t *testing.T) {
	reservations := []models.Reservation{{ID: 1, VoyageID: 1, TravelerCount: 1}}
	passengers := []models.Passenger{{ID: 11, ReservationID: 1}}
	f := newProposalFixture(t, nil, twoRowBus(), reservations, passengers, nil)
	f.assignments.createErr = &pq.Error{Code: "23505"}
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	_, err := f.service.Apply(context.Background(), 1, []dto.SeatProposal{
		{VoyageID: 1, SeatID: 1, PassengerID: 11},
	})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}
