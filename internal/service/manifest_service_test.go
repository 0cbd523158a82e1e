package service

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kedesh11/oka-transport-api/internal/dto"
	"github.com/Kedesh11/oka-transport-api/internal/models"
	"github.com/Kedesh11/oka-transport-api/internal/repository"
	appErrors "github.com/Kedesh11/oka-transport-api/pkg/errors"
	"github.com/Kedesh11/oka-transport-api/pkg/jobs"
	"github.com/Kedesh11/oka-transport-api/pkg/storage"
)

type manifestJobStoreStub struct {
	jobs      map[string]*models.ManifestJob
	createErr error
	nextID    int
}

func newManifestJobStoreStub() *manifestJobStoreStub {
	return &manifestJobStoreStub{jobs: make(map[string]*models.ManifestJob)}
}

func (s *manifestJobStoreStub) Create(ctx context.Context, job *models.ManifestJob) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.nextID++
	job.ID = fmt.Sprintf("job-%d", s.nextID)
	job.CreatedAt = time.Now().UTC()
	copied := *job
	s.jobs[job.ID] = &copied
	return nil
}

func (s *manifestJobStoreStub) GetByID(ctx context.Context, id string) (*models.ManifestJob, error) {
	job, ok := s.jobs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *job
	return &copied, nil
}

func (s *manifestJobStoreStub) Update(ctx context.Context, id string, params repository.UpdateManifestJobParams) error {
	job, ok := s.jobs[id]
	if !ok {
		return sql.ErrNoRows
	}
	if params.Status != nil {
		job.Status = *params.Status
	}
	if params.FilePath != nil {
		job.FilePath = params.FilePath
	}
	if params.ErrorMessage != nil {
		job.ErrorMessage = params.ErrorMessage
	}
	if params.FinishedAt != nil {
		job.FinishedAt = params.FinishedAt
	}
	return nil
}

type dispatcherStub struct {
	enqueued []jobs.Job
	err      error
}

func (s *dispatcherStub) Enqueue(job jobs.Job) error {
	if s.err != nil {
		return s.err
	}
	s.enqueued = append(s.enqueued, job)
	return nil
}

func newManifestStorage(t *testing.T) *storage.LocalStorage {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestManifestCreateJobEnqueues(t *testing.T) {
	store := newManifestJobStoreStub()
	dispatcher := &dispatcherStub{}
	svc := NewManifestService(
		store,
		voyageReaderStub{voyage: &models.Voyage{ID: 1, BusID: 10}},
		dispatcher,
		newManifestStorage(t),
		storage.NewSignedURLSigner("secret", time.Hour),
		nil,
		nil,
	)

	resp, err := svc.CreateJob(context.Background(), 1, dto.ManifestRequest{Format: models.ManifestFormatCSV}, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, models.ManifestStatusQueued, resp.Status)
	require.Len(t, dispatcher.enqueued, 1)
	assert.Equal(t, resp.ID, dispatcher.enqueued[0].ID)
}

func TestManifestCreateJobUnknownVoyage(t *testing.T) {
	svc := NewManifestService(
		newManifestJobStoreStub(),
		voyageReaderStub{err: sql.ErrNoRows},
		&dispatcherStub{},
		newManifestStorage(t),
		storage.NewSignedURLSigner("secret", time.Hour),
		nil,
		nil,
	)

	_, err := svc.CreateJob(context.Background(), 99, dto.ManifestRequest{Format: models.ManifestFormatCSV}, "admin-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrVoyageNotFound.Code, appErrors.FromError(err).Code)
}

func TestManifestCreateJobEnqueueFailureMarksFailed(t *testing.T) {
	store := newManifestJobStoreStub()
	svc := NewManifestService(
		store,
		voyageReaderStub{voyage: &models.Voyage{ID: 1, BusID: 10}},
		&dispatcherStub{err: errors.New("queue full")},
		newManifestStorage(t),
		storage.NewSignedURLSigner("secret", time.Hour),
		nil,
		nil,
	)

	_, err := svc.CreateJob(context.Background(), 1, dto.ManifestRequest{Format: models.ManifestFormatCSV}, "admin-1")
	require.Error(t, err)
	require.Len(t, store.jobs, 1)
	for _, job := range store.jobs {
		assert.Equal(t, models.ManifestStatusFailed, job.Status)
		require.NotNil(t, job.FinishedAt)
	}
}

func TestManifestWorkerRendersCSVAndSignsDownload(t *testing.T) {
	store := newManifestJobStoreStub()
	fileStore := newManifestStorage(t)
	signer := storage.NewSignedURLSigner("secret", time.Hour)

	voyage := &models.Voyage{ID: 7, BusID: 10, DepartureDate: time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)}
	seats := []models.Seat{
		{ID: 1, BusID: 10, Row: 1, Col: 1, Label: "1A"},
		{ID: 2, BusID: 10, Row: 1, Col: 2, Label: "1B"},
	}
	reservations := []models.Reservation{
		{ID: 20, VoyageID: 7, TravelerCount: 2, Status: "CONFIRMED"},
	}
	passengers := []models.Passenger{
		{ID: 30, ReservationID: 20, FullName: "Awa Ndong"},
		{ID: 31, ReservationID: 20, FullName: "Brice Ndong"},
	}
	assignments := []models.SeatAssignment{
		{ID: 40, VoyageID: 7, SeatID: 1, PassengerID: 30},
	}

	worker := NewManifestWorker(
		store,
		voyageReaderStub{voyage: voyage},
		seatListerStub{seats: seats},
		reservationListerStub{reservations: reservations},
		&passengerStoreStub{passengers: passengers},
		&assignmentStoreStub{existing: assignments},
		fileStore,
		nil,
		3,
		nil,
	)

	job := &models.ManifestJob{VoyageID: 7, Format: models.ManifestFormatCSV, Status: models.ManifestStatusQueued, CreatedBy: "admin-1"}
	require.NoError(t, store.Create(context.Background(), job))
	require.NoError(t, worker.Handle(context.Background(), jobs.Job{ID: job.ID, Attempt: 1}))

	svc := NewManifestService(store, voyageReaderStub{voyage: voyage}, &dispatcherStub{}, fileStore, signer, nil, nil)

	status, err := svc.GetStatus(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ManifestStatusDone, status.Status)
	require.NotEmpty(t, status.DownloadToken)

	download, err := svc.ResolveDownload(context.Background(), status.DownloadToken)
	require.NoError(t, err)
	defer download.File.Close()
	assert.Equal(t, models.ManifestFormatCSV, download.Format)

	records, err := csv.NewReader(download.File).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"Seat", "Passenger", "Reservation", "Status"}, records[0])
	assert.Equal(t, []string{"1A", "Awa Ndong", "20", "CONFIRMED"}, records[1])
	// unseated passengers sort after seated ones
	assert.Equal(t, []string{"-", "Brice Ndong", "20", "CONFIRMED"}, records[2])
}

func TestManifestWorkerRetriesThenFails(t *testing.T) {
	store := newManifestJobStoreStub()
	worker := NewManifestWorker(
		store,
		voyageReaderStub{err: errors.New("db down")},
		seatListerStub{},
		reservationListerStub{},
		&passengerStoreStub{},
		&assignmentStoreStub{},
		newManifestStorage(t),
		nil,
		2,
		nil,
	)

	job := &models.ManifestJob{VoyageID: 7, Format: models.ManifestFormatCSV, Status: models.ManifestStatusQueued}
	require.NoError(t, store.Create(context.Background(), job))

	require.Error(t, worker.Handle(context.Background(), jobs.Job{ID: job.ID, Attempt: 1}))
	requeued, err := store.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ManifestStatusQueued, requeued.Status)

	require.Error(t, worker.Handle(context.Background(), jobs.Job{ID: job.ID, Attempt: 2}))
	failed, err := store.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ManifestStatusFailed, failed.Status)
	require.NotNil(t, failed.FinishedAt)
}
