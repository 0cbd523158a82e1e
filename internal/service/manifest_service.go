package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/Kedesh11/oka-transport-api/internal/dto"
	"github.com/Kedesh11/oka-transport-api/internal/models"
	"github.com/Kedesh11/oka-transport-api/internal/repository"
	appErrors "github.com/Kedesh11/oka-transport-api/pkg/errors"
	"github.com/Kedesh11/oka-transport-api/pkg/export"
	"github.com/Kedesh11/oka-transport-api/pkg/jobs"
	"github.com/Kedesh11/oka-transport-api/pkg/storage"
)

type manifestJobStore interface {
	Create(ctx context.Context, job *models.ManifestJob) error
	GetByID(ctx context.Context, id string) (*models.ManifestJob, error)
	Update(ctx context.Context, id string, params repository.UpdateManifestJobParams) error
}

type manifestDispatcher interface {
	Enqueue(job jobs.Job) error
}

// ManifestDownload aggregates resolved download data.
type ManifestDownload struct {
	File      *os.File
	Filename  string
	Format    models.ManifestFormat
	ExpiresAt time.Time
}

// ManifestService orchestrates asynchronous voyage-manifest exports.
type ManifestService struct {
	repo      manifestJobStore
	voyages   voyageReader
	queue     manifestDispatcher
	storage   *storage.LocalStorage
	signer    *storage.SignedURLSigner
	validator *validator.Validate
	logger    *zap.Logger
}

// NewManifestService wires manifest dependencies.
func NewManifestService(
	repo manifestJobStore,
	voyages voyageReader,
	queue manifestDispatcher,
	store *storage.LocalStorage,
	signer *storage.SignedURLSigner,
	validate *validator.Validate,
	logger *zap.Logger,
) *ManifestService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ManifestService{
		repo:      repo,
		voyages:   voyages,
		queue:     queue,
		storage:   store,
		signer:    signer,
		validator: validate,
		logger:    logger,
	}
}

// CreateJob validates the request, persists the job, and enqueues rendering.
func (s *ManifestService) CreateJob(ctx context.Context, voyageID int64, req dto.ManifestRequest, actorID string) (*dto.ManifestJobResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid manifest request")
	}
	if _, err := s.voyages.FindByID(ctx, voyageID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrVoyageNotFound, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load voyage")
	}

	job := &models.ManifestJob{
		VoyageID:  voyageID,
		Format:    req.Format,
		Status:    models.ManifestStatusQueued,
		CreatedBy: actorID,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create manifest job")
	}
	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: string(job.Format)}); err != nil {
		status := models.ManifestStatusFailed
		msg := "failed to enqueue job"
		now := time.Now().UTC()
		_ = s.repo.Update(ctx, job.ID, repository.UpdateManifestJobParams{
			Status:       &status,
			ErrorMessage: &msg,
			FinishedAt:   &now,
		})
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue manifest job")
	}
	return &dto.ManifestJobResponse{ID: job.ID, Status: job.Status}, nil
}

// GetStatus exposes job state and, once done, a signed download token.
func (s *ManifestService) GetStatus(ctx context.Context, id string) (*dto.ManifestStatusResponse, error) {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load manifest job")
	}
	resp := &dto.ManifestStatusResponse{
		ID:       job.ID,
		VoyageID: job.VoyageID,
		Format:   job.Format,
		Status:   job.Status,
	}
	if job.ErrorMessage != nil && *job.ErrorMessage != "" {
		resp.ErrorMessage = job.ErrorMessage
	}
	if job.Status == models.ManifestStatusDone && job.FilePath != nil {
		token, expiresAt, err := s.signer.Generate(job.ID, *job.FilePath)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download token")
		}
		resp.DownloadToken = token
		resp.ExpiresAt = &expiresAt
	}
	return resp, nil
}

// ResolveDownload validates a signed token and opens the stored manifest.
func (s *ManifestService) ResolveDownload(ctx context.Context, token string) (*ManifestDownload, error) {
	jobID, relPath, expiresAt, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load manifest job")
	}
	if job.Status != models.ManifestStatusDone || job.FilePath == nil || *job.FilePath != relPath {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "manifest not ready")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open manifest file")
	}
	return &ManifestDownload{
		File:      file,
		Filename:  filepath.Base(relPath),
		Format:    job.Format,
		ExpiresAt: expiresAt,
	}, nil
}

// ManifestWorker renders queued manifest exports.
type ManifestWorker struct {
	repo         manifestJobStore
	voyages      voyageReader
	seats        busSeatLister
	reservations reservationLister
	passengers   passengerStore
	assignments  assignmentStore
	storage      *storage.LocalStorage
	csv          *export.CSVExporter
	pdf          *export.PDFExporter
	metrics      *MetricsService
	logger       *zap.Logger
	maxRetries   int
}

// NewManifestWorker constructs a worker.
func NewManifestWorker(
	repo manifestJobStore,
	voyages voyageReader,
	seats busSeatLister,
	reservations reservationLister,
	passengers passengerStore,
	assignments assignmentStore,
	store *storage.LocalStorage,
	metrics *MetricsService,
	maxRetries int,
	logger *zap.Logger,
) *ManifestWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &ManifestWorker{
		repo:         repo,
		voyages:      voyages,
		seats:        seats,
		reservations: reservations,
		passengers:   passengers,
		assignments:  assignments,
		storage:      store,
		csv:          export.NewCSVExporter(),
		pdf:          export.NewPDFExporter(),
		metrics:      metrics,
		logger:       logger,
		maxRetries:   maxRetries,
	}
}

// Handle processes one queue job.
func (w *ManifestWorker) Handle(ctx context.Context, job jobs.Job) error {
	record, err := w.repo.GetByID(ctx, job.ID)
	if err != nil {
		return err
	}
	processing := models.ManifestStatusProcessing
	if err := w.repo.Update(ctx, job.ID, repository.UpdateManifestJobParams{Status: &processing}); err != nil {
		return err
	}

	relPath, err := w.render(ctx, record)
	if err != nil {
		msg := err.Error()
		now := time.Now().UTC()
		if job.Attempt >= w.maxRetries {
			failed := models.ManifestStatusFailed
			if updateErr := w.repo.Update(ctx, job.ID, repository.UpdateManifestJobParams{
				Status:       &failed,
				ErrorMessage: &msg,
				FinishedAt:   &now,
			}); updateErr != nil {
				w.logger.Warn("failed to mark manifest job failed", zap.String("job_id", job.ID), zap.Error(updateErr))
			}
			w.metrics.ObserveManifestJob(string(models.ManifestStatusFailed))
		} else {
			queued := models.ManifestStatusQueued
			if updateErr := w.repo.Update(ctx, job.ID, repository.UpdateManifestJobParams{
				Status:       &queued,
				ErrorMessage: &msg,
			}); updateErr != nil {
				w.logger.Warn("failed to requeue manifest job", zap.String("job_id", job.ID), zap.Error(updateErr))
			}
		}
		return err
	}

	done := models.ManifestStatusDone
	now := time.Now().UTC()
	clear := ""
	if err := w.repo.Update(ctx, job.ID, repository.UpdateManifestJobParams{
		Status:       &done,
		FilePath:     &relPath,
		ErrorMessage: &clear,
		FinishedAt:   &now,
	}); err != nil {
		w.logger.Warn("failed to mark manifest job done", zap.String("job_id", job.ID), zap.Error(err))
		return err
	}
	w.metrics.ObserveManifestJob(string(models.ManifestStatusDone))
	return nil
}

func (w *ManifestWorker) render(ctx context.Context, job *models.ManifestJob) (string, error) {
	table, title, err := w.buildTable(ctx, job.VoyageID)
	if err != nil {
		return "", err
	}

	var data []byte
	switch job.Format {
	case models.ManifestFormatCSV:
		data, err = w.csv.Render(table)
	case models.ManifestFormatPDF:
		data, err = w.pdf.Render(table, title)
	default:
		return "", fmt.Errorf("unsupported manifest format %q", job.Format)
	}
	if err != nil {
		return "", fmt.Errorf("render manifest: %w", err)
	}

	filename := fmt.Sprintf("voyage-%d-%s.%s", job.VoyageID, job.ID, job.Format)
	if _, err := w.storage.Save(filename, data); err != nil {
		return "", fmt.Errorf("store manifest: %w", err)
	}
	return filename, nil
}

// buildTable assembles the passenger roster of a voyage, one row per
// passenger, ordered by seat label then passenger name.
func (w *ManifestWorker) buildTable(ctx context.Context, voyageID int64) (export.Table, string, error) {
	voyage, err := w.voyages.FindByID(ctx, voyageID)
	if err != nil {
		return export.Table{}, "", fmt.Errorf("load voyage: %w", err)
	}
	seats, err := w.seats.ListByBus(ctx, voyage.BusID)
	if err != nil {
		return export.Table{}, "", fmt.Errorf("load seats: %w", err)
	}
	reservations, err := w.reservations.ListByVoyage(ctx, voyageID)
	if err != nil {
		return export.Table{}, "", fmt.Errorf("load reservations: %w", err)
	}
	reservationIDs := make([]int64, 0, len(reservations))
	statusByReservation := make(map[int64]string, len(reservations))
	for _, res := range reservations {
		reservationIDs = append(reservationIDs, res.ID)
		statusByReservation[res.ID] = res.Status
	}
	passengers, err := w.passengers.ListByReservationIDs(ctx, reservationIDs)
	if err != nil {
		return export.Table{}, "", fmt.Errorf("load passengers: %w", err)
	}
	assignments, err := w.assignments.ListByVoyage(ctx, voyageID)
	if err != nil {
		return export.Table{}, "", fmt.Errorf("load assignments: %w", err)
	}

	seatByID := make(map[int64]models.Seat, len(seats))
	for _, seat := range seats {
		seatByID[seat.ID] = seat
	}
	seatOfPassenger := make(map[int64]models.Seat, len(assignments))
	for _, a := range assignments {
		if seat, ok := seatByID[a.SeatID]; ok {
			seatOfPassenger[a.PassengerID] = seat
		}
	}

	rows := make([][]string, 0, len(passengers))
	for _, p := range passengers {
		seatLabel := "-"
		if seat, ok := seatOfPassenger[p.ID]; ok {
			seatLabel = seat.Label
		}
		rows = append(rows, []string{
			seatLabel,
			p.FullName,
			fmt.Sprintf("%d", p.ReservationID),
			statusByReservation[p.ReservationID],
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i][0] != rows[j][0] {
			// unseated passengers sort last
			if rows[i][0] == "-" {
				return false
			}
			if rows[j][0] == "-" {
				return true
			}
			return rows[i][0] < rows[j][0]
		}
		return rows[i][1] < rows[j][1]
	})

	table := export.Table{
		Columns: []string{"Seat", "Passenger", "Reservation", "Status"},
		Rows:    rows,
	}
	title := fmt.Sprintf("Voyage %d manifest (%s)", voyageID, voyage.DepartureDate.Format("2006-01-02"))
	return table, title, nil
}
