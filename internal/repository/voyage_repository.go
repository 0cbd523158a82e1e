package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Kedesh11/oka-transport-api/internal/models"
)

// VoyageRepository persists scheduled trips.
type VoyageRepository struct {
	db *sqlx.DB
}

// NewVoyageRepository constructs the repository.
func NewVoyageRepository(db *sqlx.DB) *VoyageRepository {
	return &VoyageRepository{db: db}
}

// FindByID loads one voyage.
func (r *VoyageRepository) FindByID(ctx context.Context, id int64) (*models.Voyage, error) {
	const query = `SELECT id, bus_id, route_id, departure_date, status, created_at FROM voyages WHERE id = $1`
	var voyage models.Voyage
	if err := r.db.GetContext(ctx, &voyage, query, id); err != nil {
		return nil, err
	}
	return &voyage, nil
}

// ListByRoute returns voyages of a route ordered by departure date.
func (r *VoyageRepository) ListByRoute(ctx context.Context, routeID int64) ([]models.Voyage, error) {
	const query = `SELECT id, bus_id, route_id, departure_date, status, created_at
FROM voyages
WHERE route_id = $1
ORDER BY departure_date ASC`
	var voyages []models.Voyage
	if err := r.db.SelectContext(ctx, &voyages, query, routeID); err != nil {
		return nil, fmt.Errorf("list voyages: %w", err)
	}
	return voyages, nil
}

// Create inserts a new voyage and populates its id.
func (r *VoyageRepository) Create(ctx context.Context, voyage *models.Voyage) error {
	if voyage.Status == "" {
		voyage.Status = models.VoyageStatusScheduled
	}
	if voyage.CreatedAt.IsZero() {
		voyage.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO voyages (bus_id, route_id, departure_date, status, created_at)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`
	if err := r.db.GetContext(ctx, &voyage.ID, query, voyage.BusID, voyage.RouteID, voyage.DepartureDate, voyage.Status, voyage.CreatedAt); err != nil {
		return fmt.Errorf("create voyage: %w", err)
	}
	return nil
}
