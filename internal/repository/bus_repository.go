package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Kedesh11/oka-transport-api/internal/models"
)

// BusRepository persists fleet vehicles.
type BusRepository struct {
	db *sqlx.DB
}

// NewBusRepository constructs the repository.
func NewBusRepository(db *sqlx.DB) *BusRepository {
	return &BusRepository{db: db}
}

// FindByID loads one bus.
func (r *BusRepository) FindByID(ctx context.Context, id int64) (*models.Bus, error) {
	const query = `SELECT id, name, capacity, seats_per_row, created_at, updated_at FROM buses WHERE id = $1`
	var bus models.Bus
	if err := r.db.GetContext(ctx, &bus, query, id); err != nil {
		return nil, err
	}
	return &bus, nil
}

// List returns all buses ordered by name.
func (r *BusRepository) List(ctx context.Context) ([]models.Bus, error) {
	const query = `SELECT id, name, capacity, seats_per_row, created_at, updated_at FROM buses ORDER BY name ASC`
	var buses []models.Bus
	if err := r.db.SelectContext(ctx, &buses, query); err != nil {
		return nil, fmt.Errorf("list buses: %w", err)
	}
	return buses, nil
}

// Create inserts a new bus and populates its id.
func (r *BusRepository) Create(ctx context.Context, bus *models.Bus) error {
	now := time.Now().UTC()
	if bus.CreatedAt.IsZero() {
		bus.CreatedAt = now
	}
	bus.UpdatedAt = now
	const query = `INSERT INTO buses (name, capacity, seats_per_row, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`
	if err := r.db.GetContext(ctx, &bus.ID, query, bus.Name, bus.Capacity, bus.SeatsPerRow, bus.CreatedAt, bus.UpdatedAt); err != nil {
		return fmt.Errorf("create bus: %w", err)
	}
	return nil
}
