package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Kedesh11/oka-transport-api/internal/models"
)

// ReservationRepository persists client bookings.
type ReservationRepository struct {
	db *sqlx.DB
}

// NewReservationRepository constructs the repository.
func NewReservationRepository(db *sqlx.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

// FindByID loads one reservation.
func (r *ReservationRepository) FindByID(ctx context.Context, id int64) (*models.Reservation, error) {
	const query = `SELECT id, client_name, client_email, voyage_id, traveler_count, status, created_at, updated_at
FROM reservations WHERE id = $1`
	var reservation models.Reservation
	if err := r.db.GetContext(ctx, &reservation, query, id); err != nil {
		return nil, err
	}
	return &reservation, nil
}

// ListByVoyage returns all reservations attached to the voyage.
func (r *ReservationRepository) ListByVoyage(ctx context.Context, voyageID int64) ([]models.Reservation, error) {
	const query = `SELECT id, client_name, client_email, voyage_id, traveler_count, status, created_at, updated_at
FROM reservations
WHERE voyage_id = $1
ORDER BY id ASC`
	var reservations []models.Reservation
	if err := r.db.SelectContext(ctx, &reservations, query, voyageID); err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	return reservations, nil
}

// Create inserts a new reservation and populates its id.
func (r *ReservationRepository) Create(ctx context.Context, reservation *models.Reservation) error {
	now := time.Now().UTC()
	if reservation.CreatedAt.IsZero() {
		reservation.CreatedAt = now
	}
	reservation.UpdatedAt = now
	if reservation.Status == "" {
		reservation.Status = models.ReservationStatusPending
	}
	const query = `INSERT INTO reservations (client_name, client_email, voyage_id, traveler_count, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	if err := r.db.GetContext(ctx, &reservation.ID, query,
		reservation.ClientName, reservation.ClientEmail, reservation.VoyageID,
		reservation.TravelerCount, reservation.Status, reservation.CreatedAt, reservation.UpdatedAt); err != nil {
		return fmt.Errorf("create reservation: %w", err)
	}
	return nil
}

// Delete removes a reservation. Passenger rows and their seat
// assignments cascade through foreign keys.
func (r *ReservationRepository) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM reservations WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete reservation: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check deleted reservation rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
