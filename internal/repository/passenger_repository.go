package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/Kedesh11/oka-transport-api/internal/models"
)

// PassengerRepository persists traveler rows owned by reservations.
type PassengerRepository struct {
	db *sqlx.DB
}

// NewPassengerRepository constructs the repository.
func NewPassengerRepository(db *sqlx.DB) *PassengerRepository {
	return &PassengerRepository{db: db}
}

// ListByReservationIDs returns all passengers of the given reservations
// ordered by id.
func (r *PassengerRepository) ListByReservationIDs(ctx context.Context, reservationIDs []int64) ([]models.Passenger, error) {
	if len(reservationIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT id, reservation_id, full_name, pref_window, pref_aisle, pref_section
FROM passengers WHERE reservation_id IN (?) ORDER BY id ASC`, reservationIDs)
	if err != nil {
		return nil, fmt.Errorf("build passenger query: %w", err)
	}
	query = r.db.Rebind(query)
	var passengers []models.Passenger
	if err := r.db.SelectContext(ctx, &passengers, query, args...); err != nil {
		return nil, fmt.Errorf("list passengers: %w", err)
	}
	return passengers, nil
}

// CountByReservation returns the passenger-row count for a reservation.
func (r *PassengerRepository) CountByReservation(ctx context.Context, reservationID int64) (int, error) {
	const query = `SELECT COUNT(*) FROM passengers WHERE reservation_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, reservationID); err != nil {
		return 0, fmt.Errorf("count passengers: %w", err)
	}
	return count, nil
}

// ReplaceForReservation deletes and recreates the reservation's
// passenger rows in one transaction. Cascades remove any seat
// assignments held by the deleted rows.
func (r *PassengerRepository) ReplaceForReservation(ctx context.Context, reservationID int64, passengers []models.Passenger) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin passenger replace: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM passengers WHERE reservation_id = $1`, reservationID); err != nil {
		return fmt.Errorf("clear passengers: %w", err)
	}

	const insert = `INSERT INTO passengers (reservation_id, full_name, pref_window, pref_aisle, pref_section)
		VALUES (:reservation_id, :full_name, :pref_window, :pref_aisle, :pref_section)`
	for i := range passengers {
		passengers[i].ReservationID = reservationID
		if _, err = tx.NamedExecContext(ctx, insert, passengers[i]); err != nil {
			return fmt.Errorf("insert passenger: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit passenger replace: %w", err)
	}
	return nil
}

// ExpandRows resizes the reservation's passenger rows to travelerCount.
// It is idempotent: a matching count leaves the rows untouched,
// otherwise all rows are deleted and recreated as placeholders.
func (r *PassengerRepository) ExpandRows(ctx context.Context, reservationID int64, travelerCount int) error {
	count, err := r.CountByReservation(ctx, reservationID)
	if err != nil {
		return err
	}
	if count == travelerCount {
		return nil
	}
	placeholders := make([]models.Passenger, travelerCount)
	for i := range placeholders {
		placeholders[i] = models.Passenger{
			ReservationID: reservationID,
			FullName:      fmt.Sprintf("Passenger %d", i+1),
		}
	}
	return r.ReplaceForReservation(ctx, reservationID, placeholders)
}
