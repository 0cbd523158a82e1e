package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/Kedesh11/oka-transport-api/internal/models"
)

// SeatRepository persists bus seat layouts.
type SeatRepository struct {
	db *sqlx.DB
}

// NewSeatRepository constructs the repository.
func NewSeatRepository(db *sqlx.DB) *SeatRepository {
	return &SeatRepository{db: db}
}

// ListByBus returns the bus seats ordered by row then column.
func (r *SeatRepository) ListByBus(ctx context.Context, busID int64) ([]models.Seat, error) {
	const query = `SELECT id, bus_id, row, col, label, is_window, is_aisle, section
FROM seats
WHERE bus_id = $1
ORDER BY row ASC, col ASC`
	var seats []models.Seat
	if err := r.db.SelectContext(ctx, &seats, query, busID); err != nil {
		return nil, fmt.Errorf("list seats: %w", err)
	}
	return seats, nil
}

// CountByBus returns the number of seats defined for the bus.
func (r *SeatRepository) CountByBus(ctx context.Context, busID int64) (int, error) {
	const query = `SELECT COUNT(*) FROM seats WHERE bus_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, busID); err != nil {
		return 0, fmt.Errorf("count seats: %w", err)
	}
	return count, nil
}

// ReplaceForBus deletes the previous layout and inserts the new one in
// a single transaction. Seats are the unit of assignment, so a partial
// replace must never be observable.
func (r *SeatRepository) ReplaceForBus(ctx context.Context, busID int64, seats []models.Seat) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seat replace: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM seats WHERE bus_id = $1`, busID); err != nil {
		return fmt.Errorf("clear seats: %w", err)
	}

	const insert = `INSERT INTO seats (bus_id, row, col, label, is_window, is_aisle, section)
		VALUES (:bus_id, :row, :col, :label, :is_window, :is_aisle, :section)`
	for i := range seats {
		seats[i].BusID = busID
		if _, err = tx.NamedExecContext(ctx, insert, seats[i]); err != nil {
			return fmt.Errorf("insert seat %s: %w", seats[i].Label, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit seat replace: %w", err)
	}
	return nil
}
