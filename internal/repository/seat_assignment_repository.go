package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Kedesh11/oka-transport-api/internal/models"
)

// SeatAssignmentPair couples a seat with a passenger for batch creation.
type SeatAssignmentPair struct {
	SeatID      int64
	PassengerID int64
}

// SeatAssignmentRepository persists (voyage, seat, passenger) facts.
// Unique constraints on (voyage_id, seat_id) and
// (voyage_id, passenger_id) back the engine's invariants.
type SeatAssignmentRepository struct {
	db *sqlx.DB
}

// NewSeatAssignmentRepository constructs the repository.
func NewSeatAssignmentRepository(db *sqlx.DB) *SeatAssignmentRepository {
	return &SeatAssignmentRepository{db: db}
}

// ListByVoyage returns all assignments of the voyage ordered by id.
func (r *SeatAssignmentRepository) ListByVoyage(ctx context.Context, voyageID int64) ([]models.SeatAssignment, error) {
	const query = `SELECT id, voyage_id, seat_id, passenger_id, created_at
FROM seat_assignments
WHERE voyage_id = $1
ORDER BY id ASC`
	var assignments []models.SeatAssignment
	if err := r.db.SelectContext(ctx, &assignments, query, voyageID); err != nil {
		return nil, fmt.Errorf("list seat assignments: %w", err)
	}
	return assignments, nil
}

// CreateBatch inserts one assignment per pair using the caller's
// transaction. The caller decides the atomicity boundary (one family or
// one proposal batch).
func (r *SeatAssignmentRepository) CreateBatch(ctx context.Context, exec sqlx.ExtContext, voyageID int64, pairs []SeatAssignmentPair) error {
	if len(pairs) == 0 {
		return nil
	}
	const query = `INSERT INTO seat_assignments (voyage_id, seat_id, passenger_id, created_at)
		VALUES ($1, $2, $3, $4)`
	now := time.Now().UTC()
	for _, pair := range pairs {
		if _, err := exec.ExecContext(ctx, query, voyageID, pair.SeatID, pair.PassengerID, now); err != nil {
			return fmt.Errorf("create seat assignment: %w", err)
		}
	}
	return nil
}

// Relocate moves an existing assignment onto a new seat.
func (r *SeatAssignmentRepository) Relocate(ctx context.Context, exec sqlx.ExtContext, assignmentID, newSeatID int64) error {
	const query = `UPDATE seat_assignments SET seat_id = $1 WHERE id = $2`
	result, err := exec.ExecContext(ctx, query, newSeatID, assignmentID)
	if err != nil {
		return fmt.Errorf("relocate seat assignment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check relocated assignment rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteByVoyageAndPassenger revokes a passenger's assignment on the
// voyage.
func (r *SeatAssignmentRepository) DeleteByVoyageAndPassenger(ctx context.Context, voyageID, passengerID int64) error {
	const query = `DELETE FROM seat_assignments WHERE voyage_id = $1 AND passenger_id = $2`
	result, err := r.db.ExecContext(ctx, query, voyageID, passengerID)
	if err != nil {
		return fmt.Errorf("delete seat assignment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check deleted assignment rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
