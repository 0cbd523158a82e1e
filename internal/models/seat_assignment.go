package models

import "time"

// SeatAssignment binds (voyage, seat, passenger). Per voyage a seat
// appears at most once and a passenger appears at most once; both are
// backed by unique constraints in the store.
type SeatAssignment struct {
	ID          int64     `db:"id" json:"id"`
	VoyageID    int64     `db:"voyage_id" json:"voyageId"`
	SeatID      int64     `db:"seat_id" json:"seatId"`
	PassengerID int64     `db:"passenger_id" json:"passengerId"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}
