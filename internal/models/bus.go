package models

import "time"

// Bus is one vehicle of the fleet. Its seat collection is immutable
// except through a full replace (SetSeats).
type Bus struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Capacity    int       `db:"capacity" json:"capacity"`
	SeatsPerRow int       `db:"seats_per_row" json:"seatsPerRow"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

// Seat is the unit of assignment. Row and Col are 1-based; Col is
// unique within its row for a given bus.
type Seat struct {
	ID       int64   `db:"id" json:"id"`
	BusID    int64   `db:"bus_id" json:"busId"`
	Row      int     `db:"row" json:"row"`
	Col      int     `db:"col" json:"col"`
	Label    string  `db:"label" json:"label"`
	IsWindow bool    `db:"is_window" json:"isWindow"`
	IsAisle  bool    `db:"is_aisle" json:"isAisle"`
	Section  *string `db:"section" json:"section,omitempty"`
}
