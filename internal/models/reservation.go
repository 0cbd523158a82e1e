package models

import "time"

// Reservation statuses.
const (
	ReservationStatusPending   = "PENDING"
	ReservationStatusConfirmed = "CONFIRMED"
	ReservationStatusCancelled = "CANCELLED"
)

// Reservation is one client booking for TravelerCount travelers on a
// voyage. It owns exactly TravelerCount passenger rows once expansion
// has run.
type Reservation struct {
	ID            int64     `db:"id" json:"id"`
	ClientName    string    `db:"client_name" json:"clientName"`
	ClientEmail   string    `db:"client_email" json:"clientEmail"`
	VoyageID      int64     `db:"voyage_id" json:"voyageId"`
	TravelerCount int       `db:"traveler_count" json:"travelerCount"`
	Status        string    `db:"status" json:"status"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time `db:"updated_at" json:"updatedAt"`
}

// Passenger is one traveler belonging to exactly one reservation.
// Seating preferences are hints for the recommender, not constraints.
type Passenger struct {
	ID            int64   `db:"id" json:"id"`
	ReservationID int64   `db:"reservation_id" json:"reservationId"`
	FullName      string  `db:"full_name" json:"fullName"`
	PrefWindow    bool    `db:"pref_window" json:"prefWindow"`
	PrefAisle     bool    `db:"pref_aisle" json:"prefAisle"`
	PrefSection   *string `db:"pref_section" json:"prefSection,omitempty"`
}
