package models

import "time"

// Voyage statuses.
const (
	VoyageStatusScheduled = "SCHEDULED"
	VoyageStatusDeparted  = "DEPARTED"
	VoyageStatusCancelled = "CANCELLED"
)

// Voyage is one scheduled operation of a route by a specific bus on a
// specific date.
type Voyage struct {
	ID            int64     `db:"id" json:"id"`
	BusID         int64     `db:"bus_id" json:"busId"`
	RouteID       int64     `db:"route_id" json:"routeId"`
	DepartureDate time.Time `db:"departure_date" json:"departureDate"`
	Status        string    `db:"status" json:"status"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
}
