package dto

// PassengerInput optionally names a traveler and records preferences.
type PassengerInput struct {
	FullName    string  `json:"fullName"`
	PrefWindow  bool    `json:"prefWindow"`
	PrefAisle   bool    `json:"prefAisle"`
	PrefSection *string `json:"prefSection"`
}

// CreateReservationRequest books travelers onto a voyage. When the
// passengers list is shorter than travelerCount the remaining rows are
// created as unnamed placeholders by the expansion step.
type CreateReservationRequest struct {
	VoyageID      int64            `json:"voyageId" validate:"required,gt=0"`
	ClientName    string           `json:"clientName" validate:"required"`
	ClientEmail   string           `json:"clientEmail" validate:"required,email"`
	TravelerCount int              `json:"travelerCount" validate:"required,min=1"`
	Passengers    []PassengerInput `json:"passengers" validate:"omitempty,dive"`
}
