package dto

// CreateBusRequest registers a new vehicle.
type CreateBusRequest struct {
	Name        string `json:"name" validate:"required"`
	Capacity    int    `json:"capacity" validate:"required,min=1"`
	SeatsPerRow int    `json:"seatsPerRow" validate:"required,min=1,max=6"`
}

// SeatInput describes one seat in a full layout replacement.
type SeatInput struct {
	Row      int     `json:"row" validate:"required,min=1"`
	Col      int     `json:"col" validate:"required,min=1"`
	Label    string  `json:"label" validate:"required"`
	IsWindow bool    `json:"isWindow"`
	IsAisle  bool    `json:"isAisle"`
	Section  *string `json:"section"`
}

// SetSeatsRequest fully replaces a bus's seat collection.
type SetSeatsRequest struct {
	Seats []SeatInput `json:"seats" validate:"required,min=1,dive"`
}
