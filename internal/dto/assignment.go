package dto

// SeatProposal is one externally suggested seat-passenger pairing. It
// arrives untrusted from the recommender and carries no validity
// guarantee until it has passed the conflict filter.
type SeatProposal struct {
	VoyageID    int64 `json:"voyageId" validate:"required,gt=0"`
	SeatID      int64 `json:"seatId" validate:"required,gt=0"`
	PassengerID int64 `json:"passengerId" validate:"required,gt=0"`
}

// ApplyProposalsRequest carries the reviewed batch back for persistence.
type ApplyProposalsRequest struct {
	Proposals []SeatProposal `json:"proposals" validate:"required"`
}

// ReroutedFamily reports one reservation group that could not be packed
// in the current allocation pass.
type ReroutedFamily struct {
	ReservationID int64 `json:"reservationId"`
	Size          int   `json:"size"`
}

// AutoAssignResult summarises one allocator run.
type AutoAssignResult struct {
	Assigned         int              `json:"assigned"`
	Total            int              `json:"total"`
	ReroutedFamilies []ReroutedFamily `json:"reroutedFamilies"`
}

// ApplyProposalsResult summarises a proposal apply step.
type ApplyProposalsResult struct {
	Applied int `json:"applied"`
	Total   int `json:"total"`
}

// SeatSnapshot describes one seat in the recommender input.
type SeatSnapshot struct {
	SeatID   int64   `json:"seatId"`
	Row      int     `json:"row"`
	Col      int     `json:"col"`
	Label    string  `json:"label"`
	IsWindow bool    `json:"isWindow"`
	IsAisle  bool    `json:"isAisle"`
	Section  *string `json:"section,omitempty"`
	Taken    bool    `json:"taken"`
}

// PassengerSnapshot describes one unassigned passenger in the
// recommender input, preferences included.
type PassengerSnapshot struct {
	PassengerID   int64   `json:"passengerId"`
	ReservationID int64   `json:"reservationId"`
	PrefWindow    bool    `json:"prefWindow"`
	PrefAisle     bool    `json:"prefAisle"`
	PrefSection   *string `json:"prefSection,omitempty"`
}

// VoyageSnapshot is the structured input handed to the recommender.
type VoyageSnapshot struct {
	VoyageID   int64               `json:"voyageId"`
	BusID      int64               `json:"busId"`
	Seats      []SeatSnapshot      `json:"seats"`
	Passengers []PassengerSnapshot `json:"passengers"`
}
