package domain

import (
	"fmt"
	"strconv"
)

type SeatClass string

const (
	SeatClassBusiness SeatClass = "business"
	SeatClassPremium  SeatClass = "premium"
	SeatClassEconomy  SeatClass = "economy"
)

type SeatType string

const (
	SeatTypeWindow        SeatType = "window"
	SeatTypeAisle         SeatType = "aisle"
	SeatTypeMiddle        SeatType = "middle"
	SeatTypeEmergencyExit SeatType = "emergency-exit"
)

type SeatStatus string

const (
	SeatStatusAvailable SeatStatus = "available"
	SeatStatusSelected  SeatStatus = "selected"
	SeatStatusOccupied  SeatStatus = "occupied"
)

// Seat is derived from the layout; only Status changes during a session.
type Seat struct {
	ID         string     `json:"id"`
	Row        int        `json:"row"`
	Column     string     `json:"column"`
	Class      SeatClass  `json:"class"`
	Type       SeatType   `json:"type"`
	PriceCents int64      `json:"price_cents"`
	NearWing   bool       `json:"near_wing,omitempty"`
	Status     SeatStatus `json:"status,omitempty"`
}

func (s Seat) Label() string {
	return fmt.Sprintf("%s - %s", classLabels[s.Class], typeLabels[s.Type])
}

var classLabels = map[SeatClass]string{
	SeatClassBusiness: "Business",
	SeatClassPremium:  "Premium",
	SeatClassEconomy:  "Economy",
}

var typeLabels = map[SeatType]string{
	SeatTypeWindow:        "Window",
	SeatTypeAisle:         "Aisle",
	SeatTypeMiddle:        "Middle",
	SeatTypeEmergencyExit: "Emergency exit",
}

func SeatID(row int, column string) string {
	return strconv.Itoa(row) + column
}

// ParseSeatID splits "16C" into 16 and "C".
func ParseSeatID(id string) (int, string, error) {
	i := 0
	for i < len(id) && id[i] >= '0' && id[i] <= '9' {
		i++
	}
	if i == 0 || i == len(id) {
		return 0, "", fmt.Errorf("%w: %q", ErrUnknownSeat, id)
	}
	row, err := strconv.Atoi(id[:i])
	if err != nil {
		return 0, "", fmt.Errorf("%w: %q", ErrUnknownSeat, id)
	}
	return row, id[i:], nil
}
