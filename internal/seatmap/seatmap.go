// Package seatmap classifies and prices the seats of a cabin layout and
// tracks the single seat selected during a checkout session.
package seatmap

import (
	"fmt"

	"github.com/Domenick1991/skycheckout/internal/domain"
	"github.com/Domenick1991/skycheckout/internal/fares"
)

type SeatMap struct {
	layout   *Layout
	fares    *fares.Table
	occupied map[string]struct{}
	selected string
}

// New builds a seat map over an occupancy snapshot. The snapshot is copied
// and never changes for the life of the map.
func New(layout *Layout, table *fares.Table, occupied []string) *SeatMap {
	m := &SeatMap{
		layout:   layout,
		fares:    table,
		occupied: make(map[string]struct{}, len(occupied)),
	}
	for _, id := range occupied {
		m.occupied[id] = struct{}{}
	}
	return m
}

func (m *SeatMap) Layout() *Layout {
	return m.layout
}

// PriceOf is the class base plus the type surcharge.
func (m *SeatMap) PriceOf(row int, column string) int64 {
	return m.fares.ClassBase(m.layout.Classify(row)) + m.fares.TypeSurcharge(m.layout.TypeOf(row, column))
}

func (m *SeatMap) StatusOf(id string) domain.SeatStatus {
	if _, ok := m.occupied[id]; ok {
		return domain.SeatStatusOccupied
	}
	if id == m.selected {
		return domain.SeatStatusSelected
	}
	return domain.SeatStatusAvailable
}

func (m *SeatMap) Seat(id string) (domain.Seat, error) {
	row, column, err := domain.ParseSeatID(id)
	if err != nil {
		return domain.Seat{}, err
	}
	if !m.layout.Contains(row, column) {
		return domain.Seat{}, fmt.Errorf("%w: %s", domain.ErrUnknownSeat, id)
	}
	return m.seat(row, column), nil
}

func (m *SeatMap) seat(row int, column string) domain.Seat {
	id := domain.SeatID(row, column)
	return domain.Seat{
		ID:         id,
		Row:        row,
		Column:     column,
		Class:      m.layout.Classify(row),
		Type:       m.layout.TypeOf(row, column),
		PriceCents: m.PriceOf(row, column),
		NearWing:   m.layout.NearWing(row),
		Status:     m.StatusOf(id),
	}
}

// Select replaces the current selection. Occupied seats are refused and the
// previous selection is kept.
func (m *SeatMap) Select(id string) (domain.Seat, error) {
	seat, err := m.Seat(id)
	if err != nil {
		return domain.Seat{}, err
	}
	if seat.Status == domain.SeatStatusOccupied {
		return domain.Seat{}, fmt.Errorf("%w: %s", domain.ErrSeatUnavailable, id)
	}
	m.selected = seat.ID
	seat.Status = domain.SeatStatusSelected
	return seat, nil
}

func (m *SeatMap) Selected() (domain.Seat, bool) {
	if m.selected == "" {
		return domain.Seat{}, false
	}
	seat, err := m.Seat(m.selected)
	if err != nil {
		return domain.Seat{}, false
	}
	return seat, true
}

// Seats lists the whole cabin row by row.
func (m *SeatMap) Seats() []domain.Seat {
	columns := m.layout.columns
	seats := make([]domain.Seat, 0, m.layout.rows*len(columns))
	for row := 1; row <= m.layout.rows; row++ {
		for _, column := range columns {
			seats = append(seats, m.seat(row, column))
		}
	}
	return seats
}

func (m *SeatMap) AvailableCount() int {
	n := 0
	for _, seat := range m.Seats() {
		if seat.Status != domain.SeatStatusOccupied {
			n++
		}
	}
	return n
}
