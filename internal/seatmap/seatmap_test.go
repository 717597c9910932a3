package seatmap

import (
	"errors"
	"testing"

	"github.com/Domenick1991/skycheckout/config"
	"github.com/Domenick1991/skycheckout/internal/domain"
	"github.com/Domenick1991/skycheckout/internal/fares"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMap(t *testing.T, occupied ...string) *SeatMap {
	t.Helper()
	layout, err := NewLayout(config.DefaultLayout())
	require.NoError(t, err)
	return New(layout, fares.Default(), occupied)
}

func TestLayout_Classify(t *testing.T) {
	m := newTestMap(t)

	testCases := []struct {
		row      int
		expected domain.SeatClass
	}{
		{1, domain.SeatClassBusiness},
		{4, domain.SeatClassBusiness},
		{5, domain.SeatClassEconomy},
		{11, domain.SeatClassPremium},
		{15, domain.SeatClassPremium},
		{16, domain.SeatClassEconomy},
		{30, domain.SeatClassEconomy},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.expected, m.Layout().Classify(tc.row), "row %d", tc.row)
	}
}

func TestLayout_TypeOf(t *testing.T) {
	m := newTestMap(t)
	l := m.Layout()

	assert.Equal(t, domain.SeatTypeWindow, l.TypeOf(5, "A"))
	assert.Equal(t, domain.SeatTypeMiddle, l.TypeOf(5, "B"))
	assert.Equal(t, domain.SeatTypeAisle, l.TypeOf(5, "C"))
	assert.Equal(t, domain.SeatTypeAisle, l.TypeOf(5, "D"))
	assert.Equal(t, domain.SeatTypeMiddle, l.TypeOf(5, "E"))
	assert.Equal(t, domain.SeatTypeWindow, l.TypeOf(5, "F"))

	for _, col := range l.Columns() {
		assert.Equal(t, domain.SeatTypeEmergencyExit, l.TypeOf(10, col))
		assert.Equal(t, domain.SeatTypeEmergencyExit, l.TypeOf(20, col))
	}
}

func TestSeatMap_PriceOfIsAdditiveForEverySeat(t *testing.T) {
	m := newTestMap(t)
	table := fares.Default()

	ids := make(map[string]bool)
	for _, seat := range m.Seats() {
		expected := table.ClassBase(m.Layout().Classify(seat.Row)) + table.TypeSurcharge(m.Layout().TypeOf(seat.Row, seat.Column))
		assert.Equal(t, expected, seat.PriceCents, seat.ID)
		assert.Equal(t, seat.PriceCents, m.PriceOf(seat.Row, seat.Column), "price must be deterministic")
		assert.GreaterOrEqual(t, seat.PriceCents, int64(0))
		assert.False(t, ids[seat.ID], "duplicate seat id %s", seat.ID)
		ids[seat.ID] = true
	}
	assert.Len(t, ids, 30*6)
}

func TestSeatMap_ScenarioPrices(t *testing.T) {
	m := newTestMap(t)

	seat, err := m.Seat("3A")
	require.NoError(t, err)
	assert.Equal(t, domain.SeatClassBusiness, seat.Class)
	assert.Equal(t, domain.SeatTypeWindow, seat.Type)
	assert.Equal(t, int64(6500), seat.PriceCents)

	seat, err = m.Seat("16C")
	require.NoError(t, err)
	assert.Equal(t, domain.SeatClassEconomy, seat.Class)
	assert.Equal(t, domain.SeatTypeAisle, seat.Type)
	assert.Equal(t, int64(1000), seat.PriceCents)
	assert.True(t, seat.NearWing)

	seat, err = m.Seat("20B")
	require.NoError(t, err)
	assert.Equal(t, domain.SeatTypeEmergencyExit, seat.Type)
	assert.Equal(t, int64(2500), seat.PriceCents)
}

func TestSeatMap_SelectReplacesPrevious(t *testing.T) {
	m := newTestMap(t)

	_, err := m.Select("3A")
	require.NoError(t, err)
	seat, err := m.Select("16C")
	require.NoError(t, err)
	assert.Equal(t, domain.SeatStatusSelected, seat.Status)

	assert.Equal(t, domain.SeatStatusAvailable, m.StatusOf("3A"))
	assert.Equal(t, domain.SeatStatusSelected, m.StatusOf("16C"))

	selected := 0
	for _, s := range m.Seats() {
		if s.Status == domain.SeatStatusSelected {
			selected++
		}
	}
	assert.Equal(t, 1, selected)
}

func TestSeatMap_SelectOccupiedKeepsSelection(t *testing.T) {
	m := newTestMap(t, "5C", "7F")

	_, err := m.Select("3A")
	require.NoError(t, err)

	_, err = m.Select("5C")
	assert.True(t, errors.Is(err, domain.ErrSeatUnavailable))

	current, ok := m.Selected()
	require.True(t, ok)
	assert.Equal(t, "3A", current.ID)
	assert.Equal(t, domain.SeatStatusOccupied, m.StatusOf("5C"))
	assert.Equal(t, 30*6-2, m.AvailableCount())
}

func TestSeatMap_UnknownSeat(t *testing.T) {
	m := newTestMap(t)

	for _, id := range []string{"31A", "0A", "3G", "A3", "12", ""} {
		_, err := m.Select(id)
		assert.True(t, errors.Is(err, domain.ErrUnknownSeat), id)
	}
	_, ok := m.Selected()
	assert.False(t, ok)
}

func TestNewLayout_Validation(t *testing.T) {
	testCases := []struct {
		name string
		cfg  config.LayoutConfig
	}{
		{"no rows", config.LayoutConfig{Columns: []string{"A"}}},
		{"no columns", config.LayoutConfig{Rows: 3}},
		{"numeric column", config.LayoutConfig{Rows: 3, Columns: []string{"A", "1"}}},
		{"duplicate column", config.LayoutConfig{Rows: 3, Columns: []string{"A", "A"}}},
		{"aisle outside", config.LayoutConfig{Rows: 3, Columns: []string{"A", "B"}, AisleAfter: []int{1}}},
		{"inverted range", config.LayoutConfig{Rows: 3, Columns: []string{"A", "B"}, BusinessRows: config.RowRange{From: 3, To: 1}}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewLayout(tc.cfg)
			assert.Error(t, err)
		})
	}
}

func TestLayout_WideBody(t *testing.T) {
	layout, err := NewLayout(config.LayoutConfig{
		Rows:       40,
		Columns:    []string{"A", "B", "C", "D", "E", "F", "G", "H", "J"},
		AisleAfter: []int{2, 5},
	})
	require.NoError(t, err)

	expected := []domain.SeatType{
		domain.SeatTypeWindow, domain.SeatTypeMiddle, domain.SeatTypeAisle,
		domain.SeatTypeAisle, domain.SeatTypeMiddle, domain.SeatTypeAisle,
		domain.SeatTypeAisle, domain.SeatTypeMiddle, domain.SeatTypeWindow,
	}
	for i, col := range layout.Columns() {
		assert.Equal(t, expected[i], layout.TypeOf(25, col), col)
	}
}
