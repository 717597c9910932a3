package seatmap

import (
	"fmt"

	"github.com/Domenick1991/skycheckout/config"
	"github.com/Domenick1991/skycheckout/internal/domain"
)

// Layout is the fixed cabin geometry. Classification is pure: it only
// depends on row and column, never on session state.
type Layout struct {
	rows          int
	columns       []string
	columnIndex   map[string]int
	aisleAfter    map[int]bool
	businessRows  config.RowRange
	premiumRows   config.RowRange
	emergencyRows map[int]bool
	wingRows      map[int]bool
}

func NewLayout(cfg config.LayoutConfig) (*Layout, error) {
	if cfg.Rows <= 0 {
		return nil, fmt.Errorf("layout needs at least one row")
	}
	if len(cfg.Columns) == 0 {
		return nil, fmt.Errorf("layout needs at least one column")
	}

	l := &Layout{
		rows:          cfg.Rows,
		columns:       append([]string(nil), cfg.Columns...),
		columnIndex:   make(map[string]int, len(cfg.Columns)),
		aisleAfter:    make(map[int]bool, len(cfg.AisleAfter)),
		businessRows:  cfg.BusinessRows,
		premiumRows:   cfg.PremiumRows,
		emergencyRows: make(map[int]bool, len(cfg.EmergencyRows)),
		wingRows:      make(map[int]bool, len(cfg.WingRows)),
	}
	for i, col := range cfg.Columns {
		if col == "" || (col[0] >= '0' && col[0] <= '9') {
			return nil, fmt.Errorf("column %q must start with a letter", col)
		}
		if _, dup := l.columnIndex[col]; dup {
			return nil, fmt.Errorf("column %q declared twice", col)
		}
		l.columnIndex[col] = i
	}
	for _, idx := range cfg.AisleAfter {
		if idx < 0 || idx >= len(cfg.Columns)-1 {
			return nil, fmt.Errorf("aisle position %d is outside the cabin", idx)
		}
		l.aisleAfter[idx] = true
	}
	for _, r := range []config.RowRange{cfg.BusinessRows, cfg.PremiumRows} {
		if r.From > r.To {
			return nil, fmt.Errorf("row range %d-%d is inverted", r.From, r.To)
		}
	}
	for _, row := range cfg.EmergencyRows {
		l.emergencyRows[row] = true
	}
	for _, row := range cfg.WingRows {
		l.wingRows[row] = true
	}
	return l, nil
}

func (l *Layout) Rows() int {
	return l.rows
}

func (l *Layout) Columns() []string {
	return append([]string(nil), l.columns...)
}

func (l *Layout) Contains(row int, column string) bool {
	_, ok := l.columnIndex[column]
	return ok && row >= 1 && row <= l.rows
}

func (l *Layout) Classify(row int) domain.SeatClass {
	switch {
	case l.businessRows.Contains(row):
		return domain.SeatClassBusiness
	case l.premiumRows.Contains(row):
		return domain.SeatClassPremium
	default:
		return domain.SeatClassEconomy
	}
}

func (l *Layout) TypeOf(row int, column string) domain.SeatType {
	if l.emergencyRows[row] {
		return domain.SeatTypeEmergencyExit
	}
	idx := l.columnIndex[column]
	switch {
	case idx == 0 || idx == len(l.columns)-1:
		return domain.SeatTypeWindow
	case l.aisleAfter[idx] || l.aisleAfter[idx-1]:
		return domain.SeatTypeAisle
	default:
		return domain.SeatTypeMiddle
	}
}

func (l *Layout) NearWing(row int) bool {
	return l.wingRows[row]
}
