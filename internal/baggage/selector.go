// Package baggage keeps per-option baggage quantities for one booking and
// prices them against the fare table.
package baggage

import (
	"fmt"

	"github.com/Domenick1991/skycheckout/internal/domain"
	"github.com/Domenick1991/skycheckout/internal/fares"
)

type Selector struct {
	fares      *fares.Table
	quantities map[string]int
}

// NewSelector restores prior selections and makes sure the mandatory option
// is present at its included minimum.
func NewSelector(table *fares.Table, prior []domain.BaggageSelection) (*Selector, error) {
	s := &Selector{
		fares:      table,
		quantities: make(map[string]int, len(prior)+1),
	}
	for _, sel := range prior {
		if _, err := s.SetQuantity(sel.OptionID, sel.Quantity); err != nil {
			return nil, err
		}
	}

	mandatory := table.MandatoryBaggage()
	if _, ok := s.quantities[mandatory.ID]; !ok {
		s.quantities[mandatory.ID] = mandatory.IncludedMinimum
	}
	return s, nil
}

// SetQuantity clamps quantity to [0, max]. A request below an included
// minimum is refused and the stored selection is left untouched.
func (s *Selector) SetQuantity(optionID string, quantity int) (domain.BaggageSelection, error) {
	option, ok := s.fares.BaggageOption(optionID)
	if !ok {
		return domain.BaggageSelection{}, fmt.Errorf("%w: %s", domain.ErrUnknownBaggageOption, optionID)
	}
	if option.IncludedMinimum > 0 && quantity < option.IncludedMinimum {
		return domain.BaggageSelection{}, fmt.Errorf("%w: %s includes %d", domain.ErrQuantityBelowIncludedMinimum, optionID, option.IncludedMinimum)
	}

	if quantity < 0 {
		quantity = 0
	}
	if quantity > option.MaxQuantity {
		quantity = option.MaxQuantity
	}

	if quantity == 0 {
		delete(s.quantities, optionID)
	} else {
		s.quantities[optionID] = quantity
	}
	return s.selection(option, quantity), nil
}

func (s *Selector) selection(option fares.BaggageOption, quantity int) domain.BaggageSelection {
	return domain.BaggageSelection{
		OptionID:   option.ID,
		Quantity:   quantity,
		PriceCents: option.PriceFor(quantity),
	}
}

func (s *Selector) Selection(optionID string) (domain.BaggageSelection, bool) {
	quantity, ok := s.quantities[optionID]
	if !ok {
		return domain.BaggageSelection{}, false
	}
	option, _ := s.fares.BaggageOption(optionID)
	return s.selection(option, quantity), true
}

// Selections returns the current entries in catalog order.
func (s *Selector) Selections() []domain.BaggageSelection {
	out := make([]domain.BaggageSelection, 0, len(s.quantities))
	for _, option := range s.fares.BaggageOptions() {
		if quantity, ok := s.quantities[option.ID]; ok {
			out = append(out, s.selection(option, quantity))
		}
	}
	return out
}

func (s *Selector) TotalPrice() int64 {
	var total int64
	for _, sel := range s.Selections() {
		total += sel.PriceCents
	}
	return total
}

func (s *Selector) TotalPieces() int {
	pieces := 0
	for _, quantity := range s.quantities {
		pieces += quantity
	}
	return pieces
}
