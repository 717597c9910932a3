// Package fares holds the static price table shared by the seat map,
// baggage selection and booking totals. A Table is immutable once built.
package fares

import (
	"fmt"

	"github.com/Domenick1991/skycheckout/config"
	"github.com/Domenick1991/skycheckout/internal/domain"
)

type BaggageOption struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	WeightKg          int    `json:"weight_kg"`
	PricePerItemCents int64  `json:"price_per_item_cents"`
	MaxQuantity       int    `json:"max_quantity"`
	IncludedMinimum   int    `json:"included_minimum"`
}

// PriceFor charges every unit above the included minimum at the full per-item price.
func (o BaggageOption) PriceFor(quantity int) int64 {
	paid := quantity - o.IncludedMinimum
	if paid <= 0 {
		return 0
	}
	return int64(paid) * o.PricePerItemCents
}

type FarePlan struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	SurchargeCents int64  `json:"surcharge_cents"`
}

type Table struct {
	classBase        map[domain.SeatClass]int64
	typeSurcharge    map[domain.SeatType]int64
	baggage          map[string]BaggageOption
	baggageOrder     []string
	mandatoryBaggage string
	plans            map[string]FarePlan
	planOrder        []string
	defaultPlan      string
}

var (
	seatClasses = []domain.SeatClass{domain.SeatClassBusiness, domain.SeatClassPremium, domain.SeatClassEconomy}
	seatTypes   = []domain.SeatType{domain.SeatTypeWindow, domain.SeatTypeAisle, domain.SeatTypeMiddle, domain.SeatTypeEmergencyExit}
)

func New(cfg config.FaresConfig) (*Table, error) {
	t := &Table{
		classBase:        make(map[domain.SeatClass]int64, len(seatClasses)),
		typeSurcharge:    make(map[domain.SeatType]int64, len(seatTypes)),
		baggage:          make(map[string]BaggageOption, len(cfg.Baggage)),
		plans:            make(map[string]FarePlan, len(cfg.FarePlans)),
		mandatoryBaggage: cfg.MandatoryBaggage,
		defaultPlan:      cfg.DefaultFarePlan,
	}

	for _, class := range seatClasses {
		v := cfg.ClassBaseCents[string(class)]
		if v < 0 {
			return nil, fmt.Errorf("class %s: base price must not be negative", class)
		}
		t.classBase[class] = v
	}
	for _, typ := range seatTypes {
		v := cfg.TypeSurchargeCents[string(typ)]
		if v < 0 {
			return nil, fmt.Errorf("seat type %s: surcharge must not be negative", typ)
		}
		t.typeSurcharge[typ] = v
	}

	for _, b := range cfg.Baggage {
		if b.ID == "" {
			return nil, fmt.Errorf("baggage option without id")
		}
		if _, dup := t.baggage[b.ID]; dup {
			return nil, fmt.Errorf("baggage option %s declared twice", b.ID)
		}
		if b.PricePerItemCents < 0 || b.MaxQuantity < 0 || b.IncludedMinimum < 0 {
			return nil, fmt.Errorf("baggage option %s: negative values are not allowed", b.ID)
		}
		if b.IncludedMinimum > b.MaxQuantity {
			return nil, fmt.Errorf("baggage option %s: included minimum exceeds max quantity", b.ID)
		}
		t.baggage[b.ID] = BaggageOption{
			ID:                b.ID,
			Name:              b.Name,
			WeightKg:          b.WeightKg,
			PricePerItemCents: b.PricePerItemCents,
			MaxQuantity:       b.MaxQuantity,
			IncludedMinimum:   b.IncludedMinimum,
		}
		t.baggageOrder = append(t.baggageOrder, b.ID)
	}
	mandatory, ok := t.baggage[cfg.MandatoryBaggage]
	if !ok {
		return nil, fmt.Errorf("mandatory baggage option %q is not in the catalog", cfg.MandatoryBaggage)
	}
	if mandatory.IncludedMinimum == 0 {
		return nil, fmt.Errorf("mandatory baggage option %s needs an included minimum", mandatory.ID)
	}

	for _, p := range cfg.FarePlans {
		if p.ID == "" {
			return nil, fmt.Errorf("fare plan without id")
		}
		if _, dup := t.plans[p.ID]; dup {
			return nil, fmt.Errorf("fare plan %s declared twice", p.ID)
		}
		if p.SurchargeCents < 0 {
			return nil, fmt.Errorf("fare plan %s: surcharge must not be negative", p.ID)
		}
		t.plans[p.ID] = FarePlan{ID: p.ID, Name: p.Name, SurchargeCents: p.SurchargeCents}
		t.planOrder = append(t.planOrder, p.ID)
	}
	if t.defaultPlan == "" && len(t.planOrder) > 0 {
		t.defaultPlan = t.planOrder[0]
	}
	if _, ok := t.plans[t.defaultPlan]; !ok {
		return nil, fmt.Errorf("default fare plan %q is not declared", t.defaultPlan)
	}

	return t, nil
}

// Default builds the table from config.DefaultFares and panics if it is inconsistent.
func Default() *Table {
	t, err := New(config.DefaultFares())
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Table) ClassBase(class domain.SeatClass) int64 {
	return t.classBase[class]
}

func (t *Table) TypeSurcharge(typ domain.SeatType) int64 {
	return t.typeSurcharge[typ]
}

func (t *Table) BaggageOption(id string) (BaggageOption, bool) {
	o, ok := t.baggage[id]
	return o, ok
}

// BaggageOptions returns the catalog in declaration order.
func (t *Table) BaggageOptions() []BaggageOption {
	out := make([]BaggageOption, 0, len(t.baggageOrder))
	for _, id := range t.baggageOrder {
		out = append(out, t.baggage[id])
	}
	return out
}

func (t *Table) MandatoryBaggage() BaggageOption {
	return t.baggage[t.mandatoryBaggage]
}

func (t *Table) FarePlan(id string) (FarePlan, bool) {
	p, ok := t.plans[id]
	return p, ok
}

func (t *Table) FarePlans() []FarePlan {
	out := make([]FarePlan, 0, len(t.planOrder))
	for _, id := range t.planOrder {
		out = append(out, t.plans[id])
	}
	return out
}

func (t *Table) DefaultFarePlan() FarePlan {
	return t.plans[t.defaultPlan]
}
