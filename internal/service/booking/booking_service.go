package booking

import (
	"fmt"
	"strings"
	"time"

	"github.com/Domenick1991/skycheckout/internal/domain"
	"github.com/Domenick1991/skycheckout/internal/fares"
	"github.com/google/uuid"
)

type Aggregator struct {
	fares *fares.Table
	now   func() time.Time
	newID func() string
}

type AggregatorOption func(*Aggregator)

func WithClock(now func() time.Time) AggregatorOption {
	return func(a *Aggregator) {
		a.now = now
	}
}

func WithIDGenerator(newID func() string) AggregatorOption {
	return func(a *Aggregator) {
		a.newID = newID
	}
}

func NewAggregator(table *fares.Table, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		fares: table,
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AssembleInput is everything the traveler chose during the session.
type AssembleInput struct {
	Identity         *domain.Identity
	Flight           domain.Flight
	Passenger        domain.PassengerDetails
	EmergencyContact domain.EmergencyContact
	Seat             *domain.Seat
	Baggage          []domain.BaggageSelection
	FarePlanID       string
}

// ComputeTotal adds the four price components; nothing compounds.
func (a *Aggregator) ComputeTotal(flightFare int64, seat *domain.Seat, baggageTotal int64, farePlanID string) (int64, error) {
	plan, ok := a.fares.FarePlan(farePlanID)
	if !ok {
		return 0, fmt.Errorf("%w: %s", domain.ErrUnknownFarePlan, farePlanID)
	}
	if flightFare < 0 || baggageTotal < 0 {
		return 0, domain.ErrInvalidAmount
	}

	var seatPrice int64
	if seat != nil {
		if seat.PriceCents < 0 {
			return 0, domain.ErrInvalidAmount
		}
		seatPrice = seat.PriceCents
	}
	return flightFare + seatPrice + baggageTotal + plan.SurchargeCents, nil
}

// Assemble returns a priced booking or no booking at all. It does not
// persist anything.
func (a *Aggregator) Assemble(in AssembleInput) (*domain.Booking, error) {
	missing := domain.NewValidationError(domain.ErrIncompleteBooking)
	required := []struct {
		field string
		value string
	}{
		{"full_name", in.Passenger.FullName},
		{"document_id", in.Passenger.DocumentID},
		{"phone", in.Passenger.Phone},
		{"email", in.Passenger.Email},
		{"emergency_name", in.EmergencyContact.Name},
		{"emergency_phone", in.EmergencyContact.Phone},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			missing.Add(r.field, "is required")
		}
	}
	if in.Seat == nil || in.Seat.ID == "" {
		missing.Add("seat", "is required")
	}

	mandatory := a.fares.MandatoryBaggage()
	var baggageTotal int64
	hasMandatory := false
	for _, sel := range in.Baggage {
		baggageTotal += sel.PriceCents
		if sel.OptionID == mandatory.ID && sel.Quantity >= mandatory.IncludedMinimum {
			hasMandatory = true
		}
	}
	if !hasMandatory {
		missing.Add("baggage", fmt.Sprintf("%s is mandatory", mandatory.ID))
	}
	if !missing.Empty() {
		return nil, missing
	}

	total, err := a.ComputeTotal(in.Flight.PriceCents, in.Seat, baggageTotal, in.FarePlanID)
	if err != nil {
		return nil, err
	}

	seat := *in.Seat
	seat.Status = ""
	b := &domain.Booking{
		ID:               a.newID(),
		Flight:           in.Flight,
		Passenger:        in.Passenger,
		EmergencyContact: in.EmergencyContact,
		Seat:             &seat,
		Baggage:          append([]domain.BaggageSelection(nil), in.Baggage...),
		FarePlanID:       in.FarePlanID,
		TotalCents:       total,
		Status:           domain.BookingStatusPriced,
		CreatedAt:        a.now().UTC(),
	}
	if in.Identity != nil {
		b.IdentityID = in.Identity.ID
	}
	return b, nil
}
