package payment

import (
	"context"
	"strings"
	"time"

	"github.com/Domenick1991/skycheckout/internal/domain"
	"github.com/google/uuid"
)

type Outcome struct {
	Succeeded     bool
	TransactionID string
	Reason        string
}

// Charge is what a provider is asked to collect. Card is only set for card
// methods and is never stored on the booking.
type Charge struct {
	Attempt     domain.PaymentAttempt
	AmountCents int64
	Card        *CardDetails
}

// Provider is one payment capability. Submit may block for the provider
// round trip and must honor ctx.
type Provider interface {
	Submit(ctx context.Context, charge Charge) (Outcome, error)
}

// SimulatedProvider stands in for a payment network: it waits for a fixed
// round trip and approves everything except the configured test cards,
// matched on the full card number.
type SimulatedProvider struct {
	prefix   string
	delay    time.Duration
	declined map[string]struct{}
}

func NewSimulatedProvider(prefix string, delay time.Duration, declinedCards ...string) *SimulatedProvider {
	p := &SimulatedProvider{
		prefix:   prefix,
		delay:    delay,
		declined: make(map[string]struct{}, len(declinedCards)),
	}
	for _, card := range declinedCards {
		p.declined[NormalizeCardNumber(card)] = struct{}{}
	}
	return p
}

// Submit approves zero totals; a booking on a free fare still completes.
func (p *SimulatedProvider) Submit(ctx context.Context, charge Charge) (Outcome, error) {
	if p.delay > 0 {
		timer := time.NewTimer(p.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return Outcome{}, ctx.Err()
		case <-timer.C:
		}
	}

	if charge.AmountCents < 0 {
		return Outcome{Reason: "amount must not be negative"}, nil
	}
	if charge.Card != nil {
		if _, ok := p.declined[NormalizeCardNumber(charge.Card.Number)]; ok {
			return Outcome{Reason: "card declined"}, nil
		}
	}
	return Outcome{Succeeded: true, TransactionID: NewTransactionID(p.prefix)}, nil
}

func NewTransactionID(prefix string) string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:16]
	if prefix == "" {
		return id
	}
	return prefix + "-" + id
}

var _ Provider = (*SimulatedProvider)(nil)
