// Package payment drives a priced booking through validation, provider
// dispatch and completion. A booking has at most one active attempt.
package payment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Domenick1991/skycheckout/internal/domain"
	"github.com/sirupsen/logrus"
)

// BookingStore receives bookings once they are completed.
type BookingStore interface {
	Append(ctx context.Context, booking domain.Booking) error
}

type Machine struct {
	providers map[domain.PaymentMethod]Provider
	store     BookingStore
	logger    *logrus.Logger
	now       func() time.Time

	mu       sync.Mutex
	inflight map[string]struct{}
}

type MachineOption func(*Machine)

func WithProvider(method domain.PaymentMethod, provider Provider) MachineOption {
	return func(m *Machine) {
		m.providers[method] = provider
	}
}

func WithClock(now func() time.Time) MachineOption {
	return func(m *Machine) {
		m.now = now
	}
}

func NewMachine(store BookingStore, logger *logrus.Logger, opts ...MachineOption) *Machine {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	m := &Machine{
		providers: make(map[domain.PaymentMethod]Provider),
		store:     store,
		logger:    logger,
		now:       time.Now,
		inflight:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// StateOf reports the attempt state of a booking. A failed attempt leaves
// the machine idle and ready for a retry.
func (m *Machine) StateOf(b *domain.Booking) domain.AttemptStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.inflight[b.ID]; ok {
		return domain.AttemptStatusProcessing
	}
	if b.PaymentAttempt == nil || b.PaymentAttempt.Status == domain.AttemptStatusFailed {
		return domain.AttemptStatusIdle
	}
	return b.PaymentAttempt.Status
}

// Pay runs one attempt to completion. On success the booking is completed
// and appended to the store; on provider failure it returns to priced with
// the failed attempt recorded.
func (m *Machine) Pay(ctx context.Context, b *domain.Booking, identity *domain.Identity, req Request) error {
	attempt, provider, err := m.begin(b, identity, req)
	if err != nil {
		return err
	}

	log := m.logger.WithFields(logrus.Fields{
		"booking_id": b.ID,
		"method":     req.Method,
		"amount":     b.TotalCents,
	})
	log.Info("payment attempt processing")

	charge := Charge{Attempt: attempt, AmountCents: b.TotalCents}
	if req.Method.RequiresCard() {
		charge.Card = req.Card
	}
	outcome, submitErr := provider.Submit(ctx, charge)

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.inflight, b.ID)

	b.PaymentAttempt.Timestamp = m.now().UTC()
	if submitErr != nil || !outcome.Succeeded {
		reason := outcome.Reason
		if submitErr != nil {
			reason = submitErr.Error()
		}
		b.PaymentAttempt.Status = domain.AttemptStatusFailed
		b.PaymentAttempt.FailureReason = reason
		b.Status = domain.BookingStatusPriced
		log.WithField("reason", reason).Warn("payment attempt failed")
		return fmt.Errorf("%w: %s", domain.ErrPaymentProviderFailure, reason)
	}

	b.PaymentAttempt.Status = domain.AttemptStatusSucceeded
	b.PaymentAttempt.TransactionID = outcome.TransactionID
	if b.PaymentAttempt.TransactionID == "" {
		b.PaymentAttempt.TransactionID = NewTransactionID("TXN")
	}
	b.Status = domain.BookingStatusCompleted
	log.WithField("transaction_id", b.PaymentAttempt.TransactionID).Info("payment attempt succeeded")

	if err := m.store.Append(ctx, *b.Clone()); err != nil {
		log.WithError(err).Error("store completed booking")
		return fmt.Errorf("store completed booking: %w", err)
	}
	return nil
}

// Persist hands an already completed booking to the store again, for when
// the append after a successful payment failed.
func (m *Machine) Persist(ctx context.Context, b *domain.Booking) error {
	if b.Status != domain.BookingStatusCompleted {
		return domain.ErrBookingNotCompleted
	}
	if err := m.store.Append(ctx, *b.Clone()); err != nil {
		return fmt.Errorf("store completed booking: %w", err)
	}
	return nil
}

// begin runs the synchronous part: guards, validation and the switch to
// processing. Nothing is recorded on the booking if validation fails.
func (m *Machine) begin(b *domain.Booking, identity *domain.Identity, req Request) (domain.PaymentAttempt, Provider, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.inflight[b.ID]; ok {
		return domain.PaymentAttempt{}, nil, domain.ErrAttemptInProgress
	}
	switch b.Status {
	case domain.BookingStatusPaymentPending:
		return domain.PaymentAttempt{}, nil, domain.ErrAttemptInProgress
	case domain.BookingStatusCompleted:
		return domain.PaymentAttempt{}, nil, domain.ErrBookingCompleted
	case domain.BookingStatusPriced:
	default:
		return domain.PaymentAttempt{}, nil, domain.ErrBookingNotPriced
	}
	if identity == nil {
		return domain.PaymentAttempt{}, nil, domain.ErrIdentityRequired
	}
	if b.Seat == nil || b.Seat.ID == "" {
		return domain.PaymentAttempt{}, nil, domain.ErrIncompleteBooking
	}

	attempt := domain.PaymentAttempt{
		Method:    req.Method,
		Status:    domain.AttemptStatusValidating,
		Timestamp: m.now().UTC(),
	}
	if err := Validate(req); err != nil {
		return domain.PaymentAttempt{}, nil, err
	}
	provider, ok := m.providers[req.Method]
	if !ok {
		return domain.PaymentAttempt{}, nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedPaymentMethod, req.Method)
	}
	if req.Method.RequiresCard() {
		attempt.CardBrand = CardBrand(req.Card.Number)
		attempt.CardLastFour = lastFour(req.Card.Number)
	}

	attempt.Status = domain.AttemptStatusProcessing
	b.IdentityID = identity.ID
	b.Status = domain.BookingStatusPaymentPending
	b.PaymentAttempt = &attempt
	m.inflight[b.ID] = struct{}{}

	return attempt, provider, nil
}

// IsRetryable reports whether err leaves the booking open for another attempt.
func IsRetryable(err error) bool {
	return errors.Is(err, domain.ErrPaymentValidationFailed) ||
		errors.Is(err, domain.ErrPaymentProviderFailure) ||
		errors.Is(err, domain.ErrAttemptInProgress)
}
