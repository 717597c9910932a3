package payment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Domenick1991/skycheckout/internal/domain"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockBookingStore struct {
	mock.Mock
}

func (m *MockBookingStore) Append(ctx context.Context, booking domain.Booking) error {
	args := m.Called(ctx, booking)
	return args.Error(0)
}

type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Submit(ctx context.Context, charge Charge) (Outcome, error) {
	args := m.Called(ctx, charge)
	return args.Get(0).(Outcome), args.Error(1)
}

// blockingProvider holds Submit until release is closed.
type blockingProvider struct {
	started chan struct{}
	release chan struct{}
}

func (p *blockingProvider) Submit(ctx context.Context, charge Charge) (Outcome, error) {
	close(p.started)
	<-p.release
	return Outcome{Succeeded: true, TransactionID: "TXN-BLOCKED"}, nil
}

var guest = &domain.Identity{ID: "guest-1", IsGuest: true}

func pricedBooking() *domain.Booking {
	return &domain.Booking{
		ID:         "booking-1",
		Flight:     domain.Flight{ID: 7, PriceCents: 30000},
		Seat:       &domain.Seat{ID: "3A", PriceCents: 6500},
		FarePlanID: "flexible",
		TotalCents: 48500,
		Status:     domain.BookingStatusPriced,
	}
}

func cardRequest(number string) Request {
	card := validCard()
	card.Number = number
	return Request{Method: domain.PaymentMethodCardGateway, Card: card}
}

func TestMachine_Pay_ValidationThenSuccess(t *testing.T) {
	store := &MockBookingStore{}
	logger, _ := test.NewNullLogger()
	m := NewMachine(store, logger, WithProvider(domain.PaymentMethodCardGateway, NewSimulatedProvider("TXN", 0)))
	b := pricedBooking()
	ctx := context.Background()

	err := m.Pay(ctx, b, guest, cardRequest("4111 1111 1111 111"))
	assert.True(t, errors.Is(err, domain.ErrPaymentValidationFailed))
	assert.Equal(t, domain.AttemptStatusIdle, m.StateOf(b))
	assert.Nil(t, b.PaymentAttempt)
	assert.Equal(t, domain.BookingStatusPriced, b.Status)
	store.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)

	store.On("Append", ctx, mock.MatchedBy(func(stored domain.Booking) bool {
		return stored.ID == "booking-1" && stored.Status == domain.BookingStatusCompleted
	})).Return(nil).Once()

	err = m.Pay(ctx, b, guest, cardRequest("4111 1111 1111 1111"))
	require.NoError(t, err)

	assert.Equal(t, domain.BookingStatusCompleted, b.Status)
	assert.Equal(t, domain.AttemptStatusSucceeded, m.StateOf(b))
	require.NotNil(t, b.PaymentAttempt)
	assert.NotEmpty(t, b.PaymentAttempt.TransactionID)
	assert.Contains(t, b.PaymentAttempt.TransactionID, "TXN-")
	assert.Equal(t, "Visa", b.PaymentAttempt.CardBrand)
	assert.Equal(t, "1111", b.PaymentAttempt.CardLastFour)
	assert.False(t, b.PaymentAttempt.Timestamp.IsZero())
	assert.Equal(t, "guest-1", b.IdentityID)

	store.AssertExpectations(t)
}

func TestMachine_Pay_SecondAttemptWhileProcessing(t *testing.T) {
	store := &MockBookingStore{}
	store.On("Append", mock.Anything, mock.Anything).Return(nil).Once()
	provider := &blockingProvider{started: make(chan struct{}), release: make(chan struct{})}
	logger, _ := test.NewNullLogger()
	m := NewMachine(store, logger, WithProvider(domain.PaymentMethodWalletRedirect, provider))
	b := pricedBooking()
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		done <- m.Pay(ctx, b, guest, Request{Method: domain.PaymentMethodWalletRedirect})
	}()
	<-provider.started

	assert.Equal(t, domain.AttemptStatusProcessing, m.StateOf(b))
	err := m.Pay(ctx, b, guest, cardRequest("4111 1111 1111 1111"))
	assert.True(t, errors.Is(err, domain.ErrAttemptInProgress))

	close(provider.release)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("payment did not resolve")
	}
	assert.Equal(t, domain.BookingStatusCompleted, b.Status)
	assert.Equal(t, "TXN-BLOCKED", b.PaymentAttempt.TransactionID)
	store.AssertExpectations(t)
}

func TestMachine_Pay_ProviderFailureReturnsToPriced(t *testing.T) {
	store := &MockBookingStore{}
	provider := &MockProvider{}
	logger, hook := test.NewNullLogger()
	m := NewMachine(store, logger,
		WithProvider(domain.PaymentMethodManualCard, provider),
		WithProvider(domain.PaymentMethodWalletRedirect, NewSimulatedProvider("WLT", 0)),
	)
	b := pricedBooking()
	ctx := context.Background()

	provider.On("Submit", ctx, mock.MatchedBy(func(c Charge) bool {
		return c.AmountCents == 48500 && c.Card != nil && c.Attempt.CardLastFour == "0004"
	})).Return(Outcome{Reason: "card declined"}, nil).Once()

	req := cardRequest("5500 0000 0000 0004")
	req.Method = domain.PaymentMethodManualCard
	err := m.Pay(ctx, b, guest, req)

	assert.True(t, errors.Is(err, domain.ErrPaymentProviderFailure))
	assert.True(t, IsRetryable(err))
	assert.Equal(t, domain.BookingStatusPriced, b.Status)
	assert.True(t, b.PaymentFailed())
	assert.Equal(t, "card declined", b.PaymentAttempt.FailureReason)
	assert.Equal(t, domain.AttemptStatusIdle, m.StateOf(b))
	assert.Equal(t, "payment attempt failed", hook.LastEntry().Message)

	store.On("Append", ctx, mock.Anything).Return(nil).Once()
	err = m.Pay(ctx, b, guest, Request{Method: domain.PaymentMethodWalletRedirect})
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCompleted, b.Status)
	assert.Equal(t, domain.PaymentMethodWalletRedirect, b.PaymentAttempt.Method)
	assert.Contains(t, b.PaymentAttempt.TransactionID, "WLT-")

	provider.AssertExpectations(t)
	store.AssertExpectations(t)
}

func TestMachine_Pay_ProviderError(t *testing.T) {
	provider := &MockProvider{}
	logger, _ := test.NewNullLogger()
	m := NewMachine(&MockBookingStore{}, logger, WithProvider(domain.PaymentMethodCardGateway, provider))
	b := pricedBooking()

	provider.On("Submit", mock.Anything, mock.Anything).Return(Outcome{}, errors.New("gateway timeout")).Once()

	err := m.Pay(context.Background(), b, guest, cardRequest("4111111111111111"))
	assert.True(t, errors.Is(err, domain.ErrPaymentProviderFailure))
	assert.Contains(t, err.Error(), "gateway timeout")
	assert.Equal(t, domain.BookingStatusPriced, b.Status)
}

func TestMachine_Pay_Guards(t *testing.T) {
	logger, _ := test.NewNullLogger()
	m := NewMachine(&MockBookingStore{}, logger, WithProvider(domain.PaymentMethodWalletRedirect, NewSimulatedProvider("WLT", 0)))
	wallet := Request{Method: domain.PaymentMethodWalletRedirect}

	testCases := []struct {
		name     string
		booking  func() *domain.Booking
		identity *domain.Identity
		req      Request
		expected error
	}{
		{
			name:     "no identity",
			booking:  pricedBooking,
			req:      wallet,
			expected: domain.ErrIdentityRequired,
		},
		{
			name: "draft booking",
			booking: func() *domain.Booking {
				b := pricedBooking()
				b.Status = domain.BookingStatusDraft
				return b
			},
			identity: guest,
			req:      wallet,
			expected: domain.ErrBookingNotPriced,
		},
		{
			name: "completed booking",
			booking: func() *domain.Booking {
				b := pricedBooking()
				b.Status = domain.BookingStatusCompleted
				return b
			},
			identity: guest,
			req:      wallet,
			expected: domain.ErrBookingCompleted,
		},
		{
			name: "pending booking",
			booking: func() *domain.Booking {
				b := pricedBooking()
				b.Status = domain.BookingStatusPaymentPending
				return b
			},
			identity: guest,
			req:      wallet,
			expected: domain.ErrAttemptInProgress,
		},
		{
			name: "missing seat",
			booking: func() *domain.Booking {
				b := pricedBooking()
				b.Seat = nil
				return b
			},
			identity: guest,
			req:      wallet,
			expected: domain.ErrIncompleteBooking,
		},
		{
			name:     "no provider for method",
			booking:  pricedBooking,
			identity: guest,
			req:      cardRequest("4111111111111111"),
			expected: domain.ErrUnsupportedPaymentMethod,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			b := tc.booking()
			status := b.Status
			err := m.Pay(context.Background(), b, tc.identity, tc.req)
			assert.True(t, errors.Is(err, tc.expected), "got %v", err)
			assert.Equal(t, status, b.Status)
			assert.Nil(t, b.PaymentAttempt)
		})
	}
}

func TestMachine_Pay_StoreFailureKeepsCompletedBooking(t *testing.T) {
	store := &MockBookingStore{}
	logger, _ := test.NewNullLogger()
	m := NewMachine(store, logger, WithProvider(domain.PaymentMethodWalletRedirect, NewSimulatedProvider("WLT", 0)))
	b := pricedBooking()
	ctx := context.Background()

	store.On("Append", ctx, mock.Anything).Return(errors.New("db down")).Once()
	err := m.Pay(ctx, b, guest, Request{Method: domain.PaymentMethodWalletRedirect})
	assert.Error(t, err)
	assert.Equal(t, domain.BookingStatusCompleted, b.Status)

	store.On("Append", ctx, mock.Anything).Return(nil).Once()
	assert.NoError(t, m.Persist(ctx, b))
	store.AssertExpectations(t)

	assert.ErrorIs(t, m.Persist(ctx, pricedBooking()), domain.ErrBookingNotCompleted)
}

func TestSimulatedProvider(t *testing.T) {
	p := NewSimulatedProvider("TXN", 0, "4000 0000 0000 0002")
	ctx := context.Background()
	card := func(number string) Charge {
		return Charge{AmountCents: 100, Card: &CardDetails{Number: number}}
	}

	outcome, err := p.Submit(ctx, card("4111111111111111"))
	require.NoError(t, err)
	assert.True(t, outcome.Succeeded)
	assert.Contains(t, outcome.TransactionID, "TXN-")

	outcome, err = p.Submit(ctx, card("4000-0000-0000-0002"))
	require.NoError(t, err)
	assert.False(t, outcome.Succeeded)
	assert.Equal(t, "card declined", outcome.Reason)

	// Same last four digits, different card.
	outcome, err = p.Submit(ctx, card("5500000000000002"))
	require.NoError(t, err)
	assert.True(t, outcome.Succeeded)

	outcome, err = p.Submit(ctx, Charge{AmountCents: -1})
	require.NoError(t, err)
	assert.False(t, outcome.Succeeded)
}

func TestSimulatedProvider_ZeroTotal(t *testing.T) {
	p := NewSimulatedProvider("WLT", 0)

	outcome, err := p.Submit(context.Background(), Charge{Attempt: domain.PaymentAttempt{Method: domain.PaymentMethodWalletRedirect}})
	require.NoError(t, err)
	assert.True(t, outcome.Succeeded)
	assert.Contains(t, outcome.TransactionID, "WLT-")
}

func TestMachine_Pay_ZeroTotalCompletes(t *testing.T) {
	store := &MockBookingStore{}
	logger, _ := test.NewNullLogger()
	m := NewMachine(store, logger, WithProvider(domain.PaymentMethodWalletRedirect, NewSimulatedProvider("WLT", 0)))
	b := pricedBooking()
	b.Flight.PriceCents = 0
	b.Seat.PriceCents = 0
	b.FarePlanID = "economy"
	b.TotalCents = 0
	ctx := context.Background()

	store.On("Append", ctx, mock.MatchedBy(func(stored domain.Booking) bool {
		return stored.TotalCents == 0 && stored.Status == domain.BookingStatusCompleted
	})).Return(nil).Once()

	require.NoError(t, m.Pay(ctx, b, guest, Request{Method: domain.PaymentMethodWalletRedirect}))
	assert.Equal(t, domain.BookingStatusCompleted, b.Status)
	store.AssertExpectations(t)
}

func TestSimulatedProvider_HonorsContext(t *testing.T) {
	p := NewSimulatedProvider("WLT", time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Submit(ctx, Charge{AmountCents: 100})
	assert.ErrorIs(t, err, context.Canceled)
}
