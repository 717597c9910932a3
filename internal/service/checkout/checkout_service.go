// Package checkout runs checkout sessions: it opens a session over a flight,
// routes seat, baggage, plan and passenger edits to their engines, prices the
// booking and drives the payment. Each session is mutated by one request at
// a time.
package checkout

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Domenick1991/skycheckout/internal/baggage"
	"github.com/Domenick1991/skycheckout/internal/domain"
	"github.com/Domenick1991/skycheckout/internal/fares"
	"github.com/Domenick1991/skycheckout/internal/kafka"
	"github.com/Domenick1991/skycheckout/internal/seatmap"
	"github.com/Domenick1991/skycheckout/internal/service/booking"
	"github.com/Domenick1991/skycheckout/internal/service/payment"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type CheckoutUseCase interface {
	OpenSession(ctx context.Context, flightID int64, device string) (*Session, error)
	GetSession(ctx context.Context, id string) (*Session, error)
	SeatMap(ctx context.Context, id string) ([]domain.Seat, error)
	SelectSeat(ctx context.Context, id, seatID string) (domain.Seat, error)
	SetBaggage(ctx context.Context, id, optionID string, quantity int) (domain.BaggageSelection, error)
	SetFarePlan(ctx context.Context, id, planID string) error
	SetPassenger(ctx context.Context, id string, passenger domain.PassengerDetails, emergency domain.EmergencyContact) error
	Price(ctx context.Context, id string) (*domain.Booking, error)
	Pay(ctx context.Context, id string, req payment.Request) (*domain.Booking, error)
	Abandon(ctx context.Context, id string) error
	Bookings(ctx context.Context) ([]domain.Booking, error)
	Catalog() Catalog
}

type FlightSource interface {
	GetByID(ctx context.Context, id int64) (*domain.Flight, error)
}

// BookingStore is the persistence for completed bookings.
type BookingStore interface {
	payment.BookingStore
	QueryByIdentity(ctx context.Context, identityID string) ([]domain.Booking, error)
	OccupiedSeats(ctx context.Context, flightID int64) ([]string, error)
}

type IdentityProvider interface {
	CurrentIdentity(ctx context.Context) (*domain.Identity, bool)
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

// retryingProducer is used for confirmations when the producer supports it.
type retryingProducer interface {
	PublishWithRetry(ctx context.Context, topic, key string, value interface{}, maxRetries int) error
}

const notificationRetries = 3

// ContextIdentity reads the identity placed on the request context by the
// auth middleware.
type ContextIdentity struct{}

func (ContextIdentity) CurrentIdentity(ctx context.Context) (*domain.Identity, bool) {
	return domain.IdentityFromContext(ctx)
}

// Catalog is what a client needs to render baggage and plan choices.
type Catalog struct {
	Baggage          []fares.BaggageOption `json:"baggage"`
	MandatoryBaggage string                `json:"mandatory_baggage"`
	FarePlans        []fares.FarePlan      `json:"fare_plans"`
	DefaultFarePlan  string                `json:"default_fare_plan"`
}

type CheckoutService struct {
	flights    FlightSource
	store      BookingStore
	sessions   SessionStore
	layout     *seatmap.Layout
	fares      *fares.Table
	aggregator *booking.Aggregator
	payments   *payment.Machine
	identities IdentityProvider
	logger     *logrus.Logger

	producer           Producer
	bookingTopic       string
	notificationsTopic string
	paymentLockTTL     time.Duration
	paymentTimeout     time.Duration
	now                func() time.Time

	mu sync.Mutex
}

type CheckoutServiceOption func(*CheckoutService)

func WithEvents(producer Producer, bookingTopic string) CheckoutServiceOption {
	return func(s *CheckoutService) {
		s.producer = producer
		s.bookingTopic = bookingTopic
	}
}

func WithNotificationsTopic(topic string) CheckoutServiceOption {
	return func(s *CheckoutService) {
		s.notificationsTopic = topic
	}
}

func WithIdentityProvider(identities IdentityProvider) CheckoutServiceOption {
	return func(s *CheckoutService) {
		s.identities = identities
	}
}

func WithPaymentLockTTL(ttl time.Duration) CheckoutServiceOption {
	return func(s *CheckoutService) {
		s.paymentLockTTL = ttl
	}
}

// WithPaymentTimeout bounds a single provider call. It is capped below the
// payment lock TTL so the lock outlives the call.
func WithPaymentTimeout(timeout time.Duration) CheckoutServiceOption {
	return func(s *CheckoutService) {
		s.paymentTimeout = timeout
	}
}

func WithClock(now func() time.Time) CheckoutServiceOption {
	return func(s *CheckoutService) {
		s.now = now
	}
}

func NewCheckoutService(
	flights FlightSource,
	store BookingStore,
	sessions SessionStore,
	layout *seatmap.Layout,
	table *fares.Table,
	payments *payment.Machine,
	logger *logrus.Logger,
	opts ...CheckoutServiceOption,
) *CheckoutService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	s := &CheckoutService{
		flights:        flights,
		store:          store,
		sessions:       sessions,
		layout:         layout,
		fares:          table,
		payments:       payments,
		identities:     ContextIdentity{},
		logger:         logger,
		paymentLockTTL: time.Minute,
		paymentTimeout: 30 * time.Second,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.paymentTimeout <= 0 || s.paymentTimeout >= s.paymentLockTTL {
		s.paymentTimeout = s.paymentLockTTL / 2
	}
	s.aggregator = booking.NewAggregator(table, booking.WithClock(s.now))
	return s
}

// OpenSession loads the flight and snapshots the seats already sold on it.
// The snapshot is not refreshed for the life of the session.
func (s *CheckoutService) OpenSession(ctx context.Context, flightID int64, device string) (*Session, error) {
	flight, err := s.flights.GetByID(ctx, flightID)
	if err != nil {
		return nil, err
	}
	occupied, err := s.store.OccupiedSeats(ctx, flightID)
	if err != nil {
		return nil, fmt.Errorf("load occupied seats: %w", err)
	}
	selector, err := baggage.NewSelector(s.fares, nil)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	session := &Session{
		ID:         uuid.NewString(),
		Device:     device,
		Flight:     *flight,
		Occupied:   occupied,
		Baggage:    selector.Selections(),
		FarePlanID: s.fares.DefaultFarePlan().ID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if identity, ok := s.identities.CurrentIdentity(ctx); ok {
		session.IdentityID = identity.ID
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"session_id": session.ID,
		"flight_id":  flightID,
		"occupied":   len(occupied),
		"available":  s.seatMap(session).AvailableCount(),
	}).Info("checkout session opened")
	return session, nil
}

// GetSession also retries storing a completed booking whose first append failed.
func (s *CheckoutService) GetSession(ctx context.Context, id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.Status() == domain.BookingStatusCompleted && !session.Persisted {
		if err := s.payments.Persist(ctx, session.Booking); err != nil {
			s.logger.WithError(err).WithField("session_id", id).Warn("completed booking still not stored")
			return session, nil
		}
		session.Persisted = true
		if err := s.sessions.Save(ctx, session); err != nil {
			return nil, fmt.Errorf("save session: %w", err)
		}
	}
	return session, nil
}

func (s *CheckoutService) SeatMap(ctx context.Context, id string) ([]domain.Seat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.seatMap(session).Seats(), nil
}

func (s *CheckoutService) SelectSeat(ctx context.Context, id, seatID string) (domain.Seat, error) {
	var selected domain.Seat
	err := s.edit(ctx, id, func(session *Session) error {
		seat, err := s.seatMap(session).Select(seatID)
		if err != nil {
			return err
		}
		session.SelectedSeat = seat.ID
		selected = seat
		return nil
	})
	if err != nil {
		return domain.Seat{}, err
	}

	s.logger.WithFields(logrus.Fields{"session_id": id, "seat": selected.ID, "price": selected.PriceCents}).Info("seat selected")
	return selected, nil
}

func (s *CheckoutService) SetBaggage(ctx context.Context, id, optionID string, quantity int) (domain.BaggageSelection, error) {
	var result domain.BaggageSelection
	err := s.edit(ctx, id, func(session *Session) error {
		selector, err := baggage.NewSelector(s.fares, session.Baggage)
		if err != nil {
			return err
		}
		result, err = selector.SetQuantity(optionID, quantity)
		if err != nil {
			return err
		}
		session.Baggage = selector.Selections()
		return nil
	})
	if err != nil {
		return domain.BaggageSelection{}, err
	}
	return result, nil
}

func (s *CheckoutService) SetFarePlan(ctx context.Context, id, planID string) error {
	return s.edit(ctx, id, func(session *Session) error {
		if _, ok := s.fares.FarePlan(planID); !ok {
			return fmt.Errorf("%w: %s", domain.ErrUnknownFarePlan, planID)
		}
		session.FarePlanID = planID
		return nil
	})
}

func (s *CheckoutService) SetPassenger(ctx context.Context, id string, passenger domain.PassengerDetails, emergency domain.EmergencyContact) error {
	return s.edit(ctx, id, func(session *Session) error {
		session.Passenger = passenger
		session.Emergency = emergency
		return nil
	})
}

// Price assembles the booking from the current selections. Nothing is
// stored beyond the session.
func (s *CheckoutService) Price(ctx context.Context, id string) (*domain.Booking, error) {
	identity, _ := s.identities.CurrentIdentity(ctx)

	var priced *domain.Booking
	err := s.edit(ctx, id, func(session *Session) error {
		selector, err := baggage.NewSelector(s.fares, session.Baggage)
		if err != nil {
			return err
		}
		in := booking.AssembleInput{
			Identity:         identity,
			Flight:           session.Flight,
			Passenger:        session.Passenger,
			EmergencyContact: session.Emergency,
			Baggage:          selector.Selections(),
			FarePlanID:       session.FarePlanID,
		}
		if seat, ok := s.seatMap(session).Selected(); ok {
			in.Seat = &seat
		}

		b, err := s.aggregator.Assemble(in)
		if err != nil {
			return err
		}
		session.Booking = b
		priced = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{"session_id": id, "booking_id": priced.ID, "total": priced.TotalCents}).Info("booking priced")
	s.publish(ctx, s.bookingTopic, s.event(kafka.EventBookingPriced, id, priced))
	return priced.Clone(), nil
}

// Pay runs one payment attempt. The session is marked payment_pending while
// the provider is working so other requests see the attempt in progress.
// The attempt is not tied to the request: a client that disconnects does not
// abort a charge the provider may already have taken.
func (s *CheckoutService) Pay(ctx context.Context, id string, req payment.Request) (*domain.Booking, error) {
	identity, ok := s.identities.CurrentIdentity(ctx)
	if !ok {
		return nil, domain.ErrIdentityRequired
	}

	session, err := s.beginPayment(ctx, id, identity, req)
	if err != nil {
		return nil, err
	}
	bg := context.WithoutCancel(ctx)
	defer func() {
		if err := s.sessions.ReleasePaymentLock(bg, id); err != nil {
			s.logger.WithError(err).WithField("session_id", id).Warn("release payment lock")
		}
	}()

	b := session.Booking
	payCtx, cancel := context.WithTimeout(bg, s.paymentTimeout)
	payErr := s.payments.Pay(payCtx, b, identity, req)
	cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	completed := b.Status == domain.BookingStatusCompleted
	if completed && payErr != nil {
		s.logger.WithError(payErr).WithField("booking_id", b.ID).Error("completed booking not stored, will retry")
		payErr = nil
	} else if completed {
		session.Persisted = true
	}
	session.UpdatedAt = s.now().UTC()
	if err := s.sessions.Save(bg, session); err != nil {
		// The pending marker stays behind and is settled by load once the
		// payment lock is released.
		s.logger.WithError(err).WithFields(logrus.Fields{
			"session_id": id,
			"booking_id": b.ID,
			"status":     b.Status,
		}).Error("save session after payment")
		if !completed && payErr == nil {
			payErr = fmt.Errorf("save session: %w", err)
		}
	}

	if payErr != nil {
		if b.PaymentFailed() {
			s.publish(bg, s.bookingTopic, s.event(kafka.EventPaymentFailed, id, b))
		}
		return nil, payErr
	}

	event := s.event(kafka.EventBookingCompleted, id, b)
	s.publish(bg, s.bookingTopic, event)
	s.notify(bg, event)
	return b.Clone(), nil
}

// beginPayment checks the session is payable, takes the payment lock and
// stores the pending marker.
func (s *CheckoutService) beginPayment(ctx context.Context, id string, identity *domain.Identity, req payment.Request) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	switch session.Status() {
	case domain.BookingStatusDraft:
		return nil, domain.ErrBookingNotPriced
	case domain.BookingStatusPaymentPending:
		return nil, domain.ErrAttemptInProgress
	case domain.BookingStatusCompleted:
		return nil, domain.ErrBookingCompleted
	}
	if err := payment.Validate(req); err != nil {
		return nil, err
	}

	acquired, err := s.sessions.AcquirePaymentLock(ctx, id, s.paymentLockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire payment lock: %w", err)
	}
	if !acquired {
		return nil, domain.ErrAttemptInProgress
	}

	// The payer owns the session from here on, so a pending marker left by a
	// failed save can be matched against that identity's stored bookings.
	if session.IdentityID == "" {
		session.IdentityID = identity.ID
	}
	session.Booking.IdentityID = session.IdentityID

	pending := *session
	pending.Booking = session.Booking.Clone()
	pending.Booking.Status = domain.BookingStatusPaymentPending
	pending.UpdatedAt = s.now().UTC()
	if err := s.sessions.Save(ctx, &pending); err != nil {
		_ = s.sessions.ReleasePaymentLock(ctx, id)
		return nil, fmt.Errorf("save session: %w", err)
	}
	return session, nil
}

// Abandon discards a session. Nothing outside the session is touched.
func (s *CheckoutService) Abandon(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if session.Status() == domain.BookingStatusPaymentPending {
		return domain.ErrAttemptInProgress
	}
	if err := s.sessions.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	s.logger.WithField("session_id", id).Info("checkout session abandoned")
	return nil
}

func (s *CheckoutService) Bookings(ctx context.Context) ([]domain.Booking, error) {
	identity, ok := s.identities.CurrentIdentity(ctx)
	if !ok {
		return nil, domain.ErrIdentityRequired
	}
	return s.store.QueryByIdentity(ctx, identity.ID)
}

func (s *CheckoutService) Catalog() Catalog {
	return Catalog{
		Baggage:          s.fares.BaggageOptions(),
		MandatoryBaggage: s.fares.MandatoryBaggage().ID,
		FarePlans:        s.fares.FarePlans(),
		DefaultFarePlan:  s.fares.DefaultFarePlan().ID,
	}
}

// edit applies fn to an editable session and saves it. A priced booking is
// dropped back to draft because its total no longer holds.
func (s *CheckoutService) edit(ctx context.Context, id string, fn func(*Session) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	switch session.Status() {
	case domain.BookingStatusPaymentPending:
		return domain.ErrAttemptInProgress
	case domain.BookingStatusCompleted:
		return domain.ErrBookingCompleted
	}

	if session.IdentityID == "" {
		if identity, ok := s.identities.CurrentIdentity(ctx); ok {
			session.IdentityID = identity.ID
		}
	}
	session.Booking = nil
	if err := fn(session); err != nil {
		return err
	}
	session.UpdatedAt = s.now().UTC()
	if err := s.sessions.Save(ctx, session); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// load returns the session when the caller may see it. A session owned by
// another identity, or by anyone when the caller is anonymous, is reported as
// not found. A payment_pending marker whose lock has lapsed is settled first.
// Callers hold s.mu.
func (s *CheckoutService) load(ctx context.Context, id string) (*Session, error) {
	session, err := s.sessions.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.IdentityID != "" {
		identity, ok := s.identities.CurrentIdentity(ctx)
		if !ok || identity.ID != session.IdentityID {
			return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
		}
	}
	if session.Status() == domain.BookingStatusPaymentPending {
		if err := s.reconcile(ctx, session); err != nil {
			return nil, err
		}
	}
	return session, nil
}

// reconcile settles a payment_pending session nobody is paying anymore: the
// process died mid-payment or the save after the payment failed. A booking
// found in the store completes the session; otherwise it goes back to priced
// with a failed attempt. A held lock means the payment is still running and
// the session is left as is.
func (s *CheckoutService) reconcile(ctx context.Context, session *Session) error {
	acquired, err := s.sessions.AcquirePaymentLock(ctx, session.ID, s.paymentLockTTL)
	if err != nil {
		return fmt.Errorf("acquire payment lock: %w", err)
	}
	if !acquired {
		return nil
	}
	defer func() {
		if err := s.sessions.ReleasePaymentLock(ctx, session.ID); err != nil {
			s.logger.WithError(err).WithField("session_id", session.ID).Warn("release payment lock")
		}
	}()

	stored, err := s.storedBooking(ctx, session.IdentityID, session.Booking.ID)
	if err != nil {
		return err
	}
	now := s.now().UTC()
	if stored != nil {
		session.Booking = stored
		session.Persisted = true
	} else {
		session.Booking.Status = domain.BookingStatusPriced
		session.Booking.PaymentAttempt = &domain.PaymentAttempt{
			Status:        domain.AttemptStatusFailed,
			Timestamp:     now,
			FailureReason: "payment did not finish",
		}
	}
	session.UpdatedAt = now
	if err := s.sessions.Save(ctx, session); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"session_id": session.ID,
		"booking_id": session.Booking.ID,
		"status":     session.Booking.Status,
	}).Warn("stale pending payment reconciled")
	return nil
}

func (s *CheckoutService) storedBooking(ctx context.Context, identityID, bookingID string) (*domain.Booking, error) {
	if identityID == "" {
		return nil, nil
	}
	bookings, err := s.store.QueryByIdentity(ctx, identityID)
	if err != nil {
		return nil, fmt.Errorf("query bookings: %w", err)
	}
	for i := range bookings {
		if bookings[i].ID == bookingID {
			return &bookings[i], nil
		}
	}
	return nil, nil
}

func (s *CheckoutService) seatMap(session *Session) *seatmap.SeatMap {
	m := seatmap.New(s.layout, s.fares, session.Occupied)
	if session.SelectedSeat != "" {
		if _, err := m.Select(session.SelectedSeat); err != nil {
			s.logger.WithError(err).WithField("session_id", session.ID).Warn("stored seat selection no longer valid")
		}
	}
	return m
}

func (s *CheckoutService) event(typ, sessionID string, b *domain.Booking) kafka.BookingEvent {
	event := kafka.BookingEvent{
		Type:       typ,
		SessionID:  sessionID,
		BookingID:  b.ID,
		FlightID:   b.Flight.ID,
		Email:      b.Passenger.Email,
		Status:     string(b.Status),
		TotalCents: b.TotalCents,
		At:         s.now().UTC(),
	}
	if b.Seat != nil {
		event.SeatID = b.Seat.ID
	}
	if b.PaymentAttempt != nil {
		event.TransactionID = b.PaymentAttempt.TransactionID
		event.Reason = b.PaymentAttempt.FailureReason
	}
	return event
}

// publish is best effort; a lost event never fails the checkout.
func (s *CheckoutService) publish(ctx context.Context, topic string, event kafka.BookingEvent) {
	if s.producer == nil || topic == "" {
		return
	}
	if err := s.producer.Publish(ctx, topic, event.BookingID, event); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{"topic": topic, "type": event.Type}).Warn("publish booking event")
	}
}

// notify sends the confirmation to the notifications topic, retrying when
// the producer can.
func (s *CheckoutService) notify(ctx context.Context, event kafka.BookingEvent) {
	retrying, ok := s.producer.(retryingProducer)
	if !ok || s.notificationsTopic == "" {
		s.publish(ctx, s.notificationsTopic, event)
		return
	}
	if err := retrying.PublishWithRetry(ctx, s.notificationsTopic, event.BookingID, event, notificationRetries); err != nil {
		s.logger.WithError(err).WithField("booking_id", event.BookingID).Error("confirmation not published")
	}
}

var _ CheckoutUseCase = (*CheckoutService)(nil)
