package domain

import "time"

type BookingStatus string

const (
	BookingStatusDraft          BookingStatus = "draft"
	BookingStatusPriced         BookingStatus = "priced"
	BookingStatusPaymentPending BookingStatus = "payment_pending"
	BookingStatusCompleted      BookingStatus = "completed"
)

type PassengerDetails struct {
	FullName   string `json:"full_name"`
	DocumentID string `json:"document_id"`
	Phone      string `json:"phone"`
	Email      string `json:"email"`
}

type EmergencyContact struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type Booking struct {
	ID               string             `json:"id"`
	IdentityID       string             `json:"identity_id,omitempty"`
	Flight           Flight             `json:"flight"`
	Passenger        PassengerDetails   `json:"passenger"`
	EmergencyContact EmergencyContact   `json:"emergency_contact"`
	Seat             *Seat              `json:"seat"`
	Baggage          []BaggageSelection `json:"baggage"`
	FarePlanID       string             `json:"fare_plan_id"`
	TotalCents       int64              `json:"total_cents"`
	Status           BookingStatus      `json:"status"`
	CreatedAt        time.Time          `json:"created_at"`
	PaymentAttempt   *PaymentAttempt    `json:"payment_attempt,omitempty"`
}

// PaymentFailed reports a priced booking whose last attempt was declined.
func (b *Booking) PaymentFailed() bool {
	return b.Status == BookingStatusPriced && b.PaymentAttempt != nil && b.PaymentAttempt.Status == AttemptStatusFailed
}

// Clone returns a deep copy so a completed booking can be handed out without sharing state.
func (b *Booking) Clone() *Booking {
	if b == nil {
		return nil
	}
	c := *b
	if b.Seat != nil {
		seat := *b.Seat
		c.Seat = &seat
	}
	if b.Baggage != nil {
		c.Baggage = append([]BaggageSelection(nil), b.Baggage...)
	}
	if b.PaymentAttempt != nil {
		attempt := *b.PaymentAttempt
		c.PaymentAttempt = &attempt
	}
	return &c
}
