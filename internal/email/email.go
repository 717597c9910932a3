package email

import (
	"context"
	"fmt"

	"github.com/Domenick1991/skycheckout/internal/kafka"
	"github.com/sirupsen/logrus"
)

// Sender logs the confirmation instead of talking to a mail server.
type Sender struct {
	logger *logrus.Logger
}

func NewSender(logger *logrus.Logger) *Sender {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Sender{logger: logger}
}

func (s *Sender) Send(ctx context.Context, event kafka.BookingEvent) error {
	if event.Email == "" {
		return fmt.Errorf("booking %s has no e-mail address", event.BookingID)
	}
	s.logger.WithFields(logrus.Fields{
		"to":             event.Email,
		"type":           event.Type,
		"booking_id":     event.BookingID,
		"flight_id":      event.FlightID,
		"seat":           event.SeatID,
		"transaction_id": event.TransactionID,
	}).Info(Subject(event))
	return nil
}

func Subject(event kafka.BookingEvent) string {
	switch event.Type {
	case kafka.EventBookingCompleted:
		return fmt.Sprintf("Your booking is confirmed: flight %d, seat %s", event.FlightID, event.SeatID)
	case kafka.EventPaymentFailed:
		return fmt.Sprintf("Payment for booking %s did not go through", event.BookingID)
	default:
		return fmt.Sprintf("Update on booking %s", event.BookingID)
	}
}
