package api

import (
	"errors"
	"net/http"

	"github.com/Domenick1991/skycheckout/internal/domain"
	"github.com/Domenick1991/skycheckout/internal/service/payment"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type errorResponse struct {
	Error     string            `json:"error"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	Retryable bool              `json:"retryable,omitempty"`
}

var errorStatuses = []struct {
	err    error
	status int
	code   string
}{
	{domain.ErrSessionNotFound, http.StatusNotFound, "session_not_found"},
	{domain.ErrFlightNotFound, http.StatusNotFound, "flight_not_found"},
	{domain.ErrIdentityRequired, http.StatusUnauthorized, "identity_required"},
	{domain.ErrSeatUnavailable, http.StatusConflict, "seat_unavailable"},
	{domain.ErrAttemptInProgress, http.StatusConflict, "attempt_in_progress"},
	{domain.ErrBookingCompleted, http.StatusConflict, "booking_completed"},
	{domain.ErrBookingNotPriced, http.StatusConflict, "booking_not_priced"},
	{domain.ErrUnknownSeat, http.StatusUnprocessableEntity, "unknown_seat"},
	{domain.ErrQuantityBelowIncludedMinimum, http.StatusUnprocessableEntity, "quantity_below_included_minimum"},
	{domain.ErrUnknownBaggageOption, http.StatusUnprocessableEntity, "unknown_baggage_option"},
	{domain.ErrUnknownFarePlan, http.StatusUnprocessableEntity, "unknown_fare_plan"},
	{domain.ErrIncompleteBooking, http.StatusUnprocessableEntity, "incomplete_booking"},
	{domain.ErrPaymentValidationFailed, http.StatusUnprocessableEntity, "payment_validation_failed"},
	{domain.ErrUnsupportedPaymentMethod, http.StatusUnprocessableEntity, "unsupported_payment_method"},
	{domain.ErrPaymentProviderFailure, http.StatusPaymentRequired, "payment_provider_failure"},
}

// writeError maps domain errors to a status and a stable code. Anything
// unknown is logged and reported as a 500 without its message.
func writeError(c *gin.Context, logger *logrus.Logger, err error) {
	for _, e := range errorStatuses {
		if !errors.Is(err, e.err) {
			continue
		}
		resp := errorResponse{
			Error:     e.code,
			Message:   err.Error(),
			Retryable: payment.IsRetryable(err),
		}
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			resp.Fields = verr.Fields
		}
		c.JSON(e.status, resp)
		return
	}

	logger.WithError(err).WithFields(logrus.Fields{
		"method": c.Request.Method,
		"path":   c.Request.URL.Path,
	}).Error("request failed")
	c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal", Message: "internal server error"})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, errorResponse{Error: "bad_request", Message: err.Error()})
}
