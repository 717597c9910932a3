package api

import (
	"net/http"

	"github.com/Domenick1991/skycheckout/internal/domain"
	"github.com/Domenick1991/skycheckout/internal/service/checkout"
	"github.com/Domenick1991/skycheckout/internal/service/payment"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type CheckoutHandler struct {
	service checkout.CheckoutUseCase
	logger  *logrus.Logger
}

type openSessionRequest struct {
	FlightID int64 `json:"flight_id" binding:"required"`
}

type selectSeatRequest struct {
	SeatID string `json:"seat_id" binding:"required"`
}

type baggageRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

type farePlanRequest struct {
	FarePlanID string `json:"fare_plan_id" binding:"required"`
}

type passengerRequest struct {
	Passenger        domain.PassengerDetails `json:"passenger"`
	EmergencyContact domain.EmergencyContact `json:"emergency_contact"`
}

type seatResponse struct {
	domain.Seat
	Label string `json:"label"`
}

type sessionResponse struct {
	*checkout.Session
	Status domain.BookingStatus `json:"status"`
}

func NewCheckoutHandler(service checkout.CheckoutUseCase, logger *logrus.Logger) *CheckoutHandler {
	return &CheckoutHandler{service: service, logger: logger}
}

func (h *CheckoutHandler) Register(router *gin.RouterGroup) {
	router.GET("/catalog", h.catalog)
	router.POST("/sessions", h.open)
	router.GET("/sessions/:id", h.get)
	router.DELETE("/sessions/:id", h.abandon)
	router.GET("/sessions/:id/seats", h.seats)
	router.PUT("/sessions/:id/seat", h.selectSeat)
	router.PUT("/sessions/:id/baggage/:option", h.setBaggage)
	router.PUT("/sessions/:id/plan", h.setFarePlan)
	router.PUT("/sessions/:id/passenger", h.setPassenger)
	router.POST("/sessions/:id/price", h.price)
	router.POST("/sessions/:id/payment", h.pay)
	router.GET("/bookings", h.bookings)
}

func (h *CheckoutHandler) catalog(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Catalog())
}

func (h *CheckoutHandler) open(c *gin.Context) {
	var req openSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	session, err := h.service.OpenSession(c.Request.Context(), req.FlightID, describeDevice(c.Request.UserAgent()))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, sessionResponse{Session: session, Status: session.Status()})
}

func (h *CheckoutHandler) get(c *gin.Context) {
	session, err := h.service.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, sessionResponse{Session: session, Status: session.Status()})
}

func (h *CheckoutHandler) abandon(c *gin.Context) {
	if err := h.service.Abandon(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CheckoutHandler) seats(c *gin.Context) {
	seats, err := h.service.SeatMap(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	resp := make([]seatResponse, 0, len(seats))
	for _, seat := range seats {
		resp = append(resp, seatResponse{Seat: seat, Label: seat.Label()})
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CheckoutHandler) selectSeat(c *gin.Context) {
	var req selectSeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	seat, err := h.service.SelectSeat(c.Request.Context(), c.Param("id"), req.SeatID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, seatResponse{Seat: seat, Label: seat.Label()})
}

func (h *CheckoutHandler) setBaggage(c *gin.Context) {
	var req baggageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	selection, err := h.service.SetBaggage(c.Request.Context(), c.Param("id"), c.Param("option"), *req.Quantity)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, selection)
}

func (h *CheckoutHandler) setFarePlan(c *gin.Context) {
	var req farePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.service.SetFarePlan(c.Request.Context(), c.Param("id"), req.FarePlanID); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CheckoutHandler) setPassenger(c *gin.Context) {
	var req passengerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.service.SetPassenger(c.Request.Context(), c.Param("id"), req.Passenger, req.EmergencyContact); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CheckoutHandler) price(c *gin.Context) {
	booking, err := h.service.Price(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

func (h *CheckoutHandler) pay(c *gin.Context) {
	var req payment.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	booking, err := h.service.Pay(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

func (h *CheckoutHandler) bookings(c *gin.Context) {
	bookings, err := h.service.Bookings(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, bookings)
}
