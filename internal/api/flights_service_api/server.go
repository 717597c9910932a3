package flights_service_api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Domenick1991/skycheckout/internal/domain"
	"github.com/Domenick1991/skycheckout/internal/service/flights"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Flight is the gateway representation of a flight, times in RFC3339.
type Flight struct {
	ID             int64  `json:"id"`
	Airline        string `json:"airline"`
	FromAirport    string `json:"from_airport"`
	ToAirport      string `json:"to_airport"`
	DepartureTime  string `json:"departure_time"`
	ArrivalTime    string `json:"arrival_time"`
	Stops          int32  `json:"stops"`
	TotalSeats     int32  `json:"total_seats"`
	AvailableSeats int32  `json:"available_seats"`
	PriceCents     int64  `json:"price_cents"`
}

type ListFlightsResponse struct {
	Flights []*Flight `json:"flights"`
}

type GetFlightResponse struct {
	Flight *Flight `json:"flight"`
}

// Server exposes the flight catalogue on the gateway mux under /v1/flights.
type Server struct {
	flights   flights.FlightUseCase
	logger    *logrus.Logger
	marshaler runtime.Marshaler
	mux       *runtime.ServeMux
}

func NewServer(flights flights.FlightUseCase, logger *logrus.Logger) *Server {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Server{flights: flights, logger: logger, marshaler: &runtime.JSONBuiltin{}}
}

func (s *Server) Register(mux *runtime.ServeMux) error {
	s.mux = mux
	if err := mux.HandlePath(http.MethodGet, "/v1/flights", s.ListFlights); err != nil {
		return err
	}
	return mux.HandlePath(http.MethodGet, "/v1/flights/{id}", s.GetFlight)
}

func (s *Server) ListFlights(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	list, err := s.flights.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := &ListFlightsResponse{
		Flights: make([]*Flight, 0, len(list)),
	}
	for _, f := range list {
		resp.Flights = append(resp.Flights, toGatewayFlight(&f))
	}
	s.write(w, r, resp)
}

func (s *Server) GetFlight(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	id, err := strconv.ParseInt(pathParams["id"], 10, 64)
	if err != nil {
		s.writeError(w, r, status.Errorf(codes.InvalidArgument, "invalid flight id %q", pathParams["id"]))
		return
	}
	flight, err := s.flights.GetByID(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.write(w, r, &GetFlightResponse{Flight: toGatewayFlight(flight)})
}

func (s *Server) write(w http.ResponseWriter, r *http.Request, v any) {
	body, err := s.marshaler.Marshal(v)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", s.marshaler.ContentType(v))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		s.logger.WithError(err).Warn("write gateway response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if _, ok := status.FromError(err); !ok {
		switch {
		case errors.Is(err, domain.ErrFlightNotFound):
			err = status.Error(codes.NotFound, err.Error())
		default:
			s.logger.WithError(err).WithField("path", r.URL.Path).Error("gateway request failed")
			err = status.Error(codes.Internal, "internal server error")
		}
	}
	mux := s.mux
	if mux == nil {
		mux = runtime.NewServeMux()
	}
	runtime.HTTPError(r.Context(), mux, s.marshaler, w, r, err)
}

func toGatewayFlight(f *domain.Flight) *Flight {
	if f == nil {
		return nil
	}
	return &Flight{
		ID:             f.ID,
		Airline:        f.Airline,
		FromAirport:    f.FromAirport,
		ToAirport:      f.ToAirport,
		DepartureTime:  f.DepartureTime.Format(time.RFC3339),
		ArrivalTime:    f.ArrivalTime.Format(time.RFC3339),
		Stops:          int32(f.Stops),
		TotalSeats:     int32(f.TotalSeats),
		AvailableSeats: int32(f.AvailableSeats),
		PriceCents:     f.PriceCents,
	}
}
