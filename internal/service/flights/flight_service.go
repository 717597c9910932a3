package flights

import (
	"context"
	"time"

	"github.com/Domenick1991/skycheckout/internal/domain"
	"github.com/Domenick1991/skycheckout/internal/repository"
	"github.com/sirupsen/logrus"
)

type FlightUseCase interface {
	List(ctx context.Context) ([]domain.Flight, error)
	GetByID(ctx context.Context, id int64) (*domain.Flight, error)
}

type FlightCache interface {
	GetFlights(ctx context.Context) ([]domain.Flight, error)
	SetFlights(ctx context.Context, flights []domain.Flight) error
}

type FlightService struct {
	repo     repository.FlightRepository
	cache    FlightCache
	cacheTTL time.Duration
	logger   *logrus.Logger
}

func NewFlightService(repo repository.FlightRepository, cache FlightCache, cacheTTL time.Duration, logger *logrus.Logger) *FlightService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &FlightService{repo: repo, cache: cache, cacheTTL: cacheTTL, logger: logger}
}

func (s *FlightService) List(ctx context.Context) ([]domain.Flight, error) {
	if s.cache != nil {
		cached, err := s.cache.GetFlights(ctx)
		if err != nil {
			s.logger.WithError(err).Warn("read flights cache")
		} else if cached != nil {
			return cached, nil
		}
	}

	flights, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SetFlights(ctx, flights); err != nil {
			s.logger.WithError(err).Warn("write flights cache")
		}
	}
	return flights, nil
}

// GetByID always reads the repository: a checkout must price against the
// current fare, not a cached one.
func (s *FlightService) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	return s.repo.GetByID(ctx, id)
}

var _ FlightUseCase = (*FlightService)(nil)
