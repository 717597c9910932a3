package flights

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Domenick1991/skycheckout/internal/domain"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockFlightRepository struct {
	mock.Mock
}

func (m *MockFlightRepository) List(ctx context.Context) ([]domain.Flight, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Flight), args.Error(1)
}

func (m *MockFlightRepository) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Flight), args.Error(1)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) GetFlights(ctx context.Context) ([]domain.Flight, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Flight), args.Error(1)
}

func (m *MockCache) SetFlights(ctx context.Context, flights []domain.Flight) error {
	args := m.Called(ctx, flights)
	return args.Error(0)
}

func testFlights() []domain.Flight {
	departure := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	return []domain.Flight{
		{
			ID:             7,
			Airline:        "Iberia",
			FromAirport:    "MAD",
			ToAirport:      "EZE",
			DepartureTime:  departure,
			ArrivalTime:    departure.Add(12 * time.Hour),
			TotalSeats:     180,
			AvailableSeats: 178,
			PriceCents:     30000,
		},
	}
}

func newService(repo *MockFlightRepository, cache FlightCache) *FlightService {
	logger, _ := test.NewNullLogger()
	return NewFlightService(repo, cache, time.Minute, logger)
}

func TestFlightService_List(t *testing.T) {
	cacheErr := errors.New("cache unavailable")
	tests := []struct {
		name      string
		cached    []domain.Flight
		readErr   error
		readsRepo bool
		writeErr  error
	}{
		{name: "cache hit", cached: testFlights()},
		{name: "cache miss", readsRepo: true},
		{name: "cache errors fall back to repository", readErr: cacheErr, readsRepo: true, writeErr: cacheErr},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &MockFlightRepository{}
			cache := &MockCache{}
			ctx := context.Background()
			flights := testFlights()

			cache.On("GetFlights", ctx).Return(tt.cached, tt.readErr).Once()
			if tt.readsRepo {
				repo.On("List", ctx).Return(flights, nil).Once()
				cache.On("SetFlights", ctx, flights).Return(tt.writeErr).Once()
			}

			result, err := newService(repo, cache).List(ctx)

			assert.NoError(t, err)
			assert.Equal(t, flights, result)
			cache.AssertExpectations(t)
			repo.AssertExpectations(t)
			if !tt.readsRepo {
				repo.AssertNotCalled(t, "List")
				cache.AssertNotCalled(t, "SetFlights")
			}
		})
	}
}

func TestFlightService_List_RepositoryError(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	mockCache := &MockCache{}
	service := newService(mockRepo, mockCache)
	ctx := context.Background()

	expectedErr := errors.New("database error")
	mockCache.On("GetFlights", ctx).Return(([]domain.Flight)(nil), nil).Once()
	mockRepo.On("List", ctx).Return([]domain.Flight{}, expectedErr).Once()

	result, err := service.List(ctx)

	assert.Equal(t, expectedErr, err)
	assert.Nil(t, result)
	mockCache.AssertNotCalled(t, "SetFlights")
}

func TestFlightService_GetByID(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	service := newService(mockRepo, &MockCache{})
	ctx := context.Background()
	flight := &testFlights()[0]

	mockRepo.On("GetByID", ctx, int64(7)).Return(flight, nil).Once()
	mockRepo.On("GetByID", ctx, int64(999)).Return(nil, domain.ErrFlightNotFound).Once()

	result, err := service.GetByID(ctx, 7)
	assert.NoError(t, err)
	assert.Equal(t, flight, result)

	result, err = service.GetByID(ctx, 999)
	assert.ErrorIs(t, err, domain.ErrFlightNotFound)
	assert.Nil(t, result)
	mockRepo.AssertExpectations(t)
}

func TestFlightService_NoCache(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	service := newService(mockRepo, nil)
	ctx := context.Background()
	flights := testFlights()

	mockRepo.On("List", ctx).Return(flights, nil).Once()

	result, err := service.List(ctx)

	assert.NoError(t, err)
	assert.Equal(t, flights, result)
	mockRepo.AssertExpectations(t)
}
