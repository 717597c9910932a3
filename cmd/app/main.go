package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/skycheckout/api"
	"github.com/Domenick1991/skycheckout/config"
	"github.com/Domenick1991/skycheckout/internal/bootstrap"
	"github.com/Domenick1991/skycheckout/internal/cache"
	"github.com/Domenick1991/skycheckout/internal/domain"
	"github.com/Domenick1991/skycheckout/internal/fares"
	"github.com/Domenick1991/skycheckout/internal/kafka"
	"github.com/Domenick1991/skycheckout/internal/repository"
	"github.com/Domenick1991/skycheckout/internal/seatmap"
	"github.com/Domenick1991/skycheckout/internal/service/checkout"
	"github.com/Domenick1991/skycheckout/internal/service/flights"
	"github.com/Domenick1991/skycheckout/internal/service/payment"
	"github.com/Domenick1991/skycheckout/pkg/jwt"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	if err := config.LoadEnv(".env"); err != nil {
		logger.WithError(err).Fatal("load env")
	}

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		logger.WithError(err).Fatal("load config")
	}

	logLevel, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		logger.WithField("level", cfg.Log.Level).Warn("invalid log level, using info")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	flightRepo, bookingStore, closeStorage, err := openStorage(ctx, cfg)
	if err != nil {
		logger.WithError(err).Fatal("open storage")
	}
	defer closeStorage.Close()
	logger.WithField("driver", cfg.Storage.Driver).Info("storage ready")

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = cache.NewClient(cfg.Redis)
		defer redisClient.Close()
	}

	var flightCache flights.FlightCache
	if redisClient != nil {
		flightCache = cache.NewRedisCache(redisClient, time.Duration(cfg.Flights.CacheTTLSeconds)*time.Second)
	}
	flightService := flights.NewFlightService(flightRepo, flightCache, time.Duration(cfg.Flights.CacheTTLSeconds)*time.Second, logger)

	sessionTTL := time.Duration(cfg.Session.TTLMinutes) * time.Minute
	var sessions checkout.SessionStore
	switch cfg.Session.Driver {
	case "redis":
		if redisClient == nil {
			logger.Fatal("session driver redis requires redis.addr")
		}
		sessions = cache.NewSessionStore(redisClient, sessionTTL)
	case "memory":
		sessions = checkout.NewMemorySessionStore(sessionTTL)
	default:
		logger.WithField("driver", cfg.Session.Driver).Fatal("unknown session driver")
	}

	layout, err := seatmap.NewLayout(cfg.Layout)
	if err != nil {
		logger.WithError(err).Fatal("build cabin layout")
	}
	table, err := fares.New(cfg.Fares)
	if err != nil {
		logger.WithError(err).Fatal("build fare tables")
	}

	machine := payment.NewMachine(bookingStore, logger,
		payment.WithProvider(domain.PaymentMethodCardGateway,
			payment.NewSimulatedProvider("TXN", millis(cfg.Payment.CardGatewayDelayMS), cfg.Payment.DeclinedCards...)),
		payment.WithProvider(domain.PaymentMethodManualCard,
			payment.NewSimulatedProvider("TXN", millis(cfg.Payment.ManualCardDelayMS), cfg.Payment.DeclinedCards...)),
		payment.WithProvider(domain.PaymentMethodWalletRedirect,
			payment.NewSimulatedProvider("WLT", millis(cfg.Payment.WalletRedirectDelayMS))),
	)

	opts := []checkout.CheckoutServiceOption{
		checkout.WithPaymentLockTTL(2 * time.Minute),
		checkout.WithPaymentTimeout(time.Minute),
	}
	if len(cfg.Kafka.Brokers) > 0 {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, logger)
		defer producer.Close()
		if err := producer.CheckConnection(ctx); err != nil {
			logger.WithError(err).Warn("kafka is not reachable, events will be dropped until it is")
		}
		opts = append(opts,
			checkout.WithEvents(producer, cfg.Kafka.BookingEventsTopic),
			checkout.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
		)
	}
	checkoutService := checkout.NewCheckoutService(flightService, bookingStore, sessions, layout, table, machine, logger, opts...)

	tokens := jwt.NewService(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenExpiryMinutes)*time.Minute)
	router := api.NewRouter(api.RouterConfig{
		Checkout:    checkoutService,
		Flights:     flightService,
		Tokens:      tokens,
		Logger:      logger,
		CORSOrigins: cfg.HTTP.CORSOrigins,
	})

	if err := bootstrap.Run(ctx, cfg, router, flightService, logger); err != nil {
		logger.WithError(err).Fatal("server error")
	}
	logger.Info("server stopped")
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func openStorage(ctx context.Context, cfg *config.Config) (repository.FlightRepository, repository.BookingStore, io.Closer, error) {
	switch cfg.Storage.Driver {
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.Database.DSN())
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := repository.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, nil, err
		}
		closer := closerFunc(func() error {
			pool.Close()
			return nil
		})
		return repository.NewFlightRepository(pool), repository.NewBookingRepository(pool), closer, nil
	case "badger":
		store, err := repository.OpenBadger(cfg.Storage.BadgerDir)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := seedFlights(ctx, store, cfg.Flights.Seed); err != nil {
			store.Close()
			return nil, nil, nil, err
		}
		return store, store, store, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// seedFlights writes configured flights that the store does not hold yet.
func seedFlights(ctx context.Context, store *repository.BadgerStore, seeds []config.FlightSeed) error {
	for _, seed := range seeds {
		if _, err := store.GetByID(ctx, seed.ID); err == nil {
			continue
		}
		departure := seed.DepartureTime.UTC()
		now := time.Now().UTC()
		flight := domain.Flight{
			ID:             seed.ID,
			Airline:        seed.Airline,
			FromAirport:    seed.FromAirport,
			ToAirport:      seed.ToAirport,
			DepartureTime:  departure,
			ArrivalTime:    departure.Add(time.Duration(seed.DurationMinutes) * time.Minute),
			Stops:          seed.Stops,
			TotalSeats:     seed.TotalSeats,
			AvailableSeats: seed.TotalSeats,
			PriceCents:     seed.PriceCents,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := store.SaveFlight(ctx, flight); err != nil {
			return fmt.Errorf("seed flight %d: %w", seed.ID, err)
		}
	}
	return nil
}

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
