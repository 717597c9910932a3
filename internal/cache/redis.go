package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/skycheckout/config"
	"github.com/Domenick1991/skycheckout/internal/domain"
	"github.com/Domenick1991/skycheckout/internal/service/checkout"
	"github.com/Domenick1991/skycheckout/internal/service/flights"
	"github.com/redis/go-redis/v9"
)

func NewClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
}

type RedisCache struct {
	client     *redis.Client
	flightsTTL time.Duration
}

func NewRedisCache(client *redis.Client, flightsTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:     client,
		flightsTTL: flightsTTL,
	}
}

func (c *RedisCache) GetFlights(ctx context.Context) ([]domain.Flight, error) {
	data, err := c.client.Get(ctx, flightsKey()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var flights []domain.Flight
	if err := json.Unmarshal(data, &flights); err != nil {
		return nil, err
	}
	return flights, nil
}

func (c *RedisCache) SetFlights(ctx context.Context, flights []domain.Flight) error {
	payload, err := json.Marshal(flights)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, flightsKey(), payload, c.flightsTTL).Err()
}

// SessionStore keeps checkout sessions in redis with a sliding TTL. Every
// save pushes the expiry out again.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

func (s *SessionStore) Save(ctx context.Context, session *checkout.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return s.client.Set(ctx, sessionKey(session.ID), payload, s.ttl).Err()
}

func (s *SessionStore) Load(ctx context.Context, id string) (*checkout.Session, error) {
	data, err := s.client.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}

	var session checkout.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &session, nil
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, sessionKey(id)).Err()
}

// AcquirePaymentLock is a SETNX lock shared by every instance serving the
// session. The ttl bounds how long a crashed holder can block retries.
func (s *SessionStore) AcquirePaymentLock(ctx context.Context, sessionID string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, paymentLockKey(sessionID), "locked", ttl).Result()
}

func (s *SessionStore) ReleasePaymentLock(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, paymentLockKey(sessionID)).Err()
}

func flightsKey() string {
	return "cache:flights"
}

func sessionKey(id string) string {
	return "checkout:session:" + id
}

func paymentLockKey(sessionID string) string {
	return fmt.Sprintf("lock:session:%s:payment", sessionID)
}

var (
	_ checkout.SessionStore = (*SessionStore)(nil)
	_ flights.FlightCache   = (*RedisCache)(nil)
)
