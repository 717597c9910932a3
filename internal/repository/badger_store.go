package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Domenick1991/skycheckout/internal/domain"
	"github.com/dgraph-io/badger/v4"
)

// BadgerStore is an embedded alternative to postgres for both the flight
// catalog and completed bookings.
//
// Keys:
//
//	flight:<id>                                flight json
//	booking:<id>                               booking json
//	seat:<flight>:<seat>                       booking id
//	identity:<len>:<identity>:<nanos>:<id>     booking id
//
// The identity is length-prefixed so one identity's prefix never matches
// another identity that merely starts with it.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadger opens a store under dir. An empty dir keeps everything in memory.
func OpenBadger(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func flightKey(id int64) []byte {
	return []byte(fmt.Sprintf("flight:%020d", id))
}

func bookingKey(id string) []byte {
	return []byte("booking:" + id)
}

func seatPrefix(flightID int64) string {
	return fmt.Sprintf("seat:%020d:", flightID)
}

func identityPrefix(identityID string) string {
	return fmt.Sprintf("identity:%d:%s:", len(identityID), identityID)
}

func (s *BadgerStore) SaveFlight(ctx context.Context, flight domain.Flight) error {
	data, err := json.Marshal(flight)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(flightKey(flight.ID), data)
	})
}

func (s *BadgerStore) List(ctx context.Context) ([]domain.Flight, error) {
	flights := make([]domain.Flight, 0)
	err := s.db.View(func(txn *badger.Txn) error {
		return scanPrefix(txn, "flight:", func(key string, val []byte) error {
			var f domain.Flight
			if err := json.Unmarshal(val, &f); err != nil {
				return fmt.Errorf("decode %s: %w", key, err)
			}
			flights = append(flights, f)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(flights, func(i, j int) bool {
		return flights[i].DepartureTime.Before(flights[j].DepartureTime)
	})
	return flights, nil
}

func (s *BadgerStore) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	var f domain.Flight
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(flightKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &f)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %d", domain.ErrFlightNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// Append mirrors the postgres store: one booking per seat per flight, the
// flight loses an available seat, and appending the same booking twice is a
// no-op. Flights missing from the store are not decremented.
func (s *BadgerStore) Append(ctx context.Context, booking domain.Booking) error {
	if booking.Status != domain.BookingStatusCompleted {
		return domain.ErrBookingNotCompleted
	}
	if booking.Seat == nil {
		return domain.ErrIncompleteBooking
	}
	payload, err := encodeBooking(booking)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(bookingKey(booking.ID)); err == nil {
			return nil
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		seatKey := []byte(seatPrefix(booking.Flight.ID) + booking.Seat.ID)
		if _, err := txn.Get(seatKey); err == nil {
			return fmt.Errorf("%w: %s", domain.ErrSeatUnavailable, booking.Seat.ID)
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		if err := decrementSeats(txn, booking.Flight.ID); err != nil {
			return err
		}

		id := []byte(booking.ID)
		indexKey := fmt.Sprintf("%s%020d:%s", identityPrefix(booking.IdentityID), booking.CreatedAt.UnixNano(), booking.ID)
		if err := txn.Set(bookingKey(booking.ID), payload); err != nil {
			return err
		}
		if err := txn.Set(seatKey, id); err != nil {
			return err
		}
		return txn.Set([]byte(indexKey), id)
	})
}

func decrementSeats(txn *badger.Txn, flightID int64) error {
	item, err := txn.Get(flightKey(flightID))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	var f domain.Flight
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &f)
	}); err != nil {
		return err
	}
	if f.AvailableSeats <= 0 {
		return fmt.Errorf("%w: flight %d is full", domain.ErrSeatUnavailable, flightID)
	}
	f.AvailableSeats--
	f.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	return txn.Set(flightKey(flightID), data)
}

// QueryByIdentity returns the identity's bookings, newest first.
func (s *BadgerStore) QueryByIdentity(ctx context.Context, identityID string) ([]domain.Booking, error) {
	bookings := make([]domain.Booking, 0)
	err := s.db.View(func(txn *badger.Txn) error {
		return scanPrefix(txn, identityPrefix(identityID), func(_ string, id []byte) error {
			item, err := txn.Get(bookingKey(string(id)))
			if err != nil {
				return err
			}
			return item.Value(func(val []byte) error {
				b, err := decodeBooking(val)
				if err != nil {
					return err
				}
				bookings = append(bookings, b)
				return nil
			})
		})
	})
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(bookings)-1; i < j; i, j = i+1, j-1 {
		bookings[i], bookings[j] = bookings[j], bookings[i]
	}
	return bookings, nil
}

func (s *BadgerStore) OccupiedSeats(ctx context.Context, flightID int64) ([]string, error) {
	prefix := seatPrefix(flightID)
	seats := make([]string, 0)
	err := s.db.View(func(txn *badger.Txn) error {
		return scanPrefix(txn, prefix, func(key string, _ []byte) error {
			seats = append(seats, strings.TrimPrefix(key, prefix))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return seats, nil
}

func scanPrefix(txn *badger.Txn, prefix string, fn func(key string, val []byte) error) error {
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()

	p := []byte(prefix)
	for it.Seek(p); it.ValidForPrefix(p); it.Next() {
		item := it.Item()
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if err := fn(string(item.KeyCopy(nil)), val); err != nil {
			return err
		}
	}
	return nil
}

var (
	_ BookingStore     = (*BadgerStore)(nil)
	_ FlightRepository = (*BadgerStore)(nil)
)
