package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Domenick1991/skycheckout/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BookingStore keeps completed bookings. It only ever appends.
type BookingStore interface {
	Append(ctx context.Context, booking domain.Booking) error
	QueryByIdentity(ctx context.Context, identityID string) ([]domain.Booking, error)
	OccupiedSeats(ctx context.Context, flightID int64) ([]string, error)
}

type PGBookingRepository struct {
	db *pgxpool.Pool
}

func NewBookingRepository(db *pgxpool.Pool) BookingStore {
	return &PGBookingRepository{db: db}
}

const uniqueViolation = "23505"

// Append stores the booking and takes its seat off the flight in one
// transaction. A seat already sold on the flight is reported as
// domain.ErrSeatUnavailable; appending the same booking twice is a no-op.
func (r *PGBookingRepository) Append(ctx context.Context, booking domain.Booking) error {
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

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM bookings WHERE id=$1)`, booking.ID).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return nil
	}

	_, err = tx.Exec(ctx, `INSERT INTO bookings (id, identity_id, flight_id, seat_id, status, total_cents, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		booking.ID, booking.IdentityID, booking.Flight.ID, booking.Seat.ID, booking.Status, booking.TotalCents, payload, booking.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: %s", domain.ErrSeatUnavailable, booking.Seat.ID)
		}
		return err
	}

	res, err := tx.Exec(ctx, `UPDATE flights SET available_seats = available_seats - 1, updated_at = now() WHERE id=$1 AND available_seats > 0`, booking.Flight.ID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return fmt.Errorf("%w: flight %d is full", domain.ErrSeatUnavailable, booking.Flight.ID)
	}

	return tx.Commit(ctx)
}

func (r *PGBookingRepository) QueryByIdentity(ctx context.Context, identityID string) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, `SELECT payload FROM bookings WHERE identity_id=$1 ORDER BY created_at DESC`, identityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := make([]domain.Booking, 0)
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		b, err := decodeBooking(payload)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

func (r *PGBookingRepository) OccupiedSeats(ctx context.Context, flightID int64) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT seat_id FROM bookings WHERE flight_id=$1 AND status=$2`, flightID, domain.BookingStatusCompleted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seats := make([]string, 0)
	for rows.Next() {
		var seat string
		if err := rows.Scan(&seat); err != nil {
			return nil, err
		}
		seats = append(seats, seat)
	}
	return seats, rows.Err()
}

func encodeBooking(booking domain.Booking) ([]byte, error) {
	payload, err := json.Marshal(booking)
	if err != nil {
		return nil, fmt.Errorf("encode booking %s: %w", booking.ID, err)
	}
	return payload, nil
}

func decodeBooking(payload []byte) (domain.Booking, error) {
	var b domain.Booking
	if err := json.Unmarshal(payload, &b); err != nil {
		return domain.Booking{}, fmt.Errorf("decode booking: %w", err)
	}
	return b, nil
}

var _ BookingStore = (*PGBookingRepository)(nil)
