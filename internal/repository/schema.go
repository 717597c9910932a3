package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS flights (
	id              BIGSERIAL PRIMARY KEY,
	airline         TEXT NOT NULL DEFAULT '',
	from_airport    TEXT NOT NULL,
	to_airport      TEXT NOT NULL,
	departure_time  TIMESTAMPTZ NOT NULL,
	arrival_time    TIMESTAMPTZ NOT NULL,
	stops           INT NOT NULL DEFAULT 0,
	total_seats     INT NOT NULL,
	available_seats INT NOT NULL,
	price_cents     BIGINT NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS bookings (
	id          TEXT PRIMARY KEY,
	identity_id TEXT NOT NULL,
	flight_id   BIGINT NOT NULL REFERENCES flights (id),
	seat_id     TEXT NOT NULL,
	status      TEXT NOT NULL,
	total_cents BIGINT NOT NULL,
	payload     JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL,
	UNIQUE (flight_id, seat_id)
);

CREATE INDEX IF NOT EXISTS bookings_identity_idx ON bookings (identity_id, created_at DESC);
`

// EnsureSchema creates the tables the postgres repositories use.
func EnsureSchema(ctx context.Context, db *pgxpool.Pool) error {
	_, err := db.Exec(ctx, schema)
	return err
}
