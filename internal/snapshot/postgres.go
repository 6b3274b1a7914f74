package snapshot

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/gst-filter/internal/db"
	"github.com/sells-group/gst-filter/internal/model"
)

// RegistrationsTable holds the snapshot in Postgres. The geom column is
// derived from latitude/longitude after each load.
const RegistrationsTable = "gst.registrations"

const postgresMigration = `
CREATE EXTENSION IF NOT EXISTS postgis;
CREATE SCHEMA IF NOT EXISTS gst;

CREATE TABLE IF NOT EXISTS gst.registrations (
	gstin                   TEXT,
	status                  TEXT,
	state                   TEXT,
	city                    TEXT,
	pincode                 TEXT,
	pincode_status          TEXT,
	core_nature_of_business TEXT,
	nature_of_business      TEXT,
	turnover                DOUBLE PRECISION,
	turnover_slab           TEXT,
	goods_hsns              TEXT,
	latitude                DOUBLE PRECISION,
	longitude               DOUBLE PRECISION,
	geom                    geometry(Point, 4326)
);

CREATE TABLE IF NOT EXISTS gst.snapshot_meta (
	id                 INT PRIMARY KEY CHECK (id = 1),
	has_pincode_status BOOLEAN NOT NULL,
	has_business_type  BOOLEAN NOT NULL,
	loaded_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_gst_registrations_geom ON gst.registrations USING GIST (geom);
CREATE INDEX IF NOT EXISTS idx_gst_registrations_state_city ON gst.registrations (state, city);
`

// PostgresSource reads and writes the snapshot in a PostGIS database.
type PostgresSource struct {
	pool db.Pool
}

// NewPostgres wraps an open pool.
func NewPostgres(pool db.Pool) *PostgresSource {
	return &PostgresSource{pool: pool}
}

// Migrate creates the gst schema objects.
func (s *PostgresSource) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

// Replace truncates the registrations table and bulk-loads batch in one
// transaction.
func (s *PostgresSource) Replace(ctx context.Context, batch model.Batch) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `TRUNCATE gst.registrations`); err != nil {
		return eris.Wrap(err, "postgres: truncate registrations")
	}

	rows := make([][]any, len(batch.Records))
	for i, r := range batch.Records {
		rows[i] = encodeRecord(r)
	}
	n, err := db.CopyFrom(ctx, tx, RegistrationsTable, Columns, rows)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx,
		`UPDATE gst.registrations
		 SET geom = ST_SetSRID(ST_MakePoint(longitude, latitude), 4326)
		 WHERE latitude IS NOT NULL AND longitude IS NOT NULL`,
	); err != nil {
		return eris.Wrap(err, "postgres: derive registration points")
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO gst.snapshot_meta (id, has_pincode_status, has_business_type, loaded_at)
		 VALUES (1, $1, $2, now())
		 ON CONFLICT (id) DO UPDATE SET
		   has_pincode_status = EXCLUDED.has_pincode_status,
		   has_business_type = EXCLUDED.has_business_type,
		   loaded_at = EXCLUDED.loaded_at`,
		batch.HasPincodeStatus, batch.HasBusinessType,
	); err != nil {
		return eris.Wrap(err, "postgres: write snapshot meta")
	}

	if err := tx.Commit(ctx); err != nil {
		return eris.Wrap(err, "postgres: commit")
	}
	zap.L().Info("snapshot loaded into postgres", zap.Int64("rows", n))
	return nil
}

// Flags reads which optional columns the stored snapshot carries.
func (s *PostgresSource) Flags(ctx context.Context) (pincode, business bool, err error) {
	err = s.pool.QueryRow(ctx,
		`SELECT has_pincode_status, has_business_type FROM gst.snapshot_meta WHERE id = 1`,
	).Scan(&pincode, &business)
	if eris.Is(err, pgx.ErrNoRows) {
		return false, false, ErrEmptySnapshot
	}
	if err != nil {
		return false, false, eris.Wrap(err, "postgres: read snapshot meta")
	}
	return pincode, business, nil
}

// Batch loads the full snapshot.
func (s *PostgresSource) Batch(ctx context.Context) (model.Batch, error) {
	var (
		batch model.Batch
		err   error
	)
	batch.HasPincodeStatus, batch.HasBusinessType, err = s.Flags(ctx)
	if err != nil {
		return model.Batch{}, err
	}

	rows, err := s.pool.Query(ctx, `SELECT `+SelectList("")+` FROM gst.registrations`)
	if err != nil {
		return model.Batch{}, eris.Wrap(err, "postgres: query registrations")
	}
	defer rows.Close()

	for rows.Next() {
		r, err := ScanRecord(rows.Scan)
		if err != nil {
			return model.Batch{}, eris.Wrap(err, "postgres: scan registration")
		}
		batch.Records = append(batch.Records, r)
	}
	return batch, eris.Wrap(rows.Err(), "postgres: iterate registrations")
}
