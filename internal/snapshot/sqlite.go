package snapshot

import (
	"context"
	"database/sql"
	"strings"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/gst-filter/internal/model"
)

// SQLiteSource stores a snapshot in a local SQLite database.
type SQLiteSource struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteSource, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteSource{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS registrations (
	gstin                   TEXT,
	status                  TEXT,
	state                   TEXT,
	city                    TEXT,
	pincode                 TEXT,
	pincode_status          TEXT,
	core_nature_of_business TEXT,
	nature_of_business      TEXT,
	turnover                REAL,
	turnover_slab           TEXT,
	goods_hsns              TEXT,
	latitude                REAL,
	longitude               REAL
);

CREATE TABLE IF NOT EXISTS snapshot_meta (
	id                 INTEGER PRIMARY KEY CHECK (id = 1),
	has_pincode_status INTEGER NOT NULL,
	has_business_type  INTEGER NOT NULL,
	loaded_at          DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_registrations_state_city ON registrations(state, city);
`

// Migrate creates the snapshot tables.
func (s *SQLiteSource) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteSource) Close() error {
	return s.db.Close()
}

// Replace swaps the stored snapshot for batch in one transaction.
func (s *SQLiteSource) Replace(ctx context.Context, batch model.Batch) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM registrations`); err != nil {
		return eris.Wrap(err, "sqlite: clear registrations")
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(Columns)), ", ")
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO registrations (`+strings.Join(Columns, ", ")+`) VALUES (`+placeholders+`)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare insert")
	}
	defer stmt.Close() //nolint:errcheck

	for i, r := range batch.Records {
		if _, err := stmt.ExecContext(ctx, encodeRecord(r)...); err != nil {
			return eris.Wrapf(err, "sqlite: insert record %d", i)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO snapshot_meta (id, has_pincode_status, has_business_type, loaded_at)
		 VALUES (1, ?, ?, datetime('now'))
		 ON CONFLICT(id) DO UPDATE SET
		   has_pincode_status = excluded.has_pincode_status,
		   has_business_type = excluded.has_business_type,
		   loaded_at = excluded.loaded_at`,
		batch.HasPincodeStatus, batch.HasBusinessType,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: write snapshot meta")
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit")
}

// Batch loads the stored snapshot. A database that was never populated
// yields ErrEmptySnapshot.
func (s *SQLiteSource) Batch(ctx context.Context) (model.Batch, error) {
	var batch model.Batch
	err := s.db.QueryRowContext(ctx,
		`SELECT has_pincode_status, has_business_type FROM snapshot_meta WHERE id = 1`,
	).Scan(&batch.HasPincodeStatus, &batch.HasBusinessType)
	if eris.Is(err, sql.ErrNoRows) {
		return model.Batch{}, ErrEmptySnapshot
	}
	if err != nil {
		return model.Batch{}, eris.Wrap(err, "sqlite: read snapshot meta")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+SelectList("")+` FROM registrations ORDER BY rowid`)
	if err != nil {
		return model.Batch{}, eris.Wrap(err, "sqlite: query registrations")
	}
	defer rows.Close() //nolint:errcheck

	for rows.Next() {
		r, err := ScanRecord(rows.Scan)
		if err != nil {
			return model.Batch{}, eris.Wrap(err, "sqlite: scan registration")
		}
		batch.Records = append(batch.Records, r)
	}
	return batch, eris.Wrap(rows.Err(), "sqlite: iterate registrations")
}
