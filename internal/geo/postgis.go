package geo

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/gst-filter/internal/db"
	"github.com/sells-group/gst-filter/internal/model"
	"github.com/sells-group/gst-filter/internal/snapshot"
)

// ShapesTable holds state and city boundaries.
const ShapesTable = "geo.gst_shapes"

const postgisMigration = `
CREATE EXTENSION IF NOT EXISTS postgis;
CREATE SCHEMA IF NOT EXISTS geo;

CREATE TABLE IF NOT EXISTS geo.gst_shapes (
	level TEXT NOT NULL,
	name  TEXT NOT NULL,
	geom  geometry(MultiPolygon, 4326) NOT NULL,
	PRIMARY KEY (level, name)
);

CREATE INDEX IF NOT EXISTS idx_gst_shapes_geom ON geo.gst_shapes USING GIST (geom);
CREATE INDEX IF NOT EXISTS idx_gst_shapes_lower_name ON geo.gst_shapes (level, lower(name));
`

// PostGISStore resolves shapes and registrations with PostGIS.
type PostGISStore struct {
	pool db.Pool
	snap *snapshot.PostgresSource
}

// NewPostGISStore wraps an open pool. Registrations are read from the
// snapshot tables in the same database.
func NewPostGISStore(pool db.Pool) *PostGISStore {
	return &PostGISStore{pool: pool, snap: snapshot.NewPostgres(pool)}
}

// Migrate creates the geo schema objects.
func (s *PostGISStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgisMigration)
	return eris.Wrap(err, "postgis: migrate")
}

// ResolveShapes looks names up case-insensitively at level.
func (s *PostGISStore) ResolveShapes(ctx context.Context, level model.ScopeLevel, names []string) ([]string, error) {
	keys := make([]string, 0, len(names))
	for _, n := range names {
		if k := strings.ToLower(strings.TrimSpace(n)); k != "" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return nil, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT name FROM geo.gst_shapes WHERE level = $1 AND lower(name) = ANY($2)`,
		string(level), keys,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgis: query shapes")
	}
	defer rows.Close()

	canonical := make(map[string]string, len(keys))
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, eris.Wrap(err, "postgis: scan shape")
		}
		canonical[strings.ToLower(name)] = name
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgis: iterate shapes")
	}

	var out []string
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		name, ok := canonical[k]
		if !ok || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out, nil
}

// RecordsWithin returns registrations whose point lies in the named shape.
func (s *PostGISStore) RecordsWithin(ctx context.Context, level model.ScopeLevel, name string) (model.Batch, error) {
	var (
		batch model.Batch
		err   error
	)
	batch.HasPincodeStatus, batch.HasBusinessType, err = s.snap.Flags(ctx)
	if err != nil {
		return model.Batch{}, err
	}

	rows, err := s.pool.Query(ctx,
		`SELECT s.name, `+snapshot.SelectList("r")+`
		 FROM geo.gst_shapes s
		 JOIN gst.registrations r ON ST_Contains(s.geom, r.geom)
		 WHERE s.level = $1 AND s.name = $2`,
		string(level), name,
	)
	if err != nil {
		return model.Batch{}, eris.Wrapf(err, "postgis: query records within %q", name)
	}
	defer rows.Close()

	for rows.Next() {
		var location string
		r, err := snapshot.ScanRecord(rows.Scan, &location)
		if err != nil {
			return model.Batch{}, eris.Wrap(err, "postgis: scan registration")
		}
		r.Location = location
		batch.Records = append(batch.Records, r)
	}
	return batch, eris.Wrap(rows.Err(), "postgis: iterate registrations")
}

// LoadShapes replaces every shape at level with shapes, encoding each
// geometry as EWKB for COPY.
func (s *PostGISStore) LoadShapes(ctx context.Context, level model.ScopeLevel, shapes []Shape) (int64, error) {
	shapes = Merge(shapes)
	rows := make([][]any, 0, len(shapes))
	for _, sh := range shapes {
		data, err := sh.EWKB()
		if err != nil {
			return 0, err
		}
		rows = append(rows, []any{string(level), sh.Name, data})
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "postgis: begin")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM geo.gst_shapes WHERE level = $1`, string(level)); err != nil {
		return 0, eris.Wrap(err, "postgis: clear shapes")
	}
	n, err := db.CopyFrom(ctx, tx, ShapesTable, []string{"level", "name", "geom"}, rows)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "postgis: commit")
	}

	zap.L().Info("shapes loaded", zap.String("level", string(level)), zap.Int64("shapes", n))
	return n, nil
}
