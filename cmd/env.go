package main

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/gst-filter/internal/config"
	"github.com/sells-group/gst-filter/internal/db"
	"github.com/sells-group/gst-filter/internal/geo"
	"github.com/sells-group/gst-filter/internal/metrics"
	"github.com/sells-group/gst-filter/internal/model"
	"github.com/sells-group/gst-filter/internal/pipeline"
	"github.com/sells-group/gst-filter/internal/snapshot"
)

// filterEnv holds the snapshot cache, the optional geo fetcher, and the
// service built on them for the filter/options/serve commands.
type filterEnv struct {
	Service *pipeline.Service
	Cache   *snapshot.Cache

	pool   *pgxpool.Pool
	sqlite *snapshot.SQLiteSource
}

// Close releases database handles held by the environment.
func (e *filterEnv) Close() {
	if e.sqlite != nil {
		_ = e.sqlite.Close()
	}
	if e.pool != nil {
		e.pool.Close()
	}
}

// initFilterEnv validates cfg for mode and builds the service. m may be
// nil. Callers should defer env.Close().
func initFilterEnv(ctx context.Context, mode string, m *metrics.Metrics) (*filterEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	env := &filterEnv{}
	src, err := env.snapshotSource(ctx)
	if err != nil {
		env.Close()
		return nil, err
	}
	env.Cache = snapshot.NewCache(src, cfg.Snapshot.CacheTTL())

	var shapes pipeline.ShapeFetcher
	if mode != "options" {
		store, err := env.geoStore(ctx)
		if err != nil {
			env.Close()
			return nil, err
		}
		if store != nil {
			shapes = geo.NewFetcher(store,
				geo.WithConcurrency(cfg.Geo.Concurrency),
				geo.WithRateLimit(cfg.Geo.RateLimit, cfg.Geo.RateBurst),
				geo.WithObserver(m),
			)
		}
	}

	env.Service = pipeline.NewService(pipeline.New(), env.Cache, shapes)
	return env, nil
}

func (e *filterEnv) snapshotSource(ctx context.Context) (snapshot.Source, error) {
	switch cfg.Snapshot.Source {
	case config.SourceSQLite:
		s, err := snapshot.NewSQLite(cfg.Snapshot.Path)
		if err != nil {
			return nil, err
		}
		e.sqlite = s
		if err := s.Migrate(ctx); err != nil {
			return nil, eris.Wrap(err, "migrate sqlite snapshot")
		}
		return s, nil
	case config.SourcePostgres:
		pool, err := e.connect(ctx)
		if err != nil {
			return nil, err
		}
		return snapshot.NewPostgres(pool), nil
	default:
		return &snapshot.FileSource{Path: cfg.Snapshot.Path}, nil
	}
}

// geoStore returns the configured shape store, or nil when geographic mode
// is off.
func (e *filterEnv) geoStore(ctx context.Context) (geo.Store, error) {
	switch cfg.Geo.Backend {
	case config.GeoPostGIS:
		pool, err := e.connect(ctx)
		if err != nil {
			return nil, err
		}
		return geo.NewPostGISStore(pool), nil
	case config.GeoShapefile:
		var shapes []geo.Shape
		for _, sf := range cfg.Geo.Shapefiles {
			level, err := model.ParseScopeLevel(sf.Level)
			if err != nil {
				return nil, err
			}
			s, err := geo.ReadShapefile(sf.Path, level, sf.NameField)
			if err != nil {
				return nil, err
			}
			zap.L().Info("loaded shapefile",
				zap.String("path", sf.Path),
				zap.String("level", sf.Level),
				zap.Int("shapes", len(s)),
			)
			shapes = append(shapes, s...)
		}
		return geo.NewMemoryStore(e.Cache, shapes...), nil
	default:
		return nil, nil
	}
}

func (e *filterEnv) connect(ctx context.Context) (*pgxpool.Pool, error) {
	if e.pool != nil {
		return e.pool, nil
	}
	pool, err := db.Connect(ctx, cfg.Store.DatabaseURL)
	if err != nil {
		return nil, err
	}
	e.pool = pool
	return pool, nil
}
