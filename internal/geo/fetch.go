package geo

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sells-group/gst-filter/internal/model"
)

var (
	// ErrNoShapes means none of the requested names resolved at the level.
	ErrNoShapes = eris.New("geo: no shapes matched the request")
	// ErrNoRecords means the resolved shapes contain no registrations.
	ErrNoRecords = eris.New("geo: no records found within the requested shapes")
)

// Store resolves shapes and returns the registrations inside one of them.
type Store interface {
	// ResolveShapes returns the canonical names of the requested shapes that
	// exist at level, in request order. Unknown names are dropped.
	ResolveShapes(ctx context.Context, level model.ScopeLevel, names []string) ([]string, error)
	// RecordsWithin returns the records inside the named shape with
	// Location set to that name.
	RecordsWithin(ctx context.Context, level model.ScopeLevel, name string) (model.Batch, error)
}

// Observer receives per-fetch timings. metrics.Collector implements it.
type Observer interface {
	ObserveShapeLookup(level string, elapsed time.Duration, records int)
}

// DefaultConcurrency bounds parallel shape lookups.
const DefaultConcurrency = 4

// Fetcher runs shape lookups against a Store in parallel.
type Fetcher struct {
	store       Store
	concurrency int
	limiter     *rate.Limiter
	observer    Observer
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithConcurrency sets the number of concurrent shape lookups.
func WithConcurrency(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.concurrency = n
		}
	}
}

// WithRateLimit throttles shape lookups to rps per second. Zero disables it.
func WithRateLimit(rps float64, burst int) Option {
	return func(f *Fetcher) {
		if rps <= 0 {
			f.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		f.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithObserver reports each lookup to o.
func WithObserver(o Observer) Option {
	return func(f *Fetcher) { f.observer = o }
}

// NewFetcher creates a Fetcher over store.
func NewFetcher(store Store, opts ...Option) *Fetcher {
	f := &Fetcher{store: store, concurrency: DefaultConcurrency}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch resolves names at level and returns the records inside each shape,
// concatenated in resolved-shape order.
func (f *Fetcher) Fetch(ctx context.Context, level model.ScopeLevel, names []string) (model.Batch, error) {
	if !level.Geographic() {
		return model.Batch{}, eris.Wrapf(model.ErrInvalidScope, "geo: level %q is not geographic", level)
	}

	log := zap.L().With(zap.String("component", "geo.fetch"), zap.String("level", string(level)))

	shapes, err := f.store.ResolveShapes(ctx, level, names)
	if err != nil {
		return model.Batch{}, eris.Wrap(err, "geo: resolve shapes")
	}
	if len(shapes) == 0 {
		log.Info("no shapes resolved", zap.Strings("requested", names))
		return model.Batch{}, ErrNoShapes
	}

	results := make([]model.Batch, len(shapes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)
	for i, name := range shapes {
		g.Go(func() error {
			if f.limiter != nil {
				if err := f.limiter.Wait(gctx); err != nil {
					return eris.Wrap(err, "geo: rate limit wait")
				}
			}
			start := time.Now()
			b, err := f.store.RecordsWithin(gctx, level, name)
			if err != nil {
				return eris.Wrapf(err, "geo: records within %q", name)
			}
			for j := range b.Records {
				if b.Records[j].Location == "" {
					b.Records[j].Location = name
				}
			}
			if f.observer != nil {
				f.observer.ObserveShapeLookup(string(level), time.Since(start), b.Len())
			}
			log.Debug("shape lookup complete", zap.String("shape", name), zap.Int("records", b.Len()))
			results[i] = b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return model.Batch{}, err
	}

	batch := model.Concat(results...)
	if batch.Len() == 0 {
		log.Info("resolved shapes contain no records", zap.Strings("shapes", shapes))
		return model.Batch{}, ErrNoRecords
	}

	log.Info("geographic fetch complete",
		zap.Int("shapes", len(shapes)),
		zap.Int("records", batch.Len()),
	)
	return batch, nil
}
