package pipeline

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/gst-filter/internal/model"
)

// BatchSource supplies the full snapshot. Implementations must return a
// batch the caller may not mutate; Run copies it before filtering.
type BatchSource interface {
	Batch(ctx context.Context) (model.Batch, error)
}

// ShapeFetcher resolves shapes at a level and returns the records inside
// them, concatenated in shape order.
type ShapeFetcher interface {
	Fetch(ctx context.Context, level model.ScopeLevel, names []string) (model.Batch, error)
}

// Service picks the raw batch for a request and runs the pipeline on it.
type Service struct {
	pipeline *Pipeline
	snapshot BatchSource
	shapes   ShapeFetcher
}

// NewService creates a Service. shapes may be nil when geographic mode is
// not configured.
func NewService(p *Pipeline, snapshot BatchSource, shapes ShapeFetcher) *Service {
	return &Service{pipeline: p, snapshot: snapshot, shapes: shapes}
}

// Filter validates the request, acquires its batch, and runs the pipeline.
// Validation happens before any data access. Errors from shape resolution
// (no shapes, no records) are returned unchanged so callers can tell them
// apart from a filter that matched nothing.
func (s *Service) Filter(ctx context.Context, f model.RequestFilter) (*Result, error) {
	if err := ValidateFilter(f); err != nil {
		return nil, err
	}

	var (
		batch model.Batch
		err   error
	)
	if f.Level.Geographic() {
		if s.shapes == nil {
			return nil, eris.Errorf("pipeline: scope level %q requires a geo backend", f.Level)
		}
		batch, err = s.shapes.Fetch(ctx, f.Level, f.Shapes)
	} else {
		if s.snapshot == nil {
			return nil, eris.New("pipeline: no snapshot source configured")
		}
		batch, err = s.snapshot.Batch(ctx)
	}
	if err != nil {
		return nil, err
	}

	return s.pipeline.Run(ctx, batch, f)
}

// Options loads the snapshot and returns the request vocabulary.
func (s *Service) Options(ctx context.Context) (*Options, error) {
	if s.snapshot == nil {
		return nil, eris.New("pipeline: no snapshot source configured")
	}
	batch, err := s.snapshot.Batch(ctx)
	if err != nil {
		return nil, err
	}
	return BuildOptions(batch), nil
}
