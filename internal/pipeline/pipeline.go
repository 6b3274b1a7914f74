// Package pipeline narrows a GST record batch to the records matching a
// request filter and summarises the survivors by location and HSN code.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/gst-filter/internal/business"
	"github.com/sells-group/gst-filter/internal/hsn"
	"github.com/sells-group/gst-filter/internal/model"
	"github.com/sells-group/gst-filter/internal/pivot"
	"github.com/sells-group/gst-filter/internal/slab"
)

// DefaultPreviewSize is the number of records shown before export.
const DefaultPreviewSize = 100

// ErrInvalidFilter marks a request naming an unknown business category or
// turnover slab.
var ErrInvalidFilter = eris.New("pipeline: invalid filter")

// StageResult records how one stage narrowed the batch.
type StageResult struct {
	Name     string `json:"name" yaml:"name"`
	In       int    `json:"in" yaml:"in"`
	Out      int    `json:"out" yaml:"out"`
	Duration int64  `json:"duration_us" yaml:"duration_us"`
}

// Result is the outcome of one pipeline run.
type Result struct {
	RunID      string              `json:"run_id" yaml:"run_id"`
	Filter     model.RequestFilter `json:"filter" yaml:"filter"`
	Records    []model.Record      `json:"-" yaml:"-"`
	ByLocation *pivot.Crosstab     `json:"by_location" yaml:"by_location"`
	ByHSN      *pivot.Crosstab     `json:"by_hsn" yaml:"by_hsn"`
	Stages     []StageResult       `json:"stages" yaml:"stages"`
}

// Total returns the number of surviving records.
func (r *Result) Total() int {
	return len(r.Records)
}

// Preview returns up to n surviving records. n <= 0 uses DefaultPreviewSize.
func (r *Result) Preview(n int) []model.Record {
	if n <= 0 {
		n = DefaultPreviewSize
	}
	if n > len(r.Records) {
		n = len(r.Records)
	}
	return r.Records[:n]
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithKeywords replaces the business-type keyword table.
func WithKeywords(keywords map[string][]string) Option {
	return func(p *Pipeline) {
		p.keywords = keywords
	}
}

// Pipeline runs the filter stages over a batch. It holds no per-run state
// and may be shared between goroutines.
type Pipeline struct {
	keywords map[string][]string
}

// New creates a Pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{keywords: business.DefaultKeywords()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ValidateFilter rejects filters the pipeline cannot run: unknown scope
// levels, unknown business categories, and unknown slab labels.
func ValidateFilter(f model.RequestFilter) error {
	if err := f.Validate(); err != nil {
		return err
	}
	if err := business.ValidateCategories(f.BusinessTypes); err != nil {
		return eris.Wrap(ErrInvalidFilter, err.Error())
	}
	for _, s := range f.Slabs {
		if !slab.IsLabel(s) {
			return eris.Wrapf(ErrInvalidFilter, "unknown turnover slab %q", s)
		}
	}
	return nil
}

// Run filters a private copy of batch and aggregates the survivors. The
// caller's batch is never modified, so it may be a shared cache.
//
// Stages run in order: status/pincode prefilter, state/city scope, HSN
// prefix match, business type, turnover slab. Per-record problems (an
// undecodable goods_hsns value, a non-numeric turnover) drop or degrade
// that record only.
func (p *Pipeline) Run(ctx context.Context, batch model.Batch, filter model.RequestFilter) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "pipeline: run")
	}
	if err := ValidateFilter(filter); err != nil {
		return nil, err
	}

	f := filter.Clone()
	f.HSNPrefixes = hsn.UniquePrefixes(f.HSNPrefixes)
	owned := batch.Clone()
	result := &Result{
		RunID:  uuid.New().String(),
		Filter: f,
	}
	log := zap.L().With(zap.String("run_id", result.RunID))

	records := owned.Records
	stage := func(name string, fn func([]model.Record) []model.Record) {
		start := time.Now()
		in := len(records)
		records = fn(records)
		sr := StageResult{Name: name, In: in, Out: len(records), Duration: time.Since(start).Microseconds()}
		result.Stages = append(result.Stages, sr)
		log.Debug("pipeline: stage complete",
			zap.String("stage", name),
			zap.Int("in", sr.In),
			zap.Int("out", sr.Out),
		)
	}

	stage(StagePrefilter, func(_ []model.Record) []model.Record {
		return prefilter(owned)
	})
	stage(StageScope, func(rs []model.Record) []model.Record {
		return scope(rs, toSet(f.States), toSet(f.Cities))
	})
	var stats codeStats
	stage(StageHSN, func(rs []model.Record) []model.Record {
		var out []model.Record
		out, stats = matchCodes(rs, f.HSNPrefixes)
		return out
	})
	if stats.undecodable > 0 {
		log.Debug("pipeline: undecodable goods_hsns values treated as empty", zap.Int("count", stats.undecodable))
	}
	classifier := business.NewClassifier(f.BusinessTypes, p.keywords)
	stage(StageBusiness, func(rs []model.Record) []model.Record {
		return matchBusiness(rs, owned.HasBusinessType, classifier)
	})
	stage(StageSlab, func(rs []model.Record) []model.Record {
		return classifySlabs(rs, toSet(f.Slabs))
	})

	result.Records = records
	result.ByLocation, result.ByHSN = Aggregate(records, f.Level)

	log.Info("pipeline: run complete",
		zap.Int("input", batch.Len()),
		zap.Int("total", result.Total()),
		zap.Int("hsn_prefixes", len(f.HSNPrefixes)),
	)
	return result, nil
}

// Aggregate builds the Location×Slab and HSN×Slab crosstabs. In geographic
// mode the location key is the resolved shape label, otherwise the city.
func Aggregate(records []model.Record, level model.ScopeLevel) (byLocation, byHSN *pivot.Crosstab) {
	index := "city"
	location := func(r model.Record) string { return r.City }
	if level.Geographic() {
		index = "location"
		location = func(r model.Record) string { return r.Location }
	}
	order := slab.Labels()
	byLocation = pivot.Build(index, pivot.ExplodeLocation(records, location), order)
	byHSN = pivot.Build("matched_hsn_code", pivot.ExplodeHSN(records), order)
	return byLocation, byHSN
}
