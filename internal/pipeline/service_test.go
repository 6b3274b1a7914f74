package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/gst-filter/internal/business"
	"github.com/sells-group/gst-filter/internal/model"
	"github.com/sells-group/gst-filter/internal/slab"
)

type stubSnapshot struct {
	batch model.Batch
	err   error
	calls int
}

func (s *stubSnapshot) Batch(_ context.Context) (model.Batch, error) {
	s.calls++
	return s.batch, s.err
}

type stubShapes struct {
	batch  model.Batch
	err    error
	level  model.ScopeLevel
	names  []string
	called bool
}

func (s *stubShapes) Fetch(_ context.Context, level model.ScopeLevel, names []string) (model.Batch, error) {
	s.called = true
	s.level = level
	s.names = names
	return s.batch, s.err
}

var errNoShapes = errors.New("no shapes")

func TestService_SnapshotMode(t *testing.T) {
	snap := &stubSnapshot{batch: testBatch()}
	shapes := &stubShapes{}
	svc := NewService(New(), snap, shapes)

	res, err := svc.Filter(context.Background(), model.RequestFilter{HSNPrefixes: []string{"1001"}})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total())
	assert.Equal(t, 1, snap.calls)
	assert.False(t, shapes.called)
}

func TestService_GeographicMode(t *testing.T) {
	geoBatch := testBatch()
	for i := range geoBatch.Records {
		geoBatch.Records[i].Location = "Pune"
	}
	snap := &stubSnapshot{}
	shapes := &stubShapes{batch: geoBatch}
	svc := NewService(New(), snap, shapes)

	res, err := svc.Filter(context.Background(), model.RequestFilter{Level: model.ScopeCity, Shapes: []string{"Pune"}})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Total())
	assert.Equal(t, model.ScopeCity, shapes.level)
	assert.Equal(t, []string{"Pune"}, shapes.names)
	assert.Equal(t, 0, snap.calls)
}

func TestService_ShapeErrorsPropagate(t *testing.T) {
	svc := NewService(New(), &stubSnapshot{}, &stubShapes{err: errNoShapes})
	_, err := svc.Filter(context.Background(), model.RequestFilter{Level: model.ScopeState, Shapes: []string{"Atlantis"}})
	assert.ErrorIs(t, err, errNoShapes)
}

func TestService_InvalidScopeRejectedBeforeDataAccess(t *testing.T) {
	snap := &stubSnapshot{}
	shapes := &stubShapes{}
	svc := NewService(New(), snap, shapes)

	_, err := svc.Filter(context.Background(), model.RequestFilter{Level: "district", Shapes: []string{"x"}})
	assert.ErrorIs(t, err, model.ErrInvalidScope)
	assert.Equal(t, 0, snap.calls)
	assert.False(t, shapes.called)
}

func TestService_GeographicWithoutBackend(t *testing.T) {
	svc := NewService(New(), &stubSnapshot{}, nil)
	_, err := svc.Filter(context.Background(), model.RequestFilter{Level: model.ScopeCity, Shapes: []string{"Pune"}})
	assert.Error(t, err)
}

func TestService_SnapshotError(t *testing.T) {
	svc := NewService(New(), &stubSnapshot{err: errors.New("s3 unavailable")}, nil)
	_, err := svc.Filter(context.Background(), model.RequestFilter{})
	assert.EqualError(t, err, "s3 unavailable")
}

func TestService_Options(t *testing.T) {
	svc := NewService(New(), &stubSnapshot{batch: testBatch()}, nil)
	opts, err := svc.Options(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Maharashtra"}, opts.States)
	assert.Equal(t, []string{"Mumbai", "Pune"}, opts.Cities["Maharashtra"])
	assert.Equal(t, business.Categories(), opts.BusinessTypes)
	assert.Equal(t, slab.Labels(), opts.Slabs)
}

func TestBuildOptions_UsesPrefilter(t *testing.T) {
	batch := testBatch()
	batch.Records[2].State = "Gujarat"
	batch.Records[2].City = "Surat"
	batch.Records[2].Status = model.StatusSuspended
	batch.Records = append(batch.Records, model.Record{
		Status: model.StatusActive, State: "Goa", City: "Panaji", PincodeStatus: model.PincodeUnmatched,
	})

	opts := BuildOptions(batch)
	assert.Equal(t, []string{"Maharashtra"}, opts.States)
	assert.Equal(t, []string{"Pune"}, opts.CitiesFor([]string{"Maharashtra", "Gujarat"}))
}
