package geo

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/gst-filter/internal/model"
)

func writeShapefile(t *testing.T, names []string, polys []*shp.Polygon) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cities.shp")
	w, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)
	w.SetFields([]shp.Field{shp.StringField("NAME", 50)})
	for i, p := range polys {
		row := w.Write(p)
		w.WriteAttribute(int(row), 0, names[i])
	}
	w.Close()
	return path
}

func TestReadShapefile(t *testing.T) {
	path := writeShapefile(t,
		[]string{"Pune", "Mumbai"},
		[]*shp.Polygon{
			polygon(square(73.7, 18.4, 74.0, 18.7)),
			polygon(square(72.7, 18.8, 73.0, 19.3)),
		},
	)

	shapes, err := ReadShapefile(path, model.ScopeCity, "name")
	require.NoError(t, err)
	require.Len(t, shapes, 2)
	assert.Equal(t, "Pune", shapes[0].Name)
	assert.Equal(t, model.ScopeCity, shapes[0].Level)
	assert.True(t, shapes[0].Contains(73.85, 18.52))
	assert.True(t, shapes[1].Contains(72.87, 19.07))
}

func TestReadShapefile_MissingField(t *testing.T) {
	path := writeShapefile(t, []string{"Pune"}, []*shp.Polygon{polygon(square(0, 0, 1, 1))})
	_, err := ReadShapefile(path, model.ScopeCity, "DISTRICT")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DISTRICT")
}

func TestReadShapefile_Missing(t *testing.T) {
	_, err := ReadShapefile(filepath.Join(t.TempDir(), "nope.shp"), model.ScopeCity, "NAME")
	assert.Error(t, err)
}

type staticSource struct {
	batch model.Batch
	err   error
}

func (s staticSource) Batch(_ context.Context) (model.Batch, error) { return s.batch, s.err }

func coord(v float64) *float64 { return &v }

func pointsBatch() model.Batch {
	return model.Batch{
		HasPincodeStatus: true,
		Records: []model.Record{
			{GSTIN: "27AAA", City: "Pune", Latitude: coord(18.52), Longitude: coord(73.85)},
			{GSTIN: "27BBB", City: "Mumbai", Latitude: coord(19.07), Longitude: coord(72.87)},
			{GSTIN: "27CCC", City: "Pune"},
		},
	}
}

func TestMemoryStore_ResolveShapes(t *testing.T) {
	store := NewMemoryStore(staticSource{},
		squareShape("Pune", model.ScopeCity, 73.7, 18.4, 74.0, 18.7),
		squareShape("Mumbai", model.ScopeCity, 72.7, 18.8, 73.0, 19.3),
		squareShape("Maharashtra", model.ScopeState, 72, 15, 81, 22),
	)

	got, err := store.ResolveShapes(context.Background(), model.ScopeCity, []string{"mumbai", "Atlantis", " Pune ", "MUMBAI"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Mumbai", "Pune"}, got)

	got, err = store.ResolveShapes(context.Background(), model.ScopeState, []string{"Pune"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMemoryStore_RecordsWithin(t *testing.T) {
	src := staticSource{batch: pointsBatch()}
	store := NewMemoryStore(src, squareShape("Pune", model.ScopeCity, 73.7, 18.4, 74.0, 18.7))

	b, err := store.RecordsWithin(context.Background(), model.ScopeCity, "pune")
	require.NoError(t, err)
	require.Equal(t, 1, b.Len())
	assert.Equal(t, "27AAA", b.Records[0].GSTIN)
	assert.Equal(t, "Pune", b.Records[0].Location)
	assert.True(t, b.HasPincodeStatus)
	assert.Equal(t, "", src.batch.Records[0].Location)
}

func TestMemoryStore_RecordsWithinUnknownShape(t *testing.T) {
	store := NewMemoryStore(staticSource{batch: pointsBatch()})
	_, err := store.RecordsWithin(context.Background(), model.ScopeCity, "Pune")
	assert.ErrorIs(t, err, ErrNoShapes)
}
