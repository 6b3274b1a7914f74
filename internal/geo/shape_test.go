package geo

import (
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"

	"github.com/sells-group/gst-filter/internal/model"
)

// square returns a closed ring for the axis-aligned square [x0,x1]x[y0,y1].
func square(x0, y0, x1, y1 float64) []shp.Point {
	return []shp.Point{{X: x0, Y: y0}, {X: x0, Y: y1}, {X: x1, Y: y1}, {X: x1, Y: y0}, {X: x0, Y: y0}}
}

func polygon(rings ...[]shp.Point) *shp.Polygon {
	return (*shp.Polygon)(shp.NewPolyLine(rings))
}

func squareShape(name string, level model.ScopeLevel, x0, y0, x1, y1 float64) Shape {
	return Shape{Level: level, Name: name, Geom: polygonToMultiPolygon(polygon(square(x0, y0, x1, y1)))}
}

func TestShape_Contains(t *testing.T) {
	s := squareShape("Pune", model.ScopeCity, 73.7, 18.4, 74.0, 18.7)

	assert.True(t, s.Contains(73.85, 18.52))
	assert.False(t, s.Contains(72.87, 19.07))
	assert.False(t, s.Contains(73.85, 18.8))
}

func TestShape_ContainsExcludesHoles(t *testing.T) {
	s := Shape{Name: "ring", Geom: polygonToMultiPolygon(polygon(
		square(0, 0, 10, 10),
		square(4, 4, 6, 6),
	))}

	assert.True(t, s.Contains(1, 1))
	assert.False(t, s.Contains(5, 5))
	assert.True(t, s.Contains(8, 8))
}

func TestPolygonToMultiPolygon_NestsHoles(t *testing.T) {
	// outer shell, a lake in it, an island in the lake, and a separate part
	mp := polygonToMultiPolygon(polygon(
		square(0, 0, 10, 10),
		square(2, 2, 8, 8),
		square(4, 4, 6, 6),
		square(20, 20, 21, 21),
	))
	require.NotNil(t, mp)
	require.Equal(t, 3, mp.NumPolygons())
	assert.Equal(t, 2, mp.Polygon(0).NumLinearRings())
	assert.Equal(t, 1, mp.Polygon(1).NumLinearRings())
	assert.Equal(t, 1, mp.Polygon(2).NumLinearRings())

	s := Shape{Name: "lake", Geom: mp}
	assert.True(t, s.Contains(1, 1))
	assert.False(t, s.Contains(3, 3))
	assert.True(t, s.Contains(5, 5))
	assert.True(t, s.Contains(20.5, 20.5))
}

func TestShape_EWKBKeepsHoles(t *testing.T) {
	s := Shape{Name: "ring", Geom: polygonToMultiPolygon(polygon(
		square(0, 0, 10, 10),
		square(4, 4, 6, 6),
	))}

	data, err := s.EWKB()
	require.NoError(t, err)
	g, err := ewkb.Unmarshal(data)
	require.NoError(t, err)
	mp, ok := g.(*geom.MultiPolygon)
	require.True(t, ok)
	require.Equal(t, 1, mp.NumPolygons())
	assert.Equal(t, 2, mp.Polygon(0).NumLinearRings())
}

func TestShape_ContainsMultiPart(t *testing.T) {
	s := Shape{Name: "islands", Geom: polygonToMultiPolygon(polygon(
		square(0, 0, 1, 1),
		square(5, 5, 6, 6),
	))}

	assert.True(t, s.Contains(0.5, 0.5))
	assert.True(t, s.Contains(5.5, 5.5))
	assert.False(t, s.Contains(3, 3))
}

func TestShape_ContainsEmpty(t *testing.T) {
	assert.False(t, (&Shape{Name: "none"}).Contains(0, 0))
}

func TestShape_EWKB(t *testing.T) {
	s := squareShape("Pune", model.ScopeCity, 73.7, 18.4, 74.0, 18.7)

	data, err := s.EWKB()
	require.NoError(t, err)

	g, err := ewkb.Unmarshal(data)
	require.NoError(t, err)
	mp, ok := g.(*geom.MultiPolygon)
	require.True(t, ok)
	assert.Equal(t, SRID, mp.SRID())
	assert.Equal(t, 1, mp.NumPolygons())
	assert.Equal(t, 0, s.Geom.SRID())
}

func TestShape_EWKBNoGeometry(t *testing.T) {
	_, err := (&Shape{Name: "empty"}).EWKB()
	assert.Error(t, err)
}

func TestPolygonToMultiPolygon_Degenerate(t *testing.T) {
	assert.Nil(t, polygonToMultiPolygon(nil))
	assert.Nil(t, polygonToMultiPolygon(&shp.Polygon{}))
	assert.Nil(t, polygonToMultiPolygon(polygon([]shp.Point{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 0}})))
}

func TestMerge(t *testing.T) {
	a := squareShape("Pune", model.ScopeCity, 0, 0, 1, 1)
	b := squareShape("PUNE", model.ScopeCity, 5, 5, 6, 6)
	c := squareShape("Pune", model.ScopeState, 0, 0, 1, 1)

	merged := Merge([]Shape{a, b, c, {Name: "no geometry"}})
	require.Len(t, merged, 2)
	assert.Equal(t, "Pune", merged[0].Name)
	assert.Equal(t, 2, merged[0].Geom.NumPolygons())
	assert.Equal(t, model.ScopeState, merged[1].Level)
	assert.Equal(t, 1, a.Geom.NumPolygons())
}
