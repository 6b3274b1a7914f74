// Package geo resolves named state and city shapes and finds the GST
// registrations that fall inside them.
package geo

import (
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
	"github.com/twpayne/go-geom/xy"
	"go.uber.org/zap"

	"github.com/sells-group/gst-filter/internal/model"
)

// SRID is the spatial reference of stored shapes and points (WGS 84).
const SRID = 4326

// Shape is a named boundary at one scope level.
type Shape struct {
	Level model.ScopeLevel
	Name  string
	Geom  *geom.MultiPolygon
}

// Contains reports whether the point lies inside the shape. Rings are
// evaluated with the even-odd rule, so points inside holes are excluded
// regardless of winding order.
func (s *Shape) Contains(lon, lat float64) bool {
	if s.Geom == nil || s.Geom.Empty() {
		return false
	}
	pt := geom.Coord{lon, lat}
	if !s.Geom.Bounds().OverlapsPoint(geom.XY, pt) {
		return false
	}

	inside := false
	for i := 0; i < s.Geom.NumPolygons(); i++ {
		poly := s.Geom.Polygon(i)
		for j := 0; j < poly.NumLinearRings(); j++ {
			if xy.IsPointInRing(geom.XY, pt, poly.LinearRing(j).FlatCoords()) {
				inside = !inside
			}
		}
	}
	return inside
}

// EWKB encodes the shape's geometry with SRID 4326 for PostGIS.
func (s *Shape) EWKB() ([]byte, error) {
	if s.Geom == nil {
		return nil, eris.Errorf("geo: shape %q has no geometry", s.Name)
	}
	g := s.Geom.Clone().SetSRID(SRID)
	data, err := ewkb.Marshal(g, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrapf(err, "geo: encode shape %q", s.Name)
	}
	return data, nil
}

// Merge folds shapes sharing a level and a case-insensitive name into the
// first of them, keeping first-seen order. Inputs are not modified.
func Merge(shapes []Shape) []Shape {
	var out []Shape
	index := make(map[string]int)
	for _, s := range shapes {
		if s.Geom == nil {
			continue
		}
		key := string(s.Level) + "\x00" + strings.ToLower(s.Name)
		i, ok := index[key]
		if !ok {
			index[key] = len(out)
			s.Geom = s.Geom.Clone()
			out = append(out, s)
			continue
		}
		for p := 0; p < s.Geom.NumPolygons(); p++ {
			if err := out[i].Geom.Push(s.Geom.Polygon(p)); err != nil {
				zap.L().Debug("geo: skipping polygon during merge", zap.String("shape", s.Name), zap.Error(err))
			}
		}
	}
	return out
}

// polygonToMultiPolygon converts a shapefile polygon to a MultiPolygon.
// Parts are nested by containment: a ring inside an odd number of other
// rings is a hole of the smallest ring around it, any other ring starts a
// new polygon. Winding order is ignored, so the result matches the
// even-odd rule Contains applies.
func polygonToMultiPolygon(p *shp.Polygon) *geom.MultiPolygon {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	var rings []*geom.LinearRing
	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}
		if end-start < 4 {
			zap.L().Debug("geo: skipping degenerate ring", zap.Int32("part", i))
			continue
		}
		flat := make([]float64, 0, 2*(end-start))
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}
		rings = append(rings, geom.NewLinearRingFlat(geom.XY, flat))
	}
	if len(rings) == 0 {
		return nil
	}

	// parent[i] is the smallest ring containing ring i, or -1.
	depth := make([]int, len(rings))
	parent := make([]int, len(rings))
	for i, ring := range rings {
		parent[i] = -1
		first := geom.Coord(ring.FlatCoords()[:2])
		for j, other := range rings {
			if i == j || !xy.IsPointInRing(geom.XY, first, other.FlatCoords()) {
				continue
			}
			depth[i]++
			if parent[i] < 0 || boundsArea(other) < boundsArea(rings[parent[i]]) {
				parent[i] = j
			}
		}
	}

	polys := make(map[int]*geom.Polygon)
	var order []int
	for i, ring := range rings {
		if depth[i]%2 == 1 {
			continue
		}
		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(ring); err != nil {
			zap.L().Debug("geo: skipping malformed polygon ring", zap.Int("ring", i), zap.Error(err))
			continue
		}
		polys[i] = poly
		order = append(order, i)
	}
	for i, ring := range rings {
		if depth[i]%2 == 0 {
			continue
		}
		shell, ok := polys[parent[i]]
		if !ok {
			zap.L().Debug("geo: skipping hole without shell", zap.Int("ring", i))
			continue
		}
		if err := shell.Push(ring); err != nil {
			zap.L().Debug("geo: skipping malformed hole", zap.Int("ring", i), zap.Error(err))
		}
	}

	mp := geom.NewMultiPolygon(geom.XY)
	for _, i := range order {
		if err := mp.Push(polys[i]); err != nil {
			zap.L().Debug("geo: skipping malformed polygon part", zap.Int("ring", i), zap.Error(err))
		}
	}
	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}

func boundsArea(r *geom.LinearRing) float64 {
	b := r.Bounds()
	return (b.Max(0) - b.Min(0)) * (b.Max(1) - b.Min(1))
}
