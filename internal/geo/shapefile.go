package geo

import (
	"context"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/gst-filter/internal/model"
)

// ReadShapefile loads every polygon in a shapefile as a Shape at level,
// naming each by its nameField attribute. Records without a name or
// polygon geometry are skipped.
func ReadShapefile(path string, level model.ScopeLevel, nameField string) ([]Shape, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "geo: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	nameIdx := fieldIndex(reader, nameField)
	if nameIdx < 0 {
		return nil, eris.Errorf("geo: field %q not found in %s", nameField, path)
	}

	var (
		shapes  []Shape
		skipped int
	)
	for reader.Next() {
		_, s := reader.Shape()
		name := strings.TrimSpace(strings.TrimRight(reader.Attribute(nameIdx), "\x00"))
		poly, ok := s.(*shp.Polygon)
		if !ok || name == "" {
			skipped++
			continue
		}
		mp := polygonToMultiPolygon(poly)
		if mp == nil {
			skipped++
			continue
		}
		shapes = append(shapes, Shape{Level: level, Name: name, Geom: mp})
	}

	if skipped > 0 {
		zap.L().Debug("geo: skipped shapefile records", zap.String("path", path), zap.Int("skipped", skipped))
	}
	return shapes, nil
}

// fieldIndex returns the index of a named field in the shapefile, or -1 if not found.
func fieldIndex(reader *shp.Reader, name string) int {
	for i, f := range reader.Fields() {
		if strings.EqualFold(strings.TrimRight(f.String(), "\x00"), name) {
			return i
		}
	}
	return -1
}

// BatchSource supplies the snapshot the in-memory store searches.
type BatchSource interface {
	Batch(ctx context.Context) (model.Batch, error)
}

// MemoryStore keeps shapes in memory and tests snapshot coordinates
// against them. It serves deployments without PostGIS.
type MemoryStore struct {
	shapes map[model.ScopeLevel][]Shape
	src    BatchSource
}

// NewMemoryStore indexes shapes by level.
func NewMemoryStore(src BatchSource, shapes ...Shape) *MemoryStore {
	m := &MemoryStore{shapes: make(map[model.ScopeLevel][]Shape), src: src}
	for _, s := range Merge(shapes) {
		m.shapes[s.Level] = append(m.shapes[s.Level], s)
	}
	return m
}

func (m *MemoryStore) lookup(level model.ScopeLevel, name string) *Shape {
	name = strings.TrimSpace(name)
	for i, s := range m.shapes[level] {
		if strings.EqualFold(s.Name, name) {
			return &m.shapes[level][i]
		}
	}
	return nil
}

// ResolveShapes matches names case-insensitively and drops duplicates.
func (m *MemoryStore) ResolveShapes(_ context.Context, level model.ScopeLevel, names []string) ([]string, error) {
	var out []string
	seen := make(map[string]bool)
	for _, n := range names {
		s := m.lookup(level, n)
		if s == nil || seen[s.Name] {
			continue
		}
		seen[s.Name] = true
		out = append(out, s.Name)
	}
	return out, nil
}

// RecordsWithin scans the snapshot for records whose coordinates fall in
// the named shape.
func (m *MemoryStore) RecordsWithin(ctx context.Context, level model.ScopeLevel, name string) (model.Batch, error) {
	s := m.lookup(level, name)
	if s == nil {
		return model.Batch{}, eris.Wrapf(ErrNoShapes, "geo: shape %q", name)
	}
	snap, err := m.src.Batch(ctx)
	if err != nil {
		return model.Batch{}, err
	}

	out := model.Batch{HasPincodeStatus: snap.HasPincodeStatus, HasBusinessType: snap.HasBusinessType}
	for _, r := range snap.Records {
		if !r.HasCoordinates() || !s.Contains(*r.Longitude, *r.Latitude) {
			continue
		}
		r = r.Clone()
		r.Location = s.Name
		out.Records = append(out.Records, r)
	}
	return out, nil
}
