package spatial

import (
	"math"

	"github.com/twpayne/go-geom"
)

// Point is a query coordinate in the working CRS.
type Point struct {
	X float64
	Y float64
}

// IsNaN reports whether either ordinate is not a number.
func (p Point) IsNaN() bool {
	return math.IsNaN(p.X) || math.IsNaN(p.Y)
}

// Feature is a polygonal reference feature with its attributes.
type Feature struct {
	ID         string
	Properties map[string]any
	Geometry   geom.T

	minX, minY, maxX, maxY float64
}

// NewFeature wraps a Polygon or MultiPolygon geometry. The bounds are cached
// so containment tests can reject most features without touching rings.
func NewFeature(id string, g geom.T, props map[string]any) *Feature {
	if props == nil {
		props = map[string]any{}
	}
	f := &Feature{
		ID:         id,
		Properties: props,
		Geometry:   g,
		minX:       math.Inf(1),
		minY:       math.Inf(1),
		maxX:       math.Inf(-1),
		maxY:       math.Inf(-1),
	}
	if g != nil && len(g.FlatCoords()) > 0 {
		b := g.Bounds()
		f.minX, f.minY = b.Min(0), b.Min(1)
		f.maxX, f.maxY = b.Max(0), b.Max(1)
	}
	return f
}

// Property returns the named attribute and whether it is set.
func (f *Feature) Property(name string) (any, bool) {
	v, ok := f.Properties[name]
	return v, ok
}

// coversBounds reports whether p falls within the feature's bounding box.
func (f *Feature) coversBounds(p Point) bool {
	return p.X >= f.minX && p.X <= f.maxX && p.Y >= f.minY && p.Y <= f.maxY
}

// FeatureSet is an ordered, immutable collection of features for one layer.
type FeatureSet struct {
	features []*Feature
}

// NewFeatureSet copies the given features into a new set.
func NewFeatureSet(features []*Feature) *FeatureSet {
	fs := make([]*Feature, 0, len(features))
	for _, f := range features {
		if f != nil {
			fs = append(fs, f)
		}
	}
	return &FeatureSet{features: fs}
}

// Len returns the number of features.
func (s *FeatureSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.features)
}

// Features returns a copy of the feature slice.
func (s *FeatureSet) Features() []*Feature {
	if s == nil {
		return nil
	}
	out := make([]*Feature, len(s.features))
	copy(out, s.features)
	return out
}
