package spatial

import (
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"github.com/twpayne/go-geom/xy/location"
)

// Planar answers containment queries with planar ring tests. A point must lie
// strictly inside a shell. Points on a hole boundary are still contained;
// points strictly inside a hole are not.
type Planar struct{}

// FeaturesContaining returns the features of set whose geometry contains p,
// in set order.
func (Planar) FeaturesContaining(p Point, set *FeatureSet) []*Feature {
	if set == nil || p.IsNaN() {
		return nil
	}

	var found []*Feature
	for _, f := range set.features {
		if !f.coversBounds(p) {
			continue
		}
		if Contains(f.Geometry, p) {
			found = append(found, f)
		}
	}
	return found
}

// Contains reports whether a Polygon or MultiPolygon contains p. Other
// geometry types never contain a point.
func Contains(g geom.T, p Point) bool {
	if p.IsNaN() {
		return false
	}
	switch t := g.(type) {
	case *geom.Polygon:
		return polygonContains(t, p)
	case *geom.MultiPolygon:
		for i := 0; i < t.NumPolygons(); i++ {
			if polygonContains(t.Polygon(i), p) {
				return true
			}
		}
	}
	return false
}

func polygonContains(poly *geom.Polygon, p Point) bool {
	n := poly.NumLinearRings()
	if n == 0 {
		return false
	}

	layout := poly.Layout()
	c := geom.Coord{p.X, p.Y}
	if layout.Stride() > 2 {
		c = make(geom.Coord, layout.Stride())
		c[0], c[1] = p.X, p.Y
	}

	if xy.LocatePointInRing(layout, c, poly.LinearRing(0).FlatCoords()) != location.Interior {
		return false
	}
	for i := 1; i < n; i++ {
		if xy.LocatePointInRing(layout, c, poly.LinearRing(i).FlatCoords()) == location.Interior {
			return false
		}
	}
	return true
}
