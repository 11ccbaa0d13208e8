package proj

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// Transformer reprojects geometries through geographic coordinates.
type Transformer struct{}

// TransformPoint converts a single coordinate from one CRS to another.
func (Transformer) TransformPoint(x, y float64, from, to string) (float64, float64, error) {
	src, dst, same, err := resolvePair(from, to)
	if err != nil {
		return 0, 0, err
	}
	if same {
		return x, y, nil
	}
	lon, lat := src.inverse(x, y)
	ox, oy := dst.forward(lon, lat)
	if !finite(ox) || !finite(oy) {
		return 0, 0, eris.Errorf("proj: (%g, %g) has no finite image in %s", x, y, to)
	}
	return ox, oy, nil
}

// Reproject returns a copy of g with every coordinate converted from one CRS
// to another. Geometries already in the target CRS are returned as-is.
func (t Transformer) Reproject(g geom.T, from, to string) (geom.T, error) {
	src, dst, same, err := resolvePair(from, to)
	if err != nil {
		return nil, err
	}
	if same || g == nil {
		return g, nil
	}

	stride := g.Stride()
	in := g.FlatCoords()
	out := make([]float64, len(in))
	copy(out, in)

	for i := 0; i+1 < len(out); i += stride {
		lon, lat := src.inverse(out[i], out[i+1])
		x, y := dst.forward(lon, lat)
		if !finite(x) || !finite(y) {
			return nil, eris.Errorf("proj: (%g, %g) has no finite image in %s", out[i], out[i+1], to)
		}
		out[i], out[i+1] = x, y
	}

	switch v := g.(type) {
	case *geom.Point:
		return geom.NewPointFlat(v.Layout(), out), nil
	case *geom.LineString:
		return geom.NewLineStringFlat(v.Layout(), out), nil
	case *geom.Polygon:
		return geom.NewPolygonFlat(v.Layout(), out, v.Ends()), nil
	case *geom.MultiPolygon:
		return geom.NewMultiPolygonFlat(v.Layout(), out, v.Endss()), nil
	default:
		return nil, eris.Errorf("proj: unsupported geometry %T", g)
	}
}

func resolvePair(from, to string) (projection, projection, bool, error) {
	f, err := Normalize(from)
	if err != nil {
		return projection{}, projection{}, false, err
	}
	t, err := Normalize(to)
	if err != nil {
		return projection{}, projection{}, false, err
	}
	return projections[f], projections[t], f == t, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
