// Package geo decodes reference layers into polygon feature sets.
package geo

import (
	"io"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/sells-group/geoclient-munger/internal/fetcher"
	"github.com/sells-group/geoclient-munger/internal/spatial"
)

// DecodeGeoJSON reads a GeoJSON FeatureCollection. Features without a
// Polygon or MultiPolygon geometry are skipped.
func DecodeGeoJSON(r io.Reader) ([]*spatial.Feature, error) {
	fc, err := fetcher.DecodeJSONObject[geojson.FeatureCollection](r)
	if err != nil {
		return nil, eris.Wrap(err, "geo: decode feature collection")
	}
	return FromCollection(fc), nil
}

// FromCollection converts a decoded FeatureCollection, keeping feature order.
func FromCollection(fc *geojson.FeatureCollection) []*spatial.Feature {
	if fc == nil {
		return nil
	}

	features := make([]*spatial.Feature, 0, len(fc.Features))
	var skipped int
	for _, f := range fc.Features {
		if f == nil || !isPolygonal(f.Geometry) {
			skipped++
			continue
		}
		features = append(features, spatial.NewFeature(f.ID, f.Geometry, copyProperties(f.Properties)))
	}

	if skipped > 0 {
		zap.L().Debug("geo: skipped non-polygonal features",
			zap.Int("skipped", skipped),
			zap.Int("kept", len(features)),
		)
	}
	return features
}

func isPolygonal(g geom.T) bool {
	switch g.(type) {
	case *geom.Polygon, *geom.MultiPolygon:
		return true
	default:
		return false
	}
}

func copyProperties(props map[string]any) map[string]any {
	out := make(map[string]any, len(props))
	for k, v := range props {
		out[k] = v
	}
	return out
}
