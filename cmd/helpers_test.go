package main

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/geoclient-munger/pkg/munger"
)

// newTestMunger returns a munger with one community district layer:
// 101 covers [0,100]x[0,100] in the working CRS.
func newTestMunger(t *testing.T) *munger.Munger {
	t.Helper()
	flat := []float64{0, 0, 100, 0, 100, 100, 0, 100, 0, 0}
	fc := &geojson.FeatureCollection{Features: []*geojson.Feature{{
		Geometry:   geom.NewPolygonFlat(geom.XY, flat, []int{len(flat)}),
		Properties: map[string]any{"BoroCD": "101"},
	}}}

	m, err := munger.New([]munger.LayerConfig{{
		Name:        "community districts",
		SourceCRS:   "EPSG:2263",
		IDProperty:  "BoroCD",
		TargetField: "communityDistrict",
		Collection:  fc,
	}})
	require.NoError(t, err)
	return m
}
