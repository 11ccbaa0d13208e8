package munger

import (
	"sync"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/geoclient-munger/internal/proj"
	"github.com/sells-group/geoclient-munger/internal/spatial"
)

// square returns a feature covering [x, x+size] by [y, y+size].
func square(x, y, size float64, props map[string]any) *geojson.Feature {
	flat := []float64{x, y, x + size, y, x + size, y + size, x, y + size, x, y}
	return &geojson.Feature{
		Geometry:   geom.NewPolygonFlat(geom.XY, flat, []int{len(flat)}),
		Properties: props,
	}
}

func collection(features ...*geojson.Feature) *geojson.FeatureCollection {
	return &geojson.FeatureCollection{Features: features}
}

// stateplaneLayer is a layer already in the working CRS.
func stateplaneLayer(name, idProp, target string, fc *geojson.FeatureCollection) LayerConfig {
	return LayerConfig{
		Name:        name,
		SourceCRS:   proj.NYStatePlaneLI,
		IDProperty:  idProp,
		TargetField: target,
		Collection:  fc,
	}
}

// districtLayers returns two layers over the same area:
//
//	communityDistrict: 101 on [0,100]x[0,100], 102 on [100,200]x[0,100]
//	policePrecinct:    "001" and "005" overlap on [50,150]x[0,100]
func districtLayers() []LayerConfig {
	return []LayerConfig{
		stateplaneLayer("community districts", "BoroCD", "communityDistrict", collection(
			square(0, 0, 100, map[string]any{"BoroCD": "101"}),
			square(100.5, 0, 99.5, map[string]any{"BoroCD": "102"}),
		)),
		stateplaneLayer("police precincts", "Precinct", "policePrecinct", collection(
			square(0, 0, 150, map[string]any{"Precinct": "001"}),
			square(50, 0, 150, map[string]any{"Precinct": "005"}),
		)),
	}
}

func boolPtr(b bool) *bool { return &b }

// recordingEmitter keeps every emitted outcome in order.
type recordingEmitter struct {
	mu       sync.Mutex
	outcomes []Outcome
}

func (r *recordingEmitter) Emit(_ *Layer, o Outcome, _ Response) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, o)
}

func (r *recordingEmitter) layers() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, len(r.outcomes))
	for i, o := range r.outcomes {
		names[i] = o.Layer
	}
	return names
}

// recordingContainment wraps Planar and records every query point.
type recordingContainment struct {
	mu     sync.Mutex
	points []spatial.Point
}

func (r *recordingContainment) FeaturesContaining(p spatial.Point, set *spatial.FeatureSet) []*spatial.Feature {
	r.mu.Lock()
	r.points = append(r.points, p)
	r.mu.Unlock()
	return spatial.Planar{}.FeaturesContaining(p, set)
}

type panickingEmitter struct{}

func (panickingEmitter) Emit(*Layer, Outcome, Response) { panic("sink unavailable") }
