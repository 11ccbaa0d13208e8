package munger

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/geoclient-munger/internal/fetcher"
	"github.com/sells-group/geoclient-munger/internal/proj"
)

// midtownGeoJSON is one district around Midtown Manhattan in lon/lat.
const midtownGeoJSON = `{
  "type": "FeatureCollection",
  "features": [{
    "type": "Feature",
    "properties": {"BoroCD": 105},
    "geometry": {"type": "Polygon", "coordinates": [[
      [-74.00, 40.73], [-73.97, 40.73], [-73.97, 40.77], [-74.00, 40.77], [-74.00, 40.73]
    ]]}
  }]
}`

func districtGeoJSON(id string, x0 float64) string {
	return fmt.Sprintf(`{"type":"FeatureCollection","features":[{"type":"Feature","properties":{"id":%q},
"geometry":{"type":"Polygon","coordinates":[[[%g,0],[%g,0],[%g,100],[%g,100],[%g,0]]]}}]}`,
		id, x0, x0+100, x0+100, x0, x0)
}

func testFetcher() fetcher.Fetcher {
	return fetcher.NewMux(fetcher.HTTPOptions{InitialBackoff: time.Millisecond}, fetcher.FTPOptions{})
}

func TestNew_ReprojectsFromWGS84(t *testing.T) {
	m, err := New([]LayerConfig{{
		Name:        "community districts",
		SourceCRS:   proj.WGS84,
		IDProperty:  "BoroCD",
		TargetField: "communityDistrict",
		Data:        []byte(midtownGeoJSON),
	}})
	require.NoError(t, err)

	x, y, err := proj.Transformer{}.TransformPoint(-73.9857, 40.7484, proj.WGS84, proj.NYStatePlaneLI)
	require.NoError(t, err)

	resp := Response{FieldX: fmt.Sprintf("%.0f", x), FieldY: fmt.Sprintf("%.0f", y), "communityDistrict": "0"}
	m.Munge(resp)
	assert.Equal(t, float64(105), resp["communityDistrict"])

	resp = Response{FieldX: -73.9857, FieldY: 40.7484, "communityDistrict": "0"}
	m.Munge(resp)
	assert.Equal(t, "0", resp["communityDistrict"], "lon/lat query points are not in the working CRS")
}

func TestNew_CustomWorkingCRS(t *testing.T) {
	m, err := New([]LayerConfig{{
		SourceCRS:   proj.WGS84,
		IDProperty:  "BoroCD",
		TargetField: "communityDistrict",
		Data:        []byte(midtownGeoJSON),
	}}, WithWorkingCRS(proj.WGS84))
	require.NoError(t, err)

	resp := Response{FieldX: -73.9857, FieldY: 40.7484, "communityDistrict": "0"}
	m.Munge(resp)
	assert.Equal(t, float64(105), resp["communityDistrict"])
	assert.Equal(t, proj.WGS84, m.WorkingCRS())
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name string
		cfg  LayerConfig
		kind ErrorKind
	}{
		{
			name: "url layer",
			cfg:  LayerConfig{SourceCRS: proj.WGS84, IDProperty: "id", TargetField: "f", URL: "http://example.com/x"},
			kind: ConfigFailure,
		},
		{
			name: "missing id property",
			cfg:  LayerConfig{SourceCRS: proj.WGS84, TargetField: "f", Data: []byte("{}")},
			kind: ConfigFailure,
		},
		{
			name: "unknown crs",
			cfg:  LayerConfig{SourceCRS: "EPSG:99999", IDProperty: "id", TargetField: "f", Data: []byte(midtownGeoJSON)},
			kind: ReprojectionFailure,
		},
		{
			name: "malformed geojson",
			cfg:  LayerConfig{SourceCRS: proj.WGS84, IDProperty: "id", TargetField: "f", Data: []byte(`{"type":`)},
			kind: DecodeFailure,
		},
		{
			name: "not a shapefile archive",
			cfg: LayerConfig{SourceCRS: proj.WGS84, IDProperty: "id", TargetField: "f",
				Data: []byte("not a zip"), Format: FormatShapefile},
			kind: DecodeFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := New([]LayerConfig{tt.cfg}, WithTempDir(t.TempDir()))
			require.Error(t, err)
			assert.Nil(t, m)
			assert.True(t, IsKind(err, tt.kind), "got %v", err)
		})
	}
}

func TestLoad_PreservesConfigOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/a.geojson":
			time.Sleep(30 * time.Millisecond)
			_, _ = w.Write([]byte(districtGeoJSON("A", 0)))
		case "/b.geojson":
			time.Sleep(10 * time.Millisecond)
			_, _ = w.Write([]byte(districtGeoJSON("B", 200)))
		case "/c.geojson":
			_, _ = w.Write([]byte(districtGeoJSON("C", 400)))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	var configs []LayerConfig
	for _, name := range []string{"a", "b", "c"} {
		configs = append(configs, LayerConfig{
			Name:        name,
			SourceCRS:   proj.NYStatePlaneLI,
			IDProperty:  "id",
			TargetField: name + "Field",
			URL:         srv.URL + "/" + name + ".geojson",
		})
	}

	m, err := Load(context.Background(), configs, WithFetcher(testFetcher()))
	require.NoError(t, err)

	var names []string
	for _, l := range m.Registry().Layers() {
		names = append(names, l.Name())
		assert.Equal(t, 1, l.Features.Len())
	}
	assert.Equal(t, []string{"a", "b", "c"}, names)

	resp := Response{FieldX: 250, FieldY: 50, "aField": "", "bField": "", "cField": ""}
	outcomes := m.Apply(resp)
	assert.Equal(t, "B", resp["bField"])
	assert.Equal(t, []OutcomeKind{Ambiguous, Matched, Ambiguous},
		[]OutcomeKind{outcomes[0].Kind, outcomes[1].Kind, outcomes[2].Kind})
}

func TestLoad_OneFailingLayerFailsAll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.geojson" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(districtGeoJSON("A", 0)))
	}))
	defer srv.Close()

	configs := []LayerConfig{
		{Name: "one", SourceCRS: proj.NYStatePlaneLI, IDProperty: "id", TargetField: "f1", URL: srv.URL + "/one.geojson"},
		{Name: "missing", SourceCRS: proj.NYStatePlaneLI, IDProperty: "id", TargetField: "f2", URL: srv.URL + "/missing.geojson"},
		{Name: "three", SourceCRS: proj.NYStatePlaneLI, IDProperty: "id", TargetField: "f3", URL: srv.URL + "/three.geojson"},
	}

	m, err := Load(context.Background(), configs, WithFetcher(testFetcher()))
	require.Error(t, err)
	assert.Nil(t, m)
	assert.True(t, IsKind(err, RetrievalFailure))

	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "missing", le.Layer)
}

func TestLoad_DecodeFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>not geojson</html>"))
	}))
	defer srv.Close()

	_, err := Load(context.Background(), []LayerConfig{
		{SourceCRS: proj.WGS84, IDProperty: "id", TargetField: "f", URL: srv.URL},
	}, WithFetcher(testFetcher()))
	require.Error(t, err)
	assert.True(t, IsKind(err, DecodeFailure))
}

func TestLoad_ConfigFailure(t *testing.T) {
	_, err := Load(context.Background(), []LayerConfig{
		{SourceCRS: proj.WGS84, IDProperty: "id", TargetField: "f"},
	})
	require.Error(t, err)
	assert.True(t, IsKind(err, ConfigFailure))
}

func TestLoad_MixedSources(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cd.geojson")
	require.NoError(t, os.WriteFile(path, []byte(districtGeoJSON("FILE", 0)), 0o644))

	m, err := Load(context.Background(), []LayerConfig{
		{Name: "file", SourceCRS: proj.NYStatePlaneLI, IDProperty: "id", TargetField: "f1", URL: "file://" + path},
		stateplaneLayer("inline", "BoroCD", "f2", collection(square(0, 0, 100, map[string]any{"BoroCD": "101"}))),
	})
	require.NoError(t, err)

	resp := Response{FieldX: 50, FieldY: 50, "f1": "", "f2": ""}
	m.Munge(resp)
	assert.Equal(t, "FILE", resp["f1"])
	assert.Equal(t, "101", resp["f2"])
}

func TestLoad_ShapefileURL(t *testing.T) {
	archive := shapefileZIP(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/zip")
		_, _ = w.Write(archive)
	}))
	defer srv.Close()

	m, err := Load(context.Background(), []LayerConfig{{
		Name:        "council districts",
		SourceCRS:   proj.NYStatePlaneLI,
		IDProperty:  "CounDist",
		TargetField: "cityCouncilDistrict",
		URL:         srv.URL + "/nycc.zip",
		Format:      FormatShapefile,
	}}, WithFetcher(testFetcher()), WithTempDir(t.TempDir()))
	require.NoError(t, err)

	resp := Response{FieldX: 50, FieldY: 50, "cityCouncilDistrict": "00"}
	m.Munge(resp)
	assert.Equal(t, float64(51), resp["cityCouncilDistrict"])
}

func TestLoad_ShapefileData(t *testing.T) {
	m, err := New([]LayerConfig{{
		SourceCRS:   proj.NYStatePlaneLI,
		IDProperty:  "CounDist",
		TargetField: "cityCouncilDistrict",
		Data:        shapefileZIP(t),
		Format:      FormatShapefile,
	}}, WithTempDir(t.TempDir()))
	require.NoError(t, err)
	assert.Equal(t, 1, m.Registry().Layers()[0].Features.Len())
}

// shapefileZIP returns a zipped shapefile with council district 51 on
// [0,100]x[0,100].
func shapefileZIP(t *testing.T) []byte {
	t.Helper()
	dir := t.TempDir()

	w, err := shp.Create(filepath.Join(dir, "nycc.shp"), shp.POLYGON)
	require.NoError(t, err)
	require.NoError(t, w.SetFields([]shp.Field{shp.NumberField("CounDist", 4)}))
	poly := shp.Polygon(*shp.NewPolyLine([][]shp.Point{
		{{X: 0, Y: 0}, {X: 0, Y: 100}, {X: 100, Y: 100}, {X: 100, Y: 0}, {X: 0, Y: 0}},
	}))
	row := w.Write(&poly)
	require.NoError(t, w.WriteAttribute(int(row), 0, 51))
	w.Close()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, ext := range []string{".shp", ".shx", ".dbf"} {
		data, err := os.ReadFile(filepath.Join(dir, "nycc"+ext))
		require.NoError(t, err)
		fw, err := zw.Create("nycc" + ext)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestLoadError(t *testing.T) {
	err := newLoadError(RetrievalFailure, "cd", fmt.Errorf("boom"))
	assert.Equal(t, `munger: retrieval failure for layer "cd": boom`, err.Error())
	assert.True(t, IsKind(fmt.Errorf("wrapped: %w", err), RetrievalFailure))
	assert.False(t, IsKind(err, DecodeFailure))
	assert.False(t, IsKind(nil, DecodeFailure))
	assert.Equal(t, "unknown failure", ErrorKind(0).String())
}
