package munger

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/geoclient-munger/internal/spatial"
)

// Format is the interchange format of a layer payload.
type Format string

// Supported layer formats.
const (
	FormatGeoJSON   Format = "geojson"
	FormatShapefile Format = "shapefile"
)

// LayerConfig describes one reference layer. Exactly one of Collection, Data
// or URL supplies the features.
type LayerConfig struct {
	// Name labels the layer in logs and errors. Defaults to TargetField.
	Name string

	// SourceCRS is the CRS the raw features arrive in, e.g. "EPSG:4326".
	SourceCRS string

	// IDProperty is the feature attribute copied into the response.
	IDProperty string

	// TargetField is the response field to overwrite.
	TargetField string

	// Logging overrides the Munger-wide logging default when set.
	Logging *bool

	Collection *geojson.FeatureCollection
	Data       []byte
	URL        string

	// Format applies to Data and URL sources. Default: geojson.
	Format Format
}

// Label returns the layer name, falling back to the target field.
func (c LayerConfig) Label() string {
	if c.Name != "" {
		return c.Name
	}
	return c.TargetField
}

func (c LayerConfig) format() Format {
	if c.Format == "" {
		return FormatGeoJSON
	}
	return Format(strings.ToLower(string(c.Format)))
}

// Validate checks required fields and that exactly one source is set.
func (c LayerConfig) Validate() error {
	var missing []string
	if c.SourceCRS == "" {
		missing = append(missing, "source CRS")
	}
	if c.IDProperty == "" {
		missing = append(missing, "id property")
	}
	if c.TargetField == "" {
		missing = append(missing, "target field")
	}
	if len(missing) > 0 {
		return eris.Errorf("missing %s", strings.Join(missing, ", "))
	}

	sources := 0
	if c.Collection != nil {
		sources++
	}
	if c.Data != nil {
		sources++
	}
	if c.URL != "" {
		sources++
	}
	if sources != 1 {
		return eris.Errorf("exactly one of collection, data or url is required, got %d", sources)
	}

	switch c.format() {
	case FormatGeoJSON, FormatShapefile:
	default:
		return eris.Errorf("unsupported format %q", c.Format)
	}
	if c.Collection != nil && c.Format != "" && c.format() != FormatGeoJSON {
		return eris.New("a feature collection source must use the geojson format")
	}
	return nil
}

// Layer is a loaded reference layer. Its features are in the working CRS and
// never change after load.
type Layer struct {
	Config   LayerConfig
	Features *spatial.FeatureSet

	logging bool
}

// Name returns the layer label.
func (l *Layer) Name() string {
	return l.Config.Label()
}

// Logging reports whether outcomes for this layer are emitted.
func (l *Layer) Logging() bool {
	return l.logging
}

// Registry holds the loaded layers in configuration order. It is read-only
// after construction and safe for concurrent use.
type Registry struct {
	layers []*Layer
}

// Layers returns the layers in evaluation order.
func (r *Registry) Layers() []*Layer {
	out := make([]*Layer, len(r.layers))
	copy(out, r.layers)
	return out
}

// Len returns the number of layers.
func (r *Registry) Len() int {
	return len(r.layers)
}

// Layer returns the first layer with the given name.
func (r *Registry) Layer(name string) (*Layer, bool) {
	for _, l := range r.layers {
		if l.Name() == name {
			return l, true
		}
	}
	return nil, false
}
