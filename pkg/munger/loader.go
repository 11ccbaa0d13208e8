package munger

import (
	"bytes"
	"context"
	"errors"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/geoclient-munger/internal/geo"
	"github.com/sells-group/geoclient-munger/internal/spatial"
)

// New builds a Munger from configs that already carry their features
// (Collection or Data). URL configs need Load.
func New(configs []LayerConfig, opts ...Option) (*Munger, error) {
	o := buildOptions(opts)
	if err := validateAll(configs); err != nil {
		return nil, err
	}

	layers := make([]*Layer, len(configs))
	for i, cfg := range configs {
		if cfg.URL != "" {
			return nil, newLoadError(ConfigFailure, cfg.Label(), eris.New("url layers must be built with Load"))
		}
		layer, err := buildLayer(context.Background(), o, cfg)
		if err != nil {
			return nil, err
		}
		layers[i] = layer
	}
	return newMunger(o, layers), nil
}

// Load retrieves, decodes and reprojects every layer concurrently. It
// succeeds only when every layer loads; otherwise the first error is
// returned and no Munger is built. A failing layer does not cancel the
// others. Use ctx to bound the whole load.
func Load(ctx context.Context, configs []LayerConfig, opts ...Option) (*Munger, error) {
	o := buildOptions(opts)
	if err := validateAll(configs); err != nil {
		return nil, err
	}

	start := time.Now()
	layers := make([]*Layer, len(configs))

	var g errgroup.Group
	for i, cfg := range configs {
		g.Go(func() error {
			layer, err := buildLayer(ctx, o, cfg)
			if err != nil {
				return err
			}
			layers[i] = layer
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	zap.L().Info("munger: layers loaded",
		zap.Int("layers", len(layers)),
		zap.String("working_crs", o.workingCRS),
		zap.Duration("elapsed", time.Since(start)),
	)
	return newMunger(o, layers), nil
}

func newMunger(o *options, layers []*Layer) *Munger {
	return &Munger{
		registry:    &Registry{layers: layers},
		containment: o.containment,
		emitter:     o.emitter,
		workingCRS:  o.workingCRS,
	}
}

func validateAll(configs []LayerConfig) error {
	for _, cfg := range configs {
		if err := cfg.Validate(); err != nil {
			return newLoadError(ConfigFailure, cfg.Label(), err)
		}
	}
	return nil
}

// buildLayer turns one config into a Layer in the working CRS.
func buildLayer(ctx context.Context, o *options, cfg LayerConfig) (*Layer, error) {
	name := cfg.Label()
	log := zap.L().With(zap.String("component", "munger.loader"), zap.String("layer", name))

	if _, err := o.reprojector.Reproject(nil, cfg.SourceCRS, o.workingCRS); err != nil {
		return nil, newLoadError(ReprojectionFailure, name, err)
	}

	raw, err := decodeLayer(ctx, o, cfg)
	if err != nil {
		return nil, err
	}

	features := make([]*spatial.Feature, 0, len(raw))
	for _, f := range raw {
		g, err := o.reprojector.Reproject(f.Geometry, cfg.SourceCRS, o.workingCRS)
		if err != nil {
			return nil, newLoadError(ReprojectionFailure, name,
				eris.Wrapf(err, "reproject feature %q", f.ID))
		}
		features = append(features, spatial.NewFeature(f.ID, g, f.Properties))
	}

	logging := o.logging
	if cfg.Logging != nil {
		logging = *cfg.Logging
	}

	log.Debug("layer built",
		zap.Int("features", len(features)),
		zap.String("source_crs", cfg.SourceCRS),
	)
	return &Layer{
		Config:   cfg,
		Features: spatial.NewFeatureSet(features),
		logging:  logging,
	}, nil
}

// decodeLayer returns the layer's features in its source CRS.
func decodeLayer(ctx context.Context, o *options, cfg LayerConfig) ([]*spatial.Feature, error) {
	name := cfg.Label()

	switch {
	case cfg.Collection != nil:
		return geo.FromCollection(cfg.Collection), nil

	case cfg.Data != nil:
		if cfg.format() == FormatShapefile {
			return decodeShapefileBytes(o, name, cfg.Data)
		}
		features, err := geo.DecodeGeoJSON(bytes.NewReader(cfg.Data))
		if err != nil {
			return nil, newLoadError(DecodeFailure, name, err)
		}
		return features, nil

	default:
		if cfg.format() == FormatShapefile {
			return fetchShapefile(ctx, o, name, cfg.URL)
		}
		body, err := o.fetcher.Download(ctx, cfg.URL)
		if err != nil {
			return nil, newLoadError(RetrievalFailure, name, err)
		}
		defer body.Close() //nolint:errcheck

		features, err := geo.DecodeGeoJSON(body)
		if err != nil {
			return nil, newLoadError(DecodeFailure, name, err)
		}
		return features, nil
	}
}

func fetchShapefile(ctx context.Context, o *options, name, rawURL string) ([]*spatial.Feature, error) {
	tmp, err := os.CreateTemp(o.tempDir, "layer-*.zip")
	if err != nil {
		return nil, newLoadError(RetrievalFailure, name, eris.Wrap(err, "create temp file"))
	}
	zipPath := tmp.Name()
	_ = tmp.Close()
	defer os.Remove(zipPath) //nolint:errcheck

	if _, err := o.fetcher.DownloadToFile(ctx, rawURL, zipPath); err != nil {
		return nil, newLoadError(RetrievalFailure, name, err)
	}

	features, err := geo.DecodeShapefileZIP(zipPath, o.tempDir)
	if err != nil {
		return nil, newLoadError(DecodeFailure, name, err)
	}
	return features, nil
}

func decodeShapefileBytes(o *options, name string, data []byte) ([]*spatial.Feature, error) {
	tmp, err := os.CreateTemp(o.tempDir, "layer-*.zip")
	if err != nil {
		return nil, newLoadError(DecodeFailure, name, eris.Wrap(err, "create temp file"))
	}
	zipPath := tmp.Name()
	defer os.Remove(zipPath) //nolint:errcheck

	_, werr := tmp.Write(data)
	cerr := tmp.Close()
	if werr != nil || cerr != nil {
		return nil, newLoadError(DecodeFailure, name, eris.Wrap(errors.Join(werr, cerr), "write temp file"))
	}

	features, err := geo.DecodeShapefileZIP(zipPath, o.tempDir)
	if err != nil {
		return nil, newLoadError(DecodeFailure, name, err)
	}
	return features, nil
}
