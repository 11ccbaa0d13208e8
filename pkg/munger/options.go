package munger

import (
	"os"

	"github.com/twpayne/go-geom"

	"github.com/sells-group/geoclient-munger/internal/fetcher"
	"github.com/sells-group/geoclient-munger/internal/proj"
	"github.com/sells-group/geoclient-munger/internal/spatial"
)

// DefaultWorkingCRS is NY State Plane Long Island in US survey feet, the
// coordinate system geocoder x/y values are reported in.
const DefaultWorkingCRS = proj.NYStatePlaneLI

// Reprojector converts geometries between coordinate reference systems. A
// nil geometry only checks that the CRS pair is supported.
type Reprojector interface {
	Reproject(g geom.T, from, to string) (geom.T, error)
}

// Option configures a Munger.
type Option func(*options)

type options struct {
	emitter     Emitter
	logging     bool
	workingCRS  string
	containment Containment
	reprojector Reprojector
	fetcher     fetcher.Fetcher
	tempDir     string
}

func buildOptions(opts []Option) *options {
	o := &options{
		emitter:     NewZapEmitter(nil),
		workingCRS:  DefaultWorkingCRS,
		containment: spatial.Planar{},
		reprojector: proj.Transformer{},
		tempDir:     os.TempDir(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.fetcher == nil {
		o.fetcher = fetcher.NewMux(fetcher.HTTPOptions{MaxRetries: fetcher.DefaultMaxRetries}, fetcher.FTPOptions{})
	}
	return o
}

// WithEmitter sets the outcome emitter. Default: a ZapEmitter on the global
// logger.
func WithEmitter(e Emitter) Option {
	return func(o *options) {
		if e != nil {
			o.emitter = e
		}
	}
}

// WithLogging sets the logging default for layers whose config leaves
// Logging unset. Default: false.
func WithLogging(enabled bool) Option {
	return func(o *options) {
		o.logging = enabled
	}
}

// WithWorkingCRS sets the CRS layers are reprojected into.
func WithWorkingCRS(code string) Option {
	return func(o *options) {
		if code != "" {
			o.workingCRS = code
		}
	}
}

// WithContainment replaces the planar containment engine.
func WithContainment(c Containment) Option {
	return func(o *options) {
		if c != nil {
			o.containment = c
		}
	}
}

// WithReprojector replaces the built-in reprojector.
func WithReprojector(r Reprojector) Option {
	return func(o *options) {
		if r != nil {
			o.reprojector = r
		}
	}
}

// WithFetcher sets the fetcher used for URL layers.
func WithFetcher(f fetcher.Fetcher) Option {
	return func(o *options) {
		o.fetcher = f
	}
}

// WithTempDir sets where shapefile archives are downloaded and unpacked.
func WithTempDir(dir string) Option {
	return func(o *options) {
		if dir != "" {
			o.tempDir = dir
		}
	}
}
