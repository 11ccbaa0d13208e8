// Package proj reprojects layer geometries between the handful of coordinate
// reference systems used by geoclient layers.
package proj

import (
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
	"github.com/rotisserie/eris"
	"github.com/wroge/wgs84"
)

// Well-known CRS codes.
const (
	WGS84              = "EPSG:4326"
	WebMercator        = "EPSG:3857"
	NYStatePlaneLI     = "EPSG:2263"
	NYStatePlaneLIUSFt = "EPSG:6539"
)

// ErrUnknownCRS is returned for CRS codes without a registered projection.
var ErrUnknownCRS = eris.New("proj: unknown CRS")

// projection converts between a CRS and geographic lon/lat degrees.
type projection struct {
	forward func(lon, lat float64) (x, y float64)
	inverse func(x, y float64) (lon, lat float64)
}

var geographic = projection{
	forward: func(lon, lat float64) (float64, float64) { return lon, lat },
	inverse: func(x, y float64) (float64, float64) { return x, y },
}

var mercator = projection{
	forward: func(lon, lat float64) (float64, float64) {
		p := project.WGS84.ToMercator(orb.Point{lon, lat})
		return p.X(), p.Y()
	},
	inverse: func(x, y float64) (float64, float64) {
		p := project.Mercator.ToWGS84(orb.Point{x, y})
		return p.X(), p.Y()
	},
}

// NAD83 / New York Long Island (ftUS). EPSG:6539 is the NAD83(2011)
// realization of the same Lambert Conformal Conic zone and shares its
// parameters, so both codes go through the EPSG:2263 definition.
var longIsland = wgs84Projection(2263)

// wgs84Projection wraps a projected CRS known to wroge/wgs84.
func wgs84Projection(code int) projection {
	to := wgs84.Transform(wgs84.EPSG(4326), wgs84.EPSG(code))
	from := wgs84.Transform(wgs84.EPSG(code), wgs84.EPSG(4326))
	return projection{
		forward: func(lon, lat float64) (float64, float64) {
			x, y, _ := to(lon, lat, 0)
			return x, y
		},
		inverse: func(x, y float64) (float64, float64) {
			lon, lat, _ := from(x, y, 0)
			return lon, lat
		},
	}
}

var projections = map[string]projection{
	WGS84:              geographic,
	"EPSG:4269":        geographic,
	"CRS:84":           geographic,
	WebMercator:        mercator,
	"EPSG:900913":      mercator,
	NYStatePlaneLI:     longIsland,
	NYStatePlaneLIUSFt: longIsland,
}

// Normalize canonicalizes a CRS identifier. It accepts "EPSG:2263",
// "epsg:2263", "urn:ogc:def:crs:EPSG::2263" and the OGC CRS84 URN.
func Normalize(code string) (string, error) {
	c := strings.ToUpper(strings.TrimSpace(code))
	switch {
	case c == "":
		return "", eris.Wrap(ErrUnknownCRS, "proj: empty CRS code")
	case strings.HasPrefix(c, "URN:OGC:DEF:CRS:OGC:") && strings.HasSuffix(c, "CRS84"):
		c = "CRS:84"
	case strings.HasPrefix(c, "URN:OGC:DEF:CRS:EPSG:"):
		parts := strings.Split(c, ":")
		c = "EPSG:" + parts[len(parts)-1]
	}
	if _, ok := projections[c]; !ok {
		return "", eris.Wrapf(ErrUnknownCRS, "proj: %q", code)
	}
	return c, nil
}
