package geo

import (
	"os"
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"go.uber.org/zap"

	"github.com/sells-group/geoclient-munger/internal/fetcher"
	"github.com/sells-group/geoclient-munger/internal/spatial"
)

// DecodeShapefileZIP extracts a zipped shapefile into a fresh directory under
// tempDir and reads its polygon records. Every DBF column becomes a
// property; numeric columns decode as float64.
func DecodeShapefileZIP(zipPath, tempDir string) ([]*spatial.Feature, error) {
	extractDir, err := os.MkdirTemp(tempDir, "layer-*")
	if err != nil {
		return nil, eris.Wrap(err, "geo: create extract dir")
	}
	defer os.RemoveAll(extractDir) //nolint:errcheck

	paths, err := fetcher.ExtractZIP(zipPath, extractDir)
	if err != nil {
		return nil, eris.Wrap(err, "geo: extract shapefile archive")
	}

	shpPath, err := fetcher.FindByExt(paths, ".shp")
	if err != nil {
		return nil, eris.Wrap(err, "geo: find .shp file")
	}
	return ReadShapefile(shpPath)
}

// ReadShapefile reads the polygon records of an unpacked shapefile.
func ReadShapefile(shpPath string) ([]*spatial.Feature, error) {
	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrapf(err, "geo: open shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = strings.TrimRight(f.String(), "\x00")
	}

	var features []*spatial.Feature
	var skipped int
	for reader.Next() {
		n, shape := reader.Shape()

		poly, ok := shape.(*shp.Polygon)
		if !ok {
			skipped++
			continue
		}
		g := polygonToMultiPolygon(poly)
		if g == nil {
			skipped++
			continue
		}

		props := make(map[string]any, len(fields))
		for i, f := range fields {
			props[names[i]] = attributeValue(f, reader.Attribute(i))
		}
		features = append(features, spatial.NewFeature(strconv.Itoa(n), g, props))
	}
	if err := reader.Err(); err != nil {
		return nil, eris.Wrap(err, "geo: read shapefile")
	}

	if skipped > 0 {
		zap.L().Debug("geo: skipped shapefile records",
			zap.String("path", shpPath),
			zap.Int("skipped", skipped),
		)
	}
	return features, nil
}

// attributeValue trims a DBF value and parses numeric columns. Blank values
// decode as nil.
func attributeValue(f shp.Field, raw string) any {
	val := strings.TrimSpace(strings.TrimRight(raw, "\x00"))
	if val == "" {
		return nil
	}
	switch f.Fieldtype {
	case 'N', 'F':
		if n, err := strconv.ParseFloat(val, 64); err == nil {
			return n
		}
	}
	return val
}

// polygonToMultiPolygon groups shapefile rings into polygons. Clockwise
// rings start a new polygon; counter-clockwise rings are holes of the
// polygon before them.
func polygonToMultiPolygon(p *shp.Polygon) *geom.MultiPolygon {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	var polys []*geom.Polygon
	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}
		if end-start < 4 {
			zap.L().Debug("geo: skipping degenerate ring", zap.Int32("part", i))
			continue
		}

		flat := make([]float64, 0, 2*(end-start))
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}
		ring := geom.NewLinearRingFlat(geom.XY, flat)

		if !xy.IsRingCounterClockwise(geom.XY, flat) || len(polys) == 0 {
			poly := geom.NewPolygon(geom.XY)
			if err := poly.Push(ring); err != nil {
				continue
			}
			polys = append(polys, poly)
			continue
		}
		if err := polys[len(polys)-1].Push(ring); err != nil {
			zap.L().Debug("geo: skipping malformed hole", zap.Int32("part", i), zap.Error(err))
		}
	}

	if len(polys) == 0 {
		return nil
	}
	mp := geom.NewMultiPolygon(geom.XY)
	for _, poly := range polys {
		if err := mp.Push(poly); err != nil {
			zap.L().Debug("geo: skipping malformed polygon", zap.Error(err))
		}
	}
	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}
