package munger

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/sells-group/geoclient-munger/internal/spatial"
)

// Response is a geocoder response: field name to untyped value.
type Response map[string]any

// Coordinate fields read from a geocoder response.
const (
	FieldLabelX = "internalLabelXCoordinate"
	FieldLabelY = "internalLabelYCoordinate"
	FieldX      = "xCoordinate"
	FieldY      = "yCoordinate"
)

// Resolve picks the query point for a response. The internal label pair wins
// when both members are set to a non-empty, non-zero value; otherwise the
// generic pair is used. Values that cannot be read as numbers give NaN, and a
// NaN point matches nothing.
func Resolve(resp Response) spatial.Point {
	lx, lxOK := resp[FieldLabelX]
	ly, lyOK := resp[FieldLabelY]
	if truthy(lx, lxOK) && truthy(ly, lyOK) {
		return spatial.Point{X: toNumber(lx, true), Y: toNumber(ly, true)}
	}

	x, xOK := resp[FieldX]
	y, yOK := resp[FieldY]
	return spatial.Point{X: toNumber(x, xOK), Y: toNumber(y, yOK)}
}

// truthy reports whether a value counts as set: present, not nil, not an
// empty string, not zero or NaN, and not false.
func truthy(v any, ok bool) bool {
	if !ok || v == nil {
		return false
	}
	switch t := v.(type) {
	case string:
		return t != ""
	case bool:
		return t
	case json.Number:
		f := toNumber(t, true)
		return f != 0 && !math.IsNaN(f)
	}
	if f, isNum := numeric(v); isNum {
		return f != 0 && !math.IsNaN(f)
	}
	return true
}

// toNumber coerces a response value to float64. Blank strings and nil read
// as zero, booleans as one or zero. Absent or unparsable values are NaN.
func toNumber(v any, ok bool) float64 {
	if !ok {
		return math.NaN()
	}
	switch t := v.(type) {
	case nil:
		return 0
	case bool:
		if t {
			return 1
		}
		return 0
	case string:
		return parseNumber(t)
	case json.Number:
		return parseNumber(string(t))
	}
	if f, isNum := numeric(v); isNum {
		return f
	}
	return math.NaN()
}

func parseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

func numeric(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int8:
		return float64(t), true
	case int16:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint:
		return float64(t), true
	case uint8:
		return float64(t), true
	case uint16:
		return float64(t), true
	case uint32:
		return float64(t), true
	case uint64:
		return float64(t), true
	default:
		return 0, false
	}
}
