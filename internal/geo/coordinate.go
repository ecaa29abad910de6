// Package geo converts the coordinate representations found in page
// payloads into a canonical latitude / longitude pair.
package geo

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Coordinate is a canonical latitude / longitude pair in degrees
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether both axes are finite numbers
func (c Coordinate) Valid() bool {
	return !math.IsNaN(c.Lat) && !math.IsInf(c.Lat, 0) &&
		!math.IsNaN(c.Lng) && !math.IsInf(c.Lng, 0)
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%f,%f", c.Lat, c.Lng)
}

// Options control the legacy behaviors of the normalizer
type Options struct {
	// PairAsLatLng reads a two element pair as [lat, lng]. When unset the
	// first element is used for both axes, which is what the storefront
	// pages have always received.
	PairAsLatLng bool
}

type latLngAccessor interface {
	Lat() float64
	Lng() float64
}

// Normalize converts raw into a Coordinate using the default options
func Normalize(raw any) Coordinate {
	return NormalizeWith(raw, Options{})
}

// NormalizeWith converts raw into a Coordinate. Missing or falsy axes
// fall back to the first element of raw (or 0 when raw is no sequence),
// values which cannot be read as a number become NaN.
func NormalizeWith(raw any, opts Options) Coordinate {
	switch v := raw.(type) {
	case Coordinate:
		return v
	case *Coordinate:
		if v == nil {
			return Coordinate{}
		}
		return *v
	case latLngAccessor:
		return Coordinate{Lat: v.Lat(), Lng: v.Lng()}
	}

	lat, lng := field(raw, "lat"), field(raw, "lng")
	first := index(raw, 0)

	c := Coordinate{}
	if truthy(lat) {
		c.Lat = toNumber(lat)
	} else {
		c.Lat = orZero(first)
	}

	if truthy(lng) {
		c.Lng = toNumber(lng)
	} else if opts.PairAsLatLng && isPair(raw) {
		c.Lng = orZero(index(raw, 1))
	} else {
		c.Lng = orZero(first)
	}

	return c
}

func field(raw any, name string) any {
	var v any
	switch m := raw.(type) {
	case map[string]any:
		v = m[name]
	case map[string]float64:
		v = m[name]
	case map[string]string:
		v = m[name]
	default:
		return nil
	}

	if fn, ok := v.(func() float64); ok {
		return fn()
	}
	return v
}

func index(raw any, i int) any {
	switch s := raw.(type) {
	case []any:
		if i < len(s) {
			return s[i]
		}
	case []float64:
		if i < len(s) {
			return s[i]
		}
	case [2]float64:
		return s[i]
	case []string:
		if i < len(s) {
			return s[i]
		}
	}
	return nil
}

func isPair(raw any) bool {
	switch s := raw.(type) {
	case []any:
		return len(s) >= 2 //nolint:gomnd
	case []float64:
		return len(s) >= 2 //nolint:gomnd
	case [2]float64:
		return true
	case []string:
		return len(s) >= 2 //nolint:gomnd
	}
	return false
}

func orZero(v any) float64 {
	if !truthy(v) {
		return 0
	}
	return toNumber(v)
}

// truthy mirrors the truthiness rules of the page payloads: zero,
// NaN, empty strings, false and nil count as "not set".
func truthy(v any) bool {
	switch n := v.(type) {
	case nil:
		return false
	case bool:
		return n
	case string:
		return n != ""
	case float64:
		return n != 0 && !math.IsNaN(n)
	case float32:
		return n != 0 && !math.IsNaN(float64(n))
	case int:
		return n != 0
	case int64:
		return n != 0
	}
	return true
}

func toNumber(v any) float64 {
	switch n := v.(type) {
	case nil:
		return 0
	case bool:
		if n {
			return 1
		}
		return 0
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	case fmt.Stringer:
		return toNumber(n.String())
	}
	return math.NaN()
}
