// Package mapconfig holds the merged map configuration handed to the
// widget: page defaults, provider defaults and the page supplied values
// combined with an explicit precedence.
package mapconfig

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/Luzifer/storemap/internal/geo"
)

// Values is a flat set of configuration keys as found in the page config
type Values map[string]any

// Defaults are applied below every provider and page value
var Defaults = Values{
	"map_type":        "google",
	"container_class": "page-map",
	"zoom":            nil,
	"scaleControl":    false,
	"zoomControl":     false,
	"width":           600, //nolint:gomnd
	"height":          400, //nolint:gomnd
}

// Controls toggles the optional UI controls of a map
type Controls struct {
	Scale bool
	Zoom  bool
}

// PopupConfig configures the page wide popup and has the same shape
// as a marker popup plus a position
type PopupConfig struct {
	Enabled            bool   `json:"enabled"`
	Position           any    `json:"position"`
	Content            string `json:"content"`
	RenderedContent    string `json:"rendered_content,omitempty"`
	Anchor             string `json:"anchor"`
	AlwaysShow         bool   `json:"always_show"`
	ShowAddress        bool   `json:"show_address"`
	ShowDirectionsLink bool   `json:"show_directions_link"`
}

// Body returns the rendered content if present and the raw content otherwise
func (p PopupConfig) Body() string {
	if p.RenderedContent != "" {
		return p.RenderedContent
	}
	return p.Content
}

// Config is the merged configuration of one page
type Config struct {
	MapType        string
	APIKey         string
	Zoom           *int
	ContainerClass string
	Controls       Controls
	Popup          *PopupConfig
	Width, Height  int

	// Coordinates selects how positions given as pairs are read
	Coordinates geo.Options

	// Values carries every merged key including the provider specific
	// ones the typed fields above do not cover
	Values Values
}

// Merge combines layers into a new set of values. Later layers win per
// key, nested values are not merged. None of the layers is modified.
func Merge(layers ...Values) Values {
	out := Values{}
	for _, l := range layers {
		for k, v := range l {
			out[k] = v
		}
	}
	return out
}

// Remap renames the keys of v found in keys, all other keys are kept
func Remap(v Values, keys map[string]string) Values {
	if len(keys) == 0 {
		return Merge(v)
	}

	out := Values{}
	for k, val := range v {
		if mapped, ok := keys[k]; ok && mapped != "" {
			k = mapped
		}
		out[k] = val
	}
	return out
}

// Build merges Defaults, the provider defaults and the page values (after
// applying keyMap to them) and decodes the result
func Build(providerDefaults, page Values, keyMap map[string]string) (Config, error) {
	return Decode(Merge(Defaults, providerDefaults, Remap(page, keyMap)))
}

// Decode reads the typed fields from v
func Decode(v Values) (Config, error) {
	cfg := Config{
		MapType:        String(v["map_type"]),
		APIKey:         String(v["api_key"]),
		ContainerClass: String(v["container_class"]),
		Controls: Controls{
			Scale: Bool(v["scaleControl"]),
			Zoom:  Bool(v["zoomControl"]),
		},
		Width:       Int(v["width"]),
		Height:      Int(v["height"]),
		Coordinates: geo.Options{PairAsLatLng: Bool(v["pair_as_lat_lng"])},
		Values:      v,
	}

	if cfg.MapType == "" {
		cfg.MapType = String(Defaults["map_type"])
	}
	if cfg.ContainerClass == "" {
		cfg.ContainerClass = String(Defaults["container_class"])
	}

	if z := Int(v["zoom"]); z != 0 {
		cfg.Zoom = &z
	}

	if nested, ok := v["controls"].(map[string]any); ok {
		if s, ok := nested["scaleControl"]; ok {
			cfg.Controls.Scale = Bool(s)
		}
		if z, ok := nested["zoomControl"]; ok {
			cfg.Controls.Zoom = Bool(z)
		}
	}

	if raw, ok := v["popup"]; ok && raw != nil {
		popup, err := decodePopup(raw)
		if err != nil {
			return Config{}, errors.Wrap(err, "decoding popup config")
		}
		cfg.Popup = popup
	}

	return cfg, nil
}

func decodePopup(raw any) (*PopupConfig, error) {
	if p, ok := raw.(*PopupConfig); ok {
		return p, nil
	}
	if p, ok := raw.(PopupConfig); ok {
		return &p, nil
	}

	m, ok := raw.(map[string]any)
	if !ok {
		return nil, errors.Errorf("unexpected popup config type %T", raw)
	}

	p := &PopupConfig{
		Enabled:            Bool(m["enabled"]),
		Position:           m["position"],
		Content:            String(m["content"]),
		RenderedContent:    String(m["rendered_content"]),
		Anchor:             String(m["anchor"]),
		AlwaysShow:         Bool(m["always_show"]),
		ShowAddress:        Bool(m["show_address"]),
		ShowDirectionsLink: Bool(m["show_directions_link"]),
	}
	return p, nil
}

// String reads v as a string, numbers are formatted
func String(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case json.Number:
		return s.String()
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case bool:
		return strconv.FormatBool(s)
	}
	return ""
}

// Bool reads v as a flag, accepting the "1" / "0" strings stored by the
// configuration backend
func Bool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		return err == nil && parsed
	case float64:
		return b != 0
	case int:
		return b != 0
	case json.Number:
		f, err := b.Float64()
		return err == nil && f != 0
	}
	return false
}

// Int reads v as an integer, truncating fractions. Unreadable values
// yield 0.
func Int(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0
		}
		return int(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0
		}
		return Int(f)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0
		}
		return Int(f)
	}
	return 0
}
