// Package storeconfig reads the store-view scoped map configuration
package storeconfig

import (
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/Luzifer/storemap/internal/address"
	"github.com/Luzifer/storemap/internal/mapconfig"
)

const (
	pathEnabled      = "contact_map/map/enabled"
	pathMapType      = "contact_map/map/map_type"
	pathLatitude     = "contact_map/map_details/latitude"
	pathLongitude    = "contact_map/map_details/longitude"
	pathZoom         = "contact_map/map_details/zoom"
	pathMarker       = "contact_map/marker"
	pathControls     = "contact_map/map_controls"
	pathPopup        = "contact_map/popup"
	pathTypeConfig   = "contact_map/map_type_%s"
	pathStoreInfo    = "general/store_information"
	keyAPIKey        = "api_key"
	defaultScopeName = "default"
)

// Store holds the configuration of all store views
type Store struct {
	Default map[string]any            `yaml:"default"`
	Views   map[string]map[string]any `yaml:"stores"`
}

// Load reads the store configuration from a YAML file
func Load(filename string) (*Store, error) {
	raw, err := os.ReadFile(filename) //#nosec:G304 // Intended to open a variable file
	if err != nil {
		return nil, errors.Wrap(err, "reading store config")
	}
	return Parse(raw)
}

// Parse reads the store configuration from YAML
func Parse(raw []byte) (*Store, error) {
	s := &Store{}
	if err := yaml.Unmarshal(raw, s); err != nil {
		return nil, errors.Wrap(err, "parsing store config")
	}
	return s, nil
}

// View returns the resolver for the store view code. Unknown codes only
// see the default scope.
func (s *Store) View(code string) *Resolver {
	r := &Resolver{code: code, scopes: []map[string]any{s.Default}}
	if v, ok := s.Views[code]; ok && code != defaultScopeName {
		r.scopes = append(r.scopes, v)
	}
	return r
}

// HasView reports whether the store view code is configured
func (s *Store) HasView(code string) bool {
	if code == defaultScopeName {
		return true
	}
	_, ok := s.Views[code]
	return ok
}

// Resolver answers configuration queries for one store view
type Resolver struct {
	code   string
	scopes []map[string]any
}

// Code returns the store view code
func (r *Resolver) Code() string { return r.code }

// Value returns the value stored at path. The most specific scope wins,
// subtrees are merged across scopes.
func (r *Resolver) Value(path string) any {
	var result any

	for _, scope := range r.scopes {
		v, ok := lookup(scope, path)
		if !ok {
			continue
		}

		prev, prevIsMap := result.(map[string]any)
		next, nextIsMap := v.(map[string]any)
		if prevIsMap && nextIsMap {
			result = deepMerge(prev, next)
			continue
		}
		result = v
	}

	return result
}

// IsEnabled reports whether the map is switched on and has an API key
func (r *Resolver) IsEnabled() bool {
	return mapconfig.Bool(r.Value(pathEnabled)) && r.APIKey() != ""
}

// MapType returns the selected map provider id
func (r *Resolver) MapType() string {
	return mapconfig.String(r.Value(pathMapType))
}

// MapTypeConfig returns all settings of the selected map provider
func (r *Resolver) MapTypeConfig() map[string]any {
	return mapValue(r.Value(fmt.Sprintf(pathTypeConfig, r.MapType())))
}

// APIKey returns the API key of the selected map provider
func (r *Resolver) APIKey() string {
	return mapconfig.String(r.Value(fmt.Sprintf(pathTypeConfig, r.MapType()) + "/" + keyAPIKey))
}

// Zoom returns the configured zoom, 0 means fit to markers
func (r *Resolver) Zoom() int {
	return mapconfig.Int(r.Value(pathZoom))
}

// MarkerPosition returns the store position as stored in the config
func (r *Resolver) MarkerPosition() map[string]any {
	return map[string]any{
		"lat": r.Value(pathLatitude),
		"lng": r.Value(pathLongitude),
	}
}

// MarkerData carries the marker styling
type MarkerData struct {
	Icon  string
	Color string
}

// MarkerData returns the configured marker styling
func (r *Resolver) MarkerData() MarkerData {
	m := mapValue(r.Value(pathMarker))
	return MarkerData{
		Icon:  mapconfig.String(m["icon"]),
		Color: mapconfig.String(m["color"]),
	}
}

// MapControlsConfig returns the control toggles
func (r *Resolver) MapControlsConfig() map[string]any {
	return mapValue(r.Value(pathControls))
}

// IsPopupEnabled reports whether the page wide popup is switched on
func (r *Resolver) IsPopupEnabled() bool {
	return mapconfig.Bool(r.Value(pathPopup + "/enabled"))
}

// PopupConfig returns the popup settings. Unknown anchors fall back to
// letting the provider choose.
func (r *Resolver) PopupConfig() map[string]any {
	p := mapValue(r.Value(pathPopup))
	if a := mapconfig.String(p["anchor"]); a != "" && !IsValidOption(AnchorOptions, a) {
		p["anchor"] = "dynamic"
	}
	return p
}

// StoreAddress returns the store contact information
func (r *Resolver) StoreAddress() address.Address {
	m := mapValue(r.Value(pathStoreInfo))

	a := address.Address{
		Name:     mapconfig.String(m["name"]),
		City:     mapconfig.String(m["city"]),
		Region:   mapconfig.String(m["region"]),
		Postcode: mapconfig.String(m["postcode"]),
		Country:  mapconfig.String(m["country"]),
		Phone:    mapconfig.String(m["phone"]),
	}
	for _, key := range []string{"street_line1", "street_line2"} {
		if s := mapconfig.String(m[key]); s != "" {
			a.Street = append(a.Street, s)
		}
	}
	return a
}

func lookup(scope map[string]any, path string) (any, bool) {
	var cur any = scope
	for _, seg := range strings.Split(path, "/") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[seg]; !ok {
			return nil, false
		}
	}
	return cur, true
}

func deepMerge(base, over map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(over))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range over {
		bm, bOK := out[k].(map[string]any)
		om, oOK := v.(map[string]any)
		if bOK && oOK {
			out[k] = deepMerge(bm, om)
			continue
		}
		out[k] = v
	}
	return out
}

// mapValue returns a copy of v when it is a map and an empty map otherwise
func mapValue(v any) map[string]any {
	m, ok := v.(map[string]any)
	if !ok {
		return map[string]any{}
	}
	return deepMerge(m, nil)
}
