// Package provider contains the map provider adapters. Every adapter
// exposes the same capability set in terms of its own native map objects
// so the widget can build maps without knowing which engine is active.
package provider

import (
	"context"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/html"

	"github.com/Luzifer/storemap/internal/mapconfig"
)

// PopupClass is carried by every popup built through the widget
const PopupClass = "page-map__popup"

type (
	// LatLng is a provider-native coordinate
	LatLng any
	// Bounds is a provider-native bounding box owned by one map
	Bounds any
	// Marker is a provider-native marker
	Marker any
	// Popup is a provider-native popup
	Popup any
)

// Map is a provider-native map bound to its page container
type Map interface {
	// Render writes the current state of the map into its container
	Render() error
}

// MarkerOptions are the per-marker options of the page payload
type MarkerOptions struct {
	Icon  string `json:"icon"`
	Color string `json:"color"`
	Label string `json:"label"`
	Title string `json:"title"`
}

// PopupOptions configure a single popup. An empty Anchor lets the
// provider choose.
type PopupOptions struct {
	Anchor    string
	ClassName string
}

// BoundsOps manages the lifecycle of a provider-native bounding box
type BoundsOps interface {
	Empty() Bounds
	Center(b Bounds) LatLng
	// Extend adds all coords to b in place and returns b
	Extend(b Bounds, coords ...LatLng) Bounds
}

// MarkerOps builds markers and places them on maps
type MarkerOps interface {
	Build(position LatLng, opts MarkerOptions) Marker
	Add(m Marker, to Map)
	AttachPopup(m Marker, p Popup)
}

// PopupOps builds popups and places them on maps
type PopupOps interface {
	Build(position LatLng, content string, opts PopupOptions) Popup
	Add(p Popup, to Map)
}

// Adapter is the capability set every map provider implements
type Adapter interface {
	ID() string

	// Defaults returns the provider specific config defaults
	Defaults() mapconfig.Values
	// KeyMap returns page config keys to rename for this provider
	KeyMap() map[string]string

	Authorize(apiKey string)
	BuildMap(container *html.Node, cfg mapconfig.Config) Map

	Coordinate(raw any) LatLng
	Coordinates(raw []any) []LatLng

	Bounds() BoundsOps
	Markers() MarkerOps
	Popups() PopupOps

	SetZoom(zoom float64, m Map)
	SetCenter(center LatLng, m Map)
}

// AfterInitHook is implemented by adapters needing to act on a map once
// markers, popups and viewport are in place
type AfterInitHook interface {
	OnAfterInit(m Map, cfg mapconfig.Config)
}

// Waiter is implemented by adapters whose SDK must signal readiness
// before the first map may be built
type Waiter interface {
	Wait(ctx context.Context) error
}

func notImplemented(provider, capability string) {
	logrus.WithFields(logrus.Fields{
		"provider":   provider,
		"capability": capability,
	}).Warn("capability not implemented")
}

// foreign logs a handle passed to an adapter it does not belong to
func foreign(provider, capability string, v any) {
	logrus.WithFields(logrus.Fields{
		"provider":   provider,
		"capability": capability,
	}).Warnf("ignoring foreign handle of type %T", v)
}
