package provider

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strings"

	"github.com/golang/geo/s2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/html"

	"github.com/Luzifer/storemap/internal/dom"
	"github.com/Luzifer/storemap/internal/geo"
	"github.com/Luzifer/storemap/internal/mapconfig"
)

const googleStaticMapsURL = "https://maps.googleapis.com/maps/api/staticmap"

// GoogleSDK is the handle of the Google Maps static API
type GoogleSDK struct {
	BaseURL string
	// Loaded, when set, gates the first map build until it is closed
	Loaded <-chan struct{}
}

// GoogleLatLng is the native coordinate of the google provider
type GoogleLatLng struct {
	Lat, Lng float64
}

func (g GoogleLatLng) toS2() s2.LatLng { return s2.LatLngFromDegrees(g.Lat, g.Lng) }

func (g GoogleLatLng) String() string { return formatFloat(g.Lat) + "," + formatFloat(g.Lng) }

// GoogleMarker is the native marker of the google provider
type GoogleMarker struct {
	Position  GoogleLatLng
	Options   MarkerOptions
	Draggable bool

	onMap *GoogleMap
}

// GoogleMap is the native map of the google provider
type GoogleMap struct {
	Container *html.Node
	Options   mapconfig.Values
	Zoom      *int
	Center    *GoogleLatLng
	Markers   []*GoogleMarker

	sdk           *GoogleSDK
	key           string
	width, height int
}

type googleAdapter struct {
	sdk *GoogleSDK
}

// NewGoogle creates the google adapter. A nil sdk uses the public API.
func NewGoogle(sdk *GoogleSDK) Adapter {
	if sdk == nil {
		sdk = &GoogleSDK{}
	}
	if sdk.BaseURL == "" {
		sdk.BaseURL = googleStaticMapsURL
	}
	return &googleAdapter{sdk: sdk}
}

func (g *googleAdapter) ID() string { return "google" }

func (g *googleAdapter) Defaults() mapconfig.Values {
	return mapconfig.Values{"disableDefaultUI": true}
}

func (g *googleAdapter) KeyMap() map[string]string { return nil }

// Authorize is a no-op: the key travels with every map request
func (g *googleAdapter) Authorize(string) {}

func (g *googleAdapter) Wait(ctx context.Context) error {
	if g.sdk.Loaded == nil {
		return nil
	}

	select {
	case <-g.sdk.Loaded:
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "waiting for google SDK")
	}
}

func (g *googleAdapter) BuildMap(container *html.Node, cfg mapconfig.Config) Map {
	return &GoogleMap{
		Container: container,
		Options:   mapconfig.Merge(g.Defaults(), cfg.Values),
		sdk:       g.sdk,
		key:       cfg.APIKey,
		width:     cfg.Width,
		height:    cfg.Height,
	}
}

func (g *googleAdapter) Coordinate(raw any) LatLng {
	if ll, ok := raw.(GoogleLatLng); ok {
		return ll
	}
	c := geo.Normalize(raw)
	return GoogleLatLng{Lat: c.Lat, Lng: c.Lng}
}

func (g *googleAdapter) Coordinates(raw []any) []LatLng {
	out := make([]LatLng, 0, len(raw))
	for _, r := range raw {
		out = append(out, g.Coordinate(r))
	}
	return out
}

func (g *googleAdapter) Bounds() BoundsOps  { return googleBounds{g} }
func (g *googleAdapter) Markers() MarkerOps { return googleMarkers{g} }
func (g *googleAdapter) Popups() PopupOps   { return googlePopups{} }

func (g *googleAdapter) SetZoom(zoom float64, m Map) {
	gm, ok := m.(*GoogleMap)
	if !ok {
		foreign(g.ID(), "setZoom", m)
		return
	}
	if math.IsNaN(zoom) || math.IsInf(zoom, 0) {
		logrus.WithField("provider", g.ID()).Warnf("ignoring invalid zoom %v", zoom)
		return
	}
	z := int(zoom)
	gm.Zoom = &z
}

func (g *googleAdapter) SetCenter(center LatLng, m Map) {
	gm, ok := m.(*GoogleMap)
	if !ok {
		foreign(g.ID(), "setCenter", m)
		return
	}
	c := g.Coordinate(center).(GoogleLatLng)
	gm.Center = &c
}

type googleBounds struct{ g *googleAdapter }

func (googleBounds) Empty() Bounds { return newRectBounds() }

func (b googleBounds) Center(bounds Bounds) LatLng {
	rb, ok := bounds.(*rectBounds)
	if !ok {
		foreign(b.g.ID(), "bounds.center", bounds)
		return GoogleLatLng{}
	}
	c := rb.center()
	return GoogleLatLng{Lat: c.Lat.Degrees(), Lng: c.Lng.Degrees()}
}

func (b googleBounds) Extend(bounds Bounds, coords ...LatLng) Bounds {
	rb, ok := bounds.(*rectBounds)
	if !ok {
		foreign(b.g.ID(), "bounds.extend", bounds)
		return bounds
	}
	for _, c := range coords {
		rb.add(b.g.Coordinate(c).(GoogleLatLng).toS2())
	}
	return rb
}

type googleMarkers struct{ g *googleAdapter }

func (m googleMarkers) Build(position LatLng, opts MarkerOptions) Marker {
	return &GoogleMarker{
		Position:  m.g.Coordinate(position).(GoogleLatLng),
		Options:   opts,
		Draggable: false,
	}
}

func (m googleMarkers) Add(marker Marker, to Map) {
	gm, ok := marker.(*GoogleMarker)
	if !ok {
		foreign(m.g.ID(), "markers.add", marker)
		return
	}
	target, ok := to.(*GoogleMap)
	if !ok {
		foreign(m.g.ID(), "markers.add", to)
		return
	}

	if gm.onMap == target {
		return
	}
	gm.onMap = target
	target.Markers = append(target.Markers, gm)
}

func (m googleMarkers) AttachPopup(Marker, Popup) {
	notImplemented(m.g.ID(), "markers.attachPopup")
}

type googlePopups struct{}

func (googlePopups) Build(LatLng, string, PopupOptions) Popup {
	notImplemented("google", "popups.build")
	return nil
}

func (googlePopups) Add(Popup, Map) {
	notImplemented("google", "popups.add")
}

// URL returns the static map request describing the current map state
func (m *GoogleMap) URL() string {
	params := url.Values{}

	if m.Center != nil {
		params.Set("center", m.Center.String())
	}
	if m.Zoom != nil {
		params.Set("zoom", fmt.Sprintf("%d", *m.Zoom))
	}
	params.Set("size", fmt.Sprintf("%dx%d", m.width, m.height))

	for _, mk := range m.Markers {
		style := []string{}
		if c, ok := hexColor(mk.Options.Color); ok {
			style = append(style, "color:0x"+c)
		}
		if mk.Options.Label != "" {
			style = append(style, "label:"+strings.ToUpper(string([]rune(mk.Options.Label)[:1])))
		}
		if mk.Options.Icon != "" {
			style = append(style, "icon:"+mk.Options.Icon)
		}
		params.Add("markers", strings.Join(append(style, mk.Position.String()), "|"))
	}

	if m.key != "" {
		params.Set("key", m.key)
	}

	return m.sdk.BaseURL + "?" + params.Encode()
}

func (m *GoogleMap) Render() error {
	if m.Container == nil {
		return errors.New("map has no container")
	}

	dom.Clear(m.Container)
	m.Container.AppendChild(imageNode(m.URL(), m.width, m.height))
	return nil
}
