package provider

import (
	"fmt"
	"math"
	"net/url"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/html"

	"github.com/Luzifer/storemap/internal/dom"
	"github.com/Luzifer/storemap/internal/geo"
	"github.com/Luzifer/storemap/internal/mapconfig"
)

const (
	mapboxAPIURL        = "https://api.mapbox.com"
	mapboxDefaultStyle  = "mapbox://styles/mapbox/streets-v10"
	mapboxMarkerColor   = "3fb1ce"
	mapboxScaleMaxWidth = 80
)

// mapboxPopupOffsets are applied per anchor so popups clear the marker pin
var mapboxPopupOffsets = map[string][2]float64{
	"top":          {0, 5},
	"top-left":     {0, 5},
	"top-right":    {0, 5},
	"bottom":       {0, -41},
	"bottom-left":  {0, -41},
	"bottom-right": {0, -41},
	"left":         {27.0/2 + 5, -41.0 / 2},
	"right":        {-27.0/2 - 5, -41.0 / 2},
}

// MapboxSDK is the handle of the Mapbox static images API. The access
// token is set through Authorize.
type MapboxSDK struct {
	BaseURL string

	mu          sync.RWMutex
	accessToken string
}

// SetAccessToken sets the token sent with every image request
func (s *MapboxSDK) SetAccessToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = token
}

// AccessToken returns the current token
func (s *MapboxSDK) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// LngLat is the native coordinate of the mapbox provider
type LngLat struct {
	Lng, Lat float64
}

func (l LngLat) String() string { return formatFloat(l.Lng) + "," + formatFloat(l.Lat) }

// LngLatBounds is the native bounding box of the mapbox provider
type LngLatBounds struct {
	SW, NE LngLat
	empty  bool
}

// MapboxMarker is the native marker of the mapbox provider
type MapboxMarker struct {
	Position LngLat
	Options  MarkerOptions
	Popup    *MapboxPopup
}

// MapboxPopup is the native popup of the mapbox provider
type MapboxPopup struct {
	Position     LngLat
	Content      string
	Options      PopupOptions
	CloseButton  bool
	CloseOnClick bool
}

// MapboxControl is a UI control attached to a mapbox map
type MapboxControl struct {
	Kind     string
	Position string
	MaxWidth int
	Unit     string
}

// MapboxMap is the native map of the mapbox provider
type MapboxMap struct {
	Container *html.Node
	Style     string
	Zoom      *int
	Center    *LngLat
	Markers   []*MapboxMarker
	Popups    []*MapboxPopup
	Controls  []MapboxControl

	sdk           *MapboxSDK
	scrollZoom    bool
	width, height int
}

type mapboxAdapter struct {
	sdk *MapboxSDK
}

// NewMapbox creates the mapbox adapter. A nil sdk uses the public API.
func NewMapbox(sdk *MapboxSDK) Adapter {
	if sdk == nil {
		sdk = &MapboxSDK{}
	}
	if sdk.BaseURL == "" {
		sdk.BaseURL = mapboxAPIURL
	}
	return &mapboxAdapter{sdk: sdk}
}

func (m *mapboxAdapter) ID() string { return "mapbox" }

func (m *mapboxAdapter) Defaults() mapconfig.Values {
	return mapconfig.Values{
		"scrollZoom": false,
		"style":      mapboxDefaultStyle,
	}
}

func (m *mapboxAdapter) KeyMap() map[string]string {
	return map[string]string{"style_url": "style"}
}

func (m *mapboxAdapter) Authorize(apiKey string) {
	m.sdk.SetAccessToken(apiKey)
}

func (m *mapboxAdapter) BuildMap(container *html.Node, cfg mapconfig.Config) Map {
	opts := mapconfig.Merge(m.Defaults(), cfg.Values)

	style := mapconfig.String(opts["style"])
	if style == "" {
		style = mapboxDefaultStyle
	}

	return &MapboxMap{
		Container:  container,
		Style:      style,
		sdk:        m.sdk,
		scrollZoom: mapconfig.Bool(opts["scrollZoom"]),
		width:      cfg.Width,
		height:     cfg.Height,
	}
}

func (m *mapboxAdapter) Coordinate(raw any) LatLng {
	if ll, ok := raw.(LngLat); ok {
		return ll
	}
	c := geo.Normalize(raw)
	return LngLat{Lng: c.Lng, Lat: c.Lat}
}

func (m *mapboxAdapter) Coordinates(raw []any) []LatLng {
	out := make([]LatLng, 0, len(raw))
	for _, r := range raw {
		out = append(out, m.Coordinate(r))
	}
	return out
}

func (m *mapboxAdapter) Bounds() BoundsOps  { return mapboxBounds{m} }
func (m *mapboxAdapter) Markers() MarkerOps { return mapboxMarkers{m} }
func (m *mapboxAdapter) Popups() PopupOps   { return mapboxPopups{m} }

func (m *mapboxAdapter) SetZoom(zoom float64, mp Map) {
	mm, ok := mp.(*MapboxMap)
	if !ok {
		foreign(m.ID(), "setZoom", mp)
		return
	}
	if math.IsNaN(zoom) || math.IsInf(zoom, 0) {
		logrus.WithField("provider", m.ID()).Warnf("ignoring invalid zoom %v", zoom)
		return
	}
	z := int(zoom)
	mm.Zoom = &z
}

func (m *mapboxAdapter) SetCenter(center LatLng, mp Map) {
	mm, ok := mp.(*MapboxMap)
	if !ok {
		foreign(m.ID(), "setCenter", mp)
		return
	}
	c := m.Coordinate(center).(LngLat)
	mm.Center = &c
}

func (m *mapboxAdapter) OnAfterInit(mp Map, cfg mapconfig.Config) {
	mm, ok := mp.(*MapboxMap)
	if !ok {
		foreign(m.ID(), "onAfterInit", mp)
		return
	}

	if cfg.Controls.Scale {
		mm.Controls = append(mm.Controls, MapboxControl{
			Kind:     "scale",
			Position: "top-right",
			MaxWidth: mapboxScaleMaxWidth,
			Unit:     "imperial",
		})
	}

	if cfg.Controls.Zoom {
		mm.Controls = append(mm.Controls, MapboxControl{Kind: "navigation", Position: "top-left"})
	}
}

type mapboxBounds struct{ m *mapboxAdapter }

func (mapboxBounds) Empty() Bounds { return &LngLatBounds{empty: true} }

func (b mapboxBounds) Center(bounds Bounds) LatLng {
	bb, ok := bounds.(*LngLatBounds)
	if !ok {
		foreign(b.m.ID(), "bounds.center", bounds)
		return LngLat{}
	}
	if bb.empty {
		return LngLat{}
	}
	return LngLat{
		Lng: (bb.SW.Lng + bb.NE.Lng) / 2, //nolint:gomnd
		Lat: (bb.SW.Lat + bb.NE.Lat) / 2, //nolint:gomnd
	}
}

func (b mapboxBounds) Extend(bounds Bounds, coords ...LatLng) Bounds {
	bb, ok := bounds.(*LngLatBounds)
	if !ok {
		foreign(b.m.ID(), "bounds.extend", bounds)
		return bounds
	}

	for _, raw := range coords {
		c := b.m.Coordinate(raw).(LngLat)
		if bb.empty {
			bb.SW, bb.NE, bb.empty = c, c, false
			continue
		}
		bb.SW.Lng = math.Min(bb.SW.Lng, c.Lng)
		bb.SW.Lat = math.Min(bb.SW.Lat, c.Lat)
		bb.NE.Lng = math.Max(bb.NE.Lng, c.Lng)
		bb.NE.Lat = math.Max(bb.NE.Lat, c.Lat)
	}
	return bb
}

type mapboxMarkers struct{ m *mapboxAdapter }

func (mk mapboxMarkers) Build(position LatLng, opts MarkerOptions) Marker {
	return &MapboxMarker{Position: mk.m.Coordinate(position).(LngLat), Options: opts}
}

func (mk mapboxMarkers) Add(marker Marker, to Map) {
	mm, ok := marker.(*MapboxMarker)
	if !ok {
		foreign(mk.m.ID(), "markers.add", marker)
		return
	}
	target, ok := to.(*MapboxMap)
	if !ok {
		foreign(mk.m.ID(), "markers.add", to)
		return
	}
	target.Markers = append(target.Markers, mm)
}

func (mk mapboxMarkers) AttachPopup(marker Marker, popup Popup) {
	mm, ok := marker.(*MapboxMarker)
	if !ok {
		foreign(mk.m.ID(), "markers.attachPopup", marker)
		return
	}
	p, ok := popup.(*MapboxPopup)
	if !ok {
		foreign(mk.m.ID(), "markers.attachPopup", popup)
		return
	}
	mm.Popup = p
}

type mapboxPopups struct{ m *mapboxAdapter }

func (p mapboxPopups) Build(position LatLng, content string, opts PopupOptions) Popup {
	return &MapboxPopup{
		Position:     p.m.Coordinate(position).(LngLat),
		Content:      content,
		Options:      opts,
		CloseButton:  false,
		CloseOnClick: false,
	}
}

func (p mapboxPopups) Add(popup Popup, to Map) {
	pp, ok := popup.(*MapboxPopup)
	if !ok {
		foreign(p.m.ID(), "popups.add", popup)
		return
	}
	target, ok := to.(*MapboxMap)
	if !ok {
		foreign(p.m.ID(), "popups.add", to)
		return
	}
	target.Popups = append(target.Popups, pp)
}

func (p *MapboxPopup) markup() popupMarkup {
	extra := []string{"data-close-button", fmt.Sprintf("%v", p.CloseButton)}
	if off, ok := mapboxPopupOffsets[p.Options.Anchor]; ok {
		extra = append(extra, "data-offset", fmt.Sprintf("%g,%g", off[0], off[1]))
	}

	return popupMarkup{
		lat:     p.Position.Lat,
		lng:     p.Position.Lng,
		content: p.Content,
		opts:    p.Options,
		extra:   extra,
	}
}

// URL returns the static image request describing the current map state
func (m *MapboxMap) URL() string {
	overlays := []string{}
	for _, mk := range m.Markers {
		if mk.Options.Icon != "" {
			overlays = append(overlays, fmt.Sprintf("url-%s(%s)", url.QueryEscape(mk.Options.Icon), mk.Position))
			continue
		}

		col, ok := hexColor(mk.Options.Color)
		if !ok {
			col = mapboxMarkerColor
		}
		overlays = append(overlays, fmt.Sprintf("pin-s+%s(%s)", col, mk.Position))
	}

	var viewport string
	switch {
	case m.Zoom == nil && len(overlays) > 0:
		viewport = "auto"
	case m.Center == nil:
		viewport = fmt.Sprintf("0,0,%d", zoomOrZero(m.Zoom))
	default:
		viewport = fmt.Sprintf("%s,%d", m.Center, zoomOrZero(m.Zoom))
	}

	path := []string{
		strings.TrimRight(m.sdk.BaseURL, "/"),
		"styles/v1",
		strings.TrimPrefix(m.Style, "mapbox://styles/"),
		"static",
	}
	if len(overlays) > 0 {
		path = append(path, strings.Join(overlays, ","))
	}
	path = append(path, viewport, fmt.Sprintf("%dx%d", m.width, m.height))

	params := url.Values{}
	if token := m.sdk.AccessToken(); token != "" {
		params.Set("access_token", token)
	}

	u := strings.Join(path, "/")
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

func (m *MapboxMap) Render() error {
	if m.Container == nil {
		return errors.New("map has no container")
	}

	dom.Clear(m.Container)
	dom.SetAttr(m.Container, "data-scroll-zoom", fmt.Sprintf("%v", m.scrollZoom))
	m.Container.AppendChild(imageNode(m.URL(), m.width, m.height))

	for i, mk := range m.Markers {
		if mk.Popup == nil {
			continue
		}
		n, err := mk.Popup.markup().node(i)
		if err != nil {
			return errors.Wrap(err, "rendering marker popup")
		}
		m.Container.AppendChild(n)
	}

	for _, p := range m.Popups {
		n, err := p.markup().node(-1)
		if err != nil {
			return errors.Wrap(err, "rendering popup")
		}
		m.Container.AppendChild(n)
	}

	for _, c := range m.Controls {
		cm := controlMarkup{kind: c.Kind, position: c.Position}
		if c.MaxWidth > 0 {
			cm.extra = append(cm.extra, "data-max-width", fmt.Sprintf("%d", c.MaxWidth), "data-unit", c.Unit)
		}
		m.Container.AppendChild(cm.node())
	}

	return nil
}

func zoomOrZero(z *int) int {
	if z == nil {
		return 0
	}
	return *z
}
