package provider

import (
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

// StaticMapSDK points the osm provider at a /map.png renderer
type StaticMapSDK struct {
	Endpoint           string
	DisableAttribution bool

	// Colors lists the marker color names the renderer accepts. Other
	// names are dropped so the renderer falls back to its default color.
	Colors []string
}

func (s *StaticMapSDK) colorName(c string) (string, bool) {
	c = strings.ToLower(strings.TrimSpace(c))
	for _, known := range s.Colors {
		if c == known {
			return c, true
		}
	}
	return "", false
}

// OSMMarker is the native marker of the osm provider
type OSMMarker struct {
	Position s2.LatLng
	Options  MarkerOptions
	Popup    *OSMPopup
}

// OSMPopup is the native popup of the osm provider
type OSMPopup struct {
	Position s2.LatLng
	Content  string
	Options  PopupOptions
}

// OSMMap is the native map of the osm provider
type OSMMap struct {
	Container *html.Node
	Zoom      *int
	Center    *s2.LatLng
	Markers   []*OSMMarker
	Popups    []*OSMPopup

	sdk           *StaticMapSDK
	width, height int
}

type osmAdapter struct {
	sdk *StaticMapSDK
}

// NewOSM creates the adapter rendering through the local /map.png
// endpoint
func NewOSM(sdk *StaticMapSDK) Adapter {
	if sdk == nil {
		sdk = &StaticMapSDK{}
	}
	if sdk.Endpoint == "" {
		sdk.Endpoint = "/map.png"
	}
	return &osmAdapter{sdk: sdk}
}

func (o *osmAdapter) ID() string { return "osm" }

func (o *osmAdapter) Defaults() mapconfig.Values { return mapconfig.Values{} }

func (o *osmAdapter) KeyMap() map[string]string { return nil }

// Authorize is a no-op, the tile servers used need no key
func (o *osmAdapter) Authorize(string) {}

func (o *osmAdapter) BuildMap(container *html.Node, cfg mapconfig.Config) Map {
	return &OSMMap{
		Container: container,
		sdk:       o.sdk,
		width:     cfg.Width,
		height:    cfg.Height,
	}
}

func (o *osmAdapter) Coordinate(raw any) LatLng {
	if ll, ok := raw.(s2.LatLng); ok {
		return ll
	}
	c := geo.Normalize(raw)
	return s2.LatLngFromDegrees(c.Lat, c.Lng)
}

func (o *osmAdapter) Coordinates(raw []any) []LatLng {
	out := make([]LatLng, 0, len(raw))
	for _, r := range raw {
		out = append(out, o.Coordinate(r))
	}
	return out
}

func (o *osmAdapter) Bounds() BoundsOps  { return osmBounds{o} }
func (o *osmAdapter) Markers() MarkerOps { return osmMarkers{o} }
func (o *osmAdapter) Popups() PopupOps   { return osmPopups{o} }

func (o *osmAdapter) SetZoom(zoom float64, m Map) {
	om, ok := m.(*OSMMap)
	if !ok {
		foreign(o.ID(), "setZoom", m)
		return
	}
	if math.IsNaN(zoom) || math.IsInf(zoom, 0) {
		logrus.WithField("provider", o.ID()).Warnf("ignoring invalid zoom %v", zoom)
		return
	}
	z := int(zoom)
	om.Zoom = &z
}

func (o *osmAdapter) SetCenter(center LatLng, m Map) {
	om, ok := m.(*OSMMap)
	if !ok {
		foreign(o.ID(), "setCenter", m)
		return
	}
	c := o.Coordinate(center).(s2.LatLng)
	om.Center = &c
}

type osmBounds struct{ o *osmAdapter }

func (osmBounds) Empty() Bounds { return newRectBounds() }

func (b osmBounds) Center(bounds Bounds) LatLng {
	rb, ok := bounds.(*rectBounds)
	if !ok {
		foreign(b.o.ID(), "bounds.center", bounds)
		return s2.LatLng{}
	}
	return rb.center()
}

func (b osmBounds) Extend(bounds Bounds, coords ...LatLng) Bounds {
	rb, ok := bounds.(*rectBounds)
	if !ok {
		foreign(b.o.ID(), "bounds.extend", bounds)
		return bounds
	}
	for _, c := range coords {
		rb.add(b.o.Coordinate(c).(s2.LatLng))
	}
	return rb
}

type osmMarkers struct{ o *osmAdapter }

func (m osmMarkers) Build(position LatLng, opts MarkerOptions) Marker {
	if opts.Icon != "" {
		logrus.WithField("provider", m.o.ID()).Debug("marker icons are drawn as pins")
	}
	return &OSMMarker{Position: m.o.Coordinate(position).(s2.LatLng), Options: opts}
}

func (m osmMarkers) Add(marker Marker, to Map) {
	om, ok := marker.(*OSMMarker)
	if !ok {
		foreign(m.o.ID(), "markers.add", marker)
		return
	}
	target, ok := to.(*OSMMap)
	if !ok {
		foreign(m.o.ID(), "markers.add", to)
		return
	}
	target.Markers = append(target.Markers, om)
}

func (m osmMarkers) AttachPopup(marker Marker, popup Popup) {
	om, ok := marker.(*OSMMarker)
	if !ok {
		foreign(m.o.ID(), "markers.attachPopup", marker)
		return
	}
	p, ok := popup.(*OSMPopup)
	if !ok {
		foreign(m.o.ID(), "markers.attachPopup", popup)
		return
	}
	om.Popup = p
}

type osmPopups struct{ o *osmAdapter }

func (p osmPopups) Build(position LatLng, content string, opts PopupOptions) Popup {
	return &OSMPopup{Position: p.o.Coordinate(position).(s2.LatLng), Content: content, Options: opts}
}

func (p osmPopups) Add(popup Popup, to Map) {
	pp, ok := popup.(*OSMPopup)
	if !ok {
		foreign(p.o.ID(), "popups.add", popup)
		return
	}
	target, ok := to.(*OSMMap)
	if !ok {
		foreign(p.o.ID(), "popups.add", to)
		return
	}
	target.Popups = append(target.Popups, pp)
}

func (p *OSMPopup) markup() popupMarkup {
	return popupMarkup{
		lat:     p.Position.Lat.Degrees(),
		lng:     p.Position.Lng.Degrees(),
		content: p.Content,
		opts:    p.Options,
	}
}

func latLngParam(ll s2.LatLng) string {
	return formatFloat(ll.Lat.Degrees()) + "," + formatFloat(ll.Lng.Degrees())
}

// URL returns the /map.png request describing the current map state
func (m *OSMMap) URL() string {
	params := url.Values{}

	if m.Center != nil {
		params.Set("center", latLngParam(*m.Center))
	}
	if m.Zoom != nil {
		params.Set("zoom", fmt.Sprintf("%d", *m.Zoom))
	}
	params.Set("size", fmt.Sprintf("%dx%d", m.width, m.height))

	for _, mk := range m.Markers {
		marker := latLngParam(mk.Position)
		if mk.Options.Color != "" {
			if col, ok := hexColor(mk.Options.Color); ok {
				marker = "color:0x" + col + "|" + marker
			} else if name, ok := m.sdk.colorName(mk.Options.Color); ok {
				marker = "color:" + name + "|" + marker
			} else {
				logrus.WithField("provider", "osm").Warnf("unknown marker color %q, using default", mk.Options.Color)
			}
		}
		params.Add("markers", marker)
	}

	if m.sdk.DisableAttribution {
		params.Set("no-attribution", "true")
	}

	return m.sdk.Endpoint + "?" + params.Encode()
}

func (m *OSMMap) Render() error {
	if m.Container == nil {
		return errors.New("map has no container")
	}

	dom.Clear(m.Container)
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

	return nil
}
