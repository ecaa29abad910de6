package widget

import (
	"fmt"

	"golang.org/x/net/html"

	"github.com/Luzifer/storemap/internal/geo"
	"github.com/Luzifer/storemap/internal/mapconfig"
	"github.com/Luzifer/storemap/internal/provider"
)

// --- Recording adapter ---

type fakeMarker struct {
	id    int
	pos   geo.Coordinate
	popup *fakePopup
}

type fakePopup struct {
	pos     geo.Coordinate
	content string
	opts    provider.PopupOptions
}

type fakeBounds struct {
	points []geo.Coordinate
}

type fakeMap struct {
	container *html.Node
	zoom      *float64
	center    *geo.Coordinate
	markers   []*fakeMarker
	popups    []*fakePopup
	rendered  bool
	renderErr error
}

func (m *fakeMap) Render() error {
	m.rendered = true
	return m.renderErr
}

type fakeAdapter struct {
	calls      []string
	nextMarker int
	authorized string
	renderErr  error
}

func (f *fakeAdapter) record(format string, args ...any) {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

func (f *fakeAdapter) ID() string                 { return "fake" }
func (f *fakeAdapter) Defaults() mapconfig.Values { return mapconfig.Values{} }
func (f *fakeAdapter) KeyMap() map[string]string  { return nil }
func (f *fakeAdapter) Authorize(key string)       { f.authorized = key; f.record("authorize") }

func (f *fakeAdapter) BuildMap(container *html.Node, _ mapconfig.Config) provider.Map {
	f.record("buildMap")
	return &fakeMap{container: container, renderErr: f.renderErr}
}

func (f *fakeAdapter) Coordinate(raw any) provider.LatLng { return geo.Normalize(raw) }

func (f *fakeAdapter) Coordinates(raw []any) []provider.LatLng {
	out := []provider.LatLng{}
	for _, r := range raw {
		out = append(out, f.Coordinate(r))
	}
	return out
}

func (f *fakeAdapter) Bounds() provider.BoundsOps  { return fakeBoundsOps{f} }
func (f *fakeAdapter) Markers() provider.MarkerOps { return fakeMarkerOps{f} }
func (f *fakeAdapter) Popups() provider.PopupOps   { return fakePopupOps{f} }

func (f *fakeAdapter) SetZoom(zoom float64, m provider.Map) {
	f.record("setZoom %v", zoom)
	m.(*fakeMap).zoom = &zoom
}

func (f *fakeAdapter) SetCenter(center provider.LatLng, m provider.Map) {
	c := center.(geo.Coordinate)
	f.record("setCenter %v", c)
	m.(*fakeMap).center = &c
}

func (f *fakeAdapter) OnAfterInit(provider.Map, mapconfig.Config) { f.record("onAfterInit") }

type fakeBoundsOps struct{ f *fakeAdapter }

func (fakeBoundsOps) Empty() provider.Bounds { return &fakeBounds{} }

func (fakeBoundsOps) Center(b provider.Bounds) provider.LatLng {
	fb := b.(*fakeBounds)
	if len(fb.points) == 0 {
		return geo.Coordinate{}
	}
	minLat, maxLat := fb.points[0].Lat, fb.points[0].Lat
	minLng, maxLng := fb.points[0].Lng, fb.points[0].Lng
	for _, p := range fb.points {
		minLat, maxLat = min(minLat, p.Lat), max(maxLat, p.Lat)
		minLng, maxLng = min(minLng, p.Lng), max(maxLng, p.Lng)
	}
	return geo.Coordinate{Lat: (minLat + maxLat) / 2, Lng: (minLng + maxLng) / 2}
}

func (o fakeBoundsOps) Extend(b provider.Bounds, coords ...provider.LatLng) provider.Bounds {
	fb := b.(*fakeBounds)
	for _, c := range coords {
		fb.points = append(fb.points, c.(geo.Coordinate))
		o.f.record("extend")
	}
	return fb
}

type fakeMarkerOps struct{ f *fakeAdapter }

func (o fakeMarkerOps) Build(position provider.LatLng, _ provider.MarkerOptions) provider.Marker {
	o.f.nextMarker++
	o.f.record("marker.build %d", o.f.nextMarker)
	return &fakeMarker{id: o.f.nextMarker, pos: position.(geo.Coordinate)}
}

func (o fakeMarkerOps) Add(m provider.Marker, to provider.Map) {
	fm := m.(*fakeMarker)
	o.f.record("marker.add %d", fm.id)
	to.(*fakeMap).markers = append(to.(*fakeMap).markers, fm)
}

func (o fakeMarkerOps) AttachPopup(m provider.Marker, p provider.Popup) {
	o.f.record("marker.attachPopup %d", m.(*fakeMarker).id)
	m.(*fakeMarker).popup = p.(*fakePopup)
}

type fakePopupOps struct{ f *fakeAdapter }

func (o fakePopupOps) Build(position provider.LatLng, content string, opts provider.PopupOptions) provider.Popup {
	o.f.record("popup.build")
	return &fakePopup{pos: position.(geo.Coordinate), content: content, opts: opts}
}

func (o fakePopupOps) Add(p provider.Popup, to provider.Map) {
	o.f.record("popup.add")
	to.(*fakeMap).popups = append(to.(*fakeMap).popups, p.(*fakePopup))
}

// --- Recording metrics ---

type fakeRecorder struct {
	built, failed, markers int
	skipped                map[string]int
}

func (r *fakeRecorder) MapBuilt(string)        { r.built++ }
func (r *fakeRecorder) ContainerFailed(string) { r.failed++ }
func (r *fakeRecorder) MarkerBuilt(string)     { r.markers++ }

func (r *fakeRecorder) MarkerSkipped(_, reason string) {
	if r.skipped == nil {
		r.skipped = map[string]int{}
	}
	r.skipped[reason]++
}
