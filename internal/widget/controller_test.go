package widget

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/Luzifer/storemap/internal/dom"
	"github.com/Luzifer/storemap/internal/geo"
	"github.com/Luzifer/storemap/internal/mapconfig"
)

func container(t *testing.T, payloadJSON string) *html.Node {
	t.Helper()
	return dom.Element(atom.Div,
		"class", "page-map",
		MarkerAttribute, base64.StdEncoding.EncodeToString([]byte(payloadJSON)),
	)
}

func controllerConfig(t *testing.T, page mapconfig.Values) mapconfig.Config {
	t.Helper()
	cfg, err := mapconfig.Build(nil, page, nil)
	if err != nil {
		t.Fatalf("building config: %s", err)
	}
	return cfg
}

func indexOf(calls []string, call string) int {
	for i, c := range calls {
		if c == call {
			return i
		}
	}
	return -1
}

func countPrefix(calls []string, prefix string) int {
	n := 0
	for _, c := range calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func TestInitMap_NoMarkersUsesWorldView(t *testing.T) {
	f := &fakeAdapter{}
	c := NewController(f, controllerConfig(t, mapconfig.Values{"zoom": 9}), nil)

	if err := c.InitMap(0, container(t, `[]`)); err != nil {
		t.Fatalf("init: %s", err)
	}

	mc, ok := c.Context(0)
	if !ok {
		t.Fatalf("expected map context")
	}
	m := mc.Map.(*fakeMap)
	if m.zoom == nil || *m.zoom != 1 {
		t.Fatalf("expected zoom 1, got %v", m.zoom)
	}
	if m.center == nil || *m.center != (geo.Coordinate{}) {
		t.Fatalf("expected center 0,0, got %v", m.center)
	}
	if mc.State != StateReady || !m.rendered {
		t.Fatalf("expected rendered map in ready state, got %s", mc.State)
	}
}

func TestInitMap_ExplicitZoomCentersOnBounds(t *testing.T) {
	f := &fakeAdapter{}
	c := NewController(f, controllerConfig(t, mapconfig.Values{"zoom": 5}), nil)

	err := c.InitMap(0, container(t, `[
		{"position": {"lat": 10, "lng": 20}},
		{"position": {"lat": 20, "lng": 40}}
	]`))
	if err != nil {
		t.Fatalf("init: %s", err)
	}

	m := c.contexts[0].Map.(*fakeMap)
	if m.zoom == nil || *m.zoom != 5 {
		t.Fatalf("expected zoom 5, got %v", m.zoom)
	}
	if *m.center != (geo.Coordinate{Lat: 15, Lng: 30}) {
		t.Fatalf("expected bounds centroid, got %v", *m.center)
	}
}

func TestInitMap_NoZoomOnlyCenters(t *testing.T) {
	f := &fakeAdapter{}
	c := NewController(f, controllerConfig(t, nil), nil)

	if err := c.InitMap(0, container(t, `[{"position": {"lat": "1.5", "lng": "2.5"}}]`)); err != nil {
		t.Fatalf("init: %s", err)
	}

	if n := countPrefix(f.calls, "setZoom"); n != 0 {
		t.Fatalf("expected setZoom not to be called, got %d calls", n)
	}
	m := c.contexts[0].Map.(*fakeMap)
	if m.center == nil || *m.center != (geo.Coordinate{Lat: 1.5, Lng: 2.5}) {
		t.Fatalf("expected center on the single marker, got %v", m.center)
	}
}

func TestInitMap_SkipsMarkersWithoutPosition(t *testing.T) {
	f := &fakeAdapter{}
	rec := &fakeRecorder{}
	c := NewController(f, controllerConfig(t, nil), rec)

	err := c.InitMap(0, container(t, `[
		{"position": {"lat": 1, "lng": 1}, "options": {"color": "red"}},
		{"position": null},
		{"position": {"lat": 3, "lng": null}},
		{"position": {"lat": "north", "lng": 3}},
		{"position": {"lat": 5, "lng": 5}}
	]`))
	if err != nil {
		t.Fatalf("init: %s", err)
	}

	mc := c.contexts[0]
	if len(mc.Markers) != 2 {
		t.Fatalf("expected 2 markers, got %d", len(mc.Markers))
	}
	first, second := mc.Markers[0].(*fakeMarker), mc.Markers[1].(*fakeMarker)
	if first.pos != (geo.Coordinate{Lat: 1, Lng: 1}) || second.pos != (geo.Coordinate{Lat: 5, Lng: 5}) {
		t.Fatalf("expected markers in payload order, got %v and %v", first.pos, second.pos)
	}
	if n := len(mc.Bounds.(*fakeBounds).points); n != 2 {
		t.Fatalf("expected skipped markers not to extend bounds, got %d points", n)
	}
	if rec.markers != 2 || rec.skipped["no_position"] != 2 || rec.skipped["invalid_position"] != 1 {
		t.Fatalf("unexpected recorder state %#v", rec)
	}
}

func TestInitMap_AttachesPopupBeforeAdd(t *testing.T) {
	f := &fakeAdapter{}
	c := NewController(f, controllerConfig(t, nil), nil)

	err := c.InitMap(0, container(t, `[
		{"position": {"lat": 1, "lng": 1}, "popup": {"enabled": "1", "content": "raw", "rendered_content": "<b>Shop</b>"}},
		{"position": {"lat": 2, "lng": 2}, "popup": {"enabled": false, "content": "hidden"}}
	]`))
	if err != nil {
		t.Fatalf("init: %s", err)
	}

	attach, add := indexOf(f.calls, "marker.attachPopup 1"), indexOf(f.calls, "marker.add 1")
	if attach < 0 || add < 0 || attach > add {
		t.Fatalf("expected attachPopup before marker.add, calls: %v", f.calls)
	}
	if indexOf(f.calls, "marker.attachPopup 2") >= 0 {
		t.Fatalf("expected disabled popup not to be attached")
	}
	if countPrefix(f.calls, "popup.build") != 1 {
		t.Fatalf("expected one popup to be built, calls: %v", f.calls)
	}
}

func TestInitMap_CallSequence(t *testing.T) {
	f := &fakeAdapter{}
	c := NewController(f, controllerConfig(t, mapconfig.Values{
		"zoom": 7,
		"popup": map[string]any{
			"enabled":  true,
			"position": map[string]any{"lat": 1.0, "lng": 1.0},
			"content":  "Welcome",
			"anchor":   "dynamic",
		},
	}), nil)

	err := c.InitMap(0, container(t, `[{"position": {"lat": 1, "lng": 1}}, {"position": {"lat": 3, "lng": 3}}]`))
	if err != nil {
		t.Fatalf("init: %s", err)
	}

	want := []string{
		"buildMap",
		"marker.build 1", "extend",
		"marker.build 2", "extend",
		"marker.add 1", "marker.add 2",
		"popup.build", "popup.add",
		"setZoom 7", "setCenter 2.000000,2.000000",
		"onAfterInit",
	}
	if strings.Join(f.calls, ";") != strings.Join(want, ";") {
		t.Fatalf("unexpected call sequence\n got: %v\nwant: %v", f.calls, want)
	}

	mc := c.contexts[0]
	gp, ok := mc.GlobalPopup.(*fakePopup)
	if !ok {
		t.Fatalf("expected global popup on context")
	}
	if gp.opts.Anchor != "" {
		t.Fatalf("expected dynamic anchor to be passed as no anchor, got %q", gp.opts.Anchor)
	}
	if gp.opts.ClassName != "page-map__popup" || gp.content != "Welcome" {
		t.Fatalf("unexpected global popup %#v", gp)
	}
}

func TestInitMap_ExplicitAnchor(t *testing.T) {
	f := &fakeAdapter{}
	c := NewController(f, controllerConfig(t, mapconfig.Values{
		"popup": map[string]any{"enabled": true, "content": "x", "anchor": "top-left"},
	}), nil)

	if err := c.InitMap(0, container(t, `[]`)); err != nil {
		t.Fatalf("init: %s", err)
	}
	if a := c.contexts[0].GlobalPopup.(*fakePopup).opts.Anchor; a != "top-left" {
		t.Fatalf("expected anchor top-left, got %q", a)
	}
}

func TestInitMap_MarkerPopupAnchor(t *testing.T) {
	f := &fakeAdapter{}
	c := NewController(f, controllerConfig(t, mapconfig.Values{}), nil)

	err := c.InitMap(0, container(t, `[
		{"position": {"lat": 1, "lng": 1}, "popup": {"enabled": "1", "content": "a", "anchor": "bottom"}},
		{"position": {"lat": 2, "lng": 2}, "popup": {"enabled": true, "content": "b", "anchor": "dynamic"}}
	]`))
	if err != nil {
		t.Fatalf("init: %s", err)
	}

	markers := c.contexts[0].Markers
	if a := markers[0].(*fakeMarker).popup.opts.Anchor; a != "bottom" {
		t.Fatalf("expected anchor bottom, got %q", a)
	}
	if a := markers[1].(*fakeMarker).popup.opts.Anchor; a != "" {
		t.Fatalf("expected dynamic anchor to be passed as no anchor, got %q", a)
	}
}

func TestInitMap_BadPayload(t *testing.T) {
	for name, attr := range map[string]string{
		"bad base64": "%%%not-base64%%%",
		"bad json":   base64.StdEncoding.EncodeToString([]byte(`{"position":`)),
		"not a list": base64.StdEncoding.EncodeToString([]byte(`null`)),
		"missing":    "",
	} {
		f := &fakeAdapter{}
		c := NewController(f, controllerConfig(t, nil), nil)

		n := dom.Element(atom.Div, "class", "page-map")
		if attr != "" {
			dom.SetAttr(n, MarkerAttribute, attr)
		}

		err := c.InitMap(3, n)
		if errors.Cause(err) != ErrBadPayload {
			t.Fatalf("%s: expected ErrBadPayload, got %v", name, err)
		}
		if _, ok := c.Context(3); ok {
			t.Fatalf("%s: expected no map context", name)
		}
		if len(f.calls) != 0 {
			t.Fatalf("%s: expected no adapter interaction, got %v", name, f.calls)
		}
	}
}

func TestInitMap_RenderFailure(t *testing.T) {
	f := &fakeAdapter{renderErr: errors.New("boom")}
	c := NewController(f, controllerConfig(t, nil), nil)

	if err := c.InitMap(0, container(t, `[]`)); err == nil {
		t.Fatalf("expected render error")
	}
	if _, ok := c.Context(0); ok {
		t.Fatalf("expected no context for failed container")
	}
}

func TestInitAll_ContinuesAfterFailure(t *testing.T) {
	doc, err := html.Parse(strings.NewReader(`<html><body>
		<div class="page-map" data-marker="!!corrupt!!"></div>
		<div class="other"></div>
		<div class="wide page-map" data-marker="` +
		base64.StdEncoding.EncodeToString([]byte(`[{"position":{"lat":1,"lng":2}}]`)) + `"></div>
	</body></html>`))
	if err != nil {
		t.Fatalf("parse: %s", err)
	}

	f := &fakeAdapter{}
	rec := &fakeRecorder{}
	c := NewController(f, controllerConfig(t, nil), rec)

	errs := c.InitAll(doc)
	if len(errs) != 1 || errors.Cause(errs[0]) != ErrBadPayload {
		t.Fatalf("expected one payload error, got %v", errs)
	}
	if _, ok := c.Context(0); ok {
		t.Fatalf("expected no context for the corrupt container")
	}

	mc, ok := c.Context(1)
	if !ok {
		t.Fatalf("expected context for the second container")
	}
	if len(mc.Markers) != 1 {
		t.Fatalf("expected 1 marker, got %d", len(mc.Markers))
	}
	if rec.failed != 1 || rec.built != 1 {
		t.Fatalf("unexpected recorder state %#v", rec)
	}
}

func TestInitAll_CustomContainerClass(t *testing.T) {
	doc, err := html.Parse(strings.NewReader(`<div class="page-map" data-marker="W10="></div><div class="store-map" data-marker="W10="></div>`))
	if err != nil {
		t.Fatalf("parse: %s", err)
	}

	c := NewController(&fakeAdapter{}, controllerConfig(t, mapconfig.Values{"container_class": "store-map"}), nil)
	if errs := c.InitAll(doc); len(errs) != 0 {
		t.Fatalf("unexpected errors %v", errs)
	}
	if len(c.Contexts()) != 1 {
		t.Fatalf("expected only the store-map container, got %d contexts", len(c.Contexts()))
	}
}

func TestPayloadRoundTrip(t *testing.T) {
	attr, err := EncodePayload([]MarkerDescriptor{{
		Position: map[string]any{"lat": "51.5", "lng": "-0.1"},
		Popup:    &MarkerPopup{Enabled: true, Content: "x"},
	}})
	if err != nil {
		t.Fatalf("encode: %s", err)
	}

	// Missing padding and line breaks are tolerated
	attr = strings.TrimRight(attr, "=")
	attr = attr[:10] + "\n" + attr[10:]

	got, err := DecodePayload(attr)
	if err != nil {
		t.Fatalf("decode: %s", err)
	}
	if len(got) != 1 || !bool(got[0].Popup.Enabled) {
		t.Fatalf("unexpected descriptors %#v", got)
	}
	if c := geo.Normalize(got[0].Position); c != (geo.Coordinate{Lat: 51.5, Lng: -0.1}) {
		t.Fatalf("unexpected position %v", c)
	}
}

func TestInitMap_SkipsUnreadableDescriptors(t *testing.T) {
	f := &fakeAdapter{}
	rec := &fakeRecorder{}
	c := NewController(f, controllerConfig(t, nil), rec)

	err := c.InitMap(0, container(t, `[
		{"position": {"lat": 1, "lng": 1}},
		{"position": {"lat": 2, "lng": 2}, "options": {"color": 255}},
		{"position": {"lat": 3, "lng": 3}, "popup": {"enabled": true, "content": 42}},
		5,
		"store",
		{"position": {"lat": 4, "lng": 4}}
	]`))
	if err != nil {
		t.Fatalf("init: %s", err)
	}

	mc, ok := c.Context(0)
	if !ok {
		t.Fatalf("expected map context despite unreadable markers")
	}
	if len(mc.Markers) != 2 {
		t.Fatalf("expected 2 markers, got %d", len(mc.Markers))
	}
	first, second := mc.Markers[0].(*fakeMarker), mc.Markers[1].(*fakeMarker)
	if first.pos != (geo.Coordinate{Lat: 1, Lng: 1}) || second.pos != (geo.Coordinate{Lat: 4, Lng: 4}) {
		t.Fatalf("unexpected markers %v and %v", first.pos, second.pos)
	}
	if rec.skipped["bad_descriptor"] != 4 || rec.built != 1 {
		t.Fatalf("unexpected recorder state %#v", rec)
	}
}

func TestInitMap_SkipsFalsyPositions(t *testing.T) {
	f := &fakeAdapter{}
	rec := &fakeRecorder{}
	c := NewController(f, controllerConfig(t, nil), rec)

	err := c.InitMap(0, container(t, `[
		{"position": false},
		{"position": 0},
		{"position": ""},
		{"position": {"lat": 0, "lng": 0}}
	]`))
	if err != nil {
		t.Fatalf("init: %s", err)
	}

	mc := c.contexts[0]
	if len(mc.Markers) != 1 {
		t.Fatalf("expected only the explicit origin marker, got %d", len(mc.Markers))
	}
	if rec.skipped["no_position"] != 3 {
		t.Fatalf("unexpected recorder state %#v", rec)
	}
}

func TestInitMap_CoordinatePairs(t *testing.T) {
	for name, tc := range map[string]struct {
		page mapconfig.Values
		want geo.Coordinate
	}{
		"legacy":     {nil, geo.Coordinate{Lat: 5, Lng: 5}},
		"lat-lng":    {mapconfig.Values{"pair_as_lat_lng": true}, geo.Coordinate{Lat: 5, Lng: 6}},
		"string off": {mapconfig.Values{"pair_as_lat_lng": "0"}, geo.Coordinate{Lat: 5, Lng: 5}},
	} {
		f := &fakeAdapter{}
		c := NewController(f, controllerConfig(t, tc.page), nil)

		if err := c.InitMap(0, container(t, `[{"position": [5, 6]}]`)); err != nil {
			t.Fatalf("%s: init: %s", name, err)
		}

		if got := c.contexts[0].Markers[0].(*fakeMarker).pos; got != tc.want {
			t.Fatalf("%s: expected marker at %v, got %v", name, tc.want, got)
		}
	}
}
