package widget

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/html"

	"github.com/Luzifer/storemap/internal/dom"
	"github.com/Luzifer/storemap/internal/geo"
	"github.com/Luzifer/storemap/internal/mapconfig"
	"github.com/Luzifer/storemap/internal/provider"
)

// State is the build progress of one map
type State int

const (
	StateUnbuilt State = iota
	StateMarkersPlaced
	StateViewported
	StateReady
)

func (s State) String() string {
	switch s {
	case StateUnbuilt:
		return "unbuilt"
	case StateMarkersPlaced:
		return "markers-placed"
	case StateViewported:
		return "viewported"
	case StateReady:
		return "ready"
	}
	return "unknown"
}

const dynamicAnchor = "dynamic"

// Recorder receives build statistics, *metrics.Metrics implements it
type Recorder interface {
	MapBuilt(provider string)
	ContainerFailed(provider string)
	MarkerBuilt(provider string)
	MarkerSkipped(provider, reason string)
}

type nopRecorder struct{}

func (nopRecorder) MapBuilt(string)              {}
func (nopRecorder) ContainerFailed(string)       {}
func (nopRecorder) MarkerBuilt(string)           {}
func (nopRecorder) MarkerSkipped(string, string) {}

// MapContext is the runtime state of one rendered map
type MapContext struct {
	Key         int
	Bounds      provider.Bounds
	Markers     []provider.Marker
	Map         provider.Map
	GlobalPopup provider.Popup
	State       State
}

// Controller builds the maps of one page using a single adapter
type Controller struct {
	adapter  provider.Adapter
	cfg      mapconfig.Config
	recorder Recorder
	log      *logrus.Entry

	contexts map[int]*MapContext
}

// NewController creates a controller for the given adapter and merged
// configuration. A nil recorder discards statistics.
func NewController(adapter provider.Adapter, cfg mapconfig.Config, recorder Recorder) *Controller {
	if recorder == nil {
		recorder = nopRecorder{}
	}

	return &Controller{
		adapter:  adapter,
		cfg:      cfg,
		recorder: recorder,
		log:      logrus.WithField("provider", adapter.ID()),
		contexts: map[int]*MapContext{},
	}
}

// Context returns the map context stored for key
func (c *Controller) Context(key int) (*MapContext, bool) {
	mc, ok := c.contexts[key]
	return mc, ok
}

// Contexts returns all map contexts by container index
func (c *Controller) Contexts() map[int]*MapContext {
	out := make(map[int]*MapContext, len(c.contexts))
	for k, v := range c.contexts {
		out[k] = v
	}
	return out
}

// InitAll initializes every container carrying the configured class in
// document order. Failing containers are logged and returned, they do
// not stop the remaining ones.
func (c *Controller) InitAll(doc *html.Node) []error {
	var errs []error

	for key, container := range dom.FindByClass(doc, c.cfg.ContainerClass) {
		if err := c.InitMap(key, container); err != nil {
			c.log.WithField("container", key).WithError(err).Error("initializing map")
			c.recorder.ContainerFailed(c.adapter.ID())
			errs = append(errs, errors.Wrapf(err, "container %d", key))
		}
	}

	return errs
}

// InitMap decodes the marker payload of container, builds the map with
// its markers and popups, positions it and renders it into container
func (c *Controller) InitMap(key int, container *html.Node) error {
	attr, _ := dom.Attr(container, MarkerAttribute)
	descriptors, err := DecodePayload(attr)
	if err != nil {
		return err
	}

	var (
		bounds = c.adapter.Bounds()
		mc     = &MapContext{
			Key:    key,
			Bounds: bounds.Empty(),
			Map:    c.adapter.BuildMap(container, c.cfg),
			State:  StateUnbuilt,
		}
	)

	for i, d := range descriptors {
		if d.err != nil {
			c.log.WithFields(logrus.Fields{"container": key, "marker": i}).WithError(d.err).Warn("skipping unreadable marker")
			c.recorder.MarkerSkipped(c.adapter.ID(), "bad_descriptor")
			continue
		}

		if d.hasNullPosition() {
			c.recorder.MarkerSkipped(c.adapter.ID(), "no_position")
			continue
		}

		coord := geo.NormalizeWith(d.Position, c.cfg.Coordinates)
		if !coord.Valid() {
			c.log.WithFields(logrus.Fields{"container": key, "marker": i}).Warn("skipping marker with unreadable position")
			c.recorder.MarkerSkipped(c.adapter.ID(), "invalid_position")
			continue
		}

		position := c.adapter.Coordinate(coord)
		marker := c.adapter.Markers().Build(position, d.Options)
		mc.Markers = append(mc.Markers, marker)
		bounds.Extend(mc.Bounds, position)

		if d.Popup != nil && bool(d.Popup.Enabled) {
			popup := c.buildPopup(coord, d.Popup.Body(), popupOptions(d.Popup.Anchor))
			c.adapter.Markers().AttachPopup(marker, popup)
		}
	}

	for _, marker := range mc.Markers {
		c.adapter.Markers().Add(marker, mc.Map)
		c.recorder.MarkerBuilt(c.adapter.ID())
	}

	if p := c.cfg.Popup; p != nil && p.Enabled {
		popup := c.buildPopup(p.Position, p.Body(), popupOptions(p.Anchor))
		c.adapter.Popups().Add(popup, mc.Map)
		mc.GlobalPopup = popup
	}
	mc.State = StateMarkersPlaced

	c.setViewport(mc)
	mc.State = StateViewported

	if hook, ok := c.adapter.(provider.AfterInitHook); ok {
		hook.OnAfterInit(mc.Map, c.cfg)
	}

	if err = mc.Map.Render(); err != nil {
		return errors.Wrap(err, "rendering map")
	}
	mc.State = StateReady

	c.contexts[key] = mc
	c.recorder.MapBuilt(c.adapter.ID())
	return nil
}

// setViewport positions the map: world view without markers, the
// configured zoom around the markers or only centered on them so the
// provider picks the zoom
func (c *Controller) setViewport(mc *MapContext) {
	switch {
	case len(mc.Markers) == 0:
		c.adapter.SetZoom(1, mc.Map)
		c.adapter.SetCenter(c.adapter.Coordinate(geo.Coordinate{}), mc.Map)

	case c.cfg.Zoom != nil:
		c.adapter.SetZoom(float64(*c.cfg.Zoom), mc.Map)
		c.adapter.SetCenter(c.adapter.Bounds().Center(mc.Bounds), mc.Map)

	default:
		c.adapter.SetCenter(c.adapter.Bounds().Center(mc.Bounds), mc.Map)
	}
}

// popupOptions leaves the placement to the provider for the "dynamic"
// anchor
func popupOptions(anchor string) provider.PopupOptions {
	if anchor == dynamicAnchor {
		return provider.PopupOptions{}
	}
	return provider.PopupOptions{Anchor: anchor}
}

func (c *Controller) buildPopup(position any, content string, opts provider.PopupOptions) provider.Popup {
	opts.ClassName = strings.TrimSpace(opts.ClassName + " " + provider.PopupClass)
	return c.adapter.Popups().Build(c.adapter.Coordinate(geo.NormalizeWith(position, c.cfg.Coordinates)), content, opts)
}
