// Package widget turns the map containers of a storefront page into
// rendered maps using the configured map provider.
package widget

import (
	"context"
	"io"

	"github.com/pkg/errors"
	"golang.org/x/net/html"

	"github.com/Luzifer/storemap/internal/mapconfig"
	"github.com/Luzifer/storemap/internal/provider"
)

// Widget handles all maps of one page
type Widget struct {
	adapter    provider.Adapter
	cfg        mapconfig.Config
	controller *Controller
	recorder   Recorder
}

// Option customizes a Widget
type Option func(*Widget)

// WithRecorder sends build statistics to r
func WithRecorder(r Recorder) Option {
	return func(w *Widget) { w.recorder = r }
}

// New resolves the provider of the page configuration and merges the
// configuration layers. An unknown provider fails before any page or
// SDK interaction.
func New(page mapconfig.Values, reg *provider.Registry, opts ...Option) (*Widget, error) {
	mapType := mapconfig.String(page["map_type"])
	if mapType == "" {
		mapType = mapconfig.String(mapconfig.Defaults["map_type"])
	}

	adapter, err := reg.Resolve(mapType)
	if err != nil {
		return nil, errors.Wrap(err, "resolving map provider")
	}

	cfg, err := mapconfig.Build(adapter.Defaults(), page, adapter.KeyMap())
	if err != nil {
		return nil, errors.Wrap(err, "building map config")
	}
	cfg.MapType = adapter.ID()

	w := &Widget{adapter: adapter, cfg: cfg}
	for _, o := range opts {
		o(w)
	}
	w.controller = NewController(adapter, cfg, w.recorder)

	return w, nil
}

// Config returns the merged configuration
func (w *Widget) Config() mapconfig.Config { return w.cfg }

// Controller returns the controller holding the map contexts
func (w *Widget) Controller() *Controller { return w.controller }

// Init authorizes the provider, waits for its SDK to become ready and
// initializes every map container of doc. The returned slice carries the
// errors of failed containers, err is only set when no map could be
// initialized at all.
func (w *Widget) Init(ctx context.Context, doc *html.Node) (failed []error, err error) {
	w.adapter.Authorize(w.cfg.APIKey)

	if waiter, ok := w.adapter.(provider.Waiter); ok {
		if err = waiter.Wait(ctx); err != nil {
			return nil, errors.Wrap(err, "waiting for map provider")
		}
	}

	return w.controller.InitAll(doc), nil
}

// Process parses the page from r, initializes its maps and writes the
// resulting page to out
func (w *Widget) Process(ctx context.Context, r io.Reader, out io.Writer) ([]error, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, errors.Wrap(err, "parsing page")
	}

	failed, err := w.Init(ctx, doc)
	if err != nil {
		return nil, err
	}

	return failed, errors.Wrap(html.Render(out, doc), "rendering page")
}
