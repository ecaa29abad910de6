package main

import (
	"bytes"
	"fmt"
	"image/color"
	"io"
	"maps"
	"slices"

	staticMap "github.com/Luzifer/go-staticmaps"
	"github.com/fogleman/gg"
	"github.com/golang/geo/s2"
	"github.com/pkg/errors"
)

var markerColors = map[string]color.Color{
	"black":  color.RGBA{R: 145, G: 145, B: 145, A: 0xff},
	"brown":  color.RGBA{R: 178, G: 154, B: 123, A: 0xff},
	"green":  color.RGBA{R: 168, G: 196, B: 68, A: 0xff},
	"purple": color.RGBA{R: 177, G: 150, B: 191, A: 0xff},
	"yellow": color.RGBA{R: 237, G: 201, B: 107, A: 0xff},
	"blue":   color.RGBA{R: 163, G: 196, B: 253, A: 0xff},
	"gray":   color.RGBA{R: 204, G: 204, B: 204, A: 0xff},
	"orange": color.RGBA{R: 229, G: 165, B: 68, A: 0xff},
	"red":    color.RGBA{R: 246, G: 118, B: 112, A: 0xff},
	"white":  color.RGBA{R: 245, G: 244, B: 241, A: 0xff},
}

func markerColorNames() []string {
	return slices.Sorted(maps.Keys(markerColors))
}

type markerSize float64

var markerSizes = map[string]markerSize{
	"tiny":  10,
	"mid":   15,
	"small": 20,
}

type marker struct {
	pos   s2.LatLng
	color color.Color
	size  markerSize
}

func (m marker) String() string {
	r, g, b, a := m.color.RGBA()
	return fmt.Sprintf("%s|%.0f|%d,%d,%d,%d", m.pos.String(), m.size, r, g, b, a)
}

// generateMapConfig describes one /map.png rendering. Center and Zoom
// are optional: a missing value is derived from the markers.
type generateMapConfig struct {
	Center             *s2.LatLng
	Zoom               *int
	Markers            []marker
	Width, Height      int
	DisableAttribution bool
	Overlays           []*staticMap.TileProvider
}

func (g generateMapConfig) validate() error {
	if g.Center == nil && len(g.Markers) == 0 {
		return errors.New("map needs a center or at least one marker")
	}
	if g.Zoom != nil && (*g.Zoom < 0 || *g.Zoom > 20) { //nolint:gomnd
		return errors.Errorf("zoom %d out of range 0-20", *g.Zoom)
	}
	return nil
}

func generateMap(opts generateMapConfig) (io.Reader, error) {
	ctx := staticMap.NewContext()
	ctx.SetUserAgent(fmt.Sprintf("Mozilla/5.0+(compatible; storemap/%s; https://github.com/Luzifer/storemap)", version))

	ctx.SetSize(opts.Width, opts.Height)
	if opts.Center != nil {
		ctx.SetCenter(*opts.Center)
	}
	if opts.Zoom != nil {
		ctx.SetZoom(*opts.Zoom)
	}

	if opts.DisableAttribution {
		ctx.ForceNoAttribution()
	}

	for _, m := range opts.Markers {
		ctx.AddMarker(staticMap.NewMarker(m.pos, m.color, float64(m.size)))
	}

	for _, ov := range opts.Overlays {
		ctx.AddOverlay(ov)
	}

	img, err := ctx.Render()
	if err != nil {
		return nil, errors.Wrap(err, "rendering map")
	}

	pngCtx := gg.NewContextForImage(img)
	pngBuf := new(bytes.Buffer)
	return pngBuf, errors.Wrap(pngCtx.EncodePNG(pngBuf), "encoding PNG")
}
