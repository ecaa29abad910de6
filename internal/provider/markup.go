package provider

import (
	"math"
	"strconv"
	"strings"

	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
	colorful "github.com/lucasb-eyer/go-colorful"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/Luzifer/storemap/internal/dom"
	"github.com/Luzifer/storemap/internal/geo"
)

const (
	imageClass   = "page-map__image"
	controlClass = "page-map__control"
)

// hexColor normalizes a marker color ("#f00", "ff0000", "#FF0000") to
// six lowercase hex digits without prefix
func hexColor(c string) (string, bool) {
	c = strings.TrimSpace(c)
	if c == "" {
		return "", false
	}
	if !strings.HasPrefix(c, "#") {
		c = "#" + c
	}

	col, err := colorful.Hex(c)
	if err != nil {
		return "", false
	}
	return strings.TrimPrefix(col.Hex(), "#"), true
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 6, 64) //nolint:gomnd
}

// popupMarkup is the rendering state shared by the popup types of the
// adapters supporting popups
type popupMarkup struct {
	lat, lng float64
	content  string
	opts     PopupOptions
	extra    []string
}

func (p popupMarkup) node(marker int) (*html.Node, error) {
	class := []string{}
	if p.opts.ClassName != "" {
		class = append(class, p.opts.ClassName)
	}
	if !strings.Contains(" "+p.opts.ClassName+" ", " "+PopupClass+" ") {
		class = append(class, PopupClass)
	}
	if p.opts.Anchor != "" {
		class = append(class, PopupClass+"--"+p.opts.Anchor)
	}

	attrs := []string{
		"class", strings.Join(class, " "),
		"data-lat", formatFloat(p.lat),
		"data-lng", formatFloat(p.lng),
	}
	if p.opts.Anchor != "" {
		attrs = append(attrs, "data-anchor", p.opts.Anchor)
	}
	attrs = append(attrs, p.extra...)

	if marker >= 0 {
		attrs = append(attrs, "data-marker-index", strconv.Itoa(marker), "hidden", "")
	}

	n := dom.Element(atom.Div, attrs...)
	return n, dom.AppendHTML(n, p.content)
}

type controlMarkup struct {
	kind     string
	position string
	extra    []string
}

func (c controlMarkup) node() *html.Node {
	attrs := []string{
		"class", controlClass + " " + controlClass + "--" + c.kind,
		"data-position", c.position,
	}
	return dom.Element(atom.Div, append(attrs, c.extra...)...)
}

func imageNode(src string, width, height int) *html.Node {
	return dom.Element(atom.Img,
		"class", imageClass,
		"src", src,
		"width", strconv.Itoa(width),
		"height", strconv.Itoa(height),
		"alt", "",
	)
}

// rectBounds is an s2.Rect extended in place. The longitude interval only
// ever grows between its smallest and largest input so it never wraps
// across the antimeridian.
type rectBounds struct {
	rect s2.Rect
}

func newRectBounds() *rectBounds { return &rectBounds{rect: s2.EmptyRect()} }

func (b *rectBounds) add(ll s2.LatLng) {
	if b.rect.IsEmpty() {
		b.rect = s2.RectFromLatLng(ll)
		return
	}

	lng := ll.Lng.Radians()
	b.rect.Lat = b.rect.Lat.AddPoint(ll.Lat.Radians())
	b.rect.Lng = s1.Interval{
		Lo: math.Min(b.rect.Lng.Lo, lng),
		Hi: math.Max(b.rect.Lng.Hi, lng),
	}
}

func (b *rectBounds) center() s2.LatLng {
	if b.rect.IsEmpty() {
		return s2.LatLngFromDegrees(0, 0)
	}
	return b.rect.Center()
}

// ToCoordinate converts a provider-native coordinate into its canonical form
func ToCoordinate(ll LatLng) geo.Coordinate {
	switch c := ll.(type) {
	case GoogleLatLng:
		return geo.Coordinate{Lat: c.Lat, Lng: c.Lng}
	case LngLat:
		return geo.Coordinate{Lat: c.Lat, Lng: c.Lng}
	case s2.LatLng:
		return geo.Coordinate{Lat: c.Lat.Degrees(), Lng: c.Lng.Degrees()}
	}
	return geo.Normalize(ll)
}
