package widget

import (
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/net/html"

	"github.com/Luzifer/storemap/internal/dom"
	"github.com/Luzifer/storemap/internal/mapconfig"
	"github.com/Luzifer/storemap/internal/provider"
)

// ConfigAttribute marks the script element carrying the JSON page
// configuration
const ConfigAttribute = "data-page-map-config"

// PageConfig reads the page configuration embedded into doc. A page
// without configuration yields an empty set of values.
func PageConfig(doc *html.Node) (mapconfig.Values, error) {
	nodes := dom.FindByAttr(doc, ConfigAttribute)
	if len(nodes) == 0 {
		return mapconfig.Values{}, nil
	}

	raw := strings.TrimSpace(dom.Text(nodes[0]))
	if raw == "" {
		return mapconfig.Values{}, nil
	}

	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()

	var page mapconfig.Values
	if err := dec.Decode(&page); err != nil {
		return nil, errors.Wrap(err, "decoding page config")
	}
	if page == nil {
		page = mapconfig.Values{}
	}
	return page, nil
}

// Render reads the page from r, builds a widget from its embedded
// configuration, initializes all of its maps and writes the page to out
func Render(ctx context.Context, reg *provider.Registry, r io.Reader, out io.Writer, opts ...Option) ([]error, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, errors.Wrap(err, "parsing page")
	}

	page, err := PageConfig(doc)
	if err != nil {
		return nil, err
	}

	w, err := New(page, reg, opts...)
	if err != nil {
		return nil, err
	}

	failed, err := w.Init(ctx, doc)
	if err != nil {
		return nil, err
	}

	return failed, errors.Wrap(html.Render(out, doc), "rendering page")
}
