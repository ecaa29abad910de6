// Package storefront renders the contact page of a store view including
// its map
package storefront

import (
	"bytes"
	"context"
	"embed"
	"html/template"
	"io"

	"github.com/pkg/errors"

	"github.com/Luzifer/storemap/internal/address"
	"github.com/Luzifer/storemap/internal/geo"
	"github.com/Luzifer/storemap/internal/mapconfig"
	"github.com/Luzifer/storemap/internal/media"
	"github.com/Luzifer/storemap/internal/provider"
	"github.com/Luzifer/storemap/internal/storeconfig"
	"github.com/Luzifer/storemap/internal/widget"
)

// ErrUnknownView signals a store view code missing from the configuration
var ErrUnknownView = errors.New("unknown store view")

//go:embed templates/*.html
var templateFS embed.FS

var tpls = template.Must(template.New("storefront").ParseFS(templateFS, "templates/*.html"))

type (
	// Page renders store view contact pages
	Page struct {
		Stores   *storeconfig.Store
		Media    media.Resolver
		Registry *provider.Registry
		Options  []widget.Option
	}

	// PageData is the template context of the contact page
	PageData struct {
		Title          string
		Enabled        bool
		Address        template.HTML
		ContainerClass string
		Payload        string
		Config         mapconfig.Values
	}

	popupData struct {
		Content       template.HTML
		Address       template.HTML
		DirectionsURL string
	}
)

// Data collects everything needed to render the contact page of the
// store view code
func (p Page) Data(ctx context.Context, code string) (*PageData, error) {
	if !p.Stores.HasView(code) {
		return nil, errors.Wrapf(ErrUnknownView, "store view %q", code)
	}

	view := p.Stores.View(code)
	addr := view.StoreAddress()

	data := &PageData{
		Title:   addr.Name,
		Address: template.HTML(addr.HTML()), //#nosec:G203 // Lines are escaped by address.HTML
		Enabled: view.IsEnabled(),
	}
	if data.Title == "" {
		data.Title = "Contact"
	}

	if !data.Enabled {
		return data, nil
	}

	marker := view.MarkerData()
	payload, err := widget.EncodePayload([]widget.MarkerDescriptor{{
		Position: view.MarkerPosition(),
		Options: provider.MarkerOptions{
			Icon:  p.Media.IconURL(ctx, marker.Icon),
			Color: marker.Color,
			Title: addr.Name,
		},
	}})
	if err != nil {
		return nil, errors.Wrap(err, "encoding marker")
	}
	data.Payload = payload

	config := mapconfig.Values{}
	for k, v := range view.MapTypeConfig() {
		config[k] = v
	}
	config["map_type"] = view.MapType()
	config["api_key"] = view.APIKey()
	if z := view.Zoom(); z > 0 {
		config["zoom"] = z
	}
	config["controls"] = view.MapControlsConfig()

	if view.IsPopupEnabled() {
		popup, err := p.popupConfig(view, addr)
		if err != nil {
			return nil, err
		}
		config["popup"] = popup
	}

	data.Config = config
	data.ContainerClass = mapconfig.String(config["container_class"])
	if data.ContainerClass == "" {
		data.ContainerClass = mapconfig.String(mapconfig.Defaults["container_class"])
	}

	return data, nil
}

func (p Page) popupConfig(view *storeconfig.Resolver, addr address.Address) (map[string]any, error) {
	popup := view.PopupConfig()
	position := view.MarkerPosition()
	popup["position"] = position

	pd := popupData{
		Content: template.HTML(mapconfig.String(popup["content"])), //#nosec:G203 // Admin provided markup
	}
	if mapconfig.Bool(popup["show_address"]) && !addr.IsEmpty() {
		pd.Address = template.HTML(addr.HTML()) //#nosec:G203 // Lines are escaped by address.HTML
	}
	if c := geo.Normalize(position); mapconfig.Bool(popup["show_directions_link"]) && c.Valid() {
		pd.DirectionsURL = address.DirectionsURL(addr, c.Lat, c.Lng)
	}

	buf := new(bytes.Buffer)
	if err := tpls.ExecuteTemplate(buf, "popup", pd); err != nil {
		return nil, errors.Wrap(err, "rendering popup content")
	}
	popup["rendered_content"] = buf.String()

	return popup, nil
}

// Render writes the contact page of the store view code to w. The
// returned slice carries the errors of map containers which could not
// be initialized.
func (p Page) Render(ctx context.Context, w io.Writer, code string) ([]error, error) {
	data, err := p.Data(ctx, code)
	if err != nil {
		return nil, err
	}

	buf := new(bytes.Buffer)
	if err = tpls.ExecuteTemplate(buf, "contact", data); err != nil {
		return nil, errors.Wrap(err, "rendering page")
	}

	if !data.Enabled {
		_, err = io.Copy(w, buf)
		return nil, errors.Wrap(err, "writing page")
	}

	return widget.Render(ctx, p.Registry, buf, w, p.Options...)
}
