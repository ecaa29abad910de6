package storeconfig

// Option is one admin selectable value
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// AnchorOptions lists the popup anchors, "dynamic" lets the provider decide
var AnchorOptions = []Option{
	{Value: "dynamic", Label: "dynamic"},
	{Value: "center", Label: "center"},
	{Value: "top", Label: "top"},
	{Value: "bottom", Label: "bottom"},
	{Value: "left", Label: "left"},
	{Value: "right", Label: "right"},
	{Value: "top-left", Label: "top-left"},
	{Value: "top-right", Label: "top-right"},
	{Value: "bottom-left", Label: "bottom-left"},
	{Value: "bottom-right", Label: "bottom-right"},
}

// MapTypeOptions lists the selectable map providers
var MapTypeOptions = []Option{
	{Value: "google", Label: "Google Map"},
	{Value: "mapbox", Label: "MapBox"},
	{Value: "osm", Label: "OpenStreetMap"},
}

// IsValidOption reports whether value is part of opts
func IsValidOption(opts []Option, value string) bool {
	for _, o := range opts {
		if o.Value == value {
			return true
		}
	}
	return false
}
