// Package address formats the store contact information shown next to
// the map
package address

import (
	"fmt"
	"html"
	"net/url"
	"strconv"
	"strings"
)

const directionsURLFormat = "https://www.google.com/maps/place/%s/@%s,%s,17z"

var lineBreaks = strings.NewReplacer("\r\n", ",", "\n", ",", "\r", ",")

// Address is the store contact information
type Address struct {
	Name     string
	Street   []string
	City     string
	Region   string
	Postcode string
	Country  string
	Phone    string
}

func (a Address) lines() []string {
	var out []string

	add := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}

	add(a.Name)
	for _, s := range a.Street {
		add(s)
	}
	add(strings.TrimSpace(a.Postcode + " " + a.City))
	add(a.Region)
	add(a.Country)
	add(a.Phone)

	return out
}

// IsEmpty reports whether no line would be printed
func (a Address) IsEmpty() bool { return len(a.lines()) == 0 }

// Plain renders one line per address part
func (a Address) Plain() string {
	return strings.Join(a.lines(), "\n")
}

// HTML renders the escaped address lines separated by <br>
func (a Address) HTML() string {
	lines := a.lines()
	for i := range lines {
		lines[i] = html.EscapeString(lines[i])
	}
	return strings.Join(lines, "<br>")
}

// Inline renders the address on one line separated by commas
func (a Address) Inline() string {
	return lineBreaks.Replace(a.Plain())
}

// DirectionsURL links to the Google Maps place page of the address
// centered on the given position
func DirectionsURL(a Address, lat, lng float64) string {
	return fmt.Sprintf(
		directionsURLFormat,
		url.QueryEscape(a.Inline()),
		strconv.FormatFloat(lat, 'f', -1, 64),
		strconv.FormatFloat(lng, 'f', -1, 64),
	)
}
