package widget

import (
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"

	"github.com/Luzifer/storemap/internal/mapconfig"
	"github.com/Luzifer/storemap/internal/provider"
)

// MarkerAttribute holds the base64 encoded marker payload of a container
const MarkerAttribute = "data-marker"

// ErrBadPayload is the cause of every marker payload which cannot be decoded
var ErrBadPayload = errors.New("malformed marker payload")

// MarkerDescriptor is one marker of the page payload
type MarkerDescriptor struct {
	Position any                    `json:"position"`
	Options  provider.MarkerOptions `json:"options"`
	Popup    *MarkerPopup           `json:"popup,omitempty"`

	// err is set by DecodePayload for an entry which could not be read
	err error
}

// MarkerPopup is the popup shown when a marker is interacted with
type MarkerPopup struct {
	Enabled         flag   `json:"enabled"`
	Content         string `json:"content"`
	RenderedContent string `json:"rendered_content,omitempty"`
	Anchor          string `json:"anchor,omitempty"`
}

// Body returns the rendered content if present and the raw content otherwise
func (p MarkerPopup) Body() string {
	if p.RenderedContent != "" {
		return p.RenderedContent
	}
	return p.Content
}

// hasNullPosition reports a missing or falsy position or an axis
// explicitly set to null
func (d MarkerDescriptor) hasNullPosition() bool {
	switch p := d.Position.(type) {
	case nil:
		return true
	case bool:
		return !p
	case float64:
		return p == 0
	case string:
		return p == ""
	}

	m, ok := d.Position.(map[string]any)
	if !ok {
		return false
	}
	for _, axis := range []string{"lat", "lng"} {
		if v, present := m[axis]; present && v == nil {
			return true
		}
	}
	return false
}

// flag accepts the booleans, numbers and "0" / "1" strings the
// configuration backend produces
type flag bool

func (f *flag) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = flag(mapconfig.Bool(v))
	return nil
}

// EncodePayload serializes descriptors into the attribute format
func EncodePayload(descriptors []MarkerDescriptor) (string, error) {
	raw, err := json.Marshal(descriptors)
	if err != nil {
		return "", errors.Wrap(err, "encoding marker payload")
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// DecodePayload reads the marker descriptors from the attribute value.
// Whitespace and missing padding are tolerated. Only an attribute which
// is no base64 encoded JSON list fails as a whole, a single entry which
// cannot be read is returned with its error set and skipped on build.
func DecodePayload(attr string) ([]MarkerDescriptor, error) {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\f', '\r':
			return -1
		}
		return r
	}, attr)

	raw, err := base64.RawStdEncoding.DecodeString(strings.TrimRight(clean, "="))
	if err != nil {
		return nil, errors.Wrapf(ErrBadPayload, "decoding base64: %s", err)
	}

	var entries []json.RawMessage
	if err = json.Unmarshal(raw, &entries); err != nil {
		return nil, errors.Wrapf(ErrBadPayload, "decoding JSON: %s", err)
	}
	if entries == nil {
		return nil, errors.Wrap(ErrBadPayload, "payload is not a list")
	}

	descriptors := make([]MarkerDescriptor, 0, len(entries))
	for i, entry := range entries {
		var d MarkerDescriptor
		if err = json.Unmarshal(entry, &d); err != nil {
			d = MarkerDescriptor{err: errors.Wrapf(ErrBadPayload, "decoding marker %d: %s", i, err)}
		}
		descriptors = append(descriptors, d)
	}

	return descriptors, nil
}
