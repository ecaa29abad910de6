package provider

import (
	"sort"

	"github.com/pkg/errors"
)

// ErrUnknownProvider is the cause of every lookup of a provider id which
// is not registered
var ErrUnknownProvider = errors.New("unknown map provider")

// Registry maps provider ids to their adapter. It is read-only after
// construction and may be shared freely.
type Registry struct {
	adapters map[string]Adapter
}

// NewRegistry creates a registry from the given adapters. Later adapters
// replace earlier ones with the same id.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[string]Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.ID()] = a
	}
	return r
}

// SDKs carries the native SDK handles injected into the default adapters
type SDKs struct {
	Google    *GoogleSDK
	Mapbox    *MapboxSDK
	StaticMap *StaticMapSDK
}

// DefaultRegistry wires all built-in adapters
func DefaultRegistry(sdks SDKs) *Registry {
	return NewRegistry(
		NewGoogle(sdks.Google),
		NewMapbox(sdks.Mapbox),
		NewOSM(sdks.StaticMap),
	)
}

// Resolve returns the adapter registered for id
func (r *Registry) Resolve(id string) (Adapter, error) {
	a, ok := r.adapters[id]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownProvider, "provider %q (known: %v)", id, r.IDs())
	}
	return a, nil
}

// IDs lists the registered provider ids in sorted order
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.adapters))
	for id := range r.adapters {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
