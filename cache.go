package main

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"

	"github.com/Luzifer/storemap/internal/valkeystore"
)

type cacheFunction func(ctx context.Context, opts generateMapConfig) (io.ReadCloser, error)

func getCacheFunction(backend string, store *valkeystore.Store) (cacheFunction, error) {
	switch backend {
	case "filesystem":
		return filesystemCache, nil

	case "valkey":
		if store == nil {
			return nil, errors.New("valkey cache requires valkey-addr")
		}
		return valkeyCache(store), nil

	default:
		return nil, errors.Errorf("unknown cache backend %q", backend)
	}
}

func (g generateMapConfig) getCacheKey() string {
	center, zoom := "auto", "auto"
	if g.Center != nil {
		center = g.Center.String()
	}
	if g.Zoom != nil {
		zoom = fmt.Sprintf("%d", *g.Zoom)
	}

	markerString := []string{}
	for _, m := range g.Markers {
		markerString = append(markerString, m.String())
	}

	overlayString := []string{}
	for _, o := range g.Overlays {
		overlayString = append(overlayString, o.Name)
	}

	hashString := fmt.Sprintf("%s|%s|%s|%dx%d|%v|%s",
		center, zoom, strings.Join(markerString, "+"), g.Width, g.Height, g.DisableAttribution, strings.Join(overlayString, "+"))

	return fmt.Sprintf("%x", sha256.Sum256([]byte(hashString)))
}
