package main

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/Luzifer/storemap/internal/valkeystore"
)

type blobStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

func valkeyCache(store blobStore) cacheFunction {
	return func(ctx context.Context, opts generateMapConfig) (io.ReadCloser, error) {
		cacheKey := "map:" + opts.getCacheKey()

		data, err := store.Get(ctx, cacheKey)
		switch {
		case err == nil:
			return io.NopCloser(bytes.NewReader(data)), nil
		case errors.Cause(err) != valkeystore.ErrNotFound:
			logrus.WithError(err).Warn("fetching map from valkey cache")
		}

		buf, err := renderMap(opts)
		if err != nil {
			return nil, err
		}

		if err = store.Set(ctx, cacheKey, buf.Bytes(), cfg.ForceCache); err != nil {
			logrus.WithError(err).Warn("storing map in valkey cache")
		}

		return io.NopCloser(buf), nil
	}
}
