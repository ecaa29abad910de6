// Package valkeystore stores binary blobs in a Valkey / Redis server
package valkeystore

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/valkey-io/valkey-go"
)

// ErrNotFound signals the key does not exist
var ErrNotFound = errors.New("key not found")

// Store wraps a Valkey client with a key prefix
type Store struct {
	client valkey.Client
	prefix string
}

// New connects to the Valkey server at addr
func New(addr, prefix string) (*Store, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{addr},
	})
	if err != nil {
		return nil, errors.Wrap(err, "connecting to valkey")
	}
	return &Store{client: client, prefix: prefix}, nil
}

// Get retrieves the blob stored at key
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	cmd := s.client.Do(ctx, s.client.B().Get().Key(s.prefix+key).Build())
	if err := cmd.Error(); err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "fetching key")
	}

	b, err := cmd.AsBytes()
	return b, errors.Wrap(err, "reading value")
}

// Set stores the blob at key, a zero ttl keeps it forever
func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var cmd valkey.Completed
	if ttl > 0 {
		cmd = s.client.B().Set().Key(s.prefix + key).Value(valkey.BinaryString(value)).Ex(ttl).Build()
	} else {
		cmd = s.client.B().Set().Key(s.prefix + key).Value(valkey.BinaryString(value)).Build()
	}
	return errors.Wrap(s.client.Do(ctx, cmd).Error(), "storing key")
}

// Close releases the client
func (s *Store) Close() {
	s.client.Close()
}
