// Package metadata is the client's local key/value store. It keeps the
// session credentials (access token, refresh token, cached user profile)
// between runs.
package metadata

import (
	"context"
)

// Repository is a small key/value store.
//
// Get returns (nil, nil) for a missing key. Delete of a missing key is not
// an error. SetAll writes every pair or none.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetAll(ctx context.Context, values map[string][]byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string][]byte, error)
	Clear(ctx context.Context) error
}
