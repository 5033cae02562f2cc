package session

import (
	"context"
	"errors"
	"fmt"
)

// Keys of the persisted session.
const (
	AccessTokenKey  = "access_token"
	RefreshTokenKey = "refresh_token"
	UserKey         = "user"
)

// Store is the persistent key/value capability the session needs.
// Get returns (nil, nil) when the key is absent.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Clear removes the access token, the refresh token and the cached user.
func Clear(ctx context.Context, store Store) error {
	var errs []error
	for _, key := range []string{AccessTokenKey, RefreshTokenKey, UserKey} {
		if err := store.Delete(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("delete %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}
