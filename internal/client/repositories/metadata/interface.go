package metadata

import (
	"context"
)

// Repository is a small key/value table in the local database. Get returns
// (nil, nil) for a missing key.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
