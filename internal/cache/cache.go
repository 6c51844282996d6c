package cache

import (
	"context"
	"time"
)

// BytesCache: кэш ключ → байты с TTL на каждую запись.
type BytesCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
