package cache

import "context"

// Backend is the durable key/value layer under Store. Implementations carry no TTL
// semantics of their own; expiry lives in the envelope Store writes.
type Backend interface {
	Read(ctx context.Context, key string) ([]byte, bool, error)
	Write(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) error
	Close() error
}
