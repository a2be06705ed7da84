/*
Package cache provides a versioned key/value cache.

PURPOSE:
  Lookup data (vesting breakpoints, plan effective years) is cached with no
  expiration. Invalidation never deletes keys: every data key embeds the
  namespace's current version, and bumping the version orphans all entries
  written under the old one.

KEY LAYOUT:
  lookup:{namespace}:version               integer, created as 1 on first read
  lookup:{namespace}:{parts...}:v{version} JSON payload

KEY TYPES:
  Store:     minimal backend surface (GET, SET without TTL, SETNX, INCR)
  Namespace: explicit handle for one namespace's version and keys
  Redis:     go-redis backend
  Memory:    in-process backend for tests and single-node dev

SEE ALSO:
  - vesting/cache.go: the consumer
*/
package cache

import "context"

// Store is the backend a Namespace runs on. Values never expire.
type Store interface {
	// Get returns (nil, false, nil) when the key does not exist.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	// SetNX sets key only if it does not exist and reports whether it did.
	SetNX(ctx context.Context, key string, value []byte) (bool, error)
	// Incr atomically increments an integer key and returns the new value.
	Incr(ctx context.Context, key string) (int64, error)
}
