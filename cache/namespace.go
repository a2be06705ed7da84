package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

const keyPrefix = "lookup:"

// Namespace is the handle for one cache namespace. It is created once per
// process and passed to the components that read or invalidate it.
type Namespace struct {
	store Store
	name  string
}

// NewNamespace returns a handle for name on store.
func NewNamespace(store Store, name string) *Namespace {
	return &Namespace{store: store, name: name}
}

// Name returns the namespace name.
func (n *Namespace) Name() string { return n.name }

// VersionKey is the key holding the namespace version.
func (n *Namespace) VersionKey() string {
	return keyPrefix + n.name + ":version"
}

// DataKey builds the key for parts under version.
func (n *Namespace) DataKey(version int64, parts ...string) string {
	var b strings.Builder
	b.WriteString(keyPrefix)
	b.WriteString(n.name)
	for _, p := range parts {
		b.WriteByte(':')
		b.WriteString(p)
	}
	fmt.Fprintf(&b, ":v%d", version)
	return b.String()
}

// Version returns the current version, creating it as 1 if absent.
func (n *Namespace) Version(ctx context.Context) (int64, error) {
	if err := n.init(ctx); err != nil {
		return 0, err
	}
	raw, ok, err := n.store.Get(ctx, n.VersionKey())
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("cache version %s disappeared", n.VersionKey())
	}
	v, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("cache version %s: %w", n.VersionKey(), err)
	}
	return v, nil
}

// Bump advances the version and returns the new value. Entries written
// under earlier versions are left in place and never read again.
func (n *Namespace) Bump(ctx context.Context) (int64, error) {
	if err := n.init(ctx); err != nil {
		return 0, err
	}
	return n.store.Incr(ctx, n.VersionKey())
}

func (n *Namespace) init(ctx context.Context) error {
	_, err := n.store.SetNX(ctx, n.VersionKey(), []byte("1"))
	return err
}

// Load decodes the JSON value at key into dest and reports whether it existed.
func (n *Namespace) Load(ctx context.Context, key string, dest any) (bool, error) {
	raw, ok, err := n.store.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// Save stores value as JSON at key with no expiration.
func (n *Namespace) Save(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return n.store.Set(ctx, key, raw)
}
