// Package cache is the on-disk resolution cache: a directory of
// WIZ_CONTEXT snapshots keyed by a hash of their inputs, guarded by an
// advisory file lock so concurrent `wiz run` invocations don't race on
// reading or writing the same entry.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	flock "github.com/theckman/go-flock"

	"github.com/themill/wiz"
)

// Cache is a directory-backed store of resolved contexts.
type Cache struct {
	dir string
}

// New returns a Cache rooted at dir, creating it if necessary.
func New(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cache: creating %s: %w", dir, err)
	}
	return &Cache{dir: dir}, nil
}

func (c *Cache) entryPath(key string) string {
	return filepath.Join(c.dir, key+".json")
}

func (c *Cache) lockPath(key string) string {
	return filepath.Join(c.dir, key+".lock")
}

// Get returns the cached context for key, if present.
func (c *Cache) Get(ctx context.Context, key string) (*wiz.Context, bool, error) {
	lock := flock.NewFlock(c.lockPath(key))
	if err := lockWithContext(ctx, lock); err != nil {
		return nil, false, err
	}
	defer lock.Unlock()

	raw, err := os.ReadFile(c.entryPath(key))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var out wiz.Context
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, false, err
	}
	return &out, true, nil
}

// Put stores resolved under key, overwriting any existing entry.
func (c *Cache) Put(ctx context.Context, key string, resolved *wiz.Context) error {
	lock := flock.NewFlock(c.lockPath(key))
	if err := lockWithContext(ctx, lock); err != nil {
		return err
	}
	defer lock.Unlock()

	raw, err := json.MarshalIndent(resolved, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(c.entryPath(key), raw, 0o644)
}

// lockWithContext retries TryLock until it succeeds or ctx is done,
// since this version of flock exposes only a non-blocking TryLock.
func lockWithContext(ctx context.Context, lock *flock.Flock) error {
	for {
		locked, err := lock.TryLock()
		if err != nil {
			return fmt.Errorf("cache: acquiring lock: %w", err)
		}
		if locked {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(25 * time.Millisecond):
		}
	}
}
