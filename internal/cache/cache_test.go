package cache

import (
	"context"
	"testing"
	"time"

	flock "github.com/theckman/go-flock"

	"github.com/themill/wiz"
)

func flockFor(t *testing.T, c *Cache, key string) *flock.Flock {
	t.Helper()
	return flock.NewFlock(c.lockPath(key))
}

func TestPutThenGetRoundTrips(t *testing.T) {
	c, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	resolved := &wiz.Context{
		Packages: []wiz.PackageSummary{{QualifiedIdentifier: "ns::a==1.0"}},
	}

	if err := c.Put(ctx, "key1", resolved); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok, err := c.Get(ctx, "key1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("Get: ok = false, want true after Put")
	}
	if len(got.Packages) != 1 || got.Packages[0].QualifiedIdentifier != "ns::a==1.0" {
		t.Errorf("Get = %+v, want the round-tripped context", got)
	}
}

func TestGetMissingKeyReportsNotFound(t *testing.T) {
	c, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, ok, err := c.Get(context.Background(), "absent")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Error("Get of a never-written key should report ok = false")
	}
}

func TestPutOverwritesExistingEntry(t *testing.T) {
	c, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	first := &wiz.Context{Packages: []wiz.PackageSummary{{QualifiedIdentifier: "ns::a==1.0"}}}
	second := &wiz.Context{Packages: []wiz.PackageSummary{{QualifiedIdentifier: "ns::a==2.0"}}}

	if err := c.Put(ctx, "key1", first); err != nil {
		t.Fatalf("Put first: %v", err)
	}
	if err := c.Put(ctx, "key1", second); err != nil {
		t.Fatalf("Put second: %v", err)
	}

	got, ok, err := c.Get(ctx, "key1")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if got.Packages[0].QualifiedIdentifier != "ns::a==2.0" {
		t.Errorf("Get after overwrite = %+v, want a==2.0", got)
	}
}

func TestGetRespectsCanceledContext(t *testing.T) {
	c, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	time.Sleep(5 * time.Millisecond)

	lock := flockFor(t, c, "key1")
	locked, err := lock.TryLock()
	if err != nil || !locked {
		t.Fatalf("test setup: failed to take lock: locked=%v err=%v", locked, err)
	}
	defer lock.Unlock()

	if _, _, err := c.Get(ctx, "key1"); err == nil {
		t.Error("Get should fail once the context deadline has passed and the entry is locked")
	}
}
