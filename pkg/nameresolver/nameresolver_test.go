package nameresolver

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/dhive/dhive/pkg/dherrors"
	"github.com/dhive/dhive/pkg/keys"
)

type fakeProvider struct {
	name   string
	key    keys.Key
	err    error
	calls  int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Resolve(_ context.Context, _ string) (keys.Key, error) {
	f.calls++
	return f.key, f.err
}

func testKey(b byte) keys.Key {
	var k keys.Key
	k[0] = b
	return k
}

func TestResolveNamePassesThroughCanonicalHex(t *testing.T) {
	key := testKey(7)
	resolver := New(Config{Providers: []Provider{&fakeProvider{name: "unused"}}})

	resolved, err := resolver.ResolveName(context.Background(), key.Hex())
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if resolved != key {
		t.Fatalf("expected pass-through of canonical hex key")
	}
}

func TestResolveNameQueriesProviderAndCaches(t *testing.T) {
	key := testKey(3)
	provider := &fakeProvider{name: "p1", key: key}
	resolver := New(Config{Providers: []Provider{provider}})

	resolved, err := resolver.ResolveName(context.Background(), "example.test")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if resolved != key {
		t.Fatalf("expected resolved key to match provider result")
	}
	if provider.calls != 1 {
		t.Fatalf("expected 1 provider call, got %d", provider.calls)
	}

	if _, err := resolver.ResolveName(context.Background(), "example.test"); err != nil {
		t.Fatalf("second resolve failed: %v", err)
	}
	if provider.calls != 1 {
		t.Fatalf("expected cached hit to avoid a second provider call, got %d calls", provider.calls)
	}
}

func TestResolveNameFallsBackToSecondProvider(t *testing.T) {
	key := testKey(9)
	failing := &fakeProvider{name: "failing", err: errPlaceholder}
	working := &fakeProvider{name: "working", key: key}
	resolver := New(Config{Providers: []Provider{failing, working}})

	resolved, err := resolver.ResolveName(context.Background(), "example.test")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if resolved != key {
		t.Fatalf("expected fallback provider's key")
	}
}

func TestResolveNameCachesMissAndSkipsOnIgnoreFlag(t *testing.T) {
	failing := &fakeProvider{name: "failing", err: errPlaceholder}
	resolver := New(Config{Providers: []Provider{failing}})

	if _, err := resolver.ResolveName(context.Background(), "missing.test"); err != dherrors.ErrInvalidDomainName {
		t.Fatalf("expected ErrInvalidDomainName, got %v", err)
	}
	if failing.calls != 1 {
		t.Fatalf("expected 1 provider call, got %d", failing.calls)
	}

	if _, err := resolver.ResolveName(context.Background(), "missing.test"); err != dherrors.ErrInvalidDomainName {
		t.Fatalf("expected cached miss to still error, got %v", err)
	}
	if failing.calls != 1 {
		t.Fatalf("expected cached miss to skip a second provider call, got %d calls", failing.calls)
	}

	if _, err := resolver.Resolve(context.Background(), "missing.test", ResolveOptions{IgnoreCachedMiss: true}); err != dherrors.ErrInvalidDomainName {
		t.Fatalf("expected still-failing provider to error, got %v", err)
	}
	if failing.calls != 2 {
		t.Fatalf("expected IgnoreCachedMiss to force a second provider call, got %d calls", failing.calls)
	}
}

func TestResolveNamePersistsCacheAcrossInstances(t *testing.T) {
	cachePath := filepath.Join(t.TempDir(), "cache.json")
	key := testKey(5)
	provider := &fakeProvider{name: "p1", key: key}
	resolver := New(Config{Providers: []Provider{provider}, CachePath: cachePath})

	if _, err := resolver.ResolveName(context.Background(), "example.test"); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	reopened := New(Config{Providers: []Provider{&fakeProvider{name: "p1", err: errPlaceholder}}, CachePath: cachePath})
	resolved, err := reopened.ResolveName(context.Background(), "example.test")
	if err != nil {
		t.Fatalf("resolve from persisted cache failed: %v", err)
	}
	if resolved != key {
		t.Fatalf("expected persisted cache to return previously resolved key")
	}
}

var errPlaceholder = &placeholderError{"resolution failed"}

type placeholderError struct{ msg string }

func (e *placeholderError) Error() string { return e.msg }
