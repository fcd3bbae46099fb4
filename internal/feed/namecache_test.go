package feed

import (
	"context"
	"testing"

	"mealcraft/internal/schema"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestNameCacheResolvesOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.addUser(t, "bob", "Bob")

	if got := env.names.Resolve(ctx, "bob"); got != "Bob" {
		t.Fatalf("expected Bob, got %q", got)
	}

	// Deleting the profile proves the second lookup is served locally.
	if err := env.docs.Delete(ctx, schema.UserDoc("bob")); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got := env.names.Resolve(ctx, "bob"); got != "Bob" {
		t.Fatalf("expected cached Bob, got %q", got)
	}
}

func TestNameCacheFallbacks(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// No display name: fall back to email, then to the raw id.
	env.addUser(t, "eve", "")
	if got := env.names.Resolve(ctx, "eve"); got != "eve@example.com" {
		t.Fatalf("expected email fallback, got %q", got)
	}

	if got := env.names.Resolve(ctx, "stranger"); got != "stranger" {
		t.Fatalf("unknown owner must resolve to the raw id, got %q", got)
	}

	// An unknown owner is not cached; a later profile write resolves it.
	env.addUser(t, "stranger", "Stranger")
	if got := env.names.Resolve(ctx, "stranger"); got != "Stranger" {
		t.Fatalf("expected late-arriving profile to win, got %q", got)
	}
}

func TestNameCacheSharedRedisTier(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.addUser(t, "bob", "Bob")

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	first := NewNameCache(env.docs, client)
	if got := first.Resolve(ctx, "bob"); got != "Bob" {
		t.Fatalf("expected Bob, got %q", got)
	}

	// A second process (fresh local map) finds the name in Redis even after
	// the profile disappears.
	if err := env.docs.Delete(ctx, schema.UserDoc("bob")); err != nil {
		t.Fatalf("delete: %v", err)
	}
	second := NewNameCache(env.docs, client)
	if got := second.Resolve(ctx, "bob"); got != "Bob" {
		t.Fatalf("expected redis-cached Bob, got %q", got)
	}
}
