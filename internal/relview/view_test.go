package relview

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"mealcraft/internal/docstore"
	"mealcraft/internal/friendgraph"
	"mealcraft/internal/models"
	"mealcraft/internal/schema"
)

func newTestDeps(t *testing.T) (docstore.Store, *friendgraph.Engine) {
	t.Helper()
	db, err := docstore.Open("sqlite", filepath.Join(t.TempDir(), "relview.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, friendgraph.NewEngine(db)
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, msg string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", msg)
}

func TestViewDeliversInitialState(t *testing.T) {
	store, engine := newTestDeps(t)
	ctx := context.Background()

	if err := engine.SendRequest(ctx, "bob", "alice"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := engine.SendRequest(ctx, "alice", "carol"); err != nil {
		t.Fatalf("send: %v", err)
	}

	v, err := Open(store, engine, "alice", nil)
	if err != nil {
		t.Fatalf("open view: %v", err)
	}
	defer v.Close()

	waitFor(t, "initial snapshots", func() bool { return !v.Loading() })
	waitFor(t, "incoming request", func() bool {
		in := v.Incoming()
		return len(in) == 1 && in[0].From == "bob"
	})
	waitFor(t, "outgoing request", func() bool {
		out := v.Outgoing()
		return len(out) == 1 && out[0].To == "carol"
	})
	if len(v.Friends()) != 0 {
		t.Fatalf("expected no friends yet, got %v", v.Friends())
	}
}

func TestViewFollowsStoreChanges(t *testing.T) {
	store, engine := newTestDeps(t)
	ctx := context.Background()

	v, err := Open(store, engine, "alice", nil)
	if err != nil {
		t.Fatalf("open view: %v", err)
	}
	defer v.Close()
	waitFor(t, "initial snapshots", func() bool { return !v.Loading() })

	// Another user sends a request; the view picks it up without polling.
	if err := engine.SendRequest(ctx, "bob", "alice"); err != nil {
		t.Fatalf("send: %v", err)
	}
	waitFor(t, "incoming request delivery", func() bool { return len(v.Incoming()) == 1 })

	// Each delivery replaces the whole set.
	if err := engine.CancelRequest(ctx, "bob", "alice"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	waitFor(t, "incoming request removal", func() bool { return len(v.Incoming()) == 0 })
}

func TestViewAccept(t *testing.T) {
	store, engine := newTestDeps(t)
	ctx := context.Background()

	if err := engine.SendRequest(ctx, "bob", "alice"); err != nil {
		t.Fatalf("send: %v", err)
	}

	v, err := Open(store, engine, "alice", nil)
	if err != nil {
		t.Fatalf("open view: %v", err)
	}
	defer v.Close()
	waitFor(t, "incoming request", func() bool { return len(v.Incoming()) == 1 })

	if err := v.Accept(ctx, "bob"); err != nil {
		t.Fatalf("accept: %v", err)
	}

	// Optimistic edit is visible immediately.
	friends := v.Friends()
	if len(friends) != 1 || friends[0].ID != "bob" {
		t.Fatalf("expected optimistic friend [bob], got %v", friends)
	}

	// And the authoritative state converges to the same thing.
	waitFor(t, "authoritative friend set", func() bool {
		f := v.Friends()
		return len(f) == 1 && f[0].ID == "bob" && len(v.Incoming()) == 0
	})

	peerFriends, err := engine.Friends(ctx, "bob")
	if err != nil || len(peerFriends) != 1 || peerFriends[0].ID != "alice" {
		t.Fatalf("friendship must be symmetric: %v, %v", peerFriends, err)
	}
}

func TestViewActionFailureReverts(t *testing.T) {
	store, engine := newTestDeps(t)
	ctx := context.Background()

	v, err := Open(store, engine, "alice", nil)
	if err != nil {
		t.Fatalf("open view: %v", err)
	}
	defer v.Close()
	waitFor(t, "initial snapshots", func() bool { return !v.Loading() })

	// Accepting an invalid peer fails in the engine after the optimistic
	// edit; the view must resynchronize before returning.
	if err := v.Accept(ctx, ""); !models.HasCode(err, models.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(v.Friends()) != 0 {
		t.Fatalf("optimistic friend must be reverted, got %v", v.Friends())
	}
}

func TestViewRejectCancelRemove(t *testing.T) {
	store, engine := newTestDeps(t)
	ctx := context.Background()

	if err := engine.SendRequest(ctx, "bob", "alice"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := engine.SendRequest(ctx, "alice", "carol"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := engine.SendRequest(ctx, "dave", "alice"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := engine.AcceptRequest(ctx, "alice", "dave"); err != nil {
		t.Fatalf("accept: %v", err)
	}

	v, err := Open(store, engine, "alice", nil)
	if err != nil {
		t.Fatalf("open view: %v", err)
	}
	defer v.Close()
	waitFor(t, "initial state", func() bool {
		return !v.Loading() && len(v.Incoming()) == 1 && len(v.Outgoing()) == 1 && len(v.Friends()) == 1
	})

	if err := v.Reject(ctx, "bob"); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if len(v.Incoming()) != 0 {
		t.Fatalf("reject must drop the request immediately, got %v", v.Incoming())
	}

	if err := v.Cancel(ctx, "carol"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if len(v.Outgoing()) != 0 {
		t.Fatalf("cancel must drop the request immediately, got %v", v.Outgoing())
	}

	if err := v.Remove(ctx, "dave"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if len(v.Friends()) != 0 {
		t.Fatalf("remove must drop the friend immediately, got %v", v.Friends())
	}

	// Authoritative state agrees on all three.
	waitFor(t, "converged empty state", func() bool {
		return len(v.Incoming()) == 0 && len(v.Outgoing()) == 0 && len(v.Friends()) == 0
	})
	edges, err := engine.Friends(ctx, "dave")
	if err != nil || len(edges) != 0 {
		t.Fatalf("dave must not keep a one-sided edge: %v, %v", edges, err)
	}
}

func TestViewStickyErrorBlocksActions(t *testing.T) {
	store, engine := newTestDeps(t)
	ctx := context.Background()

	v, err := Open(store, engine, "alice", nil)
	if err != nil {
		t.Fatalf("open view: %v", err)
	}
	defer v.Close()
	waitFor(t, "initial snapshots", func() bool { return !v.Loading() })

	v.subscriptionFailed(schema.GroupFriends)(models.NewSubscriptionError("friends", errors.New("connection lost")))

	if err := v.Err(); !models.HasCode(err, models.CodeSubscriptionError) {
		t.Fatalf("expected sticky subscription error, got %v", err)
	}
	if err := v.Accept(ctx, "bob"); !models.HasCode(err, models.CodeSubscriptionError) {
		t.Fatalf("actions must be refused while the error is sticky, got %v", err)
	}
	if len(v.Friends()) != 0 {
		t.Fatalf("refused action must not edit state, got %v", v.Friends())
	}

	// The next successful delivery on the failed stream clears the error.
	if err := store.Set(ctx, schema.FriendDoc("alice", "eve"), models.FriendEdge{Since: 1}); err != nil {
		t.Fatalf("set: %v", err)
	}
	waitFor(t, "error cleared by delivery", func() bool { return v.Err() == nil })
}

func TestViewStickyErrorScopedToStream(t *testing.T) {
	store, engine := newTestDeps(t)
	ctx := context.Background()

	v, err := Open(store, engine, "alice", nil)
	if err != nil {
		t.Fatalf("open view: %v", err)
	}
	defer v.Close()
	waitFor(t, "initial snapshots", func() bool { return !v.Loading() })

	v.subscriptionFailed(schema.GroupFriends)(models.NewSubscriptionError("friends", errors.New("connection lost")))

	// A healthy delivery on a different stream must not clear the error:
	// the friend set may still be stale.
	if err := engine.SendRequest(ctx, "bob", "alice"); err != nil {
		t.Fatalf("send: %v", err)
	}
	waitFor(t, "incoming delivery", func() bool { return len(v.Incoming()) == 1 })
	if err := v.Err(); !models.HasCode(err, models.CodeSubscriptionError) {
		t.Fatalf("error must survive deliveries on other streams, got %v", err)
	}
	if err := v.Accept(ctx, "bob"); !models.HasCode(err, models.CodeSubscriptionError) {
		t.Fatalf("actions must stay refused, got %v", err)
	}

	// Only the friends stream itself clears it.
	if err := store.Set(ctx, schema.FriendDoc("alice", "eve"), models.FriendEdge{Since: 1}); err != nil {
		t.Fatalf("set: %v", err)
	}
	waitFor(t, "error cleared by friends delivery", func() bool { return v.Err() == nil })
}

func TestViewCloseStopsCallbacks(t *testing.T) {
	store, engine := newTestDeps(t)
	ctx := context.Background()

	var updates atomic.Int64
	v, err := Open(store, engine, "alice", func() { updates.Add(1) })
	if err != nil {
		t.Fatalf("open view: %v", err)
	}
	waitFor(t, "initial snapshots", func() bool { return !v.Loading() })

	v.Close()
	v.Close() // idempotent

	before := updates.Load()
	if err := engine.SendRequest(ctx, "bob", "alice"); err != nil {
		t.Fatalf("send: %v", err)
	}
	time.Sleep(200 * time.Millisecond)
	if got := updates.Load(); got != before {
		t.Fatalf("onUpdate fired after Close: %d -> %d", before, got)
	}

	if err := v.Accept(ctx, "bob"); !models.HasCode(err, models.CodeValidation) {
		t.Fatalf("actions on a closed view must fail, got %v", err)
	}
}

func TestOpenRequiresUID(t *testing.T) {
	store, engine := newTestDeps(t)
	if _, err := Open(store, engine, "", nil); !models.HasCode(err, models.CodeValidation) {
		t.Fatalf("expected validation error for empty uid, got %v", err)
	}
}
