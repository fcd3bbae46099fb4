// Package relview maintains the always-current relationship state for one
// signed-in user: friends, incoming requests and outgoing requests, each
// backed by a standing subscription to the document store.
//
// Mutating actions update the local sets optimistically so callers see the
// intended state before the store round-trip completes. On failure the
// optimistic guess is discarded and the sets are resynchronized from the
// authoritative store; the local sets are never merged, every subscription
// delivery replaces them wholesale.
package relview

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"mealcraft/internal/docstore"
	"mealcraft/internal/friendgraph"
	"mealcraft/internal/models"
	"mealcraft/internal/observability"
	"mealcraft/internal/schema"
)

// resyncTimeout bounds the refetch that repairs a failed optimistic update.
const resyncTimeout = 10 * time.Second

// View is the live relationship state for one user id.
type View struct {
	uid    string
	store  docstore.Store
	engine *friendgraph.Engine
	log    *slog.Logger

	mu       sync.Mutex
	friends  []models.Friend
	incoming []models.FriendRequest
	outgoing []models.FriendRequest
	loading  bool
	errs     map[string]error
	closed   bool
	onUpdate func()

	unsubs []docstore.Unsubscribe
	once   sync.Once
}

// Open activates a view for uid and starts its three subscriptions.
// onUpdate, if non-nil, is invoked after every state change (snapshot
// delivery, optimistic edit, resync); it must not call back into the view's
// Close.
func Open(store docstore.Store, engine *friendgraph.Engine, uid string, onUpdate func()) (*View, error) {
	if uid == "" {
		return nil, models.NewValidationError("user id must not be empty")
	}

	v := &View{
		uid:      uid,
		store:    store,
		engine:   engine,
		log:      observability.Component("relview").With(slog.String("uid", uid)),
		friends:  []models.Friend{},
		incoming: []models.FriendRequest{},
		outgoing: []models.FriendRequest{},
		loading:  true,
		errs:     make(map[string]error),
		onUpdate: onUpdate,
	}

	v.unsubs = []docstore.Unsubscribe{
		store.SubscribeCollection(schema.FriendsCollection(uid),
			func(snap docstore.Snapshot) {
				v.apply(func() {
					v.friends = friendgraph.FriendsFromSnapshot(snap)
					v.loading = false
					delete(v.errs, schema.GroupFriends)
				})
			},
			v.subscriptionFailed(schema.GroupFriends)),
		store.SubscribeCollection(schema.IncomingCollection(uid),
			func(snap docstore.Snapshot) {
				v.apply(func() {
					v.incoming = friendgraph.RequestsFromSnapshot(snap)
					delete(v.errs, schema.GroupIncoming)
				})
			},
			v.subscriptionFailed(schema.GroupIncoming)),
		store.SubscribeCollection(schema.OutgoingCollection(uid),
			func(snap docstore.Snapshot) {
				v.apply(func() {
					v.outgoing = friendgraph.RequestsFromSnapshot(snap)
					delete(v.errs, schema.GroupOutgoing)
				})
			},
			v.subscriptionFailed(schema.GroupOutgoing)),
	}

	return v, nil
}

// UID returns the identity this view was opened for.
func (v *View) UID() string { return v.uid }

func (v *View) apply(mutate func()) {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	mutate()
	fn := v.onUpdate
	v.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// subscriptionFailed returns the error callback for one stream. Errors are
// sticky per stream: only a successful delivery on the same stream clears
// one, so a healthy incoming-requests stream can never mask a stale friend
// set.
func (v *View) subscriptionFailed(stream string) func(error) {
	return func(err error) {
		v.log.Error("relationship subscription failed", "stream", stream, "error", err)
		v.apply(func() {
			v.errs[stream] = err
			v.loading = false
		})
	}
}

// streamErr returns the first sticky stream error. Callers hold v.mu.
func (v *View) streamErr() error {
	for _, stream := range []string{schema.GroupFriends, schema.GroupIncoming, schema.GroupOutgoing} {
		if err := v.errs[stream]; err != nil {
			return err
		}
	}
	return nil
}

// Friends returns the current friend set.
func (v *View) Friends() []models.Friend {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]models.Friend(nil), v.friends...)
}

// FriendIDs returns the ids of the current friend set, in order.
func (v *View) FriendIDs() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	ids := make([]string, len(v.friends))
	for i, f := range v.friends {
		ids[i] = f.ID
	}
	return ids
}

// Incoming returns the current pending incoming requests.
func (v *View) Incoming() []models.FriendRequest {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]models.FriendRequest(nil), v.incoming...)
}

// Outgoing returns the current pending outgoing requests.
func (v *View) Outgoing() []models.FriendRequest {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]models.FriendRequest(nil), v.outgoing...)
}

// Loading reports whether the initial friends snapshot has arrived yet.
func (v *View) Loading() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.loading
}

// Err returns the sticky subscription error, if any. A successful snapshot
// delivery on the failed stream clears it; deliveries on the other streams
// do not.
func (v *View) Err() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.streamErr()
}

// beginAction gates every optimistic mutation: refused while the view is
// closed or carries a sticky subscription error.
func (v *View) beginAction(optimistic func()) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return models.NewValidationError("relationship view is closed")
	}
	if err := v.streamErr(); err != nil {
		v.mu.Unlock()
		return err
	}
	optimistic()
	fn := v.onUpdate
	v.mu.Unlock()

	if fn != nil {
		fn()
	}
	return nil
}

// Accept optimistically moves the request from peerID into the friend set,
// then runs the atomic accept.
func (v *View) Accept(ctx context.Context, peerID string) error {
	now := time.Now().UnixMilli()
	err := v.beginAction(func() {
		v.incoming = dropRequestFrom(v.incoming, peerID)
		v.friends = append(append([]models.Friend(nil), v.friends...), models.Friend{ID: peerID, Since: now})
	})
	if err != nil {
		return err
	}

	if err := v.engine.AcceptRequest(ctx, v.uid, peerID); err != nil {
		v.resync()
		return err
	}
	return nil
}

// Reject optimistically drops the incoming request from peerID, then
// deletes its mirrors.
func (v *View) Reject(ctx context.Context, peerID string) error {
	err := v.beginAction(func() {
		v.incoming = dropRequestFrom(v.incoming, peerID)
	})
	if err != nil {
		return err
	}

	if err := v.engine.RejectRequest(ctx, v.uid, peerID); err != nil {
		v.resync()
		return err
	}
	return nil
}

// Cancel optimistically drops the outgoing request to peerID, then deletes
// its mirrors.
func (v *View) Cancel(ctx context.Context, peerID string) error {
	err := v.beginAction(func() {
		v.outgoing = dropRequestTo(v.outgoing, peerID)
	})
	if err != nil {
		return err
	}

	if err := v.engine.CancelRequest(ctx, v.uid, peerID); err != nil {
		v.resync()
		return err
	}
	return nil
}

// Remove optimistically drops peerID from the friend set, then deletes both
// edges.
func (v *View) Remove(ctx context.Context, peerID string) error {
	err := v.beginAction(func() {
		next := make([]models.Friend, 0, len(v.friends))
		for _, f := range v.friends {
			if f.ID != peerID {
				next = append(next, f)
			}
		}
		v.friends = next
	})
	if err != nil {
		return err
	}

	if err := v.engine.RemoveFriend(ctx, v.uid, peerID); err != nil {
		v.resync()
		return err
	}
	return nil
}

// resync discards optimistic state by refetching all three collections. If
// the refetch itself fails the sets are left as-is; the standing
// subscriptions deliver the next authoritative snapshot regardless.
func (v *View) resync() {
	ctx, cancel := context.WithTimeout(context.Background(), resyncTimeout)
	defer cancel()

	friends, err := v.engine.Friends(ctx, v.uid)
	if err != nil {
		v.log.Error("resync failed", "error", err)
		return
	}
	incoming, err := v.engine.Incoming(ctx, v.uid)
	if err != nil {
		v.log.Error("resync failed", "error", err)
		return
	}
	outgoing, err := v.engine.Outgoing(ctx, v.uid)
	if err != nil {
		v.log.Error("resync failed", "error", err)
		return
	}

	v.apply(func() {
		v.friends = friends
		v.incoming = incoming
		v.outgoing = outgoing
	})
}

// Close tears down all three subscriptions. It is synchronous and
// idempotent; no state change or callback happens after it returns.
func (v *View) Close() {
	v.once.Do(func() {
		v.mu.Lock()
		v.closed = true
		unsubs := v.unsubs
		v.unsubs = nil
		v.mu.Unlock()

		for _, unsub := range unsubs {
			unsub()
		}
	})
}

func dropRequestFrom(reqs []models.FriendRequest, fromID string) []models.FriendRequest {
	next := make([]models.FriendRequest, 0, len(reqs))
	for _, r := range reqs {
		if r.From != fromID {
			next = append(next, r)
		}
	}
	return next
}

func dropRequestTo(reqs []models.FriendRequest, toID string) []models.FriendRequest {
	next := make([]models.FriendRequest, 0, len(reqs))
	for _, r := range reqs {
		if r.To != toID {
			next = append(next, r)
		}
	}
	return next
}
