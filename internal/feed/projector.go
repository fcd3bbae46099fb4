// Package feed derives the public feed visible to one user: public meal
// logs owned by any current friend, kept live as both the logs and the
// friend set change.
package feed

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"mealcraft/internal/docstore"
	"mealcraft/internal/meallog"
	"mealcraft/internal/models"
	"mealcraft/internal/observability"
)

// nameResolveTimeout bounds display-name resolution per delivery.
const nameResolveTimeout = 10 * time.Second

// Projector maintains the visible feed for one viewer. Feed entries are a
// pure projection: recomputed from the store on every delivery, never
// persisted, never optimistically mutated. Likes go straight to the meal
// log store and the next delivery is the source of truth.
type Projector struct {
	uid   string
	docs  docstore.Store
	meals *meallog.Store
	names *NameCache
	log   *slog.Logger

	mu       sync.Mutex
	entries  []models.FeedEntry
	err      error
	closed   bool
	onUpdate func()
	unsub    docstore.Unsubscribe
	once     sync.Once
}

// NewProjector returns a projector for the given viewer with an empty feed.
// Call SetFriends to start (and re-key) the live query.
func NewProjector(uid string, docs docstore.Store, meals *meallog.Store, names *NameCache, onUpdate func()) *Projector {
	return &Projector{
		uid:      uid,
		docs:     docs,
		meals:    meals,
		names:    names,
		log:      observability.Component("feed").With(slog.String("uid", uid)),
		entries:  []models.FeedEntry{},
		onUpdate: onUpdate,
	}
}

// SetFriends re-keys the feed to a new friend-id set. The previous
// subscription is cancelled before a new one opens, so deliveries never
// overlap. An empty set short-circuits to an empty feed without issuing a
// query: membership of nothing means no results, not all results.
func (p *Projector) SetFriends(friendIDs []string) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	old := p.unsub
	p.unsub = nil
	p.mu.Unlock()

	if old != nil {
		old()
	}

	if len(friendIDs) == 0 {
		p.apply(func() {
			p.entries = []models.FeedEntry{}
			p.err = nil
		})
		return
	}

	unsub := p.docs.Subscribe(feedQuery(friendIDs), p.deliver, p.subscriptionFailed)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		unsub()
		return
	}
	p.unsub = unsub
	p.mu.Unlock()
}

func (p *Projector) deliver(snap docstore.Snapshot) {
	ctx, cancel := context.WithTimeout(context.Background(), nameResolveTimeout)
	defer cancel()

	entries := project(ctx, p.names, snap)

	p.apply(func() {
		p.entries = entries
		p.err = nil
	})
}

func (p *Projector) subscriptionFailed(err error) {
	p.log.Error("feed subscription failed", "error", err)
	p.apply(func() {
		p.err = err
		p.entries = []models.FeedEntry{}
	})
}

func (p *Projector) apply(mutate func()) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	mutate()
	fn := p.onUpdate
	p.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// Entries returns the currently visible feed, newest first.
func (p *Projector) Entries() []models.FeedEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.FeedEntry(nil), p.entries...)
}

// Err returns the sticky subscription error, if any. Cleared by the next
// successful delivery or friend-set change.
func (p *Projector) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// ToggleLike flips the viewer's membership in the entry's like set. The
// projector keeps no optimistic copy; the updated like count arrives with
// the next live delivery.
func (p *Projector) ToggleLike(ctx context.Context, entry models.FeedEntry) error {
	if entry.LikedBy(p.uid) {
		return p.meals.Unlike(ctx, entry.OwnerUID, entry.ID, p.uid)
	}
	return p.meals.Like(ctx, entry.OwnerUID, entry.ID, p.uid)
}

// Close cancels the live query. Synchronous and idempotent; no deliveries
// happen after it returns.
func (p *Projector) Close() {
	p.once.Do(func() {
		p.mu.Lock()
		p.closed = true
		unsub := p.unsub
		p.unsub = nil
		p.mu.Unlock()

		if unsub != nil {
			unsub()
		}
	})
}
