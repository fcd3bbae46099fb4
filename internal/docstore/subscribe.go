package docstore

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"mealcraft/internal/models"
)

// watcherQueryTimeout bounds the re-query a watcher runs after a commit.
const watcherQueryTimeout = 10 * time.Second

// watcher is one live subscription: a query re-run on every commit that
// touches its collection group, delivering full snapshots on a dedicated
// goroutine. Wakeups are coalesced through a one-slot channel, so a burst
// of commits produces a single fresh snapshot.
type watcher struct {
	id     uint64
	group  string
	run    func(ctx context.Context) (Snapshot, error)
	onNext func(Snapshot)
	onErr  func(error)

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
	once sync.Once
	log  *slog.Logger
}

// Subscribe opens a live subscription on a query.
func (s *DB) Subscribe(q Query, onNext func(Snapshot), onErr func(error)) Unsubscribe {
	return s.register(q.Group, func(ctx context.Context) (Snapshot, error) {
		return s.Query(ctx, q)
	}, onNext, onErr)
}

// SubscribeCollection opens a live subscription on one collection.
func (s *DB) SubscribeCollection(collection string, onNext func(Snapshot), onErr func(error)) Unsubscribe {
	return s.register(GroupOf(collection), func(ctx context.Context) (Snapshot, error) {
		return s.GetAll(ctx, collection)
	}, onNext, onErr)
}

func (s *DB) register(group string, run func(ctx context.Context) (Snapshot, error), onNext func(Snapshot), onErr func(error)) Unsubscribe {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		go onErr(models.NewSubscriptionError(group, errors.New("store closed")))
		return func() {}
	}
	s.nextID++
	w := &watcher{
		id:     s.nextID,
		group:  group,
		run:    run,
		onNext: onNext,
		onErr:  onErr,
		wake:   make(chan struct{}, 1),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
		log:    s.log,
	}
	s.watchers[w.id] = w
	s.mu.Unlock()

	// Prime the initial snapshot delivery. A commit may have raced the
	// registration and filled the wake slot already; that pending wakeup
	// covers the initial query just as well, so never block here.
	select {
	case w.wake <- struct{}{}:
	default:
	}
	go w.loop()

	return func() { s.unregister(w) }
}

// unregister is synchronous and idempotent: it waits for the watcher
// goroutine to exit, so no callback runs after it returns.
func (s *DB) unregister(w *watcher) {
	w.once.Do(func() {
		s.mu.Lock()
		delete(s.watchers, w.id)
		s.mu.Unlock()
		close(w.stop)
	})
	<-w.done
}

func (w *watcher) loop() {
	defer close(w.done)
	for {
		select {
		case <-w.stop:
			return
		case <-w.wake:
		}

		ctx, cancel := context.WithTimeout(context.Background(), watcherQueryTimeout)
		snap, err := w.run(ctx)
		cancel()

		// A teardown may have raced the query; never deliver after stop.
		select {
		case <-w.stop:
			return
		default:
		}

		if err != nil {
			w.log.Error("subscription query failed", "group", w.group, "error", err)
			w.onErr(models.NewSubscriptionError(w.group, err))
			continue
		}
		w.onNext(snap)
	}
}

// notify wakes every watcher whose collection group was touched by a
// committed write.
func (s *DB) notify(groups map[string]struct{}) {
	if len(groups) == 0 {
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, w := range s.watchers {
		if _, ok := groups[w.group]; !ok {
			continue
		}
		select {
		case w.wake <- struct{}{}:
		default: // a wakeup is already pending
		}
	}
}

// Close tears down every open subscription. The store rejects new
// subscriptions afterwards; plain reads and writes keep working.
func (s *DB) Close() error {
	s.mu.Lock()
	s.closed = true
	remaining := make([]*watcher, 0, len(s.watchers))
	for _, w := range s.watchers {
		remaining = append(remaining, w)
	}
	s.mu.Unlock()

	for _, w := range remaining {
		s.unregister(w)
	}
	return nil
}
