// Package identity supplies the active user identity to the rest of the
// application. Components receive a Provider explicitly instead of reading
// a process-wide singleton, and re-activate themselves through OnChange
// when the identity changes.
package identity

import "sync"

// Provider exposes the currently signed-in user.
type Provider interface {
	// CurrentUserID returns the active user id, or "" when signed out.
	CurrentUserID() string
	// OnChange registers a callback invoked with the new user id on every
	// sign-in and sign-out ("" means signed out). The returned cancel
	// function unregisters the callback and is idempotent.
	OnChange(fn func(uid string)) (cancel func())
}

// Sessions is an in-process Provider with explicit sign-in/out transitions.
type Sessions struct {
	mu        sync.Mutex
	uid       string
	nextID    uint64
	callbacks map[uint64]func(string)
}

// NewSessions returns a signed-out Sessions provider.
func NewSessions() *Sessions {
	return &Sessions{callbacks: make(map[uint64]func(string))}
}

// CurrentUserID returns the active user id, or "" when signed out.
func (s *Sessions) CurrentUserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uid
}

// OnChange registers a session-change callback.
func (s *Sessions) OnChange(fn func(uid string)) (cancel func()) {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.callbacks[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.callbacks, id)
			s.mu.Unlock()
		})
	}
}

// SignIn activates uid and notifies callbacks. Signing in the already
// active user is a no-op.
func (s *Sessions) SignIn(uid string) {
	s.transition(uid)
}

// SignOut clears the active identity and notifies callbacks.
func (s *Sessions) SignOut() {
	s.transition("")
}

func (s *Sessions) transition(uid string) {
	s.mu.Lock()
	if s.uid == uid {
		s.mu.Unlock()
		return
	}
	s.uid = uid
	fns := make([]func(string), 0, len(s.callbacks))
	for _, fn := range s.callbacks {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(uid)
	}
}
