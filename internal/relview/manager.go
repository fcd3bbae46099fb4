package relview

import (
	"log/slog"
	"sync"

	"mealcraft/internal/docstore"
	"mealcraft/internal/friendgraph"
	"mealcraft/internal/identity"
	"mealcraft/internal/observability"
)

// Manager keeps exactly one View alive for the active identity, swapping it
// on every sign-in and sign-out so a signed-out user can never receive
// relationship updates.
//
// Manager is the activation path for single-identity hosts (one signed-in
// user per process, identity changing over time). The WebSocket surface
// hosts many identities at once, so it opens one View per connection and
// ties its lifetime to the connection instead; both paths end at Open and
// Close, which own the actual teardown guarantees.
type Manager struct {
	store    docstore.Store
	engine   *friendgraph.Engine
	provider identity.Provider
	log      *slog.Logger

	mu     sync.Mutex
	view   *View
	cancel func()
}

// NewManager returns an inactive manager; call Start to begin tracking the
// identity provider.
func NewManager(store docstore.Store, engine *friendgraph.Engine, provider identity.Provider) *Manager {
	return &Manager{
		store:    store,
		engine:   engine,
		provider: provider,
		log:      observability.Component("relview"),
	}
}

// Start activates a view for the current identity (if signed in) and
// follows subsequent identity changes.
func (m *Manager) Start() {
	m.mu.Lock()
	m.cancel = m.provider.OnChange(m.activate)
	m.mu.Unlock()

	m.activate(m.provider.CurrentUserID())
}

// Current returns the active view, or nil when signed out.
func (m *Manager) Current() *View {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view
}

// Stop detaches from the identity provider and closes the active view.
func (m *Manager) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	m.cancel = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.activate("")
}

func (m *Manager) activate(uid string) {
	m.mu.Lock()
	old := m.view
	m.view = nil
	m.mu.Unlock()

	if old != nil {
		old.Close()
	}
	if uid == "" {
		return
	}

	view, err := Open(m.store, m.engine, uid, nil)
	if err != nil {
		m.log.Error("view activation failed", "uid", uid, "error", err)
		return
	}

	m.mu.Lock()
	m.view = view
	m.mu.Unlock()
}
