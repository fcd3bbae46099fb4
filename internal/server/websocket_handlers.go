package server

import (
	"sync"

	"mealcraft/internal/feed"
	"mealcraft/internal/models"
	"mealcraft/internal/observability"
	"mealcraft/internal/relview"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// updatePayload is one pushed snapshot of everything the client renders
// live: relationship state plus the visible feed.
type updatePayload struct {
	Friends  []models.Friend        `json:"friends"`
	Incoming []models.FriendRequest `json:"incoming"`
	Outgoing []models.FriendRequest `json:"outgoing"`
	Feed     []models.FeedEntry     `json:"feed"`
	Error    string                 `json:"error,omitempty"`
}

// UpgradeWebSocket gates the ws route to actual upgrade requests.
func (s *Server) UpgradeWebSocket(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// StreamUpdates returns the WebSocket handler. Each connection owns one
// relationship view and one feed projector for the authenticated user;
// every state change is pushed as a full snapshot. Closing the connection
// tears both down, so a signed-out client can never receive updates.
// The connection is the identity scope here: this surface serves many
// users at once, so views are opened per connection rather than through
// relview.Manager, which tracks a single active identity.
func (s *Server) StreamUpdates() fiber.Handler {
	log := observability.Component("ws")

	return websocket.New(func(conn *websocket.Conn) {
		uid, _ := conn.Locals("userID").(string)
		if uid == "" {
			return
		}

		// Wakeups are coalesced; the writer always reads current state.
		notify := make(chan struct{}, 1)
		ping := func() {
			select {
			case notify <- struct{}{}:
			default:
			}
		}

		projector := feed.NewProjector(uid, s.docs, s.meals, s.names, ping)
		defer projector.Close()

		var (
			mu      sync.Mutex
			view    *relview.View
			lastIDs []string
		)
		syncFeed := func(v *relview.View) {
			ids := v.FriendIDs()
			mu.Lock()
			changed := !equalIDs(lastIDs, ids)
			if changed {
				lastIDs = ids
			}
			mu.Unlock()
			if changed {
				projector.SetFriends(ids)
			}
		}
		onViewUpdate := func() {
			mu.Lock()
			v := view
			mu.Unlock()
			if v != nil {
				syncFeed(v)
			}
			ping()
		}

		v, err := relview.Open(s.docs, s.engine, uid, onViewUpdate)
		if err != nil {
			log.Error("view open failed", "uid", uid, "error", err)
			return
		}
		defer v.Close()

		mu.Lock()
		view = v
		mu.Unlock()
		// Cover deliveries that raced the assignment above.
		syncFeed(v)
		ping()

		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case <-done:
				return
			case <-notify:
			}

			payload := updatePayload{
				Friends:  v.Friends(),
				Incoming: v.Incoming(),
				Outgoing: v.Outgoing(),
				Feed:     projector.Entries(),
			}
			if err := v.Err(); err != nil {
				payload.Error = err.Error()
			} else if err := projector.Err(); err != nil {
				payload.Error = err.Error()
			}

			if err := conn.WriteJSON(payload); err != nil {
				return
			}
		}
	})
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
