package server

import (
	"github.com/gofiber/fiber/v2"

	"mealcraft/internal/feed"
)

// GetFeed handles GET /api/feed: a one-shot projection of friends' public
// meal logs, newest first. Live updates go over the WebSocket stream.
func (s *Server) GetFeed(c *fiber.Ctx) error {
	uid := currentUID(c)

	friends, err := s.engine.Friends(c.Context(), uid)
	if err != nil {
		return respondError(c, err)
	}
	ids := make([]string, len(friends))
	for i, f := range friends {
		ids[i] = f.ID
	}

	entries, err := feed.Fetch(c.Context(), s.docs, s.names, ids)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(entries)
}

// ToggleLike handles POST /api/feed/:ownerId/:logId/like: adds the caller
// to the log's like set, or removes them if already present.
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	ownerID, ok := requireParam(c, "ownerId")
	if !ok {
		return nil
	}
	logID, ok := requireParam(c, "logId")
	if !ok {
		return nil
	}
	uid := currentUID(c)

	log, err := s.meals.Get(c.Context(), ownerID, logID)
	if err != nil {
		return respondError(c, err)
	}

	if log.LikedBy(uid) {
		err = s.meals.Unlike(c.Context(), ownerID, logID, uid)
	} else {
		err = s.meals.Like(c.Context(), ownerID, logID, uid)
	}
	if err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
