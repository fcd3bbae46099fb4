package server

import (
	"github.com/gofiber/fiber/v2"

	"mealcraft/internal/models"
)

// SearchUserByEmail handles GET /api/users/search?email=
func (s *Server) SearchUserByEmail(c *fiber.Ctx) error {
	user, err := s.engine.SearchUserByEmail(c.Context(), c.Query("email"))
	if err != nil {
		return respondError(c, err)
	}
	if user == nil {
		return models.RespondWithError(c, fiber.StatusNotFound,
			models.NewNotFoundError("user", c.Query("email")))
	}
	return c.JSON(user.Public())
}

// GetFriends handles GET /api/friends
func (s *Server) GetFriends(c *fiber.Ctx) error {
	friends, err := s.engine.Friends(c.Context(), currentUID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(friends)
}

// GetIncomingRequests handles GET /api/friends/requests
func (s *Server) GetIncomingRequests(c *fiber.Ctx) error {
	reqs, err := s.engine.Incoming(c.Context(), currentUID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(reqs)
}

// GetOutgoingRequests handles GET /api/friends/requests/sent
func (s *Server) GetOutgoingRequests(c *fiber.Ctx) error {
	reqs, err := s.engine.Outgoing(c.Context(), currentUID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(reqs)
}

// SendFriendRequest handles POST /api/friends/requests/:userId
func (s *Server) SendFriendRequest(c *fiber.Ctx) error {
	peerID, ok := requireParam(c, "userId")
	if !ok {
		return nil
	}
	if err := s.engine.SendRequest(c.Context(), currentUID(c), peerID); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusCreated)
}

// AcceptFriendRequest handles POST /api/friends/requests/:userId/accept
func (s *Server) AcceptFriendRequest(c *fiber.Ctx) error {
	peerID, ok := requireParam(c, "userId")
	if !ok {
		return nil
	}
	if err := s.engine.AcceptRequest(c.Context(), currentUID(c), peerID); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// RejectFriendRequest handles DELETE /api/friends/requests/:userId
func (s *Server) RejectFriendRequest(c *fiber.Ctx) error {
	peerID, ok := requireParam(c, "userId")
	if !ok {
		return nil
	}
	if err := s.engine.RejectRequest(c.Context(), currentUID(c), peerID); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// CancelFriendRequest handles DELETE /api/friends/requests/sent/:userId
func (s *Server) CancelFriendRequest(c *fiber.Ctx) error {
	peerID, ok := requireParam(c, "userId")
	if !ok {
		return nil
	}
	if err := s.engine.CancelRequest(c.Context(), currentUID(c), peerID); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// RemoveFriend handles DELETE /api/friends/:userId
func (s *Server) RemoveFriend(c *fiber.Ctx) error {
	peerID, ok := requireParam(c, "userId")
	if !ok {
		return nil
	}
	if err := s.engine.RemoveFriend(c.Context(), currentUID(c), peerID); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
