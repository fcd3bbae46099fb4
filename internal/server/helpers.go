package server

import (
	"mealcraft/internal/models"

	"github.com/gofiber/fiber/v2"
)

// currentUID returns the authenticated user id placed by the auth middleware.
func currentUID(c *fiber.Ctx) string {
	uid, _ := c.Locals("userID").(string)
	return uid
}

// respondError maps an application error onto the standard error response.
func respondError(c *fiber.Ctx, err error) error {
	return models.RespondWithError(c, models.StatusForError(err), err)
}

// requireParam extracts a non-empty route parameter, writing a 400 response
// when it is missing. Callers should check: if !ok { return nil }.
func requireParam(c *fiber.Ctx, name string) (string, bool) {
	val := c.Params(name)
	if val == "" {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Missing "+name+" parameter"))
		return "", false
	}
	return val, true
}
