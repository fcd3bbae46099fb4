package server

import (
	"bytes"

	"mealcraft/internal/meallog"
	"mealcraft/internal/models"

	"github.com/gofiber/fiber/v2"
)

// ListMealLogs handles GET /api/meals
func (s *Server) ListMealLogs(c *fiber.Ctx) error {
	logs, err := s.meals.List(c.Context(), currentUID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(logs)
}

// CreateMealLog handles POST /api/meals
func (s *Server) CreateMealLog(c *fiber.Ctx) error {
	var log models.MealLog
	if err := c.BodyParser(&log); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	created, err := s.meals.Add(c.Context(), currentUID(c), log)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

type mealUpdateRequest struct {
	Description   *string        `json:"description"`
	TotalCalories *int           `json:"totalCalories"`
	Dishes        *[]models.Dish `json:"dishes"`
}

// UpdateMealLog handles PUT /api/meals/:id
func (s *Server) UpdateMealLog(c *fiber.Ctx) error {
	logID, ok := requireParam(c, "id")
	if !ok {
		return nil
	}

	var req mealUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	err := s.meals.Update(c.Context(), currentUID(c), logID, meallog.UpdateParams{
		Description:   req.Description,
		TotalCalories: req.TotalCalories,
		Dishes:        req.Dishes,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// DeleteMealLog handles DELETE /api/meals/:id
func (s *Server) DeleteMealLog(c *fiber.Ctx) error {
	logID, ok := requireParam(c, "id")
	if !ok {
		return nil
	}
	if err := s.meals.Delete(c.Context(), currentUID(c), logID); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type privacyRequest struct {
	IsPublic bool `json:"isPublic"`
}

// SetMealPrivacy handles PUT /api/meals/:id/privacy. Only the owner can
// reach this path: the log is addressed inside the caller's own collection.
func (s *Server) SetMealPrivacy(c *fiber.Ctx) error {
	logID, ok := requireParam(c, "id")
	if !ok {
		return nil
	}

	var req privacyRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if err := s.meals.SetPrivacy(c.Context(), currentUID(c), logID, req.IsPublic); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// AnalyzeMeal handles POST /api/meals/analyze: forwards the uploaded photo
// to the analysis service and returns the structured breakdown.
func (s *Server) AnalyzeMeal(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("photo")
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("No file received"))
	}

	file, err := fileHeader.Open()
	if err != nil {
		return respondError(c, models.NewInternalError(err))
	}
	defer file.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(file); err != nil {
		return respondError(c, models.NewInternalError(err))
	}

	analysis, err := s.analyzer.Analyze(c.Context(), fileHeader.Filename, &buf)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(analysis)
}
