package server

import (
	"spilledin/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetProfile handles GET /api/users/profile
// @Summary Current user's profile
// @Description Profile with company, posting stats and toxicity tier
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} service.ProfileView
// @Failure 404 {object} models.ErrorResponse
// @Router /users/profile [get]
func (s *Server) GetProfile(c *fiber.Ctx) error {
	view, err := s.profileService.GetProfile(c.UserContext(), userID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(view)
}

// UpdateProfile handles PUT /api/users/profile
// @Summary Change anonymous username
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{anonymous_username=string} true "New username"
// @Success 200 {object} service.ProfileView
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /users/profile [put]
func (s *Server) UpdateProfile(c *fiber.Ctx) error {
	var req struct {
		AnonymousUsername string `json:"anonymous_username"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	view, err := s.profileService.UpdateUsername(c.UserContext(), userID(c), req.AnonymousUsername)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(view)
}

// GetToxicityHistory handles GET /api/users/toxicity-history
// @Summary Toxicity score history
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{history=[]models.ToxicityHistoryEntry}
// @Router /users/toxicity-history [get]
func (s *Server) GetToxicityHistory(c *fiber.Ctx) error {
	history, err := s.profileService.ToxicityHistory(c.UserContext(), userID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"history": history})
}

// RegenerateUsername handles POST /api/users/regenerate-username
// @Summary Pick a new random username
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{username=string}
// @Router /users/regenerate-username [post]
func (s *Server) RegenerateUsername(c *fiber.Ctx) error {
	username, err := s.profileService.RegenerateUsername(c.UserContext(), userID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"username": username})
}

// GetAwards handles GET /api/users/awards
// @Summary Awards earned by the current user
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{awards=[]models.Award}
// @Router /users/awards [get]
func (s *Server) GetAwards(c *fiber.Ctx) error {
	awards, err := s.profileService.Awards(c.UserContext(), userID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	if awards == nil {
		awards = []models.Award{}
	}
	return c.JSON(fiber.Map{"awards": awards})
}

// DeleteAccount handles DELETE /api/users/account
// @Summary Delete the current account and everything it posted
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{message=string}
// @Router /users/account [delete]
func (s *Server) DeleteAccount(c *fiber.Ctx) error {
	if err := s.profileService.DeleteAccount(c.UserContext(), userID(c)); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Account deleted successfully"})
}
