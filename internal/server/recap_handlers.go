package server

import (
	"spilledin/internal/models"
	"spilledin/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// GenerateSummary handles POST /api/generate-summary
// @Summary AI recap of a company month
// @Description Ended months are stored and served from storage unless force is set
// @Tags recap
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{month=int,year=int,force=bool} true "Period"
// @Success 200 {object} object{success=bool,data=service.RecapResult}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Router /generate-summary [post]
func (s *Server) GenerateSummary(c *fiber.Ctx) error {
	var req struct {
		Month int  `json:"month"`
		Year  int  `json:"year"`
		Force bool `json:"force"`
	}
	// Non-numeric periods get the same answer as out-of-range ones.
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(validation.InvalidPeriodMessage))
	}

	result, err := s.recapService.GenerateSummary(c.UserContext(), viewer(c).CompanyID, req.Month, req.Year, req.Force)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    result,
	})
}

// GetWrapped handles GET /api/wrapped
// @Summary Toxic Wrapped for a company month
// @Tags recap
// @Produce json
// @Security BearerAuth
// @Param month query int false "Month (defaults to the current month)"
// @Param year query int false "Year (defaults to the current year)"
// @Success 200 {object} service.WrappedResult
// @Failure 400 {object} models.ErrorResponse
// @Router /wrapped [get]
func (s *Server) GetWrapped(c *fiber.Ctx) error {
	month, year := currentPeriod()
	month = c.QueryInt("month", month)
	year = c.QueryInt("year", year)

	result, err := s.wrappedService.GetWrapped(c.UserContext(), viewer(c).CompanyID, month, year)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(result)
}
