package server

import (
	"strings"

	"spilledin/internal/middleware"
	"spilledin/internal/models"
	"spilledin/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// ListCompanies handles GET /api/admin/companies
// @Summary List companies
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{companies=[]models.Company}
// @Failure 403 {object} models.ErrorResponse
// @Router /admin/companies [get]
func (s *Server) ListCompanies(c *fiber.Ctx) error {
	companies, err := s.companyRepo.List(c.UserContext())
	if err != nil {
		return respondServiceError(c, err)
	}
	if companies == nil {
		companies = []models.Company{}
	}
	return c.JSON(fiber.Map{"companies": companies})
}

// CreateCompany handles POST /api/admin/companies
// @Summary Create a company
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{name=string,invite_code=string} true "Company"
// @Success 201 {object} models.Company
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /admin/companies [post]
func (s *Server) CreateCompany(c *fiber.Ctx) error {
	var req struct {
		Name       string `json:"name"`
		InviteCode string `json:"invite_code"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Company name is required"))
	}
	code := validation.NormalizeInviteCode(req.InviteCode)
	if err := validation.ValidateInviteCode(code); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(err.Error()))
	}

	company := &models.Company{Name: name, InviteCode: code}
	if err := s.companyRepo.Create(c.UserContext(), company); err != nil {
		return respondServiceError(c, err)
	}
	middleware.Logger.InfoContext(c.UserContext(), "company created", "company_id", company.ID)
	return c.Status(fiber.StatusCreated).JSON(company)
}

// GrantMonthlyAwards handles POST /api/admin/awards
// @Summary Grant monthly awards for a company
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{company_id=int,month=int,year=int} true "Company and period"
// @Success 200 {object} object{awards=[]models.Award}
// @Failure 400 {object} models.ErrorResponse
// @Router /admin/awards [post]
func (s *Server) GrantMonthlyAwards(c *fiber.Ctx) error {
	var req struct {
		CompanyID uint `json:"company_id"`
		Month     int  `json:"month"`
		Year      int  `json:"year"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	ctx := c.UserContext()

	if _, err := s.companyRepo.GetByID(ctx, req.CompanyID); err != nil {
		return respondServiceError(c, err)
	}
	awards, err := s.awardService.GrantMonthly(ctx, req.CompanyID, req.Month, req.Year)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"awards": awards})
}
