package server

import (
	"strings"
	"time"

	"spilledin/internal/cache"
	"spilledin/internal/middleware"
	"spilledin/internal/models"
	"spilledin/internal/validation"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

type authResponse struct {
	Token string              `json:"token"`
	User  *models.UserProfile `json:"user"`
}

// LookupInvite handles GET /api/auth/invite/:code
// @Summary Resolve an invite code
// @Description Returns the company an invite code belongs to
// @Tags auth
// @Produce json
// @Param code path string true "Invite code"
// @Success 200 {object} object{company=object{name=string}}
// @Failure 404 {object} models.ErrorResponse
// @Router /auth/invite/{code} [get]
func (s *Server) LookupInvite(c *fiber.Ctx) error {
	code := validation.NormalizeInviteCode(c.Params("code"))
	company, err := s.companyRepo.GetByInviteCode(c.UserContext(), code)
	if err != nil {
		if mapServiceError(err) == fiber.StatusNotFound {
			return models.RespondWithError(c, fiber.StatusNotFound,
				models.NewNotFoundMessage("Invalid invite code"))
		}
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{
		"company": fiber.Map{"name": company.Name},
	})
}

// Register handles POST /api/auth/register
// @Summary Register with an invite code
// @Description Creates an account in the invite code's company and returns a token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{email=string,password=string,invite_code=string} true "Registration"
// @Success 201 {object} authResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /auth/register [post]
func (s *Server) Register(c *fiber.Ctx) error {
	var req struct {
		Email      string `json:"email"`
		Password   string `json:"password"`
		InviteCode string `json:"invite_code"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	ctx := c.UserContext()

	if req.Email == "" || req.Password == "" || req.InviteCode == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Email, password, and invite code are required"))
	}

	company, err := s.companyRepo.GetByInviteCode(ctx, validation.NormalizeInviteCode(req.InviteCode))
	if err != nil {
		if mapServiceError(err) == fiber.StatusNotFound {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Invalid invite code"))
		}
		return respondServiceError(c, err)
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if err := validation.ValidateEmail(email); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(err.Error()))
	}
	if err := validation.ValidatePassword(req.Password); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(err.Error()))
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	username, err := s.usernames.GenerateUnique(ctx)
	if err != nil {
		return respondServiceError(c, err)
	}

	user := &models.UserProfile{
		CompanyID:         company.ID,
		Email:             email,
		Password:          string(hashedPassword),
		AnonymousUsername: username,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return respondServiceError(c, err)
	}
	user.Company = company

	token, _, err := s.issueToken(user)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	middleware.Logger.InfoContext(ctx, "user registered", "user_id", user.ID, "company_id", company.ID)
	return c.Status(fiber.StatusCreated).JSON(authResponse{Token: token, User: user})
}

// Login handles POST /api/auth/login
// @Summary User login
// @Description Authenticate user and return JWT token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{email=string,password=string} true "Login credentials"
// @Success 200 {object} authResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if req.Email == "" || req.Password == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Email and password are required"))
	}

	user, err := s.userRepo.GetByEmail(c.UserContext(), req.Email)
	if err != nil {
		if mapServiceError(err) == fiber.StatusNotFound {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid credentials"))
		}
		return respondServiceError(c, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Invalid credentials"))
	}

	token, _, err := s.issueToken(user)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	return c.JSON(authResponse{Token: token, User: user})
}

// Logout handles POST /api/auth/logout
// @Summary Revoke the current token
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{message=string}
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/logout [post]
func (s *Server) Logout(c *fiber.Ctx) error {
	jti, _ := c.Locals("tokenJTI").(string)
	exp, _ := c.Locals("tokenExp").(time.Time)
	if ttl := time.Until(exp); jti != "" && ttl > 0 {
		if err := cache.SetFlag(c.UserContext(), cache.BlacklistKey(jti), ttl); err != nil {
			middleware.Logger.WarnContext(c.UserContext(), "failed to blacklist token", "error", err)
		}
	}
	return c.JSON(fiber.Map{"message": "Logged out successfully"})
}

// ChangePassword handles PUT /api/auth/password
// @Summary Change password
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{current_password=string,new_password=string} true "Passwords"
// @Success 200 {object} object{message=string}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/password [put]
func (s *Server) ChangePassword(c *fiber.Ctx) error {
	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	ctx := c.UserContext()

	user, err := s.userRepo.GetByID(ctx, userID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.CurrentPassword)); err != nil {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Current password is incorrect"))
	}
	if err := validation.ValidatePassword(req.NewPassword); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(err.Error()))
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}
	if err := s.userRepo.UpdatePassword(ctx, user.ID, string(hashedPassword)); err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Password updated successfully"})
}

func (s *Server) issueToken(user *models.UserProfile) (string, *middleware.TokenClaims, error) {
	ttl := time.Duration(s.config.JWTTTLHours) * time.Hour
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return middleware.IssueToken(s.config.JWTSecret, user.ID, user.AnonymousUsername, ttl)
}
