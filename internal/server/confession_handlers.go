package server

import (
	"io"
	"strings"

	"spilledin/internal/models"
	"spilledin/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateConfession handles POST /api/confession/create
// @Summary Post an anonymous confession
// @Tags confessions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{content=string,image_url=string} true "Confession"
// @Success 201 {object} object{confession=models.Confession}
// @Failure 400 {object} models.ErrorResponse
// @Router /confession/create [post]
func (s *Server) CreateConfession(c *fiber.Ctx) error {
	var req struct {
		Content  string `json:"content"`
		ImageURL string `json:"image_url"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	confession, err := s.confessionService.CreateConfession(c.UserContext(), service.CreateConfessionInput{
		Viewer:   viewer(c),
		Content:  req.Content,
		ImageURL: req.ImageURL,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"confession": confession})
}

// DeleteConfession handles DELETE /api/confession/:id
// @Summary Delete one of your confessions
// @Tags confessions
// @Produce json
// @Security BearerAuth
// @Param id path int true "Confession ID"
// @Success 200 {object} object{message=string}
// @Failure 404 {object} models.ErrorResponse
// @Router /confession/{id} [delete]
func (s *Server) DeleteConfession(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.confessionService.DeleteConfession(c.UserContext(), viewer(c), id); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Confession deleted successfully"})
}

// CastVote handles POST /api/confession/:id/vote
// @Summary Toggle a vote on a confession
// @Description Voting the same way twice clears the vote
// @Tags confessions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Confession ID"
// @Param request body object{vote_type=string} true "upvote or downvote"
// @Success 200 {object} models.VoteResult
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /confession/{id}/vote [post]
func (s *Server) CastVote(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		VoteType string `json:"vote_type"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	result, err := s.confessionService.CastVote(c.UserContext(), service.VoteInput{
		Viewer:       viewer(c),
		ConfessionID: id,
		VoteType:     req.VoteType,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(result)
}

// GetFeed handles GET /api/feed
// @Summary Company confession feed
// @Tags feed
// @Produce json
// @Security BearerAuth
// @Param search query string false "Matches content or author username"
// @Param sort query string false "latest or popular"
// @Param limit query int false "Page size (max 100)"
// @Param offset query int false "Offset"
// @Success 200 {object} service.FeedPage
// @Router /feed [get]
func (s *Server) GetFeed(c *fiber.Ctx) error {
	page := parsePagination(c, defaultFeedLimit)
	feed, err := s.confessionService.GetFeed(c.UserContext(), service.FeedInput{
		Viewer: viewer(c),
		Search: strings.TrimSpace(c.Query("search")),
		Sort:   c.Query("sort"),
		Limit:  page.Limit,
		Offset: page.Offset,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(feed)
}

// GetConfession handles GET /api/feed/:id
// @Summary Single confession
// @Tags feed
// @Produce json
// @Security BearerAuth
// @Param id path int true "Confession ID"
// @Success 200 {object} models.Confession
// @Failure 404 {object} models.ErrorResponse
// @Router /feed/{id} [get]
func (s *Server) GetConfession(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	confession, err := s.confessionService.GetConfession(c.UserContext(), viewer(c), id)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(confession)
}

// UploadImage handles POST /api/confession/image/upload
// @Summary Upload a confession image
// @Description Stored as WebP and served under /media/confessions
// @Tags confessions
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param image formData file true "Image"
// @Success 200 {object} service.UploadedImage
// @Failure 400 {object} models.ErrorResponse
// @Router /confession/image/upload [post]
func (s *Server) UploadImage(c *fiber.Ctx) error {
	file, err := c.FormFile("image")
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("No file uploaded"))
	}

	src, err := file.Open()
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Unable to read uploaded file"))
	}
	defer func() { _ = src.Close() }()

	content, err := io.ReadAll(src)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Unable to read uploaded file"))
	}

	uploaded, err := s.imageService.Upload(c.UserContext(), service.UploadImageInput{
		UserID:      userID(c),
		Filename:    file.Filename,
		ContentType: file.Header.Get("Content-Type"),
		Content:     content,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(uploaded)
}
