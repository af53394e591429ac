// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	_ "spilledin/docs" // swagger docs
	"spilledin/internal/cache"
	"spilledin/internal/config"
	"spilledin/internal/database"
	"spilledin/internal/llm"
	"spilledin/internal/middleware"
	"spilledin/internal/models"
	"spilledin/internal/notifications"
	"spilledin/internal/repository"
	"spilledin/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	companyRepo    repository.CompanyRepository
	userRepo       repository.UserRepository
	confessionRepo repository.ConfessionRepository
	voteRepo       repository.VoteRepository
	awardRepo      repository.AwardRepository
	recapRepo      repository.RecapRepository

	notifier *notifications.Notifier
	hub      *notifications.Hub

	usernames         *service.UsernameGenerator
	awardService      *service.AwardService
	confessionService *service.ConfessionService
	profileService    *service.ProfileService
	recapService      *service.RecapService
	wrappedService    *service.WrappedService
	imageService      *service.ImageService
}

// Option customises a Server built by NewServerWithDeps.
type Option func(*serverOptions)

type serverOptions struct {
	summarizer service.Summarizer
}

// WithSummarizer replaces the OpenAI client used for monthly recaps.
func WithSummarizer(s service.Summarizer) Option {
	return func(o *serverOptions) { o.summarizer = s }
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	return NewServerWithDeps(cfg, db, cache.GetClient())
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, opts ...Option) (*Server, error) {
	o := serverOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.summarizer == nil {
		o.summarizer = llm.NewClient(cfg)
	}

	// Services read the cache through the package-level client.
	cache.SetClient(redisClient)

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("spilledin-api"),
		companyRepo:    repository.NewCompanyRepository(db),
		userRepo:       repository.NewUserRepository(db),
		confessionRepo: repository.NewConfessionRepository(db),
		voteRepo:       repository.NewVoteRepository(db),
		awardRepo:      repository.NewAwardRepository(db),
		recapRepo:      repository.NewRecapRepository(db),
		hub:            notifications.NewHub(),
	}
	if redisClient != nil {
		server.notifier = notifications.NewNotifier(redisClient)
	}

	usernames, err := service.NewUsernameGenerator(server.userRepo.UsernameExists)
	if err != nil {
		return nil, err
	}
	server.usernames = usernames
	server.awardService = service.NewAwardService(server.awardRepo)
	server.confessionService = service.NewConfessionService(server.confessionRepo, server.voteRepo, server.awardService, server)
	server.profileService = service.NewProfileService(server.userRepo, server.confessionRepo, server.awardService, usernames, server)
	server.recapService = service.NewRecapService(server.confessionRepo, server.userRepo, server.recapRepo, o.summarizer)
	server.wrappedService = service.NewWrappedService(server.confessionRepo, server.userRepo)
	server.imageService = service.NewImageService(cfg)

	return server, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Context Middleware to propagate Request ID and User ID
	app.Use(middleware.ContextMiddleware())
	app.Use(middleware.TracingMiddleware())

	// Prometheus Metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Uploaded images are embedded by the web client from another origin.
	app.Use(helmet.New(helmet.Config{
		CrossOriginResourcePolicy: "cross-origin",
	}))

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// CORS middleware should run before middlewares that can short-circuit (e.g. limiter)
	// so browser clients still receive CORS headers on error responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:3000,http://127.0.0.1:3000"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		// Never rate-limit preflight requests; they should be handled by CORS.
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "SpilledIn Backend Metrics Dashboard",
	}))

	// Swagger documentation
	api.Get("/swagger/*", swagger.HandlerDefault)

	// Uploaded confession images
	app.Static(strings.TrimSuffix(service.ImageURLPrefix, "/"), s.imageService.UploadDir(), fiber.Static{
		MaxAge: 86400,
	})

	// Auth routes
	auth := api.Group("/auth")
	auth.Get("/invite/:code", middleware.RateLimit(
		s.redis, 30, time.Minute, "invite_lookup"), s.LookupInvite)
	auth.Post("/register", middleware.RateLimit(
		s.redis, 3, 10*time.Minute, "register"), s.Register)
	auth.Post("/login", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "login"), s.Login)
	auth.Post("/logout", s.AuthRequired(), s.Logout)
	auth.Put("/password", s.AuthRequired(), middleware.RateLimit(
		s.redis, 5, 10*time.Minute, "change_password"), s.ChangePassword)

	// WebSocket ticket and feed. The socket authenticates with the ticket.
	api.Post("/ws/ticket", s.AuthRequired(), s.IssueWSTicket)
	api.Get("/ws", s.AuthRequired(), s.WebSocketUpgrade(), s.WebSocketFeed())

	// Protected routes
	protected := api.Group("", s.AuthRequired())

	// User routes
	users := protected.Group("/users")
	users.Get("/profile", s.GetProfile)
	users.Put("/profile", s.UpdateProfile)
	users.Get("/toxicity-history", s.GetToxicityHistory)
	users.Post("/regenerate-username", middleware.RateLimit(
		s.redis, 10, time.Hour, "regenerate_username"), s.RegenerateUsername)
	users.Get("/awards", s.GetAwards)
	users.Delete("/account", s.DeleteAccount)

	// Confession routes
	confessions := protected.Group("/confession")
	confessions.Post("/image/upload", middleware.RateLimit(
		s.redis, 10, 10*time.Minute, "upload_image"), s.UploadImage)
	confessions.Post("/create", middleware.RateLimit(
		s.redis, 10, time.Minute, "create_confession"), s.CreateConfession)
	confessions.Post("/:id/vote", middleware.RateLimit(
		s.redis, 60, time.Minute, "vote"), s.CastVote)
	confessions.Delete("/:id", s.DeleteConfession)

	// Feed routes
	protected.Get("/feed", s.GetFeed)
	protected.Get("/feed/:id", s.GetConfession)

	// Monthly recap and wrapped
	protected.Post("/generate-summary", middleware.RateLimit(
		s.redis, 5, time.Minute, "generate_summary"), s.GenerateSummary)
	protected.Get("/wrapped", s.GetWrapped)

	// Admin routes
	admin := protected.Group("/admin", s.AdminRequired())
	admin.Get("/companies", s.ListCompanies)
	admin.Post("/companies", s.CreateCompany)
	admin.Post("/awards", s.GrantMonthlyAwards)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	// Redis is optional; without it the API runs uncached on one instance.
	redisStatus := "disabled"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"message": "SpilledIn API",
		"version": "1.0.0",
		"status":  overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// AuthRequired authenticates the request. WebSocket upgrades present a
// single-use ticket, everything else a bearer token.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		var userID uint

		if ticket := c.Query("ticket"); ticket != "" {
			var payload wsTicket
			found, err := cache.TakeJSON(ctx, cache.WSTicketKey(ticket), &payload)
			if err != nil && !errors.Is(err, cache.ErrUnavailable) {
				return models.RespondWithError(c, fiber.StatusServiceUnavailable,
					models.NewUnavailableError("Failed to validate WebSocket ticket", "", err))
			}
			if !found {
				return models.RespondWithError(c, fiber.StatusUnauthorized,
					models.NewUnauthorizedError("Invalid or expired WebSocket ticket"))
			}
			userID = payload.UserID
		} else {
			if strings.HasPrefix(c.Path(), "/api/ws") && c.Method() == fiber.MethodGet {
				return models.RespondWithError(c, fiber.StatusUnauthorized,
					models.NewUnauthorizedError("No token provided"))
			}

			tokenString, err := middleware.BearerToken(c)
			if err != nil {
				return models.RespondWithError(c, fiber.StatusUnauthorized,
					models.NewUnauthorizedError("No token provided"))
			}
			claims, err := middleware.ParseToken(s.config.JWTSecret, tokenString)
			if err != nil {
				return models.RespondWithError(c, fiber.StatusUnauthorized,
					models.NewUnauthorizedError("Invalid token"))
			}

			// Logged-out tokens stay revoked until they would have expired.
			revoked, err := cache.Exists(ctx, cache.BlacklistKey(claims.JTI))
			if err != nil && !errors.Is(err, cache.ErrUnavailable) {
				middleware.Logger.WarnContext(ctx, "token blacklist lookup failed", "error", err)
			}
			if revoked {
				return models.RespondWithError(c, fiber.StatusUnauthorized,
					models.NewUnauthorizedError("Invalid token"))
			}
			c.Locals("tokenJTI", claims.JTI)
			c.Locals("tokenExp", claims.ExpiresAt)
			userID = claims.UserID
		}

		// The account may have been deleted after the token was issued.
		user, err := s.userRepo.GetByID(ctx, userID)
		if err != nil {
			if models.StatusFor(err) == fiber.StatusNotFound {
				return models.RespondWithError(c, fiber.StatusUnauthorized,
					models.NewUnauthorizedError("Invalid token"))
			}
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		}

		c.Locals("userID", user.ID)
		c.Locals("companyID", user.CompanyID)
		c.Locals("isAdmin", user.IsAdmin)
		// Sync to UserContext for logging and downstream services
		c.SetUserContext(context.WithValue(ctx, middleware.UserIDKey, user.ID))
		return c.Next()
	}
}

// AdminRequired restricts a route to operators. Must run after AuthRequired.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if admin, _ := c.Locals("isAdmin").(bool); !admin {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Admin access required"))
		}
		return c.Next()
	}
}

// NewApp builds a fiber app with the error handler, middleware and routes
// installed.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:   "SpilledIn API",
		BodyLimit: int(s.imageService.MaxUploadSizeBytes()) + 1<<20,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return models.RespondWithError(c, fe.Code, &models.AppError{Message: fe.Message})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", "error", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// Start starts the server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	s.app = s.NewApp()

	if s.notifier != nil {
		if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
			log.Printf("failed to start %s wiring: %v", s.hub.Name(), err)
		}
	}

	log.Printf("Server starting on port %s...", s.config.Port)
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	// Cancel the server-scoped context to stop the feed subscriber
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	if err := s.hub.Shutdown(ctx); err != nil {
		log.Printf("error shutting down %s: %v", s.hub.Name(), err)
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Printf("error closing sql DB: %v", cerr)
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			log.Printf("error closing redis: %v", rerr)
		}
	}

	log.Println("Server shutdown complete")
	return nil
}
