// Package server exposes the sync layer's accessors as an HTTP API.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"pulasafe/internal/backend"
	"pulasafe/internal/cache"
	"pulasafe/internal/config"
	"pulasafe/internal/featureflags"
	"pulasafe/internal/inflight"
	"pulasafe/internal/middleware"
	"pulasafe/internal/models"
	"pulasafe/internal/repository"
	"pulasafe/internal/service"
	"pulasafe/internal/storage"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
)

// inflightTTL bounds how long a crashed request can keep an action busy.
const inflightTTL = 30 * time.Second

type feedAPI interface {
	ListPosts(ctx context.Context, sess *models.Session, filter string) ([]models.Post, error)
	CreatePost(ctx context.Context, sess *models.Session, in service.CreatePostInput) (*models.Post, error)
	ToggleLikeByID(ctx context.Context, sess *models.Session, id int64) (*models.Post, error)
	DeletePostByID(ctx context.Context, sess *models.Session, id int64) error
}

type categoryAPI interface {
	ListCategories(ctx context.Context, sess *models.Session) models.CategoryResult
}

type messagingAPI interface {
	ListConversations(ctx context.Context, sess *models.Session) ([]models.ConversationEntry, error)
	FetchHistory(ctx context.Context, sess *models.Session, counterpartID string) ([]models.Message, error)
	SendMessage(ctx context.Context, sess *models.Session, in service.SendMessageInput) (*models.Message, error)
}

type authAPI interface {
	SignIn(ctx context.Context, email, password string) (*models.Session, error)
	SignUp(ctx context.Context, in service.SignUpInput) (*backend.SignUpResult, error)
	OAuthURL(provider string) (string, error)
	ResetPassword(ctx context.Context, email string) error
	Refresh(ctx context.Context, refreshToken string) (*models.Session, error)
	SignOut(ctx context.Context, sess *models.Session) error
}

type profileAPI interface {
	Get(ctx context.Context, sess *models.Session) (*models.Profile, error)
	Rename(ctx context.Context, sess *models.Session, fullName string) (*models.Profile, error)
}

// Services are the accessors the handlers call.
type Services struct {
	Feed       feedAPI
	Categories categoryAPI
	Messaging  messagingAPI
	Auth       authAPI
	Profile    profileAPI
}

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	backend        *backend.Client
	redis          *redis.Client
	guard          inflight.Guard
	photos         storage.ObjectStore
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	svc            Services
}

// NewServer builds the backend client, redis and object store from cfg and
// wires the accessors on top of them.
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	client := backend.New(cfg.SupabaseURL, cfg.SupabaseAnonKey, backend.WithTimeout(cfg.BackendTimeout()))

	photos, err := storage.Open(ctx, cfg, client)
	if err != nil {
		return nil, fmt.Errorf("object store: %w", err)
	}

	redisClient := cache.InitRedis(cfg.RedisURL)
	flags := featureflags.NewManager(cfg.FeatureFlags)

	svc := Services{
		Feed:       service.NewFeedService(repository.NewPostRepository(client), photos, cfg.PhotoMaxBytes()),
		Categories: service.NewCategoryService(repository.NewCategoryRepository(client)),
		Messaging:  service.NewMessagingService(repository.NewMessageRepository(client), flags),
		Auth:       service.NewAuthService(client.Auth(), cfg.PasswordResetRedirect, cfg.OAuthRedirect),
		Profile:    service.NewProfileService(repository.NewProfileRepository(client)),
	}

	s := NewServerWithDeps(cfg, svc, redisClient)
	s.backend = client
	s.photos = photos
	return s, nil
}

// NewServerWithDeps creates a Server from already-built accessors. redisClient
// may be nil; the in-flight guard is then per-process and rate limits fail open.
func NewServerWithDeps(cfg *config.Config, svc Services, redisClient *redis.Client) *Server {
	middleware.InitMiddleware(cfg)

	var guard inflight.Guard = inflight.NewLocal()
	if redisClient != nil {
		guard = inflight.NewRedis(redisClient, inflightTTL)
	}

	return &Server{
		config:         cfg,
		redis:          redisClient,
		guard:          guard,
		promMiddleware: gatewayMetrics(),
		svc:            svc,
	}
}

var (
	promOnce sync.Once
	prom     *fiberprometheus.FiberPrometheus
)

// gatewayMetrics registers the HTTP collectors once per process.
func gatewayMetrics() *fiberprometheus.FiberPrometheus {
	promOnce.Do(func() {
		prom = fiberprometheus.New("pulasafe-gateway")
	})
	return prom
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(s.promMiddleware.Middleware)
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:8081,http://localhost:19006"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		MaxAge:       86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: time.Minute,
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
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/signin", middleware.RateLimit(s.redis, 10, 5*time.Minute, "signin"), s.SignIn)
	auth.Post("/signup", middleware.RateLimit(s.redis, 3, 10*time.Minute, "signup"), s.SignUp)
	auth.Post("/recover", middleware.RateLimit(s.redis, 3, 10*time.Minute, "recover"), s.RecoverPassword)
	auth.Post("/refresh", s.Refresh)
	auth.Get("/oauth/:provider", s.OAuthRedirect)
	auth.Post("/signout", middleware.AuthRequired, s.SignOut)

	api.Get("/categories", middleware.OptionalAuth, s.GetCategories)
	api.Get("/posts", middleware.OptionalAuth, s.GetPosts)

	protected := api.Group("", middleware.AuthRequired)

	posts := protected.Group("/posts")
	posts.Post("/", middleware.Inflight(s.guard, "create_post", ""), s.CreatePost)
	posts.Post("/:id/like", middleware.Inflight(s.guard, "like", "id"), s.ToggleLike)
	posts.Delete("/:id", middleware.Inflight(s.guard, "delete_post", "id"), s.DeletePost)

	messages := protected.Group("/messages")
	messages.Get("/", s.GetConversations)
	messages.Get("/:counterpartId", s.GetHistory)
	messages.Post("/:counterpartId", middleware.Inflight(s.guard, "send_message", "counterpartId"), s.SendMessage)

	protected.Get("/profile", s.GetProfile)
	protected.Patch("/profile", s.UpdateProfile)
}

// App builds the Fiber app with middleware and routes installed.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:   "Pula Safe Gateway",
		BodyLimit: int(s.config.PhotoMaxBytes()) + 1<<20,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			slog.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// Start serves on the configured port until the app is shut down.
func (s *Server) Start() error {
	s.app = s.App()
	slog.Info("gateway starting", slog.String("port", s.config.Port))
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown stops the HTTP server and releases its clients.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			slog.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}
	if closer, ok := s.photos.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			slog.Error("error closing object store", slog.String("error", err.Error()))
		}
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			slog.Error("error closing redis", slog.String("error", err.Error()))
		}
	}
	slog.Info("gateway shutdown complete")
	return nil
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck reports whether the backend is configured and redis answers.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	backendStatus := "configured"
	if s.backend != nil && !s.backend.Configured() {
		backendStatus = "unconfigured"
	}

	redisStatus := "healthy"
	if s.redis == nil {
		redisStatus = "unavailable"
	} else if err := s.redis.Ping(ctx).Err(); err != nil {
		redisStatus = "unhealthy"
	}

	status := fiber.StatusOK
	overall := "healthy"
	if backendStatus != "configured" || redisStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": fiber.Map{
			"backend": backendStatus,
			"redis":   redisStatus,
		},
		"time": time.Now(),
	})
}
