package server

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sifan077/QuickLink/config"
	"github.com/sifan077/QuickLink/internal/app/service"
	inthttp "github.com/sifan077/QuickLink/internal/http/handler"
	"github.com/sifan077/QuickLink/internal/http/middleware"
	"go.uber.org/zap"
)

// Dependencies bundles what the HTTP server needs to serve requests.
type Dependencies struct {
	Logger      *zap.Logger
	App         config.AppConfig
	LinkService service.LinkService
	// Redis backs the create-endpoint rate limiter when RateLimit is enabled.
	Redis       redis.Cmdable
	RateLimit   config.RateLimitConfig
	HTTPMetrics *middleware.HTTPMetrics
}

// Server wraps the Fiber application and its dependencies.
type Server struct {
	app  *fiber.App
	deps Dependencies
}

// New creates a new HTTP server instance with all routes registered.
func New(deps Dependencies) *Server {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	app := fiber.New(fiber.Config{
		AppName:               deps.App.Name,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(deps.Logger),
	})

	s := &Server{
		app:  app,
		deps: deps,
	}

	s.registerMiddleware()
	s.registerRoutes()
	return s
}

// App exposes the underlying fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen starts the Fiber server on the given address.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the Fiber server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) registerMiddleware() {
	s.app.Use(middleware.Recovery(s.deps.Logger))
	s.app.Use(middleware.RequestID())
	s.app.Use(middleware.Logger(s.deps.Logger.Named("http")))
	if s.deps.HTTPMetrics != nil {
		s.app.Use(s.deps.HTTPMetrics.Handler())
	}
	s.app.Use("/api", middleware.CORS())
}

func (s *Server) registerRoutes() {
	var createMW []fiber.Handler
	if s.deps.RateLimit.Enabled && s.deps.Redis != nil {
		createMW = append(createMW, middleware.RateLimit(s.deps.Redis, middleware.RateLimitConfig{
			MaxRequests: s.deps.RateLimit.MaxRequests,
			Window:      s.deps.RateLimit.Window,
		}, s.deps.Logger.Named("ratelimit")))
	}

	handlerLogger := s.deps.Logger.Named("handler")

	inthttp.NewAPIHandler(inthttp.APIDeps{
		Logger:      handlerLogger,
		LinkService: s.deps.LinkService,
		BaseURL:     s.deps.App.BaseURL,
	}).Register(s.app, createMW...)

	inthttp.NewPageHandler(inthttp.PageDeps{
		Logger:      handlerLogger,
		LinkService: s.deps.LinkService,
		BaseURL:     s.deps.App.BaseURL,
	}).Register(s.app, createMW...)

	// Last: /:code matches every single segment path.
	inthttp.NewRedirectHandler(inthttp.RedirectDeps{
		Logger:      handlerLogger,
		LinkService: s.deps.LinkService,
		ServiceName: s.deps.App.Name,
	}).Register(s.app)
}

func errorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "internal server error"

		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			message = fe.Message
		} else {
			logger.Error("unhandled error", zap.Error(err), zap.String("path", c.Path()))
		}

		return c.Status(code).JSON(fiber.Map{"error": message})
	}
}
