package handler

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/QuickLink/internal/app/service"
	"go.uber.org/zap"
)

// Header set by Cloudflare with the client's country code.
const locationHeader = "CF-IPCountry"

// RedirectDeps groups dependencies required by redirect handlers.
type RedirectDeps struct {
	Logger      *zap.Logger
	LinkService service.LinkService
	ServiceName string
}

// RedirectHandler resolves short codes and serves the health probe.
type RedirectHandler struct {
	logger      *zap.Logger
	linkService service.LinkService
	serviceName string
}

// NewRedirectHandler creates a redirect handler with the provided dependencies.
func NewRedirectHandler(deps RedirectDeps) *RedirectHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	name := deps.ServiceName
	if name == "" {
		name = "QuickLink"
	}
	return &RedirectHandler{
		logger:      logger,
		linkService: deps.LinkService,
		serviceName: name,
	}
}

// Register wires redirect routes. It must be registered last since /:code
// matches any single segment path.
func (h *RedirectHandler) Register(router fiber.Router) {
	router.Get("/health", h.Health)
	router.Get("/:code", h.Resolve)
}

// Health is a liveness probe.
func (h *RedirectHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"service": h.serviceName,
		"status":  "ok",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// Resolve handles GET /:code
func (h *RedirectHandler) Resolve(c *fiber.Ctx) error {
	code := c.Params("code")

	link, err := h.linkService.Resolve(userContext(c), code, service.ClickInfo{
		Source:   c.Get(fiber.HeaderReferer),
		Location: c.Get(locationHeader),
	})
	switch {
	case err == nil:
		return c.Redirect(link.LongURL, fiber.StatusFound)
	case errors.Is(err, service.ErrLinkNotFound):
		return renderAlert(c, h.logger, fiber.StatusNotFound, "Link not found", "Invalid or expired URL")
	case errors.Is(err, service.ErrLinkExpired):
		return renderAlert(c, h.logger, fiber.StatusGone, "Link expired", "This URL has expired")
	default:
		h.logger.Error("failed to resolve link", zap.Error(err), zap.String("short_code", code))
		return renderAlert(c, h.logger, fiber.StatusInternalServerError, "Something went wrong", "Could not resolve this link, please try again")
	}
}
