package handler

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/QuickLink/internal/app/model"
	"github.com/sifan077/QuickLink/internal/app/service"
	"github.com/sifan077/QuickLink/internal/app/store"
	"github.com/sifan077/QuickLink/internal/http/validation"
	"go.uber.org/zap"
)

// APIDeps groups dependencies required by API handlers.
type APIDeps struct {
	Logger      *zap.Logger
	LinkService service.LinkService
	BaseURL     string
}

// APIHandler implements the JSON link API.
type APIHandler struct {
	logger      *zap.Logger
	linkService service.LinkService
	baseURL     string
}

// NewAPIHandler creates an API handler with the provided dependencies.
func NewAPIHandler(deps APIDeps) *APIHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &APIHandler{
		logger:      logger,
		linkService: deps.LinkService,
		baseURL:     deps.BaseURL,
	}
}

// Register wires API routes onto the provided router. createMW runs in front
// of link creation only.
func (h *APIHandler) Register(router fiber.Router, createMW ...fiber.Handler) {
	links := router.Group("/api/links")
	links.Post("/", chain(createMW, h.CreateLink)...)
	links.Get("/", h.ListLinks)
	links.Get("/:code", h.GetLink)
}

// CreateLinkRequest represents the request body for creating a link.
type CreateLinkRequest struct {
	URL             string `json:"url" validate:"required,notblank,http_url"`
	ValidityMinutes int    `json:"validityMinutes,omitempty" validate:"omitempty,min=1,max=525600"`
	ShortCode       string `json:"shortcode,omitempty" validate:"omitempty,shortcode"`
}

// LinkResponse is the public shape of a link.
type LinkResponse struct {
	ShortCode string    `json:"shortCode"`
	ShortURL  string    `json:"shortUrl"`
	LongURL   string    `json:"longUrl"`
	CreatedAt time.Time `json:"createdAt"`
	Expiry    time.Time `json:"expiry"`
}

// LinkSummaryResponse adds derived usage data for listings.
type LinkSummaryResponse struct {
	LinkResponse
	Clicks  int  `json:"clicks"`
	Expired bool `json:"expired"`
}

// LinkDetailResponse includes every recorded click.
type LinkDetailResponse struct {
	LinkResponse
	ClickCount int           `json:"clickCount"`
	Expired    bool          `json:"expired"`
	Clicks     []model.Click `json:"clicks"`
}

// CreateLink handles POST /api/links
func (h *APIHandler) CreateLink(c *fiber.Ctx) error {
	var req CreateLinkRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	if err := validation.Validate(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":  "validation failed",
			"fields": validationFields(err),
		})
	}

	link, err := h.linkService.Shorten(userContext(c), service.ShortenInput{
		URL:             req.URL,
		ValidityMinutes: req.ValidityMinutes,
		ShortCode:       req.ShortCode,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidURL):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid url"})
		case errors.Is(err, store.ErrValidityOutOfRange):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validity out of range"})
		case errors.Is(err, store.ErrCodeSpaceExhausted):
			h.logger.Error("no free short code", zap.Error(err))
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "no free short code, retry later"})
		default:
			h.logger.Error("failed to create link", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create link"})
		}
	}

	return c.Status(fiber.StatusCreated).JSON(h.toResponse(c, link))
}

// ListLinks handles GET /api/links
func (h *APIHandler) ListLinks(c *fiber.Ctx) error {
	views, err := h.linkService.Links(userContext(c))
	if err != nil {
		h.logger.Error("failed to list links", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to list links",
		})
	}

	response := make([]LinkSummaryResponse, len(views))
	for i, v := range views {
		response[i] = LinkSummaryResponse{
			LinkResponse: h.toResponse(c, v.Link),
			Clicks:       v.ClickCount,
			Expired:      v.Expired,
		}
	}

	return c.JSON(fiber.Map{
		"links": response,
		"count": len(response),
	})
}

// GetLink handles GET /api/links/:code
func (h *APIHandler) GetLink(c *fiber.Ctx) error {
	code := c.Params("code")

	view, err := h.linkService.Link(userContext(c), code)
	if err != nil {
		if errors.Is(err, service.ErrLinkNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "link not found",
			})
		}
		h.logger.Error("failed to get link", zap.Error(err), zap.String("short_code", code))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to get link",
		})
	}

	return c.JSON(LinkDetailResponse{
		LinkResponse: h.toResponse(c, view.Link),
		ClickCount:   view.ClickCount,
		Expired:      view.Expired,
		Clicks:       view.Clicks,
	})
}

func (h *APIHandler) toResponse(c *fiber.Ctx, link model.Link) LinkResponse {
	return LinkResponse{
		ShortCode: link.ShortCode,
		ShortURL:  shortURL(c, h.baseURL, link.ShortCode),
		LongURL:   link.LongURL,
		CreatedAt: link.CreatedAt,
		Expiry:    link.Expiry,
	}
}
