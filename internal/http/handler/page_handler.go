package handler

import (
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/QuickLink/internal/app/service"
	"github.com/sifan077/QuickLink/internal/app/store"
	"github.com/sifan077/QuickLink/internal/http/validation"
	"github.com/sifan077/QuickLink/internal/http/view"
	"go.uber.org/zap"
)

// PageDeps groups dependencies required by the HTML pages.
type PageDeps struct {
	Logger      *zap.Logger
	LinkService service.LinkService
	BaseURL     string
}

// PageHandler serves the submission form and the statistics table.
type PageHandler struct {
	logger      *zap.Logger
	linkService service.LinkService
	baseURL     string
}

func NewPageHandler(deps PageDeps) *PageHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PageHandler{
		logger:      logger,
		linkService: deps.LinkService,
		baseURL:     deps.BaseURL,
	}
}

// Register wires the page routes. createMW runs in front of form submission.
func (h *PageHandler) Register(router fiber.Router, createMW ...fiber.Handler) {
	router.Get("/", h.Home)
	router.Post("/shorten", chain(createMW, h.Shorten)...)
	router.Get("/stats", h.Stats)
}

// Home handles GET /
func (h *PageHandler) Home(c *fiber.Ctx) error {
	return h.renderHome(c, fiber.StatusOK, view.HomePageData{})
}

// Shorten handles POST /shorten and re-renders the form with the outcome.
// Earlier results of the session ride along in a hidden field.
func (h *PageHandler) Shorten(c *fiber.Ctx) error {
	form := view.HomePageData{
		URL:       strings.TrimSpace(c.FormValue("url")),
		Validity:  strings.TrimSpace(c.FormValue("validity")),
		ShortCode: strings.TrimSpace(c.FormValue("shortcode")),
		Results:   view.DecodeResults(c.FormValue("results")),
	}

	validity := 0
	if form.Validity != "" {
		n, err := strconv.Atoi(form.Validity)
		if err != nil || n <= 0 {
			form.Alert = alertValidity
			return h.renderHome(c, fiber.StatusBadRequest, form)
		}
		validity = n
	}

	req := CreateLinkRequest{
		URL:             form.URL,
		ValidityMinutes: validity,
		ShortCode:       form.ShortCode,
	}
	if err := validation.Validate(req); err != nil {
		form.Alert = formAlert(err)
		if form.Alert == alertURL {
			h.logger.Error("invalid url entered", zap.String("url", form.URL))
		}
		return h.renderHome(c, fiber.StatusBadRequest, form)
	}

	link, err := h.linkService.Shorten(userContext(c), service.ShortenInput{
		URL:             req.URL,
		ValidityMinutes: req.ValidityMinutes,
		ShortCode:       req.ShortCode,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidURL):
			form.Alert = alertURL
			return h.renderHome(c, fiber.StatusBadRequest, form)
		case errors.Is(err, store.ErrValidityOutOfRange):
			form.Alert = alertValidity
			return h.renderHome(c, fiber.StatusBadRequest, form)
		case errors.Is(err, store.ErrCodeSpaceExhausted):
			form.Alert = "No free short code, please try again"
			return h.renderHome(c, fiber.StatusServiceUnavailable, form)
		default:
			h.logger.Error("failed to create link", zap.Error(err))
			form.Alert = "Something went wrong, please try again"
			return h.renderHome(c, fiber.StatusInternalServerError, form)
		}
	}

	results := append(form.Results, view.ShortenResult{
		LongURL:  link.LongURL,
		ShortURL: shortURL(c, h.baseURL, link.ShortCode),
		Expiry:   link.Expiry,
	})
	if len(results) > view.MaxResults {
		results = results[len(results)-view.MaxResults:]
	}
	return h.renderHome(c, fiber.StatusCreated, view.HomePageData{Results: results})
}

const (
	alertURL       = "Invalid URL"
	alertValidity  = "Validity must be between 1 and 525600 minutes"
	alertShortCode = "Invalid shortcode"
)

// formAlert picks the message for the first failing form field.
func formAlert(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return alertURL
	}
	switch verrs[0].Field() {
	case "validityMinutes":
		return alertValidity
	case "shortcode":
		return alertShortCode
	default:
		return alertURL
	}
}

// Stats handles GET /stats
func (h *PageHandler) Stats(c *fiber.Ctx) error {
	views, err := h.linkService.Links(userContext(c))
	if err != nil {
		h.logger.Error("failed to list links", zap.Error(err))
		return renderAlert(c, h.logger, fiber.StatusInternalServerError, "Statistics unavailable", "Could not load links, please try again")
	}

	rows := make([]view.StatsRow, len(views))
	for i, v := range views {
		rows[i] = view.StatsRow{
			ShortURL:  shortURL(c, h.baseURL, v.ShortCode),
			LongURL:   v.LongURL,
			CreatedAt: v.CreatedAt,
			Expiry:    v.Expiry,
			Clicks:    v.ClickCount,
			Expired:   v.Expired,
		}
	}

	html, err := view.RenderStats(view.StatsPageData{Rows: rows})
	if err != nil {
		h.logger.Error("failed to render stats page", zap.Error(err))
		return fiber.ErrInternalServerError
	}
	return c.Type("html", "utf-8").SendString(html)
}

func (h *PageHandler) renderHome(c *fiber.Ctx, status int, data view.HomePageData) error {
	html, err := view.RenderHome(data)
	if err != nil {
		h.logger.Error("failed to render home page", zap.Error(err))
		return fiber.ErrInternalServerError
	}
	return c.Status(status).Type("html", "utf-8").SendString(html)
}

func renderAlert(c *fiber.Ctx, logger *zap.Logger, status int, title, message string) error {
	html, err := view.RenderAlert(view.AlertPageData{Title: title, Message: message})
	if err != nil {
		logger.Error("failed to render alert page", zap.Error(err))
		return fiber.ErrInternalServerError
	}
	return c.Status(status).Type("html", "utf-8").SendString(html)
}
