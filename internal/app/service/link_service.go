package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/sifan077/QuickLink/internal/app/model"
	"github.com/sifan077/QuickLink/internal/app/store"
	"go.uber.org/zap"
)

var (
	ErrInvalidURL   = errors.New("invalid url")
	ErrLinkNotFound = errors.New("link not found")
	ErrLinkExpired  = errors.New("link expired")
)

// LinkStore is the subset of store.LinkStore the service depends on.
type LinkStore interface {
	CreateLink(ctx context.Context, in store.CreateLinkInput) (model.Link, error)
	RecordClick(ctx context.Context, code, source, location string) error
	ListLinks(ctx context.Context) ([]model.Link, error)
	FindByCode(ctx context.Context, code string) (model.Link, bool, error)
}

// LinkService defines behaviour-level operations on links.
type LinkService interface {
	Shorten(ctx context.Context, input ShortenInput) (model.Link, error)
	Resolve(ctx context.Context, code string, click ClickInfo) (model.Link, error)
	Links(ctx context.Context) ([]LinkView, error)
	Link(ctx context.Context, code string) (LinkView, error)
}

// LinkServiceDeps groups dependencies required by the link service.
type LinkServiceDeps struct {
	Logger *zap.Logger
	Store  LinkStore
	Now    func() time.Time
}

type linkService struct {
	logger *zap.Logger
	store  LinkStore
	now    func() time.Time
}

// NewLinkService returns a service implementation backed by the given store.
func NewLinkService(deps LinkServiceDeps) LinkService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &linkService{
		logger: logger,
		store:  deps.Store,
		now:    now,
	}
}

// ShortenInput captures data required to shorten a URL.
type ShortenInput struct {
	URL             string
	ValidityMinutes int
	ShortCode       string
}

// ClickInfo describes where a redirect came from.
type ClickInfo struct {
	Source   string
	Location string
}

// LinkView is a link record plus values derived at read time.
type LinkView struct {
	model.Link
	Expired    bool
	ClickCount int
}

func (s *linkService) Shorten(ctx context.Context, input ShortenInput) (model.Link, error) {
	longURL := strings.TrimSpace(input.URL)
	if !ValidURL(longURL) {
		s.logger.Error("invalid url entered", zap.String("url", input.URL))
		return model.Link{}, fmt.Errorf("shorten %q: %w", input.URL, ErrInvalidURL)
	}

	link, err := s.store.CreateLink(ctx, store.CreateLinkInput{
		LongURL:         longURL,
		ValidityMinutes: input.ValidityMinutes,
		RequestedCode:   input.ShortCode,
	})
	if err != nil {
		return model.Link{}, fmt.Errorf("create link: %w", err)
	}

	s.logger.Info("url shortened",
		zap.String("short_code", link.ShortCode),
		zap.String("long_url", link.LongURL),
		zap.Time("expiry", link.Expiry),
	)
	return link, nil
}

// Resolve returns the target of a live link and records a click. Expired links
// are reported with ErrLinkExpired and are not clicked.
func (s *linkService) Resolve(ctx context.Context, code string, click ClickInfo) (model.Link, error) {
	link, found, err := s.store.FindByCode(ctx, code)
	if err != nil {
		return model.Link{}, fmt.Errorf("find link: %w", err)
	}
	if !found {
		s.logger.Error("shortcode not found", zap.String("short_code", code))
		return model.Link{}, ErrLinkNotFound
	}
	if link.IsExpired(s.now()) {
		s.logger.Warn("url expired", zap.String("short_code", code), zap.Time("expiry", link.Expiry))
		return link, ErrLinkExpired
	}

	if err := s.store.RecordClick(ctx, code, click.Source, click.Location); err != nil {
		return model.Link{}, fmt.Errorf("record click: %w", err)
	}

	s.logger.Info("url clicked",
		zap.String("short_code", code),
		zap.String("source", click.Source),
		zap.String("location", click.Location),
	)
	return link, nil
}

func (s *linkService) Links(ctx context.Context) ([]LinkView, error) {
	links, err := s.store.ListLinks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}

	now := s.now()
	views := make([]LinkView, len(links))
	for i, l := range links {
		views[i] = newLinkView(l, now)
	}
	return views, nil
}

func (s *linkService) Link(ctx context.Context, code string) (LinkView, error) {
	link, found, err := s.store.FindByCode(ctx, code)
	if err != nil {
		return LinkView{}, fmt.Errorf("find link: %w", err)
	}
	if !found {
		return LinkView{}, ErrLinkNotFound
	}
	return newLinkView(link, s.now()), nil
}

func newLinkView(l model.Link, now time.Time) LinkView {
	return LinkView{
		Link:       l,
		Expired:    l.IsExpired(now),
		ClickCount: len(l.Clicks),
	}
}

// ValidURL reports whether raw is an absolute http or https URL with a host.
func ValidURL(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}
