// Package store holds the authoritative collection of short links and mirrors
// it to a single durable snapshot key after every mutation.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sifan077/QuickLink/internal/app/model"
	"github.com/sifan077/QuickLink/internal/app/repository"
	"github.com/sifan077/QuickLink/internal/app/shortcode"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var (
	// ErrCodeSpaceExhausted is returned when no free short code was found
	// within maxCodeAttempts regenerations.
	ErrCodeSpaceExhausted = errors.New("no free short code")
	// ErrValidityOutOfRange is returned for validity windows above MaxValidityMinutes.
	ErrValidityOutOfRange = errors.New("validity out of range")
)

const (
	DefaultValidityMinutes = 30
	// MaxValidityMinutes is one year.
	MaxValidityMinutes = 525600

	maxCodeAttempts = 10
)

// ReservedCodes shadow fixed routes, so a link stored under one of them could
// never be reached through /:code. Matching is case-insensitive.
var ReservedCodes = map[string]struct{}{
	"stats":   {},
	"api":     {},
	"health":  {},
	"shorten": {},
	"metrics": {},
}

// IsReserved reports whether code collides with a fixed route.
func IsReserved(code string) bool {
	_, ok := ReservedCodes[strings.ToLower(code)]
	return ok
}

// CreateLinkInput captures data required to create a link.
type CreateLinkInput struct {
	LongURL         string
	ValidityMinutes int
	RequestedCode   string
}

// Options configures a LinkStore. Zero values pick sensible defaults.
type Options struct {
	Generator              shortcode.Generator
	Logger                 *zap.Logger
	Metrics                *Metrics
	Tracer                 trace.Tracer
	DefaultValidityMinutes int
	// CommitInterval > 0 switches to asynchronous, coalesced commits.
	CommitInterval time.Duration
	Now            func() time.Time
}

// LinkStore owns the link records. All operations are serialized behind one
// mutex, so each is atomic from the caller's point of view.
type LinkStore struct {
	mu     sync.Mutex
	repo   repository.SnapshotRepository
	gen    shortcode.Generator
	logger *zap.Logger

	metrics         *Metrics
	tracer          trace.Tracer
	now             func() time.Time
	defaultValidity int

	loaded bool
	links  []model.Link
	byCode map[string]int

	subsMu  sync.Mutex
	subs    map[int]chan Change
	nextSub int

	async     bool
	dirty     bool
	writeMu   sync.Mutex
	interval  time.Duration
	stopChan  chan struct{}
	doneChan  chan struct{}
	closeOnce sync.Once
}

// New returns a store backed by repo. Hydration happens lazily on first access.
func New(repo repository.SnapshotRepository, opts Options) *LinkStore {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	gen := opts.Generator
	if gen == nil {
		gen = shortcode.NewRandomGenerator(shortcode.DefaultLength)
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer("github.com/sifan077/QuickLink/internal/app/store")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	validity := opts.DefaultValidityMinutes
	if validity <= 0 || validity > MaxValidityMinutes {
		validity = DefaultValidityMinutes
	}

	s := &LinkStore{
		repo:            repo,
		gen:             gen,
		logger:          logger,
		metrics:         opts.Metrics,
		tracer:          tracer,
		now:             now,
		defaultValidity: validity,
		byCode:          make(map[string]int),
		subs:            make(map[int]chan Change),
	}

	if opts.CommitInterval > 0 {
		s.async = true
		s.interval = opts.CommitInterval
		s.stopChan = make(chan struct{})
		s.doneChan = make(chan struct{})
		go s.runFlusher()
	}

	return s
}

// CreateLink appends a new record and returns a copy of it. The returned
// ShortCode is the code actually assigned: a requested code that is already
// taken or reserved is silently replaced by a generated one.
func (s *LinkStore) CreateLink(ctx context.Context, in CreateLinkInput) (model.Link, error) {
	ctx, span := s.tracer.Start(ctx, "store.CreateLink")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "hydrate failed")
		return model.Link{}, err
	}

	minutes := in.ValidityMinutes
	if minutes <= 0 {
		minutes = s.defaultValidity
	}
	if minutes > MaxValidityMinutes {
		span.SetStatus(codes.Error, "validity out of range")
		return model.Link{}, fmt.Errorf("create link: %d minutes: %w", minutes, ErrValidityOutOfRange)
	}

	requested := strings.TrimSpace(in.RequestedCode)
	code := requested
	if code == "" {
		code = s.gen.Generate()
	}

	for attempt := 0; s.taken(code); attempt++ {
		if attempt >= maxCodeAttempts {
			span.SetStatus(codes.Error, "code space exhausted")
			return model.Link{}, fmt.Errorf("create link: %w", ErrCodeSpaceExhausted)
		}
		s.logger.Warn("shortcode collision, regenerated",
			zap.String("attempted", code),
			zap.String("requested", requested),
		)
		s.metrics.collision()
		code = s.gen.Generate()
	}

	createdAt := s.now().UTC()
	link := model.Link{
		ID:        uuid.NewString(),
		LongURL:   in.LongURL,
		ShortCode: code,
		CreatedAt: createdAt,
		Expiry:    createdAt.Add(time.Duration(minutes) * time.Minute),
		Clicks:    []model.Click{},
	}

	s.links = append(s.links, link)
	s.byCode[code] = len(s.links) - 1

	span.SetAttributes(
		attribute.String("short_code", code),
		attribute.Bool("custom_code", requested != "" && requested == code),
	)

	s.commit(ctx)
	s.metrics.linkCreated(len(s.links))
	s.notify(Change{Kind: ChangeCreated, Link: link.Clone(), Total: len(s.links)})

	return link.Clone(), nil
}

// RecordClick appends a click to the link with the given code. Unknown codes
// are a silent no-op. Empty source and location fall back to the defaults.
func (s *LinkStore) RecordClick(ctx context.Context, code, source, location string) error {
	ctx, span := s.tracer.Start(ctx, "store.RecordClick", trace.WithAttributes(attribute.String("short_code", code)))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "hydrate failed")
		return err
	}

	idx, ok := s.byCode[code]
	if !ok {
		return nil
	}

	if source == "" {
		source = model.DefaultClickSource
	}
	if location == "" {
		location = model.DefaultClickLocation
	}

	s.links[idx].Clicks = append(s.links[idx].Clicks, model.Click{
		Time:     s.now().UTC(),
		Source:   source,
		Location: location,
	})

	s.commit(ctx)
	s.metrics.clickRecorded()
	s.notify(Change{Kind: ChangeClicked, Link: s.links[idx].Clone(), Total: len(s.links)})

	return nil
}

// ListLinks returns every record in creation order, expired or not.
func (s *LinkStore) ListLinks(ctx context.Context) ([]model.Link, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	out := make([]model.Link, len(s.links))
	for i := range s.links {
		out[i] = s.links[i].Clone()
	}
	return out, nil
}

// FindByCode looks up a record by exact short code.
func (s *LinkStore) FindByCode(ctx context.Context, code string) (model.Link, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx); err != nil {
		return model.Link{}, false, err
	}

	idx, ok := s.byCode[code]
	if !ok {
		return model.Link{}, false, nil
	}
	return s.links[idx].Clone(), true, nil
}

func (s *LinkStore) taken(code string) bool {
	if IsReserved(code) {
		return true
	}
	_, ok := s.byCode[code]
	return ok
}

// ensureLoaded hydrates the collection once. Missing or malformed snapshots
// start an empty collection; backend failures are returned and retried on the
// next access so an outage never leads to the stored value being overwritten.
// Callers must hold s.mu.
func (s *LinkStore) ensureLoaded(ctx context.Context) error {
	if s.loaded {
		return nil
	}

	ctx, span := s.tracer.Start(ctx, "store.hydrate")
	defer span.End()

	data, err := s.repo.Load(ctx)
	switch {
	case errors.Is(err, repository.ErrSnapshotNotFound):
		s.reset(nil)
		s.logger.Info("no stored links, starting empty")
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, "load failed")
		return fmt.Errorf("hydrate links: %w", err)
	default:
		links, decodeErr := Decode(data)
		if decodeErr != nil {
			s.logger.Warn("malformed link snapshot, starting empty", zap.Error(decodeErr))
			links = nil
		}
		s.reset(links)
		s.logger.Info("links hydrated", zap.Int("count", len(s.links)))
	}

	span.SetAttributes(attribute.Int("links", len(s.links)))
	s.metrics.hydrated(len(s.links))
	s.loaded = true
	return nil
}

func (s *LinkStore) reset(links []model.Link) {
	s.links = make([]model.Link, 0, len(links))
	s.byCode = make(map[string]int, len(links))

	for _, l := range links {
		s.links = append(s.links, l)
		// The first record wins an exact-match lookup, as with a linear scan.
		if _, exists := s.byCode[l.ShortCode]; !exists {
			s.byCode[l.ShortCode] = len(s.links) - 1
		}
	}
}
