package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sifan077/QuickLink/internal/app/model"
	"github.com/sifan077/QuickLink/internal/app/store"
	"go.uber.org/zap"
)

const (
	relayBuffer         = 256
	relayPublishTimeout = 5 * time.Second
)

// ChangeSource is anything that can stream store changes.
type ChangeSource interface {
	Subscribe(buffer int) (<-chan store.Change, func())
}

// EventRelay forwards store changes to an EventPublisher. Publishing is best
// effort: failures are logged and the event is dropped.
type EventRelay struct {
	source    ChangeSource
	publisher EventPublisher
	logger    *zap.Logger
	now       func() time.Time

	cancel   func()
	doneChan chan struct{}
}

// EventRelayDeps groups dependencies required by the relay.
type EventRelayDeps struct {
	Source    ChangeSource
	Publisher EventPublisher
	Logger    *zap.Logger
	Now       func() time.Time
}

func NewEventRelay(deps EventRelayDeps) *EventRelay {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &EventRelay{
		source:    deps.Source,
		publisher: deps.Publisher,
		logger:    logger,
		now:       now,
	}
}

// Start subscribes to the store and begins publishing in the background.
func (r *EventRelay) Start() {
	changes, cancel := r.source.Subscribe(relayBuffer)
	r.cancel = cancel
	r.doneChan = make(chan struct{})

	go r.run(changes)
	r.logger.Info("event relay started")
}

// Stop unsubscribes and waits for in-flight publishes to finish.
func (r *EventRelay) Stop() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	<-r.doneChan
	r.cancel = nil
	r.logger.Info("event relay stopped")
}

func (r *EventRelay) run(changes <-chan store.Change) {
	defer close(r.doneChan)

	for change := range changes {
		event := r.toEvent(change)

		ctx, cancel := context.WithTimeout(context.Background(), relayPublishTimeout)
		err := r.publisher.Publish(ctx, event)
		cancel()

		if err != nil {
			r.logger.Warn("failed to publish link event",
				zap.Error(err),
				zap.String("type", string(event.Type)),
				zap.String("short_code", event.ShortCode),
			)
			continue
		}
		r.logger.Debug("link event published",
			zap.String("id", event.ID),
			zap.String("type", string(event.Type)),
			zap.String("short_code", event.ShortCode),
		)
	}
}

func (r *EventRelay) toEvent(change store.Change) model.LinkEvent {
	eventType := model.LinkCreated
	occurredAt := change.Link.CreatedAt
	if change.Kind == store.ChangeClicked {
		eventType = model.LinkClicked
		if n := len(change.Link.Clicks); n > 0 {
			occurredAt = change.Link.Clicks[n-1].Time
		}
	}
	if occurredAt.IsZero() {
		occurredAt = r.now().UTC()
	}

	return model.LinkEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		ShortCode:  change.Link.ShortCode,
		LongURL:    change.Link.LongURL,
		Clicks:     len(change.Link.Clicks),
		OccurredAt: occurredAt,
	}
}
