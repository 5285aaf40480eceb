package store

import (
	"github.com/sifan077/QuickLink/internal/app/model"
	"go.uber.org/zap"
)

// ChangeKind names the mutation that produced a Change.
type ChangeKind string

const (
	ChangeCreated ChangeKind = "created"
	ChangeClicked ChangeKind = "clicked"
)

// Change is delivered to subscribers after every mutation.
type Change struct {
	Kind  ChangeKind
	Link  model.Link
	Total int
}

const defaultSubscriptionBuffer = 64

// Subscribe registers a listener for collection changes. Deliveries never block
// the store: when the buffer is full the change is dropped for that listener.
// The returned cancel func unregisters and closes the channel.
func (s *LinkStore) Subscribe(buffer int) (<-chan Change, func()) {
	if buffer <= 0 {
		buffer = defaultSubscriptionBuffer
	}
	ch := make(chan Change, buffer)

	s.subsMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.subsMu.Unlock()

	cancel := func() {
		s.subsMu.Lock()
		defer s.subsMu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
	return ch, cancel
}

func (s *LinkStore) notify(change Change) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	for id, ch := range s.subs {
		select {
		case ch <- change:
		default:
			s.logger.Debug("subscriber lagging, change dropped",
				zap.Int("subscriber", id),
				zap.String("kind", string(change.Kind)),
				zap.String("short_code", change.Link.ShortCode),
			)
		}
	}
}

func (s *LinkStore) closeSubscribers() {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}
