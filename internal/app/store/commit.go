package store

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

const flushTimeout = 5 * time.Second

// commit is the explicit persistence step that ends every mutation. In sync
// mode the whole collection is written now; in async mode the store is marked
// dirty and the flusher writes it later. Failures are logged, never returned:
// the in-memory collection stays authoritative and the next commit rewrites
// the full snapshot. Callers must hold s.mu.
func (s *LinkStore) commit(ctx context.Context) {
	if s.async {
		s.dirty = true
		return
	}
	if err := s.save(ctx); err != nil {
		s.logger.Error("failed to commit links", zap.Error(err), zap.Int("count", len(s.links)))
	}
}

// Flush writes the current collection to durable storage and returns any error.
// It is a no-op before the store has been hydrated.
func (s *LinkStore) Flush(ctx context.Context) error {
	if !s.async {
		s.mu.Lock()
		defer s.mu.Unlock()
		if !s.loaded {
			return nil
		}
		return s.save(ctx)
	}
	return s.flushPending(ctx, true)
}

// Close stops the async flusher, writes any pending changes and closes all
// subscriber channels. It is safe to call more than once.
func (s *LinkStore) Close(ctx context.Context) error {
	var err error
	s.closeOnce.Do(func() {
		if s.async {
			close(s.stopChan)
			<-s.doneChan
			err = s.flushPending(ctx, false)
		}
		s.closeSubscribers()
	})
	return err
}

// save encodes and writes under s.mu.
func (s *LinkStore) save(ctx context.Context) error {
	data, err := Encode(s.links)
	if err != nil {
		return err
	}
	return s.write(ctx, data, len(s.links))
}

// flushPending encodes under s.mu and writes outside it. writeMu keeps the
// order of writes equal to the order of encodes.
func (s *LinkStore) flushPending(ctx context.Context, force bool) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	if !s.loaded || (!force && !s.dirty) {
		s.mu.Unlock()
		return nil
	}
	data, err := Encode(s.links)
	count := len(s.links)
	s.dirty = false
	s.mu.Unlock()

	if err != nil {
		return err
	}
	if err := s.write(ctx, data, count); err != nil {
		s.mu.Lock()
		s.dirty = true
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *LinkStore) write(ctx context.Context, data []byte, count int) error {
	ctx, span := s.tracer.Start(ctx, "store.commit")
	defer span.End()
	span.SetAttributes(attribute.Int("links", count), attribute.Int("bytes", len(data)))

	start := time.Now()
	err := s.repo.Save(ctx, data)
	s.metrics.committed(time.Since(start), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "save failed")
		return err
	}
	return nil
}

func (s *LinkStore) runFlusher() {
	defer close(s.doneChan)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
			if err := s.flushPending(ctx, false); err != nil {
				s.logger.Error("failed to flush links", zap.Error(err))
			}
			cancel()
		case <-s.stopChan:
			s.logger.Debug("link flusher stopped")
			return
		}
	}
}
