package logger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	defaultRemoteQueueSize = 256
	defaultRemoteTimeout   = 3 * time.Second
	defaultRemotePackage   = "app"
)

// RemoteEntry is the payload accepted by the diagnostics collector.
type RemoteEntry struct {
	Stack   string `json:"stack"`
	Level   string `json:"level"`
	Package string `json:"package"`
	Message string `json:"message"`
}

// Transport delivers a single entry to the collector.
type Transport interface {
	Send(ctx context.Context, entry RemoteEntry) error
}

// HTTPTransport posts entries as JSON using the fiber client.
type HTTPTransport struct {
	endpoint string
	timeout  time.Duration
}

func NewHTTPTransport(endpoint string, timeout time.Duration) *HTTPTransport {
	if timeout <= 0 {
		timeout = defaultRemoteTimeout
	}
	return &HTTPTransport{endpoint: endpoint, timeout: timeout}
}

func (t *HTTPTransport) Send(ctx context.Context, entry RemoteEntry) error {
	timeout := t.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}

	code, body, errs := fiber.Post(t.endpoint).JSON(entry).Timeout(timeout).Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("post log entry: %w", errors.Join(errs...))
	}
	if code < fiber.StatusOK || code >= fiber.StatusMultipleChoices {
		return fmt.Errorf("post log entry: status %d: %s", code, body)
	}
	return nil
}

// MessagePublisher is satisfied by *nats.Conn.
type MessagePublisher interface {
	Publish(subj string, data []byte) error
}

// NATSTransport publishes entries as JSON on a plain NATS subject.
type NATSTransport struct {
	conn    MessagePublisher
	subject string
}

func NewNATSTransport(conn MessagePublisher, subject string) *NATSTransport {
	return &NATSTransport{conn: conn, subject: subject}
}

func (t *NATSTransport) Send(_ context.Context, entry RemoteEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal log entry: %w", err)
	}
	if err := t.conn.Publish(t.subject, data); err != nil {
		return fmt.Errorf("publish log entry: %w", err)
	}
	return nil
}

// RemoteCoreConfig configures a RemoteCore.
type RemoteCoreConfig struct {
	Stack     string
	Package   string
	Level     zapcore.LevelEnabler
	QueueSize int
	Timeout   time.Duration
	// Fallback receives send failures at debug level. It must not write back
	// into the RemoteCore.
	Fallback *zap.Logger
}

// RemoteCore is a zapcore.Core that ships entries to a remote collector in the
// background. Delivery is best effort: a full queue or a failed send drops the
// entry and never affects the caller.
type RemoteCore struct {
	zapcore.LevelEnabler
	sink   *remoteSink
	fields []zapcore.Field
}

type remoteSink struct {
	transport Transport
	stack     string
	pkg       string
	timeout   time.Duration
	fallback  *zap.Logger

	queue    chan RemoteEntry
	stopChan chan struct{}
	doneChan chan struct{}
	stopOnce sync.Once

	dropped atomic.Int64
}

// NewRemoteCore starts the delivery worker and returns the core.
func NewRemoteCore(transport Transport, cfg RemoteCoreConfig) *RemoteCore {
	level := cfg.Level
	if level == nil {
		level = zapcore.InfoLevel
	}
	size := cfg.QueueSize
	if size <= 0 {
		size = defaultRemoteQueueSize
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultRemoteTimeout
	}
	pkg := cfg.Package
	if pkg == "" {
		pkg = defaultRemotePackage
	}
	fallback := cfg.Fallback
	if fallback == nil {
		fallback = zap.NewNop()
	}

	sink := &remoteSink{
		transport: transport,
		stack:     cfg.Stack,
		pkg:       pkg,
		timeout:   timeout,
		fallback:  fallback,
		queue:     make(chan RemoteEntry, size),
		stopChan:  make(chan struct{}),
		doneChan:  make(chan struct{}),
	}
	go sink.run()

	return &RemoteCore{LevelEnabler: level, sink: sink}
}

func (c *RemoteCore) With(fields []zapcore.Field) zapcore.Core {
	merged := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	merged = append(merged, c.fields...)
	merged = append(merged, fields...)
	return &RemoteCore{LevelEnabler: c.LevelEnabler, sink: c.sink, fields: merged}
}

func (c *RemoteCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *RemoteCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	pkg := ent.LoggerName
	if pkg == "" {
		pkg = c.sink.pkg
	}

	c.sink.enqueue(RemoteEntry{
		Stack:   c.sink.stack,
		Level:   remoteLevel(ent.Level),
		Package: pkg,
		Message: encodeMessage(ent.Message, c.fields, fields),
	})
	return nil
}

func (c *RemoteCore) Sync() error { return nil }

// Dropped reports how many entries were discarded because the queue was full.
func (c *RemoteCore) Dropped() int64 { return c.sink.dropped.Load() }

// Close stops accepting entries and sends what is already queued, giving up
// when ctx is done.
func (c *RemoteCore) Close(ctx context.Context) error {
	c.sink.stopOnce.Do(func() { close(c.sink.stopChan) })
	select {
	case <-c.sink.doneChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *remoteSink) enqueue(entry RemoteEntry) {
	select {
	case <-s.stopChan:
		s.dropped.Add(1)
		return
	default:
	}

	select {
	case s.queue <- entry:
	default:
		s.dropped.Add(1)
	}
}

func (s *remoteSink) run() {
	defer close(s.doneChan)

	for {
		select {
		case entry := <-s.queue:
			s.send(entry)
		case <-s.stopChan:
			for {
				select {
				case entry := <-s.queue:
					s.send(entry)
				default:
					return
				}
			}
		}
	}
}

func (s *remoteSink) send(entry RemoteEntry) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if err := s.transport.Send(ctx, entry); err != nil {
		s.fallback.Debug("failed to send remote log",
			zap.Error(err),
			zap.String("level", entry.Level),
			zap.String("package", entry.Package),
		)
	}
}

// encodeMessage renders the message and structured fields as
// {"message": ..., "data": {...}}.
func encodeMessage(msg string, ctxFields, fields []zapcore.Field) string {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range ctxFields {
		f.AddTo(enc)
	}
	for _, f := range fields {
		f.AddTo(enc)
	}

	data, err := json.Marshal(map[string]any{
		"message": msg,
		"data":    enc.Fields,
	})
	if err != nil {
		return msg
	}
	return string(data)
}

func remoteLevel(level zapcore.Level) string {
	switch level {
	case zapcore.DebugLevel:
		return "debug"
	case zapcore.InfoLevel:
		return "info"
	case zapcore.WarnLevel:
		return "warn"
	case zapcore.ErrorLevel:
		return "error"
	default:
		return "fatal"
	}
}
