package logger

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type recordingTransport struct {
	mu      sync.Mutex
	entries []RemoteEntry
	err     error
	block   chan struct{}
}

func (t *recordingTransport) Send(ctx context.Context, entry RemoteEntry) error {
	if t.block != nil {
		<-t.block
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, entry)
	return t.err
}

func (t *recordingTransport) all() []RemoteEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]RemoteEntry(nil), t.entries...)
}

func TestRemoteCore_SendsEntries(t *testing.T) {
	tr := &recordingTransport{}
	core := NewRemoteCore(tr, RemoteCoreConfig{Stack: "backend", Level: zapcore.InfoLevel})
	log := zap.New(core).Named("service")

	log.Debug("ignored")
	log.With(zap.String("short_code", "abc123")).Warn("shortcode collision, regenerated", zap.String("attempted", "promo"))
	zap.New(core).Error("no name")

	require.NoError(t, core.Close(context.Background()))

	entries := tr.all()
	require.Len(t, entries, 2)

	first := entries[0]
	assert.Equal(t, "backend", first.Stack)
	assert.Equal(t, "warn", first.Level)
	assert.Equal(t, "service", first.Package)

	var msg struct {
		Message string            `json:"message"`
		Data    map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(first.Message), &msg))
	assert.Equal(t, "shortcode collision, regenerated", msg.Message)
	assert.Equal(t, map[string]string{"short_code": "abc123", "attempted": "promo"}, msg.Data)

	assert.Equal(t, "error", entries[1].Level)
	assert.Equal(t, defaultRemotePackage, entries[1].Package)
}

func TestRemoteCore_FailuresGoToFallback(t *testing.T) {
	fbCore, fbLogs := observer.New(zap.DebugLevel)
	tr := &recordingTransport{err: errors.New("connection refused")}
	core := NewRemoteCore(tr, RemoteCoreConfig{Fallback: zap.New(fbCore)})

	zap.New(core).Info("url shortened")
	require.NoError(t, core.Close(context.Background()))

	assert.Equal(t, 1, fbLogs.FilterMessage("failed to send remote log").Len())
}

func TestRemoteCore_FullQueueDrops(t *testing.T) {
	tr := &recordingTransport{block: make(chan struct{})}
	core := NewRemoteCore(tr, RemoteCoreConfig{QueueSize: 1})
	log := zap.New(core)

	for i := 0; i < 10; i++ {
		log.Info("burst")
	}
	assert.Positive(t, core.Dropped())

	close(tr.block)
	require.NoError(t, core.Close(context.Background()))
	assert.LessOrEqual(t, len(tr.all()), 2)
}

func TestRemoteCore_CloseStopsAccepting(t *testing.T) {
	tr := &recordingTransport{}
	core := NewRemoteCore(tr, RemoteCoreConfig{})
	require.NoError(t, core.Close(context.Background()))
	require.NoError(t, core.Close(context.Background()))

	zap.New(core).Info("late")
	assert.Empty(t, tr.all())
	assert.Equal(t, int64(1), core.Dropped())
}

func TestRemoteLevel(t *testing.T) {
	assert.Equal(t, "debug", remoteLevel(zapcore.DebugLevel))
	assert.Equal(t, "info", remoteLevel(zapcore.InfoLevel))
	assert.Equal(t, "warn", remoteLevel(zapcore.WarnLevel))
	assert.Equal(t, "error", remoteLevel(zapcore.ErrorLevel))
	assert.Equal(t, "fatal", remoteLevel(zapcore.PanicLevel))
}

func TestHTTPTransport_Send(t *testing.T) {
	var (
		mu   sync.Mutex
		got  RemoteEntry
		ctyp string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		defer mu.Unlock()
		ctyp = r.Header.Get("Content-Type")
		_ = json.Unmarshal(body, &got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tr := NewHTTPTransport(srv.URL+"/evaluation-service/logs", time.Second)
	err := tr.Send(context.Background(), RemoteEntry{Stack: "backend", Level: "info", Package: "service", Message: "hi"})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "application/json", ctyp)
	assert.Equal(t, RemoteEntry{Stack: "backend", Level: "info", Package: "service", Message: "hi"}, got)
}

func TestHTTPTransport_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	tr := NewHTTPTransport(srv.URL, time.Second)
	assert.Error(t, tr.Send(context.Background(), RemoteEntry{}))
}

type fakePublisher struct {
	subject string
	data    []byte
}

func (f *fakePublisher) Publish(subj string, data []byte) error {
	f.subject, f.data = subj, data
	return nil
}

func TestNATSTransport_Send(t *testing.T) {
	pub := &fakePublisher{}
	tr := NewNATSTransport(pub, "diag.logs")

	require.NoError(t, tr.Send(context.Background(), RemoteEntry{Level: "warn", Message: "m"}))
	assert.Equal(t, "diag.logs", pub.subject)
	assert.JSONEq(t, `{"stack":"","level":"warn","package":"","message":"m"}`, string(pub.data))
}
