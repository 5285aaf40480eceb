package natsclient

import (
	"errors"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/sifan077/QuickLink/config"
	"github.com/sifan077/QuickLink/internal/app/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStreams struct {
	infoErr error
	added   *nats.StreamConfig
}

func (f *fakeStreams) StreamInfo(stream string, opts ...nats.JSOpt) (*nats.StreamInfo, error) {
	if f.infoErr != nil {
		return nil, f.infoErr
	}
	return &nats.StreamInfo{Config: nats.StreamConfig{Name: stream}}, nil
}

func (f *fakeStreams) AddStream(cfg *nats.StreamConfig, opts ...nats.JSOpt) (*nats.StreamInfo, error) {
	f.added = cfg
	return &nats.StreamInfo{Config: *cfg}, nil
}

func TestEnsureLinkStream_Existing(t *testing.T) {
	js := &fakeStreams{}
	require.NoError(t, EnsureLinkStream(js))
	assert.Nil(t, js.added)
}

func TestEnsureLinkStream_Creates(t *testing.T) {
	js := &fakeStreams{infoErr: nats.ErrStreamNotFound}
	require.NoError(t, EnsureLinkStream(js))
	require.NotNil(t, js.added)
	assert.Equal(t, model.LinkStreamName, js.added.Name)
	assert.Equal(t, []string{model.LinkStreamSubject}, js.added.Subjects)
	assert.Equal(t, model.LinkStreamMaxAge, js.added.MaxAge)
}

func TestEnsureLinkStream_OtherError(t *testing.T) {
	js := &fakeStreams{infoErr: errors.New("timeout")}
	assert.Error(t, EnsureLinkStream(js))
	assert.Nil(t, js.added)
}

func TestURL(t *testing.T) {
	assert.Equal(t, "nats://localhost:4222", URL(config.NATSConfig{}))
	assert.Equal(t, "nats://broker:5222", URL(config.NATSConfig{Host: "broker", Port: 5222}))
}
