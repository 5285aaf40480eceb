package kafka

import (
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/sifan077/QuickLink/config"
	"github.com/stretchr/testify/assert"
)

func TestNewWriter(t *testing.T) {
	w := NewWriter(config.KafkaConfig{Brokers: []string{"k1:9092", "k2:9092"}, Topic: "link-events"})

	assert.Equal(t, "link-events", w.Topic)
	assert.Equal(t, kafka.TCP("k1:9092", "k2:9092").String(), w.Addr.String())
	assert.Equal(t, "tcp,tcp", w.Addr.Network())
	assert.IsType(t, &kafka.Hash{}, w.Balancer)
	assert.Equal(t, kafka.RequireOne, w.RequiredAcks)
}
