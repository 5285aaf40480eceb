package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLink_IsExpired(t *testing.T) {
	expiry := time.Date(2025, 1, 15, 12, 30, 0, 0, time.UTC)
	link := Link{Expiry: expiry}

	assert.False(t, link.IsExpired(expiry.Add(-time.Second)))
	assert.False(t, link.IsExpired(expiry), "expiry instant still resolves")
	assert.True(t, link.IsExpired(expiry.Add(time.Millisecond)))
}

func TestLink_CloneIsDeep(t *testing.T) {
	link := Link{
		ShortCode: "abc123",
		Clicks:    []Click{{Source: "direct", Location: "Unknown"}},
	}

	clone := link.Clone()
	clone.Clicks[0].Source = "changed"
	clone.Clicks = append(clone.Clicks, Click{Source: "extra"})

	assert.Equal(t, "direct", link.Clicks[0].Source)
	assert.Len(t, link.Clicks, 1)
}

func TestLink_CloneKeepsEmptyClicksNonNil(t *testing.T) {
	link := Link{ShortCode: "abc123"}
	clone := link.Clone()
	assert.NotNil(t, clone.Clicks)
	assert.Empty(t, clone.Clicks)
}
