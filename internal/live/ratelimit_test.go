package live

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTokenBucket(t *testing.T) {
	now := time.Date(2025, 9, 7, 12, 0, 0, 0, time.UTC)
	tb := newTokenBucket(2, time.Minute)
	tb.now = func() time.Time { return now }
	tb.refilledAt = now

	assert.True(t, tb.Allow())
	assert.True(t, tb.Allow())
	assert.False(t, tb.Allow())

	now = now.Add(30 * time.Second)
	assert.False(t, tb.Allow(), "no refill before the period ends")

	now = now.Add(30 * time.Second)
	assert.True(t, tb.Allow())
	assert.True(t, tb.Allow())
	assert.False(t, tb.Allow())
}
