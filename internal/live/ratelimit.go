package live

import (
	"sync"
	"time"
)

const (
	// Inbound messages a client may send per window
	maxMessagesPerWindow = 20
	rateLimitWindow      = 10 * time.Second
)

// tokenBucket limits inbound client messages. The bucket is refilled to
// maxTokens once per refillPeriod rather than continuously.
type tokenBucket struct {
	mu           sync.Mutex
	maxTokens    int
	tokens       int
	refillPeriod time.Duration
	refilledAt   time.Time
	now          func() time.Time
}

func newTokenBucket(maxTokens int, refillPeriod time.Duration) *tokenBucket {
	return &tokenBucket{
		maxTokens:    maxTokens,
		tokens:       maxTokens,
		refillPeriod: refillPeriod,
		refilledAt:   time.Now(),
		now:          time.Now,
	}
}

// Allow consumes a token, returning false when the bucket is empty
func (tb *tokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	if now := tb.now(); now.Sub(tb.refilledAt) >= tb.refillPeriod {
		tb.tokens = tb.maxTokens
		tb.refilledAt = now
	}

	if tb.tokens <= 0 {
		return false
	}
	tb.tokens--
	return true
}
