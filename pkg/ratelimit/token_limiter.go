package ratelimit

import (
	"context"
	"sync"
	"time"
)

// TokenLimiter enforces a per-minute token budget, for APIs that meter
// usage in tokens rather than requests.
type TokenLimiter struct {
	mu          sync.Mutex
	maxPerMin   int
	used        int
	windowStart time.Time
}

// NewTokenLimiter creates a limiter allowing maxPerMinute tokens per minute.
func NewTokenLimiter(maxPerMinute int) *TokenLimiter {
	return &TokenLimiter{
		maxPerMin:   maxPerMinute,
		windowStart: time.Now(),
	}
}

// Wait blocks until tokens can be spent within the current minute window,
// or returns the context error. Requests larger than the whole budget are
// admitted alone once the window resets.
func (l *TokenLimiter) Wait(ctx context.Context, tokens int) error {
	for {
		l.mu.Lock()
		l.rotateWindow()
		if l.used == 0 || l.used+tokens <= l.maxPerMin {
			l.used += tokens
			l.mu.Unlock()
			return nil
		}
		wait := time.Until(l.windowStart.Add(time.Minute))
		l.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// GetRemaining returns the tokens left in the current window.
func (l *TokenLimiter) GetRemaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rotateWindow()
	remaining := l.maxPerMin - l.used
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (l *TokenLimiter) rotateWindow() {
	if time.Since(l.windowStart) >= time.Minute {
		l.windowStart = time.Now()
		l.used = 0
	}
}
