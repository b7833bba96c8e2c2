// Package limiter paces outbound tokenizer requests and detects rate limit
// signals in backend error messages.
package limiter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Limiter is a client-side requests-per-minute limiter. A nil or zero
// Limiter never blocks.
type Limiter struct {
	rpm int
	rl  *rate.Limiter
}

// New creates a Limiter allowing rpm requests per minute with a burst of rpm.
// rpm <= 0 disables limiting.
func New(rpm int) *Limiter {
	if rpm <= 0 {
		return &Limiter{}
	}
	return &Limiter{
		rpm: rpm,
		rl:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), rpm),
	}
}

// RPM returns the configured rate, 0 when unlimited.
func (l *Limiter) RPM() int {
	if l == nil {
		return 0
	}
	return l.rpm
}

// Wait blocks until a request may be sent or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil || l.rl == nil {
		return nil
	}
	if err := l.rl.Wait(ctx); err != nil {
		return fmt.Errorf("limiter.Wait: %w", err)
	}
	return nil
}

// Rate limit phrases seen in tokenizer backend and proxy error bodies.
var keywords = []string{
	"rate limit",
	"rate_limit",
	"too many requests",
	"429",
	"quota exceeded",
	"overloaded",
}

// DetectLimit reports whether a status code or error message signals a rate limit.
func DetectLimit(status int, msg string) bool {
	if status == 429 {
		return true
	}
	lower := strings.ToLower(msg)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// ErrRateLimit is returned when the backend refuses a request for rate reasons.
type ErrRateLimit struct {
	Status  int
	Message string
}

func (e *ErrRateLimit) Error() string {
	return "rate limit detected: " + e.Message
}
