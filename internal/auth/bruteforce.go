package auth

import (
	"sync"
	"time"
)

// Lockout counts failed key attempts per IP within a sliding window.
// A nil Lockout never blocks.
type Lockout struct {
	mu          sync.Mutex
	maxAttempts int
	window      time.Duration
	failures    map[string][]time.Time
	now         func() time.Time
}

// NewLockout blocks an IP after maxAttempts failures within window.
func NewLockout(maxAttempts int, window time.Duration) *Lockout {
	return &Lockout{
		maxAttempts: maxAttempts,
		window:      window,
		failures:    make(map[string][]time.Time),
		now:         time.Now,
	}
}

// Fail records a failed attempt for ip.
func (l *Lockout) Fail(ip string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failures[ip] = append(l.recent(ip), l.now())
}

// Blocked reports whether ip has reached the failure limit.
func (l *Lockout) Blocked(ip string) bool {
	if l == nil || l.maxAttempts <= 0 {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	recent := l.recent(ip)
	if len(recent) == 0 {
		delete(l.failures, ip)
	} else {
		l.failures[ip] = recent
	}
	return len(recent) >= l.maxAttempts
}

// Reset forgets failures for ip after a successful attempt.
func (l *Lockout) Reset(ip string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	delete(l.failures, ip)
	l.mu.Unlock()
}

// CleanOld drops every failure older than the window.
func (l *Lockout) CleanOld() {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for ip := range l.failures {
		if recent := l.recent(ip); len(recent) > 0 {
			l.failures[ip] = recent
		} else {
			delete(l.failures, ip)
		}
	}
}

// recent returns the failures for ip inside the window. Caller holds mu.
func (l *Lockout) recent(ip string) []time.Time {
	cutoff := l.now().Add(-l.window)
	var kept []time.Time
	for _, t := range l.failures[ip] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	return kept
}
