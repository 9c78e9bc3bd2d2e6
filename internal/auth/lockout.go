package auth

import (
	"errors"
	"strings"
	"sync"
	"time"
)

// ErrLockedOut is returned for logins on an account that is locked.
var ErrLockedOut = errors.New("too many failed login attempts, try again later")

// Lockout tracks failed logins per account over a sliding window. An account
// with maxAttempts failures inside the window is locked until the oldest of
// them ages out.
type Lockout struct {
	failures    map[string][]time.Time
	mutex       sync.Mutex
	maxAttempts int
	window      time.Duration
	lastSweep   time.Time
	now         func() time.Time
}

func NewLockout(maxAttempts int, window time.Duration) *Lockout {
	if maxAttempts < 1 {
		maxAttempts = 5
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	return &Lockout{
		failures:    make(map[string][]time.Time),
		maxAttempts: maxAttempts,
		window:      window,
		now:         time.Now,
	}
}

// Locked reports whether further attempts for the account are refused.
func (l *Lockout) Locked(account string) bool {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	return len(l.prune(normalizeAccount(account))) >= l.maxAttempts
}

// Fail records a failed attempt and returns the failures still in the window.
func (l *Lockout) Fail(account string) int {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	l.sweep()
	key := normalizeAccount(account)
	recent := append(l.prune(key), l.now())
	l.failures[key] = recent
	return len(recent)
}

// Reset clears the account's failures after a successful login.
func (l *Lockout) Reset(account string) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	delete(l.failures, normalizeAccount(account))
}

// prune drops failures outside the window. Callers hold the mutex.
func (l *Lockout) prune(key string) []time.Time {
	windowStart := l.now().Add(-l.window)

	kept := l.failures[key][:0]
	for _, t := range l.failures[key] {
		if t.After(windowStart) {
			kept = append(kept, t)
		}
	}
	if len(kept) == 0 {
		delete(l.failures, key)
		return nil
	}
	l.failures[key] = kept
	return kept
}

// sweep drops accounts whose failures have all aged out, at most once per
// window. Callers hold the mutex.
func (l *Lockout) sweep() {
	now := l.now()
	if now.Sub(l.lastSweep) < l.window {
		return
	}
	l.lastSweep = now
	for key := range l.failures {
		l.prune(key)
	}
}

func normalizeAccount(account string) string {
	return strings.ToLower(strings.TrimSpace(account))
}
