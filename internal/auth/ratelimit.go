package auth

import (
	"strings"
	"sync"
	"time"

	"github.com/ivyscans/api/internal/apperr"
	"github.com/ivyscans/api/internal/config"
)

var ErrTooManyAttempts = apperr.New(apperr.KindRateLimited, "Too many login attempts. Please try again later.")

const sweepInterval = 5 * time.Minute

type throttleKey struct {
	ip    string
	email string
}

// strike counts failed logins of one client and email since windowStart.
type strike struct {
	failures    int
	windowStart time.Time
	lockedUntil time.Time
}

// LoginThrottle locks a client IP and email pair out after too many failed
// logins within a window. Successful logins clear the pair.
type LoginThrottle struct {
	mu      sync.Mutex
	strikes map[throttleKey]*strike

	limit   int
	window  time.Duration
	lockout time.Duration
	now     func() time.Time

	done     chan struct{}
	stopOnce sync.Once
}

// NewLoginThrottle builds a throttle from the auth settings and starts
// sweeping stale entries in the background. Call Stop to end the sweep.
func NewLoginThrottle(cfg config.Auth) *LoginThrottle {
	t := newLoginThrottle(cfg, time.Now)
	go t.sweepLoop(sweepInterval)
	return t
}

func newLoginThrottle(cfg config.Auth, now func() time.Time) *LoginThrottle {
	t := &LoginThrottle{
		strikes: make(map[throttleKey]*strike),
		limit:   cfg.MaxLoginAttempts,
		window:  cfg.RateLimitWindow,
		lockout: cfg.LockoutDuration,
		now:     now,
		done:    make(chan struct{}),
	}
	if t.limit <= 0 {
		t.limit = 5
	}
	if t.window <= 0 {
		t.window = 15 * time.Minute
	}
	if t.lockout <= 0 {
		t.lockout = 30 * time.Minute
	}
	return t
}

func keyFor(ip, email string) throttleKey {
	return throttleKey{ip: ip, email: strings.ToLower(strings.TrimSpace(email))}
}

// Check returns ErrTooManyAttempts, carrying the remaining lockout as its
// retry-after hint, while the pair is locked out.
func (t *LoginThrottle) Check(ip, email string) error {
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.strikes[keyFor(ip, email)]
	if !ok || !now.Before(s.lockedUntil) {
		return nil
	}
	return apperr.Throttled(ErrTooManyAttempts, s.lockedUntil.Sub(now))
}

// Fail records a failed login. Reaching the limit inside the window starts
// a lockout.
func (t *LoginThrottle) Fail(ip, email string) {
	now := t.now()
	key := keyFor(ip, email)

	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.strikes[key]
	if !ok || now.Sub(s.windowStart) > t.window {
		s = &strike{windowStart: now}
		t.strikes[key] = s
	}
	s.failures++
	if s.failures >= t.limit {
		s.lockedUntil = now.Add(t.lockout)
	}
}

// Reset forgets the failures of the pair.
func (t *LoginThrottle) Reset(ip, email string) {
	t.mu.Lock()
	delete(t.strikes, keyFor(ip, email))
	t.mu.Unlock()
}

// Stop ends the background sweep. Safe to call more than once.
func (t *LoginThrottle) Stop() {
	t.stopOnce.Do(func() { close(t.done) })
}

func (t *LoginThrottle) sweepLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			t.sweep()
		case <-t.done:
			return
		}
	}
}

// sweep drops pairs whose window and lockout have both passed.
func (t *LoginThrottle) sweep() {
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	for key, s := range t.strikes {
		if now.Sub(s.windowStart) > t.window && !now.Before(s.lockedUntil) {
			delete(t.strikes, key)
		}
	}
}
