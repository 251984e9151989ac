// Package ratelimit gates token-listing requests with a per-user
// cooldown
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter keeps one rate.Limiter per user id: cooldown interval, burst
// of one. A denied call doesn't consume anything, so hammering the
// command never extends the wait. State lives in memory only and is
// gone after a restart.
type Limiter struct {
	mu       sync.Mutex
	cooldown time.Duration
	users    map[int64]*rate.Limiter
}

func New(cooldown time.Duration) *Limiter {
	return &Limiter{
		cooldown: cooldown,
		users:    map[int64]*rate.Limiter{},
	}
}

// Allow reports whether the user may make a request at now, and if so
// starts their cooldown. The explicit now keeps tests deterministic.
func (l *Limiter) Allow(userID int64, now time.Time) bool {
	l.mu.Lock()
	lim, ok := l.users[userID]
	if !ok {
		lim = rate.NewLimiter(rate.Every(l.cooldown), 1)
		l.users[userID] = lim
	}
	l.mu.Unlock()

	return lim.AllowN(now, 1)
}
