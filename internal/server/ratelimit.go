package server

import (
	"fmt"
	"sync"
	"time"
)

// RateLimiter enforces per-client request rates and daily quotas. A zero
// limit disables that check.
type RateLimiter struct {
	mu sync.Mutex

	requestsPerMinute int
	requestsPerHour   int
	maxRequestsPerDay int
	maxDataPerDay     int64 // bytes

	clients map[string]*ClientUsage
	now     func() time.Time
}

// ClientUsage is the usage recorded for one client in the current windows.
type ClientUsage struct {
	RequestsThisMinute int
	RequestsThisHour   int
	RequestsToday      int
	BytesToday         int64

	minuteStart time.Time
	hourStart   time.Time
	dayStart    time.Time
}

// NewRateLimiter creates a rate limiter with the given limits.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		requestsPerMinute: cfg.RequestsPerMinute,
		requestsPerHour:   cfg.RequestsPerHour,
		maxRequestsPerDay: cfg.MaxRequestsPerDay,
		maxDataPerDay:     cfg.MaxDataPerDay,
		clients:           make(map[string]*ClientUsage),
		now:               time.Now,
	}
}

// Allow records a request of size bytes from client, or returns a
// *RateLimitError or *QuotaExceededError without recording it.
func (rl *RateLimiter) Allow(client string, size int64) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	usage, ok := rl.clients[client]
	if !ok {
		usage = &ClientUsage{minuteStart: now, hourStart: now, dayStart: startOfDay(now)}
		rl.clients[client] = usage
	}
	usage.roll(now)

	if rl.requestsPerMinute > 0 && usage.RequestsThisMinute >= rl.requestsPerMinute {
		return &RateLimitError{Window: "minute", Limit: rl.requestsPerMinute, RetryAfter: usage.minuteStart.Add(time.Minute).Sub(now)}
	}
	if rl.requestsPerHour > 0 && usage.RequestsThisHour >= rl.requestsPerHour {
		return &RateLimitError{Window: "hour", Limit: rl.requestsPerHour, RetryAfter: usage.hourStart.Add(time.Hour).Sub(now)}
	}
	resets := usage.dayStart.AddDate(0, 0, 1)
	if rl.maxRequestsPerDay > 0 && usage.RequestsToday >= rl.maxRequestsPerDay {
		return &QuotaExceededError{Kind: "requests", Limit: int64(rl.maxRequestsPerDay), Used: int64(usage.RequestsToday), Resets: resets}
	}
	if rl.maxDataPerDay > 0 && usage.BytesToday+size > rl.maxDataPerDay {
		return &QuotaExceededError{Kind: "data", Limit: rl.maxDataPerDay, Used: usage.BytesToday, Resets: resets}
	}

	usage.RequestsThisMinute++
	usage.RequestsThisHour++
	usage.RequestsToday++
	usage.BytesToday += size
	return nil
}

// Usage returns a copy of the usage recorded for client.
func (rl *RateLimiter) Usage(client string) ClientUsage {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if u, ok := rl.clients[client]; ok {
		cp := *u
		cp.roll(rl.now())
		return cp
	}
	return ClientUsage{}
}

func (u *ClientUsage) roll(now time.Time) {
	if now.Sub(u.minuteStart) >= time.Minute {
		u.RequestsThisMinute = 0
		u.minuteStart = now
	}
	if now.Sub(u.hourStart) >= time.Hour {
		u.RequestsThisHour = 0
		u.hourStart = now
	}
	if day := startOfDay(now); day.After(u.dayStart) {
		u.RequestsToday = 0
		u.BytesToday = 0
		u.dayStart = day
	}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// RateLimitError reports an exceeded request rate.
type RateLimitError struct {
	Window     string // "minute" or "hour"
	Limit      int
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s (limit: %d, retry after: %v)", e.Window, e.Limit, e.RetryAfter.Round(time.Second))
}

// QuotaExceededError reports an exhausted daily quota.
type QuotaExceededError struct {
	Kind   string // "requests" or "data"
	Limit  int64
	Used   int64
	Resets time.Time
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota exceeded for %s (used: %d, limit: %d, resets: %s)",
		e.Kind, e.Used, e.Limit, e.Resets.Format(time.RFC3339))
}
