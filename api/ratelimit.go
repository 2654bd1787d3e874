package api

import (
	"sync"
	"time"

	"github.com/unilink-net/unilink/internal/snowflake"
	"github.com/unilink-net/unilink/models"
	"golang.org/x/time/rate"
)

// rateLimiters throttles authenticated calls per application, honouring each
// application's hourly budget. State is in-memory per process; a restart
// resets it, which is acceptable for a soft limit.
type rateLimiters struct {
	mu     sync.Mutex
	window time.Duration
	apps   map[snowflake.ID]*appLimiter
}

type appLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newRateLimiters() *rateLimiters {
	return &rateLimiters{
		window: time.Hour,
		apps:   make(map[snowflake.ID]*appLimiter),
	}
}

func (r *rateLimiters) allow(app *models.Application) bool {
	if app == nil || app.RateLimit <= 0 {
		return true
	}
	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.apps[app.ID]
	if !ok {
		burst := app.RateLimit / 10
		if burst < 1 {
			burst = 1
		}
		entry = &appLimiter{
			limiter: rate.NewLimiter(rate.Limit(float64(app.RateLimit)/3600.0), burst),
		}
		r.apps[app.ID] = entry
		r.cleanupLocked(now)
	}
	entry.lastSeen = now
	return entry.limiter.Allow()
}

func (r *rateLimiters) cleanupLocked(now time.Time) {
	for id, entry := range r.apps {
		if now.Sub(entry.lastSeen) > r.window {
			delete(r.apps, id)
		}
	}
}
