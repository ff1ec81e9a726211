package documents

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const pollGateInterval = time.Second

// pollGate rate-limits external poll attempts per (owner, document) so a
// hot browser polling loop cannot hammer the verification capability. A
// denied attempt is not an error; the stored state is served instead.
type pollGate struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
}

func newPollGate(interval time.Duration) *pollGate {
	if interval <= 0 {
		interval = pollGateInterval
	}
	return &pollGate{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Every(interval),
	}
}

func (g *pollGate) Allow(userID, documentID string) bool {
	if g == nil {
		return true
	}
	key := userID + "|" + documentID
	g.mu.Lock()
	limiter, ok := g.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(g.limit, 1)
		g.limiters[key] = limiter
	}
	g.mu.Unlock()
	return limiter.Allow()
}
