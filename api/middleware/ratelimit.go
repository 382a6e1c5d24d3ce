package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/truthlens/config"
	"golang.org/x/time/rate"
)

// idleBucketAge is how long a client's bucket survives without traffic.
const idleBucketAge = time.Hour

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter holds a token bucket per client. Only work that reaches the
// verifier is charged, so replaying a cached verdict stays free. A nil
// Limiter allows everything.
type Limiter struct {
	limit rate.Limit
	burst int
	now   func() time.Time

	mu        sync.Mutex
	buckets   map[string]*bucket
	nextSweep time.Time
}

// NewLimiter returns nil when cfg disables limiting.
func NewLimiter(cfg config.RateLimitConfig) *Limiter {
	if cfg.RequestsPerSecond <= 0 {
		return nil
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		limit:   rate.Limit(cfg.RequestsPerSecond),
		burst:   burst,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

// Allow takes a token for id. When none is left it reports how long the
// client should wait before retrying.
func (l *Limiter) Allow(id string) (bool, time.Duration) {
	if l == nil {
		return true, 0
	}
	now := l.now()

	l.mu.Lock()
	l.sweep(now)
	b, ok := l.buckets[id]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[id] = b
	}
	b.lastSeen = now
	l.mu.Unlock()

	r := b.limiter.ReserveN(now, 1)
	if !r.OK() {
		return false, 0
	}
	if wait := r.DelayFrom(now); wait > 0 {
		r.CancelAt(now)
		return false, wait
	}
	return true, 0
}

// AllowRequest charges the client behind c.
func (l *Limiter) AllowRequest(c *gin.Context) (bool, time.Duration) {
	return l.Allow(ClientIdentity(c))
}

// Clients reports how many buckets are live.
func (l *Limiter) Clients() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// sweep drops idle buckets at most once per idleBucketAge. Callers hold mu.
func (l *Limiter) sweep(now time.Time) {
	if now.Before(l.nextSweep) {
		return
	}
	l.nextSweep = now.Add(idleBucketAge)
	cutoff := now.Add(-idleBucketAge)
	for id, b := range l.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(l.buckets, id)
		}
	}
}

// ClientIdentity keys a client by the API key Auth accepted, falling back
// to its IP.
func ClientIdentity(c *gin.Context) string {
	if key := c.GetString(APIKeyContextKey); key != "" {
		return "key:" + key
	}
	return "ip:" + c.ClientIP()
}
