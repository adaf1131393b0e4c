// Package ratelimit provides a per-client token bucket middleware that
// reports rejected requests through a respenvelope.Responder.
package ratelimit

import (
	"net"
	"net/http"
	"sync"
	"time"

	respenvelope "github.com/blackwell-systems/resp-envelope"
	"golang.org/x/time/rate"
)

// KeyFunc extracts the client key of a request.
type KeyFunc func(r *http.Request) string

// Option configures a Limiter.
type Option func(*Limiter)

// WithKeyFunc replaces the default remote-address key.
func WithKeyFunc(fn KeyFunc) Option {
	return func(l *Limiter) { l.key = fn }
}

// WithIdleTTL sets how long an unused client bucket is kept.
func WithIdleTTL(d time.Duration) Option {
	return func(l *Limiter) { l.ttl = d }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter keeps one token bucket per client key.
type Limiter struct {
	limit rate.Limit
	burst int
	key   KeyFunc
	ttl   time.Duration
	now   func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
	sweptAt time.Time
}

// New returns a Limiter allowing perSecond requests per client with the
// given burst.
func New(perSecond float64, burst int, opts ...Option) *Limiter {
	l := &Limiter{
		limit:   rate.Limit(perSecond),
		burst:   burst,
		key:     RemoteIP,
		ttl:     10 * time.Minute,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow reports whether the client identified by key may proceed and, if
// not, how long it should wait.
func (l *Limiter) Allow(key string) (bool, time.Duration) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweep(now)
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now

	res := b.limiter.ReserveN(now, 1)
	if !res.OK() {
		return false, 0
	}
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return false, delay
	}
	return true, 0
}

func (l *Limiter) sweep(now time.Time) {
	if now.Sub(l.sweptAt) < l.ttl {
		return
	}
	for k, b := range l.buckets {
		if now.Sub(b.lastSeen) >= l.ttl {
			delete(l.buckets, k)
		}
	}
	l.sweptAt = now
}

// Middleware rejects requests above the limit with a rate-limited
// envelope written by rs.
func (l *Limiter) Middleware(rs *respenvelope.Responder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, wait := l.Allow(l.key(r))
			if !ok {
				if err := rs.Fail(w, r, respenvelope.RateLimited(wait)); err != nil {
					panic(err)
				}
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RemoteIP keys requests by the host part of RemoteAddr.
func RemoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
