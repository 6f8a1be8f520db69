package worker

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// idleTTL is how long an unused key keeps its limiter
const idleTTL = 10 * time.Minute

// Limiter implements per-key rate limiting. Keys are client addresses for
// ingress and hosts for outbound fetches. Limiters of keys unused for
// idleTTL are evicted, so a stream of distinct clients does not grow it
// without bound; keys given a custom rate are kept.
type Limiter struct {
	active *gocache.Cache
	pinned map[string]*rate.Limiter
	mu     sync.Mutex
	limit  rate.Limit
	burst  int
}

// NewLimiter creates a new rate limiter. A non-positive rate disables
// limiting.
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	return newLimiter(requestsPerSecond, burst, idleTTL)
}

func newLimiter(requestsPerSecond float64, burst int, ttl time.Duration) *Limiter {
	if burst <= 0 {
		burst = 5
	}

	limit := rate.Limit(requestsPerSecond)
	if requestsPerSecond <= 0 {
		limit = rate.Inf
	}

	return &Limiter{
		active: gocache.New(ttl, ttl),
		pinned: make(map[string]*rate.Limiter),
		limit:  limit,
		burst:  burst,
	}
}

// Allow reports whether a request for key may proceed now
func (l *Limiter) Allow(key string) bool {
	return l.get(key).Allow()
}

// Wait blocks until a request for key may proceed
func (l *Limiter) Wait(ctx context.Context, key string) error {
	return l.get(key).Wait(ctx)
}

// WaitURL waits on the URL's host, then for any additional delay (such as
// a robots.txt crawl delay)
func (l *Limiter) WaitURL(ctx context.Context, rawURL string, additionalDelay time.Duration) error {
	host, err := HostKey(rawURL)
	if err != nil {
		return err
	}
	if err := l.Wait(ctx, host); err != nil {
		return err
	}

	if additionalDelay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(additionalDelay):
		}
	}

	return nil
}

// SetRate pins a custom rate limit for one key
func (l *Limiter) SetRate(key string, requestsPerSecond float64, burst int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if burst <= 0 {
		burst = l.burst
	}

	l.active.Delete(key)
	l.pinned[key] = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
}

// Len returns the number of keys currently tracked
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active.ItemCount() + len(l.pinned)
}

// get returns the limiter of key and restarts its idle timer
func (l *Limiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if limiter, ok := l.pinned[key]; ok {
		return limiter
	}

	var limiter *rate.Limiter
	if v, ok := l.active.Get(key); ok {
		limiter = v.(*rate.Limiter)
	} else {
		limiter = rate.NewLimiter(l.limit, l.burst)
	}
	l.active.Set(key, limiter, gocache.DefaultExpiration)

	return limiter
}

// HostKey returns the limiter key of a URL: its host
func HostKey(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("no host in %q", rawURL)
	}
	return parsed.Host, nil
}
