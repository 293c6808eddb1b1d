package middleware

import (
	"context"
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// defaultMaxClients caps the tracked-IP map so an address scan cannot
// exhaust memory. At capacity, unseen IPs are rejected until the cleanup
// sweep frees slots.
const defaultMaxClients = 100000

// RateLimiter enforces a per-IP token bucket across all routes.
type RateLimiter struct {
	mu         sync.Mutex
	clients    map[string]*tokenBucket
	rate       float64 // tokens per second
	burst      float64
	maxClients int

	now func() time.Time
}

// tokenBucket tracks one client. Tokens are fractional: refill accrues
// continuously at the configured rate, and a request needs a whole token.
type tokenBucket struct {
	tokens   float64
	refilled time.Time
}

// NewRateLimiter creates a limiter sustaining rate requests per second
// per IP, with the given burst headroom.
func NewRateLimiter(rate float64, burst int) *RateLimiter {
	return &RateLimiter{
		clients:    make(map[string]*tokenBucket),
		rate:       rate,
		burst:      float64(burst),
		maxClients: defaultMaxClients,
		now:        time.Now,
	}
}

// Handler rejects over-limit requests with 429 and a Retry-After hint.
// Every response carries rate headers so well-behaved clients can pace
// themselves before hitting the limit.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		remaining, retryAfter, allowed := rl.allow(clientIP(r))

		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(rl.now().Add(time.Second).Unix(), 10))

		if !allowed {
			w.Header().Set("Retry-After", fmt.Sprintf("%.0f", math.Ceil(retryAfter)))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate limit exceeded"}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// allow takes one token for ip, reporting the remaining whole tokens and,
// when denied, the seconds until the next token accrues.
func (rl *RateLimiter) allow(ip string) (remaining int, retryAfter float64, allowed bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, ok := rl.clients[ip]
	if !ok {
		if len(rl.clients) >= rl.maxClients {
			return 0, 1 / rl.rate, false
		}
		b = &tokenBucket{tokens: rl.burst, refilled: now}
		rl.clients[ip] = b
	} else {
		b.tokens = math.Min(rl.burst, b.tokens+now.Sub(b.refilled).Seconds()*rl.rate)
		b.refilled = now
	}

	if b.tokens < 1 {
		return 0, (1 - b.tokens) / rl.rate, false
	}
	b.tokens--
	return int(b.tokens), 0, true
}

// StartCleanup sweeps the client map every interval, dropping buckets
// idle longer than maxIdle. The returned function stops the sweep.
func (rl *RateLimiter) StartCleanup(interval, maxIdle time.Duration) func() {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rl.cleanup(maxIdle)
			}
		}
	}()
	return cancel
}

func (rl *RateLimiter) cleanup(maxIdle time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-maxIdle)
	for ip, b := range rl.clients {
		if b.refilled.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

// Len reports the tracked client count.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

// clientIP keys buckets by RemoteAddr alone. X-Forwarded-For and
// X-Real-Ip are spoofable, and trusting them would let a client mint
// fresh buckets at will.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
