package httpx

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/dide/pkg/slogx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"
)

// RateLimitConfig is a token bucket: Requests per Window, refilled
// continuously, holding at most Burst tokens.
type RateLimitConfig struct {
	Name     string // metric label and env suffix
	Requests int
	Window   time.Duration
	Burst    int
}

var (
	// StrictLimit guards login, where each request is a password or code guess.
	StrictLimit = RateLimitFromEnv(RateLimitConfig{Name: "strict", Requests: 5, Window: time.Minute, Burst: 5})

	// ModerateLimit applies to authenticated admin calls.
	ModerateLimit = RateLimitFromEnv(RateLimitConfig{Name: "moderate", Requests: 20, Window: time.Minute, Burst: 20})

	// LenientLimit applies to health probes.
	LenientLimit = RateLimitFromEnv(RateLimitConfig{Name: "lenient", Requests: 100, Window: time.Minute, Burst: 100})
)

var rateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "dide_http_rate_limited_total",
	Help: "Requests rejected with 429, by limit.",
}, []string{"limit"})

// RateLimitFromEnv overrides def from RATELIMIT_<NAME>, formatted as
// "requests/window" or "requests/window/burst", e.g. "1000/1m/1000".
// Malformed values are ignored.
func RateLimitFromEnv(def RateLimitConfig) RateLimitConfig {
	v := os.Getenv("RATELIMIT_" + strings.ToUpper(def.Name))
	if v == "" {
		return def
	}
	cfg, err := ParseRateLimit(def.Name, v)
	if err != nil {
		return def
	}
	return cfg
}

// ParseRateLimit parses "requests/window[/burst]". Burst defaults to
// requests.
func ParseRateLimit(name, s string) (RateLimitConfig, error) {
	parts := strings.Split(s, "/")
	if len(parts) < 2 || len(parts) > 3 {
		return RateLimitConfig{}, fmt.Errorf("rate limit %q: want requests/window[/burst]", s)
	}

	requests, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || requests <= 0 {
		return RateLimitConfig{}, fmt.Errorf("rate limit %q: bad request count", s)
	}
	window, err := time.ParseDuration(strings.TrimSpace(parts[1]))
	if err != nil || window <= 0 {
		return RateLimitConfig{}, fmt.Errorf("rate limit %q: bad window", s)
	}

	burst := requests
	if len(parts) == 3 {
		burst, err = strconv.Atoi(strings.TrimSpace(parts[2]))
		if err != nil || burst <= 0 {
			return RateLimitConfig{}, fmt.Errorf("rate limit %q: bad burst", s)
		}
	}

	return RateLimitConfig{Name: name, Requests: requests, Window: window, Burst: burst}, nil
}

// KeyExtractor returns the bucket key for a request, or "" when it has none.
type KeyExtractor func(*http.Request) string

// IPKeyExtractor returns the client address, preferring the first
// X-Forwarded-For hop, then X-Real-IP.
func IPKeyExtractor(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// UserIDKeyExtractor returns the token subject set by AuthnMiddleware.
func UserIDKeyExtractor(r *http.Request) string {
	c, _ := ClaimsFromContext(r.Context())
	return c.Subject
}

// CompositeKeyExtractor joins the non-empty keys of extractors with sep.
func CompositeKeyExtractor(sep string, extractors ...KeyExtractor) KeyExtractor {
	return func(r *http.Request) string {
		parts := make([]string, 0, len(extractors))
		for _, extract := range extractors {
			if k := extract(r); k != "" {
				parts = append(parts, k)
			}
		}
		return strings.Join(parts, sep)
	}
}

// maxKeyBodyBytes bounds how much of a JSON body a key extractor will buffer.
const maxKeyBodyBytes = 64 << 10

// JSONFieldKeyExtractor reads a top-level string field from a JSON body,
// lowercased and trimmed. The body is restored for the handler.
func JSONFieldKeyExtractor(fieldName string) KeyExtractor {
	return func(r *http.Request) string {
		if r.Body == nil {
			return ""
		}

		raw, err := io.ReadAll(io.LimitReader(r.Body, maxKeyBodyBytes))
		_ = r.Body.Close()
		r.Body = io.NopCloser(bytes.NewReader(raw))
		if err != nil {
			return ""
		}

		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil {
			return ""
		}

		var v string
		if err := json.Unmarshal(fields[fieldName], &v); err != nil {
			return ""
		}
		return strings.ToLower(strings.TrimSpace(v))
	}
}

// idleTTL is how long an untouched bucket is kept before eviction.
const idleTTL = 10 * time.Minute

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// bucketSet holds one limiter per key and evicts idle ones on a timer
// driven by incoming traffic.
type bucketSet struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	limit     rate.Limit
	burst     int
	nextSweep time.Time
}

func newBucketSet(cfg RateLimitConfig) *bucketSet {
	return &bucketSet{
		buckets: make(map[string]*bucket),
		limit:   rate.Limit(float64(cfg.Requests) / cfg.Window.Seconds()),
		burst:   cfg.Burst,
	}
}

func (s *bucketSet) get(key string, now time.Time) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	if now.After(s.nextSweep) {
		for k, b := range s.buckets {
			if now.Sub(b.lastSeen) > idleTTL {
				delete(s.buckets, k)
			}
		}
		s.nextSweep = now.Add(idleTTL)
	}

	b, ok := s.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.buckets[key] = b
	}
	b.lastSeen = now
	return b.limiter
}

// RateLimitMiddleware rejects requests with 429 once the bucket for their
// key is empty. Requests without a key pass through.
func RateLimitMiddleware(cfg RateLimitConfig, key KeyExtractor) Middleware {
	set := newBucketSet(cfg)
	rejected := rateLimited.WithLabelValues(cfg.Name)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k := key(r)
			if k == "" {
				slogx.FromContext(r.Context()).Warn("rate limit: no key for request", "limit", cfg.Name)
				next.ServeHTTP(w, r)
				return
			}

			now := time.Now()
			lim := set.get(k, now)
			if lim.AllowN(now, 1) {
				next.ServeHTTP(w, r)
				return
			}

			rejected.Inc()
			retryAfter := 1
			if deficit := 1 - lim.TokensAt(now); deficit > 0 {
				retryAfter = max(int(math.Ceil(deficit/float64(lim.Limit()))), 1)
			}

			slogx.FromContext(r.Context()).Warn("rate limit exceeded",
				"limit", cfg.Name,
				"key", k,
				"path", r.URL.Path,
				"retry_after", retryAfter,
			)

			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.Requests))
			w.Header().Set("X-RateLimit-Window", cfg.Window.String())
			WriteJSON(w, http.StatusTooManyRequests, errorBody{
				Code:        "rate_limit_exceeded",
				Description: "too many requests, retry later",
			})
		})
	}
}

// RateLimitByIP keys on the client address.
func RateLimitByIP(cfg RateLimitConfig) Middleware {
	return RateLimitMiddleware(cfg, IPKeyExtractor)
}

// RateLimitByUser keys on the token subject plus the client address. Place
// it after AuthnMiddleware.
func RateLimitByUser(cfg RateLimitConfig) Middleware {
	return RateLimitMiddleware(cfg, CompositeKeyExtractor(":",
		UserIDKeyExtractor,
		IPKeyExtractor,
	))
}

// RateLimitByIPAndJSONField keys on the client address plus a JSON body
// field, e.g. login attempts per username.
func RateLimitByIPAndJSONField(cfg RateLimitConfig, fieldName string) Middleware {
	return RateLimitMiddleware(cfg, CompositeKeyExtractor(":",
		IPKeyExtractor,
		JSONFieldKeyExtractor(fieldName),
	))
}
