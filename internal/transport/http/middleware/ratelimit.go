package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"appraise/internal/transport/http/api"
)

// keyFunc buckets requests; an empty key falls back to the client IP.
type keyFunc func(r *http.Request) string

type bucket struct {
	hits    int
	resetAt time.Time
}

// limiter counts requests per key over a fixed window. Expired buckets
// are swept lazily once the map grows past sweepThreshold.
type limiter struct {
	mu      sync.Mutex
	max     int
	span    time.Duration
	key     keyFunc
	buckets map[string]*bucket
}

const sweepThreshold = 4096

func newLimiter(max int, span time.Duration, key keyFunc) *limiter {
	return &limiter{max: max, span: span, key: key, buckets: map[string]*bucket{}}
}

type verdict struct {
	allowed   bool
	remaining int
	resetIn   int
}

func (l *limiter) take(key string, now time.Time) verdict {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok || now.After(b.resetAt) {
		if len(l.buckets) >= sweepThreshold {
			l.sweep(now)
		}
		b = &bucket{resetAt: now.Add(l.span)}
		l.buckets[key] = b
	}
	b.hits++

	resetIn := int(b.resetAt.Sub(now).Seconds())
	if resetIn < 1 {
		resetIn = 1
	}
	return verdict{
		allowed:   b.hits <= l.max,
		remaining: l.max - b.hits,
		resetIn:   resetIn,
	}
}

// sweep drops expired buckets; callers hold the lock.
func (l *limiter) sweep(now time.Time) {
	for key, b := range l.buckets {
		if now.After(b.resetAt) {
			delete(l.buckets, key)
		}
	}
}

// allow takes a slot, writes the rate headers and answers 429 when the
// bucket is exhausted.
func (l *limiter) allow(w http.ResponseWriter, r *http.Request) bool {
	if l.max <= 0 {
		return true
	}
	key := l.key(r)
	if key == "" {
		key = clientIP(r)
	}
	v := l.take(key, time.Now())

	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(l.max))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(max(v.remaining, 0)))
	h.Set("X-RateLimit-Reset", strconv.Itoa(v.resetIn))
	if v.allowed {
		return true
	}

	h.Set("Retry-After", strconv.Itoa(v.resetIn))
	slog.Warn("rate limit exceeded",
		"key", key,
		"path", r.URL.Path,
		"method", r.Method,
		"limit", l.max,
		"windowSec", int(l.span.Seconds()),
	)
	api.Fail(w, http.StatusTooManyRequests, "rate_limited", "too many requests", GetRequestID(r.Context()))
	return false
}

// RateLimit caps all traffic per actor, falling back to the client IP
// for anonymous requests.
func RateLimit(limit int, window time.Duration) func(http.Handler) http.Handler {
	l := newLimiter(limit, window, actorKey)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.allow(w, r) {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SensitiveMutationRateLimit applies tighter buckets to credential
// endpoints and to campaign lifecycle mutations. Credential attempts are
// throttled per source IP and per target address, so neither spraying one
// account from many hosts nor many accounts from one host slips through.
func SensitiveMutationRateLimit(baseLimit int, window time.Duration) func(http.Handler) http.Handler {
	authLimit := max(baseLimit/4, 1)
	mutationLimit := max(baseLimit/2, 1)
	authByIP := newLimiter(authLimit, window, clientIP)
	authByEmail := newLimiter(authLimit, window, loginEmailKey)
	byActor := newLimiter(mutationLimit, window, actorKey)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch sensitiveRateScope(r) {
			case sensitiveScopeAuth:
				if !authByIP.allow(w, r) || !authByEmail.allow(w, r) {
					return
				}
			case sensitiveScopeActor:
				if !byActor.allow(w, r) {
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func actorKey(r *http.Request) string {
	if user, ok := GetUser(r.Context()); ok && user.UserID != "" {
		return "user:" + user.TenantID + ":" + user.UserID
	}
	return clientIP(r)
}

func loginEmailKey(r *http.Request) string {
	email := peekJSONString(r, "email")
	if email == "" {
		return clientIP(r)
	}
	return "email:" + strings.ToLower(email)
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return strings.TrimSpace(r.RemoteAddr)
}

// peekJSONString reads one string field out of a JSON body, restoring the
// body for the real handler.
func peekJSONString(r *http.Request, field string) string {
	if r.Body == nil {
		return ""
	}
	if !strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json") {
		return ""
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, 64*1024))
	if err != nil {
		return ""
	}
	r.Body = io.NopCloser(bytes.NewReader(raw))

	var payload map[string]any
	if json.Unmarshal(raw, &payload) != nil {
		return ""
	}
	value, _ := payload[field].(string)
	return strings.TrimSpace(value)
}

type sensitiveScope string

const (
	sensitiveScopeNone  sensitiveScope = ""
	sensitiveScopeAuth  sensitiveScope = "auth"
	sensitiveScopeActor sensitiveScope = "actor"
)

func sensitiveRateScope(r *http.Request) sensitiveScope {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
	default:
		return sensitiveScopeNone
	}

	path := normalizedAPIPath(r.URL.Path)
	switch path {
	case "/auth/login",
		"/auth/request-reset",
		"/auth/reset",
		"/auth/mfa/setup",
		"/auth/mfa/enable",
		"/auth/mfa/disable":
		return sensitiveScopeAuth
	case "/tasks/run":
		return sensitiveScopeActor
	}

	if strings.HasPrefix(path, "/campaigns/") {
		switch {
		case strings.HasSuffix(path, "/publish"),
			strings.HasSuffix(path, "/generate"),
			strings.HasSuffix(path, "/plan"),
			strings.HasSuffix(path, "/close"):
			return sensitiveScopeActor
		}
	}
	if strings.HasPrefix(path, "/evaluations/") && strings.HasSuffix(path, "/calibrate") {
		return sensitiveScopeActor
	}

	return sensitiveScopeNone
}

func normalizedAPIPath(path string) string {
	cleaned := strings.TrimPrefix(strings.TrimSpace(path), "/api/v1")
	if cleaned == "" {
		return "/"
	}
	if !strings.HasPrefix(cleaned, "/") {
		cleaned = "/" + cleaned
	}
	return cleaned
}
