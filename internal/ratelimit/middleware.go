package ratelimit

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

type KeyFunc func(r *http.Request) string

// RejectFunc writes the response for a denied request.
type RejectFunc func(w http.ResponseWriter, r *http.Request, dec Decision)

type Options struct {
	Store               LimiterStore
	Stats               StatsStore
	KeyFn               KeyFunc
	TrustXForwardedFor  bool
	RetryAfter          time.Duration
	AddRateLimitHeaders bool
	OnReject            RejectFunc
}

type quota interface {
	Max() int
}

// DefaultKeyFunc keys requests by client address: the first
// X-Forwarded-For hop when trustXFF is set, otherwise RemoteAddr's host.
func DefaultKeyFunc(trustXFF bool) KeyFunc {
	return func(r *http.Request) string {
		if trustXFF {
			if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
				first, _, _ := strings.Cut(xff, ",")
				if ip := strings.TrimSpace(first); ip != "" {
					return ip
				}
			}
		}

		host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
		if err == nil && host != "" {
			return host
		}
		if r.RemoteAddr != "" {
			return r.RemoteAddr
		}
		return "unknown"
	}
}

func defaultReject(w http.ResponseWriter, _ *http.Request, _ Decision) {
	http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
}

func Middleware(opts Options) func(next http.Handler) http.Handler {
	if opts.RetryAfter == 0 {
		opts.RetryAfter = 1 * time.Second
	}
	if opts.KeyFn == nil {
		opts.KeyFn = DefaultKeyFunc(opts.TrustXForwardedFor)
	}
	if opts.OnReject == nil {
		opts.OnReject = defaultReject
	}

	svc := Service{
		Store:      opts.Store,
		RetryAfter: opts.RetryAfter,
	}
	// A down stats backend fails on every request; warn once a minute.
	statsWarn := &rate.Sometimes{Interval: time.Minute}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := opts.KeyFn(r)
			dec := svc.Decide(Key(key))

			if opts.Stats != nil {
				err := opts.Stats.Record(r.Context(), StatsEvent{
					Key:     Key(key),
					Allowed: dec.Allowed,
					Method:  r.Method,
					Path:    r.URL.Path,
					At:      time.Now(),
				})
				if err != nil {
					statsWarn.Do(func() {
						slog.Warn("failed to record rate limit stats", "err", err)
					})
				}
			}

			if opts.AddRateLimitHeaders {
				if q, ok := opts.Store.(quota); ok {
					w.Header().Set("X-RateLimit-Limit", strconv.Itoa(q.Max()))
				}
				if dec.Remaining >= 0 {
					w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(dec.Remaining))
				}
			}

			if !dec.Allowed {
				secs := int(math.Ceil(dec.RetryAfter.Seconds()))
				if secs < 1 {
					secs = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				opts.OnReject(w, r, dec)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
