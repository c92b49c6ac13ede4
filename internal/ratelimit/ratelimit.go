// Package ratelimit caps how often a client may hit a route.
//
// Limiters are kept per Key (usually the client address) in a
// LimiterStore; Service turns a limiter answer into a Decision and
// Middleware maps it onto HTTP.
package ratelimit

import "time"

type Key string

// Limiter decides whether one more event is allowed right now.
type Limiter interface {
	Allow() bool
}

// LimiterStore returns the limiter for a key, creating it on first use.
type LimiterStore interface {
	Get(Key) Limiter
}

type Decision struct {
	Allowed bool
	// Remaining is the number of events still allowed, -1 when unknown.
	Remaining int
	// RetryAfter is the suggested wait when denied.
	RetryAfter time.Duration
}

type remainder interface {
	Remaining() int
}

type retryAfterer interface {
	RetryAfter() time.Duration
}

type Service struct {
	Store      LimiterStore
	RetryAfter time.Duration
}

func (s Service) Decide(key Key) Decision {
	if s.Store == nil {
		return Decision{Allowed: true, Remaining: -1}
	}
	if s.RetryAfter <= 0 {
		s.RetryAfter = 1 * time.Second
	}

	lim := s.Store.Get(key)
	if lim == nil {
		return Decision{Allowed: true, Remaining: -1}
	}

	allowed := lim.Allow()
	remaining := -1
	if r, ok := lim.(remainder); ok {
		remaining = r.Remaining()
	}
	if allowed {
		return Decision{Allowed: true, Remaining: remaining}
	}
	retry := s.RetryAfter
	if ra, ok := lim.(retryAfterer); ok {
		if d := ra.RetryAfter(); d > 0 {
			retry = d
		}
	}
	return Decision{Allowed: false, Remaining: 0, RetryAfter: retry}
}
