package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Store enforces a rolling window per key: at most max events are allowed
// in any span of one window. Each key keeps the times of its allowed
// events; denied events are not recorded.
type Store struct {
	mu           sync.Mutex
	entries      map[Key]*window
	max          int
	window       time.Duration
	idleTTL      time.Duration
	cleanupEvery time.Duration
	now          func() time.Time
	logEvery     rate.Sometimes
}

type window struct {
	hits     []time.Time
	lastSeen time.Time
}

type StoreOption func(*Store)

// WithIdleTTL sets how long a key with no live hits is kept before Cleanup
// drops it.
func WithIdleTTL(d time.Duration) StoreOption {
	return func(s *Store) { s.idleTTL = d }
}

func WithCleanupEvery(d time.Duration) StoreOption {
	return func(s *Store) { s.cleanupEvery = d }
}

// WithClock replaces time.Now; tests use it to move across windows.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// NewWindowStore allows max events per rolling window for every key.
func NewWindowStore(max int, windowLen time.Duration, opts ...StoreOption) *Store {
	if max <= 0 {
		max = 1
	}
	s := &Store{
		entries:      make(map[Key]*window),
		max:          max,
		window:       windowLen,
		idleTTL:      windowLen,
		cleanupEvery: windowLen,
		now:          time.Now,
		logEvery:     rate.Sometimes{Interval: 10 * time.Minute},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Max() int { return s.max }

func (s *Store) Window() time.Duration { return s.window }

func (s *Store) Get(key Key) Limiter {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.entries[key]
	if !ok {
		w = &window{hits: make([]time.Time, 0, s.max)}
		s.entries[key] = w
	}
	w.lastSeen = now
	return &windowLimiter{store: s, w: w}
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Cleanup drops keys whose hits have all left the window and that were not
// seen for idleTTL. A dropped key has nothing left to remember.
func (s *Store) Cleanup() {
	now := s.now()
	cutoff := now.Add(-s.idleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, w := range s.entries {
		s.prune(w, now)
		if len(w.hits) == 0 && w.lastSeen.Before(cutoff) {
			delete(s.entries, k)
		}
	}
}

// StartJanitor runs Cleanup every cleanupEvery until ctx is done.
func (s *Store) StartJanitor(ctx context.Context) {
	if s.cleanupEvery <= 0 {
		return
	}

	t := time.NewTicker(s.cleanupEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.Cleanup()
				s.logEvery.Do(func() {
					slog.Debug("rate limiter cleanup", "keys", s.Len())
				})
			}
		}
	}()
}

// prune drops hits at or before now-window. Caller holds mu.
func (s *Store) prune(w *window, now time.Time) {
	cutoff := now.Add(-s.window)
	i := 0
	for i < len(w.hits) && !w.hits[i].After(cutoff) {
		i++
	}
	if i > 0 {
		w.hits = append(w.hits[:0], w.hits[i:]...)
	}
}

type windowLimiter struct {
	store *Store
	w     *window
}

func (l *windowLimiter) Allow() bool {
	s := l.store
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.prune(l.w, now)
	if len(l.w.hits) >= s.max {
		return false
	}
	l.w.hits = append(l.w.hits, now)
	return true
}

func (l *windowLimiter) Remaining() int {
	s := l.store
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.prune(l.w, now)
	return s.max - len(l.w.hits)
}

// RetryAfter is the time until the oldest hit leaves the window, zero when
// a slot is free.
func (l *windowLimiter) RetryAfter() time.Duration {
	s := l.store
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.prune(l.w, now)
	if len(l.w.hits) < s.max {
		return 0
	}
	return l.w.hits[0].Add(s.window).Sub(now)
}
