package ratelimit

import (
	"context"
	"sync"
	"time"
)

// StatsEvent is one allow/deny decision.
type StatsEvent struct {
	Key     Key
	Allowed bool

	Method string
	Path   string

	At time.Time
}

// StatsStore records decisions. Middleware treats it as best effort: a
// failing store never fails the request.
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
	Totals(ctx context.Context) (Counters, error)
	// Routes returns counters keyed by "<method> <path>".
	Routes(ctx context.Context) (map[string]Counters, error)
}

type Counters struct {
	Allowed int64 `json:"allowed"`
	Denied  int64 `json:"denied"`
}

// MemoryStats counts decisions in process. Counters never expire.
type MemoryStats struct {
	mu      sync.Mutex
	total   Counters
	byRoute map[string]Counters
}

func NewMemoryStats() *MemoryStats {
	return &MemoryStats{
		byRoute: make(map[string]Counters),
	}
}

func (s *MemoryStats) Record(_ context.Context, ev StatsEvent) error {
	route := ev.Method + " " + ev.Path

	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.byRoute[route]
	if ev.Allowed {
		s.total.Allowed++
		c.Allowed++
	} else {
		s.total.Denied++
		c.Denied++
	}
	s.byRoute[route] = c
	return nil
}

func (s *MemoryStats) Totals(_ context.Context) (Counters, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total, nil
}

func (s *MemoryStats) Routes(_ context.Context) (map[string]Counters, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]Counters, len(s.byRoute))
	for k, v := range s.byRoute {
		out[k] = v
	}
	return out, nil
}
