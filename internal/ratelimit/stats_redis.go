package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStats aggregates decisions in Redis hashes:
//
//	<prefix>:total               allowed/denied, never expires
//	<prefix>:minute:<yyyymmddhhmm> allowed/denied, expires after ttl
//	<prefix>:route               "<method> <path>:<field>"
//
// Client keys are not stored.
type RedisStats struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisStats(rdb *redis.Client, prefix string, ttl time.Duration) *RedisStats {
	prefix = strings.Trim(prefix, ":")
	if prefix == "" {
		prefix = "ratelimit:stats"
	}
	return &RedisStats{
		rdb:    rdb,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (s *RedisStats) Record(ctx context.Context, ev StatsEvent) error {
	if s == nil || s.rdb == nil {
		return nil
	}

	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}

	field := "denied"
	if ev.Allowed {
		field = "allowed"
	}

	pipe := s.rdb.Pipeline()
	pipe.HIncrBy(ctx, s.prefix+":total", field, 1)

	bucketKey := s.minuteKey(at)
	pipe.HIncrBy(ctx, bucketKey, field, 1)
	if s.ttl > 0 {
		pipe.Expire(ctx, bucketKey, s.ttl)
	}

	if route := strings.TrimSpace(ev.Method + " " + ev.Path); route != "" {
		pipe.HIncrBy(ctx, s.prefix+":route", route+":"+field, 1)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record rate limit stats: %w", err)
	}
	return nil
}

func (s *RedisStats) minuteKey(at time.Time) string {
	return fmt.Sprintf("%s:minute:%s", s.prefix, at.UTC().Format("200601021504"))
}

// Totals reads the cumulative counters.
func (s *RedisStats) Totals(ctx context.Context) (Counters, error) {
	if s == nil || s.rdb == nil {
		return Counters{}, nil
	}
	vals, err := s.rdb.HGetAll(ctx, s.prefix+":total").Result()
	if err != nil {
		return Counters{}, fmt.Errorf("read rate limit stats: %w", err)
	}
	var c Counters
	for field, v := range vals {
		if err := c.add(field, v); err != nil {
			return Counters{}, err
		}
	}
	return c, nil
}

// Routes reads the per-route hash. Fields are "<route>:<allowed|denied>";
// the route itself may contain colons, so the field is cut at the last one.
func (s *RedisStats) Routes(ctx context.Context) (map[string]Counters, error) {
	out := make(map[string]Counters)
	if s == nil || s.rdb == nil {
		return out, nil
	}
	vals, err := s.rdb.HGetAll(ctx, s.prefix+":route").Result()
	if err != nil {
		return nil, fmt.Errorf("read rate limit route stats: %w", err)
	}
	for field, v := range vals {
		i := strings.LastIndex(field, ":")
		if i <= 0 {
			continue
		}
		route := field[:i]
		c := out[route]
		if err := c.add(field[i+1:], v); err != nil {
			return nil, err
		}
		out[route] = c
	}
	return out, nil
}

func (c *Counters) add(field, v string) error {
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fmt.Errorf("parse %s counter: %w", field, err)
	}
	switch field {
	case "allowed":
		c.Allowed += n
	case "denied":
		c.Denied += n
	}
	return nil
}
