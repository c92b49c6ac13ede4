package ratelimit

import (
	"context"
	"net/http"
	"time"
)

// SlotPool bounds how many callers hold a slot at once. Acquire blocks
// until a slot is free or ctx ends; release must be called exactly once.
type SlotPool interface {
	Acquire(ctx context.Context) (release func(), ok bool)
}

type chanPool struct {
	sem chan struct{}
}

func NewChanPool(max int) SlotPool {
	return &chanPool{sem: make(chan struct{}, max)}
}

func (p *chanPool) Acquire(ctx context.Context) (func(), bool) {
	select {
	case p.sem <- struct{}{}:
		return func() { <-p.sem }, true
	case <-ctx.Done():
		return nil, false
	}
}

type ConcurrencyOptions struct {
	Max            int
	AcquireTimeout time.Duration
	OnReject       http.HandlerFunc
}

// ConcurrencyMiddleware caps in-flight requests. With Max <= 0 it is a
// no-op; with AcquireTimeout <= 0 a request waits until its context ends.
func ConcurrencyMiddleware(opts ConcurrencyOptions) func(next http.Handler) http.Handler {
	if opts.Max <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if opts.OnReject == nil {
		opts.OnReject = func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		}
	}

	pool := NewChanPool(opts.Max)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if opts.AcquireTimeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, opts.AcquireTimeout)
				defer cancel()
			}

			release, ok := pool.Acquire(ctx)
			if !ok {
				opts.OnReject(w, r)
				return
			}
			defer release()

			next.ServeHTTP(w, r)
		})
	}
}
