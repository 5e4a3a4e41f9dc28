package logging

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/joeycumines/go-catrate"
)

// DefaultWarnRates allows a burst of warnings per category and then roughly
// one per second.
var DefaultWarnRates = map[time.Duration]int{
	time.Second: 5,
	time.Minute: 60,
}

// RateLimited drops warnings beyond a per-category rate. It is used on the
// slot dispatch path, where a burst of stale feedback would otherwise turn
// into a burst of log writes.
type RateLimited struct {
	base       Logger
	limiter    *catrate.Limiter
	suppressed atomic.Uint64
}

// NewRateLimited wraps base. A nil or empty rates map disables limiting.
func NewRateLimited(base Logger, rates map[time.Duration]int) *RateLimited {
	if base == nil {
		base = Noop()
	}
	var limiter *catrate.Limiter
	if len(rates) != 0 {
		limiter = catrate.NewLimiter(rates)
	}
	return &RateLimited{base: base, limiter: limiter}
}

// Warn logs msg at warn level unless category exceeded its rate.
func (r *RateLimited) Warn(ctx context.Context, category string, msg string, fields ...Field) {
	if r.limiter != nil {
		if _, ok := r.limiter.Allow(category); !ok {
			r.suppressed.Add(1)
			return
		}
	}
	r.base.Warn(ctx, msg, fields...)
}

// Suppressed returns how many warnings were dropped so far.
func (r *RateLimited) Suppressed() uint64 { return r.suppressed.Load() }
