package relay

import (
	"sync/atomic"

	"golang.org/x/time/rate"
)

// consoleLimiter guards the operator terminal against console floods from a
// hot-looping page. Messages over the budget are dropped and counted; the
// dropped total is reported when the flood subsides.
type consoleLimiter struct {
	limiter *rate.Limiter
	dropped atomic.Int64
}

// newConsoleLimiter creates a limiter allowing perSec messages per second with
// the given burst. perSec <= 0 disables limiting.
func newConsoleLimiter(perSec float64, burst int) *consoleLimiter {
	if perSec <= 0 {
		return &consoleLimiter{}
	}
	return &consoleLimiter{limiter: rate.NewLimiter(rate.Limit(perSec), burst)}
}

// allow reports whether one more console message may be forwarded.
func (cl *consoleLimiter) allow() bool {
	if cl.limiter == nil {
		return true
	}
	if cl.limiter.Allow() {
		return true
	}
	cl.dropped.Add(1)
	return false
}

// takeDropped returns the number of messages dropped since the last call and
// resets the counter.
func (cl *consoleLimiter) takeDropped() int64 {
	return cl.dropped.Swap(0)
}
