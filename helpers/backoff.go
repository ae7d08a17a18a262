package helpers

import (
	"sync/atomic"
	"time"

	"github.com/temoto/telloctl/helpers/atomic_clock"
)

// Backoff is limited exponential delay between retries.
// Zero delay before first attempt, each Failure multiplies next delay by K.
type Backoff struct {
	next int64 // atomic align
	last atomic_clock.Clock

	Min time.Duration
	Max time.Duration
	K   float32
	Res time.Duration // rounding, default 1ms
}

// Loop:
//   time.Sleep(b.DelayBefore())
//   err := op()
//   b.Update(err == nil)
func (b *Backoff) DelayBefore() time.Duration {
	next := time.Duration(atomic.LoadInt64(&b.next))
	if next == 0 {
		return 0
	}
	delay := b.limit(next)
	since := atomic_clock.Since(&b.last)
	if since >= delay {
		return 0
	}
	return b.round(delay - since)
}

// Next is delay that DelayBefore will be based on.
func (b *Backoff) Next() time.Duration { return time.Duration(atomic.LoadInt64(&b.next)) }

func (b *Backoff) Failure() {
	next := time.Duration(atomic.LoadInt64(&b.next))
	if next == 0 {
		next = b.Min
	} else {
		next = time.Duration(float32(next) * b.K)
	}
	b.last.SetNow()
	atomic.StoreInt64(&b.next, int64(b.limit(next)))
}

func (b *Backoff) Reset() {
	b.last.SetNow()
	atomic.StoreInt64(&b.next, 0)
}

func (b *Backoff) Update(success bool) {
	if success {
		b.Reset()
	} else {
		b.Failure()
	}
}

func (b *Backoff) limit(d time.Duration) time.Duration {
	if d < b.Min {
		d = b.Min
	}
	if b.Max != 0 && d > b.Max {
		d = b.Max
	}
	return b.round(d)
}

func (b *Backoff) round(d time.Duration) time.Duration {
	res := b.Res
	if res == 0 {
		res = time.Millisecond
	}
	return d / res * res
}
