package tello

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/temoto/telloctl/helpers/atomic_clock"
	"github.com/temoto/telloctl/log2"
)

const rcLimit = 100

// RC is stick control vector, each component in [-100, 100].
type RC struct {
	LeftRight   int
	ForwardBack int
	UpDown      int
	Yaw         int
}

func clampRC(x int) int {
	switch {
	case x > rcLimit:
		return rcLimit
	case x < -rcLimit:
		return -rcLimit
	}
	return x
}

func (self RC) Clamp() RC {
	return RC{
		LeftRight:   clampRC(self.LeftRight),
		ForwardBack: clampRC(self.ForwardBack),
		UpDown:      clampRC(self.UpDown),
		Yaw:         clampRC(self.Yaw),
	}
}

func (self RC) Verb() string {
	c := self.Clamp()
	return fmt.Sprintf("rc %d %d %d %d", c.LeftRight, c.ForwardBack, c.UpDown, c.Yaw)
}

// RCThrottle sends at most one RC command per interval.
// Calls inside the window are dropped, not queued: callers resubmit every control tick.
type RCThrottle struct {
	log      *log2.Log
	send     func(Command) error
	interval time.Duration
	last     atomic_clock.Clock
	stat     *Stat
}

func NewRCThrottle(send func(Command) error, interval time.Duration, stat *Stat, log *log2.Log) *RCThrottle {
	if stat == nil {
		stat = new(Stat)
	}
	return &RCThrottle{log: log, send: send, interval: interval, stat: stat}
}

// Submit never blocks. Returns false if v was dropped.
func (self *RCThrottle) Submit(v RC) (bool, error) {
	now := atomic_clock.Source()
	last := self.last.UnixNano()
	if last != 0 && time.Duration(now-last) < self.interval {
		atomic.AddUint32(&self.stat.RCDropped, 1)
		return false, nil
	}
	// concurrent Submit won the window
	if !self.last.CompareAndSwap(last, now) {
		atomic.AddUint32(&self.stat.RCDropped, 1)
		return false, nil
	}
	if err := self.send(NewFire(v.Verb())); err != nil {
		return false, err
	}
	atomic.AddUint32(&self.stat.RCSent, 1)
	return true, nil
}
