package tello

import (
	"fmt"
	"sync/atomic"
)

type Stat struct {
	Commands          uint32
	Replies           uint32
	Timeouts          uint32
	Malformed         uint32
	Overwritten       uint32
	TelemetryAccepted uint32
	TelemetryDropped  uint32
	RCSent            uint32
	RCDropped         uint32
	LoopExits         uint32 // receive loops stopped by socket error while running
}

func (self *Stat) load() Stat {
	return Stat{
		Commands:          atomic.LoadUint32(&self.Commands),
		Replies:           atomic.LoadUint32(&self.Replies),
		Timeouts:          atomic.LoadUint32(&self.Timeouts),
		Malformed:         atomic.LoadUint32(&self.Malformed),
		Overwritten:       atomic.LoadUint32(&self.Overwritten),
		TelemetryAccepted: atomic.LoadUint32(&self.TelemetryAccepted),
		TelemetryDropped:  atomic.LoadUint32(&self.TelemetryDropped),
		RCSent:            atomic.LoadUint32(&self.RCSent),
		RCDropped:         atomic.LoadUint32(&self.RCDropped),
		LoopExits:         atomic.LoadUint32(&self.LoopExits),
	}
}

func (self Stat) String() string {
	return fmt.Sprintf("commands=%d replies=%d timeouts=%d malformed=%d overwritten=%d telemetry=%d/%d rc=%d/%d loop_exits=%d",
		self.Commands, self.Replies, self.Timeouts, self.Malformed, self.Overwritten,
		self.TelemetryAccepted, self.TelemetryDropped, self.RCSent, self.RCDropped, self.LoopExits)
}
