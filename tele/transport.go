package tele

import (
	"context"
	"sync"

	"github.com/temoto/telloctl/log2"
	tele_config "github.com/temoto/telloctl/tele/config"
)

// Transporter delivers encoded payloads. Send* return false when message
// was not delivered, caller decides to retry.
type Transporter interface {
	Init(ctx context.Context, log *log2.Log, teleConfig tele_config.Config, willPayload []byte) error
	SendTelemetry(payload []byte) bool
	SendState(payload []byte) bool
	Close()
}

// Stub records payloads in memory, for tests and disabled tele.
type Stub struct {
	mu        sync.Mutex
	Fail      bool
	Will      []byte
	Telemetry [][]byte
	State     [][]byte
	Closed    bool
	notify    chan struct{}
}

func NewStub() *Stub { return &Stub{notify: make(chan struct{}, 1)} }

func (self *Stub) Init(ctx context.Context, log *log2.Log, teleConfig tele_config.Config, willPayload []byte) error {
	self.mu.Lock()
	self.Will = willPayload
	self.mu.Unlock()
	return nil
}

func (self *Stub) SendTelemetry(payload []byte) bool {
	return self.record(&self.Telemetry, payload)
}

func (self *Stub) SendState(payload []byte) bool {
	return self.record(&self.State, payload)
}

func (self *Stub) Close() {
	self.mu.Lock()
	self.Closed = true
	self.mu.Unlock()
}

// Notify fires after every recorded payload.
func (self *Stub) Notify() <-chan struct{} { return self.notify }

// Snapshot returns copies of recorded telemetry and state payloads.
func (self *Stub) Snapshot() (telemetry, state [][]byte) {
	self.mu.Lock()
	defer self.mu.Unlock()
	return append([][]byte(nil), self.Telemetry...), append([][]byte(nil), self.State...)
}

func (self *Stub) record(dst *[][]byte, payload []byte) bool {
	self.mu.Lock()
	if self.Fail {
		self.mu.Unlock()
		return false
	}
	*dst = append(*dst, payload)
	self.mu.Unlock()
	select {
	case self.notify <- struct{}{}:
	default:
	}
	return true
}
