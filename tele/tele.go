package tele

import (
	"context"
	"net"
	"sync/atomic"
	"time"

	"github.com/golang/protobuf/proto"
	"github.com/juju/errors"
	"github.com/temoto/alive/v2"
	"github.com/temoto/telloctl/hardware/tello"
	"github.com/temoto/telloctl/log2"
	tele_config "github.com/temoto/telloctl/tele/config"
)

// Source is the part of tello.Session the bridge reads.
type Source interface {
	Snapshot() (tello.Snapshot, bool)
	State() tello.State
	Stat() tello.Stat
	Peer() net.Addr
}

type Stat struct {
	TelemetrySent   uint32
	TelemetryFailed uint32
	StateSent       uint32
	StateFailed     uint32
}

// Bridge contract:
// - telemetry is sampled every interval, only fresh snapshots are sent, lost ones are not retried
// - state is sent on change and retried on next tick until delivered
// - Stop publishes final state and closes transport
type Bridge struct {
	log       *log2.Log
	config    tele_config.Config
	source    Source
	transport Transporter
	alive     *alive.Alive
	interval  time.Duration

	lastState     tello.State
	stateSent     bool
	lastTelemetry time.Time
	stat          Stat
}

// NewBridge with nil transport uses MQTT.
func NewBridge(teleConfig tele_config.Config, source Source, transport Transporter, log *log2.Log) *Bridge {
	log = log.Clone(log2.LInfo)
	if teleConfig.LogDebug {
		log.SetLevel(log2.LDebug)
	}
	if transport == nil {
		transport = &transportMqtt{}
	}
	return &Bridge{
		log:       log,
		config:    teleConfig,
		source:    source,
		transport: transport,
		interval:  teleConfig.PublishInterval(),
	}
}

func (self *Bridge) Start(ctx context.Context) error {
	will, err := proto.Marshal(&State{State: SessionState_Terminated})
	if err != nil {
		return errors.Annotate(err, "tele will")
	}
	if err := self.transport.Init(ctx, self.log, self.config, will); err != nil {
		return errors.Annotate(err, "tele transport")
	}
	self.lastState = self.source.State()
	self.alive = alive.NewAlive()
	self.alive.Add(1)
	go self.loop(ctx)
	return nil
}

func (self *Bridge) Stop() {
	if self.alive == nil {
		return
	}
	self.alive.Stop()
	self.alive.Wait()
	self.sendState(self.source.State())
	self.transport.Close()
}

func (self *Bridge) Stat() Stat {
	return Stat{
		TelemetrySent:   atomic.LoadUint32(&self.stat.TelemetrySent),
		TelemetryFailed: atomic.LoadUint32(&self.stat.TelemetryFailed),
		StateSent:       atomic.LoadUint32(&self.stat.StateSent),
		StateFailed:     atomic.LoadUint32(&self.stat.StateFailed),
	}
}

func (self *Bridge) loop(ctx context.Context) {
	defer self.alive.Done()
	tmr := time.NewTicker(self.interval)
	defer tmr.Stop()
	self.stateSent = self.sendState(self.lastState)
	for {
		select {
		case <-tmr.C:
			self.tick()
		case <-ctx.Done():
			return
		case <-self.alive.StopChan():
			return
		}
	}
}

func (self *Bridge) tick() {
	if s := self.source.State(); s != self.lastState || !self.stateSent {
		self.lastState = s
		self.stateSent = self.sendState(s)
	}
	snap, ok := self.source.Snapshot()
	if !ok || !snap.Time.After(self.lastTelemetry) {
		return
	}
	self.lastTelemetry = snap.Time
	payload, err := proto.Marshal(TelemetryOf(&snap))
	if err != nil {
		self.log.Errorf("CRITICAL tele telemetry marshal err=%v", err)
		return
	}
	if self.transport.SendTelemetry(payload) {
		atomic.AddUint32(&self.stat.TelemetrySent, 1)
	} else {
		atomic.AddUint32(&self.stat.TelemetryFailed, 1)
	}
}

func (self *Bridge) sendState(s tello.State) bool {
	peer := ""
	if a := self.source.Peer(); a != nil {
		peer = a.String()
	}
	payload, err := proto.Marshal(StateOf(s, self.source.Stat(), peer, time.Now()))
	if err != nil {
		self.log.Errorf("CRITICAL tele state marshal err=%v", err)
		return true // retry will not help
	}
	ok := self.transport.SendState(payload)
	if ok {
		atomic.AddUint32(&self.stat.StateSent, 1)
	} else {
		atomic.AddUint32(&self.stat.StateFailed, 1)
	}
	self.log.Debugf("tele state=%s delivered=%t", s, ok)
	return ok
}
