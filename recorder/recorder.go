// Package recorder persists telemetry and command outcomes of each flight session.
package recorder

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/alive/v2"
	"github.com/temoto/telloctl/hardware/tello"
	"github.com/temoto/telloctl/log2"
)

const (
	commandQueueSize = 64
	writeTimeout     = 5 * time.Second
)

type Stat struct {
	Telemetry uint32
	Commands  uint32
	Dropped   uint32
	Errors    uint32
}

// Recorder implements tello.CommandObserver.
// Writes are done by one background task, observer never blocks on disk.
type Recorder struct {
	log      *log2.Log
	store    *Store
	flightID int64
	alive    *alive.Alive
	cmdCh    chan CommandRecord
	stat     Stat
}

func New(store *Store, log *log2.Log) *Recorder {
	return &Recorder{
		log:   log,
		store: store,
		cmdCh: make(chan CommandRecord, commandQueueSize),
	}
}

func (self *Recorder) FlightID() int64 { return atomic.LoadInt64(&self.flightID) }

func (self *Recorder) Stat() Stat {
	return Stat{
		Telemetry: atomic.LoadUint32(&self.stat.Telemetry),
		Commands:  atomic.LoadUint32(&self.stat.Commands),
		Dropped:   atomic.LoadUint32(&self.stat.Dropped),
		Errors:    atomic.LoadUint32(&self.stat.Errors),
	}
}

// Start opens new flight and records snapshots from sub until it is closed or Stop.
func (self *Recorder) Start(ctx context.Context, peer string, sub <-chan tello.Snapshot) error {
	id, err := self.store.BeginFlight(ctx, peer, time.Now())
	if err != nil {
		return errors.Annotate(err, "recorder begin flight")
	}
	atomic.StoreInt64(&self.flightID, id)
	self.log.Infof("recorder flight=%d peer=%s", id, peer)
	self.alive = alive.NewAlive()
	self.alive.Add(1)
	go self.loop(sub)
	return nil
}

// Stop flushes queued commands. Store is left open.
func (self *Recorder) Stop() {
	if self.alive == nil {
		return
	}
	self.alive.Stop()
	self.alive.Wait()
}

func (self *Recorder) ObserveCommand(cmd tello.Command, reply string, err error) {
	rec := CommandRecord{
		Time:  time.Now(),
		Kind:  cmd.Kind.String(),
		Verb:  cmd.Verb,
		Reply: reply,
	}
	if err != nil {
		rec.Error = err.Error()
	}
	select {
	case self.cmdCh <- rec:
	default:
		atomic.AddUint32(&self.stat.Dropped, 1)
	}
}

func (self *Recorder) loop(sub <-chan tello.Snapshot) {
	defer self.alive.Done()
	stopCh := self.alive.StopChan()
	for {
		select {
		case s, ok := <-sub:
			if !ok {
				self.flush(nil)
				return
			}
			self.writeTelemetry(&s)
		case rec := <-self.cmdCh:
			self.writeCommand(rec)
		case <-stopCh:
			self.flush(sub)
			return
		}
	}
}

// flush writes everything already queued without waiting for more.
func (self *Recorder) flush(sub <-chan tello.Snapshot) {
	for {
		select {
		case s, ok := <-sub:
			if !ok {
				sub = nil
				continue
			}
			self.writeTelemetry(&s)
		case rec := <-self.cmdCh:
			self.writeCommand(rec)
		default:
			return
		}
	}
}

func (self *Recorder) writeTelemetry(s *tello.Snapshot) {
	self.write(func(ctx context.Context) error {
		return self.store.AppendTelemetry(ctx, self.FlightID(), s)
	}, &self.stat.Telemetry)
}

func (self *Recorder) writeCommand(rec CommandRecord) {
	self.write(func(ctx context.Context) error {
		return self.store.AppendCommand(ctx, self.FlightID(), rec)
	}, &self.stat.Commands)
}

func (self *Recorder) write(f func(context.Context) error, counter *uint32) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := f(ctx); err != nil {
		atomic.AddUint32(&self.stat.Errors, 1)
		self.log.Errorf("recorder flight=%d err=%v", self.FlightID(), err)
		return
	}
	atomic.AddUint32(counter, 1)
}

// Close stops recording and closes store.
func (self *Recorder) Close() error {
	self.Stop()
	return errors.Annotate(self.store.Close(), "recorder close")
}
