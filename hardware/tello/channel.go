package tello

import (
	"context"
	"net"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/juju/errors"
	"github.com/temoto/alive/v2"
	"github.com/temoto/telloctl/helpers/atomic_clock"
	"github.com/temoto/telloctl/log2"
)

const modName string = "tello"
const replyBufferSize = 1024

// Channel owns command socket traffic: one verb per datagram, reply through Mailbox.
// Exactly one command may wait for reply at a time, callers serialize.
type Channel struct {
	log      *log2.Log
	conn     net.PacketConn
	peer     net.Addr
	mailbox  *Mailbox
	timeout  time.Duration
	interval time.Duration
	last     atomic_clock.Clock // last received reply
	stat     *Stat
	stopCh   <-chan struct{}
}

type Reply struct {
	Text string
	Err  error
}

func NewChannel(conn net.PacketConn, peer net.Addr, timeout, interval time.Duration, stat *Stat, log *log2.Log) *Channel {
	if stat == nil {
		stat = new(Stat)
	}
	return &Channel{
		log:      log,
		conn:     conn,
		peer:     peer,
		mailbox:  NewMailbox(),
		timeout:  timeout,
		interval: interval,
		stat:     stat,
	}
}

// Do sends cmd and blocks until reply, timeout, ctx cancel or session stop.
// Timeout is reported as errors.IsTimeout, not retried here.
func (self *Channel) Do(ctx context.Context, cmd Command) (string, error) {
	if err := self.throttle(ctx); err != nil {
		return "", err
	}
	self.log.Debugf("%s send command=%s", modName, cmd.Verb)
	if err := self.write(cmd.Verb); err != nil {
		return "", err
	}
	atomic.AddUint32(&self.stat.Commands, 1)

	timeout := cmd.Timeout
	if timeout <= 0 {
		timeout = self.timeout
	}
	tmr := time.NewTimer(timeout)
	defer tmr.Stop()
	select {
	case b := <-self.mailbox.C():
		return self.decode(cmd, b)
	case <-tmr.C:
		atomic.AddUint32(&self.stat.Timeouts, 1)
		self.log.Infof("%s timeout exceed on command=%s", modName, cmd.Verb)
		return "", errors.Timeoutf("%s command=%s response after %s", modName, cmd.Verb, timeout)
	case <-ctx.Done():
		return "", errors.Trace(ctx.Err())
	case <-self.stopCh:
		return "", ErrTerminated
	}
}

// DoAsync is Do for callers multiplexing several events in their own select.
// Result channel receives exactly one Reply.
func (self *Channel) DoAsync(ctx context.Context, cmd Command) <-chan Reply {
	ch := make(chan Reply, 1)
	go func() {
		text, err := self.Do(ctx, cmd)
		ch <- Reply{Text: text, Err: err}
	}()
	return ch
}

// Fire sends verb without waiting for reply.
func (self *Channel) Fire(verb string) error {
	if err := self.write(verb); err != nil {
		return err
	}
	atomic.AddUint32(&self.stat.Commands, 1)
	self.log.Debugf("%s send command=%s (no response expected)", modName, verb)
	return nil
}

func (self *Channel) LastReply() time.Time { return self.last.Time() }

func (self *Channel) throttle(ctx context.Context) error {
	if self.last.IsZero() {
		return nil
	}
	wait := self.interval - atomic_clock.Since(&self.last)
	if wait <= 0 {
		return nil
	}
	self.log.Debugf("%s throttle wait=%s", modName, wait)
	tmr := time.NewTimer(wait)
	defer tmr.Stop()
	select {
	case <-tmr.C:
		return nil
	case <-ctx.Done():
		return errors.Trace(ctx.Err())
	case <-self.stopCh:
		return ErrTerminated
	}
}

func (self *Channel) write(verb string) error {
	if _, err := self.conn.WriteTo([]byte(verb), self.peer); err != nil {
		return errors.Trace(TransportError{Op: "send " + verb, Err: err})
	}
	return nil
}

func (self *Channel) decode(cmd Command, b []byte) (string, error) {
	if !utf8.Valid(b) {
		atomic.AddUint32(&self.stat.Malformed, 1)
		err := MalformedReplyError{Command: cmd.Verb, Raw: b}
		self.log.Error(err)
		return "", err
	}
	reply := strings.TrimRight(string(b), "\r\n")
	self.last.SetNow()
	atomic.AddUint32(&self.stat.Replies, 1)
	self.log.Debugf("%s response command=%s reply=%s", modName, cmd.Verb, reply)
	return reply, nil
}

// readLoop feeds Mailbox until socket is closed.
func (self *Channel) readLoop(a *alive.Alive) {
	defer a.Done()
	buf := make([]byte, replyBufferSize)
	for {
		n, from, err := self.conn.ReadFrom(buf)
		if err != nil {
			if a.IsRunning() {
				atomic.AddUint32(&self.stat.LoopExits, 1)
				self.log.Errorf("%s reply loop read err=%v", modName, err)
			}
			return
		}
		b := make([]byte, n)
		copy(b, buf[:n])
		if self.mailbox.Put(b) {
			atomic.AddUint32(&self.stat.Overwritten, 1)
			self.log.Debugf("%s unconsumed reply overwritten by=%q from=%s", modName, b, from)
		}
	}
}
