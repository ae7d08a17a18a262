package tello

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/alive/v2"
	tello_config "github.com/temoto/telloctl/hardware/tello/config"
	"github.com/temoto/telloctl/helpers"
	"github.com/temoto/telloctl/log2"
)

const telemetryBufferSize = 256

type State uint32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateTerminated:
		return "terminated"
	}
	return fmt.Sprintf("State(%d)", uint32(s))
}

// Session owns both sockets and both receive loops of one drone connection.
// Lifecycle: Disconnected -> Connecting -> Connected -> Terminated.
// Failed Connect returns to Disconnected and may be retried.
// Terminated is final, create new Session to fly again.
//
// Commands are single-flight: callers must not issue a command before
// the previous one returned.
type Session struct {
	Log    *log2.Log
	config tello_config.Config
	peer   *net.UDPAddr

	lk        sync.Mutex // Connect, End and socket fields
	state     uint32
	alive     *alive.Alive
	cmdConn   net.PacketConn
	stateConn net.PacketConn
	ch        *Channel
	client    *Client
	rc        *RCThrottle
	observer  CommandObserver

	telemetry  atomic.Value // *Snapshot
	subsMu     sync.Mutex
	subs       []chan Snapshot
	subsClosed bool

	flying        uint32
	streaming     uint32
	telemetryDown uint32 // telemetry loop exited on socket error
	framesMu  sync.Mutex
	frames    FrameSource

	endOnce sync.Once
	stat    Stat
}

func NewSession(c tello_config.Config, log *log2.Log) (*Session, error) {
	peer, err := net.ResolveUDPAddr("udp4", c.PeerAddr())
	if err != nil {
		return nil, errors.Annotatef(err, "%s resolve peer=%s", modName, c.PeerAddr())
	}
	if c.LogDebug {
		log = log.Clone(log2.LDebug)
	}
	return &Session{Log: log, config: c, peer: peer}, nil
}

func (self *Session) Config() tello_config.Config { return self.config }
func (self *Session) Peer() net.Addr              { return self.peer }
func (self *Session) State() State                { return State(atomic.LoadUint32(&self.state)) }
func (self *Session) IsFlying() bool              { return atomic.LoadUint32(&self.flying) == 1 }
func (self *Session) IsStreaming() bool           { return atomic.LoadUint32(&self.streaming) == 1 }
func (self *Session) Stat() Stat                  { return self.stat.load() }

func (self *Session) setState(s State) {
	old := State(atomic.SwapUint32(&self.state, uint32(s)))
	if old != s {
		self.Log.Debugf("%s state %s -> %s", modName, old, s)
	}
}

func setFlag(p *uint32, v bool) {
	if v {
		atomic.StoreUint32(p, 1)
	} else {
		atomic.StoreUint32(p, 0)
	}
}

// SetObserver must be called before Connect.
func (self *Session) SetObserver(o CommandObserver) {
	self.lk.Lock()
	defer self.lk.Unlock()
	self.observer = o
	if self.client != nil {
		self.client.SetObserver(o)
	}
}

// LocalAddr of command socket, nil when not open.
func (self *Session) LocalAddr() net.Addr {
	self.lk.Lock()
	defer self.lk.Unlock()
	if self.cmdConn == nil {
		return nil
	}
	return self.cmdConn.LocalAddr()
}

// StateAddr of telemetry socket, nil when not open.
func (self *Session) StateAddr() net.Addr {
	self.lk.Lock()
	defer self.lk.Unlock()
	if self.stateConn == nil {
		return nil
	}
	return self.stateConn.LocalAddr()
}

// Connect binds both sockets, starts receive loops and performs "command" handshake.
func (self *Session) Connect(ctx context.Context) error {
	self.lk.Lock()
	defer self.lk.Unlock()
	switch self.State() {
	case StateConnected:
		return ErrAlreadyConnected
	case StateConnecting:
		return ErrConnecting
	case StateTerminated:
		return ErrTerminated
	}

	if err := self.open(ctx); err != nil {
		return errors.Annotate(err, "connect")
	}
	self.setState(StateConnecting)
	ok, err := self.client.Control(ctx, NewControl("command"))
	if err == nil && !ok {
		// lenient mode already logged the reply
		err = ProtocolError{Command: "command", Reply: "not acknowledged"}
	}
	if err != nil {
		if cerr := self.close(); cerr != nil {
			self.Log.Debugf("%s connect cleanup err=%v", modName, cerr)
		}
		self.setState(StateDisconnected)
		return errors.Annotate(err, "connect")
	}
	self.setState(StateConnected)
	self.Log.Infof("%s connected peer=%s", modName, self.peer)
	return nil
}

// End lands if flying, stops stream and frame source, closes sockets.
// Safe to call many times and on never connected session.
func (self *Session) End() {
	self.endOnce.Do(self.end)
}

func (self *Session) end() {
	self.lk.Lock()
	defer self.lk.Unlock()

	if self.State() == StateConnected {
		ctx := context.Background()
		if self.IsFlying() {
			if ok, err := self.client.Control(ctx, NewControl("land")); err != nil {
				self.Log.Errorf("%s end land err=%v", modName, err)
			} else if ok {
				setFlag(&self.flying, false)
			}
		}
		if self.IsStreaming() {
			if ok, err := self.client.Control(ctx, NewControl("streamoff")); err != nil {
				self.Log.Errorf("%s end streamoff err=%v", modName, err)
			} else if ok {
				setFlag(&self.streaming, false)
			}
		}
	}
	self.stopFrames()
	self.setState(StateTerminated)
	if err := self.close(); err != nil {
		// socket may be already invalid
		self.Log.Debugf("%s end close err=%v", modName, err)
	}
	self.closeSubscribers()
	self.Log.Infof("%s session ended stat=%s", modName, self.Stat().String())
}

// Wait until receive loops exit. Returns immediately if never connected.
func (self *Session) Wait() {
	self.lk.Lock()
	a := self.alive
	self.lk.Unlock()
	if a != nil {
		a.Wait()
	}
}

func (self *Session) open(ctx context.Context) error {
	localAddr, stateAddr := self.config.LocalAddress(), self.config.StateAddress()
	cmdConn, err := listenUDP(ctx, localAddr)
	if err != nil {
		return errors.Trace(TransportError{Op: "bind " + localAddr, Err: err})
	}
	stateConn, err := listenUDP(ctx, stateAddr)
	if err != nil {
		_ = cmdConn.Close()
		return errors.Trace(TransportError{Op: "bind " + stateAddr, Err: err})
	}

	self.cmdConn, self.stateConn = cmdConn, stateConn
	self.alive = alive.NewAlive()
	self.ch = NewChannel(cmdConn, self.peer, self.config.ResponseTimeout(), self.config.CommandInterval(), &self.stat, self.Log)
	self.ch.stopCh = self.alive.StopChan()
	self.client = NewClient(self.ch, self.config.Retries(), self.config.Lenient, self.Log)
	self.client.SetObserver(self.observer)
	self.rc = NewRCThrottle(self.client.Fire, self.config.RCInterval(), &self.stat, self.Log)

	setFlag(&self.telemetryDown, false)
	self.alive.Add(2)
	go self.ch.readLoop(self.alive)
	go self.telemetryLoop(self.alive, stateConn)
	self.Log.Debugf("%s listen command=%s state=%s", modName, cmdConn.LocalAddr(), stateConn.LocalAddr())
	return nil
}

// close stops receive loops and waits for them. Caller holds lk.
func (self *Session) close() error {
	if self.alive == nil {
		return nil
	}
	self.alive.Stop()
	errs := make([]error, 0, 2)
	for _, c := range []net.PacketConn{self.cmdConn, self.stateConn} {
		if c != nil {
			errs = append(errs, c.Close())
		}
	}
	self.cmdConn, self.stateConn = nil, nil
	self.alive.Wait()
	return helpers.FoldErrors(errs)
}

func listenUDP(ctx context.Context, addr string) (net.PacketConn, error) {
	lc := net.ListenConfig{Control: reuseAddrControl}
	return lc.ListenPacket(ctx, "udp4", addr)
}

func (self *Session) telemetryLoop(a *alive.Alive, conn net.PacketConn) {
	defer a.Done()
	buf := make([]byte, telemetryBufferSize)
	for {
		n, _, err := conn.ReadFrom(buf)
		if err != nil {
			if a.IsRunning() {
				setFlag(&self.telemetryDown, true)
				atomic.AddUint32(&self.stat.LoopExits, 1)
				self.Log.Errorf("%s telemetry loop read err=%v", modName, err)
			}
			return
		}
		self.acceptTelemetry(buf[:n])
	}
}

// acceptTelemetry publishes data if it parses completely.
func (self *Session) acceptTelemetry(data []byte) bool {
	if string(bytes.TrimSpace(data)) == "ok" {
		return false
	}
	snap, err := ParseSnapshot(data)
	if err != nil {
		atomic.AddUint32(&self.stat.TelemetryDropped, 1)
		self.Log.Errorf("%s %v", modName, err)
		return false
	}
	snap.Time = time.Now()
	self.telemetry.Store(&snap)
	atomic.AddUint32(&self.stat.TelemetryAccepted, 1)
	self.publish(snap)
	return true
}

// TelemetryActive is false unless connected and telemetry loop is receiving.
// After socket failure it stays false, snapshot goes stale.
func (self *Session) TelemetryActive() bool {
	return self.State() == StateConnected && atomic.LoadUint32(&self.telemetryDown) == 0
}

// Snapshot returns copy of latest telemetry, false if none received yet.
func (self *Session) Snapshot() (Snapshot, bool) {
	p, _ := self.telemetry.Load().(*Snapshot)
	if p == nil {
		return Snapshot{}, false
	}
	return *p, true
}

// SnapshotAge is time since latest telemetry, negative if none.
func (self *Session) SnapshotAge() time.Duration {
	s, ok := self.Snapshot()
	if !ok {
		return -1
	}
	return time.Since(s.Time)
}

// SubscribeTelemetry delivers every accepted snapshot.
// Slow subscriber misses snapshots, never blocks the receive loop.
// Channel is closed by cancel func or End.
func (self *Session) SubscribeTelemetry(buffer int) (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, buffer)
	self.subsMu.Lock()
	defer self.subsMu.Unlock()
	if self.subsClosed {
		close(ch)
		return ch, func() {}
	}
	self.subs = append(self.subs, ch)
	return ch, func() { self.unsubscribe(ch) }
}

func (self *Session) unsubscribe(ch chan Snapshot) {
	self.subsMu.Lock()
	defer self.subsMu.Unlock()
	for i, c := range self.subs {
		if c == ch {
			self.subs = append(self.subs[:i], self.subs[i+1:]...)
			close(ch)
			return
		}
	}
}

func (self *Session) publish(s Snapshot) {
	self.subsMu.Lock()
	defer self.subsMu.Unlock()
	for _, ch := range self.subs {
		select {
		case ch <- s:
		default:
		}
	}
}

func (self *Session) closeSubscribers() {
	self.subsMu.Lock()
	defer self.subsMu.Unlock()
	self.subsClosed = true
	for _, ch := range self.subs {
		close(ch)
	}
	self.subs = nil
}

func (self *Session) requireConnected() error {
	switch self.State() {
	case StateConnected:
		return nil
	case StateTerminated:
		return ErrTerminated
	}
	return ErrNotConnected
}

// Do sends cmd once and returns raw reply text.
func (self *Session) Do(ctx context.Context, cmd Command) (string, error) {
	if err := self.requireConnected(); err != nil {
		return "", err
	}
	reply, err := self.ch.Do(ctx, cmd)
	self.client.observe(cmd, reply, err)
	return reply, err
}

// DoAsync is Do delivering result on channel.
func (self *Session) DoAsync(ctx context.Context, cmd Command) <-chan Reply {
	if err := self.requireConnected(); err != nil {
		ch := make(chan Reply, 1)
		ch <- Reply{Err: err}
		return ch
	}
	in := self.ch.DoAsync(ctx, cmd)
	out := make(chan Reply, 1)
	go func() {
		r := <-in
		self.client.observe(cmd, r.Text, r.Err)
		out <- r
	}()
	return out
}

func (self *Session) Control(ctx context.Context, cmd Command) (bool, error) {
	if err := self.requireConnected(); err != nil {
		return false, err
	}
	return self.client.Control(ctx, cmd)
}

func (self *Session) Read(ctx context.Context, cmd Command) (Value, error) {
	if err := self.requireConnected(); err != nil {
		return Value{}, err
	}
	return self.client.Read(ctx, cmd)
}

func (self *Session) Fire(cmd Command) error {
	if err := self.requireConnected(); err != nil {
		return err
	}
	return self.client.Fire(cmd)
}

// SendRC submits stick vector through rate limiter.
// Returns false when dropped inside the rate window.
func (self *Session) SendRC(v RC) (bool, error) {
	if err := self.requireConnected(); err != nil {
		return false, err
	}
	return self.rc.Submit(v)
}
