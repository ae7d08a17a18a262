package tele

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/golang/protobuf/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temoto/telloctl/hardware/tello"
	"github.com/temoto/telloctl/log2"
	tele_config "github.com/temoto/telloctl/tele/config"
)

type fakeSource struct {
	sync.Mutex
	snap  tello.Snapshot
	ok    bool
	state tello.State
	stat  tello.Stat
}

func (self *fakeSource) Snapshot() (tello.Snapshot, bool) {
	self.Lock()
	defer self.Unlock()
	return self.snap, self.ok
}

func (self *fakeSource) State() tello.State {
	self.Lock()
	defer self.Unlock()
	return self.state
}

func (self *fakeSource) Stat() tello.Stat {
	self.Lock()
	defer self.Unlock()
	return self.stat
}

func (self *fakeSource) Peer() net.Addr {
	return &net.UDPAddr{IP: net.IPv4(192, 168, 10, 1), Port: 8889}
}

func (self *fakeSource) set(f func(*fakeSource)) {
	self.Lock()
	f(self)
	self.Unlock()
}

func waitStub(t testing.TB, stub *Stub, cond func(telemetry, state [][]byte) bool) ([][]byte, [][]byte) {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		tm, st := stub.Snapshot()
		if cond(tm, st) {
			return tm, st
		}
		select {
		case <-stub.Notify():
		case <-time.After(10 * time.Millisecond):
		case <-deadline:
			t.Fatalf("stub timeout telemetry=%d state=%d", len(tm), len(st))
			return nil, nil
		}
	}
}

func decodeState(t testing.TB, b []byte) *State {
	t.Helper()
	s := new(State)
	require.NoError(t, proto.Unmarshal(b, s))
	return s
}

func TestBridge(t *testing.T) {
	t.Parallel()

	src := &fakeSource{state: tello.StateConnecting}
	stub := NewStub()
	conf := tele_config.Config{Enabled: true, PublishIntervalMs: 5}
	b := NewBridge(conf, src, stub, log2.NewTest(t, log2.LDebug))
	require.NoError(t, b.Start(context.Background()))

	will := decodeState(t, stub.Will)
	assert.Equal(t, SessionState_Terminated, will.State)

	_, st := waitStub(t, stub, func(_, st [][]byte) bool { return len(st) >= 1 })
	first := decodeState(t, st[0])
	assert.Equal(t, SessionState_Connecting, first.State)
	assert.Equal(t, "192.168.10.1:8889", first.Peer)

	src.set(func(s *fakeSource) {
		s.state = tello.StateConnected
		s.stat.Commands = 5
		s.snap = tello.Snapshot{Battery: 87, Pitch: -3, Barometer: 12.34, Time: time.Now()}
		s.ok = true
	})
	tm, st := waitStub(t, stub, func(tm, st [][]byte) bool { return len(tm) >= 1 && len(st) >= 2 })
	assert.Len(t, tm, 1, "same snapshot must be sent once")
	connected := decodeState(t, st[1])
	assert.Equal(t, SessionState_Connected, connected.State)
	assert.Equal(t, uint32(5), connected.Commands)

	var out Telemetry
	require.NoError(t, proto.Unmarshal(tm[0], &out))
	assert.Equal(t, int32(87), out.Battery)
	assert.Equal(t, int32(-3), out.Pitch)
	assert.Equal(t, 12.34, out.Barometer)

	src.set(func(s *fakeSource) { s.state = tello.StateTerminated })
	b.Stop()
	_, st = stub.Snapshot()
	assert.Equal(t, SessionState_Terminated, decodeState(t, st[len(st)-1]).State)
	assert.True(t, stub.Closed)
	assert.Equal(t, uint32(1), b.Stat().TelemetrySent)
}

func TestBridgeStateRetry(t *testing.T) {
	t.Parallel()

	src := &fakeSource{state: tello.StateConnected}
	stub := NewStub()
	stub.Fail = true
	b := NewBridge(tele_config.Config{PublishIntervalMs: 5}, src, stub, log2.NewTest(t, log2.LDebug))
	require.NoError(t, b.Start(context.Background()))
	defer b.Stop()

	require.Eventually(t, func() bool { return b.Stat().StateFailed >= 2 }, 3*time.Second, 5*time.Millisecond)
	stub.mu.Lock()
	stub.Fail = false
	stub.mu.Unlock()
	_, st := waitStub(t, stub, func(_, st [][]byte) bool { return len(st) >= 1 })
	assert.Equal(t, SessionState_Connected, decodeState(t, st[0]).State)
}

func TestConfigTopic(t *testing.T) {
	t.Parallel()

	c := tele_config.Config{}
	assert.Equal(t, "tello/state", c.Topic("state"))
	c = tele_config.Config{TopicPrefix: "fleet", ClientID: "d1"}
	assert.Equal(t, "fleet/d1/telemetry", c.Topic("telemetry"))
	assert.Equal(t, time.Second, c.PublishInterval())
	assert.Equal(t, 15*time.Second, c.Keepalive())
}

func TestMqttRequiresBroker(t *testing.T) {
	t.Parallel()

	b := NewBridge(tele_config.Config{Enabled: true}, &fakeSource{}, nil, log2.NewTest(t, log2.LDebug))
	err := b.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mqtt_broker")
}
