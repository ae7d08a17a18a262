package tello

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temoto/alive/v2"
)

func (self *tenv) channel(interval time.Duration) (*Channel, *alive.Alive) {
	conn, err := net.ListenPacket("udp4", "127.0.0.1:0")
	require.NoError(self.t, err)
	ch := NewChannel(conn, self.drone.Addr(), 100*time.Millisecond, interval, nil, self.log)
	a := alive.NewAlive()
	ch.stopCh = a.StopChan()
	a.Add(1)
	go ch.readLoop(a)
	self.t.Cleanup(func() {
		a.Stop()
		_ = conn.Close()
		a.Wait()
	})
	return ch, a
}

func TestChannelDo(t *testing.T) {
	t.Parallel()
	env := testEnv(t)
	env.drone.SetHandler(MockReplies(map[string]string{"battery?": "87\r\n"}, "ok"))
	ch, _ := env.channel(time.Millisecond)

	reply, err := ch.Do(env.ctx, NewControl("command"))
	require.NoError(t, err)
	assert.Equal(t, "ok", reply)
	reply, err = ch.Do(env.ctx, NewRead("battery?"))
	require.NoError(t, err)
	assert.Equal(t, "87", reply)

	assert.Equal(t, []string{"command", "battery?"}, env.drone.Received())
	stat := ch.stat.load()
	assert.Equal(t, uint32(2), stat.Commands)
	assert.Equal(t, uint32(2), stat.Replies)
	assert.False(t, ch.LastReply().IsZero())
}

func TestChannelTimeout(t *testing.T) {
	t.Parallel()
	env := testEnv(t)
	env.drone.SetHandler(MockReplies(nil, ""))
	ch, _ := env.channel(time.Millisecond)

	start := time.Now()
	_, err := ch.Do(env.ctx, NewControl("takeoff").WithTimeout(50*time.Millisecond))
	require.Error(t, err)
	assert.True(t, errors.IsTimeout(err), errors.ErrorStack(err))
	assert.True(t, time.Since(start) >= 50*time.Millisecond)
	assert.Equal(t, uint32(1), ch.stat.load().Timeouts)
}

func TestChannelMalformed(t *testing.T) {
	t.Parallel()
	env := testEnv(t)
	env.drone.SetHandler(MockReplies(nil, "\xff\xfe"))
	ch, _ := env.channel(time.Millisecond)

	_, err := ch.Do(env.ctx, NewRead("sn?"))
	require.Error(t, err)
	assert.True(t, IsMalformed(err))
	assert.Equal(t, uint32(1), ch.stat.load().Malformed)
}

func TestChannelThrottle(t *testing.T) {
	t.Parallel()
	env := testEnv(t)
	ch, _ := env.channel(100 * time.Millisecond)

	start := time.Now()
	for i := 0; i < 2; i++ {
		_, err := ch.Do(env.ctx, NewControl("stop"))
		require.NoError(t, err)
	}
	assert.True(t, time.Since(start) >= 100*time.Millisecond, "second command must wait for interval")
}

func TestChannelContext(t *testing.T) {
	t.Parallel()
	env := testEnv(t)
	env.drone.SetHandler(MockReplies(nil, ""))
	ch, _ := env.channel(time.Millisecond)

	ctx, cancel := context.WithTimeout(env.ctx, 20*time.Millisecond)
	defer cancel()
	_, err := ch.Do(ctx, NewControl("land").WithTimeout(time.Second))
	require.Error(t, err)
	assert.Equal(t, context.DeadlineExceeded, errors.Cause(err))
}

func TestChannelStopped(t *testing.T) {
	t.Parallel()
	env := testEnv(t)
	env.drone.SetHandler(MockReplies(nil, ""))
	ch, a := env.channel(time.Millisecond)

	go func() {
		time.Sleep(20 * time.Millisecond)
		a.Stop()
	}()
	_, err := ch.Do(env.ctx, NewControl("land").WithTimeout(time.Second))
	assert.Equal(t, ErrTerminated, err)
}

// Replies carry no correlation id: a reply arriving after its command timed out
// is handed to the next command.
func TestChannelLateReply(t *testing.T) {
	t.Parallel()
	env := testEnv(t)
	env.drone.SetHandler(MockReplies(nil, ""))
	ch, _ := env.channel(time.Millisecond)

	_, err := ch.Do(env.ctx, NewRead("speed?").WithTimeout(30*time.Millisecond))
	require.True(t, errors.IsTimeout(err))
	env.drone.Reply([]byte("100.0"))
	time.Sleep(50 * time.Millisecond)

	env.drone.SetHandler(MockReplies(nil, "87"))
	reply, err := ch.Do(env.ctx, NewRead("battery?"))
	require.NoError(t, err)
	assert.Equal(t, "100.0", reply)
}

func TestChannelFireAsync(t *testing.T) {
	t.Parallel()
	env := testEnv(t)
	ch, _ := env.channel(time.Millisecond)

	require.NoError(t, ch.Fire("go 1 2 3 10"))
	assert.Equal(t, "go 1 2 3 10", env.last(1))

	select {
	case r := <-ch.DoAsync(env.ctx, NewControl("command")):
		require.NoError(t, r.Err)
		assert.Equal(t, "ok", r.Text)
	case <-time.After(3 * time.Second):
		t.Fatal("DoAsync no result")
	}
}
