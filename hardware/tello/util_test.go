package tello

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	tello_config "github.com/temoto/telloctl/hardware/tello/config"
	"github.com/temoto/telloctl/log2"
)

// Helpers for testing tello package

const testDatagram = "pitch:0;roll:0;yaw:0;vgx:0;vgy:0;vgz:0;templ:60;temph:63;tof:10;h:0;bat:87;baro:12.34;time:0;agx:1.00;agy:-2.00;agz:-999.00;\r\n"

type tenv struct {
	t      testing.TB
	ctx    context.Context
	log    *log2.Log
	drone  *MockDrone
	config tello_config.Config
}

func testEnv(t testing.TB) *tenv {
	drone := NewMockDrone(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return &tenv{
		t:      t,
		ctx:    ctx,
		log:    log2.NewTest(t, log2.LDebug),
		drone:  drone,
		config: drone.Config(),
	}
}

func (self *tenv) session() *Session {
	s, err := NewSession(self.config, self.log)
	require.NoError(self.t, err)
	self.t.Cleanup(s.End)
	return s
}

func (self *tenv) connected() *Session {
	s := self.session()
	require.NoError(self.t, s.Connect(self.ctx))
	return s
}

// last returns most recent datagram seen by drone after waiting for n total.
func (self *tenv) last(n int) string {
	r := self.drone.WaitReceived(n, 3*time.Second)
	return r[len(r)-1]
}

// sequence replies with next item on each call, then repeats the last one.
// Empty item means no reply.
func sequence(replies ...string) MockHandler {
	i := 0
	return func(string) []string {
		r := replies[i]
		if i < len(replies)-1 {
			i++
		}
		if r == "" {
			return nil
		}
		return []string{r}
	}
}
