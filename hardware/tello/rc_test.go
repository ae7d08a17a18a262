package tello

import (
	"sync"
	"testing"
	"time"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temoto/telloctl/log2"
)

func TestRCClamp(t *testing.T) {
	t.Parallel()

	type Case struct {
		input  RC
		expect string
	}
	cases := []Case{
		{RC{}, "rc 0 0 0 0"},
		{RC{150, -150, 0, 5}, "rc 100 -100 0 5"},
		{RC{100, -100, 99, -99}, "rc 100 -100 99 -99"},
		{RC{101, -101, 1000, -1000}, "rc 100 -100 100 -100"},
	}
	for _, c := range cases {
		c := c
		t.Run(c.expect, func(t *testing.T) {
			assert.Equal(t, c.expect, c.input.Verb())
		})
	}
}

type rcRecorder struct {
	sync.Mutex
	verbs []string
	err   error
}

func (self *rcRecorder) send(cmd Command) error {
	self.Lock()
	defer self.Unlock()
	if self.err != nil {
		return self.err
	}
	self.verbs = append(self.verbs, cmd.Verb)
	return nil
}

func TestRCThrottleWindow(t *testing.T) {
	t.Parallel()

	rec := &rcRecorder{}
	stat := new(Stat)
	th := NewRCThrottle(rec.send, time.Hour, stat, log2.NewTest(t, log2.LDebug))
	sent := 0
	for i := 0; i < 10; i++ {
		ok, err := th.Submit(RC{LeftRight: i})
		require.NoError(t, err)
		if ok {
			sent++
		}
	}
	assert.Equal(t, 1, sent)
	assert.Equal(t, []string{"rc 0 0 0 0"}, rec.verbs)
	assert.Equal(t, uint32(1), stat.load().RCSent)
	assert.Equal(t, uint32(9), stat.load().RCDropped)
}

func TestRCThrottleSpaced(t *testing.T) {
	t.Parallel()

	rec := &rcRecorder{}
	th := NewRCThrottle(rec.send, 20*time.Millisecond, nil, log2.NewTest(t, log2.LDebug))
	for i := 1; i <= 3; i++ {
		ok, err := th.Submit(RC{Yaw: i})
		require.NoError(t, err)
		assert.True(t, ok)
		time.Sleep(30 * time.Millisecond)
	}
	assert.Equal(t, []string{"rc 0 0 0 1", "rc 0 0 0 2", "rc 0 0 0 3"}, rec.verbs)
}

func TestRCThrottleConcurrent(t *testing.T) {
	t.Parallel()

	rec := &rcRecorder{}
	th := NewRCThrottle(rec.send, time.Hour, nil, log2.NewTest(t, log2.LError))
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = th.Submit(RC{UpDown: 10})
		}()
	}
	wg.Wait()
	assert.Len(t, rec.verbs, 1)
}

func TestRCThrottleSendError(t *testing.T) {
	t.Parallel()

	rec := &rcRecorder{err: errors.New("network down")}
	th := NewRCThrottle(rec.send, time.Hour, nil, log2.NewTest(t, log2.LDebug))
	ok, err := th.Submit(RC{})
	assert.False(t, ok)
	assert.EqualError(t, err, "network down")
}
