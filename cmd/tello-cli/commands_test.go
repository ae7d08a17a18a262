package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temoto/telloctl/hardware/tello"
	"github.com/temoto/telloctl/internal/state"
	"github.com/temoto/telloctl/log2"
)

func TestParseLine(t *testing.T) {
	t.Parallel()

	type Case struct {
		input  string
		names  []string
		loop   uint
		expect string
	}
	cases := []Case{
		{"", nil, 0, ""},
		{" ; ;", nil, 0, ""},
		{"takeoff", []string{"takeoff"}, 0, ""},
		{"TAKEOFF; up 50 ;land", []string{"takeoff", "up", "land"}, 0, ""},
		{"loop=3; cw 90", []string{"cw"}, 3, ""},
		{"log=debug; battery", []string{"log=debug", "battery"}, 0, ""},
		{"raw command now", []string{"raw"}, 0, ""},
		{"speed", []string{"speed"}, 0, ""},
		{"go 1 2 3 10 4", []string{"go"}, 0, ""},
		{"dance", nil, 0, "command 'dance' not found"},
		{"up", nil, 0, "up arguments, expected CM not valid"},
		{"go 1 2 3", nil, 0, "go arguments, expected X Y Z SPEED [MID] not valid"},
		{"loop=2; loop=3", nil, 0, "multiple loop commands, expected at most one"},
		{"loop=0", nil, 0, "word=loop=0 not valid"},
		{"log=loud", nil, 0, "log level=loud not valid"},
	}
	for _, c := range cases {
		c := c
		t.Run(c.input, func(t *testing.T) {
			s, err := parseLine(c.input)
			if c.expect != "" {
				require.Error(t, err)
				assert.Equal(t, c.expect, err.Error())
				return
			}
			require.NoError(t, err)
			names := make([]string, 0, len(s.steps))
			for _, st := range s.steps {
				names = append(names, st.a.name)
			}
			if len(c.names) == 0 {
				assert.Empty(t, names)
			} else {
				assert.Equal(t, c.names, names)
			}
			assert.Equal(t, c.loop, s.loop)
		})
	}
}

type tenv struct {
	t     testing.TB
	ctx   context.Context
	g     *state.Global
	drone *tello.MockDrone
}

func testEnv(t testing.TB, replies map[string]string) *tenv {
	drone := tello.NewMockDrone(t)
	drone.SetHandler(tello.MockReplies(replies, "ok"))
	ctx, g := state.NewContext(log2.NewTest(t, log2.LDebug))
	g.MustInit(ctx, &state.Config{Drone: drone.Config()})
	t.Cleanup(g.Stop)
	return &tenv{t: t, ctx: ctx, g: g, drone: drone}
}

func (self *tenv) run(line string) (string, error) {
	s, err := parseLine(line)
	require.NoError(self.t, err, line)
	buf := bytes.NewBuffer(nil)
	err = s.run(self.ctx, buf)
	return buf.String(), err
}

func TestExecute(t *testing.T) {
	t.Parallel()
	env := testEnv(t, map[string]string{
		"battery?":  "87\r\n",
		"attitude?": "pitch:1;roll:-2;yaw:3;\r\n",
		"sdk?":      "30",
		"land":      "error",
	})

	out, err := env.run("connect")
	require.NoError(t, err)
	assert.Contains(t, out, "connected peer=")

	out, err = env.run("takeoff; up 30; cw 90")
	require.NoError(t, err)
	assert.Equal(t, "ok\nok\nok\n", out)
	assert.True(t, env.g.Session.IsFlying())

	out, err = env.run("battery; attitude; sdk")
	require.NoError(t, err)
	assert.Equal(t, "87\npitch=1 roll=-2 yaw=3\n30\n", out)

	_, err = env.run("land")
	require.Error(t, err)
	assert.True(t, tello.IsProtocol(err), errors.ErrorStack(err))

	out, err = env.run("rc 200 0 0 0")
	require.NoError(t, err)
	assert.Equal(t, "sent\n", out)

	_, err = env.run("flip x")
	require.Error(t, err)
	assert.True(t, errors.IsNotValid(errors.Cause(err)), errors.ErrorStack(err))

	out, err = env.run("status")
	require.NoError(t, err)
	assert.Contains(t, out, "state=connected")
	assert.Contains(t, out, "flying=true")

	received := env.drone.Received()
	assert.Contains(t, received, "up 30")
	assert.Contains(t, received, "cw 90")
	// rc expects no reply, datagram may still be in flight
	require.Eventually(t, func() bool {
		for _, verb := range env.drone.Received() {
			if verb == "rc 100 0 0 0" {
				return true
			}
		}
		return false
	}, 3*time.Second, 5*time.Millisecond, "received=%q", env.drone.Received())
}

func TestExecuteNotConnected(t *testing.T) {
	t.Parallel()
	env := testEnv(t, nil)

	_, err := env.run("takeoff")
	require.Error(t, err)
	assert.Equal(t, tello.ErrNotConnected, errors.Cause(err))

	out, err := env.run("status")
	require.NoError(t, err)
	assert.Contains(t, out, "state=disconnected")
	assert.Contains(t, out, "telemetry: none")

	_, err = env.run("flights")
	assert.True(t, errors.IsNotSupported(errors.Cause(err)))
}
