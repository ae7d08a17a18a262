package state

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temoto/telloctl/hardware/tello"
	"github.com/temoto/telloctl/log2"
	"github.com/temoto/telloctl/recorder"
	"github.com/temoto/telloctl/tele"
)

func TestGlobalLifecycle(t *testing.T) {
	t.Parallel()
	drone := tello.NewMockDrone(t)
	ctx, g := NewContext(log2.NewTest(t, log2.LDebug))
	stub := tele.NewStub()
	g.TeleTransport = stub

	dbPath := filepath.Join(t.TempDir(), "flights.db")
	cfg := &Config{Drone: drone.Config()}
	cfg.Recorder.Enable = true
	cfg.Recorder.Path = dbPath
	cfg.Tele.Enabled = true
	cfg.Tele.PublishIntervalMs = 5
	cfg.Log.Level = "debug"
	g.MustInit(ctx, cfg)
	defer g.Stop()

	require.NoError(t, g.Connect(ctx))
	assert.Equal(t, tello.ErrAlreadyConnected, g.Connect(ctx))
	drone.SendState(g.Session, []byte("pitch:0;roll:0;yaw:0;vgx:0;vgy:0;vgz:0;templ:60;temph:63;tof:10;h:0;bat:87;baro:12.34;time:0;agx:1.00;agy:-2.00;agz:-999.00;\r\n"))
	require.Eventually(t, func() bool { return g.Recorder.Stat().Telemetry == 1 }, 3*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		tm, _ := stub.Snapshot()
		return len(tm) >= 1
	}, 3*time.Second, 5*time.Millisecond)

	flightID := g.Recorder.FlightID()
	g.Stop()
	g.Stop()
	assert.Equal(t, tello.StateTerminated, g.Session.State())
	assert.True(t, stub.Closed)

	store := recorder.NewStore(dbPath)
	defer store.Close()
	cmds, err := store.Commands(ctx, flightID)
	require.NoError(t, err)
	require.NotEmpty(t, cmds)
	assert.Equal(t, "command", cmds[0].Verb)
	assert.Equal(t, "ok", cmds[0].Reply)
	list, err := store.Telemetry(ctx, flightID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 87, list[0].Battery)
}

func TestGlobalInitError(t *testing.T) {
	t.Parallel()
	ctx, g := NewContext(log2.NewTest(t, log2.LDebug))
	cfg := &Config{}
	cfg.Log.Level = "loud"
	assert.Error(t, g.Init(ctx, cfg))
}
