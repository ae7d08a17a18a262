package state

import (
	"context"
	"fmt"
	"sync"

	"github.com/juju/errors"
	"github.com/temoto/alive/v2"
	"github.com/temoto/telloctl/hardware/tello"
	"github.com/temoto/telloctl/helpers"
	"github.com/temoto/telloctl/log2"
	"github.com/temoto/telloctl/recorder"
	"github.com/temoto/telloctl/tele"
)

const recorderBuffer = 16

type Global struct {
	Alive    *alive.Alive
	Config   *Config
	Log      *log2.Log
	Session  *tello.Session
	Recorder *recorder.Recorder
	Tele     *tele.Bridge

	// test code sets, nil means MQTT
	TeleTransport tele.Transporter

	lk              sync.Mutex
	recorderStarted bool
	stopOnce        sync.Once
}

const ContextKey = "run/state-global"

func NewContext(log *log2.Log) (context.Context, *Global) {
	g := &Global{
		Alive: alive.NewAlive(),
		Log:   log,
	}
	return context.WithValue(context.Background(), ContextKey, g), g
}

func GetGlobal(ctx context.Context) *Global {
	v := ctx.Value(ContextKey)
	if v == nil {
		panic(fmt.Sprintf("context['%s'] is nil", ContextKey))
	}
	if g, ok := v.(*Global); ok {
		return g
	}
	panic(fmt.Sprintf("context['%s'] expected type *Global actual=%#v", ContextKey, v))
}

// If `Init` fails, consider `Global` is in broken state.
func (g *Global) Init(ctx context.Context, cfg *Config) error {
	g.Config = cfg
	if cfg.Log.Level != "" {
		level, err := log2.ParseLevel(cfg.Log.Level)
		if err != nil {
			return errors.Annotate(err, "config log.level")
		}
		g.Log.SetLevel(level)
	}

	s, err := tello.NewSession(cfg.Drone, g.Log)
	if err != nil {
		return errors.Annotate(err, "session")
	}
	g.Session = s

	if cfg.Recorder.Enable {
		g.Recorder = recorder.New(recorder.NewStore(cfg.RecorderPath()), g.Log)
		g.Session.SetObserver(g.Recorder)
		g.Log.Debugf("config: recorder.path=%s", cfg.RecorderPath())
	}

	if cfg.Tele.Enabled {
		g.Tele = tele.NewBridge(cfg.Tele, g.Session, g.TeleTransport, g.Log)
		if err := g.Tele.Start(ctx); err != nil {
			return errors.Annotate(err, "tele init")
		}
	}
	return nil
}

func (g *Global) MustInit(ctx context.Context, cfg *Config) {
	if err := g.Init(ctx, cfg); err != nil {
		g.Log.Fatal(errors.ErrorStack(err))
	}
}

// Connect performs session handshake and starts flight recording once.
func (g *Global) Connect(ctx context.Context) error {
	if err := g.Session.Connect(ctx); err != nil {
		return err
	}
	g.lk.Lock()
	defer g.lk.Unlock()
	if g.Recorder != nil && !g.recorderStarted {
		sub, _ := g.Session.SubscribeTelemetry(recorderBuffer)
		if err := g.Recorder.Start(ctx, g.Session.Peer().String(), sub); err != nil {
			g.Error(err)
			return nil
		}
		g.recorderStarted = true
	}
	return nil
}

// Stop ends session, flushes recorder and tele. Safe to call many times.
func (g *Global) Stop() {
	g.stopOnce.Do(func() {
		if g.Session != nil {
			g.Session.End()
		}
		errs := make([]error, 0, 2)
		if g.Recorder != nil {
			errs = append(errs, g.Recorder.Close())
		}
		if g.Tele != nil {
			g.Tele.Stop()
		}
		if err := helpers.FoldErrors(errs); err != nil {
			g.Error(err, "stop")
		}
		g.Alive.Stop()
	})
}

func (g *Global) Error(err error, args ...interface{}) {
	if err != nil {
		if len(args) != 0 {
			msg := args[0].(string)
			args = args[1:]
			err = errors.Annotatef(err, msg, args...)
		}
		g.Log.Errorf("%s", errors.ErrorStack(err))
	}
}
