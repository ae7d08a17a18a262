package main

import (
	"context"
	"flag"
	"os"

	"github.com/coreos/go-systemd/daemon"
	"github.com/juju/errors"
	"github.com/temoto/telloctl/helpers/cli"
	"github.com/temoto/telloctl/internal/state"
	"github.com/temoto/telloctl/log2"
	"gopkg.in/natefinch/lumberjack.v2"
)

const usage = `syntax: commands separated by ';', arguments by whitespace
(session)
- connect             enter SDK mode, start telemetry
- end                 land if flying, stream off, close sockets
- status              session state, last telemetry, counters
(flight)
- takeoff | land | stop | emergency
- up|down|left|right|forward|back CM
- cw|ccw DEGREES
- flip l|r|f|b
- go X Y Z SPEED [MID]
- curve X1 Y1 Z1 X2 Y2 Z2 SPEED [MID]
- jump X Y Z SPEED YAW MID1 MID2
- rc LR FB UD YAW     stick values, clamped to [-100,100]
- speed CM_S
- mon | moff | mdirection 0|1|2
- streamon | streamoff
(query)
- battery speed time height temp attitude baro tof wifi sdk sn
(meta)
- raw VERB            send VERB, print reply as is
- sleep MS            pause
- flights             list recorded flights
- log=debug|info|error
- loop=N              repeat N times all commands on this line
- help                Ctrl-D or end of input exits
`

var log = log2.NewStderr(log2.LInfo)

func main() {
	cmdline := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	flagConfig := cmdline.String("config", "tello.hcl", "empty to run with defaults")
	flagDebug := cmdline.Bool("debug", false, "debug logging")
	flagEnv := cmdline.String("env", ".env", "dotenv file, missing is ok")
	flagLogFile := cmdline.String("log-file", "", "write log to rotated file instead of stderr")
	flagConnect := cmdline.Bool("connect", true, "connect on start")
	_ = cmdline.Parse(os.Args[1:])

	if sdnotify("start") {
		// under systemd, journal adds timestamp
		log.SetFlags(log2.LServiceFlags)
	} else {
		log.SetFlags(log2.LInteractiveFlags)
	}

	if err := state.LoadDotenv(*flagEnv); err != nil {
		log.Fatal(errors.ErrorStack(err))
	}
	config := new(state.Config)
	if *flagConfig != "" {
		config = state.MustReadConfig(log, state.NewOsFullReader(), *flagConfig)
	}
	if err := config.ApplyEnv(nil); err != nil {
		log.Fatal(errors.ErrorStack(err))
	}
	if *flagLogFile != "" {
		config.Log.File = *flagLogFile
	}
	if config.Log.File != "" {
		log = log2.NewWriter(&lumberjack.Logger{
			Filename: config.Log.File,
			MaxSize:  config.Log.MaxSizeMb,
		}, log2.LInfo)
		log.SetFlags(log2.LInteractiveFlags)
	}
	if *flagDebug {
		config.Log.Level = "debug"
	}

	ctx, g := state.NewContext(log)
	g.MustInit(ctx, config)
	sdnotify(daemon.SdNotifyReady)

	if *flagConnect {
		if err := g.Connect(ctx); err != nil {
			g.Error(err)
		}
	}

	cli.MainLoop(ctx, "tello", newExecutor(ctx), newCompleter(), func() {
		sdnotify(daemon.SdNotifyStopping)
		g.Stop()
	})
}

func sdnotify(s string) bool {
	ok, err := daemon.SdNotify(false, s)
	if err != nil {
		log.Fatal("sdnotify: ", errors.ErrorStack(err))
	}
	return ok
}

// Executor context is cancelled on exit signal so End does not race a waiting command.
func newExecutor(ctx context.Context) cli.ExecFunc {
	g := state.GetGlobal(ctx)
	return func(ctx context.Context, line string) {
		s, err := parseLine(line)
		if err != nil {
			g.Log.Errorf("%s", errors.ErrorStack(err))
			return
		}
		if err := s.run(ctx, os.Stdout); err != nil {
			g.Log.Errorf("%s", errors.ErrorStack(err))
		}
	}
}
