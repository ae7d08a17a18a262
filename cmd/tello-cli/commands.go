package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	prompt "github.com/c-bata/go-prompt"
	"github.com/dustin/go-humanize"
	"github.com/juju/errors"
	"github.com/temoto/telloctl/hardware/tello"
	"github.com/temoto/telloctl/internal/state"
	"github.com/temoto/telloctl/log2"
	"github.com/temoto/telloctl/recorder"
)

type runFunc func(ctx context.Context, w io.Writer, args []string) error

type action struct {
	name string
	args string
	help string
	min  int
	max  int
	run  runFunc
}

type step struct {
	a    *action
	args []string
}

type seq struct {
	line  string
	steps []step
	loop  uint
}

func (self seq) run(ctx context.Context, w io.Writer) error {
	n := self.loop
	if n == 0 {
		n = 1
	}
	for i := uint(0); i < n; i++ {
		for _, s := range self.steps {
			if err := s.a.run(ctx, w, s.args); err != nil {
				return errors.Annotatef(err, "%s", s.a.name)
			}
		}
	}
	return nil
}

var actions map[string]*action

func init() {
	list := []*action{
		{name: "connect", help: "enter SDK mode", run: doConnect},
		{name: "end", help: "land, stream off, close", run: doEnd},
		{name: "status", help: "session state and counters", run: doStatus},
		{name: "help", help: "show usage", run: doUsage},
		{name: "flights", help: "list recorded flights", run: doFlights},
		{name: "sleep", args: "MS", help: "pause", min: 1, max: 1, run: doSleep},
		{name: "raw", args: "VERB...", help: "send verb, print reply", min: 1, max: -1, run: doRaw},

		{name: "takeoff", help: "auto takeoff", run: control((*tello.Session).Takeoff)},
		{name: "land", help: "auto land", run: control((*tello.Session).Land)},
		{name: "stop", help: "hover", run: control((*tello.Session).Stop)},
		{name: "emergency", help: "stop motors", run: control((*tello.Session).Emergency)},
		{name: "streamon", help: "video stream on", run: control((*tello.Session).StreamOn)},
		{name: "streamoff", help: "video stream off", run: control((*tello.Session).StreamOff)},
		{name: "mon", help: "mission pads on", run: control((*tello.Session).EnableMissionPads)},
		{name: "moff", help: "mission pads off", run: control((*tello.Session).DisableMissionPads)},
		{name: "mdirection", args: "0|1|2", help: "mission pad detection", min: 1, max: 1, run: doPadDirection},
		{name: "cw", args: "DEGREES", help: "rotate clockwise", min: 1, max: 1, run: doRotate(true)},
		{name: "ccw", args: "DEGREES", help: "rotate counter clockwise", min: 1, max: 1, run: doRotate(false)},
		{name: "flip", args: "l|r|f|b", help: "flip", min: 1, max: 1, run: doFlip},
		{name: "go", args: "X Y Z SPEED [MID]", help: "fly to point", min: 4, max: 5, run: doGo},
		{name: "curve", args: "X1 Y1 Z1 X2 Y2 Z2 SPEED [MID]", help: "fly arc", min: 7, max: 8, run: doCurve},
		{name: "jump", args: "X Y Z SPEED YAW MID1 MID2", help: "fly between pads", min: 7, max: 7, run: doJump},
		{name: "rc", args: "LR FB UD YAW", help: "stick control", min: 4, max: 4, run: doRC},
		{name: "speed", args: "CM_S", help: "set speed, without argument query", min: 0, max: 1, run: doSpeed},
		{name: "setwifi", args: "SSID PASS", help: "drone access point credentials", min: 2, max: 2, run: doWifi(false)},
		{name: "ap", args: "SSID PASS", help: "join existing access point", min: 2, max: 2, run: doWifi(true)},

		{name: "battery", help: "query battery %", run: query(func(ctx context.Context, s *tello.Session) (interface{}, error) { return s.Battery(ctx) })},
		{name: "time", help: "query flight time", run: query(func(ctx context.Context, s *tello.Session) (interface{}, error) { return s.FlightTime(ctx) })},
		{name: "height", help: "query height", run: query(func(ctx context.Context, s *tello.Session) (interface{}, error) { return s.Height(ctx) })},
		{name: "temp", help: "query temperature", run: query(func(ctx context.Context, s *tello.Session) (interface{}, error) { return s.Temperature(ctx) })},
		{name: "attitude", help: "query pitch roll yaw", run: query(func(ctx context.Context, s *tello.Session) (interface{}, error) { return s.Attitude(ctx) })},
		{name: "baro", help: "query barometer", run: query(func(ctx context.Context, s *tello.Session) (interface{}, error) { return s.Barometer(ctx) })},
		{name: "tof", help: "query distance", run: query(func(ctx context.Context, s *tello.Session) (interface{}, error) { return s.DistanceTOF(ctx) })},
		{name: "wifi", help: "query wifi SNR", run: query(func(ctx context.Context, s *tello.Session) (interface{}, error) { return s.Wifi(ctx) })},
		{name: "sdk", help: "query SDK version", run: query(func(ctx context.Context, s *tello.Session) (interface{}, error) { return s.SDKVersion(ctx) })},
		{name: "sn", help: "query serial number", run: query(func(ctx context.Context, s *tello.Session) (interface{}, error) { return s.SerialNumber(ctx) })},
	}
	for _, d := range []tello.Direction{tello.DirectionUp, tello.DirectionDown, tello.DirectionLeft, tello.DirectionRight, tello.DirectionForward, tello.DirectionBack} {
		list = append(list, &action{name: string(d), args: "CM", help: "move " + string(d), min: 1, max: 1, run: doMove(d)})
	}

	actions = make(map[string]*action, len(list))
	for _, a := range list {
		if _, ok := actions[a.name]; ok {
			panic("code error duplicate action " + a.name)
		}
		actions[a.name] = a
	}
}

func newCompleter() func(d prompt.Document) []prompt.Suggest {
	suggests := make([]prompt.Suggest, 0, len(actions)+4)
	for _, a := range actions {
		text := a.name
		if a.args != "" {
			text += " " + a.args
		}
		suggests = append(suggests, prompt.Suggest{Text: a.name, Description: text + ": " + a.help})
	}
	suggests = append(suggests,
		prompt.Suggest{Text: "log=debug", Description: "enable debug logging"},
		prompt.Suggest{Text: "log=info", Description: "disable debug logging"},
		prompt.Suggest{Text: "loop=N", Description: "repeat line N times"},
	)
	sort.Slice(suggests, func(i, j int) bool { return suggests[i].Text < suggests[j].Text })

	return func(d prompt.Document) []prompt.Suggest {
		// only command names, first word after ';'
		before := d.TextBeforeCursor()
		if i := strings.LastIndex(before, ";"); i >= 0 {
			before = before[i+1:]
		}
		if strings.Contains(strings.TrimLeft(before, " "), " ") {
			return nil
		}
		return prompt.FilterFuzzy(suggests, d.GetWordBeforeCursor(), true)
	}
}

// parseLine: commands separated by ';', loop=N applies to whole line.
func parseLine(line string) (seq, error) {
	result := seq{line: line}
	for _, part := range strings.Split(line, ";") {
		words := strings.Fields(part)
		if len(words) == 0 {
			continue
		}
		name, args := strings.ToLower(words[0]), words[1:]
		switch {
		case strings.HasPrefix(name, "loop="):
			if result.loop != 0 {
				return seq{}, errors.Errorf("multiple loop commands, expected at most one")
			}
			i, err := strconv.ParseUint(name[5:], 10, 32)
			if err != nil || i == 0 {
				return seq{}, errors.NotValidf("word=%s", name)
			}
			result.loop = uint(i)
			if len(args) != 0 {
				return seq{}, errors.NotValidf("loop arguments %v", args)
			}
			continue
		case strings.HasPrefix(name, "log="):
			level, err := log2.ParseLevel(name[4:])
			if err != nil {
				return seq{}, err
			}
			result.steps = append(result.steps, step{a: &action{name: name, run: doLogLevel(level)}})
			continue
		}

		a, ok := actions[name]
		if !ok {
			return seq{}, errors.NotFoundf("command '%s'", name)
		}
		if len(args) < a.min || (a.max >= 0 && len(args) > a.max) {
			return seq{}, errors.NotValidf("%s arguments, expected %s", name, a.args)
		}
		result.steps = append(result.steps, step{a: a, args: args})
	}
	return result, nil
}

func ints(args []string) ([]int, error) {
	result := make([]int, len(args))
	for i, s := range args {
		x, err := strconv.Atoi(s)
		if err != nil {
			return nil, errors.NotValidf("argument '%s' expected integer", s)
		}
		result[i] = x
	}
	return result, nil
}

func printControl(w io.Writer, ok bool, err error) error {
	if err != nil {
		return err
	}
	if ok {
		fmt.Fprintln(w, "ok")
	} else {
		fmt.Fprintln(w, "failed")
	}
	return nil
}

func control(f func(*tello.Session, context.Context) (bool, error)) runFunc {
	return func(ctx context.Context, w io.Writer, args []string) error {
		g := state.GetGlobal(ctx)
		ok, err := f(g.Session, ctx)
		return printControl(w, ok, err)
	}
}

func query(f func(context.Context, *tello.Session) (interface{}, error)) runFunc {
	return func(ctx context.Context, w io.Writer, args []string) error {
		g := state.GetGlobal(ctx)
		v, err := f(ctx, g.Session)
		if err != nil {
			return err
		}
		switch x := v.(type) {
		case tello.Attitude:
			fmt.Fprintf(w, "pitch=%d roll=%d yaw=%d\n", x.Pitch, x.Roll, x.Yaw)
		case tello.Value:
			fmt.Fprintln(w, strings.TrimSpace(x.Text))
		default:
			fmt.Fprintln(w, x)
		}
		return nil
	}
}

func doConnect(ctx context.Context, w io.Writer, args []string) error {
	g := state.GetGlobal(ctx)
	if err := g.Connect(ctx); err != nil {
		return err
	}
	fmt.Fprintf(w, "connected peer=%s\n", g.Session.Peer())
	return nil
}

func doEnd(ctx context.Context, w io.Writer, args []string) error {
	state.GetGlobal(ctx).Session.End()
	return nil
}

func doUsage(ctx context.Context, w io.Writer, args []string) error {
	_, err := io.WriteString(w, usage)
	return err
}

func doSleep(ctx context.Context, w io.Writer, args []string) error {
	xs, err := ints(args)
	if err != nil {
		return err
	}
	select {
	case <-time.After(time.Duration(xs[0]) * time.Millisecond):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func doLogLevel(level log2.Level) runFunc {
	return func(ctx context.Context, w io.Writer, args []string) error {
		state.GetGlobal(ctx).Log.SetLevel(level)
		return nil
	}
}

func doRaw(ctx context.Context, w io.Writer, args []string) error {
	g := state.GetGlobal(ctx)
	reply, err := g.Session.Do(ctx, tello.NewRead(strings.Join(args, " ")))
	if err != nil {
		return err
	}
	fmt.Fprintln(w, strings.TrimSpace(reply))
	return nil
}

func doMove(d tello.Direction) runFunc {
	return func(ctx context.Context, w io.Writer, args []string) error {
		xs, err := ints(args)
		if err != nil {
			return err
		}
		ok, err := state.GetGlobal(ctx).Session.Move(ctx, d, xs[0])
		return printControl(w, ok, err)
	}
}

func doRotate(clockwise bool) runFunc {
	return func(ctx context.Context, w io.Writer, args []string) error {
		xs, err := ints(args)
		if err != nil {
			return err
		}
		s := state.GetGlobal(ctx).Session
		var ok bool
		if clockwise {
			ok, err = s.RotateClockwise(ctx, xs[0])
		} else {
			ok, err = s.RotateCounterClockwise(ctx, xs[0])
		}
		return printControl(w, ok, err)
	}
}

func doFlip(ctx context.Context, w io.Writer, args []string) error {
	ok, err := state.GetGlobal(ctx).Session.Flip(ctx, tello.FlipDirection(strings.ToLower(args[0])))
	return printControl(w, ok, err)
}

func doPadDirection(ctx context.Context, w io.Writer, args []string) error {
	xs, err := ints(args)
	if err != nil {
		return err
	}
	ok, err := state.GetGlobal(ctx).Session.SetMissionPadDetectionDirection(ctx, tello.PadDirection(xs[0]))
	return printControl(w, ok, err)
}

func doGo(ctx context.Context, w io.Writer, args []string) error {
	xs, err := ints(args)
	if err != nil {
		return err
	}
	s := state.GetGlobal(ctx).Session
	if len(xs) == 5 {
		ok, err := s.GoXYZSpeedMid(ctx, xs[0], xs[1], xs[2], xs[3], xs[4])
		return printControl(w, ok, err)
	}
	return s.GoXYZSpeed(xs[0], xs[1], xs[2], xs[3])
}

func doCurve(ctx context.Context, w io.Writer, args []string) error {
	xs, err := ints(args)
	if err != nil {
		return err
	}
	s := state.GetGlobal(ctx).Session
	if len(xs) == 8 {
		ok, err := s.CurveXYZSpeedMid(ctx, xs[0], xs[1], xs[2], xs[3], xs[4], xs[5], xs[6], xs[7])
		return printControl(w, ok, err)
	}
	return s.CurveXYZSpeed(xs[0], xs[1], xs[2], xs[3], xs[4], xs[5], xs[6])
}

func doJump(ctx context.Context, w io.Writer, args []string) error {
	xs, err := ints(args)
	if err != nil {
		return err
	}
	ok, err := state.GetGlobal(ctx).Session.GoXYZSpeedYawMid(ctx, xs[0], xs[1], xs[2], xs[3], xs[4], xs[5], xs[6])
	return printControl(w, ok, err)
}

func doRC(ctx context.Context, w io.Writer, args []string) error {
	xs, err := ints(args)
	if err != nil {
		return err
	}
	sent, err := state.GetGlobal(ctx).Session.SendRC(tello.RC{LeftRight: xs[0], ForwardBack: xs[1], UpDown: xs[2], Yaw: xs[3]})
	if err != nil {
		return err
	}
	if sent {
		fmt.Fprintln(w, "sent")
	} else {
		fmt.Fprintln(w, "dropped")
	}
	return nil
}

func doSpeed(ctx context.Context, w io.Writer, args []string) error {
	s := state.GetGlobal(ctx).Session
	if len(args) == 0 {
		v, err := s.Speed(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, v)
		return nil
	}
	xs, err := ints(args)
	if err != nil {
		return err
	}
	ok, err := s.SetSpeed(ctx, xs[0])
	return printControl(w, ok, err)
}

func doWifi(join bool) runFunc {
	return func(ctx context.Context, w io.Writer, args []string) error {
		s := state.GetGlobal(ctx).Session
		var ok bool
		var err error
		if join {
			ok, err = s.ConnectToWifi(ctx, args[0], args[1])
		} else {
			ok, err = s.SetWifiCredentials(ctx, args[0], args[1])
		}
		return printControl(w, ok, err)
	}
}

func doStatus(ctx context.Context, w io.Writer, args []string) error {
	g := state.GetGlobal(ctx)
	s := g.Session
	fmt.Fprintf(w, "state=%s peer=%s flying=%t streaming=%t telemetry_active=%t\n",
		s.State(), s.Peer(), s.IsFlying(), s.IsStreaming(), s.TelemetryActive())
	if snap, ok := s.Snapshot(); ok {
		fmt.Fprintf(w, "telemetry: bat=%d%% h=%dcm tof=%dcm temp=%d-%dC baro=%.2f pitch=%d roll=%d yaw=%d updated %s\n",
			snap.Battery, snap.Height, snap.TOF, snap.TempLow, snap.TempHigh, snap.Barometer,
			snap.Pitch, snap.Roll, snap.Yaw, humanize.Time(snap.Time))
	} else {
		fmt.Fprintln(w, "telemetry: none")
	}
	st := s.Stat()
	fmt.Fprintf(w, "commands=%s replies=%s timeouts=%s malformed=%s telemetry=%s dropped=%s rc=%s/%s loop_exits=%d\n",
		humanize.Comma(int64(st.Commands)), humanize.Comma(int64(st.Replies)),
		humanize.Comma(int64(st.Timeouts)), humanize.Comma(int64(st.Malformed)),
		humanize.Comma(int64(st.TelemetryAccepted)), humanize.Comma(int64(st.TelemetryDropped)),
		humanize.Comma(int64(st.RCSent)), humanize.Comma(int64(st.RCDropped)), st.LoopExits)
	if g.Recorder != nil {
		rs := g.Recorder.Stat()
		fmt.Fprintf(w, "recorder: flight=%d telemetry=%s commands=%s dropped=%d errors=%d",
			g.Recorder.FlightID(), humanize.Comma(int64(rs.Telemetry)), humanize.Comma(int64(rs.Commands)), rs.Dropped, rs.Errors)
		if fi, err := os.Stat(g.Config.RecorderPath()); err == nil {
			fmt.Fprintf(w, " size=%s", humanize.Bytes(uint64(fi.Size())))
		}
		fmt.Fprintln(w)
	}
	if g.Tele != nil {
		ts := g.Tele.Stat()
		fmt.Fprintf(w, "tele: telemetry=%s/%d state=%d/%d\n",
			humanize.Comma(int64(ts.TelemetrySent)), ts.TelemetryFailed, ts.StateSent, ts.StateFailed)
	}
	return nil
}

func doFlights(ctx context.Context, w io.Writer, args []string) error {
	g := state.GetGlobal(ctx)
	if g.Config == nil || !g.Config.Recorder.Enable {
		return errors.NotSupportedf("recorder disabled")
	}
	store := recorder.NewStore(g.Config.RecorderPath())
	defer store.Close()
	flights, err := store.Flights(ctx)
	if err != nil {
		return err
	}
	for _, f := range flights {
		fmt.Fprintf(w, "%d %s %s peer=%s telemetry=%s commands=%s\n",
			f.ID, f.StartedAt.Format(time.RFC3339), humanize.Time(f.StartedAt), f.Peer,
			humanize.Comma(int64(f.Telemetry)), humanize.Comma(int64(f.Commands)))
	}
	return nil
}
