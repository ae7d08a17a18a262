package tello

import (
	"context"
	"strconv"
	"time"

	"github.com/juju/errors"
)

const takeoffTimeout = 30 * time.Second

type Direction string

const (
	DirectionUp      Direction = "up"
	DirectionDown    Direction = "down"
	DirectionLeft    Direction = "left"
	DirectionRight   Direction = "right"
	DirectionForward Direction = "forward"
	DirectionBack    Direction = "back"
)

func (d Direction) Valid() bool {
	switch d {
	case DirectionUp, DirectionDown, DirectionLeft, DirectionRight, DirectionForward, DirectionBack:
		return true
	}
	return false
}

type FlipDirection string

const (
	FlipLeft    FlipDirection = "l"
	FlipRight   FlipDirection = "r"
	FlipForward FlipDirection = "f"
	FlipBack    FlipDirection = "b"
)

func (d FlipDirection) Valid() bool {
	switch d {
	case FlipLeft, FlipRight, FlipForward, FlipBack:
		return true
	}
	return false
}

// Mission pad detection: 0 downward, 1 forward, 2 both.
type PadDirection int

const (
	PadDown PadDirection = iota
	PadForward
	PadBoth
)

func (self *Session) Takeoff(ctx context.Context) (bool, error) {
	ok, err := self.Control(ctx, NewControl("takeoff").WithTimeout(takeoffTimeout))
	if ok {
		setFlag(&self.flying, true)
	}
	return ok, err
}

func (self *Session) Land(ctx context.Context) (bool, error) {
	ok, err := self.Control(ctx, NewControl("land"))
	if ok {
		setFlag(&self.flying, false)
	}
	return ok, err
}

func (self *Session) StreamOn(ctx context.Context) (bool, error) {
	ok, err := self.Control(ctx, NewControl("streamon"))
	if ok {
		setFlag(&self.streaming, true)
	}
	return ok, err
}

func (self *Session) StreamOff(ctx context.Context) (bool, error) {
	ok, err := self.Control(ctx, NewControl("streamoff"))
	if ok {
		setFlag(&self.streaming, false)
	}
	return ok, err
}

// Emergency stops motors immediately.
func (self *Session) Emergency(ctx context.Context) (bool, error) {
	ok, err := self.Control(ctx, NewControl("emergency"))
	if ok {
		setFlag(&self.flying, false)
	}
	return ok, err
}

// Stop hovers in place.
func (self *Session) Stop(ctx context.Context) (bool, error) {
	return self.Control(ctx, NewControl("stop"))
}

func (self *Session) Move(ctx context.Context, d Direction, cm int) (bool, error) {
	if !d.Valid() {
		return false, errors.NotValidf("move direction=%q", d)
	}
	return self.Control(ctx, NewControl(formatVerb(string(d), cm)))
}

func (self *Session) MoveUp(ctx context.Context, cm int) (bool, error) {
	return self.Move(ctx, DirectionUp, cm)
}
func (self *Session) MoveDown(ctx context.Context, cm int) (bool, error) {
	return self.Move(ctx, DirectionDown, cm)
}
func (self *Session) MoveLeft(ctx context.Context, cm int) (bool, error) {
	return self.Move(ctx, DirectionLeft, cm)
}
func (self *Session) MoveRight(ctx context.Context, cm int) (bool, error) {
	return self.Move(ctx, DirectionRight, cm)
}
func (self *Session) MoveForward(ctx context.Context, cm int) (bool, error) {
	return self.Move(ctx, DirectionForward, cm)
}
func (self *Session) MoveBack(ctx context.Context, cm int) (bool, error) {
	return self.Move(ctx, DirectionBack, cm)
}

func (self *Session) RotateClockwise(ctx context.Context, degrees int) (bool, error) {
	return self.Control(ctx, NewControl(formatVerb("cw", degrees)))
}

func (self *Session) RotateCounterClockwise(ctx context.Context, degrees int) (bool, error) {
	return self.Control(ctx, NewControl(formatVerb("ccw", degrees)))
}

func (self *Session) Flip(ctx context.Context, d FlipDirection) (bool, error) {
	if !d.Valid() {
		return false, errors.NotValidf("flip direction=%q", d)
	}
	return self.Control(ctx, NewControl(formatVerb("flip", string(d))))
}

func (self *Session) FlipLeft(ctx context.Context) (bool, error)  { return self.Flip(ctx, FlipLeft) }
func (self *Session) FlipRight(ctx context.Context) (bool, error) { return self.Flip(ctx, FlipRight) }
func (self *Session) FlipForward(ctx context.Context) (bool, error) {
	return self.Flip(ctx, FlipForward)
}
func (self *Session) FlipBack(ctx context.Context) (bool, error) { return self.Flip(ctx, FlipBack) }

// GoXYZSpeed does not wait for reply: drone answers only after arrival.
func (self *Session) GoXYZSpeed(x, y, z, speed int) error {
	return self.Fire(NewFire(formatVerb("go", x, y, z, speed)))
}

// CurveXYZSpeed does not wait for reply, same as GoXYZSpeed.
func (self *Session) CurveXYZSpeed(x1, y1, z1, x2, y2, z2, speed int) error {
	return self.Fire(NewFire(formatVerb("curve", x1, y1, z1, x2, y2, z2, speed)))
}

func padID(mid int) string { return "m" + strconv.Itoa(mid) }

func (self *Session) GoXYZSpeedMid(ctx context.Context, x, y, z, speed, mid int) (bool, error) {
	return self.Control(ctx, NewControl(formatVerb("go", x, y, z, speed, padID(mid))))
}

func (self *Session) CurveXYZSpeedMid(ctx context.Context, x1, y1, z1, x2, y2, z2, speed, mid int) (bool, error) {
	return self.Control(ctx, NewControl(formatVerb("curve", x1, y1, z1, x2, y2, z2, speed, padID(mid))))
}

// GoXYZSpeedYawMid flies to x,y,z relative to pad mid1, then finds pad mid2 and rotates to yaw.
func (self *Session) GoXYZSpeedYawMid(ctx context.Context, x, y, z, speed, yaw, mid1, mid2 int) (bool, error) {
	return self.Control(ctx, NewControl(formatVerb("jump", x, y, z, speed, yaw, padID(mid1), padID(mid2))))
}

func (self *Session) EnableMissionPads(ctx context.Context) (bool, error) {
	return self.Control(ctx, NewControl("mon"))
}

func (self *Session) DisableMissionPads(ctx context.Context) (bool, error) {
	return self.Control(ctx, NewControl("moff"))
}

func (self *Session) SetMissionPadDetectionDirection(ctx context.Context, d PadDirection) (bool, error) {
	if d < PadDown || d > PadBoth {
		return false, errors.NotValidf("mission pad direction=%d", d)
	}
	return self.Control(ctx, NewControl(formatVerb("mdirection", int(d))))
}

// SetSpeed in cm/s.
func (self *Session) SetSpeed(ctx context.Context, speed int) (bool, error) {
	return self.Control(ctx, NewControl(formatVerb("speed", speed)))
}

// SetWifiCredentials changes drone access point name and password.
func (self *Session) SetWifiCredentials(ctx context.Context, ssid, password string) (bool, error) {
	return self.Control(ctx, NewControl(formatVerb("wifi", ssid, password)))
}

// ConnectToWifi switches drone to station mode joining given network.
func (self *Session) ConnectToWifi(ctx context.Context, ssid, password string) (bool, error) {
	return self.Control(ctx, NewControl(formatVerb("ap", ssid, password)))
}
