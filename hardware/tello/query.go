package tello

import (
	"context"

	"github.com/juju/errors"
)

// readInt expects integer reply. Lenient protocol failure gives 0, nil.
func (self *Session) readInt(ctx context.Context, verb string) (int, error) {
	v, err := self.Read(ctx, NewRead(verb))
	if err != nil || !v.Valid() {
		return 0, err
	}
	if v.Kind != ValueInt {
		return 0, errors.Annotatef(MalformedReplyError{Command: verb, Raw: []byte(v.Text)}, "expected integer")
	}
	return v.Int, nil
}

func (self *Session) readFloat(ctx context.Context, verb string) (float64, error) {
	v, err := self.Read(ctx, NewRead(verb))
	if err != nil || !v.Valid() {
		return 0, err
	}
	if !v.IsNumber() {
		return 0, errors.Annotatef(MalformedReplyError{Command: verb, Raw: []byte(v.Text)}, "expected number")
	}
	return v.Float, nil
}

func (self *Session) readText(ctx context.Context, verb string) (string, error) {
	v, err := self.Read(ctx, NewRead(verb))
	return v.Text, err
}

// Speed in cm/s.
func (self *Session) Speed(ctx context.Context) (float64, error) { return self.readFloat(ctx, "speed?") }

// Battery percent.
func (self *Session) Battery(ctx context.Context) (int, error) { return self.readInt(ctx, "battery?") }

// FlightTime is motor time as reported, e.g. "10s".
func (self *Session) FlightTime(ctx context.Context) (Value, error) {
	return self.Read(ctx, NewRead("time?"))
}

// Height as reported, e.g. "10dm".
func (self *Session) Height(ctx context.Context) (Value, error) {
	return self.Read(ctx, NewRead("height?"))
}

// Temperature range as reported, e.g. "63~65C".
func (self *Session) Temperature(ctx context.Context) (Value, error) {
	return self.Read(ctx, NewRead("temp?"))
}

// Barometer altitude in meters.
func (self *Session) Barometer(ctx context.Context) (float64, error) {
	return self.readFloat(ctx, "baro?")
}

// DistanceTOF as reported, e.g. "100mm".
func (self *Session) DistanceTOF(ctx context.Context) (Value, error) {
	return self.Read(ctx, NewRead("tof?"))
}

// Wifi signal to noise ratio.
func (self *Session) Wifi(ctx context.Context) (Value, error) { return self.Read(ctx, NewRead("wifi?")) }

func (self *Session) SDKVersion(ctx context.Context) (string, error) {
	return self.readText(ctx, "sdk?")
}

func (self *Session) SerialNumber(ctx context.Context) (string, error) {
	return self.readText(ctx, "sn?")
}

// Attitude reply "pitch:0;roll:0;yaw:0;" decoded by key.
func (self *Session) Attitude(ctx context.Context) (Attitude, error) {
	v, err := self.Read(ctx, NewRead("attitude?"))
	if err != nil || !v.Valid() {
		return Attitude{}, err
	}
	a, err := ParseAttitude(v.Text)
	if err != nil {
		return Attitude{}, errors.Annotate(err, "attitude?")
	}
	return a, nil
}
