package tello

import (
	"strconv"
	"strings"
	"time"
)

// Snapshot is one fully parsed telemetry datagram.
// Published wholesale, readers get a copy.
type Snapshot struct {
	Pitch      int
	Roll       int
	Yaw        int
	VGX        int
	VGY        int
	VGZ        int
	TempLow    int
	TempHigh   int
	TOF        int
	Height     int
	Battery    int
	Barometer  float64
	FlightTime float64
	AGX        float64
	AGY        float64
	AGZ        float64
	Time       time.Time // local receive time
}

func (self *Snapshot) Attitude() Attitude {
	return Attitude{Pitch: self.Pitch, Roll: self.Roll, Yaw: self.Yaw}
}

type Attitude struct {
	Pitch int
	Roll  int
	Yaw   int
}

type telemetryField struct {
	key string
	set func(*Snapshot, string) error
}

func intField(key string, p func(*Snapshot) *int) telemetryField {
	return telemetryField{key: key, set: func(s *Snapshot, v string) error {
		i, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*p(s) = i
		return nil
	}}
}

func floatField(key string, p func(*Snapshot) *float64) telemetryField {
	return telemetryField{key: key, set: func(s *Snapshot, v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		*p(s) = f
		return nil
	}}
}

// Wire order of state datagram fields.
var telemetryFields = []telemetryField{
	intField("pitch", func(s *Snapshot) *int { return &s.Pitch }),
	intField("roll", func(s *Snapshot) *int { return &s.Roll }),
	intField("yaw", func(s *Snapshot) *int { return &s.Yaw }),
	intField("vgx", func(s *Snapshot) *int { return &s.VGX }),
	intField("vgy", func(s *Snapshot) *int { return &s.VGY }),
	intField("vgz", func(s *Snapshot) *int { return &s.VGZ }),
	intField("templ", func(s *Snapshot) *int { return &s.TempLow }),
	intField("temph", func(s *Snapshot) *int { return &s.TempHigh }),
	intField("tof", func(s *Snapshot) *int { return &s.TOF }),
	intField("h", func(s *Snapshot) *int { return &s.Height }),
	intField("bat", func(s *Snapshot) *int { return &s.Battery }),
	floatField("baro", func(s *Snapshot) *float64 { return &s.Barometer }),
	floatField("time", func(s *Snapshot) *float64 { return &s.FlightTime }),
	floatField("agx", func(s *Snapshot) *float64 { return &s.AGX }),
	floatField("agy", func(s *Snapshot) *float64 { return &s.AGY }),
	floatField("agz", func(s *Snapshot) *float64 { return &s.AGZ }),
}

// ParseSnapshot decodes "key:value;" pairs by key.
// All known keys are required, unknown keys (mission pad fields) are skipped.
// Snapshot.Time is left zero.
func ParseSnapshot(data []byte) (Snapshot, error) {
	var s Snapshot
	text := string(data)
	for i := 0; i < len(data); i++ {
		if data[i] >= 0x80 {
			return s, TelemetryParseError{Data: text, Reason: "not ASCII"}
		}
	}
	pairs, err := parsePairs(text)
	if err != nil {
		return s, err
	}
	for _, f := range telemetryFields {
		v, ok := pairs[f.key]
		if !ok {
			return s, TelemetryParseError{Data: text, Reason: "missing key=" + f.key}
		}
		if err := f.set(&s, v); err != nil {
			return s, TelemetryParseError{Data: text, Reason: "key=" + f.key + " " + err.Error()}
		}
	}
	return s, nil
}

// ParseAttitude decodes "attitude?" reply "pitch:0;roll:0;yaw:0;".
func ParseAttitude(reply string) (Attitude, error) {
	var a Attitude
	pairs, err := parsePairs(reply)
	if err != nil {
		return a, err
	}
	var s Snapshot
	for _, f := range telemetryFields[:3] {
		v, ok := pairs[f.key]
		if !ok {
			return a, TelemetryParseError{Data: reply, Reason: "missing key=" + f.key}
		}
		if err := f.set(&s, v); err != nil {
			return a, TelemetryParseError{Data: reply, Reason: "key=" + f.key + " " + err.Error()}
		}
	}
	return s.Attitude(), nil
}

func parsePairs(text string) (map[string]string, error) {
	pairs := make(map[string]string, len(telemetryFields)+8)
	for _, part := range strings.Split(text, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		idx := strings.IndexByte(part, ':')
		if idx <= 0 {
			return nil, TelemetryParseError{Data: text, Reason: "invalid pair=" + strconv.Quote(part)}
		}
		key, value := part[:idx], strings.TrimSpace(part[idx+1:])
		if _, dup := pairs[key]; dup {
			return nil, TelemetryParseError{Data: text, Reason: "duplicate key=" + key}
		}
		pairs[key] = value
	}
	return pairs, nil
}
