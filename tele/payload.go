package tele

import (
	"time"

	"github.com/golang/protobuf/proto"
	"github.com/temoto/telloctl/hardware/tello"
)

// Wire messages are hand maintained, field numbers must never be reused.

type SessionState int32

const (
	SessionState_Invalid      SessionState = 0
	SessionState_Disconnected SessionState = 1
	SessionState_Connecting   SessionState = 2
	SessionState_Connected    SessionState = 3
	SessionState_Terminated   SessionState = 4
)

var SessionState_name = map[int32]string{
	0: "Invalid",
	1: "Disconnected",
	2: "Connecting",
	3: "Connected",
	4: "Terminated",
}

func (x SessionState) String() string { return proto.EnumName(SessionState_name, int32(x)) }

func SessionStateOf(s tello.State) SessionState {
	switch s {
	case tello.StateDisconnected:
		return SessionState_Disconnected
	case tello.StateConnecting:
		return SessionState_Connecting
	case tello.StateConnected:
		return SessionState_Connected
	case tello.StateTerminated:
		return SessionState_Terminated
	}
	return SessionState_Invalid
}

type Telemetry struct {
	Time       int64   `protobuf:"varint,1,opt,name=time,proto3" json:"time,omitempty"`
	Pitch      int32   `protobuf:"zigzag32,2,opt,name=pitch,proto3" json:"pitch,omitempty"`
	Roll       int32   `protobuf:"zigzag32,3,opt,name=roll,proto3" json:"roll,omitempty"`
	Yaw        int32   `protobuf:"zigzag32,4,opt,name=yaw,proto3" json:"yaw,omitempty"`
	Vgx        int32   `protobuf:"zigzag32,5,opt,name=vgx,proto3" json:"vgx,omitempty"`
	Vgy        int32   `protobuf:"zigzag32,6,opt,name=vgy,proto3" json:"vgy,omitempty"`
	Vgz        int32   `protobuf:"zigzag32,7,opt,name=vgz,proto3" json:"vgz,omitempty"`
	TempLow    int32   `protobuf:"zigzag32,8,opt,name=temp_low,json=tempLow,proto3" json:"temp_low,omitempty"`
	TempHigh   int32   `protobuf:"zigzag32,9,opt,name=temp_high,json=tempHigh,proto3" json:"temp_high,omitempty"`
	Tof        int32   `protobuf:"zigzag32,10,opt,name=tof,proto3" json:"tof,omitempty"`
	Height     int32   `protobuf:"zigzag32,11,opt,name=height,proto3" json:"height,omitempty"`
	Battery    int32   `protobuf:"varint,12,opt,name=battery,proto3" json:"battery,omitempty"`
	Barometer  float64 `protobuf:"fixed64,13,opt,name=barometer,proto3" json:"barometer,omitempty"`
	FlightTime float64 `protobuf:"fixed64,14,opt,name=flight_time,json=flightTime,proto3" json:"flight_time,omitempty"`
	Agx        float64 `protobuf:"fixed64,15,opt,name=agx,proto3" json:"agx,omitempty"`
	Agy        float64 `protobuf:"fixed64,16,opt,name=agy,proto3" json:"agy,omitempty"`
	Agz        float64 `protobuf:"fixed64,17,opt,name=agz,proto3" json:"agz,omitempty"`
}

func (m *Telemetry) Reset()         { *m = Telemetry{} }
func (m *Telemetry) String() string { return proto.CompactTextString(m) }
func (*Telemetry) ProtoMessage()    {}

func TelemetryOf(s *tello.Snapshot) *Telemetry {
	return &Telemetry{
		Time:       s.Time.UnixNano(),
		Pitch:      int32(s.Pitch),
		Roll:       int32(s.Roll),
		Yaw:        int32(s.Yaw),
		Vgx:        int32(s.VGX),
		Vgy:        int32(s.VGY),
		Vgz:        int32(s.VGZ),
		TempLow:    int32(s.TempLow),
		TempHigh:   int32(s.TempHigh),
		Tof:        int32(s.TOF),
		Height:     int32(s.Height),
		Battery:    int32(s.Battery),
		Barometer:  s.Barometer,
		FlightTime: s.FlightTime,
		Agx:        s.AGX,
		Agy:        s.AGY,
		Agz:        s.AGZ,
	}
}

type State struct {
	State     SessionState `protobuf:"varint,1,opt,name=state,proto3,enum=tele.SessionState" json:"state,omitempty"`
	Time      int64        `protobuf:"varint,2,opt,name=time,proto3" json:"time,omitempty"`
	Peer      string       `protobuf:"bytes,3,opt,name=peer,proto3" json:"peer,omitempty"`
	Commands  uint32       `protobuf:"varint,4,opt,name=commands,proto3" json:"commands,omitempty"`
	Timeouts  uint32       `protobuf:"varint,5,opt,name=timeouts,proto3" json:"timeouts,omitempty"`
	Malformed uint32       `protobuf:"varint,6,opt,name=malformed,proto3" json:"malformed,omitempty"`
	Dropped   uint32       `protobuf:"varint,7,opt,name=dropped,proto3" json:"dropped,omitempty"`
}

func (m *State) Reset()         { *m = State{} }
func (m *State) String() string { return proto.CompactTextString(m) }
func (*State) ProtoMessage()    {}

func StateOf(s tello.State, stat tello.Stat, peer string, now time.Time) *State {
	return &State{
		State:     SessionStateOf(s),
		Time:      now.UnixNano(),
		Peer:      peer,
		Commands:  stat.Commands,
		Timeouts:  stat.Timeouts,
		Malformed: stat.Malformed,
		Dropped:   stat.TelemetryDropped,
	}
}
