package tello

import (
	"fmt"
	"strconv"

	"github.com/juju/errors"
)

var (
	ErrAlreadyConnected = errors.New("tello already connected")
	ErrConnecting       = errors.New("tello connection attempt already in progress")
	ErrNotConnected     = errors.New("tello not connected")
	ErrTerminated       = errors.New("tello session terminated")
)

// Reply text stored in ProtocolError when the last attempt saw no reply at all.
const (
	ReplyTimeout   = "<timeout>"
	ReplyMalformed = "<malformed>"
)

// ProtocolError means the drone never acknowledged a control command
// or answered a read command with an error.
type ProtocolError struct {
	Command string
	Reply   string
}

func (self ProtocolError) Error() string {
	return fmt.Sprintf("command=%s was unsuccessful reply=%s", self.Command, self.Reply)
}

func IsProtocol(err error) bool {
	_, ok := errors.Cause(err).(ProtocolError)
	return ok
}

// MalformedReplyError is a reply that is not valid UTF-8 text.
type MalformedReplyError struct {
	Command string
	Raw     []byte
}

func (self MalformedReplyError) Error() string {
	return fmt.Sprintf("command=%s malformed reply=%x", self.Command, self.Raw)
}

func IsMalformed(err error) bool {
	_, ok := errors.Cause(err).(MalformedReplyError)
	return ok
}

// TransportError is a socket level failure.
type TransportError struct {
	Op  string
	Err error
}

func (self TransportError) Error() string { return "tello " + self.Op + ": " + self.Err.Error() }
func (self TransportError) Unwrap() error { return self.Err }

func IsTransport(err error) bool {
	_, ok := errors.Cause(err).(TransportError)
	return ok
}

// TelemetryParseError is recovered inside the telemetry loop and never returned to callers.
type TelemetryParseError struct {
	Data   string
	Reason string
}

func (self TelemetryParseError) Error() string {
	return "telemetry parse: " + self.Reason + " data=" + strconv.Quote(self.Data)
}
