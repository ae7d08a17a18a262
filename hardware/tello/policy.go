package tello

import (
	"context"
	"strings"

	"github.com/juju/errors"
	"github.com/temoto/telloctl/log2"
)

// CommandObserver sees every command outcome, e.g. flight recorder.
// Called on the caller goroutine, must not block.
type CommandObserver interface {
	ObserveCommand(cmd Command, reply string, err error)
}

// Client applies retry and reply interpretation on top of Channel.
//
// Protocol failures (never acknowledged, error reply) are returned as
// ProtocolError, or with lenient=true logged and reported as false/zero Value
// with nil error. Transport and context errors are always returned.
type Client struct {
	log      *log2.Log
	ch       *Channel
	retries  int
	lenient  bool
	observer CommandObserver
}

func NewClient(ch *Channel, retries int, lenient bool, log *log2.Log) *Client {
	if retries < 1 {
		retries = 1
	}
	return &Client{log: log, ch: ch, retries: retries, lenient: lenient}
}

func (self *Client) SetObserver(o CommandObserver) { self.observer = o }

// Control succeeds as soon as reply is "ok" in any case, up to retries attempts.
func (self *Client) Control(ctx context.Context, cmd Command) (bool, error) {
	last := ReplyTimeout
	for try := 1; try <= self.retries; try++ {
		reply, err := self.ch.Do(ctx, cmd)
		self.observe(cmd, reply, err)
		switch {
		case err == nil:
			if strings.EqualFold(reply, "ok") {
				return true, nil
			}
			last = reply
		case errors.IsTimeout(err):
			last = ReplyTimeout
		case IsMalformed(err):
			last = ReplyMalformed
		default:
			return false, errors.Annotatef(err, "command=%s", cmd.Verb)
		}
		self.log.Debugf("%s command=%s try=%d/%d reply=%s", modName, cmd.Verb, try, self.retries, last)
	}
	return false, self.failure(ProtocolError{Command: cmd.Verb, Reply: last})
}

// Read makes single attempt.
func (self *Client) Read(ctx context.Context, cmd Command) (Value, error) {
	reply, err := self.ch.Do(ctx, cmd)
	self.observe(cmd, reply, err)
	switch {
	case err == nil:
	case errors.IsTimeout(err):
		return Value{}, self.failure(ProtocolError{Command: cmd.Verb, Reply: ReplyTimeout})
	case IsMalformed(err):
		return Value{}, self.failure(ProtocolError{Command: cmd.Verb, Reply: ReplyMalformed})
	default:
		return Value{}, errors.Annotatef(err, "command=%s", cmd.Verb)
	}
	if replyIsError(reply) {
		return Value{}, self.failure(ProtocolError{Command: cmd.Verb, Reply: reply})
	}
	return ParseValue(reply), nil
}

func (self *Client) Fire(cmd Command) error {
	err := self.ch.Fire(cmd.Verb)
	self.observe(cmd, "", err)
	return errors.Trace(err)
}

func (self *Client) failure(perr ProtocolError) error {
	if self.lenient {
		self.log.Errorf("%s %s", modName, perr.Error())
		return nil
	}
	return perr
}

func (self *Client) observe(cmd Command, reply string, err error) {
	if self.observer != nil {
		self.observer.ObserveCommand(cmd, reply, err)
	}
}
