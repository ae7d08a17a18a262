package tello

import (
	"fmt"
	"strings"
	"time"
)

type Kind uint8

const (
	// KindControl expects literal "ok" acknowledgement.
	KindControl Kind = iota
	// KindRead expects a scalar value.
	KindRead
	// KindFire expects no reply.
	KindFire
)

func (k Kind) String() string {
	switch k {
	case KindControl:
		return "control"
	case KindRead:
		return "read"
	case KindFire:
		return "fire"
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Command is immutable, pass by value.
// Zero Timeout means session default.
type Command struct {
	Verb    string
	Timeout time.Duration
	Kind    Kind
}

func NewControl(verb string) Command { return Command{Verb: verb, Kind: KindControl} }
func NewRead(verb string) Command    { return Command{Verb: verb, Kind: KindRead} }
func NewFire(verb string) Command    { return Command{Verb: verb, Kind: KindFire} }

func (self Command) WithTimeout(d time.Duration) Command {
	self.Timeout = d
	return self
}

func (self Command) String() string {
	return self.Kind.String() + ":" + self.Verb
}

func formatVerb(name string, args ...interface{}) string {
	if len(args) == 0 {
		return name
	}
	var b strings.Builder
	b.WriteString(name)
	for _, a := range args {
		b.WriteByte(' ')
		fmt.Fprint(&b, a)
	}
	return b.String()
}
