package tello

// Mailbox is a single slot handoff from the reply loop to the one waiting command.
// Single writer: reply loop. Single reader: the command in flight.
// Replies carry no sequence numbers, so an unconsumed reply (late answer to
// a timed out command) is taken by the next waiting command.
type Mailbox struct {
	ch chan []byte
}

func NewMailbox() *Mailbox {
	return &Mailbox{ch: make(chan []byte, 1)}
}

// Put stores b, replacing a reply nobody consumed yet.
// Returns true if an older reply was replaced.
func (self *Mailbox) Put(b []byte) (replaced bool) {
	for {
		select {
		case self.ch <- b:
			return replaced
		default:
		}
		select {
		case <-self.ch:
			replaced = true
		default:
		}
	}
}

// C is the receive side for select with timeout.
func (self *Mailbox) C() <-chan []byte { return self.ch }

// Take returns pending reply without waiting.
func (self *Mailbox) Take() ([]byte, bool) {
	select {
	case b := <-self.ch:
		return b, true
	default:
		return nil, false
	}
}
