package tello

// Public API to easy create drone stubs to test your code.
import (
	"net"
	"sync"
	"testing"
	"time"

	tello_config "github.com/temoto/telloctl/hardware/tello/config"
)

// MockHandler returns replies to send back for verb, none simulates lost reply.
type MockHandler func(verb string) []string

// MockReplies answers from table, def for unknown verbs. Empty def means no reply.
func MockReplies(table map[string]string, def string) MockHandler {
	return func(verb string) []string {
		if r, ok := table[verb]; ok {
			return []string{r}
		}
		if def == "" {
			return nil
		}
		return []string{def}
	}
}

// MockDrone is a loopback UDP peer playing the drone side.
type MockDrone struct {
	t         testing.TB
	conn      net.PacketConn
	stateConn net.PacketConn

	mu       sync.Mutex
	handler  MockHandler
	received []string
	client   net.Addr
	notify   chan struct{}
	closed   sync.Once
}

func NewMockDrone(t testing.TB) *MockDrone {
	conn, err := net.ListenPacket("udp4", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	stateConn, err := net.ListenPacket("udp4", "127.0.0.1:0")
	if err != nil {
		conn.Close()
		t.Fatal(err)
	}
	self := &MockDrone{
		t:         t,
		conn:      conn,
		stateConn: stateConn,
		handler:   MockReplies(nil, "ok"),
		notify:    make(chan struct{}, 1),
	}
	go self.loop()
	t.Cleanup(self.Close)
	return self
}

// Config points session at this mock with short timings.
func (self *MockDrone) Config() tello_config.Config {
	addr := self.conn.LocalAddr().(*net.UDPAddr)
	return tello_config.Config{
		Host:              addr.IP.String(),
		Port:              addr.Port,
		LocalAddr:         "127.0.0.1:0",
		StateAddr:         "127.0.0.1:0",
		ResponseTimeoutMs: 200,
		RetryCount:        3,
		CommandIntervalMs: 1,
		RCIntervalMs:      1500,
	}
}

func (self *MockDrone) Addr() net.Addr { return self.conn.LocalAddr() }

func (self *MockDrone) SetHandler(h MockHandler) {
	self.mu.Lock()
	self.handler = h
	self.mu.Unlock()
}

func (self *MockDrone) Received() []string {
	self.mu.Lock()
	defer self.mu.Unlock()
	return append([]string(nil), self.received...)
}

// WaitReceived blocks until at least n datagrams arrived, fails test after timeout.
func (self *MockDrone) WaitReceived(n int, timeout time.Duration) []string {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		if r := self.Received(); len(r) >= n {
			return r
		}
		select {
		case <-self.notify:
		case <-deadline.C:
			r := self.Received()
			self.t.Fatalf("mock drone received %d/%d datagrams: %q", len(r), n, r)
			return r
		}
	}
}

// Reply sends unsolicited datagram to the client command socket.
func (self *MockDrone) Reply(b []byte) {
	self.mu.Lock()
	to := self.client
	self.mu.Unlock()
	if to == nil {
		self.t.Fatal("mock drone: no client address yet")
		return
	}
	if _, err := self.conn.WriteTo(b, to); err != nil {
		self.t.Error(err)
	}
}

// SendState pushes telemetry datagram to session state socket.
func (self *MockDrone) SendState(s *Session, b []byte) {
	to := s.StateAddr()
	if to == nil {
		self.t.Fatal("mock drone: session state socket is not open")
		return
	}
	if _, err := self.stateConn.WriteTo(b, to); err != nil {
		self.t.Error(err)
	}
}

func (self *MockDrone) Close() {
	self.closed.Do(func() {
		_ = self.conn.Close()
		_ = self.stateConn.Close()
	})
}

func (self *MockDrone) loop() {
	buf := make([]byte, 1024)
	for {
		n, from, err := self.conn.ReadFrom(buf)
		if err != nil {
			return
		}
		verb := string(buf[:n])
		self.mu.Lock()
		self.client = from
		self.received = append(self.received, verb)
		h := self.handler
		self.mu.Unlock()
		select {
		case self.notify <- struct{}{}:
		default:
		}
		for _, r := range h(verb) {
			if _, err := self.conn.WriteTo([]byte(r), from); err != nil {
				return
			}
		}
	}
}
