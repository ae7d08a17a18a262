// Separate package for drone connection config structure.
// Workaround to import cycles between internal/state and hardware/tello.
package tello_config

import (
	"net"
	"strconv"
	"time"

	"github.com/temoto/telloctl/helpers"
)

const (
	DefaultHost            = "192.168.10.1"
	DefaultPort            = 8889
	DefaultLocalAddr       = ":8889"
	DefaultStateAddr       = ":8890"
	DefaultVideoPort       = 11111
	DefaultResponseTimeout = 7 * time.Second
	DefaultRetryCount      = 3
	DefaultCommandInterval = 2 * time.Second
	DefaultRCInterval      = 1500 * time.Millisecond
)

type Config struct { //nolint:maligned
	Host              string `hcl:"host"`
	Port              int    `hcl:"port"`
	LocalAddr         string `hcl:"local_addr"`
	StateAddr         string `hcl:"state_addr"`
	VideoPort         int    `hcl:"video_port"`
	ResponseTimeoutMs int    `hcl:"response_timeout_ms"`
	RetryCount        int    `hcl:"retry_count"`
	CommandIntervalMs int    `hcl:"command_interval_ms"`
	RCIntervalMs      int    `hcl:"rc_interval_ms"`
	// Lenient reports unacknowledged commands as logged false results instead of errors.
	Lenient  bool `hcl:"lenient"`
	LogDebug bool `hcl:"log_debug"`
}

func (c *Config) PeerAddr() string {
	host := c.Host
	if host == "" {
		host = DefaultHost
	}
	return net.JoinHostPort(host, strconv.Itoa(helpers.IntDefault(c.Port, DefaultPort)))
}

func (c *Config) LocalAddress() string {
	if c.LocalAddr == "" {
		return DefaultLocalAddr
	}
	return c.LocalAddr
}

func (c *Config) StateAddress() string {
	if c.StateAddr == "" {
		return DefaultStateAddr
	}
	return c.StateAddr
}

func (c *Config) VideoPortOrDefault() int { return helpers.IntDefault(c.VideoPort, DefaultVideoPort) }
func (c *Config) Retries() int            { return helpers.IntDefault(c.RetryCount, DefaultRetryCount) }

func (c *Config) ResponseTimeout() time.Duration {
	return helpers.IntMillisecondDefault(c.ResponseTimeoutMs, DefaultResponseTimeout)
}
func (c *Config) CommandInterval() time.Duration {
	return helpers.IntMillisecondDefault(c.CommandIntervalMs, DefaultCommandInterval)
}
func (c *Config) RCInterval() time.Duration {
	return helpers.IntMillisecondDefault(c.RCIntervalMs, DefaultRCInterval)
}
