// Separate package is workaround to import cycles.
package tele_config

import (
	"time"

	"github.com/temoto/telloctl/helpers"
)

const (
	DefaultPublishInterval = time.Second
	DefaultNetworkTimeout  = 30 * time.Second
	DefaultTopicPrefix     = "tello"
)

type Config struct { //nolint:maligned
	Enabled           bool   `hcl:"enable"`
	LogDebug          bool   `hcl:"log_debug"`
	ClientID          string `hcl:"client_id"`
	KeepaliveSec      int    `hcl:"keepalive_sec"`
	MqttBroker        string `hcl:"mqtt_broker"`
	MqttLogDebug      bool   `hcl:"mqtt_log_debug"`
	MqttUsername      string `hcl:"mqtt_username"`
	MqttPassword      string `hcl:"mqtt_password"` // secret
	NetworkTimeoutSec int    `hcl:"network_timeout_sec"`
	PublishIntervalMs int    `hcl:"publish_interval_ms"`
	TopicPrefix       string `hcl:"topic_prefix"`
}

func (c *Config) PublishInterval() time.Duration {
	return helpers.IntMillisecondDefault(c.PublishIntervalMs, DefaultPublishInterval)
}

func (c *Config) NetworkTimeout() time.Duration {
	d := helpers.IntSecondDefault(c.NetworkTimeoutSec, DefaultNetworkTimeout)
	if d < time.Second {
		d = time.Second
	}
	return d
}

func (c *Config) Keepalive() time.Duration {
	return helpers.IntSecondDefault(c.KeepaliveSec, c.NetworkTimeout()/2)
}

// Topic returns "<prefix>/<client>/<name>".
func (c *Config) Topic(name string) string {
	prefix := c.TopicPrefix
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	if c.ClientID == "" {
		return prefix + "/" + name
	}
	return prefix + "/" + c.ClientID + "/" + name
}
