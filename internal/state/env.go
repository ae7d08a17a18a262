package state

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/juju/errors"
	"github.com/temoto/telloctl/helpers"
)

// LookupFunc is os.LookupEnv shape.
type LookupFunc func(key string) (string, bool)

// LoadDotenv sets process environment from files, default ".env".
// Missing files are ignored, variables already set are not overwritten.
func LoadDotenv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	errs := make([]error, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			errs = append(errs, errors.Annotatef(err, "dotenv file=%s", f))
		}
	}
	return helpers.FoldErrors(errs)
}

// ApplyEnv overrides config values from environment:
// TELLO_HOST, TELLO_PORT, TELLO_LENIENT, TELLO_MQTT_BROKER, TELLO_LOG_LEVEL.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	errs := make([]error, 0)
	if v, ok := lookup("TELLO_HOST"); ok && v != "" {
		c.Drone.Host = v
	}
	if v, ok := lookup("TELLO_PORT"); ok && v != "" {
		if port, err := strconv.Atoi(v); err != nil || port <= 0 || port > 65535 {
			errs = append(errs, errors.NotValidf("env TELLO_PORT=%s", v))
		} else {
			c.Drone.Port = port
		}
	}
	if v, ok := lookup("TELLO_LENIENT"); ok && v != "" {
		if b, err := strconv.ParseBool(v); err != nil {
			errs = append(errs, errors.NotValidf("env TELLO_LENIENT=%s", v))
		} else {
			c.Drone.Lenient = b
		}
	}
	if v, ok := lookup("TELLO_MQTT_BROKER"); ok && v != "" {
		c.Tele.MqttBroker = v
		c.Tele.Enabled = true
	}
	if v, ok := lookup("TELLO_LOG_LEVEL"); ok && v != "" {
		c.Log.Level = v
	}
	return helpers.FoldErrors(errs)
}

// MapLookup is LookupFunc over static map, for tests.
func MapLookup(m map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}
