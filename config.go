package main

import (
	"flag"
	"os"
	"strconv"
)

// Config holds the application configuration
type Config struct {
	// BindAddress is the address the server listens on (e.g. "0.0.0.0:8080")
	BindAddress string
	// SerialPort is the path to the modem's serial port (e.g. "/dev/ttyUSB0")
	SerialPort string
	// BaudRate is the baud rate for serial communication with the modem (e.g. 115200)
	BaudRate int
	// LogLevel sets the logging level (e.g. "debug", "info", "warn", "error")
	LogLevel string
	// SimPIN is the SIM card PIN code
	SimPIN string

	// RatePerMin caps the number of SMS sends the gateway will accept per
	// rolling 60-second window.
	RatePerMin int
	// MaxRetries is the number of times a send is retried after a
	// transient failure before it is reported as permanently failed.
	MaxRetries int

	// MetricsAddr is the bind address for the Prometheus /metrics
	// endpoint. Empty disables the metrics server.
	MetricsAddr string

	// MQTTBroker is the broker URL (e.g. "tcp://localhost:1883"). Empty
	// disables the MQTT submission bridge.
	MQTTBroker   string
	MQTTClientID string
	MQTTTopic    string
	MQTTUser     string
	MQTTPass     string
}

// ConfigOption is a function that modifies a Config
type ConfigOption func(*Config) error

// LoadConfig creates a new config by applying the given options in order
func LoadConfig(opts ...ConfigOption) (*Config, error) {
	config := &Config{}

	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, err
		}
	}

	return config, nil
}

// WithDefaults applies default configuration values
func WithDefaults() ConfigOption {
	return func(c *Config) error {
		c.BindAddress = "0.0.0.0:8080"
		c.SerialPort = "/dev/ttyUSB0"
		c.BaudRate = 115200
		c.LogLevel = "info"
		c.RatePerMin = 20
		c.MaxRetries = 3
		c.MQTTClientID = "smsgw"
		c.MQTTTopic = "smsgw/send"
		return nil
	}
}

// WithEnv loads configuration from environment variables
func WithEnv() ConfigOption {
	return func(c *Config) error {
		if addr := os.Getenv("BIND_ADDRESS"); addr != "" {
			c.BindAddress = addr
		}

		if serial := os.Getenv("SERIAL_PORT"); serial != "" {
			c.SerialPort = serial
		}

		if baud := os.Getenv("BAUD_RATE"); baud != "" {
			if b, err := strconv.Atoi(baud); err == nil {
				c.BaudRate = b
			}
		}

		if level := os.Getenv("LOG_LEVEL"); level != "" {
			c.LogLevel = level
		}

		if simPIN := os.Getenv("SIM_PIN"); simPIN != "" {
			c.SimPIN = simPIN
		}

		if rate := os.Getenv("RATE_PER_MIN"); rate != "" {
			if r, err := strconv.Atoi(rate); err == nil {
				c.RatePerMin = r
			}
		}

		if retries := os.Getenv("MAX_RETRIES"); retries != "" {
			if r, err := strconv.Atoi(retries); err == nil {
				c.MaxRetries = r
			}
		}

		if addr := os.Getenv("METRICS_ADDR"); addr != "" {
			c.MetricsAddr = addr
		}

		if broker := os.Getenv("MQTT_BROKER"); broker != "" {
			c.MQTTBroker = broker
		}
		if id := os.Getenv("MQTT_CLIENT_ID"); id != "" {
			c.MQTTClientID = id
		}
		if topic := os.Getenv("MQTT_TOPIC"); topic != "" {
			c.MQTTTopic = topic
		}
		if user := os.Getenv("MQTT_USER"); user != "" {
			c.MQTTUser = user
		}
		if pass := os.Getenv("MQTT_PASS"); pass != "" {
			c.MQTTPass = pass
		}

		return nil
	}
}

// WithFlags loads configuration from command-line flags
func WithFlags(fSet *flag.FlagSet) ConfigOption {
	return func(c *Config) error {
		fSet.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "bind-address":
				c.BindAddress = f.Value.String()
			case "serial-port":
				c.SerialPort = f.Value.String()
			case "baud-rate":
				if b, err := strconv.Atoi(f.Value.String()); err == nil {
					c.BaudRate = b
				}
			case "log-level":
				c.LogLevel = f.Value.String()
			case "sim-pin":
				c.SimPIN = f.Value.String()
			case "rate-per-min":
				if r, err := strconv.Atoi(f.Value.String()); err == nil {
					c.RatePerMin = r
				}
			case "max-retries":
				if r, err := strconv.Atoi(f.Value.String()); err == nil {
					c.MaxRetries = r
				}
			case "metrics-addr":
				c.MetricsAddr = f.Value.String()
			case "mqtt-broker":
				c.MQTTBroker = f.Value.String()
			case "mqtt-client-id":
				c.MQTTClientID = f.Value.String()
			case "mqtt-topic":
				c.MQTTTopic = f.Value.String()
			case "mqtt-user":
				c.MQTTUser = f.Value.String()
			case "mqtt-pass":
				c.MQTTPass = f.Value.String()
			}

		})
		return nil
	}

}
