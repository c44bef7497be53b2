package config

import (
	"fmt"
	"strconv"
	"time"
)

// Config represents the persistent rtcheck configuration stored as
// config.toml in the .rtcheck/ directory.
type Config struct {
	Version     int               `toml:"version"`
	Realtime    RealtimeConfig    `toml:"realtime"`
	Session     SessionConfig     `toml:"session"`
	Response    ResponseConfig    `toml:"response"`
	Network     NetworkConfig     `toml:"network"`
	Secrets     SecretsConfig     `toml:"secrets"`
	EventStream EventStreamConfig `toml:"eventstream"`
}

// RealtimeConfig selects the endpoint and model to check.
type RealtimeConfig struct {
	URL   string `toml:"url,omitempty"`
	Model string `toml:"model,omitempty"`

	// OpenTimeout bounds the websocket handshake, e.g. "30s".
	OpenTimeout string `toml:"open_timeout,omitempty"`
}

// SessionConfig holds the session.update payload settings.
type SessionConfig struct {
	Instructions string `toml:"instructions,omitempty"`
}

// ResponseConfig holds the response.create payload settings.
type ResponseConfig struct {
	Instructions string `toml:"instructions,omitempty"`
}

// NetworkConfig holds proxy and TLS settings.
type NetworkConfig struct {
	Proxy    string `toml:"proxy,omitempty"`
	Insecure bool   `toml:"insecure,omitempty"`
}

// SecretsConfig points at the local xcconfig secrets file.
type SecretsConfig struct {
	XCConfigPath string `toml:"xcconfig_path,omitempty"`
}

// EventStreamConfig enables publishing check results to kafka.
// KafkaBrokers is a comma separated host:port list; empty disables publishing.
type EventStreamConfig struct {
	KafkaBrokers string `toml:"kafka_brokers,omitempty"`
	KafkaTopic   string `toml:"kafka_topic,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"realtime.url":   stringKey(func(c *Config) *string { return &c.Realtime.URL }),
	"realtime.model": stringKey(func(c *Config) *string { return &c.Realtime.Model }),
	"realtime.open_timeout": {
		get: func(c *Config) string { return c.Realtime.OpenTimeout },
		set: func(c *Config, v string) error {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid value for realtime.open_timeout: %w", err)
			}
			if d <= 0 {
				return fmt.Errorf("invalid value for realtime.open_timeout: must be positive, got %s", v)
			}
			c.Realtime.OpenTimeout = v
			return nil
		},
	},
	"session.instructions":  stringKey(func(c *Config) *string { return &c.Session.Instructions }),
	"response.instructions": stringKey(func(c *Config) *string { return &c.Response.Instructions }),
	"network.proxy":         stringKey(func(c *Config) *string { return &c.Network.Proxy }),
	"network.insecure": {
		get: func(c *Config) string { return strconv.FormatBool(c.Network.Insecure) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for network.insecure: %w", err)
			}
			c.Network.Insecure = b
			return nil
		},
	},
	"secrets.xcconfig_path":     stringKey(func(c *Config) *string { return &c.Secrets.XCConfigPath }),
	"eventstream.kafka_brokers": stringKey(func(c *Config) *string { return &c.EventStream.KafkaBrokers }),
	"eventstream.kafka_topic":   stringKey(func(c *Config) *string { return &c.EventStream.KafkaTopic }),
}
