package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Config represents the persistent memdeck configuration stored as
// config.toml in the .memdeck/ directory. The TOML layout uses sections for
// logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Service     ServiceConfig     `toml:"service"`
	Dashboard   DashboardConfig   `toml:"dashboard"`
	EventStream EventStreamConfig `toml:"eventstream"`
	Inspect     InspectConfig     `toml:"inspect"`
}

// ServiceConfig points memdeck at the remote memory service.
// Target is a full URL (scheme + host + port).
type ServiceConfig struct {
	Target  string `toml:"target,omitempty"`
	Timeout string `toml:"timeout,omitempty"`
}

// DashboardConfig holds settings for the terminal deck and the local API.
type DashboardConfig struct {
	Listen          string `toml:"listen,omitempty"`
	RefreshInterval string `toml:"refresh_interval,omitempty"`
	DefaultSort     string `toml:"default_sort,omitempty"`
	DefaultOrder    string `toml:"default_order,omitempty"`
	DefaultUser     string `toml:"default_user,omitempty"`
}

// EventStreamConfig selects where committed writes are published.
// Provider is "nop" or "kafka". Brokers is a comma-separated list.
type EventStreamConfig struct {
	Provider string `toml:"provider,omitempty"`
	Brokers  string `toml:"brokers,omitempty"`
	Topic    string `toml:"topic,omitempty"`
}

// InspectConfig locates the Qdrant collection behind the memory service.
type InspectConfig struct {
	Host       string `toml:"host,omitempty"`
	Port       uint   `toml:"port,omitempty"`
	Collection string `toml:"collection,omitempty"`
	APIKey     string `toml:"api_key,omitempty"`
}

// BrokerList splits Brokers into trimmed, non-empty addresses.
func (e EventStreamConfig) BrokerList() []string {
	parts := strings.Split(e.Brokers, ",")
	brokers := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			brokers = append(brokers, part)
		}
	}
	return brokers
}

// ParseDuration parses a config duration. Empty means zero.
func ParseDuration(key, value string) (time.Duration, error) {
	if strings.TrimSpace(value) == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid value for %s: must not be negative", key)
	}
	return d, nil
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func durationSetter(key string, field func(c *Config) *string) func(c *Config, v string) error {
	return func(c *Config, v string) error {
		if _, err := ParseDuration(key, v); err != nil {
			return err
		}
		*field(c) = v
		return nil
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"service.target": {
		get: func(c *Config) string { return c.Service.Target },
		set: func(c *Config, v string) error { c.Service.Target = v; return nil },
	},
	"service.timeout": {
		get: func(c *Config) string { return c.Service.Timeout },
		set: durationSetter("service.timeout", func(c *Config) *string { return &c.Service.Timeout }),
	},
	"dashboard.listen": {
		get: func(c *Config) string { return c.Dashboard.Listen },
		set: func(c *Config, v string) error { c.Dashboard.Listen = v; return nil },
	},
	"dashboard.refresh_interval": {
		get: func(c *Config) string { return c.Dashboard.RefreshInterval },
		set: durationSetter("dashboard.refresh_interval", func(c *Config) *string { return &c.Dashboard.RefreshInterval }),
	},
	"dashboard.default_sort": {
		get: func(c *Config) string { return c.Dashboard.DefaultSort },
		set: func(c *Config, v string) error {
			switch v {
			case "created_at", "user_id", "memory":
				c.Dashboard.DefaultSort = v
				return nil
			default:
				return fmt.Errorf("invalid value for dashboard.default_sort: %q (expected created_at, user_id or memory)", v)
			}
		},
	},
	"dashboard.default_order": {
		get: func(c *Config) string { return c.Dashboard.DefaultOrder },
		set: func(c *Config, v string) error {
			switch v {
			case "asc", "desc":
				c.Dashboard.DefaultOrder = v
				return nil
			default:
				return fmt.Errorf("invalid value for dashboard.default_order: %q (expected asc or desc)", v)
			}
		},
	},
	"dashboard.default_user": {
		get: func(c *Config) string { return c.Dashboard.DefaultUser },
		set: func(c *Config, v string) error { c.Dashboard.DefaultUser = v; return nil },
	},
	"eventstream.provider": {
		get: func(c *Config) string { return c.EventStream.Provider },
		set: func(c *Config, v string) error {
			switch v {
			case "nop", "kafka":
				c.EventStream.Provider = v
				return nil
			default:
				return fmt.Errorf("invalid value for eventstream.provider: %q (expected nop or kafka)", v)
			}
		},
	},
	"eventstream.brokers": {
		get: func(c *Config) string { return c.EventStream.Brokers },
		set: func(c *Config, v string) error { c.EventStream.Brokers = v; return nil },
	},
	"eventstream.topic": {
		get: func(c *Config) string { return c.EventStream.Topic },
		set: func(c *Config, v string) error { c.EventStream.Topic = v; return nil },
	},
	"inspect.host": {
		get: func(c *Config) string { return c.Inspect.Host },
		set: func(c *Config, v string) error { c.Inspect.Host = v; return nil },
	},
	"inspect.port": {
		get: func(c *Config) string {
			if c.Inspect.Port == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Inspect.Port), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 16)
			if err != nil {
				return fmt.Errorf("invalid value for inspect.port: %w", err)
			}
			c.Inspect.Port = uint(n)
			return nil
		},
	},
	"inspect.collection": {
		get: func(c *Config) string { return c.Inspect.Collection },
		set: func(c *Config, v string) error { c.Inspect.Collection = v; return nil },
	},
	"inspect.api_key": {
		get: func(c *Config) string { return c.Inspect.APIKey },
		set: func(c *Config, v string) error { c.Inspect.APIKey = v; return nil },
	},
}
