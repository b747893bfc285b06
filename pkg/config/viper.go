package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/memdeck/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the MEMDECK_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (MEMDECK_SERVICE_TARGET, MEMDECK_DASHBOARD_LISTEN, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	// 1. Register all defaults from NewDefaultConfig().
	setViperDefaults(v)

	// 2. Config file discovery via dotdir resolution.
	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// 3. Environment variables: MEMDECK_SERVICE_TARGET, MEMDECK_EVENTSTREAM_BROKERS, etc.
	v.SetEnvPrefix("MEMDECK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// Service
	v.SetDefault("service.target", d.Service.Target)
	v.SetDefault("service.timeout", d.Service.Timeout)

	// Dashboard
	v.SetDefault("dashboard.listen", d.Dashboard.Listen)
	v.SetDefault("dashboard.refresh_interval", d.Dashboard.RefreshInterval)
	v.SetDefault("dashboard.default_sort", d.Dashboard.DefaultSort)
	v.SetDefault("dashboard.default_order", d.Dashboard.DefaultOrder)
	v.SetDefault("dashboard.default_user", d.Dashboard.DefaultUser)

	// Event stream
	v.SetDefault("eventstream.provider", d.EventStream.Provider)
	v.SetDefault("eventstream.brokers", d.EventStream.Brokers)
	v.SetDefault("eventstream.topic", d.EventStream.Topic)

	// Inspect
	v.SetDefault("inspect.host", d.Inspect.Host)
	v.SetDefault("inspect.port", d.Inspect.Port)
	v.SetDefault("inspect.collection", d.Inspect.Collection)
	v.SetDefault("inspect.api_key", d.Inspect.APIKey)
}
