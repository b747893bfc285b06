package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands (e.g., --target
// on both "memdeck deck" and "memdeck serve").
type Flag struct {
	// Name is the long flag name (e.g. "target").
	Name string

	// Shorthand is the one-letter short flag (e.g. "t"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "service.target").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddUintFlag,
// and BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagServiceTarget   = "service-target"
	FlagServiceTimeout  = "service-timeout"
	FlagListen          = "listen"
	FlagRefreshInterval = "refresh-interval"
	FlagDefaultUser     = "user"
	FlagEventProvider   = "eventstream-provider"
	FlagKafkaBrokers    = "kafka-brokers"
	FlagKafkaTopic      = "kafka-topic"
	FlagQdrantHost      = "qdrant-host"
	FlagQdrantPort      = "qdrant-port"
	FlagQdrantColl      = "qdrant-collection"
)

// Flags is the registry shared by every memdeck command.
var Flags = FlagSet{
	FlagServiceTarget: {
		Name:        "target",
		Shorthand:   "t",
		ViperKey:    "service.target",
		Description: "Memory service URL",
	},
	FlagServiceTimeout: {
		Name:        "timeout",
		ViperKey:    "service.timeout",
		Description: "Per-request timeout for the memory service (e.g. 30s)",
	},
	FlagListen: {
		Name:        "listen",
		Shorthand:   "l",
		ViperKey:    "dashboard.listen",
		Description: "Address for the local API to listen on",
	},
	FlagRefreshInterval: {
		Name:        "refresh-interval",
		ViperKey:    "dashboard.refresh_interval",
		Description: "Revalidate the collection on this interval (0 disables)",
	},
	FlagDefaultUser: {
		Name:        "user",
		Shorthand:   "u",
		ViperKey:    "dashboard.default_user",
		Description: "User ID new memories are stored under",
	},
	FlagEventProvider: {
		Name:        "eventstream",
		ViperKey:    "eventstream.provider",
		Description: "Event stream for committed writes (nop, kafka)",
	},
	FlagKafkaBrokers: {
		Name:        "kafka-brokers",
		ViperKey:    "eventstream.brokers",
		Description: "Comma-separated Kafka broker addresses",
	},
	FlagKafkaTopic: {
		Name:        "kafka-topic",
		ViperKey:    "eventstream.topic",
		Description: "Kafka topic for memory events",
	},
	FlagQdrantHost: {
		Name:        "qdrant-host",
		ViperKey:    "inspect.host",
		Description: "Qdrant host behind the memory service",
	},
	FlagQdrantPort: {
		Name:        "qdrant-port",
		ViperKey:    "inspect.port",
		Description: "Qdrant gRPC port",
	},
	FlagQdrantColl: {
		Name:        "collection",
		ViperKey:    "inspect.collection",
		Description: "Qdrant collection holding the memories",
	},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddUintFlag registers a uint flag on cmd from the given FlagSet.
func AddUintFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *uint) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultUint(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().UintVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().UintVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaultString returns the default string value for a viper key from NewDefaultConfig.
func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}

// defaultUint returns the default uint value for a viper key from NewDefaultConfig.
func defaultUint(viperKey string) uint {
	v := viper.New()
	setViperDefaults(v)
	return v.GetUint(viperKey)
}
