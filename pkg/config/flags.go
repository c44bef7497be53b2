package config

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline.
type Flag struct {
	// Name is the long flag name (e.g. "model").
	Name string

	// Shorthand is the one-letter short flag (e.g. "m"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "realtime.model").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of registry keys to Flag definitions.
type FlagSet map[string]Flag

// Flag registry keys.
const (
	FlagURL                  = "url"
	FlagModel                = "model"
	FlagOpenTimeout          = "open-timeout"
	FlagProxy                = "proxy"
	FlagInsecure             = "insecure"
	FlagSessionInstructions  = "session-instructions"
	FlagResponseInstructions = "response-instructions"
	FlagXCConfig             = "xcconfig"
	FlagKafkaBrokers         = "kafka-brokers"
	FlagKafkaTopic           = "kafka-topic"
)

// CheckFlags are the flags shared by every command that opens a realtime
// connection.
var CheckFlags = FlagSet{
	FlagURL: {
		Name:        "url",
		ViperKey:    "realtime.url",
		Description: "Realtime websocket endpoint (model is added as a query parameter)",
	},
	FlagModel: {
		Name:        "model",
		Shorthand:   "m",
		ViperKey:    "realtime.model",
		Description: "Realtime model to request",
	},
	FlagOpenTimeout: {
		Name:        "open-timeout",
		ViperKey:    "realtime.open_timeout",
		Description: "Timeout for the websocket opening handshake",
	},
	FlagProxy: {
		Name:        "proxy",
		ViperKey:    "network.proxy",
		Description: "Optional HTTP/HTTPS proxy, e.g. http://127.0.0.1:7890 (defaults to $HTTPS_PROXY or $ALL_PROXY)",
	},
	FlagInsecure: {
		Name:        "insecure",
		ViperKey:    "network.insecure",
		Description: "Skip TLS verification (only for debugging when intercepting proxies)",
	},
	FlagSessionInstructions: {
		Name:        "session-instructions",
		ViperKey:    "session.instructions",
		Description: "Instructions sent with session.update",
	},
	FlagResponseInstructions: {
		Name:        "prompt",
		Shorthand:   "p",
		ViperKey:    "response.instructions",
		Description: "Instructions sent with response.create",
	},
	FlagXCConfig: {
		Name:        "xcconfig",
		ViperKey:    "secrets.xcconfig_path",
		Description: "Path to an xcconfig file holding OPENAI_API_KEY",
	},
	FlagKafkaBrokers: {
		Name:        "kafka-brokers",
		ViperKey:    "eventstream.kafka_brokers",
		Description: "Comma separated kafka brokers for publishing check results",
	},
	FlagKafkaTopic: {
		Name:        "kafka-topic",
		ViperKey:    "eventstream.kafka_topic",
		Description: "Kafka topic for check results",
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

	defaultVal := defaults().GetString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddBoolFlag registers a bool flag on cmd from the given FlagSet.
func AddBoolFlag(cmd *cobra.Command, fs FlagSet, key string, target *bool) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaults().GetBool(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().BoolVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().BoolVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddDurationFlag registers a duration flag on cmd from the given FlagSet.
func AddDurationFlag(cmd *cobra.Command, fs FlagSet, key string, target *time.Duration) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaults().GetDuration(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().DurationVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().DurationVar(target, def.Name, defaultVal, def.Description)
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

// defaults returns a viper instance holding only NewDefaultConfig values.
func defaults() *viper.Viper {
	v := viper.New()
	setViperDefaults(v)
	return v
}
