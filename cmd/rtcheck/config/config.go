// Package configcmder provides the config command for managing persistent
// rtcheck configuration stored in the .rtcheck/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent rtcheck configuration.

Configuration is stored as config.toml in the .rtcheck/ directory and provides
default values for command flags. CLI flags and RTCHECK_* environment
variables always take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  realtime.url, realtime.model, realtime.open_timeout,
  session.instructions, response.instructions,
  network.proxy, network.insecure,
  secrets.xcconfig_path,
  eventstream.kafka_brokers, eventstream.kafka_topic

Use subcommands to get, set, or list configuration values:
  rtcheck config set <key> <value>    Set a configuration value
  rtcheck config get <key>            Get a configuration value
  rtcheck config list                 List all configuration values

Examples:
  rtcheck config set network.proxy http://127.0.0.1:7890
  rtcheck config set realtime.open_timeout 45s
  rtcheck config get realtime.model
  rtcheck config list`

const configShortDesc string = "Manage persistent rtcheck configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
