// Package rtcheckcmder
package rtcheckcmder

import (
	"github.com/spf13/cobra"

	authcmder "github.com/papercomputeco/rtcheck/cmd/rtcheck/auth"
	configcmder "github.com/papercomputeco/rtcheck/cmd/rtcheck/config"
	runcmder "github.com/papercomputeco/rtcheck/cmd/rtcheck/run"
	versioncmder "github.com/papercomputeco/rtcheck/cmd/version"
)

const rtcheckLongDesc string = `rtcheck is a connectivity smoke test for realtime streaming APIs.

It opens one websocket connection, configures a text-only session, asks for a
short response and prints the streamed text.

Get started:
  rtcheck auth openai     Store an API key
  rtcheck run             Run the check
  rtcheck config list     Show persistent settings`

const rtcheckShortDesc string = "rtcheck - Realtime API connectivity check"

func NewRtcheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rtcheck",
		Short: rtcheckShortDesc,
		Long:  rtcheckLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .rtcheck/ config directory")

	// Add subcommands
	cmd.AddCommand(runcmder.NewRunCmd())
	cmd.AddCommand(authcmder.NewAuthCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
