// Package configcmder provides the config command for managing persistent
// memdeck configuration stored in the .memdeck/ directory.
package configcmder

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/memdeck/pkg/cliui"
	"github.com/papercomputeco/memdeck/pkg/config"
)

const configLongDesc string = `Manage persistent memdeck configuration.

Configuration is stored as config.toml in the .memdeck/ directory and provides
default values for command flags. CLI flags and MEMDECK_ environment variables
always take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  service.target, service.timeout,
  dashboard.listen, dashboard.refresh_interval, dashboard.default_sort,
  dashboard.default_order, dashboard.default_user,
  eventstream.provider, eventstream.brokers, eventstream.topic,
  inspect.host, inspect.port, inspect.collection, inspect.api_key

Use subcommands to get, set, or list configuration values:
  memdeck config set <key> <value>    Set a configuration value
  memdeck config get <key>            Get a configuration value
  memdeck config list                 List all configuration values

Examples:
  memdeck config set service.target http://localhost:8000
  memdeck config set dashboard.refresh_interval 30s
  memdeck config get service.target
  memdeck config list`

const configShortDesc string = "Manage persistent memdeck configuration"

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

func printTarget(w io.Writer, cfger *config.Configer) {
	target := cfger.GetTarget()
	if target != "" {
		fmt.Fprintf(w, "\n  %s %s\n\n",
			cliui.KeyStyle.Render("Config file:"),
			cliui.DimStyle.Render(target),
		)
		return
	}
	fmt.Fprintf(w, "\n  %s\n\n", cliui.DimStyle.Render("No config file found. Using defaults."))
}

func completeKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}
