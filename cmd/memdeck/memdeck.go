// Package memdeckcmder
package memdeckcmder

import (
	"github.com/spf13/cobra"

	addcmder "github.com/papercomputeco/memdeck/cmd/memdeck/add"
	configcmder "github.com/papercomputeco/memdeck/cmd/memdeck/config"
	deckcmder "github.com/papercomputeco/memdeck/cmd/memdeck/deck"
	historycmder "github.com/papercomputeco/memdeck/cmd/memdeck/history"
	initcmder "github.com/papercomputeco/memdeck/cmd/memdeck/init"
	inspectcmder "github.com/papercomputeco/memdeck/cmd/memdeck/inspect"
	listcmder "github.com/papercomputeco/memdeck/cmd/memdeck/list"
	logscmder "github.com/papercomputeco/memdeck/cmd/memdeck/logs"
	rmcmder "github.com/papercomputeco/memdeck/cmd/memdeck/rm"
	searchcmder "github.com/papercomputeco/memdeck/cmd/memdeck/search"
	servecmder "github.com/papercomputeco/memdeck/cmd/memdeck/serve"
	versioncmder "github.com/papercomputeco/memdeck/cmd/version"
)

const memdeckLongDesc string = `Memdeck is a dashboard for an agent memory service.

Browse and curate stored memories:
  memdeck deck       Live terminal dashboard
  memdeck list       Print memories with filters and sort
  memdeck add        Store a memory
  memdeck rm         Delete a memory after confirmation
  memdeck search     Semantic search through the memory service
  memdeck history    Show how a memory changed over time
  memdeck serve      Run the dashboard web API and MCP server
  memdeck logs       Print or follow a --log-file

Configuration lives in .memdeck/config.toml, see "memdeck init".`

const memdeckShortDesc string = "Memdeck - Agent Memory Dashboard"

func NewMemdeckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "memdeck",
		Short:         memdeckShortDesc,
		Long:          memdeckLongDesc,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .memdeck/ config directory")

	// Add subcommands
	cmd.AddCommand(deckcmder.NewDeckCmd())
	cmd.AddCommand(listcmder.NewListCmd())
	cmd.AddCommand(addcmder.NewAddCmd())
	cmd.AddCommand(rmcmder.NewRmCmd())
	cmd.AddCommand(searchcmder.NewSearchCmd())
	cmd.AddCommand(historycmder.NewHistoryCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(inspectcmder.NewInspectCmd())
	cmd.AddCommand(logscmder.NewLogsCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
