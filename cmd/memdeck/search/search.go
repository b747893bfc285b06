// Package searchcmder provides the search command for semantic search over
// stored memories.
package searchcmder

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/memdeck/cmd/memdeck/cmdenv"
	"github.com/papercomputeco/memdeck/pkg/config"
	"github.com/papercomputeco/memdeck/pkg/deck"
	"github.com/papercomputeco/memdeck/pkg/gateway"
	"github.com/papercomputeco/memdeck/pkg/memory"
	"github.com/papercomputeco/memdeck/pkg/utils"
)

var (
	rankStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	userStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	previewStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	headerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type searchCommander struct {
	user  string
	topK  int
	quiet bool

	target  string
	timeout string
}

const searchLongDesc string = `Search memories via the memory service.

Runs the service's semantic search and prints the most relevant memories.
Unlike list, which filters on substrings locally, ranking happens on the
service.

Use --quiet to output only memory IDs, one per line, for piping into other
commands such as memdeck rm.

Example:
  memdeck search "what does alice drink in the morning"
  memdeck search "travel plans" --user carol --top 3
  memdeck search "peanuts" --quiet`

const searchShortDesc string = "Search memories"

var searchFlags = []string{
	config.FlagServiceTarget,
	config.FlagServiceTimeout,
}

func NewSearchCmd() *cobra.Command {
	cmder := &searchCommander{}

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: searchShortDesc,
		Long:  searchLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd, args[0])
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagServiceTarget, &cmder.target)
	config.AddStringFlag(cmd, config.Flags, config.FlagServiceTimeout, &cmder.timeout)
	cmd.Flags().StringVar(&cmder.user, "user", "", "Only search memories owned by this user")
	cmd.Flags().IntVarP(&cmder.topK, "top", "k", 5, "Number of results to return")
	cmd.Flags().BoolVarP(&cmder.quiet, "quiet", "q", false, "Only print memory IDs")

	return cmd
}

func (c *searchCommander) run(cmd *cobra.Command, query string) error {
	env, err := cmdenv.Load(cmd, searchFlags...)
	if err != nil {
		return err
	}
	defer env.Close()

	log, err := env.Logger(cmd.ErrOrStderr(), "")
	if err != nil {
		return err
	}

	opts, err := env.Options("cli", log)
	if err != nil {
		return err
	}

	client, err := gateway.NewClient(gateway.Config{
		Target:  opts.Target,
		Timeout: opts.Timeout,
		Logger:  log,
	})
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	results, err := client.Search(ctx, query, c.user, c.topK)
	if err != nil {
		return cmdenv.UserError(err)
	}

	w := cmd.OutOrStdout()
	if c.quiet {
		for _, record := range results {
			fmt.Fprintln(w, record.ID)
		}
		return nil
	}

	printResults(w, query, results, time.Now())
	return nil
}

func printResults(w io.Writer, query string, results []memory.Record, now time.Time) {
	fmt.Fprintf(w, "\n%s %s\n\n",
		headerStyle.Render("Search Results for:"),
		userStyle.Render(fmt.Sprintf("%q", query)),
	)

	if len(results) == 0 {
		fmt.Fprintf(w, "  %s\n\n", dimStyle.Render("No matching memories."))
		return
	}

	for i, record := range results {
		created, ok := record.CreatedTime()
		fmt.Fprintf(w, "  %s  %s  %s\n",
			rankStyle.Render(fmt.Sprintf("#%d", i+1)),
			userStyle.Render(record.UserID),
			dimStyle.Render(deck.FormatAge(created, ok, now)),
		)
		fmt.Fprintf(w, "  %s\n", previewStyle.Render(utils.Truncate(utils.SingleLine(record.Memory), 72)))
		fmt.Fprintf(w, "  %s\n\n", dimStyle.Render(record.ID))
	}
}
