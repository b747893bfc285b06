// Package listcmder provides the list command, which prints the filtered and
// sorted memory collection.
package listcmder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/memdeck/cmd/memdeck/cmdenv"
	"github.com/papercomputeco/memdeck/pkg/cliui"
	"github.com/papercomputeco/memdeck/pkg/config"
	"github.com/papercomputeco/memdeck/pkg/deck"
	"github.com/papercomputeco/memdeck/pkg/utils"
)

const listLongDesc string = `List stored memories.

Loads the full collection from the memory service, then filters and sorts it
locally. Filters combine with AND: --search matches memory text
case-insensitively, --user keeps one owner, --tag keeps records carrying that
tag.

Examples:
  memdeck list
  memdeck list --search tea --sort user_id --order asc
  memdeck list --tag work --markdown
  memdeck list --json`

const listShortDesc string = "List stored memories"

const (
	outputText     = "text"
	outputMarkdown = "markdown"
	outputJSON     = "json"

	memoryWidth = 72
)

type listCommander struct {
	search   string
	user     string
	tag      string
	sort     string
	order    string
	markdown bool
	jsonOut  bool

	target  string
	timeout string
}

var listFlags = []string{
	config.FlagServiceTarget,
	config.FlagServiceTimeout,
}

func NewListCmd() *cobra.Command {
	cmder := &listCommander{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: listShortDesc,
		Long:  listLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagServiceTarget, &cmder.target)
	config.AddStringFlag(cmd, config.Flags, config.FlagServiceTimeout, &cmder.timeout)

	cmd.Flags().StringVarP(&cmder.search, "search", "s", "", "Only memories whose text contains this")
	cmd.Flags().StringVar(&cmder.user, "user", "", "Only memories owned by this user")
	cmd.Flags().StringVar(&cmder.tag, "tag", "", "Only memories carrying this tag")
	cmd.Flags().StringVar(&cmder.sort, "sort", "", "Sort field (created_at, user_id, memory)")
	cmd.Flags().StringVar(&cmder.order, "order", "", "Sort order (asc, desc)")
	cmd.Flags().BoolVar(&cmder.markdown, "markdown", false, "Render the result as a markdown table")
	cmd.Flags().BoolVar(&cmder.jsonOut, "json", false, "Print the overview as JSON")
	cmd.MarkFlagsMutuallyExclusive("markdown", "json")

	return cmd
}

func (c *listCommander) run(cmd *cobra.Command) error {
	env, err := cmdenv.Load(cmd, listFlags...)
	if err != nil {
		return err
	}
	defer env.Close()

	spec, err := c.spec(env.Viper.GetString("dashboard.default_sort"), env.Viper.GetString("dashboard.default_order"))
	if err != nil {
		return err
	}

	log, err := env.Logger(cmd.ErrOrStderr(), "")
	if err != nil {
		return err
	}

	cr, err := env.OpenCore("cli", log, nil)
	if err != nil {
		return err
	}
	defer cr.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	snapshot, err := cr.Deck.Wait(ctx)
	if err != nil {
		return err
	}
	if snapshot.Err != nil {
		return cmdenv.UserError(snapshot.Err)
	}

	overview := deck.Build(snapshot, spec)

	switch c.output() {
	case outputJSON:
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(overview)
	case outputMarkdown:
		return printMarkdown(cmd.OutOrStdout(), overview, time.Now())
	default:
		printText(cmd.OutOrStdout(), overview, time.Now())
		return nil
	}
}

// spec merges the flags over the configured default sort.
func (c *listCommander) spec(defaultSort, defaultOrder string) (deck.Spec, error) {
	sortValue := c.sort
	if sortValue == "" {
		sortValue = defaultSort
	}
	orderValue := c.order
	if orderValue == "" {
		orderValue = defaultOrder
	}

	spec := deck.DefaultSpec()
	if sortValue != "" {
		field, err := deck.ParseSortField(sortValue)
		if err != nil {
			return deck.Spec{}, err
		}
		spec.SortField = field
	}
	if orderValue != "" {
		order, err := deck.ParseSortOrder(orderValue)
		if err != nil {
			return deck.Spec{}, err
		}
		spec.SortOrder = order
	}

	spec.Search = c.search
	spec.User = c.user
	spec.Tag = c.tag
	return spec, nil
}

func (c *listCommander) output() string {
	switch {
	case c.jsonOut:
		return outputJSON
	case c.markdown:
		return outputMarkdown
	default:
		return outputText
	}
}

func printText(w io.Writer, overview deck.Overview, now time.Time) {
	fmt.Fprintf(w, "\n  %s %s\n\n",
		cliui.HeaderStyle.Render("Memories"),
		cliui.DimStyle.Render(showingLine(overview)),
	)

	if len(overview.Records) == 0 {
		fmt.Fprintf(w, "  %s\n\n", cliui.DimStyle.Render(emptyLine(overview)))
		return
	}

	for _, record := range overview.Records {
		created, ok := record.CreatedTime()
		fmt.Fprintf(w, "  %s  %s  %s\n",
			cliui.KeyStyle.Render(record.UserID),
			cliui.DimStyle.Render(deck.FormatAge(created, ok, now)),
			cliui.DimStyle.Render(record.ID),
		)
		fmt.Fprintf(w, "  %s\n", utils.Truncate(utils.SingleLine(record.Memory), memoryWidth))

		if tags := record.Tags(); len(tags) > 0 {
			chips := make([]string, 0, len(tags))
			for _, tag := range tags {
				chips = append(chips, cliui.Tag(tag, deck.TagColor(tag)))
			}
			fmt.Fprintf(w, "  %s\n", strings.Join(chips, " "))
		}
		fmt.Fprintln(w)
	}
}

func printMarkdown(w io.Writer, overview deck.Overview, now time.Time) error {
	var b strings.Builder
	fmt.Fprintf(&b, "## Memories\n\n_%s_\n\n", showingLine(overview))

	if len(overview.Records) == 0 {
		fmt.Fprintf(&b, "%s\n", emptyLine(overview))
	} else {
		b.WriteString("| User | Memory | Tags | Created |\n")
		b.WriteString("|------|--------|------|---------|\n")
		for _, record := range overview.Records {
			created, ok := record.CreatedTime()
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
				escapeCell(record.UserID),
				escapeCell(utils.Truncate(utils.SingleLine(record.Memory), memoryWidth)),
				escapeCell(strings.Join(record.Tags(), ", ")),
				deck.FormatAge(created, ok, now),
			)
		}
	}

	rendered, err := cliui.RenderMarkdown(b.String())
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(w, rendered)
	return err
}

func showingLine(overview deck.Overview) string {
	return fmt.Sprintf("showing %d of %d", overview.Showing, overview.Total)
}

func emptyLine(overview deck.Overview) string {
	if overview.Spec.HasFilters() {
		return "No memories match the current filters."
	}
	return "No memories stored yet."
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
