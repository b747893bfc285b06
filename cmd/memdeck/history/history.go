// Package historycmder provides the history command, which prints the change
// log the memory service keeps for a single memory.
package historycmder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
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
	addStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	updateStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	deleteStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true)
	textStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type historyCommander struct {
	jsonOut bool

	target  string
	timeout string
}

const historyLongDesc string = `Show how a memory changed over time.

Prints every change the memory service recorded for the memory: when it was
added, each time a later write rewrote its text, and its deletion. Deleted
memories keep their history, so this also works for ids that no longer show
up in memdeck list.

Example:
  memdeck history 6f1c0d2e-3a7b-4c1e-9d55-0b7e2f8a9c10
  memdeck history 6f1c0d2e --json`

const historyShortDesc string = "Show the change log of a memory"

var historyFlags = []string{
	config.FlagServiceTarget,
	config.FlagServiceTimeout,
}

func NewHistoryCmd() *cobra.Command {
	cmder := &historyCommander{}

	cmd := &cobra.Command{
		Use:   "history <id>",
		Short: historyShortDesc,
		Long:  historyLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd, args[0])
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagServiceTarget, &cmder.target)
	config.AddStringFlag(cmd, config.Flags, config.FlagServiceTimeout, &cmder.timeout)
	cmd.Flags().BoolVar(&cmder.jsonOut, "json", false, "Print the history as JSON")

	return cmd
}

func (c *historyCommander) run(cmd *cobra.Command, id string) error {
	env, err := cmdenv.Load(cmd, historyFlags...)
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

	entries, err := client.History(ctx, id)
	if err != nil {
		return cmdenv.UserError(err)
	}

	w := cmd.OutOrStdout()
	if c.jsonOut {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	printHistory(w, strings.TrimSpace(id), entries, time.Now())
	return nil
}

func printHistory(w io.Writer, id string, entries []memory.HistoryEntry, now time.Time) {
	fmt.Fprintf(w, "\n%s %s\n\n", headerStyle.Render("History of"), dimStyle.Render(id))

	if len(entries) == 0 {
		fmt.Fprintf(w, "  %s\n\n", dimStyle.Render("No recorded changes."))
		return
	}

	for _, entry := range entries {
		changed, ok := entry.ChangedAt()
		fmt.Fprintf(w, "  %s  %s\n",
			eventLabel(entry.Event),
			dimStyle.Render(deck.FormatAge(changed, ok, now)),
		)
		if entry.OldMemory != "" {
			fmt.Fprintf(w, "    - %s\n", dimStyle.Render(preview(entry.OldMemory)))
		}
		if entry.NewMemory != "" {
			fmt.Fprintf(w, "    + %s\n", textStyle.Render(preview(entry.NewMemory)))
		}
		fmt.Fprintln(w)
	}
}

func eventLabel(event string) string {
	label := fmt.Sprintf("%-6s", strings.ToUpper(event))
	switch strings.ToUpper(event) {
	case "ADD":
		return addStyle.Render(label)
	case "UPDATE":
		return updateStyle.Render(label)
	case "DELETE":
		return deleteStyle.Render(label)
	default:
		return dimStyle.Render(label)
	}
}

func preview(text string) string {
	return utils.Truncate(utils.SingleLine(text), 72)
}
