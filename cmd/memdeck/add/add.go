// Package addcmder provides the add command, which stores a new memory.
package addcmder

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/memdeck/cmd/memdeck/cmdenv"
	"github.com/papercomputeco/memdeck/pkg/cliui"
	"github.com/papercomputeco/memdeck/pkg/config"
)

const addLongDesc string = `Store a new memory.

The text is sent to the memory service under the given user. When the
service merges the text into an existing memory it may not report a new
record; the stored text is echoed back either way.

Examples:
  memdeck add "Prefers window seats on long flights"
  memdeck add --user alice Allergic to shellfish`

const addShortDesc string = "Store a new memory"

type addCommander struct {
	user    string
	target  string
	timeout string

	eventProvider string
	kafkaBrokers  string
	kafkaTopic    string
}

var addFlags = []string{
	config.FlagServiceTarget,
	config.FlagServiceTimeout,
	config.FlagDefaultUser,
	config.FlagEventProvider,
	config.FlagKafkaBrokers,
	config.FlagKafkaTopic,
}

func NewAddCmd() *cobra.Command {
	cmder := &addCommander{}

	cmd := &cobra.Command{
		Use:   "add <text>",
		Short: addShortDesc,
		Long:  addLongDesc,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd, strings.Join(args, " "))
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagServiceTarget, &cmder.target)
	config.AddStringFlag(cmd, config.Flags, config.FlagServiceTimeout, &cmder.timeout)
	config.AddStringFlag(cmd, config.Flags, config.FlagDefaultUser, &cmder.user)
	config.AddStringFlag(cmd, config.Flags, config.FlagEventProvider, &cmder.eventProvider)
	config.AddStringFlag(cmd, config.Flags, config.FlagKafkaBrokers, &cmder.kafkaBrokers)
	config.AddStringFlag(cmd, config.Flags, config.FlagKafkaTopic, &cmder.kafkaTopic)

	return cmd
}

func (c *addCommander) run(cmd *cobra.Command, text string) error {
	env, err := cmdenv.Load(cmd, addFlags...)
	if err != nil {
		return err
	}
	defer env.Close()

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

	owner := env.Viper.GetString("dashboard.default_user")
	record, err := cr.Deck.AddRecord(ctx, text, owner)
	if err != nil {
		return cmdenv.UserError(err)
	}

	w := cmd.OutOrStdout()
	id := record.ID
	if id == "" {
		id = "(merged)"
	}
	fmt.Fprintf(w, "\n  %s Added memory %s for %s\n",
		cliui.SuccessMark,
		cliui.DimStyle.Render(id),
		cliui.KeyStyle.Render(record.UserID),
	)
	fmt.Fprintf(w, "  %s\n\n", cliui.ValueStyle.Render(record.Memory))
	return nil
}
