// Package rmcmder provides the rm command, which deletes a memory after an
// explicit confirmation.
package rmcmder

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/memdeck/cmd/memdeck/cmdenv"
	"github.com/papercomputeco/memdeck/pkg/cliui"
	"github.com/papercomputeco/memdeck/pkg/config"
	"github.com/papercomputeco/memdeck/pkg/memory"
	"github.com/papercomputeco/memdeck/pkg/mutation"
	"github.com/papercomputeco/memdeck/pkg/utils"
)

const rmLongDesc string = `Delete a memory.

Shows the memory and asks for confirmation before deleting it. Pass --yes to
skip the question, which is required when stdin is not a terminal. Without
either, nothing is deleted.

Examples:
  memdeck rm 3f6c2a9e-0d1b-4c55-9a5e-1c2b3d4e5f60
  memdeck rm --yes 3f6c2a9e-0d1b-4c55-9a5e-1c2b3d4e5f60`

const rmShortDesc string = "Delete a memory"

type rmCommander struct {
	yes     bool
	target  string
	timeout string

	eventProvider string
	kafkaBrokers  string
	kafkaTopic    string

	prompter *cliui.Prompter
}

var rmFlags = []string{
	config.FlagServiceTarget,
	config.FlagServiceTimeout,
	config.FlagEventProvider,
	config.FlagKafkaBrokers,
	config.FlagKafkaTopic,
}

func NewRmCmd() *cobra.Command {
	return newRmCmd(nil)
}

func newRmCmd(prompter *cliui.Prompter) *cobra.Command {
	cmder := &rmCommander{prompter: prompter}

	cmd := &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   rmShortDesc,
		Long:    rmLongDesc,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd, args[0])
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagServiceTarget, &cmder.target)
	config.AddStringFlag(cmd, config.Flags, config.FlagServiceTimeout, &cmder.timeout)
	config.AddStringFlag(cmd, config.Flags, config.FlagEventProvider, &cmder.eventProvider)
	config.AddStringFlag(cmd, config.Flags, config.FlagKafkaBrokers, &cmder.kafkaBrokers)
	config.AddStringFlag(cmd, config.Flags, config.FlagKafkaTopic, &cmder.kafkaTopic)
	cmd.Flags().BoolVarP(&cmder.yes, "yes", "y", false, "Delete without asking")

	return cmd
}

func (c *rmCommander) run(cmd *cobra.Command, id string) error {
	env, err := cmdenv.Load(cmd, rmFlags...)
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

	lookup := func(ctx context.Context, id string) (memory.Record, bool) {
		if _, err := cr.Deck.Wait(ctx); err != nil {
			return memory.Record{}, false
		}
		return cr.Deck.Find(id)
	}

	w := cmd.OutOrStdout()
	err = cr.Deck.DeleteRecordWith(ctx, id, c.confirmer(w, lookup))
	switch {
	case errors.Is(err, memory.ErrDeleteDeclined):
		fmt.Fprintf(w, "\n  %s\n\n", cliui.DimStyle.Render(memory.UserMessage(err)))
		return nil
	case err != nil:
		return cmdenv.UserError(err)
	}

	fmt.Fprintf(w, "\n  %s Deleted memory %s\n\n", cliui.SuccessMark, cliui.DimStyle.Render(id))
	return nil
}

// confirmer asks on the terminal unless --yes was given. A prompt that
// cannot be shown declines.
func (c *rmCommander) confirmer(w io.Writer, lookup func(context.Context, string) (memory.Record, bool)) mutation.Confirmer {
	if c.yes {
		return mutation.AutoConfirm
	}

	return mutation.ConfirmFunc(func(ctx context.Context, id string) (bool, error) {
		prompter := c.prompter
		if prompter == nil {
			prompter = cliui.NewPrompter()
		}
		if !prompter.Interactive() {
			fmt.Fprintf(w, "\n  %s\n", cliui.WarnStyle.Render("stdin is not a terminal; pass --yes to delete"))
			return false, nil
		}

		if record, ok := lookup(ctx, id); ok {
			fmt.Fprintf(w, "\n  %s  %s\n  %s\n\n",
				cliui.KeyStyle.Render(record.UserID),
				cliui.DimStyle.Render(record.ID),
				utils.Truncate(utils.SingleLine(record.Memory), 72),
			)
		}
		return prompter.YesNo(fmt.Sprintf("Delete memory %s?", id))
	})
}
