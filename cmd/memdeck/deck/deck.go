// Package deckcmder provides the deck command, a live terminal dashboard over
// the memory collection.
package deckcmder

import (
	"context"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/memdeck/cmd/memdeck/cmdenv"
	"github.com/papercomputeco/memdeck/pkg/config"
	"github.com/papercomputeco/memdeck/pkg/core"
	"github.com/papercomputeco/memdeck/pkg/deck"
	"github.com/papercomputeco/memdeck/pkg/dotdir"
	"github.com/papercomputeco/memdeck/pkg/gateway"
)

const deckLongDesc string = `Deck is a live dashboard for stored memories.

Browse, filter, add and delete memories in a TUI. The collection is loaded
once, shared by every view, and refetched after each add or delete and on
the refresh interval. Filters and sort are saved in .memdeck/view.json and
restored the next time the deck opens.

Keys:
  j/k       move             /      search
  u / t     cycle user / tag x      reset filters
  1 2 3     sort by created, user, memory (again to flip)
  o         flip order       r      refresh
  a         add a memory     d      delete the selected memory
  q         quit

Examples:
  memdeck deck
  memdeck deck --target http://memory-api:8000 --user alice
  memdeck deck --tag work --sort user_id --order asc
  memdeck deck --demo`

const deckShortDesc string = "Deck - live dashboard for stored memories"

type deckCommander struct {
	target          string
	timeout         string
	refreshInterval string
	user            string
	eventProvider   string
	kafkaBrokers    string
	kafkaTopic      string

	search     string
	filterUser string
	tag        string
	sort       string
	order      string
	reset      bool
	demo       bool
	logFile    string
}

var deckFlags = []string{
	config.FlagServiceTarget,
	config.FlagServiceTimeout,
	config.FlagRefreshInterval,
	config.FlagDefaultUser,
	config.FlagEventProvider,
	config.FlagKafkaBrokers,
	config.FlagKafkaTopic,
}

func NewDeckCmd() *cobra.Command {
	cmder := &deckCommander{}

	cmd := &cobra.Command{
		Use:   "deck",
		Short: deckShortDesc,
		Long:  deckLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagServiceTarget, &cmder.target)
	config.AddStringFlag(cmd, config.Flags, config.FlagServiceTimeout, &cmder.timeout)
	config.AddStringFlag(cmd, config.Flags, config.FlagRefreshInterval, &cmder.refreshInterval)
	config.AddStringFlag(cmd, config.Flags, config.FlagDefaultUser, &cmder.user)
	config.AddStringFlag(cmd, config.Flags, config.FlagEventProvider, &cmder.eventProvider)
	config.AddStringFlag(cmd, config.Flags, config.FlagKafkaBrokers, &cmder.kafkaBrokers)
	config.AddStringFlag(cmd, config.Flags, config.FlagKafkaTopic, &cmder.kafkaTopic)

	cmd.Flags().StringVar(&cmder.search, "search", "", "Start with this search text")
	cmd.Flags().StringVar(&cmder.filterUser, "filter-user", "", "Start filtered to this user")
	cmd.Flags().StringVar(&cmder.tag, "tag", "", "Start filtered to this tag")
	cmd.Flags().StringVar(&cmder.sort, "sort", "", "Start sorted by created_at, user_id or memory")
	cmd.Flags().StringVar(&cmder.order, "order", "", "Start in asc or desc order")
	cmd.Flags().BoolVar(&cmder.reset, "reset", false, "Discard the saved view state")
	cmd.Flags().BoolVar(&cmder.demo, "demo", false, "Browse built-in demo memories instead of the memory service")
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Append JSON logs to this file")

	return cmd
}

func (c *deckCommander) run(cmd *cobra.Command) error {
	env, err := cmdenv.Load(cmd, deckFlags...)
	if err != nil {
		return err
	}
	defer env.Close()

	// The TUI owns the terminal, so logs only go to --log-file.
	log, err := env.Logger(io.Discard, c.logFile)
	if err != nil {
		return err
	}

	views := dotdir.NewManager()
	var saved *dotdir.ViewState
	if c.reset {
		if err := views.ClearViewState(env.ConfigDir); err != nil {
			log.Warn("clearing saved view state", "error", err)
		}
	} else {
		saved, err = views.LoadViewState(env.ConfigDir)
		if err != nil {
			log.Warn("ignoring saved view state", "error", err)
			saved = nil
		}
	}

	spec, err := c.initialSpec(saved,
		env.Viper.GetString("dashboard.default_sort"),
		env.Viper.GetString("dashboard.default_order"),
	)
	if err != nil {
		return err
	}

	cr, err := env.OpenCore("deck", log, func(o *core.Options) {
		if c.demo {
			o.Gateway = gateway.NewInMemory(deck.DemoRecords(time.Now())...)
		}
	})
	if err != nil {
		return err
	}
	defer cr.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	final, err := runDeckTUI(ctx, cr.Deck, spec, env.Viper.GetString("dashboard.default_user"))
	if err != nil {
		return err
	}

	if err := views.SaveViewState(viewStateOf(final), env.ConfigDir); err != nil {
		log.Warn("saving view state", "error", err)
	}
	return nil
}

// initialSpec layers flags over the saved view over the configured defaults.
func (c *deckCommander) initialSpec(saved *dotdir.ViewState, defaultSort, defaultOrder string) (deck.Spec, error) {
	spec := deck.DefaultSpec()

	sortValue, orderValue := defaultSort, defaultOrder
	if saved != nil {
		spec.Search = saved.Search
		spec.User = saved.User
		spec.Tag = saved.Tag
		if saved.SortField != "" {
			sortValue = saved.SortField
		}
		if saved.SortOrder != "" {
			orderValue = saved.SortOrder
		}
	}

	if c.search != "" {
		spec.Search = c.search
	}
	if c.filterUser != "" {
		spec.User = c.filterUser
	}
	if c.tag != "" {
		spec.Tag = c.tag
	}
	if c.sort != "" {
		sortValue = c.sort
	}
	if c.order != "" {
		orderValue = c.order
	}

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

	return spec, nil
}

func viewStateOf(spec deck.Spec) *dotdir.ViewState {
	return &dotdir.ViewState{
		Search:    spec.Search,
		User:      spec.User,
		Tag:       spec.Tag,
		SortField: string(spec.SortField),
		SortOrder: string(spec.SortOrder),
	}
}
