// Package inspectcmder provides the inspect command, which reads the Qdrant
// collection behind the memory service directly.
package inspectcmder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/memdeck/cmd/memdeck/cmdenv"
	"github.com/papercomputeco/memdeck/pkg/cliui"
	"github.com/papercomputeco/memdeck/pkg/config"
	"github.com/papercomputeco/memdeck/pkg/deck"
	"github.com/papercomputeco/memdeck/pkg/inspect"
	"github.com/papercomputeco/memdeck/pkg/utils"
)

const inspectLongDesc string = `Inspect the vector store behind the memory service.

Scrolls the Qdrant collection the memory service writes to and prints each
point's payload next to the memory record it maps to. This bypasses the memory
service, which helps when a record shows up in Qdrant but not in the deck, or
the other way round.

Examples:
  memdeck inspect
  memdeck inspect --qdrant-host qdrant --collection mem0 --limit 50
  memdeck inspect --json
  memdeck inspect --payload`

const inspectShortDesc string = "Inspect the Qdrant collection behind the service"

type inspectCommander struct {
	host       string
	port       uint
	collection string
	limit      int
	tls        bool
	jsonOut    bool
	payload    bool
}

var inspectFlags = []string{
	config.FlagQdrantHost,
	config.FlagQdrantPort,
	config.FlagQdrantColl,
}

func NewInspectCmd() *cobra.Command {
	cmder := &inspectCommander{}

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: inspectShortDesc,
		Long:  inspectLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagQdrantHost, &cmder.host)
	config.AddUintFlag(cmd, config.Flags, config.FlagQdrantPort, &cmder.port)
	config.AddStringFlag(cmd, config.Flags, config.FlagQdrantColl, &cmder.collection)
	cmd.Flags().IntVarP(&cmder.limit, "limit", "n", 10, "Maximum number of points to show")
	cmd.Flags().BoolVar(&cmder.tls, "tls", false, "Connect to Qdrant over TLS")
	cmd.Flags().BoolVar(&cmder.jsonOut, "json", false, "Print points as JSON")
	cmd.Flags().BoolVar(&cmder.payload, "payload", false, "Print the full payload of the first point only")

	return cmd
}

func (c *inspectCommander) run(cmd *cobra.Command) error {
	env, err := cmdenv.Load(cmd, inspectFlags...)
	if err != nil {
		return err
	}
	defer env.Close()

	log, err := env.Logger(cmd.ErrOrStderr(), "")
	if err != nil {
		return err
	}

	inspector, err := inspect.New(inspect.Config{
		Host:       env.Viper.GetString("inspect.host"),
		Port:       env.Viper.GetInt("inspect.port"),
		APIKey:     env.Viper.GetString("inspect.api_key"),
		UseTLS:     c.tls,
		Collection: env.Viper.GetString("inspect.collection"),
		Logger:     log,
	})
	if err != nil {
		return err
	}
	defer inspector.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	w := cmd.OutOrStdout()
	if c.payload {
		point, err := inspector.First(ctx)
		if err != nil {
			return err
		}
		return printPayload(w, point)
	}

	points, err := inspector.Points(ctx, c.limit)
	if err != nil {
		return err
	}

	if c.jsonOut {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(points)
	}

	printPoints(w, inspector.Collection(), points, time.Now())
	return nil
}

func printPoints(w io.Writer, collection string, points []inspect.Point, now time.Time) {
	fmt.Fprintf(w, "\n  %s %s %s\n\n",
		cliui.HeaderStyle.Render("Collection"),
		cliui.KeyStyle.Render(collection),
		cliui.DimStyle.Render(fmt.Sprintf("(%d points)", len(points))),
	)

	if len(points) == 0 {
		fmt.Fprintf(w, "  %s\n\n", cliui.DimStyle.Render("No points stored."))
		return
	}

	for _, point := range points {
		record := point.Record
		created, ok := record.CreatedTime()
		fmt.Fprintf(w, "  %s  %s  %s\n",
			cliui.DimStyle.Render(point.ID),
			cliui.KeyStyle.Render(record.UserID),
			cliui.DimStyle.Render(deck.FormatAge(created, ok, now)),
		)
		fmt.Fprintf(w, "  %s\n", cliui.ValueStyle.Render(utils.Truncate(utils.SingleLine(record.Memory), 72)))

		keys := slices.Sorted(maps.Keys(point.Payload))
		fmt.Fprintf(w, "  %s %v\n\n", cliui.DimStyle.Render("payload keys:"), keys)
	}
}

// printPayload dumps one point's raw payload, which shows exactly which keys
// the memory service wrote.
func printPayload(w io.Writer, point inspect.Point) error {
	fmt.Fprintf(w, "\n  %s %s\n\n",
		cliui.HeaderStyle.Render("Point"),
		cliui.KeyStyle.Render(point.ID),
	)

	data, err := json.MarshalIndent(point.Payload, "  ", "  ")
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}
	fmt.Fprintf(w, "  %s\n\n", data)
	return nil
}
