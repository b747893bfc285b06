// Package servecmder provides the serve command, which runs the local HTTP
// API, the MCP endpoint and the metrics endpoint over one shared deck.
package servecmder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/memdeck/api"
	"github.com/papercomputeco/memdeck/api/mcp"
	"github.com/papercomputeco/memdeck/cmd/memdeck/cmdenv"
	"github.com/papercomputeco/memdeck/pkg/config"
	"github.com/papercomputeco/memdeck/pkg/core"
	"github.com/papercomputeco/memdeck/pkg/deck"
	"github.com/papercomputeco/memdeck/pkg/gateway"
	"github.com/papercomputeco/memdeck/pkg/metrics"
)

const (
	metricsNamespace = "memdeck"
	healthTimeout    = 5 * time.Second
)

type ServeCommander struct {
	listen          string
	target          string
	timeout         string
	refreshInterval string
	eventProvider   string
	kafkaBrokers    string
	kafkaTopic      string

	logFile string
	noMCP   bool
	demo    bool
}

const serveLongDesc string = `Run the memdeck API.

Serves a local HTTP API over one shared, revalidating view of the memory
collection:
  GET    /v1/memories        Filtered and sorted records (search, user, tag, sort, order)
  POST   /v1/memories        Add a memory
  GET    /v1/memories/:id    One record
  DELETE /v1/memories/:id    Delete a memory (requires ?confirm=true)
  GET    /v1/facets          Distinct users and tags
  GET    /v1/stats           Totals and the most recent memories
  POST   /v1/refresh         Refetch the collection
  GET    /metrics            Prometheus metrics
  ANY    /mcp                MCP tools for agents

Examples:
  memdeck serve
  memdeck serve --listen :9000 --target http://memory-api:8000
  memdeck serve --demo`

const serveShortDesc string = "Run the memdeck API"

var serveFlags = []string{
	config.FlagListen,
	config.FlagServiceTarget,
	config.FlagServiceTimeout,
	config.FlagRefreshInterval,
	config.FlagEventProvider,
	config.FlagKafkaBrokers,
	config.FlagKafkaTopic,
}

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagListen, &cmder.listen)
	config.AddStringFlag(cmd, config.Flags, config.FlagServiceTarget, &cmder.target)
	config.AddStringFlag(cmd, config.Flags, config.FlagServiceTimeout, &cmder.timeout)
	config.AddStringFlag(cmd, config.Flags, config.FlagRefreshInterval, &cmder.refreshInterval)
	config.AddStringFlag(cmd, config.Flags, config.FlagEventProvider, &cmder.eventProvider)
	config.AddStringFlag(cmd, config.Flags, config.FlagKafkaBrokers, &cmder.kafkaBrokers)
	config.AddStringFlag(cmd, config.Flags, config.FlagKafkaTopic, &cmder.kafkaTopic)

	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also append JSON logs to this file")
	cmd.Flags().BoolVar(&cmder.noMCP, "no-mcp", false, "Serve /mcp without any tools")
	cmd.Flags().BoolVar(&cmder.demo, "demo", false, "Serve built-in demo memories instead of the memory service")

	return cmd
}

// service is everything run needs to serve and tear down.
type service struct {
	server *api.Server
	core   *core.Core
	logger *slog.Logger
}

func (c *ServeCommander) run(cmd *cobra.Command) error {
	env, err := cmdenv.Load(cmd, serveFlags...)
	if err != nil {
		return err
	}
	defer env.Close()

	log, err := env.Logger(cmd.ErrOrStderr(), c.logFile)
	if err != nil {
		return err
	}

	svc, err := c.build(env, log)
	if err != nil {
		return err
	}
	defer svc.core.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	svc.probe(ctx)

	// Warm the collection so the first request finds it loading or ready.
	svc.core.Deck.Snapshot()

	errChan := make(chan error, 1)
	go func() {
		if err := svc.server.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		log.Info("received signal, shutting down", "signal", sig.String())
		return svc.server.Shutdown()
	}
}

// build wires the core, the MCP server and the API server.
func (c *ServeCommander) build(env *cmdenv.Env, log *slog.Logger) (*service, error) {
	collector := metrics.NewCollector(metricsNamespace)

	cr, err := env.OpenCore("api", log, func(o *core.Options) {
		o.Metrics = collector
		if c.demo {
			o.Gateway = gateway.NewInMemory(deck.DemoRecords(time.Now())...)
		}
	})
	if err != nil {
		return nil, err
	}

	mcpServer, err := mcp.NewServer(mcp.Config{
		Deck:   cr.Deck,
		Noop:   c.noMCP,
		Logger: log,
	})
	if err != nil {
		_ = cr.Close()
		return nil, fmt.Errorf("creating MCP server: %w", err)
	}

	server, err := api.NewServer(
		api.Config{ListenAddr: env.Viper.GetString("dashboard.listen")},
		cr.Deck,
		log,
		api.WithMetrics(collector),
		api.WithMCP(mcpServer.Handler()),
	)
	if err != nil {
		_ = cr.Close()
		return nil, fmt.Errorf("creating API server: %w", err)
	}

	return &service{server: server, core: cr, logger: log}, nil
}

// probe warns when the memory service does not answer its health check. The
// API still starts; the deck reports the failure and retries on refresh.
func (s *service) probe(ctx context.Context) {
	client, ok := s.core.Gateway.(*gateway.Client)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	if err := client.Health(ctx); err != nil {
		s.logger.Warn("memory service is not healthy",
			"target", client.Target(),
			"error", err,
		)
		return
	}
	s.logger.Info("memory service is healthy", "target", client.Target())
}
