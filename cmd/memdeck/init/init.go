// Package initcmder provides the init command for initializing a local
// .memdeck directory in the current working directory.
package initcmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/memdeck/pkg/config"
)

const (
	dirName    = ".memdeck"
	configFile = "config.toml"

	remoteTimeout = 10 * time.Second
)

const initLongDesc string = `Initialize a new .memdeck/ directory in the current working directory.

Creates a local .memdeck/ directory, which takes precedence over ~/.memdeck/,
and writes a config.toml into it. The deck view state is saved alongside.

Use --preset to start from a deployment preset or from a config.toml served
over HTTP:
  local     Memory service on localhost (default)
  compose   Memory service and Qdrant reached by docker compose service names
  kafka     Local service, committed writes published to Kafka on localhost

Examples:
  memdeck init
  memdeck init --preset compose
  memdeck init --preset https://example.com/memdeck/config.toml`

const initShortDesc string = "Initialize a local .memdeck/ directory"

type initCommander struct {
	preset string
}

func NewInitCmd() *cobra.Command {
	cmder := &initCommander{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&cmder.preset, "preset", "", "Preset name ("+strings.Join(config.ValidPresetNames(), ", ")+") or config URL")

	return cmd
}

func (c *initCommander) run(ctx context.Context, w io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	dir := filepath.Join(cwd, dirName)
	path := filepath.Join(dir, configFile)

	// Resolve the preset before touching disk so a bad preset leaves nothing behind.
	var cfg *config.Config
	if c.preset != "" {
		cfg, err = resolvePreset(ctx, c.preset)
		if err != nil {
			return err
		}
	}

	if info, err := os.Stat(dir); err == nil && info.IsDir() && cfg == nil {
		fmt.Fprintf(w, "Already initialized: %s\n", dir)
		if _, err := os.Stat(path); err == nil {
			return nil
		}
		return writeConfig(dir, config.NewDefaultConfig())
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating .memdeck directory: %w", err)
	}

	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}
	if err := writeConfig(dir, cfg); err != nil {
		return err
	}

	fmt.Fprintf(w, "Initialized .memdeck directory: %s\n", dir)
	return nil
}

func writeConfig(dir string, cfg *config.Config) error {
	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	return cfger.SaveConfig(cfg)
}

// resolvePreset returns a named preset, or fetches and parses a config.toml
// when preset is an http(s) URL.
func resolvePreset(ctx context.Context, preset string) (*config.Config, error) {
	if !strings.HasPrefix(preset, "http://") && !strings.HasPrefix(preset, "https://") {
		return config.PresetConfig(preset)
	}

	ctx, cancel := context.WithTimeout(ctx, remoteTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, preset, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching remote config: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, errors.New("fetching remote config: empty body")
	}

	cfg, err := config.ParseConfigTOML(data)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}
