// Package cmdenv resolves what every memdeck command needs before it runs:
// layered configuration, a logger, and the opened client core.
package cmdenv

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/memdeck/pkg/config"
	"github.com/papercomputeco/memdeck/pkg/core"
	"github.com/papercomputeco/memdeck/pkg/logger"
)

// Env is the resolved environment of one command invocation.
type Env struct {
	Viper     *viper.Viper
	ConfigDir string
	Debug     bool

	logFile *os.File
}

// Load reads config for cmd and binds the registry flags named by flagKeys,
// so that flag > env > config file > default.
func Load(cmd *cobra.Command, flagKeys ...string) (*Env, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")
	debug, _ := cmd.Flags().GetBool("debug")

	v, err := config.InitViper(configDir)
	if err != nil {
		return nil, err
	}
	config.BindRegisteredFlags(v, cmd, config.Flags, flagKeys)

	return &Env{
		Viper:     v,
		ConfigDir: configDir,
		Debug:     debug,
	}, nil
}

// Logger returns a colorized logger on w. When logPath is set, records are
// also appended to that file as JSON.
func (e *Env) Logger(w io.Writer, logPath string) (*slog.Logger, error) {
	console := logger.New(
		logger.WithDebug(e.Debug),
		logger.WithFormat(logger.FormatPretty),
		logger.WithWriter(w),
	)
	if logPath == "" {
		return console, nil
	}

	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	e.logFile = f

	file := logger.New(
		logger.WithDebug(e.Debug),
		logger.WithFormat(logger.FormatJSON),
		logger.WithWriter(f),
	)
	return logger.Tee(console, file), nil
}

// Options reads core options from config and fills in the caller's surface.
func (e *Env) Options(client string, log *slog.Logger) (core.Options, error) {
	opts, err := core.OptionsFromViper(e.Viper)
	if err != nil {
		return core.Options{}, err
	}
	opts.Client = client
	opts.Logger = log
	return opts, nil
}

// OpenCore opens the client core for client. configure may adjust the options
// read from config before the core is wired.
func (e *Env) OpenCore(client string, log *slog.Logger, configure func(*core.Options)) (*core.Core, error) {
	opts, err := e.Options(client, log)
	if err != nil {
		return nil, err
	}
	if configure != nil {
		configure(&opts)
	}
	return core.Open(opts)
}

// Close releases the log file, if one was opened.
func (e *Env) Close() error {
	if e.logFile == nil {
		return nil
	}
	return e.logFile.Close()
}
