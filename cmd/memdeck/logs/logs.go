// Package logscmder provides the logs command, which prints the JSON log file
// written by "deck --log-file" or "serve --log-file".
package logscmder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/memdeck/pkg/cliui"
)

const logsLongDesc string = `Print a memdeck log file.

The deck owns the terminal, so it only logs to the file given with --log-file.
This command renders that file's JSON lines as readable text, and with
--follow keeps printing new lines as they are written.

Examples:
  memdeck deck --log-file /tmp/memdeck.log
  memdeck logs /tmp/memdeck.log --follow
  memdeck logs /tmp/memdeck.log --raw`

const logsShortDesc string = "Print or follow a memdeck log file"

type logsCommander struct {
	follow bool
	raw    bool
}

func NewLogsCmd() *cobra.Command {
	cmder := &logsCommander{}

	cmd := &cobra.Command{
		Use:   "logs <path>",
		Short: logsShortDesc,
		Long:  logsLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return cmder.run(ctx, args[0], cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVarP(&cmder.follow, "follow", "f", false, "Keep printing lines as they are appended")
	cmd.Flags().BoolVar(&cmder.raw, "raw", false, "Print the JSON lines unchanged")

	return cmd
}

func (c *logsCommander) run(ctx context.Context, path string, out io.Writer) error {
	w := &lineWriter{out: out, raw: c.raw}

	if !c.follow {
		file, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		defer file.Close()

		if _, err := io.Copy(w, file); err != nil {
			return fmt.Errorf("reading log file: %w", err)
		}
		return w.Flush()
	}

	err := followLog(ctx, path, w)
	if errors.Is(err, context.Canceled) {
		return w.Flush()
	}
	return err
}

// followLog copies path to out and then keeps copying whatever is appended
// until ctx is done.
func followLog(ctx context.Context, path string, out io.Writer) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer file.Close()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating log watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watching log dir: %w", err)
	}

	buf := make([]byte, 4096)
	readAvailable := func() error {
		for {
			n, err := file.Read(buf)
			if n > 0 {
				if _, writeErr := out.Write(buf[:n]); writeErr != nil {
					return writeErr
				}
			}
			if err != nil {
				if errors.Is(err, io.EOF) {
					return nil
				}
				return err
			}
		}
	}

	if err := readAvailable(); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-watcher.Events:
			if filepath.Clean(event.Name) != filepath.Clean(path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := readAvailable(); err != nil {
				return err
			}
		case err := <-watcher.Errors:
			return fmt.Errorf("log watcher error: %w", err)
		}
	}
}

// lineWriter buffers partial writes and renders one log line at a time.
type lineWriter struct {
	out     io.Writer
	raw     bool
	pending []byte
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.pending = append(w.pending, p...)
	for {
		i := bytes.IndexByte(w.pending, '\n')
		if i < 0 {
			break
		}
		line := string(w.pending[:i])
		w.pending = w.pending[i+1:]
		if err := w.writeLine(line); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

// Flush writes a trailing line that had no newline.
func (w *lineWriter) Flush() error {
	if len(w.pending) == 0 {
		return nil
	}
	line := string(w.pending)
	w.pending = nil
	return w.writeLine(line)
}

func (w *lineWriter) writeLine(line string) error {
	if strings.TrimSpace(line) == "" {
		return nil
	}
	if !w.raw {
		line = renderLine(line)
	}
	_, err := fmt.Fprintln(w.out, line)
	return err
}

// renderLine turns a slog JSON record into "time LEVEL msg key=value ...".
// Lines that are not JSON objects are returned unchanged.
func renderLine(line string) string {
	var record map[string]any
	if err := json.Unmarshal([]byte(line), &record); err != nil {
		return line
	}

	stamp, _ := record["time"].(string)
	level, _ := record["level"].(string)
	msg, _ := record["msg"].(string)
	delete(record, "time")
	delete(record, "level")
	delete(record, "msg")

	if t, err := time.Parse(time.RFC3339Nano, stamp); err == nil {
		stamp = t.Local().Format("15:04:05")
	}

	parts := []string{}
	if stamp != "" {
		parts = append(parts, cliui.DimStyle.Render(stamp))
	}
	if level != "" {
		parts = append(parts, levelStyle(level))
	}
	if msg != "" {
		parts = append(parts, msg)
	}
	for _, k := range slices.Sorted(maps.Keys(record)) {
		parts = append(parts, cliui.KeyStyle.Render(k)+"="+fmt.Sprint(record[k]))
	}
	return strings.Join(parts, " ")
}

func levelStyle(level string) string {
	label := fmt.Sprintf("%-5s", strings.ToUpper(level))
	switch strings.ToUpper(level) {
	case "ERROR":
		return cliui.ErrorStyle.Render(label)
	case "WARN":
		return cliui.WarnStyle.Render(label)
	case "DEBUG":
		return cliui.DimStyle.Render(label)
	default:
		return cliui.StepStyle.Render(label)
	}
}
