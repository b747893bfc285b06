package logger_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/memdeck/pkg/logger"
)

// jsonLines decodes every record written by a FormatJSON logger.
func jsonLines(buf *bytes.Buffer) []map[string]any {
	var records []map[string]any
	scanner := bufio.NewScanner(bytes.NewReader(buf.Bytes()))
	for scanner.Scan() {
		var record map[string]any
		Expect(json.Unmarshal(scanner.Bytes(), &record)).To(Succeed())
		records = append(records, record)
	}
	return records
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

var _ = Describe("New", func() {
	var buf *bytes.Buffer

	BeforeEach(func() {
		buf = &bytes.Buffer{}
	})

	It("writes slog text at Info by default", func() {
		log := logger.New(logger.WithWriter(buf))
		log.Debug("memory service request", "path", "/memory/all")
		log.Info("listed memories", "shape", "envelope", "count", 3)

		Expect(buf.String()).NotTo(ContainSubstring("memory service request"))
		Expect(buf.String()).To(ContainSubstring(`msg="listed memories" shape=envelope count=3`))
	})

	It("writes the JSON records memdeck logs reads back", func() {
		log := logger.New(logger.WithWriter(buf), logger.WithFormat(logger.FormatJSON), logger.WithDebug(true))
		log.Debug("memory service request", "method", "GET", "path", "/memory/all", "status", 200)
		log.With("client", "api").Warn("refresh failed", "error", "connection refused")

		records := jsonLines(buf)
		Expect(records).To(HaveLen(2))
		Expect(records[0]).To(HaveKeyWithValue("level", "DEBUG"))
		Expect(records[0]).To(HaveKeyWithValue("path", "/memory/all"))
		Expect(records[0]).To(HaveKeyWithValue("status", BeNumerically("==", 200)))
		Expect(records[0]).To(HaveKey("time"))
		Expect(records[1]).To(HaveKeyWithValue("msg", "refresh failed"))
		Expect(records[1]).To(HaveKeyWithValue("client", "api"))
	})

	It("renders colorized console lines and honours the debug switch", func() {
		quiet := logger.New(logger.WithWriter(buf), logger.WithFormat(logger.FormatPretty))
		quiet.Debug("cache transition", "key", "memories", "status", "loading")
		Expect(buf.String()).To(BeEmpty())

		verbose := logger.New(logger.WithWriter(buf), logger.WithFormat(logger.FormatPretty), logger.WithDebug(true))
		verbose.Debug("cache transition", "key", "memories", "status", "loading")
		Expect(buf.String()).To(ContainSubstring("cache transition"))
		Expect(buf.String()).To(ContainSubstring("memories"))
	})

	It("keeps the default writer when given nil", func() {
		Expect(func() {
			logger.New(logger.WithWriter(nil)).Handler()
		}).NotTo(Panic())
	})
})

var _ = Describe("Nop", func() {
	It("is disabled at every level", func() {
		log := logger.Nop()
		for _, level := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError} {
			Expect(log.Enabled(context.Background(), level)).To(BeFalse())
		}
		Expect(func() { log.With("client", "mcp").Error("delete failed") }).NotTo(Panic())
	})
})

var _ = Describe("Tee", func() {
	var console, file *bytes.Buffer

	BeforeEach(func() {
		console = &bytes.Buffer{}
		file = &bytes.Buffer{}
	})

	It("sends each record to the console and the log file", func() {
		log := logger.Tee(
			logger.New(logger.WithWriter(console)),
			logger.New(logger.WithWriter(file), logger.WithFormat(logger.FormatJSON)),
		)
		log.Info("added memory", "id", "mem-1", "user_id", "alice")

		Expect(console.String()).To(ContainSubstring("added memory"))
		Expect(jsonLines(file)).To(ConsistOf(And(
			HaveKeyWithValue("msg", "added memory"),
			HaveKeyWithValue("id", "mem-1"),
		)))
	})

	It("lets each side filter by its own level", func() {
		log := logger.Tee(
			logger.New(logger.WithWriter(console)),
			logger.New(logger.WithWriter(file), logger.WithFormat(logger.FormatJSON), logger.WithDebug(true)),
		)
		log.Debug("memory service request", "path", "/memory/add")

		Expect(console.String()).To(BeEmpty())
		Expect(jsonLines(file)).To(HaveLen(1))
	})

	It("carries attributes and groups to every side", func() {
		log := logger.Tee(
			logger.New(logger.WithWriter(console), logger.WithFormat(logger.FormatJSON)),
			logger.New(logger.WithWriter(file), logger.WithFormat(logger.FormatJSON)),
		)
		log.With("client", "tui").WithGroup("mutation").Info("delete declined", "id", "mem-2")

		for _, buf := range []*bytes.Buffer{console, file} {
			records := jsonLines(buf)
			Expect(records).To(HaveLen(1))
			Expect(records[0]).To(HaveKeyWithValue("client", "tui"))
			Expect(records[0]).To(HaveKeyWithValue("mutation", HaveKeyWithValue("id", "mem-2")))
		}
	})

	It("keeps writing to the console when the log file fails", func() {
		log := logger.Tee(
			logger.New(logger.WithWriter(failingWriter{}), logger.WithFormat(logger.FormatJSON)),
			logger.New(logger.WithWriter(console)),
		)

		err := log.Handler().Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelInfo, "refresh settled", 0))
		Expect(err).To(MatchError(ContainSubstring("disk full")))
		Expect(console.String()).To(ContainSubstring("refresh settled"))
	})

	It("skips nil loggers", func() {
		log := logger.Tee(nil, logger.New(logger.WithWriter(console)), nil)
		log.Info("serving", "addr", ":8081")
		Expect(console.String()).To(ContainSubstring("serving"))

		Expect(logger.Tee().Enabled(context.Background(), slog.LevelError)).To(BeFalse())
	})
})
