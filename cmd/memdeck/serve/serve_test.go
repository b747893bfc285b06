package servecmder

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/memdeck/cmd/memdeck/cmdenv"
	"github.com/papercomputeco/memdeck/pkg/deck"
	"github.com/papercomputeco/memdeck/pkg/logger"
	"github.com/papercomputeco/memdeck/pkg/memory"
	testutils "github.com/papercomputeco/memdeck/pkg/utils/test"
)

var _ = Describe("NewServeCmd", func() {
	It("registers the registry flags", func() {
		cmd := NewServeCmd()
		for _, name := range []string{"listen", "target", "timeout", "refresh-interval", "eventstream", "kafka-brokers", "kafka-topic", "log-file", "no-mcp", "demo"} {
			Expect(cmd.Flags().Lookup(name)).NotTo(BeNil(), name)
		}
		Expect(cmd.Flags().Lookup("listen").DefValue).To(Equal(":8090"))
	})
})

var _ = Describe("serve wiring", func() {
	var (
		memSvc *testutils.MemoryService
		logs   *bytes.Buffer
	)

	BeforeEach(func() {
		memSvc = testutils.NewMemoryService(
			memory.Record{ID: "m1", Memory: "drinks green tea", UserID: "alice", CreatedAt: "2024-03-01T10:00:00Z"},
		)
		DeferCleanup(memSvc.Close)
		logs = &bytes.Buffer{}
	})

	build := func(cmder *ServeCommander, args ...string) *service {
		cmd := NewServeCmd()
		cmd.Flags().String("config-dir", GinkgoT().TempDir(), "")
		cmd.Flags().Bool("debug", false, "")
		Expect(cmd.ParseFlags(append([]string{"--target", memSvc.URL}, args...))).To(Succeed())

		env, err := cmdenv.Load(cmd, serveFlags...)
		Expect(err).NotTo(HaveOccurred())

		log := logger.New(logger.WithWriter(logs))
		svc, err := cmder.build(env, log)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(svc.core.Close)
		return svc
	}

	get := func(svc *service, path string) *http.Response {
		resp, err := svc.server.App().Test(httptest.NewRequest(http.MethodGet, path, nil), -1)
		Expect(err).NotTo(HaveOccurred())
		return resp
	}

	It("serves the collection from the memory service", func() {
		svc := build(&ServeCommander{})
		_, err := svc.core.Deck.Wait(context.Background())
		Expect(err).NotTo(HaveOccurred())

		resp := get(svc, "/v1/memories")
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		var overview deck.Overview
		Expect(json.NewDecoder(resp.Body).Decode(&overview)).To(Succeed())
		Expect(overview.Records).To(HaveLen(1))
		Expect(overview.Records[0].Memory).To(Equal("drinks green tea"))
	})

	It("exposes metrics for cache fetches", func() {
		svc := build(&ServeCommander{})
		_, err := svc.core.Deck.Wait(context.Background())
		Expect(err).NotTo(HaveOccurred())

		resp := get(svc, "/metrics")
		body, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(body)).To(ContainSubstring("memdeck_cache_fetches_total"))
	})

	It("serves demo records without the memory service", func() {
		svc := build(&ServeCommander{demo: true})
		snapshot, err := svc.core.Deck.Wait(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(snapshot.Records).To(HaveLen(10))
		Expect(memSvc.Requests("/memory/all")).To(Equal(0))
	})

	It("logs a healthy probe", func() {
		svc := build(&ServeCommander{})
		svc.probe(context.Background())
		Expect(logs.String()).To(ContainSubstring("memory service is healthy"))
	})

	It("warns when the probe fails", func() {
		memSvc.Fail("/health", http.StatusServiceUnavailable)
		svc := build(&ServeCommander{})
		svc.probe(context.Background())
		Expect(logs.String()).To(ContainSubstring("memory service is not healthy"))
		Expect(strings.Count(logs.String(), "WARN")).To(BeNumerically(">=", 1))
	})
})
