package metrics_test

import (
	"errors"
	"io"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/papercomputeco/memdeck/pkg/memory"
	"github.com/papercomputeco/memdeck/pkg/metrics"
	"github.com/papercomputeco/memdeck/pkg/mutation"
)

var _ = Describe("Collector", func() {
	var c *metrics.Collector

	BeforeEach(func() {
		c = metrics.NewCollector("memdeck")
	})

	It("tracks cache fetches by outcome", func() {
		c.FetchStarted("all_memories")
		Expect(testutil.ToFloat64(c.CacheInflight.WithLabelValues("all_memories"))).To(Equal(1.0))

		c.FetchSettled("all_memories", 20*time.Millisecond, nil)
		c.FetchStarted("all_memories")
		c.FetchSettled("all_memories", 5*time.Millisecond, &memory.TransportError{Op: "list memories"})

		Expect(testutil.ToFloat64(c.CacheInflight.WithLabelValues("all_memories"))).To(BeZero())
		Expect(testutil.ToFloat64(c.CacheFetches.WithLabelValues("all_memories", metrics.OutcomeOK))).To(Equal(1.0))
		Expect(testutil.ToFloat64(c.CacheFetches.WithLabelValues("all_memories", metrics.OutcomeTransport))).To(Equal(1.0))
	})

	It("tracks mutations by op and outcome", func() {
		c.MutationSettled(mutation.OpAdd, nil)
		c.MutationSettled(mutation.OpDelete, memory.ErrDeleteDeclined)
		c.MutationSettled(mutation.OpDelete, &memory.NotFoundError{ID: "m-1"})

		Expect(testutil.ToFloat64(c.Mutations.WithLabelValues("add", metrics.OutcomeOK))).To(Equal(1.0))
		Expect(testutil.ToFloat64(c.Mutations.WithLabelValues("delete", metrics.OutcomeDeclined))).To(Equal(1.0))
		Expect(testutil.ToFloat64(c.Mutations.WithLabelValues("delete", metrics.OutcomeNotFound))).To(Equal(1.0))
	})

	DescribeTable("Outcome",
		func(err error, want string) {
			Expect(metrics.Outcome(err)).To(Equal(want))
		},
		Entry("nil", nil, metrics.OutcomeOK),
		Entry("validation", memory.NewValidationError("text", "must not be empty"), metrics.OutcomeInvalid),
		Entry("declined", memory.ErrDeleteDeclined, metrics.OutcomeDeclined),
		Entry("not found", &memory.NotFoundError{ID: "x"}, metrics.OutcomeNotFound),
		Entry("transport", &memory.TransportError{Op: "x"}, metrics.OutcomeTransport),
		Entry("other", errors.New("x"), metrics.OutcomeError),
	)

	It("serves the registry", func() {
		c.RecordHTTP("GET", "/v1/memories", 200, time.Millisecond)

		rec := httptest.NewRecorder()
		c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

		body, err := io.ReadAll(rec.Body)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(body)).To(ContainSubstring(`memdeck_http_requests_total{method="GET",route="/v1/memories",status="200"} 1`))
	})

	It("keeps collectors independent", func() {
		other := metrics.NewCollector("memdeck")
		c.MutationSettled(mutation.OpAdd, nil)
		Expect(testutil.ToFloat64(other.Mutations.WithLabelValues("add", metrics.OutcomeOK))).To(BeZero())
	})
})
