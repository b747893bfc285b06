package listcmder_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	listcmder "github.com/papercomputeco/memdeck/cmd/memdeck/list"
	"github.com/papercomputeco/memdeck/pkg/deck"
	"github.com/papercomputeco/memdeck/pkg/memory"
	testutils "github.com/papercomputeco/memdeck/pkg/utils/test"
)

var _ = Describe("list command", func() {
	var (
		svc *testutils.MemoryService
		out *bytes.Buffer
	)

	BeforeEach(func() {
		svc = testutils.NewMemoryService(
			memory.Record{ID: "m1", Memory: "drinks green tea", UserID: "alice", CreatedAt: "2024-03-01T10:00:00Z", Metadata: map[string]any{"tags": []any{"food"}}},
			memory.Record{ID: "m2", Memory: "runs marathons", UserID: "bob", CreatedAt: "2024-03-02T10:00:00Z", Metadata: map[string]any{"tags": []any{"sports", "health"}}},
			memory.Record{ID: "m3", Memory: "plays chess", UserID: "alice", CreatedAt: "2024-03-03T10:00:00Z"},
		)
		DeferCleanup(svc.Close)
		out = &bytes.Buffer{}
	})

	execute := func(args ...string) error {
		cmd := listcmder.NewListCmd()
		cmd.Flags().String("config-dir", GinkgoT().TempDir(), "")
		cmd.Flags().Bool("debug", false, "")
		cmd.SetOut(out)
		cmd.SetErr(io.Discard)
		cmd.SetArgs(append([]string{"--target", svc.URL}, args...))
		return cmd.Execute()
	}

	overview := func() deck.Overview {
		var o deck.Overview
		Expect(json.Unmarshal(out.Bytes(), &o)).To(Succeed())
		return o
	}

	ids := func(records []memory.Record) []string {
		out := make([]string, 0, len(records))
		for _, r := range records {
			out = append(out, r.ID)
		}
		return out
	}

	It("lists newest first by default", func() {
		Expect(execute("--json")).To(Succeed())
		o := overview()
		Expect(ids(o.Records)).To(Equal([]string{"m3", "m2", "m1"}))
		Expect(o.Total).To(Equal(3))
		Expect(o.Users).To(Equal([]string{"alice", "bob"}))
		Expect(o.Tags).To(Equal([]string{"food", "health", "sports"}))
	})

	It("applies filters and sort flags", func() {
		Expect(execute("--json", "--user", "alice", "--sort", "memory", "--order", "asc")).To(Succeed())
		o := overview()
		Expect(ids(o.Records)).To(Equal([]string{"m1", "m3"}))
		Expect(o.Showing).To(Equal(2))
		Expect(o.Total).To(Equal(3))
	})

	It("filters by tag and search text", func() {
		Expect(execute("--json", "--tag", "health", "--search", "MARATHON")).To(Succeed())
		Expect(ids(overview().Records)).To(Equal([]string{"m2"}))
	})

	It("rejects an unknown sort field", func() {
		Expect(execute("--sort", "size")).To(MatchError(ContainSubstring("invalid sort field")))
	})

	It("prints records as text", func() {
		Expect(execute()).To(Succeed())
		Expect(out.String()).To(ContainSubstring("showing 3 of 3"))
		Expect(out.String()).To(ContainSubstring("runs marathons"))
		Expect(out.String()).To(ContainSubstring("sports"))
	})

	It("explains an empty filtered view", func() {
		Expect(execute("--search", "skydiving")).To(Succeed())
		Expect(out.String()).To(ContainSubstring("No memories match the current filters."))
	})

	It("renders a markdown table", func() {
		Expect(execute("--markdown")).To(Succeed())
		Expect(out.String()).To(ContainSubstring("drinks green tea"))
	})

	It("rejects --markdown with --json", func() {
		Expect(execute("--markdown", "--json")).NotTo(Succeed())
	})

	It("reports a service failure", func() {
		svc.Fail("/memory/all", http.StatusBadGateway)
		err := execute()
		Expect(err).To(MatchError(ContainSubstring("Could not reach the memory service.")))
		Expect(memory.IsTransport(err)).To(BeTrue())
	})
})
