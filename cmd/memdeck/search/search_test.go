package searchcmder_test

import (
	"bytes"
	"io"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	searchcmder "github.com/papercomputeco/memdeck/cmd/memdeck/search"
	"github.com/papercomputeco/memdeck/pkg/memory"
	testutils "github.com/papercomputeco/memdeck/pkg/utils/test"
)

var _ = Describe("search command", func() {
	var (
		svc *testutils.MemoryService
		out *bytes.Buffer
	)

	BeforeEach(func() {
		svc = testutils.NewMemoryService(
			memory.Record{ID: "m1", Memory: "drinks green tea", UserID: "alice"},
			memory.Record{ID: "m2", Memory: "drinks black coffee", UserID: "bob"},
			memory.Record{ID: "m3", Memory: "plays chess", UserID: "alice"},
		)
		DeferCleanup(svc.Close)
		out = &bytes.Buffer{}
	})

	execute := func(args ...string) error {
		cmd := searchcmder.NewSearchCmd()
		cmd.Flags().String("config-dir", GinkgoT().TempDir(), "")
		cmd.Flags().Bool("debug", false, "")
		cmd.SetOut(out)
		cmd.SetErr(io.Discard)
		cmd.SetArgs(append([]string{"--target", svc.URL}, args...))
		return cmd.Execute()
	}

	It("prints ranked results", func() {
		Expect(execute("drinks")).To(Succeed())
		Expect(out.String()).To(ContainSubstring("#1"))
		Expect(out.String()).To(ContainSubstring("#2"))
		Expect(out.String()).To(ContainSubstring("green tea"))
	})

	It("prints only ids with --quiet", func() {
		Expect(execute("drinks", "--quiet", "--user", "bob")).To(Succeed())
		Expect(out.String()).To(Equal("m2\n"))
	})

	It("honours --top", func() {
		Expect(execute("drinks", "-q", "-k", "1")).To(Succeed())
		Expect(out.String()).To(Equal("m1\n"))
	})

	It("reports an empty result", func() {
		Expect(execute("skydiving")).To(Succeed())
		Expect(out.String()).To(ContainSubstring("No matching memories."))
	})

	It("rejects a blank query", func() {
		Expect(execute("  ")).To(MatchError(ContainSubstring("Invalid query")))
	})
})
