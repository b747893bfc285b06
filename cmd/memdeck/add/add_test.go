package addcmder_test

import (
	"bytes"
	"io"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	addcmder "github.com/papercomputeco/memdeck/cmd/memdeck/add"
	testutils "github.com/papercomputeco/memdeck/pkg/utils/test"
)

var _ = Describe("add command", func() {
	var (
		svc *testutils.MemoryService
		out *bytes.Buffer
	)

	BeforeEach(func() {
		svc = testutils.NewMemoryService()
		DeferCleanup(svc.Close)
		out = &bytes.Buffer{}
	})

	execute := func(args ...string) error {
		cmd := addcmder.NewAddCmd()
		cmd.Flags().String("config-dir", GinkgoT().TempDir(), "")
		cmd.Flags().Bool("debug", false, "")
		cmd.SetOut(out)
		cmd.SetErr(io.Discard)
		cmd.SetArgs(append([]string{"--target", svc.URL}, args...))
		return cmd.Execute()
	}

	It("stores the joined arguments under the configured default user", func() {
		Expect(execute("likes", "green", "tea")).To(Succeed())

		records := svc.Records()
		Expect(records).To(HaveLen(1))
		Expect(records[0].Memory).To(Equal("likes green tea"))
		Expect(records[0].UserID).To(Equal("user_default"))
		Expect(out.String()).To(ContainSubstring("Added memory"))
	})

	It("stores under --user", func() {
		Expect(execute("--user", "alice", "owns a cat")).To(Succeed())
		Expect(svc.Records()).To(ConsistOf(HaveField("UserID", "alice")))
	})

	It("rejects blank text before calling the service", func() {
		Expect(execute("   ")).To(MatchError("Memory text is required."))
		Expect(svc.Requests("/memory/add")).To(Equal(0))
	})

	It("requires text", func() {
		Expect(execute()).NotTo(Succeed())
	})

	It("fails with a kafka event stream and no brokers", func() {
		Expect(execute("--eventstream", "kafka", "hello")).To(MatchError(ContainSubstring("broker")))
		Expect(svc.Records()).To(BeEmpty())
	})
})
