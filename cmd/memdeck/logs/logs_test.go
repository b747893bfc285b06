package logscmder_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/gbytes"

	logscmder "github.com/papercomputeco/memdeck/cmd/memdeck/logs"
)

const sampleLog = `{"time":"2024-05-01T10:00:00Z","level":"INFO","msg":"memory service is healthy","target":"http://localhost:8000"}
{"time":"2024-05-01T10:00:01Z","level":"WARN","msg":"publishing memory event failed","id":"mem-1"}
not json at all
`

var _ = Describe("NewLogsCmd", func() {
	var path string

	BeforeEach(func() {
		path = filepath.Join(GinkgoT().TempDir(), "memdeck.log")
		Expect(os.WriteFile(path, []byte(sampleLog), 0o644)).To(Succeed())
	})

	It("renders JSON lines as text", func() {
		cmd := logscmder.NewLogsCmd()
		out := &bytes.Buffer{}
		cmd.SetOut(out)
		cmd.SetArgs([]string{path})

		Expect(cmd.Execute()).To(Succeed())
		Expect(out.String()).To(ContainSubstring("memory service is healthy"))
		Expect(out.String()).To(ContainSubstring("WARN"))
		Expect(out.String()).To(ContainSubstring("mem-1"))
		Expect(out.String()).To(ContainSubstring("not json at all"))
		Expect(out.String()).NotTo(ContainSubstring(`"msg"`))
	})

	It("prints raw lines with --raw", func() {
		cmd := logscmder.NewLogsCmd()
		out := &bytes.Buffer{}
		cmd.SetOut(out)
		cmd.SetArgs([]string{path, "--raw"})

		Expect(cmd.Execute()).To(Succeed())
		Expect(out.String()).To(Equal(sampleLog))
	})

	It("fails for a missing file", func() {
		cmd := logscmder.NewLogsCmd()
		cmd.SetOut(GinkgoWriter)
		cmd.SetErr(GinkgoWriter)
		cmd.SetArgs([]string{filepath.Join(GinkgoT().TempDir(), "missing.log")})

		Expect(cmd.Execute()).To(MatchError(ContainSubstring("opening log file")))
	})

	It("follows appended lines until cancelled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		cmd := logscmder.NewLogsCmd()
		out := gbytes.NewBuffer()
		cmd.SetOut(out)
		cmd.SetArgs([]string{path, "--follow", "--raw"})

		done := make(chan error, 1)
		go func() {
			done <- cmd.ExecuteContext(ctx)
		}()

		Eventually(out).Should(gbytes.Say("not json at all"))

		f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
		Expect(err).NotTo(HaveOccurred())
		_, err = f.WriteString(`{"level":"INFO","msg":"appended later"}` + "\n")
		Expect(err).NotTo(HaveOccurred())
		Expect(f.Close()).To(Succeed())

		Eventually(out).Should(gbytes.Say("appended later"))

		cancel()
		Eventually(done).Should(Receive(BeNil()))
	})
})
