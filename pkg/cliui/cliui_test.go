package cliui

import (
	"bytes"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Step", func() {
	It("prints a success mark once fn returns", func() {
		var buf bytes.Buffer
		err := Step(&buf, "Loading memories", func() error { return nil })
		Expect(err).NotTo(HaveOccurred())
		Expect(buf.String()).To(ContainSubstring("Loading memories"))
		Expect(buf.String()).To(ContainSubstring("✓"))
	})

	It("passes fn's error through with a failure mark", func() {
		var buf bytes.Buffer
		boom := errors.New("boom")
		Expect(Step(&buf, "Deleting", func() error { return boom })).To(MatchError(boom))
		Expect(buf.String()).To(ContainSubstring("✗"))
	})
})

var _ = Describe("FormatDuration", func() {
	DescribeTable("formats",
		func(d time.Duration, want string) {
			Expect(FormatDuration(d)).To(Equal(want))
		},
		Entry("milliseconds", 12*time.Millisecond, "12ms"),
		Entry("seconds", 3200*time.Millisecond, "3.2s"),
	)
})

var _ = Describe("IsYes", func() {
	DescribeTable("answers",
		func(answer string, want bool) {
			Expect(IsYes(answer)).To(Equal(want))
		},
		Entry("y", "y", true),
		Entry("YES with spaces", "  YES ", true),
		Entry("n", "n", false),
		Entry("empty", "", false),
		Entry("yeah", "yeah", false),
	)
})

var _ = Describe("Prompter", func() {
	It("refuses to prompt without a terminal", func() {
		p := &Prompter{}
		_, err := p.Line("> ")
		Expect(err).To(MatchError(ErrNotInteractive))

		ok, err := p.YesNo("Delete?")
		Expect(err).To(MatchError(ErrNotInteractive))
		Expect(ok).To(BeFalse())
	})
})

var _ = Describe("Tag", func() {
	It("renders the tag name", func() {
		Expect(Tag("work", "#3b82f6")).To(ContainSubstring("work"))
	})
})
