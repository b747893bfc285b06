package utils

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("truncate", func() {
	It("returns the string unchanged when within the limit", func() {
		Expect(Truncate("short", 10)).To(Equal("short"))
	})

	It("returns the string unchanged when exactly at the limit", func() {
		Expect(Truncate("12345", 5)).To(Equal("12345"))
	})

	It("truncates with ellipsis when over the limit", func() {
		result := Truncate("this is a long string", 10)
		Expect(result).To(Equal("this is a ..."))
	})
})

var _ = Describe("truncate with wide text", func() {
	It("measures display width rather than bytes", func() {
		Expect(Truncate("日本語", 6)).To(Equal("日本語"))
		Expect(Truncate("日本語テキスト", 6)).To(Equal("日本語..."))
	})
})

var _ = Describe("SingleLine", func() {
	It("replaces line breaks and tabs with spaces", func() {
		Expect(SingleLine("a\nb\tc\r")).To(Equal("a b c "))
	})
})
