package memory_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/memdeck/pkg/memory"
)

var _ = Describe("DecodeCollection", func() {
	It("decodes a bare array", func() {
		c, err := memory.DecodeCollection([]byte(`[{"id":"1","memory":"buy milk","user_id":"alice"}]`))
		Expect(err).NotTo(HaveOccurred())
		Expect(c.Shape()).To(Equal(memory.ShapeArray))
		Expect(c.Records()).To(HaveLen(1))
		Expect(c.Records()[0].ID).To(Equal("1"))
		Expect(c.Records()[0].UserID).To(Equal("alice"))
	})

	It("decodes a results envelope", func() {
		c, err := memory.DecodeCollection([]byte(`{"results":[{"id":"1"},{"id":"2"}]}`))
		Expect(err).NotTo(HaveOccurred())
		Expect(c.Shape()).To(Equal(memory.ShapeEnvelope))
		Expect(c.Records()).To(HaveLen(2))
	})

	It("unwraps the service status/data wrapper", func() {
		payload := `{"status":"success","data":{"results":[{"id":"a","memory":"x","user_id":"u"}]}}`
		c, err := memory.DecodeCollection([]byte(payload))
		Expect(err).NotTo(HaveOccurred())
		Expect(c.Shape()).To(Equal(memory.ShapeEnvelope))
		Expect(c.Records()[0].ID).To(Equal("a"))
	})

	It("unwraps a data wrapper around a bare array", func() {
		c, err := memory.DecodeCollection([]byte(`{"status":"success","data":[{"id":"a"}]}`))
		Expect(err).NotTo(HaveOccurred())
		Expect(c.Shape()).To(Equal(memory.ShapeArray))
		Expect(c.Records()).To(HaveLen(1))
	})

	It("treats null results as an empty collection", func() {
		c, err := memory.DecodeCollection([]byte(`{"results":null}`))
		Expect(err).NotTo(HaveOccurred())
		Expect(c.Records()).NotTo(BeNil())
		Expect(c.Records()).To(BeEmpty())
	})

	It("treats a null payload as an empty array", func() {
		c, err := memory.DecodeCollection([]byte("  null "))
		Expect(err).NotTo(HaveOccurred())
		Expect(c.Shape()).To(Equal(memory.ShapeArray))
		Expect(c.Records()).To(BeEmpty())
	})

	It("rejects objects without results", func() {
		_, err := memory.DecodeCollection([]byte(`{"detail":"boom"}`))
		Expect(err).To(MatchError(memory.ErrUnknownShape))
	})

	It("rejects scalars and empty payloads", func() {
		_, err := memory.DecodeCollection([]byte(`"nope"`))
		Expect(err).To(MatchError(memory.ErrUnknownShape))

		_, err = memory.DecodeCollection(nil)
		Expect(err).To(MatchError(memory.ErrUnknownShape))
	})

	It("surfaces malformed JSON", func() {
		_, err := memory.DecodeCollection([]byte(`[{"id":`))
		Expect(err).To(HaveOccurred())
	})

	It("returns an empty slice for the zero collection", func() {
		var c memory.Collection
		Expect(c.Shape()).To(Equal(memory.ShapeUnknown))
		Expect(c.Records()).To(BeEmpty())
	})
})
