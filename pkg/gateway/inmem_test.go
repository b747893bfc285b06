package gateway_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/memdeck/pkg/gateway"
	"github.com/papercomputeco/memdeck/pkg/memory"
)

var _ = Describe("InMemory", func() {
	var (
		ctx context.Context
		gw  *gateway.InMemory
	)

	BeforeEach(func() {
		ctx = context.Background()
		gw = gateway.NewInMemory(memory.Record{ID: "m-1", Memory: "likes tea", UserID: "alice"})
	})

	It("lists in the envelope shape by default", func() {
		collection, err := gw.ListAll(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(collection.Shape()).To(Equal(memory.ShapeEnvelope))
		Expect(collection.Records()).To(HaveLen(1))
	})

	It("can answer in the array shape", func() {
		collection, err := gw.WithShape(memory.ShapeArray).ListAll(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(collection.Shape()).To(Equal(memory.ShapeArray))
	})

	It("adds records with an id and timestamp", func() {
		record, err := gw.Add(ctx, "likes coffee", "bob")
		Expect(err).NotTo(HaveOccurred())
		Expect(record.ID).NotTo(BeEmpty())
		_, ok := record.CreatedTime()
		Expect(ok).To(BeTrue())
		Expect(gw.Records()).To(HaveLen(2))
	})

	It("validates before counting a call", func() {
		_, err := gw.Add(ctx, "", "bob")
		Expect(memory.IsValidation(err)).To(BeTrue())
		Expect(gw.Calls(gateway.OpAdd)).To(BeZero())
	})

	It("deletes and reports missing records", func() {
		Expect(gw.Delete(ctx, "m-1")).To(Succeed())
		Expect(gw.Records()).To(BeEmpty())
		Expect(memory.IsNotFound(gw.Delete(ctx, "m-1"))).To(BeTrue())
		Expect(gw.Calls(gateway.OpDelete)).To(Equal(2))
	})

	It("injects and clears failures", func() {
		boom := errors.New("boom")
		gw.Fail(gateway.OpListAll, boom)
		_, err := gw.ListAll(ctx)
		Expect(err).To(MatchError(boom))

		gw.Fail(gateway.OpListAll, nil)
		_, err = gw.ListAll(ctx)
		Expect(err).NotTo(HaveOccurred())
	})

	It("does not share its backing slice", func() {
		records := gw.Records()
		records[0].Memory = "changed"
		Expect(gw.Records()[0].Memory).To(Equal("likes tea"))
	})
})
