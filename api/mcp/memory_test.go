package mcp

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/memdeck/pkg/cache"
	"github.com/papercomputeco/memdeck/pkg/deck"
	"github.com/papercomputeco/memdeck/pkg/gateway"
	"github.com/papercomputeco/memdeck/pkg/logger"
	"github.com/papercomputeco/memdeck/pkg/memory"
	"github.com/papercomputeco/memdeck/pkg/mutation"
)

func resultText(result *mcp.CallToolResult) string {
	Expect(result.Content).To(HaveLen(1))
	text, ok := result.Content[0].(*mcp.TextContent)
	Expect(ok).To(BeTrue())
	return text.Text
}

var _ = Describe("Memory tools", func() {
	var (
		ctx    context.Context
		gw     *gateway.InMemory
		server *Server
	)

	BeforeEach(func() {
		ctx = context.Background()
		gw = gateway.NewInMemory(
			memory.Record{ID: "1", Memory: "buy milk", UserID: "alice", CreatedAt: "2024-01-01T00:00:00Z"},
			memory.Record{ID: "2", Memory: "read book", UserID: "bob", Metadata: map[string]any{"tags": []string{"personal"}}, CreatedAt: "2024-01-02T00:00:00Z"},
		)
		store := cache.New[[]memory.Record](cache.Options{})
		DeferCleanup(store.Close)

		coordinator, err := mutation.New(mutation.Config{Gateway: gw, Cache: store, Key: deck.CollectionKey})
		Expect(err).NotTo(HaveOccurred())
		d, err := deck.New(store, gw, coordinator)
		Expect(err).NotTo(HaveOccurred())

		server, err = NewServer(Config{Deck: d, Logger: logger.Nop()})
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("list_memories", func() {
		It("returns the whole collection newest first", func() {
			result, output, err := server.handleListMemories(ctx, nil, ListMemoriesInput{})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.IsError).To(BeFalse())
			Expect(output.Total).To(Equal(2))
			Expect(output.Memories[0].ID).To(Equal("2"))

			var decoded ListMemoriesOutput
			Expect(json.Unmarshal([]byte(resultText(result)), &decoded)).To(Succeed())
			Expect(decoded.Showing).To(Equal(2))
		})

		It("applies filters and the limit", func() {
			_, output, err := server.handleListMemories(ctx, nil, ListMemoriesInput{User: "alice", Order: "asc", Limit: 1})
			Expect(err).NotTo(HaveOccurred())
			Expect(output.Memories).To(HaveLen(1))
			Expect(output.Memories[0].ID).To(Equal("1"))
			Expect(output.Showing).To(Equal(1))
		})

		It("reports an invalid sort field as a tool error", func() {
			result, _, err := server.handleListMemories(ctx, nil, ListMemoriesInput{Sort: "updated_at"})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.IsError).To(BeTrue())
			Expect(resultText(result)).To(ContainSubstring("invalid sort field"))
		})
	})

	Describe("add_memory", func() {
		It("stores the memory", func() {
			result, output, err := server.handleAddMemory(ctx, nil, AddMemoryInput{Memory: "call mom", UserID: "carol"})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.IsError).To(BeFalse())
			Expect(output.Memory.UserID).To(Equal("carol"))
			Expect(gw.Records()).To(HaveLen(3))
		})

		It("rejects blank text", func() {
			result, _, err := server.handleAddMemory(ctx, nil, AddMemoryInput{Memory: " ", UserID: "carol"})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.IsError).To(BeTrue())
			Expect(resultText(result)).To(Equal("Memory text is required."))
			Expect(gw.Calls(gateway.OpAdd)).To(BeZero())
		})
	})

	Describe("delete_memory", func() {
		It("refuses without confirm", func() {
			result, _, err := server.handleDeleteMemory(ctx, nil, DeleteMemoryInput{ID: "1"})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.IsError).To(BeTrue())
			Expect(resultText(result)).To(ContainSubstring("set confirm to true"))
			Expect(gw.Calls(gateway.OpDelete)).To(BeZero())
		})

		It("deletes when confirmed", func() {
			result, output, err := server.handleDeleteMemory(ctx, nil, DeleteMemoryInput{ID: "1", Confirm: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.IsError).To(BeFalse())
			Expect(output.Deleted).To(BeTrue())
			Expect(gw.Records()).To(HaveLen(1))
		})

		It("reports a missing record", func() {
			result, _, err := server.handleDeleteMemory(ctx, nil, DeleteMemoryInput{ID: "nope", Confirm: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.IsError).To(BeTrue())
			Expect(resultText(result)).To(ContainSubstring("not found"))
		})
	})
})
