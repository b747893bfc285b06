package deckcmder

import (
	"context"
	"errors"
	"strings"

	bubbletea "github.com/charmbracelet/bubbletea"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/memdeck/pkg/core"
	"github.com/papercomputeco/memdeck/pkg/deck"
	"github.com/papercomputeco/memdeck/pkg/gateway"
	"github.com/papercomputeco/memdeck/pkg/memory"
	"github.com/papercomputeco/memdeck/pkg/mutation"
)

func update(m deckModel, msg bubbletea.Msg) (deckModel, bubbletea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(deckModel), cmd
}

func press(m deckModel, keys string) deckModel {
	next, _ := update(m, bubbletea.KeyMsg{Type: bubbletea.KeyRunes, Runes: []rune(keys)})
	return next
}

func pressType(m deckModel, t bubbletea.KeyType) (deckModel, bubbletea.Cmd) {
	return update(m, bubbletea.KeyMsg{Type: t})
}

var _ = Describe("deck TUI", func() {
	var (
		ctx context.Context
		gw  *gateway.InMemory
		cr  *core.Core
		m   deckModel
	)

	BeforeEach(func() {
		ctx = context.Background()
		gw = gateway.NewInMemory(
			memory.Record{ID: "1", Memory: "buy milk", UserID: "alice", CreatedAt: "2024-01-01T00:00:00Z"},
			memory.Record{ID: "2", Memory: "read book", UserID: "bob", Metadata: map[string]any{"tags": []string{"personal"}}, CreatedAt: "2024-01-02T00:00:00Z"},
			memory.Record{ID: "3", Memory: "water the plants", UserID: "alice", Metadata: map[string]any{"tags": []string{"home"}}, CreatedAt: "2024-01-03T00:00:00Z"},
		)

		var err error
		cr, err = core.Open(core.Options{Gateway: gw, Client: "deck"})
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(cr.Close)

		snapshot, err := cr.Deck.Wait(ctx)
		Expect(err).NotTo(HaveOccurred())

		m = newDeckModel(ctx, cr.Deck, deck.DefaultSpec(), "alice")
		m, _ = update(m, snapshotMsg(snapshot))
	})

	It("shows a spinner until the first snapshot", func() {
		fresh := newDeckModel(ctx, cr.Deck, deck.DefaultSpec(), "alice")
		Expect(fresh.View()).To(ContainSubstring("Loading memories"))
		Expect(fresh.Init()).NotTo(BeNil())
	})

	It("renders the projected records newest first", func() {
		view := m.View()
		Expect(view).To(ContainSubstring("showing 3 of 3"))
		Expect(view).To(ContainSubstring("water the plants"))
		Expect(strings.Index(view, "water the plants")).To(BeNumerically("<", strings.Index(view, "buy milk")))

		record, ok := m.selected()
		Expect(ok).To(BeTrue())
		Expect(record.ID).To(Equal("3"))
	})

	It("ignores the initial read once the subscription is live", func() {
		m, _ = update(m, initialSnapshotMsg(deck.Snapshot{Loading: true}))
		Expect(m.snapshot.Loading).To(BeFalse())
		Expect(m.overview.Records).To(HaveLen(3))
	})

	It("moves the cursor within bounds", func() {
		m = press(m, "j")
		m = press(m, "j")
		m = press(m, "j")
		Expect(m.cursor).To(Equal(2))
		m = press(m, "k")
		Expect(m.cursor).To(Equal(1))
	})

	It("filters live while searching and restores on esc", func() {
		m = press(m, "/")
		Expect(m.mode).To(Equal(modeSearch))
		m = press(m, "milk")
		Expect(m.spec.Search).To(Equal("milk"))
		Expect(m.overview.Showing).To(Equal(1))

		m, _ = pressType(m, bubbletea.KeyEsc)
		Expect(m.mode).To(Equal(modeBrowse))
		Expect(m.spec.Search).To(BeEmpty())
		Expect(m.overview.Showing).To(Equal(3))
	})

	It("keeps the search on enter", func() {
		m = press(m, "/")
		m = press(m, "BOOK")
		m, _ = pressType(m, bubbletea.KeyEnter)
		Expect(m.mode).To(Equal(modeBrowse))
		Expect(m.spec.Search).To(Equal("BOOK"))
		Expect(m.overview.Records).To(HaveLen(1))
		Expect(m.overview.Records[0].ID).To(Equal("2"))
	})

	It("cycles the user and tag facets", func() {
		m = press(m, "u")
		Expect(m.spec.User).To(Equal("alice"))
		Expect(m.overview.Showing).To(Equal(2))
		m = press(m, "u")
		Expect(m.spec.User).To(Equal("bob"))
		m = press(m, "u")
		Expect(m.spec.User).To(BeEmpty())

		m = press(m, "t")
		Expect(m.spec.Tag).To(Equal("home"))
		Expect(m.overview.Showing).To(Equal(1))
	})

	It("toggles the sort and flips the order", func() {
		m = press(m, "2")
		Expect(m.spec.SortField).To(Equal(deck.SortUserID))
		Expect(m.spec.SortOrder).To(Equal(deck.OrderDesc))
		m = press(m, "2")
		Expect(m.spec.SortOrder).To(Equal(deck.OrderAsc))
		m = press(m, "o")
		Expect(m.spec.SortOrder).To(Equal(deck.OrderDesc))
	})

	It("explains an empty projection and resets filters", func() {
		m.spec.Tag = "nope"
		m = m.rebuild()
		Expect(m.View()).To(ContainSubstring("No memories match the current filters"))

		m = press(m, "x")
		Expect(m.spec.HasFilters()).To(BeFalse())
		Expect(m.overview.Showing).To(Equal(3))
	})

	It("shows a load error with the stale records", func() {
		failed := deck.Snapshot{
			Records: m.snapshot.Records,
			Err:     &memory.TransportError{Op: "list memories", Err: errors.New("connection refused")},
		}
		m, _ = update(m, snapshotMsg(failed))
		view := m.View()
		Expect(view).To(ContainSubstring("Could not reach the memory service"))
		Expect(view).To(ContainSubstring("press r to retry"))
		Expect(view).To(ContainSubstring("buy milk"))
	})

	It("cancels a delete on n", func() {
		m = press(m, "d")
		Expect(m.mode).To(Equal(modeConfirmDelete))
		Expect(m.View()).To(ContainSubstring("[y/N]"))

		m = press(m, "n")
		Expect(m.mode).To(Equal(modeBrowse))
		Expect(m.notice).To(Equal("Delete cancelled."))
		Expect(gw.Records()).To(HaveLen(3))
	})

	It("deletes the selected memory on y", func() {
		m = press(m, "d")
		var cmd bubbletea.Cmd
		m, cmd = update(m, bubbletea.KeyMsg{Type: bubbletea.KeyRunes, Runes: []rune("y")})
		Expect(cmd).NotTo(BeNil())

		msg := cmd()
		done, ok := msg.(mutationDoneMsg)
		Expect(ok).To(BeTrue())
		Expect(done.err).NotTo(HaveOccurred())
		Expect(done.op).To(Equal(mutation.OpDelete))
		Expect(gw.Records()).To(HaveLen(2))

		m, _ = update(m, done)
		Expect(m.notice).To(Equal("Memory deleted."))
		Expect(m.noticeErr).To(BeFalse())
	})

	It("reports a failed delete", func() {
		gw.Fail(gateway.OpDelete, &memory.NotFoundError{ID: "3"})
		m = press(m, "d")
		_, cmd := update(m, bubbletea.KeyMsg{Type: bubbletea.KeyRunes, Runes: []rune("y")})

		m, _ = update(m, cmd())
		Expect(m.noticeErr).To(BeTrue())
		Expect(m.notice).To(Equal("Memory not found. It may already have been deleted."))
	})

	It("adds a memory for the owner", func() {
		m = press(m, "a")
		Expect(m.mode).To(Equal(modeAdd))
		m = press(m, "call mom")

		var cmd bubbletea.Cmd
		m, cmd = pressType(m, bubbletea.KeyEnter)
		Expect(cmd).NotTo(BeNil())

		done, ok := cmd().(mutationDoneMsg)
		Expect(ok).To(BeTrue())
		Expect(done.err).NotTo(HaveOccurred())
		Expect(done.record.UserID).To(Equal("alice"))
		Expect(gw.Records()).To(HaveLen(4))

		m, _ = update(m, done)
		Expect(m.notice).To(Equal("Added memory for alice."))
	})

	It("refuses blank memory text", func() {
		m = press(m, "a")
		var cmd bubbletea.Cmd
		m, cmd = pressType(m, bubbletea.KeyEnter)
		Expect(cmd).To(BeNil())
		Expect(m.noticeErr).To(BeTrue())
		Expect(m.notice).To(Equal("Memory text is required."))
		Expect(gw.Records()).To(HaveLen(3))
	})

	It("quits on q", func() {
		_, cmd := update(m, bubbletea.KeyMsg{Type: bubbletea.KeyRunes, Runes: []rune("q")})
		Expect(cmd).NotTo(BeNil())
		Expect(cmd()).To(Equal(bubbletea.Quit()))
	})
})

var _ = Describe("deck TUI helpers", func() {
	It("cycles through values and back to none", func() {
		values := []string{"a", "b"}
		Expect(cycle(values, "")).To(Equal("a"))
		Expect(cycle(values, "a")).To(Equal("b"))
		Expect(cycle(values, "b")).To(Equal(""))
		Expect(cycle(values, "gone")).To(Equal(""))
		Expect(cycle(nil, "a")).To(Equal(""))
	})

	It("keeps the cursor inside the visible window", func() {
		start, end := visibleRange(3, 0, 10)
		Expect([]int{start, end}).To(Equal([]int{0, 3}))

		start, end = visibleRange(20, 19, 5)
		Expect([]int{start, end}).To(Equal([]int{15, 20}))

		start, end = visibleRange(20, 10, 5)
		Expect([]int{start, end}).To(Equal([]int{8, 13}))

		start, end = visibleRange(0, 0, 5)
		Expect([]int{start, end}).To(Equal([]int{0, 0}))
	})

	It("clamps to the last index", func() {
		Expect(clamp(-1, 4)).To(Equal(0))
		Expect(clamp(7, 4)).To(Equal(4))
		Expect(clamp(2, -1)).To(Equal(0))
	})

	It("wraps on word boundaries", func() {
		Expect(wrapText("one two three four", 9)).To(Equal([]string{"one two", "three", "four"}))
		Expect(wrapText("", 9)).To(Equal([]string{""}))
	})

	It("pads cells to width", func() {
		Expect(fitCell("bob", 5)).To(Equal("bob  "))
		Expect(padRight("alice", 3)).To(Equal("alice"))
	})
})
