package eventstream_test

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/memdeck/pkg/eventstream"
	"github.com/papercomputeco/memdeck/pkg/memory"
)

var _ = Describe("Event", func() {
	It("marshals MemoryEvent with expected top-level keys", func() {
		event := eventstream.NewMemoryEvent(
			eventstream.EventTypeMemoryAdded,
			memory.Record{ID: "m-1", Memory: "likes tea", UserID: "alice"},
			eventstream.EventSource{Client: "memdeck", Service: "http://localhost:8000"},
		)

		payload, err := json.Marshal(event)
		Expect(err).NotTo(HaveOccurred())

		var got map[string]any
		Expect(json.Unmarshal(payload, &got)).To(Succeed())

		Expect(got).To(HaveKey("schema_version"))
		Expect(got).To(HaveKey("event_type"))
		Expect(got).To(HaveKey("event_id"))
		Expect(got).To(HaveKey("emitted_at"))
		Expect(got).To(HaveKey("source"))
		Expect(got).To(HaveKeyWithValue("memory", HaveKeyWithValue("id", "m-1")))
	})

	It("stamps a fresh uuid and the current time", func() {
		before := time.Now().UTC()
		first := eventstream.NewMemoryEvent(eventstream.EventTypeMemoryDeleted, memory.Record{ID: "m-1"}, eventstream.EventSource{})
		second := eventstream.NewMemoryEvent(eventstream.EventTypeMemoryDeleted, memory.Record{ID: "m-1"}, eventstream.EventSource{})

		_, err := uuid.Parse(first.EventID)
		Expect(err).NotTo(HaveOccurred())
		Expect(first.EventID).NotTo(Equal(second.EventID))
		Expect(first.EmittedAt).To(BeTemporally(">=", before))
		Expect(first.SchemaVersion).To(Equal(eventstream.SchemaVersionV1))
	})

	It("omits absent memory fields for deletes", func() {
		event := eventstream.NewMemoryEvent(eventstream.EventTypeMemoryDeleted, memory.Record{ID: "m-9"}, eventstream.EventSource{Client: "memdeck"})

		payload, err := json.Marshal(event.Memory)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(payload)).To(Equal(`{"id":"m-9"}`))
	})

	It("defines stable event constants", func() {
		Expect(eventstream.SchemaVersionV1).To(BeNumerically(">", 0))
		Expect(eventstream.EventTypeMemoryAdded).To(Equal("memdeck.memory.added"))
		Expect(eventstream.EventTypeMemoryDeleted).To(Equal("memdeck.memory.deleted"))
	})

	It("provides ErrNilMemoryEvent for nil payload validation", func() {
		Expect(eventstream.ErrNilMemoryEvent).To(MatchError("nil memory event"))
	})
})
