package memory_test

import (
	"errors"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/memdeck/pkg/memory"
)

var _ = Describe("Errors", func() {
	It("classifies wrapped errors", func() {
		err := fmt.Errorf("adding: %w", memory.NewValidationError("text", "must not be empty"))
		Expect(memory.IsValidation(err)).To(BeTrue())
		Expect(memory.IsTransport(err)).To(BeFalse())

		notFound := fmt.Errorf("deleting: %w", &memory.NotFoundError{ID: "1"})
		Expect(memory.IsNotFound(notFound)).To(BeTrue())
	})

	It("preserves the transport cause", func() {
		cause := errors.New("connection refused")
		err := &memory.TransportError{Op: "list memories", Err: cause}
		Expect(errors.Is(err, cause)).To(BeTrue())
		Expect(err.Error()).To(Equal("list memories: connection refused"))

		withStatus := &memory.TransportError{Op: "add memory", Status: 500, Err: cause}
		Expect(withStatus.Error()).To(ContainSubstring("HTTP 500"))
	})

	Describe("UserMessage", func() {
		It("renders each error class", func() {
			Expect(memory.UserMessage(nil)).To(BeEmpty())
			Expect(memory.UserMessage(memory.NewValidationError("text", "empty"))).To(Equal("Memory text is required."))
			Expect(memory.UserMessage(memory.NewValidationError("user_id", "empty"))).To(Equal("User ID is required."))
			Expect(memory.UserMessage(&memory.NotFoundError{ID: "x"})).To(ContainSubstring("not found"))
			Expect(memory.UserMessage(memory.ErrDeleteDeclined)).To(Equal("Delete cancelled."))
			Expect(memory.UserMessage(&memory.TransportError{Op: "x", Err: errors.New("y")})).To(ContainSubstring("Could not reach"))
			Expect(memory.UserMessage(errors.New("other"))).To(Equal("other"))
		})
	})
})
