package api

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/memdeck/pkg/deck"
	"github.com/papercomputeco/memdeck/pkg/memory"
	"github.com/papercomputeco/memdeck/pkg/mutation"
)

const (
	defaultRecentLimit = 5
	maxRecentLimit     = 100

	// refreshWait bounds how long POST /v1/refresh waits for the refetch.
	refreshWait = 30 * time.Second
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ListQuery is the projection requested by GET /v1/memories.
type ListQuery struct {
	Search string `query:"search" validate:"max=256"`
	User   string `query:"user" validate:"max=256"`
	Tag    string `query:"tag" validate:"max=256"`
	Sort   string `query:"sort" validate:"omitempty,oneof=created_at user_id memory"`
	Order  string `query:"order" validate:"omitempty,oneof=asc desc"`
}

// Spec converts q into a projection spec.
func (q ListQuery) Spec() deck.Spec {
	spec := deck.DefaultSpec()
	spec.Search = q.Search
	spec.User = q.User
	spec.Tag = q.Tag
	if q.Sort != "" {
		spec.SortField = deck.SortField(q.Sort)
	}
	if q.Order != "" {
		spec.SortOrder = deck.SortOrder(q.Order)
	}
	return spec
}

// AddRequest is the body of POST /v1/memories.
type AddRequest struct {
	Memory string `json:"memory" validate:"required,max=10000"`
	UserID string `json:"user_id" validate:"required,max=256"`
}

// StatsQuery is the query of GET /v1/stats.
type StatsQuery struct {
	Recent int `query:"recent" validate:"gte=0,lte=100"`
}

// FacetsResponse lists the distinct filter values of the collection.
type FacetsResponse struct {
	Users []string `json:"users"`
	Tags  []string `json:"tags"`
}

// RefreshResponse reports the collection state after a refresh settled.
type RefreshResponse struct {
	Total   int    `json:"total"`
	Loading bool   `json:"loading"`
	Error   string `json:"error,omitempty"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleListMemories handles GET /v1/memories.
func (s *Server) handleListMemories(c *fiber.Ctx) error {
	var query ListQuery
	if err := c.QueryParser(&query); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid query parameters"})
	}
	if err := validateRequest(query); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
	}

	return c.JSON(s.deck.Overview(query.Spec()))
}

// handleGetMemory handles GET /v1/memories/:id.
func (s *Server) handleGetMemory(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "id parameter is required"})
	}

	record, ok := s.deck.Find(id)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "memory not found"})
	}

	return c.JSON(record)
}

// handleAddMemory handles POST /v1/memories.
func (s *Server) handleAddMemory(c *fiber.Ctx) error {
	var req AddRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}
	req.Memory = strings.TrimSpace(req.Memory)
	req.UserID = strings.TrimSpace(req.UserID)
	if err := validateRequest(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
	}

	record, err := s.deck.AddRecord(c.UserContext(), req.Memory, req.UserID)
	if err != nil {
		return s.writeMutationError(c, "add", err)
	}

	return c.Status(fiber.StatusCreated).JSON(record)
}

// handleDeleteMemory handles DELETE /v1/memories/:id. The caller confirms
// with ?confirm=true; without it nothing is sent to the service.
func (s *Server) handleDeleteMemory(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "id parameter is required"})
	}

	confirmer := mutation.Deny
	if c.QueryBool("confirm") {
		confirmer = mutation.AutoConfirm
	}

	if err := s.deck.DeleteRecordWith(c.UserContext(), id, confirmer); err != nil {
		return s.writeMutationError(c, "delete", err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// handleFacets handles GET /v1/facets.
func (s *Server) handleFacets(c *fiber.Ctx) error {
	records := s.deck.Snapshot().Records
	return c.JSON(FacetsResponse{
		Users: deck.DistinctUsers(records),
		Tags:  deck.DistinctTags(records),
	})
}

// handleStats handles GET /v1/stats.
func (s *Server) handleStats(c *fiber.Ctx) error {
	query := StatsQuery{Recent: s.config.RecentLimit}
	if err := c.QueryParser(&query); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "recent must be a non-negative integer"})
	}
	if err := validateRequest(query); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
	}

	return c.JSON(s.deck.Summary(min(query.Recent, maxRecentLimit)))
}

// handleRefresh handles POST /v1/refresh. It waits for the refetch to settle
// so the response reflects the new state.
func (s *Server) handleRefresh(c *fiber.Ctx) error {
	done := s.deck.Refresh()

	select {
	case <-done:
	case <-time.After(refreshWait):
		return c.Status(fiber.StatusGatewayTimeout).JSON(ErrorResponse{Error: "refresh did not finish in time"})
	}

	snapshot := s.deck.Snapshot()
	return c.JSON(RefreshResponse{
		Total:   len(snapshot.Records),
		Loading: snapshot.Loading,
		Error:   memory.UserMessage(snapshot.Err),
	})
}

// writeMutationError maps a coordinator error onto an HTTP status.
func (s *Server) writeMutationError(c *fiber.Ctx, op string, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case memory.IsValidation(err):
		status = fiber.StatusBadRequest
	case memory.IsNotFound(err):
		status = fiber.StatusNotFound
	case errors.Is(err, memory.ErrDeleteDeclined):
		status = fiber.StatusPreconditionRequired
	case memory.IsTransport(err):
		status = fiber.StatusBadGateway
	}

	if status >= fiber.StatusInternalServerError {
		s.logger.Error("memory write failed", "op", op, "error", err)
	}

	msg := memory.UserMessage(err)
	if errors.Is(err, memory.ErrDeleteDeclined) {
		msg = "delete requires confirm=true"
	}
	return c.Status(status).JSON(ErrorResponse{Error: msg})
}
