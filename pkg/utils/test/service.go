// Package testutils holds test doubles shared across memdeck packages.
package testutils

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/memdeck/pkg/memory"
)

// MemoryService is an in-process stand-in for the remote memory service. It
// serves the same routes the gateway calls and keeps its records in memory.
type MemoryService struct {
	*httptest.Server

	mu       sync.Mutex
	records  []memory.Record
	history  map[string][]memory.HistoryEntry
	nextID   int
	failures map[string]int
	requests map[string]int
}

// NewMemoryService starts a service holding records. Close it when done.
func NewMemoryService(records ...memory.Record) *MemoryService {
	s := &MemoryService{
		records:  slices.Clone(records),
		history:  map[string][]memory.HistoryEntry{},
		failures: map[string]int{},
		requests: map[string]int{},
	}

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(s.count)
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/memory/all", s.handleList)
	app.Post("/memory/add", s.handleAdd)
	app.Delete("/memory/delete", s.handleDelete)
	app.Post("/memory/search", s.handleSearch)
	app.Get("/memory/history/:id", s.handleHistory)

	s.Server = httptest.NewServer(adaptor.FiberApp(app))
	return s
}

// Fail makes every request to path answer with status until cleared with 0.
func (s *MemoryService) Fail(path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.failures, path)
		return
	}
	s.failures[path] = status
}

// Requests returns how many requests path has received.
func (s *MemoryService) Requests(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[path]
}

// Records returns a copy of the stored records.
func (s *MemoryService) Records() []memory.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.records)
}

func (s *MemoryService) count(c *fiber.Ctx) error {
	s.mu.Lock()
	s.requests[c.Path()]++
	status := s.failures[c.Path()]
	s.mu.Unlock()

	if status != 0 {
		return c.Status(status).JSON(fiber.Map{"detail": http.StatusText(status)})
	}
	return c.Next()
}

func (s *MemoryService) handleList(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"results": s.Records()})
}

type addBody struct {
	Messages string `json:"messages"`
	UserID   string `json:"user_id"`
}

func (s *MemoryService) handleAdd(c *fiber.Ctx) error {
	var body addBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"detail": err.Error()})
	}

	s.mu.Lock()
	s.nextID++
	record := memory.Record{
		ID:        fmt.Sprintf("mem-%d", s.nextID),
		Memory:    body.Messages,
		UserID:    body.UserID,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	s.records = append(s.records, record)
	s.recordLocked(record.ID, "ADD", "", record.Memory, false)
	s.mu.Unlock()

	return c.JSON(fiber.Map{"results": []addResult{{Record: record, Event: "ADD"}}})
}

type addResult struct {
	memory.Record
	Event string `json:"event"`
}

type deleteBody struct {
	MemoryID string `json:"memory_id"`
}

func (s *MemoryService) handleDelete(c *fiber.Ctx) error {
	var body deleteBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"detail": err.Error()})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := slices.IndexFunc(s.records, func(r memory.Record) bool { return r.ID == body.MemoryID })
	if idx < 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"detail": "Memory not found"})
	}
	s.recordLocked(body.MemoryID, "DELETE", s.records[idx].Memory, "", true)
	s.records = slices.Delete(s.records, idx, idx+1)
	return c.JSON(fiber.Map{"message": "Memory deleted successfully"})
}

// SetHistory replaces the change log kept for id.
func (s *MemoryService) SetHistory(id string, entries ...memory.HistoryEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[id] = slices.Clone(entries)
}

func (s *MemoryService) recordLocked(id, event, oldText, newText string, deleted bool) {
	s.history[id] = append(s.history[id], memory.HistoryEntry{
		ID:        fmt.Sprintf("%s-h%d", id, len(s.history[id])+1),
		MemoryID:  id,
		OldMemory: oldText,
		NewMemory: newText,
		Event:     event,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		IsDeleted: deleted,
	})
}

// handleHistory answers an unknown id with an empty list, as the service does.
func (s *MemoryService) handleHistory(c *fiber.Ctx) error {
	s.mu.Lock()
	entries := slices.Clone(s.history[c.Params("id")])
	s.mu.Unlock()

	if entries == nil {
		entries = []memory.HistoryEntry{}
	}
	return c.JSON(fiber.Map{"status": "success", "data": entries})
}

type searchBody struct {
	Query  string `json:"query"`
	UserID string `json:"user_id"`
	Limit  int    `json:"limit"`
}

// handleSearch matches on substrings, which is enough to exercise callers.
func (s *MemoryService) handleSearch(c *fiber.Ctx) error {
	var body searchBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"detail": err.Error()})
	}

	query := strings.ToLower(body.Query)
	results := []memory.Record{}
	for _, record := range s.Records() {
		if body.UserID != "" && record.UserID != body.UserID {
			continue
		}
		if strings.Contains(strings.ToLower(record.Memory), query) {
			results = append(results, record)
		}
		if body.Limit > 0 && len(results) == body.Limit {
			break
		}
	}
	return c.JSON(fiber.Map{"results": results})
}
