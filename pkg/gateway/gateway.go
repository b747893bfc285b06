// Package gateway is the typed HTTP client for the remote memory service.
//
// The gateway is a thin adapter: it validates inputs that can be rejected
// without a round trip, maps responses to memory types and wraps failures in
// the memory error taxonomy. It holds no state and never retries or caches.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/papercomputeco/memdeck/pkg/logger"
	"github.com/papercomputeco/memdeck/pkg/memory"
)

const (
	pathListAll = "/memory/all"
	pathAdd     = "/memory/add"
	pathDelete  = "/memory/delete"
	pathSearch  = "/memory/search"
	pathHistory = "/memory/history"
	pathHealth  = "/health"

	defaultTimeout = 30 * time.Second

	// maxErrorBody caps how much of a failed response is kept in the error.
	maxErrorBody = 512
)

// Gateway is the set of service operations the rest of memdeck depends on.
type Gateway interface {
	ListAll(ctx context.Context) (memory.Collection, error)
	Add(ctx context.Context, text, ownerID string) (memory.Record, error)
	Delete(ctx context.Context, id string) error
}

// Config configures a Client.
type Config struct {
	// Target is the service base URL, e.g. "http://localhost:8000".
	Target string

	// Timeout bounds each request. Defaults to 30s.
	Timeout time.Duration

	// HTTPClient overrides the underlying client. Timeout is ignored when set.
	HTTPClient *http.Client

	// Logger is the configured slog logger.
	Logger *slog.Logger
}

// Client talks to the memory service over HTTP.
type Client struct {
	base   *url.URL
	http   *http.Client
	logger *slog.Logger
}

// Ensure Client implements Gateway
var _ Gateway = (*Client)(nil)

// NewClient validates c and returns a Client.
func NewClient(c Config) (*Client, error) {
	target := strings.TrimSpace(c.Target)
	if target == "" {
		return nil, errors.New("service target is required")
	}

	base, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("invalid service target URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid service target URL %q: scheme and host are required", target)
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		timeout := c.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	log := c.Logger
	if log == nil {
		log = logger.Nop()
	}

	return &Client{
		base:   base,
		http:   httpClient,
		logger: log,
	}, nil
}

// Target returns the service base URL.
func (c *Client) Target() string {
	return c.base.String()
}

// ListAll fetches every record the service holds. The payload's shape is
// preserved in the returned Collection.
func (c *Client) ListAll(ctx context.Context) (memory.Collection, error) {
	const op = "list memories"

	body, err := c.do(ctx, op, http.MethodGet, pathListAll, nil)
	if err != nil {
		return memory.Collection{}, err
	}

	collection, err := memory.DecodeCollection(body)
	if err != nil {
		return memory.Collection{}, &memory.TransportError{Op: op, Err: err}
	}

	c.logger.Debug("listed memories",
		"shape", collection.Shape().String(),
		"count", len(collection.Records()),
	)

	return collection, nil
}

type addRequest struct {
	Messages string         `json:"messages"`
	UserID   string         `json:"user_id"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Add stores text for ownerID and returns the created record.
func (c *Client) Add(ctx context.Context, text, ownerID string) (memory.Record, error) {
	const op = "add memory"

	if strings.TrimSpace(text) == "" {
		return memory.Record{}, memory.NewValidationError("text", "must not be empty")
	}
	if strings.TrimSpace(ownerID) == "" {
		return memory.Record{}, memory.NewValidationError("user_id", "must not be empty")
	}

	body, err := c.do(ctx, op, http.MethodPost, pathAdd, addRequest{
		Messages: text,
		UserID:   ownerID,
	})
	if err != nil {
		return memory.Record{}, err
	}

	created := memory.Record{Memory: text, UserID: ownerID}

	// mem0 answers with one result per memory the write touched. Only an ADD
	// result is the record this write created; UPDATE, NONE and DELETE mean
	// the text was merged into memories that already existed.
	results, err := decodeAddResults(body)
	if err != nil {
		c.logger.Debug("add response carried no results", "error", err)
		return created, nil
	}

	for _, result := range results {
		if !strings.EqualFold(result.Event, eventAdd) {
			continue
		}
		record := result.Record
		if record.Memory == "" {
			record.Memory = text
		}
		if record.UserID == "" {
			record.UserID = ownerID
		}
		return record, nil
	}

	c.logger.Debug("add merged into existing memories", "results", len(results))
	return created, nil
}

const eventAdd = "ADD"

// addResult is one entry of mem0's add response.
type addResult struct {
	memory.Record
	Event string `json:"event"`
}

// decodeAddResults unwraps the add response the same way list payloads are
// unwrapped: a bare array, {"results": [...]}, or the service's
// {"status": ..., "data": ...} wrapper around either.
func decodeAddResults(body []byte) ([]addResult, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, memory.ErrUnknownShape
	}

	switch trimmed[0] {
	case '[':
		var results []addResult
		if err := json.Unmarshal(trimmed, &results); err != nil {
			return nil, fmt.Errorf("decoding add results: %w", err)
		}
		return results, nil
	case '{':
		var env struct {
			Results json.RawMessage `json:"results"`
			Data    json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return nil, fmt.Errorf("decoding add response: %w", err)
		}
		switch {
		case env.Results != nil:
			return decodeAddResults(env.Results)
		case env.Data != nil:
			return decodeAddResults(env.Data)
		}
	}

	return nil, memory.ErrUnknownShape
}

type deleteRequest struct {
	MemoryID string `json:"memory_id"`
}

// Delete removes the record with the given id. A 404 from the service is
// reported as a NotFoundError.
func (c *Client) Delete(ctx context.Context, id string) error {
	const op = "delete memory"

	if strings.TrimSpace(id) == "" {
		return memory.NewValidationError("id", "must not be empty")
	}

	_, err := c.do(ctx, op, http.MethodDelete, pathDelete, deleteRequest{MemoryID: id})
	if err != nil {
		var transport *memory.TransportError
		if errors.As(err, &transport) && transport.Status == http.StatusNotFound {
			return &memory.NotFoundError{ID: id}
		}
		return err
	}

	return nil
}

type searchRequest struct {
	Query  string `json:"query"`
	UserID string `json:"user_id,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}

// Search runs the service's semantic search. Results are normalized the same
// way ListAll payloads are.
func (c *Client) Search(ctx context.Context, query, userID string, limit int) ([]memory.Record, error) {
	const op = "search memories"

	if strings.TrimSpace(query) == "" {
		return nil, memory.NewValidationError("query", "must not be empty")
	}

	body, err := c.do(ctx, op, http.MethodPost, pathSearch, searchRequest{
		Query:  query,
		UserID: userID,
		Limit:  limit,
	})
	if err != nil {
		return nil, err
	}

	collection, err := memory.DecodeCollection(body)
	if err != nil {
		return nil, &memory.TransportError{Op: op, Err: err}
	}

	return collection.Records(), nil
}

// History returns the changes the service recorded for the record with the
// given id, oldest first. A 404 from the service is reported as a
// NotFoundError.
func (c *Client) History(ctx context.Context, id string) ([]memory.HistoryEntry, error) {
	const op = "memory history"

	id = strings.TrimSpace(id)
	if id == "" {
		return nil, memory.NewValidationError("id", "must not be empty")
	}

	body, err := c.do(ctx, op, http.MethodGet, pathHistory+"/"+url.PathEscape(id), nil)
	if err != nil {
		var transport *memory.TransportError
		if errors.As(err, &transport) && transport.Status == http.StatusNotFound {
			return nil, &memory.NotFoundError{ID: id}
		}
		return nil, err
	}

	entries, err := memory.DecodeHistory(body)
	if err != nil {
		return nil, &memory.TransportError{Op: op, Err: err}
	}

	return entries, nil
}

// Health checks that the service is reachable and reports healthy.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.do(ctx, "health check", http.MethodGet, pathHealth, nil)
	return err
}

// do sends a request and returns the body of a 2xx response. Every failure
// comes back as a *memory.TransportError.
func (c *Client) do(ctx context.Context, op, method, path string, payload any) ([]byte, error) {
	endpoint := c.base.JoinPath(path)

	var reader io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, &memory.TransportError{Op: op, Err: fmt.Errorf("encoding request: %w", err)}
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return nil, &memory.TransportError{Op: op, Err: fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &memory.TransportError{
			Op:  op,
			Err: fmt.Errorf("failed to connect to memory service at %s: %w", c.base, err),
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &memory.TransportError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("reading response: %w", err)}
	}

	c.logger.Debug("memory service request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &memory.TransportError{
			Op:     op,
			Status: resp.StatusCode,
			Err:    errors.New(errorDetail(body)),
		}
	}

	return body, nil
}

// errorDetail pulls FastAPI's {"detail": ...} message out of an error body,
// falling back to the truncated raw body.
func errorDetail(body []byte) string {
	var parsed struct {
		Detail any `json:"detail"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Detail != nil {
		if s, ok := parsed.Detail.(string); ok {
			return s
		}
		return fmt.Sprint(parsed.Detail)
	}

	text := strings.TrimSpace(string(body))
	if text == "" {
		return "empty response body"
	}
	if len(text) > maxErrorBody {
		return text[:maxErrorBody] + "..."
	}
	return text
}
