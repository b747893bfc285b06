package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/memdeck/pkg/deck"
	"github.com/papercomputeco/memdeck/pkg/memory"
	"github.com/papercomputeco/memdeck/pkg/mutation"
)

var (
	listToolName    = "list_memories"
	listDescription = "List stored memories. Optional filters narrow by case-insensitive text search, exact user ID and exact tag; results are sorted by created_at, user_id or memory."

	addToolName    = "add_memory"
	addDescription = "Store a new memory for a user. The memory service may merge it into an existing memory."

	deleteToolName    = "delete_memory"
	deleteDescription = "Delete a memory by ID. Deleting is permanent, so the call must set confirm to true after the user has agreed."
)

// ListMemoriesInput represents the input arguments for the list_memories tool.
type ListMemoriesInput struct {
	Search string `json:"search,omitempty" jsonschema:"case-insensitive substring to match against memory text"`
	User   string `json:"user,omitempty" jsonschema:"only return memories owned by this user ID"`
	Tag    string `json:"tag,omitempty" jsonschema:"only return memories carrying this tag"`
	Sort   string `json:"sort,omitempty" jsonschema:"sort field: created_at (default), user_id or memory"`
	Order  string `json:"order,omitempty" jsonschema:"sort order: desc (default) or asc"`
	Limit  int    `json:"limit,omitempty" jsonschema:"maximum number of memories to return (default: all)"`
}

// ListMemoriesOutput is the structured output of list_memories.
type ListMemoriesOutput struct {
	Memories []memory.Record `json:"memories"`
	Showing  int             `json:"showing"`
	Total    int             `json:"total"`
	Users    []string        `json:"users"`
	Tags     []string        `json:"tags"`
}

// AddMemoryInput represents the input arguments for the add_memory tool.
type AddMemoryInput struct {
	Memory string `json:"memory" jsonschema:"the text to remember"`
	UserID string `json:"user_id" jsonschema:"the user the memory belongs to"`
}

// AddMemoryOutput is the structured output of add_memory.
type AddMemoryOutput struct {
	Memory memory.Record `json:"memory"`
}

// DeleteMemoryInput represents the input arguments for the delete_memory tool.
type DeleteMemoryInput struct {
	ID      string `json:"id" jsonschema:"the ID of the memory to delete"`
	Confirm bool   `json:"confirm" jsonschema:"must be true; set only after the user agreed to the deletion"`
}

// DeleteMemoryOutput is the structured output of delete_memory.
type DeleteMemoryOutput struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

// handleListMemories processes a list_memories request.
func (s *Server) handleListMemories(ctx context.Context, _ *mcp.CallToolRequest, input ListMemoriesInput) (*mcp.CallToolResult, ListMemoriesOutput, error) {
	spec, err := specFromInput(input)
	if err != nil {
		return toolError(err.Error()), ListMemoriesOutput{}, nil
	}

	snapshot, err := s.config.Deck.Wait(ctx)
	if err != nil {
		return toolError(fmt.Sprintf("Failed to load memories: %v", err)), ListMemoriesOutput{}, nil
	}
	if len(snapshot.Records) == 0 && snapshot.Err != nil {
		return toolError(memory.UserMessage(snapshot.Err)), ListMemoriesOutput{}, nil
	}

	overview := deck.Build(snapshot, spec)
	records := overview.Records
	if input.Limit > 0 && len(records) > input.Limit {
		records = records[:input.Limit]
	}

	s.config.Logger.Debug("MCP list request",
		"search", spec.Search,
		"user", spec.User,
		"tag", spec.Tag,
		"showing", overview.Showing,
	)

	output := ListMemoriesOutput{
		Memories: records,
		Showing:  overview.Showing,
		Total:    overview.Total,
		Users:    overview.Users,
		Tags:     overview.Tags,
	}
	return jsonResult(output)
}

// handleAddMemory processes an add_memory request.
func (s *Server) handleAddMemory(ctx context.Context, _ *mcp.CallToolRequest, input AddMemoryInput) (*mcp.CallToolResult, AddMemoryOutput, error) {
	record, err := s.config.Deck.AddRecord(ctx, input.Memory, input.UserID)
	if err != nil {
		s.config.Logger.Warn("MCP add failed", "error", err)
		return toolError(memory.UserMessage(err)), AddMemoryOutput{}, nil
	}

	return jsonResult(AddMemoryOutput{Memory: record})
}

// handleDeleteMemory processes a delete_memory request. Without confirm the
// request never reaches the service.
func (s *Server) handleDeleteMemory(ctx context.Context, _ *mcp.CallToolRequest, input DeleteMemoryInput) (*mcp.CallToolResult, DeleteMemoryOutput, error) {
	confirmer := mutation.Deny
	if input.Confirm {
		confirmer = mutation.AutoConfirm
	}

	if err := s.config.Deck.DeleteRecordWith(ctx, input.ID, confirmer); err != nil {
		msg := memory.UserMessage(err)
		if !input.Confirm {
			msg = "Delete not performed: set confirm to true once the user has agreed."
		}
		return toolError(msg), DeleteMemoryOutput{}, nil
	}

	return jsonResult(DeleteMemoryOutput{ID: input.ID, Deleted: true})
}

func specFromInput(input ListMemoriesInput) (deck.Spec, error) {
	spec := deck.DefaultSpec()
	spec.Search = strings.TrimSpace(input.Search)
	spec.User = strings.TrimSpace(input.User)
	spec.Tag = strings.TrimSpace(input.Tag)

	if input.Sort != "" {
		field, err := deck.ParseSortField(input.Sort)
		if err != nil {
			return deck.Spec{}, err
		}
		spec.SortField = field
	}
	if input.Order != "" {
		order, err := deck.ParseSortOrder(input.Order)
		if err != nil {
			return deck.Spec{}, err
		}
		spec.SortOrder = order
	}

	return spec, nil
}

func toolError(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

// jsonResult serializes the structured output as JSON for the text field.
// Tools returning structured content also return it in a TextContent block
// for clients that ignore structured output.
func jsonResult[T any](output T) (*mcp.CallToolResult, T, error) {
	jsonBytes, err := json.Marshal(output)
	if err != nil {
		var zero T
		return toolError(fmt.Sprintf("Failed to serialize results: %v", err)), zero, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, output, nil
}
