// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package tools

import (
	"context"
	"time"

	"github.com/cognitivecomputations/agi-mcp-server/internal/database"
	"github.com/mark3labs/mcp-go/mcp"
)

// CleanupResponse reports expired working memories that were removed
type CleanupResponse struct {
	Removed  int                      `json:"removed"`
	Memories []database.WorkingMemory `json:"memories"`
}

// NewCreateWorkingMemoryTool creates the create_working_memory tool
func NewCreateWorkingMemoryTool() mcp.Tool {
	return mcp.NewTool("create_working_memory",
		mcp.WithDescription("Store a short-lived working memory that expires after a TTL."),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("Working memory content"),
		),
		mcp.WithArray("embedding",
			mcp.Required(),
			mcp.Items(map[string]interface{}{"type": "number"}),
			mcp.Description("Embedding vector of the configured dimension"),
		),
		mcp.WithNumber("ttl_seconds",
			mcp.Description("Seconds until expiry (default: server setting, one hour unless configured)"),
		),
	)
}

// CreateWorkingMemoryHandler handles the create_working_memory tool
func CreateWorkingMemoryHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		content, err := request.RequireString("content")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		embedding, err := argEmbedding(request.GetArguments(), "embedding", true)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		ttl := time.Duration(request.GetFloat("ttl_seconds", 0) * float64(time.Second))

		wm, err := ctx.Working.Create(c, content, embedding, ttl)
		if err != nil {
			return ctx.errorResult("create_working_memory", err)
		}
		wm.Embedding = nil
		return jsonResult(wm)
	}
}

// NewGetWorkingMemoriesTool creates the get_working_memories tool
func NewGetWorkingMemoriesTool() mcp.Tool {
	return mcp.NewTool("get_working_memories",
		mcp.WithDescription("List working memories, newest first."),
		mcp.WithBoolean("include_expired",
			mcp.Description("Include entries past their expiry (default: false)"),
		),
	)
}

// GetWorkingMemoriesHandler handles the get_working_memories tool
func GetWorkingMemoriesHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		items, err := ctx.Working.List(c, request.GetBool("include_expired", false))
		if err != nil {
			return ctx.errorResult("get_working_memories", err)
		}
		return jsonResult(items)
	}
}

// NewCleanupWorkingMemoryTool creates the cleanup_expired_working_memory tool
func NewCleanupWorkingMemoryTool() mcp.Tool {
	return mcp.NewTool("cleanup_expired_working_memory",
		mcp.WithDescription("Delete expired working memories and return them."),
	)
}

// CleanupWorkingMemoryHandler handles the cleanup_expired_working_memory tool
func CleanupWorkingMemoryHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		removed, err := ctx.Working.Cleanup(c)
		if err != nil {
			return ctx.errorResult("cleanup_expired_working_memory", err)
		}
		if removed == nil {
			removed = []database.WorkingMemory{}
		}
		for i := range removed {
			removed[i].Embedding = nil
		}
		return jsonResult(CleanupResponse{Removed: len(removed), Memories: removed})
	}
}

// NewConsolidateTool creates the consolidate_working_memory tool
func NewConsolidateTool() mcp.Tool {
	return mcp.NewTool("consolidate_working_memory",
		mcp.WithDescription("Merge several memories into one new semantic memory. Sources are linked to it and marked consolidated."),
		mcp.WithArray("source_memory_ids",
			mcp.Required(),
			mcp.Items(map[string]interface{}{"type": "string"}),
			mcp.Description("Ids of the memories being consolidated"),
		),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("Content of the consolidated memory"),
		),
		mcp.WithArray("embedding",
			mcp.Required(),
			mcp.Items(map[string]interface{}{"type": "number"}),
			mcp.Description("Embedding of the consolidated memory"),
		),
	)
}

// ConsolidateHandler handles the consolidate_working_memory tool
func ConsolidateHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		content, err := request.RequireString("content")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		args := request.GetArguments()
		sources, err := argStrings(args, "source_memory_ids")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		embedding, err := argEmbedding(args, "embedding", true)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		result, err := ctx.Lifecycle.Consolidate(c, sources, content, embedding)
		if err != nil {
			return ctx.errorResult("consolidate_working_memory", err)
		}
		result.Memory.Embedding = nil
		return jsonResult(result)
	}
}
