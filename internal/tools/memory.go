// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package tools

import (
	"context"
	"strings"

	"github.com/cognitivecomputations/agi-mcp-server/internal/database"
	"github.com/cognitivecomputations/agi-mcp-server/internal/memory"
	"github.com/mark3labs/mcp-go/mcp"
)

// NewCreateMemoryTool creates the create_memory tool
func NewCreateMemoryTool() mcp.Tool {
	return mcp.NewTool("create_memory",
		mcp.WithDescription("Store a new long-term memory with its embedding and type-specific metadata."),
		mcp.WithString("type",
			mcp.Required(),
			mcp.Enum(database.ValidMemoryTypes()...),
			mcp.Description("Memory type: "+strings.Join(database.ValidMemoryTypes(), ", ")),
		),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("Memory content"),
		),
		mcp.WithArray("embedding",
			mcp.Required(),
			mcp.Items(map[string]interface{}{"type": "number"}),
			mcp.Description("Embedding vector of the configured dimension"),
		),
		mcp.WithNumber("importance",
			mcp.Description("Importance in [0,1] (default: 0)"),
			mcp.Min(0),
			mcp.Max(1),
		),
		mcp.WithObject("metadata",
			mcp.Description("Type-specific metadata, e.g. action_taken and context for episodic memories"),
		),
	)
}

// CreateMemoryHandler handles the create_memory tool
func CreateMemoryHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		const tool = "create_memory"

		memType, err := request.RequireString("type")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		content, err := request.RequireString("content")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		args := request.GetArguments()
		embedding, err := argEmbedding(args, "embedding", true)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		metadata, err := argObject(args, "metadata")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		mem, err := ctx.Memories.Create(c, memory.CreateParams{
			Type:       memType,
			Content:    content,
			Embedding:  embedding,
			Importance: request.GetFloat("importance", 0),
			Metadata:   metadata,
		})
		if err != nil {
			return ctx.errorResult(tool, err)
		}

		mem.Embedding = nil
		return jsonResult(mem)
	}
}

// NewGetMemoryTool creates the get_memory tool
func NewGetMemoryTool() mcp.Tool {
	return mcp.NewTool("get_memory",
		mcp.WithDescription("Read a memory by id without recording an access."),
		mcp.WithString("memory_id",
			mcp.Required(),
			mcp.Description("Memory UUID"),
		),
		mcp.WithBoolean("include_embedding",
			mcp.Description("Include the embedding vector in the result (default: false)"),
		),
	)
}

// GetMemoryHandler handles the get_memory tool
func GetMemoryHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString("memory_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		mem, err := ctx.Memories.Get(c, id)
		if err != nil {
			return ctx.errorResult("get_memory", err)
		}
		if !request.GetBool("include_embedding", false) {
			mem.Embedding = nil
		}
		return jsonResult(mem)
	}
}

// NewAccessMemoryTool creates the access_memory tool
func NewAccessMemoryTool() mcp.Tool {
	return mcp.NewTool("access_memory",
		mcp.WithDescription("Read a memory by id and record the access, incrementing its access count."),
		mcp.WithString("memory_id",
			mcp.Required(),
			mcp.Description("Memory UUID"),
		),
	)
}

// AccessMemoryHandler handles the access_memory tool
func AccessMemoryHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString("memory_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		mem, err := ctx.Memories.Access(c, id)
		if err != nil {
			return ctx.errorResult("access_memory", err)
		}
		mem.Embedding = nil
		return jsonResult(mem)
	}
}

// NewGetMemoryHealthTool creates the get_memory_health tool
func NewGetMemoryHealthTool() mcp.Tool {
	return mcp.NewTool("get_memory_health",
		mcp.WithDescription("Summarize memories per type: count, average importance, access activity and relevance."),
	)
}

// GetMemoryHealthHandler handles the get_memory_health tool
func GetMemoryHealthHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		health, err := ctx.Memories.Health(c)
		if err != nil {
			return ctx.errorResult("get_memory_health", err)
		}
		return jsonResult(health)
	}
}
