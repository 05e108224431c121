// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package tools

import (
	"context"
	"strings"

	"github.com/cognitivecomputations/agi-mcp-server/internal/database"
	"github.com/cognitivecomputations/agi-mcp-server/internal/graph"
	"github.com/mark3labs/mcp-go/mcp"
)

// NewCreateRelationshipTool creates the create_memory_relationship tool
func NewCreateRelationshipTool() mcp.Tool {
	return mcp.NewTool("create_memory_relationship",
		mcp.WithDescription("Create a typed, weighted edge from one memory to another."),
		mcp.WithString("from_memory_id",
			mcp.Required(),
			mcp.Description("Source memory UUID"),
		),
		mcp.WithString("to_memory_id",
			mcp.Required(),
			mcp.Description("Target memory UUID"),
		),
		mcp.WithString("relationship_type",
			mcp.Required(),
			mcp.Enum(database.ValidRelationshipTypes()...),
			mcp.Description("Relationship type: "+strings.Join(database.ValidRelationshipTypes(), ", ")),
		),
		mcp.WithNumber("strength",
			mcp.Description("Strength in [0,1] (default: 0.5)"),
			mcp.Min(0),
			mcp.Max(1),
		),
		mcp.WithObject("properties",
			mcp.Description("Free-form edge properties"),
		),
	)
}

// CreateRelationshipHandler handles the create_memory_relationship tool
func CreateRelationshipHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		from, err := request.RequireString("from_memory_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		to, err := request.RequireString("to_memory_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		relType, err := request.RequireString("relationship_type")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		args := request.GetArguments()
		strength, err := argFloatPtr(args, "strength")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		properties, err := argObject(args, "properties")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		rel, err := ctx.Graph.Create(c, graph.CreateParams{
			From:       from,
			To:         to,
			Type:       relType,
			Strength:   strength,
			Properties: properties,
		})
		if err != nil {
			return ctx.errorResult("create_memory_relationship", err)
		}
		if rel == nil {
			return jsonResult(map[string]interface{}{"created": false, "reason": "the memory graph is not available"})
		}
		return jsonResult(rel)
	}
}

// NewGetRelationshipsTool creates the get_memory_relationships tool
func NewGetRelationshipsTool() mcp.Tool {
	return mcp.NewTool("get_memory_relationships",
		mcp.WithDescription("List the edges touching a memory, strongest first."),
		mcp.WithString("memory_id",
			mcp.Required(),
			mcp.Description("Memory UUID"),
		),
		mcp.WithString("direction",
			mcp.Enum(graph.DirectionOutgoing, graph.DirectionIncoming, graph.DirectionBoth),
			mcp.Description("outgoing, incoming or both (default: both)"),
		),
		mcp.WithString("relationship_type",
			mcp.Description("Only return edges of this type"),
		),
	)
}

// GetRelationshipsHandler handles the get_memory_relationships tool
func GetRelationshipsHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString("memory_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		edges, err := ctx.Graph.Query(c, id,
			request.GetString("direction", graph.DirectionBoth),
			request.GetString("relationship_type", ""))
		if err != nil {
			return ctx.errorResult("get_memory_relationships", err)
		}
		return jsonResult(edges)
	}
}

// NewFindRelatedTool creates the find_related_memories tool
func NewFindRelatedTool() mcp.Tool {
	return mcp.NewTool("find_related_memories",
		mcp.WithDescription("Walk outgoing edges from a memory and return reachable active memories with the path strength."),
		mcp.WithString("memory_id",
			mcp.Required(),
			mcp.Description("Seed memory UUID"),
		),
		mcp.WithNumber("max_depth",
			mcp.Description("Maximum number of hops, between 1 and 5 (default: 2)"),
			mcp.Min(1),
			mcp.Max(graph.MaxDepthLimit),
		),
		mcp.WithNumber("min_strength",
			mcp.Description("Minimum product of edge strengths along a path (default: 0.3)"),
			mcp.Min(0),
			mcp.Max(1),
		),
	)
}

// FindRelatedHandler handles the find_related_memories tool
func FindRelatedHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString("memory_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		related, err := ctx.Graph.Traverse(c, id,
			request.GetInt("max_depth", graph.DefaultMaxDepth),
			request.GetFloat("min_strength", graph.DefaultMinStrength))
		if err != nil {
			return ctx.errorResult("find_related_memories", err)
		}
		return jsonResult(related)
	}
}
