// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package tools

import (
	"context"

	"github.com/cognitivecomputations/agi-mcp-server/internal/search"
	"github.com/mark3labs/mcp-go/mcp"
)

// SearchResponse wraps search results
type SearchResponse struct {
	Count   int             `json:"count"`
	Results []search.Result `json:"results"`
}

func searchResponse(results []search.Result) SearchResponse {
	if results == nil {
		results = []search.Result{}
	}
	return SearchResponse{Count: len(results), Results: results}
}

// NewSearchSimilarityTool creates the search_memories_similarity tool
func NewSearchSimilarityTool() mcp.Tool {
	return mcp.NewTool("search_memories_similarity",
		mcp.WithDescription("Find active memories whose embedding is similar to the query embedding."),
		mcp.WithArray("embedding",
			mcp.Required(),
			mcp.Items(map[string]interface{}{"type": "number"}),
			mcp.Description("Query embedding of the configured dimension"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results (default: 10)"),
		),
		mcp.WithNumber("threshold",
			mcp.Description("Minimum cosine similarity in [0,1] (default: 0.7)"),
			mcp.Min(0),
			mcp.Max(1),
		),
	)
}

// SearchSimilarityHandler handles the search_memories_similarity tool
func SearchSimilarityHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		embedding, err := argEmbedding(request.GetArguments(), "embedding", true)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		results, err := ctx.Search.Similarity(c, embedding,
			request.GetInt("limit", search.DefaultLimit),
			request.GetFloat("threshold", search.DefaultSimilarityThreshold))
		if err != nil {
			return ctx.errorResult("search_memories_similarity", err)
		}
		return jsonResult(searchResponse(results))
	}
}

// NewSearchTextTool creates the search_memories_text tool
func NewSearchTextTool() mcp.Tool {
	return mcp.NewTool("search_memories_text",
		mcp.WithDescription("Full-text search over active memories, ranked by text score."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results (default: 10)"),
		),
	)
}

// SearchTextHandler handles the search_memories_text tool
func SearchTextHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := request.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		results, err := ctx.Search.Text(c, query, request.GetInt("limit", search.DefaultLimit))
		if err != nil {
			return ctx.errorResult("search_memories_text", err)
		}
		return jsonResult(searchResponse(results))
	}
}

// NewSearchAdvancedTool creates the search_memories_advanced tool
func NewSearchAdvancedTool() mcp.Tool {
	return mcp.NewTool("search_memories_advanced",
		mcp.WithDescription("Search active memories by any combination of text, embedding, type, importance and creation date."),
		mcp.WithString("text_query",
			mcp.Description("Full-text query"),
		),
		mcp.WithArray("embedding",
			mcp.Items(map[string]interface{}{"type": "number"}),
			mcp.Description("Query embedding"),
		),
		mcp.WithNumber("similarity_threshold",
			mcp.Description("Minimum cosine similarity when an embedding is given; without it the embedding only ranks results"),
			mcp.Min(0),
			mcp.Max(1),
		),
		mcp.WithArray("memory_types",
			mcp.Items(map[string]interface{}{"type": "string"}),
			mcp.Description("Restrict to these memory types"),
		),
		mcp.WithArray("importance_range",
			mcp.Items(map[string]interface{}{"type": "number"}),
			mcp.Description("Inclusive [min, max] importance (default: [0, 1])"),
		),
		mcp.WithString("start_date",
			mcp.Description("Earliest creation time, RFC 3339"),
		),
		mcp.WithString("end_date",
			mcp.Description("Latest creation time, RFC 3339"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results (default: 10)"),
		),
	)
}

// SearchAdvancedHandler handles the search_memories_advanced tool
func SearchAdvancedHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		const tool = "search_memories_advanced"

		criteria, err := advancedCriteria(request)
		if err != nil {
			return ctx.errorResult(tool, validationError(tool, err))
		}

		results, err := ctx.Search.Advanced(c, criteria)
		if err != nil {
			return ctx.errorResult(tool, err)
		}
		return jsonResult(searchResponse(results))
	}
}

func advancedCriteria(request mcp.CallToolRequest) (search.Criteria, error) {
	args := request.GetArguments()
	criteria := search.Criteria{
		TextQuery: request.GetString("text_query", ""),
		Limit:     request.GetInt("limit", search.DefaultLimit),
	}

	var err error
	if criteria.Embedding, err = argEmbedding(args, "embedding", false); err != nil {
		return criteria, err
	}
	if criteria.SimilarityThreshold, err = argFloatPtr(args, "similarity_threshold"); err != nil {
		return criteria, err
	}
	if criteria.Types, err = argStrings(args, "memory_types"); err != nil {
		return criteria, err
	}
	if criteria.ImportanceRange, err = argFloats(args, "importance_range"); err != nil {
		return criteria, err
	}
	if criteria.DateRange.Start, err = argTime(args, "start_date"); err != nil {
		return criteria, err
	}
	if criteria.DateRange.End, err = argTime(args, "end_date"); err != nil {
		return criteria, err
	}
	return criteria, nil
}
