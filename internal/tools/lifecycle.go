// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package tools

import (
	"context"

	"github.com/cognitivecomputations/agi-mcp-server/internal/lifecycle"
	"github.com/mark3labs/mcp-go/mcp"
)

// NewArchiveTool creates the archive_old_memories tool
func NewArchiveTool() mcp.Tool {
	return mcp.NewTool("archive_old_memories",
		mcp.WithDescription("Archive old, unimportant, rarely accessed active memories."),
		mcp.WithNumber("min_age_days",
			mcp.Description("Only memories at least this many days old (default: 365)"),
		),
		mcp.WithNumber("max_importance",
			mcp.Description("Only memories below this importance (default: 0.3)"),
			mcp.Min(0),
			mcp.Max(1),
		),
	)
}

// ArchiveHandler handles the archive_old_memories tool
func ArchiveHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		defaults := ctx.ArchiveDefaults
		if defaults == (lifecycle.ArchiveCriteria{}) {
			defaults = lifecycle.DefaultArchiveCriteria()
		}

		report, err := ctx.Lifecycle.Archive(c, lifecycle.ArchiveCriteria{
			MinAgeDays:    request.GetInt("min_age_days", defaults.MinAgeDays),
			MaxImportance: request.GetFloat("max_importance", defaults.MaxImportance),
		})
		if err != nil {
			return ctx.errorResult("archive_old_memories", err)
		}
		return jsonResult(report)
	}
}

// NewPruneTool creates the prune_memories tool
func NewPruneTool() mcp.Tool {
	return mcp.NewTool("prune_memories",
		mcp.WithDescription("Mark old, unimportant, rarely accessed memories of a given status as deleted."),
		mcp.WithNumber("max_age_days",
			mcp.Description("Only memories at least this many days old (default: 1095)"),
		),
		mcp.WithNumber("min_importance",
			mcp.Description("Only memories below this importance (default: 0.1)"),
			mcp.Min(0),
			mcp.Max(1),
		),
		mcp.WithNumber("max_access_count",
			mcp.Description("Only memories accessed at most this many times (default: 2)"),
		),
		mcp.WithString("status",
			mcp.Description("Only memories with this status (default: archived)"),
		),
	)
}

// PruneHandler handles the prune_memories tool
func PruneHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		defaults := ctx.PruneDefaults
		if defaults == (lifecycle.PruneCriteria{}) {
			defaults = lifecycle.DefaultPruneCriteria()
		}

		report, err := ctx.Lifecycle.Prune(c, lifecycle.PruneCriteria{
			MaxAgeDays:     request.GetInt("max_age_days", defaults.MaxAgeDays),
			MinImportance:  request.GetFloat("min_importance", defaults.MinImportance),
			MaxAccessCount: int64(request.GetInt("max_access_count", int(defaults.MaxAccessCount))),
			Status:         request.GetString("status", defaults.Status),
		})
		if err != nil {
			return ctx.errorResult("prune_memories", err)
		}
		return jsonResult(report)
	}
}

// NewGetHistoryTool creates the get_memory_history tool
func NewGetHistoryTool() mcp.Tool {
	return mcp.NewTool("get_memory_history",
		mcp.WithDescription("List the recorded changes of a memory, newest first."),
		mcp.WithString("memory_id",
			mcp.Required(),
			mcp.Description("Memory UUID"),
		),
	)
}

// GetHistoryHandler handles the get_memory_history tool
func GetHistoryHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString("memory_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		changes, err := ctx.History.List(c, id)
		if err != nil {
			return ctx.errorResult("get_memory_history", err)
		}
		return jsonResult(changes)
	}
}

// NewTrackChangeTool creates the track_memory_change tool
func NewTrackChangeTool() mcp.Tool {
	return mcp.NewTool("track_memory_change",
		mcp.WithDescription("Record an ad-hoc change event on a memory's history."),
		mcp.WithString("memory_id",
			mcp.Required(),
			mcp.Description("Memory UUID"),
		),
		mcp.WithString("change_type",
			mcp.Required(),
			mcp.Description("Free-form event type, e.g. reflection"),
		),
		mcp.WithString("description",
			mcp.Description("What changed"),
		),
		mcp.WithObject("metadata",
			mcp.Description("Additional event details"),
		),
	)
}

// TrackChangeHandler handles the track_memory_change tool
func TrackChangeHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString("memory_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		changeType, err := request.RequireString("change_type")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		metadata, err := argObject(request.GetArguments(), "metadata")
		if err != nil {
			return ctx.errorResult("track_memory_change", validationError("track_memory_change", err))
		}

		if _, err := ctx.Memories.Get(c, id); err != nil {
			return ctx.errorResult("track_memory_change", err)
		}

		change := ctx.History.Track(c, id, changeType, request.GetString("description", ""), metadata)
		if change == nil {
			return jsonResult(map[string]interface{}{"tracked": false})
		}
		return jsonResult(change)
	}
}
