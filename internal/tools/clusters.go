// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package tools

import (
	"context"
	"strings"

	"github.com/cognitivecomputations/agi-mcp-server/internal/cluster"
	"github.com/cognitivecomputations/agi-mcp-server/internal/database"
	"github.com/mark3labs/mcp-go/mcp"
)

// NewCreateClusterTool creates the create_memory_cluster tool
func NewCreateClusterTool() mcp.Tool {
	return mcp.NewTool("create_memory_cluster",
		mcp.WithDescription("Create a thematic memory cluster. New memories are assigned to it by centroid similarity or keyword match."),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Cluster name"),
		),
		mcp.WithString("cluster_type",
			mcp.Required(),
			mcp.Enum(database.ValidClusterTypes()...),
			mcp.Description("Cluster type: "+strings.Join(database.ValidClusterTypes(), ", ")),
		),
		mcp.WithString("description",
			mcp.Description("What the cluster groups"),
		),
		mcp.WithArray("keywords",
			mcp.Items(map[string]interface{}{"type": "string"}),
			mcp.Description("Keywords matched against memory content"),
		),
		mcp.WithObject("emotional_signature",
			mcp.Description("Free-form emotional profile of the cluster"),
		),
	)
}

// CreateClusterHandler handles the create_memory_cluster tool
func CreateClusterHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := request.RequireString("name")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		clusterType, err := request.RequireString("cluster_type")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		args := request.GetArguments()
		keywords, err := argStrings(args, "keywords")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		signature, err := argObject(args, "emotional_signature")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		created, err := ctx.Clusters.Create(c, cluster.CreateParams{
			Name:               name,
			Type:               clusterType,
			Description:        request.GetString("description", ""),
			Keywords:           keywords,
			EmotionalSignature: signature,
		})
		if err != nil {
			return ctx.errorResult("create_memory_cluster", err)
		}
		return jsonResult(created)
	}
}

// NewGetClustersTool creates the get_memory_clusters tool
func NewGetClustersTool() mcp.Tool {
	return mcp.NewTool("get_memory_clusters",
		mcp.WithDescription("List clusters, newest first, with their member ids."),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of clusters (default: 20)"),
		),
	)
}

// GetClustersHandler handles the get_memory_clusters tool
func GetClustersHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		clusters, err := ctx.Clusters.List(c, request.GetInt("limit", cluster.DefaultListLimit))
		if err != nil {
			return ctx.errorResult("get_memory_clusters", err)
		}
		return jsonResult(clusters)
	}
}

// NewActivateClusterTool creates the activate_cluster tool
func NewActivateClusterTool() mcp.Tool {
	return mcp.NewTool("activate_cluster",
		mcp.WithDescription("Activate a cluster, recording the activation and returning its strongest active members."),
		mcp.WithString("cluster_id",
			mcp.Required(),
			mcp.Description("Cluster UUID"),
		),
		mcp.WithString("context",
			mcp.Description("What triggered the activation"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of members returned (default: 10)"),
		),
	)
}

// ActivateClusterHandler handles the activate_cluster tool
func ActivateClusterHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString("cluster_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var activationContext *string
		if s := request.GetString("context", ""); s != "" {
			activationContext = &s
		}

		activation, err := ctx.Clusters.Activate(c, id, activationContext,
			request.GetInt("limit", cluster.DefaultActivateLimit))
		if err != nil {
			return ctx.errorResult("activate_cluster", err)
		}
		for i := range activation.Members {
			activation.Members[i].Embedding = nil
		}
		return jsonResult(activation)
	}
}

// NewGetClusterInsightsTool creates the get_cluster_insights tool
func NewGetClusterInsightsTool() mcp.Tool {
	return mcp.NewTool("get_cluster_insights",
		mcp.WithDescription("Aggregate statistics for a cluster and the clusters linked to it."),
		mcp.WithString("cluster_id",
			mcp.Required(),
			mcp.Description("Cluster UUID"),
		),
	)
}

// GetClusterInsightsHandler handles the get_cluster_insights tool
func GetClusterInsightsHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString("cluster_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		insights, err := ctx.Clusters.Insights(c, id)
		if err != nil {
			return ctx.errorResult("get_cluster_insights", err)
		}
		return jsonResult(insights)
	}
}

// NewFindSimilarClustersTool creates the find_similar_clusters tool
func NewFindSimilarClustersTool() mcp.Tool {
	return mcp.NewTool("find_similar_clusters",
		mcp.WithDescription("Find clusters whose centroid is similar to the given cluster's centroid."),
		mcp.WithString("cluster_id",
			mcp.Required(),
			mcp.Description("Cluster UUID"),
		),
		mcp.WithNumber("threshold",
			mcp.Description("Minimum centroid similarity (default: 0.7)"),
		),
	)
}

// FindSimilarClustersHandler handles the find_similar_clusters tool
func FindSimilarClustersHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString("cluster_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		similar, err := ctx.Clusters.FindSimilar(c, id, request.GetFloat("threshold", cluster.DefaultSimilarThreshold))
		if err != nil {
			return ctx.errorResult("find_similar_clusters", err)
		}
		return jsonResult(similar)
	}
}

// NewRecalculateCentroidTool creates the recalculate_cluster_centroid tool
func NewRecalculateCentroidTool() mcp.Tool {
	return mcp.NewTool("recalculate_cluster_centroid",
		mcp.WithDescription("Recompute a cluster's centroid, importance and coherence from its active members."),
		mcp.WithString("cluster_id",
			mcp.Required(),
			mcp.Description("Cluster UUID"),
		),
	)
}

// RecalculateCentroidHandler handles the recalculate_cluster_centroid tool
func RecalculateCentroidHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString("cluster_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		updated, err := ctx.Clusters.RecalculateCentroid(c, id)
		if err != nil {
			return ctx.errorResult("recalculate_cluster_centroid", err)
		}
		return jsonResult(updated)
	}
}

// NewLinkClustersTool creates the link_clusters tool
func NewLinkClustersTool() mcp.Tool {
	return mcp.NewTool("link_clusters",
		mcp.WithDescription("Create or replace a typed relationship between two clusters."),
		mcp.WithString("from_cluster_id",
			mcp.Required(),
			mcp.Description("Source cluster UUID"),
		),
		mcp.WithString("to_cluster_id",
			mcp.Required(),
			mcp.Description("Target cluster UUID"),
		),
		mcp.WithString("relationship_type",
			mcp.Required(),
			mcp.Description("Relationship label, e.g. relates_to or contradicts"),
		),
		mcp.WithNumber("strength",
			mcp.Description("Strength in [0,1] (default: 0.5)"),
			mcp.Min(0),
			mcp.Max(1),
		),
		mcp.WithArray("evidence_memories",
			mcp.Items(map[string]interface{}{"type": "string"}),
			mcp.Description("Memory ids supporting the link"),
		),
	)
}

// LinkClustersHandler handles the link_clusters tool
func LinkClustersHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		const tool = "link_clusters"

		from, err := request.RequireString("from_cluster_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		to, err := request.RequireString("to_cluster_id")
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
		evidence, err := argStrings(args, "evidence_memories")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		link, err := ctx.Clusters.Link(c, cluster.LinkParams{
			From:     from,
			To:       to,
			Type:     relType,
			Strength: strength,
			Evidence: evidence,
		})
		if err != nil {
			return ctx.errorResult(tool, err)
		}
		if link == nil {
			return jsonResult(map[string]interface{}{"linked": false, "reason": "cluster analytics is not available"})
		}
		return jsonResult(link)
	}
}

// NewGetActiveThemesTool creates the get_active_themes tool
func NewGetActiveThemesTool() mcp.Tool {
	return mcp.NewTool("get_active_themes",
		mcp.WithDescription("List clusters activated recently, most activated first."),
		mcp.WithNumber("days",
			mcp.Description("Look-back window in days (default: 7)"),
		),
	)
}

// GetActiveThemesHandler handles the get_active_themes tool
func GetActiveThemesHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		themes, err := ctx.Clusters.ActiveThemes(c, request.GetInt("days", cluster.DefaultThemeDays))
		if err != nil {
			return ctx.errorResult("get_active_themes", err)
		}
		return jsonResult(themes)
	}
}
