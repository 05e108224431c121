// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package tools

import (
	"github.com/mark3labs/mcp-go/server"
)

// All returns every memory tool bound to ctx
func All(ctx *ToolContext) []server.ServerTool {
	return []server.ServerTool{
		{Tool: NewCreateMemoryTool(), Handler: CreateMemoryHandler(ctx)},
		{Tool: NewGetMemoryTool(), Handler: GetMemoryHandler(ctx)},
		{Tool: NewAccessMemoryTool(), Handler: AccessMemoryHandler(ctx)},
		{Tool: NewGetMemoryHealthTool(), Handler: GetMemoryHealthHandler(ctx)},

		{Tool: NewSearchSimilarityTool(), Handler: SearchSimilarityHandler(ctx)},
		{Tool: NewSearchTextTool(), Handler: SearchTextHandler(ctx)},
		{Tool: NewSearchAdvancedTool(), Handler: SearchAdvancedHandler(ctx)},

		{Tool: NewCreateClusterTool(), Handler: CreateClusterHandler(ctx)},
		{Tool: NewGetClustersTool(), Handler: GetClustersHandler(ctx)},
		{Tool: NewActivateClusterTool(), Handler: ActivateClusterHandler(ctx)},
		{Tool: NewGetClusterInsightsTool(), Handler: GetClusterInsightsHandler(ctx)},
		{Tool: NewFindSimilarClustersTool(), Handler: FindSimilarClustersHandler(ctx)},
		{Tool: NewRecalculateCentroidTool(), Handler: RecalculateCentroidHandler(ctx)},
		{Tool: NewLinkClustersTool(), Handler: LinkClustersHandler(ctx)},
		{Tool: NewGetActiveThemesTool(), Handler: GetActiveThemesHandler(ctx)},

		{Tool: NewCreateRelationshipTool(), Handler: CreateRelationshipHandler(ctx)},
		{Tool: NewGetRelationshipsTool(), Handler: GetRelationshipsHandler(ctx)},
		{Tool: NewFindRelatedTool(), Handler: FindRelatedHandler(ctx)},

		{Tool: NewCreateWorkingMemoryTool(), Handler: CreateWorkingMemoryHandler(ctx)},
		{Tool: NewGetWorkingMemoriesTool(), Handler: GetWorkingMemoriesHandler(ctx)},
		{Tool: NewCleanupWorkingMemoryTool(), Handler: CleanupWorkingMemoryHandler(ctx)},
		{Tool: NewConsolidateTool(), Handler: ConsolidateHandler(ctx)},

		{Tool: NewArchiveTool(), Handler: ArchiveHandler(ctx)},
		{Tool: NewPruneTool(), Handler: PruneHandler(ctx)},
		{Tool: NewGetHistoryTool(), Handler: GetHistoryHandler(ctx)},
		{Tool: NewTrackChangeTool(), Handler: TrackChangeHandler(ctx)},
	}
}
