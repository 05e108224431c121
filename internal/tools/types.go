// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package tools exposes the memory system as MCP tools. Every handler
// returns a JSON document on success and an error result with a readable
// message on failure.
package tools

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cognitivecomputations/agi-mcp-server/internal/cluster"
	"github.com/cognitivecomputations/agi-mcp-server/internal/graph"
	"github.com/cognitivecomputations/agi-mcp-server/internal/history"
	"github.com/cognitivecomputations/agi-mcp-server/internal/lifecycle"
	"github.com/cognitivecomputations/agi-mcp-server/internal/memerr"
	"github.com/cognitivecomputations/agi-mcp-server/internal/memory"
	"github.com/cognitivecomputations/agi-mcp-server/internal/search"
	"github.com/cognitivecomputations/agi-mcp-server/internal/working"
	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"
)

// ToolContext holds shared dependencies for all tools
type ToolContext struct {
	Memories  *memory.Store
	Search    *search.Engine
	Graph     *graph.Manager
	Clusters  *cluster.Engine
	Working   *working.Store
	Lifecycle *lifecycle.Manager
	History   *history.Log
	Logger    *zap.Logger

	// ArchiveDefaults and PruneDefaults fill criteria the caller omits.
	// Zero values fall back to the lifecycle package defaults.
	ArchiveDefaults lifecycle.ArchiveCriteria
	PruneDefaults   lifecycle.PruneCriteria
}

// jsonResult encodes v as the text content of a tool result
func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}

// errorResult turns err into an error result. Storage failures are
// logged; caller mistakes are not.
func (tc *ToolContext) errorResult(tool string, err error) (*mcp.CallToolResult, error) {
	switch {
	case errors.Is(err, memerr.ErrValidation), errors.Is(err, memerr.ErrNotFound):
		return mcp.NewToolResultError(err.Error()), nil
	case errors.Is(err, memerr.ErrUnavailable):
		return mcp.NewToolResultError(err.Error()), nil
	case errors.Is(err, memerr.ErrTransient):
		tc.Logger.Warn("tool failed with transient error", zap.String("tool", tool), zap.Error(err))
		return mcp.NewToolResultError(fmt.Sprintf("temporary storage failure, retry the call: %v", err)), nil
	default:
		tc.Logger.Error("tool failed", zap.String("tool", tool), zap.Error(err))
		return mcp.NewToolResultError(err.Error()), nil
	}
}

// argEmbedding reads a numeric array argument as a vector
func argEmbedding(args map[string]interface{}, key string, required bool) ([]float32, error) {
	if raw, ok := args[key]; (!ok || raw == nil) && required {
		return nil, fmt.Errorf("required argument %q not found", key)
	}
	values, err := argFloats(args, key)
	if err != nil || values == nil {
		return nil, err
	}
	vec := make([]float32, len(values))
	for i, f := range values {
		vec[i] = float32(f)
	}
	return vec, nil
}

// argFloats reads an optional numeric array argument
func argFloats(args map[string]interface{}, key string) ([]float64, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return nil, nil
	}
	items, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("argument %q must be an array of numbers", key)
	}
	out := make([]float64, len(items))
	for i, item := range items {
		f, ok := toFloat(item)
		if !ok {
			return nil, fmt.Errorf("argument %q element %d is not a number", key, i)
		}
		out[i] = f
	}
	return out, nil
}

// argStrings reads a string array argument
func argStrings(args map[string]interface{}, key string) ([]string, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return nil, nil
	}
	items, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("argument %q must be an array of strings", key)
	}
	out := make([]string, 0, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("argument %q element %d is not a string", key, i)
		}
		out = append(out, s)
	}
	return out, nil
}

// argObject reads an object argument
func argObject(args map[string]interface{}, key string) (map[string]interface{}, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return nil, nil
	}
	obj, ok := raw.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("argument %q must be an object", key)
	}
	return obj, nil
}

// argFloatPtr reads an optional number argument
func argFloatPtr(args map[string]interface{}, key string) (*float64, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return nil, nil
	}
	f, ok := toFloat(raw)
	if !ok {
		return nil, fmt.Errorf("argument %q must be a number", key)
	}
	return &f, nil
}

// argTime reads an optional RFC 3339 timestamp argument
func argTime(args map[string]interface{}, key string) (*time.Time, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return nil, nil
	}
	s, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("argument %q must be an RFC 3339 timestamp", key)
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, fmt.Errorf("argument %q must be an RFC 3339 timestamp: %v", key, err)
	}
	return &t, nil
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// validationError marks a malformed argument
func validationError(tool string, err error) error {
	return memerr.Validation(tool, "%v", err)
}
