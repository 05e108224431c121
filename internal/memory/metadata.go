// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package memory

import (
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/cognitivecomputations/agi-mcp-server/internal/database"
	"github.com/go-viper/mapstructure/v2"
	"gorm.io/datatypes"
)

// Metadata is the type-specific payload of a memory. It is a closed
// union: one variant per memory type.
type Metadata interface {
	MemoryType() string
}

// EpisodicMetadata describes an experienced event
type EpisodicMetadata struct {
	ActionTaken        any        `mapstructure:"action_taken"`
	Context            any        `mapstructure:"context"`
	Result             any        `mapstructure:"result"`
	EmotionalValence   float64    `mapstructure:"emotional_valence"`
	VerificationStatus *bool      `mapstructure:"verification_status"`
	EventTime          *time.Time `mapstructure:"event_time"`
}

// SemanticMetadata describes a fact or concept
type SemanticMetadata struct {
	Confidence       *float64   `mapstructure:"confidence"`
	LastValidated    *time.Time `mapstructure:"last_validated"`
	SourceReferences any        `mapstructure:"source_references"`
	Contradictions   any        `mapstructure:"contradictions"`
	Category         []string   `mapstructure:"category"`
	RelatedConcepts  []string   `mapstructure:"related_concepts"`
}

// ProceduralMetadata describes a skill
type ProceduralMetadata struct {
	Steps           any            `mapstructure:"steps"`
	Prerequisites   any            `mapstructure:"prerequisites"`
	SuccessCount    int64          `mapstructure:"success_count"`
	TotalAttempts   int64          `mapstructure:"total_attempts"`
	AverageDuration *time.Duration `mapstructure:"average_duration"`
	FailurePoints   any            `mapstructure:"failure_points"`
}

// StrategicMetadata describes a learned pattern
type StrategicMetadata struct {
	PatternDescription   string   `mapstructure:"pattern_description"`
	ConfidenceScore      *float64 `mapstructure:"confidence_score"`
	SupportingEvidence   any      `mapstructure:"supporting_evidence"`
	SuccessMetrics       any      `mapstructure:"success_metrics"`
	AdaptationHistory    any      `mapstructure:"adaptation_history"`
	ContextApplicability any      `mapstructure:"context_applicability"`
}

func (EpisodicMetadata) MemoryType() string   { return database.MemoryTypeEpisodic }
func (SemanticMetadata) MemoryType() string   { return database.MemoryTypeSemantic }
func (ProceduralMetadata) MemoryType() string { return database.MemoryTypeProcedural }
func (StrategicMetadata) MemoryType() string  { return database.MemoryTypeStrategic }

// Defaults for extension fields the caller leaves unset
const (
	DefaultSemanticConfidence  = 0.8
	DefaultStrategicConfidence = 0.7
)

// DecodeMetadata decodes a snake_case key map into the variant for
// memType. Unknown types and malformed values are validation failures;
// unknown keys are ignored.
func DecodeMetadata(memType string, raw map[string]any) (Metadata, error) {
	var out Metadata
	switch memType {
	case database.MemoryTypeEpisodic:
		out = &EpisodicMetadata{}
	case database.MemoryTypeSemantic:
		out = &SemanticMetadata{}
	case database.MemoryTypeProcedural:
		out = &ProceduralMetadata{}
	case database.MemoryTypeStrategic:
		out = &StrategicMetadata{}
	default:
		return nil, fmt.Errorf("unknown memory type %q", memType)
	}

	if len(raw) > 0 {
		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:           out,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeHookFunc(time.RFC3339),
				mapstructure.StringToTimeDurationHookFunc(),
				secondsToDurationHook,
			),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create metadata decoder: %w", err)
		}
		if err := decoder.Decode(raw); err != nil {
			return nil, fmt.Errorf("invalid %s metadata: %w", memType, err)
		}
	}

	if err := validateMetadata(out); err != nil {
		return nil, err
	}
	return out, nil
}

// secondsToDurationHook reads bare numbers as seconds
func secondsToDurationHook(from, to reflect.Type, data any) (any, error) {
	if to != reflect.TypeOf(time.Duration(0)) {
		return data, nil
	}
	switch v := data.(type) {
	case float64:
		return time.Duration(v * float64(time.Second)), nil
	case int:
		return time.Duration(v) * time.Second, nil
	case int64:
		return time.Duration(v) * time.Second, nil
	}
	return data, nil
}

func validateMetadata(m Metadata) error {
	switch v := m.(type) {
	case *EpisodicMetadata:
		if v.EmotionalValence < -1 || v.EmotionalValence > 1 {
			return fmt.Errorf("emotional_valence must be between -1 and 1, got %v", v.EmotionalValence)
		}
	case *SemanticMetadata:
		if v.Confidence != nil && (*v.Confidence < 0 || *v.Confidence > 1) {
			return fmt.Errorf("confidence must be between 0 and 1, got %v", *v.Confidence)
		}
	case *ProceduralMetadata:
		if v.SuccessCount < 0 || v.TotalAttempts < 0 {
			return fmt.Errorf("success_count and total_attempts must not be negative")
		}
		if v.SuccessCount > v.TotalAttempts {
			return fmt.Errorf("success_count (%d) exceeds total_attempts (%d)", v.SuccessCount, v.TotalAttempts)
		}
	case *StrategicMetadata:
		if v.ConfidenceScore != nil && (*v.ConfidenceScore < 0 || *v.ConfidenceScore > 1) {
			return fmt.Errorf("confidence_score must be between 0 and 1, got %v", *v.ConfidenceScore)
		}
	}
	return nil
}

// extensionRow builds the extension model for a decoded payload, filling
// defaults for unset fields.
func extensionRow(m Metadata, memoryID, content string, now time.Time) (any, error) {
	switch v := m.(type) {
	case *EpisodicMetadata:
		row := &database.EpisodicMemory{
			MemoryID:           memoryID,
			EmotionalValence:   v.EmotionalValence,
			VerificationStatus: v.VerificationStatus,
			EventTime:          now,
		}
		if v.EventTime != nil {
			row.EventTime = v.EventTime.UTC()
		}
		var err error
		if row.ActionTaken, err = toJSON(v.ActionTaken); err != nil {
			return nil, err
		}
		if row.Context, err = toJSON(v.Context); err != nil {
			return nil, err
		}
		if row.Result, err = toJSON(v.Result); err != nil {
			return nil, err
		}
		return row, nil

	case *SemanticMetadata:
		row := &database.SemanticMemory{
			MemoryID:        memoryID,
			Confidence:      DefaultSemanticConfidence,
			LastValidated:   v.LastValidated,
			Category:        nonNil(v.Category),
			RelatedConcepts: nonNil(v.RelatedConcepts),
		}
		if v.Confidence != nil {
			row.Confidence = *v.Confidence
		}
		var err error
		if row.SourceReferences, err = toJSON(v.SourceReferences); err != nil {
			return nil, err
		}
		if row.Contradictions, err = toJSON(v.Contradictions); err != nil {
			return nil, err
		}
		return row, nil

	case *ProceduralMetadata:
		row := &database.ProceduralMemory{
			MemoryID:        memoryID,
			SuccessCount:    v.SuccessCount,
			TotalAttempts:   v.TotalAttempts,
			AverageDuration: v.AverageDuration,
			SuccessRate:     database.SuccessRate(v.SuccessCount, v.TotalAttempts),
		}
		var err error
		if row.Steps, err = toJSONOr(v.Steps, "{}"); err != nil {
			return nil, err
		}
		if row.Prerequisites, err = toJSONOr(v.Prerequisites, "{}"); err != nil {
			return nil, err
		}
		if row.FailurePoints, err = toJSON(v.FailurePoints); err != nil {
			return nil, err
		}
		return row, nil

	case *StrategicMetadata:
		row := &database.StrategicMemory{
			MemoryID:           memoryID,
			PatternDescription: v.PatternDescription,
			ConfidenceScore:    DefaultStrategicConfidence,
		}
		if row.PatternDescription == "" {
			row.PatternDescription = content
		}
		if v.ConfidenceScore != nil {
			row.ConfidenceScore = *v.ConfidenceScore
		}
		var err error
		if row.SupportingEvidence, err = toJSON(v.SupportingEvidence); err != nil {
			return nil, err
		}
		if row.SuccessMetrics, err = toJSON(v.SuccessMetrics); err != nil {
			return nil, err
		}
		if row.AdaptationHistory, err = toJSON(v.AdaptationHistory); err != nil {
			return nil, err
		}
		if row.ContextApplicability, err = toJSON(v.ContextApplicability); err != nil {
			return nil, err
		}
		return row, nil
	}

	return nil, fmt.Errorf("unsupported metadata %T", m)
}

// attachExtension sets the matching extension pointer on mem
func attachExtension(mem *database.Memory, ext any) {
	switch e := ext.(type) {
	case *database.EpisodicMemory:
		mem.Episodic = e
	case *database.SemanticMemory:
		mem.Semantic = e
	case *database.ProceduralMemory:
		mem.Procedural = e
	case *database.StrategicMemory:
		mem.Strategic = e
	}
}

func toJSON(v any) (datatypes.JSON, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode metadata field: %w", err)
	}
	return datatypes.JSON(b), nil
}

func toJSONOr(v any, fallback string) (datatypes.JSON, error) {
	if v == nil {
		return datatypes.JSON(fallback), nil
	}
	return toJSON(v)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
