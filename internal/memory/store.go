// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cognitivecomputations/agi-mcp-server/internal/database"
	"github.com/cognitivecomputations/agi-mcp-server/internal/embeddings"
	"github.com/cognitivecomputations/agi-mcp-server/internal/memerr"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultDecayRate is applied when a memory is created without one
const DefaultDecayRate = 0.01

// Ingestor receives the id of every newly committed memory. The cluster
// assigner implements it.
type Ingestor interface {
	Enqueue(memoryID string)
}

// Config holds store settings
type Config struct {
	Dimensions       int
	DefaultDecayRate float64
}

// Store owns memory records and their type extensions
type Store struct {
	db       *gorm.DB
	logger   *zap.Logger
	cfg      Config
	ingestor Ingestor
	now      func() time.Time
}

// NewStore creates a new memory store
func NewStore(db *gorm.DB, logger *zap.Logger, cfg Config) *Store {
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = embeddings.DefaultDimensions
	}
	if cfg.DefaultDecayRate <= 0 {
		cfg.DefaultDecayRate = DefaultDecayRate
	}
	return &Store{
		db:     db,
		logger: logger,
		cfg:    cfg,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithIngestor sets the hook notified after each create
func (s *Store) WithIngestor(i Ingestor) *Store {
	s.ingestor = i
	return s
}

// Dimensions returns the configured embedding width
func (s *Store) Dimensions() int {
	return s.cfg.Dimensions
}

// CreateParams holds the input for Create
type CreateParams struct {
	Type       string
	Content    string
	Embedding  []float32
	Importance float64
	// DecayRate overrides the default when positive. A "decayRate" or
	// "decay_rate" metadata key is honored as well.
	DecayRate float64
	Metadata  map[string]any
}

// Create inserts a memory and its type extension in one transaction,
// then hands the new id to the ingestor.
func (s *Store) Create(ctx context.Context, p CreateParams) (*database.Memory, error) {
	var mem *database.Memory
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		mem, err = s.CreateTx(tx, p)
		return err
	})
	if err != nil {
		return nil, memerr.FromDB("memory.Create", err)
	}

	s.Announce(mem.ID)
	return mem, nil
}

// CreateTx validates p and inserts the memory and its extension using
// tx. The ingestor is not notified; call Announce after commit.
func (s *Store) CreateTx(tx *gorm.DB, p CreateParams) (*database.Memory, error) {
	const op = "memory.Create"

	if !database.IsValidMemoryType(p.Type) {
		return nil, memerr.Validation(op, "unknown memory type %q, must be one of %s",
			p.Type, strings.Join(database.ValidMemoryTypes(), ", "))
	}
	if strings.TrimSpace(p.Content) == "" {
		return nil, memerr.Validation(op, "content is required")
	}
	if err := embeddings.CheckDimensions(p.Embedding, s.cfg.Dimensions); err != nil {
		return nil, memerr.Validation(op, "%v", err)
	}
	if p.Importance < 0 || p.Importance > 1 {
		return nil, memerr.Validation(op, "importance must be between 0 and 1, got %v", p.Importance)
	}

	decayRate, err := s.decayRate(p)
	if err != nil {
		return nil, memerr.Validation(op, "%v", err)
	}

	meta, err := DecodeMetadata(p.Type, p.Metadata)
	if err != nil {
		return nil, memerr.Validation(op, "%v", err)
	}

	now := s.now()
	mem := &database.Memory{
		ID:         uuid.NewString(),
		Type:       p.Type,
		Status:     database.StatusActive,
		Content:    p.Content,
		Embedding:  embeddings.Vector(p.Embedding),
		Importance: p.Importance,
		DecayRate:  decayRate,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	ext, err := extensionRow(meta, mem.ID, p.Content, now)
	if err != nil {
		return nil, memerr.Validation(op, "%v", err)
	}

	if err := tx.Omit(clause.Associations).Create(mem).Error; err != nil {
		return nil, fmt.Errorf("failed to create memory: %w", err)
	}
	if err := tx.Create(ext).Error; err != nil {
		return nil, fmt.Errorf("failed to create %s extension: %w", p.Type, err)
	}

	attachExtension(mem, ext)
	mem.RelevanceScore = Relevance(mem.Importance, mem.DecayRate, mem.CreatedAt, now)

	s.logger.Debug("memory created",
		zap.String("id", mem.ID),
		zap.String("type", mem.Type),
		zap.Float64("importance", mem.Importance))
	return mem, nil
}

// Announce hands a committed memory id to the ingestor, if any
func (s *Store) Announce(memoryID string) {
	if s.ingestor != nil {
		s.ingestor.Enqueue(memoryID)
	}
}

func (s *Store) decayRate(p CreateParams) (float64, error) {
	rate := s.cfg.DefaultDecayRate
	if p.DecayRate > 0 {
		rate = p.DecayRate
	}
	for _, key := range []string{"decayRate", "decay_rate"} {
		v, ok := p.Metadata[key]
		if !ok {
			continue
		}
		var f float64
		switch n := v.(type) {
		case float64:
			f = n
		case int:
			f = float64(n)
		case int64:
			f = float64(n)
		default:
			return 0, fmt.Errorf("%s must be a number", key)
		}
		if f > 0 {
			rate = f
		}
	}
	if rate < 0 {
		return 0, fmt.Errorf("decay rate must not be negative")
	}
	return rate, nil
}

// Get returns a memory with its type extension joined. Malformed and
// absent ids are both reported as not found.
func (s *Store) Get(ctx context.Context, id string) (*database.Memory, error) {
	const op = "memory.Get"

	if _, err := uuid.Parse(id); err != nil {
		return nil, memerr.NotFound(op, "memory", id)
	}

	var mem database.Memory
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&mem).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, memerr.NotFound(op, "memory", id)
		}
		return nil, memerr.FromDB(op, err)
	}

	if err := loadExtension(s.db.WithContext(ctx), &mem); err != nil {
		return nil, memerr.FromDB(op, err)
	}

	mem.RelevanceScore = Relevance(mem.Importance, mem.DecayRate, mem.CreatedAt, s.now())
	return &mem, nil
}

// Access records a read of the memory: access_count is incremented by the
// database and last_accessed set to now, then the refreshed row is returned.
func (s *Store) Access(ctx context.Context, id string) (*database.Memory, error) {
	const op = "memory.Access"

	if _, err := uuid.Parse(id); err != nil {
		return nil, memerr.NotFound(op, "memory", id)
	}

	result := s.db.WithContext(ctx).
		Model(&database.Memory{}).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"access_count":  gorm.Expr("access_count + ?", 1),
			"last_accessed": s.now(),
		})
	if result.Error != nil {
		return nil, memerr.FromDB(op, result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, memerr.NotFound(op, "memory", id)
	}

	return s.Get(ctx, id)
}

// loadExtension fills the extension pointer matching mem.Type
func loadExtension(db *gorm.DB, mem *database.Memory) error {
	var err error
	switch mem.Type {
	case database.MemoryTypeEpisodic:
		var ext database.EpisodicMemory
		if err = db.Where("memory_id = ?", mem.ID).First(&ext).Error; err == nil {
			mem.Episodic = &ext
		}
	case database.MemoryTypeSemantic:
		var ext database.SemanticMemory
		if err = db.Where("memory_id = ?", mem.ID).First(&ext).Error; err == nil {
			mem.Semantic = &ext
		}
	case database.MemoryTypeProcedural:
		var ext database.ProceduralMemory
		if err = db.Where("memory_id = ?", mem.ID).First(&ext).Error; err == nil {
			mem.Procedural = &ext
		}
	case database.MemoryTypeStrategic:
		var ext database.StrategicMemory
		if err = db.Where("memory_id = ?", mem.ID).First(&ext).Error; err == nil {
			mem.Strategic = &ext
		}
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return err
}
