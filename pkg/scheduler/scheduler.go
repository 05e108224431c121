// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/cognitivecomputations/agi-mcp-server/internal/database"
	"github.com/cognitivecomputations/agi-mcp-server/internal/lifecycle"
	"github.com/cognitivecomputations/agi-mcp-server/internal/memerr"
	"go.uber.org/zap"
)

const (
	retryAttempts = 3
	retryDelay    = time.Second
)

// Cleaner removes expired working memories
type Cleaner interface {
	Cleanup(ctx context.Context) ([]database.WorkingMemory, error)
}

// Sweeper archives and prunes long-term memories
type Sweeper interface {
	Archive(ctx context.Context, c lifecycle.ArchiveCriteria) (*lifecycle.Report, error)
	Prune(ctx context.Context, c lifecycle.PruneCriteria) (*lifecycle.Report, error)
}

// Config holds scheduler settings. A zero interval disables that job.
type Config struct {
	CleanupInterval time.Duration
	SweepInterval   time.Duration
	Archive         lifecycle.ArchiveCriteria
	Prune           lifecycle.PruneCriteria
}

// Scheduler handles periodic working memory cleanup and lifecycle sweeps
type Scheduler struct {
	cleaner  Cleaner
	sweeper  Sweeper
	logger   *zap.Logger
	cfg      Config
	delay    time.Duration
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewScheduler creates a new scheduler
func NewScheduler(cleaner Cleaner, sweeper Sweeper, logger *zap.Logger, cfg Config) *Scheduler {
	return &Scheduler{
		cleaner:  cleaner,
		sweeper:  sweeper,
		logger:   logger,
		cfg:      cfg,
		delay:    retryDelay,
		stopChan: make(chan struct{}),
	}
}

// Start begins the scheduler
func (s *Scheduler) Start(ctx context.Context) {
	if s.cfg.CleanupInterval <= 0 && s.cfg.SweepInterval <= 0 {
		return
	}
	s.wg.Add(1)
	go s.loop(ctx)
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	// A nil channel never fires, which leaves a disabled job idle.
	var cleanupC, sweepC <-chan time.Time
	if s.cfg.CleanupInterval > 0 {
		ticker := time.NewTicker(s.cfg.CleanupInterval)
		defer ticker.Stop()
		cleanupC = ticker.C
	}
	if s.cfg.SweepInterval > 0 {
		ticker := time.NewTicker(s.cfg.SweepInterval)
		defer ticker.Stop()
		sweepC = ticker.C
	}

	for {
		select {
		case <-cleanupC:
			s.RunCleanup(ctx)
		case <-sweepC:
			s.RunSweep(ctx)
		case <-ctx.Done():
			return
		case <-s.stopChan:
			return
		}
	}
}

// Stop stops the scheduler and waits for a running job to finish
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
}

// RunCleanup deletes expired working memories, retrying transient failures
func (s *Scheduler) RunCleanup(ctx context.Context) {
	var removed []database.WorkingMemory
	err := memerr.Retry(ctx, retryAttempts, s.delay, func() error {
		var err error
		removed, err = s.cleaner.Cleanup(ctx)
		return err
	})
	if err != nil {
		s.logger.Error("working memory cleanup failed", zap.Error(err))
		return
	}
	if len(removed) > 0 {
		s.logger.Info("removed expired working memories", zap.Int("count", len(removed)))
	}
}

// RunSweep archives stale memories, then prunes archived ones
func (s *Scheduler) RunSweep(ctx context.Context) {
	var archived *lifecycle.Report
	err := memerr.Retry(ctx, retryAttempts, s.delay, func() error {
		var err error
		archived, err = s.sweeper.Archive(ctx, s.cfg.Archive)
		return err
	})
	if err != nil {
		s.logger.Error("archive sweep failed", zap.Error(err))
	} else {
		s.logReport("archive", archived)
	}

	var pruned *lifecycle.Report
	err = memerr.Retry(ctx, retryAttempts, s.delay, func() error {
		var err error
		pruned, err = s.sweeper.Prune(ctx, s.cfg.Prune)
		return err
	})
	if err != nil {
		s.logger.Error("prune sweep failed", zap.Error(err))
		return
	}
	s.logReport("prune", pruned)
}

func (s *Scheduler) logReport(job string, r *lifecycle.Report) {
	for _, f := range r.Failures {
		s.logger.Warn("memory transition failed",
			zap.String("job", job),
			zap.String("memory_id", f.MemoryID),
			zap.String("error", f.Error))
	}
	if len(r.Transitioned) > 0 || len(r.Failures) > 0 {
		s.logger.Info("lifecycle sweep finished",
			zap.String("job", job),
			zap.Int("transitioned", len(r.Transitioned)),
			zap.Int("failed", len(r.Failures)))
	}
}
