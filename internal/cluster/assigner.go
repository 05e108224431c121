// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package cluster

import (
	"context"
	"sync"
	"time"

	"github.com/cognitivecomputations/agi-mcp-server/internal/memerr"
	"go.uber.org/zap"
)

// Assigner defaults
const (
	DefaultAssignWorkers   = 2
	DefaultAssignQueueSize = 256
	assignAttempts         = 3
	assignRetryDelay       = 100 * time.Millisecond
)

// Assigner runs AssignToClusters off the request path. New memory ids
// are queued; a fixed pool of workers drains the queue. When the queue
// is full the id is dropped and a warning logged.
type Assigner struct {
	engine  *Engine
	logger  *zap.Logger
	workers int
	queue   chan string

	mu      sync.Mutex
	started bool
	stopped bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewAssigner creates an assigner. Call Start before enqueueing.
func NewAssigner(engine *Engine, logger *zap.Logger, workers, queueSize int) *Assigner {
	if workers <= 0 {
		workers = DefaultAssignWorkers
	}
	if queueSize <= 0 {
		queueSize = DefaultAssignQueueSize
	}
	return &Assigner{
		engine:  engine,
		logger:  logger,
		workers: workers,
		queue:   make(chan string, queueSize),
	}
}

// Start launches the worker pool
func (a *Assigner) Start(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.started || a.stopped {
		return
	}
	a.started = true

	ctx, a.cancel = context.WithCancel(ctx)
	for i := 0; i < a.workers; i++ {
		a.wg.Add(1)
		go a.run(ctx)
	}
	a.logger.Info("cluster assigner started", zap.Int("workers", a.workers))
}

// Enqueue schedules assignment of a memory. It never blocks.
func (a *Assigner) Enqueue(memoryID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopped {
		return
	}

	select {
	case a.queue <- memoryID:
	default:
		a.logger.Warn("cluster assignment queue full, dropping memory",
			zap.String("memory_id", memoryID))
	}
}

// Stop closes the queue, lets workers finish what is already queued and
// waits for them.
func (a *Assigner) Stop() {
	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return
	}
	a.stopped = true
	close(a.queue)
	started := a.started
	a.mu.Unlock()

	if started {
		a.wg.Wait()
		a.cancel()
	}
	a.logger.Info("cluster assigner stopped")
}

func (a *Assigner) run(ctx context.Context) {
	defer a.wg.Done()
	for id := range a.queue {
		a.assign(ctx, id)
	}
}

func (a *Assigner) assign(ctx context.Context, memoryID string) {
	var matched int
	err := memerr.Retry(ctx, assignAttempts, assignRetryDelay, func() error {
		members, err := a.engine.AssignToClusters(ctx, memoryID)
		matched = len(members)
		return err
	})
	if err != nil {
		a.logger.Warn("cluster assignment failed",
			zap.String("memory_id", memoryID),
			zap.Error(err))
		return
	}
	a.logger.Debug("cluster assignment done",
		zap.String("memory_id", memoryID),
		zap.Int("matched", matched))
}
