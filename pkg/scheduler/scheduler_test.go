// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cognitivecomputations/agi-mcp-server/internal/database"
	"github.com/cognitivecomputations/agi-mcp-server/internal/lifecycle"
	"github.com/cognitivecomputations/agi-mcp-server/internal/memerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeStore struct {
	mu       sync.Mutex
	cleanups int
	archives []lifecycle.ArchiveCriteria
	prunes   []lifecycle.PruneCriteria
	// failures is consumed by Cleanup, one error per call
	failures []error
}

func (f *fakeStore) Cleanup(ctx context.Context) ([]database.WorkingMemory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleanups++
	if len(f.failures) > 0 {
		err := f.failures[0]
		f.failures = f.failures[1:]
		return nil, err
	}
	return []database.WorkingMemory{{ID: "expired"}}, nil
}

func (f *fakeStore) Archive(ctx context.Context, c lifecycle.ArchiveCriteria) (*lifecycle.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.archives = append(f.archives, c)
	return &lifecycle.Report{Transitioned: []string{"a"}, Failures: []lifecycle.Failure{}}, nil
}

func (f *fakeStore) Prune(ctx context.Context, c lifecycle.PruneCriteria) (*lifecycle.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prunes = append(f.prunes, c)
	return &lifecycle.Report{Transitioned: []string{}, Failures: []lifecycle.Failure{{MemoryID: "b", Error: "boom"}}}, nil
}

func (f *fakeStore) counts() (int, int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cleanups, len(f.archives), len(f.prunes)
}

func transient() error {
	return &memerr.Error{Op: "working.Cleanup", Kind: memerr.KindTransient, Err: errors.New("database is locked")}
}

func TestRunCleanup(t *testing.T) {
	tests := []struct {
		name      string
		failures  []error
		wantCalls int
	}{
		{name: "succeeds first time", wantCalls: 1},
		{name: "retries transient failure", failures: []error{transient()}, wantCalls: 2},
		{name: "gives up after max attempts", failures: []error{transient(), transient(), transient(), transient()}, wantCalls: 3},
		{name: "does not retry other failures", failures: []error{errors.New("bad")}, wantCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{failures: tt.failures}
			s := NewScheduler(store, store, zap.NewNop(), Config{})
			s.delay = time.Millisecond
			s.RunCleanup(context.Background())

			cleanups, _, _ := store.counts()
			assert.Equal(t, tt.wantCalls, cleanups)
		})
	}
}

func TestRunSweep_PassesCriteria(t *testing.T) {
	store := &fakeStore{}
	cfg := Config{
		Archive: lifecycle.ArchiveCriteria{MinAgeDays: 30, MaxImportance: 0.2},
		Prune:   lifecycle.PruneCriteria{MaxAgeDays: 90, MinImportance: 0.05, MaxAccessCount: 1, Status: database.StatusArchived},
	}
	s := NewScheduler(store, store, zap.NewNop(), cfg)
	s.RunSweep(context.Background())

	require.Len(t, store.archives, 1)
	require.Len(t, store.prunes, 1)
	assert.Equal(t, cfg.Archive, store.archives[0])
	assert.Equal(t, cfg.Prune, store.prunes[0])
}

func TestStartAndStop(t *testing.T) {
	store := &fakeStore{}
	s := NewScheduler(store, store, zap.NewNop(), Config{
		CleanupInterval: 10 * time.Millisecond,
		SweepInterval:   10 * time.Millisecond,
	})
	s.Start(context.Background())

	assert.Eventually(t, func() bool {
		cleanups, archives, prunes := store.counts()
		return cleanups > 0 && archives > 0 && prunes > 0
	}, time.Second, 5*time.Millisecond)

	s.Stop()
	s.Stop()

	cleanups, _, _ := store.counts()
	time.Sleep(30 * time.Millisecond)
	after, _, _ := store.counts()
	assert.Equal(t, cleanups, after)
}

func TestStart_DisabledJobs(t *testing.T) {
	store := &fakeStore{}
	s := NewScheduler(store, store, zap.NewNop(), Config{SweepInterval: 10 * time.Millisecond})
	s.Start(context.Background())

	assert.Eventually(t, func() bool {
		_, archives, _ := store.counts()
		return archives > 0
	}, time.Second, 5*time.Millisecond)
	s.Stop()

	cleanups, _, _ := store.counts()
	assert.Zero(t, cleanups)
}

func TestStart_StopsOnContextCancel(t *testing.T) {
	store := &fakeStore{}
	s := NewScheduler(store, store, zap.NewNop(), Config{CleanupInterval: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after context cancel")
	}
}
