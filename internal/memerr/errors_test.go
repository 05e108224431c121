// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package memerr

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestKinds(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"validation", Validation("memory.Create", "bad %s", "type"), ErrValidation},
		{"not found", NotFound("memory.Get", "memory", "abc"), ErrNotFound},
		{"unavailable", Unavailable("lifecycle.Consolidate", "relationship graph"), ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, errors.Is(tt.err, tt.sentinel))
			wrapped := fmt.Errorf("outer: %w", tt.err)
			assert.True(t, errors.Is(wrapped, tt.sentinel))
		})
	}

	assert.False(t, errors.Is(Validation("op", "x"), ErrNotFound))
	assert.Contains(t, NotFound("memory.Get", "memory", "abc").Error(), `memory "abc" not found`)
}

func TestFromDB(t *testing.T) {
	assert.Nil(t, FromDB("op", nil))
	assert.ErrorIs(t, FromDB("op", gorm.ErrRecordNotFound), ErrNotFound)
	assert.ErrorIs(t, FromDB("op", context.DeadlineExceeded), ErrTransient)
	assert.ErrorIs(t, FromDB("op", errors.New("database is locked (5) (SQLITE_BUSY)")), ErrTransient)
	assert.ErrorIs(t, FromDB("op", &pgconn.PgError{Code: "08006"}), ErrTransient)
	assert.ErrorIs(t, FromDB("op", &pgconn.PgError{Code: "40P01"}), ErrTransient)

	internal := FromDB("op", &pgconn.PgError{Code: "23505"})
	assert.False(t, errors.Is(internal, ErrTransient))
	assert.False(t, errors.Is(internal, ErrNotFound))

	// Already classified errors pass through untouched.
	v := Validation("op", "bad")
	assert.Same(t, v, FromDB("other", v))
}

func TestRetry(t *testing.T) {
	t.Run("retries transient failures", func(t *testing.T) {
		calls := 0
		err := Retry(context.Background(), 3, time.Millisecond, func() error {
			calls++
			if calls < 3 {
				return FromDB("op", context.DeadlineExceeded)
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("does not retry validation errors", func(t *testing.T) {
		calls := 0
		err := Retry(context.Background(), 5, time.Millisecond, func() error {
			calls++
			return Validation("op", "bad")
		})
		assert.ErrorIs(t, err, ErrValidation)
		assert.Equal(t, 1, calls)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		calls := 0
		err := Retry(context.Background(), 2, time.Millisecond, func() error {
			calls++
			return FromDB("op", context.DeadlineExceeded)
		})
		assert.ErrorIs(t, err, ErrTransient)
		assert.Contains(t, err.Error(), "max retries exceeded")
		assert.Equal(t, 2, calls)
	})
}
