// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package memerr

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Sentinel errors, matched with errors.Is.
var (
	// ErrValidation indicates bad caller input. Never retried internally.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound indicates an absent record. Malformed identifiers are
	// reported the same way.
	ErrNotFound = errors.New("not found")

	// ErrTransient indicates a connection or timeout failure the caller may retry.
	ErrTransient = errors.New("transient storage failure")

	// ErrUnavailable indicates an optional subsystem is not deployed.
	ErrUnavailable = errors.New("capability unavailable")
)

// Error kinds
const (
	KindValidation  = "validation"
	KindNotFound    = "not_found"
	KindTransient   = "transient"
	KindUnavailable = "unavailable"
	KindInternal    = "internal"
)

// Error wraps an underlying error with the failing operation and its kind.
type Error struct {
	Op   string
	Kind string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel that corresponds to the error's kind.
func (e *Error) Is(target error) bool {
	switch e.Kind {
	case KindValidation:
		return target == ErrValidation
	case KindNotFound:
		return target == ErrNotFound
	case KindTransient:
		return target == ErrTransient
	case KindUnavailable:
		return target == ErrUnavailable
	}
	return false
}

// Validation returns a validation error for op.
func Validation(op, format string, args ...any) error {
	return &Error{Op: op, Kind: KindValidation, Err: fmt.Errorf(format, args...)}
}

// NotFound returns a not-found error for the given entity and id.
func NotFound(op, entity, id string) error {
	return &Error{Op: op, Kind: KindNotFound, Err: fmt.Errorf("%s %q not found", entity, id)}
}

// Unavailable returns an error for a missing capability.
func Unavailable(op, capability string) error {
	return &Error{Op: op, Kind: KindUnavailable, Err: fmt.Errorf("%s is not available in this deployment", capability)}
}

// FromDB classifies a storage error. gorm.ErrRecordNotFound becomes
// NotFound, connection and timeout failures become Transient, anything
// else is wrapped as internal.
func FromDB(op string, err error) error {
	if err == nil {
		return nil
	}
	var merr *Error
	if errors.As(err, &merr) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &Error{Op: op, Kind: KindNotFound, Err: err}
	}
	if IsTransient(err) {
		return &Error{Op: op, Kind: KindTransient, Err: err}
	}
	return &Error{Op: op, Kind: KindInternal, Err: err}
}

// IsTransient reports whether err looks like a connection, timeout or
// lock-contention failure.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTransient) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, driver.ErrBadConn) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 08: connection exception, 57P0x: operator intervention,
		// 40001/40P01: serialization failure and deadlock.
		if strings.HasPrefix(pgErr.Code, "08") || strings.HasPrefix(pgErr.Code, "57P0") {
			return true
		}
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	if pgconn.Timeout(err) {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "sqlite_busy") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset")
}
