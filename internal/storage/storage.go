// Package storage persists aggregated tasks and their synchronization marks.
package storage

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Tiliavir/horas/internal/model"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// ErrNegativeDuration is returned when a total below zero is upserted.
var ErrNegativeDuration = errors.New("negative time spent")

// TaskStore owns the Task entities.
type TaskStore interface {
	// UpsertTask creates or replaces the total for (tenantID, date,
	// description) and always advances UpdatedAt, even when the value is
	// unchanged.
	UpsertTask(ctx context.Context, tenantID, date, description string, seconds int64) (model.Task, error)
	// TasksDueSince streams tasks updated strictly after watermark, ordered by
	// date then description.
	TasksDueSince(ctx context.Context, tenantID string, watermark time.Time) iter.Seq2[model.Task, error]
	// TasksBetween lists tasks whose date is within [from, to].
	TasksBetween(ctx context.Context, tenantID, from, to string) ([]model.Task, error)
	// StaleTasks lists tasks without a mark from synchronizer, or whose mark
	// watermark precedes UpdatedAt, ordered by date then description.
	StaleTasks(ctx context.Context, tenantID, synchronizer string) ([]model.Task, error)
}

// MarkStore owns SyncMarks. A mark is a weak reference to its task.
type MarkStore interface {
	// PutMark upserts the mark for (TaskID, Synchronizer). SyncedAt and
	// Watermark never move backwards.
	PutMark(ctx context.Context, mark model.SyncMark) error
	GetMark(ctx context.Context, taskID, synchronizer string) (model.SyncMark, bool, error)
}

// Store is a complete persistence back end.
type Store interface {
	TaskStore
	MarkStore
	EnsureSchema(ctx context.Context) error
	Close() error
}

type options struct {
	now func() time.Time
}

// Option configures a store.
type Option func(*options)

// WithClock replaces time.Now for UpdatedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// stamp returns the next UpdatedAt: now, or one microsecond past prev when
// the clock has not moved beyond it.
func stamp(now, prev time.Time) time.Time {
	now = now.Truncate(time.Microsecond)
	if !prev.IsZero() && !now.After(prev) {
		return prev.Add(time.Microsecond)
	}
	return now
}

// BaseDir returns the root data directory (~/.horas).
func BaseDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".horas"), nil
}

// DefaultDSN returns the default SQLite database path (~/.horas/horas.db).
func DefaultDSN() (string, error) {
	base, err := BaseDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "horas.db"), nil
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, path[1:]), nil
}

// Open connects to the back end named by driver and ensures its schema.
// The caller owns the returned Store and must Close it.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (Store, error) {
	var (
		s   Store
		err error
	)
	switch driver {
	case DriverSQLite, "":
		if dsn == "" {
			if dsn, err = DefaultDSN(); err != nil {
				return nil, err
			}
		}
		s, err = OpenSQLite(dsn, opts...)
	case DriverPostgres:
		s, err = OpenPostgres(ctx, dsn, opts...)
	case DriverMemory:
		s = NewMemStore(opts...)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.EnsureSchema(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("storage schema: %w", err)
	}
	return s, nil
}

func checkUpsert(tenantID, date, description string, seconds int64) error {
	if tenantID == "" {
		return fmt.Errorf("upsert task: empty tenant id")
	}
	if _, err := time.Parse(model.DateLayout, date); err != nil {
		return fmt.Errorf("upsert task: invalid date %q: %w", date, err)
	}
	if seconds < 0 {
		return fmt.Errorf("upsert task %q on %s: %w (%d)", description, date, ErrNegativeDuration, seconds)
	}
	return nil
}

// scanner is satisfied by *sql.Row, *sql.Rows, pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}
