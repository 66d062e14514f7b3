package storage

import (
	"context"
	"database/sql"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/Tiliavir/horas/internal/model"
)

// SQLiteStore is a Store backed by a SQLite file. Timestamps are stored as
// unix microseconds so ordering and MAX() work on plain integers.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path string, opts ...Option) (*SQLiteStore, error) {
	path, err := ExpandHome(path)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("storage error creating directories: %w", err)
	}

	db, err := sql.Open("sqlite3", "file:"+path+"?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=off")
	if err != nil {
		return nil, fmt.Errorf("opening sqlite %s: %w", path, err)
	}
	return &SQLiteStore{db: db, now: buildOptions(opts).now}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// EnsureSchema creates the tables if they don't exist.
func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS tasks (
			id                 TEXT PRIMARY KEY,
			tenant_id          TEXT NOT NULL,
			date               TEXT NOT NULL,
			description        TEXT NOT NULL,
			time_spent_seconds INTEGER NOT NULL CHECK (time_spent_seconds >= 0),
			updated_at         INTEGER NOT NULL,
			UNIQUE (tenant_id, date, description)
		);

		CREATE INDEX IF NOT EXISTS idx_tasks_tenant_updated ON tasks(tenant_id, updated_at);

		CREATE TABLE IF NOT EXISTS sync_marks (
			task_id      TEXT NOT NULL,
			synchronizer TEXT NOT NULL,
			synced_at    INTEGER NOT NULL,
			watermark    INTEGER NOT NULL,
			digest       TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (task_id, synchronizer)
		);`)
	return err
}

const taskColumns = `id, tenant_id, date, description, time_spent_seconds, updated_at`

func micros(t time.Time) int64 { return t.UnixMicro() }

func fromMicros(us int64) time.Time { return time.UnixMicro(us).UTC() }

func scanSQLiteTask(row scanner) (model.Task, error) {
	var t model.Task
	var updated int64
	if err := row.Scan(&t.ID, &t.TenantID, &t.Date, &t.Description, &t.TimeSpentSeconds, &updated); err != nil {
		return model.Task{}, err
	}
	t.UpdatedAt = fromMicros(updated)
	return t, nil
}

// UpsertTask implements TaskStore. The single INSERT … ON CONFLICT statement
// is atomic in SQLite, so concurrent upserts of one key never interleave.
func (s *SQLiteStore) UpsertTask(ctx context.Context, tenantID, date, description string, seconds int64) (model.Task, error) {
	if err := checkUpsert(tenantID, date, description, seconds); err != nil {
		return model.Task{}, err
	}
	now := s.now().Truncate(time.Microsecond)
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (tenant_id, date, description) DO UPDATE SET
			time_spent_seconds = excluded.time_spent_seconds,
			updated_at = MAX(excluded.updated_at, tasks.updated_at + 1)
		RETURNING `+taskColumns,
		uuid.Must(uuid.NewV7()).String(), tenantID, date, description, seconds, micros(now))
	t, err := scanSQLiteTask(row)
	if err != nil {
		return model.Task{}, fmt.Errorf("upsert task %q on %s: %w", description, date, err)
	}
	return t, nil
}

// TasksDueSince implements TaskStore.
func (s *SQLiteStore) TasksDueSince(ctx context.Context, tenantID string, watermark time.Time) iter.Seq2[model.Task, error] {
	return func(yield func(model.Task, error) bool) {
		rows, err := s.db.QueryContext(ctx, `
			SELECT `+taskColumns+` FROM tasks
			WHERE tenant_id = ? AND updated_at > ?
			ORDER BY date, description`, tenantID, micros(watermark))
		if err != nil {
			yield(model.Task{}, fmt.Errorf("tasks due since: %w", err))
			return
		}
		defer rows.Close()
		for rows.Next() {
			t, err := scanSQLiteTask(rows)
			if err != nil {
				yield(model.Task{}, err)
				return
			}
			if !yield(t, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(model.Task{}, fmt.Errorf("row iteration: %w", err))
		}
	}
}

// TasksBetween implements TaskStore.
func (s *SQLiteStore) TasksBetween(ctx context.Context, tenantID, from, to string) ([]model.Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE tenant_id = ? AND date >= ? AND date <= ?
		ORDER BY date, description`, tenantID, from, to)
	if err != nil {
		return nil, fmt.Errorf("tasks between: %w", err)
	}
	defer rows.Close()
	return collectSQLite(rows)
}

// StaleTasks implements TaskStore.
func (s *SQLiteStore) StaleTasks(ctx context.Context, tenantID, synchronizer string) ([]model.Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.tenant_id, t.date, t.description, t.time_spent_seconds, t.updated_at
		FROM tasks t
		LEFT JOIN sync_marks m ON m.task_id = t.id AND m.synchronizer = ?
		WHERE t.tenant_id = ? AND (m.task_id IS NULL OR m.watermark < t.updated_at)
		ORDER BY t.date, t.description`, synchronizer, tenantID)
	if err != nil {
		return nil, fmt.Errorf("stale tasks: %w", err)
	}
	defer rows.Close()
	return collectSQLite(rows)
}

func collectSQLite(rows *sql.Rows) ([]model.Task, error) {
	var tasks []model.Task
	for rows.Next() {
		t, err := scanSQLiteTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration: %w", err)
	}
	return tasks, nil
}

// PutMark implements MarkStore.
func (s *SQLiteStore) PutMark(ctx context.Context, mark model.SyncMark) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_marks (task_id, synchronizer, synced_at, watermark, digest)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (task_id, synchronizer) DO UPDATE SET
			synced_at = MAX(excluded.synced_at, sync_marks.synced_at),
			watermark = MAX(excluded.watermark, sync_marks.watermark),
			digest = CASE WHEN excluded.watermark >= sync_marks.watermark
				THEN excluded.digest ELSE sync_marks.digest END`,
		mark.TaskID, mark.Synchronizer, micros(mark.SyncedAt), micros(mark.Watermark), mark.Digest)
	if err != nil {
		return fmt.Errorf("put mark %s/%s: %w", mark.Synchronizer, mark.TaskID, err)
	}
	return nil
}

// GetMark implements MarkStore.
func (s *SQLiteStore) GetMark(ctx context.Context, taskID, synchronizer string) (model.SyncMark, bool, error) {
	m := model.SyncMark{TaskID: taskID, Synchronizer: synchronizer}
	var synced, watermark int64
	err := s.db.QueryRowContext(ctx, `
		SELECT synced_at, watermark, digest FROM sync_marks
		WHERE task_id = ? AND synchronizer = ?`, taskID, synchronizer).
		Scan(&synced, &watermark, &m.Digest)
	if err == sql.ErrNoRows {
		return model.SyncMark{}, false, nil
	}
	if err != nil {
		return model.SyncMark{}, false, fmt.Errorf("get mark %s/%s: %w", synchronizer, taskID, err)
	}
	m.SyncedAt = fromMicros(synced)
	m.Watermark = fromMicros(watermark)
	return m, true, nil
}
