package storage

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Tiliavir/horas/internal/model"
)

// PgStore is a PostgreSQL-backed Store.
type PgStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

var _ Store = (*PgStore)(nil)

// OpenPostgres connects a pool to dsn.
func OpenPostgres(ctx context.Context, dsn string, opts ...Option) (*PgStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres: empty dsn")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return NewPgStore(pool, opts...), nil
}

// NewPgStore creates a PgStore over an existing pool.
func NewPgStore(pool *pgxpool.Pool, opts ...Option) *PgStore {
	return &PgStore{pool: pool, now: buildOptions(opts).now}
}

// Close closes the pool.
func (s *PgStore) Close() error {
	s.pool.Close()
	return nil
}

// EnsureSchema creates the tables if they don't exist.
func (s *PgStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS tasks (
			id                 TEXT PRIMARY KEY,
			tenant_id          TEXT NOT NULL,
			date               TEXT NOT NULL,
			description        TEXT NOT NULL,
			time_spent_seconds BIGINT NOT NULL CHECK (time_spent_seconds >= 0),
			updated_at         TIMESTAMPTZ NOT NULL,
			UNIQUE (tenant_id, date, description)
		)`)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_tasks_tenant_updated ON tasks(tenant_id, updated_at)`)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS sync_marks (
			task_id      TEXT NOT NULL,
			synchronizer TEXT NOT NULL,
			synced_at    TIMESTAMPTZ NOT NULL,
			watermark    TIMESTAMPTZ NOT NULL,
			digest       TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (task_id, synchronizer)
		)`)
	return err
}

func scanPgTask(row scanner) (model.Task, error) {
	var t model.Task
	if err := row.Scan(&t.ID, &t.TenantID, &t.Date, &t.Description, &t.TimeSpentSeconds, &t.UpdatedAt); err != nil {
		return model.Task{}, err
	}
	t.UpdatedAt = t.UpdatedAt.UTC()
	return t, nil
}

// UpsertTask implements TaskStore. ON CONFLICT takes a row lock on the
// existing key, serializing concurrent upserts of it.
func (s *PgStore) UpsertTask(ctx context.Context, tenantID, date, description string, seconds int64) (model.Task, error) {
	if err := checkUpsert(tenantID, date, description, seconds); err != nil {
		return model.Task{}, err
	}
	now := s.now().Truncate(time.Microsecond)
	row := s.pool.QueryRow(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (tenant_id, date, description) DO UPDATE SET
			time_spent_seconds = EXCLUDED.time_spent_seconds,
			updated_at = GREATEST(EXCLUDED.updated_at, tasks.updated_at + INTERVAL '1 microsecond')
		RETURNING `+taskColumns,
		uuid.Must(uuid.NewV7()).String(), tenantID, date, description, seconds, now)
	t, err := scanPgTask(row)
	if err != nil {
		return model.Task{}, fmt.Errorf("upsert task %q on %s: %w", description, date, err)
	}
	return t, nil
}

// TasksDueSince implements TaskStore.
func (s *PgStore) TasksDueSince(ctx context.Context, tenantID string, watermark time.Time) iter.Seq2[model.Task, error] {
	return func(yield func(model.Task, error) bool) {
		rows, err := s.pool.Query(ctx, `
			SELECT `+taskColumns+` FROM tasks
			WHERE tenant_id = $1 AND updated_at > $2
			ORDER BY date, description`, tenantID, watermark)
		if err != nil {
			yield(model.Task{}, fmt.Errorf("tasks due since: %w", err))
			return
		}
		defer rows.Close()
		for rows.Next() {
			t, err := scanPgTask(rows)
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
func (s *PgStore) TasksBetween(ctx context.Context, tenantID, from, to string) ([]model.Task, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE tenant_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date, description`, tenantID, from, to)
	if err != nil {
		return nil, fmt.Errorf("tasks between: %w", err)
	}
	defer rows.Close()
	return collectPg(rows)
}

// StaleTasks implements TaskStore.
func (s *PgStore) StaleTasks(ctx context.Context, tenantID, synchronizer string) ([]model.Task, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT t.id, t.tenant_id, t.date, t.description, t.time_spent_seconds, t.updated_at
		FROM tasks t
		LEFT JOIN sync_marks m ON m.task_id = t.id AND m.synchronizer = $1
		WHERE t.tenant_id = $2 AND (m.task_id IS NULL OR m.watermark < t.updated_at)
		ORDER BY t.date, t.description`, synchronizer, tenantID)
	if err != nil {
		return nil, fmt.Errorf("stale tasks: %w", err)
	}
	defer rows.Close()
	return collectPg(rows)
}

func collectPg(rows pgx.Rows) ([]model.Task, error) {
	var tasks []model.Task
	for rows.Next() {
		t, err := scanPgTask(rows)
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
func (s *PgStore) PutMark(ctx context.Context, mark model.SyncMark) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sync_marks (task_id, synchronizer, synced_at, watermark, digest)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (task_id, synchronizer) DO UPDATE SET
			synced_at = GREATEST(EXCLUDED.synced_at, sync_marks.synced_at),
			watermark = GREATEST(EXCLUDED.watermark, sync_marks.watermark),
			digest = CASE WHEN EXCLUDED.watermark >= sync_marks.watermark
				THEN EXCLUDED.digest ELSE sync_marks.digest END`,
		mark.TaskID, mark.Synchronizer, mark.SyncedAt.Truncate(time.Microsecond), mark.Watermark, mark.Digest)
	if err != nil {
		return fmt.Errorf("put mark %s/%s: %w", mark.Synchronizer, mark.TaskID, err)
	}
	return nil
}

// GetMark implements MarkStore.
func (s *PgStore) GetMark(ctx context.Context, taskID, synchronizer string) (model.SyncMark, bool, error) {
	m := model.SyncMark{TaskID: taskID, Synchronizer: synchronizer}
	err := s.pool.QueryRow(ctx, `
		SELECT synced_at, watermark, digest FROM sync_marks
		WHERE task_id = $1 AND synchronizer = $2`, taskID, synchronizer).
		Scan(&m.SyncedAt, &m.Watermark, &m.Digest)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.SyncMark{}, false, nil
	}
	if err != nil {
		return model.SyncMark{}, false, fmt.Errorf("get mark %s/%s: %w", synchronizer, taskID, err)
	}
	m.SyncedAt = m.SyncedAt.UTC()
	m.Watermark = m.Watermark.UTC()
	return m, true, nil
}
