package storage

import (
	"context"
	"iter"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Tiliavir/horas/internal/model"
)

type taskKey struct {
	tenantID    string
	date        string
	description string
}

type markKey struct {
	taskID       string
	synchronizer string
}

// MemStore is a process-local Store. A single mutex serializes every
// upsert, which trivially satisfies the per-key guarantee.
type MemStore struct {
	mu    sync.Mutex
	now   func() time.Time
	tasks map[taskKey]*model.Task
	marks map[markKey]model.SyncMark
}

var _ Store = (*MemStore)(nil)

// NewMemStore creates an empty MemStore.
func NewMemStore(opts ...Option) *MemStore {
	o := buildOptions(opts)
	return &MemStore{
		now:   o.now,
		tasks: map[taskKey]*model.Task{},
		marks: map[markKey]model.SyncMark{},
	}
}

// EnsureSchema is a no-op.
func (s *MemStore) EnsureSchema(ctx context.Context) error { return nil }

// Close is a no-op.
func (s *MemStore) Close() error { return nil }

// UpsertTask implements TaskStore.
func (s *MemStore) UpsertTask(ctx context.Context, tenantID, date, description string, seconds int64) (model.Task, error) {
	if err := checkUpsert(tenantID, date, description, seconds); err != nil {
		return model.Task{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := taskKey{tenantID, date, description}
	t, ok := s.tasks[key]
	if !ok {
		t = &model.Task{
			ID:          uuid.Must(uuid.NewV7()).String(),
			TenantID:    tenantID,
			Date:        date,
			Description: description,
		}
		s.tasks[key] = t
	}
	t.TimeSpentSeconds = seconds
	t.UpdatedAt = stamp(s.now(), t.UpdatedAt)
	return *t, nil
}

// snapshot returns copies of the tenant's tasks matching keep, sorted.
func (s *MemStore) snapshot(tenantID string, keep func(*model.Task) bool) []model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Task
	for _, t := range s.tasks {
		if t.TenantID == tenantID && keep(t) {
			out = append(out, *t)
		}
	}
	sortTasks(out)
	return out
}

// TasksDueSince implements TaskStore.
func (s *MemStore) TasksDueSince(ctx context.Context, tenantID string, watermark time.Time) iter.Seq2[model.Task, error] {
	return func(yield func(model.Task, error) bool) {
		for _, t := range s.snapshot(tenantID, func(t *model.Task) bool { return t.UpdatedAt.After(watermark) }) {
			if err := ctx.Err(); err != nil {
				yield(model.Task{}, err)
				return
			}
			if !yield(t, nil) {
				return
			}
		}
	}
}

// TasksBetween implements TaskStore.
func (s *MemStore) TasksBetween(ctx context.Context, tenantID, from, to string) ([]model.Task, error) {
	return s.snapshot(tenantID, func(t *model.Task) bool { return t.Date >= from && t.Date <= to }), nil
}

// StaleTasks implements TaskStore.
func (s *MemStore) StaleTasks(ctx context.Context, tenantID, synchronizer string) ([]model.Task, error) {
	return s.snapshot(tenantID, func(t *model.Task) bool {
		m, ok := s.marks[markKey{t.ID, synchronizer}]
		return !ok || m.Watermark.Before(t.UpdatedAt)
	}), nil
}

// PutMark implements MarkStore.
func (s *MemStore) PutMark(ctx context.Context, mark model.SyncMark) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := markKey{mark.TaskID, mark.Synchronizer}
	if prev, ok := s.marks[key]; ok {
		if prev.SyncedAt.After(mark.SyncedAt) {
			mark.SyncedAt = prev.SyncedAt
		}
		if prev.Watermark.After(mark.Watermark) {
			mark.Watermark = prev.Watermark
			mark.Digest = prev.Digest
		}
	}
	s.marks[key] = mark
	return nil
}

// GetMark implements MarkStore.
func (s *MemStore) GetMark(ctx context.Context, taskID, synchronizer string) (model.SyncMark, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.marks[markKey{taskID, synchronizer}]
	return m, ok, nil
}

func sortTasks(tasks []model.Task) {
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].Date != tasks[j].Date {
			return tasks[i].Date < tasks[j].Date
		}
		return tasks[i].Description < tasks[j].Description
	})
}
