// Package syncstate decides which tasks a synchronizer still has to push.
package syncstate

import (
	"context"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/zeebo/blake3"

	"github.com/Tiliavir/horas/internal/model"
	"github.com/Tiliavir/horas/internal/storage"
)

// Store is the persistence the tracker needs.
type Store interface {
	StaleTasks(ctx context.Context, tenantID, synchronizer string) ([]model.Task, error)
	PutMark(ctx context.Context, mark model.SyncMark) error
	GetMark(ctx context.Context, taskID, synchronizer string) (model.SyncMark, bool, error)
}

var _ Store = (storage.Store)(nil)

// Tracker records per-task freshness marks for one synchronizer.
type Tracker struct {
	store        Store
	synchronizer string
	now          func() time.Time
	contentMarks bool
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock replaces time.Now for SyncedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithContentMarks makes StaleTasks drop tasks whose content is identical to
// what was last pushed, even if they were touched since.
func WithContentMarks(enabled bool) Option {
	return func(t *Tracker) { t.contentMarks = enabled }
}

// New creates a Tracker for the named synchronizer.
func New(store Store, synchronizer string, opts ...Option) *Tracker {
	t := &Tracker{store: store, synchronizer: synchronizer, now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Synchronizer returns the name marks are recorded under.
func (t *Tracker) Synchronizer() string { return t.synchronizer }

// StaleTasks returns the tenant's tasks that need a push, ordered by date
// then description.
func (t *Tracker) StaleTasks(ctx context.Context, tenantID string) ([]model.Task, error) {
	tasks, err := t.store.StaleTasks(ctx, tenantID, t.synchronizer)
	if err != nil {
		return nil, err
	}
	if !t.contentMarks {
		return tasks, nil
	}
	stale := tasks[:0]
	for _, task := range tasks {
		mark, ok, err := t.store.GetMark(ctx, task.ID, t.synchronizer)
		if err != nil {
			return nil, err
		}
		if ok && mark.Digest == Digest(task) {
			continue
		}
		stale = append(stale, task)
	}
	return stale, nil
}

// MarkSynced records that task, as given, is now reflected remotely.
// Calling it again only moves the mark forward.
func (t *Tracker) MarkSynced(ctx context.Context, task model.Task) error {
	mark := model.SyncMark{
		TaskID:       task.ID,
		Synchronizer: t.synchronizer,
		SyncedAt:     t.now().UTC().Truncate(time.Microsecond),
		Watermark:    task.UpdatedAt,
		Digest:       Digest(task),
	}
	if err := t.store.PutMark(ctx, mark); err != nil {
		return fmt.Errorf("mark %s synced: %w", task.ID, err)
	}
	return nil
}

// Digest is the hex BLAKE3 digest of the fields that end up remotely.
func Digest(task model.Task) string {
	h := blake3.New()
	for _, field := range []string{task.TenantID, task.Date, task.Description, strconv.FormatInt(task.TimeSpentSeconds, 10)} {
		h.WriteString(strconv.Itoa(len(field)))
		h.WriteString(":")
		h.WriteString(field)
	}
	return hex.EncodeToString(h.Sum(nil))
}
