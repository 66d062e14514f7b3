package worklog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Tiliavir/horas/internal/aggregate"
	"github.com/Tiliavir/horas/internal/model"
	"github.com/Tiliavir/horas/internal/storage"
	"github.com/Tiliavir/horas/internal/syncstate"
	"github.com/Tiliavir/horas/internal/ticket"
	"github.com/Tiliavir/horas/internal/timecalc"
	"github.com/Tiliavir/horas/internal/timesource"
	"github.com/Tiliavir/horas/internal/tracker"
)

// Tenant is everything a pass needs to know about one tenant.
type Tenant struct {
	ID           string
	Location     *time.Location
	Matcher      *ticket.Matcher
	Source       timesource.Source
	Tracker      tracker.IssueTracker
	Synchronizer string // name sync marks are recorded under
	ContentMarks bool
}

// TenantResolver looks up a tenant by id.
type TenantResolver interface {
	Tenant(ctx context.Context, id string) (Tenant, error)
}

// TenantFunc adapts a function to TenantResolver.
type TenantFunc func(ctx context.Context, id string) (Tenant, error)

func (f TenantFunc) Tenant(ctx context.Context, id string) (Tenant, error) { return f(ctx, id) }

// TaskFailure is a task whose push failed in this pass.
type TaskFailure struct {
	Task model.Task
	Err  error
}

// TaskResult is the outcome of one pushed task.
type TaskResult struct {
	Task    model.Task
	Outcome Outcome
}

// Result summarizes one Synchronize pass.
type Result struct {
	Aggregated int // tasks upserted from the source
	Created    int
	Updated    int
	Unchanged  int
	Unmatched  int
	Failed     int
	Tasks      []TaskResult
	Failures   []TaskFailure
}

func (r *Result) record(task model.Task, o Outcome, err error) {
	r.Tasks = append(r.Tasks, TaskResult{Task: task, Outcome: o})
	switch o {
	case OutcomeCreated:
		r.Created++
	case OutcomeUpdated:
		r.Updated++
	case OutcomeUnchanged:
		r.Unchanged++
	case OutcomeUnmatched:
		r.Unmatched++
	default:
		r.Failed++
		r.Failures = append(r.Failures, TaskFailure{Task: task, Err: err})
	}
}

// Engine runs synchronization passes against one store.
type Engine struct {
	Store   storage.Store
	Tenants TenantResolver
	DryRun  bool
	Logger  *slog.Logger
	Clock   func() time.Time // SyncedAt stamps; time.Now when nil
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

// Synchronize fetches the tenant's time entries for every day of period,
// stores the per-day totals and pushes every stale task of the tenant to
// its issue tracker.
//
// Configuration, source and local store failures abort the pass and are
// returned. Failures of individual remote pushes do not; they are counted
// in the Result and the affected tasks stay stale for the next pass.
func (e *Engine) Synchronize(ctx context.Context, tenantID string, period model.Period) (Result, error) {
	var res Result

	tenant, err := e.Tenants.Tenant(ctx, tenantID)
	if err != nil {
		if errors.Is(err, ErrConfiguration) {
			return res, err
		}
		return res, fmt.Errorf("%w: tenant %q: %w", ErrConfiguration, tenantID, err)
	}
	if err := tenant.check(); err != nil {
		return res, fmt.Errorf("%w: tenant %q: %w", ErrConfiguration, tenantID, err)
	}
	log := e.logger().With("tenant", tenant.ID)

	days, err := timecalc.Days(period, tenant.Location)
	if err != nil {
		return res, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	// Fetch the whole period before touching the store so a failing day
	// leaves every task as it was.
	totals := make([]map[string]int64, len(days))
	for i, day := range days {
		entries, err := tenant.Source.Fetch(ctx, day)
		if err != nil {
			return res, fmt.Errorf("%w: %s: %w", ErrSourceFetch, timecalc.DayKey(day), err)
		}
		for _, entry := range entries {
			if entry.DurationSeconds < 0 {
				return res, fmt.Errorf("%w: %s: %q: %w", ErrSourceFetch, timecalc.DayKey(day), entry.Description, storage.ErrNegativeDuration)
			}
		}
		totals[i] = aggregate.Aggregate(entries)
	}

	for i, day := range days {
		date := timecalc.DayKey(day)
		for _, desc := range aggregate.Descriptions(totals[i]) {
			if _, err := e.Store.UpsertTask(ctx, tenant.ID, date, desc, totals[i][desc]); err != nil {
				return res, fmt.Errorf("store %s %q: %w", date, desc, err)
			}
			res.Aggregated++
		}
	}
	log.Debug("aggregated", "days", len(days), "tasks", res.Aggregated)

	opts := []syncstate.Option{syncstate.WithContentMarks(tenant.ContentMarks)}
	if e.Clock != nil {
		opts = append(opts, syncstate.WithClock(e.Clock))
	}
	marks := syncstate.New(e.Store, tenant.Synchronizer, opts...)
	stale, err := marks.StaleTasks(ctx, tenant.ID)
	if err != nil {
		return res, fmt.Errorf("select stale tasks: %w", err)
	}

	pusher := &Synchronizer{
		Tracker:  tenant.Tracker,
		Matcher:  tenant.Matcher,
		Location: tenant.Location,
		Marks:    marks,
		DryRun:   e.DryRun,
		Logger:   log,
	}
	for _, task := range stale {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		outcome, err := pusher.Push(ctx, task)
		if err != nil {
			if !errors.Is(err, ErrRemoteLookup) && !errors.Is(err, ErrRemoteWrite) {
				return res, err
			}
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			log.Warn("push failed", "task", task.ID, "date", task.Date, "description", task.Description,
				"temporary", tracker.IsTemporary(err), "err", err)
		}
		res.record(task, outcome, err)
	}

	log.Info("pass complete",
		"aggregated", res.Aggregated, "created", res.Created, "updated", res.Updated,
		"unchanged", res.Unchanged, "unmatched", res.Unmatched, "failed", res.Failed)
	return res, nil
}

func (t Tenant) check() error {
	switch {
	case t.ID == "":
		return errors.New("missing id")
	case t.Location == nil:
		return errors.New("missing timezone")
	case t.Matcher == nil:
		return ticket.ErrNoPatterns
	case t.Source == nil:
		return errors.New("missing time source")
	case t.Tracker == nil:
		return errors.New("missing issue tracker")
	case t.Synchronizer == "":
		return errors.New("missing synchronizer name")
	}
	return nil
}
