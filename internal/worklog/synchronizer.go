// Package worklog pushes aggregated tasks to an issue tracker as worklogs.
package worklog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Tiliavir/horas/internal/model"
	"github.com/Tiliavir/horas/internal/syncstate"
	"github.com/Tiliavir/horas/internal/ticket"
	"github.com/Tiliavir/horas/internal/timecalc"
	"github.com/Tiliavir/horas/internal/tracker"
)

// Outcome is what a push did (or, in a dry run, would do) for one task.
type Outcome int

const (
	OutcomeFailed Outcome = iota
	OutcomeUnmatched
	OutcomeCreated
	OutcomeUpdated
	OutcomeUnchanged
)

func (o Outcome) String() string {
	switch o {
	case OutcomeUnmatched:
		return "unmatched"
	case OutcomeCreated:
		return "created"
	case OutcomeUpdated:
		return "updated"
	case OutcomeUnchanged:
		return "unchanged"
	default:
		return "failed"
	}
}

// Synchronizer reconciles one task at a time with the remote worklog.
type Synchronizer struct {
	Tracker  tracker.IssueTracker
	Matcher  *ticket.Matcher
	Location *time.Location
	Marks    *syncstate.Tracker
	DryRun   bool
	Logger   *slog.Logger
}

func (s *Synchronizer) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func (s *Synchronizer) location() *time.Location {
	if s.Location != nil {
		return s.Location
	}
	return time.UTC
}

// Push brings the remote worklog for task in line with its total and marks
// the task synced once the remote side is confirmed. An unmatched task is
// left untouched and stays stale. A zero-second task with no remote worklog
// is not created, since trackers reject empty worklogs; it is reported as
// OutcomeUnchanged and still marked. Errors wrap ErrRemoteLookup or
// ErrRemoteWrite; the task is not marked in either case.
func (s *Synchronizer) Push(ctx context.Context, task model.Task) (Outcome, error) {
	log := s.logger().With("task", task.ID, "date", task.Date)

	m, ok := s.Matcher.Match(task.Description)
	if !ok {
		log.Debug("no ticket in description", "description", task.Description)
		return OutcomeUnmatched, nil
	}
	log = log.With("ticket", m.TicketID)

	issue, err := s.Tracker.Resolve(ctx, m.TicketID)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("%w: resolve %s: %w", ErrRemoteLookup, m.TicketID, err)
	}
	worklogs, err := s.Tracker.ListWorklogs(ctx, issue)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("%w: list worklogs of %s: %w", ErrRemoteLookup, issue.Key, err)
	}

	outcome := OutcomeUnchanged
	existing, found := s.find(worklogs, task.Date, m.Comment)
	switch {
	case found && existing.TimeSpentSeconds != task.TimeSpentSeconds:
		outcome = OutcomeUpdated
		if !s.DryRun {
			if err := s.Tracker.UpdateWorklog(ctx, issue, existing, task.TimeSpentSeconds); err != nil {
				return OutcomeFailed, fmt.Errorf("%w: update worklog %s on %s: %w", ErrRemoteWrite, existing.ID, issue.Key, err)
			}
		}
	case !found && task.TimeSpentSeconds > 0:
		outcome = OutcomeCreated
		if !s.DryRun {
			started, err := timecalc.WorklogStart(task.Date, s.location())
			if err != nil {
				return OutcomeFailed, fmt.Errorf("%w: %w", ErrRemoteWrite, err)
			}
			if _, err := s.Tracker.CreateWorklog(ctx, issue, started, task.TimeSpentSeconds, m.Comment); err != nil {
				return OutcomeFailed, fmt.Errorf("%w: create worklog on %s: %w", ErrRemoteWrite, issue.Key, err)
			}
		}
	}

	if s.DryRun {
		log.Info("dry run", "outcome", outcome.String(), "seconds", task.TimeSpentSeconds)
		return outcome, nil
	}
	if err := s.Marks.MarkSynced(ctx, task); err != nil {
		return OutcomeFailed, err
	}
	log.Info("worklog synced", "issue", issue.Key, "outcome", outcome.String(), "seconds", task.TimeSpentSeconds)
	return outcome, nil
}

// find returns the worklog that is the same natural entry as (date, comment).
func (s *Synchronizer) find(worklogs []tracker.Worklog, date, comment string) (tracker.Worklog, bool) {
	comment = strings.TrimSpace(comment)
	for _, w := range worklogs {
		if timecalc.DayKeyIn(w.Started, s.location()) == date && strings.TrimSpace(w.Comment) == comment {
			return w, true
		}
	}
	return tracker.Worklog{}, false
}
