// Package gcal reads time entries from a Google Calendar.
package gcal

import (
	"context"
	"fmt"
	"sync"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/Tiliavir/horas/internal/model"
	"github.com/Tiliavir/horas/internal/timecalc"
	"github.com/Tiliavir/horas/internal/timesource"
)

// Options configures a Source. Either CalendarID or CalendarName selects
// the calendar; with neither the account's primary calendar is used.
type Options struct {
	CredentialsFile string
	CalendarID      string
	CalendarName    string
	Location        *time.Location
	// ClientOptions replace the credentials file, e.g. in tests.
	ClientOptions []option.ClientOption
}

// Source reports calendar events as time entries.
type Source struct {
	srv  *calendar.Service
	name string
	loc  *time.Location

	mu         sync.Mutex
	calendarID string
}

var _ timesource.Source = (*Source)(nil)

// New creates a read-only Calendar client.
func New(ctx context.Context, opts Options) (*Source, error) {
	clientOpts := opts.ClientOptions
	if len(clientOpts) == 0 {
		if opts.CredentialsFile == "" {
			return nil, fmt.Errorf("gcal: credentials_file is required")
		}
		clientOpts = []option.ClientOption{
			option.WithCredentialsFile(opts.CredentialsFile),
			option.WithScopes(calendar.CalendarReadonlyScope),
		}
	}
	srv, err := calendar.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create Calendar client: %w", err)
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	id := opts.CalendarID
	if id == "" && opts.CalendarName == "" {
		id = "primary"
	}
	return &Source{srv: srv, name: opts.CalendarName, loc: loc, calendarID: id}, nil
}

// calendar resolves the configured calendar name to its id once.
func (s *Source) calendar(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calendarID != "" {
		return s.calendarID, nil
	}
	list, err := s.srv.CalendarList.List().Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("unable to retrieve calendar list: %w", err)
	}
	for _, item := range list.Items {
		if item.Summary == s.name {
			s.calendarID = item.Id
			return item.Id, nil
		}
	}
	return "", fmt.Errorf("calendar %q not found", s.name)
}

// Fetch returns the timed, busy, confirmed events starting in [day, next day).
func (s *Source) Fetch(ctx context.Context, day time.Time) ([]model.TimeEntry, error) {
	id, err := s.calendar(ctx)
	if err != nil {
		return nil, err
	}
	call := s.srv.Events.List(id).
		TimeMin(day.Format(time.RFC3339)).
		TimeMax(timecalc.NextDay(day).Format(time.RFC3339)).
		TimeZone(s.loc.String()).
		SingleEvents(true).
		OrderBy("startTime")

	var entries []model.TimeEntry
	err = call.Pages(ctx, func(page *calendar.Events) error {
		for _, ev := range page.Items {
			if skip(ev) {
				continue
			}
			entry, err := eventEntry(ev)
			if err != nil {
				return fmt.Errorf("event %q: %w", ev.Summary, err)
			}
			entries = append(entries, entry)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve events from calendar: %w", err)
	}
	return entries, nil
}

// skip reports events that are not time spent working: cancelled, all-day
// (no DateTime) or marked as free.
func skip(ev *calendar.Event) bool {
	switch {
	case ev.Status == "cancelled", ev.Transparency == "transparent":
		return true
	case ev.Start == nil || ev.End == nil:
		return true
	case ev.Start.DateTime == "" || ev.End.DateTime == "":
		return true
	}
	return false
}

func eventEntry(ev *calendar.Event) (model.TimeEntry, error) {
	start, err := time.Parse(time.RFC3339, ev.Start.DateTime)
	if err != nil {
		return model.TimeEntry{}, fmt.Errorf("parsing start time: %w", err)
	}
	end, err := time.Parse(time.RFC3339, ev.End.DateTime)
	if err != nil {
		return model.TimeEntry{}, fmt.Errorf("parsing end time: %w", err)
	}
	if end.Before(start) {
		return model.TimeEntry{}, fmt.Errorf("event ends before it starts")
	}
	return model.TimeEntry{Description: ev.Summary, DurationSeconds: int64(end.Sub(start).Seconds())}, nil
}
