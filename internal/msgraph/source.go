package msgraph

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/Tiliavir/horas/internal/model"
	"github.com/Tiliavir/horas/internal/timecalc"
	"github.com/Tiliavir/horas/internal/timesource"
)

// Source reports Outlook calendar events as time entries: the subject is
// the description and the event length the duration.
type Source struct {
	connect func(ctx context.Context) (*http.Client, error)
	baseURL string
	loc     *time.Location

	mu     sync.Mutex
	client *Client
}

var _ timesource.Source = (*Source)(nil)

// NewSource returns a source that signs in through auth on first use.
func NewSource(auth *Authenticator, loc *time.Location) *Source {
	return &Source{connect: auth.HTTPClient, loc: loc}
}

// NewSourceWithClient returns a source over an already authenticated client.
func NewSourceWithClient(httpClient *http.Client, baseURL string, loc *time.Location) *Source {
	return &Source{client: NewClient(httpClient, baseURL), loc: loc}
}

func (s *Source) graph(ctx context.Context) (*Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		return s.client, nil
	}
	hc, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}
	s.client = NewClient(hc, s.baseURL)
	return s.client, nil
}

// Fetch returns the events of [day, next day) that count as work.
func (s *Source) Fetch(ctx context.Context, day time.Time) ([]model.TimeEntry, error) {
	c, err := s.graph(ctx)
	if err != nil {
		return nil, err
	}
	events, err := c.GetCalendarView(ctx, day, timecalc.NextDay(day), s.loc.String())
	if err != nil {
		return nil, err
	}
	var entries []model.TimeEntry
	for _, event := range events {
		if shouldSkip(event) {
			continue
		}
		entry, err := EventEntry(event, s.loc)
		if err != nil {
			return nil, fmt.Errorf("event %q: %w", event.Subject, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// parseGraphTime parses a Graph API dateTime string. Graph returns times like
// "2026-02-27T09:00:00.0000000" without a zone suffix when a
// Prefer: outlook.timezone header is set; those are read in loc.
func parseGraphTime(dt string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, dt); err == nil {
		return t, nil
	}
	for _, layout := range []string{
		"2006-01-02T15:04:05.0000000",
		"2006-01-02T15:04:05",
	} {
		if t, err := time.ParseInLocation(layout, dt, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse graph time %q", dt)
}

// shouldSkip returns true for events that are not time spent working.
func shouldSkip(event CalendarEvent) bool {
	switch {
	case event.IsCancelled, event.IsAllDay:
		return true
	case event.Sensitivity == "private", event.ShowAs == "free":
		return true
	case event.Start.DateTime == "" || event.End.DateTime == "":
		return true
	}
	return false
}

// EventEntry converts a calendar event into a time entry.
func EventEntry(event CalendarEvent, loc *time.Location) (model.TimeEntry, error) {
	start, err := parseGraphTime(event.Start.DateTime, loc)
	if err != nil {
		return model.TimeEntry{}, fmt.Errorf("parsing start time: %w", err)
	}
	end, err := parseGraphTime(event.End.DateTime, loc)
	if err != nil {
		return model.TimeEntry{}, fmt.Errorf("parsing end time: %w", err)
	}
	if end.Before(start) {
		return model.TimeEntry{}, fmt.Errorf("event ends before it starts")
	}
	return model.TimeEntry{
		Description:     event.Subject,
		DurationSeconds: int64(end.Sub(start).Seconds()),
	}, nil
}
