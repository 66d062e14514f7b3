// Package timesource defines the time-tracking capability the engine reads
// raw entries from.
package timesource

import (
	"context"
	"time"

	"github.com/Tiliavir/horas/internal/model"
	"github.com/Tiliavir/horas/internal/timecalc"
)

// Source reports the raw time entries of one calendar day. day is the first
// instant of that day in the tenant's timezone; the source covers
// [day, timecalc.NextDay(day)).
type Source interface {
	Fetch(ctx context.Context, day time.Time) ([]model.TimeEntry, error)
}

// Func adapts a plain function to Source.
type Func func(ctx context.Context, day time.Time) ([]model.TimeEntry, error)

func (f Func) Fetch(ctx context.Context, day time.Time) ([]model.TimeEntry, error) {
	return f(ctx, day)
}

// Static serves fixed entries keyed by date (YYYY-MM-DD). Days without a
// key report no entries.
type Static map[string][]model.TimeEntry

func (s Static) Fetch(ctx context.Context, day time.Time) ([]model.TimeEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries := s[timecalc.DayKey(day)]
	out := make([]model.TimeEntry, len(entries))
	copy(out, entries)
	return out, nil
}
