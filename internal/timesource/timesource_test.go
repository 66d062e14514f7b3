package timesource_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Tiliavir/horas/internal/model"
	"github.com/Tiliavir/horas/internal/timesource"
)

func TestStatic(t *testing.T) {
	src := timesource.Static{
		"2014-01-01": {
			{Description: "standup call", DurationSeconds: 2130},
			{Description: "standup call", DurationSeconds: 300},
		},
	}
	day := time.Date(2014, 1, 1, 0, 0, 0, 0, time.UTC)
	got, err := src.Fetch(context.Background(), day)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Fetch = %d entries, want 2", len(got))
	}
	got[0].DurationSeconds = 0
	again, _ := src.Fetch(context.Background(), day)
	if again[0].DurationSeconds != 2130 {
		t.Error("Fetch returned shared backing storage")
	}

	empty, err := src.Fetch(context.Background(), day.AddDate(0, 0, 1))
	if err != nil || len(empty) != 0 {
		t.Errorf("Fetch(other day) = %v, %v; want empty", empty, err)
	}
}

func TestStaticHonoursCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := timesource.Static{}.Fetch(ctx, time.Now())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Fetch err = %v, want context.Canceled", err)
	}
}

func TestFunc(t *testing.T) {
	var seen time.Time
	src := timesource.Func(func(_ context.Context, day time.Time) ([]model.TimeEntry, error) {
		seen = day
		return nil, nil
	})
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	if _, err := src.Fetch(context.Background(), day); err != nil {
		t.Fatal(err)
	}
	if !seen.Equal(day) {
		t.Errorf("Func got %v, want %v", seen, day)
	}
}
