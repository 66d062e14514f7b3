package timecalc_test

import (
	"testing"
	"time"

	"github.com/Tiliavir/horas/internal/model"
	"github.com/Tiliavir/horas/internal/timecalc"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		seconds int64
		want    string
	}{
		{0, "0s"},
		{45, "45s"},
		{60, "1m"},
		{90, "1m"},
		{2430, "40m"},
		{3600, "1h 0m"},
		{5400, "1h 30m"},
	}
	for _, tt := range tests {
		got := timecalc.FormatDuration(tt.seconds)
		if got != tt.want {
			t.Errorf("FormatDuration(%d) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestFormatDurationHHMMSS(t *testing.T) {
	tests := []struct {
		seconds int64
		want    string
	}{
		{0, "00:00:00"},
		{61, "00:01:01"},
		{3661, "01:01:01"},
	}
	for _, tt := range tests {
		got := timecalc.FormatDurationHHMMSS(tt.seconds)
		if got != tt.want {
			t.Errorf("FormatDurationHHMMSS(%d) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestWeekRange(t *testing.T) {
	// 2026-02-27 is a Friday (week 9).
	fri := time.Date(2026, 2, 27, 10, 0, 0, 0, time.UTC)
	monday, sunday := timecalc.WeekRange(fri)

	wantMonday := time.Date(2026, 2, 23, 0, 0, 0, 0, time.UTC)
	wantSunday := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	if !monday.Equal(wantMonday) {
		t.Errorf("WeekRange monday = %v, want %v", monday, wantMonday)
	}
	if !sunday.Equal(wantSunday) {
		t.Errorf("WeekRange sunday = %v, want %v", sunday, wantSunday)
	}
}

func TestISOWeekLabel(t *testing.T) {
	fri := time.Date(2026, 2, 27, 10, 0, 0, 0, time.UTC)
	got := timecalc.ISOWeekLabel(fri)
	if got != "2026-W09" {
		t.Errorf("ISOWeekLabel = %q, want %q", got, "2026-W09")
	}
}

func TestDays(t *testing.T) {
	tests := []struct {
		name     string
		zone     string
		from, to time.Time
		want     []string
		// UTC instant each day starts at.
		wantUTC []string
	}{
		{
			name: "DST change at 02:00",
			zone: "Europe/Madrid",
			from: time.Date(2026, 3, 28, 0, 0, 0, 0, time.UTC),
			to:   time.Date(2026, 3, 30, 0, 0, 0, 0, time.UTC),
			want: []string{"2026-03-28", "2026-03-29", "2026-03-30"},
			wantUTC: []string{
				"2026-03-27T23:00:00Z", "2026-03-28T23:00:00Z", "2026-03-29T22:00:00Z",
			},
		},
		{
			name: "DST skips midnight",
			zone: "America/Santiago",
			from: time.Date(2024, 9, 7, 0, 0, 0, 0, time.UTC),
			to:   time.Date(2024, 9, 10, 0, 0, 0, 0, time.UTC),
			want: []string{"2024-09-07", "2024-09-08", "2024-09-09", "2024-09-10"},
			wantUTC: []string{
				"2024-09-07T04:00:00Z", "2024-09-08T04:00:00Z", "2024-09-09T03:00:00Z", "2024-09-10T03:00:00Z",
			},
		},
		{
			name: "DST skips midnight in Sao Paulo",
			zone: "America/Sao_Paulo",
			from: time.Date(2018, 11, 3, 0, 0, 0, 0, time.UTC),
			to:   time.Date(2018, 11, 5, 0, 0, 0, 0, time.UTC),
			want: []string{"2018-11-03", "2018-11-04", "2018-11-05"},
			wantUTC: []string{
				"2018-11-03T03:00:00Z", "2018-11-04T03:00:00Z", "2018-11-05T02:00:00Z",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, err := time.LoadLocation(tt.zone)
			if err != nil {
				t.Skipf("tzdata unavailable: %v", err)
			}
			days, err := timecalc.Days(model.Period{From: tt.from, To: tt.to}, loc)
			if err != nil {
				t.Fatalf("Days: %v", err)
			}
			if len(days) != len(tt.want) {
				t.Fatalf("Days = %v, want %d days", days, len(tt.want))
			}
			for i, d := range days {
				if timecalc.DayKey(d) != tt.want[i] {
					t.Errorf("day %d = %s, want %s", i, timecalc.DayKey(d), tt.want[i])
				}
				if got := d.UTC().Format(time.RFC3339); got != tt.wantUTC[i] {
					t.Errorf("day %d starts at %s, want %s", i, got, tt.wantUTC[i])
				}
				if d.Location() != loc {
					t.Errorf("day %d in %v, want %v", i, d.Location(), loc)
				}
				if next := timecalc.NextDay(d); !next.After(d) {
					t.Errorf("day %d window [%v, %v) is empty", i, d, next)
				}
			}
		})
	}
}

func TestDaysRejectsReversedPeriod(t *testing.T) {
	p := model.Period{
		From: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	if _, err := timecalc.Days(p, time.UTC); err == nil {
		t.Fatal("expected error for reversed period")
	}
}

func TestWorklogStartAcrossDST(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	tests := []struct {
		date    string
		wantUTC string
	}{
		{"2026-03-07", "2026-03-07T23:00:00Z"}, // EST
		{"2026-03-08", "2026-03-08T22:00:00Z"}, // EDT starts that morning
		{"2026-11-01", "2026-11-01T23:00:00Z"}, // back to EST
	}
	for _, tt := range tests {
		got, err := timecalc.WorklogStart(tt.date, loc)
		if err != nil {
			t.Fatalf("WorklogStart(%s): %v", tt.date, err)
		}
		if got.UTC().Format(time.RFC3339) != tt.wantUTC {
			t.Errorf("WorklogStart(%s) = %s, want %s", tt.date, got.UTC().Format(time.RFC3339), tt.wantUTC)
		}
		if timecalc.DayKeyIn(got, loc) != tt.date {
			t.Errorf("WorklogStart(%s) lands on %s", tt.date, timecalc.DayKeyIn(got, loc))
		}
	}
}

func TestNextDay(t *testing.T) {
	santiago, err := time.LoadLocation("America/Santiago")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	tests := []struct {
		day  time.Time
		want time.Time
	}{
		{
			day:  time.Date(2026, 2, 28, 13, 0, 0, 0, time.UTC),
			want: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			// 2024-09-08 starts at 01:00 -03, midnight does not exist.
			day:  time.Date(2024, 9, 7, 0, 0, 0, 0, santiago),
			want: time.Date(2024, 9, 8, 4, 0, 0, 0, time.UTC),
		},
		{
			day:  time.Date(2024, 9, 8, 12, 0, 0, 0, santiago),
			want: time.Date(2024, 9, 9, 3, 0, 0, 0, time.UTC),
		},
	}
	for _, tt := range tests {
		got := timecalc.NextDay(tt.day)
		if !got.Equal(tt.want) {
			t.Errorf("NextDay(%v) = %v, want %v", tt.day, got, tt.want)
		}
		if got.Location() != tt.day.Location() {
			t.Errorf("NextDay(%v) in %v, want %v", tt.day, got.Location(), tt.day.Location())
		}
	}
}

func TestParseDaySkippedMidnight(t *testing.T) {
	loc, err := time.LoadLocation("America/Santiago")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	got, err := timecalc.ParseDay("2024-09-08", loc)
	if err != nil {
		t.Fatalf("ParseDay: %v", err)
	}
	if timecalc.DayKey(got) != "2024-09-08" {
		t.Errorf("ParseDay lands on %s", timecalc.DayKey(got))
	}
	if want := time.Date(2024, 9, 8, 4, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("ParseDay = %v, want %v", got, want)
	}
	if !timecalc.StartOfDay(got.Add(10*time.Hour)).Equal(got) {
		t.Errorf("StartOfDay disagrees with ParseDay")
	}
}
