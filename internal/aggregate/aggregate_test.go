package aggregate_test

import (
	"math/rand"
	"reflect"
	"testing"

	"github.com/Tiliavir/horas/internal/aggregate"
	"github.com/Tiliavir/horas/internal/model"
)

// day20140101 is the reference batch used throughout the tests.
var day20140101 = []model.TimeEntry{
	{Description: "standup call", DurationSeconds: 2130},
	{Description: "DEV-1234 trying to understand the bug", DurationSeconds: 600},
	{Description: "DEV-1234 going through the db schema", DurationSeconds: 300},
	{Description: "DEV-1532 rewriting the commit_to_jira function", DurationSeconds: 450},
	{Description: "standup call", DurationSeconds: 300},
	{Description: "DEV-932 checking mailchimp's api", DurationSeconds: 1200},
}

func TestAggregate(t *testing.T) {
	got := aggregate.Aggregate(day20140101)
	want := map[string]int64{
		"standup call":                                   2430,
		"DEV-1234 trying to understand the bug":          600,
		"DEV-1234 going through the db schema":           300,
		"DEV-1532 rewriting the commit_to_jira function": 450,
		"DEV-932 checking mailchimp's api":               1200,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Aggregate = %v, want %v", got, want)
	}
}

func TestAggregateEmpty(t *testing.T) {
	got := aggregate.Aggregate(nil)
	if got == nil || len(got) != 0 {
		t.Errorf("Aggregate(nil) = %v, want empty map", got)
	}
}

func TestAggregateKeepsZeroAndCase(t *testing.T) {
	got := aggregate.Aggregate([]model.TimeEntry{
		{Description: "Review", DurationSeconds: 0},
		{Description: "review", DurationSeconds: 60},
		{Description: "review ", DurationSeconds: 5},
	})
	want := map[string]int64{"Review": 0, "review": 60, "review ": 5}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Aggregate = %v, want %v", got, want)
	}
}

func TestAggregateConservesTotal(t *testing.T) {
	var in int64
	for _, e := range day20140101 {
		in += e.DurationSeconds
	}
	var out int64
	for _, v := range aggregate.Aggregate(day20140101) {
		out += v
	}
	if in != out {
		t.Errorf("sum of totals = %d, want %d", out, in)
	}
}

func TestAggregateOrderIndependent(t *testing.T) {
	want := aggregate.Aggregate(day20140101)
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		shuffled := append([]model.TimeEntry(nil), day20140101...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		if got := aggregate.Aggregate(shuffled); !reflect.DeepEqual(got, want) {
			t.Fatalf("shuffle %d: Aggregate = %v, want %v", i, got, want)
		}
	}
}

func TestDescriptionsSorted(t *testing.T) {
	got := aggregate.Descriptions(map[string]int64{"b": 1, "a": 2, "C": 3})
	want := []string{"C", "a", "b"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Descriptions = %v, want %v", got, want)
	}
}
