// Package aggregate collapses raw time entries into per-description totals.
package aggregate

import (
	"sort"

	"github.com/Tiliavir/horas/internal/model"
)

// Aggregate sums entry durations per exact description. Zero-duration
// entries still establish their key. The result never depends on input order.
func Aggregate(entries []model.TimeEntry) map[string]int64 {
	totals := make(map[string]int64, len(entries))
	for _, e := range entries {
		totals[e.Description] += e.DurationSeconds
	}
	return totals
}

// Descriptions returns the keys of totals in ascending order.
func Descriptions(totals map[string]int64) []string {
	keys := make([]string, 0, len(totals))
	for k := range totals {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
