package model

import "time"

// DateLayout is the layout of Task.Date.
const DateLayout = "2006-01-02"

// TimeEntry is a single raw entry reported by a time-tracking source.
// Entries carry no identity; equal descriptions within one batch are summed.
type TimeEntry struct {
	Description     string `json:"description" yaml:"description"`
	DurationSeconds int64  `json:"seconds" yaml:"seconds"`
}

// Task is the persisted per-day, per-description total for a tenant.
type Task struct {
	ID               string    `json:"id"`
	TenantID         string    `json:"tenant_id"`
	Date             string    `json:"date"`
	Description      string    `json:"description"`
	TimeSpentSeconds int64     `json:"time_spent_seconds"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// SyncMark records the last confirmed push of a task by one synchronizer.
type SyncMark struct {
	TaskID       string    `json:"task_id"`
	Synchronizer string    `json:"synchronizer"`
	SyncedAt     time.Time `json:"synced_at"`
	// Watermark is the UpdatedAt of the task version that was pushed.
	Watermark time.Time `json:"watermark"`
	Digest    string    `json:"digest"`
}

// Period is an inclusive range of calendar days. Only the year, month and
// day of each bound are significant.
type Period struct {
	From time.Time
	To   time.Time
}
