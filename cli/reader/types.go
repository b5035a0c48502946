// Package reader provides the read-side data access layer for the wodwiki CLI.
//
// This package isolates all read operations (inspect/stats/list) from the
// runtime and history internals, so CLI commands depend on one small
// interface instead of reaching into history.ContentProvider and
// providerpool.Pool directly.
package reader

import "time"

// InspectEntryResponse is the detail view of one saved workout history entry.
type InspectEntryResponse struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	Tags       []string  `json:"tags"`
	Notes      string    `json:"notes"`
	Outcome    string    `json:"outcome"`
	DurationMs int64     `json:"duration_ms"`
	SpanCount  int       `json:"span_count"`
}

// ListEntryItem summarizes one history entry for `list` output.
type ListEntryItem struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	CreatedAt  time.Time `json:"created_at"`
	Tags       []string  `json:"tags"`
	Outcome    string    `json:"outcome"`
	DurationMs int64     `json:"duration_ms"`
}

// ListEntriesOptions filters and paginates ListEntries, mirroring
// history.Query's shape.
type ListEntriesOptions struct {
	DaysBack int
	Tags     []string
	Limit    int
	Offset   int
}

// HistoryStats aggregates counts across a set of history entries.
type HistoryStats struct {
	TotalEntries    int   `json:"total_entries"`
	CompletedCount  int   `json:"completed_count"`
	AbortedCount    int   `json:"aborted_count"`
	TotalDurationMs int64 `json:"total_duration_ms"`
}

// MetricsSnapshot mirrors metrics.Snapshot, parsed back from a persisted
// history record rather than read live off a running Collector.
type MetricsSnapshot struct {
	Ts string `json:"ts"`

	WorkoutsStarted   int64 `json:"workouts_started_total"`
	WorkoutsCompleted int64 `json:"workouts_completed_total"`
	WorkoutsAborted   int64 `json:"workouts_aborted_total"`

	BlocksPushed   int64 `json:"blocks_pushed_total"`
	BlocksDisposed int64 `json:"blocks_disposed_total"`

	RoundsCompleted    int64 `json:"rounds_completed_total"`
	RepsLogged         int64 `json:"reps_logged_total"`
	TimerTicksObserved int64 `json:"timer_ticks_observed_total"`

	HistoryWriteSuccess int64 `json:"history_write_success_total"`
	HistoryWriteFailure int64 `json:"history_write_failure_total"`

	ScriptID string `json:"script_id"`
	RunID    string `json:"run_id"`
}
